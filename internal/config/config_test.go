package config

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gravity/internal/chain"
)

func sampleRecord() Record {
	return Record{
		MinBond:                     big.NewInt(1_000),
		MaxBond:                     big.NewInt(1_000_000),
		UnbondingDelayMicros:        604_800_000_000,
		AllowValidatorSetChange:     true,
		VotingPowerIncreaseLimitPct: 20,
		MaxValidatorSetSize:         100,
		MinStake:                    big.NewInt(1_000_000_000_000_000_000),
		LockupDurationMicros:        1_209_600_000_000,
		MinProposalStake:            big.NewInt(500),
	}
}

func TestInitializeRequiresGenesisAndOnlyOnce(t *testing.T) {
	store := NewStore()
	err := store.Initialize(chain.SystemAddress(chain.RoleBlock), sampleRecord())
	require.Error(t, err)

	require.NoError(t, store.Initialize(chain.SystemAddress(chain.RoleGenesis), sampleRecord()))

	err = store.Initialize(chain.SystemAddress(chain.RoleGenesis), sampleRecord())
	require.ErrorIs(t, err, chain.ErrAlreadyInitialized)
}

func TestSetForNextEpochRequiresGovernance(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Initialize(chain.SystemAddress(chain.RoleGenesis), sampleRecord()))

	err := store.SetForNextEpoch(chain.SystemAddress(chain.RoleBlock), sampleRecord())
	require.Error(t, err)
	require.False(t, store.HasPending())

	next := sampleRecord()
	next.MaxValidatorSetSize = 50
	require.NoError(t, store.SetForNextEpoch(chain.SystemAddress(chain.RoleGovernance), next))
	require.True(t, store.HasPending())
	require.EqualValues(t, 100, store.MaxValidatorSetSize(), "active view must not reflect pending")
}

func TestApplyPendingConfigAtomicSwap(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.Initialize(chain.SystemAddress(chain.RoleGenesis), sampleRecord()))

	next := sampleRecord()
	next.MaxValidatorSetSize = 50
	require.NoError(t, store.SetForNextEpoch(chain.SystemAddress(chain.RoleGovernance), next))

	err := store.ApplyPendingConfig(chain.SystemAddress(chain.RoleGovernance))
	require.Error(t, err)

	require.NoError(t, store.ApplyPendingConfig(chain.SystemAddress(chain.RoleReconfiguration)))
	require.EqualValues(t, 50, store.MaxValidatorSetSize())
	require.False(t, store.HasPending())

	// idempotent when nothing pending
	require.NoError(t, store.ApplyPendingConfig(chain.SystemAddress(chain.RoleReconfiguration)))
	require.EqualValues(t, 50, store.MaxValidatorSetSize())
}

func TestValidateRejectsOutOfRangeThrottle(t *testing.T) {
	rec := sampleRecord()
	rec.VotingPowerIncreaseLimitPct = 0
	require.Error(t, rec.Validate())

	rec = sampleRecord()
	rec.VotingPowerIncreaseLimitPct = 51
	require.Error(t, rec.Validate())
}
