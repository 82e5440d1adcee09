package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gravity/internal/chain"
)

type fakeParams struct {
	minStake  *big.Int
	unbonding uint64
	lockup    uint64
}

func (f fakeParams) MinStake() *big.Int { return f.minStake }
func (f fakeParams) UnbondingDelayMicros() uint64 { return f.unbonding }
func (f fakeParams) LockupDurationMicros() uint64 { return f.lockup }

func ether(n int64) *big.Int {
	e := big.NewInt(1_000_000_000_000_000_000)
	return e.Mul(e, big.NewInt(n))
}

func newTestFactory(clock *chain.Clock) *Factory {
	return New(Deps{
		Clock: clock,
		Params: fakeParams{
			minStake:  ether(1),
			unbonding: 604_800_000_000,
			lockup:    1_209_600_000_000,
		},
	})
}

func TestCreatePoolAssignsStableDistinctAddresses(t *testing.T) {
	clock := chain.NewClock(0)
	factory := newTestFactory(clock)
	owner := chain.BytesToAddress([]byte("owner"))

	addr1, err := factory.CreatePool(owner, owner, owner, owner, ether(2), 1_209_600_000_000)
	require.NoError(t, err)
	addr2, err := factory.CreatePool(owner, owner, owner, owner, ether(2), 1_209_600_000_000)
	require.NoError(t, err)
	require.NotEqual(t, addr1, addr2)

	require.True(t, factory.IsPool(addr1))
	require.True(t, factory.IsPool(addr2))
	require.EqualValues(t, 2, factory.GetPoolCount())
	require.EqualValues(t, 2, factory.GetPoolNonce())
}

func TestCreatePoolRejectsBelowMinimumStake(t *testing.T) {
	clock := chain.NewClock(0)
	factory := newTestFactory(clock)
	owner := chain.BytesToAddress([]byte("owner"))

	_, err := factory.CreatePool(owner, owner, owner, owner, ether(1).Sub(ether(1), big.NewInt(1)), 1_209_600_000_000)
	require.ErrorIs(t, err, chain.ErrInsufficientStakeForPoolCreation)
}

func TestCreatePoolRejectsShortLockup(t *testing.T) {
	clock := chain.NewClock(0)
	factory := newTestFactory(clock)
	owner := chain.BytesToAddress([]byte("owner"))

	_, err := factory.CreatePool(owner, owner, owner, owner, ether(2), 1)
	require.ErrorIs(t, err, chain.ErrLockupDurationTooShort)
}

func TestAggregateViewsFailOnUnknownPool(t *testing.T) {
	clock := chain.NewClock(0)
	factory := newTestFactory(clock)

	_, err := factory.GetActiveStake(chain.BytesToAddress([]byte("nowhere")))
	require.ErrorIs(t, err, chain.ErrInvalidPool)
}

func TestAggregateViewsForwardToPool(t *testing.T) {
	clock := chain.NewClock(0)
	factory := newTestFactory(clock)
	owner := chain.BytesToAddress([]byte("owner"))

	addr, err := factory.CreatePool(owner, owner, owner, owner, ether(3), 1_209_600_000_000)
	require.NoError(t, err)

	stake, err := factory.GetActiveStake(addr)
	require.NoError(t, err)
	require.Zero(t, stake.Cmp(ether(3)))

	power, err := factory.GetVotingPowerNow(addr)
	require.NoError(t, err)
	require.Zero(t, power.Cmp(ether(3)))

	require.Zero(t, factory.TotalActiveStake().Cmp(ether(3)))
}
