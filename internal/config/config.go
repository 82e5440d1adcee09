// Package config implements the Gravity config store (spec §4.B): the
// active validator/staking parameter record and an optional record staged
// for the next epoch boundary, swapped atomically by Reconfiguration.
package config

import (
	"fmt"
	"math/big"

	"gravity/internal/chain"
)

// Record holds the validator/staking parameters that gate every mutating
// operation across the stake-pool, factory, and validator components.
type Record struct {
	MinBond                     *big.Int
	MaxBond                     *big.Int
	UnbondingDelayMicros        uint64
	AllowValidatorSetChange     bool
	VotingPowerIncreaseLimitPct uint64
	MaxValidatorSetSize         uint64
	MinStake                    *big.Int
	LockupDurationMicros        uint64
	MinProposalStake            *big.Int
}

// Clone returns a deep copy so callers can't mutate shared big.Int pointers.
func (r Record) Clone() Record {
	clone := r
	clone.MinBond = cloneBig(r.MinBond)
	clone.MaxBond = cloneBig(r.MaxBond)
	clone.MinStake = cloneBig(r.MinStake)
	clone.MinProposalStake = cloneBig(r.MinProposalStake)
	return clone
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Validate rejects structurally invalid records (spec §3: votingPowerIncreaseLimitPct in 1..50).
func (r Record) Validate() error {
	if r.MinBond == nil || r.MaxBond == nil || r.MinStake == nil || r.MinProposalStake == nil {
		return fmt.Errorf("config: all big.Int fields must be set")
	}
	if r.MinBond.Sign() < 0 || r.MaxBond.Sign() < 0 || r.MinStake.Sign() < 0 || r.MinProposalStake.Sign() < 0 {
		return fmt.Errorf("config: negative amounts are not allowed")
	}
	if r.MaxBond.Cmp(r.MinBond) < 0 {
		return fmt.Errorf("config: maxBond must be >= minBond")
	}
	if r.VotingPowerIncreaseLimitPct < 1 || r.VotingPowerIncreaseLimitPct > 50 {
		return fmt.Errorf("config: votingPowerIncreaseLimitPct must be in [1,50]")
	}
	if r.MaxValidatorSetSize == 0 {
		return fmt.Errorf("config: maxValidatorSetSize must be > 0")
	}
	if r.LockupDurationMicros == 0 {
		return fmt.Errorf("config: lockupDurationMicros must be > 0")
	}
	return nil
}

// Store owns the active configuration and an optional record staged for the
// next epoch boundary. Getters never merge the two views (spec §4.B).
type Store struct {
	initialized bool
	active      Record
	pending     *Record
}

// NewStore constructs an uninitialized Store.
func NewStore() *Store {
	return &Store{}
}

// Initialize sets the active record. Genesis-only, once.
func (s *Store) Initialize(caller chain.Address, record Record) error {
	if err := chain.RequireSystemCaller(chain.RoleGenesis, caller); err != nil {
		return err
	}
	if s.initialized {
		return chain.ErrAlreadyInitialized
	}
	if err := record.Validate(); err != nil {
		return err
	}
	s.active = record.Clone()
	s.initialized = true
	return nil
}

// SetForNextEpoch stages record to supersede the active record at the next
// epoch boundary. Governance-only.
func (s *Store) SetForNextEpoch(caller chain.Address, record Record) error {
	if err := chain.RequireSystemCaller(chain.RoleGovernance, caller); err != nil {
		return err
	}
	if !s.initialized {
		return fmt.Errorf("config: not initialized")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	clone := record.Clone()
	s.pending = &clone
	return nil
}

// ApplyPendingConfig atomically swaps the pending record into the active
// slot and clears pending. A no-op (success) if there is no pending record.
// Reconfiguration-only.
func (s *Store) ApplyPendingConfig(caller chain.Address) error {
	if err := chain.RequireSystemCaller(chain.RoleReconfiguration, caller); err != nil {
		return err
	}
	if s.pending == nil {
		return nil
	}
	s.active = *s.pending
	s.pending = nil
	return nil
}

// HasPending reports whether a record is staged for the next epoch.
func (s *Store) HasPending() bool {
	return s.pending != nil
}

// Active returns a defensive copy of the active record.
func (s *Store) Active() Record {
	return s.active.Clone()
}

func (s *Store) MinBond() *big.Int { return cloneBig(s.active.MinBond) }
func (s *Store) MaxBond() *big.Int { return cloneBig(s.active.MaxBond) }
func (s *Store) UnbondingDelayMicros() uint64 { return s.active.UnbondingDelayMicros }
func (s *Store) AllowValidatorSetChange() bool { return s.active.AllowValidatorSetChange }
func (s *Store) VotingPowerIncreaseLimitPct() uint64 { return s.active.VotingPowerIncreaseLimitPct }
func (s *Store) MaxValidatorSetSize() uint64 { return s.active.MaxValidatorSetSize }
func (s *Store) MinStake() *big.Int { return cloneBig(s.active.MinStake) }
func (s *Store) LockupDurationMicros() uint64 { return s.active.LockupDurationMicros }
func (s *Store) MinProposalStake() *big.Int { return cloneBig(s.active.MinProposalStake) }
