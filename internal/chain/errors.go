// Package chain provides the shared foundation for the Gravity state
// machine: addressing, system identities, the monotone clock, the error
// taxonomy, and the event-emission contract consumed by every other
// internal package.
package chain

import "errors"

// Authorization errors.
var (
	ErrNotOwner    = errors.New("chain: caller is not the pool owner")
	ErrNotOperator = errors.New("chain: caller is not the pool operator")
	ErrNotStaker   = errors.New("chain: caller is not the pool staker")
	ErrNotVoter    = errors.New("chain: caller is not the pool voter")
)

// Existence errors.
var (
	ErrInvalidPool               = errors.New("chain: address is not a registered pool")
	ErrValidatorNotFound         = errors.New("chain: validator record not found")
	ErrProposalNotFound          = errors.New("chain: proposal not found")
	ErrPoolIndexOutOfBounds      = errors.New("chain: pool index out of bounds")
	ErrValidatorIndexOutOfBounds = errors.New("chain: validator index out of bounds")
)

// Uniqueness/conflict errors.
var (
	ErrValidatorAlreadyExists   = errors.New("chain: validator already registered for this pool")
	ErrDuplicateConsensusPubkey = errors.New("chain: consensus pubkey already bound to another validator")
	ErrAlreadyInitialized       = errors.New("chain: component already initialized")
)

// Arithmetic/bounds errors.
var (
	ErrZeroAmount                       = errors.New("chain: amount must be greater than zero")
	ErrInsufficientStake                = errors.New("chain: insufficient stake")
	ErrInsufficientAvailableStake       = errors.New("chain: insufficient available active stake")
	ErrInsufficientBond                 = errors.New("chain: bond below minimum required")
	ErrExceedsMaximumBond               = errors.New("chain: bond exceeds maximum allowed")
	ErrInsufficientStakeForPoolCreation = errors.New("chain: stake below minimum required to create a pool")
	ErrMonikerTooLong                   = errors.New("chain: moniker exceeds 31 bytes")
	ErrInvalidConsensusPubkeyLength     = errors.New("chain: consensus pubkey must be 48 bytes")
	ErrInvalidConsensusPopLength        = errors.New("chain: consensus proof-of-possession must be non-empty")
)

// Temporal errors.
var (
	ErrLockupNotExpired                 = errors.New("chain: lockup has not expired")
	ErrLockupDurationTooShort           = errors.New("chain: renewed lockup does not cover the minimum lockup duration")
	ErrInsufficientLockup               = errors.New("chain: pool lockup does not cover the proposal's remaining voting period")
	ErrUnbondNotReady                   = errors.New("chain: unbonding delay has not elapsed")
	ErrVotingPeriodEnded                = errors.New("chain: voting period has ended")
	ErrVotingPeriodNotEnded             = errors.New("chain: voting period has not ended")
	ErrWithdrawalWouldBreachMinimumBond = errors.New("chain: unstake would breach the validator's minimum bond")
)

// State-machine errors.
var (
	ErrValidatorSetChangesDisabled      = errors.New("chain: validator set changes are disabled")
	ErrCannotRemoveLastValidator        = errors.New("chain: cannot remove the last active validator")
	ErrReconfigurationInProgress        = errors.New("chain: reconfiguration is in progress")
	ErrMaxValidatorSetSizeReached       = errors.New("chain: validator set is at maximum size")
	ErrVotingPowerIncreaseLimitExceeded = errors.New("chain: voting power increase limit exceeded")
	ErrProposalAlreadyResolved          = errors.New("chain: proposal already resolved")
)

// InvalidStatus reports a state-machine precondition failure naming the
// expected and actual values, per spec §7.
type InvalidStatus struct {
	Expected string
	Actual   string
}

func (e *InvalidStatus) Error() string {
	return "chain: invalid status: expected " + e.Expected + ", got " + e.Actual
}
