// Package governance binds the generic voting engine (spec §4.G) to
// pool-backed voting power (spec §4.H): proposal creation requires a
// minimum staked pool, and each vote is credited with the voter's
// remaining unused voting power from their pool.
package governance

import (
	"math/big"

	"gravity/internal/chain"
	"gravity/internal/voting"
)

// ClockReader is the injected clock dependency (spec §9).
type ClockReader interface {
	NowMicros() uint64
}

// PoolView is the narrow staking-factory dependency governance needs:
// role and voting-power lookups on a pool.
type PoolView interface {
	VoterOf(pool chain.Address) (chain.Address, error)
	LockedUntilOf(pool chain.Address) (uint64, error)
	GetVotingPowerNow(pool chain.Address) (*big.Int, error)
}

// VotingEngine is the narrow voting-engine dependency (spec §4.G).
type VotingEngine interface {
	CreateProposal(proposer chain.Address, executionHash [32]byte, metadataURI string, minVoteThreshold *big.Int, votingDurationMicros uint64) uint64
	Vote(proposalID uint64, voter chain.Address, votingPower *big.Int, support bool) error
	Proposal(proposalID uint64) (voting.Proposal, bool)
}

// Params supplies the config-store fields governance consults.
type Params interface {
	MinProposalStake() *big.Int
}

// Binding implements spec §4.H Governance binding.
type Binding struct {
	usedPower map[chain.Address]map[uint64]*big.Int

	clock   ClockReader
	pools   PoolView
	voting  VotingEngine
	params  Params
}

// Deps bundles the injected dependencies used to construct a Binding.
type Deps struct {
	Clock  ClockReader
	Pools  PoolView
	Voting VotingEngine
	Params Params
}

// New constructs an empty Binding.
func New(deps Deps) *Binding {
	return &Binding{
		usedPower: make(map[chain.Address]map[uint64]*big.Int),
		clock:     deps.Clock,
		pools:     deps.Pools,
		voting:    deps.Voting,
		params:    deps.Params,
	}
}

// CreateProposal implements spec §4.H proposal-creation gate: the
// proposer's pool must hold at least minProposalStake voting power and
// lock through the full voting duration.
func (b *Binding) CreateProposal(proposer, pool chain.Address, executionHash [32]byte, metadataURI string, minVoteThreshold *big.Int, votingDurationMicros uint64) (uint64, error) {
	lockedUntil, err := b.pools.LockedUntilOf(pool)
	if err != nil {
		return 0, err
	}
	now := b.clock.NowMicros()
	if lockedUntil < now+votingDurationMicros {
		return 0, chain.ErrLockupDurationTooShort
	}
	power, err := b.pools.GetVotingPowerNow(pool)
	if err != nil {
		return 0, err
	}
	if power.Cmp(b.params.MinProposalStake()) < 0 {
		return 0, chain.ErrInsufficientStake
	}
	return b.voting.CreateProposal(proposer, executionHash, metadataURI, minVoteThreshold, votingDurationMicros), nil
}

// Vote implements spec §4.H vote binding: credits the voter's pool's
// remaining unused voting power for this proposal (spec invariant 11).
func (b *Binding) Vote(caller, pool chain.Address, proposalID uint64, support bool) error {
	voter, err := b.pools.VoterOf(pool)
	if err != nil {
		return err
	}
	if caller != voter {
		return chain.ErrNotVoter
	}

	expirationTime, err := b.proposalExpiration(proposalID)
	if err != nil {
		return err
	}
	lockedUntil, err := b.pools.LockedUntilOf(pool)
	if err != nil {
		return err
	}
	if lockedUntil < expirationTime {
		return chain.ErrInsufficientLockup
	}

	power, err := b.pools.GetVotingPowerNow(pool)
	if err != nil {
		return err
	}
	used := b.usedPowerFor(voter, proposalID)
	remaining := new(big.Int).Sub(power, used)
	if remaining.Sign() < 0 {
		remaining = big.NewInt(0)
	}

	if err := b.voting.Vote(proposalID, voter, remaining, support); err != nil {
		return err
	}
	b.setUsedPower(voter, proposalID, power)
	return nil
}

func (b *Binding) proposalExpiration(proposalID uint64) (uint64, error) {
	p, ok := b.voting.Proposal(proposalID)
	if !ok {
		return 0, chain.ErrProposalNotFound
	}
	return p.ExpirationTime, nil
}

func (b *Binding) usedPowerFor(voter chain.Address, proposalID uint64) *big.Int {
	byProposal, ok := b.usedPower[voter]
	if !ok {
		return big.NewInt(0)
	}
	power, ok := byProposal[proposalID]
	if !ok {
		return big.NewInt(0)
	}
	return power
}

func (b *Binding) setUsedPower(voter chain.Address, proposalID uint64, power *big.Int) {
	if b.usedPower[voter] == nil {
		b.usedPower[voter] = make(map[uint64]*big.Int)
	}
	b.usedPower[voter][proposalID] = new(big.Int).Set(power)
}
