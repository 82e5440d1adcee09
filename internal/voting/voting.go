// Package voting implements the generic voting engine (spec §4.G): proposal
// creation, partial-vote accumulation, and derived resolution. The engine
// does not execute anything; §4.H binds a resolved proposal to actual
// parameter changes.
package voting

import (
	"math/big"

	"gravity/internal/chain"
)

// State is the derived lifecycle state of a proposal (spec §4.G
// getProposalState).
type State uint8

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
	StateExecuted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateExecuted:
		return "EXECUTED"
	default:
		return "UNKNOWN"
	}
}

// Proposal is a single vote subject (spec §3 "Proposal").
type Proposal struct {
	ID                       uint64
	Proposer                 chain.Address
	ExecutionHash            [32]byte
	MetadataURI              string
	MinVoteThreshold         *big.Int
	ExpirationTime           uint64
	EarlyResolutionThreshold *big.Int

	YesVotes       *big.Int
	NoVotes        *big.Int
	IsResolved     bool
	ResolutionTime uint64
}

// ClockReader is the injected clock dependency (spec §9).
type ClockReader interface {
	NowMicros() uint64
}

// Engine implements spec §4.G Voting.
type Engine struct {
	nextID    uint64
	proposals map[uint64]*Proposal

	clock   ClockReader
	emitter chain.Emitter
}

// Deps bundles the injected dependencies used to construct an Engine.
type Deps struct {
	Clock   ClockReader
	Emitter chain.Emitter
}

// New constructs an empty Engine.
func New(deps Deps) *Engine {
	if deps.Emitter == nil {
		deps.Emitter = chain.NoopEmitter{}
	}
	return &Engine{
		nextID:    1,
		proposals: make(map[uint64]*Proposal),
		clock:     deps.Clock,
		emitter:   deps.Emitter,
	}
}

// CreateProposal implements spec §4.G createProposal.
func (e *Engine) CreateProposal(proposer chain.Address, executionHash [32]byte, metadataURI string, minVoteThreshold *big.Int, votingDurationMicros uint64) uint64 {
	id := e.nextID
	e.nextID++

	e.proposals[id] = &Proposal{
		ID:               id,
		Proposer:         proposer,
		ExecutionHash:    executionHash,
		MetadataURI:      metadataURI,
		MinVoteThreshold: new(big.Int).Set(minVoteThreshold),
		ExpirationTime:   e.clock.NowMicros() + votingDurationMicros,
		YesVotes:         big.NewInt(0),
		NoVotes:          big.NewInt(0),
	}

	e.emitter.Emit(chain.Event{Type: "ProposalCreated", Attributes: map[string]string{"proposalId": itoa(id)}})
	return id
}

// Vote implements spec §4.G vote: an intrinsically partial-vote accumulator.
// The caller (§4.H) is responsible for computing the voter's remaining
// unused voting power before calling this.
func (e *Engine) Vote(proposalID uint64, voter chain.Address, votingPower *big.Int, support bool) error {
	p, ok := e.proposals[proposalID]
	if !ok {
		return chain.ErrProposalNotFound
	}
	if p.IsResolved {
		return chain.ErrProposalAlreadyResolved
	}
	if e.clock.NowMicros() >= p.ExpirationTime {
		return chain.ErrVotingPeriodEnded
	}

	if support {
		p.YesVotes.Add(p.YesVotes, votingPower)
	} else {
		p.NoVotes.Add(p.NoVotes, votingPower)
	}

	e.emitter.Emit(chain.Event{Type: "VoteCast", Attributes: map[string]string{
		"proposalId": itoa(proposalID),
		"voter":      voter.String(),
	}})
	return nil
}

func (p *Proposal) earlyResolvable() bool {
	if p.EarlyResolutionThreshold == nil {
		return false
	}
	return p.YesVotes.Cmp(p.EarlyResolutionThreshold) >= 0 || p.NoVotes.Cmp(p.EarlyResolutionThreshold) >= 0
}

func (p *Proposal) passed() bool {
	total := new(big.Int).Add(p.YesVotes, p.NoVotes)
	return p.YesVotes.Cmp(p.NoVotes) > 0 && total.Cmp(p.MinVoteThreshold) >= 0
}

// getProposalState derives a proposal's lifecycle state per spec §4.G.
func (e *Engine) getProposalState(p *Proposal, now uint64) State {
	if p.IsResolved {
		if p.passed() {
			return StateExecuted
		}
		return StateFailed
	}
	if now < p.ExpirationTime && !p.earlyResolvable() {
		return StatePending
	}
	if p.passed() {
		return StateSucceeded
	}
	return StateFailed
}

// GetProposalState returns a proposal's derived lifecycle state.
func (e *Engine) GetProposalState(proposalID uint64) (State, error) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return 0, chain.ErrProposalNotFound
	}
	return e.getProposalState(p, e.clock.NowMicros()), nil
}

// Resolve implements spec §4.G resolve.
func (e *Engine) Resolve(proposalID uint64) (State, error) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return 0, chain.ErrProposalNotFound
	}
	if p.IsResolved {
		return 0, chain.ErrProposalAlreadyResolved
	}
	now := e.clock.NowMicros()
	if now < p.ExpirationTime && !p.earlyResolvable() {
		return 0, chain.ErrVotingPeriodNotEnded
	}

	p.IsResolved = true
	p.ResolutionTime = now
	state := e.getProposalState(p, now)

	e.emitter.Emit(chain.Event{Type: "ProposalResolved", Attributes: map[string]string{
		"proposalId": itoa(proposalID),
		"state":      state.String(),
	}})
	return state, nil
}

// SetEarlyResolutionThreshold implements spec §4.G's Timelock-only knob.
func (e *Engine) SetEarlyResolutionThreshold(caller chain.Address, proposalID uint64, threshold *big.Int) error {
	if err := chain.RequireSystemCaller(chain.RoleTimelock, caller); err != nil {
		return err
	}
	p, ok := e.proposals[proposalID]
	if !ok {
		return chain.ErrProposalNotFound
	}
	p.EarlyResolutionThreshold = new(big.Int).Set(threshold)
	return nil
}

// Proposal returns a defensive copy of a proposal's current state.
func (e *Engine) Proposal(proposalID uint64) (Proposal, bool) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return Proposal{}, false
	}
	clone := *p
	clone.YesVotes = new(big.Int).Set(p.YesVotes)
	clone.NoVotes = new(big.Int).Set(p.NoVotes)
	clone.MinVoteThreshold = new(big.Int).Set(p.MinVoteThreshold)
	return clone, true
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
