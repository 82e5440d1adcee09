package validator

import (
	"math/big"

	"github.com/holiman/uint256"

	"gravity/internal/chain"
)

// ClockReader is the injected clock dependency (spec §9).
type ClockReader interface {
	NowMicros() uint64
}

// ReconfigurationGate reports whether an epoch transition is in flight.
type ReconfigurationGate interface {
	IsTransitionInProgress() bool
}

// Params supplies the config-store fields validator operations consult.
type Params interface {
	MinBond() *big.Int
	MaxBond() *big.Int
	AllowValidatorSetChange() bool
	VotingPowerIncreaseLimitPct() uint64
	MaxValidatorSetSize() uint64
}

// PoolView is the narrow view of the staking factory the validator manager
// needs: pool existence and role lookups, and the pool's current active
// stake used to derive bond.
type PoolView interface {
	IsPool(addr chain.Address) bool
	GetActiveStake(addr chain.Address) (*big.Int, error)
	OperatorOf(addr chain.Address) (chain.Address, error)
	OwnerOf(addr chain.Address) (chain.Address, error)
}

// Manager implements spec §4.E ValidatorManagement.
type Manager struct {
	records map[chain.Address]*Record
	pubkeys map[Pubkey]chain.Address
	state   SetState

	clock  ClockReader
	gate   ReconfigurationGate
	params Params
	pools  PoolView

	emitter chain.Emitter
}

// Deps bundles the injected dependencies used to construct a Manager.
type Deps struct {
	Clock   ClockReader
	Gate    ReconfigurationGate
	Params  Params
	Pools   PoolView
	Emitter chain.Emitter
}

// New constructs an empty Manager.
func New(deps Deps) *Manager {
	if deps.Emitter == nil {
		deps.Emitter = chain.NoopEmitter{}
	}
	return &Manager{
		records: make(map[chain.Address]*Record),
		pubkeys: make(map[Pubkey]chain.Address),
		state: SetState{
			TotalVotingPower:           big.NewInt(0),
			TotalJoiningPowerThisEpoch: big.NewInt(0),
		},
		clock:   deps.Clock,
		gate:    deps.Gate,
		params:  deps.Params,
		pools:   deps.Pools,
		emitter: deps.Emitter,
	}
}

func (m *Manager) emit(eventType string, attrs map[string]string) {
	m.emitter.Emit(chain.Event{Type: eventType, Attributes: attrs})
}

// SetGate replaces the reconfiguration gate this manager consults. Exists
// for the same construction-order reason as staking.Factory.SetGate: the
// reconfiguration.Coordinator is built from components that themselves
// depend on this manager.
func (m *Manager) SetGate(gate ReconfigurationGate) {
	m.gate = gate
}

func (m *Manager) requireNotInTransition() error {
	if m.gate != nil && m.gate.IsTransitionInProgress() {
		return chain.ErrReconfigurationInProgress
	}
	return nil
}

// capBond returns min(activeStake, maxBond), converting through uint256 for
// overflow-checked comparison the way core/state_transition.go caps balances
// before use.
func capBond(activeStake, maxBond *big.Int) *big.Int {
	stakeU, overflow := uint256.FromBig(activeStake)
	if overflow {
		return new(big.Int).Set(maxBond)
	}
	maxU := uint256.MustFromBig(maxBond)
	if stakeU.Cmp(maxU) > 0 {
		return new(big.Int).Set(maxBond)
	}
	return new(big.Int).Set(activeStake)
}

// MinimumBondFor implements stakepool.BondGuard: an active or
// pending-inactive validator's pool must keep activeStake at or above
// minBond (spec §4.C unstake precondition).
func (m *Manager) MinimumBondFor(pool chain.Address) (*big.Int, bool) {
	rec, ok := m.records[pool]
	if !ok {
		return nil, false
	}
	if rec.Status != StatusActive && rec.Status != StatusPendingInactive {
		return nil, false
	}
	return m.params.MinBond(), true
}

// RegisterValidator implements spec §4.E registerValidator.
func (m *Manager) RegisterValidator(caller, pool chain.Address, moniker string, pubkey Pubkey, pop, network, fullnode []byte) error {
	if !m.pools.IsPool(pool) {
		return chain.ErrInvalidPool
	}
	operator, err := m.pools.OperatorOf(pool)
	if err != nil {
		return err
	}
	if caller != operator {
		return chain.ErrNotOperator
	}
	if len(moniker) >= 32 {
		return chain.ErrMonikerTooLong
	}
	if len(pop) == 0 {
		return chain.ErrInvalidConsensusPopLength
	}
	if _, exists := m.records[pool]; exists {
		return chain.ErrValidatorAlreadyExists
	}
	if owner, found := m.pubkeys[pubkey]; found && owner != pool {
		if other, ok := m.records[owner]; ok && other.Status != StatusInactive {
			return chain.ErrDuplicateConsensusPubkey
		}
	}
	activeStake, err := m.pools.GetActiveStake(pool)
	if err != nil {
		return err
	}
	if activeStake.Cmp(m.params.MinBond()) < 0 {
		return chain.ErrInsufficientBond
	}
	owner, err := m.pools.OwnerOf(pool)
	if err != nil {
		return err
	}

	m.records[pool] = &Record{
		Pool:              pool,
		Moniker:           moniker,
		ConsensusPubkey:   pubkey,
		ConsensusPop:      append([]byte(nil), pop...),
		NetworkAddresses:  append([]byte(nil), network...),
		FullnodeAddresses: append([]byte(nil), fullnode...),
		Status:            StatusInactive,
		Bond:              capBond(activeStake, m.params.MaxBond()),
		FeeRecipient:      owner,
		ValidatorIndex:    MaxValidatorIndex,
	}
	m.pubkeys[pubkey] = pool

	m.emit("ValidatorRegistered", map[string]string{"pool": pool.String(), "moniker": moniker})
	return nil
}

// JoinValidatorSet implements spec §4.E joinValidatorSet.
func (m *Manager) JoinValidatorSet(caller, pool chain.Address) error {
	if !m.params.AllowValidatorSetChange() {
		return chain.ErrValidatorSetChangesDisabled
	}
	if err := m.requireNotInTransition(); err != nil {
		return err
	}
	operator, err := m.pools.OperatorOf(pool)
	if err != nil {
		return err
	}
	if caller != operator {
		return chain.ErrNotOperator
	}
	rec, ok := m.records[pool]
	if !ok {
		return chain.ErrValidatorNotFound
	}
	if rec.Status != StatusInactive {
		return &chain.InvalidStatus{Expected: StatusInactive.String(), Actual: rec.Status.String()}
	}
	activeStake, err := m.pools.GetActiveStake(pool)
	if err != nil {
		return err
	}
	if activeStake.Cmp(m.params.MinBond()) < 0 {
		return chain.ErrInsufficientBond
	}
	if uint64(len(m.state.ActiveValidators)+len(m.state.PendingActive)) >= m.params.MaxValidatorSetSize() {
		return chain.ErrMaxValidatorSetSizeReached
	}
	if owner, found := m.pubkeys[rec.ConsensusPubkey]; found && owner != pool {
		if other, ok := m.records[owner]; ok && other.Status != StatusInactive {
			return chain.ErrDuplicateConsensusPubkey
		}
	}

	rec.Status = StatusPendingActive
	m.pubkeys[rec.ConsensusPubkey] = pool
	m.state.PendingActive = append(m.state.PendingActive, pool)
	m.emit("ValidatorJoinRequested", map[string]string{"pool": pool.String()})
	return nil
}

func removeAddr(list []chain.Address, target chain.Address) []chain.Address {
	out := list[:0:0]
	for _, addr := range list {
		if addr != target {
			out = append(out, addr)
		}
	}
	return out
}

func (m *Manager) leave(pool chain.Address, allowLastRemoval bool) error {
	if !m.params.AllowValidatorSetChange() {
		return chain.ErrValidatorSetChangesDisabled
	}
	if err := m.requireNotInTransition(); err != nil {
		return err
	}
	rec, ok := m.records[pool]
	if !ok {
		return chain.ErrValidatorNotFound
	}
	switch rec.Status {
	case StatusPendingActive:
		rec.Status = StatusInactive
		m.state.PendingActive = removeAddr(m.state.PendingActive, pool)
	case StatusActive:
		if !allowLastRemoval && len(m.state.ActiveValidators) < 2 {
			return chain.ErrCannotRemoveLastValidator
		}
		rec.Status = StatusPendingInactive
		m.state.PendingInactive = append(m.state.PendingInactive, pool)
	default:
		return &chain.InvalidStatus{Expected: "PENDING_ACTIVE or ACTIVE", Actual: rec.Status.String()}
	}
	return nil
}

// LeaveValidatorSet implements spec §4.E leaveValidatorSet.
func (m *Manager) LeaveValidatorSet(caller, pool chain.Address) error {
	operator, err := m.pools.OperatorOf(pool)
	if err != nil {
		return err
	}
	if caller != operator {
		return chain.ErrNotOperator
	}
	if err := m.leave(pool, false); err != nil {
		return err
	}
	m.emit("ValidatorLeaveRequested", map[string]string{"pool": pool.String()})
	return nil
}

// ForceLeaveValidatorSet implements spec §4.E forceLeaveValidatorSet: the
// governance-only emergency capability that may remove the last validator.
func (m *Manager) ForceLeaveValidatorSet(caller, pool chain.Address) error {
	if err := chain.RequireSystemCaller(chain.RoleGovernance, caller); err != nil {
		return err
	}
	if err := m.leave(pool, true); err != nil {
		return err
	}
	m.emit("ValidatorForceLeaveRequested", map[string]string{"pool": pool.String()})
	return nil
}

// RotateConsensusKey implements spec §4.E rotateConsensusKey.
func (m *Manager) RotateConsensusKey(caller, pool chain.Address, newPubkey Pubkey, newPop []byte) error {
	if err := m.requireNotInTransition(); err != nil {
		return err
	}
	operator, err := m.pools.OperatorOf(pool)
	if err != nil {
		return err
	}
	if caller != operator {
		return chain.ErrNotOperator
	}
	rec, ok := m.records[pool]
	if !ok {
		return chain.ErrValidatorNotFound
	}
	if len(newPop) == 0 {
		return chain.ErrInvalidConsensusPopLength
	}
	if owner, found := m.pubkeys[newPubkey]; found && owner != pool {
		if other, ok := m.records[owner]; ok && other.Status != StatusInactive {
			return chain.ErrDuplicateConsensusPubkey
		}
	}
	delete(m.pubkeys, rec.ConsensusPubkey)
	rec.ConsensusPubkey = newPubkey
	rec.ConsensusPop = append([]byte(nil), newPop...)
	m.pubkeys[newPubkey] = pool

	m.emit("ConsensusKeyRotated", map[string]string{"pool": pool.String()})
	return nil
}

// SetFeeRecipient implements spec §4.E setFeeRecipient.
func (m *Manager) SetFeeRecipient(caller, pool, newRecipient chain.Address) error {
	if err := m.requireNotInTransition(); err != nil {
		return err
	}
	owner, err := m.pools.OwnerOf(pool)
	if err != nil {
		return err
	}
	if caller != owner {
		return chain.ErrNotOwner
	}
	rec, ok := m.records[pool]
	if !ok {
		return chain.ErrValidatorNotFound
	}
	rec.PendingFeeRecipient = newRecipient
	m.emit("FeeRecipientUpdated", map[string]string{"pool": pool.String(), "pending": newRecipient.String()})
	return nil
}

// Record returns a defensive copy of the validator record for pool.
func (m *Manager) Record(pool chain.Address) (Record, bool) {
	rec, ok := m.records[pool]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}
