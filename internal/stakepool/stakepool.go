// Package stakepool implements the per-pool stake accounting state machine
// (spec §4.C, §3 "StakePool"/"PendingBucket"): active stake, the
// prefix-summed pending-bucket sequence, the claim pointer, lockup, and the
// four pool roles.
package stakepool

import (
	"errors"
	"math/big"
	"sort"

	"gravity/internal/chain"
)

// ErrLockupExtensionOverflow is returned by RenewLockUntil when the
// requested extension would overflow the lockup timestamp. Not named in the
// spec's error taxonomy (§7) because the taxonomy assumes the extension
// arithmetic cannot overflow in practice; kept as a defensive guard since the
// spec explicitly requires "no overflow" be checked.
var ErrLockupExtensionOverflow = errors.New("stakepool: lockup extension overflows")

// PendingBucket is a single unbond request: the lockup timestamp in effect
// when it was created, and the prefix-summed cumulative amount through this
// bucket (spec §3).
type PendingBucket struct {
	LockedUntil      uint64
	CumulativeAmount *big.Int
}

// ClockReader is the minimal clock dependency a StakePool needs. Matching
// spec §9's guidance to inject the time source, StakePool depends on this
// narrow interface rather than a concrete *chain.Clock.
type ClockReader interface {
	NowMicros() uint64
}

// ReconfigurationGate reports whether an epoch transition is currently in
// flight. Injected per spec §9 rather than hard-wired to a global.
type ReconfigurationGate interface {
	IsTransitionInProgress() bool
}

// Params supplies the two config-store fields StakePool operations consult.
type Params interface {
	UnbondingDelayMicros() uint64
	LockupDurationMicros() uint64
}

// BondGuard lets the validator manager enforce "unstaking must not drop an
// active validator's pool below minBond" without StakePool importing the
// validator package. MinimumBondFor reports whether the pool currently backs
// an active or pending-inactive validator and, if so, the bond floor to
// enforce.
type BondGuard interface {
	MinimumBondFor(pool chain.Address) (minBond *big.Int, bonded bool)
}

// NoopBondGuard treats every pool as unbonded; used for standalone pools not
// wired to a validator manager.
type NoopBondGuard struct{}

// MinimumBondFor implements BondGuard.
func (NoopBondGuard) MinimumBondFor(chain.Address) (*big.Int, bool) { return nil, false }

// Transferer delivers claimed funds to a recipient. The spec leaves the
// value-transfer channel deployment-defined (§9 Open Questions); see
// DESIGN.md for the decision to model it as an injected interface with an
// in-memory ledger default.
type Transferer interface {
	Transfer(to chain.Address, amount *big.Int) error
}

// LedgerTransferer is the default Transferer: it just records cumulative
// transfers per recipient in memory, standing in for whatever native
// value-transfer primitive a deployment provides.
type LedgerTransferer struct {
	Received map[chain.Address]*big.Int
}

// NewLedgerTransferer constructs an empty LedgerTransferer.
func NewLedgerTransferer() *LedgerTransferer {
	return &LedgerTransferer{Received: make(map[chain.Address]*big.Int)}
}

// Transfer implements Transferer.
func (l *LedgerTransferer) Transfer(to chain.Address, amount *big.Int) error {
	if l.Received == nil {
		l.Received = make(map[chain.Address]*big.Int)
	}
	cur, ok := l.Received[to]
	if !ok {
		cur = big.NewInt(0)
	}
	l.Received[to] = new(big.Int).Add(cur, amount)
	return nil
}

// StakePool is a single stake pool (spec §3).
type StakePool struct {
	addr chain.Address

	owner        chain.Address
	pendingOwner chain.Address
	staker       chain.Address
	operator     chain.Address
	voter        chain.Address

	activeStake   *big.Int
	buckets       []PendingBucket
	claimedAmount *big.Int
	lockedUntil   uint64
	balance       *big.Int

	clock      ClockReader
	gate       ReconfigurationGate
	params     Params
	bondGuard  BondGuard
	transferer Transferer
	emitter    chain.Emitter
}

// Deps bundles the injected dependencies used to construct a StakePool.
type Deps struct {
	Clock      ClockReader
	Gate       ReconfigurationGate
	Params     Params
	BondGuard  BondGuard
	Transferer Transferer
	Emitter    chain.Emitter
}

func (d *Deps) fillDefaults() {
	if d.BondGuard == nil {
		d.BondGuard = NoopBondGuard{}
	}
	if d.Transferer == nil {
		d.Transferer = NewLedgerTransferer()
	}
	if d.Emitter == nil {
		d.Emitter = chain.NoopEmitter{}
	}
}

// New constructs a StakePool funded with initialValue, matching the
// invariants the staking factory establishes at createPool time (spec §4.D):
// activeStake = initialValue, balance = initialValue, no pending buckets.
func New(addr chain.Address, owner, staker, operator, voter chain.Address, initialValue *big.Int, lockedUntil uint64, deps Deps) *StakePool {
	deps.fillDefaults()
	return &StakePool{
		addr:          addr,
		owner:         owner,
		staker:        staker,
		operator:      operator,
		voter:         voter,
		activeStake:   new(big.Int).Set(initialValue),
		claimedAmount: big.NewInt(0),
		lockedUntil:   lockedUntil,
		balance:       new(big.Int).Set(initialValue),
		clock:         deps.Clock,
		gate:          deps.Gate,
		params:        deps.Params,
		bondGuard:     deps.BondGuard,
		transferer:    deps.Transferer,
		emitter:       deps.Emitter,
	}
}

// Address returns the pool's stable address.
func (p *StakePool) Address() chain.Address { return p.addr }

func (p *StakePool) emit(eventType string, attrs map[string]string) {
	p.emitter.Emit(chain.Event{Type: eventType, Attributes: attrs})
}

func (p *StakePool) requireNotInTransition() error {
	if p.gate != nil && p.gate.IsTransitionInProgress() {
		return chain.ErrReconfigurationInProgress
	}
	return nil
}

// lastCumulative returns the cumulative amount of the last bucket, or zero if
// there are none.
func (p *StakePool) lastCumulative() *big.Int {
	if len(p.buckets) == 0 {
		return big.NewInt(0)
	}
	return p.buckets[len(p.buckets)-1].CumulativeAmount
}

// AddStake implements spec §4.C addStake.
func (p *StakePool) AddStake(caller chain.Address, value *big.Int) error {
	if caller != p.staker {
		return chain.ErrNotStaker
	}
	if value == nil || value.Sign() <= 0 {
		return chain.ErrZeroAmount
	}
	if err := p.requireNotInTransition(); err != nil {
		return err
	}
	p.activeStake.Add(p.activeStake, value)
	p.balance.Add(p.balance, value)

	extended := p.clock.NowMicros() + p.params.LockupDurationMicros()
	if extended > p.lockedUntil {
		p.lockedUntil = extended
	}
	p.emit("StakeAdded", map[string]string{"pool": p.addr.String(), "amount": value.String()})
	return nil
}

// Unstake implements spec §4.C unstake, including the bucket merge/split
// rule and the minimum-bond guard for bonded pools.
func (p *StakePool) Unstake(caller chain.Address, amount *big.Int) error {
	if caller != p.staker {
		return chain.ErrNotStaker
	}
	if amount == nil || amount.Sign() <= 0 {
		return chain.ErrZeroAmount
	}
	if err := p.requireNotInTransition(); err != nil {
		return err
	}
	if amount.Cmp(p.activeStake) > 0 {
		return chain.ErrInsufficientAvailableStake
	}
	if minBond, bonded := p.bondGuard.MinimumBondFor(p.addr); bonded {
		remaining := new(big.Int).Sub(p.activeStake, amount)
		if remaining.Cmp(minBond) < 0 {
			return chain.ErrWithdrawalWouldBreachMinimumBond
		}
	}

	p.activeStake.Sub(p.activeStake, amount)

	if n := len(p.buckets); n > 0 && p.buckets[n-1].LockedUntil == p.lockedUntil {
		p.buckets[n-1].CumulativeAmount = new(big.Int).Add(p.buckets[n-1].CumulativeAmount, amount)
	} else {
		cumulative := new(big.Int).Add(p.lastCumulative(), amount)
		p.buckets = append(p.buckets, PendingBucket{LockedUntil: p.lockedUntil, CumulativeAmount: cumulative})
	}

	p.emit("Unstaked", map[string]string{"pool": p.addr.String(), "amount": amount.String()})
	return nil
}

// claimableAt computes the claimable amount as of now, without mutating
// state, via binary search over the bucket sequence (spec §4.C).
func (p *StakePool) claimableAt(now uint64) *big.Int {
	if len(p.buckets) == 0 {
		return big.NewInt(0)
	}
	delay := p.params.UnbondingDelayMicros()
	// Largest k such that buckets[k].LockedUntil + delay < now. sort.Search
	// finds the first index for which the predicate holds when scanning in
	// reverse order is inconvenient, so search for the first bucket that is
	// NOT yet claimable and step back one.
	firstNotClaimable := sort.Search(len(p.buckets), func(i int) bool {
		return !(p.buckets[i].LockedUntil+delay < now)
	})
	if firstNotClaimable == 0 {
		return big.NewInt(0)
	}
	claimableThrough := p.buckets[firstNotClaimable-1].CumulativeAmount
	claimable := new(big.Int).Sub(claimableThrough, p.claimedAmount)
	if claimable.Sign() < 0 {
		return big.NewInt(0)
	}
	return claimable
}

// WithdrawAvailable implements spec §4.C withdrawAvailable, using
// check-effects-interactions: claimedAmount and balance are updated before
// the outbound transfer is invoked (spec §5, §9).
func (p *StakePool) WithdrawAvailable(caller chain.Address, to chain.Address) (*big.Int, error) {
	if caller != p.staker {
		return nil, chain.ErrNotStaker
	}
	if err := p.requireNotInTransition(); err != nil {
		return nil, err
	}
	claimable := p.claimableAt(p.clock.NowMicros())
	if claimable.Sign() == 0 {
		return big.NewInt(0), nil
	}

	p.claimedAmount.Add(p.claimedAmount, claimable)
	p.balance.Sub(p.balance, claimable)

	if err := p.transferer.Transfer(to, claimable); err != nil {
		return nil, err
	}
	p.emit("WithdrawalClaimed", map[string]string{"pool": p.addr.String(), "to": to.String(), "amount": claimable.String()})
	return claimable, nil
}

// UnstakeAndWithdraw implements spec §4.C unstakeAndWithdraw as a single
// call combining Unstake then WithdrawAvailable.
func (p *StakePool) UnstakeAndWithdraw(caller chain.Address, amount *big.Int, to chain.Address) (*big.Int, error) {
	if err := p.Unstake(caller, amount); err != nil {
		return nil, err
	}
	return p.WithdrawAvailable(caller, to)
}

// RenewLockUntil implements spec §4.C renewLockUntil.
func (p *StakePool) RenewLockUntil(caller chain.Address, extensionMicros uint64) error {
	if caller != p.staker {
		return chain.ErrNotStaker
	}
	if extensionMicros == 0 {
		return chain.ErrZeroAmount
	}
	if err := p.requireNotInTransition(); err != nil {
		return err
	}
	newLockedUntil := p.lockedUntil + extensionMicros
	if newLockedUntil <= p.lockedUntil {
		return ErrLockupExtensionOverflow
	}
	minCovering := p.clock.NowMicros() + p.params.LockupDurationMicros()
	if newLockedUntil < minCovering {
		return chain.ErrLockupDurationTooShort
	}
	p.lockedUntil = newLockedUntil
	p.emit("LockupRenewed", map[string]string{"pool": p.addr.String(), "lockedUntil": itoa(newLockedUntil)})
	return nil
}

func itoa(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}
