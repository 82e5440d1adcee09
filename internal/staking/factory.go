// Package staking implements the stake-pool factory (spec §4.D): pool
// creation, the pool registry, and aggregate view helpers that forward to a
// pool after verifying it is registered.
package staking

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"

	"gravity/internal/chain"
	"gravity/internal/stakepool"
)

// Params supplies the config-store fields the factory consults at pool
// creation time, in addition to the fields each created StakePool needs.
type Params interface {
	stakepool.Params
	MinStake() *big.Int
}

// Factory creates and enumerates stake pools (spec §4.D).
type Factory struct {
	nonce  uint64
	pools  map[chain.Address]*stakepool.StakePool
	order  []chain.Address

	clock      stakepool.ClockReader
	gate       stakepool.ReconfigurationGate
	params     Params
	bondGuard  stakepool.BondGuard
	emitter    chain.Emitter
}

// Deps bundles the injected dependencies used to construct a Factory.
type Deps struct {
	Clock     stakepool.ClockReader
	Gate      stakepool.ReconfigurationGate
	Params    Params
	BondGuard stakepool.BondGuard
	Emitter   chain.Emitter
}

// New constructs an empty Factory.
func New(deps Deps) *Factory {
	if deps.BondGuard == nil {
		deps.BondGuard = stakepool.NoopBondGuard{}
	}
	if deps.Emitter == nil {
		deps.Emitter = chain.NoopEmitter{}
	}
	return &Factory{
		pools:     make(map[chain.Address]*stakepool.StakePool),
		clock:     deps.Clock,
		gate:      deps.Gate,
		params:    deps.Params,
		bondGuard: deps.BondGuard,
		emitter:   deps.Emitter,
	}
}

// SetBondGuard replaces the bond guard consulted by pools created from this
// point forward. Exists to break the construction cycle between the factory
// and validator.Manager, which needs the factory as its PoolView before it
// can itself be wired in as the factory's BondGuard.
func (f *Factory) SetBondGuard(guard stakepool.BondGuard) {
	f.bondGuard = guard
}

// SetGate replaces the reconfiguration gate consulted by pools created from
// this point forward. Exists for the same construction-order reason as
// SetBondGuard: the reconfiguration.Coordinator is built from components
// that themselves need the factory.
func (f *Factory) SetGate(gate stakepool.ReconfigurationGate) {
	f.gate = gate
}

// derivePoolAddress derives a stable address for the nonce-th pool by
// hashing the nonce, the same Keccak256-based address-derivation idiom the
// teacher chain's state transition layer uses for deterministic addressing.
func derivePoolAddress(nonce uint64) chain.Address {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[7-i] = byte(nonce >> (8 * i))
	}
	digest := crypto.Keccak256([]byte("gravity.pool"), buf)
	return chain.BytesToAddress(digest[12:])
}

// CreatePool implements spec §4.D createPool.
func (f *Factory) CreatePool(owner, staker, operator, voter chain.Address, value *big.Int, lockedUntil uint64) (chain.Address, error) {
	if value == nil || value.Cmp(f.params.MinStake()) < 0 {
		return chain.Address{}, chain.ErrInsufficientStakeForPoolCreation
	}
	now := f.clock.NowMicros()
	if lockedUntil < now+f.params.LockupDurationMicros() {
		return chain.Address{}, chain.ErrLockupDurationTooShort
	}

	addr := derivePoolAddress(f.nonce)
	f.nonce++

	pool := stakepool.New(addr, owner, staker, operator, voter, value, lockedUntil, stakepool.Deps{
		Clock:     f.clock,
		Gate:      f.gate,
		Params:    f.params,
		BondGuard: f.bondGuard,
		Emitter:   f.emitter,
	})
	f.pools[addr] = pool
	f.order = append(f.order, addr)

	f.emitter.Emit(chain.Event{Type: "PoolCreated", Attributes: map[string]string{
		"pool":  addr.String(),
		"owner": owner.String(),
		"value": value.String(),
	}})
	return addr, nil
}

// IsPool reports whether addr is a registered pool.
func (f *Factory) IsPool(addr chain.Address) bool {
	_, ok := f.pools[addr]
	return ok
}

// GetPool returns the i-th pool in creation order.
func (f *Factory) GetPool(i int) (*stakepool.StakePool, bool) {
	if i < 0 || i >= len(f.order) {
		return nil, false
	}
	return f.pools[f.order[i]], true
}

// GetPoolByAddress looks up a pool by its address.
func (f *Factory) GetPoolByAddress(addr chain.Address) (*stakepool.StakePool, bool) {
	p, ok := f.pools[addr]
	return p, ok
}

// GetAllPools returns every pool in creation order.
func (f *Factory) GetAllPools() []*stakepool.StakePool {
	out := make([]*stakepool.StakePool, len(f.order))
	for i, addr := range f.order {
		out[i] = f.pools[addr]
	}
	return out
}

// GetPoolCount returns the number of registered pools.
func (f *Factory) GetPoolCount() int { return len(f.order) }

// GetPoolNonce returns the next nonce that will be assigned.
func (f *Factory) GetPoolNonce() uint64 { return f.nonce }

// withPool forwards to the pool at addr, failing InvalidPool if it is not
// registered (spec §4.D).
func (f *Factory) withPool(addr chain.Address) (*stakepool.StakePool, error) {
	p, ok := f.pools[addr]
	if !ok {
		return nil, chain.ErrInvalidPool
	}
	return p, nil
}

// GetActiveStake forwards to pool.GetActiveStake after an IsPool check.
func (f *Factory) GetActiveStake(addr chain.Address) (*big.Int, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return nil, err
	}
	return p.GetActiveStake(), nil
}

// GetVotingPowerNow forwards to pool.GetVotingPowerNow after an IsPool check.
func (f *Factory) GetVotingPowerNow(addr chain.Address) (*big.Int, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return nil, err
	}
	return p.GetVotingPowerNow(), nil
}

// GetVotingPower forwards to pool.GetVotingPower(t) after an IsPool check.
func (f *Factory) GetVotingPower(addr chain.Address, t uint64) (*big.Int, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return nil, err
	}
	return p.GetVotingPower(t), nil
}

// OperatorOf forwards to pool.Operator after an IsPool check.
func (f *Factory) OperatorOf(addr chain.Address) (chain.Address, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return chain.Address{}, err
	}
	return p.Operator(), nil
}

// OwnerOf forwards to pool.Owner after an IsPool check.
func (f *Factory) OwnerOf(addr chain.Address) (chain.Address, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return chain.Address{}, err
	}
	return p.Owner(), nil
}

// VoterOf forwards to pool.Voter after an IsPool check.
func (f *Factory) VoterOf(addr chain.Address) (chain.Address, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return chain.Address{}, err
	}
	return p.Voter(), nil
}

// LockedUntilOf forwards to pool.GetLockedUntil after an IsPool check.
func (f *Factory) LockedUntilOf(addr chain.Address) (uint64, error) {
	p, err := f.withPool(addr)
	if err != nil {
		return 0, err
	}
	return p.GetLockedUntil(), nil
}

// TotalActiveStake sums GetActiveStake over every registered pool, an
// aggregate view the spec's §4.D "aggregate queries" alludes to.
func (f *Factory) TotalActiveStake() *big.Int {
	total := big.NewInt(0)
	for _, addr := range f.order {
		total.Add(total, f.pools[addr].GetActiveStake())
	}
	return total
}
