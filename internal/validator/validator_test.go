package validator

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gravity/internal/chain"
)

type fakeParams struct {
	minBond, maxBond *big.Int
	pct              uint64
	maxSetSize       uint64
	allowChange      bool
}

func (f fakeParams) MinBond() *big.Int { return f.minBond }
func (f fakeParams) MaxBond() *big.Int { return f.maxBond }
func (f fakeParams) AllowValidatorSetChange() bool { return f.allowChange }
func (f fakeParams) VotingPowerIncreaseLimitPct() uint64 { return f.pct }
func (f fakeParams) MaxValidatorSetSize() uint64 { return f.maxSetSize }

type fakeGate struct{ inProgress bool }

func (f *fakeGate) IsTransitionInProgress() bool { return f.inProgress }

type fakePools struct {
	stake    map[chain.Address]*big.Int
	operator map[chain.Address]chain.Address
	owner    map[chain.Address]chain.Address
}

func newFakePools() *fakePools {
	return &fakePools{
		stake:    make(map[chain.Address]*big.Int),
		operator: make(map[chain.Address]chain.Address),
		owner:    make(map[chain.Address]chain.Address),
	}
}

func (p *fakePools) register(pool, owner, operator chain.Address, stake *big.Int) {
	p.stake[pool] = stake
	p.owner[pool] = owner
	p.operator[pool] = operator
}

func (p *fakePools) IsPool(addr chain.Address) bool { _, ok := p.stake[addr]; return ok }

func (p *fakePools) GetActiveStake(addr chain.Address) (*big.Int, error) {
	s, ok := p.stake[addr]
	if !ok {
		return nil, chain.ErrInvalidPool
	}
	return s, nil
}

func (p *fakePools) OperatorOf(addr chain.Address) (chain.Address, error) {
	o, ok := p.operator[addr]
	if !ok {
		return chain.Address{}, chain.ErrInvalidPool
	}
	return o, nil
}

func (p *fakePools) OwnerOf(addr chain.Address) (chain.Address, error) {
	o, ok := p.owner[addr]
	if !ok {
		return chain.Address{}, chain.ErrInvalidPool
	}
	return o, nil
}

func ether(n int64) *big.Int {
	e := big.NewInt(1_000_000_000_000_000_000)
	return e.Mul(e, big.NewInt(n))
}

func pubkeyFor(seed byte) Pubkey {
	var pk Pubkey
	pk[0] = seed
	return pk
}

func newTestManager(clock *chain.Clock, pools *fakePools, params Params) *Manager {
	return New(Deps{Clock: clock, Gate: &fakeGate{}, Params: params, Pools: pools})
}

// TestScenario3VotingPowerIncreaseThrottle follows spec §8 Scenario 3: the
// first epoch admits unconditionally (no prior voting power to throttle
// against); a later epoch's budget defers a large joiner while a smaller
// one still fits.
func TestScenario3VotingPowerIncreaseThrottle(t *testing.T) {
	clock := chain.NewClock(0)
	pools := newFakePools()
	params := fakeParams{minBond: ether(1), maxBond: ether(1000), pct: 20, maxSetSize: 100, allowChange: true}
	mgr := newTestManager(clock, pools, params)

	alice := chain.BytesToAddress([]byte("alice-pool"))
	owner := chain.BytesToAddress([]byte("owner"))
	pools.register(alice, owner, owner, ether(100))
	require.NoError(t, mgr.RegisterValidator(owner, alice, "alice", pubkeyFor(1), []byte("pop"), nil, nil))
	require.NoError(t, mgr.JoinValidatorSet(owner, alice))

	mgr.OnNewEpoch()
	require.Equal(t, 1, mgr.ActiveValidatorCount())
	require.Zero(t, mgr.TotalVotingPower().Cmp(ether(100)))

	bob := chain.BytesToAddress([]byte("bob-pool"))
	pools.register(bob, owner, owner, ether(30))
	require.NoError(t, mgr.RegisterValidator(owner, bob, "bob", pubkeyFor(2), []byte("pop"), nil, nil))
	require.NoError(t, mgr.JoinValidatorSet(owner, bob))

	carol := chain.BytesToAddress([]byte("carol-pool"))
	pools.register(carol, owner, owner, ether(10))
	require.NoError(t, mgr.RegisterValidator(owner, carol, "carol", pubkeyFor(3), []byte("pop"), nil, nil))
	require.NoError(t, mgr.JoinValidatorSet(owner, carol))

	next := mgr.GetNextValidatorConsensusInfos()
	require.Len(t, next, 2, "budget of 20e18 admits carol but not bob's 30e18")

	mgr.OnNewEpoch()
	require.Equal(t, 2, mgr.ActiveValidatorCount())
	require.Equal(t, 1, mgr.PendingActiveCount())

	bobRec, ok := mgr.Record(bob)
	require.True(t, ok)
	require.Equal(t, StatusPendingActive, bobRec.Status)

	carolRec, ok := mgr.Record(carol)
	require.True(t, ok)
	require.Equal(t, StatusActive, carolRec.Status)
}

// TestScenario4ForceLeaveLastValidator follows spec §8 Scenario 4:
// leaveValidatorSet refuses to remove the last active validator, but
// forceLeaveValidatorSet (governance-only) may.
func TestScenario4ForceLeaveLastValidator(t *testing.T) {
	clock := chain.NewClock(0)
	pools := newFakePools()
	params := fakeParams{minBond: ether(1), maxBond: ether(1000), pct: 100, maxSetSize: 100, allowChange: true}
	mgr := newTestManager(clock, pools, params)

	owner := chain.BytesToAddress([]byte("owner"))
	solo := chain.BytesToAddress([]byte("solo-pool"))
	pools.register(solo, owner, owner, ether(50))
	require.NoError(t, mgr.RegisterValidator(owner, solo, "solo", pubkeyFor(9), []byte("pop"), nil, nil))
	require.NoError(t, mgr.JoinValidatorSet(owner, solo))
	mgr.OnNewEpoch()
	require.Equal(t, 1, mgr.ActiveValidatorCount())

	err := mgr.LeaveValidatorSet(owner, solo)
	require.ErrorIs(t, err, chain.ErrCannotRemoveLastValidator)

	require.NoError(t, mgr.ForceLeaveValidatorSet(chain.SystemAddress(chain.RoleGovernance), solo))
	mgr.OnNewEpoch()
	require.Equal(t, 0, mgr.ActiveValidatorCount())
	rec, ok := mgr.Record(solo)
	require.True(t, ok)
	require.Equal(t, StatusInactive, rec.Status)
}

func TestRegisterValidatorRejectsDuplicatePubkey(t *testing.T) {
	clock := chain.NewClock(0)
	pools := newFakePools()
	params := fakeParams{minBond: ether(1), maxBond: ether(1000), pct: 100, maxSetSize: 100, allowChange: true}
	mgr := newTestManager(clock, pools, params)

	owner := chain.BytesToAddress([]byte("owner"))
	first := chain.BytesToAddress([]byte("first-pool"))
	second := chain.BytesToAddress([]byte("second-pool"))
	pools.register(first, owner, owner, ether(10))
	pools.register(second, owner, owner, ether(10))

	shared := pubkeyFor(7)
	require.NoError(t, mgr.RegisterValidator(owner, first, "first", shared, []byte("pop"), nil, nil))
	require.NoError(t, mgr.JoinValidatorSet(owner, first))
	err := mgr.RegisterValidator(owner, second, "second", shared, []byte("pop"), nil, nil)
	require.ErrorIs(t, err, chain.ErrDuplicateConsensusPubkey)
}

func TestValidatorIndicesAreContiguous(t *testing.T) {
	clock := chain.NewClock(0)
	pools := newFakePools()
	params := fakeParams{minBond: ether(1), maxBond: ether(1000), pct: 100, maxSetSize: 100, allowChange: true}
	mgr := newTestManager(clock, pools, params)

	owner := chain.BytesToAddress([]byte("owner"))
	addrs := []chain.Address{
		chain.BytesToAddress([]byte("pool-a")),
		chain.BytesToAddress([]byte("pool-b")),
		chain.BytesToAddress([]byte("pool-c")),
	}
	for i, addr := range addrs {
		pools.register(addr, owner, owner, ether(5))
		require.NoError(t, mgr.RegisterValidator(owner, addr, "v", pubkeyFor(byte(10+i)), []byte("pop"), nil, nil))
		require.NoError(t, mgr.JoinValidatorSet(owner, addr))
	}
	mgr.OnNewEpoch()

	seen := make(map[uint64]bool)
	for _, addr := range addrs {
		rec, ok := mgr.Record(addr)
		require.True(t, ok)
		require.Equal(t, StatusActive, rec.Status)
		seen[rec.ValidatorIndex] = true
	}
	for i := uint64(0); i < uint64(len(addrs)); i++ {
		require.True(t, seen[i], "index %d must be assigned", i)
	}
	require.Zero(t, mgr.TotalVotingPower().Cmp(ether(15)))
}

func TestRotateConsensusKeyFreesOldPubkey(t *testing.T) {
	clock := chain.NewClock(0)
	pools := newFakePools()
	params := fakeParams{minBond: ether(1), maxBond: ether(1000), pct: 100, maxSetSize: 100, allowChange: true}
	mgr := newTestManager(clock, pools, params)

	owner := chain.BytesToAddress([]byte("owner"))
	pool := chain.BytesToAddress([]byte("rotator-pool"))
	pools.register(pool, owner, owner, ether(10))
	oldKey := pubkeyFor(1)
	require.NoError(t, mgr.RegisterValidator(owner, pool, "r", oldKey, []byte("pop"), nil, nil))

	newKey := pubkeyFor(2)
	require.NoError(t, mgr.RotateConsensusKey(owner, pool, newKey, []byte("pop2")))

	other := chain.BytesToAddress([]byte("other-pool"))
	pools.register(other, owner, owner, ether(10))
	require.NoError(t, mgr.RegisterValidator(owner, other, "o", oldKey, []byte("pop"), nil, nil), "freed pubkey must be reusable")
}
