package governance

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"gravity/internal/chain"
	"gravity/internal/voting"
)

func ether(n int64) *big.Int {
	e := big.NewInt(1_000_000_000_000_000_000)
	return e.Mul(e, big.NewInt(n))
}

type fakePool struct {
	voter       chain.Address
	lockedUntil uint64
	votingPower *big.Int
}

type fakePools struct {
	pools map[chain.Address]*fakePool
}

func newFakePools() *fakePools { return &fakePools{pools: make(map[chain.Address]*fakePool)} }

func (p *fakePools) VoterOf(pool chain.Address) (chain.Address, error) {
	return p.pools[pool].voter, nil
}

func (p *fakePools) LockedUntilOf(pool chain.Address) (uint64, error) {
	return p.pools[pool].lockedUntil, nil
}

func (p *fakePools) GetVotingPowerNow(pool chain.Address) (*big.Int, error) {
	return p.pools[pool].votingPower, nil
}

type fakeParams struct{ minProposalStake *big.Int }

func (f fakeParams) MinProposalStake() *big.Int { return f.minProposalStake }

// TestScenario5VoteRequiresSufficientLockup follows spec §8 Scenario 5.
func TestScenario5VoteRequiresSufficientLockup(t *testing.T) {
	clock := chain.NewClock(0)
	engine := voting.New(voting.Deps{Clock: clock})
	pools := newFakePools()
	params := fakeParams{minProposalStake: ether(1)}
	binding := New(Deps{Clock: clock, Pools: pools, Voting: engine, Params: params})

	proposer := chain.BytesToAddress([]byte("proposer"))
	proposerPool := chain.BytesToAddress([]byte("proposer-pool"))
	pools.pools[proposerPool] = &fakePool{voter: proposer, lockedUntil: 10 * 24 * 3600 * 1_000_000, votingPower: ether(10)}

	const votingDuration = 7 * 24 * 3600 * 1_000_000
	id, err := binding.CreateProposal(proposer, proposerPool, [32]byte{}, "", ether(1), votingDuration)
	require.NoError(t, err)

	voter := chain.BytesToAddress([]byte("voter"))
	voterPool := chain.BytesToAddress([]byte("voter-pool"))
	pools.pools[voterPool] = &fakePool{voter: voter, lockedUntil: 5 * 24 * 3600 * 1_000_000, votingPower: ether(5)}

	err = binding.Vote(voter, voterPool, id, true)
	require.ErrorIs(t, err, chain.ErrInsufficientLockup)

	pools.pools[voterPool].lockedUntil += 10 * 24 * 3600 * 1_000_000
	require.NoError(t, binding.Vote(voter, voterPool, id, true))
}

// TestPartialVotingCreditsOnlyIncrementalPower follows spec §8 Scenario 6 /
// invariant 11: a second vote from the same voter credits only the growth
// in their pool's voting power since the last vote.
func TestPartialVotingCreditsOnlyIncrementalPower(t *testing.T) {
	clock := chain.NewClock(0)
	engine := voting.New(voting.Deps{Clock: clock})
	pools := newFakePools()
	params := fakeParams{minProposalStake: ether(1)}
	binding := New(Deps{Clock: clock, Pools: pools, Voting: engine, Params: params})

	proposer := chain.BytesToAddress([]byte("proposer"))
	proposerPool := chain.BytesToAddress([]byte("proposer-pool"))
	pools.pools[proposerPool] = &fakePool{voter: proposer, lockedUntil: 1_000_000_000_000, votingPower: ether(10)}
	id, err := binding.CreateProposal(proposer, proposerPool, [32]byte{}, "", ether(100), 604_800_000_000)
	require.NoError(t, err)

	voter := chain.BytesToAddress([]byte("voter"))
	voterPool := chain.BytesToAddress([]byte("voter-pool"))
	pools.pools[voterPool] = &fakePool{voter: voter, lockedUntil: 1_000_000_000_000, votingPower: ether(100)}

	require.NoError(t, binding.Vote(voter, voterPool, id, true))
	p, _ := engine.Proposal(id)
	require.Zero(t, p.YesVotes.Cmp(ether(100)))

	pools.pools[voterPool].votingPower = ether(150)
	require.NoError(t, binding.Vote(voter, voterPool, id, true))
	p, _ = engine.Proposal(id)
	require.Zero(t, p.YesVotes.Cmp(ether(150)), "second vote must credit only the incremental 50e18")
}

func TestCreateProposalRejectsBelowMinProposalStake(t *testing.T) {
	clock := chain.NewClock(0)
	engine := voting.New(voting.Deps{Clock: clock})
	pools := newFakePools()
	params := fakeParams{minProposalStake: ether(10)}
	binding := New(Deps{Clock: clock, Pools: pools, Voting: engine, Params: params})

	proposer := chain.BytesToAddress([]byte("proposer"))
	pool := chain.BytesToAddress([]byte("pool"))
	pools.pools[pool] = &fakePool{voter: proposer, lockedUntil: 1_000_000_000_000, votingPower: ether(1)}

	_, err := binding.CreateProposal(proposer, pool, [32]byte{}, "", ether(1), 1000)
	require.ErrorIs(t, err, chain.ErrInsufficientStake)
}

func TestVoteRequiresVoterRole(t *testing.T) {
	clock := chain.NewClock(0)
	engine := voting.New(voting.Deps{Clock: clock})
	pools := newFakePools()
	params := fakeParams{minProposalStake: ether(1)}
	binding := New(Deps{Clock: clock, Pools: pools, Voting: engine, Params: params})

	proposer := chain.BytesToAddress([]byte("proposer"))
	pool := chain.BytesToAddress([]byte("pool"))
	pools.pools[pool] = &fakePool{voter: proposer, lockedUntil: 1_000_000_000_000, votingPower: ether(10)}
	id, err := binding.CreateProposal(proposer, pool, [32]byte{}, "", ether(1), 1000)
	require.NoError(t, err)

	impostor := chain.BytesToAddress([]byte("impostor"))
	err = binding.Vote(impostor, pool, id, true)
	require.ErrorIs(t, err, chain.ErrNotVoter)
}
