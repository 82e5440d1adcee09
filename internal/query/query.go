// Package query assembles the read-only views served by cmd/gravitynode's
// HTTP surface (spec §6: consensus reads cur/next validator infos; off-chain
// indexers read events/proposals). It holds no state of its own; it forwards
// to the components that do and shapes JSON-friendly responses.
package query

import (
	"math/big"

	"gravity/internal/chain"
	"gravity/internal/validator"
	"gravity/internal/voting"
)

// PoolView is the read surface exposed by a stake pool.
type PoolView struct {
	Address           string `json:"address"`
	Owner             string `json:"owner"`
	Operator          string `json:"operator"`
	Voter             string `json:"voter"`
	Staker            string `json:"staker"`
	ActiveStake       string `json:"activeStake"`
	TotalPending      string `json:"totalPending"`
	ClaimedAmount     string `json:"claimedAmount"`
	ClaimableAmount   string `json:"claimableAmount"`
	LockedUntil       uint64 `json:"lockedUntil"`
	VotingPowerNow    string `json:"votingPowerNow"`
}

// StakePoolReader is the narrow stakepool.StakePool view this package needs.
type StakePoolReader interface {
	Owner() chain.Address
	Operator() chain.Address
	Voter() chain.Address
	Staker() chain.Address
	GetActiveStake() *big.Int
	GetTotalPending() *big.Int
	GetClaimedAmount() *big.Int
	GetClaimableAmount() *big.Int
	GetLockedUntil() uint64
	GetVotingPowerNow() *big.Int
}

// BuildPoolView renders a single pool's read-only view.
func BuildPoolView(addr chain.Address, pool StakePoolReader) PoolView {
	return PoolView{
		Address:         addr.String(),
		Owner:           pool.Owner().String(),
		Operator:        pool.Operator().String(),
		Voter:           pool.Voter().String(),
		Staker:          pool.Staker().String(),
		ActiveStake:     pool.GetActiveStake().String(),
		TotalPending:    pool.GetTotalPending().String(),
		ClaimedAmount:   pool.GetClaimedAmount().String(),
		ClaimableAmount: pool.GetClaimableAmount().String(),
		LockedUntil:     pool.GetLockedUntil(),
		VotingPowerNow:  pool.GetVotingPowerNow().String(),
	}
}

// ConsensusInfoView is the JSON-friendly rendering of a validator.ConsensusInfo.
type ConsensusInfoView struct {
	Pool            string `json:"pool"`
	ConsensusPubkey string `json:"consensusPubkey"`
	Bond            string `json:"bond"`
	Index           uint64 `json:"index"`
}

// BuildConsensusInfoViews renders a slice of validator.ConsensusInfo.
func BuildConsensusInfoViews(infos []validator.ConsensusInfo) []ConsensusInfoView {
	out := make([]ConsensusInfoView, len(infos))
	for i, info := range infos {
		out[i] = ConsensusInfoView{
			Pool:            info.Pool.String(),
			ConsensusPubkey: hexPubkey(info.ConsensusPubkey),
			Bond:            info.Bond.String(),
			Index:           info.Index,
		}
	}
	return out
}

func hexPubkey(pk validator.Pubkey) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 2*len(pk))
	for i, b := range pk {
		out[2*i] = hexDigits[b>>4]
		out[2*i+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// ProposalView is the JSON-friendly rendering of a voting.Proposal.
type ProposalView struct {
	ID             uint64 `json:"id"`
	Proposer       string `json:"proposer"`
	MetadataURI    string `json:"metadataUri"`
	ExpirationTime uint64 `json:"expirationTime"`
	YesVotes       string `json:"yesVotes"`
	NoVotes        string `json:"noVotes"`
	IsResolved     bool   `json:"isResolved"`
	State          string `json:"state"`
}

// ProposalStateReader is the narrow voting.Engine view this package needs.
type ProposalStateReader interface {
	Proposal(id uint64) (voting.Proposal, bool)
	GetProposalState(id uint64) (voting.State, error)
}

// BuildProposalView renders a single proposal's read-only view.
func BuildProposalView(engine ProposalStateReader, id uint64) (ProposalView, bool) {
	p, ok := engine.Proposal(id)
	if !ok {
		return ProposalView{}, false
	}
	state, err := engine.GetProposalState(id)
	if err != nil {
		return ProposalView{}, false
	}
	return ProposalView{
		ID:             p.ID,
		Proposer:       p.Proposer.String(),
		MetadataURI:    p.MetadataURI,
		ExpirationTime: p.ExpirationTime,
		YesVotes:       p.YesVotes.String(),
		NoVotes:        p.NoVotes.String(),
		IsResolved:     p.IsResolved,
		State:          state.String(),
	}, true
}
