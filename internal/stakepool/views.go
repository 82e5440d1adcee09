package stakepool

import (
	"math/big"
	"sort"
)

// GetActiveStake returns the pool's active stake.
func (p *StakePool) GetActiveStake() *big.Int { return new(big.Int).Set(p.activeStake) }

// GetTotalPending returns the sum outstanding across all pending buckets,
// i.e. the last bucket's cumulative amount minus what has already been
// claimed.
func (p *StakePool) GetTotalPending() *big.Int {
	pending := new(big.Int).Sub(p.lastCumulative(), p.claimedAmount)
	if pending.Sign() < 0 {
		return big.NewInt(0)
	}
	return pending
}

// GetClaimedAmount returns the monotone claim pointer.
func (p *StakePool) GetClaimedAmount() *big.Int { return new(big.Int).Set(p.claimedAmount) }

// GetClaimableAmount is the read-only counterpart to WithdrawAvailable: the
// amount that would be claimable right now, without mutating state.
func (p *StakePool) GetClaimableAmount() *big.Int {
	return p.claimableAt(p.clock.NowMicros())
}

// GetPendingBucketCount returns the number of pending buckets.
func (p *StakePool) GetPendingBucketCount() int { return len(p.buckets) }

// GetPendingBucket returns the bucket at index i.
func (p *StakePool) GetPendingBucket(i int) (PendingBucket, bool) {
	if i < 0 || i >= len(p.buckets) {
		return PendingBucket{}, false
	}
	b := p.buckets[i]
	return PendingBucket{LockedUntil: b.LockedUntil, CumulativeAmount: new(big.Int).Set(b.CumulativeAmount)}, true
}

// GetLockedUntil returns the pool-level lockup expiry.
func (p *StakePool) GetLockedUntil() uint64 { return p.lockedUntil }

// IsLocked reports whether the pool's lockup has not yet expired, as of the
// injected clock.
func (p *StakePool) IsLocked() bool { return p.lockedUntil > p.clock.NowMicros() }

// GetEffectiveStake returns activeStake plus every pending bucket whose
// LockedUntil is strictly greater than t (spec §4.C). Because LockedUntil is
// strictly increasing across the sequence, the qualifying buckets form a
// contiguous suffix found via binary search.
func (p *StakePool) GetEffectiveStake(t uint64) *big.Int {
	effective := new(big.Int).Set(p.activeStake)
	if len(p.buckets) == 0 {
		return effective
	}
	firstQualifying := sort.Search(len(p.buckets), func(i int) bool {
		return p.buckets[i].LockedUntil > t
	})
	if firstQualifying == len(p.buckets) {
		return effective
	}
	var floor *big.Int
	if firstQualifying == 0 {
		floor = big.NewInt(0)
	} else {
		floor = p.buckets[firstQualifying-1].CumulativeAmount
	}
	pendingQualifying := new(big.Int).Sub(p.lastCumulative(), floor)
	return effective.Add(effective, pendingQualifying)
}

// GetVotingPower returns the effective stake at t if the pool's own lockup
// has not yet expired at t, else zero (spec §4.C, §8 property 4).
func (p *StakePool) GetVotingPower(t uint64) *big.Int {
	if p.lockedUntil <= t {
		return big.NewInt(0)
	}
	return p.GetEffectiveStake(t)
}

// GetVotingPowerNow is GetVotingPower evaluated at the injected clock's
// current reading.
func (p *StakePool) GetVotingPowerNow() *big.Int {
	return p.GetVotingPower(p.clock.NowMicros())
}

// Balance returns the pool's on-chain balance (spec §3 invariant:
// activeStake + (lastBucket.cumulativeAmount - claimedAmount) == balance).
func (p *StakePool) Balance() *big.Int { return new(big.Int).Set(p.balance) }
