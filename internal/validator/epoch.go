package validator

import (
	"math/big"

	"gravity/internal/chain"
)

// OnNewEpoch applies a reconfiguration's validator-set transition (spec
// §4.E): deactivating PENDING_INACTIVE validators, admitting PENDING_ACTIVE
// candidates under the voting-power-increase throttle, reassigning
// contiguous indices, applying staged fee-recipient changes, and
// recomputing the aggregate totals. Callers must already hold the
// reconfiguration lock (spec §4.F).
func (m *Manager) OnNewEpoch() {
	priorTotal := new(big.Int).Set(m.state.TotalVotingPower)

	m.deactivatePendingInactive()
	m.admitPendingActive(priorTotal)
	m.reassignIndicesAndRefreshBond()
	m.applyStagedFeeRecipients()
	m.recomputeTotals()

	m.state.CurrentEpoch++
	m.state.TotalJoiningPowerThisEpoch = big.NewInt(0)
	m.state.LastReconfigurationTime = m.clock.NowMicros()

	m.emit("EpochProcessed", map[string]string{"epoch": itoa(m.state.CurrentEpoch)})
}

// deactivatePendingInactive moves every PENDING_INACTIVE validator to
// INACTIVE, resets its index to MaxValidatorIndex, releases its consensus
// pubkey, and drops it from the active set. Its Bond field is left as is.
func (m *Manager) deactivatePendingInactive() {
	if len(m.state.PendingInactive) == 0 {
		return
	}
	leaving := make(map[chain.Address]bool, len(m.state.PendingInactive))
	for _, pool := range m.state.PendingInactive {
		leaving[pool] = true
		rec := m.records[pool]
		rec.Status = StatusInactive
		rec.ValidatorIndex = MaxValidatorIndex
		delete(m.pubkeys, rec.ConsensusPubkey)
	}
	kept := m.state.ActiveValidators[:0:0]
	for _, pool := range m.state.ActiveValidators {
		if !leaving[pool] {
			kept = append(kept, pool)
		}
	}
	m.state.ActiveValidators = kept
	m.state.PendingInactive = nil
}

// admitPendingActive admits queued PENDING_ACTIVE candidates into the active
// set under the per-epoch voting-power-increase throttle (spec §4.E, §8
// Scenario 3): the budget is a fraction of the prior epoch's total voting
// power, existing active validators whose bond grew consume the budget
// first, and remaining candidates are admitted in enqueue order while they
// still fit.
func (m *Manager) admitPendingActive(priorTotal *big.Int) {
	var budget *big.Int
	unlimited := priorTotal.Sign() == 0
	if !unlimited {
		budget = new(big.Int).Mul(priorTotal, new(big.Int).SetUint64(m.params.VotingPowerIncreaseLimitPct()))
		budget.Div(budget, big.NewInt(100))
	}

	spent := big.NewInt(0)
	for _, pool := range m.state.ActiveValidators {
		rec := m.records[pool]
		oldBond := rec.Bond
		newBond := m.currentBond(pool)
		if newBond.Cmp(oldBond) > 0 {
			spent.Add(spent, new(big.Int).Sub(newBond, oldBond))
		}
		rec.Bond = newBond
	}

	pending := m.state.PendingActive
	m.state.PendingActive = nil
	for _, pool := range pending {
		rec := m.records[pool]
		bond := m.currentBond(pool)
		if bond.Cmp(m.params.MinBond()) < 0 {
			m.state.PendingActive = append(m.state.PendingActive, pool)
			continue
		}
		if !unlimited {
			projected := new(big.Int).Add(spent, bond)
			if projected.Cmp(budget) > 0 {
				m.state.PendingActive = append(m.state.PendingActive, pool)
				continue
			}
			spent = projected
		}
		rec.Status = StatusActive
		rec.Bond = bond
		m.state.ActiveValidators = append(m.state.ActiveValidators, pool)
	}
}

func (m *Manager) currentBond(pool chain.Address) *big.Int {
	stake, err := m.pools.GetActiveStake(pool)
	if err != nil {
		return big.NewInt(0)
	}
	return capBond(stake, m.params.MaxBond())
}

// reassignIndicesAndRefreshBond reassigns contiguous 0..N-1 indices over the
// active set in its current order (spec §4.E validator-index contiguity
// invariant) and refreshes each active validator's bond from its pool.
func (m *Manager) reassignIndicesAndRefreshBond() {
	for i, pool := range m.state.ActiveValidators {
		rec := m.records[pool]
		rec.ValidatorIndex = uint64(i)
		rec.Bond = m.currentBond(pool)
	}
}

// applyStagedFeeRecipients promotes any PendingFeeRecipient staged via
// SetFeeRecipient into FeeRecipient (spec §4.E setFeeRecipient takes effect
// at the next epoch boundary).
func (m *Manager) applyStagedFeeRecipients() {
	for _, rec := range m.records {
		if !rec.PendingFeeRecipient.IsZero() {
			rec.FeeRecipient = rec.PendingFeeRecipient
			rec.PendingFeeRecipient = chain.Address{}
		}
	}
}

// recomputeTotals recomputes TotalVotingPower as the sum of active
// validators' bonds (spec §3 SetState invariant: total = sum of active
// validator bonds).
func (m *Manager) recomputeTotals() {
	total := big.NewInt(0)
	for _, pool := range m.state.ActiveValidators {
		total.Add(total, m.records[pool].Bond)
	}
	m.state.TotalVotingPower = total
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
