package validator

import (
	"math/big"

	"gravity/internal/chain"
)

// GetCurValidatorConsensusInfos returns the validator set consensus relies
// on for the current epoch (spec §4.E): every ACTIVE and PENDING_INACTIVE
// validator, since a PENDING_INACTIVE validator still participates in
// consensus until the epoch boundary that removes it.
func (m *Manager) GetCurValidatorConsensusInfos() []ConsensusInfo {
	out := make([]ConsensusInfo, 0, len(m.state.ActiveValidators))
	for _, pool := range m.state.ActiveValidators {
		rec := m.records[pool]
		out = append(out, ConsensusInfo{
			Pool:            pool,
			ConsensusPubkey: rec.ConsensusPubkey,
			Bond:            new(big.Int).Set(rec.Bond),
			Index:           rec.ValidatorIndex,
		})
	}
	return out
}

// GetNextValidatorConsensusInfos performs a pure dry run of the epoch
// transition (spec §4.E): the set OnNewEpoch would produce if invoked now,
// without mutating manager state. PENDING_INACTIVE validators are excluded
// and PENDING_ACTIVE candidates are re-verified against MinBond and admitted
// under the same throttle, assigned fresh contiguous indices in enqueue
// order.
func (m *Manager) GetNextValidatorConsensusInfos() []ConsensusInfo {
	leaving := make(map[chain.Address]bool, len(m.state.PendingInactive))
	for _, pool := range m.state.PendingInactive {
		leaving[pool] = true
	}

	retained := make([]chain.Address, 0, len(m.state.ActiveValidators))
	for _, pool := range m.state.ActiveValidators {
		if !leaving[pool] {
			retained = append(retained, pool)
		}
	}

	priorTotal := m.state.TotalVotingPower
	unlimited := priorTotal.Sign() == 0
	var budget *big.Int
	if !unlimited {
		budget = new(big.Int).Mul(priorTotal, new(big.Int).SetUint64(m.params.VotingPowerIncreaseLimitPct()))
		budget.Div(budget, big.NewInt(100))
	}

	spent := big.NewInt(0)
	bonds := make(map[chain.Address]*big.Int, len(retained))
	for _, pool := range retained {
		rec := m.records[pool]
		oldBond := rec.Bond
		newBond := m.currentBond(pool)
		bonds[pool] = newBond
		if newBond.Cmp(oldBond) > 0 {
			spent.Add(spent, new(big.Int).Sub(newBond, oldBond))
		}
	}

	admitted := retained
	for _, pool := range m.state.PendingActive {
		bond := m.currentBond(pool)
		if bond.Cmp(m.params.MinBond()) < 0 {
			continue
		}
		if !unlimited {
			projected := new(big.Int).Add(spent, bond)
			if projected.Cmp(budget) > 0 {
				continue
			}
			spent = projected
		}
		bonds[pool] = bond
		admitted = append(admitted, pool)
	}

	out := make([]ConsensusInfo, len(admitted))
	for i, pool := range admitted {
		rec := m.records[pool]
		out[i] = ConsensusInfo{
			Pool:            pool,
			ConsensusPubkey: rec.ConsensusPubkey,
			Bond:            new(big.Int).Set(bonds[pool]),
			Index:           uint64(i),
		}
	}
	return out
}

// CurrentEpoch returns the most recently completed epoch number.
func (m *Manager) CurrentEpoch() uint64 { return m.state.CurrentEpoch }

// TotalVotingPower returns the active set's aggregate voting power.
func (m *Manager) TotalVotingPower() *big.Int {
	return new(big.Int).Set(m.state.TotalVotingPower)
}

// ActiveValidatorCount returns the size of the active set, which includes
// PENDING_INACTIVE validators until the next epoch boundary.
func (m *Manager) ActiveValidatorCount() int { return len(m.state.ActiveValidators) }

// PendingActiveCount returns the number of validators queued to join.
func (m *Manager) PendingActiveCount() int { return len(m.state.PendingActive) }

// PendingInactiveCount returns the number of validators queued to leave.
func (m *Manager) PendingInactiveCount() int { return len(m.state.PendingInactive) }
