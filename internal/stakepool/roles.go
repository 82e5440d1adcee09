package stakepool

import "gravity/internal/chain"

// SetOperator reassigns the operator role. Owner-only (spec §4.C).
func (p *StakePool) SetOperator(caller, newOperator chain.Address) error {
	if caller != p.owner {
		return chain.ErrNotOwner
	}
	p.operator = newOperator
	p.emit("OperatorChanged", map[string]string{"pool": p.addr.String(), "operator": newOperator.String()})
	return nil
}

// SetVoter reassigns the voter role. Owner-only.
func (p *StakePool) SetVoter(caller, newVoter chain.Address) error {
	if caller != p.owner {
		return chain.ErrNotOwner
	}
	p.voter = newVoter
	p.emit("VoterChanged", map[string]string{"pool": p.addr.String(), "voter": newVoter.String()})
	return nil
}

// SetStaker reassigns the staker role. Owner-only.
func (p *StakePool) SetStaker(caller, newStaker chain.Address) error {
	if caller != p.owner {
		return chain.ErrNotOwner
	}
	p.staker = newStaker
	p.emit("StakerChanged", map[string]string{"pool": p.addr.String(), "staker": newStaker.String()})
	return nil
}

// ProposeOwner begins the two-step ownership transfer (spec §9). Owner-only.
func (p *StakePool) ProposeOwner(caller, newOwner chain.Address) error {
	if caller != p.owner {
		return chain.ErrNotOwner
	}
	p.pendingOwner = newOwner
	return nil
}

// AcceptOwnership completes the two-step ownership transfer. Callable only
// by the currently proposed pending owner.
func (p *StakePool) AcceptOwnership(caller chain.Address) error {
	if p.pendingOwner.IsZero() || caller != p.pendingOwner {
		return chain.ErrNotOwner
	}
	p.owner = p.pendingOwner
	p.pendingOwner = chain.ZeroAddress
	return nil
}

// Owner returns the current owner.
func (p *StakePool) Owner() chain.Address { return p.owner }

// PendingOwner returns the proposed-but-unaccepted owner, or the zero
// address if none is pending.
func (p *StakePool) PendingOwner() chain.Address { return p.pendingOwner }

// Staker returns the current staker role holder.
func (p *StakePool) Staker() chain.Address { return p.staker }

// Operator returns the current operator role holder.
func (p *StakePool) Operator() chain.Address { return p.operator }

// Voter returns the current voter role holder.
func (p *StakePool) Voter() chain.Address { return p.voter }
