// Package validator implements the validator registry layered on stake
// pools (spec §4.E): registration, join/leave queues, consensus-key
// uniqueness, epoch processing, and the cur/next validator-set views
// consumed by consensus.
package validator

import (
	"math/big"

	"gravity/internal/chain"
)

// Status enumerates a validator record's lifecycle state (spec §3).
type Status uint8

const (
	StatusInactive Status = iota
	StatusPendingActive
	StatusActive
	StatusPendingInactive
)

// String renders the status for logging/events.
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "INACTIVE"
	case StatusPendingActive:
		return "PENDING_ACTIVE"
	case StatusActive:
		return "ACTIVE"
	case StatusPendingInactive:
		return "PENDING_INACTIVE"
	default:
		return "UNKNOWN"
	}
}

// MaxValidatorIndex is the sentinel ValidatorIndex for a record that is not
// currently ACTIVE or PENDING_INACTIVE (spec §3).
const MaxValidatorIndex = ^uint64(0)

// PubkeyLength is the required length of a consensus pubkey (spec §4.E).
const PubkeyLength = 48

// Pubkey is a fixed-length consensus public key, used as the uniqueness-set
// key (spec §9).
type Pubkey [PubkeyLength]byte

// Record is a single validator's state (spec §3 "ValidatorRecord"), keyed by
// its backing pool address.
type Record struct {
	Pool chain.Address

	Moniker           string
	ConsensusPubkey   Pubkey
	ConsensusPop      []byte
	NetworkAddresses  []byte
	FullnodeAddresses []byte

	Status Status
	Bond   *big.Int

	FeeRecipient        chain.Address
	PendingFeeRecipient chain.Address

	ValidatorIndex uint64
}

// ConsensusInfo is the read-only view of a validator consumed by consensus
// and DKG-facing callers (spec §4.E cur/next validator infos).
type ConsensusInfo struct {
	Pool            chain.Address
	ConsensusPubkey Pubkey
	Bond            *big.Int
	Index           uint64
}

// SetState is the shared per-epoch validator-set bookkeeping (spec §3
// "ValidatorSetState").
type SetState struct {
	ActiveValidators []chain.Address
	PendingActive    []chain.Address
	PendingInactive  []chain.Address

	TotalVotingPower           *big.Int
	TotalJoiningPowerThisEpoch *big.Int

	CurrentEpoch            uint64
	LastReconfigurationTime uint64
}
