// Package genesis loads the one-time bootstrap record that seeds the
// Gravity config store (spec §4.A, §6 "Genesis → one-time initialize(...)"),
// the same decode-from-TOML shape the teacher chain's config.Load uses for
// node configuration.
package genesis

import (
	"fmt"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"

	"gravity/internal/config"
)

// Document is the on-disk TOML shape of the genesis record. Amounts are
// decimal strings in the TOML file since BurntSushi/toml has no native
// big.Int support.
type Document struct {
	MinBond                     string `toml:"MinBond"`
	MaxBond                     string `toml:"MaxBond"`
	UnbondingDelayMicros        uint64 `toml:"UnbondingDelayMicros"`
	AllowValidatorSetChange     bool   `toml:"AllowValidatorSetChange"`
	VotingPowerIncreaseLimitPct uint64 `toml:"VotingPowerIncreaseLimitPct"`
	MaxValidatorSetSize         uint64 `toml:"MaxValidatorSetSize"`
	MinStake                    string `toml:"MinStake"`
	LockupDurationMicros        uint64 `toml:"LockupDurationMicros"`
	MinProposalStake            string `toml:"MinProposalStake"`
}

// Load decodes a genesis document from path and converts it into a
// config.Record ready for ConfigStore.Initialize.
func Load(path string) (config.Record, error) {
	var doc Document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return config.Record{}, fmt.Errorf("genesis: decode %s: %w", path, err)
	}
	return doc.toRecord()
}

func (d Document) toRecord() (config.Record, error) {
	minBond, err := parseBig(d.MinBond, "MinBond")
	if err != nil {
		return config.Record{}, err
	}
	maxBond, err := parseBig(d.MaxBond, "MaxBond")
	if err != nil {
		return config.Record{}, err
	}
	minStake, err := parseBig(d.MinStake, "MinStake")
	if err != nil {
		return config.Record{}, err
	}
	minProposalStake, err := parseBig(d.MinProposalStake, "MinProposalStake")
	if err != nil {
		return config.Record{}, err
	}

	record := config.Record{
		MinBond:                     minBond,
		MaxBond:                     maxBond,
		UnbondingDelayMicros:        d.UnbondingDelayMicros,
		AllowValidatorSetChange:     d.AllowValidatorSetChange,
		VotingPowerIncreaseLimitPct: d.VotingPowerIncreaseLimitPct,
		MaxValidatorSetSize:         d.MaxValidatorSetSize,
		MinStake:                    minStake,
		LockupDurationMicros:        d.LockupDurationMicros,
		MinProposalStake:            minProposalStake,
	}
	if err := record.Validate(); err != nil {
		return config.Record{}, err
	}
	return record, nil
}

func parseBig(s, field string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("genesis: field %s is not a base-10 integer: %q", field, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("genesis: field %s must not be negative", field)
	}
	return v, nil
}

// WriteDefault writes a starter genesis document to path, for operators
// bootstrapping a new chain (mirrors the teacher chain's config.createDefault
// write-then-reuse pattern).
func WriteDefault(path string) error {
	doc := Document{
		MinBond:                     "1000000000000000000000",
		MaxBond:                     "10000000000000000000000",
		UnbondingDelayMicros:        604_800_000_000,
		AllowValidatorSetChange:     true,
		VotingPowerIncreaseLimitPct: 20,
		MaxValidatorSetSize:         100,
		MinStake:                    "1000000000000000000",
		LockupDurationMicros:        1_209_600_000_000,
		MinProposalStake:            "100000000000000000000",
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("genesis: create %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(doc)
}
