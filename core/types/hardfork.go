// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"
	"strings"
)

// SpecID selects a discrete protocol version: EVM semantics, gas tables,
// required header fields, and the active precompile set all key off it.
type SpecID uint8

const (
	Frontier SpecID = iota
	FrontierThawing
	Homestead
	DAOFork
	Tangerine
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	MuirGlacier
	Berlin
	London
	ArrowGlacier
	GrayGlacier
	Merge
	Shanghai
	Cancun

	LatestSpec = Cancun
)

var specNames = map[SpecID]string{
	Frontier:        "frontier",
	FrontierThawing: "frontierThawing",
	Homestead:       "homestead",
	DAOFork:         "dao",
	Tangerine:       "tangerineWhistle",
	SpuriousDragon:  "spuriousDragon",
	Byzantium:       "byzantium",
	Constantinople:  "constantinople",
	Petersburg:      "petersburg",
	Istanbul:        "istanbul",
	MuirGlacier:     "muirGlacier",
	Berlin:          "berlin",
	London:          "london",
	ArrowGlacier:    "arrowGlacier",
	GrayGlacier:     "grayGlacier",
	Merge:           "merge",
	Shanghai:        "shanghai",
	Cancun:          "cancun",
}

func (s SpecID) String() string {
	if name, ok := specNames[s]; ok {
		return name
	}
	return fmt.Sprintf("spec(%d)", uint8(s))
}

// ParseSpecID resolves a case-insensitive hardfork name.
func ParseSpecID(name string) (SpecID, error) {
	for id, n := range specNames {
		if strings.EqualFold(n, name) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown hardfork %q", name)
}

// AtLeast reports whether the spec activates all rules of other.
func (s SpecID) AtLeast(other SpecID) bool { return s >= other }

// IsPostMerge reports whether proof-of-work fields (difficulty, nonce) are
// retired in favor of prevrandao.
func (s SpecID) IsPostMerge() bool { return s >= Merge }

// HasBaseFee reports whether headers carry an EIP-1559 base fee.
func (s SpecID) HasBaseFee() bool { return s >= London }

// HasWithdrawals reports whether headers carry an EIP-4895 withdrawals root.
func (s SpecID) HasWithdrawals() bool { return s >= Shanghai }

// HasBlobGas reports whether headers carry the EIP-4844 blob gas fields and
// the EIP-4788 parent beacon block root.
func (s SpecID) HasBlobGas() bool { return s >= Cancun }

// PrecompileCount returns how many precompile addresses (1..n) are active,
// so genesis can touch them into existence as empty accounts.
func (s SpecID) PrecompileCount() uint64 {
	switch {
	case s >= Cancun:
		return 10 // + point evaluation
	case s >= Istanbul:
		return 9 // + blake2f
	case s >= Byzantium:
		return 8 // + modexp, bn256 add/mul/pairing
	default:
		return 4 // ecrecover, sha256, ripemd160, identity
	}
}
