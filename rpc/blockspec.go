// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc defines the wire-level types shared by the provider surface
// and the remote client: block specifiers, hex quantities, and their
// parsing rules.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/devchain-labs/devchain/core/types"
)

// BlockTag is one of the symbolic block specifiers. Tagged requests are
// resolved against live chain state and therefore never participate in
// the durable response cache.
type BlockTag string

const (
	TagEarliest  BlockTag = "earliest"
	TagLatest    BlockTag = "latest"
	TagPending   BlockTag = "pending"
	TagSafe      BlockTag = "safe"
	TagFinalized BlockTag = "finalized"
)

var (
	// ErrInvalidBlockSpec rejects malformed specifiers, including mixed
	// EIP-1898 objects.
	ErrInvalidBlockSpec = errors.New("invalid block specifier")

	// ErrBlockNumberTooLarge rejects quantities that do not fit in 64
	// bits.
	ErrBlockNumberTooLarge = errors.New("block number does not fit in 64 bits")
)

// BlockSpec is a parsed block specifier: a concrete number, a hash with an
// optional canonical-chain requirement, or a symbolic tag. Exactly one of
// the three forms is set.
type BlockSpec struct {
	Number *uint64
	Hash   *types.Hash
	// RequireCanonical only accompanies Hash.
	RequireCanonical bool
	Tag              BlockTag
}

// NumberSpec returns a concrete-number spec.
func NumberSpec(n uint64) BlockSpec { return BlockSpec{Number: &n} }

// HashSpec returns a hash spec.
func HashSpec(h types.Hash, requireCanonical bool) BlockSpec {
	return BlockSpec{Hash: &h, RequireCanonical: requireCanonical}
}

// TagSpec returns a symbolic spec.
func TagSpec(tag BlockTag) BlockSpec { return BlockSpec{Tag: tag} }

// IsConcrete reports whether the spec names a specific block (number or
// hash) rather than a tag.
func (s BlockSpec) IsConcrete() bool { return s.Number != nil || s.Hash != nil }

// eip1898 is the object form of a block specifier.
type eip1898 struct {
	BlockNumber      *string `json:"blockNumber"`
	BlockHash        *string `json:"blockHash"`
	RequireCanonical *bool   `json:"requireCanonical"`
}

// UnmarshalJSON accepts a hex quantity, a tag, or an EIP-1898 object.
// The object's hash and number variants are mutually exclusive, and
// requireCanonical may only accompany the hash form.
func (s *BlockSpec) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return s.parseString(str)
	}
	var obj eip1898
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidBlockSpec, data)
	}
	switch {
	case obj.BlockHash != nil && obj.BlockNumber != nil:
		return fmt.Errorf("%w: blockHash and blockNumber are mutually exclusive", ErrInvalidBlockSpec)
	case obj.BlockHash != nil:
		hash := types.HexToHash(*obj.BlockHash)
		s.Hash = &hash
		if obj.RequireCanonical != nil {
			s.RequireCanonical = *obj.RequireCanonical
		}
		return nil
	case obj.BlockNumber != nil:
		if obj.RequireCanonical != nil {
			return fmt.Errorf("%w: requireCanonical only applies to blockHash", ErrInvalidBlockSpec)
		}
		return s.parseString(*obj.BlockNumber)
	default:
		return fmt.Errorf("%w: empty object", ErrInvalidBlockSpec)
	}
}

func (s *BlockSpec) parseString(str string) error {
	switch BlockTag(str) {
	case TagEarliest, TagLatest, TagPending, TagSafe, TagFinalized:
		s.Tag = BlockTag(str)
		return nil
	}
	n, err := ParseQuantity(str)
	if err != nil {
		return err
	}
	s.Number = &n
	return nil
}

// MarshalJSON emits a hex quantity or tag string, or the EIP-1898 object
// form for a hash spec.
func (s BlockSpec) MarshalJSON() ([]byte, error) {
	switch {
	case s.Number != nil:
		return json.Marshal(EncodeQuantity(*s.Number))
	case s.Hash != nil:
		return json.Marshal(map[string]interface{}{
			"blockHash":        s.Hash.Hex(),
			"requireCanonical": s.RequireCanonical,
		})
	case s.Tag != "":
		return json.Marshal(string(s.Tag))
	}
	return nil, ErrInvalidBlockSpec
}

// ParseQuantity parses an 0x-prefixed hex quantity into a uint64.
func ParseQuantity(str string) (uint64, error) {
	if !strings.HasPrefix(str, "0x") {
		return 0, fmt.Errorf("%w: %q lacks 0x prefix", ErrInvalidBlockSpec, str)
	}
	value, ok := new(big.Int).SetString(str[2:], 16)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBlockSpec, str)
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("%w: %q", ErrBlockNumberTooLarge, str)
	}
	return value.Uint64(), nil
}

// EncodeQuantity renders a uint64 in the canonical hex-quantity form: no
// leading zeros, except the bare zero itself.
func EncodeQuantity(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}

// EncodeBigQuantity renders a big integer as a hex quantity.
func EncodeBigQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return fmt.Sprintf("0x%x", v)
}
