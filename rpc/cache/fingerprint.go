// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cache implements the durable cache of remote JSON-RPC
// responses: a stable fingerprint over the whitelist of cacheable method
// invocations, fronted in memory and persisted one content-addressed file
// per key.
package cache

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/rpc"
)

// Argument type tags. Every argument contributes its tag byte followed by
// its bytes, and sequences carry a length prefix, which keeps the
// concatenation prefix-free.
const (
	tagAddress = byte(0x01)
	tagHash    = byte(0x02)
	tagU64     = byte(0x03)
	tagU256    = byte(0x04)
	tagBool    = byte(0x05)
	tagBytes   = byte(0x06)
)

// methodDiscriminants enumerates the cacheable methods. A method's answer
// must be a pure function of a specific block for it to appear here;
// anything absent is never cached.
var methodDiscriminants = map[string]byte{
	"eth_chainId":                             0x01,
	"net_version":                             0x02,
	"eth_getBalance":                          0x03,
	"eth_getCode":                             0x04,
	"eth_getStorageAt":                        0x05,
	"eth_getTransactionCount":                 0x06,
	"eth_getBlockByNumber":                    0x07,
	"eth_getBlockByHash":                      0x08,
	"eth_getBlockTransactionCountByHash":      0x09,
	"eth_getBlockTransactionCountByNumber":    0x0a,
	"eth_getTransactionByHash":                0x0b,
	"eth_getTransactionByBlockHashAndIndex":   0x0c,
	"eth_getTransactionByBlockNumberAndIndex": 0x0d,
	"eth_getTransactionReceipt":               0x0e,
	"eth_getLogs":                             0x0f,
	"eth_getUncleCountByBlockHash":            0x10,
	"eth_getUncleCountByBlockNumber":          0x11,
}

// Arg is one typed argument of a cacheable invocation.
type Arg interface {
	// appendTo writes the tag byte and payload; ok=false poisons the
	// whole invocation (a symbolic block tag, for example).
	appendTo(buf []byte) (out []byte, ok bool)
}

// AddressArg tags a 20-byte address.
type AddressArg types.Address

func (a AddressArg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagAddress)
	return append(buf, a[:]...), true
}

// HashArg tags a 32-byte hash.
type HashArg types.Hash

func (h HashArg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagHash)
	return append(buf, h[:]...), true
}

// U64Arg tags a 64-bit counter, little-endian.
type U64Arg uint64

func (v U64Arg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagU64)
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], uint64(v))
	return append(buf, le[:]...), true
}

// U256Arg tags a 256-bit integer, little-endian over 32 bytes.
type U256Arg struct{ Value *big.Int }

func (v U256Arg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagU256)
	var be [32]byte
	if v.Value != nil {
		v.Value.FillBytes(be[:])
	}
	// Reverse into little-endian.
	for i := 31; i >= 0; i-- {
		buf = append(buf, be[i])
	}
	return buf, true
}

// BoolArg tags a boolean.
type BoolArg bool

func (v BoolArg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagBool)
	if v {
		return append(buf, 1), true
	}
	return append(buf, 0), true
}

// BytesArg tags a length-prefixed byte string.
type BytesArg []byte

func (v BytesArg) appendTo(buf []byte) ([]byte, bool) {
	buf = append(buf, tagBytes)
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], uint64(len(v)))
	buf = append(buf, le[:]...)
	return append(buf, v...), true
}

// BlockSpecArg tags a block specifier. Symbolic tags (latest, pending,
// safe, finalized, earliest) are never hashed: requests carrying them
// bypass the cache entirely.
type BlockSpecArg rpc.BlockSpec

func (s BlockSpecArg) appendTo(buf []byte) ([]byte, bool) {
	spec := rpc.BlockSpec(s)
	switch {
	case spec.Number != nil:
		return U64Arg(*spec.Number).appendTo(buf)
	case spec.Hash != nil:
		buf, _ = HashArg(*spec.Hash).appendTo(buf)
		return BoolArg(spec.RequireCanonical).appendTo(buf)
	default:
		return buf, false
	}
}

// Fingerprint computes the cache key of one invocation: the hex of
// SHA3-256 over the method discriminant byte followed by the tagged
// arguments. ok is false when the method is not cacheable or an argument
// poisons the invocation.
func Fingerprint(method string, args ...Arg) (string, bool) {
	disc, cacheable := methodDiscriminants[method]
	if !cacheable {
		return "", false
	}
	buf := []byte{disc}
	for _, arg := range args {
		var ok bool
		buf, ok = arg.appendTo(buf)
		if !ok {
			return "", false
		}
	}
	return hexDigest(buf), true
}

// FingerprintBatch computes the key of a batch: SHA3-256 over the count
// followed by each request's digest, prefix-free by construction. Every
// request must itself be cacheable.
func FingerprintBatch(keys []string) (string, bool) {
	var buf []byte
	var count [8]byte
	binary.LittleEndian.PutUint64(count[:], uint64(len(keys)))
	buf = append(buf, count[:]...)
	for _, key := range keys {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return "", false
		}
		buf = append(buf, raw...)
	}
	return hexDigest(buf), true
}

func hexDigest(data []byte) string {
	digest := sha3.Sum256(data)
	return hex.EncodeToString(digest[:])
}
