// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	gethcrypto "github.com/luxfi/geth/crypto"
)

// keccak256 delegates to the external geth crypto library. The wrapper
// keeps the rest of the package from importing gethcrypto directly in a
// dozen places.
func keccak256(data ...[]byte) []byte {
	return gethcrypto.Keccak256(data...)
}

// Keccak256Hash is the exported form used by sibling packages (trie,
// mempool, blockchain) that need a content hash and don't otherwise import
// the geth crypto package.
func Keccak256Hash(data ...[]byte) Hash {
	return gethcrypto.Keccak256Hash(data...)
}
