// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trie implements the Merkle-Patricia trie backing the account
// and storage state.
//
// Nodes are immutable once linked into a trie: every update copies the
// path from the root down to the touched leaf and shares every untouched
// subtree. Cloning a trie is therefore a root-pointer copy, which is what
// makes state snapshots cheap. Node references (the Keccak hash, or the
// raw encoding when shorter than 32 bytes) are computed lazily and cached
// on the node, so batch mutations pay one hash per changed path when the
// root is finally requested.
package trie

import (
	gethcrypto "github.com/luxfi/geth/crypto"
	"github.com/luxfi/geth/rlp"

	"github.com/devchain-labs/devchain/core/types"
)

// EmptyRoot is the root hash of a trie with no entries.
var EmptyRoot = types.EmptyRootHash

type node interface {
	// ref returns the node's reference as it appears inside a parent
	// node: the raw RLP encoding when it is shorter than 32 bytes, the
	// Keccak hash of the encoding otherwise.
	ref() []byte
}

type leafNode struct {
	key    []byte // nibbles, remainder of the path
	value  []byte
	cached []byte
}

type extensionNode struct {
	key    []byte // nibbles, shared prefix
	child  node
	cached []byte
}

type branchNode struct {
	children [16]node
	value    []byte
	cached   []byte
}

func (n *leafNode) encode() []byte {
	enc, err := rlp.EncodeToBytes([]interface{}{hexPrefix(n.key, true), n.value})
	if err != nil {
		panic(err)
	}
	return enc
}

func (n *extensionNode) encode() []byte {
	enc, err := rlp.EncodeToBytes([]interface{}{hexPrefix(n.key, false), refItem(n.child)})
	if err != nil {
		panic(err)
	}
	return enc
}

func (n *branchNode) encode() []byte {
	items := make([]interface{}, 17)
	for i, child := range n.children {
		if child == nil {
			items[i] = []byte{}
		} else {
			items[i] = refItem(child)
		}
	}
	items[16] = n.value
	enc, err := rlp.EncodeToBytes(items)
	if err != nil {
		panic(err)
	}
	return enc
}

// refItem wraps a child reference for RLP encoding: short nodes embed
// their raw encoding in place, long nodes appear as a 32-byte string.
func refItem(n node) interface{} {
	r := n.ref()
	if len(r) == 32 {
		return r
	}
	return rlp.RawValue(r)
}

func makeRef(enc []byte) []byte {
	if len(enc) < 32 {
		return enc
	}
	return gethcrypto.Keccak256(enc)
}

func (n *leafNode) ref() []byte {
	if n.cached == nil {
		n.cached = makeRef(n.encode())
	}
	return n.cached
}

func (n *extensionNode) ref() []byte {
	if n.cached == nil {
		n.cached = makeRef(n.encode())
	}
	return n.cached
}

func (n *branchNode) ref() []byte {
	if n.cached == nil {
		n.cached = makeRef(n.encode())
	}
	return n.cached
}

// hexPrefix applies the compact (hex-prefix) encoding to a nibble path.
func hexPrefix(nibbles []byte, leaf bool) []byte {
	var flag byte
	if leaf {
		flag = 2
	}
	if len(nibbles)%2 == 1 {
		out := make([]byte, (len(nibbles)+1)/2)
		out[0] = (flag | 1) << 4
		out[0] |= nibbles[0]
		for i := 1; i < len(nibbles); i += 2 {
			out[(i+1)/2] = nibbles[i]<<4 | nibbles[i+1]
		}
		return out
	}
	out := make([]byte, len(nibbles)/2+1)
	out[0] = flag << 4
	for i := 0; i < len(nibbles); i += 2 {
		out[i/2+1] = nibbles[i]<<4 | nibbles[i+1]
	}
	return out
}

func keyNibbles(key []byte) []byte {
	out := make([]byte, len(key)*2)
	for i, b := range key {
		out[2*i] = b >> 4
		out[2*i+1] = b & 0x0f
	}
	return out
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// Trie is a persistent Merkle-Patricia trie over byte-string keys.
type Trie struct {
	root node
}

// New returns an empty trie.
func New() *Trie { return &Trie{} }

// Copy returns a trie sharing all nodes with the receiver. Mutating either
// copy never affects the other.
func (t *Trie) Copy() *Trie { return &Trie{root: t.root} }

// Get returns the value stored under key, or nil.
func (t *Trie) Get(key []byte) []byte {
	return lookup(t.root, keyNibbles(key))
}

func lookup(n node, path []byte) []byte {
	switch n := n.(type) {
	case nil:
		return nil
	case *leafNode:
		if len(path) == len(n.key) && commonPrefixLen(path, n.key) == len(path) {
			return n.value
		}
		return nil
	case *extensionNode:
		if commonPrefixLen(path, n.key) < len(n.key) {
			return nil
		}
		return lookup(n.child, path[len(n.key):])
	case *branchNode:
		if len(path) == 0 {
			return n.value
		}
		return lookup(n.children[path[0]], path[1:])
	}
	return nil
}

// Update stores value under key. An empty value deletes the key.
func (t *Trie) Update(key, value []byte) {
	path := keyNibbles(key)
	if len(value) == 0 {
		t.root = remove(t.root, path)
		return
	}
	t.root = insert(t.root, path, value)
}

// Delete removes key from the trie.
func (t *Trie) Delete(key []byte) {
	t.root = remove(t.root, keyNibbles(key))
}

// Root returns the trie's root hash.
func (t *Trie) Root() types.Hash {
	if t.root == nil {
		return EmptyRoot
	}
	var enc []byte
	switch n := t.root.(type) {
	case *leafNode:
		enc = n.encode()
	case *extensionNode:
		enc = n.encode()
	case *branchNode:
		enc = n.encode()
	}
	return types.Keccak256Hash(enc)
}

func insert(n node, path []byte, value []byte) node {
	switch n := n.(type) {
	case nil:
		return &leafNode{key: path, value: value}

	case *leafNode:
		match := commonPrefixLen(path, n.key)
		if match == len(path) && match == len(n.key) {
			return &leafNode{key: n.key, value: value}
		}
		branch := &branchNode{}
		if match == len(n.key) {
			branch.value = n.value
		} else {
			branch.children[n.key[match]] = &leafNode{key: n.key[match+1:], value: n.value}
		}
		if match == len(path) {
			branch.value = value
		} else {
			branch.children[path[match]] = &leafNode{key: path[match+1:], value: value}
		}
		if match > 0 {
			return &extensionNode{key: path[:match], child: branch}
		}
		return branch

	case *extensionNode:
		match := commonPrefixLen(path, n.key)
		if match == len(n.key) {
			return &extensionNode{key: n.key, child: insert(n.child, path[match:], value)}
		}
		branch := &branchNode{}
		if match+1 == len(n.key) {
			branch.children[n.key[match]] = n.child
		} else {
			branch.children[n.key[match]] = &extensionNode{key: n.key[match+1:], child: n.child}
		}
		if match == len(path) {
			branch.value = value
		} else {
			branch.children[path[match]] = &leafNode{key: path[match+1:], value: value}
		}
		if match > 0 {
			return &extensionNode{key: path[:match], child: branch}
		}
		return branch

	case *branchNode:
		next := *n
		next.cached = nil
		if len(path) == 0 {
			next.value = value
			return &next
		}
		next.children[path[0]] = insert(n.children[path[0]], path[1:], value)
		return &next
	}
	panic("trie: unknown node type")
}

func remove(n node, path []byte) node {
	switch n := n.(type) {
	case nil:
		return nil

	case *leafNode:
		if len(path) == len(n.key) && commonPrefixLen(path, n.key) == len(path) {
			return nil
		}
		return n

	case *extensionNode:
		match := commonPrefixLen(path, n.key)
		if match < len(n.key) {
			return n
		}
		child := remove(n.child, path[len(n.key):])
		if child == n.child {
			return n
		}
		if child == nil {
			return nil
		}
		return collapseExtension(n.key, child)

	case *branchNode:
		next := *n
		next.cached = nil
		if len(path) == 0 {
			if n.value == nil {
				return n
			}
			next.value = nil
		} else {
			child := remove(n.children[path[0]], path[1:])
			if child == n.children[path[0]] {
				return n
			}
			next.children[path[0]] = child
		}
		return collapseBranch(&next)
	}
	panic("trie: unknown node type")
}

// collapseBranch rewrites a branch left with fewer than two references
// into the shortest equivalent node.
func collapseBranch(n *branchNode) node {
	var (
		liveIdx   = -1
		liveCount int
	)
	for i, child := range n.children {
		if child != nil {
			liveIdx = i
			liveCount++
		}
	}
	if liveCount == 0 {
		if n.value == nil {
			return nil
		}
		return &leafNode{key: nil, value: n.value}
	}
	if n.value != nil || liveCount > 1 {
		return n
	}
	return collapseExtension([]byte{byte(liveIdx)}, n.children[liveIdx])
}

// collapseExtension prepends prefix to the child, merging adjacent
// extension and leaf paths.
func collapseExtension(prefix []byte, child node) node {
	switch child := child.(type) {
	case *leafNode:
		return &leafNode{key: concatNibbles(prefix, child.key), value: child.value}
	case *extensionNode:
		return &extensionNode{key: concatNibbles(prefix, child.key), child: child.child}
	default:
		return &extensionNode{key: prefix, child: child}
	}
}

func concatNibbles(a, b []byte) []byte {
	out := make([]byte, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
