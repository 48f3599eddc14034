// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package trie

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

func TestEmptyTrieRoot(t *testing.T) {
	require.Equal(t, EmptyRoot, New().Root())
}

// The canonical four-entry trie from the Ethereum trie test vectors.
func TestKnownRoot(t *testing.T) {
	entries := map[string]string{
		"do":    "verb",
		"dog":   "puppy",
		"doge":  "coin",
		"horse": "stallion",
	}
	tr := New()
	for k, v := range entries {
		tr.Update([]byte(k), []byte(v))
	}
	require.Equal(t,
		types.HexToHash("0x5991bb8c6514148a29db676a14ac506cd2cd5775ace63c30a4fe457715e9ac84"),
		tr.Root(),
	)
}

func TestGetUpdateDelete(t *testing.T) {
	tr := New()
	require.Nil(t, tr.Get([]byte("missing")))

	tr.Update([]byte("key"), []byte("value"))
	require.Equal(t, []byte("value"), tr.Get([]byte("key")))

	tr.Update([]byte("key"), []byte("other"))
	require.Equal(t, []byte("other"), tr.Get([]byte("key")))

	tr.Delete([]byte("key"))
	require.Nil(t, tr.Get([]byte("key")))
	require.Equal(t, EmptyRoot, tr.Root())
}

func TestInsertionOrderIndependence(t *testing.T) {
	keys := make([][]byte, 32)
	for i := range keys {
		keys[i] = types.Keccak256Hash([]byte{byte(i)}).Bytes()
	}
	value := func(i int) []byte { return []byte(fmt.Sprintf("value-%d", i)) }

	reference := New()
	for i, k := range keys {
		reference.Update(k, value(i))
	}
	want := reference.Root()

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 5; trial++ {
		perm := rng.Perm(len(keys))
		tr := New()
		for _, i := range perm {
			tr.Update(keys[i], value(i))
		}
		require.Equal(t, want, tr.Root(), "permutation %v", perm)
	}
}

func TestDeleteRestoresRoot(t *testing.T) {
	tr := New()
	tr.Update([]byte("do"), []byte("verb"))
	tr.Update([]byte("dog"), []byte("puppy"))
	before := tr.Root()

	tr.Update([]byte("doge"), []byte("coin"))
	require.NotEqual(t, before, tr.Root())

	tr.Delete([]byte("doge"))
	require.Equal(t, before, tr.Root())
}

func TestCopyIsIndependent(t *testing.T) {
	tr := New()
	tr.Update([]byte("shared"), []byte("before"))
	snapshot := tr.Copy()
	snapRoot := snapshot.Root()

	tr.Update([]byte("shared"), []byte("after"))
	tr.Update([]byte("extra"), []byte("entry"))

	require.Equal(t, []byte("before"), snapshot.Get([]byte("shared")))
	require.Nil(t, snapshot.Get([]byte("extra")))
	require.Equal(t, snapRoot, snapshot.Root())
	require.NotEqual(t, snapRoot, tr.Root())
}
