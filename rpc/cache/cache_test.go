// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := NewResponseCache(dir)
	require.NoError(t, err)

	key, ok := Fingerprint("eth_chainId")
	require.True(t, ok)
	_, found := c.Get(key)
	require.False(t, found)

	c.Put(key, []byte(`"0x1"`))
	value, found := c.Get(key)
	require.True(t, found)
	require.Equal(t, []byte(`"0x1"`), value)
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	c, err := NewResponseCache(dir)
	require.NoError(t, err)
	key, _ := Fingerprint("eth_chainId")
	c.Put(key, []byte("persisted"))

	reopened, err := NewResponseCache(dir)
	require.NoError(t, err)
	value, found := reopened.Get(key)
	require.True(t, found)
	require.Equal(t, []byte("persisted"), value)
}

func TestCacheLeavesNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	c, err := NewResponseCache(dir)
	require.NoError(t, err)
	key, _ := Fingerprint("eth_chainId")
	c.Put(key, []byte("value"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		require.NotEqual(t, ".tmp", filepath.Ext(entry.Name()), "temporary file left behind")
	}
}

func TestCacheMemoryOnly(t *testing.T) {
	c, err := NewResponseCache("")
	require.NoError(t, err)
	key, _ := Fingerprint("net_version")
	c.Put(key, []byte("1"))
	value, found := c.Get(key)
	require.True(t, found)
	require.Equal(t, []byte("1"), value)
}
