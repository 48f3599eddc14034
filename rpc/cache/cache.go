// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"os"
	"path/filepath"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/devchain-labs/devchain/log"
	"github.com/devchain-labs/devchain/metrics"
)

// frontCacheBytes bounds the in-memory front of the response cache.
const frontCacheBytes = 32 * 1024 * 1024

// ResponseCache stores raw remote responses keyed by fingerprint: an
// in-memory fastcache front owned by this cache, backed by one file per key
// under the cache directory. Writes go to a temporary file first and are
// renamed into place, so a crash never leaves a partial entry behind.
type ResponseCache struct {
	dir   string
	front *fastcache.Cache
}

// NewResponseCache opens (and creates) the cache directory. An empty dir
// disables the disk layer.
func NewResponseCache(dir string) (*ResponseCache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &ResponseCache{dir: dir, front: fastcache.New(frontCacheBytes)}, nil
}

func (c *ResponseCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Get returns the cached response for key, consulting the memory front
// before the disk.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	if value := c.front.Get(nil, []byte(key)); len(value) > 0 {
		metrics.RPCCacheHits.Inc()
		return value, true
	}
	if c.dir == "" {
		metrics.RPCCacheMisses.Inc()
		return nil, false
	}
	value, err := os.ReadFile(c.path(key))
	if err != nil {
		metrics.RPCCacheMisses.Inc()
		return nil, false
	}
	c.front.Set([]byte(key), value)
	metrics.RPCCacheHits.Inc()
	return value, true
}

// Put stores a response under key.
func (c *ResponseCache) Put(key string, value []byte) {
	c.front.Set([]byte(key), value)
	if c.dir == "" {
		return
	}
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		log.Warn("response cache write failed", "key", key, "err", err)
		return
	}
	name := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(name)
		log.Warn("response cache write failed", "key", key, "err", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		log.Warn("response cache write failed", "key", key, "err", err)
		return
	}
	if err := os.Rename(name, c.path(key)); err != nil {
		os.Remove(name)
		log.Warn("response cache write failed", "key", key, "err", err)
	}
}
