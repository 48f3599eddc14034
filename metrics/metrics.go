// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics declares the runtime's instrumentation points. The
// collectors register on the default registry; embedders expose them with
// promhttp or scrape them programmatically.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksMined counts blocks produced by the miner.
	BlocksMined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "miner",
		Name:      "blocks_mined_total",
		Help:      "Blocks produced by the miner.",
	})

	// TransactionsMined counts transactions included in mined blocks.
	TransactionsMined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "miner",
		Name:      "transactions_mined_total",
		Help:      "Transactions included in mined blocks.",
	})

	// MempoolPending tracks the pending-queue size.
	MempoolPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "devchain",
		Subsystem: "mempool",
		Name:      "pending_transactions",
		Help:      "Transactions currently executable.",
	})

	// MempoolFuture tracks the future-queue size.
	MempoolFuture = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "devchain",
		Subsystem: "mempool",
		Name:      "future_transactions",
		Help:      "Transactions queued behind a nonce gap.",
	})

	// RPCCacheHits counts remote-response cache hits.
	RPCCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "rpc_cache",
		Name:      "hits_total",
		Help:      "Remote response cache hits.",
	})

	// RPCCacheMisses counts remote-response cache misses.
	RPCCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "rpc_cache",
		Name:      "misses_total",
		Help:      "Remote response cache misses.",
	})

	// RemoteRequests counts JSON-RPC requests actually issued to the
	// remote node during forking.
	RemoteRequests = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "fork",
		Name:      "remote_requests_total",
		Help:      "JSON-RPC requests sent to the remote node.",
	})

	// RemoteRetries counts transport-level retries against the remote
	// node.
	RemoteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "devchain",
		Subsystem: "fork",
		Name:      "remote_retries_total",
		Help:      "Transport-level retries against the remote node.",
	})
)
