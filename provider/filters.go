// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"fmt"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/miner"
	"github.com/devchain-labs/devchain/rpc"
)

type filterKind uint8

const (
	filterBlocks filterKind = iota
	filterPendingTxs
	filterLogs
)

// LogFilterCriteria selects logs for eth_getLogs and log filters.
type LogFilterCriteria struct {
	FromBlock *rpc.BlockSpec
	ToBlock   *rpc.BlockSpec
	BlockHash *types.Hash
	Addresses []types.Address
	// Topics follows the standard positional semantics: nil matches
	// anything, a list matches any of its entries.
	Topics [][]types.Hash
}

type filterEntry struct {
	kind     filterKind
	criteria LogFilterCriteria

	hashes []types.Hash
	logs   []*types.Log
}

// NewBlockFilter installs a filter collecting mined block hashes.
func (p *Provider) NewBlockFilter() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installFilterLocked(&filterEntry{kind: filterBlocks})
}

// NewPendingTransactionFilter installs a filter collecting accepted
// transaction hashes.
func (p *Provider) NewPendingTransactionFilter() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installFilterLocked(&filterEntry{kind: filterPendingTxs})
}

// NewFilter installs a log filter.
func (p *Provider) NewFilter(criteria LogFilterCriteria) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.installFilterLocked(&filterEntry{kind: filterLogs, criteria: criteria})
}

func (p *Provider) installFilterLocked(entry *filterEntry) uint64 {
	id := p.nextFilterID
	p.nextFilterID++
	p.filters[id] = entry
	return id
}

// UninstallFilter removes a filter, reporting whether it existed.
func (p *Provider) UninstallFilter(id uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.filters[id]; !ok {
		return false
	}
	delete(p.filters, id)
	return true
}

// GetFilterChanges drains a filter's accumulated block hashes, tx
// hashes, or logs.
func (p *Provider) GetFilterChanges(id uint64) (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.filters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, id)
	}
	switch entry.kind {
	case filterLogs:
		out := entry.logs
		entry.logs = nil
		return out, nil
	default:
		out := entry.hashes
		entry.hashes = nil
		return out, nil
	}
}

// GetFilterLogs returns every log matching a log filter's criteria, from
// the chain rather than the accumulator.
func (p *Provider) GetFilterLogs(id uint64) ([]*types.Log, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.filters[id]
	if !ok || entry.kind != filterLogs {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, id)
	}
	return p.collectLogsLocked(entry.criteria)
}

// GetLogs returns logs matching the criteria over committed blocks.
func (p *Provider) GetLogs(criteria LogFilterCriteria) ([]*types.Log, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collectLogsLocked(criteria)
}

func (p *Provider) collectLogsLocked(criteria LogFilterCriteria) ([]*types.Log, error) {
	var from, to uint64
	if criteria.BlockHash != nil {
		block, err := p.chain.BlockByHash(*criteria.BlockHash)
		if err != nil {
			return nil, err
		}
		from, to = block.NumberU64(), block.NumberU64()
	} else {
		from = firstBlockNumber(p.chain)
		to = p.chain.LastBlockNumber()
		if criteria.FromBlock != nil {
			n, err := p.resolveBlockNumber(*criteria.FromBlock)
			if err != nil {
				return nil, err
			}
			from = n
		}
		if criteria.ToBlock != nil {
			n, err := p.resolveBlockNumber(*criteria.ToBlock)
			if err != nil {
				return nil, err
			}
			to = n
		}
	}
	var out []*types.Log
	for n := from; n <= to; n++ {
		receipts, err := p.chain.ReceiptsByNumber(n)
		if err != nil {
			return nil, err
		}
		for _, receipt := range receipts {
			for _, l := range receipt.Logs {
				if matchesCriteria(l, criteria) {
					out = append(out, l)
				}
			}
		}
	}
	return out, nil
}

func matchesCriteria(l *types.Log, criteria LogFilterCriteria) bool {
	if len(criteria.Addresses) > 0 {
		found := false
		for _, addr := range criteria.Addresses {
			if addr == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range criteria.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(l.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// notifyBlockFiltersLocked feeds a mined block into the live filters.
func (p *Provider) notifyBlockFiltersLocked(result *miner.MineBlockResult) {
	for _, entry := range p.filters {
		switch entry.kind {
		case filterBlocks:
			entry.hashes = append(entry.hashes, result.Block.Hash())
		case filterLogs:
			for _, receipt := range result.Receipts {
				for _, l := range receipt.Logs {
					if matchesCriteria(l, entry.criteria) {
						entry.logs = append(entry.logs, l)
					}
				}
			}
		}
	}
}

// notifyPendingTxFiltersLocked feeds an accepted transaction hash into
// pending-transaction filters.
func (p *Provider) notifyPendingTxFiltersLocked(hash types.Hash) {
	for _, entry := range p.filters {
		if entry.kind == filterPendingTxs {
			entry.hashes = append(entry.hashes, hash)
		}
	}
}
