// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"math/big"
	"time"

	"github.com/luxfi/geth/core/tracing"

	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
	"github.com/devchain-labs/devchain/metrics"
	"github.com/devchain-labs/devchain/miner"
)

// reserveThreshold is the block count above which hardhat_mine switches
// from mining real blocks to reserving a lazy range.
const reserveThreshold = uint64(128)

// nextTimestampLocked resolves the next block's timestamp: an explicit
// next-block timestamp if one was set (consumed here), otherwise the
// clock plus the running offset maintained across increaseTime cheats.
// If the result collides with the parent and same-timestamp blocks are
// not allowed, it is bumped by one second.
func (p *Provider) nextTimestampLocked() (uint64, error) {
	parent, err := p.chain.LastBlock()
	if err != nil {
		return 0, err
	}
	var timestamp uint64
	if p.nextBlockTimestamp != nil {
		timestamp = *p.nextBlockTimestamp
		p.nextBlockTimestamp = nil
	} else {
		timestamp = uint64(p.clock.Time().Unix() + p.blockTimeOffset)
	}
	if timestamp <= parent.Time() {
		if timestamp < parent.Time() || !p.cfg.AllowSameTimestamp {
			timestamp = parent.Time() + 1
		}
	}
	return timestamp, nil
}

func (p *Provider) minerOptionsLocked(timestamp uint64) miner.Options {
	opts := miner.Options{
		Builder: miner.BuilderOptions{
			Timestamp:  timestamp,
			Coinbase:   p.coinbase,
			GasLimit:   p.pool.BlockGasLimit(),
			PrevRandao: p.prevRandao,
			BaseFee:    p.nextBaseFee,
		},
		Ordering:    p.ordering,
		MinGasPrice: p.minGasPrice,
	}
	return opts
}

// mineOneLocked runs the full pipeline and commits: mine, insert,
// commit diff, revalidate the pool, notify filters.
func (p *Provider) mineOneLocked(hooks *tracing.Hooks) (*miner.MineBlockResult, error) {
	timestamp, err := p.nextTimestampLocked()
	if err != nil {
		return nil, err
	}
	result, err := miner.MineBlock(p.chain, p.st, p.pool, p.minerOptionsLocked(timestamp), hooks)
	if err != nil {
		return nil, err
	}
	if err := p.chain.InsertBlock(result.Block, result.Receipts); err != nil {
		return nil, err
	}
	if err := p.st.CommitBlock(result.Block.NumberU64(), result.StateDiff); err != nil {
		return nil, err
	}
	p.nextBaseFee = nil
	for _, entry := range result.Included {
		p.pool.RemoveTransaction(entry.Transaction.Hash())
	}
	if err := p.pool.Update(p.st); err != nil {
		return nil, err
	}
	p.notifyBlockFiltersLocked(result)
	metrics.BlocksMined.Inc()
	metrics.TransactionsMined.Add(float64(len(result.Included)))
	p.updatePoolGaugesLocked()
	return result, nil
}

func (p *Provider) updatePoolGaugesLocked() {
	metrics.MempoolPending.Set(float64(len(p.pool.PendingTransactions())))
	metrics.MempoolFuture.Set(float64(len(p.pool.FutureTransactions())))
}

// minePendingLocked materializes the ephemeral pending block: the mining
// pipeline runs, nothing is committed, and only the diff-layered reader
// (plus the would-be block) is returned.
func (p *Provider) minePendingLocked() (state.Reader, *miner.MineBlockResult, error) {
	// An explicitly set next-block timestamp must survive for the real
	// mine that follows; restore it after the dry run consumes it.
	saved := p.nextBlockTimestamp
	timestamp, err := p.nextTimestampLocked()
	p.nextBlockTimestamp = saved
	if err != nil {
		return nil, nil, err
	}
	return miner.MinePending(p.chain, p.st, p.pool, p.minerOptionsLocked(timestamp))
}

// Mine mines count blocks with the given timestamp interval between
// them. Counts beyond the reservation threshold are reserved lazily
// instead, exactly as a billion-block hardhat_mine expects.
func (p *Provider) Mine(count, interval uint64) ([]*miner.MineBlockResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mineLocked(count, interval)
}

func (p *Provider) mineLocked(count, interval uint64) ([]*miner.MineBlockResult, error) {
	if count == 0 {
		count = 1
	}
	if count > reserveThreshold {
		if err := p.chain.ReserveBlocks(count, interval); err != nil {
			return nil, err
		}
		p.blockTimeOffset += int64(count * interval)
		log.Info("reserved block range", "count", count, "interval", interval, "tip", p.chain.LastBlockNumber())
		return nil, nil
	}
	results := make([]*miner.MineBlockResult, 0, count)
	for i := uint64(0); i < count; i++ {
		if i > 0 && interval > 0 {
			parent, err := p.chain.LastBlock()
			if err != nil {
				return nil, err
			}
			next := parent.Time() + interval
			p.nextBlockTimestamp = &next
		}
		result, err := p.mineOneLocked(nil)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// SetAutomine toggles mining a block on every accepted transaction.
func (p *Provider) SetAutomine(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.automine = enabled
}

// GetAutomine reports the automine flag.
func (p *Provider) GetAutomine() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.automine
}

// SetIntervalMining schedules a mine every interval; zero stops the
// scheduler. Each tick takes the provider guard like any RPC call.
func (p *Provider) SetIntervalMining(interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopIntervalMiningLocked()
	if interval <= 0 {
		return
	}
	stop := make(chan struct{})
	p.intervalStop = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				p.mu.Lock()
				if _, err := p.mineOneLocked(nil); err != nil {
					log.Error("interval mine failed", "err", err)
				}
				p.mu.Unlock()
			}
		}
	}()
}

func (p *Provider) stopIntervalMiningLocked() {
	if p.intervalStop != nil {
		close(p.intervalStop)
		p.intervalStop = nil
	}
}

// IncreaseTime shifts the clock offset used for block timestamps and
// returns the new total offset in seconds.
func (p *Provider) IncreaseTime(seconds int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockTimeOffset += seconds
	return p.blockTimeOffset
}

// SetNextBlockTimestamp pins the next mined block's timestamp.
func (p *Provider) SetNextBlockTimestamp(timestamp uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextBlockTimestamp = &timestamp
}

// SetNextBlockBaseFeePerGas overrides the next block's base fee instead
// of deriving it from the parent.
func (p *Provider) SetNextBlockBaseFeePerGas(fee *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextBaseFee = new(big.Int).Set(fee)
}

// SetPrevRandao sets the prevrandao value of subsequent blocks.
func (p *Provider) SetPrevRandao(value types.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prevRandao = value
}
