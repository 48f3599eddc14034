// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
)

// applyOverrideLocked records an irregular override at the current tip
// and revalidates the pool against the mutated state.
func (p *Provider) applyOverrideLocked(override types.StateOverride) error {
	if err := p.st.ApplyOverride(p.chain.LastBlockNumber(), override); err != nil {
		return err
	}
	return p.pool.Update(p.st)
}

// SetBalance overwrites an account balance out of band.
func (p *Provider) SetBalance(addr types.Address, balance *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	value, overflow := uint256.FromBig(balance)
	if overflow {
		return fmt.Errorf("balance does not fit in 256 bits")
	}
	return p.applyOverrideLocked(types.StateOverride{
		addr: {Balance: value},
	})
}

// SetNonce overwrites an account nonce out of band.
func (p *Provider) SetNonce(addr types.Address, nonce uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applyOverrideLocked(types.StateOverride{
		addr: {Nonce: &nonce},
	})
}

// SetCode installs bytecode on an account out of band.
func (p *Provider) SetCode(addr types.Address, code []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applyOverrideLocked(types.StateOverride{
		addr: {Code: append([]byte(nil), code...)},
	})
}

// SetStorageAt overwrites one storage slot out of band.
func (p *Provider) SetStorageAt(addr types.Address, key, value types.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applyOverrideLocked(types.StateOverride{
		addr: {Storage: map[types.Hash]types.Hash{key: value}},
	})
}

// SetCoinbase changes the beneficiary of subsequent blocks.
func (p *Provider) SetCoinbase(addr types.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.coinbase = addr
}

// SetMinGasPrice sets the floor below which the miner skips
// transactions.
func (p *Provider) SetMinGasPrice(price *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minGasPrice = new(big.Int).Set(price)
}

// SetBlockGasLimit changes the gas limit of subsequent blocks and
// revalidates the pool against it.
func (p *Provider) SetBlockGasLimit(limit uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	type limitSetter interface{ SetGasLimit(uint64) }
	if chain, ok := p.chain.(limitSetter); ok {
		chain.SetGasLimit(limit)
	}
	p.pool.SetBlockGasLimit(limit)
	return p.pool.Update(p.st)
}

// ImpersonateAccount lets transactions claim the given sender without a
// valid signature.
func (p *Provider) ImpersonateAccount(addr types.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.impersonated.Add(addr)
	log.Debug("impersonating account", "address", addr)
}

// StopImpersonatingAccount reverses ImpersonateAccount, reporting
// whether the account was impersonated.
func (p *Provider) StopImpersonatingAccount(addr types.Address) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.impersonated.Contains(addr) {
		return false
	}
	p.impersonated.Remove(addr)
	return true
}

// DropTransaction removes a pooled transaction by hash.
func (p *Provider) DropTransaction(hash types.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	dropped := p.pool.RemoveTransaction(hash)
	if dropped {
		p.updatePoolGaugesLocked()
	}
	return dropped
}

// Snapshot captures the chain tip, state, pool, and time bookkeeping,
// returning an id for evm_revert.
func (p *Provider) Snapshot() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	stateRoot, err := p.st.Snapshot()
	if err != nil {
		return 0, err
	}
	id := p.nextSnapshotID
	p.nextSnapshotID++
	entry := &snapshotEntry{
		stateRoot:       stateRoot,
		blockNumber:     p.chain.LastBlockNumber(),
		pool:            p.pool.Copy(),
		blockTimeOffset: p.blockTimeOffset,
	}
	if p.nextBlockTimestamp != nil {
		ts := *p.nextBlockTimestamp
		entry.nextBlockTimestamp = &ts
	}
	p.snapshots[id] = entry
	log.Debug("took snapshot", "id", id, "block", entry.blockNumber)
	return id, nil
}

// Revert restores the snapshot with the given id. The snapshot and every
// later one are consumed, matching evm_revert semantics.
func (p *Provider) Revert(id uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.snapshots[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	if err := p.chain.RevertToBlock(entry.blockNumber); err != nil {
		return err
	}
	if err := p.st.RestoreSnapshot(entry.stateRoot); err != nil {
		return err
	}
	p.pool.Restore(entry.pool.Copy())
	p.blockTimeOffset = entry.blockTimeOffset
	p.nextBlockTimestamp = entry.nextBlockTimestamp
	for other := range p.snapshots {
		if other >= id {
			delete(p.snapshots, other)
		}
	}
	p.updatePoolGaugesLocked()
	log.Debug("reverted to snapshot", "id", id, "block", entry.blockNumber)
	return nil
}
