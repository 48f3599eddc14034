// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mempool holds signed, validated transactions until they are
// mined. Transactions are partitioned per sender into a pending queue
// (nonces reachable from the sender's in-state nonce, contiguously) and a
// future queue (nonces that leave a gap).
package mempool

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
)

var (
	// ErrExceedsBlockGasLimit rejects transactions that could never fit
	// in a block.
	ErrExceedsBlockGasLimit = errors.New("transaction gas limit exceeds block gas limit")

	// ErrTransactionAlreadyExists rejects re-submission of an indexed
	// hash.
	ErrTransactionAlreadyExists = errors.New("transaction already exists in pool")

	// ErrNonceTooLow rejects transactions below the sender's in-state
	// nonce.
	ErrNonceTooLow = errors.New("nonce too low")

	// ErrInsufficientFunds rejects transactions whose upfront cost the
	// sender cannot cover.
	ErrInsufficientFunds = errors.New("insufficient funds for gas * price + value")

	// ErrReplacementUnderpriced rejects same-nonce replacements that do
	// not raise both fee components by at least ten percent.
	ErrReplacementUnderpriced = errors.New("replacement transaction underpriced")
)

// Ordering selects the discipline of the mining iterator.
type Ordering uint8

const (
	// OrderFIFO yields pending transactions by ascending insertion order.
	OrderFIFO Ordering = iota
	// OrderPriority yields by descending effective miner fee, insertion
	// order breaking ties.
	OrderPriority
)

// PendingTransaction is a pool entry: the transaction, its recovered
// sender, and its monotonic insertion order id.
type PendingTransaction struct {
	Transaction *types.Transaction
	Sender      types.Address
	OrderID     uint64
}

// Pool is the mempool. It is not internally locked: the provider guard
// serializes all access, like every other piece of provider data.
type Pool struct {
	blockGasLimit uint64

	// pending and future are per-sender queues sorted by nonce.
	pending map[types.Address][]*PendingTransaction
	future  map[types.Address][]*PendingTransaction
	// byHash indexes exactly the union of pending and future.
	byHash map[types.Hash]*PendingTransaction

	nextOrderID uint64
}

// New returns an empty pool enforcing the given block gas limit.
func New(blockGasLimit uint64) *Pool {
	return &Pool{
		blockGasLimit: blockGasLimit,
		pending:       make(map[types.Address][]*PendingTransaction),
		future:        make(map[types.Address][]*PendingTransaction),
		byHash:        make(map[types.Hash]*PendingTransaction),
	}
}

// BlockGasLimit returns the limit transactions are admitted against.
func (p *Pool) BlockGasLimit() uint64 { return p.blockGasLimit }

// Copy returns a deep-enough copy for snapshotting: entries are shared,
// the queue structures are not.
func (p *Pool) Copy() *Pool {
	cp := &Pool{
		blockGasLimit: p.blockGasLimit,
		pending:       make(map[types.Address][]*PendingTransaction, len(p.pending)),
		future:        make(map[types.Address][]*PendingTransaction, len(p.future)),
		byHash:        make(map[types.Hash]*PendingTransaction, len(p.byHash)),
		nextOrderID:   p.nextOrderID,
	}
	for addr, queue := range p.pending {
		cp.pending[addr] = append([]*PendingTransaction(nil), queue...)
	}
	for addr, queue := range p.future {
		cp.future[addr] = append([]*PendingTransaction(nil), queue...)
	}
	for hash, entry := range p.byHash {
		cp.byHash[hash] = entry
	}
	return cp
}

// Restore replaces the pool's contents with a previously taken copy.
func (p *Pool) Restore(from *Pool) {
	p.blockGasLimit = from.blockGasLimit
	p.pending = from.pending
	p.future = from.future
	p.byHash = from.byHash
	p.nextOrderID = from.nextOrderID
}

// TransactionByHash returns the pool entry for a hash, or nil.
func (p *Pool) TransactionByHash(hash types.Hash) *PendingTransaction {
	return p.byHash[hash]
}

// lastPendingNonce returns the highest nonce in the sender's pending
// queue.
func (p *Pool) lastPendingNonce(sender types.Address) (uint64, bool) {
	queue := p.pending[sender]
	if len(queue) == 0 {
		return 0, false
	}
	return queue[len(queue)-1].Transaction.Nonce, true
}

// AddTransaction validates tx against the current state and inserts it
// into the pending or future queue, applying the replacement rule when a
// same-nonce transaction from the same sender is already queued.
func (p *Pool) AddTransaction(st state.Reader, tx *types.Transaction) (*PendingTransaction, error) {
	if tx.Gas > p.blockGasLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrExceedsBlockGasLimit, tx.Gas, p.blockGasLimit)
	}
	hash := tx.Hash()
	if _, ok := p.byHash[hash]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTransactionAlreadyExists, hash)
	}
	sender, err := tx.Sender()
	if err != nil {
		return nil, err
	}
	acct, err := st.Account(sender)
	if err != nil {
		return nil, err
	}
	var stateNonce uint64
	balance := new(big.Int)
	if acct != nil {
		stateNonce = acct.Nonce
		balance = acct.Balance.ToBig()
	}
	if tx.Nonce < stateNonce {
		return nil, fmt.Errorf("%w: transaction nonce %d, sender nonce %d", ErrNonceTooLow, tx.Nonce, stateNonce)
	}
	if tx.UpfrontCost().Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: cost %s, balance %s", ErrInsufficientFunds, tx.UpfrontCost(), balance)
	}

	next := stateNonce
	if last, ok := p.lastPendingNonce(sender); ok && last+1 > next {
		next = last + 1
	}

	entry := &PendingTransaction{Transaction: tx, Sender: sender}
	if tx.Nonce > next {
		if err := p.insert(p.future, sender, entry); err != nil {
			return nil, err
		}
	} else {
		if err := p.insert(p.pending, sender, entry); err != nil {
			return nil, err
		}
		p.promoteFuture(sender)
	}
	entry.OrderID = p.nextOrderID
	p.nextOrderID++
	p.byHash[hash] = entry
	log.Debug("mempool accepted transaction", "hash", hash, "sender", sender, "nonce", tx.Nonce, "order", entry.OrderID)
	return entry, nil
}

// insert places entry into the sender's queue in nonce order, enforcing
// the ten-percent replacement threshold when the nonce is already taken.
func (p *Pool) insert(queues map[types.Address][]*PendingTransaction, sender types.Address, entry *PendingTransaction) error {
	queue := queues[sender]
	idx := sort.Search(len(queue), func(i int) bool {
		return queue[i].Transaction.Nonce >= entry.Transaction.Nonce
	})
	if idx < len(queue) && queue[idx].Transaction.Nonce == entry.Transaction.Nonce {
		old := queue[idx].Transaction
		if !isSufficientReplacement(old, entry.Transaction) {
			return fmt.Errorf("%w: nonce %d", ErrReplacementUnderpriced, entry.Transaction.Nonce)
		}
		delete(p.byHash, old.Hash())
		queue[idx] = entry
		queues[sender] = queue
		return nil
	}
	queue = append(queue, nil)
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = entry
	queues[sender] = queue
	return nil
}

// isSufficientReplacement requires the newcomer to raise both the
// effective gas price and the effective priority fee by at least ten
// percent, rounded up.
func isSufficientReplacement(old, new_ *types.Transaction) bool {
	return bumped(old.MaxGasPrice()).Cmp(new_.MaxGasPrice()) <= 0 &&
		bumped(old.EffectivePriorityFee()).Cmp(new_.EffectivePriorityFee()) <= 0
}

// bumped returns ceil(1.10 * value).
func bumped(value *big.Int) *big.Int {
	out := new(big.Int).Mul(value, big.NewInt(110))
	out.Add(out, big.NewInt(99))
	return out.Div(out, big.NewInt(100))
}

// promoteFuture moves future transactions with consecutive nonces after
// the sender's pending tail into the pending queue.
func (p *Pool) promoteFuture(sender types.Address) {
	last, ok := p.lastPendingNonce(sender)
	if !ok {
		return
	}
	queue := p.future[sender]
	for len(queue) > 0 && queue[0].Transaction.Nonce == last+1 {
		entry := queue[0]
		queue = queue[1:]
		p.pending[sender] = append(p.pending[sender], entry)
		last++
	}
	if len(queue) == 0 {
		delete(p.future, sender)
	} else {
		p.future[sender] = queue
	}
}

// RemoveTransaction drops a transaction by hash, returning whether it was
// present. Dropping a pending transaction demotes the sender's later
// pending transactions to future, since their nonces now leave a gap.
func (p *Pool) RemoveTransaction(hash types.Hash) bool {
	entry, ok := p.byHash[hash]
	if !ok {
		return false
	}
	delete(p.byHash, hash)
	nonce := entry.Transaction.Nonce
	if queue, ok := p.pending[entry.Sender]; ok {
		for i, e := range queue {
			if e.Transaction.Nonce == nonce {
				tail := queue[i+1:]
				p.setQueue(p.pending, entry.Sender, queue[:i])
				if len(tail) > 0 {
					merged := append(append([]*PendingTransaction(nil), tail...), p.future[entry.Sender]...)
					sort.Slice(merged, func(a, b int) bool {
						return merged[a].Transaction.Nonce < merged[b].Transaction.Nonce
					})
					p.future[entry.Sender] = merged
				}
				return true
			}
		}
	}
	if queue, ok := p.future[entry.Sender]; ok {
		for i, e := range queue {
			if e.Transaction.Nonce == nonce {
				p.setQueue(p.future, entry.Sender, append(queue[:i:i], queue[i+1:]...))
				return true
			}
		}
	}
	return true
}

func (p *Pool) setQueue(queues map[types.Address][]*PendingTransaction, sender types.Address, queue []*PendingTransaction) {
	if len(queue) == 0 {
		delete(queues, sender)
	} else {
		queues[sender] = queue
	}
}

// SetBlockGasLimit changes the admission limit. The caller is expected to
// follow with an Update against the current state.
func (p *Pool) SetBlockGasLimit(limit uint64) { p.blockGasLimit = limit }

// Update re-validates every held transaction after a state change: a
// transaction stays iff its gas limit fits the block gas limit, the
// sender can still cover its upfront cost, and its nonce has not been
// consumed. Surviving transactions are re-partitioned so each sender's
// pending queue is a contiguous nonce run starting at the in-state nonce.
func (p *Pool) Update(st state.Reader) error {
	senders := make(map[types.Address]bool, len(p.pending)+len(p.future))
	for sender := range p.pending {
		senders[sender] = true
	}
	for sender := range p.future {
		senders[sender] = true
	}
	for sender := range senders {
		acct, err := st.Account(sender)
		if err != nil {
			return err
		}
		var stateNonce uint64
		balance := new(big.Int)
		if acct != nil {
			stateNonce = acct.Nonce
			balance = acct.Balance.ToBig()
		}

		all := append(append([]*PendingTransaction(nil), p.pending[sender]...), p.future[sender]...)
		sort.Slice(all, func(a, b int) bool {
			return all[a].Transaction.Nonce < all[b].Transaction.Nonce
		})

		kept := all[:0]
		for _, entry := range all {
			tx := entry.Transaction
			if tx.Gas > p.blockGasLimit || tx.Nonce < stateNonce || tx.UpfrontCost().Cmp(balance) > 0 {
				delete(p.byHash, tx.Hash())
				log.Debug("mempool dropped transaction on revalidation", "hash", tx.Hash(), "sender", sender, "nonce", tx.Nonce)
				continue
			}
			kept = append(kept, entry)
		}

		var pending, future []*PendingTransaction
		next := stateNonce
		for _, entry := range kept {
			if entry.Transaction.Nonce == next && future == nil {
				pending = append(pending, entry)
				next++
			} else {
				future = append(future, entry)
			}
		}
		p.setQueue(p.pending, sender, pending)
		p.setQueue(p.future, sender, future)
	}
	return nil
}

// PendingTransactions returns every pending entry, ordered by insertion.
func (p *Pool) PendingTransactions() []*PendingTransaction {
	var out []*PendingTransaction
	for _, queue := range p.pending {
		out = append(out, queue...)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].OrderID < out[b].OrderID })
	return out
}

// FutureTransactions returns every future entry, ordered by insertion.
func (p *Pool) FutureTransactions() []*PendingTransaction {
	var out []*PendingTransaction
	for _, queue := range p.future {
		out = append(out, queue...)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].OrderID < out[b].OrderID })
	return out
}

// Len returns the number of held transactions.
func (p *Pool) Len() int { return len(p.byHash) }
