// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package mempool

import (
	"container/heap"
	"math/big"

	"github.com/devchain-labs/devchain/core/types"
)

// Iterator yields pending transactions for mining: per sender strictly in
// nonce order, across senders by the chosen discipline. RemoveCaller
// drops a sender's remaining transactions from the iteration (not from
// the pool) when the miner skips one of their transactions.
type Iterator struct {
	ordering Ordering
	baseFee  *big.Int
	queues   map[types.Address][]*PendingTransaction
	heads    *headHeap
}

// Iter returns an iterator over a snapshot of the current pending queues.
// baseFee is the next block's base fee (nil pre-London), which the
// priority discipline prices against.
func (p *Pool) Iter(ordering Ordering, baseFee *big.Int) *Iterator {
	it := &Iterator{
		ordering: ordering,
		baseFee:  baseFee,
		queues:   make(map[types.Address][]*PendingTransaction, len(p.pending)),
	}
	heads := make(headHeap, 0, len(p.pending))
	for sender, queue := range p.pending {
		if len(queue) == 0 {
			continue
		}
		it.queues[sender] = append([]*PendingTransaction(nil), queue...)
		heads = append(heads, it.head(sender))
	}
	it.heads = &heads
	heap.Init(it.heads)
	return it
}

func (it *Iterator) head(sender types.Address) *headEntry {
	entry := it.queues[sender][0]
	h := &headEntry{entry: entry, ordering: it.ordering}
	if it.ordering == OrderPriority {
		h.minerFee = entry.Transaction.EffectiveMinerFee(it.baseFee)
	}
	return h
}

// Next returns the next transaction, or nil when the iteration is done.
func (it *Iterator) Next() *PendingTransaction {
	if it.heads.Len() == 0 {
		return nil
	}
	top := heap.Pop(it.heads).(*headEntry)
	sender := top.entry.Sender
	queue := it.queues[sender][1:]
	if len(queue) > 0 {
		it.queues[sender] = queue
		heap.Push(it.heads, it.head(sender))
	} else {
		delete(it.queues, sender)
	}
	return top.entry
}

// RemoveCaller drops every remaining transaction from the given sender.
func (it *Iterator) RemoveCaller(sender types.Address) {
	if _, ok := it.queues[sender]; !ok {
		return
	}
	delete(it.queues, sender)
	for i, h := range *it.heads {
		if h.entry.Sender == sender {
			heap.Remove(it.heads, i)
			break
		}
	}
}

type headEntry struct {
	entry    *PendingTransaction
	minerFee *big.Int
	ordering Ordering
}

type headHeap []*headEntry

func (h headHeap) Len() int { return len(h) }

func (h headHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.ordering == OrderPriority {
		if cmp := a.minerFee.Cmp(b.minerFee); cmp != 0 {
			return cmp > 0
		}
	}
	return a.entry.OrderID < b.entry.OrderID
}

func (h headHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *headHeap) Push(x interface{}) { *h = append(*h, x.(*headEntry)) }

func (h *headHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
