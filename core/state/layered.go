// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"sort"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/trie"
)

type blockDiff struct {
	number uint64
	diff   types.StateDiff
}

type snapshotRecord struct {
	repr      *trie.StateRepr
	diffLen   int
	tipNumber uint64
	overrides map[uint64]types.StateOverride
}

// LayeredState keeps a latest trie state as the canonical materialization
// plus an append-only list of per-block diffs used to reconstruct ancestor
// states. Snapshots clone the trie (node sharing makes this cheap) and are
// identified by state root.
type LayeredState struct {
	latest    *trie.StateRepr
	diffs     []blockDiff
	overrides map[uint64]types.StateOverride
	snapshots map[types.Hash]*snapshotRecord
	tipNumber uint64
}

// NewLayeredState returns an empty state; the blockchain commits the
// genesis diff as block zero.
func NewLayeredState() *LayeredState {
	return &LayeredState{
		latest:    trie.NewStateRepr(),
		overrides: make(map[uint64]types.StateOverride),
		snapshots: make(map[types.Hash]*snapshotRecord),
	}
}

func (s *LayeredState) Account(addr types.Address) (*types.Account, error) {
	return s.latest.Account(addr), nil
}

func (s *LayeredState) StorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	return s.latest.StorageSlot(addr, key), nil
}

func (s *LayeredState) Code(codeHash types.Hash) ([]byte, error) {
	return s.latest.Code(codeHash)
}

func (s *LayeredState) StateRoot() (types.Hash, error) {
	return s.latest.StateRoot(), nil
}

func (s *LayeredState) StorageRoot(addr types.Address) (types.Hash, error) {
	return s.latest.StorageRoot(addr), nil
}

// Latest exposes the canonical materialization for callers that need the
// trie-level API (the miner's working copy is cloned from it).
func (s *LayeredState) Latest() *trie.StateRepr { return s.latest }

// RootAfter commits diff on a throwaway clone; node sharing keeps this
// proportional to the diff, not the state.
func (s *LayeredState) RootAfter(diff types.StateDiff) (types.Hash, error) {
	preview := s.latest.Clone()
	preview.Commit(diff)
	return preview.StateRoot(), nil
}

func (s *LayeredState) CommitBlock(number uint64, diff types.StateDiff) error {
	s.latest.Commit(diff)
	s.diffs = append(s.diffs, blockDiff{number: number, diff: diff.Copy()})
	s.tipNumber = number
	return nil
}

func (s *LayeredState) ApplyOverride(number uint64, override types.StateOverride) error {
	s.latest.ApplyOverride(override)
	if existing, ok := s.overrides[number]; ok {
		merged := existing.Copy()
		for addr, ov := range override.Copy() {
			if prev, ok := merged[addr]; ok {
				mergeAccountOverride(prev, ov)
			} else {
				merged[addr] = ov
			}
		}
		s.overrides[number] = merged
	} else {
		s.overrides[number] = override.Copy()
	}
	return nil
}

func mergeAccountOverride(dst, src *types.AccountOverride) {
	if src.Balance != nil {
		dst.Balance = src.Balance
	}
	if src.Nonce != nil {
		dst.Nonce = src.Nonce
	}
	if src.Code != nil {
		dst.Code = src.Code
	}
	if len(src.Storage) > 0 {
		if dst.Storage == nil {
			dst.Storage = make(map[types.Hash]types.Hash, len(src.Storage))
		}
		for k, v := range src.Storage {
			dst.Storage[k] = v
		}
	}
}

func (s *LayeredState) Snapshot() (types.Hash, error) {
	root := s.latest.StateRoot()
	s.snapshots[root] = &snapshotRecord{
		repr:      s.latest.Clone(),
		diffLen:   len(s.diffs),
		tipNumber: s.tipNumber,
		overrides: copyOverrides(s.overrides),
	}
	return root, nil
}

func (s *LayeredState) RestoreSnapshot(root types.Hash) error {
	rec, ok := s.snapshots[root]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStateRoot, root)
	}
	s.latest = rec.repr.Clone()
	s.diffs = s.diffs[:rec.diffLen]
	s.tipNumber = rec.tipNumber
	s.overrides = copyOverrides(rec.overrides)
	return nil
}

func copyOverrides(in map[uint64]types.StateOverride) map[uint64]types.StateOverride {
	out := make(map[uint64]types.StateOverride, len(in))
	for number, ov := range in {
		out[number] = ov.Copy()
	}
	return out
}

func (s *LayeredState) RevertToBlock(number uint64) error {
	if number > s.tipNumber {
		return fmt.Errorf("%w: block %d is beyond the current tip %d", ErrCannotRevert, number, s.tipNumber)
	}
	repr, err := s.rebuildThrough(number)
	if err != nil {
		return err
	}
	s.latest = repr
	idx := sort.Search(len(s.diffs), func(i int) bool { return s.diffs[i].number > number })
	s.diffs = s.diffs[:idx]
	for n := range s.overrides {
		if n > number {
			delete(s.overrides, n)
		}
	}
	s.tipNumber = number
	return nil
}

// rebuildThrough replays diffs from genesis up to and including the given
// block number, overlaying each block's irregular override after its diff.
func (s *LayeredState) rebuildThrough(number uint64) (*trie.StateRepr, error) {
	repr := trie.NewStateRepr()
	for _, bd := range s.diffs {
		if bd.number > number {
			break
		}
		repr.Commit(bd.diff)
		if ov, ok := s.overrides[bd.number]; ok {
			repr.ApplyOverride(ov)
		}
	}
	return repr, nil
}

func (s *LayeredState) StateAtBlock(number uint64) (Reader, error) {
	if number >= s.tipNumber {
		return reprReader{s.latest}, nil
	}
	repr, err := s.rebuildThrough(number)
	if err != nil {
		return nil, err
	}
	return reprReader{repr}, nil
}

// reprReader adapts a trie state to the Reader interface.
type reprReader struct {
	repr *trie.StateRepr
}

func (r reprReader) Account(addr types.Address) (*types.Account, error) {
	return r.repr.Account(addr), nil
}

func (r reprReader) StorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	return r.repr.StorageSlot(addr, key), nil
}

func (r reprReader) Code(codeHash types.Hash) ([]byte, error) {
	return r.repr.Code(codeHash)
}
