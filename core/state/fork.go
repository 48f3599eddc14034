// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/trie"
)

// RemoteReader is the subset of a remote JSON-RPC client the fork state
// needs. Every call is made with a concrete block number, never a symbolic
// tag, which is what makes durable response caching sound.
type RemoteReader interface {
	BalanceAt(addr types.Address, blockNumber uint64) (*types.Account, error)
	CodeAt(addr types.Address, blockNumber uint64) ([]byte, error)
	StorageAt(addr types.Address, key types.Hash, blockNumber uint64) (types.Hash, error)
}

// stateRootGenerator hands out stable synthetic roots for forked states.
// Recomputing a true root would require downloading the entire remote
// state, so forked roots are derived from a counter and are explicitly
// non-canonical.
type stateRootGenerator struct {
	next uint64
}

func (g *stateRootGenerator) generate() types.Hash {
	var buf [16]byte
	copy(buf[:8], "forkroot")
	binary.BigEndian.PutUint64(buf[8:], g.next)
	g.next++
	return types.Keccak256Hash(buf[:])
}

// ForkState presents the State interface pinned to a remote chain at a
// fork block height. Reads that miss the local layer fall through to the
// remote client and are cached locally; writes and overrides are purely
// local and stack on top of the remote view.
type ForkState struct {
	remote    RemoteReader
	forkBlock uint64

	local *trie.StateRepr
	// fetched tracks which remote facts have already been pulled into the
	// local layer, so each (address) and (address, slot) is fetched once.
	fetchedAccounts map[types.Address]bool
	fetchedSlots    map[types.Address]map[types.Hash]bool
	removedAccounts map[types.Address]bool
	// clearedStorage marks accounts re-created locally, whose remote
	// storage must no longer show through.
	clearedStorage map[types.Address]bool
	flight         singleflight.Group

	diffs     []blockDiff
	overrides map[uint64]types.StateOverride
	tipNumber uint64

	roots       *stateRootGenerator
	tipRoot     types.Hash
	pendingRoot *types.Hash
	snapshots   map[types.Hash]*forkSnapshot
}

type forkSnapshot struct {
	repr      *trie.StateRepr
	fetchedA  map[types.Address]bool
	fetchedS  map[types.Address]map[types.Hash]bool
	removed   map[types.Address]bool
	cleared   map[types.Address]bool
	diffLen   int
	tipNumber uint64
	tipRoot   types.Hash
	overrides map[uint64]types.StateOverride
}

// NewForkState pins a fork state at the given remote height. Accounts in
// genesisOverride (prefunded local accounts) shadow their remote values
// from the start.
func NewForkState(remote RemoteReader, forkBlock uint64, genesisOverride types.StateOverride) *ForkState {
	s := &ForkState{
		remote:          remote,
		forkBlock:       forkBlock,
		local:           trie.NewStateRepr(),
		fetchedAccounts: make(map[types.Address]bool),
		fetchedSlots:    make(map[types.Address]map[types.Hash]bool),
		removedAccounts: make(map[types.Address]bool),
		clearedStorage:  make(map[types.Address]bool),
		overrides:       make(map[uint64]types.StateOverride),
		roots:           &stateRootGenerator{},
		snapshots:       make(map[types.Hash]*forkSnapshot),
		tipNumber:       forkBlock,
	}
	if len(genesisOverride) > 0 {
		s.local.ApplyOverride(genesisOverride)
		for addr := range genesisOverride {
			s.fetchedAccounts[addr] = true
		}
		s.overrides[forkBlock] = genesisOverride.Copy()
	}
	s.tipRoot = s.roots.generate()
	return s
}

// ForkBlockNumber returns the pinned remote height.
func (s *ForkState) ForkBlockNumber() uint64 { return s.forkBlock }

func (s *ForkState) Account(addr types.Address) (*types.Account, error) {
	if err := s.hydrateAccount(addr); err != nil {
		return nil, err
	}
	return s.local.Account(addr), nil
}

func (s *ForkState) hydrateAccount(addr types.Address) error {
	if s.fetchedAccounts[addr] || s.removedAccounts[addr] {
		return nil
	}
	_, err, _ := s.flight.Do("acct:"+addr.Hex(), func() (interface{}, error) {
		acct, err := s.remote.BalanceAt(addr, s.forkBlock)
		if err != nil {
			return nil, err
		}
		m := s.local.BeginMutation()
		if acct != nil && !acct.IsEmpty() {
			if acct.CodeHash != types.EmptyCodeHash {
				code, err := s.remote.CodeAt(addr, s.forkBlock)
				if err != nil {
					m.Close()
					return nil, err
				}
				m.InsertCode(code)
			}
			m.SetAccount(addr, acct)
		}
		m.Close()
		s.fetchedAccounts[addr] = true
		return nil, nil
	})
	return err
}

func (s *ForkState) StorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	if slots := s.fetchedSlots[addr]; slots != nil && slots[key] {
		return s.local.StorageSlot(addr, key), nil
	}
	if s.removedAccounts[addr] || s.clearedStorage[addr] {
		return s.local.StorageSlot(addr, key), nil
	}
	_, err, _ := s.flight.Do("slot:"+addr.Hex()+key.Hex(), func() (interface{}, error) {
		value, err := s.remote.StorageAt(addr, key, s.forkBlock)
		if err != nil {
			return nil, err
		}
		if value != (types.Hash{}) {
			m := s.local.BeginMutation()
			m.SetStorageSlot(addr, key, value)
			m.Close()
		}
		if s.fetchedSlots[addr] == nil {
			s.fetchedSlots[addr] = make(map[types.Hash]bool)
		}
		s.fetchedSlots[addr][key] = true
		return nil, nil
	})
	if err != nil {
		return types.Hash{}, err
	}
	return s.local.StorageSlot(addr, key), nil
}

func (s *ForkState) Code(codeHash types.Hash) ([]byte, error) {
	return s.local.Code(codeHash)
}

func (s *ForkState) StateRoot() (types.Hash, error) {
	return s.tipRoot, nil
}

func (s *ForkState) StorageRoot(addr types.Address) (types.Hash, error) {
	return s.local.StorageRoot(addr), nil
}

// Latest exposes the local overlay for the miner's working copy.
func (s *ForkState) Latest() *trie.StateRepr { return s.local }

// RootAfter reserves the synthetic root the next CommitBlock will adopt,
// so the sealed header and the committed state agree.
func (s *ForkState) RootAfter(types.StateDiff) (types.Hash, error) {
	if s.pendingRoot == nil {
		root := s.roots.generate()
		s.pendingRoot = &root
	}
	return *s.pendingRoot, nil
}

func (s *ForkState) CommitBlock(number uint64, diff types.StateDiff) error {
	s.local.Commit(diff)
	for addr, change := range diff {
		s.fetchedAccounts[addr] = true
		if change.Status == types.AccountSelfDestructed {
			s.removedAccounts[addr] = true
			delete(s.fetchedSlots, addr)
			delete(s.clearedStorage, addr)
			continue
		}
		if change.Status == types.AccountCreated {
			s.clearedStorage[addr] = true
			delete(s.fetchedSlots, addr)
		}
		delete(s.removedAccounts, addr)
		for key := range change.Storage {
			if s.fetchedSlots[addr] == nil {
				s.fetchedSlots[addr] = make(map[types.Hash]bool)
			}
			s.fetchedSlots[addr][key] = true
		}
	}
	s.diffs = append(s.diffs, blockDiff{number: number, diff: diff.Copy()})
	s.tipNumber = number
	if s.pendingRoot != nil {
		s.tipRoot = *s.pendingRoot
		s.pendingRoot = nil
	} else {
		s.tipRoot = s.roots.generate()
	}
	return nil
}

func (s *ForkState) ApplyOverride(number uint64, override types.StateOverride) error {
	s.local.ApplyOverride(override)
	for addr, ov := range override {
		s.fetchedAccounts[addr] = true
		delete(s.removedAccounts, addr)
		for key := range ov.Storage {
			if s.fetchedSlots[addr] == nil {
				s.fetchedSlots[addr] = make(map[types.Hash]bool)
			}
			s.fetchedSlots[addr][key] = true
		}
	}
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
	s.tipRoot = s.roots.generate()
	return nil
}

func (s *ForkState) Snapshot() (types.Hash, error) {
	root := s.tipRoot
	s.snapshots[root] = &forkSnapshot{
		repr:      s.local.Clone(),
		fetchedA:  copyAddrSet(s.fetchedAccounts),
		fetchedS:  copySlotSet(s.fetchedSlots),
		removed:   copyAddrSet(s.removedAccounts),
		cleared:   copyAddrSet(s.clearedStorage),
		diffLen:   len(s.diffs),
		tipNumber: s.tipNumber,
		tipRoot:   s.tipRoot,
		overrides: copyOverrides(s.overrides),
	}
	return root, nil
}

func (s *ForkState) RestoreSnapshot(root types.Hash) error {
	rec, ok := s.snapshots[root]
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidStateRoot, root)
	}
	s.local = rec.repr.Clone()
	s.fetchedAccounts = copyAddrSet(rec.fetchedA)
	s.fetchedSlots = copySlotSet(rec.fetchedS)
	s.removedAccounts = copyAddrSet(rec.removed)
	s.clearedStorage = copyAddrSet(rec.cleared)
	s.diffs = s.diffs[:rec.diffLen]
	s.tipNumber = rec.tipNumber
	s.tipRoot = rec.tipRoot
	s.overrides = copyOverrides(rec.overrides)
	return nil
}

func (s *ForkState) RevertToBlock(number uint64) error {
	if number < s.forkBlock || number > s.tipNumber {
		return fmt.Errorf("%w: block %d outside [%d, %d]", ErrCannotRevert, number, s.forkBlock, s.tipNumber)
	}
	repr, rb, err := s.rebuildThrough(number)
	if err != nil {
		return err
	}
	s.local = repr
	s.fetchedAccounts = rb.fetchedA
	s.fetchedSlots = rb.fetchedS
	s.removedAccounts = rb.removed
	s.clearedStorage = rb.cleared
	idx := 0
	for idx < len(s.diffs) && s.diffs[idx].number <= number {
		idx++
	}
	s.diffs = s.diffs[:idx]
	for n := range s.overrides {
		if n > number {
			delete(s.overrides, n)
		}
	}
	s.tipNumber = number
	s.tipRoot = s.roots.generate()
	return nil
}

// rebuildThrough replays local diffs and overrides on a fresh overlay,
// leaving remote facts to be re-fetched lazily (the durable response cache
// makes the re-fetch free).
type rebuiltSets struct {
	fetchedA map[types.Address]bool
	fetchedS map[types.Address]map[types.Hash]bool
	removed  map[types.Address]bool
	cleared  map[types.Address]bool
}

func (s *ForkState) rebuildThrough(number uint64) (*trie.StateRepr, *rebuiltSets, error) {
	repr := trie.NewStateRepr()
	rb := &rebuiltSets{
		fetchedA: make(map[types.Address]bool),
		fetchedS: make(map[types.Address]map[types.Hash]bool),
		removed:  make(map[types.Address]bool),
		cleared:  make(map[types.Address]bool),
	}
	apply := func(diff types.StateDiff) {
		repr.Commit(diff)
		for addr, change := range diff {
			rb.fetchedA[addr] = true
			if change.Status == types.AccountSelfDestructed {
				rb.removed[addr] = true
				delete(rb.fetchedS, addr)
				delete(rb.cleared, addr)
				continue
			}
			if change.Status == types.AccountCreated {
				rb.cleared[addr] = true
				delete(rb.fetchedS, addr)
			}
			delete(rb.removed, addr)
			for key := range change.Storage {
				if rb.fetchedS[addr] == nil {
					rb.fetchedS[addr] = make(map[types.Hash]bool)
				}
				rb.fetchedS[addr][key] = true
			}
		}
	}
	applyOverride := func(ov types.StateOverride) {
		repr.ApplyOverride(ov)
		for addr, entry := range ov {
			rb.fetchedA[addr] = true
			delete(rb.removed, addr)
			for key := range entry.Storage {
				if rb.fetchedS[addr] == nil {
					rb.fetchedS[addr] = make(map[types.Hash]bool)
				}
				rb.fetchedS[addr][key] = true
			}
		}
	}
	if ov, ok := s.overrides[s.forkBlock]; ok {
		applyOverride(ov)
	}
	for _, bd := range s.diffs {
		if bd.number > number {
			break
		}
		apply(bd.diff)
		if ov, ok := s.overrides[bd.number]; ok && bd.number != s.forkBlock {
			applyOverride(ov)
		}
	}
	return repr, rb, nil
}

func (s *ForkState) StateAtBlock(number uint64) (Reader, error) {
	if number >= s.tipNumber {
		return forkReader{state: s, block: s.forkBlock, overlay: s.local, hasOverlay: true, fetchedA: s.fetchedAccounts, fetchedS: s.fetchedSlots, removed: s.removedAccounts, cleared: s.clearedStorage}, nil
	}
	if number <= s.forkBlock {
		// Pure remote view pinned at the requested height, save for the
		// genesis prefund override which applies at the fork point.
		r := forkReader{state: s, block: number}
		if number == s.forkBlock {
			if ov, ok := s.overrides[s.forkBlock]; ok {
				repr := trie.NewStateRepr()
				repr.ApplyOverride(ov)
				r.overlay = repr
				r.hasOverlay = true
				r.fetchedA = make(map[types.Address]bool, len(ov))
				r.fetchedS = make(map[types.Address]map[types.Hash]bool)
				for addr, entry := range ov {
					r.fetchedA[addr] = true
					for key := range entry.Storage {
						if r.fetchedS[addr] == nil {
							r.fetchedS[addr] = make(map[types.Hash]bool)
						}
						r.fetchedS[addr][key] = true
					}
				}
			}
		}
		return r, nil
	}
	repr, rb, err := s.rebuildThrough(number)
	if err != nil {
		return nil, err
	}
	return forkReader{state: s, block: s.forkBlock, overlay: repr, hasOverlay: true, fetchedA: rb.fetchedA, fetchedS: rb.fetchedS, removed: rb.removed, cleared: rb.cleared}, nil
}

// forkReader reads an overlay first and falls through to the remote client
// pinned at a fixed height.
type forkReader struct {
	state      *ForkState
	block      uint64
	overlay    *trie.StateRepr
	hasOverlay bool
	fetchedA   map[types.Address]bool
	fetchedS   map[types.Address]map[types.Hash]bool
	removed    map[types.Address]bool
	cleared    map[types.Address]bool
}

func (r forkReader) Account(addr types.Address) (*types.Account, error) {
	if r.removed[addr] {
		return nil, nil
	}
	if r.hasOverlay && r.fetchedA[addr] {
		return r.overlay.Account(addr), nil
	}
	return r.state.remote.BalanceAt(addr, r.block)
}

func (r forkReader) StorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	if r.removed[addr] {
		return types.Hash{}, nil
	}
	if r.hasOverlay {
		if slots := r.fetchedS[addr]; slots != nil && slots[key] {
			return r.overlay.StorageSlot(addr, key), nil
		}
		if r.cleared[addr] {
			return types.Hash{}, nil
		}
	}
	return r.state.remote.StorageAt(addr, key, r.block)
}

func (r forkReader) Code(codeHash types.Hash) ([]byte, error) {
	if r.hasOverlay {
		if code, err := r.overlay.Code(codeHash); err == nil {
			return code, nil
		}
	}
	return r.state.local.Code(codeHash)
}

func copyAddrSet(in map[types.Address]bool) map[types.Address]bool {
	out := make(map[types.Address]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySlotSet(in map[types.Address]map[types.Hash]bool) map[types.Address]map[types.Hash]bool {
	out := make(map[types.Address]map[types.Hash]bool, len(in))
	for addr, slots := range in {
		m := make(map[types.Hash]bool, len(slots))
		for k, v := range slots {
			m[k] = v
		}
		out[addr] = m
	}
	return out
}
