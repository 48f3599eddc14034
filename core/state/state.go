// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state provides the mutable world state of the runtime: a local
// layered state reconstructed from genesis, and a forked state that reads
// through to a remote chain pinned at a fork height. Both present the same
// interface to the miner, the EVM glue, and the provider.
package state

import (
	"errors"

	"github.com/devchain-labs/devchain/core/types"
)

var (
	// ErrInvalidStateRoot is returned when a snapshot restore names a root
	// the state has never produced or no longer retains.
	ErrInvalidStateRoot = errors.New("invalid state root")

	// ErrCannotRevert is returned when a revert targets a block number the
	// diff chain cannot reconstruct.
	ErrCannotRevert = errors.New("cannot revert state")
)

// Reader is the read-only view of a world state at one point in history.
type Reader interface {
	// Account returns the account at addr, or nil when absent.
	Account(addr types.Address) (*types.Account, error)
	// StorageSlot returns one storage slot; the zero hash when absent.
	StorageSlot(addr types.Address, key types.Hash) (types.Hash, error)
	// Code returns the bytecode stored under codeHash.
	Code(codeHash types.Hash) ([]byte, error)
}

// State is the full mutable world-state contract shared by the layered and
// forked implementations.
type State interface {
	Reader

	// StateRoot returns the current state root. Forked states return a
	// synthetic root that is stable but never advertised as canonical.
	StateRoot() (types.Hash, error)
	// StorageRoot returns one account's storage root.
	StorageRoot(addr types.Address) (types.Hash, error)
	// RootAfter returns the state root the state would have after
	// committing diff, without committing it. The miner uses it to seal a
	// header before the provider commits the block.
	RootAfter(diff types.StateDiff) (types.Hash, error)

	// CommitBlock folds one mined block's diff into the state and appends
	// it to the diff chain used for historical reconstruction.
	CommitBlock(number uint64, diff types.StateDiff) error
	// ApplyOverride layers an irregular, cheat-induced override keyed by
	// the block number current when the cheat ran. Overrides are layered
	// after that block's own diff during reconstruction, never merged
	// into it.
	ApplyOverride(number uint64, override types.StateOverride) error

	// Snapshot captures the current state and returns its root as the
	// snapshot id.
	Snapshot() (types.Hash, error)
	// RestoreSnapshot replaces the current state with the snapshot
	// identified by root and truncates the diff chain accordingly.
	RestoreSnapshot(root types.Hash) error
	// RevertToBlock rolls the state back so its tip matches the given
	// block number.
	RevertToBlock(number uint64) error

	// StateAtBlock returns a read-only view of the state as of the given
	// block, with any irregular overrides up to and including that block
	// layered in.
	StateAtBlock(number uint64) (Reader, error)
}
