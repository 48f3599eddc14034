// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/devchain-labs/devchain/core/types"
)

// DiffReader overlays an uncommitted state diff on a base reader. It backs
// "pending"-tagged reads: the mining pipeline runs, its diff is layered
// here, and nothing is committed.
type DiffReader struct {
	base Reader
	diff types.StateDiff
}

// NewDiffReader returns a reader showing base with diff applied.
func NewDiffReader(base Reader, diff types.StateDiff) *DiffReader {
	return &DiffReader{base: base, diff: diff}
}

func (r *DiffReader) Account(addr types.Address) (*types.Account, error) {
	change, ok := r.diff[addr]
	if !ok {
		return r.base.Account(addr)
	}
	if change.Status == types.AccountSelfDestructed {
		return nil, nil
	}
	if change.Status == types.AccountTouched && change.Info.IsEmpty() {
		return nil, nil
	}
	return change.Info.Copy(), nil
}

func (r *DiffReader) StorageSlot(addr types.Address, key types.Hash) (types.Hash, error) {
	change, ok := r.diff[addr]
	if !ok {
		return r.base.StorageSlot(addr, key)
	}
	if change.Status == types.AccountSelfDestructed {
		return types.Hash{}, nil
	}
	if value, ok := change.Storage[key]; ok {
		return value, nil
	}
	if change.Status == types.AccountCreated {
		return types.Hash{}, nil
	}
	return r.base.StorageSlot(addr, key)
}

func (r *DiffReader) Code(codeHash types.Hash) ([]byte, error) {
	for _, change := range r.diff {
		if change.Code != nil && types.Keccak256Hash(change.Code) == codeHash {
			return change.Code, nil
		}
	}
	return r.base.Code(codeHash)
}
