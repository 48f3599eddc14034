// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownBlockNumber is returned for historical queries past the
	// chain tip.
	ErrUnknownBlockNumber = errors.New("unknown block number")

	// ErrUnknownBlockHash is returned for lookups of a hash the chain
	// never produced.
	ErrUnknownBlockHash = errors.New("unknown block hash")

	// ErrBlockNumberTooLarge is returned when a 256-bit block number does
	// not fit in 64 bits.
	ErrBlockNumberTooLarge = errors.New("block number does not fit in 64 bits")

	// ErrInvalidBlockNumber is returned when an inserted block does not
	// extend the tip by exactly one.
	ErrInvalidBlockNumber = errors.New("invalid block number")

	// ErrInvalidParentHash is returned when an inserted block's parent
	// hash does not match the current last block.
	ErrInvalidParentHash = errors.New("invalid parent hash")

	// ErrInvalidTimestamp is returned when an inserted block's timestamp
	// is not strictly greater than its parent's.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrGasUsedExceedsLimit is returned when a block reports more gas
	// used than its limit.
	ErrGasUsedExceedsLimit = errors.New("gas used exceeds gas limit")

	// ErrMissingBaseFee is returned when a London-or-later block lacks a
	// base fee, or a pre-London block carries one.
	ErrMissingBaseFee = errors.New("base fee does not match hardfork")

	// ErrMissingWithdrawals is returned when a Shanghai-or-later block
	// lacks a withdrawals root, or an earlier block carries one.
	ErrMissingWithdrawals = errors.New("withdrawals root does not match hardfork")

	// ErrMissingBlobGas is returned when a Cancun-or-later block lacks
	// its blob gas fields, or an earlier block carries them.
	ErrMissingBlobGas = errors.New("blob gas fields do not match hardfork")

	// ErrMissingPrevrandao is returned when a post-merge block carries a
	// nonzero difficulty in place of prevrandao.
	ErrMissingPrevrandao = errors.New("post-merge block must carry prevrandao, not difficulty")

	// ErrMissingParentBeaconBlockRoot is returned when a Cancun-or-later
	// block lacks the parent beacon block root.
	ErrMissingParentBeaconBlockRoot = errors.New("missing parent beacon block root")

	// ErrInvalidHardfork is returned at startup when a fork is requested
	// below Spurious Dragon, where empty-account semantics diverge.
	ErrInvalidHardfork = errors.New("cannot fork below spurious dragon")
)

// MissingHardforkActivationsError is fatal at startup: the remote chain is
// not in the hardfork activation table, so historical spec ids cannot be
// determined.
type MissingHardforkActivationsError struct {
	ChainID uint64
}

func (e *MissingHardforkActivationsError) Error() string {
	return fmt.Sprintf("missing hardfork activations for chain %d", e.ChainID)
}
