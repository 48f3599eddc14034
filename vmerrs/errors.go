// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package vmerrs names the interpreter's halt reasons with the strings
// the RPC surface reports. A halted or reverted transaction is a normal
// execution outcome, never an RPC error; these strings appear inside
// successful responses (receipt status, trace error fields). Read-only
// calls differ: a failed eth_call or gas estimate reports its halt reason
// as the call's error.
package vmerrs

import (
	"errors"

	"github.com/luxfi/geth/core/vm"
)

// Stable halt-reason strings, keyed off the interpreter's error values.
var haltReasons = []struct {
	err  error
	name string
}{
	{vm.ErrExecutionReverted, "execution reverted"},
	{vm.ErrOutOfGas, "out of gas"},
	{vm.ErrCodeStoreOutOfGas, "contract creation code storage out of gas"},
	{vm.ErrDepth, "max call depth exceeded"},
	{vm.ErrInsufficientBalance, "insufficient balance for transfer"},
	{vm.ErrContractAddressCollision, "contract address collision"},
	{vm.ErrMaxCodeSizeExceeded, "max code size exceeded"},
	{vm.ErrInvalidJump, "invalid jump destination"},
	{vm.ErrWriteProtection, "write protection"},
	{vm.ErrReturnDataOutOfBounds, "return data out of bounds"},
	{vm.ErrGasUintOverflow, "gas uint64 overflow"},
	{vm.ErrInvalidCode, "invalid code: must not begin with 0xef"},
	{vm.ErrNonceUintOverflow, "nonce uint64 overflow"},
}

// HaltReason renders an interpreter error as its stable RPC string. Nil
// in, empty string out.
func HaltReason(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range haltReasons {
		if errors.Is(err, entry.err) {
			return entry.name
		}
	}
	return err.Error()
}

// IsRevert reports whether the halt was an explicit REVERT, which
// carries return data the caller may want to decode.
func IsRevert(err error) bool {
	return errors.Is(err, vm.ErrExecutionReverted)
}
