// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package tracers instruments EVM execution: an EIP-3155-style step tracer
// and a call-tree tracer, both expressed as hook tables the interpreter
// dispatches directly, so tracing costs nothing when a capability is not
// requested.
package tracers

import (
	"errors"

	"github.com/luxfi/geth/core/tracing"
)

var (
	// ErrInvalidSpecID rejects trace requests against hardforks older
	// than Spurious Dragon, whose empty-account semantics the tracers do
	// not model.
	ErrInvalidSpecID = errors.New("cannot trace below spurious dragon")

	// ErrInvalidTransactionHash rejects trace requests for unknown
	// transactions.
	ErrInvalidTransactionHash = errors.New("unknown transaction hash")
)

// Capabilities selects which hooks a tracer registers. The interpreter's
// handler table is rewritten once per transaction with exactly the
// requested hooks, keeping unselected events out of the dispatch path.
type Capabilities struct {
	Step        bool
	CallStart   bool
	CallEnd     bool
	CreateStart bool
	CreateEnd   bool
}

// AllCapabilities requests every hook.
func AllCapabilities() Capabilities {
	return Capabilities{Step: true, CallStart: true, CallEnd: true, CreateStart: true, CreateEnd: true}
}

// Tracer is anything that can produce a hook table for one transaction.
type Tracer interface {
	Hooks() *tracing.Hooks
}

// create-type call frames carry these type bytes in the enter hook.
const (
	opCreate  = byte(0xf0)
	opCall    = byte(0xf1)
	opCreate2 = byte(0xf5)
)

func isCreate(typ byte) bool { return typ == opCreate || typ == opCreate2 }

// filterHooks clears the hooks a capability set does not request.
func filterHooks(hooks *tracing.Hooks, caps Capabilities) *tracing.Hooks {
	out := *hooks
	if !caps.Step {
		out.OnOpcode = nil
		out.OnFault = nil
	}
	if !caps.CallStart && !caps.CreateStart {
		out.OnEnter = nil
	}
	if !caps.CallEnd && !caps.CreateEnd {
		out.OnExit = nil
	}
	return &out
}
