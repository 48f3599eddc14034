// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracers

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
	gethcommon "github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	gethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/core/vm"

	"github.com/devchain-labs/devchain/core/types"
)

// CallMessage is the opening record of one call or create frame.
type CallMessage struct {
	Depth       int
	Caller      types.Address
	To          *types.Address // nil for creation
	GasLimit    uint64
	Data        []byte
	Value       *big.Int
	CodeAddress *types.Address
	Code        []byte
}

// CallStep is one opcode observation inside a frame.
type CallStep struct {
	Pc       uint64
	Depth    int
	Opcode   string
	StackTop *uint256.Int
}

// CallResult closes a frame.
type CallResult struct {
	GasUsed  uint64
	Output   []byte
	Err      error
	Reverted bool
}

// CallFrame is one node of the call tree.
type CallFrame struct {
	Message  CallMessage
	Steps    []CallStep
	Result   *CallResult
	Children []*CallFrame
}

// CallTreeTracer records a forest of message trees, one tree per
// top-level transaction. Sub-calls that die on the interpreter's cheap
// preconditions (call depth, sender funds, static-call write protection)
// never ran, so their opening message is retracted rather than left in
// the tree as noise.
type CallTreeTracer struct {
	caps Capabilities

	trees   []*CallFrame
	stack   []*CallFrame
	console *ConsoleDecoder
}

// NewCallTreeTracer returns a tracer recording the requested events.
func NewCallTreeTracer(caps Capabilities) *CallTreeTracer {
	return &CallTreeTracer{caps: caps, console: NewConsoleDecoder()}
}

// Trees returns the recorded forest.
func (t *CallTreeTracer) Trees() []*CallFrame { return t.trees }

// ConsoleLogs returns the decoded console.log output observed while
// tracing.
func (t *CallTreeTracer) ConsoleLogs() []string { return t.console.Logs() }

// Hooks builds the hook table for one transaction.
func (t *CallTreeTracer) Hooks() *tracing.Hooks {
	hooks := &tracing.Hooks{
		OnTxStart: t.onTxStart,
		OnEnter:   t.onEnter,
		OnExit:    t.onExit,
		OnOpcode:  t.onOpcode,
	}
	return filterHooks(hooks, t.caps)
}

func (t *CallTreeTracer) onTxStart(*tracing.VMContext, *gethtypes.Transaction, gethcommon.Address) {
	t.stack = t.stack[:0]
}

func (t *CallTreeTracer) onEnter(depth int, typ byte, from, to gethcommon.Address, input []byte, gas uint64, value *big.Int) {
	msg := CallMessage{
		Depth:    depth,
		Caller:   from,
		GasLimit: gas,
		Data:     append([]byte(nil), input...),
	}
	if value != nil {
		msg.Value = new(big.Int).Set(value)
	}
	if !isCreate(typ) {
		target := types.Address(to)
		msg.To = &target
		msg.CodeAddress = &target
	}
	if msg.To != nil && *msg.To == ConsoleLogAddress {
		t.console.Observe(input)
	}
	frame := &CallFrame{Message: msg}
	if len(t.stack) == 0 {
		t.trees = append(t.trees, frame)
	} else {
		parent := t.stack[len(t.stack)-1]
		parent.Children = append(parent.Children, frame)
	}
	t.stack = append(t.stack, frame)
}

// preconditionFailure reports errors raised before the callee executed a
// single opcode.
func preconditionFailure(err error) bool {
	return errors.Is(err, vm.ErrDepth) ||
		errors.Is(err, vm.ErrInsufficientBalance) ||
		errors.Is(err, vm.ErrWriteProtection)
}

func (t *CallTreeTracer) onExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	if len(t.stack) == 0 {
		return
	}
	frame := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]

	if err != nil && len(frame.Steps) == 0 && len(frame.Children) == 0 && preconditionFailure(err) {
		t.retract(frame)
		return
	}
	frame.Result = &CallResult{
		GasUsed:  gasUsed,
		Output:   append([]byte(nil), output...),
		Err:      err,
		Reverted: reverted,
	}
}

// retract removes a frame whose call never got past the handler's
// preconditions.
func (t *CallTreeTracer) retract(frame *CallFrame) {
	if len(t.stack) == 0 {
		for i, tree := range t.trees {
			if tree == frame {
				t.trees = append(t.trees[:i], t.trees[i+1:]...)
				return
			}
		}
		return
	}
	parent := t.stack[len(t.stack)-1]
	for i, child := range parent.Children {
		if child == frame {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			return
		}
	}
}

func (t *CallTreeTracer) onOpcode(pc uint64, op byte, _, _ uint64, scope tracing.OpContext, _ []byte, depth int, _ error) {
	if len(t.stack) == 0 {
		return
	}
	step := CallStep{Pc: pc, Depth: depth, Opcode: vm.OpCode(op).String()}
	if stack := scope.StackData(); len(stack) > 0 {
		top := stack[len(stack)-1]
		step.StackTop = &top
	}
	frame := t.stack[len(t.stack)-1]
	frame.Steps = append(frame.Steps, step)
}
