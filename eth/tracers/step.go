// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracers

import (
	"strings"

	"github.com/holiman/uint256"
	gethcommon "github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	gethtypes "github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/core/vm"

	"github.com/devchain-labs/devchain/core/types"
)

// StepConfig tunes what each step record carries.
type StepConfig struct {
	EnableMemory     bool
	DisableStack     bool
	DisableStorage   bool
	EnableReturnData bool
}

// StructLog is one EIP-3155 trace row.
type StructLog struct {
	Pc         uint64                    `json:"pc"`
	Op         byte                      `json:"-"`
	OpName     string                    `json:"op"`
	Gas        uint64                    `json:"gas"`
	GasCost    uint64                    `json:"gasCost"`
	Depth      int                       `json:"depth"`
	MemorySize int                       `json:"memSize"`
	Stack      []uint256.Int             `json:"stack,omitempty"`
	Memory     []byte                    `json:"memory,omitempty"`
	ReturnData []byte                    `json:"returnData,omitempty"`
	Storage    map[types.Hash]types.Hash `json:"storage,omitempty"`
	Refund     uint64                    `json:"refund"`
	Err        string                    `json:"error,omitempty"`
}

// StepTracer records one StructLog per executed opcode, in the EIP-3155
// style. Gas costs for the call and create family are reported as zero, a
// limitation carried over from the original trace format this mirrors; do
// not rely on those rows for gas accounting.
type StepTracer struct {
	cfg  StepConfig
	caps Capabilities

	logs    []StructLog
	statedb tracing.StateDB
	usedGas uint64
	failed  bool
}

// NewStepTracer returns a step tracer with the given record options.
func NewStepTracer(cfg StepConfig, caps Capabilities) *StepTracer {
	return &StepTracer{cfg: cfg, caps: caps}
}

// Logs returns the recorded rows.
func (t *StepTracer) Logs() []StructLog { return t.logs }

// UsedGas returns the traced transaction's gas usage.
func (t *StepTracer) UsedGas() uint64 { return t.usedGas }

// Failed reports whether the traced transaction failed.
func (t *StepTracer) Failed() bool { return t.failed }

// Hooks builds the hook table for one transaction.
func (t *StepTracer) Hooks() *tracing.Hooks {
	hooks := &tracing.Hooks{
		OnTxStart: t.onTxStart,
		OnTxEnd:   t.onTxEnd,
		OnOpcode:  t.onOpcode,
		OnFault:   t.onFault,
	}
	return filterHooks(hooks, t.caps)
}

func (t *StepTracer) onTxStart(vmctx *tracing.VMContext, _ *gethtypes.Transaction, _ gethcommon.Address) {
	t.statedb = vmctx.StateDB
	t.logs = t.logs[:0]
}

func (t *StepTracer) onTxEnd(receipt *gethtypes.Receipt, err error) {
	if receipt != nil {
		t.usedGas = receipt.GasUsed
		t.failed = receipt.Status == gethtypes.ReceiptStatusFailed
	}
	if err != nil {
		t.failed = true
	}
}

// zeroCostOp reports the opcodes whose reported gas cost is pinned to
// zero; see the StepTracer doc comment.
func zeroCostOp(op byte) bool {
	switch vm.OpCode(op) {
	case vm.CREATE, vm.CREATE2, vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL:
		return true
	}
	return false
}

func (t *StepTracer) onOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	entry := StructLog{
		Pc:         pc,
		Op:         op,
		OpName:     vm.OpCode(op).String(),
		Gas:        gas,
		GasCost:    cost,
		Depth:      depth,
		MemorySize: len(scope.MemoryData()),
	}
	if t.statedb != nil {
		entry.Refund = t.statedb.GetRefund()
	}
	if zeroCostOp(op) {
		entry.GasCost = 0
	}
	if strings.Contains(entry.OpName, "not defined") {
		entry.Err = entry.OpName
	}
	if err != nil {
		entry.Err = err.Error()
	}
	if !t.cfg.DisableStack {
		entry.Stack = append([]uint256.Int(nil), scope.StackData()...)
	}
	if t.cfg.EnableMemory {
		entry.Memory = append([]byte(nil), scope.MemoryData()...)
	}
	if t.cfg.EnableReturnData {
		entry.ReturnData = append([]byte(nil), rData...)
	}
	if !t.cfg.DisableStorage && t.statedb != nil {
		t.captureStorage(&entry, op, scope)
	}
	t.logs = append(t.logs, entry)
}

// captureStorage records the touched slot on SLOAD and SSTORE.
func (t *StepTracer) captureStorage(entry *StructLog, op byte, scope tracing.OpContext) {
	stack := scope.StackData()
	if len(stack) == 0 {
		return
	}
	switch vm.OpCode(op) {
	case vm.SLOAD:
		key := types.Hash(stack[len(stack)-1].Bytes32())
		value := t.statedb.GetState(scope.Address(), key)
		entry.Storage = map[types.Hash]types.Hash{key: value}
	case vm.SSTORE:
		if len(stack) < 2 {
			return
		}
		key := types.Hash(stack[len(stack)-1].Bytes32())
		value := types.Hash(stack[len(stack)-2].Bytes32())
		entry.Storage = map[types.Hash]types.Hash{key: value}
	}
}

func (t *StepTracer) onFault(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, depth int, err error) {
	if len(t.logs) > 0 && t.logs[len(t.logs)-1].Pc == pc {
		t.logs[len(t.logs)-1].Err = err.Error()
		return
	}
	t.onOpcode(pc, op, gas, cost, scope, nil, depth, err)
}
