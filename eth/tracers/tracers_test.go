// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracers

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	gethcommon "github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/vm"
	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

// fakeScope implements the opcode hook's scope argument.
type fakeScope struct {
	stack  []uint256.Int
	memory []byte
	addr   gethcommon.Address
}

func (s *fakeScope) MemoryData() []byte          { return s.memory }
func (s *fakeScope) StackData() []uint256.Int    { return s.stack }
func (s *fakeScope) Caller() gethcommon.Address  { return gethcommon.Address{} }
func (s *fakeScope) Address() gethcommon.Address { return s.addr }
func (s *fakeScope) CallValue() *uint256.Int     { return uint256.NewInt(0) }
func (s *fakeScope) CallInput() []byte           { return nil }
func (s *fakeScope) ContractCode() []byte        { return nil }

func TestStepTracerRecordsRows(t *testing.T) {
	tracer := NewStepTracer(StepConfig{}, AllCapabilities())
	hooks := tracer.Hooks()
	require.NotNil(t, hooks.OnOpcode)

	scope := &fakeScope{stack: []uint256.Int{*uint256.NewInt(1)}}
	hooks.OnOpcode(0, byte(vm.PUSH1), 100000, 3, scope, nil, 1, nil)
	hooks.OnOpcode(2, byte(vm.ADD), 99997, 3, scope, nil, 1, nil)

	logs := tracer.Logs()
	require.Len(t, logs, 2)
	require.Equal(t, uint64(0), logs[0].Pc)
	require.Equal(t, "PUSH1", logs[0].OpName)
	require.Equal(t, uint64(3), logs[0].GasCost)
	require.Len(t, logs[0].Stack, 1)
}

// Gas costs for the call and create family are pinned to zero.
func TestStepTracerCallCreateGasCostZero(t *testing.T) {
	tracer := NewStepTracer(StepConfig{DisableStack: true}, AllCapabilities())
	hooks := tracer.Hooks()
	scope := &fakeScope{}

	for _, op := range []vm.OpCode{vm.CALL, vm.CALLCODE, vm.DELEGATECALL, vm.STATICCALL, vm.CREATE, vm.CREATE2} {
		hooks.OnOpcode(0, byte(op), 100000, 700, scope, nil, 1, nil)
	}
	for _, row := range tracer.Logs() {
		require.Zero(t, row.GasCost, row.OpName)
	}

	// A plain opcode keeps its real cost.
	hooks.OnOpcode(0, byte(vm.SSTORE), 100000, 20000, scope, nil, 1, nil)
	logs := tracer.Logs()
	require.Equal(t, uint64(20000), logs[len(logs)-1].GasCost)
}

func TestStepTracerUndefinedOpcode(t *testing.T) {
	tracer := NewStepTracer(StepConfig{DisableStack: true}, AllCapabilities())
	hooks := tracer.Hooks()
	hooks.OnOpcode(0, 0xf9, 1000, 0, &fakeScope{}, nil, 1, nil)

	row := tracer.Logs()[0]
	require.Contains(t, row.OpName, "not defined")
	require.Equal(t, row.OpName, row.Err)
}

func TestStepCapabilityGating(t *testing.T) {
	tracer := NewStepTracer(StepConfig{}, Capabilities{})
	hooks := tracer.Hooks()
	require.Nil(t, hooks.OnOpcode)
	require.Nil(t, hooks.OnFault)
}

func TestCallTreeBuildsNestedFrames(t *testing.T) {
	tracer := NewCallTreeTracer(AllCapabilities())
	hooks := tracer.Hooks()

	to := gethcommon.Address{1}
	inner := gethcommon.Address{2}
	hooks.OnEnter(0, byte(vm.CALL), gethcommon.Address{9}, to, []byte{0x01}, 100000, big.NewInt(5))
	hooks.OnEnter(1, byte(vm.STATICCALL), to, inner, nil, 50000, nil)
	hooks.OnExit(1, []byte{0x02}, 300, nil, false)
	hooks.OnExit(0, nil, 2100, nil, false)

	trees := tracer.Trees()
	require.Len(t, trees, 1)
	root := trees[0]
	require.Equal(t, types.Address(to), *root.Message.To)
	require.Equal(t, big.NewInt(5), root.Message.Value)
	require.NotNil(t, root.Result)
	require.Equal(t, uint64(2100), root.Result.GasUsed)
	require.Len(t, root.Children, 1)
	require.Equal(t, types.Address(inner), *root.Children[0].Message.To)
	require.Equal(t, []byte{0x02}, root.Children[0].Result.Output)
}

// Sub-calls that fail the interpreter's cheap preconditions never ran;
// their opening message is retracted.
func TestCallTreeRetractsPreconditionFailures(t *testing.T) {
	tracer := NewCallTreeTracer(AllCapabilities())
	hooks := tracer.Hooks()

	hooks.OnEnter(0, byte(vm.CALL), gethcommon.Address{1}, gethcommon.Address{2}, nil, 100000, nil)
	// A sub-call dies on the depth check before executing anything.
	hooks.OnEnter(1, byte(vm.CALL), gethcommon.Address{2}, gethcommon.Address{3}, nil, 1000, nil)
	hooks.OnExit(1, nil, 0, vm.ErrDepth, true)
	hooks.OnExit(0, nil, 2100, nil, false)

	trees := tracer.Trees()
	require.Len(t, trees, 1)
	require.Empty(t, trees[0].Children, "precondition failure must be retracted")
}

// A sub-call that reverted after running stays in the tree.
func TestCallTreeKeepsRealReverts(t *testing.T) {
	tracer := NewCallTreeTracer(AllCapabilities())
	hooks := tracer.Hooks()

	hooks.OnEnter(0, byte(vm.CALL), gethcommon.Address{1}, gethcommon.Address{2}, nil, 100000, nil)
	hooks.OnEnter(1, byte(vm.CALL), gethcommon.Address{2}, gethcommon.Address{3}, nil, 1000, nil)
	hooks.OnOpcode(0, byte(vm.PUSH1), 900, 3, &fakeScope{}, nil, 2, nil)
	hooks.OnExit(1, nil, 500, vm.ErrExecutionReverted, true)
	hooks.OnExit(0, nil, 2100, nil, false)

	trees := tracer.Trees()
	require.Len(t, trees[0].Children, 1)
	require.True(t, trees[0].Children[0].Result.Reverted)
}

func TestCallTreeNewTreePerTopLevelCall(t *testing.T) {
	tracer := NewCallTreeTracer(AllCapabilities())
	hooks := tracer.Hooks()

	hooks.OnEnter(0, byte(vm.CALL), gethcommon.Address{1}, gethcommon.Address{2}, nil, 100000, nil)
	hooks.OnExit(0, nil, 2100, nil, false)
	hooks.OnEnter(0, byte(vm.CREATE), gethcommon.Address{1}, gethcommon.Address{}, []byte{0x60}, 100000, nil)
	hooks.OnExit(0, nil, 53000, nil, false)

	trees := tracer.Trees()
	require.Len(t, trees, 2)
	require.Nil(t, trees[1].Message.To, "creation frame has no target")
}

func TestConsoleDecoder(t *testing.T) {
	decoder := NewConsoleDecoder()

	// log(uint256) with the value 42.
	payload := append([]byte{0xf8, 0x2c, 0x50, 0xf1}, make([]byte, 32)...)
	payload[4+31] = 42
	decoder.Observe(payload)
	require.Equal(t, []string{"42"}, decoder.Logs())

	// log(bool) true.
	boolPayload := append([]byte{0x32, 0x45, 0x8e, 0xed}, make([]byte, 32)...)
	boolPayload[4+31] = 1
	decoder.Observe(boolPayload)
	require.Equal(t, "true", decoder.Logs()[1])

	// Unknown selectors degrade to raw calldata.
	decoder.Observe([]byte{0xde, 0xad, 0xbe, 0xef})
	require.Contains(t, decoder.Logs()[2], "console.log 0x")
}

func TestConsoleDecoderString(t *testing.T) {
	decoder := NewConsoleDecoder()
	msg := "hello"
	args := make([]byte, 96)
	args[31] = 32 // offset
	args[63] = byte(len(msg))
	copy(args[64:], msg)
	decoder.Observe(append([]byte{0x41, 0x30, 0x4f, 0xac}, args...))
	require.Equal(t, []string{"hello"}, decoder.Logs())
}

func TestCallTreeObservesConsoleCalls(t *testing.T) {
	tracer := NewCallTreeTracer(AllCapabilities())
	hooks := tracer.Hooks()

	payload := append([]byte{0xf8, 0x2c, 0x50, 0xf1}, make([]byte, 32)...)
	payload[4+31] = 7
	hooks.OnEnter(0, byte(vm.CALL), gethcommon.Address{1}, gethcommon.Address(ConsoleLogAddress), payload, 100000, nil)
	hooks.OnExit(0, nil, 100, nil, false)

	require.Equal(t, []string{"7"}, tracer.ConsoleLogs())
}
