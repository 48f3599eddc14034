// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"github.com/devchain-labs/devchain/core/evm"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/eth/tracers"
	"github.com/devchain-labs/devchain/rpc"
)

// DebugTraceTransaction re-executes a mined transaction with a step
// tracer and returns the recorded rows plus the execution outcome.
func (p *Provider) DebugTraceTransaction(txHash types.Hash, cfg tracers.StepConfig) ([]tracers.StructLog, *evm.TxResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracer := tracers.NewStepTracer(cfg, tracers.AllCapabilities())
	result, err := tracers.TraceTransaction(p.chain, p.st, txHash, tracer)
	if err != nil {
		return nil, nil, err
	}
	return tracer.Logs(), result, nil
}

// DebugTraceCall runs an unsigned call at the given block with a step
// tracer attached, without touching the chain.
func (p *Provider) DebugTraceCall(args TxArgs, spec rpc.BlockSpec, cfg tracers.StepConfig) ([]tracers.StructLog, *evm.TxResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	number, err := p.resolveBlockNumber(spec)
	if err != nil {
		return nil, nil, err
	}
	tx, err := p.buildTransactionLocked(args)
	if err != nil {
		return nil, nil, err
	}
	tracer := tracers.NewStepTracer(cfg, tracers.AllCapabilities())
	result, err := tracers.TraceCall(p.chain, p.st, number, tx, args.From, tracer)
	if err != nil {
		return nil, nil, err
	}
	return tracer.Logs(), result, nil
}

// TraceCallTree re-executes a mined transaction with the call-tree
// tracer and returns the recorded forest and any decoded console output.
func (p *Provider) TraceCallTree(txHash types.Hash) ([]*tracers.CallFrame, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracer := tracers.NewCallTreeTracer(tracers.AllCapabilities())
	if _, err := tracers.TraceTransaction(p.chain, p.st, txHash, tracer); err != nil {
		return nil, nil, err
	}
	return tracer.Trees(), tracer.ConsoleLogs(), nil
}
