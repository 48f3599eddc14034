// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"fmt"
	"math/big"
	"sort"

	gethcore "github.com/luxfi/geth/core"
	gethcrypto "github.com/luxfi/geth/crypto"
	"github.com/luxfi/geth/signer/core/apitypes"

	"github.com/devchain-labs/devchain/core/evm"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
	"github.com/devchain-labs/devchain/rpc"
	"github.com/devchain-labs/devchain/vmerrs"
)

// txIntrinsicGasFloor is the cheapest possible transaction.
const txIntrinsicGasFloor = uint64(21000)

// TxArgs is the unsigned transaction form accepted by eth_sendTransaction
// and eth_call.
type TxArgs struct {
	From                 types.Address
	To                   *types.Address
	Gas                  *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Value                *big.Int
	Nonce                *uint64
	Data                 []byte
	AccessList           types.AccessList
}

// buildTransactionLocked turns args into a Transaction with defaults
// resolved against the current state and chain configuration.
func (p *Provider) buildTransactionLocked(args TxArgs) (*types.Transaction, error) {
	if args.To == nil && len(args.Data) == 0 {
		return nil, ErrContractMissingData
	}
	tx := &types.Transaction{
		ChainID: new(big.Int).SetUint64(p.cfg.ChainID),
		To:      args.To,
		Value:   args.Value,
		Data:    args.Data,
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	if args.Gas != nil {
		tx.Gas = *args.Gas
	} else {
		tx.Gas = p.pool.BlockGasLimit()
	}
	if tx.Gas < txIntrinsicGasFloor {
		return nil, fmt.Errorf("%w: %d", ErrInsufficientGas, tx.Gas)
	}
	if args.Nonce != nil {
		tx.Nonce = *args.Nonce
	} else {
		nonce, err := p.nextNonceLocked(args.From)
		if err != nil {
			return nil, err
		}
		tx.Nonce = nonce
	}

	spec := p.cfg.Spec
	switch {
	case args.GasPrice != nil:
		tx.Type = types.LegacyTxType
		tx.GasPrice = args.GasPrice
	case spec.HasBaseFee():
		tx.Type = types.DynamicFeeTxType
		tx.AccessList = args.AccessList
		if args.MaxPriorityFeePerGas != nil {
			tx.GasTipCap = args.MaxPriorityFeePerGas
		} else {
			tx.GasTipCap = big.NewInt(1_000_000_000)
		}
		if args.MaxFeePerGas != nil {
			tx.GasFeeCap = args.MaxFeePerGas
		} else {
			last, err := p.chain.LastBlock()
			if err != nil {
				return nil, err
			}
			tx.GasFeeCap = new(big.Int).Set(tx.GasTipCap)
			if last.Header.BaseFee != nil {
				tx.GasFeeCap.Add(tx.GasFeeCap, new(big.Int).Mul(last.Header.BaseFee, big.NewInt(2)))
			}
		}
	default:
		tx.Type = types.LegacyTxType
		tx.GasPrice = big.NewInt(1_000_000_000)
	}
	return tx, nil
}

// nextNonceLocked is the pending-aware nonce for new transactions.
func (p *Provider) nextNonceLocked(addr types.Address) (uint64, error) {
	acct, err := p.st.Account(addr)
	if err != nil {
		return 0, err
	}
	var nonce uint64
	if acct != nil {
		nonce = acct.Nonce
	}
	for _, entry := range p.pool.PendingTransactions() {
		if entry.Sender == addr && entry.Transaction.Nonce >= nonce {
			nonce = entry.Transaction.Nonce + 1
		}
	}
	return nonce, nil
}

// SendTransaction signs (or impersonates) and submits a transaction,
// mining immediately under automine.
func (p *Provider) SendTransaction(args TxArgs) (types.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := p.buildTransactionLocked(args)
	if err != nil {
		return types.Hash{}, err
	}
	switch {
	case p.cfg.LocalKeys[args.From] != nil:
		if err := tx.Sign(p.cfg.LocalKeys[args.From], new(big.Int).SetUint64(p.cfg.ChainID)); err != nil {
			return types.Hash{}, err
		}
	case p.impersonated.Contains(args.From):
		tx.SetImpersonatedSender(args.From)
	default:
		return types.Hash{}, fmt.Errorf("%w: %s", ErrUnknownAddress, args.From)
	}
	return p.submitLocked(tx)
}

// SendRawTransaction decodes and submits a signed transaction.
func (p *Provider) SendRawTransaction(data []byte) (types.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tx, err := types.DecodeRawTransaction(data)
	if err != nil {
		return types.Hash{}, err
	}
	return p.submitLocked(tx)
}

func (p *Provider) submitLocked(tx *types.Transaction) (types.Hash, error) {
	entry, err := p.pool.AddTransaction(p.st, tx)
	if err != nil {
		return types.Hash{}, err
	}
	p.notifyPendingTxFiltersLocked(tx.Hash())
	p.updatePoolGaugesLocked()
	if p.loggingEnabled {
		log.Info("accepted transaction", "hash", tx.Hash(), "sender", entry.Sender, "nonce", tx.Nonce)
	}
	if p.automine {
		if _, err := p.mineOneLocked(nil); err != nil {
			return types.Hash{}, err
		}
	}
	return tx.Hash(), nil
}

// Call executes a read-only call against the state at the given block.
func (p *Provider) Call(args TxArgs, spec rpc.BlockSpec) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	result, err := p.executeCallLocked(args, spec, 0)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result.ReturnData, fmt.Errorf("%s", vmerrs.HaltReason(result.VMErr))
	}
	return result.ReturnData, nil
}

// executeCallLocked runs a call without touching the chain. gasOverride
// replaces args.Gas when nonzero.
func (p *Provider) executeCallLocked(args TxArgs, spec rpc.BlockSpec, gasOverride uint64) (*evm.TxResult, error) {
	number, err := p.resolveBlockNumber(spec)
	if err != nil {
		return nil, err
	}
	var reader state.Reader
	if spec.Tag == rpc.TagPending {
		reader, _, err = p.minePendingLocked()
	} else {
		reader, err = p.st.StateAtBlock(number)
	}
	if err != nil {
		return nil, err
	}
	block, err := p.chain.BlockByNumber(number)
	if err != nil {
		return nil, err
	}
	header := block.Header

	gas := header.GasLimit
	if args.Gas != nil {
		gas = *args.Gas
	}
	if gasOverride != 0 {
		gas = gasOverride
	}
	tx := &types.Transaction{
		Type:    types.LegacyTxType,
		To:      args.To,
		Gas:     gas,
		Value:   args.Value,
		Data:    args.Data,
		ChainID: new(big.Int).SetUint64(p.cfg.ChainID),
	}
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	if args.GasPrice != nil {
		tx.GasPrice = args.GasPrice
	} else {
		// Calls default to a zero fee so unfunded senders can query.
		tx.GasPrice = new(big.Int)
	}
	nonce, err := readerNonce(reader, args.From)
	if err != nil {
		return nil, err
	}
	tx.Nonce = nonce

	spec2, err := p.chain.SpecAtBlock(number)
	if err != nil {
		return nil, err
	}
	env := &evm.BlockEnv{
		Number:     header.NumberU64(),
		Time:       header.Time,
		GasLimit:   header.GasLimit,
		Coinbase:   header.Coinbase,
		Difficulty: header.Difficulty,
		PrevRandao: header.MixDigest,
		ChainID:    p.cfg.ChainID,
		Spec:       spec2,
	}
	if header.BaseFee != nil && args.GasPrice == nil {
		// Keep a zero effective price even on fee-market chains.
		env.BaseFee = new(big.Int)
	} else {
		env.BaseFee = header.BaseFee
	}
	journal := evm.NewJournal(reader)
	gasPool := new(gethcore.GasPool).AddGas(env.GasLimit)
	if gas > env.GasLimit {
		gasPool = new(gethcore.GasPool).AddGas(gas)
	}
	return evm.ExecuteTransaction(journal, tx, args.From, env, gasPool, 0, nil)
}

func readerNonce(reader state.Reader, addr types.Address) (uint64, error) {
	acct, err := reader.Account(addr)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Nonce, nil
}

// EstimateGas binary-searches the smallest gas limit at which the call
// succeeds.
func (p *Provider) EstimateGas(args TxArgs, spec rpc.BlockSpec) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hi := p.pool.BlockGasLimit()
	if args.Gas != nil && *args.Gas < hi {
		hi = *args.Gas
	}
	result, err := p.executeCallLocked(args, spec, hi)
	if err != nil {
		return 0, err
	}
	if !result.Success {
		return 0, fmt.Errorf("%s", vmerrs.HaltReason(result.VMErr))
	}

	lo := txIntrinsicGasFloor - 1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		result, err := p.executeCallLocked(args, spec, mid)
		if err != nil || !result.Success {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}

// Sign signs arbitrary data with a local account per the
// personal-message convention.
func (p *Provider) Sign(addr types.Address, data []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.cfg.LocalKeys[addr]
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(data), data)
	sig, err := gethcrypto.Sign(gethcrypto.Keccak256([]byte(msg)), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// SignTypedData signs EIP-712 typed data with a local account.
func (p *Provider) SignTypedData(addr types.Address, typedData apitypes.TypedData) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.cfg.LocalKeys[addr]
	if key == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, err
	}
	sig, err := gethcrypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// GasPrice suggests a price that clears the current base fee.
func (p *Provider) GasPrice() (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, err := p.chain.LastBlock()
	if err != nil {
		return nil, err
	}
	tip := big.NewInt(1_000_000_000)
	if last.Header.BaseFee == nil {
		return tip, nil
	}
	return new(big.Int).Add(last.Header.BaseFee, tip), nil
}

// FeeHistory reports base fees, gas-used ratios, and (optionally) tip
// percentiles over the closing blocks of the chain.
type FeeHistory struct {
	OldestBlock   uint64
	BaseFees      []*big.Int
	GasUsedRatios []float64
	Rewards       [][]*big.Int
}

// GetFeeHistory assembles the eth_feeHistory answer for the closing
// blocks of the chain.
func (p *Provider) GetFeeHistory(blockCount uint64, newest rpc.BlockSpec, percentiles []float64) (*FeeHistory, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	newestNumber, err := p.resolveBlockNumber(newest)
	if err != nil {
		return nil, err
	}
	if blockCount == 0 {
		blockCount = 1
	}
	oldest := uint64(0)
	if newestNumber+1 > blockCount {
		oldest = newestNumber + 1 - blockCount
	}
	history := &FeeHistory{OldestBlock: oldest}
	for n := oldest; n <= newestNumber; n++ {
		block, err := p.chain.BlockByNumber(n)
		if err != nil {
			return nil, err
		}
		baseFee := new(big.Int)
		if block.Header.BaseFee != nil {
			baseFee.Set(block.Header.BaseFee)
		}
		history.BaseFees = append(history.BaseFees, baseFee)
		ratio := 0.0
		if block.GasLimit() > 0 {
			ratio = float64(block.GasUsed()) / float64(block.GasLimit())
		}
		history.GasUsedRatios = append(history.GasUsedRatios, ratio)
		if len(percentiles) > 0 {
			history.Rewards = append(history.Rewards, p.blockRewardPercentiles(block, percentiles))
		}
	}
	return history, nil
}

func (p *Provider) blockRewardPercentiles(block *types.Block, percentiles []float64) []*big.Int {
	fees := make([]*big.Int, 0, len(block.Transactions))
	for _, tx := range block.Transactions {
		fees = append(fees, tx.EffectiveMinerFee(block.Header.BaseFee))
	}
	out := make([]*big.Int, len(percentiles))
	if len(fees) == 0 {
		for i := range out {
			out[i] = new(big.Int)
		}
		return out
	}
	sortBigInts(fees)
	for i, pct := range percentiles {
		idx := int(pct / 100 * float64(len(fees)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(fees) {
			idx = len(fees) - 1
		}
		out[i] = new(big.Int).Set(fees[idx])
	}
	return out
}

func sortBigInts(values []*big.Int) {
	sort.Slice(values, func(i, j int) bool { return values[i].Cmp(values[j]) < 0 })
}
