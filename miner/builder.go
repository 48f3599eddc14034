// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package miner builds blocks: it drains the mempool's iterator, executes
// transactions through the EVM glue, folds receipts and logs, and seals a
// header over the resulting state diff. It never commits; the provider
// commits the returned block and diff.
package miner

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/consensus/misc/eip1559"
	gethcore "github.com/luxfi/geth/core"
	"github.com/luxfi/geth/core/tracing"
	gethtypes "github.com/luxfi/geth/core/types"
	gethtrie "github.com/luxfi/geth/trie"

	"github.com/devchain-labs/devchain/core/blockchain"
	"github.com/devchain-labs/devchain/core/evm"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
)

var (
	// ErrTxExceedsBlockGas means the transaction does not fit in the
	// block's remaining gas; the miner skips the sender and moves on.
	ErrTxExceedsBlockGas = errors.New("transaction exceeds remaining block gas")

	// ErrGasPriceBelowBaseFee means the transaction cannot pay the block's
	// base fee; the miner skips the sender and moves on.
	ErrGasPriceBelowBaseFee = errors.New("gas price is less than base fee")
)

// BuilderOptions carries the per-block knobs the provider resolves before
// mining.
type BuilderOptions struct {
	Timestamp   uint64
	Coinbase    types.Address
	GasLimit    uint64
	PrevRandao  types.Hash
	BaseFee     *big.Int // nil means derive from the parent per EIP-1559
	ExtraData   []byte
	BlockReward *big.Int // nil means the spec's default reward
	// DAOActivationBlock, when set and equal to the block under
	// construction, triggers the DAO hardfork balance transfers during
	// finalization.
	DAOActivationBlock *uint64
}

// BlockBuilder accumulates one block's worth of executed transactions.
type BlockBuilder struct {
	chain   blockchain.Blockchain
	st      state.State
	parent  *types.Header
	env     *evm.BlockEnv
	journal *evm.Journal
	gasPool *gethcore.GasPool
	opts    BuilderOptions

	transactions []*types.Transaction
	receipts     []*types.Receipt
	results      []*evm.TxResult
	gasUsed      uint64
	blobGasUsed  uint64
}

// NewBlockBuilder opens a builder for the block after parent, reading the
// pre-state through st.
func NewBlockBuilder(chain blockchain.Blockchain, st state.State, parent *types.Header, opts BuilderOptions) *BlockBuilder {
	spec := chain.Spec()
	env := &evm.BlockEnv{
		Number:     parent.NumberU64() + 1,
		Time:       opts.Timestamp,
		GasLimit:   opts.GasLimit,
		Coinbase:   opts.Coinbase,
		Difficulty: blockDifficulty(spec),
		PrevRandao: opts.PrevRandao,
		ChainID:    chain.ChainID(),
		Spec:       spec,
		GetHash: func(n uint64) types.Hash {
			block, err := chain.BlockByNumber(n)
			if err != nil {
				return types.Hash{}
			}
			return block.Hash()
		},
	}
	if spec.HasBaseFee() {
		if opts.BaseFee != nil {
			env.BaseFee = new(big.Int).Set(opts.BaseFee)
		} else {
			env.BaseFee = eip1559.CalcBaseFee(evm.ChainConfig(chain.ChainID(), spec), types.ConvertHeaderToGeth(parent))
		}
	}
	return &BlockBuilder{
		chain:   chain,
		st:      st,
		parent:  parent,
		env:     env,
		journal: evm.NewJournal(st),
		gasPool: new(gethcore.GasPool).AddGas(opts.GasLimit),
		opts:    opts,
	}
}

func blockDifficulty(spec types.SpecID) *big.Int {
	if spec.IsPostMerge() {
		return new(big.Int)
	}
	return big.NewInt(1)
}

// BaseFee returns the base fee of the block under construction.
func (b *BlockBuilder) BaseFee() *big.Int { return b.env.BaseFee }

// GasUsed returns the gas consumed so far.
func (b *BlockBuilder) GasUsed() uint64 { return b.gasUsed }

// AddTransaction executes tx atop the working state. Skippable outcomes
// (does not fit the remaining gas, cannot pay the base fee) return the
// sentinel errors above; anything else from the interpreter is fatal to
// the block.
func (b *BlockBuilder) AddTransaction(tx *types.Transaction, sender types.Address, hooks *tracing.Hooks) (*evm.TxResult, error) {
	if tx.Gas > b.gasPool.Gas() {
		return nil, fmt.Errorf("%w: gas %d, remaining %d", ErrTxExceedsBlockGas, tx.Gas, b.gasPool.Gas())
	}
	if b.env.BaseFee != nil && tx.MaxGasPrice().Cmp(b.env.BaseFee) < 0 {
		return nil, fmt.Errorf("%w: price %s, base fee %s", ErrGasPriceBelowBaseFee, tx.MaxGasPrice(), b.env.BaseFee)
	}

	index := len(b.transactions)
	result, err := evm.ExecuteTransaction(b.journal, tx, sender, b.env, b.gasPool, index, hooks)
	if err != nil {
		return nil, err
	}

	b.gasUsed += result.UsedGas
	b.blobGasUsed += tx.BlobGas()
	b.transactions = append(b.transactions, tx)
	b.results = append(b.results, result)
	b.receipts = append(b.receipts, b.buildReceipt(tx, sender, result, index))
	return result, nil
}

func (b *BlockBuilder) buildReceipt(tx *types.Transaction, sender types.Address, result *evm.TxResult, index int) *types.Receipt {
	receipt := &types.Receipt{
		Type:              tx.Type,
		CumulativeGasUsed: b.gasUsed,
		Logs:              result.Logs,
		TxHash:            tx.Hash(),
		ContractAddress:   result.ContractAddress,
		GasUsed:           result.UsedGas,
		BlockNumber:       b.env.Number,
		TransactionIndex:  uint(index),
	}
	if b.env.Spec.AtLeast(types.Byzantium) {
		if result.Success {
			receipt.Status = types.ReceiptStatusSuccessful
		} else {
			receipt.Status = types.ReceiptStatusFailed
		}
	} else {
		// Pre-Byzantium receipts carry the intermediate state root.
		receipt.PostState = b.intermediateRoot().Bytes()
	}
	for _, l := range result.Logs {
		receipt.Bloom.AddToBloom(l)
	}
	return receipt
}

func (b *BlockBuilder) intermediateRoot() types.Hash {
	root, err := b.st.RootAfter(b.journal.BlockDiff())
	if err != nil {
		return types.Hash{}
	}
	return root
}

// Finalize credits the beneficiary, applies the DAO hardfork transfers
// when the block matches the configured activation, derives the header
// roots and the logs bloom, and seals the block. The returned diff is what
// the provider commits.
func (b *BlockBuilder) Finalize() (*types.Block, types.StateDiff, error) {
	reward := b.opts.BlockReward
	if reward == nil {
		reward = specBlockReward(b.env.Spec)
	}
	if reward.Sign() > 0 {
		amount, _ := uint256.FromBig(reward)
		b.journal.AddBalance(b.env.Coinbase, amount, tracing.BalanceIncreaseRewardMineBlock)
	}
	if b.opts.DAOActivationBlock != nil && *b.opts.DAOActivationBlock == b.env.Number {
		applyDAOFork(b.journal)
	}

	diff := b.journal.BlockDiff()
	stateRoot, err := b.st.RootAfter(diff)
	if err != nil {
		return nil, nil, err
	}

	encodedTxs := make([][]byte, len(b.transactions))
	for i, tx := range b.transactions {
		enc, err := tx.EncodeBinary()
		if err != nil {
			return nil, nil, err
		}
		encodedTxs[i] = enc
	}
	encodedReceipts := make([][]byte, len(b.receipts))
	for i, receipt := range b.receipts {
		enc, err := encodeReceipt(receipt)
		if err != nil {
			return nil, nil, err
		}
		encodedReceipts[i] = enc
	}

	header := &types.Header{
		ParentHash:  b.parent.Hash(),
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    b.env.Coinbase,
		Root:        stateRoot,
		TxHash:      deriveRoot(encodedTxs),
		ReceiptHash: deriveRoot(encodedReceipts),
		Bloom:       types.CreateBloom(b.receipts),
		Difficulty:  blockDifficulty(b.env.Spec),
		Number:      new(big.Int).SetUint64(b.env.Number),
		GasLimit:    b.env.GasLimit,
		GasUsed:     b.gasUsed,
		Time:        b.env.Time,
		Extra:       b.opts.ExtraData,
		MixDigest:   b.env.PrevRandao,
		BaseFee:     b.env.BaseFee,
	}
	var withdrawals []*types.Withdrawal
	if b.env.Spec.HasWithdrawals() {
		withdrawals = []*types.Withdrawal{}
		root := types.EmptyRootHash
		header.WithdrawalsHash = &root
	}
	if b.env.Spec.HasBlobGas() {
		blobGasUsed := b.blobGasUsed
		var excess uint64
		header.BlobGasUsed = &blobGasUsed
		header.ExcessBlobGas = &excess
		beacon := types.Hash{}
		header.ParentBeaconBlockRoot = &beacon
	}

	block := types.NewBlock(header, b.transactions, nil, withdrawals)
	blockHash := block.Hash()
	for _, receipt := range b.receipts {
		receipt.BlockHash = blockHash
		for _, l := range receipt.Logs {
			l.BlockHash = blockHash
			l.BlockNumber = b.env.Number
		}
	}
	return block, diff, nil
}

// Receipts returns the receipts accumulated so far.
func (b *BlockBuilder) Receipts() []*types.Receipt { return b.receipts }

// Results returns the per-transaction execution results.
func (b *BlockBuilder) Results() []*evm.TxResult { return b.results }

// specBlockReward returns the static block reward of the hardfork: five
// ether before Byzantium, three from Byzantium, two from Constantinople
// until the merge, zero after.
func specBlockReward(spec types.SpecID) *big.Int {
	ether := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	switch {
	case spec.IsPostMerge():
		return new(big.Int)
	case spec.AtLeast(types.Constantinople):
		return new(big.Int).Mul(big.NewInt(2), ether)
	case spec.AtLeast(types.Byzantium):
		return new(big.Int).Mul(big.NewInt(3), ether)
	default:
		return new(big.Int).Mul(big.NewInt(5), ether)
	}
}

// encodedList adapts a slice of pre-encoded items to the external
// library's DerivableList, so the header roots come out of DeriveSha over
// a stack trie like every other derive-root site in this lineage.
type encodedList [][]byte

func (l encodedList) Len() int { return len(l) }

func (l encodedList) EncodeIndex(i int, buf *bytes.Buffer) { buf.Write(l[i]) }

func deriveRoot(items [][]byte) types.Hash {
	return gethtypes.DeriveSha(encodedList(items), gethtrie.NewStackTrie(nil))
}

// encodeReceipt produces the consensus (typed-envelope) encoding used for
// the receipts root, delegating to the external library's receipt type.
func encodeReceipt(r *types.Receipt) ([]byte, error) {
	gr := &gethtypes.Receipt{
		Type:              r.Type,
		PostState:         r.PostState,
		Status:            r.Status,
		CumulativeGasUsed: r.CumulativeGasUsed,
		Bloom:             gethtypes.Bloom(r.Bloom),
	}
	gr.Logs = make([]*gethtypes.Log, len(r.Logs))
	for i, l := range r.Logs {
		gr.Logs[i] = &gethtypes.Log{Address: l.Address, Topics: l.Topics, Data: l.Data}
	}
	return gr.MarshalBinary()
}
