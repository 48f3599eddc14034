// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package provider exposes the one lock-guarded object the RPC server
// calls. It owns the blockchain, the world state, the mempool, and the
// cheat-operation bookkeeping; every handler serializes through its
// guard, which is the runtime's whole concurrency story.
package provider

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"

	"github.com/devchain-labs/devchain/core/blockchain"
	"github.com/devchain-labs/devchain/core/mempool"
	"github.com/devchain-labs/devchain/core/state"
	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
	"github.com/devchain-labs/devchain/rpc"
	"github.com/devchain-labs/devchain/rpc/remote"
	"github.com/devchain-labs/devchain/utils"
	"github.com/devchain-labs/devchain/utils/set"
)

// ClientVersion is reported by web3_clientVersion and hardhat_metadata.
const ClientVersion = "devchain/v0.1.0"

// ForkConfig selects forking from a remote chain.
type ForkConfig struct {
	// Client is the remote client; tests inject fakes, the CLI dials a
	// URL via remote.Dial.
	Client *remote.Client
	// BlockNumber pins the fork height; zero means the safe height
	// derived from the remote head.
	BlockNumber uint64
}

// Config carries everything the provider needs at construction.
type Config struct {
	ChainID            uint64
	Spec               types.SpecID
	GasLimit           uint64
	Coinbase           types.Address
	AllowSameTimestamp bool

	// GenesisAccounts are prefunded at genesis.
	GenesisAccounts map[types.Address]*uint256.Int
	// LocalKeys sign transactions submitted via eth_sendTransaction.
	LocalKeys map[types.Address]*ecdsa.PrivateKey

	Automine    bool
	Ordering    mempool.Ordering
	MinGasPrice *big.Int
	// InitialBaseFee overrides the genesis base fee (default one Gwei).
	InitialBaseFee *big.Int
	// InitialDate pins the genesis timestamp; nil means the clock's now.
	InitialDate *uint64

	Fork *ForkConfig

	Clock utils.Clock
}

type snapshotEntry struct {
	stateRoot          types.Hash
	blockNumber        uint64
	pool               *mempool.Pool
	blockTimeOffset    int64
	nextBlockTimestamp *uint64
}

// Provider is the guarded actor.
type Provider struct {
	mu sync.Mutex

	cfg   Config
	chain blockchain.Blockchain
	st    state.State
	pool  *mempool.Pool
	clock utils.Clock

	coinbase    types.Address
	minGasPrice *big.Int
	automine    bool
	ordering    mempool.Ordering

	blockTimeOffset    int64
	nextBlockTimestamp *uint64
	nextBaseFee        *big.Int
	prevRandao         types.Hash

	impersonated   set.Set[types.Address]
	loggingEnabled bool

	snapshots      map[uint64]*snapshotEntry
	nextSnapshotID uint64

	filters      map[uint64]*filterEntry
	nextFilterID uint64

	intervalStop chan struct{}
}

// New constructs the provider, its chain (local or forked), and its
// genesis state.
func New(cfg Config) (*Provider, error) {
	if cfg.Clock == nil {
		cfg.Clock = utils.RealClock{}
	}
	p := &Provider{
		cfg:            cfg,
		clock:          cfg.Clock,
		coinbase:       cfg.Coinbase,
		minGasPrice:    cfg.MinGasPrice,
		automine:       cfg.Automine,
		ordering:       cfg.Ordering,
		impersonated:   set.New[types.Address](),
		loggingEnabled: true,
		snapshots:      make(map[uint64]*snapshotEntry),
		filters:        make(map[uint64]*filterEntry),
		nextSnapshotID: 1,
		nextFilterID:   1,
	}
	if err := p.initChain(); err != nil {
		return nil, err
	}
	p.pool = mempool.New(cfg.GasLimit)
	log.Info("provider ready", "chainId", cfg.ChainID, "spec", cfg.Spec, "forked", cfg.Fork != nil)
	return p, nil
}

// initChain builds the blockchain and state from the configuration; Reset
// reuses it.
func (p *Provider) initChain() error {
	cfg := p.cfg
	chainCfg := blockchain.Config{
		ChainID:            cfg.ChainID,
		Spec:               cfg.Spec,
		GasLimit:           cfg.GasLimit,
		Coinbase:           cfg.Coinbase,
		InitialBaseFee:     cfg.InitialBaseFee,
		AllowSameTimestamp: cfg.AllowSameTimestamp,
	}
	if cfg.Fork != nil {
		chain, err := blockchain.NewForkedBlockchain(chainCfg, cfg.Fork.Client, cfg.Fork.BlockNumber)
		if err != nil {
			return err
		}
		override := make(types.StateOverride, len(cfg.GenesisAccounts))
		for addr, balance := range cfg.GenesisAccounts {
			override[addr] = &types.AccountOverride{Balance: new(uint256.Int).Set(balance)}
		}
		p.chain = chain
		p.st = state.NewForkState(cfg.Fork.Client, chain.ForkHeight(), override)
		return nil
	}

	st := state.NewLayeredState()
	genesisDiff := blockchain.GenesisDiff(cfg.GenesisAccounts, cfg.Spec)
	if err := st.CommitBlock(0, genesisDiff); err != nil {
		return err
	}
	root, err := st.StateRoot()
	if err != nil {
		return err
	}
	timestamp := uint64(p.clock.Time().Unix())
	if cfg.InitialDate != nil {
		timestamp = *cfg.InitialDate
	}
	chain, err := blockchain.NewLocalBlockchain(chainCfg, root, timestamp)
	if err != nil {
		return err
	}
	p.chain = chain
	p.st = st
	return nil
}

// Lock-free accessors for embedding servers; everything else takes the
// guard.

// ChainID returns the chain id.
func (p *Provider) ChainID() uint64 { return p.cfg.ChainID }

// Spec returns the configured hardfork.
func (p *Provider) Spec() types.SpecID { return p.cfg.Spec }

// Accounts lists the local signing accounts.
func (p *Provider) Accounts() []types.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Address, 0, len(p.cfg.LocalKeys))
	for addr := range p.cfg.LocalKeys {
		out = append(out, addr)
	}
	return out
}

// Coinbase returns the current beneficiary address.
func (p *Provider) Coinbase() types.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.coinbase
}

// BlockNumber returns the tip number.
func (p *Provider) BlockNumber() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chain.LastBlockNumber()
}

// Mining reports whether interval mining is active.
func (p *Provider) Mining() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intervalStop != nil
}

// resolveBlockNumber turns a block spec into a concrete number. The
// pending tag resolves to the tip: pending reads layer the pending diff
// separately.
func (p *Provider) resolveBlockNumber(spec rpc.BlockSpec) (uint64, error) {
	switch {
	case spec.Number != nil:
		if *spec.Number > p.chain.LastBlockNumber() {
			return 0, fmt.Errorf("%w: %d", blockchain.ErrUnknownBlockNumber, *spec.Number)
		}
		return *spec.Number, nil
	case spec.Hash != nil:
		block, err := p.chain.BlockByHash(*spec.Hash)
		if err != nil {
			return 0, err
		}
		return block.NumberU64(), nil
	}
	switch spec.Tag {
	case rpc.TagEarliest:
		if forked, ok := p.chain.(*blockchain.ForkedBlockchain); ok {
			return forked.ForkHeight(), nil
		}
		return 0, nil
	case "", rpc.TagLatest, rpc.TagSafe, rpc.TagFinalized, rpc.TagPending:
		return p.chain.LastBlockNumber(), nil
	}
	return 0, fmt.Errorf("%w: %q", rpc.ErrInvalidBlockSpec, spec.Tag)
}

// readerAt returns a state reader for the given spec, materializing the
// pending block when asked for it.
func (p *Provider) readerAt(spec rpc.BlockSpec) (state.Reader, error) {
	if spec.Tag == rpc.TagPending {
		reader, _, err := p.minePendingLocked()
		return reader, err
	}
	number, err := p.resolveBlockNumber(spec)
	if err != nil {
		return nil, err
	}
	return p.st.StateAtBlock(number)
}

// GetBalance reads an account balance at the given block.
func (p *Provider) GetBalance(addr types.Address, spec rpc.BlockSpec) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reader, err := p.readerAt(spec)
	if err != nil {
		return nil, err
	}
	acct, err := reader.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.Balance == nil {
		return new(big.Int), nil
	}
	return acct.Balance.ToBig(), nil
}

// GetTransactionCount reads an account nonce at the given block,
// including pending transactions when asked for the pending tag.
func (p *Provider) GetTransactionCount(addr types.Address, spec rpc.BlockSpec) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reader, err := p.readerAt(spec)
	if err != nil {
		return 0, err
	}
	acct, err := reader.Account(addr)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Nonce, nil
}

// GetCode reads an account's bytecode at the given block.
func (p *Provider) GetCode(addr types.Address, spec rpc.BlockSpec) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reader, err := p.readerAt(spec)
	if err != nil {
		return nil, err
	}
	acct, err := reader.Account(addr)
	if err != nil {
		return nil, err
	}
	if acct == nil || acct.CodeHash == types.EmptyCodeHash {
		return nil, nil
	}
	return reader.Code(acct.CodeHash)
}

// GetStorageAt reads one storage slot at the given block.
func (p *Provider) GetStorageAt(addr types.Address, key types.Hash, spec rpc.BlockSpec) (types.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reader, err := p.readerAt(spec)
	if err != nil {
		return types.Hash{}, err
	}
	return reader.StorageSlot(addr, key)
}

// GetBlock returns the block for a spec. For the pending tag it returns
// the uncommitted pending block, which has no transactions when nothing
// is pending.
func (p *Provider) GetBlock(spec rpc.BlockSpec) (*types.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if spec.Tag == rpc.TagPending {
		_, result, err := p.minePendingLocked()
		if err != nil {
			return nil, err
		}
		return result.Block, nil
	}
	number, err := p.resolveBlockNumber(spec)
	if err != nil {
		return nil, err
	}
	return p.chain.BlockByNumber(number)
}

// GetBlockByHash returns a block by hash.
func (p *Provider) GetBlockByHash(hash types.Hash) (*types.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chain.BlockByHash(hash)
}

// GetTransactionByHash finds a transaction in the pool or the chain.
func (p *Provider) GetTransactionByHash(hash types.Hash) (*types.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if entry := p.pool.TransactionByHash(hash); entry != nil {
		return entry.Transaction, nil
	}
	block, _, index, err := p.chain.BlockAndReceiptByTxHash(hash)
	if err != nil {
		return nil, err
	}
	return block.Transactions[index], nil
}

// GetTransactionReceipt returns the receipt of a mined transaction, or
// nil while it is still pending.
func (p *Provider) GetTransactionReceipt(hash types.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool.TransactionByHash(hash) != nil {
		return nil, nil
	}
	_, receipt, _, err := p.chain.BlockAndReceiptByTxHash(hash)
	if err != nil {
		return nil, nil
	}
	return receipt, nil
}

// PendingTransactions lists the pool's pending entries.
func (p *Provider) PendingTransactions() []*types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.pool.PendingTransactions()
	out := make([]*types.Transaction, len(entries))
	for i, entry := range entries {
		out[i] = entry.Transaction
	}
	return out
}

// Metadata describes the instance for hardhat_metadata.
type Metadata struct {
	ClientVersion    string
	ChainID          uint64
	InstanceID       types.Hash
	LatestBlockNumber uint64
	LatestBlockHash  types.Hash
	ForkedChainID    *uint64
	ForkBlockNumber  *uint64
	ForkBlockHash    *types.Hash
}

// GetMetadata reports the instance metadata.
func (p *Provider) GetMetadata() (*Metadata, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	last, err := p.chain.LastBlock()
	if err != nil {
		return nil, err
	}
	genesis, err := p.chain.BlockByNumber(firstBlockNumber(p.chain))
	if err != nil {
		return nil, err
	}
	md := &Metadata{
		ClientVersion:     ClientVersion,
		ChainID:           p.cfg.ChainID,
		InstanceID:        genesis.Hash(),
		LatestBlockNumber: last.NumberU64(),
		LatestBlockHash:   last.Hash(),
	}
	if forked, ok := p.chain.(*blockchain.ForkedBlockchain); ok {
		chainID := forked.ChainID()
		height := forked.ForkHeight()
		md.ForkedChainID = &chainID
		md.ForkBlockNumber = &height
		if forkBlock, err := forked.BlockByNumber(height); err == nil {
			hash := forkBlock.Hash()
			md.ForkBlockHash = &hash
		}
	}
	return md, nil
}

func firstBlockNumber(chain blockchain.Blockchain) uint64 {
	if forked, ok := chain.(*blockchain.ForkedBlockchain); ok {
		return forked.ForkHeight()
	}
	return 0
}

// SetLoggingEnabled gates the structured logger's verbosity for this
// provider's operations.
func (p *Provider) SetLoggingEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loggingEnabled = enabled
}

// Reset tears the instance down to a fresh chain, stopping the interval
// miner and clearing the pool, snapshots, and filters.
func (p *Provider) Reset(fork *ForkConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopIntervalMiningLocked()
	p.cfg.Fork = fork
	if err := p.initChain(); err != nil {
		return err
	}
	p.pool = mempool.New(p.cfg.GasLimit)
	p.snapshots = make(map[uint64]*snapshotEntry)
	p.filters = make(map[uint64]*filterEntry)
	p.blockTimeOffset = 0
	p.nextBlockTimestamp = nil
	p.nextBaseFee = nil
	log.Info("provider reset", "forked", fork != nil)
	return nil
}

// GetBlockTransactionCount returns how many transactions a block holds.
func (p *Provider) GetBlockTransactionCount(spec rpc.BlockSpec) (uint, error) {
	block, err := p.GetBlock(spec)
	if err != nil {
		return 0, err
	}
	return uint(len(block.Transactions)), nil
}

// GetTransactionByBlockNumberAndIndex resolves one transaction by block
// position; nil when the index is out of range.
func (p *Provider) GetTransactionByBlockNumberAndIndex(spec rpc.BlockSpec, index uint) (*types.Transaction, error) {
	block, err := p.GetBlock(spec)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(block.Transactions) {
		return nil, nil
	}
	return block.Transactions[index], nil
}

// GetTransactionByBlockHashAndIndex is the hash-addressed variant.
func (p *Provider) GetTransactionByBlockHashAndIndex(hash types.Hash, index uint) (*types.Transaction, error) {
	block, err := p.GetBlockByHash(hash)
	if err != nil {
		return nil, err
	}
	if int(index) >= len(block.Transactions) {
		return nil, nil
	}
	return block.Transactions[index], nil
}

// The net_ and web3_ surface is static for a single-process chain.

// NetVersion reports the chain id in net_version's decimal form.
func (p *Provider) NetVersion() string {
	return fmt.Sprintf("%d", p.cfg.ChainID)
}

// Listening is always true: the node serves as long as it runs.
func (p *Provider) Listening() bool { return true }

// PeerCount is always zero: there are no peers.
func (p *Provider) PeerCount() uint64 { return 0 }

// Syncing is always false: every block is produced locally.
func (p *Provider) Syncing() bool { return false }

// ClientVersionString reports web3_clientVersion.
func (p *Provider) ClientVersionString() string { return ClientVersion }

// Sha3 hashes arbitrary data with Keccak-256 for web3_sha3.
func (p *Provider) Sha3(data []byte) types.Hash {
	return types.Keccak256Hash(data)
}
