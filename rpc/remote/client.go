// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package remote implements the JSON-RPC client the forked blockchain and
// fork state read through. Every lookup is pinned to a concrete block
// number or hash; responses to cacheable methods are stored durably under
// their fingerprint, so a re-run against the same fork height touches the
// network only for what it has never seen.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	gethcommon "github.com/luxfi/geth/common"
	gethtypes "github.com/luxfi/geth/core/types"
	gethrpc "github.com/luxfi/geth/rpc"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/log"
	"github.com/devchain-labs/devchain/metrics"
	"github.com/devchain-labs/devchain/rpc"
	"github.com/devchain-labs/devchain/rpc/cache"
)

// Config tunes the client.
type Config struct {
	URL      string
	CacheDir string
	// MaxRetries bounds transport-level retries; protocol errors are
	// never retried.
	MaxRetries int
	// RetryBaseDelay is doubled per attempt.
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MaxRetries == 0 {
		out.MaxRetries = 3
	}
	if out.RetryBaseDelay == 0 {
		out.RetryBaseDelay = 250 * time.Millisecond
	}
	if out.RequestTimeout == 0 {
		out.RequestTimeout = 30 * time.Second
	}
	return out
}

// Client is a caching, retrying JSON-RPC client.
type Client struct {
	cfg   Config
	inner *gethrpc.Client
	cache *cache.ResponseCache
}

// Dial connects to the remote node and opens the response cache.
func Dial(cfg Config) (*Client, error) {
	inner, err := gethrpc.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	responseCache, err := cache.NewResponseCache(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg.withDefaults(), inner: inner, cache: responseCache}, nil
}

// NewClientWithTransport wires a pre-built transport, for tests.
func NewClientWithTransport(cfg Config, inner *gethrpc.Client, responseCache *cache.ResponseCache) *Client {
	return &Client{cfg: cfg.withDefaults(), inner: inner, cache: responseCache}
}

// call issues one request. When key is non-empty the response is served
// from and stored into the durable cache.
func (c *Client) call(result interface{}, key, method string, params ...interface{}) error {
	if key != "" {
		if cached, ok := c.cache.Get(key); ok {
			return json.Unmarshal(cached, result)
		}
	}
	raw, err := c.callRemote(method, params...)
	if err != nil {
		return err
	}
	if key != "" {
		c.cache.Put(key, raw)
	}
	return json.Unmarshal(raw, result)
}

// callRemote performs the network call with exponential backoff on
// transport failures. A JSON-RPC protocol error is the remote's answer,
// not a transient condition, and is returned immediately.
func (c *Client) callRemote(method string, params ...interface{}) (json.RawMessage, error) {
	var lastErr error
	delay := c.cfg.RetryBaseDelay
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.RemoteRetries.Inc()
			time.Sleep(delay)
			delay *= 2
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
		var raw json.RawMessage
		err := c.inner.CallContext(ctx, &raw, method, params...)
		cancel()
		metrics.RemoteRequests.Inc()
		if err == nil {
			return raw, nil
		}
		var protocolErr gethrpc.Error
		if errors.As(err, &protocolErr) {
			return nil, err
		}
		lastErr = err
		log.Warn("remote call failed, retrying", "method", method, "attempt", attempt, "err", err)
	}
	return nil, lastErr
}

// ChainID fetches the remote chain id.
func (c *Client) ChainID() (uint64, error) {
	key, _ := cache.Fingerprint("eth_chainId")
	var result string
	if err := c.call(&result, key, "eth_chainId"); err != nil {
		return 0, err
	}
	return rpc.ParseQuantity(result)
}

// LatestBlockNumber fetches the remote head. Never cached.
func (c *Client) LatestBlockNumber() (uint64, error) {
	var result string
	if err := c.call(&result, "", "eth_blockNumber"); err != nil {
		return 0, err
	}
	return rpc.ParseQuantity(result)
}

// BalanceAt assembles an account snapshot at a concrete height from the
// balance, nonce, and code queries. A wholly absent account returns nil.
func (c *Client) BalanceAt(addr types.Address, blockNumber uint64) (*types.Account, error) {
	blockArg := rpc.EncodeQuantity(blockNumber)
	spec := cache.BlockSpecArg(rpc.NumberSpec(blockNumber))

	var balanceHex string
	key, _ := cache.Fingerprint("eth_getBalance", cache.AddressArg(addr), spec)
	if err := c.call(&balanceHex, key, "eth_getBalance", addr.Hex(), blockArg); err != nil {
		return nil, err
	}
	var nonceHex string
	key, _ = cache.Fingerprint("eth_getTransactionCount", cache.AddressArg(addr), spec)
	if err := c.call(&nonceHex, key, "eth_getTransactionCount", addr.Hex(), blockArg); err != nil {
		return nil, err
	}
	code, err := c.CodeAt(addr, blockNumber)
	if err != nil {
		return nil, err
	}

	balance, ok := new(big.Int).SetString(balanceHex[2:], 16)
	if !ok {
		balance = new(big.Int)
	}
	nonce, err := rpc.ParseQuantity(nonceHex)
	if err != nil {
		return nil, err
	}
	acct := &types.Account{
		Nonce:    nonce,
		Balance:  uint256.MustFromBig(balance),
		CodeHash: types.EmptyCodeHash,
	}
	if len(code) > 0 {
		acct.CodeHash = types.Keccak256Hash(code)
	}
	if acct.IsEmpty() {
		return nil, nil
	}
	return acct, nil
}

// CodeAt fetches an account's bytecode at a concrete height.
func (c *Client) CodeAt(addr types.Address, blockNumber uint64) ([]byte, error) {
	spec := cache.BlockSpecArg(rpc.NumberSpec(blockNumber))
	key, _ := cache.Fingerprint("eth_getCode", cache.AddressArg(addr), spec)
	var codeHex string
	if err := c.call(&codeHex, key, "eth_getCode", addr.Hex(), rpc.EncodeQuantity(blockNumber)); err != nil {
		return nil, err
	}
	if len(codeHex) <= 2 {
		return nil, nil
	}
	return gethcommon.FromHex(codeHex), nil
}

// StorageAt fetches one storage slot at a concrete height.
func (c *Client) StorageAt(addr types.Address, slot types.Hash, blockNumber uint64) (types.Hash, error) {
	spec := cache.BlockSpecArg(rpc.NumberSpec(blockNumber))
	key, _ := cache.Fingerprint("eth_getStorageAt", cache.AddressArg(addr), cache.HashArg(slot), spec)
	var valueHex string
	if err := c.call(&valueHex, key, "eth_getStorageAt", addr.Hex(), slot.Hex(), rpc.EncodeQuantity(blockNumber)); err != nil {
		return types.Hash{}, err
	}
	return types.HexToHash(valueHex), nil
}

// rpcBlock is the wire form of a block with full transaction objects.
type rpcBlock struct {
	Transactions []*gethtypes.Transaction `json:"transactions"`
	Withdrawals  []*gethtypes.Withdrawal  `json:"withdrawals"`
}

// BlockByNumber fetches a full block at a concrete height.
func (c *Client) BlockByNumber(number uint64) (*types.Block, error) {
	spec := cache.BlockSpecArg(rpc.NumberSpec(number))
	key, _ := cache.Fingerprint("eth_getBlockByNumber", spec, cache.BoolArg(true))
	var raw json.RawMessage
	if err := c.call(&raw, key, "eth_getBlockByNumber", rpc.EncodeQuantity(number), true); err != nil {
		return nil, err
	}
	return decodeBlock(raw)
}

// BlockByHash fetches a full block by hash.
func (c *Client) BlockByHash(hash types.Hash) (*types.Block, error) {
	key, _ := cache.Fingerprint("eth_getBlockByHash", cache.HashArg(hash), cache.BoolArg(true))
	var raw json.RawMessage
	if err := c.call(&raw, key, "eth_getBlockByHash", hash.Hex(), true); err != nil {
		return nil, err
	}
	return decodeBlock(raw)
}

func decodeBlock(raw json.RawMessage) (*types.Block, error) {
	if string(raw) == "null" {
		return nil, errors.New("block not found")
	}
	var header gethtypes.Header
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, err
	}
	var body rpcBlock
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(body.Transactions))
	for i, gt := range body.Transactions {
		tx, err := types.FromGethTransaction(gt)
		if err != nil {
			return nil, err
		}
		txs[i] = tx
	}
	var withdrawals []*types.Withdrawal
	if body.Withdrawals != nil {
		withdrawals = make([]*types.Withdrawal, len(body.Withdrawals))
		for i, w := range body.Withdrawals {
			withdrawals[i] = &types.Withdrawal{
				Index:          w.Index,
				ValidatorIndex: w.Validator,
				Address:        w.Address,
				Amount:         w.Amount,
			}
		}
	}
	return types.NewBlock(types.ConvertHeaderFromGeth(&header), txs, nil, withdrawals), nil
}

// TransactionBlockAndReceipt resolves a transaction hash to its enclosing
// block, receipt, and index.
func (c *Client) TransactionBlockAndReceipt(txHash types.Hash) (*types.Block, *types.Receipt, int, error) {
	key, _ := cache.Fingerprint("eth_getTransactionReceipt", cache.HashArg(txHash))
	var gr gethtypes.Receipt
	if err := c.call(&gr, key, "eth_getTransactionReceipt", txHash.Hex()); err != nil {
		return nil, nil, 0, err
	}
	block, err := c.BlockByHash(gr.BlockHash)
	if err != nil {
		return nil, nil, 0, err
	}
	receipt := convertReceipt(&gr)
	return block, receipt, int(gr.TransactionIndex), nil
}

func convertReceipt(gr *gethtypes.Receipt) *types.Receipt {
	receipt := &types.Receipt{
		Type:              gr.Type,
		PostState:         gr.PostState,
		Status:            gr.Status,
		CumulativeGasUsed: gr.CumulativeGasUsed,
		Bloom:             types.Bloom(gr.Bloom),
		TxHash:            gr.TxHash,
		GasUsed:           gr.GasUsed,
		BlockHash:         gr.BlockHash,
		TransactionIndex:  gr.TransactionIndex,
	}
	if gr.BlockNumber != nil {
		receipt.BlockNumber = gr.BlockNumber.Uint64()
	}
	if gr.ContractAddress != (types.Address{}) {
		addr := types.Address(gr.ContractAddress)
		receipt.ContractAddress = &addr
	}
	receipt.Logs = make([]*types.Log, len(gr.Logs))
	for i, l := range gr.Logs {
		receipt.Logs[i] = &types.Log{
			Address:     l.Address,
			Topics:      l.Topics,
			Data:        l.Data,
			BlockNumber: l.BlockNumber,
			TxHash:      l.TxHash,
			TxIndex:     l.TxIndex,
			BlockHash:   l.BlockHash,
			Index:       l.Index,
			Removed:     l.Removed,
		}
	}
	return receipt
}
