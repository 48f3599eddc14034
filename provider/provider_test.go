// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
	"github.com/devchain-labs/devchain/rpc"
	"github.com/devchain-labs/devchain/utils"
	"github.com/devchain-labs/devchain/utils/utilstest"
)

func testAddr(b byte) types.Address {
	var a types.Address
	a[0] = b
	return a
}

func oneEther() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
}

func mapKeys(keys ...*utilstest.Key) map[types.Address]*ecdsa.PrivateKey {
	out := make(map[types.Address]*ecdsa.PrivateKey, len(keys))
	for _, key := range keys {
		out[key.Address] = key.PrivateKey
	}
	return out
}

func newTestProvider(t *testing.T, key *utilstest.Key) *Provider {
	t.Helper()
	p, err := New(Config{
		ChainID:  1,
		Spec:     types.Shanghai,
		GasLimit: 30_000_000,
		GenesisAccounts: map[types.Address]*uint256.Int{
			key.Address: uint256.MustFromBig(oneEther()),
		},
		LocalKeys:      mapKeys(key),
		InitialBaseFee: big.NewInt(0),
		Clock:          utils.NewMockableClock(),
	})
	require.NoError(t, err)
	return p
}

func latest() rpc.BlockSpec { return rpc.TagSpec(rpc.TagLatest) }

// Genesis plus a zero-fee transfer: the sender pays exactly the value,
// the receipt succeeds, and the logs bloom stays zero.
func TestGenesisAndFirstTransfer(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	genesis, err := p.GetBlock(rpc.NumberSpec(0))
	require.NoError(t, err)

	to := testAddr(0xbb)
	value := new(big.Int).Exp(big.NewInt(10), big.NewInt(15), nil)
	gas := uint64(21000)
	hash, err := p.SendTransaction(TxArgs{
		From:     key.Address,
		To:       &to,
		Value:    value,
		Gas:      &gas,
		GasPrice: big.NewInt(0),
	})
	require.NoError(t, err)

	results, err := p.Mine(1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Included, 1)

	block1, err := p.GetBlock(rpc.NumberSpec(1))
	require.NoError(t, err)
	require.NotEqual(t, genesis.Header.Root, block1.Header.Root)

	senderBalance, err := p.GetBalance(key.Address, latest())
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Sub(oneEther(), value), senderBalance)

	received, err := p.GetBalance(to, latest())
	require.NoError(t, err)
	require.Equal(t, value, received)

	receipt, err := p.GetTransactionReceipt(hash)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	var zeroBloom types.Bloom
	require.Equal(t, zeroBloom, receipt.Bloom)
}

// Snapshot, cheat, mine, revert: balance, tip, and pool all restore.
func TestSnapshotCheatRevert(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	original, err := p.GetBalance(key.Address, latest())
	require.NoError(t, err)

	id, err := p.Snapshot()
	require.NoError(t, err)

	require.NoError(t, p.SetBalance(key.Address, big.NewInt(42)))
	mutated, err := p.GetBalance(key.Address, latest())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), mutated)

	_, err = p.Mine(1, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.BlockNumber())

	require.NoError(t, p.Revert(id))
	restored, err := p.GetBalance(key.Address, latest())
	require.NoError(t, err)
	require.Equal(t, original, restored)
	require.Equal(t, uint64(0), p.BlockNumber())

	// A second revert to the same id fails: the snapshot was consumed.
	require.ErrorIs(t, p.Revert(id), ErrUnknownSnapshot)
}

// A billion-block mine reserves instead of materializing, and point
// lookups inside the range produce the formulaic timestamps.
func TestMineHugeCountReserves(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	_, err := p.Mine(1, 0)
	require.NoError(t, err)
	block1, err := p.GetBlock(rpc.NumberSpec(1))
	require.NoError(t, err)

	const count = uint64(1_000_000_000)
	_, err = p.Mine(count, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1)+count, p.BlockNumber())

	const lookup = uint64(500_000_000)
	block, err := p.GetBlock(rpc.NumberSpec(lookup))
	require.NoError(t, err)
	require.Equal(t, block1.Time()+1*(lookup-2+1), block.Time())
	require.Equal(t, block1.Header.Root, block.Header.Root)
}

func TestCheatOverridesVisibleHistorically(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	require.NoError(t, p.SetStorageAt(testAddr(5), types.Hash{31: 1}, types.Hash{31: 9}))
	got, err := p.GetStorageAt(testAddr(5), types.Hash{31: 1}, latest())
	require.NoError(t, err)
	require.Equal(t, types.Hash{31: 9}, got)

	require.NoError(t, p.SetNonce(testAddr(5), 7))
	nonce, err := p.GetTransactionCount(testAddr(5), latest())
	require.NoError(t, err)
	require.Equal(t, uint64(7), nonce)

	require.NoError(t, p.SetCode(testAddr(5), []byte{0x60, 0x00}))
	code, err := p.GetCode(testAddr(5), latest())
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)
}

func TestSendFromUnknownAccount(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	to := testAddr(1)
	_, err := p.SendTransaction(TxArgs{From: testAddr(0xee), To: &to, Value: big.NewInt(1)})
	require.ErrorIs(t, err, ErrUnknownAddress)
}

func TestImpersonation(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	whale := testAddr(0xaa)
	require.NoError(t, p.SetBalance(whale, oneEther()))
	p.ImpersonateAccount(whale)

	to := testAddr(1)
	gas := uint64(21000)
	_, err := p.SendTransaction(TxArgs{
		From:     whale,
		To:       &to,
		Value:    big.NewInt(500),
		Gas:      &gas,
		GasPrice: big.NewInt(0),
	})
	require.NoError(t, err)
	_, err = p.Mine(1, 0)
	require.NoError(t, err)

	got, err := p.GetBalance(to, latest())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(500), got)

	require.True(t, p.StopImpersonatingAccount(whale))
	require.False(t, p.StopImpersonatingAccount(whale))
}

func TestIncreaseTimeShiftsTimestamps(t *testing.T) {
	key := utilstest.NewKey(t)
	clock := utils.NewMockableClock()
	clock.Set(time.Unix(2_000_000_000, 0))
	p, err := New(Config{
		ChainID:  1,
		Spec:     types.Shanghai,
		GasLimit: 30_000_000,
		GenesisAccounts: map[types.Address]*uint256.Int{
			key.Address: uint256.MustFromBig(oneEther()),
		},
		LocalKeys:      mapKeys(key),
		InitialBaseFee: big.NewInt(0),
		Clock:          clock,
	})
	require.NoError(t, err)

	offset := p.IncreaseTime(3600)
	require.Equal(t, int64(3600), offset)

	_, err = p.Mine(1, 0)
	require.NoError(t, err)
	block, err := p.GetBlock(latest())
	require.NoError(t, err)
	require.Equal(t, uint64(2_000_000_000+3600), block.Time())
}

func TestSetNextBlockTimestamp(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	genesis, err := p.GetBlock(rpc.NumberSpec(0))
	require.NoError(t, err)
	want := genesis.Time() + 12345
	p.SetNextBlockTimestamp(want)
	_, err = p.Mine(1, 0)
	require.NoError(t, err)

	block, err := p.GetBlock(latest())
	require.NoError(t, err)
	require.Equal(t, want, block.Time())

	// The explicit timestamp is consumed: the next block reverts to the
	// clock policy.
	_, err = p.Mine(1, 0)
	require.NoError(t, err)
	next, err := p.GetBlock(latest())
	require.NoError(t, err)
	require.Greater(t, next.Time(), want)
}

func TestFiltersSeeMinedBlocks(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	id := p.NewBlockFilter()
	_, err := p.Mine(2, 0)
	require.NoError(t, err)

	changes, err := p.GetFilterChanges(id)
	require.NoError(t, err)
	hashes := changes.([]types.Hash)
	require.Len(t, hashes, 2)

	// Drained: a second poll returns nothing.
	changes, err = p.GetFilterChanges(id)
	require.NoError(t, err)
	require.Empty(t, changes.([]types.Hash))

	require.True(t, p.UninstallFilter(id))
	_, err = p.GetFilterChanges(id)
	require.ErrorIs(t, err, ErrUnknownFilter)
}

func TestSetBlockGasLimitDropsOversized(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	to := testAddr(2)
	gas := uint64(40_000)
	hash, err := p.SendTransaction(TxArgs{
		From:     key.Address,
		To:       &to,
		Value:    big.NewInt(1),
		Gas:      &gas,
		GasPrice: big.NewInt(0),
	})
	require.NoError(t, err)

	require.NoError(t, p.SetBlockGasLimit(50_000))
	// Still pooled: it fits.
	tx, err := p.GetTransactionByHash(hash)
	require.NoError(t, err)
	require.NotNil(t, tx)

	require.NoError(t, p.SetBlockGasLimit(21_000))
	require.Empty(t, p.PendingTransactions())
}

func TestMetadata(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)

	md, err := p.GetMetadata()
	require.NoError(t, err)
	require.Equal(t, ClientVersion, md.ClientVersion)
	require.Equal(t, uint64(1), md.ChainID)
	require.Nil(t, md.ForkedChainID)
	require.Equal(t, uint64(0), md.LatestBlockNumber)
}

func TestAutomine(t *testing.T) {
	key := utilstest.NewKey(t)
	p := newTestProvider(t, key)
	p.SetAutomine(true)
	require.True(t, p.GetAutomine())

	to := testAddr(3)
	gas := uint64(21000)
	_, err := p.SendTransaction(TxArgs{
		From:     key.Address,
		To:       &to,
		Value:    big.NewInt(5),
		Gas:      &gas,
		GasPrice: big.NewInt(0),
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), p.BlockNumber())
	require.Empty(t, p.PendingTransactions())
}
