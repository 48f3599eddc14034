// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	gethtypes "github.com/luxfi/geth/core/types"
	gethcrypto "github.com/luxfi/geth/crypto"
)

// Transaction type discriminants of the typed-envelope encoding.
const (
	LegacyTxType     = uint8(0x00)
	AccessListTxType = uint8(0x01)
	DynamicFeeTxType = uint8(0x02)
	BlobTxType       = uint8(0x03)
)

// BlobGasPerBlob is the gas consumed per EIP-4844 blob.
const BlobGasPerBlob = uint64(131072)

var (
	// ErrUnsupportedTxType is returned when a transaction envelope carries
	// a type byte this runtime cannot convert.
	ErrUnsupportedTxType = errors.New("unsupported transaction type")

	// ErrNoSignature is returned when a sender is requested from an
	// unsigned, non-impersonated transaction.
	ErrNoSignature = errors.New("transaction is not signed")
)

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is an EIP-2930 access list.
type AccessList []AccessTuple

// Transaction is the runtime's flattened view of a typed transaction
// envelope. RLP encoding, hashing, and signature recovery delegate to the
// external geth library through the conversion below.
//
// ChainID is nil for pre-EIP-155 legacy transactions, which are recognized
// by v being exactly 27 or 28 and are hashed without a chain id.
type Transaction struct {
	Type    uint8
	ChainID *big.Int
	Nonce   uint64

	GasPrice  *big.Int // legacy and access-list transactions
	GasTipCap *big.Int // dynamic-fee and blob transactions
	GasFeeCap *big.Int
	Gas       uint64

	To    *Address // nil means contract creation
	Value *big.Int
	Data  []byte

	AccessList AccessList

	BlobFeeCap *big.Int
	BlobHashes []Hash

	V, R, S *big.Int

	mu           sync.Mutex
	cachedHash   *Hash
	cachedSender *Address
	impersonated bool
}

// IsDynamicFee reports whether the transaction prices gas with a fee cap
// and priority fee instead of a single gas price.
func (tx *Transaction) IsDynamicFee() bool {
	return tx.Type == DynamicFeeTxType || tx.Type == BlobTxType
}

// Protected reports whether a legacy transaction carries EIP-155 replay
// protection. Typed transactions are always protected.
func (tx *Transaction) Protected() bool {
	if tx.Type != LegacyTxType {
		return true
	}
	if tx.V == nil {
		return true
	}
	v := tx.V.Uint64()
	return v != 27 && v != 28
}

// toGeth converts to the external library's transaction for encoding,
// hashing, and recovery.
func (tx *Transaction) toGeth() (*gethtypes.Transaction, error) {
	v, r, s := tx.V, tx.R, tx.S
	if v == nil {
		v, r, s = new(big.Int), new(big.Int), new(big.Int)
	}
	switch tx.Type {
	case LegacyTxType:
		return gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    tx.Nonce,
			GasPrice: tx.GasPrice,
			Gas:      tx.Gas,
			To:       tx.To,
			Value:    tx.Value,
			Data:     tx.Data,
			V:        v, R: r, S: s,
		}), nil
	case AccessListTxType:
		return gethtypes.NewTx(&gethtypes.AccessListTx{
			ChainID:    tx.ChainID,
			Nonce:      tx.Nonce,
			GasPrice:   tx.GasPrice,
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      tx.Value,
			Data:       tx.Data,
			AccessList: tx.accessListToGeth(),
			V:          v, R: r, S: s,
		}), nil
	case DynamicFeeTxType:
		return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:    tx.ChainID,
			Nonce:      tx.Nonce,
			GasTipCap:  tx.GasTipCap,
			GasFeeCap:  tx.GasFeeCap,
			Gas:        tx.Gas,
			To:         tx.To,
			Value:      tx.Value,
			Data:       tx.Data,
			AccessList: tx.accessListToGeth(),
			V:          v, R: r, S: s,
		}), nil
	case BlobTxType:
		if tx.To == nil {
			return nil, fmt.Errorf("%w: blob transaction without recipient", ErrUnsupportedTxType)
		}
		blob := &gethtypes.BlobTx{
			ChainID:    uint256.MustFromBig(tx.ChainID),
			Nonce:      tx.Nonce,
			GasTipCap:  uint256.MustFromBig(tx.GasTipCap),
			GasFeeCap:  uint256.MustFromBig(tx.GasFeeCap),
			Gas:        tx.Gas,
			To:         *tx.To,
			Value:      uint256.MustFromBig(tx.Value),
			Data:       tx.Data,
			AccessList: tx.accessListToGeth(),
			BlobFeeCap: uint256.MustFromBig(tx.BlobFeeCap),
			BlobHashes: tx.BlobHashes,
			V:          uint256.MustFromBig(v),
			R:          uint256.MustFromBig(r),
			S:          uint256.MustFromBig(s),
		}
		return gethtypes.NewTx(blob), nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedTxType, tx.Type)
	}
}

func (tx *Transaction) accessListToGeth() gethtypes.AccessList {
	if tx.AccessList == nil {
		return nil
	}
	out := make(gethtypes.AccessList, len(tx.AccessList))
	for i, tuple := range tx.AccessList {
		out[i] = gethtypes.AccessTuple{
			Address:     tuple.Address,
			StorageKeys: tuple.StorageKeys,
		}
	}
	return out
}

// FromGethTransaction converts a decoded external-library transaction back
// into the runtime's representation.
func FromGethTransaction(gt *gethtypes.Transaction) (*Transaction, error) {
	if gt.Type() > BlobTxType {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnsupportedTxType, gt.Type())
	}
	v, r, s := gt.RawSignatureValues()
	tx := &Transaction{
		Type:    gt.Type(),
		Nonce:   gt.Nonce(),
		Gas:     gt.Gas(),
		To:      gt.To(),
		Value:   gt.Value(),
		Data:    gt.Data(),
		V:       v, R: r, S: s,
	}
	if gt.Type() == LegacyTxType {
		tx.GasPrice = gt.GasPrice()
		if gt.Protected() {
			tx.ChainID = gt.ChainId()
		}
	} else {
		tx.ChainID = gt.ChainId()
	}
	switch gt.Type() {
	case AccessListTxType:
		tx.GasPrice = gt.GasPrice()
	case DynamicFeeTxType, BlobTxType:
		tx.GasTipCap = gt.GasTipCap()
		tx.GasFeeCap = gt.GasFeeCap()
	}
	if al := gt.AccessList(); al != nil {
		tx.AccessList = make(AccessList, len(al))
		for i, tuple := range al {
			tx.AccessList[i] = AccessTuple{Address: tuple.Address, StorageKeys: tuple.StorageKeys}
		}
	}
	if gt.Type() == BlobTxType {
		tx.BlobFeeCap = gt.BlobGasFeeCap()
		tx.BlobHashes = gt.BlobHashes()
	}
	return tx, nil
}

// DecodeRawTransaction decodes a typed-envelope (or legacy RLP) encoded
// transaction as submitted through sendRawTransaction.
func DecodeRawTransaction(data []byte) (*Transaction, error) {
	var gt gethtypes.Transaction
	if err := gt.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return FromGethTransaction(&gt)
}

// EncodeBinary produces the canonical typed-envelope (or legacy RLP)
// encoding.
func (tx *Transaction) EncodeBinary() ([]byte, error) {
	gt, err := tx.toGeth()
	if err != nil {
		return nil, err
	}
	return gt.MarshalBinary()
}

// Hash returns the transaction hash. Pre-EIP-155 legacy transactions hash
// without a chain id by construction of the legacy encoding.
func (tx *Transaction) Hash() Hash {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.cachedHash != nil {
		return *tx.cachedHash
	}
	gt, err := tx.toGeth()
	if err != nil {
		// Unconvertible transactions are rejected before they are stored
		// anywhere a hash is needed.
		panic(err)
	}
	h := gt.Hash()
	tx.cachedHash = &h
	return h
}

func (tx *Transaction) signer() gethtypes.Signer {
	if tx.Type == LegacyTxType && !tx.Protected() {
		return gethtypes.HomesteadSigner{}
	}
	return gethtypes.LatestSignerForChainID(tx.ChainID)
}

// Sender recovers the transaction's sender from its signature, or returns
// the recorded sender for an impersonated transaction.
func (tx *Transaction) Sender() (Address, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.cachedSender != nil {
		return *tx.cachedSender, nil
	}
	if tx.V == nil || tx.R == nil || tx.S == nil {
		return Address{}, ErrNoSignature
	}
	gt, err := tx.toGeth()
	if err != nil {
		return Address{}, err
	}
	from, err := gethtypes.Sender(tx.signer(), gt)
	if err != nil {
		return Address{}, err
	}
	tx.cachedSender = &from
	return from, nil
}

// Impersonated reports whether the transaction bypassed signature
// verification via account impersonation.
func (tx *Transaction) Impersonated() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.impersonated
}

// SetImpersonatedSender marks the transaction as impersonated and installs
// the deterministic fake signature derived from the sender address, so the
// transaction still hashes stably and round-trips through the block store.
func (tx *Transaction) SetImpersonatedSender(sender Address) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	fake := new(big.Int).SetBytes(keccak256(sender.Bytes()))
	fake.Mod(fake, gethcrypto.S256().Params().N)
	if fake.Sign() == 0 {
		fake.SetUint64(1)
	}
	tx.V = big.NewInt(27)
	tx.R = fake
	tx.S = new(big.Int).Set(fake)
	tx.cachedSender = &sender
	tx.cachedHash = nil
	tx.impersonated = true
}

// Sign signs the transaction with the given key for the given chain id and
// stores the signature values in place.
func (tx *Transaction) Sign(key *ecdsa.PrivateKey, chainID *big.Int) error {
	if tx.Type != LegacyTxType || tx.Protected() {
		tx.ChainID = chainID
	}
	gt, err := tx.toGeth()
	if err != nil {
		return err
	}
	signed, err := gethtypes.SignTx(gt, tx.signer(), key)
	if err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.V, tx.R, tx.S = signed.RawSignatureValues()
	from := gethcrypto.PubkeyToAddress(key.PublicKey)
	tx.cachedSender = &from
	tx.cachedHash = nil
	return nil
}

// BlobGas returns the blob gas consumed by the transaction's blobs.
func (tx *Transaction) BlobGas() uint64 {
	return BlobGasPerBlob * uint64(len(tx.BlobHashes))
}

// MaxGasPrice returns the most the sender could pay per unit of gas: the
// gas price for legacy-style transactions, the fee cap otherwise.
func (tx *Transaction) MaxGasPrice() *big.Int {
	if tx.IsDynamicFee() {
		return tx.GasFeeCap
	}
	return tx.GasPrice
}

// UpfrontCost returns an upper bound on what execution may debit from the
// sender before the transaction runs: value + gas_limit x max gas price,
// plus the blob fee bound for blob transactions.
func (tx *Transaction) UpfrontCost() *big.Int {
	cost := new(big.Int).SetUint64(tx.Gas)
	cost.Mul(cost, tx.MaxGasPrice())
	if tx.Value != nil {
		cost.Add(cost, tx.Value)
	}
	if tx.Type == BlobTxType && tx.BlobFeeCap != nil {
		blob := new(big.Int).SetUint64(tx.BlobGas())
		blob.Mul(blob, tx.BlobFeeCap)
		cost.Add(cost, blob)
	}
	return cost
}

// EffectiveGasPrice returns the per-gas price actually charged at the
// given base fee: min(fee cap, base fee + priority fee) for dynamic-fee
// transactions, the fixed gas price otherwise. A nil base fee means the
// chain is pre-London.
func (tx *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	if !tx.IsDynamicFee() || baseFee == nil {
		return new(big.Int).Set(tx.MaxGasPrice())
	}
	price := new(big.Int).Add(baseFee, tx.GasTipCap)
	if price.Cmp(tx.GasFeeCap) > 0 {
		price.Set(tx.GasFeeCap)
	}
	return price
}

// EffectiveMinerFee returns what the miner earns per unit of gas at the
// given base fee: min(priority fee, fee cap - base fee) for dynamic-fee
// transactions and gas_price - base_fee for legacy ones. With a nil base
// fee (pre-London) it is simply the gas price.
func (tx *Transaction) EffectiveMinerFee(baseFee *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(tx.MaxGasPrice())
	}
	if tx.IsDynamicFee() {
		fee := new(big.Int).Sub(tx.GasFeeCap, baseFee)
		if fee.Cmp(tx.GasTipCap) > 0 {
			fee.Set(tx.GasTipCap)
		}
		return fee
	}
	return new(big.Int).Sub(tx.GasPrice, baseFee)
}

// EffectivePriorityFee returns the priority component used by the mempool's
// replacement rule: the priority fee for dynamic-fee transactions, the full
// gas price for legacy ones.
func (tx *Transaction) EffectivePriorityFee() *big.Int {
	if tx.IsDynamicFee() {
		return tx.GasTipCap
	}
	return tx.GasPrice
}
