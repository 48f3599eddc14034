// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/utils/utilstest"
)

func transferTo(b byte) *Address {
	var a Address
	a[19] = b
	return &a
}

func TestSignAndRecoverLegacy(t *testing.T) {
	key := utilstest.NewKey(t)
	tx := &Transaction{
		Type:     LegacyTxType,
		ChainID:  big.NewInt(1),
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       transferTo(1),
		Value:    big.NewInt(100),
	}
	require.NoError(t, tx.Sign(key.PrivateKey, big.NewInt(1)))
	require.True(t, tx.Protected())

	sender, err := tx.Sender()
	require.NoError(t, err)
	require.Equal(t, Address(key.Address), sender)
}

func TestSignAndRecoverDynamicFee(t *testing.T) {
	key := utilstest.NewKey(t)
	tx := &Transaction{
		Type:      DynamicFeeTxType,
		ChainID:   big.NewInt(1),
		Nonce:     3,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(100),
		Gas:       21000,
		To:        transferTo(1),
		Value:     big.NewInt(1),
	}
	require.NoError(t, tx.Sign(key.PrivateKey, big.NewInt(1)))
	sender, err := tx.Sender()
	require.NoError(t, err)
	require.Equal(t, Address(key.Address), sender)
}

func TestBinaryRoundTrip(t *testing.T) {
	key := utilstest.NewKey(t)
	tx := &Transaction{
		Type:      DynamicFeeTxType,
		ChainID:   big.NewInt(31337),
		Nonce:     7,
		GasTipCap: big.NewInt(5),
		GasFeeCap: big.NewInt(500),
		Gas:       60000,
		To:        transferTo(9),
		Value:     big.NewInt(12345),
		Data:      []byte{0xca, 0xfe},
	}
	require.NoError(t, tx.Sign(key.PrivateKey, big.NewInt(31337)))

	encoded, err := tx.EncodeBinary()
	require.NoError(t, err)
	decoded, err := DecodeRawTransaction(encoded)
	require.NoError(t, err)

	require.Equal(t, tx.Hash(), decoded.Hash())
	require.Equal(t, tx.Nonce, decoded.Nonce)
	require.Equal(t, tx.Data, decoded.Data)
	sender, err := decoded.Sender()
	require.NoError(t, err)
	require.Equal(t, Address(key.Address), sender)
}

func TestUnprotectedLegacyDetection(t *testing.T) {
	tx := &Transaction{
		Type:     LegacyTxType,
		Nonce:    0,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       transferTo(1),
		Value:    big.NewInt(0),
		V:        big.NewInt(27),
		R:        big.NewInt(1),
		S:        big.NewInt(1),
	}
	require.False(t, tx.Protected())
	tx.V = big.NewInt(38)
	require.True(t, tx.Protected())
}

func TestImpersonatedSender(t *testing.T) {
	sender := *transferTo(0xaa)
	tx := &Transaction{
		Type:     LegacyTxType,
		Nonce:    1,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       transferTo(1),
		Value:    big.NewInt(0),
	}
	tx.SetImpersonatedSender(sender)
	require.True(t, tx.Impersonated())

	got, err := tx.Sender()
	require.NoError(t, err)
	require.Equal(t, sender, got)

	// The fake signature is deterministic, so the hash is stable.
	other := &Transaction{
		Type:     LegacyTxType,
		Nonce:    1,
		GasPrice: big.NewInt(1),
		Gas:      21000,
		To:       transferTo(1),
		Value:    big.NewInt(0),
	}
	other.SetImpersonatedSender(sender)
	require.Equal(t, tx.Hash(), other.Hash())
}

func TestUpfrontCost(t *testing.T) {
	tx := &Transaction{
		Type:     LegacyTxType,
		GasPrice: big.NewInt(10),
		Gas:      21000,
		Value:    big.NewInt(5),
	}
	require.Equal(t, big.NewInt(10*21000+5), tx.UpfrontCost())
}

func TestEffectiveFees(t *testing.T) {
	dynamic := &Transaction{
		Type:      DynamicFeeTxType,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(50),
	}
	legacy := &Transaction{
		Type:     LegacyTxType,
		GasPrice: big.NewInt(30),
	}

	// Pre-London (nil base fee): the full price.
	require.Equal(t, big.NewInt(50), dynamic.EffectiveMinerFee(nil))
	require.Equal(t, big.NewInt(30), legacy.EffectiveMinerFee(nil))

	base := big.NewInt(10)
	// min(tip, cap - base) and price - base.
	require.Equal(t, big.NewInt(2), dynamic.EffectiveMinerFee(base))
	require.Equal(t, big.NewInt(20), legacy.EffectiveMinerFee(base))

	// Effective gas price is min(cap, base + tip).
	require.Equal(t, big.NewInt(12), dynamic.EffectiveGasPrice(base))
	require.Equal(t, big.NewInt(30), legacy.EffectiveGasPrice(base))

	// Cap-limited case.
	tight := &Transaction{
		Type:      DynamicFeeTxType,
		GasTipCap: big.NewInt(100),
		GasFeeCap: big.NewInt(15),
	}
	require.Equal(t, big.NewInt(5), tight.EffectiveMinerFee(base))
	require.Equal(t, big.NewInt(15), tight.EffectiveGasPrice(base))
}

func TestUnsupportedTypeRejected(t *testing.T) {
	tx := &Transaction{Type: 0x7f, Gas: 21000, Value: big.NewInt(0)}
	_, err := tx.EncodeBinary()
	require.ErrorIs(t, err, ErrUnsupportedTxType)
}
