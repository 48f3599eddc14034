// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devchain-labs/devchain/core/types"
)

func TestBlockSpecParsing(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, spec BlockSpec, err error)
	}{
		{
			name:  "quantity",
			input: `"0x10"`,
			check: func(t *testing.T, spec BlockSpec, err error) {
				require.NoError(t, err)
				require.NotNil(t, spec.Number)
				require.Equal(t, uint64(16), *spec.Number)
			},
		},
		{
			name:  "tag",
			input: `"latest"`,
			check: func(t *testing.T, spec BlockSpec, err error) {
				require.NoError(t, err)
				require.Equal(t, TagLatest, spec.Tag)
				require.False(t, spec.IsConcrete())
			},
		},
		{
			name:  "eip1898 number",
			input: `{"blockNumber":"0x2a"}`,
			check: func(t *testing.T, spec BlockSpec, err error) {
				require.NoError(t, err)
				require.Equal(t, uint64(42), *spec.Number)
			},
		},
		{
			name:  "eip1898 hash",
			input: `{"blockHash":"0x00000000000000000000000000000000000000000000000000000000000000aa","requireCanonical":true}`,
			check: func(t *testing.T, spec BlockSpec, err error) {
				require.NoError(t, err)
				require.NotNil(t, spec.Hash)
				require.True(t, spec.RequireCanonical)
			},
		},
		{
			name:  "mixed hash and number",
			input: `{"blockHash":"0x00000000000000000000000000000000000000000000000000000000000000aa","blockNumber":"0x1"}`,
			check: func(t *testing.T, _ BlockSpec, err error) {
				require.ErrorIs(t, err, ErrInvalidBlockSpec)
			},
		},
		{
			name:  "requireCanonical with number",
			input: `{"blockNumber":"0x1","requireCanonical":true}`,
			check: func(t *testing.T, _ BlockSpec, err error) {
				require.ErrorIs(t, err, ErrInvalidBlockSpec)
			},
		},
		{
			name:  "oversized quantity",
			input: `"0x10000000000000000"`,
			check: func(t *testing.T, _ BlockSpec, err error) {
				require.ErrorIs(t, err, ErrBlockNumberTooLarge)
			},
		},
		{
			name:  "missing prefix",
			input: `"42"`,
			check: func(t *testing.T, _ BlockSpec, err error) {
				require.ErrorIs(t, err, ErrInvalidBlockSpec)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var spec BlockSpec
			err := json.Unmarshal([]byte(tt.input), &spec)
			tt.check(t, spec, err)
		})
	}
}

func TestEncodeQuantity(t *testing.T) {
	require.Equal(t, "0x0", EncodeQuantity(0))
	require.Equal(t, "0x10", EncodeQuantity(16))
	require.Equal(t, "0xff", EncodeQuantity(255))
}

func TestHashSpec(t *testing.T) {
	h := types.HexToHash("0xaa")
	spec := HashSpec(h, true)
	require.True(t, spec.IsConcrete())
	require.Equal(t, h, *spec.Hash)
}
