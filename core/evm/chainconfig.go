// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evm

import (
	"math/big"

	"github.com/luxfi/geth/params"

	"github.com/devchain-labs/devchain/core/types"
)

// ChainConfig translates the runtime's spec id into the external EVM
// library's chain configuration. Block-number forks activate at genesis
// when the spec includes them; time-based forks activate at time zero.
func ChainConfig(chainID uint64, spec types.SpecID) *params.ChainConfig {
	zero := big.NewInt(0)
	cfg := &params.ChainConfig{
		ChainID: new(big.Int).SetUint64(chainID),
	}
	activate := func(at types.SpecID) *big.Int {
		if spec.AtLeast(at) {
			return zero
		}
		return nil
	}
	cfg.HomesteadBlock = activate(types.Homestead)
	if spec.AtLeast(types.DAOFork) {
		cfg.DAOForkBlock = zero
		cfg.DAOForkSupport = true
	}
	cfg.EIP150Block = activate(types.Tangerine)
	cfg.EIP155Block = activate(types.SpuriousDragon)
	cfg.EIP158Block = activate(types.SpuriousDragon)
	cfg.ByzantiumBlock = activate(types.Byzantium)
	cfg.ConstantinopleBlock = activate(types.Constantinople)
	cfg.PetersburgBlock = activate(types.Petersburg)
	cfg.IstanbulBlock = activate(types.Istanbul)
	cfg.MuirGlacierBlock = activate(types.MuirGlacier)
	cfg.BerlinBlock = activate(types.Berlin)
	cfg.LondonBlock = activate(types.London)
	cfg.ArrowGlacierBlock = activate(types.ArrowGlacier)
	cfg.GrayGlacierBlock = activate(types.GrayGlacier)
	if spec.IsPostMerge() {
		cfg.MergeNetsplitBlock = zero
		cfg.TerminalTotalDifficulty = zero
	}
	var zeroTime uint64
	if spec.AtLeast(types.Shanghai) {
		cfg.ShanghaiTime = &zeroTime
	}
	if spec.AtLeast(types.Cancun) {
		cfg.CancunTime = &zeroTime
	}
	return cfg
}
