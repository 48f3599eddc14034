// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package blockchain

import (
	"github.com/devchain-labs/devchain/core/types"
)

// activation pairs a block number with the spec that becomes active at it.
type activation struct {
	block uint64
	spec  types.SpecID
}

// hardforkActivations maps well-known chain ids to their activation
// history, ordered by block number. Chains missing from the table cannot
// be forked at historical heights.
var hardforkActivations = map[uint64][]activation{
	// Ethereum mainnet.
	1: {
		{0, types.Frontier},
		{200000, types.FrontierThawing},
		{1150000, types.Homestead},
		{1920000, types.DAOFork},
		{2463000, types.Tangerine},
		{2675000, types.SpuriousDragon},
		{4370000, types.Byzantium},
		{7280000, types.Constantinople},
		{7280000, types.Petersburg},
		{9069000, types.Istanbul},
		{9200000, types.MuirGlacier},
		{12244000, types.Berlin},
		{12965000, types.London},
		{13773000, types.ArrowGlacier},
		{15050000, types.GrayGlacier},
		{15537394, types.Merge},
		{17034870, types.Shanghai},
		{19426587, types.Cancun},
	},
	// Goerli.
	5: {
		{0, types.Petersburg},
		{1561651, types.Istanbul},
		{4460644, types.Berlin},
		{5062605, types.London},
		{7382819, types.Merge},
		{8656123, types.Shanghai},
	},
	// Sepolia.
	11155111: {
		{0, types.London},
		{1735371, types.Merge},
		{2990908, types.Shanghai},
		{5187023, types.Cancun},
	},
}

// chainSafeDepths lists how many blocks behind the remote head a fork is
// pinned when no explicit height is given; deeper for chains with deeper
// reorg histories.
var chainSafeDepths = map[uint64]uint64{
	1:        5,
	5:        5,
	11155111: 5,
}

// defaultSafeDepth applies to chains without a recorded depth.
const defaultSafeDepth = uint64(30)

// SpecAtBlock returns the spec active on the given chain at the given
// block number.
func SpecAtBlock(chainID, blockNumber uint64) (types.SpecID, error) {
	activations, ok := hardforkActivations[chainID]
	if !ok {
		return 0, &MissingHardforkActivationsError{ChainID: chainID}
	}
	spec := activations[0].spec
	for _, a := range activations {
		if a.block > blockNumber {
			break
		}
		spec = a.spec
	}
	return spec, nil
}

// SafeForkHeight computes the default fork height for a chain: the remote
// head minus the chain's safe depth, saturating at zero.
func SafeForkHeight(chainID, latest uint64) uint64 {
	depth, ok := chainSafeDepths[chainID]
	if !ok {
		depth = defaultSafeDepth
	}
	if latest < depth {
		return 0
	}
	return latest - depth
}
