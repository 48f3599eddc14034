// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package miner

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/params"

	"github.com/devchain-labs/devchain/core/evm"
)

// applyDAOFork moves every drained account's balance into the DAO refund
// contract, exactly as the hardfork did. The drain list and refund
// contract address come from the external library's parameters, which
// carry the documented beneficiary set.
func applyDAOFork(journal *evm.Journal) {
	// Touch the refund contract into existence before crediting it.
	journal.AddBalance(params.DAORefundContract, new(uint256.Int), tracing.BalanceIncreaseDaoContract)
	for _, addr := range params.DAODrainList() {
		balance := journal.GetBalance(addr)
		journal.SubBalance(addr, balance, tracing.BalanceDecreaseDaoAccount)
		journal.AddBalance(params.DAORefundContract, balance, tracing.BalanceIncreaseDaoContract)
	}
}
