// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import "math/big"

// Reservation is a promise that the blocks in the closed range
// [First, Last] exist without being materialized: their timestamps step by
// Interval from the parent of First, and their state root and base fee are
// carried over unchanged from the block preceding the range.
type Reservation struct {
	First    uint64
	Last     uint64
	Interval uint64

	PreviousBaseFee         *big.Int // nil pre-London
	PreviousStateRoot       Hash
	PreviousTotalDifficulty *big.Int
	PreviousDiffIndex       int
	Spec                    SpecID
}

// Contains reports whether the block number sits inside the reservation.
func (r *Reservation) Contains(number uint64) bool {
	return r.First <= number && number <= r.Last
}

// Len returns the number of reserved block numbers.
func (r *Reservation) Len() uint64 { return r.Last - r.First + 1 }

// Copy returns a copy safe to retain across splits of the original.
func (r *Reservation) Copy() *Reservation {
	cp := *r
	if r.PreviousBaseFee != nil {
		cp.PreviousBaseFee = new(big.Int).Set(r.PreviousBaseFee)
	}
	if r.PreviousTotalDifficulty != nil {
		cp.PreviousTotalDifficulty = new(big.Int).Set(r.PreviousTotalDifficulty)
	}
	return &cp
}
