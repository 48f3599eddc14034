// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package provider

import "errors"

var (
	// ErrUnknownAddress is returned by sign and sendTransaction for an
	// account that is neither local nor impersonated.
	ErrUnknownAddress = errors.New("unknown account")

	// ErrUnknownSnapshot is returned when a revert names a snapshot id
	// that was never taken or was already consumed.
	ErrUnknownSnapshot = errors.New("unknown snapshot")

	// ErrContractMissingData rejects contract-creation requests without
	// init code.
	ErrContractMissingData = errors.New("contract creation without data")

	// ErrInsufficientGas rejects requests whose gas limit cannot cover
	// the intrinsic cost.
	ErrInsufficientGas = errors.New("gas limit below intrinsic gas")

	// ErrUnknownFilter is returned for operations on a missing filter id.
	ErrUnknownFilter = errors.New("filter not found")
)
