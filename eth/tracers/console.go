// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tracers

import (
	"encoding/binary"
	"fmt"
	"math/big"

	gethcommon "github.com/luxfi/geth/common"

	"github.com/devchain-labs/devchain/core/types"
)

// ConsoleLogAddress is the well-known precompile-style address contracts
// call to emit developer console output.
var ConsoleLogAddress = types.Address(gethcommon.HexToAddress("0x000000000000000000636F6e736F6c652e6c6f67"))

// ConsoleDecoder turns calls to the console address into printable
// strings. Only the handful of single- and two-argument signatures seen
// in practice are decoded; anything else is rendered as raw calldata.
type ConsoleDecoder struct {
	logs []string
}

// NewConsoleDecoder returns an empty decoder.
func NewConsoleDecoder() *ConsoleDecoder { return &ConsoleDecoder{} }

// Logs returns the decoded lines in observation order.
func (d *ConsoleDecoder) Logs() []string { return d.logs }

// Selectors of the supported console.log overloads.
var (
	selLogString  = [4]byte{0x41, 0x30, 0x4f, 0xac} // log(string)
	selLogUint    = [4]byte{0xf8, 0x2c, 0x50, 0xf1} // log(uint256)
	selLogBool    = [4]byte{0x32, 0x45, 0x8e, 0xed} // log(bool)
	selLogAddress = [4]byte{0x2c, 0x2e, 0xcb, 0xc2} // log(address)
	selLogBytes32 = [4]byte{0x27, 0xb7, 0xcf, 0x85} // log(bytes32)
	selLogStrUint = [4]byte{0xb6, 0x0e, 0x72, 0xcc} // log(string,uint256)
)

// Observe decodes one call's input and appends the rendered line.
func (d *ConsoleDecoder) Observe(input []byte) {
	if len(input) < 4 {
		return
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	args := input[4:]
	switch sel {
	case selLogString:
		if s, ok := decodeString(args, 0); ok {
			d.logs = append(d.logs, s)
			return
		}
	case selLogUint:
		if len(args) >= 32 {
			d.logs = append(d.logs, new(big.Int).SetBytes(args[:32]).String())
			return
		}
	case selLogBool:
		if len(args) >= 32 {
			d.logs = append(d.logs, fmt.Sprintf("%t", args[31] != 0))
			return
		}
	case selLogAddress:
		if len(args) >= 32 {
			d.logs = append(d.logs, gethcommon.BytesToAddress(args[12:32]).Hex())
			return
		}
	case selLogBytes32:
		if len(args) >= 32 {
			d.logs = append(d.logs, fmt.Sprintf("0x%x", args[:32]))
			return
		}
	case selLogStrUint:
		if len(args) >= 64 {
			if s, ok := decodeString(args, 0); ok {
				d.logs = append(d.logs, fmt.Sprintf("%s %s", s, new(big.Int).SetBytes(args[32:64])))
				return
			}
		}
	}
	d.logs = append(d.logs, fmt.Sprintf("console.log 0x%x", input))
}

// decodeString reads an ABI-encoded dynamic string whose offset word sits
// at the given argument slot.
func decodeString(args []byte, slot int) (string, bool) {
	if len(args) < (slot+1)*32 {
		return "", false
	}
	offsetWord := args[slot*32 : slot*32+32]
	offset := binary.BigEndian.Uint64(offsetWord[24:])
	if uint64(len(args)) < offset+32 {
		return "", false
	}
	lengthWord := args[offset : offset+32]
	length := binary.BigEndian.Uint64(lengthWord[24:])
	if uint64(len(args)) < offset+32+length {
		return "", false
	}
	return string(args[offset+32 : offset+32+length]), true
}
