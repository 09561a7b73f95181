// Package curve decodes pump.fun bonding curve accounts and derives price
// and progress from them.
package curve

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

// StateSize is the minimum account length: discriminator, five u64 fields, one bool.
const StateSize = 8 + 5*8 + 1

// Discriminator is the Anchor account discriminator of BondingCurve.
var Discriminator = solana.AnchorDiscriminator("account:BondingCurve")

// Decode parses a bonding curve account. Any structural mismatch fails with
// domain.ErrFormat; there is no partial result.
func Decode(data []byte) (domain.CurveState, error) {
	if len(data) < StateSize {
		return domain.CurveState{}, fmt.Errorf("%w: bonding curve account is %d bytes, need %d", domain.ErrFormat, len(data), StateSize)
	}
	if !bytes.Equal(data[:8], Discriminator[:]) {
		return domain.CurveState{}, fmt.Errorf("%w: unexpected bonding curve discriminator %x", domain.ErrFormat, data[:8])
	}

	le := binary.LittleEndian
	return domain.CurveState{
		VirtualTokenReserves: le.Uint64(data[8:16]),
		VirtualSolReserves:   le.Uint64(data[16:24]),
		RealTokenReserves:    le.Uint64(data[24:32]),
		RealSolReserves:      le.Uint64(data[32:40]),
		TokenTotalSupply:     le.Uint64(data[40:48]),
		Complete:             data[48] != 0,
	}, nil
}

// Encode is the inverse of Decode. Used to build fixtures.
func Encode(s domain.CurveState) []byte {
	buf := make([]byte, StateSize)
	copy(buf, Discriminator[:])
	le := binary.LittleEndian
	le.PutUint64(buf[8:], s.VirtualTokenReserves)
	le.PutUint64(buf[16:], s.VirtualSolReserves)
	le.PutUint64(buf[24:], s.RealTokenReserves)
	le.PutUint64(buf[32:], s.RealSolReserves)
	le.PutUint64(buf[40:], s.TokenTotalSupply)
	if s.Complete {
		buf[48] = 1
	}
	return buf
}
