package curve

import (
	"fmt"
	"math"
	"math/big"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

// TokenDecimals is the decimal count of every pump.fun token.
const TokenDecimals = 6

// ReservedTokens is the amount held back from the curve for migration, in raw units.
const ReservedTokens uint64 = 206_900_000 * 1_000_000

// Price returns the token price in SOL.
// Zero virtual token reserves fail with domain.ErrDivisionByZero.
func Price(s domain.CurveState) (float64, error) {
	if s.VirtualTokenReserves == 0 {
		return 0, fmt.Errorf("%w: virtual token reserves are zero", domain.ErrDivisionByZero)
	}
	sol := float64(s.VirtualSolReserves) / solana.LamportsPerSOL
	tokens := float64(s.VirtualTokenReserves) / math.Pow10(TokenDecimals)
	return sol / tokens, nil
}

// Progress returns the completion of the curve computed in integer arithmetic:
// 100 - realTokenReserves*100 / (totalSupply - reserved).
func Progress(s domain.CurveState) (domain.CurveProgress, error) {
	total := new(big.Int).SetUint64(s.TokenTotalSupply)
	initial := new(big.Int).Sub(total, new(big.Int).SetUint64(ReservedTokens))
	if initial.Sign() <= 0 {
		return domain.CurveProgress{}, fmt.Errorf("%w: initial real token reserves %s", domain.ErrDivisionByZero, initial)
	}

	realReserves := new(big.Int).SetUint64(s.RealTokenReserves)
	remaining := new(big.Int).Mul(realReserves, big.NewInt(100))
	remaining.Quo(remaining, initial)
	percent := new(big.Int).Sub(big.NewInt(100), remaining)

	return domain.CurveProgress{
		BondingCurveProgress:     percent.String(),
		RealTokenReserves:        realReserves.String(),
		TokenTotalSupply:         total.String(),
		InitialRealTokenReserves: initial.String(),
		PercentComplete:          float64(percent.Int64()),
	}, nil
}
