package curve

import (
	"context"
	"fmt"

	"github.com/mr-tron/base58"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

// Addresses returns the bonding curve PDA and its associated token account for mint.
func Addresses(mint string) (curve, associated string, err error) {
	mintKey, err := solana.DecodePubkey(mint)
	if err != nil {
		return "", "", err
	}

	curve, _, err = solana.FindProgramAddress([][]byte{[]byte("bonding-curve"), mintKey}, solana.PumpFunProgram)
	if err != nil {
		return "", "", fmt.Errorf("derive bonding curve: %w", err)
	}

	curveKey, err := base58.Decode(curve)
	if err != nil {
		return "", "", fmt.Errorf("decode bonding curve: %w", err)
	}
	tokenProgram, err := solana.DecodePubkey(solana.TokenProgram)
	if err != nil {
		return "", "", err
	}

	associated, _, err = solana.FindProgramAddress([][]byte{curveKey, tokenProgram, mintKey}, solana.AssociatedTokenProgram)
	if err != nil {
		return "", "", fmt.Errorf("derive associated bonding curve: %w", err)
	}
	return curve, associated, nil
}

// Reader loads curve state through an RPC connection.
type Reader struct {
	rpc solana.RPCClient
}

// NewReader creates a Reader.
func NewReader(rpc solana.RPCClient) *Reader {
	return &Reader{rpc: rpc}
}

// Info derives the curve addresses for mint and decodes the curve account.
// A missing account returns domain.ErrNotFound.
func (r *Reader) Info(ctx context.Context, mint string) (*domain.CurveInfo, error) {
	curveAddr, associated, err := Addresses(mint)
	if err != nil {
		return nil, err
	}

	account, err := r.rpc.GetAccountInfo(ctx, curveAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: read bonding curve %s: %v", domain.ErrUpstream, curveAddr, err)
	}
	if account == nil || len(account.Data) == 0 {
		return nil, fmt.Errorf("%w: bonding curve %s for mint %s", domain.ErrNotFound, curveAddr, mint)
	}

	state, err := Decode(account.Data)
	if err != nil {
		return nil, err
	}

	return &domain.CurveInfo{
		Mint:                   mint,
		BondingCurve:           curveAddr,
		AssociatedBondingCurve: associated,
		State:                  state,
	}, nil
}
