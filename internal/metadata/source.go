// Package metadata resolves token metadata from the on-chain metadata program
// or the pump.fun API and normalizes it to domain.TokenMetadata.
package metadata

import (
	"fmt"
	"strconv"

	"token-intel/internal/curve"
	"token-intel/internal/domain"
	"token-intel/internal/pumpfun"
)

// PumpfunUpdateAuthority is the update authority of every pump.fun metadata account.
const PumpfunUpdateAuthority = "TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM"

// Source identifies which upstream shape a Payload carries.
type Source string

// Known sources.
const (
	SourceMetaplex Source = "metaplex"
	SourcePumpfun  Source = "pumpfun"
)

// MetaplexRecord is the on-chain metadata account joined with its mint account.
type MetaplexRecord struct {
	Mint            string
	Name            string
	Symbol          string
	URI             string
	Decimals        uint8
	Supply          uint64
	MintAuthority   *string
	FreezeAuthority *string
	UpdateAuthority string
	Creators        []string
	External        *domain.ExternalMetadata
}

// Payload is a tagged union of upstream responses. Exactly one of the
// pointer fields matches Source.
type Payload struct {
	Source   Source
	Metaplex *MetaplexRecord
	Pumpfun  *pumpfun.Coin
}

// Normalize maps any Payload variant to TokenMetadata.
func Normalize(p Payload) (domain.TokenMetadata, error) {
	switch p.Source {
	case SourceMetaplex:
		if p.Metaplex == nil {
			break
		}
		return fromMetaplex(p.Metaplex), nil
	case SourcePumpfun:
		if p.Pumpfun == nil {
			break
		}
		return fromPumpfun(p.Pumpfun), nil
	}
	return domain.TokenMetadata{}, fmt.Errorf("%w: metadata payload %q has no body", domain.ErrFormat, p.Source)
}

func fromMetaplex(r *MetaplexRecord) domain.TokenMetadata {
	md := domain.TokenMetadata{
		Mint:             r.Mint,
		Name:             r.Name,
		Symbol:           r.Symbol,
		Decimals:         int(r.Decimals),
		Supply:           strconv.FormatUint(r.Supply, 10),
		MintAuthority:    r.MintAuthority,
		FreezeAuthority:  r.FreezeAuthority,
		UpdateAuthority:  r.UpdateAuthority,
		URI:              r.URI,
		IsPumpfun:        r.UpdateAuthority == PumpfunUpdateAuthority,
		ExternalMetadata: r.External,
	}
	if len(r.Creators) > 0 {
		creator := r.Creators[0]
		md.Creator = &creator
	}
	return md
}

func fromPumpfun(c *pumpfun.Coin) domain.TokenMetadata {
	md := domain.TokenMetadata{
		Mint:            c.Mint,
		Name:            c.Name,
		Symbol:          c.Symbol,
		Decimals:        curve.TokenDecimals,
		Supply:          strconv.FormatUint(uint64(c.TotalSupply), 10),
		UpdateAuthority: PumpfunUpdateAuthority,
		URI:             c.MetadataURI,
		IsPumpfun:       true,
		ExternalMetadata: &domain.ExternalMetadata{
			Name:        c.Name,
			Symbol:      c.Symbol,
			Description: c.Description,
			Image:       c.ImageURI,
			ShowName:    c.ShowName,
			CreatedOn:   "https://pump.fun",
			Twitter:     deref(c.Twitter),
			Website:     deref(c.Website),
			Telegram:    deref(c.Telegram),
		},
	}
	if c.Creator != "" {
		creator := c.Creator
		md.Creator = &creator
	}
	return md
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
