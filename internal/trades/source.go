// Package trades fetches bonding-curve trades from pump.fun with an
// on-chain fallback.
package trades

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"token-intel/internal/curve"
	"token-intel/internal/domain"
	"token-intel/internal/fallback"
	"token-intel/internal/logger"
	"token-intel/internal/solana"
)

// Defaults for the on-chain scanner.
const (
	DefaultSignaturePage = 1000
	DefaultMaxSignatures = 2000
)

// APIFetcher is the pump.fun trade listing.
type APIFetcher interface {
	Trades(ctx context.Context, mint string) ([]domain.Trade, error)
}

// Source returns trades newest first.
type Source struct {
	api           APIFetcher
	rpc           solana.RPCClient
	maxCycles     int
	maxSignatures int
	log           *logrus.Entry
}

// NewSource creates a Source. rpc may be nil to disable the on-chain fallback.
func NewSource(api APIFetcher, rpc solana.RPCClient, maxCycles, maxSignatures int, log *logrus.Entry) *Source {
	if maxSignatures <= 0 {
		maxSignatures = DefaultMaxSignatures
	}
	return &Source{
		api:           api,
		rpc:           rpc,
		maxCycles:     maxCycles,
		maxSignatures: maxSignatures,
		log:           logger.OrDiscard(log, "trades"),
	}
}

// Trades tries the pump.fun API first, then the bonding curve transaction log.
func (s *Source) Trades(ctx context.Context, mint string) ([]domain.Trade, error) {
	plan := []fallback.Strategy[[]domain.Trade]{
		{Name: "pumpfun-api", Fetch: func(ctx context.Context) ([]domain.Trade, error) {
			return s.api.Trades(ctx, mint)
		}},
	}
	if s.rpc != nil {
		plan = append(plan, fallback.Strategy[[]domain.Trade]{
			Name:  "onchain-events",
			Fetch: func(ctx context.Context) ([]domain.Trade, error) { return s.OnChain(ctx, mint) },
		})
	}

	out, err := fallback.Execute(ctx, fallback.New("trades", s.maxCycles, s.log), plan)
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}

// OnChain scans recent bonding curve transactions and decodes TradeEvents.
func (s *Source) OnChain(ctx context.Context, mint string) ([]domain.Trade, error) {
	curveAddr, _, err := curve.Addresses(mint)
	if err != nil {
		return nil, err
	}

	sigs, err := s.signatures(ctx, curveAddr)
	if err != nil {
		return nil, err
	}

	var out []domain.Trade
	for _, sig := range sigs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tx, err := s.rpc.GetTransaction(ctx, sig.Signature)
		if err != nil || tx == nil || tx.Meta == nil {
			s.log.WithField("signature", sig.Signature).WithError(err).Debug("skipping transaction")
			continue
		}

		slot := tx.Slot
		for _, payload := range solana.ProgramDataEvents(tx.Meta.LogMessages, solana.PumpFunProgram) {
			t, err := DecodeTradeEvent(payload)
			if err != nil {
				continue
			}
			if t.Mint != mint {
				continue
			}
			t.Signature = sig.Signature
			t.Slot = &slot
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// signatures pages backwards through successful signatures of address.
func (s *Source) signatures(ctx context.Context, address string) ([]solana.SignatureInfo, error) {
	var all []solana.SignatureInfo
	before := ""
	for len(all) < s.maxSignatures {
		limit := min(DefaultSignaturePage, s.maxSignatures-len(all))
		page, err := s.rpc.GetSignaturesForAddress(ctx, address, &solana.SignaturesOpts{
			Before: before,
			Limit:  limit,
		})
		if err != nil {
			return nil, fmt.Errorf("signatures for %s: %w", address, err)
		}
		if len(page) == 0 {
			break
		}
		for _, sig := range page {
			if sig.Err == nil {
				all = append(all, sig)
			}
		}
		if len(page) < limit {
			break
		}
		before = page[len(page)-1].Signature
	}
	return all, nil
}
