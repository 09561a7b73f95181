package market

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"token-intel/internal/curve"
	"token-intel/internal/domain"
	"token-intel/internal/logger"
)

// CirculatingTokens is the fixed pump.fun token supply used for market cap.
const CirculatingTokens = 1_000_000_000

// pricePlaces is the precision kept for SOL and USD prices.
const pricePlaces = 12

// CurveReader loads bonding curve state.
type CurveReader interface {
	Info(ctx context.Context, mint string) (*domain.CurveInfo, error)
}

// SolPriceSource returns SOL/USD.
type SolPriceSource interface {
	SolUSD(ctx context.Context) (float64, error)
}

// TokenPricer prices a bonding-curve token.
type TokenPricer struct {
	curves CurveReader
	sol    SolPriceSource
	log    *logrus.Entry
}

// NewTokenPricer creates a TokenPricer.
func NewTokenPricer(curves CurveReader, sol SolPriceSource, log *logrus.Entry) *TokenPricer {
	return &TokenPricer{curves: curves, sol: sol, log: logger.OrDiscard(log, "market")}
}

// Price returns the curve price of mint in SOL and USD. If no SOL feed
// answers, USD fields are zero and the SOL price is still returned.
func (p *TokenPricer) Price(ctx context.Context, mint string) (*domain.TokenPrice, error) {
	price, _, err := p.Quote(ctx, mint)
	return price, err
}

// Quote is Price that also returns the curve account it was computed from,
// so callers needing curve progress do not read the account twice.
func (p *TokenPricer) Quote(ctx context.Context, mint string) (*domain.TokenPrice, *domain.CurveInfo, error) {
	info, err := p.curves.Info(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	priceSOL, err := curve.Price(info.State)
	if err != nil {
		return nil, nil, err
	}

	solUSD, err := p.sol.SolUSD(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		p.log.WithField("mint", mint).WithError(err).Warn("SOL price unavailable, reporting zero USD")
		solUSD = 0
	}

	sol := decimal.NewFromFloat(priceSOL).Round(pricePlaces)
	usd := sol.Mul(decimal.NewFromFloat(solUSD)).Round(pricePlaces)
	mcap := usd.Mul(decimal.NewFromInt(CirculatingTokens))

	return &domain.TokenPrice{
		Mint:      mint,
		PriceSOL:  sol.InexactFloat64(),
		PriceUSD:  usd.InexactFloat64(),
		SolUSD:    solUSD,
		MarketCap: mcap.InexactFloat64(),
		Complete:  info.State.Complete,
	}, info, nil
}
