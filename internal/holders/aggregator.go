// Package holders builds token holder distributions and classifies addresses.
package holders

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/blocto/solana-go-sdk/program/token"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/solana"
)

// TokenAccountSize is the byte length of an SPL token account.
const TokenAccountSize = 165

// mintOffset is where a token account stores its mint.
const mintOffset = 0

// Config configures an Aggregator.
type Config struct {
	// IgnoreOwners are owner addresses left out of the distribution,
	// such as bonding curves or burn addresses.
	IgnoreOwners []string
}

// Aggregator lists the holders of a mint.
type Aggregator struct {
	rpc    solana.RPCClient
	ignore map[string]struct{}
	log    *logrus.Entry
}

// NewAggregator creates an Aggregator.
func NewAggregator(rpc solana.RPCClient, cfg Config, log *logrus.Entry) *Aggregator {
	ignore := make(map[string]struct{}, len(cfg.IgnoreOwners))
	for _, o := range cfg.IgnoreOwners {
		ignore[o] = struct{}{}
	}
	return &Aggregator{rpc: rpc, ignore: ignore, log: logger.OrDiscard(log, "holders")}
}

// GetHolders returns every non-empty token account of mint, largest first.
// Accounts that fail to parse are skipped.
func (a *Aggregator) GetHolders(ctx context.Context, mint string) (*domain.HolderDistribution, error) {
	if !solana.IsValidAddress(mint) {
		return nil, fmt.Errorf("%w: invalid mint %q", domain.ErrValidation, mint)
	}

	supply, err := a.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSupplyUnavailable, mint, err)
	}
	rawSupply, err := supply.RawAmount()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSupplyUnavailable, mint, err)
	}
	if rawSupply == 0 {
		return nil, fmt.Errorf("%w: %s: zero supply", domain.ErrSupplyUnavailable, mint)
	}
	decimals := int32(supply.Decimals)
	total := scale(rawSupply, decimals)

	accounts, err := a.rpc.GetProgramAccounts(ctx, solana.TokenProgram, []solana.AccountFilter{
		solana.DataSizeFilter(TokenAccountSize),
		solana.MemcmpAt(mintOffset, mint),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: token accounts %s: %v", domain.ErrUpstream, mint, err)
	}
	a.log.WithFields(logrus.Fields{"mint": mint, "accounts": len(accounts)}).Info("fetched token accounts")

	hundred := decimal.NewFromInt(100)
	records := make([]domain.HolderRecord, 0, len(accounts))
	for _, acc := range accounts {
		ta, err := token.TokenAccountFromData(acc.Account.Data)
		if err != nil {
			a.log.WithField("account", acc.Pubkey).WithError(err).Warn("skipping unparseable token account")
			continue
		}
		if ta.Amount == 0 {
			a.log.WithField("account", acc.Pubkey).Debug("skipping empty token account")
			continue
		}
		owner := ta.Owner.ToBase58()
		if _, skip := a.ignore[owner]; skip {
			continue
		}

		amount := scale(ta.Amount, decimals)
		records = append(records, domain.HolderRecord{
			Wallet:     owner,
			Amount:     amount.InexactFloat64(),
			Percentage: amount.Div(total).Mul(hundred).InexactFloat64(),
			IsWallet:   solana.IsOnCurveAddress(owner),
		})
	}

	sort.SliceStable(records, func(i, j int) bool { return records[i].Amount > records[j].Amount })

	return &domain.HolderDistribution{
		Mint:  mint,
		Count: len(records),
		Data:  records,
	}, nil
}

func scale(raw uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -decimals)
}
