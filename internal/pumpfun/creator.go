package pumpfun

import (
	"context"
	"fmt"

	"token-intel/internal/domain"
)

// Market cap bands (USD) used to classify a creator's earlier launches.
const (
	RugMarketCapUSD         = 4_000
	ProgressMinMarketCapUSD = 10_000
	ProgressMaxMarketCapUSD = 50_000
)

// AnalyzeCreatorCoins classifies earlier launches. Completed curves count as
// successful. Independently, coins under RugMarketCapUSD are rugs and coins
// inside the progress band are in progress. With include set, each counted
// coin is listed as well.
func AnalyzeCreatorCoins(creator string, coins []Coin, include bool) domain.CreatorStats {
	stats := domain.CreatorStats{Creator: creator, Total: len(coins)}
	if include {
		stats.SuccessTokens = []domain.CreatorToken{}
		stats.RugTokens = []domain.CreatorToken{}
		stats.ProgressTokens = []domain.CreatorToken{}
	}
	for _, c := range coins {
		token := domain.CreatorToken{
			Mint:             c.Mint,
			Name:             c.Name,
			Symbol:           c.Symbol,
			Image:            c.ImageURI,
			CreatedTimestamp: c.CreatedTimestamp,
		}
		if c.Complete {
			stats.Successful++
			if include {
				stats.SuccessTokens = append(stats.SuccessTokens, token)
			}
		}
		if c.USDMarketCap < RugMarketCapUSD {
			stats.Rugged++
			if include {
				stats.RugTokens = append(stats.RugTokens, token)
			}
		} else if c.USDMarketCap >= ProgressMinMarketCapUSD && c.USDMarketCap <= ProgressMaxMarketCapUSD {
			stats.InProgress++
			if include {
				stats.ProgressTokens = append(stats.ProgressTokens, token)
			}
		}
	}
	return stats
}

// CreatorStats fetches and classifies the launches of creator.
func (c *Client) CreatorStats(ctx context.Context, creator string, limit int) (domain.CreatorStats, error) {
	return c.CreatorReport(ctx, creator, limit, false)
}

// CreatorReport is CreatorStats with the per-class token lists when include is set.
func (c *Client) CreatorReport(ctx context.Context, creator string, limit int, include bool) (domain.CreatorStats, error) {
	coins, err := c.CreatedBy(ctx, creator, limit)
	if err != nil {
		return domain.CreatorStats{}, fmt.Errorf("creator stats: %w", err)
	}
	return AnalyzeCreatorCoins(creator, coins, include), nil
}
