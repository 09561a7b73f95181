package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"token-intel/internal/curve"
	"token-intel/internal/domain"
	"token-intel/internal/metadata"
	"token-intel/internal/research"
	"token-intel/internal/solana"
	"token-intel/internal/volume"
)

const defaultHistoryLimit = 100

// CurveResponse is the bonding-curve view of a mint.
type CurveResponse struct {
	*domain.CurveInfo
	PriceSOL float64               `json:"priceSol"`
	Progress *domain.CurveProgress `json:"progress"`
}

// VolumeResponse is the volume view of a mint.
type VolumeResponse struct {
	Mint       string                      `json:"mint"`
	Volumes    map[int]domain.VolumeResult `json:"volumes"`
	TradeCount int                         `json:"tradeCount"`
	LastTrade  *domain.Trade               `json:"lastTrade"`
}

// mintParam validates the :mint path parameter.
func mintParam(c *gin.Context) (string, bool) {
	mint := c.Param("mint")
	if !solana.IsValidAddress(mint) {
		respondError(c, fmt.Errorf("%w: invalid mint address %q", domain.ErrValidation, mint))
		return "", false
	}
	return mint, true
}

// intQuery parses a positive integer query parameter, falling back to def.
func intQuery(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, key)
	}
	return n, nil
}

// bucketsQuery parses ?buckets=5,15,60.
func bucketsQuery(c *gin.Context, def []int) ([]int, error) {
	raw := c.Query("buckets")
	if raw == "" {
		return def, nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: invalid bucket width %q", domain.ErrValidation, part)
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Server) getMetadata(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	md, err := s.svc.Metadata.Resolve(c.Request.Context(), mint)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, md)
}

func (s *Server) getPrice(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	price, err := s.svc.Pricer.Price(c.Request.Context(), mint)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, price)
}

func (s *Server) getCurve(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	info, err := s.svc.Curves.Info(c.Request.Context(), mint)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := CurveResponse{CurveInfo: info}
	if price, err := curve.Price(info.State); err == nil {
		resp.PriceSOL = price
	}
	if progress, err := curve.Progress(info.State); err == nil {
		resp.Progress = &progress
	}
	respond(c, resp)
}

func (s *Server) getHolders(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	dist, err := s.svc.Holders.GetHolders(c.Request.Context(), mint)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, dist)
}

// getVolume analyzes trade volume of a pump.fun token still on its curve.
func (s *Server) getVolume(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	buckets, err := bucketsQuery(c, s.opts.VolumeBuckets)
	if err != nil {
		respondError(c, err)
		return
	}
	ctx := c.Request.Context()

	md, err := s.svc.Metadata.Resolve(ctx, mint)
	if err != nil {
		respondError(c, err)
		return
	}
	if !md.IsPumpfun && md.UpdateAuthority != metadata.PumpfunUpdateAuthority {
		respondError(c, fmt.Errorf("%w: %s is not a pump.fun token", domain.ErrValidation, mint))
		return
	}
	info, err := s.svc.Curves.Info(ctx, mint)
	if err != nil {
		respondError(c, err)
		return
	}
	if info.State.Complete {
		respondError(c, fmt.Errorf("%w: bonding curve of %s is complete", domain.ErrValidation, mint))
		return
	}

	trades, err := s.svc.Trades.Trades(ctx, mint)
	if err != nil {
		respondError(c, err)
		return
	}
	now := s.now()
	results := volume.Analyze(trades, buckets, now)

	if s.svc.Snapshots != nil {
		if err := s.svc.Snapshots.InsertBulk(ctx, volume.Snapshots(mint, results, now)); err != nil {
			s.log.WithError(err).WithField("mint", mint).Warn("failed to persist volume snapshots")
		}
	}

	resp := VolumeResponse{Mint: mint, Volumes: results, TradeCount: len(trades)}
	for i := range trades {
		if resp.LastTrade == nil || trades[i].Timestamp > resp.LastTrade.Timestamp {
			resp.LastTrade = &trades[i]
		}
	}
	respond(c, resp)
}

func (s *Server) getVolumeHistory(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	if s.svc.Snapshots == nil {
		respondError(c, fmt.Errorf("%w: volume history is not configured", domain.ErrNotFound))
		return
	}
	bucket, err := intQuery(c, "bucket", 0)
	if err == nil && bucket == 0 {
		err = fmt.Errorf("%w: bucket is required", domain.ErrValidation)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", defaultHistoryLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	snaps, err := s.svc.Snapshots.GetByMint(c.Request.Context(), mint, bucket, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, snaps)
}

func (s *Server) getSimilar(c *gin.Context) {
	mint, ok := mintParam(c)
	if !ok {
		return
	}
	if s.svc.Similar == nil {
		respondError(c, fmt.Errorf("%w: similar token lookup is disabled", domain.ErrNotFound))
		return
	}
	limit, err := intQuery(c, "limit", s.opts.SimilarLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	coins, err := s.svc.Similar.Similar(c.Request.Context(), mint, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, research.SimilarCoins(coins))
}
