package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"token-intel/internal/curve"
	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/observability"
	"token-intel/internal/pumpfun"
	"token-intel/internal/solana"
	"token-intel/internal/volume"
)

// Step ids, in execution order.
const (
	StepTokenInfo    = "token-info"
	StepSocialVerify = "social-verify"
	StepMarket       = "market"
	StepVolume       = "volume"
	StepHolders      = "holders"
	StepSimilar      = "similar"
	StepCreator      = "creator"
	StepSentiment    = "sentiment"
)

// Summary labels attached to every completed run.
const (
	RiskLevel         = "Medium"
	RecommendedAction = "DYOR"
)

// Defaults for the list-producing steps.
const (
	DefaultSimilarLimit = 15
	DefaultCreatorLimit = 500
	topHolders          = 10
)

// Steps returns the ordered step definitions of a research run.
func Steps() []StepDef {
	return []StepDef{
		{StepTokenInfo, "Token Information", "Fetching basic token information and metadata"},
		{StepSocialVerify, "Social Verification", "Verifying social presence and community engagement"},
		{StepMarket, "Market Analysis", "Analyzing market cap and price performance"},
		{StepVolume, "Volume Analysis", "Analyzing trading volume and liquidity"},
		{StepHolders, "Holder Analysis", "Analyzing token distribution and holder demographics"},
		{StepSimilar, "Similar Tokens", "Finding and comparing similar tokens"},
		{StepCreator, "Creator Analysis", "Analyzing the token creator and team"},
		{StepSentiment, "Sentiment Analysis", "Analyzing social sentiment and community feedback"},
	}
}

// MetadataResolver resolves normalized token metadata.
type MetadataResolver interface {
	Resolve(ctx context.Context, mint string) (*domain.TokenMetadata, error)
}

// TokenPricer prices a bonding-curve token and returns the curve state the
// price was computed from.
type TokenPricer interface {
	Quote(ctx context.Context, mint string) (*domain.TokenPrice, *domain.CurveInfo, error)
}

// TradeSource lists trades of a mint, newest first.
type TradeSource interface {
	Trades(ctx context.Context, mint string) ([]domain.Trade, error)
}

// HolderSource ranks the holders of a mint.
type HolderSource interface {
	GetHolders(ctx context.Context, mint string) (*domain.HolderDistribution, error)
}

// SimilarFinder lists coins similar to a mint.
type SimilarFinder interface {
	Similar(ctx context.Context, mint string, limit int) ([]pumpfun.Coin, error)
}

// CreatorAnalyzer summarizes a creator's launch history.
type CreatorAnalyzer interface {
	CreatorStats(ctx context.Context, creator string, limit int) (domain.CreatorStats, error)
}

// SocialAnalyzer builds a social report for a search query.
type SocialAnalyzer interface {
	Analyze(ctx context.Context, query string) (*domain.SocialReport, error)
}

// Options configures a Workflow. Similar is optional; the similar step is
// skipped without it.
type Options struct {
	Metadata MetadataResolver
	Pricer   TokenPricer
	Trades   TradeSource
	Holders  HolderSource
	Similar  SimilarFinder
	Creators CreatorAnalyzer
	Social   SocialAnalyzer

	VolumeBuckets []int // defaults to volume.DefaultBuckets
	SimilarLimit  int
	CreatorLimit  int
	Log           *logrus.Entry
}

// Workflow runs research sessions. It is safe for concurrent use; each Run
// owns its own Session.
type Workflow struct {
	opts Options
	log  *logrus.Entry
	now  func() time.Time
}

// NewWorkflow creates a Workflow.
func NewWorkflow(opts Options) *Workflow {
	if len(opts.VolumeBuckets) == 0 {
		opts.VolumeBuckets = volume.DefaultBuckets
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = DefaultSimilarLimit
	}
	if opts.CreatorLimit <= 0 {
		opts.CreatorLimit = DefaultCreatorLimit
	}
	return &Workflow{opts: opts, log: logger.OrDiscard(opts.Log, "research"), now: time.Now}
}

// SocialLinks is the result of the social-verify step.
type SocialLinks struct {
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`
	Verified bool   `json:"verified"` // at least one link present
}

// MarketInfo is the result of the market step.
type MarketInfo struct {
	Price    *domain.TokenPrice    `json:"price"`
	Progress *domain.CurveProgress `json:"progress,omitempty"`
}

// VolumeInfo is the result of the volume step.
type VolumeInfo struct {
	Volumes    map[int]domain.VolumeResult `json:"volumes"` // keyed by bucket minutes
	TradeCount int                         `json:"tradeCount"`
	LastTrade  *domain.Trade               `json:"lastTrade,omitempty"`
}

// HolderInfo is the result of the holders step.
type HolderInfo struct {
	TotalHolders    int                   `json:"totalHolders"`
	Top10Percentage float64               `json:"top10Percentage"`
	Top             []domain.HolderRecord `json:"top"`
}

// SimilarCoin is one entry of the similar step result.
type SimilarCoin struct {
	Mint        string  `json:"mint"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"desc,omitempty"`
	Image       string  `json:"image,omitempty"`
	MetadataURI string  `json:"metadata_uri,omitempty"`
	CreatedAt   int64   `json:"created_at"`
	MarketCap   float64 `json:"marketcap"`
	Completed   bool    `json:"completed"`
}

// state carries step outputs forward to later steps and the summary.
type state struct {
	mint      string
	metadata  *domain.TokenMetadata
	market    *MarketInfo
	sentiment *domain.SocialReport
}

type step struct {
	id  string
	run func(ctx context.Context, st *state) (interface{}, error)
	// skip returns a non-empty reason when the step should not run.
	skip func(st *state) string
}

// Run executes every step in order. A step failure aborts the remaining
// steps and yields a partial result; Run only returns an error for an
// invalid mint.
func (w *Workflow) Run(ctx context.Context, mint string, sink Sink) (domain.ResearchResult, error) {
	if !solana.IsValidAddress(mint) {
		return domain.ResearchResult{}, fmt.Errorf("%w: invalid mint address %q", domain.ErrValidation, mint)
	}

	log := w.log.WithField("mint", mint)
	session := NewSession(Steps(), sink, log)
	session.now = w.now
	session.Begin(ctx)

	st := &state{mint: mint}
	for _, s := range w.plan() {
		if err := ctx.Err(); err != nil {
			return w.partial(session, log, err), nil
		}

		if s.skip != nil {
			if reason := s.skip(st); reason != "" {
				if err := session.Skip(ctx, s.id, reason); err != nil {
					return w.partial(session, log, err), nil
				}
				observability.RecordResearchStep(s.id, string(domain.StepSkipped), 0)
				continue
			}
		}

		if err := w.execute(ctx, session, s, st); err != nil {
			log.WithField("step", s.id).WithError(err).Warn("research step failed")
			return w.partial(session, log, err), nil
		}
	}

	summary := w.summary(st)
	session.Finish(ctx, summary)
	observability.RecordResearchRun(domain.FinishCompleted)
	log.Info("research completed")

	return domain.ResearchResult{
		FinishReason: domain.FinishCompleted,
		Data:         session.CompletedResults(),
		Summary:      &summary,
	}, nil
}

func (w *Workflow) execute(ctx context.Context, session *Session, s step, st *state) error {
	if err := session.Start(ctx, s.id); err != nil {
		return err
	}

	started := time.Now()
	result, err := s.run(ctx, st)
	elapsed := time.Since(started).Seconds()

	if err != nil {
		observability.RecordResearchStep(s.id, string(domain.StepFailed), elapsed)
		if ferr := session.Fail(ctx, s.id, err); ferr != nil {
			w.log.WithError(ferr).Error("record step failure")
		}
		return err
	}

	observability.RecordResearchStep(s.id, string(domain.StepCompleted), elapsed)
	return session.Complete(ctx, s.id, result)
}

func (w *Workflow) partial(session *Session, log *logrus.Entry, err error) domain.ResearchResult {
	observability.RecordResearchRun(domain.FinishPartial)
	log.WithError(err).Info("research finished partially")
	return domain.ResearchResult{
		FinishReason: domain.FinishPartial,
		Error:        err.Error(),
		Data:         session.CompletedResults(),
	}
}

func (w *Workflow) plan() []step {
	return []step{
		{id: StepTokenInfo, run: w.tokenInfo},
		{id: StepSocialVerify, run: w.socialVerify},
		{id: StepMarket, run: w.market},
		{id: StepVolume, run: w.volume},
		{id: StepHolders, run: w.holders},
		{id: StepSimilar, run: w.similar, skip: func(*state) string {
			if w.opts.Similar == nil {
				return "no similar tokens found"
			}
			return ""
		}},
		{id: StepCreator, run: w.creator, skip: func(st *state) string {
			if st.metadata == nil || st.metadata.Creator == nil || *st.metadata.Creator == "" {
				return "creator unknown"
			}
			return ""
		}},
		{id: StepSentiment, run: w.sentiment},
	}
}

func (w *Workflow) tokenInfo(ctx context.Context, st *state) (interface{}, error) {
	md, err := w.opts.Metadata.Resolve(ctx, st.mint)
	if err != nil {
		return nil, err
	}
	st.metadata = md
	return md, nil
}

func (w *Workflow) socialVerify(_ context.Context, st *state) (interface{}, error) {
	links := SocialLinks{}
	if ext := st.metadata.ExternalMetadata; ext != nil {
		links.Twitter = ext.Twitter
		links.Telegram = ext.Telegram
		links.Website = ext.Website
	}
	links.Verified = links.Twitter != "" || links.Telegram != "" || links.Website != ""
	return links, nil
}

func (w *Workflow) market(ctx context.Context, st *state) (interface{}, error) {
	price, ci, err := w.opts.Pricer.Quote(ctx, st.mint)
	if err != nil {
		return nil, err
	}
	info := &MarketInfo{Price: price}
	if ci != nil {
		progress, err := curve.Progress(ci.State)
		if err != nil {
			return nil, err
		}
		info.Progress = &progress
	}
	st.market = info
	return info, nil
}

func (w *Workflow) volume(ctx context.Context, st *state) (interface{}, error) {
	trades, err := w.opts.Trades.Trades(ctx, st.mint)
	if err != nil {
		return nil, err
	}
	info := VolumeInfo{
		Volumes:    volume.Analyze(trades, w.opts.VolumeBuckets, w.now()),
		TradeCount: len(trades),
	}
	if len(trades) > 0 {
		latest := trades[0]
		for _, t := range trades[1:] {
			if t.Timestamp > latest.Timestamp {
				latest = t
			}
		}
		info.LastTrade = &latest
	}
	return info, nil
}

func (w *Workflow) holders(ctx context.Context, st *state) (interface{}, error) {
	dist, err := w.opts.Holders.GetHolders(ctx, st.mint)
	if err != nil {
		return nil, err
	}
	n := len(dist.Data)
	if n > topHolders {
		n = topHolders
	}
	info := HolderInfo{TotalHolders: dist.Count, Top: append([]domain.HolderRecord(nil), dist.Data[:n]...)}
	for _, h := range info.Top {
		info.Top10Percentage += h.Percentage
	}
	return info, nil
}

func (w *Workflow) similar(ctx context.Context, st *state) (interface{}, error) {
	coins, err := w.opts.Similar.Similar(ctx, st.mint, w.opts.SimilarLimit)
	if err != nil {
		return nil, err
	}
	return SimilarCoins(coins), nil
}

// SimilarCoins projects pump.fun coins onto the similar step result shape.
func SimilarCoins(coins []pumpfun.Coin) []SimilarCoin {
	out := make([]SimilarCoin, 0, len(coins))
	for _, c := range coins {
		out = append(out, SimilarCoin{
			Mint:        c.Mint,
			Name:        c.Name,
			Symbol:      c.Symbol,
			Description: c.Description,
			Image:       c.ImageURI,
			MetadataURI: c.MetadataURI,
			CreatedAt:   c.CreatedTimestamp,
			MarketCap:   c.USDMarketCap,
			Completed:   c.Complete,
		})
	}
	return out
}

func (w *Workflow) creator(ctx context.Context, st *state) (interface{}, error) {
	return w.opts.Creators.CreatorStats(ctx, *st.metadata.Creator, w.opts.CreatorLimit)
}

func (w *Workflow) sentiment(ctx context.Context, st *state) (interface{}, error) {
	report, err := w.opts.Social.Analyze(ctx, socialQuery(st))
	if err != nil {
		return nil, err
	}
	st.sentiment = report
	return report, nil
}

// socialQuery searches for the mint and, when known, the cashtag.
func socialQuery(st *state) string {
	if st.metadata != nil && st.metadata.Symbol != "" && !strings.ContainsAny(st.metadata.Symbol, " \"") {
		return fmt.Sprintf("%s OR $%s", st.mint, st.metadata.Symbol)
	}
	return st.mint
}

func (w *Workflow) summary(st *state) domain.ResearchSummary {
	s := domain.ResearchSummary{
		MintAddress:       st.mint,
		Sentiment:         domain.SentimentNeutral,
		RiskLevel:         RiskLevel,
		RecommendedAction: RecommendedAction,
	}
	if st.metadata != nil {
		s.Name = st.metadata.Name
		s.Symbol = st.metadata.Symbol
	}
	if st.market != nil && st.market.Price != nil {
		s.MarketCap = st.market.Price.MarketCap
	}
	if st.sentiment != nil && st.sentiment.Sentiment.Label != "" {
		s.Sentiment = st.sentiment.Sentiment.Label
	}
	return s
}
