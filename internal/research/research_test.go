package research

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-intel/internal/domain"
	"token-intel/internal/pumpfun"
)

const (
	mint    = "7esezYBWmGdkBW8dgdVNb5vrjcocULzq5YASZE6bpump"
	creator = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

type recorder struct {
	mu   sync.Mutex
	msgs []domain.ProgressMessage
}

func (r *recorder) Emit(_ context.Context, msg domain.ProgressMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) last() domain.ProgressMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.msgs[len(r.msgs)-1]
}

// processed lists the step ids that received a processing emission.
func (r *recorder) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, m := range r.msgs {
		if m.CurrentStep == nil {
			continue
		}
		for _, st := range m.Steps {
			if st.ID == *m.CurrentStep && st.Status == domain.StepProcessing {
				ids = append(ids, st.ID)
			}
		}
	}
	return ids
}

type stubMetadata struct{ err error }

func (s stubMetadata) Resolve(context.Context, string) (*domain.TokenMetadata, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := creator
	return &domain.TokenMetadata{
		Mint:             mint,
		Name:             "Pepe",
		Symbol:           "PEPE",
		Creator:          &c,
		IsPumpfun:        true,
		ExternalMetadata: &domain.ExternalMetadata{Twitter: "https://x.com/pepe"},
	}, nil
}

type stubPricer struct {
	err   error
	curve *domain.CurveInfo
	calls int
}

func (s *stubPricer) Quote(context.Context, string) (*domain.TokenPrice, *domain.CurveInfo, error) {
	s.calls++
	if s.err != nil {
		return nil, nil, s.err
	}
	return &domain.TokenPrice{Mint: mint, PriceSOL: 4e-8, PriceUSD: 6e-6, SolUSD: 150, MarketCap: 6000}, s.curve, nil
}

func halfwayCurve() *domain.CurveInfo {
	return &domain.CurveInfo{Mint: mint, State: domain.CurveState{
		TokenTotalSupply:  1_000_000_000_000_000,
		RealTokenReserves: 396_550_000_000_000,
	}}
}

type stubTrades struct{ trades []domain.Trade }

func (s stubTrades) Trades(context.Context, string) ([]domain.Trade, error) { return s.trades, nil }

type stubHolders struct{}

func (stubHolders) GetHolders(context.Context, string) (*domain.HolderDistribution, error) {
	data := make([]domain.HolderRecord, 12)
	for i := range data {
		data[i] = domain.HolderRecord{Wallet: creator, Amount: float64(12 - i), Percentage: 5}
	}
	return &domain.HolderDistribution{Mint: mint, Count: len(data), Data: data}, nil
}

type stubSimilar struct{}

func (stubSimilar) Similar(_ context.Context, _ string, limit int) ([]pumpfun.Coin, error) {
	return []pumpfun.Coin{{Mint: "other", Name: "Pepe 2", USDMarketCap: 1200}}, nil
}

type stubCreators struct{ calls int }

func (s *stubCreators) CreatorStats(_ context.Context, c string, _ int) (domain.CreatorStats, error) {
	s.calls++
	return domain.CreatorStats{Creator: c, Total: 3, Rugged: 2}, nil
}

type stubSocial struct{ query string }

func (s *stubSocial) Analyze(_ context.Context, q string) (*domain.SocialReport, error) {
	s.query = q
	return &domain.SocialReport{Query: q, PostCount: 4, Sentiment: domain.SentimentSummary{Positive: 3, Negative: 1, Total: 4, Label: domain.SentimentBullish}}, nil
}

func newWorkflow(opts Options) *Workflow {
	if opts.Metadata == nil {
		opts.Metadata = stubMetadata{}
	}
	if opts.Pricer == nil {
		opts.Pricer = &stubPricer{}
	}
	if opts.Trades == nil {
		opts.Trades = stubTrades{trades: []domain.Trade{
			{Signature: "a", SolAmount: 1_000_000_000, IsBuy: true, User: creator, Timestamp: 1_700_000_000 - 10},
			{Signature: "b", SolAmount: 500_000_000, User: creator, Timestamp: 1_700_000_000 - 5},
		}}
	}
	if opts.Holders == nil {
		opts.Holders = stubHolders{}
	}
	if opts.Creators == nil {
		opts.Creators = &stubCreators{}
	}
	if opts.Social == nil {
		opts.Social = &stubSocial{}
	}
	w := NewWorkflow(opts)
	w.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return w
}

func TestSession_Transitions(t *testing.T) {
	s := NewSession(Steps(), nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.Complete(ctx, StepTokenInfo, nil), ErrInvalidTransition)
	require.NoError(t, s.Start(ctx, StepTokenInfo))
	assert.ErrorIs(t, s.Start(ctx, StepTokenInfo), ErrInvalidTransition)
	assert.ErrorIs(t, s.Skip(ctx, StepTokenInfo, ""), ErrInvalidTransition)
	require.NoError(t, s.Complete(ctx, StepTokenInfo, "ok"))
	assert.ErrorIs(t, s.Start(ctx, StepTokenInfo), ErrInvalidTransition)

	require.NoError(t, s.Skip(ctx, StepSimilar, "none"))
	assert.ErrorIs(t, s.Start(ctx, StepSimilar), ErrInvalidTransition)

	require.NoError(t, s.Start(ctx, StepMarket))
	require.NoError(t, s.Fail(ctx, StepMarket, errors.New("boom")))
	assert.ErrorIs(t, s.Complete(ctx, StepMarket, nil), ErrInvalidTransition)

	assert.ErrorIs(t, s.Start(ctx, "nope"), ErrUnknownStep)

	snap := s.Snapshot()
	assert.Equal(t, domain.StepCompleted, snap[0].Status)
	assert.Equal(t, "Completed token-info", snap[0].Message)
	assert.Equal(t, "Failed: boom", snap[2].Message)
	assert.Equal(t, "Skipped - none", snap[5].Message)
	assert.Equal(t, domain.StepWaiting, snap[1].Status)
	// 2 of 8 done.
	assert.Equal(t, 25, s.Progress())
	assert.Equal(t, map[string]interface{}{StepTokenInfo: "ok"}, s.CompletedResults())
}

func TestSession_ProgressRounds(t *testing.T) {
	s := NewSession(Steps(), nil, nil)
	ctx := context.Background()
	require.NoError(t, s.Skip(ctx, StepSimilar, ""))
	// 1/8 = 12.5
	assert.Equal(t, 13, s.Progress())
}

func TestSession_EmitsSnapshots(t *testing.T) {
	rec := &recorder{}
	s := NewSession(Steps(), rec, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	s.Begin(ctx)
	require.NoError(t, s.Start(ctx, StepTokenInfo))
	require.NoError(t, s.Complete(ctx, StepTokenInfo, 1))

	require.Len(t, rec.msgs, 3)
	first := rec.msgs[0]
	assert.Equal(t, domain.ProgressMessageType, first.Type)
	assert.Nil(t, first.CurrentStep)
	assert.Equal(t, 0, first.OverallProgress)
	for _, st := range first.Steps {
		assert.Equal(t, domain.StepWaiting, st.Status)
	}

	// Earlier snapshots are not rewritten by later transitions.
	assert.Equal(t, domain.StepProcessing, rec.msgs[1].Steps[0].Status)
	assert.Equal(t, domain.StepCompleted, rec.msgs[2].Steps[0].Status)
	assert.Equal(t, "2024-03-01T12:00:00Z", rec.msgs[2].Steps[0].Timestamp)
	require.NotNil(t, rec.msgs[2].CurrentStep)
	assert.Equal(t, StepTokenInfo, *rec.msgs[2].CurrentStep)
}

func TestWorkflow_Completed(t *testing.T) {
	social := &stubSocial{}
	pricer := &stubPricer{curve: halfwayCurve()}
	w := newWorkflow(Options{Pricer: pricer, Social: social})
	rec := &recorder{}

	res, err := w.Run(context.Background(), mint, rec)
	require.NoError(t, err)

	assert.Equal(t, domain.FinishCompleted, res.FinishReason)
	assert.Empty(t, res.Error)
	assert.Len(t, res.Data, 7)
	assert.NotContains(t, res.Data, StepSimilar)

	market := res.Data[StepMarket].(*MarketInfo)
	require.NotNil(t, market.Progress)
	assert.Equal(t, "50", market.Progress.BondingCurveProgress)
	// Price and progress come from a single curve read.
	assert.Equal(t, 1, pricer.calls)

	vol := res.Data[StepVolume].(VolumeInfo)
	assert.Equal(t, 2, vol.TradeCount)
	assert.Equal(t, "b", vol.LastTrade.Signature)
	assert.InDelta(t, 1.5, vol.Volumes[15].Volume, 1e-9)

	holders := res.Data[StepHolders].(HolderInfo)
	assert.Len(t, holders.Top, 10)
	assert.InDelta(t, 50.0, holders.Top10Percentage, 1e-9)

	assert.True(t, res.Data[StepSocialVerify].(SocialLinks).Verified)
	assert.Equal(t, mint+" OR $PEPE", social.query)

	// initial + 7 run steps x 2 + 1 skip + final
	require.Len(t, rec.msgs, 17)
	final := rec.last()
	assert.True(t, final.Completed)
	assert.Equal(t, 100, final.OverallProgress)
	require.NotNil(t, final.Summary)
	assert.Equal(t, domain.ResearchSummary{
		MintAddress:       mint,
		Name:              "Pepe",
		Symbol:            "PEPE",
		MarketCap:         6000,
		Sentiment:         domain.SentimentBullish,
		RiskLevel:         "Medium",
		RecommendedAction: "DYOR",
	}, *final.Summary)
	assert.Equal(t, final.Summary, res.Summary)

	// Progress never decreases.
	prev := 0
	for _, m := range rec.msgs {
		assert.GreaterOrEqual(t, m.OverallProgress, prev)
		prev = m.OverallProgress
	}
}

func TestWorkflow_SimilarConfigured(t *testing.T) {
	w := newWorkflow(Options{Similar: stubSimilar{}})
	res, err := w.Run(context.Background(), mint, &recorder{})
	require.NoError(t, err)

	assert.Equal(t, domain.FinishCompleted, res.FinishReason)
	coins := res.Data[StepSimilar].([]SimilarCoin)
	require.Len(t, coins, 1)
	assert.Equal(t, "Pepe 2", coins[0].Name)
}

func TestWorkflow_PartialOnStepThreeFailure(t *testing.T) {
	creators := &stubCreators{}
	w := newWorkflow(Options{Pricer: &stubPricer{err: domain.ErrUpstream}, Creators: creators})
	rec := &recorder{}

	res, err := w.Run(context.Background(), mint, rec)
	require.NoError(t, err)

	assert.Equal(t, domain.FinishPartial, res.FinishReason)
	assert.Equal(t, domain.ErrUpstream.Error(), res.Error)
	assert.Len(t, res.Data, 2)
	assert.Contains(t, res.Data, StepTokenInfo)
	assert.Contains(t, res.Data, StepSocialVerify)
	assert.Nil(t, res.Summary)

	assert.Equal(t, []string{StepTokenInfo, StepSocialVerify, StepMarket}, rec.processed())
	assert.Zero(t, creators.calls)

	last := rec.last()
	assert.False(t, last.Completed)
	assert.Equal(t, 25, last.OverallProgress)
	assert.Equal(t, domain.StepFailed, last.Steps[2].Status)
	for _, st := range last.Steps[3:] {
		assert.Equal(t, domain.StepWaiting, st.Status, st.ID)
	}
}

func TestWorkflow_FirstStepFailure(t *testing.T) {
	w := newWorkflow(Options{Metadata: stubMetadata{err: domain.ErrNotFound}})
	res, err := w.Run(context.Background(), mint, &recorder{})
	require.NoError(t, err)
	assert.Equal(t, domain.FinishPartial, res.FinishReason)
	assert.Empty(t, res.Data)
}

func TestWorkflow_InvalidMint(t *testing.T) {
	rec := &recorder{}
	_, err := newWorkflow(Options{}).Run(context.Background(), "not-a-mint", rec)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, rec.msgs)
}

type cancellingMetadata struct{ cancel context.CancelFunc }

func (c cancellingMetadata) Resolve(ctx context.Context, m string) (*domain.TokenMetadata, error) {
	c.cancel()
	return stubMetadata{}.Resolve(ctx, m)
}

func TestWorkflow_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &recorder{}

	res, err := newWorkflow(Options{Metadata: cancellingMetadata{cancel: cancel}}).Run(ctx, mint, rec)
	require.NoError(t, err)

	assert.Equal(t, domain.FinishPartial, res.FinishReason)
	assert.Equal(t, context.Canceled.Error(), res.Error)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, []string{StepTokenInfo}, rec.processed())
}

func TestChanSink_OrderAndClose(t *testing.T) {
	sink := NewChanSink(4)
	ctx := context.Background()

	done := make(chan []int)
	go func() {
		var got []int
		for m := range sink.Messages() {
			got = append(got, m.OverallProgress)
		}
		done <- got
	}()

	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Emit(ctx, domain.ProgressMessage{OverallProgress: i}))
	}
	sink.Close()
	sink.Close()
	assert.NoError(t, sink.Emit(ctx, domain.ProgressMessage{}))

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, <-done)
}
