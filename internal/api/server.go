// Package api exposes token intelligence over HTTP with gin, and streams
// research progress over SSE and WebSocket.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"token-intel/internal/domain"
	"token-intel/internal/logger"
	"token-intel/internal/research"
	"token-intel/internal/storage"
)

// AddressClassifier reports what lives at an address.
type AddressClassifier interface {
	Classify(ctx context.Context, address string) (domain.AddressInfo, error)
	ClassifyAll(ctx context.Context, addresses []string) []domain.AddressInfo
}

// TokenPricer prices a bonding-curve token.
type TokenPricer interface {
	Price(ctx context.Context, mint string) (*domain.TokenPrice, error)
}

// CurveReader loads bonding curve state.
type CurveReader interface {
	Info(ctx context.Context, mint string) (*domain.CurveInfo, error)
}

// CreatorReporter classifies a creator's earlier launches, optionally
// listing the coins behind each count.
type CreatorReporter interface {
	CreatorReport(ctx context.Context, creator string, limit int, include bool) (domain.CreatorStats, error)
}

// ResearchRunner runs one research workflow.
type ResearchRunner interface {
	Run(ctx context.Context, mint string, sink research.Sink) (domain.ResearchResult, error)
}

// Services are the collaborators behind the handlers. Similar and
// Snapshots are optional.
type Services struct {
	Metadata   research.MetadataResolver
	Pricer     TokenPricer
	Curves     CurveReader
	Holders    research.HolderSource
	Classifier AddressClassifier
	Trades     research.TradeSource
	Creators   CreatorReporter
	Similar    research.SimilarFinder
	Social     research.SocialAnalyzer
	Research   ResearchRunner
	Chats      storage.ChatStore
	Snapshots  storage.VolumeSnapshotStore
}

// Options configures the HTTP server.
type Options struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Mode            string // gin mode
	ResearchTimeout time.Duration
	VolumeBuckets   []int
	SimilarLimit    int
	CreatorLimit    int
}

// Server hosts the API.
type Server struct {
	opts       Options
	svc        Services
	log        *logrus.Entry
	now        func() time.Time
	httpServer *http.Server
}

// NewServer creates a Server.
func NewServer(opts Options, svc Services, log *logrus.Entry) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 20 * time.Second
	}
	if opts.ResearchTimeout <= 0 {
		opts.ResearchTimeout = 5 * time.Minute
	}
	if opts.SimilarLimit <= 0 {
		opts.SimilarLimit = research.DefaultSimilarLimit
	}
	if opts.CreatorLimit <= 0 {
		opts.CreatorLimit = research.DefaultCreatorLimit
	}
	return &Server{opts: opts, svc: svc, log: logger.OrDiscard(log, "api"), now: time.Now}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	if s.opts.Mode != "" {
		gin.SetMode(s.opts.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), metricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		token := api.Group("/token/:mint")
		token.GET("/metadata", s.getMetadata)
		token.GET("/price", s.getPrice)
		token.GET("/curve", s.getCurve)
		token.GET("/holders", s.getHolders)
		token.GET("/volume", s.getVolume)
		token.GET("/volume/history", s.getVolumeHistory)
		token.GET("/similar", s.getSimilar)

		api.GET("/creator/:address", s.getCreator)
		api.GET("/social", s.getSocial)
		api.GET("/address/:address", s.getAddress)
		api.POST("/address/batch", s.postAddressBatch)

		chats := api.Group("/chats")
		chats.POST("", s.createChat)
		chats.GET("", s.listChats)
		chats.GET("/:id", s.getChat)
		chats.PATCH("/:id", s.updateChat)
		chats.DELETE("/:id", s.deleteChat)
		chats.POST("/:id/messages", s.appendMessages)

		api.POST("/research", s.researchSSE)
	}
	router.GET("/ws/research", s.researchWS)

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.opts.Addr).Info("api server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
