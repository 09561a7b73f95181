package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"token-intel/internal/domain"
	"token-intel/internal/solana"
)

const maxBatchAddresses = 100

type addressBatchRequest struct {
	Addresses []string `json:"addresses" binding:"required,min=1"`
}

func (s *Server) getCreator(c *gin.Context) {
	address := c.Param("address")
	if !solana.IsValidAddress(address) {
		respondError(c, fmt.Errorf("%w: invalid creator address %q", domain.ErrValidation, address))
		return
	}
	limit, err := intQuery(c, "limit", s.opts.CreatorLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	include, err := strconv.ParseBool(c.DefaultQuery("include", "false"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: include must be a boolean", domain.ErrValidation))
		return
	}
	stats, err := s.svc.Creators.CreatorReport(c.Request.Context(), address, limit, include)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, stats)
}

func (s *Server) getSocial(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondError(c, fmt.Errorf("%w: q is required", domain.ErrValidation))
		return
	}
	report, err := s.svc.Social.Analyze(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, report)
}

func (s *Server) getAddress(c *gin.Context) {
	info, err := s.svc.Classifier.Classify(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, info)
}

// postAddressBatch classifies many addresses. Per-address failures are
// reported inline rather than failing the request.
func (s *Server) postAddressBatch(c *gin.Context) {
	var req addressBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", domain.ErrValidation, err))
		return
	}
	if len(req.Addresses) > maxBatchAddresses {
		respondError(c, fmt.Errorf("%w: at most %d addresses per batch", domain.ErrValidation, maxBatchAddresses))
		return
	}
	respond(c, s.svc.Classifier.ClassifyAll(c.Request.Context(), req.Addresses))
}
