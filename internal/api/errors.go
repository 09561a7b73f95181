package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"token-intel/internal/domain"
	"token-intel/internal/fallback"
	"token-intel/internal/storage"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// statusOf maps the error taxonomy to an HTTP status.
func statusOf(err error) int {
	var agg *fallback.AggregateFailure
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateKey):
		return http.StatusConflict
	case errors.As(err, &agg),
		errors.Is(err, domain.ErrUpstream),
		errors.Is(err, domain.ErrFormat),
		errors.Is(err, domain.ErrSupplyUnavailable),
		errors.Is(err, domain.ErrNoProviderAvailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusOf(err), envelope{Success: false, Error: err.Error()})
}
