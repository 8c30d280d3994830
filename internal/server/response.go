package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"strategy-alerts/internal/alert"
	"strategy-alerts/internal/filter"
	"strategy-alerts/internal/keys"
	"strategy-alerts/internal/storage"
)

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeInvalidFilter    = "INVALID_FILTER"
	errCodeMalformedPayload = "MALFORMED_PAYLOAD"
	errCodeUnknownSecret    = "UNKNOWN_SECRET"
	errCodeNotFound         = "NOT_FOUND"
	errCodeBodyTooLarge     = "BODY_TOO_LARGE"
	errCodeInternal         = "INTERNAL_ERROR"
)

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Success:   false,
		Error:     msg,
		ErrorCode: code,
	})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything
// unrecognised is an internal error and its text is not echoed.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, filter.ErrInvalidFilter):
		writeError(c, http.StatusBadRequest, errCodeInvalidFilter, err.Error())
	case errors.Is(err, alert.ErrMalformedPayload):
		writeError(c, http.StatusUnprocessableEntity, errCodeMalformedPayload, err.Error())
	case errors.Is(err, keys.ErrUnknownSecret):
		writeError(c, http.StatusUnauthorized, errCodeUnknownSecret, "unknown secret key")
	case errors.Is(err, storage.ErrNotFound):
		writeError(c, http.StatusNotFound, errCodeNotFound, "not found")
	case errors.As(err, &tooLarge):
		writeError(c, http.StatusRequestEntityTooLarge, errCodeBodyTooLarge, "request body too large")
	default:
		_ = c.Error(err)
		writeError(c, http.StatusInternalServerError, errCodeInternal, "internal error")
	}
}
