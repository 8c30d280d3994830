package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"strategy-alerts/internal/chart"
	"strategy-alerts/internal/filter"
	"strategy-alerts/internal/keys"
	"strategy-alerts/internal/storage"
)

const defaultListLimit = 100

func (s *Server) handleIngest(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	rec, err := s.svc.Ingest(c.Request.Context(), c.Param("secret"), body)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type bindKeyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleBindKey(c *gin.Context) {
	var req bindKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "name is required")
		return
	}

	key, err := s.svc.BindKey(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

func (s *Server) handleResolveKey(c *gin.Context) {
	name, err := s.svc.ResolveStrategy(c.Request.Context(), c.Param("secret"))
	if errors.Is(err, keys.ErrUnknownSecret) {
		writeError(c, http.StatusNotFound, errCodeNotFound, "unknown secret key")
		return
	}
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.String(http.StatusOK, name)
}

func (s *Server) handleStrategyNames(c *gin.Context) {
	names, err := s.svc.StrategyNames(c.Request.Context())
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, names)
}

// handleChart accepts a filter document, either as an object or as a JSON
// string holding the object, and answers with the figure itself.
func (s *Server) handleChart(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	defaults := s.svc.ChartDefaults()
	spec, err := filter.Decode(raw)
	if err != nil {
		s.metrics.ObserveChart(string(defaults.Mode), "invalid")
		s.writeServiceError(c, err)
		return
	}
	opts, err := chart.DecodeOptions(raw, defaults)
	if err != nil {
		s.metrics.ObserveChart(string(defaults.Mode), "invalid")
		s.writeServiceError(c, err)
		return
	}

	fig, err := s.svc.ChartWithOptions(c.Request.Context(), spec, opts)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, fig)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusBadRequest, errCodeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.svc.ListAlerts(c.Request.Context(), storage.ListFilter{
		Strategy: strings.TrimSpace(c.Query("strategy")),
		Limit:    limit,
	})
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleGetAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := s.svc.GetAlert(c.Request.Context(), id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteAlert(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.svc.DeleteAlert(c.Request.Context(), id); err != nil {
		s.writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, http.StatusBadRequest, errCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
