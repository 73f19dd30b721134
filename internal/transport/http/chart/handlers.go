package charthttp

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fxchart/internal/chart"
	"fxchart/internal/logger"
	"fxchart/internal/market"
	"fxchart/internal/store/runlog"
)

const maxBodyBytes = 16 << 10

func (s *Server) handleCreateChart(c *gin.Context) {
	s.handleChart(c, true)
}

func (s *Server) handleChartData(c *gin.Context) {
	s.handleChart(c, false)
}

func (s *Server) handleChart(c *gin.Context, render bool) {
	req, ok := s.bindRequest(c)
	if !ok {
		return
	}
	res, err := s.svc.Run(c.Request.Context(), req, render)
	s.record(c, req, render, res, err)
	if err != nil {
		writeChartError(c, err)
		return
	}
	c.JSON(http.StatusOK, newChartResponse(res, requestIDFrom(c)))
}

// bindRequest 先按 JSON Schema 校验请求体，未通过时返回 422。
func (s *Server) bindRequest(c *gin.Context) (chart.Request, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeValidation, "Unable to read request body", map[string]any{"error": err.Error()})
		return chart.Request{}, false
	}
	if len(body) > maxBodyBytes {
		writeError(c, http.StatusRequestEntityTooLarge, codeValidation, "Request body too large", map[string]any{"limit_bytes": maxBodyBytes})
		return chart.Request{}, false
	}
	problems, err := validateBody(s.schema, body)
	if err != nil {
		writeError(c, http.StatusInternalServerError, codeInternal, "An unexpected error occurred", map[string]any{"error": err.Error()})
		return chart.Request{}, false
	}
	if len(problems) > 0 {
		writeError(c, http.StatusUnprocessableEntity, codeValidation, "Request validation failed", map[string]any{"errors": problems})
		return chart.Request{}, false
	}
	var req chart.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(c, http.StatusUnprocessableEntity, codeValidation, "Request validation failed", map[string]any{"error": err.Error()})
		return chart.Request{}, false
	}
	if req.Interval == "" {
		req.Interval = s.defaultInterval
	}
	return req, true
}

// record 写入审计记录；失败只记日志，不影响响应。
func (s *Server) record(c *gin.Context, req chart.Request, render bool, res chart.Result, runErr error) {
	if s.runs == nil {
		return
	}
	entry := runlog.Entry{
		RequestID:     requestIDFrom(c),
		Pair:          strings.ToUpper(strings.TrimSpace(req.Pairs)),
		Interval:      req.Interval,
		StartDate:     req.StartDateTime,
		EndDate:       req.EndDateTime,
		Rendered:      render,
		Status:        "ok",
		Symbol:        res.Symbol,
		DataPoints:    res.DataPoints,
		SourcePoints:  res.Metrics.SourcePoints,
		Truncated:     res.Metrics.Truncated,
		FetchSeconds:  res.Metrics.DataFetchTime,
		RenderSeconds: res.Metrics.ChartGenerationTime,
		TotalSeconds:  res.Metrics.TotalTime,
	}
	if runErr != nil {
		entry.Status = "error"
		if ce, ok := chart.AsError(runErr); ok {
			entry.ErrorKind = ce.Kind.String()
			entry.Details = ce.Details
		} else {
			entry.ErrorKind = codeInternal
		}
	}
	if err := s.runs.Record(c.Request.Context(), entry); err != nil {
		logger.Warnf("写入请求审计记录失败: %v", err)
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":        s.name,
		"version":        s.version,
		"docs_url":       "/api/v1",
		"health_check":   "/api/v1/health",
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.version,
		"uptime":    time.Since(s.startedAt).Seconds(),
	})
}

func (s *Server) handleSupportedPairs(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog)
}

func (s *Server) handleIntervals(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"intervals": market.SupportedIntervals(),
		"default":   s.defaultInterval,
		"note":      "Shorter intervals may have limited historical data availability.",
	})
}

func (s *Server) handleRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, http.StatusUnprocessableEntity, codeValidation, "limit must be a non-negative integer", map[string]any{"limit": raw})
			return
		}
		limit = n
	}
	entries, err := s.runs.List(c.Request.Context(), c.Query("pair"), limit)
	if err != nil {
		writeError(c, http.StatusInternalServerError, codeInternal, "Failed to list runs", map[string]any{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []runlog.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": entries, "count": len(entries)})
}
