package charthttp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fxchart/internal/chart"
	"fxchart/internal/market"
)

const (
	codeValidation = "VALIDATION_ERROR"
	codeInternal   = "INTERNAL_ERROR"
)

type chartData struct {
	Pairs      string           `json:"pairs"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    time.Time        `json:"end_date"`
	Interval   string           `json:"interval"`
	DataPoints int              `json:"data_points"`
	PriceRange chart.PriceRange `json:"price_range"`
	Candles    []market.Candle  `json:"candles"`
}

type chartSettings struct {
	Interval   string `json:"interval"`
	DataPoints int    `json:"data_points"`
	DateRange  string `json:"date_range"`
	Symbol     string `json:"symbol"`
}

type chartMetadata struct {
	RequestID    string        `json:"request_id,omitempty"`
	Metrics      chart.Metrics `json:"metrics"`
	Settings     chartSettings `json:"settings"`
	SnapshotFile *string       `json:"snapshot_file,omitempty"`
}

// ChartResponse 是图表接口的成功响应。
type ChartResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	ChartData   chartData     `json:"chart_data"`
	ChartURL    *string       `json:"chart_url"`
	CSVFilename *string       `json:"csv_filename"`
	Metadata    chartMetadata `json:"metadata"`
}

// ErrorResponse 是所有接口统一的错误响应。
type ErrorResponse struct {
	Success   bool           `json:"success"`
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

func newChartResponse(res chart.Result, requestID string) ChartResponse {
	candles := res.Candles
	if candles == nil {
		candles = []market.Candle{}
	}
	return ChartResponse{
		Success: true,
		Message: "Chart created successfully for " + res.Pair,
		ChartData: chartData{
			Pairs:      res.Pair,
			StartDate:  res.Start,
			EndDate:    res.End,
			Interval:   res.Interval,
			DataPoints: res.DataPoints,
			PriceRange: res.PriceRange,
			Candles:    candles,
		},
		ChartURL:    optional(res.ChartURL),
		CSVFilename: optional(res.CSVFile),
		Metadata: chartMetadata{
			RequestID: requestID,
			Metrics:   res.Metrics,
			Settings: chartSettings{
				Interval:   res.Interval,
				DataPoints: res.Metrics.DataPointsProcessed,
				DateRange:  res.Requested.String(),
				Symbol:     res.Symbol,
			},
			SnapshotFile: optional(res.SnapshotFile),
		},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// statusFor 把错误代码映射为 HTTP 状态码。
func statusFor(kind chart.Kind) int {
	switch kind {
	case chart.KindInvalidDateRange, chart.KindInvalidCurrencyPair:
		return http.StatusBadRequest
	case chart.KindDataNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, status int, code, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Success:   false,
		ErrorCode: code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func writeChartError(c *gin.Context, err error) {
	ce, ok := chart.AsError(err)
	if !ok {
		writeError(c, http.StatusInternalServerError, codeInternal, "An unexpected error occurred", map[string]any{"error": err.Error()})
		return
	}
	writeError(c, statusFor(ce.Kind), ce.Kind.String(), ce.Message, ce.Details)
}
