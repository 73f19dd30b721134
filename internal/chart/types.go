package chart

import (
	"context"
	"time"

	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"
)

// Request 是一次图表请求的原始输入。
type Request struct {
	Pairs         string `json:"pairs"`
	StartDateTime string `json:"start_date_time"`
	EndDateTime   string `json:"end_date_time"`
	Interval      string `json:"interval"`
}

func (r Request) details() map[string]any {
	return map[string]any{
		"pairs":      r.Pairs,
		"start_date": r.StartDateTime,
		"end_date":   r.EndDateTime,
		"interval":   r.Interval,
	}
}

// TimeRange 是经过校验的请求窗口，Start 严格早于 End。
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) String() string {
	return r.Start.Format(time.DateTime) + " to " + r.End.Format(time.DateTime)
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Metrics 记录单次请求的耗时（秒）与数据量。
type Metrics struct {
	DataFetchTime       float64 `json:"data_fetch_time"`
	ChartGenerationTime float64 `json:"chart_generation_time"`
	TotalTime           float64 `json:"total_time"`
	DataPointsProcessed int     `json:"data_points_processed"`
	SourcePoints        int     `json:"source_points"`
	Truncated           bool    `json:"truncated"`
}

// Result 是一次成功请求的聚合结果；空字符串表示对应产物不存在。
type Result struct {
	Pair         string
	Symbol       string
	Requested    TimeRange
	Start        time.Time
	End          time.Time
	Interval     string
	DataPoints   int
	PriceRange   PriceRange
	Candles      []market.Candle
	ChartURL     string
	CSVFile      string
	SnapshotFile string
	Metrics      Metrics
}

// FetchRequest 是对外部数据源的一次调用参数。
type FetchRequest struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Interval market.Interval
}

// DataSource 按 symbol + 时间窗口 + 周期返回原始序列；无数据时返回空序列。
type DataSource interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) (market.Series, error)
}

type RenderInput struct {
	Pair     symbol.Pair
	Range    TimeRange
	Interval market.Interval
	Series   market.Series
}

type RenderOutput struct {
	URL          string
	CSVPath      string
	SnapshotPath string
}

// Renderer 生成交互式图表与 CSV；失败不会导致请求失败。
type Renderer interface {
	Render(ctx context.Context, in RenderInput) (RenderOutput, error)
}
