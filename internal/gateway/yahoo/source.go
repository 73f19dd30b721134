package yahoo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fxchart/internal/chart"
	"fxchart/internal/logger"
	"fxchart/internal/market"
	"fxchart/internal/pkg/circuit"

	"github.com/tidwall/gjson"
)

const (
	sourceName   = "yahoo"
	chartPath    = "/v8/finance/chart/"
	maxErrorBody = 4096
)

// errNoData 表示数据源明确回答“无数据”，不计入熔断失败。
var errNoData = errors.New("no data")

// Source 通过 Yahoo Finance v8 chart 接口实现 chart.DataSource。
type Source struct {
	cfg        Config
	httpClient *http.Client
	breaker    *circuit.Breaker
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	if _, err := url.Parse(final.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid yahoo base url: %w", err)
	}
	httpClient := &http.Client{Timeout: final.Timeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	return &Source{
		cfg:        final,
		httpClient: httpClient,
		breaker:    circuit.New(sourceName, final.BreakerThreshold, final.BreakerCooldown),
	}, nil
}

// SetHTTPClient 替换底层 http.Client，用于测试。
func (s *Source) SetHTTPClient(client *http.Client) {
	s.httpClient = client
}

func (s *Source) Name() string { return sourceName }

// Breaker 暴露熔断器，便于上层订阅状态变化。
func (s *Source) Breaker() *circuit.Breaker { return s.breaker }

// Fetch 返回 [Start, End) 内的原始行；“无数据”返回空序列而不是错误。
func (s *Source) Fetch(ctx context.Context, req chart.FetchRequest) (market.Series, error) {
	sym := strings.TrimSpace(req.Symbol)
	if sym == "" {
		return market.Series{}, fmt.Errorf("symbol is required")
	}
	var series market.Series
	err := s.breaker.Do(func() error {
		var err error
		series, err = s.fetch(ctx, sym, req)
		return err
	}, func(err error) bool {
		return !errors.Is(err, errNoData)
	})
	switch {
	case errors.Is(err, errNoData):
		logger.Debugf("yahoo: %s 无数据", sym)
		return market.Series{Symbol: sym, Interval: req.Interval.Code}, nil
	case err != nil:
		return market.Series{}, err
	}
	return series, nil
}

func (s *Source) fetch(ctx context.Context, sym string, req chart.FetchRequest) (market.Series, error) {
	endpoint := s.cfg.BaseURL + chartPath + url.PathEscape(sym)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(req.Start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(req.End.Unix(), 10))
	q.Set("interval", req.Interval.SourceInterval)
	q.Set("includePrePost", "false")
	q.Set("events", "div,splits")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return market.Series{}, fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("User-Agent", s.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return market.Series{}, fmt.Errorf("调用 yahoo 失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return market.Series{}, fmt.Errorf("读取 yahoo 响应失败: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return market.Series{}, errNoData
	}
	if resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(body[:min(len(body), maxErrorBody)]))
		if snippet == "" {
			return market.Series{}, fmt.Errorf("yahoo 返回错误: %s", resp.Status)
		}
		return market.Series{}, fmt.Errorf("yahoo 返回错误(%s): %s", resp.Status, snippet)
	}
	series, err := parseChart(body, s.cfg.Location)
	if err != nil {
		return market.Series{}, err
	}
	series.Symbol = sym
	series.Interval = req.Interval.Code
	return clip(series, req.Start, req.End), nil
}

// parseChart 解析 chart.result[0]；null 价格映射为缺失值。
func parseChart(body []byte, loc *time.Location) (market.Series, error) {
	if !gjson.ValidBytes(body) {
		return market.Series{}, fmt.Errorf("yahoo 响应不是合法 JSON")
	}
	root := gjson.ParseBytes(body)
	if e := root.Get("chart.error"); e.Exists() && e.Type != gjson.Null {
		code := e.Get("code").String()
		desc := e.Get("description").String()
		if strings.EqualFold(code, "Not Found") || strings.Contains(strings.ToLower(desc), "no data") {
			return market.Series{}, errNoData
		}
		return market.Series{}, fmt.Errorf("yahoo error %s: %s", code, desc)
	}
	result := root.Get("chart.result.0")
	if !result.Exists() {
		return market.Series{}, errNoData
	}
	stamps := result.Get("timestamp").Array()
	if len(stamps) == 0 {
		return market.Series{}, errNoData
	}
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()

	rows := make([]market.Row, 0, len(stamps))
	for i, ts := range stamps {
		rows = append(rows, market.Row{
			Time:  time.Unix(ts.Int(), 0).In(loc),
			Open:  priceAt(opens, i),
			High:  priceAt(highs, i),
			Low:   priceAt(lows, i),
			Close: priceAt(closes, i),
		})
	}
	return market.Series{Rows: rows}, nil
}

func priceAt(values []gjson.Result, i int) market.Price {
	if i >= len(values) || values[i].Type != gjson.Number {
		return market.Price{}
	}
	return market.PriceOf(values[i].Float())
}

// clip 只保留 [start, end) 内的行，数据源偶尔会多返回一个周期。
func clip(series market.Series, start, end time.Time) market.Series {
	rows := series.Rows[:0:0]
	for _, row := range series.Rows {
		if row.Time.Before(start) || !row.Time.Before(end) {
			continue
		}
		rows = append(rows, row)
	}
	series.Rows = rows
	return series
}
