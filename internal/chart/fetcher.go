package chart

import (
	"context"
	"fmt"
	"time"

	"fxchart/internal/logger"
	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"

	"golang.org/x/sync/singleflight"
)

// FetcherConfig 约束单次数据拉取。
type FetcherConfig struct {
	Timeout   time.Duration
	MaxPoints int
	// Coalesce 为 true 时，相同 pair/窗口/周期的并发请求共享一次拉取。
	Coalesce bool
}

// Fetcher 依次尝试候选 symbol，首个非空结果胜出。
type Fetcher struct {
	source   DataSource
	resolver symbol.Resolver
	cfg      FetcherConfig
	metrics  Recorder
	group    *singleflight.Group
}

func NewFetcher(source DataSource, resolver symbol.Resolver, cfg FetcherConfig, rec Recorder) *Fetcher {
	f := &Fetcher{
		source:   source,
		resolver: resolver,
		cfg:      cfg,
		metrics:  recorderOrNop(rec),
	}
	if cfg.Coalesce {
		f.group = &singleflight.Group{}
	}
	return f
}

// usable 是候选结果的停止条件：非空序列即可采用。
func usable(s market.Series) bool {
	return !s.Empty()
}

// Fetch 返回去重、截断后的原始序列；所有候选都失败时返回 DataNotFound。
func (f *Fetcher) Fetch(ctx context.Context, pair symbol.Pair, rng TimeRange, interval market.Interval) (market.Series, error) {
	if f.group == nil {
		return f.resolve(ctx, pair, rng, interval)
	}
	key := fmt.Sprintf("%s|%d|%d|%s", pair, rng.Start.Unix(), rng.End.Unix(), interval.Code)
	v, err, shared := f.group.Do(key, func() (any, error) {
		return f.resolve(ctx, pair, rng, interval)
	})
	if err != nil {
		return market.Series{}, err
	}
	series := v.(market.Series)
	if shared {
		logger.Debugf("复用进行中的拉取: %s", key)
	}
	return series.Clone(), nil
}

func (f *Fetcher) resolve(ctx context.Context, pair symbol.Pair, rng TimeRange, interval market.Interval) (market.Series, error) {
	candidates := f.resolver.Candidates(pair)
	attempted := make(map[string]struct{}, len(candidates))
	for _, sym := range candidates {
		if _, dup := attempted[sym]; dup {
			logger.Debugf("候选 %s 已尝试过，跳过", sym)
			f.metrics.ObserveAttempt(f.source.Name(), AttemptSkipped)
			continue
		}
		attempted[sym] = struct{}{}

		logger.Debugf("尝试拉取 symbol: %s", sym)
		series, err := f.try(ctx, sym, rng, interval)
		if err != nil {
			logger.Warnf("拉取 %s 失败: %v", sym, err)
			f.metrics.ObserveAttempt(f.source.Name(), AttemptError)
			continue
		}
		if !usable(series) {
			logger.Debugf("symbol %s 无数据", sym)
			f.metrics.ObserveAttempt(f.source.Name(), AttemptEmpty)
			continue
		}
		f.metrics.ObserveAttempt(f.source.Name(), AttemptHit)
		logger.Infof("使用 symbol %s 获取数据成功（%d 行）", sym, series.Len())
		series.Symbol = sym
		series.Interval = interval.Code
		return f.bound(series), nil
	}
	return market.Series{}, newError(KindDataNotFound, fmt.Sprintf("No data found for %s", pair), map[string]any{
		"pairs":            pair.String(),
		"candidates_tried": candidates,
		"start_date":       rng.Start.Format(time.RFC3339),
		"end_date":         rng.End.Format(time.RFC3339),
		"interval":         interval.Code,
	}, nil)
}

func (f *Fetcher) try(ctx context.Context, sym string, rng TimeRange, interval market.Interval) (market.Series, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}
	req := FetchRequest{
		Symbol:   sym,
		Start:    rng.Start,
		End:      rng.End,
		Interval: interval,
	}
	// 数据源未必响应 ctx，超时后直接放弃该候选，迟到的结果被丢弃。
	done := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		series, err := f.source.Fetch(ctx, req)
		done <- fetchResult{series: series, err: err}
	}()
	select {
	case r := <-done:
		return r.series, r.err
	case <-ctx.Done():
		return market.Series{}, ctx.Err()
	}
}

type fetchResult struct {
	series market.Series
	err    error
}

// bound 去重（保留首个）并在超过上限时只保留最近的数据。
func (f *Fetcher) bound(series market.Series) market.Series {
	series = series.Dedup()
	if f.cfg.MaxPoints > 0 && series.Len() > f.cfg.MaxPoints {
		logger.Warnf("数据点 (%d) 超过上限 (%d)，仅保留最近 %d 个", series.Len(), f.cfg.MaxPoints, f.cfg.MaxPoints)
		f.metrics.ObserveTruncation(series.Len() - f.cfg.MaxPoints)
	}
	return series.Tail(f.cfg.MaxPoints)
}
