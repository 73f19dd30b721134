package chart

import (
	"context"
	"fmt"
	"time"

	"fxchart/internal/logger"
	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"
)

// Service 串联 校验→解析/拉取→归一化→（可选）渲染，每次调用互不共享状态。
type Service struct {
	validator     RangeValidator
	fetcher       *Fetcher
	renderer      Renderer
	renderTimeout time.Duration
	metrics       Recorder
}

// ServiceConfig 描述 Service 的依赖；Renderer 可为空。
type ServiceConfig struct {
	Validator     RangeValidator
	Fetcher       *Fetcher
	Renderer      Renderer
	RenderTimeout time.Duration
	Metrics       Recorder
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("chart service requires a fetcher")
	}
	return &Service{
		validator:     cfg.Validator,
		fetcher:       cfg.Fetcher,
		renderer:      cfg.Renderer,
		renderTimeout: cfg.RenderTimeout,
		metrics:       recorderOrNop(cfg.Metrics),
	}, nil
}

// Run 执行一次完整请求。InvalidDateRange / InvalidCurrencyPair / DataNotFound 原样返回，
// 其余任何失败统一包装为 ChartGenerationFailed。
// 请求开始后不随调用方取消而中断，只受数据源与渲染的超时约束。
func (s *Service) Run(ctx context.Context, req Request, render bool) (Result, error) {
	started := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithoutCancel(ctx)
	logger.Infof("生成图表 %s: %s -> %s (interval=%s, render=%t)", req.Pairs, req.StartDateTime, req.EndDateTime, req.Interval, render)

	res, err := s.run(ctx, req, render, started)
	if err != nil {
		ce := s.classify(req, err)
		if ce.Kind == KindChartGenerationFailed {
			logger.Errorf("图表生成失败: %v", err)
		} else {
			logger.Warnf("图表请求被拒绝 [%s]: %s", ce.Kind, ce.Message)
		}
		s.metrics.ObserveResult(ce.Kind.String(), time.Since(started))
		return Result{}, ce
	}
	s.metrics.ObserveResult("ok", time.Since(started))
	logger.Infof("图表生成完成 %s: %.2fs, %d 个数据点", res.Pair, res.Metrics.TotalTime, res.Metrics.DataPointsProcessed)
	return res, nil
}

func (s *Service) run(ctx context.Context, req Request, render bool, started time.Time) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	pair, err := symbol.Parse(req.Pairs)
	if err != nil {
		return Result{}, newError(KindInvalidCurrencyPair, err.Error(), map[string]any{"pairs": req.Pairs}, err)
	}
	rng, err := s.validator.Validate(req.StartDateTime, req.EndDateTime)
	if err != nil {
		return Result{}, err
	}
	interval, err := market.ParseInterval(req.Interval)
	if err != nil {
		return Result{}, err
	}

	fetchStart := time.Now()
	series, err := s.fetcher.Fetch(ctx, pair, rng, interval)
	fetchTime := time.Since(fetchStart)
	s.metrics.ObserveFetch(fetchTime, err == nil)
	if err != nil {
		return Result{}, err
	}

	candles, pr, err := Normalize(series)
	if err != nil {
		return Result{}, err
	}

	var out RenderOutput
	var renderTime time.Duration
	if render && s.renderer != nil {
		renderStart := time.Now()
		out = s.render(ctx, RenderInput{Pair: pair, Range: rng, Interval: interval, Series: series})
		renderTime = time.Since(renderStart)
	}

	first, last := series.Bounds()
	return Result{
		Pair:         pair.String(),
		Symbol:       series.Symbol,
		Requested:    rng,
		Start:        first,
		End:          last,
		Interval:     interval.Code,
		DataPoints:   len(candles),
		PriceRange:   pr,
		Candles:      candles,
		ChartURL:     out.URL,
		CSVFile:      out.CSVPath,
		SnapshotFile: out.SnapshotPath,
		Metrics: Metrics{
			DataFetchTime:       fetchTime.Seconds(),
			ChartGenerationTime: renderTime.Seconds(),
			TotalTime:           time.Since(started).Seconds(),
			DataPointsProcessed: series.Len(),
			SourcePoints:        max(series.SourcePoints, series.Len()),
			Truncated:           series.Truncated(),
		},
	}, nil
}

// render 的失败（错误、超时、panic）只降级为无 URL/CSV，不影响数据结果。
func (s *Service) render(ctx context.Context, in RenderInput) RenderOutput {
	started := time.Now()
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}
	done := make(chan renderResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- renderResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		out, err := s.renderer.Render(ctx, in)
		done <- renderResult{out: out, err: err}
	}()

	var res renderResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = renderResult{err: fmt.Errorf("render timed out after %s: %w", s.renderTimeout, ctx.Err())}
	}
	s.metrics.ObserveRender(time.Since(started), res.err == nil)
	if res.err != nil {
		logger.Errorf("生成交互式图表失败 %s: %v", in.Pair, res.err)
		return RenderOutput{}
	}
	return res.out
}

type renderResult struct {
	out RenderOutput
	err error
}

func (s *Service) classify(req Request, err error) *Error {
	if ce, ok := AsError(err); ok && ce.Kind != KindChartGenerationFailed {
		return ce
	}
	details := req.details()
	details["error"] = err.Error()
	return newError(KindChartGenerationFailed, fmt.Sprintf("Failed to generate chart: %v", err), details, err)
}
