package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"fxchart/internal/chart"
	"fxchart/internal/config"
	"fxchart/internal/gateway/yahoo"
	"fxchart/internal/logger"
	"fxchart/internal/metrics"
	"fxchart/internal/pkg/circuit"
	"fxchart/internal/pkg/symbol"
	"fxchart/internal/render"
	"fxchart/internal/store/runlog"
	charthttp "fxchart/internal/transport/http/chart"
)

type AppBuilder struct {
	cfg     *config.Config
	cfgPath string

	dataSourceFn func(config.Config, *metrics.Prometheus) (chart.DataSource, error)
	rendererFn   func(config.Config) (*render.Renderer, error)
	runStoreFn   func(config.StorageConfig) (*runlog.Store, error)
}

type AppBuilderOption func(*AppBuilder)

func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.cfgPath = path }
}

// WithDataSource 替换默认的 Yahoo 数据源。
func WithDataSource(src chart.DataSource) AppBuilderOption {
	return func(b *AppBuilder) {
		b.dataSourceFn = func(config.Config, *metrics.Prometheus) (chart.DataSource, error) { return src, nil }
	}
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		dataSourceFn: buildDataSource,
		rendererFn:   buildRenderer,
		runStoreFn:   buildRunStore,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build 按依赖顺序组装各组件：数据源→抓取→渲染→审计→HTTP。
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)

	var prom *metrics.Prometheus
	var rec chart.Recorder
	if cfg.Metrics.Enabled {
		prom = metrics.NewPrometheus()
		rec = prom
	}

	source, err := b.dataSourceFn(*cfg, prom)
	if err != nil {
		return nil, fmt.Errorf("init data source: %w", err)
	}
	fetcher := chart.NewFetcher(source, symbol.NewResolver(cfg.DataSource.SymbolSuffix), chart.FetcherConfig{
		Timeout:   cfg.DataSource.Timeout(),
		MaxPoints: cfg.Chart.MaxDataPoints,
		Coalesce:  cfg.Chart.CoalesceFetches,
	}, rec)

	var renderer *render.Renderer
	var janitor *render.Janitor
	if cfg.Render.Enabled {
		renderer, err = b.rendererFn(*cfg)
		if err != nil {
			return nil, fmt.Errorf("init renderer: %w", err)
		}
		janitor = render.NewJanitor(renderer.OutputDir(), cfg.Render.Retention(), cfg.Render.CleanupSpec)
	}

	svcCfg := chart.ServiceConfig{
		Validator:     chart.NewRangeValidator(cfg.Chart.MaxLookbackDays, cfg.App.Location()),
		Fetcher:       fetcher,
		RenderTimeout: cfg.Render.Timeout(),
		Metrics:       rec,
	}
	if renderer != nil {
		svcCfg.Renderer = renderer
	}
	service, err := chart.NewService(svcCfg)
	if err != nil {
		return nil, err
	}

	var runs *runlog.Store
	if cfg.Storage.RunLogEnabled() {
		runs, err = b.runStoreFn(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init run log: %w", err)
		}
	}

	httpCfg := charthttp.ServerConfig{
		Addr:            cfg.HTTP.Addr,
		Name:            cfg.App.Name,
		Version:         cfg.App.Version,
		DefaultInterval: cfg.Chart.DefaultInterval,
		ReadTimeout:     secondsToDuration(cfg.HTTP.ReadTimeoutSeconds),
		WriteTimeout:    secondsToDuration(cfg.HTTP.WriteTimeoutSeconds),
		CORS: charthttp.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORS.AllowOrigins,
			AllowCredentials: cfg.HTTP.CORS.AllowCredentials,
			AllowMethods:     cfg.HTTP.CORS.AllowMethods,
			AllowHeaders:     cfg.HTTP.CORS.AllowHeaders,
		},
		Service: service,
	}
	if runs != nil {
		httpCfg.Runs = runs
	}
	if prom != nil {
		httpCfg.Metrics = prom
		httpCfg.MetricsPath = cfg.Metrics.Path
	}
	if renderer != nil {
		httpCfg.ChartDir = renderer.OutputDir()
		httpCfg.ChartRoute = renderer.RoutePrefix()
	}
	server, err := charthttp.NewServer(httpCfg)
	if err != nil {
		if runs != nil {
			_ = runs.Close()
		}
		return nil, err
	}

	return &App{
		cfg:     cfg,
		cfgPath: b.cfgPath,
		service: service,
		http:    server,
		janitor: janitor,
		runs:    runs,
		Summary: buildSummary(cfg, source.Name()),
	}, nil
}

func buildDataSource(cfg config.Config, prom *metrics.Prometheus) (chart.DataSource, error) {
	ds := cfg.DataSource
	src, err := yahoo.New(yahoo.Config{
		BaseURL:          ds.BaseURL,
		Timeout:          ds.Timeout(),
		UserAgent:        ds.UserAgent,
		ProxyURL:         ds.Proxy,
		Location:         cfg.App.Location(),
		BreakerThreshold: ds.BreakerThreshold,
		BreakerCooldown:  ds.BreakerCooldown(),
	})
	if err != nil {
		return nil, err
	}
	src.Breaker().SetStateChangeHandler(func(name string, from, to circuit.State) {
		logger.Warnf("数据源熔断器 %s: %s -> %s", name, from, to)
		if prom != nil {
			prom.SetBreakerOpen(name, to != circuit.StateClosed)
		}
	})
	return src, nil
}

func buildRenderer(cfg config.Config) (*render.Renderer, error) {
	rc := cfg.Render
	return render.New(render.Config{
		OutputDir:     rc.OutputDir,
		PublicBaseURL: rc.PublicBaseURL,
		Width:         rc.Width,
		Height:        rc.Height,
		EMAPeriods:    rc.EMAPeriods,
		Snapshot:      rc.Snapshot,
		Location:      cfg.App.Location(),
	})
}

func buildRunStore(sc config.StorageConfig) (*runlog.Store, error) {
	return runlog.Open(filepath.Clean(sc.RunLogPath))
}

func secondsToDuration(sec int) time.Duration {
	if sec <= 0 {
		return 0
	}
	return time.Duration(sec) * time.Second
}
