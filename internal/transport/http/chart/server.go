package charthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"fxchart/internal/chart"
	"fxchart/internal/logger"
	"fxchart/internal/store/runlog"
)

// ChartService 由 chart.Service 实现。
type ChartService interface {
	Run(ctx context.Context, req chart.Request, render bool) (chart.Result, error)
}

// RunStore 保存与查询请求审计记录，可为空。
type RunStore interface {
	Record(ctx context.Context, e runlog.Entry) error
	List(ctx context.Context, pair string, limit int) ([]runlog.Entry, error)
}

// MetricsExporter 由 metrics.Prometheus 实现，可为空。
type MetricsExporter interface {
	ObserveHTTP(method, route string, code int)
	Handler() http.Handler
}

// Server 提供图表 HTTP API。
type Server struct {
	addr         string
	router       *gin.Engine
	readTimeout  time.Duration
	writeTimeout time.Duration

	svc             ChartService
	runs            RunStore
	schema          *jsonschema.Schema
	catalog         PairCatalog
	name            string
	version         string
	defaultInterval string
	startedAt       time.Time
}

// ServerConfig 描述图表 HTTP 服务依赖。
type ServerConfig struct {
	Addr            string
	Name            string
	Version         string
	DefaultInterval string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	CORS            CORSConfig

	Service ChartService
	Runs    RunStore

	Metrics     MetricsExporter
	MetricsPath string

	// ChartDir 非空时以 ChartRoute 挂载已生成的图表文件。
	ChartDir   string
	ChartRoute string
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("chart http server requires a chart service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.DefaultInterval == "" {
		cfg.DefaultInterval = "5m"
	}
	schema, err := compileSchema(requestSchema())
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	catalog, err := loadCatalog(catalogYAML)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())
	if cfg.Metrics != nil {
		router.Use(observe(cfg.Metrics))
	}
	if len(cfg.CORS.AllowOrigins) > 0 {
		mw, err := corsMiddleware(cfg.CORS)
		if err != nil {
			return nil, err
		}
		router.Use(mw)
	}

	s := &Server{
		addr:            cfg.Addr,
		router:          router,
		readTimeout:     cfg.ReadTimeout,
		writeTimeout:    cfg.WriteTimeout,
		svc:             cfg.Service,
		runs:            cfg.Runs,
		schema:          schema,
		catalog:         catalog,
		name:            cfg.Name,
		version:         cfg.Version,
		defaultInterval: cfg.DefaultInterval,
		startedAt:       time.Now(),
	}
	s.registerRoutes()

	if cfg.ChartDir != "" {
		route := cfg.ChartRoute
		if route == "" {
			route = "/charts"
		}
		router.Static("/"+strings.Trim(route, "/"), cfg.ChartDir)
	}
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Route not found", map[string]any{"path": c.Request.URL.Path})
	})
	return s, nil
}

func (s *Server) registerRoutes() {
	s.router.GET("/", s.handleRoot)
	api := s.router.Group("/api/v1")
	api.POST("/charts", s.handleCreateChart)
	api.POST("/charts/data-only", s.handleChartData)
	api.GET("/health", s.handleHealth)
	api.GET("/supported-pairs", s.handleSupportedPairs)
	api.GET("/intervals", s.handleIntervals)
	if s.runs != nil {
		api.GET("/runs", s.handleRuns)
	}
}

// Handler 暴露路由，便于测试。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP 服务已启动: %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
