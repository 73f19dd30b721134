package app

import (
	"context"
	"fmt"

	"fxchart/internal/chart"
	"fxchart/internal/config"
	"fxchart/internal/logger"
	"fxchart/internal/render"
	"fxchart/internal/store/runlog"
	charthttp "fxchart/internal/transport/http/chart"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 服务与后台任务。
type App struct {
	cfg     *config.Config
	cfgPath string

	service *chart.Service
	http    *charthttp.Server
	janitor *render.Janitor
	runs    *runlog.Store
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。cfgPath 非空时启用配置热更新。
func NewApp(cfg *config.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	return NewAppBuilder(cfg, WithConfigPath(cfgPath)).Build(context.Background())
}

// Run 启动 HTTP 服务与图表清理任务，直到 ctx 取消或任一组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("http server not initialized")
	}
	defer a.Close()

	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.cfgPath != "" {
		if err := config.Watch(a.cfgPath, a.applyReload); err != nil {
			logger.Warnf("配置热更新未启用: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})
	if a.janitor != nil {
		group.Go(func() error {
			return a.janitor.Start(ctx)
		})
	}
	return group.Wait()
}

// applyReload 只应用可热更的字段。
func (a *App) applyReload(next *config.Config) {
	if next.App.LogLevel != a.cfg.App.LogLevel {
		logger.Infof("日志级别: %s -> %s", a.cfg.App.LogLevel, next.App.LogLevel)
		logger.SetLevel(next.App.LogLevel)
		a.cfg.App.LogLevel = next.App.LogLevel
	}
}

func (a *App) Close() {
	if a == nil || a.runs == nil {
		return
	}
	if err := a.runs.Close(); err != nil {
		logger.Warnf("关闭审计存储失败: %v", err)
	}
}

// Service 暴露图表服务实例（测试用）。
func (a *App) Service() *chart.Service {
	if a == nil {
		return nil
	}
	return a.service
}
