package app

import (
	"fmt"
	"strings"
	"time"

	"fxchart/internal/config"
)

type StartupSummary struct {
	HTTP       HTTPSummary
	Chart      ChartSummary
	DataSource DataSourceSummary
	Render     RenderSummary
	Features   map[string]bool
}

type HTTPSummary struct {
	Addr        string
	CORSOrigins []string
}

type ChartSummary struct {
	MaxLookbackDays int
	MaxDataPoints   int
	DefaultInterval string
	Timezone        string
}

type DataSourceSummary struct {
	Name    string
	BaseURL string
	Timeout time.Duration
}

type RenderSummary struct {
	Enabled   bool
	OutputDir string
	PublicURL string
	Retention time.Duration
}

func buildSummary(cfg *config.Config, sourceName string) *StartupSummary {
	return &StartupSummary{
		HTTP: HTTPSummary{Addr: cfg.HTTP.Addr, CORSOrigins: cfg.HTTP.CORS.AllowOrigins},
		Chart: ChartSummary{
			MaxLookbackDays: cfg.Chart.MaxLookbackDays,
			MaxDataPoints:   cfg.Chart.MaxDataPoints,
			DefaultInterval: cfg.Chart.DefaultInterval,
			Timezone:        cfg.App.Location().String(),
		},
		DataSource: DataSourceSummary{Name: sourceName, BaseURL: cfg.DataSource.BaseURL, Timeout: cfg.DataSource.Timeout()},
		Render: RenderSummary{
			Enabled:   cfg.Render.Enabled,
			OutputDir: cfg.Render.OutputDir,
			PublicURL: cfg.Render.PublicBaseURL,
			Retention: cfg.Render.Retention(),
		},
		Features: map[string]bool{
			"coalesce_fetches": cfg.Chart.CoalesceFetches,
			"metrics":          cfg.Metrics.Enabled,
			"run_log":          cfg.Storage.RunLogEnabled(),
			"snapshot":         cfg.Render.Snapshot,
		},
	}
}

func (s *StartupSummary) Print() {
	fmt.Print(s.String())
}

func (s *StartupSummary) String() string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 80) + "\n")
	fmt.Fprintf(&b, "%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("[HTTP]\n")
	fmt.Fprintf(&b, "  监听地址: %s\n", s.HTTP.Addr)
	fmt.Fprintf(&b, "  CORS 来源: %s\n\n", formatList(s.HTTP.CORSOrigins))

	b.WriteString("[图表请求 (CHART)]\n")
	fmt.Fprintf(&b, "  最大回溯: %d 天\n", s.Chart.MaxLookbackDays)
	fmt.Fprintf(&b, "  最大数据点: %d\n", s.Chart.MaxDataPoints)
	fmt.Fprintf(&b, "  默认周期: %s\n", s.Chart.DefaultInterval)
	fmt.Fprintf(&b, "  时区: %s\n\n", s.Chart.Timezone)

	b.WriteString("[数据源 (DATA SOURCE)]\n")
	fmt.Fprintf(&b, "  名称: %s\n", s.DataSource.Name)
	fmt.Fprintf(&b, "  地址: %s\n", s.DataSource.BaseURL)
	fmt.Fprintf(&b, "  超时: %s\n\n", s.DataSource.Timeout)

	b.WriteString("[渲染 (RENDER)]\n")
	if !s.Render.Enabled {
		b.WriteString("  (已关闭)\n")
	} else {
		fmt.Fprintf(&b, "  输出目录: %s\n", s.Render.OutputDir)
		fmt.Fprintf(&b, "  公开地址: %s\n", s.Render.PublicURL)
		fmt.Fprintf(&b, "  保留时长: %s\n", s.Render.Retention)
	}
	b.WriteString("\n[可选功能 (FEATURES)]\n")
	for _, name := range []string{"coalesce_fetches", "metrics", "run_log", "snapshot"} {
		state := "off"
		if s.Features[name] {
			state = "on"
		}
		fmt.Fprintf(&b, "  %-18s %s\n", name, state)
	}
	b.WriteString(strings.Repeat("=", 80) + "\n")
	return b.String()
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
