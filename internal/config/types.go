package config

import (
	"strings"
	"time"
)

// Config 是 fxchart 的主配置载体。
type Config struct {
	App        AppConfig        `toml:"app"`
	HTTP       HTTPConfig       `toml:"http"`
	Chart      ChartConfig      `toml:"chart"`
	DataSource DataSourceConfig `toml:"data_source"`
	Render     RenderConfig     `toml:"render"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Storage    StorageConfig    `toml:"storage"`
}

type AppConfig struct {
	Name      string `toml:"name"`
	Version   string `toml:"version"`
	Env       string `toml:"env"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogPath   string `toml:"log_path"`
	Timezone  string `toml:"timezone"`
}

// Location 解析 app.timezone；validate 已保证名称合法。
func (a AppConfig) Location() *time.Location {
	name := strings.TrimSpace(a.Timezone)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

type HTTPConfig struct {
	Addr                string     `toml:"addr"`
	ReadTimeoutSeconds  int        `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int        `toml:"write_timeout_seconds"`
	CORS                CORSConfig `toml:"cors"`
}

type CORSConfig struct {
	AllowOrigins     []string `toml:"allow_origins"`
	AllowCredentials bool     `toml:"allow_credentials"`
	AllowMethods     []string `toml:"allow_methods"`
	AllowHeaders     []string `toml:"allow_headers"`
}

// ChartConfig 约束单次请求的时间窗口与数据量。
type ChartConfig struct {
	MaxLookbackDays int    `toml:"max_lookback_days"`
	MaxDataPoints   int    `toml:"max_data_points"`
	DefaultInterval string `toml:"default_interval"`
	CoalesceFetches bool   `toml:"coalesce_fetches"`
}

// DataSourceConfig 描述外部行情数据源（默认 Yahoo Finance chart API）。
type DataSourceConfig struct {
	Name                   string `toml:"name"`
	BaseURL                string `toml:"base_url"`
	SymbolSuffix           string `toml:"symbol_suffix"`
	TimeoutSeconds         int    `toml:"timeout_seconds"`
	UserAgent              string `toml:"user_agent"`
	Proxy                  string `toml:"proxy"`
	BreakerThreshold       int    `toml:"breaker_threshold"`
	BreakerCooldownSeconds int    `toml:"breaker_cooldown_seconds"`
}

func (d DataSourceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

func (d DataSourceConfig) BreakerCooldown() time.Duration {
	return time.Duration(d.BreakerCooldownSeconds) * time.Second
}

// RenderConfig 控制交互式图表与 CSV 导出。
type RenderConfig struct {
	Enabled        bool   `toml:"enabled"`
	OutputDir      string `toml:"output_dir"`
	PublicBaseURL  string `toml:"public_base_url"`
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	EMAPeriods     []int  `toml:"ema_periods"`
	Snapshot       bool   `toml:"snapshot"`
	RetentionHours int    `toml:"retention_hours"`
	CleanupSpec    string `toml:"cleanup_spec"`
}

func (r RenderConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r RenderConfig) Retention() time.Duration {
	return time.Duration(r.RetentionHours) * time.Hour
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// StorageConfig 仅用于运行审计日志；run_log_path 为空时关闭。
type StorageConfig struct {
	RunLogPath string `toml:"run_log_path"`
}

func (s StorageConfig) RunLogEnabled() bool {
	return strings.TrimSpace(s.RunLogPath) != ""
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
