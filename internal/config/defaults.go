package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppName           = "Forex Chart API"
	defaultAppVersion        = "1.0.0"
	defaultAppEnv            = "dev"
	defaultAppLogLevel       = "info"
	defaultAppLogFormat      = "text"
	defaultAppTimezone       = "UTC"
	defaultHTTPAddr          = ":8000"
	defaultHTTPReadTimeout   = 15
	defaultHTTPWriteTimeout  = 150
	defaultMaxLookbackDays   = 30
	defaultMaxDataPoints     = 10000
	defaultInterval          = "5m"
	defaultDataSourceName    = "yahoo"
	defaultDataSourceBaseURL = "https://query1.finance.yahoo.com"
	defaultSymbolSuffix      = "=X"
	defaultDataSourceTimeout = 30
	defaultUserAgent         = "Mozilla/5.0"
	defaultBreakerThreshold  = 5
	defaultBreakerCooldown   = 60
	defaultRenderOutputDir   = "data/charts"
	defaultRenderBaseURL     = "http://localhost:8000"
	defaultRenderWidth       = 1400
	defaultRenderHeight      = 700
	defaultRenderTimeout     = 20
	defaultRenderRetention   = 24
	defaultRenderCleanup     = "@every 1h"
	defaultMetricsPath       = "/metrics"
)

var (
	defaultCORSList    = []string{"*"}
	defaultEMAPeriods  = []int{20, 50}
	allowedIntervals   = []string{"1m", "5m", "15m", "30m", "1h", "1d"}
	allowedLogLevels   = []string{"debug", "info", "warn", "warning", "error", "critical"}
	allowedLogFormats  = []string{"text", "json"}
	allowedDataSources = []string{"yahoo"}
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.HTTP.applyDefaults(keys)
	c.Chart.applyDefaults(keys)
	c.DataSource.applyDefaults(keys)
	c.Render.applyDefaults(keys)
	c.Metrics.applyDefaults(keys)
}

// Default 返回未读取任何文件时的完整默认配置。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(keySet{})
	return cfg
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.name", &a.Name, defaultAppName),
		stringFieldDefault("app.version", &a.Version, defaultAppVersion),
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.timezone", &a.Timezone, defaultAppTimezone),
	)
	a.LogLevel = strings.ToLower(strings.TrimSpace(a.LogLevel))
}

func (h *HTTPConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("http.addr", &h.Addr, defaultHTTPAddr),
		intFieldDefault("http.read_timeout_seconds", &h.ReadTimeoutSeconds, defaultHTTPReadTimeout),
		intFieldDefault("http.write_timeout_seconds", &h.WriteTimeoutSeconds, defaultHTTPWriteTimeout),
		listFieldDefault("http.cors.allow_origins", &h.CORS.AllowOrigins, defaultCORSList),
		listFieldDefault("http.cors.allow_methods", &h.CORS.AllowMethods, defaultCORSList),
		listFieldDefault("http.cors.allow_headers", &h.CORS.AllowHeaders, defaultCORSList),
		boolFieldDefault("http.cors.allow_credentials", &h.CORS.AllowCredentials, true),
	)
}

func (c *ChartConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("chart.max_lookback_days", &c.MaxLookbackDays, defaultMaxLookbackDays),
		intFieldDefault("chart.max_data_points", &c.MaxDataPoints, defaultMaxDataPoints),
		stringFieldDefault("chart.default_interval", &c.DefaultInterval, defaultInterval),
	)
	c.DefaultInterval = strings.ToLower(strings.TrimSpace(c.DefaultInterval))
}

func (d *DataSourceConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("data_source.name", &d.Name, defaultDataSourceName),
		stringFieldDefault("data_source.base_url", &d.BaseURL, defaultDataSourceBaseURL),
		stringFieldDefault("data_source.symbol_suffix", &d.SymbolSuffix, defaultSymbolSuffix),
		intFieldDefault("data_source.timeout_seconds", &d.TimeoutSeconds, defaultDataSourceTimeout),
		stringFieldDefault("data_source.user_agent", &d.UserAgent, defaultUserAgent),
		intFieldDefault("data_source.breaker_threshold", &d.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("data_source.breaker_cooldown_seconds", &d.BreakerCooldownSeconds, defaultBreakerCooldown),
	)
	d.Name = strings.ToLower(strings.TrimSpace(d.Name))
	d.BaseURL = strings.TrimRight(strings.TrimSpace(d.BaseURL), "/")
}

func (r *RenderConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("render.enabled", &r.Enabled, true),
		stringFieldDefault("render.output_dir", &r.OutputDir, defaultRenderOutputDir),
		stringFieldDefault("render.public_base_url", &r.PublicBaseURL, defaultRenderBaseURL),
		intFieldDefault("render.width", &r.Width, defaultRenderWidth),
		intFieldDefault("render.height", &r.Height, defaultRenderHeight),
		intFieldDefault("render.timeout_seconds", &r.TimeoutSeconds, defaultRenderTimeout),
		intFieldDefault("render.retention_hours", &r.RetentionHours, defaultRenderRetention),
		stringFieldDefault("render.cleanup_spec", &r.CleanupSpec, defaultRenderCleanup),
		fieldDefault{
			key:   "render.ema_periods",
			need:  func() bool { return len(r.EMAPeriods) == 0 },
			apply: func() { r.EMAPeriods = append([]int(nil), defaultEMAPeriods...) },
		},
	)
	r.PublicBaseURL = strings.TrimRight(strings.TrimSpace(r.PublicBaseURL), "/")
}

func (m *MetricsConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("metrics.enabled", &m.Enabled, true),
		stringFieldDefault("metrics.path", &m.Path, defaultMetricsPath),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func listFieldDefault(key string, target *[]string, def []string) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && len(*target) == 0 },
		apply: func() {
			if target != nil {
				*target = append([]string(nil), def...)
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
