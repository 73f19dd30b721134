package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Chart.validate(); err != nil {
		return err
	}
	if err := c.DataSource.validate(); err != nil {
		return err
	}
	if err := c.Render.validate(); err != nil {
		return err
	}
	if err := c.Metrics.validate(); err != nil {
		return err
	}
	return validateWriteTimeout(c)
}

// distinctCandidates 是一个货币对最多实际请求的候选 symbol 数（重复的规范 symbol 只请求一次）。
const distinctCandidates = 3

// worstCaseSeconds 是单个请求在所有候选都超时、渲染也超时时的最长耗时。
func worstCaseSeconds(c *Config) int {
	total := distinctCandidates * c.DataSource.TimeoutSeconds
	if c.Render.Enabled {
		total += c.Render.TimeoutSeconds
	}
	return total
}

// validateWriteTimeout 保证 DATA_NOT_FOUND 等慢响应仍能在写超时前送达；0 表示不限制。
func validateWriteTimeout(c *Config) error {
	wt := c.HTTP.WriteTimeoutSeconds
	if wt < 0 {
		return fmt.Errorf("http.write_timeout_seconds must be >= 0")
	}
	if wt == 0 {
		return nil
	}
	if worst := worstCaseSeconds(c); wt <= worst {
		return fmt.Errorf("http.write_timeout_seconds (%d) must exceed %d*data_source.timeout_seconds + render.timeout_seconds (%d)",
			wt, distinctCandidates, worst)
	}
	return nil
}

func (a *AppConfig) validate() error {
	if !slices.Contains(allowedLogLevels, a.LogLevel) {
		return fmt.Errorf("app.log_level must be one of %v", allowedLogLevels)
	}
	if !slices.Contains(allowedLogFormats, strings.ToLower(a.LogFormat)) {
		return fmt.Errorf("app.log_format must be one of %v", allowedLogFormats)
	}
	if _, err := time.LoadLocation(strings.TrimSpace(a.Timezone)); err != nil {
		return fmt.Errorf("app.timezone %q invalid: %w", a.Timezone, err)
	}
	return nil
}

func (c *ChartConfig) validate() error {
	if c.MaxLookbackDays <= 0 {
		return fmt.Errorf("chart.max_lookback_days must be > 0")
	}
	if c.MaxDataPoints <= 0 {
		return fmt.Errorf("chart.max_data_points must be > 0")
	}
	if !slices.Contains(allowedIntervals, c.DefaultInterval) {
		return fmt.Errorf("chart.default_interval must be one of %v", allowedIntervals)
	}
	return nil
}

func (d *DataSourceConfig) validate() error {
	if !slices.Contains(allowedDataSources, d.Name) {
		return fmt.Errorf("data_source.name must be one of %v", allowedDataSources)
	}
	if _, err := url.ParseRequestURI(d.BaseURL); err != nil {
		return fmt.Errorf("data_source.base_url invalid: %w", err)
	}
	if d.Proxy != "" {
		if _, err := url.Parse(d.Proxy); err != nil {
			return fmt.Errorf("data_source.proxy invalid: %w", err)
		}
	}
	if d.TimeoutSeconds <= 0 {
		return fmt.Errorf("data_source.timeout_seconds must be > 0")
	}
	if d.BreakerThreshold < 0 {
		return fmt.Errorf("data_source.breaker_threshold must be >= 0")
	}
	return nil
}

func (r *RenderConfig) validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.OutputDir) == "" {
		return fmt.Errorf("render.output_dir cannot be empty when render is enabled")
	}
	if r.Width < 200 || r.Height < 200 {
		return fmt.Errorf("render.width/render.height must be >= 200")
	}
	for _, p := range r.EMAPeriods {
		if p < 2 {
			return fmt.Errorf("render.ema_periods entries must be >= 2 (got %d)", p)
		}
	}
	if _, err := cron.ParseStandard(r.CleanupSpec); err != nil {
		return fmt.Errorf("render.cleanup_spec invalid: %w", err)
	}
	return nil
}

func (m *MetricsConfig) validate() error {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}
	return nil
}
