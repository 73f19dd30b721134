package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, 30, cfg.Chart.MaxLookbackDays)
	assert.Equal(t, 10000, cfg.Chart.MaxDataPoints)
	assert.Equal(t, 30, cfg.DataSource.TimeoutSeconds)
	assert.Equal(t, "=X", cfg.DataSource.SymbolSuffix)
	assert.Equal(t, "5m", cfg.Chart.DefaultInterval)
	assert.True(t, cfg.Render.Enabled)
	assert.Equal(t, []int{20, 50}, cfg.Render.EMAPeriods)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORS.AllowOrigins)
	assert.False(t, cfg.Storage.RunLogEnabled())
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "render:\n  enabled: false\nmetrics:\n  enabled: false\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Render.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "chart:\n  max_lookback_days: 10\n  max_data_points: 500\n")
	path := writeFile(t, dir, "config.yaml", "include:\n  - base.yaml\nchart:\n  max_data_points: 800\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Chart.MaxLookbackDays)
	assert.Equal(t, 800, cfg.Chart.MaxDataPoints)
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeFile(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"interval":  "chart:\n  default_interval: 7m\n",
		"log level": "app:\n  log_level: loud\n",
		"timezone":  "app:\n  timezone: Mars/Olympus\n",
		"ema":       "render:\n  ema_periods: [1]\n",
		"cron":      "render:\n  cleanup_spec: not-a-spec\n",
		"source":    "data_source:\n  name: bloomberg\n",
		"write":     "http:\n  write_timeout_seconds: 110\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	v := viper.New()
	env := map[string]string{
		"FXCHART_CHART_MAX_DATA_POINTS": "42",
		"FXCHART_RENDER_ENABLED":        "false",
	}
	applyEnvOverrides(v, func(k string) (string, bool) {
		val, ok := env[k]
		return val, ok
	})

	cfg, err := decode(v)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Chart.MaxDataPoints)
	assert.False(t, cfg.Render.Enabled)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, validate(cfg))
	assert.Equal(t, "UTC", cfg.App.Location().String())
}

func TestWriteTimeoutCoversWorstCase(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.HTTP.WriteTimeoutSeconds, worstCaseSeconds(cfg))

	cfg.DataSource.TimeoutSeconds = 10
	cfg.Render.TimeoutSeconds = 5
	cfg.HTTP.WriteTimeoutSeconds = 35
	assert.Error(t, validate(cfg), "3*10+5 不足以送达超时后的响应")
	cfg.HTTP.WriteTimeoutSeconds = 36
	assert.NoError(t, validate(cfg))

	cfg.Render.Enabled = false
	cfg.HTTP.WriteTimeoutSeconds = 31
	assert.NoError(t, validate(cfg))

	cfg.HTTP.WriteTimeoutSeconds = 0
	assert.NoError(t, validate(cfg), "0 表示不限制")
}
