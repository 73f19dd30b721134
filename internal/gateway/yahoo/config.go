package yahoo

import (
	"strings"
	"time"
)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	ProxyURL  string
	// Location 决定返回行的时间戳所在时区。
	Location *time.Location

	BreakerThreshold int
	BreakerCooldown  time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = "https://query1.finance.yahoo.com"
	}
	if out.Timeout <= 0 {
		out.Timeout = 30 * time.Second
	}
	out.UserAgent = strings.TrimSpace(out.UserAgent)
	if out.UserAgent == "" {
		out.UserAgent = "Mozilla/5.0"
	}
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = time.Minute
	}
	return out
}
