package market

import (
	"fmt"
	"strings"
	"time"
)

// Interval 描述一个采样周期（对外代码 + 时长 + 数据源 interval）。
type Interval struct {
	Code           string        `json:"code"`
	Description    string        `json:"description"`
	Duration       time.Duration `json:"-"`
	SourceInterval string        `json:"-"`
}

var orderedIntervals = []Interval{
	{Code: "1m", Description: "1 minute", Duration: time.Minute, SourceInterval: "1m"},
	{Code: "5m", Description: "5 minutes", Duration: 5 * time.Minute, SourceInterval: "5m"},
	{Code: "15m", Description: "15 minutes", Duration: 15 * time.Minute, SourceInterval: "15m"},
	{Code: "30m", Description: "30 minutes", Duration: 30 * time.Minute, SourceInterval: "30m"},
	{Code: "1h", Description: "1 hour", Duration: time.Hour, SourceInterval: "60m"},
	{Code: "1d", Description: "1 day", Duration: 24 * time.Hour, SourceInterval: "1d"},
}

var supportedIntervals = func() map[string]Interval {
	out := make(map[string]Interval, len(orderedIntervals))
	for _, iv := range orderedIntervals {
		out[iv.Code] = iv
	}
	return out
}()

// ParseInterval 返回标准化的周期定义；忽略首尾空白，代码区分大小写。
func ParseInterval(code string) (Interval, error) {
	key := strings.TrimSpace(code)
	iv, ok := supportedIntervals[key]
	if !ok {
		return Interval{}, fmt.Errorf("unsupported interval: %q (allowed: %s)", code, strings.Join(IntervalCodes(), ", "))
	}
	return iv, nil
}

// SupportedIntervals 按周期从短到长返回。
func SupportedIntervals() []Interval {
	out := make([]Interval, len(orderedIntervals))
	copy(out, orderedIntervals)
	return out
}

func IntervalCodes() []string {
	codes := make([]string, len(orderedIntervals))
	for i, iv := range orderedIntervals {
		codes[i] = iv.Code
	}
	return codes
}
