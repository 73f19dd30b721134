package chart

import (
	"fmt"
	"strings"
	"time"
)

// 按顺序尝试，先匹配者生效。
var dateTimeLayouts = []string{
	"2006-01-02 3:04 PM", // 2025-08-25 10:00 AM
	"2006-01-02 15:04",   // 2025-08-25 10:00
	"2006-01-02 3:04PM",  // 2025-08-25 10:00AM
}

const day = 24 * time.Hour

// RangeValidator 解析并校验请求时间窗口。
type RangeValidator struct {
	maxLookbackDays int
	loc             *time.Location
}

func NewRangeValidator(maxLookbackDays int, loc *time.Location) RangeValidator {
	if loc == nil {
		loc = time.UTC
	}
	return RangeValidator{maxLookbackDays: maxLookbackDays, loc: loc}
}

// Validate 要求 start < end，且跨度的整天数不超过 maxLookbackDays。
func (v RangeValidator) Validate(startStr, endStr string) (TimeRange, error) {
	start, err := parseDateTime(startStr, v.loc)
	if err != nil {
		return TimeRange{}, err
	}
	end, err := parseDateTime(endStr, v.loc)
	if err != nil {
		return TimeRange{}, err
	}
	if !start.Before(end) {
		return TimeRange{}, newError(KindInvalidDateRange, "Start date must be before end date", map[string]any{
			"start_date": startStr,
			"end_date":   endStr,
		}, nil)
	}
	if days := int(end.Sub(start) / day); days > v.maxLookbackDays {
		return TimeRange{}, newError(KindInvalidDateRange,
			fmt.Sprintf("Date range too large. Maximum allowed: %d days", v.maxLookbackDays),
			map[string]any{
				"start_date":        startStr,
				"end_date":          endStr,
				"requested_days":    days,
				"max_days_lookback": v.maxLookbackDays,
			}, nil)
	}
	return TimeRange{Start: start, End: end}, nil
}

func parseDateTime(raw string, loc *time.Location) (time.Time, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, newError(KindInvalidDateRange,
		fmt.Sprintf("Unable to parse datetime: %s", raw),
		map[string]any{
			"value":          raw,
			"accepted_forms": []string{"YYYY-MM-DD HH:MM AM/PM", "YYYY-MM-DD HH:MM", "YYYY-MM-DD HH:MMAM/PM"},
		}, nil)
}
