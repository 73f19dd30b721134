package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"
)

const fileStampLayout = "20060102_1504"

// CSVFileName 形如 EUR_USD_20250825_1000_to_20250826_1000_chart_data.csv，时间取请求窗口。
func CSVFileName(pair symbol.Pair, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_to_%s_chart_data.csv", pair.Slug(), start.Format(fileStampLayout), end.Format(fileStampLayout))
}

// BuildCSV 生成带列头的 OHLC CSV，按时间从旧到新。
func BuildCSV(candles []market.Candle, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("datetime,open,high,low,close\n")
	for _, c := range candles {
		b.WriteString(c.Time.In(loc).Format(time.RFC3339))
		for _, v := range c.Prices() {
			b.WriteByte(',')
			b.WriteString(formatPrice(v))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// formatPrice 输出最短的十进制表示，避免 1.1000000000000001 之类的二进制噪声。
func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).String()
}
