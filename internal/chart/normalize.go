package chart

import (
	"fxchart/internal/logger"
	"fxchart/internal/market"
)

// Normalize 把原始行转换为 Candle；任一价格缺失的行整行丢弃。
// 价格区间取所有保留 Candle 的 O/H/L/C 合并后的最小/最大值。
func Normalize(series market.Series) ([]market.Candle, PriceRange, error) {
	candles := make([]market.Candle, 0, series.Len())
	for _, row := range series.Rows {
		c, ok := row.Candle()
		if !ok {
			continue
		}
		candles = append(candles, c)
	}
	if dropped := series.Len() - len(candles); dropped > 0 {
		logger.Debugf("丢弃 %d 行不完整数据（symbol=%s）", dropped, series.Symbol)
	}
	if len(candles) == 0 {
		return nil, PriceRange{}, newError(KindDataNotFound, "No valid data points found after processing", map[string]any{
			"symbol":   series.Symbol,
			"raw_rows": series.Len(),
			"interval": series.Interval,
		}, nil)
	}
	return candles, priceRange(candles), nil
}

func priceRange(candles []market.Candle) PriceRange {
	first := candles[0].Prices()
	pr := PriceRange{Min: first[0], Max: first[0]}
	for _, c := range candles {
		for _, v := range c.Prices() {
			if v < pr.Min {
				pr.Min = v
			}
			if v > pr.Max {
				pr.Max = v
			}
		}
	}
	return pr
}
