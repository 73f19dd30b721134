package render

import (
	"fmt"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"

	"fxchart/internal/market"
)

// Overlay 是叠加在 K 线上的一条指标线，长度与 K 线一致，NaN 表示该点不绘制。
type Overlay struct {
	Name   string
	Values []float64
}

// emaOverlays 为每个周期计算收盘价 EMA；数据不足一个周期时跳过该周期。
func emaOverlays(candles []market.Candle, periods []int) []Overlay {
	if len(candles) == 0 || len(periods) == 0 {
		return nil
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	uniq := uniquePeriods(periods)
	out := make([]Overlay, 0, len(uniq))
	for _, p := range uniq {
		if len(closes) < p {
			continue
		}
		values := talib.Ema(closes, p)
		// TA-Lib 在预热阶段填 0
		for i := 0; i < p-1 && i < len(values); i++ {
			values[i] = math.NaN()
		}
		out = append(out, Overlay{Name: fmt.Sprintf("EMA%d", p), Values: values})
	}
	return out
}

func uniquePeriods(periods []int) []int {
	seen := make(map[int]struct{}, len(periods))
	out := make([]int, 0, len(periods))
	for _, p := range periods {
		if p < 2 {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
