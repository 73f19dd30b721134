package market

import (
	"math"
	"time"
)

// Candle 是一个完整的 OHLC 样本，四个价格均存在。
type Candle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Prices 按 O/H/L/C 顺序返回四个价格。
func (c Candle) Prices() [4]float64 {
	return [4]float64{c.Open, c.High, c.Low, c.Close}
}

// Price 表示数据源返回的可缺失价格；Valid=false 即缺失。
type Price struct {
	Value float64
	Valid bool
}

// PriceOf 把浮点值包装为 Price，NaN/Inf 视为缺失。
func PriceOf(v float64) Price {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Price{}
	}
	return Price{Value: v, Valid: true}
}

// Row 是原始序列中的一行，价格字段可能缺失。
type Row struct {
	Time  time.Time
	Open  Price
	High  Price
	Low   Price
	Close Price
}

// Candle 在四个价格都存在时返回对应 Candle。
func (r Row) Candle() (Candle, bool) {
	if !r.Open.Valid || !r.High.Valid || !r.Low.Valid || !r.Close.Valid {
		return Candle{}, false
	}
	return Candle{
		Time:  r.Time,
		Open:  r.Open.Value,
		High:  r.High.Value,
		Low:   r.Low.Value,
		Close: r.Close.Value,
	}, true
}
