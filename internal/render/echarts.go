package render

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"fxchart/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
)

var overlayColors = []string{"#3b82f6", "#fbbf24", "#f472b6", "#22d3ee", "#a78bfa"}

type chartSpec struct {
	Title    string
	Subtitle string
	Interval market.Interval
	Candles  []market.Candle
	Overlays []Overlay
	Width    int
	Height   int
	Location *time.Location
}

// buildChartHTML 生成可独立打开的交互式 K 线页面（缩放、tooltip、EMA 叠加）。
func buildChartHTML(spec chartSpec) ([]byte, error) {
	if len(spec.Candles) == 0 {
		return nil, fmt.Errorf("no candles to render for %s", spec.Title)
	}
	minPrice, maxPrice := priceBounds(spec.Candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1e-4, math.Abs(maxPrice)*0.001)
	}
	decimals := axisDecimals(maxPrice)

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       spec.Title,
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", spec.Width),
			Height:          fmt.Sprintf("%dpx", spec.Height),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         spec.Title,
			Subtitle:      spec.Subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside", XAxisIndex: []int{0}, Start: 0, End: 100},
			opts.DataZoom{Type: "slider", XAxisIndex: []int{0}, Start: 0, End: 100},
		),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			Min:       round(minPrice-padding, decimals),
			Max:       round(maxPrice+padding, decimals),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)

	xAxis := buildXAxis(spec.Candles, spec.Interval, spec.Location)
	kline.SetXAxis(xAxis)
	kline.AddSeries(spec.Title, buildKlineSeries(spec.Candles))

	if len(spec.Overlays) > 0 {
		line := charts.NewLine()
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		line.SetXAxis(xAxis)
		for i, ov := range spec.Overlays {
			color := overlayColors[i%len(overlayColors)]
			line.AddSeries(ov.Name, toLineData(ov.Values, decimals+1),
				charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}))
		}
		kline.Overlap(line)
	}

	var buf bytes.Buffer
	if err := kline.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func buildXAxis(candles []market.Candle, interval market.Interval, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	layout := "01-02 15:04"
	if interval.Duration >= 24*time.Hour {
		layout = "2006-01-02"
	}
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = c.Time.In(loc).Format(layout)
	}
	return x
}

// ECharts K 线的数据顺序为 [open, close, low, high]。
func buildKlineSeries(candles []market.Candle) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	return data
}

func toLineData(series []float64, decimals int) []opts.LineData {
	line := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			line[i] = opts.LineData{Value: nil}
			continue
		}
		line[i] = opts.LineData{Value: round(v, decimals)}
	}
	return line
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	if len(candles) == 0 {
		return 0, 0
	}
	minVal = candles[0].Low
	maxVal = candles[0].High
	for _, c := range candles {
		for _, v := range c.Prices() {
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	return minVal, maxVal
}

// axisDecimals 按价格量级选择小数位：EUR/USD 需要 5 位，USD/JPY 3 位即可。
func axisDecimals(price float64) int {
	switch abs := math.Abs(price); {
	case abs >= 1000:
		return 2
	case abs >= 10:
		return 3
	default:
		return 5
	}
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}
