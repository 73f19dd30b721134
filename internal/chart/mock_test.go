package chart

import (
	"context"
	"time"

	"fxchart/internal/market"

	"github.com/stretchr/testify/mock"
)

type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) Name() string { return "mock" }

func (m *MockDataSource) Fetch(ctx context.Context, req FetchRequest) (market.Series, error) {
	args := m.Called(ctx, req.Symbol)
	return args.Get(0).(market.Series), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, in RenderInput) (RenderOutput, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(RenderOutput), args.Error(1)
}

type panicRenderer struct{}

func (panicRenderer) Render(context.Context, RenderInput) (RenderOutput, error) {
	panic("renderer exploded")
}

var t0 = time.Date(2025, 8, 25, 10, 0, 0, 0, time.UTC)

func row(at time.Time, o, h, l, px float64) market.Row {
	return market.Row{
		Time:  at,
		Open:  market.PriceOf(o),
		High:  market.PriceOf(h),
		Low:   market.PriceOf(l),
		Close: market.PriceOf(px),
	}
}

// fiveMinuteSeries 生成 n 行价格连续递增的 5 分钟数据。
func fiveMinuteSeries(n int) market.Series {
	rows := make([]market.Row, n)
	for i := range rows {
		base := 1.1 + float64(i)*0.0001
		rows[i] = row(t0.Add(time.Duration(i)*5*time.Minute), base, base+0.0005, base-0.0005, base+0.0002)
	}
	return market.Series{Rows: rows}
}
