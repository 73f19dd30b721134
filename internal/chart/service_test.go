package chart

import (
	"context"
	"errors"
	"testing"
	"time"

	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, src DataSource, r Renderer) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Validator:     NewRangeValidator(30, time.UTC),
		Fetcher:       NewFetcher(src, symbol.NewResolver(symbol.DefaultSuffix), FetcherConfig{MaxPoints: 10000}, nil),
		Renderer:      r,
		RenderTimeout: time.Second,
	})
	require.NoError(t, err)
	return svc
}

var okRequest = Request{
	Pairs:         "EUR/USD",
	StartDateTime: "2025-08-25 10:00 AM",
	EndDateTime:   "2025-08-26 10:00 AM",
	Interval:      "5m",
}

func TestService_EndToEnd(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(fiveMinuteSeries(288), nil)
	rnd := new(MockRenderer)
	rnd.On("Render", mock.Anything, mock.MatchedBy(func(in RenderInput) bool {
		return in.Pair.String() == "EUR/USD" && in.Interval.Code == "5m" && in.Series.Len() == 288
	})).Return(RenderOutput{URL: "http://localhost:8000/charts/x.html", CSVPath: "data/charts/x.csv"}, nil)

	res, err := newTestService(t, src, rnd).Run(context.Background(), okRequest, true)
	require.NoError(t, err)
	assert.Equal(t, "EUR/USD", res.Pair)
	assert.Equal(t, "EURUSD=X", res.Symbol)
	assert.Equal(t, 288, res.DataPoints)
	assert.Len(t, res.Candles, 288)
	assert.Equal(t, "5m", res.Interval)
	assert.True(t, res.Start.Equal(t0))
	assert.True(t, res.End.Equal(t0.Add(287*5*time.Minute)))
	assert.Equal(t, "http://localhost:8000/charts/x.html", res.ChartURL)
	assert.Equal(t, "data/charts/x.csv", res.CSVFile)
	assert.Equal(t, 288, res.Metrics.DataPointsProcessed)
	assert.False(t, res.Metrics.Truncated)
	assert.GreaterOrEqual(t, res.Metrics.TotalTime, res.Metrics.DataFetchTime)
	rnd.AssertExpectations(t)
}

func TestService_DataOnlySkipsRenderer(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(fiveMinuteSeries(5), nil)
	rnd := new(MockRenderer)

	res, err := newTestService(t, src, rnd).Run(context.Background(), okRequest, false)
	require.NoError(t, err)
	assert.Empty(t, res.ChartURL)
	assert.Empty(t, res.CSVFile)
	assert.Zero(t, res.Metrics.ChartGenerationTime)
	rnd.AssertNotCalled(t, "Render", mock.Anything, mock.Anything)
}

func TestService_RenderFailureDegrades(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(fiveMinuteSeries(5), nil)
	rnd := new(MockRenderer)
	rnd.On("Render", mock.Anything, mock.Anything).Return(RenderOutput{URL: "partial"}, errors.New("disk full"))

	res, err := newTestService(t, src, rnd).Run(context.Background(), okRequest, true)
	require.NoError(t, err)
	assert.Empty(t, res.ChartURL)
	assert.Equal(t, 5, res.DataPoints)

	res, err = newTestService(t, src, panicRenderer{}).Run(context.Background(), okRequest, true)
	require.NoError(t, err)
	assert.Empty(t, res.ChartURL)
}

func TestService_TypedErrorsPassThrough(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(market.Series{}, nil)
	svc := newTestService(t, src, nil)

	cases := []struct {
		name string
		req  Request
		want *Error
	}{
		{"bad pair", Request{Pairs: "EURUSD", StartDateTime: okRequest.StartDateTime, EndDateTime: okRequest.EndDateTime, Interval: "5m"}, ErrInvalidCurrencyPair},
		{"reversed range", Request{Pairs: "EUR/USD", StartDateTime: okRequest.EndDateTime, EndDateTime: okRequest.StartDateTime, Interval: "5m"}, ErrInvalidDateRange},
		{"no data", okRequest, ErrDataNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Run(context.Background(), tc.req, true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestService_DataNotFoundListsCandidates(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(market.Series{}, nil)

	_, err := newTestService(t, src, nil).Run(context.Background(), okRequest, false)
	ce, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindDataNotFound, ce.Kind)
	assert.Len(t, ce.Details["candidates_tried"], 4)
}

func TestService_UnexpectedFailureWrapped(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(fiveMinuteSeries(3), nil)
	svc := newTestService(t, src, nil)

	// 未知周期在服务层属于意外错误
	req := okRequest
	req.Interval = "7m"
	_, err := svc.Run(context.Background(), req, false)
	ce, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindChartGenerationFailed, ce.Kind)
	assert.Contains(t, ce.Message, "Failed to generate chart")
	assert.Equal(t, "7m", ce.Details["interval"])
	assert.Contains(t, ce.Details, "error")
	src.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestService_IgnoresCallerCancellation(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), "EURUSD=X").
		Return(fiveMinuteSeries(3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newTestService(t, src, nil).Run(ctx, okRequest, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.DataPoints)
}

func TestNewService_RequiresFetcher(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)
}

type stuckRenderer struct {
	release chan struct{}
}

func (r stuckRenderer) Render(context.Context, RenderInput) (RenderOutput, error) {
	<-r.release
	return RenderOutput{URL: "too late"}, nil
}

func TestService_RenderTimeoutDegrades(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(fiveMinuteSeries(4), nil)
	rnd := stuckRenderer{release: make(chan struct{})}
	defer close(rnd.release)

	svc, err := NewService(ServiceConfig{
		Validator:     NewRangeValidator(30, time.UTC),
		Fetcher:       NewFetcher(src, symbol.NewResolver(symbol.DefaultSuffix), FetcherConfig{}, nil),
		Renderer:      rnd,
		RenderTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	var res Result
	go func() {
		defer close(done)
		res, err = svc.Run(context.Background(), okRequest, true)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not honour the render timeout")
	}
	require.NoError(t, err)
	assert.Empty(t, res.ChartURL)
	assert.Empty(t, res.CSVFile)
	assert.Equal(t, 4, res.DataPoints)
}
