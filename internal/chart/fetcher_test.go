package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fxchart/internal/market"
	"fxchart/internal/pkg/symbol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	eurusd = symbol.Pair{Base: "EUR", Quote: "USD"}
	window = TimeRange{Start: t0, End: t0.Add(24 * time.Hour)}
	fiveM  = market.Interval{Code: "5m", Duration: 5 * time.Minute, SourceInterval: "5m"}
)

func newTestFetcher(src DataSource, cfg FetcherConfig) *Fetcher {
	return NewFetcher(src, symbol.NewResolver(symbol.DefaultSuffix), cfg, nil)
}

func TestFetcher_FirstCandidateWins(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(fiveMinuteSeries(3), nil).Once()

	series, err := newTestFetcher(src, FetcherConfig{}).Fetch(context.Background(), eurusd, window, fiveM)
	require.NoError(t, err)
	assert.Equal(t, "EURUSD=X", series.Symbol)
	assert.Equal(t, "5m", series.Interval)
	assert.Equal(t, 3, series.Len())
	src.AssertExpectations(t)
	src.AssertNumberOfCalls(t, "Fetch", 1)
}

func TestFetcher_FallsThroughEmptyAndErrors(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(market.Series{}, errors.New("timeout")).Once()
	src.On("Fetch", mock.Anything, "USDEUR=X").Return(fiveMinuteSeries(2), nil).Once()

	series, err := newTestFetcher(src, FetcherConfig{}).Fetch(context.Background(), eurusd, window, fiveM)
	require.NoError(t, err)
	assert.Equal(t, "USDEUR=X", series.Symbol)
	// 重复的候选不会再次调用数据源，第四个候选在命中后不再尝试。
	src.AssertNumberOfCalls(t, "Fetch", 2)
	src.AssertNotCalled(t, "Fetch", mock.Anything, "USD=X")
}

func TestFetcher_ExhaustedReturnsDataNotFound(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, mock.Anything).Return(market.Series{}, nil)

	_, err := newTestFetcher(src, FetcherConfig{}).Fetch(context.Background(), eurusd, window, fiveM)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataNotFound))

	ce, _ := AsError(err)
	assert.Equal(t, []string{"EURUSD=X", "EURUSD=X", "USDEUR=X", "USD=X"}, ce.Details["candidates_tried"])
	assert.Equal(t, "5m", ce.Details["interval"])
	assert.Equal(t, "EUR/USD", ce.Details["pairs"])
	src.AssertNumberOfCalls(t, "Fetch", 3)
}

func TestFetcher_DedupsAndTruncates(t *testing.T) {
	s := fiveMinuteSeries(6)
	s.Rows = append(s.Rows, row(t0, 9, 9, 9, 9)) // 与首行时间戳重复
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(s, nil)

	series, err := newTestFetcher(src, FetcherConfig{MaxPoints: 4}).Fetch(context.Background(), eurusd, window, fiveM)
	require.NoError(t, err)
	assert.Equal(t, 4, series.Len())
	assert.Equal(t, 6, series.SourcePoints)
	assert.True(t, series.Truncated())
	// 保留的是最近的 4 行
	assert.True(t, series.Rows[0].Time.Equal(t0.Add(10*time.Minute)))
	assert.True(t, series.Rows[3].Time.Equal(t0.Add(25*time.Minute)))
}

func TestFetcher_DedupKeepsFirstOccurrence(t *testing.T) {
	s := market.Series{Rows: []market.Row{
		row(t0, 1, 2, 0.5, 1.5),
		row(t0, 7, 8, 6, 7.5),
	}}
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, "EURUSD=X").Return(s, nil)

	series, err := newTestFetcher(src, FetcherConfig{}).Fetch(context.Background(), eurusd, window, fiveM)
	require.NoError(t, err)
	require.Equal(t, 1, series.Len())
	assert.Equal(t, 1.0, series.Rows[0].Open.Value)
}

type slowSource struct {
	mu    sync.Mutex
	calls int
	gate  chan struct{}
}

func (s *slowSource) Name() string { return "slow" }

func (s *slowSource) Fetch(ctx context.Context, req FetchRequest) (market.Series, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	<-s.gate
	return fiveMinuteSeries(2), nil
}

func TestFetcher_CoalescesConcurrentFetches(t *testing.T) {
	src := &slowSource{gate: make(chan struct{})}
	f := newTestFetcher(src, FetcherConfig{Coalesce: true})

	var wg sync.WaitGroup
	results := make([]market.Series, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.Fetch(context.Background(), eurusd, window, fiveM)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.calls)
	for _, s := range results {
		assert.Equal(t, 2, s.Len())
	}
}

// stuckSource 对指定 symbol 一直阻塞且不理会 ctx，其余 symbol 正常返回。
type stuckSource struct {
	stuck   string
	release chan struct{}
}

func (s *stuckSource) Name() string { return "stuck" }

func (s *stuckSource) Fetch(_ context.Context, req FetchRequest) (market.Series, error) {
	if req.Symbol == s.stuck {
		<-s.release
		return market.Series{}, errors.New("released")
	}
	return fiveMinuteSeries(2), nil
}

func TestFetcher_TimedOutCandidateFallsThrough(t *testing.T) {
	src := &stuckSource{stuck: "EURUSD=X", release: make(chan struct{})}
	defer close(src.release)
	f := newTestFetcher(src, FetcherConfig{Timeout: 50 * time.Millisecond})

	done := make(chan struct{})
	var (
		series market.Series
		err    error
	)
	go func() {
		defer close(done)
		series, err = f.Fetch(context.Background(), eurusd, window, fiveM)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not honour the per-candidate timeout")
	}
	require.NoError(t, err)
	assert.Equal(t, "USDEUR=X", series.Symbol)
	assert.Equal(t, 2, series.Len())
}

func TestFetcher_AllCandidatesTimeOut(t *testing.T) {
	src := new(MockDataSource)
	src.On("Fetch", mock.Anything, mock.Anything).
		After(time.Second).
		Return(fiveMinuteSeries(1), nil)

	started := time.Now()
	_, err := newTestFetcher(src, FetcherConfig{Timeout: 30 * time.Millisecond}).Fetch(context.Background(), eurusd, window, fiveM)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataNotFound))
	assert.Less(t, time.Since(started), 900*time.Millisecond)
}
