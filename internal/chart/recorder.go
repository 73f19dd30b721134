package chart

import "time"

// 候选 symbol 的尝试结果。
const (
	AttemptHit     = "hit"
	AttemptEmpty   = "empty"
	AttemptError   = "error"
	AttemptSkipped = "skipped"
)

// Recorder 接收管线的观测数据，由 metrics 包实现。
type Recorder interface {
	ObserveAttempt(source, outcome string)
	ObserveFetch(d time.Duration, ok bool)
	ObserveRender(d time.Duration, ok bool)
	ObserveTruncation(dropped int)
	ObserveResult(kind string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string)       {}
func (nopRecorder) ObserveFetch(time.Duration, bool)    {}
func (nopRecorder) ObserveRender(time.Duration, bool)   {}
func (nopRecorder) ObserveTruncation(int)               {}
func (nopRecorder) ObserveResult(string, time.Duration) {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
