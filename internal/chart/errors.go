package chart

import "errors"

// Kind 是对外暴露的稳定错误代码。
type Kind string

const (
	KindInvalidDateRange      Kind = "INVALID_DATE_RANGE"
	KindInvalidCurrencyPair   Kind = "INVALID_CURRENCY_PAIR"
	KindDataNotFound          Kind = "DATA_NOT_FOUND"
	KindChartGenerationFailed Kind = "CHART_GENERATION_ERROR"
)

func (k Kind) String() string { return string(k) }

// Error 携带错误代码、可读信息与诊断细节。
// 原始 cause 只用于日志与 errors.Unwrap，不会出现在对外的 Details 中。
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 让 errors.Is(err, ErrDataNotFound) 之类的判断按 Kind 匹配。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrInvalidDateRange      = &Error{Kind: KindInvalidDateRange}
	ErrInvalidCurrencyPair   = &Error{Kind: KindInvalidCurrencyPair}
	ErrDataNotFound          = &Error{Kind: KindDataNotFound}
	ErrChartGenerationFailed = &Error{Kind: KindChartGenerationFailed}
)

func newError(kind Kind, msg string, details map[string]any, cause error) *Error {
	if details == nil {
		details = map[string]any{}
	}
	return &Error{Kind: kind, Message: msg, Details: details, cause: cause}
}

// AsError 提取链上的 *Error。
func AsError(err error) (*Error, bool) {
	var ce *Error
	if errors.As(err, &ce) && ce != nil {
		return ce, true
	}
	return nil, false
}
