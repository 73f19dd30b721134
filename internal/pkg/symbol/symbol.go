package symbol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPair 由 Parse 在货币对格式不合法时返回（经 %w 包装）。
var ErrInvalidPair = errors.New("invalid currency pair")

// DefaultSuffix 是 Yahoo Finance 外汇代码的后缀，例如 EURUSD=X。
const DefaultSuffix = "=X"

const codeLen = 3

// Pair 是一个外汇货币对，Base/Quote 均为 3 位大写字母。
type Pair struct {
	Base  string
	Quote string
}

func (p Pair) String() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "/" + p.Quote
}

// Slug 用于文件名，例如 EUR_USD。
func (p Pair) Slug() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "_" + p.Quote
}

// Parse 解析 "XXX/YYY"：恰好一个 '/'，两侧各 3 位字母，大小写不敏感。
func Parse(s string) (Pair, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if !strings.Contains(raw, "/") {
		return Pair{}, fmt.Errorf("%w: %q must contain \"/\" (e.g. EUR/USD)", ErrInvalidPair, s)
	}
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("%w: %q must have exactly one \"/\" separator", ErrInvalidPair, s)
	}
	base, quote := parts[0], parts[1]
	if !isCode(base) || !isCode(quote) {
		return Pair{}, fmt.Errorf("%w: %q each currency code must be exactly 3 letters", ErrInvalidPair, s)
	}
	return Pair{Base: base, Quote: quote}, nil
}

func isCode(s string) bool {
	if len(s) != codeLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Resolver 把货币对展开为数据源 ticker 候选列表。
type Resolver struct {
	suffix string
}

func NewResolver(suffix string) Resolver {
	return Resolver{suffix: suffix}
}

// Candidates 按固定优先级返回候选：
//  1. BASEQUOTE+suffix（规范形式）
//  2. 同上，再试一次
//  3. QUOTEBASE+suffix（反向报价）
//  4. QUOTE+suffix（个别货币对的近似兜底，如 JPY=X 对应 USD/JPY）
func (r Resolver) Candidates(p Pair) []string {
	canonical := p.Base + p.Quote + r.suffix
	return []string{
		canonical,
		p.Base + p.Quote + r.suffix,
		p.Quote + p.Base + r.suffix,
		p.Quote + r.suffix,
	}
}

// NormalizeList 解析并去重一组货币对，非法项被跳过。
func NormalizeList(pairs []string) []string {
	if len(pairs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, s := range pairs {
		p, err := Parse(s)
		if err != nil {
			continue
		}
		norm := p.String()
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}
