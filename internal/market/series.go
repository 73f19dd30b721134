package market

import "time"

// Series 是数据源返回的原始表格序列，仅在单次请求内流转。
type Series struct {
	Symbol   string
	Interval string
	Rows     []Row
	// SourcePoints 记录截断前的行数；0 表示未经过截断处理。
	SourcePoints int
}

func (s Series) Len() int { return len(s.Rows) }

func (s Series) Empty() bool { return len(s.Rows) == 0 }

// Truncated 报告是否因数据量上限丢弃过旧数据。
func (s Series) Truncated() bool {
	return s.SourcePoints > len(s.Rows)
}

// Bounds 返回序列中最早与最晚的时间戳。
func (s Series) Bounds() (first, last time.Time) {
	for i, row := range s.Rows {
		if i == 0 || row.Time.Before(first) {
			first = row.Time
		}
		if i == 0 || row.Time.After(last) {
			last = row.Time
		}
	}
	return first, last
}

// Clone 复制行切片，调用方可独立修改。
func (s Series) Clone() Series {
	out := s
	out.Rows = make([]Row, len(s.Rows))
	copy(out.Rows, s.Rows)
	return out
}

// Dedup 按时间戳去重，保留首次出现的行，顺序不变。
func (s Series) Dedup() Series {
	if len(s.Rows) < 2 {
		return s
	}
	seen := make(map[int64]struct{}, len(s.Rows))
	rows := make([]Row, 0, len(s.Rows))
	for _, row := range s.Rows {
		key := row.Time.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, row)
	}
	out := s
	out.Rows = rows
	return out
}

// Tail 保留最近的 keep 行并记录原始行数。
func (s Series) Tail(keep int) Series {
	out := s
	if out.SourcePoints < len(s.Rows) {
		out.SourcePoints = len(s.Rows)
	}
	if keep <= 0 || len(s.Rows) <= keep {
		return out
	}
	out.Rows = s.Rows[len(s.Rows)-keep:]
	return out
}
