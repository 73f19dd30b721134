package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Entry 是一次图表请求的审计记录，只包含元数据，不保存 K 线。
type Entry struct {
	RequestID     string         `json:"request_id"`
	Pair          string         `json:"pair"`
	Interval      string         `json:"interval"`
	StartDate     string         `json:"start_date"`
	EndDate       string         `json:"end_date"`
	Symbol        string         `json:"symbol,omitempty"`
	Rendered      bool           `json:"rendered"`
	Status        string         `json:"status"`
	ErrorKind     string         `json:"error_kind,omitempty"`
	DataPoints    int            `json:"data_points"`
	SourcePoints  int            `json:"source_points"`
	Truncated     bool           `json:"truncated"`
	FetchSeconds  float64        `json:"fetch_seconds"`
	RenderSeconds float64        `json:"render_seconds"`
	TotalSeconds  float64        `json:"total_seconds"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type runModel struct {
	ID            uint           `gorm:"primaryKey"`
	RequestID     string         `gorm:"column:request_id;size:64;index"`
	Pair          string         `gorm:"column:pair;size:16;index"`
	Interval      string         `gorm:"column:interval;size:8"`
	StartDate     string         `gorm:"column:start_date;size:32"`
	EndDate       string         `gorm:"column:end_date;size:32"`
	Symbol        string         `gorm:"column:symbol;size:32"`
	Rendered      bool           `gorm:"column:rendered"`
	Status        string         `gorm:"column:status;size:32;index"`
	ErrorKind     string         `gorm:"column:error_kind;size:32"`
	DataPoints    int            `gorm:"column:data_points"`
	SourcePoints  int            `gorm:"column:source_points"`
	Truncated     bool           `gorm:"column:truncated"`
	FetchSeconds  float64        `gorm:"column:fetch_seconds"`
	RenderSeconds float64        `gorm:"column:render_seconds"`
	TotalSeconds  float64        `gorm:"column:total_seconds"`
	Details       datatypes.JSON `gorm:"column:details"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (runModel) TableName() string { return "chart_runs" }

// Store 基于 Gorm + SQLite 保存请求审计记录。
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: 路径不能为空")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("runlog: 创建目录失败: %w", err)
			}
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var details datatypes.JSON
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("runlog: 序列化 details 失败: %w", err)
		}
		details = datatypes.JSON(raw)
	}
	model := runModel{
		RequestID:     e.RequestID,
		Pair:          e.Pair,
		Interval:      e.Interval,
		StartDate:     e.StartDate,
		EndDate:       e.EndDate,
		Symbol:        e.Symbol,
		Rendered:      e.Rendered,
		Status:        e.Status,
		ErrorKind:     e.ErrorKind,
		DataPoints:    e.DataPoints,
		SourcePoints:  e.SourcePoints,
		Truncated:     e.Truncated,
		FetchSeconds:  e.FetchSeconds,
		RenderSeconds: e.RenderSeconds,
		TotalSeconds:  e.TotalSeconds,
		Details:       details,
		CreatedAtUnix: e.CreatedAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

// List 按时间倒序返回最近的记录；pair 为空时不过滤。
func (s *Store) List(ctx context.Context, pair string, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	q := s.db.WithContext(ctx).Model(&runModel{}).Order("created_at DESC, id DESC").Limit(limit)
	if pair = strings.ToUpper(strings.TrimSpace(pair)); pair != "" {
		q = q.Where("pair = ?", pair)
	}
	var rows []runModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, m := range rows {
		e := Entry{
			RequestID:     m.RequestID,
			Pair:          m.Pair,
			Interval:      m.Interval,
			StartDate:     m.StartDate,
			EndDate:       m.EndDate,
			Symbol:        m.Symbol,
			Rendered:      m.Rendered,
			Status:        m.Status,
			ErrorKind:     m.ErrorKind,
			DataPoints:    m.DataPoints,
			SourcePoints:  m.SourcePoints,
			Truncated:     m.Truncated,
			FetchSeconds:  m.FetchSeconds,
			RenderSeconds: m.RenderSeconds,
			TotalSeconds:  m.TotalSeconds,
			CreatedAt:     time.UnixMilli(m.CreatedAtUnix),
		}
		if len(m.Details) > 0 {
			_ = json.Unmarshal(m.Details, &e.Details)
		}
		out = append(out, e)
	}
	return out, nil
}
