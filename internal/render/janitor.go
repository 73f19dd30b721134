package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"fxchart/internal/logger"
)

// Janitor 定期清理输出目录中超过保留期的图表产物。
type Janitor struct {
	dir       string
	retention time.Duration
	spec      string
	now       func() time.Time
}

func NewJanitor(dir string, retention time.Duration, spec string) *Janitor {
	if spec == "" {
		spec = "@every 1h"
	}
	return &Janitor{dir: dir, retention: retention, spec: spec, now: time.Now}
}

// Sweep 删除修改时间早于 now-retention 的普通文件，返回删除数量。
func (j *Janitor) Sweep() (int, error) {
	if j.retention <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read chart dir: %w", err)
	}
	cutoff := j.now().Add(-j.retention)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil {
			logger.Warnf("清理图表文件失败 %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Start 按 cron 表达式运行 Sweep，阻塞到 ctx 结束。
func (j *Janitor) Start(ctx context.Context) error {
	if j.retention <= 0 {
		<-ctx.Done()
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(j.spec, j.run); err != nil {
		return fmt.Errorf("register cleanup task: %w", err)
	}
	c.Start()
	logger.Infof("图表清理任务已启动: dir=%s retention=%s spec=%s", j.dir, j.retention, j.spec)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (j *Janitor) run() {
	n, err := j.Sweep()
	if err != nil {
		logger.Warnf("图表清理失败: %v", err)
		return
	}
	if n > 0 {
		logger.Infof("已清理 %d 个过期图表文件", n)
	}
}
