package config

import (
	"fmt"
	"strings"

	"fxchart/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch 监听主配置文件变化，重新 Load 成功后回调 onChange。
// 只有可热更的字段（目前是日志级别）应在回调中生效，其余字段仍以启动时为准。
func Watch(path string, onChange func(*Config)) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path cannot be empty")
	}
	if onChange == nil {
		return nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("watch config failed: %w", err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(path)
		if err != nil {
			logger.Warnf("配置热更新失败，保留旧配置: %v", err)
			return
		}
		logger.Infof("检测到配置变更: %s", evt.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}
