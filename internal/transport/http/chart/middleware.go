package charthttp

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fxchart/internal/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// requestID 透传或生成请求 ID，并写回响应头。
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// requestLogger 记录每个请求的方法、路径、状态与耗时。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Infof("HTTP %s %s status=%d ip=%s dur=%s id=%s", method, fullPath, status, client, dur, requestIDFrom(c))
	}
}

// CORSConfig 对应配置中的 http.cors。
type CORSConfig struct {
	AllowOrigins     []string
	AllowCredentials bool
	AllowMethods     []string
	AllowHeaders     []string
}

var defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}

var defaultCORSHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}

// corsMiddleware 把 http.cors 翻译为 gin-contrib/cors 配置。
// 允许 "*" 且需要凭据时改为逐个回显请求的 Origin，浏览器不接受带凭据的通配。
func corsMiddleware(cfg CORSConfig) (gin.HandlerFunc, error) {
	cc := cors.Config{
		AllowCredentials:          cfg.AllowCredentials,
		AllowMethods:              cfg.AllowMethods,
		AllowHeaders:              cfg.AllowHeaders,
		ExposeHeaders:             []string{requestIDHeader},
		MaxAge:                    10 * time.Minute,
		OptionsResponseStatusCode: http.StatusOK,
	}
	switch {
	case slices.Contains(cfg.AllowOrigins, "*") && cfg.AllowCredentials:
		cc.AllowOriginFunc = func(string) bool { return true }
	case slices.Contains(cfg.AllowOrigins, "*"):
		cc.AllowAllOrigins = true
	default:
		cc.AllowOrigins = cfg.AllowOrigins
	}
	if len(cc.AllowMethods) == 0 || slices.Contains(cc.AllowMethods, "*") {
		cc.AllowMethods = defaultCORSMethods
	}
	if len(cc.AllowHeaders) == 0 || slices.Contains(cc.AllowHeaders, "*") {
		cc.AllowHeaders = defaultCORSHeaders
	}
	if err := cc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cors config: %w", err)
	}
	return cors.New(cc), nil
}

// observe 按路由模板统计请求，避免路径参数导致标签爆炸。
func observe(m MetricsExporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		m.ObserveHTTP(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}
