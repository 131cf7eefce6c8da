package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ncov-crawler/internal/crawler/metrics"
)

// Middleware 统计请求数与耗时。path 使用路由模板，避免 :collection 造成标签爆炸
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.HttpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
