package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/model"
	"ncov-crawler/internal/crawler/store"
	"ncov-crawler/internal/middleware/logger"
	"ncov-crawler/internal/middleware/prometheus"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

type Server struct {
	Reader store.Reader
	Log    *zap.Logger
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(s.Log), prometheus.Middleware())

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/records/:collection", s.listRecords) // ?limit=20
	return r
}

func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.Reader.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listRecords 按抓取时间倒序返回某个集合最新的记录
func (s *Server) listRecords(c *gin.Context) {
	coll, ok := model.LookupCollection(c.Param("collection"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	docs, err := s.Reader.Latest(c.Request.Context(), coll.Name, coll.TimestampField, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]json.RawMessage, 0, len(docs))
	for _, doc := range docs {
		// 用 Extended JSON 输出，保留字段顺序
		raw, err := bson.MarshalExtJSON(doc, false, false)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		out = append(out, raw)
	}

	c.JSON(http.StatusOK, gin.H{
		"collection": coll.Name,
		"limit":      limit,
		"data":       out,
	})
}
