package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/metrics"
)

type Fetcher struct {
	Log        *zap.Logger
	Http       *resty.Client
	UserAgents []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// New 创建抓取器，UA 池为空时使用内置列表
func New(log *zap.Logger, timeout time.Duration, userAgents []string) *Fetcher {
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	client := resty.New()
	client.SetTimeout(timeout)

	return &Fetcher{
		Log:        log,
		Http:       client,
		UserAgents: userAgents,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch GET 页面并返回响应体。
// 分块传输解码失败时立即重试，不退避也不限次数；其他传输错误直接返回。
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ua := f.userAgent()
		res, err := f.Http.R().
			SetContext(ctx).
			SetHeader("user-agent", ua).
			Get(url)
		if err != nil {
			if ctx.Err() == nil && IsChunkedEncodingError(err) {
				metrics.FetchRetries.Inc()
				f.Log.Warn("Chunked encoding error, retrying",
					zap.String("url", url),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				continue
			}
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}

		if res.IsError() {
			f.Log.Warn("Upstream returned non-2xx status",
				zap.String("url", url),
				zap.Int("status", res.StatusCode()),
			)
		}
		f.Log.Debug("Fetched page",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("bodySize", len(res.Body())),
		)
		return res.Body(), nil
	}
}

func (f *Fetcher) userAgent() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.UserAgents[f.rnd.Intn(len(f.UserAgents))]
}

// IsChunkedEncodingError 判断错误是否来自分块传输的响应体解码
func IsChunkedEncodingError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "chunked encoding") || strings.Contains(msg, "chunk length")
}
