package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/dedup"
	"ncov-crawler/internal/crawler/extractor"
	"ncov-crawler/internal/crawler/metrics"
	"ncov-crawler/internal/crawler/model"
	"ncov-crawler/internal/crawler/normalizer"
	"ncov-crawler/internal/crawler/notify"
	"ncov-crawler/internal/crawler/record"
	"ncov-crawler/internal/crawler/store"
)

// 固定参数：上游地址、轮询间隔、页面不完整时的重试间隔
const (
	PageURL      = "https://ncov.dxy.cn/ncovh5/view/pneumonia"
	PollInterval = 60 * time.Second
	RetryDelay   = 3 * time.Second
)

var ErrIncomplete = errors.New("incomplete page")

type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Worker struct {
	Log        *zap.Logger
	Fetcher    PageFetcher
	Store      store.Store
	Dedup      *dedup.Deduplicator
	Normalizer *normalizer.Normalizer
	Notifier   notify.Notifier

	URL        string
	Interval   time.Duration
	RetryDelay time.Duration
	Now        func() time.Time
}

func NewWorker(log *zap.Logger, fetcher PageFetcher, st store.Store, norm *normalizer.Normalizer, notifier notify.Notifier) *Worker {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Worker{
		Log:        log,
		Fetcher:    fetcher,
		Store:      st,
		Dedup:      dedup.New(st),
		Normalizer: norm,
		Notifier:   notifier,
		URL:        PageURL,
		Interval:   PollInterval,
		RetryDelay: RetryDelay,
		Now:        time.Now,
	}
}

// page 一次成功尝试解码后的六段数据
type page struct {
	overall     bson.D
	areas       []bson.D
	abroad      []bson.D
	newsChinese []bson.D
	newsEnglish []bson.D
	rumors      []bson.D
}

// Run 主循环：每轮抓取完成后休眠一个轮询间隔，直到 ctx 取消
func (w *Worker) Run(ctx context.Context) {
	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.Log.Info("Worker stopped", zap.Error(err))
			return
		}
		if !w.sleep(ctx, w.Interval) {
			w.Log.Info("Worker stopped", zap.Error(ctx.Err()))
			return
		}
	}
}

// RunOnce 执行一轮抓取：反复尝试直到六段数据齐全，然后入库。
// 只有 ctx 取消时返回错误。
func (w *Worker) RunOnce(ctx context.Context) (model.Summary, error) {
	started := w.Now()
	for attempt := 1; ; attempt++ {
		// 同一轮的所有记录共用这个时间戳
		crawlTime := w.Now().UnixMilli()

		p, err := w.attempt(ctx, attempt)
		if err == nil {
			summary := model.Summary{
				CrawlTime:   crawlTime,
				Attempts:    attempt,
				Collections: w.persist(ctx, p, crawlTime),
				StartedAt:   started,
				FinishedAt:  w.Now(),
			}
			w.finish(ctx, summary)
			return summary, nil
		}
		if ctx.Err() != nil {
			return model.Summary{}, ctx.Err()
		}

		if !w.sleep(ctx, w.RetryDelay) {
			return model.Summary{}, ctx.Err()
		}
	}
}

// attempt 抓取并提取一次；任何一段缺失都放弃本次全部结果
func (w *Worker) attempt(ctx context.Context, attempt int) (*page, error) {
	body, err := w.Fetcher.Fetch(ctx, w.URL)
	if err != nil {
		if ctx.Err() == nil {
			metrics.Attempts.WithLabelValues("fetch_error").Inc()
			w.Log.Error("Failed to fetch page",
				zap.String("url", w.URL),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
		return nil, err
	}

	res := extractor.Extract(body)
	p := decodePage(res)

	if missing := res.Missing(); len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for _, name := range missing {
			names = append(names, string(name))
			metrics.FragmentsMissing.WithLabelValues(string(name)).Inc()
		}
		metrics.Attempts.WithLabelValues("incomplete").Inc()
		w.Log.Warn("Page incomplete, retrying",
			zap.Int("attempt", attempt),
			zap.Strings("missing", names),
			zap.Duration("delay", w.RetryDelay),
		)
		return nil, fmt.Errorf("%w: missing %v", ErrIncomplete, names)
	}

	metrics.Attempts.WithLabelValues("complete").Inc()
	return p, nil
}

// decodePage 解码各段 JSON，解码失败的片段视为缺失
func decodePage(res extractor.Result) *page {
	p := &page{}
	lists := map[extractor.Name]*[]bson.D{
		extractor.Area:        &p.areas,
		extractor.Abroad:      &p.abroad,
		extractor.NewsChinese: &p.newsChinese,
		extractor.NewsEnglish: &p.newsEnglish,
		extractor.Rumors:      &p.rumors,
	}

	for _, f := range extractor.Fragments {
		raw, ok := res.Get(f.Name)
		if !ok {
			continue
		}
		if f.Shape == extractor.Object {
			doc, err := record.DecodeObject(raw)
			if err != nil {
				res.Drop(f.Name, err)
				continue
			}
			p.overall = doc
			continue
		}

		docs, err := record.DecodeList(raw)
		if err != nil {
			res.Drop(f.Name, err)
			continue
		}
		*lists[f.Name] = docs
	}
	return p
}

func (w *Worker) finish(ctx context.Context, summary model.Summary) {
	metrics.CyclesCompleted.Inc()
	metrics.LastCrawlTimestamp.Set(float64(summary.CrawlTime))

	fields := []zap.Field{
		zap.Int64("crawlTime", summary.CrawlTime),
		zap.Int("attempts", summary.Attempts),
		zap.Int("inserted", summary.Inserted()),
		zap.Int("duplicates", summary.Duplicates()),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	}
	w.Log.Info("Successfully crawled", fields...)

	if err := w.Notifier.CycleCompleted(ctx, summary); err != nil {
		w.Log.Warn("Failed to publish crawl summary", zap.Error(err))
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
