package scheduler

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/metrics"
	"ncov-crawler/internal/crawler/model"
	"ncov-crawler/internal/crawler/normalizer"
	"ncov-crawler/internal/crawler/record"
)

// tally 并发流水线共享的写入统计
type tally struct {
	mu    sync.Mutex
	stats map[string]model.CollectionStats
}

func (t *tally) add(collection, result string) {
	metrics.Records.WithLabelValues(collection, result).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats[collection]
	switch result {
	case metrics.ResultInserted:
		s.Inserted++
	case metrics.ResultDuplicate:
		s.Duplicates++
	case metrics.ResultFailed:
		s.Failed++
	}
	t.stats[collection] = s
}

// persist 各类数据互不依赖，分流水线并发写入，全部完成后返回。
// 两路新闻写同一个集合，放在同一条流水线里顺序处理。
func (w *Worker) persist(ctx context.Context, p *page, crawlTime int64) map[string]model.CollectionStats {
	t := &tally{stats: make(map[string]model.CollectionStats)}
	for _, c := range model.Collections {
		t.stats[c.Name] = model.CollectionStats{}
	}

	pipelines := []func(){
		func() {
			w.save(ctx, t, model.CollOverall, w.Normalizer.Overall(p.overall), crawlTime)
		},
		func() {
			for _, area := range p.areas {
				w.save(ctx, t, model.CollArea, w.Normalizer.Area(area), crawlTime)
				w.save(ctx, t, model.CollProvince, w.Normalizer.Province(area), crawlTime)
			}
		},
		func() {
			for _, country := range p.abroad {
				w.save(ctx, t, model.CollArea, w.Normalizer.Abroad(country), crawlTime)
			}
		},
		func() {
			for _, news := range p.newsChinese {
				w.save(ctx, t, model.CollNews, w.Normalizer.News(news), crawlTime)
			}
			for _, news := range p.newsEnglish {
				w.save(ctx, t, model.CollNews, w.Normalizer.News(news), crawlTime)
			}
		},
		func() {
			for _, rumor := range p.rumors {
				w.save(ctx, t, model.CollRumors, w.Normalizer.Rumor(rumor), crawlTime)
			}
		},
	}

	var wg sync.WaitGroup
	for _, run := range pipelines {
		wg.Add(1)
		go func(run func()) {
			defer wg.Done()
			run()
		}(run)
	}
	wg.Wait()

	return t.stats
}

// save 去重后插入一条记录；存储出错只记录日志，不影响其他记录
func (w *Worker) save(ctx context.Context, t *tally, collection string, n normalizer.Normalized, crawlTime int64) {
	dup, err := w.Dedup.IsDuplicate(ctx, collection, n.Identity)
	if err != nil {
		w.Log.Error("Failed to check duplicate",
			zap.String("collection", collection),
			zap.Error(err),
		)
		t.add(collection, metrics.ResultFailed)
		return
	}
	if dup {
		t.add(collection, metrics.ResultDuplicate)
		return
	}

	c, _ := model.LookupCollection(collection)
	doc := record.Set(record.Clone(n.Record), c.TimestampField, crawlTime)
	if err := w.Store.Insert(ctx, collection, doc); err != nil {
		w.Log.Error("Failed to insert document",
			zap.String("collection", collection),
			zap.Error(err),
		)
		t.add(collection, metrics.ResultFailed)
		return
	}
	t.add(collection, metrics.ResultInserted)
}
