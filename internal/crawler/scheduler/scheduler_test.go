package scheduler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/model"
	"ncov-crawler/internal/crawler/namemap"
	"ncov-crawler/internal/crawler/normalizer"
	"ncov-crawler/internal/crawler/record"
	"ncov-crawler/internal/crawler/store"
)

type response struct {
	body []byte
	err  error
}

// fakeFetcher 依次返回预设响应，用完后一直返回 fallback
type fakeFetcher struct {
	mu        sync.Mutex
	responses []response
	fallback  response
	calls     int
}

func (f *fakeFetcher) Fetch(ctx context.Context, _ string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.responses) {
		return f.responses[i].body, f.responses[i].err
	}
	return f.fallback.body, f.fallback.err
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func loadPage(t *testing.T) []byte {
	t.Helper()
	body, err := os.ReadFile("../extractor/testdata/page.html")
	require.NoError(t, err)
	return body
}

// partialPage 去掉辟谣脚本的 id，只剩五段
func partialPage(t *testing.T) []byte {
	t.Helper()
	return bytes.Replace(loadPage(t), []byte(`id="getIndexRumorList"`), []byte(`id="somethingElse"`), 1)
}

func newTestWorker(fetcher PageFetcher, st store.Store, now func() time.Time) *Worker {
	log := zap.NewNop()
	w := NewWorker(log, fetcher, st, normalizer.New(log, namemap.Default()), nil)
	w.Interval = 10 * time.Millisecond
	w.RetryDelay = time.Millisecond
	if now != nil {
		w.Now = now
	}
	return w
}

func counts(m *store.Memory) map[string]int {
	out := make(map[string]int)
	for _, c := range model.Collections {
		out[c.Name] = m.Count(c.Name)
	}
	return out
}

var fullCounts = map[string]int{
	model.CollOverall:  1,
	model.CollProvince: 2,
	model.CollArea:     4,
	model.CollNews:     2,
	model.CollRumors:   1,
}

func TestRunOnceIsIdempotent(t *testing.T) {
	page := loadPage(t)
	mem := store.NewMemory()
	clock := time.UnixMilli(1580390000000)
	w := newTestWorker(&fakeFetcher{fallback: response{body: page}}, mem, func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	first, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Attempts)
	require.Equal(t, fullCounts, counts(mem))
	require.Equal(t, 10, first.Inserted())
	require.Zero(t, first.Duplicates())

	second, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, fullCounts, counts(mem))
	require.Zero(t, second.Inserted())
	require.Equal(t, 10, second.Duplicates())
	require.Greater(t, second.CrawlTime, first.CrawlTime)
}

func TestRunOnceSharesCrawlTime(t *testing.T) {
	mem := store.NewMemory()
	clock := time.UnixMilli(1580390000000)
	w := newTestWorker(&fakeFetcher{fallback: response{body: loadPage(t)}}, mem, func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	})

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)

	for _, c := range model.Collections {
		docs, err := mem.Latest(context.Background(), c.Name, c.TimestampField, 0)
		require.NoError(t, err)
		require.NotEmpty(t, docs, c.Name)
		for _, doc := range docs {
			ts, ok := record.Int(doc, c.TimestampField)
			require.True(t, ok, "%s missing %s", c.Name, c.TimestampField)
			require.Equal(t, summary.CrawlTime, ts)
		}
	}
}

func TestPartialPageIsNeverPersisted(t *testing.T) {
	mem := store.NewMemory()
	fetcher := &fakeFetcher{fallback: response{body: partialPage(t)}}
	w := newTestWorker(fetcher, mem, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := w.RunOnce(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Greater(t, fetcher.Calls(), 1)
	for name, n := range counts(mem) {
		require.Zero(t, n, name)
	}
}

func TestRunOnceRetriesUntilComplete(t *testing.T) {
	page := loadPage(t)
	mem := store.NewMemory()
	fetcher := &fakeFetcher{
		responses: []response{
			{body: partialPage(t)},
			{err: errors.New("connection reset by peer")},
			{body: []byte("<html><body>maintenance</body></html>")},
		},
		fallback: response{body: page},
	}
	w := newTestWorker(fetcher, mem, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, summary.Attempts)
	require.Equal(t, fullCounts, counts(mem))
}

func TestInvalidFragmentCountsAsMissing(t *testing.T) {
	broken := bytes.Replace(loadPage(t),
		[]byte(`window.getIndexRumorList = [`),
		[]byte(`window.getIndexRumorList = [nope, `), 1)

	mem := store.NewMemory()
	fetcher := &fakeFetcher{
		responses: []response{{body: broken}},
		fallback:  response{body: loadPage(t)},
	}
	w := newTestWorker(fetcher, mem, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Attempts)
	require.Equal(t, fullCounts, counts(mem))
}

// failingStore 对指定集合的插入返回错误
type failingStore struct {
	*store.Memory
	collection string
}

func (s failingStore) Insert(ctx context.Context, collection string, doc bson.D) error {
	if collection == s.collection {
		return errors.New("write concern error")
	}
	return s.Memory.Insert(ctx, collection, doc)
}

func TestInsertFailureDoesNotStopOtherRecords(t *testing.T) {
	mem := store.NewMemory()
	w := newTestWorker(&fakeFetcher{fallback: response{body: loadPage(t)}},
		failingStore{Memory: mem, collection: model.CollNews}, nil)

	summary, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Collections[model.CollNews].Failed)
	require.Zero(t, mem.Count(model.CollNews))
	require.Equal(t, 4, mem.Count(model.CollArea))
	require.Equal(t, 1, mem.Count(model.CollRumors))
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []model.Summary
}

func (n *recordingNotifier) CycleCompleted(_ context.Context, s model.Summary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, s)
	return nil
}

func (n *recordingNotifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.summaries)
}

func TestRunLoopsUntilCancelled(t *testing.T) {
	mem := store.NewMemory()
	fetcher := &fakeFetcher{fallback: response{body: loadPage(t)}}
	w := newTestWorker(fetcher, mem, nil)
	notifier := &recordingNotifier{}
	w.Notifier = notifier

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return notifier.Len() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	require.Equal(t, fullCounts, counts(mem))
}
