package store

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory 进程内存储，用于未配置 MongoDB 时的试运行以及测试。
// 查询语义与 MongoDB 的等值过滤保持一致：过滤条件中的每个字段都必须相等，
// 文档中多出的字段不影响匹配；过滤值为 null 时匹配缺失或为 null 的字段。
type Memory struct {
	mu    sync.RWMutex
	colls map[string][]bson.D
}

func NewMemory() *Memory {
	return &Memory{colls: make(map[string][]bson.D)}
}

func (m *Memory) FindOne(_ context.Context, collection string, filter bson.D) (bson.D, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, doc := range m.colls[collection] {
		if matches(doc, filter) {
			return doc, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) Insert(_ context.Context, collection string, doc bson.D) error {
	stored := make(bson.D, 0, len(doc)+1)
	if _, ok := lookup(doc, "_id"); !ok {
		stored = append(stored, bson.E{Key: "_id", Value: primitive.NewObjectID()})
	}
	stored = append(stored, doc...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.colls[collection] = append(m.colls[collection], stored)
	return nil
}

func (m *Memory) Latest(_ context.Context, collection, sortField string, limit int) ([]bson.D, error) {
	m.mu.RLock()
	docs := make([]bson.D, len(m.colls[collection]))
	copy(docs, m.colls[collection])
	m.mu.RUnlock()

	// 同一时间戳保持插入顺序的倒序
	for i, j := 0, len(docs)-1; i < j; i, j = i+1, j-1 {
		docs[i], docs[j] = docs[j], docs[i]
	}
	sort.SliceStable(docs, func(i, j int) bool {
		a, _ := lookup(docs[i], sortField)
		b, _ := lookup(docs[j], sortField)
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa > fb
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Count 返回集合中的文档数
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.colls[collection])
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }

func matches(doc, filter bson.D) bool {
	for _, cond := range filter {
		v, ok := lookup(doc, cond.Key)
		if cond.Value == nil {
			if ok && v != nil {
				return false
			}
			continue
		}
		if !ok || !valueEqual(v, cond.Value) {
			return false
		}
	}
	return true
}

func valueEqual(stored, want any) bool {
	if a, ok := toFloat(stored); ok {
		if b, ok := toFloat(want); ok {
			return a == b
		}
	}
	if reflect.DeepEqual(stored, want) {
		return true
	}
	// 数组字段：任一元素相等即匹配
	if arr, ok := stored.(primitive.A); ok {
		if _, wantArr := want.(primitive.A); !wantArr {
			for _, item := range arr {
				if valueEqual(item, want) {
					return true
				}
			}
		}
	}
	return false
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
