// Package store 是爬虫的持久化层：按内容查找一条文档、插入一条文档。
// 存储只增不改，任何已写入的记录都不会被更新或删除。
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

var ErrNotFound = errors.New("store: document not found")

// Finder 按过滤条件精确匹配一条文档，无匹配时返回 ErrNotFound
type Finder interface {
	FindOne(ctx context.Context, collection string, filter bson.D) (bson.D, error)
}

type Inserter interface {
	Insert(ctx context.Context, collection string, doc bson.D) error
}

// Store 爬虫流水线依赖的最小接口
type Store interface {
	Finder
	Inserter
}

// Reader 供只读 API 使用
type Reader interface {
	// Latest 按 sortField 倒序返回最多 limit 条文档
	Latest(ctx context.Context, collection, sortField string, limit int) ([]bson.D, error)
	Ping(ctx context.Context) error
}

// Backend 同时具备读写能力的存储实现
type Backend interface {
	Store
	Reader
	Close(ctx context.Context) error
}
