// Package dedup 按内容判断记录是否已经入库
package dedup

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"

	"ncov-crawler/internal/crawler/store"
)

type Deduplicator struct {
	Store store.Finder
}

func New(finder store.Finder) *Deduplicator {
	return &Deduplicator{Store: finder}
}

// IsDuplicate 以去重条件精确查询，命中即视为已存在。
// 查询出错时返回错误，由调用方决定跳过该条记录。
func (d *Deduplicator) IsDuplicate(ctx context.Context, collection string, identity bson.D) (bool, error) {
	_, err := d.Store.FindOne(ctx, collection, identity)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
