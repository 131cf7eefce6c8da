package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// exerciseBackend 两种存储实现共用的行为测试
func exerciseBackend(t *testing.T, b Backend) {
	ctx := context.Background()
	const coll = "Area"

	_, err := b.FindOne(ctx, coll, bson.D{{Key: "provinceName", Value: "湖北省"}})
	require.ErrorIs(t, err, ErrNotFound)

	hubei := bson.D{
		{Key: "provinceName", Value: "湖北省"},
		{Key: "confirmedCount", Value: int32(100)},
		{Key: "stats", Value: bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}}},
		{Key: "tags", Value: primitive.A{"一", "二"}},
		{Key: "updateTime", Value: int64(1000)},
	}
	require.NoError(t, b.Insert(ctx, coll, hubei))
	require.NoError(t, b.Insert(ctx, coll, bson.D{
		{Key: "provinceName", Value: "广东省"},
		{Key: "confirmedCount", Value: int32(5)},
		{Key: "updateTime", Value: int64(2000)},
	}))

	// 过滤条件只约束给定字段，存储中多出的 updateTime 不影响匹配
	doc, err := b.FindOne(ctx, coll, bson.D{
		{Key: "provinceName", Value: "湖北省"},
		{Key: "confirmedCount", Value: int32(100)},
		{Key: "stats", Value: bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}}},
		{Key: "tags", Value: primitive.A{"一", "二"}},
	})
	require.NoError(t, err)
	name, _ := lookup(doc, "provinceName")
	require.Equal(t, "湖北省", name)

	// int64 与 int32 数值相等即匹配
	_, err = b.FindOne(ctx, coll, bson.D{{Key: "confirmedCount", Value: int64(100)}})
	require.NoError(t, err)

	_, err = b.FindOne(ctx, coll, bson.D{
		{Key: "provinceName", Value: "湖北省"},
		{Key: "confirmedCount", Value: int32(101)},
	})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = b.FindOne(ctx, coll, bson.D{
		{Key: "stats", Value: bson.D{{Key: "a", Value: int32(2)}, {Key: "b", Value: "x"}}},
	})
	require.ErrorIs(t, err, ErrNotFound)

	// null 匹配缺失字段
	_, err = b.FindOne(ctx, coll, bson.D{
		{Key: "provinceName", Value: "广东省"},
		{Key: "stats", Value: nil},
	})
	require.NoError(t, err)
	_, err = b.FindOne(ctx, coll, bson.D{
		{Key: "provinceName", Value: "湖北省"},
		{Key: "stats", Value: nil},
	})
	require.ErrorIs(t, err, ErrNotFound)

	// 数组字段包含该元素即匹配
	_, err = b.FindOne(ctx, coll, bson.D{{Key: "tags", Value: "二"}})
	require.NoError(t, err)

	_, err = b.FindOne(ctx, "Other", bson.D{{Key: "provinceName", Value: "湖北省"}})
	require.ErrorIs(t, err, ErrNotFound)

	latest, err := b.Latest(ctx, coll, "updateTime", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	name, _ = lookup(latest[0], "provinceName")
	require.Equal(t, "广东省", name)

	latest, err = b.Latest(ctx, coll, "updateTime", 10)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	require.NoError(t, b.Ping(ctx))
}

func TestMemoryBackend(t *testing.T) {
	exerciseBackend(t, NewMemory())
}

func TestMemoryInsertAssignsID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	src := bson.D{{Key: "a", Value: 1}}
	require.NoError(t, m.Insert(ctx, "c", src))
	require.Len(t, src, 1)

	doc, err := m.FindOne(ctx, "c", bson.D{{Key: "a", Value: 1}})
	require.NoError(t, err)
	require.Equal(t, "_id", doc[0].Key)
	require.IsType(t, primitive.ObjectID{}, doc[0].Value)
	require.Equal(t, 1, m.Count("c"))

	require.NoError(t, m.Insert(ctx, "c", bson.D{{Key: "_id", Value: "fixed"}}))
	doc, err = m.FindOne(ctx, "c", bson.D{{Key: "_id", Value: "fixed"}})
	require.NoError(t, err)
	require.Len(t, doc, 1)
	require.NoError(t, m.Close(ctx))
}

func TestMemoryLatestKeepsInsertOrderForTies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.Insert(ctx, "News", bson.D{
			{Key: "title", Value: name},
			{Key: "crawlTime", Value: int64(1)},
		}))
	}

	docs, err := m.Latest(ctx, "News", "crawlTime", 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	title, _ := lookup(docs[0], "title")
	require.Equal(t, "c", title)
}
