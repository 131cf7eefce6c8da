package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ncov-crawler/pkg/config"
)

// Index 需要在某个集合上建立的单字段倒序索引
type Index struct {
	Collection string
	Field      string
}

type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect 连接 MongoDB 并确保索引存在
func Connect(ctx context.Context, cfg config.MongoConfig, indexes []Index) (*Mongo, error) {
	clientOpts := options.Client().ApplyURI("mongodb://" + cfg.Host)
	if cfg.Username != "" {
		clientOpts.SetAuth(options.Credential{
			Username:   cfg.Username,
			Password:   cfg.Password,
			AuthSource: cfg.AuthSource,
		})
	}

	cli, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err = cli.Ping(ctx, nil); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Mongo{
		Client: cli,
		DB:     cli.Database(cfg.DBName),
	}
	if err := s.ensureIndexes(ctx, indexes); err != nil {
		_ = cli.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// ensureIndexes 按抓取时间建立倒序索引，供只读 API 取最新记录
func (s *Mongo) ensureIndexes(ctx context.Context, indexes []Index) error {
	for _, idx := range indexes {
		_, err := s.DB.Collection(idx.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: idx.Field, Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("create index %s.%s: %w", idx.Collection, idx.Field, err)
		}
	}
	return nil
}

func (s *Mongo) FindOne(ctx context.Context, collection string, filter bson.D) (bson.D, error) {
	var doc bson.D
	err := s.DB.Collection(collection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find one in %s: %w", collection, err)
	}
	return doc, nil
}

func (s *Mongo) Insert(ctx context.Context, collection string, doc bson.D) error {
	if _, err := s.DB.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Mongo) Latest(ctx context.Context, collection, sortField string, limit int) ([]bson.D, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetLimit(int64(limit))

	cur, err := s.DB.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer func(cur *mongo.Cursor, ctx context.Context) {
		_ = cur.Close(ctx)
	}(cur, ctx)

	var out []bson.D
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return out, nil
}

func (s *Mongo) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *Mongo) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}
