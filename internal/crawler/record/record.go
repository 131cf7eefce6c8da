// Package record 提供有序文档（bson.D）的解码与字段操作。
//
// 页面里的 JSON 片段按原始字段顺序解码为 bson.D：MongoDB 对嵌套文档的等值匹配
// 依赖字段顺序，使用 bson.M 会导致同一条记录在不同轮次生成不同的过滤条件。
package record

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DecodeObject 将一个 JSON 对象解码为有序文档
func DecodeObject(data []byte) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	return doc, nil
}

// DecodeList 将一个 JSON 数组解码为有序文档列表，数组元素必须都是对象
func DecodeList(data []byte) ([]bson.D, error) {
	// extended JSON 只接受顶层文档，包一层 items
	wrapped := make([]byte, 0, len(data)+10)
	wrapped = append(wrapped, `{"items":`...)
	wrapped = append(wrapped, data...)
	wrapped = append(wrapped, '}')

	var holder struct {
		Items []bson.D `bson:"items"`
	}
	if err := bson.UnmarshalExtJSON(wrapped, false, &holder); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return holder.Items, nil
}

// Clone 浅拷贝，返回的切片可以安全地追加和修改元素
func Clone(d bson.D) bson.D {
	out := make(bson.D, len(d))
	copy(out, d)
	return out
}

func Get(d bson.D, key string) (any, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func Has(d bson.D, key string) bool {
	_, ok := Get(d, key)
	return ok
}

func String(d bson.D, key string) (string, bool) {
	v, ok := Get(d, key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int 读取整数字段，兼容 int32/int64 以及整数值的 double
func Int(d bson.D, key string) (int64, bool) {
	v, ok := Get(d, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) {
			return int64(n), true
		}
	}
	return 0, false
}

// Remove 返回去掉指定字段后的新文档，不修改入参；不存在的字段直接忽略
func Remove(d bson.D, keys ...string) bson.D {
	out := make(bson.D, 0, len(d))
	for _, e := range d {
		if contains(keys, e.Key) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Set 字段存在时原位替换，否则追加到末尾
func Set(d bson.D, key string, value any) bson.D {
	for i := range d {
		if d[i].Key == key {
			d[i].Value = value
			return d
		}
	}
	return append(d, bson.E{Key: key, Value: value})
}

// Rename 原位改名；from 不存在时原样返回，to 已存在时被覆盖
func Rename(d bson.D, from, to string) bson.D {
	idx := -1
	for i := range d {
		if d[i].Key == from {
			idx = i
			break
		}
	}
	if idx < 0 {
		return d
	}
	value := d[idx].Value
	d = Remove(d, to)
	for i := range d {
		if d[i].Key == from {
			d[i] = bson.E{Key: to, Value: value}
			break
		}
	}
	return d
}

// Docs 把数组字段中的子文档取出来，非文档元素被跳过
func Docs(v any) []bson.D {
	arr, ok := v.(primitive.A)
	if !ok {
		if s, isSlice := v.([]any); isSlice {
			arr = s
		} else {
			return nil
		}
	}
	out := make([]bson.D, 0, len(arr))
	for _, item := range arr {
		if doc, ok := item.(bson.D); ok {
			out = append(out, doc)
		}
	}
	return out
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
