// Package normalizer 把页面上的原始记录转换为入库格式。
//
// 每种记录都产出两部分：Identity 是去掉易变字段后的内容，作为去重时的精确匹配条件；
// Record 是最终写入的文档（不含抓取时间戳，由调度器在插入时加上）。
package normalizer

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"ncov-crawler/internal/crawler/metrics"
	"ncov-crawler/internal/crawler/namemap"
	"ncov-crawler/internal/crawler/record"
)

// UnmappedCity 无法确定英文名的城市统一使用该值
const UnmappedCity = "Area not defined"

const (
	undefinedCityName = "待明确地区"

	chinaName        = "中国"
	chinaEnglishName = "China"
	asiaName         = "亚洲"
	asiaEnglishName  = "Asia"
	chinaCountryType = 1
)

// 各类记录的易变字段：重复抓取时值会变化，不能参与去重
var (
	overallVolatile  = []string{"id", "createTime", "modifyTime", "imgUrl", "deleted"}
	provinceVolatile = []string{"id", "tags", "sort", "cities"}
	abroadVolatile   = []string{"id", "tags", "sort", "modifyTime", "createTime", "countryType", "provinceId", "cityName", "provinceShortName"}
	newsVolatile     = []string{"pubDateStr"}
	rumorVolatile    = []string{"score"}
)

var countRemarkReplacer = strings.NewReplacer(" 疑似", "，疑似", " 治愈", "，治愈", " 死亡", "，死亡")

type Normalized struct {
	Identity bson.D
	Record   bson.D
}

func newNormalized(identity bson.D) Normalized {
	return Normalized{Identity: identity, Record: record.Clone(identity)}
}

type Normalizer struct {
	Log  *zap.Logger
	Maps *namemap.Maps
}

func New(log *zap.Logger, maps *namemap.Maps) *Normalizer {
	return &Normalizer{Log: log, Maps: maps}
}

// Overall 全国概况
func (n *Normalizer) Overall(raw bson.D) Normalized {
	rec := record.Remove(raw, overallVolatile...)
	if remark, ok := record.String(rec, "countRemark"); ok {
		rec = record.Set(rec, "countRemark", CountRemark(remark))
	}
	return newNormalized(rec)
}

// Province 省级汇总，来自地区列表中的每一项（去掉城市明细）
func (n *Normalizer) Province(raw bson.D) Normalized {
	rec := stripSpacesIn(record.Remove(raw, provinceVolatile...), "comment")
	out := newNormalized(rec)

	shortName, _ := record.String(raw, "provinceShortName")
	out.Record = record.Set(out.Record, "provinceEnglishName", n.provinceEnglishName(shortName))

	country := chinaName
	if ct, ok := record.Int(raw, "countryType"); ok && ct != chinaCountryType {
		if name, ok := n.Maps.CountryType(ct); ok {
			country = name
		} else {
			n.unmapped("countryType", zap.Int64("countryType", ct))
		}
	}
	out.Record = record.Set(out.Record, "country", country)
	return out
}

// Area 国内各省及其城市明细。
// 城市带有额外的易变字段，去重时先摘掉，入库时再放回原位置。
func (n *Normalizer) Area(raw bson.D) Normalized {
	rec := stripSpacesIn(record.Clone(raw), "comment")
	cities, hasCities := record.Get(rec, "cities")

	out := Normalized{
		Identity: record.Remove(rec, "cities"),
		Record:   rec,
	}

	shortName, _ := record.String(rec, "provinceShortName")
	if hasCities {
		out.Record = record.Set(out.Record, "cities", n.cities(shortName, cities))
	}

	out.Record = record.Set(out.Record, "countryName", chinaName)
	out.Record = record.Set(out.Record, "countryEnglishName", chinaEnglishName)
	out.Record = record.Set(out.Record, "continentName", asiaName)
	out.Record = record.Set(out.Record, "continentEnglishName", asiaEnglishName)
	out.Record = record.Set(out.Record, "provinceEnglishName", n.provinceEnglishName(shortName))
	return out
}

func (n *Normalizer) cities(provinceShortName string, v any) any {
	arr, ok := v.(primitive.A)
	if !ok {
		return v
	}

	out := make(primitive.A, len(arr))
	for i, item := range arr {
		city, ok := item.(bson.D)
		if !ok {
			out[i] = item
			continue
		}
		name, _ := record.String(city, "cityName")
		out[i] = record.Set(record.Clone(city), "cityEnglishName", n.cityEnglishName(provinceShortName, name))
	}
	return out
}

func (n *Normalizer) cityEnglishName(provinceShortName, cityName string) string {
	if cityName == undefinedCityName {
		return UnmappedCity
	}
	if eng, ok := n.Maps.City(provinceShortName, cityName); ok {
		return eng
	}
	n.unmapped("city",
		zap.String("provinceShortName", provinceShortName),
		zap.String("cityName", cityName),
	)
	return UnmappedCity
}

// provinceEnglishName 未收录时返回 nil，写入 null
func (n *Normalizer) provinceEnglishName(shortName string) any {
	if eng, ok := n.Maps.Province(shortName); ok {
		return eng
	}
	n.unmapped("province", zap.String("provinceShortName", shortName))
	return nil
}

// Abroad 海外国家，整理成与 Area 相同的形状后写入 Area 集合。
// 上游字段时有时无，缺失任何字段都不是错误。
func (n *Normalizer) Abroad(raw bson.D) Normalized {
	rec := record.Remove(raw, abroadVolatile...)
	rec = stripSpacesIn(rec, "comment")
	rec = record.Rename(rec, "continents", "continentName")
	out := newNormalized(rec)

	var countryName any
	if name, ok := record.String(rec, "provinceName"); ok {
		countryName = name
	}
	out.Record = record.Set(out.Record, "countryName", countryName)
	out.Record = record.Set(out.Record, "provinceShortName", countryName)

	var continentEng any
	if continent, ok := record.String(rec, "continentName"); ok {
		if eng, ok := n.Maps.Continent(continent); ok {
			continentEng = eng
		} else {
			n.unmapped("continent", zap.String("continentName", continent))
		}
	}
	out.Record = record.Set(out.Record, "continentEnglishName", continentEng)

	var countryEng any
	if name, ok := countryName.(string); ok {
		if eng, ok := n.Maps.Country(name); ok {
			countryEng = eng
		} else {
			n.unmapped("country", zap.String("countryName", name))
		}
	}
	out.Record = record.Set(out.Record, "countryEnglishName", countryEng)
	out.Record = record.Set(out.Record, "provinceEnglishName", countryEng)
	return out
}

// News 中英文两路新闻共用
func (n *Normalizer) News(raw bson.D) Normalized {
	return newNormalized(record.Remove(raw, newsVolatile...))
}

func (n *Normalizer) Rumor(raw bson.D) Normalized {
	return newNormalized(stripSpacesIn(record.Remove(raw, rumorVolatile...), "body"))
}

func (n *Normalizer) unmapped(kind string, fields ...zap.Field) {
	metrics.UnmappedNames.WithLabelValues(kind).Inc()
	n.Log.Warn("Name not found in name map", append([]zap.Field{zap.String("kind", kind)}, fields...)...)
}

// CountRemark 统一概况说明的标点与空格
func CountRemark(s string) string {
	return StripSpaces(countRemarkReplacer.Replace(s))
}

// StripSpaces 去掉上游文本中的空格
func StripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func stripSpacesIn(d bson.D, key string) bson.D {
	if s, ok := record.String(d, key); ok {
		return record.Set(d, key, StripSpaces(s))
	}
	return d
}
