package model

// 集合名称
const (
	CollOverall  = "Overall"
	CollProvince = "Province"
	CollArea     = "Area"
	CollNews     = "News"
	CollRumors   = "Rumors"
)

// 抓取时间戳字段，只在插入时写入，不参与去重
const (
	FieldUpdateTime = "updateTime"
	FieldCrawlTime  = "crawlTime"
)

type Collection struct {
	Name           string
	TimestampField string
}

// Collections 所有集合及其时间戳字段
var Collections = []Collection{
	{Name: CollOverall, TimestampField: FieldUpdateTime},
	{Name: CollProvince, TimestampField: FieldCrawlTime},
	{Name: CollArea, TimestampField: FieldUpdateTime},
	{Name: CollNews, TimestampField: FieldCrawlTime},
	{Name: CollRumors, TimestampField: FieldCrawlTime},
}

// LookupCollection 按名称查找集合定义
func LookupCollection(name string) (Collection, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}
