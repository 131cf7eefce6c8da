package model

import "time"

// CollectionStats 一轮抓取中某个集合的写入统计
type CollectionStats struct {
	Inserted   int `json:"inserted"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// Summary 一轮完整抓取的结果，发布到 NATS 并写入日志
type Summary struct {
	CrawlTime   int64                      `json:"crawlTime"` // 毫秒时间戳
	Attempts    int                        `json:"attempts"`
	Collections map[string]CollectionStats `json:"collections"`
	StartedAt   time.Time                  `json:"startedAt"`
	FinishedAt  time.Time                  `json:"finishedAt"`
}

func (s Summary) Inserted() int {
	n := 0
	for _, c := range s.Collections {
		n += c.Inserted
	}
	return n
}

func (s Summary) Duplicates() int {
	n := 0
	for _, c := range s.Collections {
		n += c.Duplicates
	}
	return n
}
