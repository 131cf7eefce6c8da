// Package extractor 从疫情页面的内嵌脚本中切出六段 JSON 数据
package extractor

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Shape int

const (
	// Object 以 Lead 开头的一个 JSON 对象
	Object Shape = iota
	// List 第一个 JSON 数组
	List
)

type Name string

const (
	Overall     Name = "overall"
	Area        Name = "area"
	Abroad      Name = "abroad"
	NewsChinese Name = "news_zh"
	NewsEnglish Name = "news_en"
	Rumors      Name = "rumors"
)

type Fragment struct {
	Name     Name
	ScriptID string
	Shape    Shape
	// Lead 片段的起始标记
	Lead string
}

// Fragments 页面上需要提取的全部片段，顺序即处理顺序
var Fragments = []Fragment{
	{Name: Overall, ScriptID: "getStatisticsService", Shape: Object, Lead: `{"id"`},
	{Name: Area, ScriptID: "getAreaStat", Shape: List, Lead: "["},
	{Name: Abroad, ScriptID: "getListByCountryTypeService2true", Shape: List, Lead: "["},
	{Name: NewsChinese, ScriptID: "getTimelineService1", Shape: List, Lead: "["},
	{Name: NewsEnglish, ScriptID: "getTimelineService2", Shape: List, Lead: "["},
	{Name: Rumors, ScriptID: "getIndexRumorList", Shape: List, Lead: "["},
}

var (
	ErrScriptNotFound = errors.New("script not found")
	ErrNoFragment     = errors.New("fragment start not found")
	ErrUnbalanced     = errors.New("unbalanced fragment")
)

// Result 一次提取的结果；每段独立成功或失败
type Result struct {
	Fragments map[Name][]byte
	Errors    map[Name]error
}

func (r Result) Get(name Name) ([]byte, bool) {
	b, ok := r.Fragments[name]
	return b, ok
}

// Missing 返回未能提取的片段名，按 Fragments 顺序
func (r Result) Missing() []Name {
	var out []Name
	for _, f := range Fragments {
		if _, ok := r.Fragments[f.Name]; !ok {
			out = append(out, f.Name)
		}
	}
	return out
}

// Complete 六段全部提取成功
func (r Result) Complete() bool {
	return len(r.Missing()) == 0
}

// Drop 将某段标记为失败（例如 JSON 无法解码）
func (r Result) Drop(name Name, err error) {
	delete(r.Fragments, name)
	r.Errors[name] = err
}

// Extract 解析页面并提取所有片段；页面无法解析时所有片段都记为失败
func Extract(body []byte) Result {
	res := Result{
		Fragments: make(map[Name][]byte, len(Fragments)),
		Errors:    make(map[Name]error),
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		for _, f := range Fragments {
			res.Errors[f.Name] = err
		}
		return res
	}

	for _, f := range Fragments {
		text, err := extractOne(doc, f)
		if err != nil {
			res.Errors[f.Name] = err
			continue
		}
		res.Fragments[f.Name] = []byte(text)
	}
	return res
}

func extractOne(doc *goquery.Document, f Fragment) (string, error) {
	script := doc.Find("script").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("id", "") == f.ScriptID
	}).First()
	if script.Length() == 0 {
		return "", ErrScriptNotFound
	}

	text := script.Text()
	start := strings.Index(text, f.Lead)
	if start < 0 {
		return "", ErrNoFragment
	}

	left, right := byte('{'), byte('}')
	if f.Shape == List {
		left, right = '[', ']'
	}
	return ScanBalanced(text, start, left, right)
}

// ScanBalanced 从 start 处的开括号开始，返回与之配对的完整片段。
// 字符串内的括号和转义字符不参与计数。
func ScanBalanced(text string, start int, left, right byte) (string, error) {
	if start < 0 || start >= len(text) || text[start] != left {
		return "", ErrNoFragment
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case left:
			depth++
		case right:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrUnbalanced
}
