// Package namemap 保存国家、省份、城市、大洲的中英文名称对照表
package namemap

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed namemap.yaml
var defaultData []byte

// Province 省级名称以及下属城市的中英文对照
type Province struct {
	EngName string            `yaml:"engName"`
	Cities  map[string]string `yaml:"cities"`
}

type Maps struct {
	CountryTypes map[int]string      `yaml:"countryTypes"`
	Continents   map[string]string   `yaml:"continents"`
	Countries    map[string]string   `yaml:"countries"`
	Provinces    map[string]Province `yaml:"provinces"`
}

var (
	defaultOnce sync.Once
	defaultMaps *Maps
)

// Default 返回内置对照表，只解析一次
func Default() *Maps {
	defaultOnce.Do(func() {
		m, err := Parse(defaultData)
		if err != nil {
			panic(err)
		}
		defaultMaps = m
	})
	return defaultMaps
}

func Parse(data []byte) (*Maps, error) {
	var m Maps
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse name maps: %w", err)
	}
	return &m, nil
}

// CountryType countryType 编码 -> 国家中文名
func (m *Maps) CountryType(code int64) (string, bool) {
	name, ok := m.CountryTypes[int(code)]
	return name, ok
}

func (m *Maps) Continent(name string) (string, bool) {
	eng, ok := m.Continents[name]
	return eng, ok
}

func (m *Maps) Country(name string) (string, bool) {
	eng, ok := m.Countries[name]
	return eng, ok
}

func (m *Maps) Province(shortName string) (string, bool) {
	p, ok := m.Provinces[shortName]
	if !ok || p.EngName == "" {
		return "", false
	}
	return p.EngName, true
}

func (m *Maps) City(provinceShortName, cityName string) (string, bool) {
	p, ok := m.Provinces[provinceShortName]
	if !ok {
		return "", false
	}
	eng, ok := p.Cities[cityName]
	return eng, ok
}
