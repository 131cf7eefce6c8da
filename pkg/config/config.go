package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath 默认配置文件路径，可用环境变量 NCOV_CONFIG 覆盖
const DefaultPath = "config/config.yaml"

type MongoConfig struct {
	Host       string `yaml:"host"`
	DBName     string `yaml:"dbname"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	AuthSource string `yaml:"authSource"`
}

type APIConfig struct {
	Address string `yaml:"address"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type LogConfig struct {
	Development bool `yaml:"development"`
}

type Config struct {
	Mongo MongoConfig `yaml:"mongo"`
	API   APIConfig   `yaml:"api"`
	NATS  NATSConfig  `yaml:"nats"`
	Log   LogConfig   `yaml:"log"`
}

// Path 返回实际使用的配置文件路径
func Path() string {
	if p := os.Getenv("NCOV_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "2019-nCoV"
	}
	if c.Mongo.AuthSource == "" && c.Mongo.Username != "" {
		c.Mongo.AuthSource = "admin"
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		c.NATS.Subject = "ncov.crawl.completed"
	}
}
