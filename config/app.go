package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
	"github.com/rushteam/reckit-tfidf/store"
)

// AppConfig 是 tfidf-recommend 的应用配置（YAML）。
//
//	data:
//	  tags: data/movie-tags.csv
//	  ratings: data/ratings.csv
//	store:
//	  type: redis
//	  addr: 127.0.0.1:6379
//	  import: true
//	log:
//	  level: info
//	scoring:
//	  concurrency: 8
//	pipeline:
//	  name: tfidf
//	  nodes:
//	    - type: recall.tfidf
//	      config: {top_k: 100, exclude_rated: true}
//	    - type: rank.tfidf
//	    - type: rerank.topn
//	      config: {n: 10}
type AppConfig struct {
	Data     DataConfig      `yaml:"data"`
	Store    StoreConfig     `yaml:"store"`
	Log      logging.Config  `yaml:"log"`
	Scoring  ScoringConfig   `yaml:"scoring"`
	Pipeline pipeline.Config `yaml:"pipeline"`
}

// DataConfig 是 CSV 数据源路径。
type DataConfig struct {
	TagsPath    string `yaml:"tags"`
	RatingsPath string `yaml:"ratings"`
}

// StoreConfig 是存储配置：模型与（可选）标签/评分数据的持久化位置。
type StoreConfig struct {
	store.Config `yaml:",inline"`

	KeyPrefix string `yaml:"key_prefix"` // DAO key 前缀
	ModelKey  string `yaml:"model_key"`  // 模型 key
	TTL       int    `yaml:"ttl"`        // 秒，0 表示不过期

	// Import 为 true 时把 CSV 数据导入 Store，打分时经由 StoreDAO 读取
	Import bool `yaml:"import"`
}

// ScoringConfig 是打分相关配置。
type ScoringConfig struct {
	Concurrency int `yaml:"concurrency"` // 批量打分并发数
	TopK        int `yaml:"top_k"`       // 默认推荐数
}

// Default 返回默认配置：内存存储，TF-IDF 召回 + 排序 + Top10。
func Default() *AppConfig {
	return &AppConfig{
		Data: DataConfig{
			TagsPath:    "data/movie-tags.csv",
			RatingsPath: "data/ratings.csv",
		},
		Store: StoreConfig{
			Config:    store.Config{Type: "memory"},
			KeyPrefix: "tfidf",
			ModelKey:  "tfidf:model",
		},
		Log:     logging.Config{Level: "info", Format: "console"},
		Scoring: ScoringConfig{Concurrency: 8, TopK: 10},
		Pipeline: pipeline.Config{
			Name: "tfidf",
			Nodes: []pipeline.NodeConfig{
				{Type: "recall.tfidf", Config: map[string]any{"top_k": 100, "exclude_rated": true}},
				{Type: "rank.tfidf"},
				{Type: "rerank.topn", Config: map[string]any{"n": 10}},
			},
		},
	}
}

// Load 读取 YAML 配置，未设置的字段保留 Default() 的值。
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	pipelineDefault := cfg.Pipeline
	cfg.Pipeline = pipeline.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		cfg.Pipeline = pipelineDefault
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置。
func (c *AppConfig) Validate() error {
	if c.Data.TagsPath == "" {
		return fmt.Errorf("config: data.tags is required")
	}
	if c.Data.RatingsPath == "" {
		return fmt.Errorf("config: data.ratings is required")
	}
	if c.Store.ModelKey == "" {
		return fmt.Errorf("config: store.model_key is required")
	}
	if c.Scoring.Concurrency < 0 {
		return fmt.Errorf("config: scoring.concurrency must be >= 0")
	}
	return ValidatePipelineConfig(&c.Pipeline)
}
