// Package store 提供 core.Store 的实现：MemoryStore（测试/开发/CLI）与 RedisStore（生产）。
//
// 注意：此包只包含实现，接口定义在 core 包。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	_ = tfidf.SaveModel(ctx, s, "tfidf:model", model)
package store

import (
	"fmt"

	"github.com/rushteam/reckit-tfidf/core"
)

// Config 是存储后端配置。
type Config struct {
	Type     string `yaml:"type"`     // memory / redis
	Addr     string `yaml:"addr"`     // redis 地址
	Password string `yaml:"password"` // redis 密码
	DB       int    `yaml:"db"`       // redis DB
}

// New 根据配置创建存储后端，Type 为空时使用 memory。
func New(cfg Config) (core.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		rs, err := NewRedisStore(cfg.Addr, cfg.Password, cfg.DB)
		if err != nil {
			return nil, err
		}
		return rs, nil
	default:
		return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeNotSupported,
			fmt.Sprintf("store: unknown type %q", cfg.Type))
	}
}
