package core

import "time"

// RecallConfig 是召回/打分相关的配置接口，用于提供默认值。
type RecallConfig interface {
	// DefaultTopKItems 返回默认的 TopK 物品数
	DefaultTopKItems() int

	// DefaultConcurrency 返回批量打分的默认并发数
	DefaultConcurrency() int

	// DefaultTimeout 返回默认的超时时间
	DefaultTimeout() time.Duration
}

// DefaultRecallConfig 是默认的召回配置实现。
type DefaultRecallConfig struct{}

func (c *DefaultRecallConfig) DefaultTopKItems() int {
	return 20
}

func (c *DefaultRecallConfig) DefaultConcurrency() int {
	return 8
}

func (c *DefaultRecallConfig) DefaultTimeout() time.Duration {
	return 5 * time.Second
}

var _ RecallConfig = (*DefaultRecallConfig)(nil)
