package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/reckit-tfidf/pipeline"
)

// 除内置 Node 外，业务可以在 init 中调用 Register 注册自定义 Node，
// NewFactory 会把它们一并加入工厂。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	customBuilders   = make(map[string]NodeBuilder)
	customBuildersMu sync.RWMutex
)

// builtinTypes 是 NewFactory 内置注册的 Node 类型。
var builtinTypes = []string{
	"recall.tfidf",
	"recall.hot",
	"recall.fanout",
	"filter",
	"rank.tfidf",
	"rerank.topn",
	"rerank.diversity",
}

// Register 注册一种自定义 Node 的构建逻辑；与内置类型同名时覆盖内置实现。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	customBuildersMu.Lock()
	defer customBuildersMu.Unlock()
	customBuilders[typeName] = builder
}

// SupportedTypes 返回内置与已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	customBuildersMu.RLock()
	defer customBuildersMu.RUnlock()
	set := make(map[string]struct{}, len(builtinTypes)+len(customBuilders))
	for _, t := range builtinTypes {
		set[t] = struct{}{}
	}
	for t := range customBuilders {
		set[t] = struct{}{}
	}
	types := make([]string, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func registerCustom(f *pipeline.NodeFactory) {
	customBuildersMu.RLock()
	defer customBuildersMu.RUnlock()
	for typeName, builder := range customBuilders {
		f.Register(typeName, builder)
	}
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均受支持；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	for i, nc := range cfg.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("pipeline node #%d: type is required", i)
		}
		idx := sort.SearchStrings(supported, nc.Type)
		if idx == len(supported) || supported[idx] != nc.Type {
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}
