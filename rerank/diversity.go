package rerank

import (
	"context"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
)

// Diversity 是多样性 ReRank：同一类别最多保留 MaxPerKey 个物品，超出的后移到列表末尾。
// 类别来源优先级：
// - label[LabelKey].Value（默认 "top_tag"，由 rank.tfidf 写入）
// - meta[LabelKey] (string)
// 没有类别的物品不受限制。
type Diversity struct {
	LabelKey  string
	MaxPerKey int // 默认 1

	// Drop 为 true 时直接丢弃超出的物品，而不是后移
	Drop bool
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "top_tag"
	}
	limit := n.MaxPerKey
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))
	var overflow []*core.Item

	for _, it := range items {
		if it == nil {
			continue
		}
		cate := category(it, key)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= limit {
			overflow = append(overflow, it)
			continue
		}
		seen[cate]++
		out = append(out, it)
	}

	if n.Drop {
		return out, nil
	}
	return append(out, overflow...), nil
}

func category(it *core.Item, key string) string {
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if v, ok := it.Meta[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
