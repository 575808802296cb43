package recall

import (
	"context"
	"strings"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
)

// Source 表示一个可复用的召回源（TF-IDF/热门/...）。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// sourceLabel 由召回源名称得到 recall_source 的取值，例如 recall.tfidf -> tfidf。
func sourceLabel(name string) string {
	return strings.TrimPrefix(name, "recall.")
}

func labelSource(items []*core.Item, name string) {
	v := sourceLabel(name)
	for _, it := range items {
		if it != nil {
			it.PutLabel("recall_source", utils.Label{Value: v, Source: "recall"})
		}
	}
}
