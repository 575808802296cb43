package filter

import (
	"context"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	filteredCount := 0

	for _, item := range items {
		if item == nil {
			continue
		}

		filterReason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时记录但不中断流程
				logging.Debug().Err(err).Str("filter", f.Name()).Int64("item", item.ID).Msg("filter error")
				continue
			}
			if ok {
				filterReason = f.Name()
				break
			}
		}

		if filterReason != "" {
			filteredCount++
			item.PutLabel("filtered", utils.Label{
				Value:  "true",
				Source: filterReason,
			})
			continue
		}

		out = append(out, item)
	}

	if filteredCount > 0 {
		logging.Debug().Int("filtered", filteredCount).Int("kept", len(out)).Msg("filter node done")
	}
	return out, nil
}
