package recall

import (
	"context"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并合并结果。
// 支持超时、限流、优先级合并策略。
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy // 为 nil 时使用 FirstMergeStrategy
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	// 每个召回源写自己的槽位，合并时按 Sources 顺序拼接，结果与完成顺序无关
	results := make([][]*core.Item, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				// 超时或错误时返回空结果，不中断其他召回源
				logging.Warn().Err(err).Str("source", src.Name()).Msg("recall source failed")
				return nil
			}

			// 记录召回来源 label，方便 explain / 观测
			labelSource(items, src.Name())
			for _, it := range items {
				if it != nil {
					it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(i), Source: "recall"})
				}
			}
			results[i] = items
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	strategy := n.MergeStrategy
	if strategy == nil {
		strategy = &FirstMergeStrategy{}
	}
	return strategy.Merge(results, n.Dedup), nil
}

// MergeStrategy 定义多路召回结果的合并方式。results 按召回源优先级（Sources 顺序）排列。
type MergeStrategy interface {
	Merge(results [][]*core.Item, dedup bool) []*core.Item
}

// FirstMergeStrategy 按 ID 去重，保留第一个出现的，后出现的 labels 合并到已保留的物品上。
type FirstMergeStrategy struct{}

func (FirstMergeStrategy) Merge(results [][]*core.Item, dedup bool) []*core.Item {
	all := flatten(results)
	if !dedup {
		return all
	}
	seen := make(map[int64]*core.Item, len(all))
	out := make([]*core.Item, 0, len(all))
	for _, it := range all {
		if old, ok := seen[it.ID]; ok {
			for k, v := range it.Labels {
				old.PutLabel(k, v)
			}
			continue
		}
		seen[it.ID] = it
		out = append(out, it)
	}
	return out
}

// UnionMergeStrategy 合并所有结果，不去重（用于需要保留所有来源的场景）。
type UnionMergeStrategy struct{}

func (UnionMergeStrategy) Merge(results [][]*core.Item, _ bool) []*core.Item {
	return flatten(results)
}

// PriorityMergeStrategy 相同 ID 时保留优先级更高的召回源的物品，
// 输出按召回源优先级、再按分数降序排列。
type PriorityMergeStrategy struct{}

func (PriorityMergeStrategy) Merge(results [][]*core.Item, dedup bool) []*core.Item {
	type ranked struct {
		item     *core.Item
		priority int
	}
	var all []ranked
	seen := make(map[int64]struct{})
	for p, items := range results {
		for _, it := range items {
			if it == nil {
				continue
			}
			if dedup {
				if _, ok := seen[it.ID]; ok {
					continue
				}
				seen[it.ID] = struct{}{}
			}
			all = append(all, ranked{item: it, priority: p})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].priority != all[j].priority {
			return all[i].priority < all[j].priority
		}
		return all[i].item.Score > all[j].item.Score
	})
	out := make([]*core.Item, len(all))
	for i, r := range all {
		out[i] = r.item
	}
	return out
}

func flatten(results [][]*core.Item) []*core.Item {
	var out []*core.Item
	for _, items := range results {
		for _, it := range items {
			if it != nil {
				out = append(out, it)
			}
		}
	}
	return out
}
