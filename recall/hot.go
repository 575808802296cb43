package recall

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
)

// Hot 是热门召回源，用于冷启动用户（没有评分时 TF-IDF 画像为零向量）的兜底。
// - 如果配置了 Store 和 Key，从 Store 读取 JSON 数组形式的物品 ID 列表
// - 读取失败或为空时使用内存中的 IDs
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用
type Hot struct {
	Store core.Store
	Key   string  // 存储 key，例如 "hot:items"
	IDs   []int64 // fallback 内存列表
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	items, err := r.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	labelSource(items, r.Name())
	return items, nil
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	ids := r.loadIDs(ctx)
	if len(ids) == 0 {
		ids = r.IDs
	}

	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out, nil
}

func (r *Hot) loadIDs(ctx context.Context) []int64 {
	if r.Store == nil || r.Key == "" {
		return nil
	}
	data, err := r.Store.Get(ctx, r.Key)
	if err != nil {
		if !core.IsStoreNotFound(err) {
			logging.Warn().Err(err).Str("key", r.Key).Msg("recall.hot: read store failed, using fallback ids")
		}
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		logging.Warn().Err(err).Str("key", r.Key).Msg("recall.hot: malformed id list")
		return nil
	}
	return ids
}
