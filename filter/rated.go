package filter

import (
	"context"

	"github.com/rushteam/reckit-tfidf/core"
)

// ratedItemsParam 是 RatedFilter 在 RecommendContext.Params 中缓存已评分集合的 key。
const ratedItemsParam = "filter.rated_items"

// RatedFilter 过滤掉用户已经评过分的物品（撤回的评分不算）。
// 优先使用 rctx.User.RatedItems；没有用户画像时从 Events 读取评分，并缓存在 rctx.Params 中。
type RatedFilter struct {
	Events core.UserEventDAO
}

func NewRatedFilter(events core.UserEventDAO) *RatedFilter {
	return &RatedFilter{Events: events}
}

func (f *RatedFilter) Name() string {
	return "filter.rated"
}

func (f *RatedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil {
		return false, nil
	}
	rated, err := f.ratedItems(ctx, rctx)
	if err != nil {
		return false, err
	}
	_, ok := rated[item.ID]
	return ok, nil
}

func (f *RatedFilter) ratedItems(ctx context.Context, rctx *core.RecommendContext) (map[int64]struct{}, error) {
	if rctx.User != nil {
		return rctx.User.RatedItems, nil
	}
	if cached, ok := rctx.Params[ratedItemsParam].(map[int64]struct{}); ok {
		return cached, nil
	}
	if f.Events == nil {
		return nil, nil
	}

	ratings, err := f.Events.GetRatings(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	rated := make(map[int64]struct{}, len(ratings))
	for _, r := range ratings {
		if r.HasPreference() {
			rated[r.ItemID] = struct{}{}
		}
	}
	if rctx.Params == nil {
		rctx.Params = make(map[string]any)
	}
	rctx.Params[ratedItemsParam] = rated
	return rated, nil
}
