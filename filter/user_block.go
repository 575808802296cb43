package filter

import (
	"context"
	"slices"

	"github.com/rushteam/reckit-tfidf/core"
)

// UserBlockFilter 是用户拉黑过滤器，过滤掉用户拉黑的物品。
type UserBlockFilter struct {
	// Store 用于从存储中读取用户拉黑列表
	Store UserBlockStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{UserID}
	KeyPrefix string
}

// UserBlockStore 是用户拉黑存储接口。
type UserBlockStore interface {
	GetUserBlocks(ctx context.Context, userID int64, keyPrefix string) ([]int64, error)
}

// NewUserBlockFilter 创建一个用户拉黑过滤器。
func NewUserBlockFilter(storeAdapter *StoreAdapter, keyPrefix string) *UserBlockFilter {
	var store UserBlockStore
	if storeAdapter != nil {
		store = storeAdapter
	}
	if keyPrefix == "" {
		keyPrefix = "user:block"
	}
	return &UserBlockFilter{
		Store:     store,
		KeyPrefix: keyPrefix,
	}
}

func (f *UserBlockFilter) Name() string {
	return "filter.user_block"
}

func (f *UserBlockFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Store == nil || rctx == nil {
		return false, nil
	}

	blocks, err := f.Store.GetUserBlocks(ctx, rctx.UserID, f.KeyPrefix)
	if err != nil {
		return false, err
	}
	return slices.Contains(blocks, item.ID), nil
}
