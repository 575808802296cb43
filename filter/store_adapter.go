package filter

import (
	"context"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的 ID 列表读取接口。
// 值格式为 JSON 数组，例如 [1, 2, 3]。
type StoreAdapter struct {
	store core.Store
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetIDs 读取 key 对应的物品 ID 列表；key 不存在时返回空列表。
func (a *StoreAdapter) GetIDs(ctx context.Context, key string) ([]int64, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetBlacklist 从 Store 读取全局黑名单。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]int64, error) {
	return a.GetIDs(ctx, key)
}

// GetUserBlocks 从 Store 读取用户拉黑列表，key 为 {keyPrefix}:{userID}。
func (a *StoreAdapter) GetUserBlocks(ctx context.Context, userID int64, keyPrefix string) ([]int64, error) {
	return a.GetIDs(ctx, keyPrefix+":"+strconv.FormatInt(userID, 10))
}
