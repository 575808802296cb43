package dao

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
)

// StoreDAO 是基于 core.Store 接口的数据源适配器，从 Redis / 内存等存储读取标签与评分。
//
// key 布局（值均为 JSON）：
//
//	{KeyPrefix}:items                物品 ID 列表      []int64
//	{KeyPrefix}:tags                 标签词表          []string
//	{KeyPrefix}:item:{itemID}:tags   物品标签          []string
//	{KeyPrefix}:user:{userID}:ratings 用户评分          []core.Rating
type StoreDAO struct {
	store core.Store

	KeyPrefix string
}

// NewStoreDAO 创建一个基于 core.Store 的数据源。
func NewStoreDAO(s core.Store, keyPrefix string) *StoreDAO {
	if keyPrefix == "" {
		keyPrefix = "tfidf"
	}
	return &StoreDAO{store: s, KeyPrefix: keyPrefix}
}

func (a *StoreDAO) itemsKey() string { return a.KeyPrefix + ":items" }
func (a *StoreDAO) tagsKey() string  { return a.KeyPrefix + ":tags" }

func (a *StoreDAO) itemTagsKey(itemID int64) string {
	return a.KeyPrefix + ":item:" + strconv.FormatInt(itemID, 10) + ":tags"
}

func (a *StoreDAO) ratingsKey(userID int64) string {
	return a.KeyPrefix + ":user:" + strconv.FormatInt(userID, 10) + ":ratings"
}

// getJSON 读取并解码；key 不存在时保持 out 不变并返回 nil。
func (a *StoreDAO) getJSON(ctx context.Context, key string, out any) error {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil
		}
		return fmt.Errorf("dao: get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("dao: decode %s: %w", key, err)
	}
	return nil
}

func (a *StoreDAO) GetItemIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := a.getJSON(ctx, a.itemsKey(), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (a *StoreDAO) GetItemTags(ctx context.Context, itemID int64) ([]string, error) {
	tags := []string{}
	if err := a.getJSON(ctx, a.itemTagsKey(itemID), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func (a *StoreDAO) GetTagVocabulary(ctx context.Context) ([]string, error) {
	vocab := []string{}
	if err := a.getJSON(ctx, a.tagsKey(), &vocab); err != nil {
		return nil, err
	}
	return vocab, nil
}

// GetRatings 不存在的用户返回空列表。
func (a *StoreDAO) GetRatings(ctx context.Context, userID int64) ([]core.Rating, error) {
	ratings := []core.Rating{}
	if err := a.getJSON(ctx, a.ratingsKey(userID), &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// ImportSource 是可整体导出的数据源，MemoryDAO 实现了该接口。
type ImportSource interface {
	core.ItemTagDAO
	core.UserEventDAO

	// UserIDs 返回有评分记录的用户
	UserIDs() []int64
}

// Import 把 src 的全部数据写入 Store（一次 BatchSet），返回写入的 key 数。
// 读取 src 任一部分失败时不写入任何 key。
func (a *StoreDAO) Import(ctx context.Context, src ImportSource, ttl ...int) (int, error) {
	kvs := make(map[string][]byte)
	put := func(key string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("dao: encode %s: %w", key, err)
		}
		kvs[key] = data
		return nil
	}

	items, err := src.GetItemIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("dao: import item ids: %w", err)
	}
	if err := put(a.itemsKey(), items); err != nil {
		return 0, err
	}
	vocab, err := src.GetTagVocabulary(ctx)
	if err != nil {
		return 0, fmt.Errorf("dao: import tag vocabulary: %w", err)
	}
	if err := put(a.tagsKey(), vocab); err != nil {
		return 0, err
	}
	for _, id := range items {
		tags, err := src.GetItemTags(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("dao: import tags of item %d: %w", id, err)
		}
		if err := put(a.itemTagsKey(id), tags); err != nil {
			return 0, err
		}
	}
	for _, uid := range src.UserIDs() {
		ratings, err := src.GetRatings(ctx, uid)
		if err != nil {
			return 0, fmt.Errorf("dao: import ratings of user %d: %w", uid, err)
		}
		if err := put(a.ratingsKey(uid), ratings); err != nil {
			return 0, err
		}
	}

	if err := a.store.BatchSet(ctx, kvs, ttl...); err != nil {
		return 0, fmt.Errorf("dao: import into %s: %w", a.store.Name(), err)
	}
	return len(kvs), nil
}

var (
	_ core.ItemTagDAO   = (*StoreDAO)(nil)
	_ core.UserEventDAO = (*StoreDAO)(nil)
	_ ImportSource      = (*MemoryDAO)(nil)
)
