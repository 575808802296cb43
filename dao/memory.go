// Package dao 提供 TF-IDF 推荐所需数据源的实现：内存、CSV 文件、core.Store。
package dao

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/reckit-tfidf/core"
)

// MemoryDAO 是内存实现的物品标签 / 用户评分数据源，用于测试、CLI 与数据导入。
// 标签词表由标签分配数据推导，保证与 GetItemTags 一致。
type MemoryDAO struct {
	mu      sync.RWMutex
	items   map[int64]struct{}
	tags    map[int64][]string
	ratings map[int64][]core.Rating
}

func NewMemoryDAO() *MemoryDAO {
	return &MemoryDAO{
		items:   make(map[int64]struct{}),
		tags:    make(map[int64][]string),
		ratings: make(map[int64][]core.Rating),
	}
}

// AddItem 登记一个物品（可以没有标签）。
func (d *MemoryDAO) AddItem(itemID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[itemID] = struct{}{}
}

// AddTags 为物品追加标签，重复标签会被保留（计入词频）。
func (d *MemoryDAO) AddTags(itemID int64, tags ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[itemID] = struct{}{}
	d.tags[itemID] = append(d.tags[itemID], tags...)
}

// AddRating 追加一条评分。
func (d *MemoryDAO) AddRating(r core.Rating) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ratings[r.UserID] = append(d.ratings[r.UserID], r)
}

// Rate 是 AddRating 的简写。
func (d *MemoryDAO) Rate(userID, itemID int64, value float64) {
	d.AddRating(core.Rating{UserID: userID, ItemID: itemID, Value: value})
}

func (d *MemoryDAO) GetItemIDs(_ context.Context) ([]int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0, len(d.items))
	for id := range d.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (d *MemoryDAO) GetItemTags(_ context.Context, itemID int64) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.tags[itemID]...), nil
}

func (d *MemoryDAO) GetTagVocabulary(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, tags := range d.tags {
		for _, t := range tags {
			seen[t] = struct{}{}
		}
	}
	vocab := make([]string, 0, len(seen))
	for t := range seen {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)
	return vocab, nil
}

func (d *MemoryDAO) GetRatings(_ context.Context, userID int64) ([]core.Rating, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]core.Rating(nil), d.ratings[userID]...), nil
}

// UserIDs 返回有评分记录的用户（升序）。
func (d *MemoryDAO) UserIDs() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ids := make([]int64, 0, len(d.ratings))
	for id := range d.ratings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

var (
	_ core.ItemTagDAO   = (*MemoryDAO)(nil)
	_ core.UserEventDAO = (*MemoryDAO)(nil)
)
