// Package tfidf 实现基于标签 TF-IDF 的内容推荐：
//
//   - Builder 从物品目录与标签数据构建不可变的 Model（标签词表 + 物品单位向量）
//   - ItemScorer 由用户评分推导画像向量，与候选物品向量计算余弦相似度
//
// Model 构建完成后只读，可被任意多个打分请求并发使用，无需加锁。
package tfidf

import (
	"sort"

	"github.com/rushteam/reckit-tfidf/pkg/sparse"
)

// Model 是 TF-IDF 模型：tag -> tagID 映射，以及 itemID -> 归一化 TF-IDF 向量。
//
// 标签 ID 只是模型内部的索引，不同构建之间不保证一致；
// 比较两个模型时应比较相似度关系，而不是 ID 本身。
type Model struct {
	tagIDs map[string]int64
	tags   map[int64]string // 反向索引，用于解释画像
	items  map[int64]sparse.Vector
}

func newModel(tagIDs map[string]int64, items map[int64]sparse.Vector) *Model {
	tags := make(map[int64]string, len(tagIDs))
	for t, id := range tagIDs {
		tags[id] = t
	}
	return &Model{tagIDs: tagIDs, tags: tags, items: items}
}

// TagID 返回标签对应的 ID。
func (m *Model) TagID(tag string) (int64, bool) {
	id, ok := m.tagIDs[tag]
	return id, ok
}

// Tag 返回 ID 对应的标签。
func (m *Model) Tag(id int64) (string, bool) {
	t, ok := m.tags[id]
	return t, ok
}

// TagCount 返回词表大小。
func (m *Model) TagCount() int { return len(m.tagIDs) }

// ItemCount 返回模型中的物品数。
func (m *Model) ItemCount() int { return len(m.items) }

// HasItem 判断物品是否在模型中（构建时见过）。
// 不在模型中的物品打分为 0，调用方可以用它区分“无法打分”与“分数为 0”。
func (m *Model) HasItem(itemID int64) bool {
	_, ok := m.items[itemID]
	return ok
}

// ItemVector 返回物品的 TF-IDF 单位向量；未知物品返回零向量。
func (m *Model) ItemVector(itemID int64) sparse.Vector {
	v, ok := m.items[itemID]
	if !ok {
		return sparse.Empty()
	}
	return v
}

// ItemIDs 返回模型中的全部物品 ID（升序）。
func (m *Model) ItemIDs() []int64 {
	ids := make([]int64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// NewTagVector 返回一个覆盖标签空间的空累加向量。
func (m *Model) NewTagVector() *sparse.MutableVector {
	return sparse.NewMutable(len(m.tagIDs))
}

// TagWeights 把标签空间的向量转换为 tag -> weight，未知 ID 被忽略。
func (m *Model) TagWeights(v sparse.Vector) map[string]float64 {
	out := make(map[string]float64, v.Len())
	v.Each(func(id int64, w float64) {
		if t, ok := m.tags[id]; ok {
			out[t] = w
		}
	})
	return out
}

// TopTag 返回物品权重最高的标签；权重相同时取 ID 较小者。零向量或未知物品返回 false。
func (m *Model) TopTag(itemID int64) (string, bool) {
	v := m.ItemVector(itemID)
	var (
		best  int64
		bestW float64
		found bool
	)
	v.Each(func(id int64, w float64) {
		if !found || w > bestW {
			best, bestW, found = id, w, true
		}
	})
	if !found {
		return "", false
	}
	return m.Tag(best)
}
