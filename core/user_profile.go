package core

import (
	"sort"
	"time"
)

// UserProfile 是用户画像：由评分历史推导的标签偏好，供解释与下游节点使用。
//
//	维度          作用
//	评分统计      均值中心化的基准
//	标签偏好      TF-IDF 画像向量的可读形式（tag -> weight，可为负）
//	已评分物品    过滤已看过的物品
type UserProfile struct {
	UserID int64

	// 评分统计
	RatingCount int     // 有效评分数
	MeanRating  float64 // 有效评分均值（无评分时为 0）

	// PreferTags 标签偏好，key 为标签名
	PreferTags map[string]float64

	// RatedItems 已评分物品集合
	RatedItems map[int64]struct{}

	UpdateTime time.Time
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(userID int64) *UserProfile {
	return &UserProfile{
		UserID:     userID,
		PreferTags: make(map[string]float64),
		RatedItems: make(map[int64]struct{}),
		UpdateTime: time.Now(),
	}
}

// HasRated 判断用户是否评过该物品。
func (p *UserProfile) HasRated(itemID int64) bool {
	if p.RatedItems == nil {
		return false
	}
	_, ok := p.RatedItems[itemID]
	return ok
}

// TopTags 按偏好权重降序返回前 n 个标签（n <= 0 返回全部）。
func (p *UserProfile) TopTags(n int) []string {
	tags := make([]string, 0, len(p.PreferTags))
	for t := range p.PreferTags {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		wi, wj := p.PreferTags[tags[i]], p.PreferTags[tags[j]]
		if wi != wj {
			return wi > wj
		}
		return tags[i] < tags[j]
	})
	if n > 0 && len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// GetTagWeight 获取标签偏好权重。
func (p *UserProfile) GetTagWeight(tag string) float64 {
	if p.PreferTags == nil {
		return 0
	}
	return p.PreferTags[tag]
}
