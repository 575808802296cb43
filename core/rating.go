package core

import "time"

// Rating 是一条用户对物品的显式评分事件。
// Retracted 表示评分已被撤回（没有有效的偏好值），计算时必须跳过，不能当作 0。
type Rating struct {
	UserID    int64     `json:"user_id"`
	ItemID    int64     `json:"item_id"`
	Value     float64   `json:"value"`
	Retracted bool      `json:"retracted,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// HasPreference 判断评分是否携带有效偏好值。
func (r Rating) HasPreference() bool {
	return !r.Retracted
}
