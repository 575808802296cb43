package core

import "context"

// 以下接口是 TF-IDF 模型与打分器依赖的数据源，定义在领域层，由 dao 包实现。

// ItemDAO 提供物品目录。
type ItemDAO interface {
	// GetItemIDs 返回全部物品 ID（无重复）
	GetItemIDs(ctx context.Context) ([]int64, error)
}

// ItemTagDAO 提供物品的标签信息。
type ItemTagDAO interface {
	ItemDAO

	// GetItemTags 返回物品被打上的标签列表，同一标签可重复出现（计入词频）
	GetItemTags(ctx context.Context, itemID int64) ([]string, error)

	// GetTagVocabulary 返回全部标签（无重复），应由同一份标签数据推导而来
	GetTagVocabulary(ctx context.Context) ([]string, error)
}

// UserEventDAO 提供用户行为历史。
type UserEventDAO interface {
	// GetRatings 返回用户的评分历史；用户不存在时返回空列表而不是错误
	GetRatings(ctx context.Context, userID int64) ([]Rating, error)
}
