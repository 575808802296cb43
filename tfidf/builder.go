package tfidf

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
	"github.com/rushteam/reckit-tfidf/pkg/metrics"
	"github.com/rushteam/reckit-tfidf/pkg/sparse"
)

// TagsFunc 返回物品的标签列表。
type TagsFunc func(ctx context.Context, itemID int64) ([]string, error)

// Build 从 DAO 读取物品目录、物品标签和标签词表，构建 TF-IDF 模型。
// 任一物品引用了词表之外的标签时返回 DATA_INCONSISTENCY 错误，不返回部分模型。
func Build(ctx context.Context, dao core.ItemTagDAO) (*Model, error) {
	if dao == nil {
		return nil, core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "tfidf: nil item tag dao")
	}
	itemIDs, err := dao.GetItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("tfidf: get item ids: %w", err)
	}
	vocabulary, err := dao.GetTagVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("tfidf: get tag vocabulary: %w", err)
	}
	return build(ctx, itemIDs, dao.GetItemTags, vocabulary)
}

// BuildFromData 用内存数据构建模型，tagsOf 为 nil 时所有物品都视为无标签。
func BuildFromData(itemIDs []int64, tagsOf func(itemID int64) []string, vocabulary []string) (*Model, error) {
	fn := func(_ context.Context, itemID int64) ([]string, error) {
		if tagsOf == nil {
			return nil, nil
		}
		return tagsOf(itemID), nil
	}
	return build(context.Background(), itemIDs, fn, vocabulary)
}

func build(ctx context.Context, itemIDs []int64, tagsOf TagsFunc, vocabulary []string) (*Model, error) {
	start := time.Now()
	log := logging.Component("tfidf")

	tagIDs := buildTagIDMap(vocabulary)
	items := uniqueItems(itemIDs)
	numItems := float64(len(items))

	// 第一阶段：为每个物品构建 TF 向量，同时累计 DF
	docFreq := sparse.NewMutable(len(tagIDs))
	work := sparse.NewMutable(len(tagIDs))
	itemVectors := make(map[int64]*sparse.MutableVector, len(items))

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		work.Clear()

		tags, err := tagsOf(ctx, item)
		if err != nil {
			return nil, fmt.Errorf("tfidf: get tags of item %d: %w", item, err)
		}
		for _, tag := range tags {
			tagID, ok := tagIDs[tag]
			if !ok {
				return nil, core.NewDomainErrorf(core.ModuleTFIDF, core.ErrorCodeDataInconsistency,
					"tfidf: item %d references tag %q missing from vocabulary", item, tag)
			}
			work.Increment(tagID, 1)
		}

		// work 中每个 key 都是该物品的一个不同标签，DF 只加一次
		work.Each(func(tagID int64, _ float64) {
			docFreq.Increment(tagID, 1)
		})

		// 只保留该物品实际出现的标签
		itemVectors[item] = work.Freeze().MutableCopy()
	}

	// DF 原地转换为 log-IDF
	docFreq.Transform(func(_ int64, df float64) float64 {
		return idf(numItems, df)
	})

	// 第二阶段：乘以 IDF 并归一化为单位向量
	model := make(map[int64]sparse.Vector, len(itemVectors))
	for item, vec := range itemVectors {
		vec.MultiplyElements(docFreq)
		vec.Normalize()
		model[item] = vec.Freeze()
	}

	m := newModel(tagIDs, model)
	metrics.ObserveBuild(start, m.ItemCount(), m.TagCount())
	log.Info().
		Int("items", m.ItemCount()).
		Int("tags", m.TagCount()).
		Dur("elapsed", time.Since(start)).
		Msg("tfidf model built")
	return m, nil
}

// idf 计算 ln(N/df)；df 为 0 时返回 0，该标签不产生任何权重。
func idf(numItems, df float64) float64 {
	if df <= 0 || numItems <= 0 {
		return 0
	}
	return math.Log(numItems / df)
}

// buildTagIDMap 为词表中的每个标签分配 1..N 的 ID。
// 按字典序分配，同一份词表多次构建得到相同的 ID。
func buildTagIDMap(vocabulary []string) map[string]int64 {
	tags := make([]string, 0, len(vocabulary))
	seen := make(map[string]struct{}, len(vocabulary))
	for _, t := range vocabulary {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	sort.Strings(tags)

	tagIDs := make(map[string]int64, len(tags))
	for _, t := range tags {
		tagIDs[t] = int64(len(tagIDs)) + 1
	}
	return tagIDs
}

func uniqueItems(itemIDs []int64) []int64 {
	seen := make(map[int64]struct{}, len(itemIDs))
	out := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
