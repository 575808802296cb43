package rank

import (
	"context"
	"sort"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/metrics"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

// TFIDFNode 用 TF-IDF 画像与物品向量的余弦相似度为候选重新打分。
// - 写入 labels：rank_model、tfidf_score、top_tag；模型外的物品写 tfidf_unscored
// - 回填 rctx.User（用户画像）
// - 更新 item.Score 并按分数降序稳定排序
type TFIDFNode struct {
	Scorer *tfidf.ItemScorer
}

func (n *TFIDFNode) Name() string        { return "rank.tfidf" }
func (n *TFIDFNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *TFIDFNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Scorer == nil || len(items) == 0 {
		return items, nil
	}
	if rctx == nil {
		return nil, core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "rank.tfidf: nil recommend context")
	}

	profile, vec, err := n.Scorer.Profile(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}
	if rctx.User == nil {
		rctx.User = profile
	}

	scores, unscored := n.Scorer.ScoreVector(vec, core.ItemIDs(items))
	metrics.ObserveScore(nil, unscored)

	m := n.Scorer.Model
	for _, it := range items {
		if it == nil {
			continue
		}
		it.Score = scores[it.ID]
		it.PutLabel("rank_model", utils.Label{Value: "tfidf", Source: "rank"})
		it.SetLabel("tfidf_score", utils.FloatLabel(it.Score, "rank"))
		if !m.HasItem(it.ID) {
			it.PutLabel("tfidf_unscored", utils.Label{Value: "true", Source: "rank"})
			continue
		}
		if tag, ok := m.TopTag(it.ID); ok {
			it.SetLabel("top_tag", utils.Label{Value: tag, Source: "rank"})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}
