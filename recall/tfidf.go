package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

// TFIDF 是基于标签 TF-IDF 的内容召回：对模型中的全部物品打分，返回 TopK。
// TFIDF 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用，也可以放进 Fanout。
type TFIDF struct {
	Scorer *tfidf.ItemScorer

	// TopK 返回的物品数，<= 0 时使用 core.DefaultRecallConfig
	TopK int

	// ExcludeRated 为 true 时不召回用户已评分的物品
	ExcludeRated bool

	Config core.RecallConfig
}

func (r *TFIDF) Name() string        { return "recall.tfidf" }
func (r *TFIDF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口。
func (r *TFIDF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	items, profile, err := r.recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	// 作为独立节点时顺序执行，可以安全回填用户画像
	if rctx.User == nil && profile != nil {
		rctx.User = profile
	}
	labelSource(items, r.Name())
	return items, nil
}

func (r *TFIDF) topK() int {
	if r.TopK > 0 {
		return r.TopK
	}
	cfg := r.Config
	if cfg == nil {
		cfg = &core.DefaultRecallConfig{}
	}
	return cfg.DefaultTopKItems()
}

// Recall 实现 Source 接口。
// 可能与其他召回源并发执行（见 Fanout），因此只读 rctx，不回填 rctx.User。
func (r *TFIDF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	items, _, err := r.recall(ctx, rctx)
	return items, err
}

// recall 返回召回结果，以及为排除已评分物品而临时构建的用户画像（未构建时为 nil）。
func (r *TFIDF) recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, *core.UserProfile, error) {
	if r.Scorer == nil || r.Scorer.Model == nil {
		return nil, nil, fmt.Errorf("recall.tfidf: scorer not configured")
	}
	if rctx == nil {
		return nil, nil, core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "recall.tfidf: nil recommend context")
	}

	var (
		exclude map[int64]struct{}
		built   *core.UserProfile
	)
	if r.ExcludeRated {
		profile := rctx.User
		if profile == nil {
			p, _, err := r.Scorer.Profile(ctx, rctx.UserID)
			if err != nil {
				return nil, nil, err
			}
			profile, built = p, p
		}
		exclude = profile.RatedItems
	}

	recs, err := r.Scorer.Recommend(ctx, rctx.UserID, r.topK(), exclude)
	if err != nil {
		return nil, nil, err
	}

	out := make([]*core.Item, 0, len(recs))
	for _, rec := range recs {
		it := core.NewItem(rec.ItemID)
		it.Score = rec.Score
		it.SetLabel("tfidf_score", utils.FloatLabel(rec.Score, "recall"))
		out = append(out, it)
	}
	return out, built, nil
}
