package tfidf

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/metrics"
	"github.com/rushteam/reckit-tfidf/pkg/sparse"
)

// ProfileStrategy 决定如何由评分历史构建用户画像向量。
type ProfileStrategy string

const (
	// ProfileMeanCentered 按 (评分 - 均值) 加权累加物品向量，默认策略。
	ProfileMeanCentered ProfileStrategy = "mean_centered"
	// ProfileLiked 不加权地累加评分 >= LikeThreshold 的物品向量。
	ProfileLiked ProfileStrategy = "liked"
)

// DefaultLikeThreshold 是 ProfileLiked 判定“喜欢”的默认评分阈值。
const DefaultLikeThreshold = 3.5

// ParseProfileStrategy 解析配置中的画像策略，空字符串表示默认策略。
func ParseProfileStrategy(v string) (ProfileStrategy, error) {
	switch ProfileStrategy(v) {
	case "", ProfileMeanCentered:
		return ProfileMeanCentered, nil
	case ProfileLiked:
		return ProfileLiked, nil
	}
	return "", core.NewDomainErrorf(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "tfidf: unknown profile strategy %q", v)
}

// ItemScorer 用用户画像向量与物品向量的余弦相似度为物品打分。
// 不持有可变状态，可被多个 goroutine 并发调用。
type ItemScorer struct {
	Model  *Model
	Events core.UserEventDAO

	// Similarity 默认余弦相似度
	Similarity sparse.Similarity

	// Strategy 为空时使用 ProfileMeanCentered
	Strategy ProfileStrategy
	// LikeThreshold 仅对 ProfileLiked 生效，<= 0 时使用 DefaultLikeThreshold
	LikeThreshold float64
}

// NewItemScorer 创建打分器。
func NewItemScorer(m *Model, events core.UserEventDAO) *ItemScorer {
	return &ItemScorer{
		Model:      m,
		Events:     events,
		Similarity: sparse.CosineSimilarity{},
	}
}

// WithProfile 返回使用指定画像策略的浅拷贝，模型与 DAO 共享。
func (s *ItemScorer) WithProfile(strategy ProfileStrategy, likeThreshold float64) *ItemScorer {
	cp := *s
	cp.Strategy = strategy
	cp.LikeThreshold = likeThreshold
	return &cp
}

func (s *ItemScorer) similarity() sparse.Similarity {
	if s.Similarity == nil {
		return sparse.CosineSimilarity{}
	}
	return s.Similarity
}

func (s *ItemScorer) likeThreshold() float64 {
	if s.LikeThreshold > 0 {
		return s.LikeThreshold
	}
	return DefaultLikeThreshold
}

func (s *ItemScorer) checkModel() error {
	if s.Model == nil {
		return core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "tfidf: scorer has no model")
	}
	return nil
}

// usable 报告评分是否参与画像计算：未撤回且为有限值。
func usable(r core.Rating) bool {
	return r.HasPreference() && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// UserVector 由评分历史构建用户画像向量，默认策略为：
//
//	u = Σ (r_ui - μ_u) * i，只累加 r_ui > 0 的评分
//
// μ_u 是全部有效评分（含 <= 0 的值）的均值，先算均值再过滤，这一不对称是有意保留的行为。
// 撤回或非有限值的评分既不参与均值也不参与累加；没有有效评分时返回零向量。
func (s *ItemScorer) UserVector(ratings []core.Rating) sparse.Vector {
	if s.Model == nil {
		return sparse.Empty()
	}
	if s.Strategy == ProfileLiked {
		return s.likedVector(ratings)
	}

	mean, n := meanRating(ratings)
	if n == 0 {
		return sparse.Empty()
	}

	profile := s.Model.NewTagVector()
	for _, r := range ratings {
		if !usable(r) || r.Value <= 0 {
			continue
		}
		profile.AddScaled(s.Model.ItemVector(r.ItemID), r.Value-mean)
	}
	return profile.Freeze()
}

// likedVector 把评分不低于阈值的物品向量直接相加。
func (s *ItemScorer) likedVector(ratings []core.Rating) sparse.Vector {
	threshold := s.likeThreshold()
	profile := s.Model.NewTagVector()
	for _, r := range ratings {
		if !usable(r) || r.Value < threshold {
			continue
		}
		profile.AddScaled(s.Model.ItemVector(r.ItemID), 1)
	}
	return profile.Freeze()
}

func meanRating(ratings []core.Rating) (float64, int) {
	var (
		sum float64
		n   int
	)
	for _, r := range ratings {
		if !usable(r) {
			continue
		}
		sum += r.Value
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return sum / float64(n), n
}

// ScoreVector 为每个候选物品计算与画像向量的相似度。
// 不在模型中的物品得 0 分，并计入返回的 unscored 数。
func (s *ItemScorer) ScoreVector(profile sparse.Vector, candidates []int64) (map[int64]float64, int) {
	sim := s.similarity()
	out := make(map[int64]float64, len(candidates))
	unscored := 0
	for _, item := range candidates {
		if s.Model == nil || !s.Model.HasItem(item) {
			out[item] = 0
			unscored++
			continue
		}
		out[item] = sim.Similarity(profile, s.Model.ItemVector(item))
	}
	return out, unscored
}

// ScoreRatings 根据给定评分为候选物品打分，candidates 为 nil 或没有模型时返回 INVALID_INPUT。
func (s *ItemScorer) ScoreRatings(ratings []core.Rating, candidates []int64) (map[int64]float64, error) {
	if err := s.checkModel(); err != nil {
		return nil, err
	}
	if candidates == nil {
		return nil, core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "tfidf: nil candidate set")
	}
	scores, unscored := s.ScoreVector(s.UserVector(ratings), candidates)
	metrics.ObserveScore(nil, unscored)
	return scores, nil
}

// Score 读取用户评分历史并为候选物品打分。
// 没有评分的用户所有候选得 0 分。
func (s *ItemScorer) Score(ctx context.Context, userID int64, candidates []int64) (map[int64]float64, error) {
	ratings, err := s.ratings(ctx, userID)
	if err != nil {
		metrics.ObserveScore(err, 0)
		return nil, err
	}
	return s.ScoreRatings(ratings, candidates)
}

func (s *ItemScorer) ratings(ctx context.Context, userID int64) ([]core.Rating, error) {
	if err := s.checkModel(); err != nil {
		return nil, err
	}
	if s.Events == nil {
		return nil, core.NewDomainError(core.ModuleTFIDF, core.ErrorCodeInvalidInput, "tfidf: scorer has no user event dao")
	}
	ratings, err := s.Events.GetRatings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("tfidf: get ratings of user %d: %w", userID, err)
	}
	return ratings, nil
}

// Profile 构建用户画像：评分统计、已评分物品以及可读的标签偏好。
func (s *ItemScorer) Profile(ctx context.Context, userID int64) (*core.UserProfile, sparse.Vector, error) {
	ratings, err := s.ratings(ctx, userID)
	if err != nil {
		return nil, sparse.Empty(), err
	}
	vec := s.UserVector(ratings)

	p := core.NewUserProfile(userID)
	p.MeanRating, p.RatingCount = meanRating(ratings)
	for _, r := range ratings {
		if r.HasPreference() {
			p.RatedItems[r.ItemID] = struct{}{}
		}
	}
	p.PreferTags = s.Model.TagWeights(vec)
	return p, vec, nil
}

// ScoredItem 是单个物品的打分结果。
type ScoredItem struct {
	ItemID int64
	Score  float64
}

// Recommend 对模型中全部物品打分，排除 exclude 中的物品，按分数降序返回前 n 个（n <= 0 返回全部）。
// 分数相同时按物品 ID 升序，保证结果稳定。
func (s *ItemScorer) Recommend(ctx context.Context, userID int64, n int, exclude map[int64]struct{}) ([]ScoredItem, error) {
	if err := s.checkModel(); err != nil {
		return nil, err
	}
	candidates := make([]int64, 0, s.Model.ItemCount())
	for _, id := range s.Model.ItemIDs() {
		if _, ok := exclude[id]; ok {
			continue
		}
		candidates = append(candidates, id)
	}
	scores, err := s.Score(ctx, userID, candidates)
	if err != nil {
		return nil, err
	}
	return TopN(scores, n), nil
}

// TopN 把分数表按分数降序排列并截断。
func TopN(scores map[int64]float64, n int) []ScoredItem {
	out := make([]ScoredItem, 0, len(scores))
	for id, sc := range scores {
		out = append(out, ScoredItem{ItemID: id, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ItemID < out[j].ItemID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ScoreUsers 并发为多个用户打分，每个用户使用独立的画像向量。
// concurrency <= 0 时使用 core.DefaultRecallConfig 的默认并发数；任一用户失败则整体返回错误。
func (s *ItemScorer) ScoreUsers(
	ctx context.Context,
	userIDs []int64,
	candidates []int64,
	concurrency int,
) (map[int64]map[int64]float64, error) {
	if concurrency <= 0 {
		concurrency = (&core.DefaultRecallConfig{}).DefaultConcurrency()
	}

	var (
		mu  sync.Mutex
		out = make(map[int64]map[int64]float64, len(userIDs))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for _, uid := range userIDs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			scores, err := s.Score(egCtx, uid, candidates)
			if err != nil {
				return err
			}
			mu.Lock()
			out[uid] = scores
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
