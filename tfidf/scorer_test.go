package tfidf

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/dao"
	"github.com/rushteam/reckit-tfidf/pkg/sparse"
)

func TestScore_RatingScenario(t *testing.T) {
	d := twoItemDAO()
	d.Rate(42, 1, 5)
	d.Rate(42, 2, 3)
	m := mustBuild(t, d)
	s := NewItemScorer(m, d)

	// mean = 4, profile = 1*{B:1} + (-1)*zero = {B:1}
	profile := s.UserVector(mustRatings(t, d, 42))
	idB, _ := m.TagID("B")
	if w, _ := profile.Get(idB); math.Abs(w-1) > eps || profile.Len() != 1 {
		t.Errorf("profile = %v, want {B:1}", profile.ToMap())
	}

	scores, err := s.Score(context.Background(), 42, []int64{1, 2})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if math.Abs(scores[1]-1) > eps {
		t.Errorf("score(item1) = %v, want 1", scores[1])
	}
	if scores[2] != 0 {
		t.Errorf("score(item2) = %v, want 0 (zero vector)", scores[2])
	}
}

func mustRatings(t *testing.T, d core.UserEventDAO, uid int64) []core.Rating {
	t.Helper()
	r, err := d.GetRatings(context.Background(), uid)
	if err != nil {
		t.Fatalf("GetRatings() error = %v", err)
	}
	return r
}

func TestScore_UserWithoutRatings(t *testing.T) {
	d := twoItemDAO()
	s := NewItemScorer(mustBuild(t, d), d)

	scores, err := s.Score(context.Background(), 7, []int64{1, 2, 99})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if len(scores) != 3 {
		t.Fatalf("every requested candidate must be scored, got %v", scores)
	}
	for id, sc := range scores {
		if sc != 0 {
			t.Errorf("score(%d) = %v, want 0", id, sc)
		}
	}
}

func TestScore_UnknownItemScoresZero(t *testing.T) {
	d := twoItemDAO()
	d.Rate(1, 1, 4)
	d.Rate(1, 2, 1)
	m := mustBuild(t, d)
	s := NewItemScorer(m, d)

	scores, err := s.Score(context.Background(), 1, []int64{1, 12345})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got, ok := scores[12345]; !ok || got != 0 {
		t.Errorf("unknown item score = %v, %v, want 0, true", got, ok)
	}
	if m.HasItem(12345) {
		t.Errorf("HasItem(unknown) = true")
	}
}

func TestScore_NilCandidates(t *testing.T) {
	d := twoItemDAO()
	s := NewItemScorer(mustBuild(t, d), d)
	if _, err := s.Score(context.Background(), 1, nil); !core.IsInvalidInput(err) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
	scores, err := s.Score(context.Background(), 1, []int64{})
	if err != nil || len(scores) != 0 {
		t.Errorf("empty candidate set = %v, %v, want empty map", scores, err)
	}
}

func TestUserVector_MeanThenFilter(t *testing.T) {
	d := dao.NewMemoryDAO()
	d.AddTags(1, "a")
	d.AddTags(2, "b")
	d.AddTags(3, "c")
	m := mustBuild(t, d)
	s := NewItemScorer(m, d)

	ratings := []core.Rating{
		{ItemID: 1, Value: 4},
		{ItemID: 2, Value: -2},                   // 计入均值，但不累加
		{ItemID: 3, Value: 100, Retracted: true}, // 撤回：两步都跳过
	}
	// mean = (4 + -2) / 2 = 1 -> profile = 3 * {a:1}
	v := s.UserVector(ratings)
	idA, _ := m.TagID("a")
	idB, _ := m.TagID("b")
	if w, _ := v.Get(idA); math.Abs(w-3) > eps {
		t.Errorf("profile[a] = %v, want 3", w)
	}
	if _, ok := v.Get(idB); ok {
		t.Errorf("non-positive rating must not be accumulated")
	}
	if v.Len() != 1 {
		t.Errorf("profile = %v, want only tag a", v.ToMap())
	}
}

func TestUserVector_SkipsNonFiniteRatings(t *testing.T) {
	d := twoItemDAO()
	s := NewItemScorer(mustBuild(t, d), d)

	clean := []core.Rating{{ItemID: 1, Value: 5}}
	dirty := []core.Rating{
		{ItemID: 1, Value: 5},
		{ItemID: 2, Value: math.NaN()},
		{ItemID: 2, Value: math.Inf(1)},
		{ItemID: 2, Value: math.Inf(-1)},
	}
	want, err := s.ScoreRatings(clean, []int64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.ScoreRatings(dirty, []int64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	for id, sc := range got {
		if math.IsNaN(sc) || math.IsInf(sc, 0) {
			t.Fatalf("score(%d) = %v, want finite", id, sc)
		}
		if math.Abs(sc-want[id]) > eps {
			t.Errorf("score(%d) = %v, want %v", id, sc, want[id])
		}
	}
	if mean, n := meanRating(dirty); n != 1 || mean != 5 {
		t.Errorf("meanRating = %v, %d, want 5, 1", mean, n)
	}
}

func TestUserVector_LikedStrategy(t *testing.T) {
	d := dao.NewMemoryDAO()
	d.AddTags(1, "a")
	d.AddTags(2, "b")
	d.AddTags(3, "c")
	d.AddTags(4, "a")
	m := mustBuild(t, d)
	idA, _ := m.TagID("a")

	ratings := []core.Rating{
		{ItemID: 1, Value: 5},
		{ItemID: 2, Value: 3},
		{ItemID: 3, Value: 4, Retracted: true},
		{ItemID: 4, Value: 3.5},
		{ItemID: 3, Value: math.NaN()},
	}

	tests := []struct {
		name      string
		threshold float64
		wantA     float64
	}{
		{"default threshold keeps 3.5", 0, 2},
		{"custom threshold", 4.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewItemScorer(m, d).WithProfile(ProfileLiked, tt.threshold)
			v := s.UserVector(ratings)
			if w, _ := v.Get(idA); math.Abs(w-tt.wantA) > eps {
				t.Errorf("profile[a] = %v, want %v", w, tt.wantA)
			}
			if v.Len() != 1 {
				t.Errorf("profile = %v, want only tag a", v.ToMap())
			}
		})
	}

	// 不喜欢任何物品时画像为零向量
	s := NewItemScorer(m, d).WithProfile(ProfileLiked, 0)
	if v := s.UserVector([]core.Rating{{ItemID: 2, Value: 1}}); !v.IsZero() {
		t.Errorf("profile = %v, want zero", v.ToMap())
	}
}

func TestWithProfile_DoesNotMutateReceiver(t *testing.T) {
	d := twoItemDAO()
	base := NewItemScorer(mustBuild(t, d), d)
	liked := base.WithProfile(ProfileLiked, 4)
	if base.Strategy != "" || base.LikeThreshold != 0 {
		t.Errorf("base scorer modified: %+v", base)
	}
	if liked.Model != base.Model || liked.Strategy != ProfileLiked || liked.LikeThreshold != 4 {
		t.Errorf("liked scorer = %+v", liked)
	}
}

func TestParseProfileStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    ProfileStrategy
		wantErr bool
	}{
		{"", ProfileMeanCentered, false},
		{"mean_centered", ProfileMeanCentered, false},
		{"liked", ProfileLiked, false},
		{"weighted", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProfileStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfileStrategy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !core.IsInvalidInput(err) {
			t.Errorf("ParseProfileStrategy(%q) error = %v, want INVALID_INPUT", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseProfileStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScorer_NilModel(t *testing.T) {
	d := twoItemDAO()
	s := &ItemScorer{Events: d}
	ctx := context.Background()

	if _, err := s.Score(ctx, 1, []int64{1}); !core.IsInvalidInput(err) {
		t.Errorf("Score error = %v, want INVALID_INPUT", err)
	}
	if _, err := s.ScoreRatings([]core.Rating{{ItemID: 1, Value: 4}}, []int64{1}); !core.IsInvalidInput(err) {
		t.Errorf("ScoreRatings error = %v, want INVALID_INPUT", err)
	}
	if _, _, err := s.Profile(ctx, 1); !core.IsInvalidInput(err) {
		t.Errorf("Profile error = %v, want INVALID_INPUT", err)
	}
	if _, err := s.Recommend(ctx, 1, 10, nil); !core.IsInvalidInput(err) {
		t.Errorf("Recommend error = %v, want INVALID_INPUT", err)
	}
	if v := s.UserVector([]core.Rating{{ItemID: 1, Value: 4}}); !v.IsZero() {
		t.Errorf("UserVector without model = %v, want zero", v.ToMap())
	}
}

func TestUserVector_NegativeWeights(t *testing.T) {
	d := dao.NewMemoryDAO()
	d.AddTags(1, "a")
	d.AddTags(2, "b")
	m := mustBuild(t, d)
	s := NewItemScorer(m, d)

	v := s.UserVector([]core.Rating{{ItemID: 1, Value: 5}, {ItemID: 2, Value: 1}})
	scores, _ := s.ScoreVector(v, []int64{1, 2})
	if scores[1] <= 0 {
		t.Errorf("liked item score = %v, want > 0", scores[1])
	}
	if scores[2] >= 0 {
		t.Errorf("disliked item score = %v, want < 0", scores[2])
	}
	for id, sc := range scores {
		if sc < -1 || sc > 1 {
			t.Errorf("score(%d) = %v out of [-1, 1]", id, sc)
		}
	}
}

func TestScore_EmptyTagItemAlwaysZero(t *testing.T) {
	d := twoItemDAO()
	d.AddItem(3)
	m := mustBuild(t, d)
	s := NewItemScorer(m, d)

	profiles := []sparse.Vector{
		sparse.FromMap(map[int64]float64{1: 1}),
		sparse.FromMap(map[int64]float64{1: -3, 2: 0.5}),
		sparse.Empty(),
	}
	for _, p := range profiles {
		scores, _ := s.ScoreVector(p, []int64{3})
		if scores[3] != 0 {
			t.Errorf("empty-tag item score = %v for profile %v, want 0", scores[3], p.ToMap())
		}
	}
}

func TestProfile(t *testing.T) {
	d := twoItemDAO()
	d.Rate(42, 1, 5)
	d.Rate(42, 2, 3)
	d.AddRating(core.Rating{UserID: 42, ItemID: 3, Retracted: true})
	s := NewItemScorer(mustBuild(t, d), d)

	p, vec, err := s.Profile(context.Background(), 42)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if p.RatingCount != 2 || p.MeanRating != 4 {
		t.Errorf("RatingCount, MeanRating = %d, %v, want 2, 4", p.RatingCount, p.MeanRating)
	}
	if !p.HasRated(1) || !p.HasRated(2) || p.HasRated(3) {
		t.Errorf("RatedItems = %v", p.RatedItems)
	}
	if got := p.TopTags(1); len(got) != 1 || got[0] != "B" {
		t.Errorf("TopTags(1) = %v, want [B]", got)
	}
	if vec.IsZero() {
		t.Errorf("profile vector should not be zero")
	}
}

func TestRecommend(t *testing.T) {
	d := dao.NewMemoryDAO()
	d.AddTags(1, "space", "robots")
	d.AddTags(2, "space", "aliens")
	d.AddTags(3, "romance")
	d.AddTags(4, "robots")
	d.Rate(5, 1, 5)
	d.Rate(5, 3, 1)
	s := NewItemScorer(mustBuild(t, d), d)

	recs, err := s.Recommend(context.Background(), 5, 2, map[int64]struct{}{1: {}, 3: {}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Recommend() returned %d items, want 2", len(recs))
	}
	for _, r := range recs {
		if r.ItemID == 1 || r.ItemID == 3 {
			t.Errorf("excluded item %d recommended", r.ItemID)
		}
	}
	if recs[0].Score < recs[1].Score {
		t.Errorf("results not sorted: %+v", recs)
	}
}

func TestTopN(t *testing.T) {
	got := TopN(map[int64]float64{1: 0.5, 2: 0.9, 3: 0.5, 4: -1}, 3)
	want := []int64{2, 1, 3}
	for i, id := range want {
		if got[i].ItemID != id {
			t.Fatalf("TopN() = %+v, want order %v", got, want)
		}
	}
	if all := TopN(map[int64]float64{1: 1, 2: 2}, 0); len(all) != 2 {
		t.Errorf("TopN(n=0) should return everything, got %d", len(all))
	}
}

func TestScoreUsers(t *testing.T) {
	d := twoItemDAO()
	d.Rate(1, 1, 5)
	d.Rate(1, 2, 3)
	d.Rate(2, 2, 4)
	s := NewItemScorer(mustBuild(t, d), d)

	out, err := s.ScoreUsers(context.Background(), []int64{1, 2, 3}, []int64{1, 2}, 2)
	if err != nil {
		t.Fatalf("ScoreUsers() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("ScoreUsers() returned %d users, want 3", len(out))
	}
	if math.Abs(out[1][1]-1) > eps {
		t.Errorf("user1 item1 = %v, want 1", out[1][1])
	}
	// 用户 2 只评了一个物品，均值中心化后权重为 0
	if out[2][1] != 0 || out[2][2] != 0 {
		t.Errorf("user2 scores = %v, want zeros", out[2])
	}
}

type errEvents struct{}

func (errEvents) GetRatings(context.Context, int64) ([]core.Rating, error) {
	return nil, errBackend
}

func TestScoreUsers_Error(t *testing.T) {
	s := NewItemScorer(mustBuild(t, twoItemDAO()), errEvents{})
	if _, err := s.ScoreUsers(context.Background(), []int64{1, 2}, []int64{1}, 0); !errors.Is(err, errBackend) {
		t.Errorf("error = %v, want backend error", err)
	}
	s.Events = nil
	if _, err := s.Score(context.Background(), 1, []int64{1}); !core.IsInvalidInput(err) {
		t.Errorf("missing dao error = %v, want INVALID_INPUT", err)
	}
}

func TestScorer_ConcurrentReaders(t *testing.T) {
	d := dao.NewMemoryDAO()
	for i := int64(1); i <= 50; i++ {
		d.AddTags(i, "t"+string(rune('a'+i%7)), "t"+string(rune('a'+i%5)))
		d.Rate(i%10, i, float64(i%5+1))
	}
	s := NewItemScorer(mustBuild(t, d), d)
	candidates := s.Model.ItemIDs()

	want, err := s.Score(context.Background(), 3, candidates)
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Score(context.Background(), 3, candidates)
			if err != nil {
				t.Errorf("Score() error = %v", err)
				return
			}
			for id, sc := range want {
				if got[id] != sc {
					t.Errorf("concurrent score(%d) = %v, want %v", id, got[id], sc)
					return
				}
			}
		}()
	}
	wg.Wait()
}
