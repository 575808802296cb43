package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/dao"
	"github.com/rushteam/reckit-tfidf/store"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

// 用户 5 喜欢太空和机器人，不喜欢爱情片
func newScorer(t *testing.T) *tfidf.ItemScorer {
	t.Helper()
	d := dao.NewMemoryDAO()
	d.AddTags(1, "space", "robots")
	d.AddTags(2, "space", "aliens")
	d.AddTags(3, "romance")
	d.AddTags(4, "robots")
	d.AddTags(5, "romance", "comedy")
	d.Rate(5, 1, 5)
	d.Rate(5, 3, 1)
	m, err := tfidf.Build(context.Background(), d)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tfidf.NewItemScorer(m, d)
}

func TestTFIDF_Process(t *testing.T) {
	r := &TFIDF{Scorer: newScorer(t), TopK: 3, ExcludeRated: true}
	rctx := core.NewRecommendContext(5)

	items, err := r.Process(context.Background(), rctx, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Process() returned %d items, want 3", len(items))
	}
	for i, it := range items {
		if it.ID == 1 || it.ID == 3 {
			t.Errorf("rated item %d recalled", it.ID)
		}
		if lbl := it.Labels["recall_source"]; lbl.Value != "tfidf" {
			t.Errorf("recall_source = %q, want tfidf", lbl.Value)
		}
		if i > 0 && items[i-1].Score < it.Score {
			t.Errorf("items not sorted by score")
		}
	}
	if items[0].ID != 4 {
		t.Errorf("top item = %d, want 4 (robots)", items[0].ID)
	}
	if rctx.User == nil || !rctx.User.HasRated(1) {
		t.Errorf("user profile should be filled into rctx")
	}
}

func TestTFIDF_DefaultTopK(t *testing.T) {
	r := &TFIDF{Scorer: newScorer(t)}
	items, err := r.Recall(context.Background(), core.NewRecommendContext(5))
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	// 目录只有 5 个物品，小于默认 TopK
	if len(items) != 5 {
		t.Errorf("Recall() returned %d items, want 5", len(items))
	}
	if _, err := (&TFIDF{}).Recall(context.Background(), core.NewRecommendContext(5)); err == nil {
		t.Errorf("Recall() without scorer should fail")
	}
}

func TestHot_Recall(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	h := &Hot{Store: s, Key: "hot:items", IDs: []int64{9, 8}}
	items, _ := h.Recall(ctx, nil)
	if got := core.ItemIDs(items); len(got) != 2 || got[0] != 9 {
		t.Errorf("fallback ids = %v, want [9 8]", got)
	}

	data, _ := json.Marshal([]int64{3, 2, 1})
	if err := s.Set(ctx, "hot:items", data); err != nil {
		t.Fatal(err)
	}
	items, _ = h.Process(ctx, nil, nil)
	if got := core.ItemIDs(items); len(got) != 3 || got[0] != 3 {
		t.Errorf("store ids = %v, want [3 2 1]", got)
	}
	if items[0].Labels["recall_source"].Value != "hot" {
		t.Errorf("recall_source label missing")
	}
}

type stubSource struct {
	name string
	ids  []int64
	err  error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(context.Context, *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, 0, len(s.ids))
	for i, id := range s.ids {
		it := core.NewItem(id)
		it.Score = float64(len(s.ids) - i)
		out = append(out, it)
	}
	return out, nil
}

func TestFanout_MergeStrategies(t *testing.T) {
	sources := func() []Source {
		return []Source{
			&stubSource{name: "recall.a", ids: []int64{1, 2}},
			&stubSource{name: "recall.broken", err: errors.New("down")},
			&stubSource{name: "recall.b", ids: []int64{2, 3}},
		}
	}

	tests := []struct {
		name     string
		strategy MergeStrategy
		dedup    bool
		want     []int64
	}{
		{name: "first", strategy: nil, dedup: true, want: []int64{1, 2, 3}},
		{name: "first no dedup", strategy: &FirstMergeStrategy{}, dedup: false, want: []int64{1, 2, 2, 3}},
		{name: "union", strategy: &UnionMergeStrategy{}, dedup: true, want: []int64{1, 2, 2, 3}},
		{name: "priority", strategy: &PriorityMergeStrategy{}, dedup: true, want: []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Fanout{Sources: sources(), Dedup: tt.dedup, MergeStrategy: tt.strategy, MaxConcurrent: 2}
			items, err := f.Process(context.Background(), core.NewRecommendContext(1), nil)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			got := core.ItemIDs(items)
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ids = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFanout_LabelsMergedOnDedup(t *testing.T) {
	f := &Fanout{
		Sources: []Source{
			&stubSource{name: "recall.a", ids: []int64{1}},
			&stubSource{name: "recall.b", ids: []int64{1}},
		},
		Dedup: true,
	}
	items, _ := f.Process(context.Background(), core.NewRecommendContext(1), nil)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if got := items[0].Labels["recall_source"].Value; got != "a|b" {
		t.Errorf("recall_source = %q, want a|b", got)
	}
}

// 多个 ExcludeRated 的 TF-IDF 源并发执行时不能写共享的请求上下文（配合 go test -race）。
func TestFanout_ConcurrentTFIDFSourcesDoNotShareProfile(t *testing.T) {
	s := newScorer(t)
	f := &Fanout{
		Sources: []Source{
			&TFIDF{Scorer: s, TopK: 2, ExcludeRated: true},
			&TFIDF{Scorer: s, TopK: 3, ExcludeRated: true},
		},
		Dedup: true,
	}
	for i := 0; i < 50; i++ {
		rctx := core.NewRecommendContext(5)
		items, err := f.Process(context.Background(), rctx, nil)
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		for _, it := range items {
			if it.ID == 1 || it.ID == 3 {
				t.Fatalf("rated item %d recalled", it.ID)
			}
		}
		if rctx.User != nil {
			t.Fatalf("fanout sources must not write rctx.User")
		}
	}
}
