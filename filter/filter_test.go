package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/dao"
	"github.com/rushteam/reckit-tfidf/pkg/utils"
	"github.com/rushteam/reckit-tfidf/store"
)

func items(ids ...int64) []*core.Item {
	out := make([]*core.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, core.NewItem(id))
	}
	return out
}

func idsOf(items []*core.Item) []int64 { return core.ItemIDs(items) }

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRatedFilter(t *testing.T) {
	d := dao.NewMemoryDAO()
	d.Rate(1, 10, 4)
	d.Rate(1, 11, 1)
	d.AddRating(core.Rating{UserID: 1, ItemID: 12, Retracted: true})

	node := &FilterNode{Filters: []Filter{NewRatedFilter(d)}}
	in := items(10, 11, 12, 13)
	rctx := core.NewRecommendContext(1)
	out, err := node.Process(context.Background(), rctx, in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := idsOf(out); !equalIDs(got, []int64{12, 13}) {
		t.Errorf("kept = %v, want [12 13]", got)
	}
	if lbl := in[0].Labels["filtered"]; lbl.Value != "true" || lbl.Source != "filter.rated" {
		t.Errorf("filtered label = %+v", lbl)
	}
	if _, ok := rctx.Params[ratedItemsParam]; !ok {
		t.Errorf("rated set should be cached in rctx.Params")
	}

	// 有用户画像时直接使用画像中的已评分集合
	rctx = core.NewRecommendContext(1)
	rctx.User = core.NewUserProfile(1)
	rctx.User.RatedItems[13] = struct{}{}
	out, _ = node.Process(context.Background(), rctx, items(10, 13))
	if got := idsOf(out); !equalIDs(got, []int64{10}) {
		t.Errorf("kept = %v, want [10]", got)
	}
}

type errEvents struct{}

func (errEvents) GetRatings(context.Context, int64) ([]core.Rating, error) {
	return nil, errors.New("backend down")
}

func TestFilterNode_ErrorKeepsItem(t *testing.T) {
	node := &FilterNode{Filters: []Filter{NewRatedFilter(errEvents{})}}
	out, err := node.Process(context.Background(), core.NewRecommendContext(1), items(1, 2))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 2 {
		t.Errorf("filter errors must not drop items, kept %v", idsOf(out))
	}
}

func TestBlacklistAndUserBlock(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	put := func(key string, ids []int64) {
		data, _ := json.Marshal(ids)
		if err := s.Set(ctx, key, data); err != nil {
			t.Fatal(err)
		}
	}
	put("blacklist", []int64{3})
	put("user:block:7", []int64{4})

	adapter := NewStoreAdapter(s)
	node := &FilterNode{Filters: []Filter{
		NewBlacklistFilter([]int64{1}, adapter, "blacklist"),
		NewUserBlockFilter(adapter, ""),
	}}

	out, err := node.Process(ctx, core.NewRecommendContext(7), items(1, 2, 3, 4, 5))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := idsOf(out); !equalIDs(got, []int64{2, 5}) {
		t.Errorf("kept = %v, want [2 5]", got)
	}

	// 其他用户没有拉黑列表
	out, _ = node.Process(ctx, core.NewRecommendContext(8), items(4))
	if len(out) != 1 {
		t.Errorf("user 8 should keep item 4")
	}
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`item.score < 0.0`, false)
	if err != nil {
		t.Fatalf("NewExprFilter() error = %v", err)
	}
	in := items(1, 2, 3)
	in[0].Score = 0.5
	in[1].Score = -0.2
	in[2].Score = 0

	out, _ := (&FilterNode{Filters: []Filter{f}}).Process(context.Background(), core.NewRecommendContext(1), in)
	if got := idsOf(out); !equalIDs(got, []int64{1, 3}) {
		t.Errorf("kept = %v, want [1 3]", got)
	}

	keep, _ := NewExprFilter(`label.recall_source == "tfidf"`, true)
	in = items(1, 2)
	in[0].PutLabel("recall_source", utils.Label{Value: "tfidf", Source: "recall"})
	in[1].PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	out, _ = (&FilterNode{Filters: []Filter{keep}}).Process(context.Background(), nil, in)
	if got := idsOf(out); !equalIDs(got, []int64{1}) {
		t.Errorf("inverted filter kept %v, want [1]", got)
	}

	if _, err := NewExprFilter(`item.score +`, false); err == nil {
		t.Errorf("invalid expression should fail to compile")
	}
}
