package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rushteam/reckit-tfidf/pkg/utils"
)

func TestDomainError(t *testing.T) {
	base := NewDomainErrorf(ModuleTFIDF, ErrorCodeDataInconsistency, "tag %q not in vocabulary", "ghost")
	wrapped := fmt.Errorf("build: %w", base)

	tests := []struct {
		name  string
		check func(error) bool
		want  bool
	}{
		{name: "IsDataInconsistency", check: IsDataInconsistency, want: true},
		{name: "IsInvalidInput", check: IsInvalidInput, want: false},
		{name: "IsStoreNotFound", check: IsStoreNotFound, want: false},
		{name: "IsDomainError", check: IsDomainError, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(wrapped); got != tt.want {
				t.Errorf("%s(wrapped) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	if !errors.Is(wrapped, &DomainError{Module: ModuleTFIDF, Code: ErrorCodeDataInconsistency}) {
		t.Errorf("errors.Is should match on module and code")
	}
	if errors.Is(wrapped, ErrStoreNotFound) {
		t.Errorf("errors.Is should not match a different code")
	}
	if GetDomainError(errors.New("plain")) != nil || IsNotFound(nil) {
		t.Errorf("plain errors are not domain errors")
	}
	if !IsStoreNotFound(fmt.Errorf("load: %w", ErrStoreNotFound)) {
		t.Errorf("IsStoreNotFound(wrapped ErrStoreNotFound) = false")
	}
}

func TestUserProfile_TopTags(t *testing.T) {
	p := NewUserProfile(1)
	p.PreferTags = map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9, "d": -1}

	got := p.TopTags(3)
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TopTags(3) = %v, want %v", got, want)
		}
	}
	if all := p.TopTags(0); len(all) != 4 || all[3] != "d" {
		t.Errorf("TopTags(0) = %v", all)
	}
	if p.GetTagWeight("missing") != 0 || p.HasRated(1) {
		t.Errorf("empty profile lookups should be zero")
	}
}

func TestRating_HasPreference(t *testing.T) {
	if !(Rating{Value: 0}).HasPreference() {
		t.Errorf("a zero rating is still a preference")
	}
	if (Rating{Value: 5, Retracted: true}).HasPreference() {
		t.Errorf("a retracted rating carries no preference")
	}
}

func TestItemLabels(t *testing.T) {
	it := &Item{ID: 1}
	it.PutLabel("recall_source", utils.Label{Value: "tfidf", Source: "recall"})
	it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	if got := it.Labels["recall_source"].Value; got != "tfidf|hot" {
		t.Errorf("merged label = %q, want tfidf|hot", got)
	}
	it.SetLabel("tfidf_score", utils.FloatLabel(0.5, "recall"))
	it.SetLabel("tfidf_score", utils.FloatLabel(0.25, "rank"))
	if got := it.Labels["tfidf_score"].Value; got != "0.250000" {
		t.Errorf("SetLabel should overwrite, got %q", got)
	}

	ids := ItemIDs([]*Item{NewItem(3), nil, NewItem(1)})
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 1 {
		t.Errorf("ItemIDs() = %v, want [3 1]", ids)
	}

	rctx := NewRecommendContext(9)
	rctx.PutLabel("segment", utils.Label{Value: "new", Source: "profile"})
	if lbl, ok := rctx.GetLabel("segment"); !ok || lbl.Value != "new" {
		t.Errorf("GetLabel() = %+v, %v", lbl, ok)
	}
}
