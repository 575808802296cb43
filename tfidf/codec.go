package tfidf

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/sparse"
)

// modelJSON 是模型的持久化格式：
//
//	{"tags": {"comedy": 1, ...}, "items": {"42": {"keys": [1, 3], "values": [0.6, 0.8]}}}
type modelJSON struct {
	Tags  map[string]int64     `json:"tags"`
	Items map[int64]vectorJSON `json:"items"`
}

type vectorJSON struct {
	Keys   []int64   `json:"keys"`
	Values []float64 `json:"values"`
}

// MarshalJSON 实现 json.Marshaler。
func (m *Model) MarshalJSON() ([]byte, error) {
	raw := modelJSON{
		Tags:  m.tagIDs,
		Items: make(map[int64]vectorJSON, len(m.items)),
	}
	for id, v := range m.items {
		raw.Items[id] = vectorJSON{Keys: v.Keys(), Values: v.Values()}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON 实现 json.Unmarshaler；物品向量引用了未知标签 ID 时返回 DATA_INCONSISTENCY。
func (m *Model) UnmarshalJSON(data []byte) error {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	tagIDs := raw.Tags
	if tagIDs == nil {
		tagIDs = make(map[string]int64)
	}
	known := make(map[int64]struct{}, len(tagIDs))
	for _, id := range tagIDs {
		known[id] = struct{}{}
	}

	items := make(map[int64]sparse.Vector, len(raw.Items))
	for id, vj := range raw.Items {
		v, ok := sparse.FromSorted(vj.Keys, vj.Values)
		if !ok {
			return core.NewDomainErrorf(core.ModuleTFIDF, core.ErrorCodeDataInconsistency,
				"tfidf: malformed vector for item %d", id)
		}
		for _, k := range vj.Keys {
			if _, ok := known[k]; !ok {
				return core.NewDomainErrorf(core.ModuleTFIDF, core.ErrorCodeDataInconsistency,
					"tfidf: item %d references unknown tag id %d", id, k)
			}
		}
		items[id] = v
	}
	*m = *newModel(tagIDs, items)
	return nil
}

// SaveModel 把模型写入 Store。
func SaveModel(ctx context.Context, s core.Store, key string, m *Model) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("tfidf: encode model: %w", err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return fmt.Errorf("tfidf: save model to %s: %w", s.Name(), err)
	}
	return nil
}

// LoadModel 从 Store 读取模型；key 不存在时返回的错误满足 core.IsStoreNotFound。
func LoadModel(ctx context.Context, s core.Store, key string) (*Model, error) {
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("tfidf: load model from %s: %w", s.Name(), err)
	}
	m := &Model{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("tfidf: decode model: %w", err)
	}
	return m, nil
}
