package config

import (
	"fmt"
	"time"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/filter"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/conv"
	"github.com/rushteam/reckit-tfidf/rank"
	"github.com/rushteam/reckit-tfidf/recall"
	"github.com/rushteam/reckit-tfidf/rerank"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

// Resources 是构建 Node 时需要注入的运行期依赖。
type Resources struct {
	Scorer *tfidf.ItemScorer
	Events core.UserEventDAO

	// Store 供 recall.hot、blacklist、user_block 读取 ID 列表，可为 nil
	Store core.Store

	RecallConfig core.RecallConfig
}

// NewFactory 返回一个包含全部内置 Node 与自定义注册 Node 的工厂。
func NewFactory(res Resources) *pipeline.NodeFactory {
	b := &builders{res: res}
	factory := pipeline.NewNodeFactory()

	factory.Register("recall.tfidf", b.tfidfRecall)
	factory.Register("recall.hot", b.hot)
	factory.Register("recall.fanout", b.fanout)
	factory.Register("filter", b.filter)
	factory.Register("rank.tfidf", b.tfidfRank)
	factory.Register("rerank.topn", buildTopNNode)
	factory.Register("rerank.diversity", buildDiversityNode)

	registerCustom(factory)
	return factory
}

type builders struct {
	res Resources
}

func (b *builders) requireScorer(nodeType string) error {
	if b.res.Scorer == nil {
		return fmt.Errorf("%s: tfidf scorer not provided", nodeType)
	}
	return nil
}

// scorer 按节点配置的 profile / like_threshold 返回打分器；未配置时直接使用共享的 Scorer。
func (b *builders) scorer(nodeType string, cfg map[string]any) (*tfidf.ItemScorer, error) {
	if err := b.requireScorer(nodeType); err != nil {
		return nil, err
	}
	_, hasProfile := cfg["profile"]
	_, hasThreshold := cfg["like_threshold"]
	if !hasProfile && !hasThreshold {
		return b.res.Scorer, nil
	}
	strategy, err := tfidf.ParseProfileStrategy(conv.ConfigGet(cfg, "profile", string(b.res.Scorer.Strategy)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", nodeType, err)
	}
	threshold := conv.ConfigGetFloat64(cfg, "like_threshold", b.res.Scorer.LikeThreshold)
	if threshold < 0 {
		return nil, fmt.Errorf("%s: like_threshold must be >= 0, got %v", nodeType, threshold)
	}
	return b.res.Scorer.WithProfile(strategy, threshold), nil
}

func (b *builders) newTFIDFRecall(cfg map[string]any) (*recall.TFIDF, error) {
	s, err := b.scorer("recall.tfidf", cfg)
	if err != nil {
		return nil, err
	}
	return &recall.TFIDF{
		Scorer:       s,
		TopK:         int(conv.ConfigGetInt64(cfg, "top_k", 0)),
		ExcludeRated: conv.ConfigGet(cfg, "exclude_rated", false),
		Config:       b.res.RecallConfig,
	}, nil
}

func (b *builders) tfidfRecall(cfg map[string]any) (pipeline.Node, error) {
	r, err := b.newTFIDFRecall(cfg)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (b *builders) newHot(cfg map[string]any) *recall.Hot {
	return &recall.Hot{
		Store: b.res.Store,
		Key:   conv.ConfigGet(cfg, "key", ""),
		IDs:   conv.SliceAnyToInt64(cfg["ids"]),
	}
}

func (b *builders) hot(cfg map[string]any) (pipeline.Node, error) {
	return b.newHot(cfg), nil
}

func (b *builders) fanout(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}

	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			continue
		}
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "tfidf":
			src, err := b.newTFIDFRecall(sourceMap)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		case "hot":
			sources = append(sources, b.newHot(sourceMap))
		default:
			return nil, fmt.Errorf("unknown source type: %s", sourceType)
		}
	}

	fanout := &recall.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet(cfg, "dedup", true),
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	switch strategy := conv.ConfigGet(cfg, "merge_strategy", ""); strategy {
	case "priority":
		fanout.MergeStrategy = &recall.PriorityMergeStrategy{}
	case "union":
		fanout.MergeStrategy = &recall.UnionMergeStrategy{}
	case "", "first":
		fanout.MergeStrategy = &recall.FirstMergeStrategy{}
	default:
		return nil, fmt.Errorf("unknown merge strategy: %s", strategy)
	}
	return fanout, nil
}

func (b *builders) filter(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}

	var adapter *filter.StoreAdapter
	if b.res.Store != nil {
		adapter = filter.NewStoreAdapter(b.res.Store)
	}

	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "rated":
			filters = append(filters, filter.NewRatedFilter(b.res.Events))
		case "blacklist":
			ids := conv.SliceAnyToInt64(filterMap["item_ids"])
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklistFilter(ids, adapter, key))
		case "user_block":
			keyPrefix := conv.ConfigGet(filterMap, "key_prefix", "")
			filters = append(filters, filter.NewUserBlockFilter(adapter, keyPrefix))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""), conv.ConfigGet(filterMap, "invert", false))
			if err != nil {
				return nil, err
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}

	return &filter.FilterNode{Filters: filters}, nil
}

func (b *builders) tfidfRank(cfg map[string]any) (pipeline.Node, error) {
	s, err := b.scorer("rank.tfidf", cfg)
	if err != nil {
		return nil, err
	}
	return &rank.TFIDFNode{Scorer: s}, nil
}

func buildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: int(conv.ConfigGetInt64(cfg, "n", 0))}, nil
}

func buildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		LabelKey:  conv.ConfigGet(cfg, "label_key", "top_tag"),
		MaxPerKey: int(conv.ConfigGetInt64(cfg, "max_per_key", 1)),
		Drop:      conv.ConfigGet(cfg, "drop", false),
	}, nil
}
