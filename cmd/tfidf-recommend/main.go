// Command tfidf-recommend 从 CSV 加载标签与评分，构建 TF-IDF 模型并为用户生成推荐。
//
//	tfidf-recommend -config app.yaml -users 1,2 -n 10
//	tfidf-recommend -config app.yaml -users 1 -items 10,20,30   # 只为指定物品打分
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/reckit-tfidf/config"
	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/dao"
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/pkg/logging"
	"github.com/rushteam/reckit-tfidf/rerank"
	"github.com/rushteam/reckit-tfidf/store"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		logging.Err(err).Msg("tfidf-recommend failed")
		os.Exit(1)
	}
}

type options struct {
	configPath string
	users      []int64
	items      []int64
	n          int
	loadModel  bool
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("tfidf-recommend", flag.ContinueOnError)
	var (
		opts  options
		users string
		items string
	)
	fs.StringVar(&opts.configPath, "config", "", "YAML 配置文件路径，为空时使用默认配置")
	fs.StringVar(&users, "users", "", "逗号分隔的用户 ID，为空时为全部有评分的用户推荐")
	fs.StringVar(&items, "items", "", "逗号分隔的物品 ID；指定时只为这些物品打分")
	fs.IntVar(&opts.n, "n", 0, "每个用户的推荐数，0 表示使用配置")
	fs.BoolVar(&opts.loadModel, "load", false, "优先从 Store 读取已保存的模型")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	var err error
	if opts.users, err = parseIDs(users); err != nil {
		return nil, fmt.Errorf("-users: %w", err)
	}
	if opts.items, err = parseIDs(items); err != nil {
		return nil, fmt.Errorf("-items: %w", err)
	}
	return &opts, nil
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, core.NewDomainErrorf(core.ModuleDAO, core.ErrorCodeInvalidInput, "invalid id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	logging.Init(cfg.Log)
	log := logging.Component("cmd")

	mem, err := dao.LoadCSV(cfg.Data.TagsPath, cfg.Data.RatingsPath)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Config)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		items  core.ItemTagDAO   = mem
		events core.UserEventDAO = mem
	)
	if cfg.Store.Import {
		sd := dao.NewStoreDAO(st, cfg.Store.KeyPrefix)
		n, err := sd.Import(ctx, mem, cfg.Store.TTL)
		if err != nil {
			return err
		}
		log.Info().Int("keys", n).Str("store", st.Name()).Msg("data imported")
		items, events = sd, sd
	}

	model, err := loadOrBuild(ctx, opts.loadModel, st, cfg.Store.ModelKey, items)
	if err != nil {
		return err
	}
	scorer := tfidf.NewItemScorer(model, events)

	users := opts.users
	if len(users) == 0 {
		users = mem.UserIDs()
	}

	if opts.items != nil {
		return scoreItems(ctx, out, scorer, users, opts.items, cfg.Scoring.Concurrency)
	}

	factory := config.NewFactory(config.Resources{Scorer: scorer, Events: events, Store: st})
	p, err := cfg.Pipeline.BuildPipeline(factory)
	if err != nil {
		return err
	}
	n := opts.n
	if n <= 0 {
		n = cfg.Scoring.TopK
	}
	if n > 0 {
		p.Nodes = append(p.Nodes, &rerank.TopNNode{N: n})
	}
	return recommend(ctx, out, p, users, cfg.Scoring.Concurrency)
}

// loadOrBuild 按需从 Store 读取模型；读取不到时重新构建并保存。
func loadOrBuild(ctx context.Context, load bool, st core.Store, key string, items core.ItemTagDAO) (*tfidf.Model, error) {
	log := logging.Component("cmd")
	if load {
		m, err := tfidf.LoadModel(ctx, st, key)
		if err == nil {
			log.Info().Str("key", key).Int("items", m.ItemCount()).Msg("model loaded")
			return m, nil
		}
		if !core.IsStoreNotFound(err) {
			return nil, err
		}
		log.Info().Str("key", key).Msg("no saved model, building")
	}

	m, err := tfidf.Build(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := tfidf.SaveModel(ctx, st, key, m); err != nil {
		return nil, err
	}
	return m, nil
}

func scoreItems(ctx context.Context, out io.Writer, s *tfidf.ItemScorer, users, items []int64, concurrency int) error {
	scores, err := s.ScoreUsers(ctx, users, items, concurrency)
	if err != nil {
		return err
	}
	for _, uid := range users {
		for _, r := range tfidf.TopN(scores[uid], 0) {
			fmt.Fprintf(out, "user=%d item=%d score=%.6f\n", uid, r.ItemID, r.Score)
		}
	}
	return nil
}

func recommend(ctx context.Context, out io.Writer, p *pipeline.Pipeline, users []int64, concurrency int) error {
	if concurrency <= 0 {
		concurrency = (&core.DefaultRecallConfig{}).DefaultConcurrency()
	}
	results := make([][]*core.Item, len(users))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for i, uid := range users {
		eg.Go(func() error {
			items, err := p.Run(egCtx, core.NewRecommendContext(uid), nil)
			if err != nil {
				return fmt.Errorf("user %d: %w", uid, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for i, uid := range users {
		for rank, it := range results[i] {
			fmt.Fprintf(out, "user=%d rank=%d item=%d score=%.6f", uid, rank+1, it.ID, it.Score)
			if tag, ok := it.Labels["top_tag"]; ok {
				fmt.Fprintf(out, " top_tag=%s", tag.Value)
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}
