package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/reckit-tfidf/core"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链：Recall -> Filter -> Rank -> ReRank。
type Pipeline struct {
	Name  string
	Nodes []Node
}

// Run 依次执行各个 Node，任一 Node 出错即中止。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		cur = next
	}
	return cur, nil
}
