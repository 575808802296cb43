package filter

import (
	"context"

	"github.com/rushteam/reckit-tfidf/core"
	"github.com/rushteam/reckit-tfidf/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤物品：表达式为 true 时过滤（Invert 为 true 时反过来，只保留命中的）。
//
//	item.score < 0                         // 过滤负相关物品
//	label.tfidf_unscored == "true"         // 过滤模型外的物品
type ExprFilter struct {
	Expr   string
	Invert bool

	prg *dsl.Program
}

// NewExprFilter 编译表达式并创建过滤器。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Expr: expr, Invert: invert, prg: prg}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	prg := f.prg
	if prg == nil {
		var err error
		if prg, err = dsl.Compile(f.Expr); err != nil {
			return false, err
		}
	}
	hit, err := prg.Eval(item, rctx)
	if err != nil {
		return false, err
	}
	return hit != f.Invert, nil
}
