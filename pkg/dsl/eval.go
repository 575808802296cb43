package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/reckit-tfidf/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once

	// programs 缓存已编译的表达式
	programs sync.Map
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的 Label DSL 表达式，线程安全，可并发 Eval。
//
// 表达式使用 CEL (Common Expression Language) 语法：
//   - 标签：label.recall_source == "tfidf" / label.tfidf_unscored == "true"
//   - 数值：item.score > 0.3 / item.id != 42
//   - 用户：rctx.user.rating_count > 0 / rctx.scene == "home"
//   - 存在性："top_tag" in label
//   - 包含：label.recall_source.contains("hot")
//
// 访问不存在的 key 会返回错误，需要先用 in 判断。
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，结果必须是 bool。
func Compile(expr string) (*Program, error) {
	if cached, ok := programs.Load(expr); ok {
		return cached.(*Program), nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %s", expr, t)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	p := &Program{expr: expr, prg: prg}
	programs.Store(expr, p)
	return p, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Eval 对单个物品求值。
func (p *Program) Eval(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return boolean, got %T", p.expr, out.Value())
	}
	return result, nil
}

// Eval 绑定单个物品与请求上下文的解释器，便于在节点内按需执行多个表达式。
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
}

// NewEval 创建一个新的 DSL 解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	return &Eval{item: item, rctx: rctx}
}

// Evaluate 编译（带缓存）并执行表达式，空表达式视为 true。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	p, err := Compile(expr)
	if err != nil {
		return false, err
	}
	return p.Eval(e.item, e.rctx)
}

// buildInput 构建 CEL 表达式的输入数据
func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	item := map[string]any{}
	if it != nil {
		for k, v := range it.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelValues[k] = v.Value
		}
		item["id"] = it.ID
		item["score"] = it.Score
		item["meta"] = nonNil(it.Meta)
		item["labels"] = labels
	}

	rc := map[string]any{}
	if rctx != nil {
		userLabels := make(map[string]any, len(rctx.Labels))
		for k, v := range rctx.Labels {
			userLabels[k] = v.Value
		}
		rc["user_id"] = rctx.UserID
		rc["scene"] = rctx.Scene
		rc["params"] = nonNil(rctx.Params)
		rc["labels"] = userLabels
		if u := rctx.User; u != nil {
			rc["user"] = map[string]any{
				"rating_count": int64(u.RatingCount),
				"mean_rating":  u.MeanRating,
				"prefer_tags":  u.PreferTags,
			}
		}
	}

	return map[string]any{
		"item":  item,
		"label": labelValues,
		"rctx":  rc,
	}
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
