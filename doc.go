// Package reckit 是一个基于标签 TF-IDF 的内容推荐工具包。
//
// 设计要点：
// - Model-first: tfidf.Build 从物品标签构建只读的 TF-IDF 模型，打分无锁并发
// - Pipeline-first: 推荐逻辑通过 Node 串联（Recall → Filter → Rank → ReRank）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
package reckit

import (
	"github.com/rushteam/reckit-tfidf/pipeline"
	"github.com/rushteam/reckit-tfidf/tfidf"
)

// 轻量 facade：便于用户直接 import 根包使用核心抽象。
type (
	Pipeline = pipeline.Pipeline
	Node     = pipeline.Node
	Kind     = pipeline.Kind

	Model      = tfidf.Model
	ItemScorer = tfidf.ItemScorer
)

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)

// Build 是 tfidf.Build 的别名。
var Build = tfidf.Build
