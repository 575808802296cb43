// Package metrics 定义 TF-IDF 推荐的 Prometheus 指标。
// 指标注册在默认 Registry，由宿主服务决定是否暴露 /metrics。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ModelBuildDuration 模型构建耗时
	ModelBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "reckit",
		Subsystem: "tfidf",
		Name:      "model_build_duration_seconds",
		Help:      "Time spent building the TF-IDF model.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	// ModelItems 最近一次构建的物品数
	ModelItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reckit",
		Subsystem: "tfidf",
		Name:      "model_items",
		Help:      "Number of item vectors in the current TF-IDF model.",
	})

	// ModelTags 最近一次构建的标签数
	ModelTags = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "reckit",
		Subsystem: "tfidf",
		Name:      "model_tags",
		Help:      "Number of tags in the current TF-IDF vocabulary.",
	})

	// ScoreRequests 打分请求数，按结果区分
	ScoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reckit",
		Subsystem: "tfidf",
		Name:      "score_requests_total",
		Help:      "Number of per-user scoring requests.",
	}, []string{"result"})

	// UnscoredItems 不在模型中、按 0 分处理的候选物品数
	UnscoredItems = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "reckit",
		Subsystem: "tfidf",
		Name:      "unscored_items_total",
		Help:      "Candidate items absent from the model and scored as 0.",
	})
)

// ObserveBuild 记录一次成功构建。
func ObserveBuild(start time.Time, items, tags int) {
	ModelBuildDuration.Observe(time.Since(start).Seconds())
	ModelItems.Set(float64(items))
	ModelTags.Set(float64(tags))
}

// ObserveScore 记录一次打分请求。
func ObserveScore(err error, unscored int) {
	if err != nil {
		ScoreRequests.WithLabelValues("error").Inc()
		return
	}
	ScoreRequests.WithLabelValues("ok").Inc()
	if unscored > 0 {
		UnscoredItems.Add(float64(unscored))
	}
}
