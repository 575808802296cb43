package sparse

import "math"

// Similarity 计算两个向量的相似度。
type Similarity interface {
	Name() string
	Similarity(a, b Vector) float64
}

// CosineSimilarity 是余弦相似度：dot(a, b) / (|a| * |b|)。
// 任一向量范数为 0 时结果为 0。
type CosineSimilarity struct{}

func (CosineSimilarity) Name() string { return "cosine" }

func (CosineSimilarity) Similarity(a, b Vector) float64 {
	return Cosine(a, b)
}

// Cosine 计算余弦相似度，结果截断在 [-1, 1]。
// 向量中含 NaN/Inf 导致结果不是数值时返回 0。
func Cosine(a, b Vector) float64 {
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	c := a.Dot(b) / (a.norm * b.norm)
	if math.IsNaN(c) {
		return 0
	}
	// 浮点误差可能略超出范围
	if c > 1 {
		return 1
	}
	if c < -1 {
		return -1
	}
	return c
}

var _ Similarity = CosineSimilarity{}
