package sparse

import (
	"math"
	"sort"
)

// MutableVector 是构建期使用的可增长稀疏向量，不是并发安全的。
type MutableVector struct {
	data map[int64]float64
}

// NewMutable 创建一个空的可变向量，sizeHint 为预估 key 数量。
func NewMutable(sizeHint int) *MutableVector {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &MutableVector{data: make(map[int64]float64, sizeHint)}
}

// Len 返回已设置的 key 数量。
func (m *MutableVector) Len() int { return len(m.data) }

// Set 设置权重。
func (m *MutableVector) Set(key int64, value float64) {
	m.data[key] = value
}

// Get 返回 key 对应的权重，未设置时返回 (0, false)。
func (m *MutableVector) Get(key int64) (float64, bool) {
	v, ok := m.data[key]
	return v, ok
}

// Contains 判断 key 是否已设置。
func (m *MutableVector) Contains(key int64) bool {
	_, ok := m.data[key]
	return ok
}

// Increment 为 key 累加 delta，未设置时从 0 开始。
func (m *MutableVector) Increment(key int64, delta float64) {
	m.data[key] += delta
}

// Clear 清空所有 key，复用底层存储。
func (m *MutableVector) Clear() {
	clear(m.data)
}

// Each 遍历所有 key（顺序不保证）。
func (m *MutableVector) Each(fn func(key int64, value float64)) {
	for k, v := range m.data {
		fn(k, v)
	}
}

// Transform 原地替换每个 key 的权重。
func (m *MutableVector) Transform(fn func(key int64, value float64) float64) {
	for k, v := range m.data {
		m.data[k] = fn(k, v)
	}
}

// Scale 原地乘以标量。
func (m *MutableVector) Scale(s float64) {
	for k, v := range m.data {
		m.data[k] = v * s
	}
}

// MultiplyElements 与另一个向量逐元素相乘，other 中缺失的 key 视为 0。
// 只修改本向量已有的 key，不会增加新 key。
func (m *MutableVector) MultiplyElements(other *MutableVector) {
	for k, v := range m.data {
		m.data[k] = v * other.data[k]
	}
}

// AddScaled 把 other * s 累加到本向量上（other 的 key 会被加入）。
func (m *MutableVector) AddScaled(other Vector, s float64) {
	for i, k := range other.keys {
		m.data[k] += other.values[i] * s
	}
}

// Norm 计算当前欧几里得范数。
func (m *MutableVector) Norm() float64 {
	var sum float64
	for _, v := range m.data {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Normalize 原地做 L2 归一化；范数为 0 时清空为零向量，避免除零。
func (m *MutableVector) Normalize() {
	n := m.Norm()
	if n == 0 {
		m.Clear()
		return
	}
	m.Scale(1 / n)
}

// Freeze 生成只读向量，只保留非零权重的 key。
// 之后对 m 的修改不会影响返回的向量。
func (m *MutableVector) Freeze() Vector {
	keys := make([]int64, 0, len(m.data))
	for k, v := range m.data {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	values := make([]float64, len(keys))
	for i, k := range keys {
		values[i] = m.data[k]
	}
	return Vector{keys: keys, values: values, norm: l2(values)}
}
