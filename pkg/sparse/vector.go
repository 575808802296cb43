// Package sparse 提供推荐计算使用的稀疏向量（key -> weight）。
//
// 两种形态：
//   - MutableVector：构建期使用，可增长、可原地修改
//   - Vector：冻结后的只读向量，key 有序紧凑存储，可被多个 goroutine 并发读取
//
// 未出现的 key 视为 0。
package sparse

import (
	"math"
	"sort"
)

// Vector 是冻结（只读）的稀疏向量。
// keys 严格递增，values 与 keys 一一对应；冻结后 key 集合不再变化。
type Vector struct {
	keys   []int64
	values []float64
	norm   float64
}

// Empty 返回零向量。
func Empty() Vector {
	return Vector{}
}

// FromMap 由 map 直接构建冻结向量（等价于 NewMutable + Set + Freeze）。
func FromMap(m map[int64]float64) Vector {
	mv := NewMutable(len(m))
	for k, v := range m {
		mv.Set(k, v)
	}
	return mv.Freeze()
}

// FromSorted 用已排序的 keys/values 构建向量，供反序列化使用。
// keys 必须严格递增，否则返回 false。
func FromSorted(keys []int64, values []float64) (Vector, bool) {
	if len(keys) != len(values) {
		return Vector{}, false
	}
	for i := 1; i < len(keys); i++ {
		if keys[i] <= keys[i-1] {
			return Vector{}, false
		}
	}
	v := Vector{
		keys:   append([]int64(nil), keys...),
		values: append([]float64(nil), values...),
	}
	v.norm = l2(v.values)
	return v, true
}

// Len 返回已设置的 key 数量。
func (v Vector) Len() int { return len(v.keys) }

// IsZero 判断是否为零向量（范数为 0）。
func (v Vector) IsZero() bool { return v.norm == 0 }

// Norm 返回欧几里得范数（冻结时已计算）。
func (v Vector) Norm() float64 { return v.norm }

// Get 返回 key 对应的权重，未设置时返回 (0, false)。
func (v Vector) Get(key int64) (float64, bool) {
	i := sort.Search(len(v.keys), func(i int) bool { return v.keys[i] >= key })
	if i < len(v.keys) && v.keys[i] == key {
		return v.values[i], true
	}
	return 0, false
}

// Keys 返回有序 key 列表的副本。
func (v Vector) Keys() []int64 {
	return append([]int64(nil), v.keys...)
}

// Values 返回与 Keys 对应的权重副本。
func (v Vector) Values() []float64 {
	return append([]float64(nil), v.values...)
}

// Each 按 key 升序遍历。
func (v Vector) Each(fn func(key int64, value float64)) {
	for i, k := range v.keys {
		fn(k, v.values[i])
	}
}

// Sum 返回所有权重之和。
func (v Vector) Sum() float64 {
	var s float64
	for _, x := range v.values {
		s += x
	}
	return s
}

// Dot 计算点积，只有两个向量都存在的 key 参与计算。
func (v Vector) Dot(other Vector) float64 {
	var (
		result float64
		i, j   int
	)
	for i < len(v.keys) && j < len(other.keys) {
		switch {
		case v.keys[i] == other.keys[j]:
			result += v.values[i] * other.values[j]
			i++
			j++
		case v.keys[i] < other.keys[j]:
			i++
		default:
			j++
		}
	}
	return result
}

// MutableCopy 返回一个可修改的副本。
func (v Vector) MutableCopy() *MutableVector {
	mv := NewMutable(len(v.keys))
	for i, k := range v.keys {
		mv.data[k] = v.values[i]
	}
	return mv
}

// ToMap 返回 map 形式的副本。
func (v Vector) ToMap() map[int64]float64 {
	out := make(map[int64]float64, len(v.keys))
	for i, k := range v.keys {
		out[k] = v.values[i]
	}
	return out
}

func l2(values []float64) float64 {
	var sum float64
	for _, x := range values {
		sum += x * x
	}
	return math.Sqrt(sum)
}
