// 随机数引擎，包装了golang.org/x/exp/rand，提供排队车辆模拟所需的随机数生成方法
package randengine

import (
	"flag"
	"math"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供可复现的随机数生成功能
// 说明：基于golang.org/x/exp/rand库，同一种子（含偏移量）产生相同的序列；非线程安全，每个排队车辆来源独占一个引擎
type Engine struct {
	*rand.Rand // 底层随机数生成器
}

// New 创建随机数引擎
// 功能：初始化一个新的随机数引擎实例
// 参数：seed-随机数种子
// 返回：随机数引擎指针
// 说明：种子偏移量允许在不修改配置的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// Poisson 生成服从泊松分布的随机整数
// 功能：模拟一段时间内的到达车辆数
// 参数：lambda-期望值
// 返回：非负整数
// 算法说明：
// 1. lambda较小时使用Knuth乘积法
// 2. lambda较大时使用正态近似并截断到0
func (e *Engine) Poisson(lambda float64) int {
	if !(lambda > 0) {
		return 0
	}
	if lambda > 30 {
		n := math.Round(lambda + math.Sqrt(lambda)*e.NormFloat64())
		return int(max(n, 0))
	}
	l := math.Exp(-lambda)
	k := 0
	for p := e.Float64(); p > l; p *= e.Float64() {
		k++
	}
	return k
}
