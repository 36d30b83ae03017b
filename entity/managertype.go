package entity

import (
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// Manager依赖倒置

// entity/junction/manager.go的依赖倒置
type IJunctionManager interface {
	Init(ids []int32)                 // 初始化
	Register(sidecar *syncer.Sidecar) // 注册到Sidecar

	// 输入Junction ID，查找Junction，如果不存在则panic
	Get(id int32) IJunction
	// 输入Junction ID，查找Junction，如果不存在则返回error
	GetOrError(id int32) (IJunction, error)
	// 所有Junction ID（升序）
	IDs() []int32

	// 控制指令，写入路口的指令缓冲区，在下一步准备阶段生效
	RequestEmergency(id int32, d trafficlight.Direction) error
	RequestPedestrian(id int32) (bool, error)
	SetWeather(id int32, enabled bool) error

	Prepare()                      // 准备阶段
	Update(dt float64)             // 更新阶段
	Snapshots() []JunctionSnapshot // 产生所有Junction的输出
}
