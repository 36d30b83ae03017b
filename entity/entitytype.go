package entity

import (
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/traffic"
)

// JunctionSnapshot 路口在一个仿真步结束时的状态
// 说明：由路口在更新阶段生成，供RPC、输出与统计读取
type JunctionSnapshot struct {
	ID        int32              // 路口ID
	Step      int32              // 仿真步
	T         float64            // 仿真时间（秒）
	Signal    trafficlight.State // 信号灯状态
	Analytics traffic.Analytics  // 排队统计
	Arrived   int                // 本步到达车辆数
	Departed  int                // 本步放行车辆数

	// 累计计数
	Emergencies int // 已执行的紧急车辆请求
	Pedestrians int // 已接受的行人请求
	Refused     int // 因紧急模式被拒绝的行人请求
	Failures    int // 输入非法导致的tick失败
}

// entity/junction/junction.go的依赖倒置
type IJunction interface {
	ID() int32                  // 获取路口ID
	Snapshot() JunctionSnapshot // 获取最近一步的状态
}
