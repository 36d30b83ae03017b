package junction

import (
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// 依赖倒置，表达junction对信号灯实现的接口需求

// 信号灯接口
type ITrafficLight interface {
	Tick(elapsed float64, density trafficlight.Density) (trafficlight.State, error) // 推进信号灯并返回状态
	State() trafficlight.State                                                      // 当前状态

	RequestEmergency(d trafficlight.Direction) error // 紧急车辆请求
	RequestPedestrian() bool                         // 行人过街请求，紧急模式下返回false
	SetWeather(enabled bool)                         // 设置恶劣天气修饰
}
