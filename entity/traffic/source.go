// 排队车辆来源：为每个路口的四个进口方向模拟车辆到达与绿灯放行，并对排队数据做统计分析
package traffic

import (
	"math"

	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/randengine"
)

// Sensor 单个进口方向的检测器
type Sensor struct {
	Direction trafficlight.Direction
	Queue     int     // 当前排队车辆数
	Rate      float64 // 到达率（辆/秒），已乘以场景倍数
	Arrived   int     // 累计到达
	Departed  int     // 累计放行
}

// Source 路口的排队车辆来源
// 功能：每步按泊松分布生成到达车辆，绿灯方向按放行率离开
// 说明：非线程安全，每个路口独占一个Source
type Source struct {
	sensors   [trafficlight.NumDirections]Sensor
	discharge float64 // 绿灯方向放行率（辆/秒）
	maxQueue  int
	carry     float64                // 放行的小数部分
	carryDir  trafficlight.Direction // carry所属的方向
	generator *randengine.Engine
}

// NewSource 创建排队车辆来源
// 参数：junctionID-路口ID（与配置中的种子组合为随机种子），c-交通配置（已补全默认值）
func NewSource(junctionID int32, c config.Traffic) *Source {
	s := &Source{
		discharge: c.DischargeRate,
		maxQueue:  c.MaxQueue,
		carryDir:  trafficlight.None,
		generator: randengine.New(c.Seed*1000003 + uint64(junctionID)),
	}
	factor := c.Scenario.ArrivalFactor()
	for _, d := range trafficlight.Directions {
		s.sensors[d] = Sensor{
			Direction: d,
			Queue:     min(c.InitialQueue(d), s.maxQueue),
			Rate:      c.Rate(d) * factor,
		}
	}
	return s
}

// Density 当前各方向排队车辆数
func (s *Source) Density() trafficlight.Density {
	density := make(trafficlight.Density, trafficlight.NumDirections)
	for _, d := range trafficlight.Directions {
		density[d] = s.sensors[d].Queue
	}
	return density
}

// Sensors 各方向检测器的拷贝
func (s *Source) Sensors() [trafficlight.NumDirections]Sensor {
	return s.sensors
}

// Total 当前排队车辆总数
func (s *Source) Total() int {
	n := 0
	for _, sensor := range s.sensors {
		n += sensor.Queue
	}
	return n
}

// Advance 推进dt秒
// 功能：所有方向按到达率产生车辆（超过最大排队数的车辆被丢弃），绿灯方向放行
// 参数：dt-时间步长，green-绿灯方向（None表示无绿灯）
// 返回：本步到达与放行的车辆数
func (s *Source) Advance(dt float64, green trafficlight.Direction) (arrived, departed int) {
	for _, d := range trafficlight.Directions {
		sensor := &s.sensors[d]
		n := s.generator.Poisson(sensor.Rate * dt)
		if s.maxQueue > 0 {
			n = min(n, s.maxQueue-sensor.Queue)
		}
		sensor.Queue += n
		sensor.Arrived += n
		arrived += n
	}

	if green != s.carryDir {
		s.carry = 0
		s.carryDir = green
	}
	if !green.Valid() {
		return
	}
	s.carry += s.discharge * dt
	n := int(math.Floor(s.carry))
	s.carry -= float64(n)
	sensor := &s.sensors[green]
	n = min(n, sensor.Queue)
	sensor.Queue -= n
	sensor.Departed += n
	departed = n
	return
}
