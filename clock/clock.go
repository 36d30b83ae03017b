package clock

import (
	"fmt"
	"sync"

	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真系统的时间推进
// 说明：仿真循环推进时间，RPC读取时间，读写通过互斥锁保护
type Clock struct {
	clockv1connect.UnimplementedClockServiceHandler

	DT         float64 // 每个模拟步的时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步，模拟区间[START, END)

	mtx  sync.RWMutex
	step int32   // 当前步数
	t    float64 // 当前时间（秒）
}

// New 根据配置创建新的时钟实例
// 参数：stepConfig-控制步配置，包含起始步、总步数与时间间隔
// 返回：初始化完成的时钟实例
func New(stepConfig config.ControlStep) *Clock {
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置时钟到起始步
func (c *Clock) Init() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.step = c.START_STEP
	c.t = float64(c.step) * c.DT
}

// Advance 推进一步
// 返回：推进后的步数
func (c *Clock) Advance() int32 {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.step++
	c.t = float64(c.step) * c.DT
	return c.step
}

// Step 当前步数
func (c *Clock) Step() int32 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.step
}

// T 当前时间（秒）
func (c *Clock) T() float64 {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.t
}

// IsLastStep 下一步是否超出模拟区间
func (c *Clock) IsLastStep() bool {
	return c.Step()+1 >= c.END_STEP
}

// String 获取时钟的字符串表示（HH:MM:SS）
func (c *Clock) String() string {
	h, m, s := c.GetHourMinuteSecond()
	return fmt.Sprintf("%02d:%02d:%02d", h, m, int(s))
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.T()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
