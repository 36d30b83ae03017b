// 提供基于优先级得分的信号灯控制算法
// 每个绿灯相位结束后按排队车辆数与等待时间为各进口方向打分，选取得分最高的方向放行，
// 并支持紧急车辆 > 行人 > 正常 的抢占层级以及恶劣天气修饰
package trafficlight

import (
	"errors"
	"fmt"
	"math"

	"github.com/tsinghua-fib-lab/trafficsignal/utils/container"
)

var (
	ErrInvalidInput  = errors.New("trafficlight: invalid input")
	ErrInvalidTiming = errors.New("trafficlight: invalid timing")
)

// maxPhaseChanges 单次Tick中最多执行的决策次数
const maxPhaseChanges = 10000

// SignalController 单路口优先级信号灯控制器
// 功能：每个tick推进相位计时，相位结束时执行决策，输出各方向信号灯颜色
// 说明：非线程安全，所有方法应由同一个调用方（仿真循环）顺序调用
type SignalController struct {
	timing Timing

	mode    Mode
	weather bool

	phase     Phase
	active    Direction // 绿灯或黄灯的方向
	next      Direction // 黄灯结束后放行的方向（正常模式预先选定）
	remaining float64   // 当前相位剩余时间
	total     float64   // 当前相位总时长
	repeat    int       // 当前方向连续获得绿灯的次数
	grants    int

	density [NumDirections]int
	wait    [NumDirections]float64
	scores  [NumDirections]float64
}

// NewSignalController 创建优先级信号灯控制器
// 功能：初始状态为全红、正常模式，第一次Tick时立即决策
// 参数：t-时间与权重参数
// 返回：控制器，参数非法时返回ErrInvalidTiming
func NewSignalController(t Timing) (*SignalController, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &SignalController{
		timing: t,
		mode:   NormalMode(),
		phase:  PhaseAllRed,
		active: None,
		next:   None,
	}, nil
}

// Tick 推进控制器
// 功能：按elapsed推进计时，期间每个到期的相位都执行一次决策（一次调用可跨越多个相位）
// 参数：elapsed-经过的时间（秒），density-各方向排队车辆数
// 返回：推进后的状态快照；输入非法时返回ErrInvalidInput且不修改任何状态
func (c *SignalController) Tick(elapsed float64, density Density) (State, error) {
	counts, err := checkInput(elapsed, density)
	if err != nil {
		return c.State(), err
	}
	c.density = counts
	for changes := 0; ; changes++ {
		step := min(elapsed, max(c.remaining, 0))
		c.elapse(step)
		elapsed -= step
		if c.remaining > 0 {
			break
		}
		if changes == maxPhaseChanges {
			// elapsed过大时相位时长可能小于其舍入误差，剩余时间不再减少
			log.Warnf("%d phase changes in one tick, drop remaining %.2fs", changes, elapsed)
			break
		}
		c.decide()
	}
	return c.State(), nil
}

// RequestEmergency 紧急车辆请求
// 功能：切换到紧急模式。其他方向的绿灯立即转黄，进行中的黄灯先走完（黄灯方向即目标方向时再全红Clearance秒）；
// 全红（启动或行人相位）时目标方向立即获得绿灯。目标方向保持绿灯EmergencyGrant秒后恢复正常模式
func (c *SignalController) RequestEmergency(d Direction) error {
	if !d.Valid() {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidInput, d)
	}
	log.Infof("emergency requested for %v (mode %v, phase %v)", d, c.mode, c.phase)
	c.mode = EmergencyMode(d)
	switch c.phase {
	case PhaseGreen:
		if c.active == d {
			c.startGreen(d, c.timing.EmergencyGrant)
		} else {
			c.startYellow(None)
		}
	case PhaseYellow:
		c.next = None
	default:
		c.startGreen(d, c.timing.EmergencyGrant)
	}
	return nil
}

// RequestPedestrian 行人过街请求
// 功能：切换到行人模式。绿灯立即转黄，黄灯结束后全红PedestrianDuration秒，然后恢复正常模式
// 返回：紧急模式下请求被拒绝返回false
func (c *SignalController) RequestPedestrian() bool {
	switch c.mode.Kind {
	case ModeEmergency:
		log.Debugf("pedestrian request ignored during %v", c.mode)
		return false
	case ModePedestrian:
		return true
	}
	log.Infof("pedestrian requested (phase %v)", c.phase)
	c.mode = PedestrianMode()
	switch c.phase {
	case PhaseGreen:
		c.startYellow(None)
	case PhaseYellow:
		c.next = None
	default:
		c.startPedestrian()
	}
	return true
}

// SetWeather 设置恶劣天气修饰
// 说明：不改变当前相位，只影响之后的得分与时长
func (c *SignalController) SetWeather(enabled bool) {
	if c.weather != enabled {
		log.Infof("weather modifier %v", enabled)
	}
	c.weather = enabled
}

// State 获取当前状态快照
func (c *SignalController) State() State {
	s := State{
		Active:    None,
		Phase:     c.phase,
		Remaining: max(c.remaining, 0),
		Total:     c.total,
		Mode:      c.mode,
		Weather:   c.weather,
		Scores:    c.scores,
		WaitTimes: c.wait,
		Density:   c.density,
		Grants:    c.grants,
	}
	switch c.phase {
	case PhaseGreen:
		s.Active = c.active
		s.Colors[c.active] = Green
	case PhaseYellow:
		s.Active = c.active
		s.Colors[c.active] = Yellow
	}
	return s
}

func checkInput(elapsed float64, density Density) (counts [NumDirections]int, err error) {
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed < 0 {
		return counts, fmt.Errorf("%w: elapsed time %v", ErrInvalidInput, elapsed)
	}
	for d, n := range density {
		if !d.Valid() {
			return counts, fmt.Errorf("%w: unknown direction %d", ErrInvalidInput, d)
		}
		if n < 0 {
			return counts, fmt.Errorf("%w: negative density %d for %v", ErrInvalidInput, n, d)
		}
	}
	for _, d := range Directions {
		n, ok := density[d]
		if !ok {
			return counts, fmt.Errorf("%w: missing density for %v", ErrInvalidInput, d)
		}
		counts[d] = n
	}
	return counts, nil
}

// elapse 时间流逝，非绿灯方向累计等待时间
func (c *SignalController) elapse(dt float64) {
	if dt <= 0 {
		return
	}
	c.remaining -= dt
	for _, d := range Directions {
		if c.phase == PhaseGreen && c.active == d {
			continue
		}
		c.wait[d] += dt
	}
}

// decide 当前相位到期后的决策
// 顺序：绿灯 -> （同方向延长 | 黄灯） -> 下一绿灯 / 行人全红
func (c *SignalController) decide() {
	if c.phase != PhaseGreen {
		c.afterYellowOrRed()
		return
	}
	switch c.mode.Kind {
	case ModeEmergency:
		if c.active != c.mode.Target {
			c.startYellow(None)
			return
		}
		log.Infof("emergency grant for %v expired, back to normal", c.active)
		c.mode = NormalMode()
	case ModePedestrian:
		c.startYellow(None)
		return
	}
	winner, runnerUp := c.rank()
	if winner == c.active {
		if c.repeat < c.timing.MaxRepeatCount {
			// 得分最高的仍是当前方向，不经黄灯直接延长
			c.repeat++
			c.grants++
			c.wait[winner] = 0
			c.remaining = c.timing.GreenDuration(c.density[winner], c.weather)
			c.total = c.remaining
			log.Debugf("extend green %v (%d/%d)", winner, c.repeat, c.timing.MaxRepeatCount)
			return
		}
		winner = runnerUp
	}
	c.startYellow(winner)
}

func (c *SignalController) afterYellowOrRed() {
	expired := c.phase
	switch c.mode.Kind {
	case ModeEmergency:
		if expired == PhaseYellow && c.active == c.mode.Target {
			// 目标方向刚走完黄灯，先全红清空再放行
			c.startClearance()
			return
		}
		c.startGreen(c.mode.Target, c.timing.EmergencyGrant)
	case ModePedestrian:
		if expired != PhasePedestrian {
			c.startPedestrian()
			return
		}
		log.Infof("pedestrian phase finished, back to normal")
		c.mode = NormalMode()
		c.grantWinner()
	default:
		if expired == PhaseYellow && c.next.Valid() {
			c.startGreen(c.next, c.timing.GreenDuration(c.density[c.next], c.weather))
			return
		}
		c.grantWinner()
	}
}

func (c *SignalController) grantWinner() {
	winner, _ := c.rank()
	c.startGreen(winner, c.timing.GreenDuration(c.density[winner], c.weather))
}

// rank 计算所有方向得分，返回得分最高与第二高的方向
// 说明：按Directions顺序入队，稳定优先队列保证得分相同时按北>南>东>西裁决
func (c *SignalController) rank() (winner, runnerUp Direction) {
	q := container.NewPriorityQueue[Direction]()
	for _, d := range Directions {
		s := c.timing.Score(c.density[d], c.wait[d], c.weather)
		c.scores[d] = s
		q.Push(d, -s) // 小顶堆，得分越高越靠前
	}
	q.Heapify()
	winner, _ = q.HeapPop()
	runnerUp, _ = q.HeapPop()
	return
}

func (c *SignalController) startGreen(d Direction, duration float64) {
	log.Debugf("green %v for %.2fs (%v)", d, duration, c.mode)
	c.phase = PhaseGreen
	c.active = d
	c.next = None
	c.repeat = 1
	c.grants++
	c.wait[d] = 0
	c.remaining = duration
	c.total = duration
}

func (c *SignalController) startYellow(next Direction) {
	c.phase = PhaseYellow
	c.next = next
	c.repeat = 0
	c.remaining = c.timing.YellowDuration(c.weather)
	c.total = c.remaining
	log.Debugf("yellow %v for %.2fs, next %v", c.active, c.remaining, next)
}

func (c *SignalController) startPedestrian() {
	c.phase = PhasePedestrian
	c.active = None
	c.next = None
	c.repeat = 0
	c.remaining = c.timing.PedestrianDuration
	c.total = c.remaining
}

func (c *SignalController) startClearance() {
	c.phase = PhaseAllRed
	c.active = None
	c.next = None
	c.repeat = 0
	c.remaining = c.timing.Clearance
	c.total = c.remaining
	log.Debugf("all red clearance for %.2fs before %v", c.remaining, c.mode)
}
