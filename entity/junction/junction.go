package junction

import (
	"errors"
	"sync"

	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/traffic"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

var (
	ErrJunctionNotFound = errors.New("junction id does not exist")
)

type commandKind int

const (
	cmdEmergency commandKind = iota
	cmdPedestrian
	cmdWeather
)

// command 控制面板或预设事件写入的控制指令
type command struct {
	kind      commandKind
	direction trafficlight.Direction
	enabled   bool
}

type Junction struct {
	ctx entity.ITaskContext

	id           int32
	trafficLight ITrafficLight    // 信号灯模块
	source       *traffic.Source  // 排队车辆来源
	monitor      *traffic.Monitor // 排队统计

	scramble     bool    // 行人全向过街场景
	nextScramble float64 // 下一次行人请求的时间

	mtx      sync.Mutex
	buffer   []command               // 指令buffer，用于交互式接口写入
	snapshot entity.JunctionSnapshot // snapshot，用于保存输出的数据

	// 以下计数只在准备/更新阶段修改，写入snapshot时复制
	emergencies int
	pedestrians int
	refused     int
	failures    int
}

// newJunction 创建并初始化一个新的Junction实例
// 功能：根据运行时配置创建信号灯控制器、排队车辆来源与统计模块，恶劣天气场景下开启天气修饰
// 参数：ctx-任务上下文，id-路口ID
// 返回：初始化完成的Junction实例，信号灯参数非法时返回错误
func newJunction(ctx entity.ITaskContext, id int32) (*Junction, error) {
	rc := ctx.RuntimeConfig()
	tl, err := trafficlight.NewSignalController(rc.Timing)
	if err != nil {
		return nil, err
	}
	j := &Junction{
		ctx:          ctx,
		id:           id,
		trafficLight: tl,
		source:       traffic.NewSource(id, rc.Traffic),
		monitor:      traffic.NewMonitor(rc.Monitor),
		scramble:     rc.Traffic.Scenario == config.ScenarioPedestrianScramble,
		nextScramble: rc.Traffic.ScrambleInterval,
		buffer:       make([]command, 0),
	}
	if rc.Traffic.Scenario.BadWeather() {
		j.trafficLight.SetWeather(true)
	}
	j.snapshot = j.makeSnapshot(j.trafficLight.State(), traffic.Analytics{}, 0, 0)
	return j, nil
}

// prepare 准备阶段，处理指令buffer
// 功能：按写入顺序把buffer中的指令应用到信号灯
func (j *Junction) prepare() {
	j.mtx.Lock()
	buffer := j.buffer
	j.buffer = make([]command, 0)
	j.mtx.Unlock()

	for _, cmd := range buffer {
		switch cmd.kind {
		case cmdEmergency:
			if err := j.trafficLight.RequestEmergency(cmd.direction); err != nil {
				log.Errorf("junction %d: emergency request error: %v", j.id, err)
				continue
			}
			j.emergencies++
		case cmdPedestrian:
			j.requestPedestrian()
		case cmdWeather:
			j.trafficLight.SetWeather(cmd.enabled)
		}
	}
}

// update 更新阶段，执行Junction的模拟逻辑
// 功能：以当前排队车辆数推进信号灯，绿灯方向放行，统计排队情况并写入snapshot
// 参数：dt-时间步长
func (j *Junction) update(dt float64) {
	if j.scramble && j.ctx.Clock().T() >= j.nextScramble {
		j.nextScramble += j.ctx.RuntimeConfig().Traffic.ScrambleInterval
		j.requestPedestrian()
	}

	state, err := j.trafficLight.Tick(dt, j.source.Density())
	if err != nil {
		// 保留上一步的snapshot
		j.failures++
		log.Errorf("junction %d: tick error: %v", j.id, err)
		return
	}
	green, _ := state.Green()
	arrived, departed := j.source.Advance(dt, green)
	analytics := j.monitor.Observe(j.source.Sensors())

	snapshot := j.makeSnapshot(state, analytics, arrived, departed)
	j.mtx.Lock()
	j.snapshot = snapshot
	j.mtx.Unlock()
}

func (j *Junction) requestPedestrian() {
	if j.trafficLight.RequestPedestrian() {
		j.pedestrians++
	} else {
		j.refused++
	}
}

func (j *Junction) makeSnapshot(state trafficlight.State, analytics traffic.Analytics, arrived, departed int) entity.JunctionSnapshot {
	clock := j.ctx.Clock()
	return entity.JunctionSnapshot{
		ID:          j.id,
		Step:        clock.Step(),
		T:           clock.T(),
		Signal:      state,
		Analytics:   analytics,
		Arrived:     arrived,
		Departed:    departed,
		Emergencies: j.emergencies,
		Pedestrians: j.pedestrians,
		Refused:     j.refused,
		Failures:    j.failures,
	}
}

// push 写入指令buffer
func (j *Junction) push(cmd command) {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	j.buffer = append(j.buffer, cmd)
}

// pedestrianAccepted 预判行人请求是否会被接受
// 说明：当前处于紧急模式，或buffer中已有尚未生效的紧急请求时会被拒绝
func (j *Junction) pedestrianAccepted() bool {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	for _, cmd := range j.buffer {
		if cmd.kind == cmdEmergency {
			return false
		}
	}
	return j.snapshot.Signal.Mode.Kind != trafficlight.ModeEmergency
}

// ID 获取Junction的唯一标识符
// 返回：Junction的ID，如果Junction为nil则返回-1
func (j *Junction) ID() int32 {
	if j == nil {
		return -1
	}
	return j.id
}

// Snapshot 获取最近一步的状态
func (j *Junction) Snapshot() entity.JunctionSnapshot {
	j.mtx.Lock()
	defer j.mtx.Unlock()
	return j.snapshot
}
