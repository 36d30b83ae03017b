package junction

import (
	"fmt"
	"sort"

	"git.fiblab.net/general/common/v2/parallel"
	"git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// Junction管理器
type JunctionManager struct {
	mapv2connect.UnimplementedTrafficLightServiceHandler

	ctx entity.ITaskContext

	data      map[int32]*Junction
	junctions []*Junction
}

// NewManager 创建Junction管理器实例
// 参数：ctx-任务上下文
// 返回：新创建的Junction管理器实例
func NewManager(ctx entity.ITaskContext) *JunctionManager {
	return &JunctionManager{
		ctx:       ctx,
		data:      make(map[int32]*Junction),
		junctions: make([]*Junction, 0),
	}
}

// Init 初始化所有Junction及其信控
// 功能：为每个路口ID创建信号灯控制器与排队车辆来源
// 参数：ids-路口ID列表
// 说明：使用并行处理提高初始化效率，配置已在加载时检查，创建失败直接panic
func (m *JunctionManager) Init(ids []int32) {
	ids = lo.Uniq(ids)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	m.junctions = parallel.GoMap(ids, func(id int32) *Junction {
		j, err := newJunction(m.ctx, id)
		if err != nil {
			log.Panicf("init junction %d error: %v", id, err)
		}
		return j
	})
	m.data = lo.SliceToMap(m.junctions, func(j *Junction) (int32, *Junction) {
		return j.id, j
	})
	log.Infof("Junction: %v", len(m.junctions))
}

// Get 根据ID获取Junction实例，如果不存在则panic
func (m *JunctionManager) Get(id int32) entity.IJunction {
	if junction, ok := m.data[id]; !ok {
		log.Panicf("no id %d in junction data", id)
		return nil
	} else {
		return junction
	}
}

// GetOrError 根据ID获取Junction实例，如果不存在则返回ErrJunctionNotFound
func (m *JunctionManager) GetOrError(id int32) (entity.IJunction, error) {
	return m.get(id)
}

func (m *JunctionManager) get(id int32) (*Junction, error) {
	if junction, ok := m.data[id]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrJunctionNotFound, id)
	} else {
		return junction, nil
	}
}

// IDs 所有Junction ID（升序）
func (m *JunctionManager) IDs() []int32 {
	return lo.Map(m.junctions, func(j *Junction, _ int) int32 { return j.id })
}

// RequestEmergency 写入紧急车辆请求，下一步准备阶段生效
// 返回：路口不存在返回ErrJunctionNotFound，方向非法返回trafficlight.ErrInvalidInput
func (m *JunctionManager) RequestEmergency(id int32, d trafficlight.Direction) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("%w: unknown direction %d", trafficlight.ErrInvalidInput, d)
	}
	j.push(command{kind: cmdEmergency, direction: d})
	return nil
}

// RequestPedestrian 写入行人过街请求，下一步准备阶段生效
// 返回：是否会被接受（紧急模式下拒绝）
func (m *JunctionManager) RequestPedestrian(id int32) (bool, error) {
	j, err := m.get(id)
	if err != nil {
		return false, err
	}
	accepted := j.pedestrianAccepted()
	j.push(command{kind: cmdPedestrian})
	return accepted, nil
}

// SetWeather 写入天气修饰开关，下一步准备阶段生效
func (m *JunctionManager) SetWeather(id int32, enabled bool) error {
	j, err := m.get(id)
	if err != nil {
		return err
	}
	j.push(command{kind: cmdWeather, enabled: enabled})
	return nil
}

// Prepare 准备阶段，处理所有Junction的指令buffer
// 说明：使用并行处理提高性能
func (m *JunctionManager) Prepare() {
	parallel.GoFor(m.junctions, func(j *Junction) { j.prepare() })
}

// Update 更新阶段，执行所有Junction的模拟逻辑
// 参数：dt-时间步长
// 说明：使用并行处理提高性能
func (m *JunctionManager) Update(dt float64) {
	parallel.GoFor(m.junctions, func(j *Junction) { j.update(dt) })
}

// Snapshots 产生所有Junction的输出（按ID升序）
func (m *JunctionManager) Snapshots() []entity.JunctionSnapshot {
	return lo.Map(m.junctions, func(j *Junction, _ int) entity.JunctionSnapshot { return j.Snapshot() })
}
