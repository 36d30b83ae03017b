package trafficlight

import (
	"fmt"
	"strings"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// Direction 路口进口方向
// 说明：Directions中的顺序同时是遍历顺序和平局裁决顺序（北>南>东>西）
type Direction int

const (
	None Direction = iota - 1 // 无方向（全红）
	North
	South
	East
	West
)

// NumDirections 进口方向数量
const NumDirections = 4

// Directions 所有进口方向，按平局裁决优先级排列
var Directions = [NumDirections]Direction{North, South, East, West}

var directionNames = [NumDirections]string{"NORTH", "SOUTH", "EAST", "WEST"}

// Valid 是否为四个进口方向之一
func (d Direction) Valid() bool {
	return d >= North && d <= West
}

func (d Direction) String() string {
	if !d.Valid() {
		return "NONE"
	}
	return directionNames[d]
}

// ParseDirection 解析方向名称
// 功能：支持大小写不敏感的全称（north）与首字母（n）
// 返回：方向，无法识别时返回ErrInvalidInput
func ParseDirection(s string) (Direction, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for _, d := range Directions {
		if name == directionNames[d] || (len(name) == 1 && name[0] == directionNames[d][0]) {
			return d, nil
		}
	}
	return None, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, s)
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), "NONE") {
		*d = None
		return nil
	}
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Color 信号灯颜色
type Color int

const (
	Red Color = iota
	Yellow
	Green
)

func (c Color) String() string {
	switch c {
	case Yellow:
		return "YELLOW"
	case Green:
		return "GREEN"
	default:
		return "RED"
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// LightState 转换为城市地图协议中的信号灯状态
func (c Color) LightState() mapv2.LightState {
	switch c {
	case Yellow:
		return mapv2.LightState_LIGHT_STATE_YELLOW
	case Green:
		return mapv2.LightState_LIGHT_STATE_GREEN
	default:
		return mapv2.LightState_LIGHT_STATE_RED
	}
}

// Phase 相位类型
type Phase int

const (
	PhaseAllRed     Phase = iota // 全红：启动时立即进入决策，或紧急放行前的清空
	PhaseGreen                   // 获胜方向绿灯
	PhaseYellow                  // 让出方向黄灯
	PhasePedestrian              // 行人全红相位
)

func (p Phase) String() string {
	switch p {
	case PhaseGreen:
		return "GREEN"
	case PhaseYellow:
		return "YELLOW"
	case PhasePedestrian:
		return "PEDESTRIAN"
	default:
		return "ALL_RED"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ModeKind 控制模式
type ModeKind int

const (
	ModeNormal ModeKind = iota
	ModeEmergency
	ModePedestrian
)

func (k ModeKind) String() string {
	switch k {
	case ModeEmergency:
		return "EMERGENCY"
	case ModePedestrian:
		return "PEDESTRIAN"
	default:
		return "NORMAL"
	}
}

// Mode 控制模式（带标签的变体）
// 说明：Target仅在紧急模式下有效，紧急与行人模式无法同时成立；天气是独立的布尔修饰
type Mode struct {
	Kind   ModeKind
	Target Direction
}

func NormalMode() Mode { return Mode{Kind: ModeNormal, Target: None} }
func EmergencyMode(d Direction) Mode { return Mode{Kind: ModeEmergency, Target: d} }
func PedestrianMode() Mode { return Mode{Kind: ModePedestrian, Target: None} }

func (m Mode) String() string {
	if m.Kind == ModeEmergency {
		return fmt.Sprintf("EMERGENCY(%v)", m.Target)
	}
	return m.Kind.String()
}

// Density 各进口方向排队车辆数
type Density map[Direction]int

// State 控制器状态快照（不可变）
type State struct {
	Colors    [NumDirections]Color   // 各方向颜色，由相位推导
	Active    Direction              // 绿灯或黄灯的方向，全红时为None
	Phase     Phase                  // 当前相位
	Remaining float64                // 当前相位剩余时间
	Total     float64                // 当前相位总时长
	Mode      Mode                   // 控制模式
	Weather   bool                   // 天气修饰
	Scores    [NumDirections]float64 // 最近一次决策的优先级得分
	WaitTimes [NumDirections]float64 // 各方向等待时间
	Density   [NumDirections]int     // 最近一次输入的排队车辆数
	Grants    int                    // 累计绿灯授予次数
}

// Color 获取方向的颜色
func (s State) Color(d Direction) Color {
	if !d.Valid() {
		return Red
	}
	return s.Colors[d]
}

// Green 返回当前绿灯方向
func (s State) Green() (Direction, bool) {
	for _, d := range Directions {
		if s.Colors[d] == Green {
			return d, true
		}
	}
	return None, false
}

// GreenCount 绿灯方向数量（0或1）
func (s State) GreenCount() int {
	n := 0
	for _, c := range s.Colors {
		if c == Green {
			n++
		}
	}
	return n
}
