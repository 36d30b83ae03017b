package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("config: invalid")

// 默认值
const (
	DefaultInterval         = 1.
	MaxInterval             = 3600. // 单步时间间隔上限（秒）
	DefaultTotalSteps       = 3600
	DefaultArrivalRate      = 0.3
	DefaultDischargeRate    = 0.5
	DefaultMaxQueue         = 50
	DefaultScrambleInterval = 60.
	DefaultAnomalyThreshold = 2.
	DefaultWindow           = 10
	DefaultMinSamples       = 5
	DefaultHistorySize      = 100
	DefaultOutputFormat     = "json"
	DefaultOutputDB         = "trafficsignal"
	DefaultOutputCol        = "steps"
)

// Load 解析YAML配置
// 说明：使用严格模式，未知字段视为错误
func Load(data []byte) (Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c, nil
}

// RuntimeConfig 运行时配置
// 功能：存储补全默认值并检查后的配置
// 说明：将YAML配置转换为运行时可用的配置对象，信号灯参数转换为控制器可直接使用的Timing
type RuntimeConfig struct {
	All       Config              // 全部配置（已补全默认值）
	C         Control             // 全局控制配置
	Timing    trafficlight.Timing // 信号灯参数
	Junctions []int32             // 路口ID列表（去重、升序）
	Traffic   Traffic             // 排队车辆来源
	Events    []Event             // 预设事件（按触发时间排序）
	Output    Output              // 输出
	Monitor   Monitor             // 异常检测
}

// NewRuntimeConfig 根据配置生成运行时配置
// 功能：补全默认值并检查配置
// 参数：config-原始配置对象
// 返回：运行时配置，配置非法时返回ErrInvalidConfig或trafficlight.ErrInvalidTiming
// 算法说明：
// 1. 时间步：未指定时步长1秒、共3600步
// 2. 信号灯：以默认参数为基础覆盖配置中出现的项，检查合法性
// 3. 交通：补全到达率、放行率、场景等默认值，方向名必须合法
// 4. 事件：检查类型、路口与方向，按时间排序
func NewRuntimeConfig(config Config) (*RuntimeConfig, error) {
	rc := &RuntimeConfig{}

	// 时间步
	step := &config.Control.Step
	if step.Interval == 0 {
		step.Interval = DefaultInterval
	}
	if step.Total == 0 {
		step.Total = DefaultTotalSteps
	}
	if step.Total < 0 || step.Start < 0 {
		return nil, fmt.Errorf("%w: control.step must be non-negative, got %+v", ErrInvalidConfig, *step)
	}
	if !(step.Interval > 0) || step.Interval > MaxInterval {
		return nil, fmt.Errorf("%w: control.step.interval must be in (0, %v], got %v", ErrInvalidConfig, MaxInterval, step.Interval)
	}

	// 信号灯
	timing, err := buildTiming(config.Signal)
	if err != nil {
		return nil, err
	}
	rc.Timing = timing

	// 路口
	if len(config.Junctions) == 0 {
		config.Junctions = []int32{0}
	}
	rc.Junctions = lo.Uniq(config.Junctions)
	sort.Slice(rc.Junctions, func(i, j int) bool { return rc.Junctions[i] < rc.Junctions[j] })

	// 交通
	if err := fillTraffic(&config.Traffic); err != nil {
		return nil, err
	}

	// 事件
	junctions := lo.SliceToMap(rc.Junctions, func(id int32) (int32, struct{}) { return id, struct{}{} })
	for i, e := range config.Events {
		if e.At < 0 {
			return nil, fmt.Errorf("%w: events[%d].at must be non-negative", ErrInvalidConfig, i)
		}
		if _, ok := junctions[e.Junction]; !ok {
			return nil, fmt.Errorf("%w: events[%d] refers to unknown junction %d", ErrInvalidConfig, i, e.Junction)
		}
		switch e.Type {
		case EventEmergency:
			if _, err := trafficlight.ParseDirection(e.Direction); err != nil {
				return nil, fmt.Errorf("%w: events[%d]: %v", ErrInvalidConfig, i, err)
			}
		case EventPedestrian, EventWeather:
		default:
			return nil, fmt.Errorf("%w: events[%d] has unknown type %q", ErrInvalidConfig, i, e.Type)
		}
	}
	rc.Events = append([]Event(nil), config.Events...)
	sort.SliceStable(rc.Events, func(i, j int) bool { return rc.Events[i].At < rc.Events[j].At })

	// 输出
	out := &config.Output
	if out.Format == "" {
		out.Format = DefaultOutputFormat
	}
	out.Format = strings.ToLower(out.Format)
	if out.Format != "json" && out.Format != "csv" {
		return nil, fmt.Errorf("%w: output.format must be json or csv, got %q", ErrInvalidConfig, out.Format)
	}
	if out.DB == "" {
		out.DB = DefaultOutputDB
	}
	if out.Col == "" {
		out.Col = DefaultOutputCol
	}
	if out.Every <= 0 {
		out.Every = 1
	}

	// 异常检测
	mon := &config.Monitor
	if mon.AnomalyThreshold <= 0 {
		mon.AnomalyThreshold = DefaultAnomalyThreshold
	}
	if mon.Window <= 0 {
		mon.Window = DefaultWindow
	}
	if mon.MinSamples <= 0 {
		mon.MinSamples = DefaultMinSamples
	}
	if mon.MinSamples < 2 {
		return nil, fmt.Errorf("%w: monitor.min_samples must be at least 2", ErrInvalidConfig)
	}
	if mon.HistorySize <= 0 {
		mon.HistorySize = DefaultHistorySize
	}

	rc.All = config
	rc.C = config.Control
	rc.Traffic = config.Traffic
	rc.Output = config.Output
	rc.Monitor = config.Monitor
	return rc, nil
}

func buildTiming(s Signal) (trafficlight.Timing, error) {
	t := trafficlight.DefaultTiming()
	for _, o := range []struct {
		dst *float64
		src *float64
	}{
		{&t.MinGreen, s.MinGreen},
		{&t.BaseGreen, s.BaseGreen},
		{&t.GreenPerVehicle, s.GreenPerVehicle},
		{&t.MaxGreen, s.MaxGreen},
		{&t.Yellow, s.Yellow},
		{&t.WeatherSlowdown, s.WeatherSlowdown},
		{&t.WeatherScoreFactor, s.WeatherScoreFactor},
		{&t.DensityWeight, s.DensityWeight},
		{&t.WaitWeight, s.WaitWeight},
		{&t.EmergencyGrant, s.EmergencyGrant},
		{&t.PedestrianDuration, s.PedestrianDuration},
		{&t.Clearance, s.AllRed},
	} {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	if s.MaxRepeatCount != nil {
		t.MaxRepeatCount = *s.MaxRepeatCount
	}
	return t, t.Validate()
}

func fillTraffic(t *Traffic) error {
	if t.Scenario == "" {
		t.Scenario = ScenarioDay
	}
	if _, ok := scenarioArrivalFactor[t.Scenario]; !ok {
		return fmt.Errorf("%w: unknown traffic.scenario %q", ErrInvalidConfig, t.Scenario)
	}
	rates := make(map[string]float64, trafficlight.NumDirections)
	for _, d := range trafficlight.Directions {
		rates[directionKey(d)] = DefaultArrivalRate
	}
	for k, v := range t.ArrivalRate {
		d, err := trafficlight.ParseDirection(k)
		if err != nil {
			return fmt.Errorf("%w: traffic.arrival_rate: %v", ErrInvalidConfig, err)
		}
		if v < 0 {
			return fmt.Errorf("%w: traffic.arrival_rate.%s must be non-negative", ErrInvalidConfig, k)
		}
		rates[directionKey(d)] = v
	}
	t.ArrivalRate = rates

	initial := make(map[string]int, trafficlight.NumDirections)
	for k, v := range t.Initial {
		d, err := trafficlight.ParseDirection(k)
		if err != nil {
			return fmt.Errorf("%w: traffic.initial: %v", ErrInvalidConfig, err)
		}
		if v < 0 {
			return fmt.Errorf("%w: traffic.initial.%s must be non-negative", ErrInvalidConfig, k)
		}
		initial[directionKey(d)] = v
	}
	t.Initial = initial

	if t.DischargeRate == 0 {
		t.DischargeRate = DefaultDischargeRate
	}
	if t.MaxQueue == 0 {
		t.MaxQueue = DefaultMaxQueue
	}
	if t.ScrambleInterval == 0 {
		t.ScrambleInterval = DefaultScrambleInterval
	}
	if t.DischargeRate < 0 || t.MaxQueue < 0 || t.ScrambleInterval < 0 {
		return fmt.Errorf("%w: traffic rates must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// 场景对到达率的倍数
var scenarioArrivalFactor = map[Scenario]float64{
	ScenarioDay:                1,
	ScenarioNight:              0.5,
	ScenarioRushHour:           2,
	ScenarioHeavyRain:          1,
	ScenarioSnowBlizzard:       1,
	ScenarioDenseFog:           1,
	ScenarioPedestrianScramble: 1,
}

// ArrivalFactor 场景对到达率的倍数
func (s Scenario) ArrivalFactor() float64 {
	if f, ok := scenarioArrivalFactor[s]; ok {
		return f
	}
	return 1
}

// BadWeather 场景是否开启恶劣天气修饰
func (s Scenario) BadWeather() bool {
	return s == ScenarioHeavyRain || s == ScenarioSnowBlizzard || s == ScenarioDenseFog
}

// Rate 方向的到达率
func (t Traffic) Rate(d trafficlight.Direction) float64 {
	return t.ArrivalRate[directionKey(d)]
}

// InitialQueue 方向的初始排队车辆数
func (t Traffic) InitialQueue(d trafficlight.Direction) int {
	return t.Initial[directionKey(d)]
}

func directionKey(d trafficlight.Direction) string {
	return strings.ToLower(d.String())
}
