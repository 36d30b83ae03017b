package config

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
// 功能：定义仿真时间控制参数
// 说明：控制仿真的时间范围、步长和精度
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
}

// Signal 信号灯参数（单位：秒），未填写的项使用默认值
// 功能：对应优先级信控的时间与权重参数
type Signal struct {
	MinGreen           *float64 `yaml:"min_green,omitempty"`            // 最短绿灯
	BaseGreen          *float64 `yaml:"base_green,omitempty"`           // 基础绿灯
	GreenPerVehicle    *float64 `yaml:"green_per_vehicle,omitempty"`    // 每辆排队车辆增加的绿灯时间
	MaxGreen           *float64 `yaml:"max_green,omitempty"`            // 最长绿灯，0表示不限制
	Yellow             *float64 `yaml:"yellow,omitempty"`               // 黄灯
	WeatherSlowdown    *float64 `yaml:"weather_slowdown,omitempty"`     // 恶劣天气下绿灯与黄灯的延长倍数
	WeatherScoreFactor *float64 `yaml:"weather_score_factor,omitempty"` // 恶劣天气下得分的衰减系数
	DensityWeight      *float64 `yaml:"density_weight,omitempty"`       // 得分中排队车辆数的权重
	WaitWeight         *float64 `yaml:"wait_weight,omitempty"`          // 得分中等待时间的权重
	EmergencyGrant     *float64 `yaml:"emergency_grant,omitempty"`      // 紧急车辆绿灯授予时长
	PedestrianDuration *float64 `yaml:"pedestrian_duration,omitempty"`  // 行人全红时长
	AllRed             *float64 `yaml:"all_red,omitempty"`              // 黄灯方向重新获得紧急绿灯前的全红时长
	MaxRepeatCount     *int     `yaml:"max_repeat_count,omitempty"`     // 同一方向连续获得绿灯的最多次数
}

// Scenario 交通场景
type Scenario string

const (
	ScenarioDay                Scenario = "day"
	ScenarioNight              Scenario = "night"
	ScenarioRushHour           Scenario = "rush_hour"
	ScenarioHeavyRain          Scenario = "heavy_rain"
	ScenarioSnowBlizzard       Scenario = "snow_blizzard"
	ScenarioDenseFog           Scenario = "dense_fog"
	ScenarioPedestrianScramble Scenario = "pedestrian_scramble"
)

// Traffic 模拟排队车辆来源的配置
// 说明：map的键为方向名（north/south/east/west）
type Traffic struct {
	Seed             uint64             `yaml:"seed"`                        // 随机种子
	Scenario         Scenario           `yaml:"scenario,omitempty"`          // 场景，默认day
	ArrivalRate      map[string]float64 `yaml:"arrival_rate,omitempty"`      // 各方向到达率（辆/秒）
	DischargeRate    float64            `yaml:"discharge_rate,omitempty"`    // 绿灯方向放行率（辆/秒）
	Initial          map[string]int     `yaml:"initial,omitempty"`           // 各方向初始排队车辆数
	MaxQueue         int                `yaml:"max_queue,omitempty"`         // 单方向最大排队车辆数
	ScrambleInterval float64            `yaml:"scramble_interval,omitempty"` // 行人全向过街场景下的请求间隔（秒）
}

// EventType 预设事件类型
type EventType string

const (
	EventEmergency  EventType = "emergency"
	EventPedestrian EventType = "pedestrian"
	EventWeather    EventType = "weather"
)

// Event 预设事件，在指定仿真时间通过控制指令缓冲区下发到路口
type Event struct {
	At        float64   `yaml:"at"`                  // 触发时间（秒）
	Junction  int32     `yaml:"junction"`            // 路口ID
	Type      EventType `yaml:"type"`                // 事件类型
	Direction string    `yaml:"direction,omitempty"` // 紧急车辆方向
	Enabled   bool      `yaml:"enabled,omitempty"`   // 天气开关
}

// Output 输出配置
// 说明：设置了URI时写入MongoDB，否则写入文件
type Output struct {
	URI    string `yaml:"uri,omitempty"`    // MongoDB连接字符串
	DB     string `yaml:"db,omitempty"`     // 数据库名
	Col    string `yaml:"col,omitempty"`    // 集合名
	File   string `yaml:"file,omitempty"`   // 输出文件路径
	Format string `yaml:"format,omitempty"` // 文件格式：json|csv
	Report string `yaml:"report,omitempty"` // 文本报告路径，为空则只写入日志
	Every  int32  `yaml:"every,omitempty"`  // 每隔多少步记录一次
}

// GetDb 获取数据库名
func (o Output) GetDb() string {
	return o.DB
}

// GetColl 获取集合名
func (o Output) GetColl() string {
	return o.Col
}

// Monitor 异常检测配置
type Monitor struct {
	AnomalyThreshold float64 `yaml:"anomaly_threshold,omitempty"` // z-score阈值
	Window           int     `yaml:"window,omitempty"`            // 计算z-score的窗口大小
	MinSamples       int     `yaml:"min_samples,omitempty"`       // 开始检测所需的最少样本数
	HistorySize      int     `yaml:"history_size,omitempty"`      // 保留的历史记录条数
}

// Config YAML配置文件的根结构
// 功能：定义整个仿真系统的配置结构
// 说明：包含控制、信号灯、交通、事件、输出等所有配置项
type Config struct {
	Control   Control `yaml:"control"`             // 模拟过程控制
	Signal    Signal  `yaml:"signal,omitempty"`    // 信号灯参数
	Junctions []int32 `yaml:"junctions,omitempty"` // 路口ID列表，默认只有路口0
	Traffic   Traffic `yaml:"traffic,omitempty"`   // 排队车辆来源
	Events    []Event `yaml:"events,omitempty"`    // 预设事件
	Output    Output  `yaml:"output,omitempty"`    // 输出
	Monitor   Monitor `yaml:"monitor,omitempty"`   // 异常检测
}
