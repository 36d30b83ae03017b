package traffic

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

// CongestionQueue 拥堵程度为1时的平均排队车辆数
const CongestionQueue = 10.

// Anomaly 检测到的排队异常
type Anomaly struct {
	Direction trafficlight.Direction `json:"direction" bson:"direction"`
	Value     int                    `json:"value" bson:"value"`   // 当前排队车辆数
	Mean      float64                `json:"mean" bson:"mean"`     // 窗口均值
	StdDev    float64                `json:"stddev" bson:"stddev"` // 窗口样本标准差
	ZScore    float64                `json:"zscore" bson:"zscore"`
}

// Analytics 单次统计分析结果
type Analytics struct {
	TotalVehicles int       `json:"total_vehicles" bson:"total_vehicles"`
	Congestion    float64   `json:"congestion" bson:"congestion"` // 0~1
	Anomalies     []Anomaly `json:"anomalies,omitempty" bson:"anomalies,omitempty"`
}

// Monitor 路口排队数据的统计分析
// 功能：计算排队总数与拥堵程度，用z-score检测各方向排队数的突变
// 说明：非线程安全，每个路口独占一个Monitor
type Monitor struct {
	threshold   float64
	window      int
	minSamples  int
	historySize int
	history     [trafficlight.NumDirections][]float64
}

// NewMonitor 创建统计分析器
func NewMonitor(c config.Monitor) *Monitor {
	return &Monitor{
		threshold:   c.AnomalyThreshold,
		window:      c.Window,
		minSamples:  c.MinSamples,
		historySize: c.HistorySize,
	}
}

// Observe 分析一次检测结果并记入历史
// 算法说明：
// 1. 拥堵程度 = min(1, 平均排队数/10)
// 2. 对每个方向，历史记录不少于minSamples条时，取最近window条计算均值与样本标准差
// 3. 标准差大于0且|z|超过阈值时记为异常
// 4. 当前值加入历史，历史长度不超过historySize
func (m *Monitor) Observe(sensors [trafficlight.NumDirections]Sensor) Analytics {
	var a Analytics
	for _, sensor := range sensors {
		a.TotalVehicles += sensor.Queue
	}
	a.Congestion = math.Min(1, float64(a.TotalVehicles)/float64(trafficlight.NumDirections)/CongestionQueue)

	for _, sensor := range sensors {
		d := sensor.Direction
		if an, ok := m.check(d, sensor.Queue); ok {
			a.Anomalies = append(a.Anomalies, an)
		}
		m.history[d] = append(m.history[d], float64(sensor.Queue))
		if n := len(m.history[d]); n > m.historySize {
			m.history[d] = m.history[d][n-m.historySize:]
		}
	}
	return a
}

func (m *Monitor) check(d trafficlight.Direction, value int) (Anomaly, bool) {
	history := m.history[d]
	if len(history) < m.minSamples {
		return Anomaly{}, false
	}
	recent := stats.Float64Data(history[max(0, len(history)-m.window):])
	mean, err := stats.Mean(recent)
	if err != nil {
		return Anomaly{}, false
	}
	sd, err := stats.StandardDeviationSample(recent)
	if err != nil || sd <= 0 {
		return Anomaly{}, false
	}
	z := math.Abs(float64(value)-mean) / sd
	if z <= m.threshold {
		return Anomaly{}, false
	}
	log.Debugf("anomaly on %v: queue %d, mean %.2f, sd %.2f", d, value, mean, sd)
	return Anomaly{
		Direction: d,
		Value:     value,
		Mean:      mean,
		StdDev:    sd,
		ZScore:    z,
	}, true
}
