package output

import (
	"time"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficsignal/entity"
)

// 健康状态
const (
	HealthHealthy = "HEALTHY"
	HealthWarning = "WARNING"
)

const (
	maxStepTimes     = 1000        // 计算平均步时间保留的样本数
	slowStepTime     = time.Second // 平均步时间超过该值时告警
	maxAnomalyAlarms = 100         // 累计异常数超过该值时告警
)

// Metrics 性能指标汇总
type Metrics struct {
	Steps             int           // 已记录的仿真步数
	Junctions         int           // 路口数
	GreenGrants       int           // 累计绿灯授予次数
	Emergencies       int           // 累计紧急车辆响应次数
	Pedestrians       int           // 累计行人请求次数
	Refused           int           // 被拒绝的行人请求次数
	Failures          int           // tick失败次数
	VehiclesProcessed int           // 累计放行车辆数
	Anomalies         int           // 累计检测到的排队异常
	MeanCongestion    float64       // 最近一步各路口拥堵程度的均值
	MeanStepTime      time.Duration // 平均步时间（墙钟）
	Uptime            time.Duration // 运行时间（墙钟）
}

// Health 系统健康状态
type Health struct {
	Status string
	Issues []string
}

// Health 根据指标判断系统健康状态
func (m Metrics) Health() Health {
	h := Health{Status: HealthHealthy, Issues: make([]string, 0)}
	if m.MeanStepTime > slowStepTime {
		h.Issues = append(h.Issues, "High step execution time")
	}
	if m.Anomalies > maxAnomalyAlarms {
		h.Issues = append(h.Issues, "High anomaly count")
	}
	if len(h.Issues) > 0 {
		h.Status = HealthWarning
	}
	return h
}

// Tracker 性能指标统计
// 说明：只由仿真循环调用，非线程安全
type Tracker struct {
	start     time.Time
	stepTimes []float64 // 秒
	metrics   Metrics
	latest    map[int32]entity.JunctionSnapshot
}

// NewTracker 创建性能指标统计
func NewTracker(start time.Time) *Tracker {
	return &Tracker{
		start:     start,
		stepTimes: make([]float64, 0, maxStepTimes),
		latest:    make(map[int32]entity.JunctionSnapshot),
	}
}

// Track 记录一步
// 参数：snapshots-本步所有路口的状态，elapsed-本步墙钟耗时
func (t *Tracker) Track(snapshots []entity.JunctionSnapshot, elapsed time.Duration) {
	t.stepTimes = append(t.stepTimes, elapsed.Seconds())
	if n := len(t.stepTimes); n > maxStepTimes {
		t.stepTimes = t.stepTimes[n-maxStepTimes:]
	}
	t.metrics.Steps++
	for _, s := range snapshots {
		t.metrics.VehiclesProcessed += s.Departed
		t.metrics.Anomalies += len(s.Analytics.Anomalies)
		t.latest[s.ID] = s
	}
}

// Latest 每个路口最近一次记录的状态
func (t *Tracker) Latest() []entity.JunctionSnapshot {
	return lo.Values(t.latest)
}

// Summary 汇总指标
// 说明：累计计数取每个路口最近一次状态中的值求和
func (t *Tracker) Summary(now time.Time) Metrics {
	m := t.metrics
	m.Junctions = len(t.latest)
	congestion := make([]float64, 0, len(t.latest))
	for _, s := range t.latest {
		m.GreenGrants += s.Signal.Grants
		m.Emergencies += s.Emergencies
		m.Pedestrians += s.Pedestrians
		m.Refused += s.Refused
		m.Failures += s.Failures
		congestion = append(congestion, s.Analytics.Congestion)
	}
	if mean, err := stats.Mean(congestion); err == nil {
		m.MeanCongestion = mean
	}
	if mean, err := stats.Mean(t.stepTimes); err == nil {
		m.MeanStepTime = time.Duration(mean * float64(time.Second))
	}
	m.Uptime = now.Sub(t.start)
	return m
}
