// 仿真输出：每步路口状态记录、性能指标与文本报告
package output

import (
	"strconv"

	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// Record 单个路口在一个仿真步的输出记录
// 说明：Colors与Density按北、南、东、西顺序排列
type Record struct {
	RunID         string                             `json:"run_id" bson:"run_id"`
	Step          int32                              `json:"step" bson:"step"`
	T             float64                            `json:"t" bson:"t"`
	Junction      int32                              `json:"junction" bson:"junction"`
	Mode          string                             `json:"mode" bson:"mode"`
	Weather       bool                               `json:"weather" bson:"weather"`
	Phase         string                             `json:"phase" bson:"phase"`
	Active        string                             `json:"active" bson:"active"`
	Remaining     float64                            `json:"remaining" bson:"remaining"`
	Colors        [trafficlight.NumDirections]string `json:"colors" bson:"colors"`
	Density       [trafficlight.NumDirections]int    `json:"density" bson:"density"`
	TotalVehicles int                                `json:"total_vehicles" bson:"total_vehicles"`
	Congestion    float64                            `json:"congestion" bson:"congestion"`
	Anomalies     int                                `json:"anomalies" bson:"anomalies"`
	Arrived       int                                `json:"arrived" bson:"arrived"`
	Departed      int                                `json:"departed" bson:"departed"`
}

// NewRecord 由路口snapshot生成输出记录
func NewRecord(runID string, s entity.JunctionSnapshot) Record {
	r := Record{
		RunID:         runID,
		Step:          s.Step,
		T:             s.T,
		Junction:      s.ID,
		Mode:          s.Signal.Mode.String(),
		Weather:       s.Signal.Weather,
		Phase:         s.Signal.Phase.String(),
		Active:        s.Signal.Active.String(),
		Remaining:     s.Signal.Remaining,
		Density:       s.Signal.Density,
		TotalVehicles: s.Analytics.TotalVehicles,
		Congestion:    s.Analytics.Congestion,
		Anomalies:     len(s.Analytics.Anomalies),
		Arrived:       s.Arrived,
		Departed:      s.Departed,
	}
	for _, d := range trafficlight.Directions {
		r.Colors[d] = s.Signal.Color(d).String()
	}
	return r
}

// csvHeader CSV文件的表头，与csvRow一一对应
var csvHeader = []string{
	"run_id", "step", "t", "junction", "mode", "weather", "phase", "active", "remaining",
	"north", "south", "east", "west",
	"density_north", "density_south", "density_east", "density_west",
	"total_vehicles", "congestion", "anomalies", "arrived", "departed",
}

func (r Record) csvRow() []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	row := []string{
		r.RunID,
		strconv.Itoa(int(r.Step)),
		f(r.T),
		strconv.Itoa(int(r.Junction)),
		r.Mode,
		strconv.FormatBool(r.Weather),
		r.Phase,
		r.Active,
		f(r.Remaining),
	}
	row = append(row, r.Colors[:]...)
	for _, n := range r.Density {
		row = append(row, strconv.Itoa(n))
	}
	return append(row,
		strconv.Itoa(r.TotalVehicles),
		f(r.Congestion),
		strconv.Itoa(r.Anomalies),
		strconv.Itoa(r.Arrived),
		strconv.Itoa(r.Departed),
	)
}
