package junction

import (
	"strings"

	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// 控制面板服务定义（JSON编码的Connect服务）
const (
	JunctionServiceName = "trafficsignal.junction.v1.JunctionService"

	GetSignalStateProcedure    = "/" + JunctionServiceName + "/GetSignalState"
	RequestEmergencyProcedure  = "/" + JunctionServiceName + "/RequestEmergency"
	RequestPedestrianProcedure = "/" + JunctionServiceName + "/RequestPedestrian"
	SetWeatherProcedure        = "/" + JunctionServiceName + "/SetWeather"
	ListJunctionsProcedure     = "/" + JunctionServiceName + "/ListJunctions"
)

type GetSignalStateRequest struct {
	JunctionID int32 `json:"junction_id"`
}

// SignalState 路口信号灯状态
// 说明：方向、颜色、相位等枚举均以名称表示
type SignalState struct {
	JunctionID int32              `json:"junction_id"`
	Step       int32              `json:"step"`
	T          float64            `json:"t"`
	Phase      string             `json:"phase"`
	Active     string             `json:"active"`
	Remaining  float64            `json:"remaining"`
	Total      float64            `json:"total"`
	Mode       string             `json:"mode"`
	Weather    bool               `json:"weather"`
	Colors     map[string]string  `json:"colors"`
	Density    map[string]int     `json:"density"`
	WaitTimes  map[string]float64 `json:"wait_times"`
	Scores     map[string]float64 `json:"scores"`
	Congestion float64            `json:"congestion"`
	Anomalies  int                `json:"anomalies"`
}

type GetSignalStateResponse struct {
	State SignalState `json:"state"`
}

type RequestEmergencyRequest struct {
	JunctionID int32  `json:"junction_id"`
	Direction  string `json:"direction"`
}

type RequestEmergencyResponse struct{}

type RequestPedestrianRequest struct {
	JunctionID int32 `json:"junction_id"`
}

type RequestPedestrianResponse struct {
	Accepted bool `json:"accepted"` // 紧急模式下为false
}

type SetWeatherRequest struct {
	JunctionID int32 `json:"junction_id"`
	Enabled    bool  `json:"enabled"`
}

type SetWeatherResponse struct{}

type ListJunctionsRequest struct{}

type ListJunctionsResponse struct {
	JunctionIDs []int32 `json:"junction_ids"`
}

// NewSignalState 将路口snapshot转换为服务返回的状态
func NewSignalState(s entity.JunctionSnapshot) SignalState {
	sig := s.Signal
	out := SignalState{
		JunctionID: s.ID,
		Step:       s.Step,
		T:          s.T,
		Phase:      sig.Phase.String(),
		Active:     sig.Active.String(),
		Remaining:  sig.Remaining,
		Total:      sig.Total,
		Mode:       sig.Mode.String(),
		Weather:    sig.Weather,
		Colors:     make(map[string]string, trafficlight.NumDirections),
		Density:    make(map[string]int, trafficlight.NumDirections),
		WaitTimes:  make(map[string]float64, trafficlight.NumDirections),
		Scores:     make(map[string]float64, trafficlight.NumDirections),
		Congestion: s.Analytics.Congestion,
		Anomalies:  len(s.Analytics.Anomalies),
	}
	for _, d := range trafficlight.Directions {
		key := strings.ToLower(d.String())
		out.Colors[key] = sig.Color(d).String()
		out.Density[key] = sig.Density[d]
		out.WaitTimes[key] = sig.WaitTimes[d]
		out.Scores[key] = sig.Scores[d]
	}
	return out
}
