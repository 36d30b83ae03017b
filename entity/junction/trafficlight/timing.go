package trafficlight

import (
	"fmt"
	"math"
)

// Timing 优先级信控的时间与权重参数（单位：秒）
type Timing struct {
	MinGreen           float64 // 最短绿灯
	BaseGreen          float64 // 基础绿灯
	GreenPerVehicle    float64 // 每辆排队车辆增加的绿灯时间
	MaxGreen           float64 // 最长绿灯，0表示不限制
	Yellow             float64 // 黄灯
	WeatherSlowdown    float64 // 恶劣天气下绿灯与黄灯的延长倍数
	WeatherScoreFactor float64 // 恶劣天气下得分的衰减系数
	DensityWeight      float64 // 得分中排队车辆数的权重
	WaitWeight         float64 // 得分中等待时间的权重
	EmergencyGrant     float64 // 紧急车辆绿灯授予时长
	PedestrianDuration float64 // 行人全红时长
	Clearance          float64 // 黄灯方向重新获得紧急绿灯前的全红时长
	MaxRepeatCount     int     // 同一方向连续获得绿灯的最多次数
}

// DefaultTiming 默认参数
func DefaultTiming() Timing {
	return Timing{
		MinGreen:           3,
		BaseGreen:          5,
		GreenPerVehicle:    0.3,
		MaxGreen:           0,
		Yellow:             3,
		WeatherSlowdown:    1.5,
		WeatherScoreFactor: 0.7,
		DensityWeight:      2,
		WaitWeight:         0.5,
		EmergencyGrant:     10,
		PedestrianDuration: 8,
		Clearance:          1,
		MaxRepeatCount:     6,
	}
}

// Validate 检查参数合法性
func (t Timing) Validate() error {
	positive := map[string]float64{
		"min_green":            t.MinGreen,
		"yellow":               t.Yellow,
		"weather_score_factor": t.WeatherScoreFactor,
		"emergency_grant":      t.EmergencyGrant,
		"pedestrian_duration":  t.PedestrianDuration,
		"all_red":              t.Clearance,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalidTiming, name, v)
		}
	}
	nonNegative := map[string]float64{
		"base_green":        t.BaseGreen,
		"green_per_vehicle": t.GreenPerVehicle,
		"max_green":         t.MaxGreen,
		"density_weight":    t.DensityWeight,
		"wait_weight":       t.WaitWeight,
	}
	for name, v := range nonNegative {
		if !(v >= 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be non-negative, got %v", ErrInvalidTiming, name, v)
		}
	}
	if t.MaxGreen > 0 && t.MaxGreen < t.MinGreen {
		return fmt.Errorf("%w: max_green %v below min_green %v", ErrInvalidTiming, t.MaxGreen, t.MinGreen)
	}
	if !(t.WeatherSlowdown >= 1) || math.IsInf(t.WeatherSlowdown, 0) {
		return fmt.Errorf("%w: weather_slowdown must be >= 1, got %v", ErrInvalidTiming, t.WeatherSlowdown)
	}
	if t.MaxRepeatCount < 1 {
		return fmt.Errorf("%w: max_repeat_count must be >= 1, got %d", ErrInvalidTiming, t.MaxRepeatCount)
	}
	return nil
}

// Score 计算方向的优先级得分
// 功能：score = 排队车辆数*DensityWeight + 等待时间*WaitWeight，恶劣天气下整体乘以WeatherScoreFactor
// 说明：天气系数对所有方向相同，不改变排名
func (t Timing) Score(density int, wait float64, weather bool) float64 {
	s := float64(density)*t.DensityWeight + wait*t.WaitWeight
	if weather {
		s *= t.WeatherScoreFactor
	}
	return s
}

// GreenDuration 计算获胜方向的绿灯时长
// 功能：max(MinGreen, BaseGreen + 排队车辆数*GreenPerVehicle)，可选上限MaxGreen，恶劣天气下乘以WeatherSlowdown
func (t Timing) GreenDuration(density int, weather bool) float64 {
	g := max(t.MinGreen, t.BaseGreen+float64(density)*t.GreenPerVehicle)
	if t.MaxGreen > 0 {
		g = min(g, t.MaxGreen)
	}
	if weather {
		g *= t.WeatherSlowdown
	}
	return g
}

// YellowDuration 计算黄灯时长
func (t Timing) YellowDuration(weather bool) float64 {
	if weather {
		return t.Yellow * t.WeatherSlowdown
	}
	return t.Yellow
}
