package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
)

// Report 生成文本运行报告
// 参数：runID-运行ID，simTime-仿真时间（HH:MM:SS），m-汇总指标，snapshots-各路口最近一次状态
// 返回：多行文本，路口按ID升序排列
func Report(runID string, simTime string, m Metrics, snapshots []entity.JunctionSnapshot) string {
	snapshots = append([]entity.JunctionSnapshot(nil), snapshots...)
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })

	var b strings.Builder
	fmt.Fprintf(&b, "=== TRAFFIC SIGNAL REPORT ===\n")
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Simulation time: %s (%d steps)\n", simTime, m.Steps)
	fmt.Fprintf(&b, "Junctions: %d\n", m.Junctions)

	for _, s := range snapshots {
		sig := s.Signal
		weather := "off"
		if sig.Weather {
			weather = "on"
		}
		fmt.Fprintf(&b, "\n--- Junction %d ---\n", s.ID)
		fmt.Fprintf(&b, "Mode: %v  Weather: %s\n", sig.Mode, weather)
		fmt.Fprintf(&b, "Phase: %v  Active: %v  Remaining: %.1fs\n", sig.Phase, sig.Active, sig.Remaining)
		lights := make([]string, 0, trafficlight.NumDirections)
		queues := make([]string, 0, trafficlight.NumDirections)
		for _, d := range trafficlight.Directions {
			lights = append(lights, fmt.Sprintf("%c=%v", d.String()[0], sig.Color(d)))
			queues = append(queues, fmt.Sprintf("%c=%d", d.String()[0], sig.Density[d]))
		}
		fmt.Fprintf(&b, "Lights: %s\n", strings.Join(lights, " "))
		fmt.Fprintf(&b, "Queues: %s (total %d, congestion %.2f, anomalies %d)\n",
			strings.Join(queues, " "), s.Analytics.TotalVehicles, s.Analytics.Congestion, len(s.Analytics.Anomalies))
		fmt.Fprintf(&b, "Grants: %d  Emergencies: %d  Pedestrians: %d (refused %d)  Failures: %d\n",
			sig.Grants, s.Emergencies, s.Pedestrians, s.Refused, s.Failures)
	}

	h := m.Health()
	fmt.Fprintf(&b, "\n--- Performance ---\n")
	fmt.Fprintf(&b, "Uptime: %v\n", m.Uptime.Round(time.Millisecond))
	fmt.Fprintf(&b, "Mean step time: %v\n", m.MeanStepTime)
	fmt.Fprintf(&b, "Green grants: %d\n", m.GreenGrants)
	fmt.Fprintf(&b, "Vehicles processed: %d\n", m.VehiclesProcessed)
	fmt.Fprintf(&b, "Mean congestion: %.2f\n", m.MeanCongestion)
	fmt.Fprintf(&b, "Anomalies: %d\n", m.Anomalies)
	fmt.Fprintf(&b, "Health: %s\n", h.Status)
	for _, issue := range h.Issues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}
	return b.String()
}
