package traffic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/traffic"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

func trafficConfig(t *testing.T, c config.Traffic) config.Traffic {
	rc, err := config.NewRuntimeConfig(config.Config{Traffic: c})
	require.NoError(t, err)
	return rc.Traffic
}

func TestDischargeOnlyOnGreen(t *testing.T) {
	c := trafficConfig(t, config.Traffic{
		ArrivalRate:   map[string]float64{"n": 0, "s": 0, "e": 0, "w": 0},
		Initial:       map[string]int{"north": 10, "south": 10, "east": 10, "west": 10},
		DischargeRate: 1,
	})
	s := traffic.NewSource(0, c)
	assert.Equal(t, 40, s.Total())

	arrived, departed := s.Advance(3, trafficlight.North)
	assert.Equal(t, 0, arrived)
	assert.Equal(t, 3, departed)
	d := s.Density()
	assert.Equal(t, 7, d[trafficlight.North])
	assert.Equal(t, 10, d[trafficlight.South])
	assert.Equal(t, 10, d[trafficlight.East])
	assert.Equal(t, 10, d[trafficlight.West])

	_, departed = s.Advance(5, trafficlight.None)
	assert.Equal(t, 0, departed)
	assert.Equal(t, 37, s.Total())

	// 放行不会使排队数为负
	_, departed = s.Advance(100, trafficlight.East)
	assert.Equal(t, 10, departed)
	assert.Equal(t, 0, s.Density()[trafficlight.East])
	assert.Equal(t, 10, s.Sensors()[trafficlight.East].Departed)
}

func TestFractionalDischarge(t *testing.T) {
	c := trafficConfig(t, config.Traffic{
		ArrivalRate:   map[string]float64{"n": 0, "s": 0, "e": 0, "w": 0},
		Initial:       map[string]int{"west": 10},
		DischargeRate: 0.5,
	})
	s := traffic.NewSource(0, c)
	total := 0
	for i := 0; i < 4; i++ {
		_, n := s.Advance(1, trafficlight.West)
		total += n
	}
	assert.Equal(t, 2, total)
}

func TestArrivalsCapped(t *testing.T) {
	c := trafficConfig(t, config.Traffic{
		Seed:        1,
		Scenario:    config.ScenarioRushHour,
		ArrivalRate: map[string]float64{"n": 5, "s": 5, "e": 5, "w": 5},
		MaxQueue:    20,
	})
	s := traffic.NewSource(2, c)
	assert.Equal(t, 10., s.Sensors()[trafficlight.South].Rate)
	for i := 0; i < 50; i++ {
		s.Advance(1, trafficlight.None)
	}
	for _, sensor := range s.Sensors() {
		assert.Equal(t, 20, sensor.Queue)
	}
}

func TestSourceReproducible(t *testing.T) {
	c := trafficConfig(t, config.Traffic{Seed: 9})
	a := traffic.NewSource(4, c)
	b := traffic.NewSource(4, c)
	for i := 0; i < 200; i++ {
		a.Advance(1, trafficlight.Directions[i%4])
		b.Advance(1, trafficlight.Directions[i%4])
		assert.Equal(t, a.Density(), b.Density())
	}
}

func sensors(n, s, e, w int) [trafficlight.NumDirections]traffic.Sensor {
	var out [trafficlight.NumDirections]traffic.Sensor
	for i, q := range []int{n, s, e, w} {
		out[i] = traffic.Sensor{Direction: trafficlight.Directions[i], Queue: q}
	}
	return out
}

func monitor(t *testing.T) *traffic.Monitor {
	rc, err := config.NewRuntimeConfig(config.Config{})
	require.NoError(t, err)
	return traffic.NewMonitor(rc.Monitor)
}

func TestCongestion(t *testing.T) {
	m := monitor(t)
	a := m.Observe(sensors(4, 6, 2, 8))
	assert.Equal(t, 20, a.TotalVehicles)
	assert.InDelta(t, 0.5, a.Congestion, 1e-9)
	assert.Empty(t, a.Anomalies)

	a = m.Observe(sensors(40, 60, 20, 80))
	assert.InDelta(t, 1, a.Congestion, 1e-9)
}

func TestAnomalyDetection(t *testing.T) {
	m := monitor(t)
	// 少于最少样本数时不检测
	for i, q := range []int{5, 6, 5, 6} {
		a := m.Observe(sensors(q, 3, 3, 3))
		assert.Empty(t, a.Anomalies, i)
	}
	a := m.Observe(sensors(5, 3, 3, 3))
	assert.Empty(t, a.Anomalies)

	// 北向突增；其他方向标准差为0，不判定异常
	a = m.Observe(sensors(30, 3, 3, 3))
	require.Len(t, a.Anomalies, 1)
	an := a.Anomalies[0]
	assert.Equal(t, trafficlight.North, an.Direction)
	assert.Equal(t, 30, an.Value)
	assert.InDelta(t, 5.4, an.Mean, 1e-9)
	assert.Greater(t, an.ZScore, 2.)
}
