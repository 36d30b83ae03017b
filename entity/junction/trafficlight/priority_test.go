package trafficlight_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"golang.org/x/exp/rand"
)

const eps = 1e-9

func density(n, s, e, w int) trafficlight.Density {
	return trafficlight.Density{
		trafficlight.North: n,
		trafficlight.South: s,
		trafficlight.East:  e,
		trafficlight.West:  w,
	}
}

func newController(t *testing.T) *trafficlight.SignalController {
	c, err := trafficlight.NewSignalController(trafficlight.DefaultTiming())
	require.NoError(t, err)
	return c
}

func TestInitialState(t *testing.T) {
	c := newController(t)
	s := c.State()
	assert.Equal(t, trafficlight.PhaseAllRed, s.Phase)
	assert.Equal(t, trafficlight.None, s.Active)
	assert.Equal(t, trafficlight.NormalMode(), s.Mode)
	assert.Equal(t, 0, s.GreenCount())
	for _, d := range trafficlight.Directions {
		assert.Equal(t, trafficlight.Red, s.Color(d))
	}
}

func TestNormalWinner(t *testing.T) {
	c := newController(t)
	s, err := c.Tick(0, density(15, 5, 10, 3))
	require.NoError(t, err)

	g, ok := s.Green()
	require.True(t, ok)
	assert.Equal(t, trafficlight.North, g)
	assert.InDelta(t, 9.5, s.Remaining, eps)
	assert.InDelta(t, 9.5, s.Total, eps)
	assert.InDelta(t, 30, s.Scores[trafficlight.North], eps)
	assert.InDelta(t, 10, s.Scores[trafficlight.South], eps)
	assert.InDelta(t, 20, s.Scores[trafficlight.East], eps)
	assert.InDelta(t, 6, s.Scores[trafficlight.West], eps)
	assert.Equal(t, trafficlight.Red, s.Color(trafficlight.South))
	assert.Equal(t, 1, s.Grants)
}

func TestGreenDuration(t *testing.T) {
	tm := trafficlight.DefaultTiming()
	assert.InDelta(t, 9.5, tm.GreenDuration(15, false), eps)
	assert.InDelta(t, 6.5, tm.GreenDuration(5, false), eps)
	assert.InDelta(t, 5, tm.GreenDuration(0, false), eps)
	assert.InDelta(t, 9.75, tm.GreenDuration(5, true), eps)
	assert.InDelta(t, 4.5, tm.YellowDuration(true), eps)

	prev := 0.
	for n := 0; n < 100; n++ {
		g := tm.GreenDuration(n, false)
		assert.GreaterOrEqual(t, g, prev)
		assert.GreaterOrEqual(t, g, tm.MinGreen)
		prev = g
	}

	tm.BaseGreen = 0
	tm.MaxGreen = 10
	assert.InDelta(t, 3, tm.GreenDuration(1, false), eps)
	assert.InDelta(t, 10, tm.GreenDuration(100, false), eps)
}

func TestWeatherKeepsRanking(t *testing.T) {
	in := density(15, 5, 10, 3)
	dry := newController(t)
	wet := newController(t)
	wet.SetWeather(true)

	a, err := dry.Tick(0, in)
	require.NoError(t, err)
	b, err := wet.Tick(0, in)
	require.NoError(t, err)

	assert.Equal(t, a.Active, b.Active)
	for _, d := range trafficlight.Directions {
		assert.InDelta(t, a.Scores[d]*0.7, b.Scores[d], eps)
	}
	assert.True(t, b.Weather)
	assert.InDelta(t, 9.5*1.5, b.Remaining, eps)
}

func TestTieBreakOrder(t *testing.T) {
	cases := []struct {
		in   trafficlight.Density
		want trafficlight.Direction
	}{
		{density(0, 0, 0, 0), trafficlight.North},
		{density(1, 4, 4, 4), trafficlight.South},
		{density(1, 2, 4, 4), trafficlight.East},
		{density(1, 2, 3, 4), trafficlight.West},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ {
			s, err := newController(t).Tick(0, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.Active)
		}
	}
}

func TestYellowBeforeNextGreen(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)

	// 北向绿灯期间其他方向累积等待时间，东向（10辆）在下次决策中胜出
	s, err := c.Tick(9.5, density(0, 5, 10, 3))
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	assert.Equal(t, trafficlight.North, s.Active)
	assert.Equal(t, trafficlight.Yellow, s.Color(trafficlight.North))
	assert.Equal(t, 0, s.GreenCount())
	assert.InDelta(t, 3, s.Remaining, eps)

	s, err = c.Tick(3, density(0, 5, 10, 3))
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
	assert.Equal(t, trafficlight.East, s.Active)
	assert.InDelta(t, 8, s.Remaining, eps)
	assert.InDelta(t, 0, s.WaitTimes[trafficlight.East], eps)
	assert.InDelta(t, 3, s.WaitTimes[trafficlight.North], eps)
}

func TestRepeatExtension(t *testing.T) {
	tm := trafficlight.DefaultTiming()
	tm.MaxRepeatCount = 2
	c, err := trafficlight.NewSignalController(tm)
	require.NoError(t, err)

	in := density(50, 0, 0, 0)
	s, err := c.Tick(0, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.North, s.Active)

	// 北向仍然得分最高，直接延长绿灯
	s, err = c.Tick(20, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
	assert.Equal(t, trafficlight.North, s.Active)
	assert.InDelta(t, 20, s.Remaining, eps)
	assert.Equal(t, 2, s.Grants)

	// 达到连续次数上限，让给得分第二的方向
	s, err = c.Tick(20, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	s, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.South, s.Active)
}

func TestEmergencyScenario(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)

	require.NoError(t, c.RequestEmergency(trafficlight.East))
	s := c.State()
	assert.Equal(t, trafficlight.EmergencyMode(trafficlight.East), s.Mode)
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	assert.Equal(t, trafficlight.Yellow, s.Color(trafficlight.North))
	assert.Equal(t, 0, s.GreenCount())

	s, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.Green, s.Color(trafficlight.East))
	assert.InDelta(t, 10, s.Remaining, eps)

	// 紧急授权期间行人请求被拒绝
	assert.False(t, c.RequestPedestrian())

	s, err = c.Tick(9, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.East, s.Active)
	assert.Equal(t, trafficlight.ModeEmergency, s.Mode.Kind)

	s, err = c.Tick(1, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.NormalMode(), s.Mode)
	// 北向等待13秒，重新计算得分后胜出，东向转黄
	assert.InDelta(t, 36.5, s.Scores[trafficlight.North], eps)
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	assert.Equal(t, trafficlight.East, s.Active)

	s, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.North, s.Active)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
}

func TestEmergencyOnActiveDirection(t *testing.T) {
	c := newController(t)
	_, err := c.Tick(0, density(15, 5, 10, 3))
	require.NoError(t, err)
	require.NoError(t, c.RequestEmergency(trafficlight.North))
	s := c.State()
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
	assert.Equal(t, trafficlight.North, s.Active)
	assert.InDelta(t, 10, s.Remaining, eps)
}

func TestEmergencySupersedesPedestrian(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)
	assert.True(t, c.RequestPedestrian())
	_, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhasePedestrian, c.State().Phase)

	require.NoError(t, c.RequestEmergency(trafficlight.West))
	s := c.State()
	assert.Equal(t, trafficlight.EmergencyMode(trafficlight.West), s.Mode)
	assert.Equal(t, trafficlight.Green, s.Color(trafficlight.West))
	assert.InDelta(t, 10, s.Remaining, eps)
}

func TestEmergencyDuringYellowWaits(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)
	_, err = c.Tick(9.5, density(0, 5, 10, 3))
	require.NoError(t, err)
	require.Equal(t, trafficlight.PhaseYellow, c.State().Phase)

	require.NoError(t, c.RequestEmergency(trafficlight.South))
	s, err := c.Tick(1, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	assert.InDelta(t, 2, s.Remaining, eps)

	s, err = c.Tick(2, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.South, s.Active)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
}

func TestEmergencyForYellowDirectionClearsFirst(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)
	require.True(t, c.RequestPedestrian())
	require.Equal(t, trafficlight.Yellow, c.State().Color(trafficlight.North))

	require.NoError(t, c.RequestEmergency(trafficlight.North))
	s := c.State()
	assert.Equal(t, trafficlight.EmergencyMode(trafficlight.North), s.Mode)
	assert.Equal(t, trafficlight.Yellow, s.Color(trafficlight.North))

	// 黄灯结束后北向先变红
	s, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseAllRed, s.Phase)
	assert.Equal(t, trafficlight.Red, s.Color(trafficlight.North))
	assert.Equal(t, 0, s.GreenCount())
	assert.InDelta(t, 1, s.Remaining, eps)

	s, err = c.Tick(1, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.Green, s.Color(trafficlight.North))
	assert.InDelta(t, 10, s.Remaining, eps)
	assert.Equal(t, trafficlight.EmergencyMode(trafficlight.North), s.Mode)

	s, err = c.Tick(10, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.NormalMode(), s.Mode)
}

func TestTickSpansPhases(t *testing.T) {
	c := newController(t)
	// 北向绿灯9.5s -> 北向黄灯3s -> 东向绿灯9.2s，共经过13.5s
	s, err := c.Tick(13.5, density(15, 5, 14, 3))
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
	assert.Equal(t, trafficlight.East, s.Active)
	assert.InDelta(t, 8.2, s.Remaining, eps)
	assert.InDelta(t, 9.2, s.Total, eps)
	assert.Equal(t, 2, s.Grants)
	assert.InDelta(t, 4, s.WaitTimes[trafficlight.North], eps)
	assert.InDelta(t, 13.5, s.WaitTimes[trafficlight.South], eps)
	assert.InDelta(t, 0, s.WaitTimes[trafficlight.East], eps)
}

func TestTickHugeElapsedReturns(t *testing.T) {
	c := newController(t)
	done := make(chan trafficlight.State, 1)
	go func() {
		s, err := c.Tick(1e17, density(15, 5, 10, 3))
		assert.NoError(t, err)
		done <- s
	}()
	select {
	case s := <-done:
		assert.LessOrEqual(t, s.GreenCount(), 1)
		assert.GreaterOrEqual(t, s.Remaining, 0.)
	case <-time.After(5 * time.Second):
		t.Fatal("tick did not return")
	}

	s, err := c.Tick(1, density(15, 5, 10, 3))
	require.NoError(t, err)
	assert.LessOrEqual(t, s.GreenCount(), 1)
}

func TestRequestEmergencyInvalid(t *testing.T) {
	c := newController(t)
	before := c.State()
	err := c.RequestEmergency(trafficlight.None)
	assert.ErrorIs(t, err, trafficlight.ErrInvalidInput)
	assert.Equal(t, before, c.State())
}

func TestPedestrianPhase(t *testing.T) {
	c := newController(t)
	in := density(15, 5, 10, 3)
	_, err := c.Tick(0, in)
	require.NoError(t, err)

	assert.True(t, c.RequestPedestrian())
	assert.True(t, c.RequestPedestrian())
	s := c.State()
	assert.Equal(t, trafficlight.PhaseYellow, s.Phase)
	assert.Equal(t, trafficlight.PedestrianMode(), s.Mode)

	s, err = c.Tick(3, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhasePedestrian, s.Phase)
	assert.InDelta(t, 8, s.Remaining, eps)

	s, err = c.Tick(4, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.PhasePedestrian, s.Phase)
	assert.Equal(t, 0, s.GreenCount())
	for _, d := range trafficlight.Directions {
		assert.Equal(t, trafficlight.Red, s.Color(d))
	}

	s, err = c.Tick(4, in)
	require.NoError(t, err)
	assert.Equal(t, trafficlight.NormalMode(), s.Mode)
	assert.Equal(t, trafficlight.PhaseGreen, s.Phase)
	assert.Equal(t, 1, s.GreenCount())
}

func TestPedestrianFromAllRed(t *testing.T) {
	c := newController(t)
	assert.True(t, c.RequestPedestrian())
	s := c.State()
	assert.Equal(t, trafficlight.PhasePedestrian, s.Phase)
	assert.InDelta(t, 8, s.Remaining, eps)

	s, err := c.Tick(8, density(1, 2, 3, 4))
	require.NoError(t, err)
	assert.Equal(t, trafficlight.West, s.Active)
}

func TestInvalidInputNoMutation(t *testing.T) {
	c := newController(t)
	_, err := c.Tick(0, density(15, 5, 10, 3))
	require.NoError(t, err)
	_, err = c.Tick(2, density(15, 5, 10, 3))
	require.NoError(t, err)
	before := c.State()

	bad := []struct {
		elapsed float64
		in      trafficlight.Density
	}{
		{1, density(15, -1, 10, 3)},
		{1, trafficlight.Density{trafficlight.North: 1, trafficlight.South: 1, trafficlight.East: 1}},
		{1, trafficlight.Density{trafficlight.North: 1, trafficlight.South: 1, trafficlight.East: 1, trafficlight.West: 1, trafficlight.Direction(7): 1}},
		{-1, density(1, 1, 1, 1)},
		{math.NaN(), density(1, 1, 1, 1)},
		{math.Inf(1), density(1, 1, 1, 1)},
	}
	for _, b := range bad {
		for i := 0; i < 2; i++ {
			s, err := c.Tick(b.elapsed, b.in)
			assert.ErrorIs(t, err, trafficlight.ErrInvalidInput)
			assert.Equal(t, before, s)
			assert.Equal(t, before, c.State())
		}
	}
}

func TestInvalidTiming(t *testing.T) {
	for _, mutate := range []func(*trafficlight.Timing){
		func(tm *trafficlight.Timing) { tm.MinGreen = 0 },
		func(tm *trafficlight.Timing) { tm.Yellow = -1 },
		func(tm *trafficlight.Timing) { tm.WeatherSlowdown = 0.5 },
		func(tm *trafficlight.Timing) { tm.MaxRepeatCount = 0 },
		func(tm *trafficlight.Timing) { tm.MaxGreen = 1 },
		func(tm *trafficlight.Timing) { tm.DensityWeight = math.NaN() },
		func(tm *trafficlight.Timing) { tm.Clearance = 0 },
	} {
		tm := trafficlight.DefaultTiming()
		mutate(&tm)
		_, err := trafficlight.NewSignalController(tm)
		assert.ErrorIs(t, err, trafficlight.ErrInvalidTiming)
	}
}

func TestAtMostOneGreen(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := newController(t)
	for i := 0; i < 5000; i++ {
		switch rng.Intn(40) {
		case 0:
			_ = c.RequestEmergency(trafficlight.Directions[rng.Intn(trafficlight.NumDirections)])
		case 1:
			c.RequestPedestrian()
		case 2:
			c.SetWeather(rng.Intn(2) == 0)
		}
		in := density(rng.Intn(30), rng.Intn(30), rng.Intn(30), rng.Intn(30))
		s, err := c.Tick(rng.Float64()*4, in)
		require.NoError(t, err)
		assert.LessOrEqual(t, s.GreenCount(), 1)
		assert.GreaterOrEqual(t, s.Remaining, 0.)
		if s.Mode.Kind == trafficlight.ModePedestrian {
			assert.Equal(t, 0, s.GreenCount())
		}
		if s.Phase == trafficlight.PhaseGreen {
			g, ok := s.Green()
			assert.True(t, ok)
			assert.Equal(t, s.Active, g)
		}
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]trafficlight.Direction{
		"north": trafficlight.North,
		"S":     trafficlight.South,
		" East": trafficlight.East,
		"w":     trafficlight.West,
	} {
		d, err := trafficlight.ParseDirection(in)
		require.NoError(t, err)
		assert.Equal(t, want, d)
	}
	_, err := trafficlight.ParseDirection("up")
	assert.ErrorIs(t, err, trafficlight.ErrInvalidInput)
}
