package entity

import (
	"github.com/tsinghua-fib-lab/trafficsignal/clock"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	JunctionManager() IJunctionManager
	RuntimeConfig() *config.RuntimeConfig
}
