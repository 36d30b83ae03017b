package task

import (
	"context"
	"flag"
	"time"

	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

const (
	SelfName = "trafficsignal" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：在每个仿真步骤开始时进行准备工作
// 算法说明：
// 1. 更新时钟：增加内部步数并计算当前时间
// 2. 心跳日志：定期输出系统状态信息
// 3. 预设事件：将到达触发时间的事件写入路口指令缓冲区
// 4. 路口准备：应用指令缓冲区中的控制指令
//
// 说明：RPC写入的控制指令与预设事件都在这里生效，更新阶段只读取已确定的模式
func (ctx *Context) prepare() {
	step := ctx.clock.Advance()

	if interval := int32(*heartBeatInterval); interval > 0 && step%interval == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof("STEP: %d(%d:%d:%.2f)", step, hour, minute, second)
	}

	ctx.fireEvents(ctx.clock.T())
	ctx.junctionManager.Prepare()
}

// fireEvents 下发触发时间不晚于t的预设事件
func (ctx *Context) fireEvents(t float64) {
	for len(ctx.events) > 0 && ctx.events[0].At <= t {
		e := ctx.events[0]
		ctx.events = ctx.events[1:]
		var err error
		switch e.Type {
		case config.EventEmergency:
			var d trafficlight.Direction
			if d, err = trafficlight.ParseDirection(e.Direction); err == nil {
				err = ctx.junctionManager.RequestEmergency(e.Junction, d)
			}
		case config.EventPedestrian:
			var accepted bool
			if accepted, err = ctx.junctionManager.RequestPedestrian(e.Junction); err == nil && !accepted {
				log.Warnf("event at %.1fs: pedestrian request refused by junction %d", e.At, e.Junction)
			}
		case config.EventWeather:
			err = ctx.junctionManager.SetWeather(e.Junction, e.Enabled)
		}
		if err != nil {
			log.Warnf("event at %.1fs (%s, junction %d) err: %v", e.At, e.Type, e.Junction, err)
		} else {
			log.Debugf("event at %.1fs: %+v", e.At, e)
		}
	}
}

// update 更新阶段，每步执行一次
// 功能：推进所有路口的信号灯与排队车辆，并记录输出
func (ctx *Context) update() {
	start := time.Now()
	ctx.junctionManager.Update(ctx.clock.DT)
	snapshots := ctx.junctionManager.Snapshots()
	if err := ctx.recorder.Record(context.Background(), ctx.clock.Step(), snapshots, time.Since(start)); err != nil {
		log.Errorf("step %d: output err: %v", ctx.clock.Step(), err)
	}
}

// Step 执行一个完整的仿真步（准备+更新）
func (ctx *Context) Step() {
	ctx.prepare()
	ctx.update()
}

// Run 运行
// 说明：有sidecar时与syncer同步推进，否则独立运行到结束步
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	if ctx.sidecar == nil {
		for !ctx.closed.Load() {
			ctx.Step()
			if ctx.clock.IsLastStep() {
				break
			}
		}
		log.Infof("engine complete")
		ctx.Close()
		return
	}
	// init syncer
	ctx.sidecar.Step(false)
	for {
		ctx.prepare()
		// 通知准备阶段完成
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.Step())
		ctx.sidecar.NotifyStepReady()
		log.Debugf("step %d: NotifyStepReady complete", ctx.clock.Step())
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.Step())
		close := ctx.sidecar.Step(ctx.clock.IsLastStep())
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
}
