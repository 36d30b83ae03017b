package task

import (
	"context"
	"sync/atomic"

	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/trafficsignal/clock"
	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction"
	"github.com/tsinghua-fib-lab/trafficsignal/output"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态，替代全局变量
// 说明：管理时钟、路口管理器、配置、输出与预设事件
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock

	// 辅助程序，处理分布式模式下相关调用，为nil时以独立模式运行
	sidecar *syncer.Sidecar
	// sidecar close channel
	sidecarCloseCh chan struct{}
	// sidecar服务是否已启动
	serving bool

	// Junction管理器
	junctionManager entity.IJunctionManager

	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 输出
	recorder *output.Recorder

	// 尚未触发的预设事件（按时间升序）
	events []config.Event
}

// NewContext 创建新的仿真任务上下文
// 功能：检查配置并初始化仿真系统的所有组件
// 参数：
//   - c: 配置对象
//   - sidecar: sidecar实例，为nil时不注册RPC服务
//   - startSidecarServe: 是否启动sidecar服务
//
// 返回：上下文实例，配置非法或输出无法创建时返回错误
// 算法说明：
// 1. 补全并检查配置
// 2. 创建时钟、输出与路口管理器
// 3. 注册RPC服务到sidecar
// 4. 启动sidecar服务（如果需要）
func NewContext(c config.Config, sidecar *syncer.Sidecar, startSidecarServe bool) (*Context, error) {
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		return nil, err
	}
	recorder, err := output.NewRecorder(context.Background(), rc.Output)
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		clock:          clock.New(rc.C.Step),
		sidecar:        sidecar,
		sidecarCloseCh: make(chan struct{}),
		runtimeConfig:  rc,
		recorder:       recorder,
		events:         rc.Events,
	}
	ctx.junctionManager = junction.NewManager(ctx)

	if sidecar != nil {
		ctx.clock.Register(sidecar)
		ctx.junctionManager.Register(sidecar)
		// sidecar协程，用于提供RPC服务
		if startSidecarServe {
			ctx.serving = true
			go func() {
				err := sidecar.Serve()
				if err != nil {
					log.Panicf("failed to serve: %v", err)
				}
				ctx.sidecarCloseCh <- struct{}{}
			}()
		}
	}
	return ctx, nil
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) JunctionManager() entity.IJunctionManager {
	return ctx.junctionManager
}

func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

func (ctx *Context) Recorder() *output.Recorder {
	return ctx.recorder
}

// Init 初始化时钟与所有路口
func (ctx *Context) Init() {
	ctx.clock.Init()
	log.Infof("Junction: %v", len(ctx.runtimeConfig.Junctions))
	log.Infof("Event: %v", len(ctx.events))
	ctx.junctionManager.Init(ctx.runtimeConfig.Junctions)
}

// Close 输出报告并关闭sidecar
func (ctx *Context) Close() {
	if ctx.closed.Swap(true) {
		return
	}
	if err := ctx.recorder.Close(context.Background(), ctx.clock.String()); err != nil {
		log.Errorf("close output err: %v", err)
	}
	if ctx.sidecar != nil {
		ctx.sidecar.Close()
	}
	if ctx.serving {
		// wait for graceful stop
		<-ctx.sidecarCloseCh
	}
}
