package clock

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	"git.fiblab.net/sim/syncer/v3"
)

// Register 将ClockService注册到sidecar
func (c *Clock) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		clockv1connect.ClockServiceName,
		c.NewHandler,
		syncer.WithNoLock(),
	)
}

// NewHandler 创建ClockService的HTTP处理器
func (c *Clock) NewHandler(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	return clockv1connect.NewClockServiceHandler(c, opts...)
}

// Now 获取当前仿真时间
// 说明：控制面板据此显示路口状态对应的仿真时刻
func (c *Clock) Now(ctx context.Context, in *connect.Request[clockv1.NowRequest]) (*connect.Response[clockv1.NowResponse], error) {
	return connect.NewResponse(&clockv1.NowResponse{
		T: c.T(),
	}), nil
}
