package junction

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"git.fiblab.net/sim/protos/v2/go/city/map/v2/mapv2connect"
	"git.fiblab.net/sim/syncer/v3"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/rpcutil"
)

// Register 将Junction管理器注册到sidecar
// 功能：注册城市协议的信号灯查询服务与控制面板服务
func (m *JunctionManager) Register(sidecar *syncer.Sidecar) {
	sidecar.Register(
		mapv2connect.TrafficLightServiceName,
		func(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
			return mapv2connect.NewTrafficLightServiceHandler(m, opts...)
		},
	)
	sidecar.Register(JunctionServiceName, m.NewHandler)
}

// NewHandler 创建控制面板服务的HTTP处理器
// 返回：路由前缀与处理器，所有过程使用JSON编码
func (m *JunctionManager) NewHandler(opts ...connect.HandlerOption) (pattern string, handler http.Handler) {
	mux := http.NewServeMux()
	rpcutil.Handle(mux, GetSignalStateProcedure, m.getSignalState, opts...)
	rpcutil.Handle(mux, RequestEmergencyProcedure, m.requestEmergency, opts...)
	rpcutil.Handle(mux, RequestPedestrianProcedure, m.requestPedestrian, opts...)
	rpcutil.Handle(mux, SetWeatherProcedure, m.setWeather, opts...)
	rpcutil.Handle(mux, ListJunctionsProcedure, m.listJunctions, opts...)
	return "/" + JunctionServiceName + "/", mux
}

// toConnectError 将管理器错误转换为RPC错误
func toConnectError(err error) error {
	if errors.Is(err, ErrJunctionNotFound) || errors.Is(err, trafficlight.ErrInvalidInput) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func (m *JunctionManager) getSignalState(
	ctx context.Context, in *connect.Request[GetSignalStateRequest],
) (*connect.Response[GetSignalStateResponse], error) {
	j, err := m.get(in.Msg.JunctionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetSignalStateResponse{
		State: NewSignalState(j.Snapshot()),
	}), nil
}

func (m *JunctionManager) requestEmergency(
	ctx context.Context, in *connect.Request[RequestEmergencyRequest],
) (*connect.Response[RequestEmergencyResponse], error) {
	d, err := trafficlight.ParseDirection(in.Msg.Direction)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := m.RequestEmergency(in.Msg.JunctionID, d); err != nil {
		return nil, toConnectError(err)
	}
	log.Infof("junction %d: emergency %v queued", in.Msg.JunctionID, d)
	return connect.NewResponse(&RequestEmergencyResponse{}), nil
}

func (m *JunctionManager) requestPedestrian(
	ctx context.Context, in *connect.Request[RequestPedestrianRequest],
) (*connect.Response[RequestPedestrianResponse], error) {
	accepted, err := m.RequestPedestrian(in.Msg.JunctionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&RequestPedestrianResponse{Accepted: accepted}), nil
}

func (m *JunctionManager) setWeather(
	ctx context.Context, in *connect.Request[SetWeatherRequest],
) (*connect.Response[SetWeatherResponse], error) {
	if err := m.SetWeather(in.Msg.JunctionID, in.Msg.Enabled); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SetWeatherResponse{}), nil
}

func (m *JunctionManager) listJunctions(
	ctx context.Context, in *connect.Request[ListJunctionsRequest],
) (*connect.Response[ListJunctionsResponse], error) {
	return connect.NewResponse(&ListJunctionsResponse{JunctionIDs: m.IDs()}), nil
}

// GetTrafficLight RPC接口：以城市协议格式获取指定Junction的信号灯状态
// 功能：当前相位表示为只有一个相位的信控程序，States按北、南、东、西顺序给出各进口方向的灯色
// 说明：Junction不存在时返回CodeInvalidArgument
func (m *JunctionManager) GetTrafficLight(
	ctx context.Context, in *connect.Request[mapv2.GetTrafficLightRequest],
) (*connect.Response[mapv2.GetTrafficLightResponse], error) {
	j, ok := m.data[in.Msg.JunctionId]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrJunctionNotFound)
	}
	state := j.Snapshot().Signal
	states := make([]mapv2.LightState, trafficlight.NumDirections)
	for _, d := range trafficlight.Directions {
		states[d] = state.Color(d).LightState()
	}
	return connect.NewResponse(&mapv2.GetTrafficLightResponse{
		TrafficLight: &mapv2.TrafficLight{
			JunctionId: j.id,
			Phases: []*mapv2.Phase{{
				Duration: state.Total,
				States:   states,
			}},
		},
		PhaseIndex:    0,
		TimeRemaining: state.Remaining,
	}), nil
}
