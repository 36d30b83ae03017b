// Connect RPC辅助：让没有protobuf定义的服务以JSON收发普通Go结构体
package rpcutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// JSONCodec 基于encoding/json的Connect编解码器
// 说明：名称为json，注册后替换Connect默认的protojson编解码器
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Handle 向mux注册一个JSON一元RPC
// 参数：mux-路由，procedure-完整过程名（/package.Service/Method），fn-处理函数，opts-sidecar提供的处理器选项
func Handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts ...connect.HandlerOption,
) {
	opts = append(opts, connect.WithCodec(JSONCodec{}))
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

// NewClient 创建JSON一元RPC客户端
// 参数：httpClient-HTTP客户端，baseURL-服务地址，procedure-完整过程名
func NewClient[Req, Res any](
	httpClient connect.HTTPClient,
	baseURL string,
	procedure string,
	opts ...connect.ClientOption,
) *connect.Client[Req, Res] {
	opts = append(opts, connect.WithCodec(JSONCodec{}))
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}
