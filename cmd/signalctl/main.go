// signalctl 信号灯控制面板命令行工具
// 通过JSON编码的Connect RPC查询路口状态并下发紧急车辆、行人与天气指令
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"connectrpc.com/connect"
	clockv1 "git.fiblab.net/sim/protos/v2/go/city/clock/v1"
	"git.fiblab.net/sim/protos/v2/go/city/clock/v1/clockv1connect"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction"
	"github.com/tsinghua-fib-lab/trafficsignal/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/rpcutil"
)

var (
	server     = flag.String("server", "http://localhost:51102", "simulator address")
	junctionID = flag.Int("junction", 0, "junction id")
	timeout    = flag.Duration("timeout", 5*time.Second, "request timeout")

	log = logrus.WithField("module", "signalctl")
)

const usage = `usage: signalctl [flags] <command> [args]

commands:
  state                  show the signal state of the junction
  list                   list all junction ids
  now                    show the simulation time
  emergency <direction>  request an emergency vehicle approaching from north|south|east|west
  pedestrian             request a pedestrian crossing
  weather on|off         toggle the weather modifier
`

func main() {
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage, "\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := run(ctx, args[0], args[1:]); err != nil {
		log.Fatalf("%s: %v", args[0], err)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	id := int32(*junctionID)
	switch cmd {
	case "state":
		client := rpcutil.NewClient[junction.GetSignalStateRequest, junction.GetSignalStateResponse](
			http.DefaultClient, *server, junction.GetSignalStateProcedure,
		)
		res, err := client.CallUnary(ctx, connect.NewRequest(&junction.GetSignalStateRequest{JunctionID: id}))
		if err != nil {
			return err
		}
		return printJSON(res.Msg.State)
	case "list":
		client := rpcutil.NewClient[junction.ListJunctionsRequest, junction.ListJunctionsResponse](
			http.DefaultClient, *server, junction.ListJunctionsProcedure,
		)
		res, err := client.CallUnary(ctx, connect.NewRequest(&junction.ListJunctionsRequest{}))
		if err != nil {
			return err
		}
		return printJSON(res.Msg.JunctionIDs)
	case "now":
		client := clockv1connect.NewClockServiceClient(http.DefaultClient, *server)
		res, err := client.Now(ctx, connect.NewRequest(&clockv1.NowRequest{}))
		if err != nil {
			return err
		}
		fmt.Printf("t=%.2fs\n", res.Msg.T)
		return nil
	case "emergency":
		if len(args) != 1 {
			return fmt.Errorf("expect a direction")
		}
		d, err := trafficlight.ParseDirection(args[0])
		if err != nil {
			return err
		}
		client := rpcutil.NewClient[junction.RequestEmergencyRequest, junction.RequestEmergencyResponse](
			http.DefaultClient, *server, junction.RequestEmergencyProcedure,
		)
		_, err = client.CallUnary(ctx, connect.NewRequest(&junction.RequestEmergencyRequest{JunctionID: id, Direction: d.String()}))
		if err != nil {
			return err
		}
		fmt.Printf("junction %d: emergency from %v requested\n", id, d)
		return nil
	case "pedestrian":
		client := rpcutil.NewClient[junction.RequestPedestrianRequest, junction.RequestPedestrianResponse](
			http.DefaultClient, *server, junction.RequestPedestrianProcedure,
		)
		res, err := client.CallUnary(ctx, connect.NewRequest(&junction.RequestPedestrianRequest{JunctionID: id}))
		if err != nil {
			return err
		}
		if res.Msg.Accepted {
			fmt.Printf("junction %d: pedestrian crossing accepted\n", id)
		} else {
			fmt.Printf("junction %d: pedestrian crossing refused during emergency\n", id)
		}
		return nil
	case "weather":
		if len(args) != 1 {
			return fmt.Errorf("expect on or off")
		}
		var enabled bool
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
		default:
			return fmt.Errorf("expect on or off, got %q", args[0])
		}
		client := rpcutil.NewClient[junction.SetWeatherRequest, junction.SetWeatherResponse](
			http.DefaultClient, *server, junction.SetWeatherProcedure,
		)
		_, err := client.CallUnary(ctx, connect.NewRequest(&junction.SetWeatherRequest{JunctionID: id, Enabled: enabled}))
		if err != nil {
			return err
		}
		fmt.Printf("junction %d: weather %s\n", id, args[0])
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
