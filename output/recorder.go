package output

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/trafficsignal/entity"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
)

// Recorder 仿真输出记录器
// 功能：每步统计性能指标，每隔Every步将路口状态写入Sink，结束时输出文本报告
type Recorder struct {
	runID      string
	sink       Sink
	tracker    *Tracker
	every      int32
	reportPath string
}

// NewRecorder 根据输出配置创建记录器
func NewRecorder(ctx context.Context, c config.Output) (*Recorder, error) {
	sink, err := NewSink(ctx, c)
	if err != nil {
		return nil, err
	}
	return NewRecorderWithSink(sink, c), nil
}

// NewRecorderWithSink 使用指定的Sink创建记录器
func NewRecorderWithSink(sink Sink, c config.Output) *Recorder {
	every := c.Every
	if every <= 0 {
		every = 1
	}
	r := &Recorder{
		runID:      uuid.New().String(),
		sink:       sink,
		tracker:    NewTracker(time.Now()),
		every:      every,
		reportPath: c.Report,
	}
	log.Infof("run id: %s", r.runID)
	return r
}

// RunID 本次运行的唯一ID
func (r *Recorder) RunID() string {
	return r.runID
}

// Record 记录一步
// 参数：step-仿真步，snapshots-本步所有路口的状态，elapsed-本步墙钟耗时
// 说明：统计每步都进行，写入只在step为Every的整数倍时进行
func (r *Recorder) Record(ctx context.Context, step int32, snapshots []entity.JunctionSnapshot, elapsed time.Duration) error {
	r.tracker.Track(snapshots, elapsed)
	if step%r.every != 0 {
		return nil
	}
	records := lo.Map(snapshots, func(s entity.JunctionSnapshot, _ int) Record {
		return NewRecord(r.runID, s)
	})
	return r.sink.Write(ctx, records)
}

// Metrics 当前汇总指标
func (r *Recorder) Metrics() Metrics {
	return r.tracker.Summary(time.Now())
}

// Report 当前文本报告
func (r *Recorder) Report(simTime string) string {
	return Report(r.runID, simTime, r.Metrics(), r.tracker.Latest())
}

// Close 输出最终报告并关闭Sink
// 说明：报告总是写入日志，配置了报告路径时同时写入文件
func (r *Recorder) Close(ctx context.Context, simTime string) error {
	report := r.Report(simTime)
	log.Info("\n" + report)
	if r.reportPath != "" {
		if err := os.WriteFile(r.reportPath, []byte(report), 0o644); err != nil {
			log.Errorf("write report %s err: %v", r.reportPath, err)
		}
	}
	return r.sink.Close(ctx)
}
