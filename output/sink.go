package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/trafficsignal/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Sink 输出记录的写入目标
type Sink interface {
	Write(ctx context.Context, records []Record) error
	Close(ctx context.Context) error
}

// NewSink 根据输出配置创建写入目标
// 功能：设置了URI时写入MongoDB，设置了文件路径时写入文件，否则丢弃记录
func NewSink(ctx context.Context, c config.Output) (Sink, error) {
	switch {
	case c.URI != "":
		return NewMongoSink(ctx, c)
	case c.File != "":
		return NewFileSink(c.File, c.Format)
	default:
		return discardSink{}, nil
	}
}

// MongoSink 写入MongoDB集合
type MongoSink struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoSink 连接MongoDB并在{run_id, junction, step}上建立索引
func NewMongoSink(ctx context.Context, c config.Output) (*MongoSink, error) {
	client := mongoutil.NewClient(c.URI)
	coll := mongoutil.GetMongoColl(client, c)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			bson.E{Key: "run_id", Value: 1},
			bson.E{Key: "junction", Value: 1},
			bson.E{Key: "step", Value: 1},
		},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("create index on %s.%s: %w", c.DB, c.Col, err)
	}
	log.Infof("output to mongodb %s.%s", c.DB, c.Col)
	return &MongoSink{client: client, coll: coll}, nil
}

func (s *MongoSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = r
	}
	_, err := s.coll.InsertMany(ctx, docs)
	return err
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FileSink 写入JSON Lines或CSV
type FileSink struct {
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
	csv    *csv.Writer
}

// NewFileSink 创建文件写入目标
// 参数：path-文件路径，format-json|csv
func NewFileSink(path, format string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s, err := NewWriterSink(f, format)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	log.Infof("output to %s file %s", format, path)
	return s, nil
}

// NewWriterSink 创建写入任意io.Writer的目标
// 说明：CSV格式立即写入表头
func NewWriterSink(w io.Writer, format string) (*FileSink, error) {
	s := &FileSink{w: w}
	switch format {
	case "json":
		s.enc = json.NewEncoder(w)
	case "csv":
		s.csv = csv.NewWriter(w)
		if err := s.csv.Write(csvHeader); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", config.ErrInvalidConfig, format)
	}
	return s, nil
}

func (s *FileSink) Write(ctx context.Context, records []Record) error {
	for _, r := range records {
		if s.enc != nil {
			if err := s.enc.Encode(r); err != nil {
				return err
			}
		} else if err := s.csv.Write(r.csvRow()); err != nil {
			return err
		}
	}
	if s.csv != nil {
		s.csv.Flush()
		return s.csv.Error()
	}
	return nil
}

func (s *FileSink) Close(ctx context.Context) error {
	if s.csv != nil {
		s.csv.Flush()
		if err := s.csv.Error(); err != nil {
			return err
		}
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

type discardSink struct{}

func (discardSink) Write(context.Context, []Record) error { return nil }
func (discardSink) Close(context.Context) error { return nil }
