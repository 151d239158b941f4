// Package events 把大厅生命周期事件发布到 NATS。
// 负载为 protobuf 编码的 google.protobuf.Struct，主题为 <prefix>.<event>
package events

import (
	"fmt"
	"maps"
	"time"

	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Conn 发布所需的 NATS 连接能力，*nats.Conn 满足该接口
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher NATS 事件发布，实现 types.EventPublisher
type Publisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

// Connect 连接 NATS 并创建发布器
func Connect(url, prefix, name string) (*Publisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	return NewPublisher(conn, prefix), nil
}

// NewPublisher 使用已有连接创建发布器
func NewPublisher(conn Conn, prefix string) *Publisher {
	return &Publisher{conn: conn, prefix: prefix, now: time.Now}
}

// Subject 事件对应的主题
func (p *Publisher) Subject(event string) string {
	if p.prefix == "" {
		return event
	}
	return p.prefix + "." + event
}

// Publish 发布事件，附带毫秒时间戳 ts
func (p *Publisher) Publish(event string, fields map[string]any) error {
	payload := make(map[string]any, len(fields)+1)
	maps.Copy(payload, fields)
	payload["ts"] = p.now().UnixMilli()

	data, err := Encode(payload)
	if err != nil {
		return fmt.Errorf("编码事件 %s 失败: %w", event, err)
	}
	return p.conn.Publish(p.Subject(event), data)
}

// Close 发送缓冲中的事件后关闭连接
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

// Encode 把字段编码为 protobuf Struct
func Encode(fields map[string]any) ([]byte, error) {
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(st)
}

// Decode 解码事件负载，数值字段统一为 float64
func Decode(data []byte) (map[string]any, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}
