// Package notify 在一轮抓取完成后通知下游
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"ncov-crawler/internal/crawler/model"
)

type Notifier interface {
	CycleCompleted(ctx context.Context, summary model.Summary) error
}

// Nop 未配置 NATS 时使用
type Nop struct{}

func (Nop) CycleCompleted(context.Context, model.Summary) error { return nil }

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("ncov-crawler"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

// CycleCompleted 发布本轮抓取摘要
func (p *NATSPublisher) CycleCompleted(_ context.Context, summary model.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
