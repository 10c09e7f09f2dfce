package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/resilience"
)

// StatusBus publishes GlobalStatus snapshots so other processes can follow the agent.
type StatusBus struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

// statusEvent is the wire form of one published snapshot.
type statusEvent struct {
	Status      domain.GlobalStatus `json:"status"`
	PublishedAt time.Time           `json:"published_at"`
}

func New(url, subject string, options Options) (*StatusBus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("invoice-hub-agent"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &StatusBus{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (b *StatusBus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func encodeStatus(status domain.GlobalStatus, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(statusEvent{Status: status, PublishedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode status event: %w", err)
	}
	return payload, nil
}

func decodeStatus(data []byte) (domain.GlobalStatus, error) {
	var event statusEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.GlobalStatus{}, fmt.Errorf("decode status event: %w", err)
	}
	return event.Status, nil
}

func (b *StatusBus) PublishStatus(ctx context.Context, status domain.GlobalStatus) error {
	payload, err := encodeStatus(status, time.Now())
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish_status", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return publishError(err)
	}
	return nil
}

// SubscribeStatus blocks until ctx ends, calling handler for every snapshot.
func (b *StatusBus) SubscribeStatus(ctx context.Context, handler func(context.Context, domain.GlobalStatus)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		status, err := decodeStatus(msg.Data)
		if err != nil {
			slog.Warn("status_event_invalid", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, status)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}
