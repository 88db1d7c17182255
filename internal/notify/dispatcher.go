// Package notify hands order notifications to the delivery pipeline over
// Kafka. Rendering and sending email happens in a downstream consumer.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checkout-service/internal/entity"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the dispatcher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher sends one notification per call. It returns the transport error
// and leaves the decision to ignore it to the caller.
type Dispatcher interface {
	Send(ctx context.Context, kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) error
}

// KafkaDispatcher bounds every write by timeout so a slow broker cannot hold
// up the request that triggered the notification.
type KafkaDispatcher struct {
	writer  MessageWriter
	timeout time.Duration
	now     func() time.Time
}

func NewKafkaDispatcher(writer MessageWriter, timeout time.Duration) *KafkaDispatcher {
	return &KafkaDispatcher{writer: writer, timeout: timeout, now: time.Now}
}

func (d *KafkaDispatcher) Send(ctx context.Context, kind entity.NotificationKind, order *entity.Order, payload map[string]interface{}) error {
	notification := entity.Notification{
		Kind:    kind,
		Order:   order,
		Payload: payload,
		SentAt:  d.now().UTC(),
	}

	value, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	// order-admin_alert-ORD1A2B3C4D
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", kind, order.ID)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(kind)},
		},
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("send %s for order %s: %w", kind, order.ID, err)
	}
	return nil
}
