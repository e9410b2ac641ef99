package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/resto-qr/api/internal/metrics"
	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink appends events to the order lifecycle topic, keyed by order ID
// so each order's events stay in one partition. Publish only enqueues; a
// background loop does the writes.
type KafkaSink struct {
	w     kafkaWriter
	inbox chan kafka.Message
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaSink(brokers []string, topic string, buf int) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf)
}

func newKafkaSink(w kafkaWriter, buf int) *KafkaSink {
	return &KafkaSink{
		w:     w,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
}

// Start launches the write loop. It exits after Close once the inbox drains.
func (k *KafkaSink) Start() {
	go func() {
		defer close(k.done)
		for m := range k.inbox {
			if err := k.w.WriteMessages(context.Background(), m); err != nil {
				metrics.EventPublishErrors.WithLabelValues("kafka").Inc()
				log.Printf("ERROR: kafka write %s: %v", m.Key, err)
			}
		}
		if err := k.w.Close(); err != nil {
			log.Printf("WARN: kafka writer close: %v", err)
		}
	}()
}

func (k *KafkaSink) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(e.Key),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
			{Key: "event_id", Value: []byte(e.ID)},
		},
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrSinkClosed
	}
	select {
	case k.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSinkFull
	}
}

// Close stops accepting events, flushes the queue and waits for the loop.
func (k *KafkaSink) Close() {
	k.mu.Lock()
	if !k.closed {
		k.closed = true
		close(k.inbox)
	}
	k.mu.Unlock()
	<-k.done
}
