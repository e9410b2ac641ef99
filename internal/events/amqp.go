package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpPublishTimeout = 5 * time.Second
	amqpRedialDelay    = 5 * time.Second
)

var errAMQPUnavailable = errors.New("amqp broker unavailable")

type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// amqpSession is one broker connection and its channel. closed fires when
// the broker drops the connection.
type amqpSession struct {
	ch     amqpChannel
	closed <-chan *amqp.Error
	close  func()
}

func (s *amqpSession) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// AMQPSink publishes events to a fanout exchange that customer notification
// consumers bind to. The event type is the routing key. A dropped connection
// is redialed on the next publish.
type AMQPSink struct {
	exchange string
	dial     func() (*amqpSession, error)
	now      func() time.Time

	mu         sync.Mutex
	sess       *amqpSession
	retryAfter time.Time
}

// DialAMQP connects and declares the durable fanout exchange.
func DialAMQP(url, exchange string) (*AMQPSink, error) {
	return newAMQPSink(func() (*amqpSession, error) { return dialAMQPSession(url) }, exchange)
}

func dialAMQPSession(url string) (*amqpSession, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	return &amqpSession{
		ch:     ch,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		close: func() {
			_ = ch.Close()
			_ = conn.Close()
		},
	}, nil
}

func newAMQPSink(dial func() (*amqpSession, error), exchange string) (*AMQPSink, error) {
	s := &AMQPSink{exchange: exchange, dial: dial, now: time.Now}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

// connect must be called with mu held, or before the sink is shared.
func (s *AMQPSink) connect() error {
	sess, err := s.dial()
	if err != nil {
		return err
	}
	if err := sess.ch.ExchangeDeclare(s.exchange, "fanout", true, false, false, false, nil); err != nil {
		sess.close()
		return fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}
	s.sess = sess
	return nil
}

// drop must be called with mu held.
func (s *AMQPSink) drop() {
	if s.sess != nil {
		s.sess.close()
		s.sess = nil
	}
}

func (s *AMQPSink) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil && s.sess.isClosed() {
		log.Printf("WARN: amqp connection closed, redialing")
		s.drop()
	}
	if s.sess == nil {
		if s.now().Before(s.retryAfter) {
			return errAMQPUnavailable
		}
		if err := s.connect(); err != nil {
			s.retryAfter = s.now().Add(amqpRedialDelay)
			return fmt.Errorf("amqp reconnect: %w", err)
		}
	}

	err = s.sess.ch.PublishWithContext(ctx, s.exchange, e.Type, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    e.ID,
		Type:         e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
	if errors.Is(err, amqp.ErrClosed) {
		s.drop()
	}
	return err
}

func (s *AMQPSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drop()
}
