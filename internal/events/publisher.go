package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/resto-qr/api/internal/metrics"
)

var (
	ErrSinkFull   = errors.New("event sink buffer full")
	ErrSinkClosed = errors.New("event sink closed")
)

// Publisher delivers an event to its audience.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type namedSink struct {
	name string
	pub  Publisher
}

// Fanout publishes every event to all registered sinks. A failing sink does
// not stop the others; their errors are joined.
type Fanout struct {
	sinks []namedSink
}

func NewFanout() *Fanout {
	return &Fanout{}
}

// Add registers a sink under name, used as the metrics label.
func (f *Fanout) Add(name string, p Publisher) {
	f.sinks = append(f.sinks, namedSink{name: name, pub: p})
}

// Len reports the number of registered sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.pub.Publish(ctx, e); err != nil {
			metrics.EventPublishErrors.WithLabelValues(s.name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		metrics.EventsPublished.WithLabelValues(s.name, e.Type).Inc()
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
