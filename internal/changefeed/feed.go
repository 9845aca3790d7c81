// Package changefeed carries catalog change notifications between the HTTP layer,
// the analytics cache and live event streams.
package changefeed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/cinescope/internal/logging"
	"github.com/Clark-Hu/cinescope/internal/metrics"
)

// Topic is the single topic every change is published on.
const Topic = "movie.changes"

// Kind classifies what changed.
type Kind string

const (
	KindRating  Kind = "rating"
	KindComment Kind = "comment"
	KindMovie   Kind = "movie"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("changefeed: closed")

// Event describes a change to one movie.
type Event struct {
	MovieID string    `json:"movieId"`
	Kind    Kind      `json:"kind"`
	At      time.Time `json:"at"`
}

// Publisher is the write side of a Feed.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Feed is an in-process change feed backed by watermill's Go channel pub/sub.
type Feed struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger
	closed chan struct{}
	once   sync.Once
}

// New constructs a Feed. buffer sizes each subscriber's output channel.
func New(buffer int, logger zerolog.Logger) *Feed {
	if buffer < 0 {
		buffer = 0
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(buffer),
	}, logging.NewWatermillAdapter(logger))

	return &Feed{
		pubsub: pubsub,
		logger: logger.With().Str("component", "changefeed").Logger(),
		closed: make(chan struct{}),
	}
}

// Publish broadcasts event to all current subscribers. A zero At is stamped with now.
func (f *Feed) Publish(ctx context.Context, event Event) error {
	if f.isClosed() {
		return ErrClosed
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := f.pubsub.Publish(Topic, msg); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	metrics.ChangeEventsTotal.WithLabelValues(string(event.Kind)).Inc()
	return nil
}

// Subscribe returns every event published after the call. The channel closes when ctx is
// cancelled or the feed is closed.
func (f *Feed) Subscribe(ctx context.Context) (<-chan Event, error) {
	return f.subscribe(ctx, func(Event) bool { return true })
}

// SubscribeMovie is Subscribe restricted to one movie.
func (f *Feed) SubscribeMovie(ctx context.Context, movieID string) (<-chan Event, error) {
	return f.subscribe(ctx, func(e Event) bool { return e.MovieID == movieID })
}

func (f *Feed) subscribe(ctx context.Context, keep func(Event) bool) (<-chan Event, error) {
	if f.isClosed() {
		return nil, ErrClosed
	}
	messages, err := f.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		for msg := range messages {
			var event Event
			err := json.Unmarshal(msg.Payload, &event)
			msg.Ack()
			if err != nil {
				f.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed change event")
				continue
			}
			if !keep(event) {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				// Drain so watermill can finish delivering and close the channel.
				for m := range messages {
					m.Ack()
				}
				return
			}
		}
	}()
	return out, nil
}

// Close stops the feed and closes every subscription.
func (f *Feed) Close() error {
	var err error
	f.once.Do(func() {
		close(f.closed)
		err = f.pubsub.Close()
	})
	return err
}

func (f *Feed) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}
