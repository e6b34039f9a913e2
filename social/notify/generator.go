package notify

import (
	"context"

	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"go.uber.org/zap"
)

// Sink accepts notifications for delivery. Emit must not block.
type Sink interface {
	Emit(n model.Notification) bool
}

// Generator reacts to like, comment, relationship and message events.
// Delivery is at-least-once: a redelivered event yields a duplicate
// notification.
type Generator struct {
	feed   *changefeed.Feed
	sink   Sink
	logger *zap.Logger
}

func NewGenerator(feed *changefeed.Feed, sink Sink, logger *zap.Logger) *Generator {
	return &Generator{feed: feed, sink: sink, logger: logger}
}

// Start subscribes to the change feed and processes events in the
// background until ctx is done. The returned channel is closed when the
// loop has exited.
func (g *Generator) Start(ctx context.Context) (<-chan struct{}, error) {
	events, cancel, err := g.feed.Subscribe(ctx,
		changefeed.KindLike,
		changefeed.KindComment,
		changefeed.KindRelationship,
		changefeed.KindMessage,
	)
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				g.Handle(ev)
			}
		}
	}()
	return done, nil
}

// Handle decides and emits the notification for one event.
func (g *Generator) Handle(ev changefeed.Event) {
	n, ok := Decide(ev)
	if !ok {
		return
	}
	if !g.sink.Emit(n) {
		g.logger.Warn("notification not queued",
			zap.String("kind", string(ev.Kind)),
			zap.Int64("event_id", ev.ID))
	}
}
