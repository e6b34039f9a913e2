// Package changefeed publishes typed record-change events over cache.PubSub,
// one channel per record kind.
package changefeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cinecircle/server/cache"
	"go.uber.org/zap"
)

// Kind is the record type an event refers to.
type Kind string

const (
	KindRelationship Kind = "relationship"
	KindContent      Kind = "content"
	KindLike         Kind = "like"
	KindComment      Kind = "comment"
	KindMessage      Kind = "message"
	KindNotification Kind = "notification"
	KindGroup        Kind = "group"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRelationship, KindContent, KindLike, KindComment, KindMessage, KindNotification, KindGroup:
		return true
	}
	return false
}

// Channel returns the pub/sub channel carrying events of this kind.
func (k Kind) Channel() string { return "changefeed:" + string(k) }

// Op is the mutation that produced an event.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

func (o Op) Valid() bool {
	switch o {
	case OpCreated, OpUpdated, OpDeleted:
		return true
	}
	return false
}

// Event describes one persisted mutation. Fields that do not apply to a kind
// are left zero.
type Event struct {
	Kind Kind  `json:"kind"`
	Op   Op    `json:"op"`
	ID   int64 `json:"id"`
	// ActorID is the user whose action caused the change.
	ActorID int64 `json:"actor_id"`
	// TargetID is the other user involved: addressee, receiver, recipient or
	// invitee.
	TargetID  int64     `json:"target_id,omitempty"`
	ContentID int64     `json:"content_id,omitempty"`
	GroupID   int64     `json:"group_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Snippet   string    `json:"snippet,omitempty"`
	At        time.Time `json:"at"`
}

// Encode serialises an event for the wire.
func Encode(ev Event) (string, error) {
	return sonic.MarshalString(ev)
}

// Decode parses a wire payload and rejects unknown kinds and ops.
func Decode(payload string) (Event, error) {
	var ev Event
	if err := sonic.UnmarshalString(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("changefeed: decode: %w", err)
	}
	if !ev.Kind.Valid() {
		return Event{}, fmt.Errorf("changefeed: unknown kind %q", ev.Kind)
	}
	if !ev.Op.Valid() {
		return Event{}, fmt.Errorf("changefeed: unknown op %q", ev.Op)
	}
	return ev, nil
}

// Feed publishes and subscribes to change events.
type Feed struct {
	ps     cache.PubSub
	logger *zap.Logger
}

// New creates a Feed on top of ps.
func New(ps cache.PubSub, logger *zap.Logger) *Feed {
	return &Feed{ps: ps, logger: logger}
}

// Publish sends ev on its kind's channel. Failures are logged and never
// returned: the mutation that produced the event has already been persisted.
// A nil Feed discards events.
func (f *Feed) Publish(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := Encode(ev)
	if err != nil {
		f.logger.Error("changefeed encode failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
		return
	}
	if err := f.ps.Publish(context.WithoutCancel(ctx), ev.Kind.Channel(), payload); err != nil {
		f.logger.Warn("changefeed publish failed",
			zap.String("kind", string(ev.Kind)),
			zap.Int64("id", ev.ID),
			zap.Error(err))
	}
}

// Subscribe streams decoded events for the given kinds until cancel is
// called or ctx is done; then the event channel is closed even if the
// consumer stopped reading. Undecodable payloads are logged and skipped.
func (f *Feed) Subscribe(ctx context.Context, kinds ...Kind) (<-chan Event, func(), error) {
	channels := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !k.Valid() {
			return nil, nil, fmt.Errorf("changefeed: unknown kind %q", k)
		}
		channels = append(channels, k.Channel())
	}
	raw, unsubscribe, err := f.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			unsubscribe()
		})
	}

	out := make(chan Event, cap(raw))
	go func() {
		defer close(out)
		for {
			var msg *cache.Message
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case m, ok := <-raw:
				if !ok {
					return
				}
				msg = m
			}
			ev, err := Decode(msg.Payload)
			if err != nil {
				f.logger.Warn("changefeed dropped message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			select {
			case out <- ev:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
