package cache

import (
	"context"
	"maps"
	"sync"
	"time"
)

type item struct {
	value    string
	hash     map[string]string
	deadline time.Time
}

func (it item) live(now time.Time) bool {
	return it.deadline.IsZero() || now.Before(it.deadline)
}

func deadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

type subscription struct {
	ch   chan *Message
	done chan struct{}
	once sync.Once
}

// Memory is the in-process Store. Expired keys are invisible immediately and
// reclaimed by a periodic sweep. Publish never blocks: a subscriber whose
// buffer is full misses the message.
type Memory struct {
	mu    sync.RWMutex
	items map[string]item
	now   func() time.Time

	subMu sync.RWMutex
	subs  map[string]map[*subscription]struct{}
	buf   int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates a Memory store and starts its sweeper. Call Close to
// stop it.
func NewMemory(cfg Config) *Memory {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	m := &Memory{
		items: make(map[string]item),
		now:   time.Now,
		subs:  make(map[string]map[*subscription]struct{}),
		buf:   subscriberBuffer(cfg),
		stop:  make(chan struct{}),
	}
	go m.sweep(interval)
	return m
}

func (m *Memory) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			now := m.now()
			m.mu.Lock()
			maps.DeleteFunc(m.items, func(_ string, it item) bool { return !it.live(now) })
			m.mu.Unlock()
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || it.hash != nil || !it.live(m.now()) {
		return "", ErrMiss
	}
	return it.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	m.items[key] = item{value: value, deadline: deadline(m.now(), ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.items, k)
	}
	m.mu.Unlock()
	return nil
}

// HSet merges fields into a live hash at key, or replaces whatever was
// there, and resets the TTL.
func (m *Memory) HSet(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if len(fields) == 0 {
		return nil
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	h := make(map[string]string, len(fields))
	if it, ok := m.items[key]; ok && it.hash != nil && it.live(now) {
		maps.Copy(h, it.hash)
	}
	maps.Copy(h, fields)
	m.items[key] = item{hash: h, deadline: deadline(now, ttl)}
	return nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || it.hash == nil || !it.live(m.now()) {
		return map[string]string{}, nil
	}
	return maps.Clone(it.hash), nil
}

func (m *Memory) Publish(_ context.Context, channel, payload string) error {
	msg := &Message{Channel: channel, Payload: payload}
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for s := range m.subs[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	s := &subscription{ch: make(chan *Message, m.buf), done: make(chan struct{})}

	m.subMu.Lock()
	for _, c := range channels {
		set, ok := m.subs[c]
		if !ok {
			set = make(map[*subscription]struct{})
			m.subs[c] = set
		}
		set[s] = struct{}{}
	}
	m.subMu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			close(s.done)
			m.subMu.Lock()
			for _, c := range channels {
				delete(m.subs[c], s)
				if len(m.subs[c]) == 0 {
					delete(m.subs, c)
				}
			}
			// Publish sends under the read lock, so no send can race this close.
			close(s.ch)
			m.subMu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-s.done:
		}
	}()
	return s.ch, cancel, nil
}
