package notify

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cinecircle/server/changefeed"
	"github.com/cinecircle/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EmitterOptions tunes batching and retry.
type EmitterOptions struct {
	QueueSize        int
	BatchSize        int
	FlushInterval    time.Duration
	RetryInitialWait time.Duration
	RetryMaxElapsed  time.Duration
}

func (o *EmitterOptions) defaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = time.Second
	}
	if o.RetryInitialWait <= 0 {
		o.RetryInitialWait = 200 * time.Millisecond
	}
	if o.RetryMaxElapsed <= 0 {
		o.RetryMaxElapsed = 30 * time.Second
	}
}

// Emitter writes notifications asynchronously in batches. A failed batch
// insert is retried with exponential backoff; when retries run out the
// batch is logged and dropped. Nothing is ever reported back to the
// action that caused the notification.
type Emitter struct {
	db     *gorm.DB
	feed   *changefeed.Feed
	opts   EmitterOptions
	ch     chan *model.Notification
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	// ctx bounds write retries; abort cancels it when Stop runs out of time.
	ctx    context.Context
	abort  context.CancelFunc
	logger *zap.Logger
}

// NewEmitter creates an Emitter and starts its background worker.
func NewEmitter(db *gorm.DB, feed *changefeed.Feed, opts EmitterOptions, logger *zap.Logger) *Emitter {
	opts.defaults()
	ctx, abort := context.WithCancel(context.Background())
	e := &Emitter{
		db:     db,
		feed:   feed,
		opts:   opts,
		ch:     make(chan *model.Notification, opts.QueueSize),
		stopCh: make(chan struct{}),
		ctx:    ctx,
		abort:  abort,
		logger: logger,
	}
	e.wg.Add(1)
	go e.worker()
	return e
}

// Emit enqueues n without blocking. It reports false when the queue is
// full or the emitter is stopped and n was dropped.
func (e *Emitter) Emit(n model.Notification) bool {
	select {
	case <-e.stopCh:
		return false
	default:
	}
	select {
	case e.ch <- &n:
		return true
	default:
		e.logger.Warn("notification queue full, dropping",
			zap.String("type", string(n.Type)),
			zap.Int64("recipient_id", n.RecipientID))
		return false
	}
}

// Stop flushes queued notifications and waits for the worker to exit.
// When ctx ends first, retries stop and each remaining batch gets a single
// attempt.
func (e *Emitter) Stop(ctx context.Context) {
	e.once.Do(func() { close(e.stopCh) })
	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		e.logger.Warn("notification drain cut short", zap.Error(ctx.Err()))
		e.abort()
		<-finished
	}
	e.abort()
}

func (e *Emitter) worker() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]*model.Notification, 0, e.opts.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		e.write(batch)
		batch = make([]*model.Notification, 0, e.opts.BatchSize)
	}

	for {
		select {
		case n := <-e.ch:
			batch = append(batch, n)
			if len(batch) >= e.opts.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-e.stopCh:
			for {
				select {
				case n := <-e.ch:
					batch = append(batch, n)
					if len(batch) >= e.opts.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (e *Emitter) write(batch []*model.Notification) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = e.opts.RetryInitialWait
	exp.MaxElapsedTime = e.opts.RetryMaxElapsed
	b := backoff.WithContext(exp, e.ctx)

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return e.db.Create(&batch).Error
	}, b, func(err error, wait time.Duration) {
		e.logger.Warn("notification batch write failed, retrying",
			zap.Int("size", len(batch)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		e.logger.Error("notification batch dropped", zap.Int("size", len(batch)), zap.Error(err))
		return
	}

	for _, n := range batch {
		ev := changefeed.Event{
			Kind:     changefeed.KindNotification,
			Op:       changefeed.OpCreated,
			ID:       n.ID,
			ActorID:  n.SourceUserID,
			TargetID: n.RecipientID,
			Status:   string(n.Type),
			Snippet:  n.Message,
			At:       n.CreatedAt,
		}
		if n.RelatedContentID != nil {
			ev.ContentID = *n.RelatedContentID
		}
		e.feed.Publish(context.Background(), ev)
	}
}
