// Package persist keeps annotation sets in sync with a Store.
//
// The Synchronizer updates its cache synchronously and sends saves in the
// background. Saves for one image are serialized through a queue of depth one:
// at most one send is in flight and at most one newer set waits behind it,
// replacing any older unsent set. Status is reported for the active image only.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"boxmark/internal/annotation"
	"boxmark/internal/store"
)

// Options tune the Synchronizer. Zero values take the defaults below.
type Options struct {
	CacheSize    int
	Debounce     time.Duration
	RetryDelay   time.Duration
	ErrorDisplay time.Duration
	// PrefetchLimit bounds concurrent fetches during Prefetch.
	PrefetchLimit int
}

const (
	DefaultCacheSize     = 100
	DefaultDebounce      = 300 * time.Millisecond
	DefaultRetryDelay    = 2 * time.Second
	DefaultErrorDisplay  = 3 * time.Second
	DefaultPrefetchLimit = 4
)

func (o *Options) loadDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.Debounce < 0 {
		o.Debounce = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.ErrorDisplay <= 0 {
		o.ErrorDisplay = DefaultErrorDisplay
	}
	if o.PrefetchLimit <= 0 {
		o.PrefetchLimit = DefaultPrefetchLimit
	}
}

type queue struct {
	pending    []annotation.Annotation
	hasPending bool
	// ready is set once the pending set's debounce has elapsed or it was
	// fired explicitly.
	ready    bool
	inflight bool
	// sending is the set handed to the store and not yet confirmed saved.
	sending    []annotation.Annotation
	hasSending bool
	timer    *time.Timer
	gen      uint64
	// idle is closed when the queue drains; nil while idle.
	idle chan struct{}
}

type Synchronizer struct {
	store  store.Store
	opts   Options
	logger *slog.Logger

	cache   *lru.Cache[string, []annotation.Annotation]
	fetches singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	queues    map[string]*queue
	annotated map[string]struct{}
	active    string
	status    Status
	lastErr   error
	lastSaved time.Time
	errGen    uint64
	errTimer  *time.Timer
	listeners []func(StatusEvent)
}

func New(st store.Store, opts Options, logger *slog.Logger) (*Synchronizer, error) {
	opts.loadDefaults()
	cache, err := lru.New[string, []annotation.Annotation](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		store:     st,
		opts:      opts,
		logger:    logger.With("system", "persist"),
		cache:     cache,
		ctx:       ctx,
		cancel:    cancel,
		queues:    make(map[string]*queue),
		annotated: make(map[string]struct{}),
	}, nil
}

// OnStatus registers a listener for status changes of the active image.
// Listeners run on background goroutines and must not block.
func (s *Synchronizer) OnStatus(fn func(StatusEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetActive switches UI interest to imageID. Saves still running for the
// previous image complete, but their status is no longer reported.
func (s *Synchronizer) SetActive(imageID string) {
	s.mu.Lock()
	if s.active == imageID {
		s.mu.Unlock()
		return
	}
	s.active = imageID
	s.stopErrTimerLocked()
	s.status, s.lastErr = Idle, nil
	if q, ok := s.queues[imageID]; ok && q.inflight {
		s.status = Saving
	}
	ev := s.eventLocked()
	s.mu.Unlock()
	s.notify(ev)
}

func (s *Synchronizer) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Status reports the active image's save state.
func (s *Synchronizer) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{ImageID: s.active, Status: s.status, Err: s.lastErr, LastSaved: s.lastSaved}
}

// ScheduleSave records anns as the latest set for imageID. The cache is
// updated before it returns; the send happens after the debounce delay.
func (s *Synchronizer) ScheduleSave(imageID string, anns []annotation.Annotation) error {
	if err := store.ValidateKey(imageID); err != nil {
		return err
	}
	snapshot := annotation.Clone(anns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cache.Add(imageID, snapshot)
	s.trackLocked(imageID, len(snapshot) > 0)

	q := s.queueLocked(imageID)
	if q.hasPending {
		s.logger.Debug("pending save superseded", "image", imageID)
	}
	q.pending = snapshot
	q.hasPending = true
	q.ready = false
	if q.idle == nil {
		q.idle = make(chan struct{})
	}

	if q.timer != nil {
		q.timer.Stop()
	}
	q.gen++
	if s.opts.Debounce == 0 {
		s.fireLocked(imageID, q)
		return nil
	}
	gen := q.gen
	q.timer = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if q.gen == gen {
			s.fireLocked(imageID, q)
		}
	})
	return nil
}

// Fire sends imageID's pending set now instead of waiting for the debounce.
func (s *Synchronizer) Fire(imageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q, ok := s.queues[imageID]; ok {
		s.fireLocked(imageID, q)
	}
}

// Flush fires imageID's pending set and waits until its queue drains.
func (s *Synchronizer) Flush(ctx context.Context, imageID string) error {
	s.mu.Lock()
	q, ok := s.queues[imageID]
	if !ok || q.idle == nil {
		s.mu.Unlock()
		return nil
	}
	done := q.idle
	s.fireLocked(imageID, q)
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FlushAll flushes every image with unsent or in-flight saves.
func (s *Synchronizer) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.queues))
	for id, q := range s.queues {
		if q.idle != nil {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			return s.Flush(gctx, id)
		})
	}
	return g.Wait()
}

// Retry re-sends the cached set for imageID immediately.
func (s *Synchronizer) Retry(imageID string) error {
	anns, ok := s.cache.Peek(imageID)
	if !ok {
		s.mu.Lock()
		anns, ok = s.unsentLocked(imageID)
		s.mu.Unlock()
	}
	if !ok {
		return fmt.Errorf("retry %s: %w", imageID, store.ErrNotFound)
	}
	if err := s.ScheduleSave(imageID, anns); err != nil {
		return err
	}
	s.Fire(imageID)
	return nil
}

// Load returns imageID's set from the cache, or fetches it from the store.
// Concurrent loads of one image share a single fetch.
func (s *Synchronizer) Load(ctx context.Context, imageID string) ([]annotation.Annotation, error) {
	if err := store.ValidateKey(imageID); err != nil {
		return nil, err
	}
	if anns, ok := s.cache.Get(imageID); ok {
		s.logger.Debug("cache hit", "image", imageID)
		return annotation.Clone(anns), nil
	}
	s.logger.Debug("cache miss", "image", imageID)

	s.mu.Lock()
	if anns, ok := s.unsentLocked(imageID); ok {
		s.cache.Add(imageID, anns)
		s.mu.Unlock()
		return annotation.Clone(anns), nil
	}
	s.mu.Unlock()

	v, err, _ := s.fetches.Do(imageID, func() (any, error) {
		anns, err := s.store.Load(ctx, imageID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// A save scheduled while fetching is newer than what the store had.
		if unsent, ok := s.unsentLocked(imageID); ok {
			s.cache.Add(imageID, unsent)
			return unsent, nil
		}
		if cached, ok := s.cache.Peek(imageID); ok {
			return cached, nil
		}
		s.cache.Add(imageID, anns)
		s.trackLocked(imageID, len(anns) > 0)
		return anns, nil
	})
	if err != nil {
		s.logger.Error("load failed", "image", imageID, "error", err)
		return nil, fmt.Errorf("load %s: %w", imageID, err)
	}
	return annotation.Clone(v.([]annotation.Annotation)), nil
}

// Cached returns imageID's set if it is in the cache.
func (s *Synchronizer) Cached(imageID string) ([]annotation.Annotation, bool) {
	anns, ok := s.cache.Peek(imageID)
	if !ok {
		return nil, false
	}
	return annotation.Clone(anns), true
}

// Prefetch warms the cache for ids concurrently. Failures are logged and the
// first one is returned.
func (s *Synchronizer) Prefetch(ctx context.Context, ids ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.PrefetchLimit)
	for _, id := range ids {
		if id == "" || s.cache.Contains(id) {
			continue
		}
		id := id
		g.Go(func() error {
			_, err := s.Load(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// SeedAnnotated marks ids as holding annotations, typically from a store
// listing at startup.
func (s *Synchronizer) SeedAnnotated(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.annotated[id] = struct{}{}
	}
}

// Annotated lists images known to hold at least one annotation.
func (s *Synchronizer) Annotated() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.annotated))
	for id := range s.annotated {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Synchronizer) IsAnnotated(imageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.annotated[imageID]
	return ok
}

// Close flushes all pending saves, then stops accepting new ones.
func (s *Synchronizer) Close(ctx context.Context) error {
	err := s.FlushAll(ctx)

	s.mu.Lock()
	s.closed = true
	s.stopErrTimerLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return err
}

func (s *Synchronizer) queueLocked(imageID string) *queue {
	q, ok := s.queues[imageID]
	if !ok {
		q = &queue{}
		s.queues[imageID] = q
	}
	return q
}

func (s *Synchronizer) trackLocked(imageID string, annotated bool) {
	if annotated {
		s.annotated[imageID] = struct{}{}
	} else {
		delete(s.annotated, imageID)
	}
}

// unsentLocked returns the newest set for imageID that the store may not
// hold yet: the pending one, else the one being sent or last failed.
func (s *Synchronizer) unsentLocked(imageID string) ([]annotation.Annotation, bool) {
	q, ok := s.queues[imageID]
	switch {
	case !ok:
		return nil, false
	case q.hasPending:
		return q.pending, true
	case q.hasSending:
		return q.sending, true
	}
	return nil, false
}

func (s *Synchronizer) fireLocked(imageID string, q *queue) {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.gen++
	if !q.hasPending {
		return
	}
	q.ready = true
	if q.inflight {
		return
	}
	q.inflight = true
	s.wg.Add(1)
	go s.drain(imageID, q)
}

func (s *Synchronizer) drain(imageID string, q *queue) {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		if !q.ready {
			q.inflight = false
			if !q.hasPending && q.idle != nil {
				close(q.idle)
				q.idle = nil
			}
			s.mu.Unlock()
			return
		}
		anns := q.pending
		q.pending, q.hasPending, q.ready = nil, false, false
		q.sending, q.hasSending = anns, true
		s.mu.Unlock()

		s.setStatus(imageID, Saving, nil)
		if err := s.send(imageID, anns); err != nil {
			s.setStatus(imageID, Error, err)
			continue
		}
		s.mu.Lock()
		q.sending, q.hasSending = nil, false
		s.mu.Unlock()
		s.setStatus(imageID, Idle, nil)
	}
}

// send saves once, and once more after RetryDelay when the first failure is
// transient.
func (s *Synchronizer) send(imageID string, anns []annotation.Annotation) error {
	start := time.Now()
	err := s.store.Save(s.ctx, imageID, anns)
	if err == nil {
		s.logger.Info("save succeeded", "image", imageID, "count", len(anns), "duration", time.Since(start))
		return nil
	}
	if !store.Transient(err) {
		s.logger.Error("save failed", "image", imageID, "error", err)
		return err
	}

	s.logger.Warn("save failed, retrying", "image", imageID, "error", err, "delay", s.opts.RetryDelay)
	select {
	case <-time.After(s.opts.RetryDelay):
	case <-s.ctx.Done():
		return err
	}
	if err := s.store.Save(s.ctx, imageID, anns); err != nil {
		s.logger.Error("save retry failed", "image", imageID, "error", err)
		return err
	}
	s.logger.Info("save succeeded after retry", "image", imageID, "count", len(anns))
	return nil
}

func (s *Synchronizer) setStatus(imageID string, st Status, err error) {
	s.mu.Lock()
	if imageID != s.active {
		s.mu.Unlock()
		return
	}
	s.stopErrTimerLocked()
	s.status, s.lastErr = st, err
	switch st {
	case Idle:
		s.lastSaved = time.Now()
	case Error:
		gen := s.errGen
		s.errTimer = time.AfterFunc(s.opts.ErrorDisplay, func() {
			s.mu.Lock()
			if s.errGen != gen || s.status != Error {
				s.mu.Unlock()
				return
			}
			s.status, s.lastErr = Idle, nil
			ev := s.eventLocked()
			s.mu.Unlock()
			s.notify(ev)
		})
	}
	ev := s.eventLocked()
	s.mu.Unlock()
	s.notify(ev)
}

func (s *Synchronizer) stopErrTimerLocked() {
	s.errGen++
	if s.errTimer != nil {
		s.errTimer.Stop()
		s.errTimer = nil
	}
}

type event struct {
	ev        StatusEvent
	listeners []func(StatusEvent)
}

func (s *Synchronizer) eventLocked() event {
	return event{
		ev:        StatusEvent{ImageID: s.active, Status: s.status, Err: s.lastErr, At: time.Now()},
		listeners: slices.Clone(s.listeners),
	}
}

func (s *Synchronizer) notify(e event) {
	for _, fn := range e.listeners {
		fn(e.ev)
	}
}
