// Package persist provides the namespaced key-value persistence layer used
// by the session stores: a pluggable durable backend behind a coalescing
// write-through wrapper that collapses rapid updates to the same key into a
// single physical write.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrStorageUnavailable reports that the durable backend could not be opened.
// Every pending and future operation against the store fails with this error
// until the process is restarted with a working backend.
var ErrStorageUnavailable = errors.New("persist: storage unavailable")

// ErrStorageWriteFailed reports that a single flush failed. The error is
// surfaced to every caller awaiting that key's flush; the write is not
// retried automatically.
var ErrStorageWriteFailed = errors.New("persist: storage write failed")

// KV is the durable storage contract: a namespaced string store opened once
// per namespace and reused.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Config describes one logical store.
type Config struct {
	// Namespace prefixes every key so multiple stores can share a backend.
	Namespace string
	// RecordGroup names the record family (bucket) inside the backend.
	RecordGroup string
	// ThrottleWindow is the coalescing window for Set. Zero disables
	// coalescing: every Set writes through immediately.
	ThrottleWindow time.Duration
}

// Store wraps a KV backend with per-key write coalescing. Get and Remove
// bypass the coalescing path and act directly against durable state.
type Store struct {
	kv  KV
	cfg Config

	mu      sync.Mutex
	pending map[string]*pendingWrite
}

type pendingWrite struct {
	value string
	timer *time.Timer
	flush *Flush
}

// New constructs a Store over kv. A nil kv yields a store whose every
// operation fails with ErrStorageUnavailable.
func New(kv KV, cfg Config) *Store {
	return &Store{
		kv:      kv,
		cfg:     cfg,
		pending: make(map[string]*pendingWrite),
	}
}

// Get reads the last durable value for key. It deliberately does not consult
// the pending coalescing buffer: a Get issued while a Set for the same key is
// still inside its throttle window observes the previous durable value, not
// the pending one. Callers needing read-after-write semantics must await the
// Set's Flush first.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s.kv == nil {
		return "", false, ErrStorageUnavailable
	}
	return s.kv.Get(ctx, s.fullKey(key))
}

// Set records value as the latest pending value for key and returns the
// Flush that resolves when the value reaches durable storage. Within the
// throttle window multiple Sets on the same key collapse into exactly one
// physical write of the last value, and every caller receives the same Flush.
// Different keys coalesce independently.
func (s *Store) Set(key, value string) *Flush {
	if s.kv == nil {
		return resolvedFlush(ErrStorageUnavailable)
	}
	if s.cfg.ThrottleWindow <= 0 {
		return resolvedFlush(s.write(key, value))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pending[key]; ok {
		p.value = value
		p.timer.Reset(s.cfg.ThrottleWindow)
		return p.flush
	}
	p := &pendingWrite{
		value: value,
		flush: newFlush(),
	}
	p.timer = time.AfterFunc(s.cfg.ThrottleWindow, func() {
		s.flushKey(key)
	})
	s.pending[key] = p
	return p.flush
}

// Remove deletes key from durable storage immediately, cancelling any pending
// coalesced write for it. The cancelled write's waiters resolve without error
// since its value was superseded by the removal.
func (s *Store) Remove(ctx context.Context, key string) error {
	if s.kv == nil {
		return ErrStorageUnavailable
	}
	s.mu.Lock()
	if p, ok := s.pending[key]; ok {
		delete(s.pending, key)
		p.timer.Stop()
		p.flush.finish(nil)
	}
	s.mu.Unlock()
	return s.kv.Delete(ctx, s.fullKey(key))
}

// FlushAll forces every pending write to durable storage now. Intended for
// session shutdown so the coalescing window cannot swallow the final edits.
func (s *Store) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	flushes := make([]*Flush, 0, len(s.pending))
	for key, p := range s.pending {
		keys = append(keys, key)
		flushes = append(flushes, p.flush)
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.flushKey(key)
	}
	var errs []error
	for _, f := range flushes {
		if err := f.Wait(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) flushKey(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	p.timer.Stop()
	value := p.value
	s.mu.Unlock()

	p.flush.finish(s.write(key, value))
}

func (s *Store) write(key, value string) error {
	if err := s.kv.Put(context.Background(), s.fullKey(key), value); err != nil {
		return fmt.Errorf("%w: key %q: %v", ErrStorageWriteFailed, key, err)
	}
	return nil
}

func (s *Store) fullKey(key string) string {
	if s.cfg.Namespace == "" {
		return key
	}
	return s.cfg.Namespace + "/" + key
}

// Flush is the shared completion for one coalesced write. All Set callers
// whose values collapsed into a single physical write share one Flush and
// resolve together when that write lands (or fails).
type Flush struct {
	done chan struct{}
	once sync.Once
	err  error
}

func newFlush() *Flush {
	return &Flush{done: make(chan struct{})}
}

func resolvedFlush(err error) *Flush {
	f := newFlush()
	f.finish(err)
	return f
}

func (f *Flush) finish(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done reports completion of the underlying write.
func (f *Flush) Done() <-chan struct{} { return f.done }

// Err returns the write result. Only valid after Done is closed.
func (f *Flush) Err() error { return f.err }

// Wait blocks until the write completes or ctx is cancelled.
func (f *Flush) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
