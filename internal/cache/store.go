// Package cache is the client-side query cache.
//
// Every entry holds the last confirmed value (the base) plus an ordered
// list of optimistic layers, one per in-flight transaction. Readers see
// the layers folded over the base. Fetches for the same key are coalesced
// and results that arrive after the key was patched or overwritten are
// discarded.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/officetracker/oit/internal/debug"
)

const meterScope = "github.com/officetracker/oit/cache"

// DefaultStaleTime is how long a fetched value is served without refetching.
const DefaultStaleTime = 30 * time.Second

// ErrNoFetcher is returned by Fetch for a key that has no fetcher yet.
var ErrNoFetcher = errors.New("no fetcher registered")

// Fetcher loads the confirmed value of a key from the backend.
type Fetcher func(ctx context.Context) (any, error)

// PatchFunc transforms the visible value of a key. It must not mutate its
// argument. Returning false leaves the entry untouched. The store calls it
// with its lock held, possibly many times for the same key.
type PatchFunc func(key Key, cur any) (any, bool)

type layer struct {
	tx uint64
	fn PatchFunc
}

type entry struct {
	base      any
	hasBase   bool
	updatedAt time.Time
	stale     bool
	layers    []layer
	fetcher   Fetcher

	// gen is bumped whenever in-flight fetch results must be ignored.
	gen    uint64
	cancel context.CancelFunc
}

// visible folds the pending layers over the base.
func (e *entry) visible(key Key) (any, bool) {
	cur, ok := e.base, e.hasBase
	for _, l := range e.layers {
		if v, applied := l.fn(key, cur); applied {
			cur, ok = v, true
		}
	}
	return cur, ok
}

func (e *entry) cancelFetch() {
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// cancelFetchLocked supersedes the in-flight fetch of key and forgets its
// flight, so the next load starts a new fetch instead of joining the
// cancelled one.
func (s *Store) cancelFetchLocked(key Key, e *entry) {
	e.cancelFetch()
	s.group.Forget(key.String())
}

// Store is the query cache. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	staleTime time.Duration
	kindStale map[Kind]time.Duration
	now       func() time.Time

	nextTx    uint64
	nextSub   int
	listeners map[int]func(Key)

	group singleflight.Group
	stats counters
}

// Option configures a Store.
type Option func(*Store)

// WithStaleTime sets the default freshness window.
func WithStaleTime(d time.Duration) Option {
	return func(s *Store) { s.staleTime = d }
}

// WithKindStaleTime overrides the freshness window for one kind of key.
func WithKindStaleTime(kind Kind, d time.Duration) Option {
	return func(s *Store) { s.kindStale[kind] = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:   make(map[Key]*entry),
		staleTime: DefaultStaleTime,
		kindStale: make(map[Kind]time.Duration),
		now:       time.Now,
		listeners: make(map[int]func(Key)),
		stats:     newCounters(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) staleTimeFor(k Key) time.Duration {
	if d, ok := s.kindStale[k.Kind()]; ok {
		return d
	}
	return s.staleTime
}

// Get returns the visible value of key.
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.visible(key)
}

// Lookup is the typed form of Get.
func Lookup[T any](s *Store, key Key) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// fresh reports whether e can be served without fetching. Caller holds s.mu.
func (s *Store) fresh(key Key, e *entry) bool {
	if !e.hasBase || e.stale {
		return false
	}
	return s.now().Sub(e.updatedAt) < s.staleTimeFor(key)
}

// Fetch returns the value of key, running fetcher when the cached value is
// missing or stale. Concurrent fetches of one key share a single call.
// The fetcher is remembered for Refetch.
func (s *Store) Fetch(ctx context.Context, key Key, fetcher Fetcher) (any, error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok && fetcher == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("fetch %s: %w", key, ErrNoFetcher)
	}
	e = s.entryLocked(key)
	if fetcher != nil {
		e.fetcher = fetcher
	}
	if s.fresh(key, e) {
		v, _ := e.visible(key)
		s.mu.Unlock()
		s.stats.hit(ctx, key)
		return v, nil
	}
	fetcher = e.fetcher
	s.mu.Unlock()

	if fetcher == nil {
		return nil, fmt.Errorf("fetch %s: %w", key, ErrNoFetcher)
	}
	s.stats.miss(ctx, key)
	return s.load(ctx, key, fetcher)
}

// FetchAs is the typed form of Fetch.
func FetchAs[T any](ctx context.Context, s *Store, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := s.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache %s: unexpected value type %T", key, v)
	}
	return t, nil
}

// load runs fetcher through the singleflight group and stores the result
// unless the key was cancelled or overwritten meanwhile.
func (s *Store) load(ctx context.Context, key Key, fetcher Fetcher) (any, error) {
	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		s.mu.Lock()
		e := s.entryLocked(key)
		if e.cancel != nil {
			e.cancel()
		}
		fctx, cancel := context.WithCancel(ctx)
		e.cancel = cancel
		gen := e.gen
		s.mu.Unlock()

		v, err := fetcher(fctx)

		s.mu.Lock()
		superseded := s.entries[key] != e || e.gen != gen
		if !superseded {
			e.cancel = nil
		}
		cancel()
		if superseded {
			// Serve whatever is visible now; the late result is dropped.
			var cur any
			var ok bool
			if now, exists := s.entries[key]; exists {
				cur, ok = now.visible(key)
			}
			s.mu.Unlock()
			debug.Logf("cache: dropped superseded fetch of %s\n", key)
			if ok {
				return cur, nil
			}
			if err == nil {
				err = fmt.Errorf("fetch %s: %w", key, context.Canceled)
			}
			return nil, err
		}
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		e.base, e.hasBase = v, true
		e.updatedAt = s.now()
		e.stale = false
		cur, _ := e.visible(key)
		s.mu.Unlock()
		s.notify(key)
		return cur, nil
	})
	return v, err
}

func (s *Store) entryLocked(key Key) *entry {
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

// Set replaces the confirmed value of key. In-flight fetches of key are
// superseded.
func (s *Store) Set(key Key, v any) {
	s.mu.Lock()
	e := s.entryLocked(key)
	s.cancelFetchLocked(key, e)
	e.base, e.hasBase = v, true
	e.updatedAt = s.now()
	e.stale = false
	s.mu.Unlock()
	s.notify(key)
}

// Invalidate marks keys stale so the next Fetch goes to the backend.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			e.stale = true
		}
	}
}

// Refetch reruns the registered fetcher of every key in parallel,
// ignoring freshness. Keys without a fetcher are skipped.
func (s *Store) Refetch(ctx context.Context, keys ...Key) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		s.mu.Lock()
		var fetcher Fetcher
		if e, ok := s.entries[k]; ok {
			e.stale = true
			fetcher = e.fetcher
		}
		s.mu.Unlock()
		if fetcher == nil {
			continue
		}
		g.Go(func() error {
			_, err := s.load(gctx, k, fetcher)
			return err
		})
	}
	return g.Wait()
}

// CancelFetches aborts in-flight fetches of keys. Their results, should
// they still arrive, are ignored.
func (s *Store) CancelFetches(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			s.cancelFetchLocked(k, e)
		}
	}
}

// Keys returns the keys accepted by match (all keys when match is nil),
// sorted by name.
func (s *Store) Keys(match func(Key) bool) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(match)
}

func (s *Store) keysLocked(match func(Key) bool) []Key {
	var out []Key
	for k := range s.entries {
		if match == nil || match(k) {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Remove drops keys entirely, pending layers included.
func (s *Store) Remove(keys ...Key) {
	s.mu.Lock()
	for _, k := range keys {
		if e, ok := s.entries[k]; ok {
			s.cancelFetchLocked(k, e)
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
	for _, k := range keys {
		s.notify(k)
	}
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	keys := s.keysLocked(nil)
	for k, e := range s.entries {
		s.cancelFetchLocked(k, e)
	}
	s.entries = make(map[Key]*entry)
	s.mu.Unlock()
	for _, k := range keys {
		s.notify(k)
	}
}

// Subscribe registers fn to be called with the key after every visible
// change. It returns a function that removes the subscription.
func (s *Store) Subscribe(fn func(Key)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(key Key) {
	s.mu.Lock()
	fns := make([]func(Key), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
