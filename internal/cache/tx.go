package cache

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/telemetry"
)

// Snapshot is the visible value of a key before a transaction first
// patched it.
type Snapshot struct {
	Value   any
	Present bool
}

// Tx groups the optimistic patches of one mutation so they can be
// committed or rolled back together. A Tx is finished by the first Commit
// or Rollback; later calls on it do nothing.
type Tx struct {
	store *Store
	id    uint64
	name  string

	// guarded by store.mu
	keys     []Key
	snapshot map[Key]Snapshot
	done     bool
}

// Begin starts a transaction. name shows up in debug logs.
func (s *Store) Begin(name string) *Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTx++
	return &Tx{
		store:    s,
		id:       s.nextTx,
		name:     name,
		snapshot: make(map[Key]Snapshot),
	}
}

// Name returns the name the transaction was started with.
func (tx *Tx) Name() string { return tx.name }

// Patch applies fn to the visible value of key. If fn reports a change, the
// first patch of key in this transaction cancels its in-flight fetches and
// records a snapshot before the layer is pushed. A key that is not cached
// yet is patched from a nil value.
func (tx *Tx) Patch(key Key, fn PatchFunc) bool {
	s := tx.store
	s.mu.Lock()
	changed := tx.patchLocked(key, fn)
	s.mu.Unlock()
	if changed {
		s.notify(key)
	}
	return changed
}

// PatchWhere patches every cached key accepted by match and returns the
// keys that changed.
func (tx *Tx) PatchWhere(match func(Key) bool, fn PatchFunc) []Key {
	s := tx.store
	s.mu.Lock()
	var changed []Key
	for _, k := range s.keysLocked(match) {
		if tx.patchLocked(k, fn) {
			changed = append(changed, k)
		}
	}
	s.mu.Unlock()
	for _, k := range changed {
		s.notify(k)
	}
	return changed
}

func (tx *Tx) patchLocked(key Key, fn PatchFunc) bool {
	if tx.done {
		return false
	}
	s := tx.store
	e, exists := s.entries[key]
	var cur any
	var present bool
	if exists {
		cur, present = e.visible(key)
	}
	if _, ok := fn(key, cur); !ok {
		return false
	}
	if !exists {
		e = s.entryLocked(key)
	}
	if _, seen := tx.snapshot[key]; !seen {
		s.cancelFetchLocked(key, e)
		tx.snapshot[key] = Snapshot{Value: cur, Present: present}
		tx.keys = append(tx.keys, key)
	}
	e.layers = append(e.layers, layer{tx: tx.id, fn: fn})
	return true
}

// Keys returns the keys this transaction patched, in first-patch order.
func (tx *Tx) Keys() []Key {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return append([]Key(nil), tx.keys...)
}

// Snapshot returns the values captured before each key was first patched.
func (tx *Tx) Snapshot() map[Key]Snapshot {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	out := make(map[Key]Snapshot, len(tx.snapshot))
	for k, v := range tx.snapshot {
		out[k] = v
	}
	return out
}

// Done reports whether the transaction was committed or rolled back.
func (tx *Tx) Done() bool {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return tx.done
}

// Commit folds the transaction's layers into the confirmed values. The
// visible values do not change.
func (tx *Tx) Commit() {
	keys := tx.finish(func(key Key, e *entry, own []layer) {
		for _, l := range own {
			if v, ok := l.fn(key, e.base); ok {
				e.base, e.hasBase = v, true
			}
		}
	})
	if keys != nil {
		debug.Logf("cache: tx %s committed (%d keys)\n", tx.name, len(keys))
	}
}

// Rollback discards the transaction's layers. Layers of other in-flight
// transactions stay in place, so with none pending each key shows its
// snapshot again.
func (tx *Tx) Rollback() {
	keys := tx.finish(nil)
	if keys == nil {
		return
	}
	tx.store.stats.rollback(context.Background(), tx.name)
	debug.Logf("cache: tx %s rolled back (%d keys)\n", tx.name, len(keys))
	for _, k := range keys {
		tx.store.notify(k)
	}
}

// finish removes the transaction's layers from every key it touched,
// calling fold with them first when non-nil. It returns nil when the
// transaction was already finished.
func (tx *Tx) finish(fold func(Key, *entry, []layer)) []Key {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.done {
		return nil
	}
	tx.done = true
	keys := append([]Key{}, tx.keys...)
	for _, k := range keys {
		e, ok := s.entries[k]
		if !ok {
			continue
		}
		var own, rest []layer
		for _, l := range e.layers {
			if l.tx == tx.id {
				own = append(own, l)
			} else {
				rest = append(rest, l)
			}
		}
		if fold != nil {
			fold(k, e, own)
		}
		e.layers = rest
		if !e.hasBase && len(e.layers) == 0 && e.fetcher == nil {
			delete(s.entries, k)
		}
	}
	return keys
}

// counters are the cache metrics. They are no-ops unless telemetry is on.
type counters struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	rollbacks metric.Int64Counter
}

func newCounters() counters {
	return counters{
		hits:      telemetry.Counter(meterScope, "oit.cache.hits", "Cache reads served without a backend call"),
		misses:    telemetry.Counter(meterScope, "oit.cache.misses", "Cache reads that went to the backend"),
		rollbacks: telemetry.Counter(meterScope, "oit.cache.rollbacks", "Optimistic transactions rolled back"),
	}
}

func (c counters) hit(ctx context.Context, k Key) {
	c.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.kind", k.Kind().String())))
}

func (c counters) miss(ctx context.Context, k Key) {
	c.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.kind", k.Kind().String())))
}

func (c counters) rollback(ctx context.Context, name string) {
	c.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.tx", name)))
}
