package composer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-composer/layering"
	"github.com/goliatone/go-composer/pkg/activity"
	"github.com/goliatone/go-composer/pkg/persist"
)

// ValuesStore holds the current parameter values per layer. Nested updates
// are copy-on-write so unchanged sibling subtrees keep their identity, which
// downstream change detection relies on. Every mutation is pushed through
// the coalescing persistence store; persistence failures surface on hooks
// and never block editing — in-memory state stays authoritative.
type ValuesStore struct {
	mu    sync.RWMutex
	bags  map[string]layering.Bag
	store *persist.Store
	hooks activity.Hooks
}

// NewValuesStore constructs a store persisting through store (nil for
// in-memory only) and notifying hooks on mutation.
func NewValuesStore(store *persist.Store, hooks activity.Hooks) *ValuesStore {
	return &ValuesStore{
		bags:  make(map[string]layering.Bag),
		store: store,
		hooks: hooks,
	}
}

// Init inserts or overwrites the value bag for a layer. Called once when a
// layer is created or loaded; Update refuses to touch uninitialized layers.
func (s *ValuesStore) Init(layerID string, initial layering.Bag) {
	if initial == nil {
		initial = layering.Bag{}
	}
	s.mu.Lock()
	s.bags[layerID] = initial
	s.mu.Unlock()
	s.persist(layerID, initial)
}

// Update performs the copy-on-write nested update at path. A layerID with no
// existing bag is a silent no-op: a draw tick may still reference a layer
// that was just removed, and that race must not create ghost state.
func (s *ValuesStore) Update(layerID string, path []string, value any) {
	s.mu.Lock()
	bag, ok := s.bags[layerID]
	if !ok {
		s.mu.Unlock()
		return
	}
	old, _ := layering.Lookup(bag, path)
	updated := layering.SetPath(bag, path, value)
	s.bags[layerID] = updated
	s.mu.Unlock()

	_ = s.hooks.Notify(context.Background(), activity.BuildValueUpdatedEvent(activity.SessionEventInput{
		LayerID:  layerID,
		Path:     joinPath(path),
		OldValue: old,
		NewValue: value,
	}))
	s.persist(layerID, updated)
}

// SetValues wholesale-replaces a layer's bag, used on undo/redo apply and
// project load.
func (s *ValuesStore) SetValues(layerID string, values layering.Bag) {
	if values == nil {
		values = layering.Bag{}
	}
	s.mu.Lock()
	s.bags[layerID] = values
	s.mu.Unlock()

	_ = s.hooks.Notify(context.Background(), activity.BuildValuesReplacedEvent(activity.SessionEventInput{
		LayerID: layerID,
	}))
	s.persist(layerID, values)
}

// Remove drops a layer's bag and deletes its durable record.
func (s *ValuesStore) Remove(layerID string) {
	s.mu.Lock()
	_, ok := s.bags[layerID]
	delete(s.bags, layerID)
	s.mu.Unlock()
	if !ok || s.store == nil {
		return
	}
	if err := s.store.Remove(context.Background(), layerID); err != nil {
		s.reportPersistFailure(layerID, err)
	}
}

// SetAll replaces every bag at once, used for full-state rehydration.
func (s *ValuesStore) SetAll(all map[string]layering.Bag) {
	next := make(map[string]layering.Bag, len(all))
	for layerID, bag := range all {
		if bag == nil {
			bag = layering.Bag{}
		}
		next[layerID] = bag
	}
	s.mu.Lock()
	s.bags = next
	s.mu.Unlock()
	for layerID, bag := range next {
		s.persist(layerID, bag)
	}
}

// Lookup reads the value at path for a layer.
func (s *ValuesStore) Lookup(layerID string, path []string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bag, ok := s.bags[layerID]
	if !ok {
		return nil, false
	}
	return layering.Lookup(bag, path)
}

// Bag returns the current bag for a layer. The bag is shared, not copied:
// all mutation is copy-on-write, so holders observe a stable snapshot.
func (s *ValuesStore) Bag(layerID string) (layering.Bag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bag, ok := s.bags[layerID]
	return bag, ok
}

// Snapshot returns all bags keyed by layer id. The outer map is copied, the
// bags are shared under the copy-on-write discipline.
func (s *ValuesStore) Snapshot() map[string]layering.Bag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]layering.Bag, len(s.bags))
	for layerID, bag := range s.bags {
		out[layerID] = bag
	}
	return out
}

// Rehydrate loads the durable record for each given layer id into memory.
// Must run before the first render tick; layers without a record fall back
// to schema defaults at resolution time.
func (s *ValuesStore) Rehydrate(ctx context.Context, layerIDs ...string) error {
	if s.store == nil {
		return nil
	}
	for _, layerID := range layerIDs {
		raw, ok, err := s.store.Get(ctx, layerID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var bag layering.Bag
		if err := json.Unmarshal([]byte(raw), &bag); err != nil {
			return err
		}
		s.mu.Lock()
		s.bags[layerID] = bag
		s.mu.Unlock()
	}
	return nil
}

func (s *ValuesStore) persist(layerID string, bag layering.Bag) {
	if s.store == nil {
		return
	}
	encoded, err := json.Marshal(bag)
	if err != nil {
		s.reportPersistFailure(layerID, err)
		return
	}
	flush := s.store.Set(layerID, string(encoded))
	go func() {
		<-flush.Done()
		if err := flush.Err(); err != nil {
			s.reportPersistFailure(layerID, err)
		}
	}()
}

func (s *ValuesStore) reportPersistFailure(layerID string, err error) {
	_ = s.hooks.Notify(context.Background(), activity.BuildPersistFailedEvent(activity.SessionEventInput{
		LayerID:  layerID,
		ObjectID: layerID,
		Err:      err,
	}))
}

func joinPath(path []string) string {
	out := ""
	for i, segment := range path {
		if i > 0 {
			out += ":"
		}
		out += segment
	}
	return out
}
