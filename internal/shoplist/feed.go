package shoplist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukerupert/larder/internal/model"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event is one change-feed notification for a shopping-list item.
type Event struct {
	Type EventType              `json:"type"`
	Item model.ShoppingListItem `json:"item"`
}

// Apply returns items with ev applied. Inserts and updates replace the item
// with the same id or append it, deletes remove it, and unknown event types
// are ignored. The input slice is not modified.
func Apply(items []model.ShoppingListItem, ev Event) []model.ShoppingListItem {
	switch ev.Type {
	case EventInsert, EventUpdate:
		out := make([]model.ShoppingListItem, 0, len(items)+1)
		replaced := false
		for _, item := range items {
			if item.ID == ev.Item.ID {
				out = append(out, ev.Item)
				replaced = true
				continue
			}
			out = append(out, item)
		}
		if !replaced {
			out = append(out, ev.Item)
		}
		return out
	case EventDelete:
		out := make([]model.ShoppingListItem, 0, len(items))
		for _, item := range items {
			if item.ID != ev.Item.ID {
				out = append(out, item)
			}
		}
		return out
	}
	return append([]model.ShoppingListItem(nil), items...)
}

// Replica keeps the last-known item list in sync with a change feed.
type Replica struct {
	mu       sync.RWMutex
	items    []model.ShoppingListItem
	onChange func([]model.ShoppingListItem)
	logger   *slog.Logger
}

func NewReplica(initial []model.ShoppingListItem, logger *slog.Logger) *Replica {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{
		items:  append([]model.ShoppingListItem(nil), initial...),
		logger: logger.With("component", "replica"),
	}
}

// OnChange registers fn to be called with a snapshot after every applied
// event. It must be set before Run.
func (r *Replica) OnChange(fn func([]model.ShoppingListItem)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Apply applies a single event and notifies the callback.
func (r *Replica) Apply(ev Event) {
	r.mu.Lock()
	switch ev.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		r.mu.Unlock()
		r.logger.Warn("ignoring unknown event", "type", ev.Type, "item_id", ev.Item.ID)
		return
	}
	r.items = Apply(r.items, ev)
	snapshot := append([]model.ShoppingListItem(nil), r.items...)
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Reset replaces the item list, e.g. after a reconnect reload.
func (r *Replica) Reset(items []model.ShoppingListItem) {
	r.mu.Lock()
	r.items = append([]model.ShoppingListItem(nil), items...)
	snapshot := append([]model.ShoppingListItem(nil), r.items...)
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(snapshot)
	}
}

// Run applies events in arrival order until ctx is cancelled or events is
// closed.
func (r *Replica) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.Apply(ev)
		}
	}
}

// Snapshot returns a copy of the current item list.
func (r *Replica) Snapshot() []model.ShoppingListItem {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.ShoppingListItem(nil), r.items...)
}
