package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shoplist"
)

const (
	DefaultBatchWindow = 30 * time.Second
	eventBufferSize    = 256
)

// Subscriptions lists and prunes a household's push subscriptions.
type Subscriptions interface {
	ListByHousehold(householdID int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// UncheckedCounter reports how many list items are still to be picked up.
type UncheckedCounter interface {
	CountUnchecked(householdID int64) (int, error)
}

type householdEvent struct {
	householdID int64
	event       shoplist.Event
}

// batch collects ingredient names added within one window.
type batch struct {
	names []string
	due   time.Time
}

// Notifier watches the change feed and turns it into a few coarse
// notifications: a summary of items added within a batch window, and one
// notice when every item on a list has been checked. It implements the
// same Broadcast method as the WebSocket hub and never blocks the caller.
type Notifier struct {
	sender Sender
	subs   Subscriptions
	list   UncheckedCounter
	window time.Duration
	logger *slog.Logger

	events chan householdEvent

	// Owned by the run loop. complete has no entry for a household whose
	// state is unknown, as after a restart. checked holds the last observed
	// state of each item.
	pending  map[int64]*batch
	complete map[int64]bool
	checked  map[int64]map[int64]bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotifier(sender Sender, subs Subscriptions, list UncheckedCounter, window time.Duration, logger *slog.Logger) *Notifier {
	if window <= 0 {
		window = DefaultBatchWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender:   sender,
		subs:     subs,
		list:     list,
		window:   window,
		logger:   logger.With("component", "push"),
		events:   make(chan householdEvent, eventBufferSize),
		pending:  make(map[int64]*batch),
		complete: make(map[int64]bool),
		checked:  make(map[int64]map[int64]bool),
	}
}

// Broadcast queues a change-feed event. Messages that are not shopping-list
// events are ignored, and events are dropped when the queue is full.
func (n *Notifier) Broadcast(householdID int64, msg any) {
	ev, ok := msg.(shoplist.Event)
	if !ok {
		return
	}
	select {
	case n.events <- householdEvent{householdID: householdID, event: ev}:
	default:
		n.logger.Warn("push queue full, dropping event", "household_id", householdID, "type", ev.Type)
	}
}

func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})
	n.mu.Unlock()

	go func() {
		defer close(n.done)
		tick := n.window / 4
		if tick < 10*time.Millisecond {
			tick = 10 * time.Millisecond
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case he := <-n.events:
				n.handle(he.householdID, he.event, time.Now())
			case now := <-ticker.C:
				n.flush(now)
			}
		}
	}()
}

// Stop ends the run loop. Batches that have not come due are discarded.
func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel, done := n.cancel, n.done
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (n *Notifier) handle(householdID int64, ev shoplist.Event, now time.Time) {
	switch ev.Type {
	case shoplist.EventInsert:
		n.observe(householdID, ev.Item)
		n.complete[householdID] = false
		b := n.pending[householdID]
		if b == nil {
			b = &batch{due: now.Add(n.window)}
			n.pending[householdID] = b
		}
		b.names = append(b.names, ev.Item.Ingredient)

	case shoplist.EventDelete:
		delete(n.checked[householdID], ev.Item.ID)
		delete(n.complete, householdID)

	case shoplist.EventUpdate:
		wasChecked, seen := n.observe(householdID, ev.Item)
		if !ev.Item.IsChecked {
			n.complete[householdID] = false
			return
		}
		if seen && wasChecked {
			return
		}
		done, known := n.complete[householdID]
		if done {
			return
		}
		left, err := n.list.CountUnchecked(householdID)
		if err != nil {
			n.logger.Error("count unchecked", "household_id", householdID, "error", err)
			return
		}
		if left > 0 {
			n.complete[householdID] = false
			return
		}
		n.complete[householdID] = true
		// Only a check that took the list from incomplete to complete counts.
		if !seen && !known {
			return
		}
		n.send(householdID, Payload{
			Title: "Shopping done",
			Body:  "Everything on the list has been picked up.",
			URL:   "/shopping-list",
			Tag:   "shopping-complete",
		})
	}
}

// observe records item's checked state and returns the previous one.
func (n *Notifier) observe(householdID int64, item model.ShoppingListItem) (wasChecked, seen bool) {
	items := n.checked[householdID]
	if items == nil {
		items = make(map[int64]bool)
		n.checked[householdID] = items
	}
	wasChecked, seen = items[item.ID]
	items[item.ID] = item.IsChecked
	return wasChecked, seen
}

// flush sends every batch that is due at now.
func (n *Notifier) flush(now time.Time) {
	for hh, b := range n.pending {
		if now.Before(b.due) {
			continue
		}
		delete(n.pending, hh)
		n.send(hh, Payload{
			Title: "Shopping list updated",
			Body:  summarize(b.names),
			URL:   "/shopping-list",
			Tag:   "shopping-added",
		})
	}
}

// summarize names up to two items and counts the rest.
func summarize(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%s was added to the list", names[0])
	case 2:
		return fmt.Sprintf("%s and %s were added to the list", names[0], names[1])
	}
	return fmt.Sprintf("%s, %s and %d more were added to the list", names[0], names[1], len(names)-2)
}

func (n *Notifier) send(householdID int64, payload Payload) {
	subs, err := n.subs.ListByHousehold(householdID)
	if err != nil {
		n.logger.Error("list push subscriptions", "household_id", householdID, "error", err)
		return
	}
	for i := range subs {
		sub := &subs[i]
		err := n.sender.Send(sub, payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
				n.logger.Error("prune expired subscription", "error", err)
			}
		default:
			n.logger.Warn("push send failed", "subscription_id", sub.ID,
				"endpoint", endpointHost(sub.Endpoint), "error", err)
		}
	}
}

func endpointHost(endpoint string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}
