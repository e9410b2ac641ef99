// Package board keeps the kitchen display's local copy of the ticket list.
// Websocket pushes and periodic polls both feed one Board; versions decide
// which of the two wins.
package board

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/resto-qr/api/internal/enum"
	"github.com/resto-qr/api/internal/events"
	"github.com/resto-qr/api/internal/kitchen"
	"github.com/resto-qr/api/internal/workflow"
)

// PollToken marks the moment a poll request started.
type PollToken uint64

// entry is the local state of one order. An entry without a ticket records
// that the order left the board at version.
type entry struct {
	ticket  *kitchen.Ticket
	version int64
	seq     uint64
}

// Board is safe for concurrent use by the websocket reader and the poller.
type Board struct {
	mu       sync.Mutex
	statuses []string
	entries  map[uuid.UUID]entry
	seq      uint64
	refresh  uint64 // seq of the latest push that needs a poll, 0 when none
}

// New returns an empty board showing orders in the given statuses. No
// statuses means the default kitchen filter.
func New(statuses ...string) *Board {
	if len(statuses) == 0 {
		statuses = enum.KitchenOrderStatuses
	}
	return &Board{
		statuses: statuses,
		entries:  make(map[uuid.UUID]entry),
	}
}

// BeginPoll must be called before the poll request is sent; its token goes to
// ApplySnapshot with the response.
func (b *Board) BeginPoll() PollToken {
	b.mu.Lock()
	defer b.mu.Unlock()
	return PollToken(b.seq)
}

// ApplySnapshot replaces the board with a poll result. Local entries with a
// newer version, or pushed after the poll started, are kept.
func (b *Board) ApplySnapshot(tok PollToken, tickets []kitchen.Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[uuid.UUID]entry, len(tickets))
	for i := range tickets {
		t := tickets[i]
		if cur, ok := b.entries[t.OrderID]; ok && (cur.version > t.Version || cur.seq > uint64(tok)) {
			next[t.OrderID] = cur
			continue
		}
		next[t.OrderID] = entry{ticket: &t, version: t.Version}
	}
	for id, cur := range b.entries {
		if _, ok := next[id]; !ok && cur.seq > uint64(tok) {
			next[id] = cur
		}
	}
	b.entries = next

	if b.refresh <= uint64(tok) {
		b.refresh = 0
	}
}

// NeedsRefresh reports whether a push arrived that only a poll can resolve,
// such as a new order whose items are not in the event.
func (b *Board) NeedsRefresh() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refresh != 0
}

// Apply folds a pushed event into the board. It reports whether the visible
// board changed.
func (b *Board) Apply(e events.Event) (bool, error) {
	switch e.Type {
	case events.TypeItemUpdated:
		p, err := events.Decode[events.ItemUpdated](e)
		if err != nil {
			return false, err
		}
		return b.applyItem(p), nil

	case events.TypeOrderStatusUpdated:
		p, err := events.Decode[events.OrderStatusUpdated](e)
		if err != nil {
			return false, err
		}
		return b.applyOrderStatus(p.OrderID, p.Status, p.Version), nil

	case events.TypeOrderCreated, events.TypeOrderUpdated:
		p, err := events.Decode[events.OrderChanged](e)
		if err != nil {
			return false, err
		}
		return b.applyOrderChanged(p), nil

	case events.TypeOrderDeleted:
		p, err := events.Decode[events.OrderDeleted](e)
		if err != nil {
			return false, err
		}
		return b.remove(p.OrderID, p.Version), nil
	}
	return false, nil
}

// remove drops an order, keeping its version so an older poll cannot bring
// it back.
func (b *Board) remove(orderID uuid.UUID, version int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.entries[orderID]
	if ok && cur.version >= version {
		return false
	}
	b.seq++
	b.entries[orderID] = entry{version: version, seq: b.seq}
	return ok && cur.ticket != nil
}

func (b *Board) applyItem(p events.ItemUpdated) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.entries[p.OrderID]
	if ok && cur.version >= p.Version {
		return false
	}
	if !ok || cur.ticket == nil {
		if !ok {
			b.markRefresh()
		}
		return false
	}

	t := cloneTicket(*cur.ticket)
	found := false
	for i := range t.Items {
		if t.Items[i].ID == p.ItemID {
			t.Items[i].Status = p.Status
			found = true
		}
	}
	if !found {
		b.markRefresh()
		return false
	}
	t.Version = p.Version
	recompute(&t)

	b.seq++
	b.entries[p.OrderID] = entry{ticket: &t, version: p.Version, seq: b.seq}
	return true
}

func (b *Board) applyOrderStatus(orderID uuid.UUID, status string, version int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setOrderStatus(orderID, status, version)
}

func (b *Board) applyOrderChanged(p events.OrderChanged) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cur, ok := b.entries[p.OrderID]; ok && cur.version >= p.Version {
		return false
	}
	// Item lists are not in the event, so an order that belongs on the
	// board has to come from the next poll.
	if slices.Contains(b.statuses, p.Status) {
		b.markRefresh()
		return false
	}
	return b.setOrderStatus(p.OrderID, p.Status, p.Version)
}

// setOrderStatus must be called with mu held.
func (b *Board) setOrderStatus(orderID uuid.UUID, status string, version int64) bool {
	cur, ok := b.entries[orderID]
	if ok && cur.version >= version {
		return false
	}

	if !slices.Contains(b.statuses, status) {
		b.seq++
		b.entries[orderID] = entry{version: version, seq: b.seq}
		return ok && cur.ticket != nil
	}
	if !ok || cur.ticket == nil {
		b.markRefresh()
		return false
	}

	t := cloneTicket(*cur.ticket)
	t.Status = status
	t.Version = version
	recompute(&t)
	b.seq++
	b.entries[orderID] = entry{ticket: &t, version: version, seq: b.seq}
	return true
}

// markRefresh must be called with mu held.
func (b *Board) markRefresh() {
	b.seq++
	b.refresh = b.seq
}

// Tickets returns the visible tickets sorted by mode, with elapsed time
// measured against now.
func (b *Board) Tickets(mode string, now time.Time) []kitchen.Ticket {
	b.mu.Lock()
	out := make([]kitchen.Ticket, 0, len(b.entries))
	for _, e := range b.entries {
		if e.ticket == nil {
			continue
		}
		t := cloneTicket(*e.ticket)
		t.ElapsedMinutes = 0
		if elapsed := now.Sub(t.CreatedAt); elapsed > 0 {
			t.ElapsedMinutes = int(elapsed.Minutes())
		}
		out = append(out, t)
	}
	b.mu.Unlock()

	kitchen.SortTickets(out, mode, now)
	return out
}

// Version returns the local version of an order and whether it is known.
func (b *Board) Version(orderID uuid.UUID) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[orderID]
	return e.version, ok
}

// Render writes tickets as an aligned table.
func Render(w io.Writer, tickets []kitchen.Ticket) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tSTATUS\tAGE\tPROGRESS\tWAIT\tITEMS\t")
	for _, t := range tickets {
		ready := ""
		if t.SuggestReady {
			ready = " *"
		}
		fmt.Fprintf(tw, "%s\t%s%s\t%dm\t%d%%\t%.0fm\t%s\t\n",
			t.Code, t.Status, ready, t.ElapsedMinutes, t.Progress, t.WaitEstimate, itemSummary(t.Items))
	}
	return tw.Flush()
}

func itemSummary(items []kitchen.Item) string {
	s := ""
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%dx %s [%s]", it.Quantity, it.DishName, it.Status)
	}
	return s
}

func recompute(t *kitchen.Ticket) {
	statuses := make([]string, len(t.Items))
	for i, it := range t.Items {
		statuses[i] = it.Status
	}
	t.WaitEstimate = kitchen.WaitEstimate(t.Items)
	t.Progress = kitchen.Progress(t.Items)
	t.SuggestReady = workflow.SuggestReady(t.Status, statuses)
	t.Items = kitchen.GroupItems(t.Items)
}

func cloneTicket(t kitchen.Ticket) kitchen.Ticket {
	t.Items = slices.Clone(t.Items)
	return t
}
