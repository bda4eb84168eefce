package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/SpikeIreland/clarence-sub004/backend/model"
	"github.com/google/uuid"
)

// ToastQueue holds out-of-focus chat alerts. Each entry owns the timer
// that auto-dismisses it, so teardown can cancel every pending removal.
// The unread counter is atomic over the authoritative value; it is never
// computed from a previously read copy.
type ToastQueue struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries []*model.ToastEntry
	timers  map[string]*time.Timer
	focused bool
	unread  atomic.Int64
}

func NewToastQueue(ttl time.Duration) *ToastQueue {
	return &ToastQueue{
		ttl:    ttl,
		timers: make(map[string]*time.Timer),
	}
}

// SetFocused records whether the chat surface is visible. Focusing the
// surface clears the unread counter; focused surfaces receive no toasts.
func (q *ToastQueue) SetFocused(focused bool) {
	q.mu.Lock()
	q.focused = focused
	q.mu.Unlock()

	if focused {
		q.unread.Store(0)
	}
}

// Notify enqueues a toast for an incoming event unless the surface is
// focused. The entry is removed automatically after the display TTL or
// by an explicit Dismiss, whichever comes first.
func (q *ToastQueue) Notify(sender, body string) (*model.ToastEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.focused {
		return nil, false
	}

	entry := &model.ToastEntry{
		ID:        uuid.New().String(),
		Sender:    sender,
		Preview:   model.TruncatePreview(body),
		CreatedAt: time.Now(),
	}
	q.entries = append(q.entries, entry)
	q.unread.Add(1)

	id := entry.ID
	q.timers[id] = time.AfterFunc(q.ttl, func() {
		q.Dismiss(id)
	})

	return entry, true
}

// Dismiss removes an entry and cancels its pending removal timer.
func (q *ToastQueue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}

	for i, entry := range q.entries {
		if entry.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Entries returns the live toasts in arrival order.
func (q *ToastQueue) Entries() []model.ToastEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]model.ToastEntry, len(q.entries))
	for i, entry := range q.entries {
		result[i] = *entry
	}
	return result
}

// Unread returns the number of events since the surface was last focused.
func (q *ToastQueue) Unread() int64 {
	return q.unread.Load()
}

// CancelAll stops every pending auto-dismiss timer and drops all
// entries. Called on wizard teardown.
func (q *ToastQueue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.entries = nil
	q.unread.Store(0)
}
