package notification

import (
	"slices"
	"sync"

	"github.com/sensordash/alertd/internal/errors"
)

// DefaultCapacity bounds the notification log when no capacity is configured.
const DefaultCapacity = 500

// ErrNotificationNotFound is returned for operations on an unknown id.
var ErrNotificationNotFound = errors.NewStd("notification not found")

type entry struct {
	n   Notification
	seq uint64
}

// Store is the bounded, in-memory notification log. When full, appending
// evicts the entry that was inserted first. All methods are safe for
// concurrent use and return copies.
type Store struct {
	mu sync.RWMutex
	// entries[head:] is the log in insertion order. Eviction advances head;
	// the dead prefix is compacted once it reaches capacity.
	entries  []entry
	head     int
	capacity int
	seq      uint64

	events *Broadcaster
}

// NewStore creates a log holding at most capacity notifications.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:  make([]entry, 0, min(capacity, 64)),
		capacity: capacity,
	}
}

// PublishTo streams every appended notification to b.
func (s *Store) PublishTo(b *Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = b
}

// Append adds n to the log and reports whether an older entry was evicted.
func (s *Store) Append(n *Notification) (evicted bool) {
	s.mu.Lock()
	s.seq++
	s.entries = append(s.entries, entry{n: *n, seq: s.seq})
	if len(s.entries)-s.head > s.capacity {
		s.entries[s.head] = entry{}
		s.head++
		evicted = true
		if s.head >= s.capacity {
			s.compact()
		}
	}
	events := s.events
	s.mu.Unlock()

	published := *n
	events.Publish(Event{Type: EventNotification, Notification: &published})
	return evicted
}

// compact drops the evicted prefix. Must be called with the lock held.
func (s *Store) compact() {
	n := copy(s.entries, s.entries[s.head:])
	clear(s.entries[n:])
	s.entries = s.entries[:n]
	s.head = 0
}

// live returns the retained entries. Must be called with the lock held.
func (s *Store) live() []entry {
	return s.entries[s.head:]
}

// List returns all notifications, newest first. Entries with equal
// timestamps are ordered by insertion, latest first.
func (s *Store) List() []Notification {
	s.mu.RLock()
	sorted := slices.Clone(s.live())
	s.mu.RUnlock()

	slices.SortStableFunc(sorted, func(a, b entry) int {
		if c := b.n.Timestamp.Compare(a.n.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.seq > b.seq:
			return -1
		case a.seq < b.seq:
			return 1
		}
		return 0
	})

	out := make([]Notification, len(sorted))
	for i := range sorted {
		out[i] = sorted[i].n
	}
	return out
}

// Get returns a copy of the notification with the given id.
func (s *Store) Get(id string) (Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.live()[i].n, nil
	}
	return Notification{}, ErrNotificationNotFound
}

// MarkRead flags one notification as read. Marking twice is not an error.
func (s *Store) MarkRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	s.live()[i].n.IsRead = true
	return nil
}

// MarkAllRead flags every notification as read and returns how many changed.
func (s *Store) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	entries := s.live()
	for i := range entries {
		if !entries[i].n.IsRead {
			entries[i].n.IsRead = true
			changed++
		}
	}
	return changed
}

// Remove deletes one notification.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrNotificationNotFound
	}
	s.entries = slices.Delete(s.entries, s.head+i, s.head+i+1)
	return nil
}

// ClearAll empties the log.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.entries = s.entries[:0]
	s.head = 0
}

// UnreadCount returns the number of notifications not yet read.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.live() {
		if !e.n.IsRead {
			count++
		}
	}
	return count
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live())
}

// HasUnacknowledged reports whether an unread notification of any of the
// given kinds exists.
func (s *Store) HasUnacknowledged(kinds ...Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.live() {
		if !e.n.IsRead && slices.Contains(kinds, e.n.Kind) {
			return true
		}
	}
	return false
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.live(), func(e entry) bool { return e.n.ID == id })
}
