// Package reconcile keeps a client-side list consistent while local creates
// and deletes are in flight and remote changes arrive out of order.
//
// Items are keyed strictly by backend id and carry a version (their update
// time). Locally submitted items live in a pending set under a temporary id
// until the backend returns the authoritative item. An item is in exactly one
// of the confirmed and pending sets at a time.
package reconcile

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"growwly/internal/apperr"
)

// TempPrefix marks client-generated ids; backend ids never carry it.
const TempPrefix = "temp-"

func NewTempID() string { return TempPrefix + uuid.NewString() }

func IsTemp(id string) bool { return strings.HasPrefix(id, TempPrefix) }

type Item interface {
	ItemID() string
	ItemCreated() time.Time
	ItemVersion() time.Time
}

// Twinned is implemented by items that carry the temporary id they were
// submitted under. An arriving item with a matching temporary id replaces
// that pending item whichever path delivers it first.
type Twinned interface {
	ItemTempID() string
}

func twinOf(item Item) string {
	if t, ok := item.(Twinned); ok {
		return t.ItemTempID()
	}
	return ""
}

type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is a backend-originated change. Delete events only need ID.
type Event[T Item] struct {
	Kind EventKind
	Item T
	ID   string
}

// Pending describes one submitted, unconfirmed item.
type Pending[T Item] struct {
	TempID string
	Input  string
	Item   T
}

type confirmedItem[T Item] struct {
	item T
	seq  uint64
}

type List[T Item] struct {
	mu sync.Mutex

	confirmed  map[string]confirmedItem[T]
	pending    []Pending[T]
	tombstones map[string]uint64
	input      string

	// seq counts local mutations; Mark/Replace use it to tell which local
	// state is newer than a snapshot.
	seq uint64
}

func NewList[T Item]() *List[T] {
	return &List[T]{
		confirmed:  make(map[string]confirmedItem[T]),
		tombstones: make(map[string]uint64),
	}
}

func (l *List[T]) SetInput(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.input = text
}

func (l *List[T]) Input() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.input
}

// Submit takes the current input, clears it, and records a pending item
// built for a fresh temporary id. Blank input is rejected and left intact.
func (l *List[T]) Submit(build func(tempID, text string) T) (Pending[T], error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	text := strings.TrimSpace(l.input)
	if text == "" {
		return Pending[T]{}, apperr.Validation("message is empty")
	}
	tempID := NewTempID()
	p := Pending[T]{TempID: tempID, Input: text, Item: build(tempID, text)}
	l.pending = append(l.pending, p)
	l.input = ""
	l.seq++
	return p, nil
}

// Confirm swaps the pending item for the backend's authoritative one. The
// pending item may already be gone when an event or snapshot carrying the
// same temporary id got there first.
func (l *List[T]) Confirm(tempID string, item T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dropPending(tempID)
	l.seq++
	if _, deleted := l.tombstones[item.ItemID()]; deleted {
		return
	}
	l.upsert(item)
}

// Fail removes the pending item and restores its text to the input so the
// user can retry. It returns the restored text.
func (l *List[T]) Fail(tempID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.dropPending(tempID)
	if !ok {
		return l.input
	}
	l.seq++
	if strings.TrimSpace(l.input) == "" {
		l.input = p.Input
	} else {
		l.input = p.Input + " " + l.input
	}
	return l.input
}

func (l *List[T]) dropPending(tempID string) (Pending[T], bool) {
	i := slices.IndexFunc(l.pending, func(p Pending[T]) bool { return p.TempID == tempID })
	if i < 0 {
		return Pending[T]{}, false
	}
	p := l.pending[i]
	l.pending = slices.Delete(l.pending, i, i+1)
	return p, true
}

// Remove deletes id optimistically. The returned restore puts the item back
// (and forgets the local delete) when the backend rejects the delete.
func (l *List[T]) Remove(id string) (restore func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, ok := l.confirmed[id]
	if !ok {
		return func() {}, false
	}
	delete(l.confirmed, id)
	l.seq++
	l.tombstones[id] = l.seq

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.tombstones, id)
		if _, exists := l.confirmed[id]; !exists {
			l.seq++
			l.confirmed[id] = confirmedItem[T]{item: ci.item, seq: l.seq}
		}
	}, true
}

// Apply folds one backend event into the confirmed set. Inserts and updates
// older than the held version are ignored; a delete removes the item at once.
func (l *List[T]) Apply(ev Event[T]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch ev.Kind {
	case EventInsert, EventUpdate:
		l.dropTwin(ev.Item)
		if _, deleted := l.tombstones[ev.Item.ItemID()]; deleted {
			return
		}
		l.seq++
		l.upsert(ev.Item)
	case EventDelete:
		id := ev.ID
		if id == "" {
			id = ev.Item.ItemID()
		}
		delete(l.confirmed, id)
		l.seq++
		l.tombstones[id] = l.seq
	}
}

// dropTwin removes the pending item item was submitted as, if any.
func (l *List[T]) dropTwin(item T) {
	if tempID := twinOf(item); tempID != "" {
		if _, ok := l.dropPending(tempID); ok {
			l.seq++
		}
	}
}

func (l *List[T]) upsert(item T) {
	id := item.ItemID()
	if cur, ok := l.confirmed[id]; ok && item.ItemVersion().Before(cur.item.ItemVersion()) {
		return
	}
	l.confirmed[id] = confirmedItem[T]{item: item, seq: l.seq}
}

// Mark returns a point in local history to pair with a refetch started now.
func (l *List[T]) Mark() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}

// Replace installs an authoritative snapshot fetched at mark. Local changes
// made after mark survive: items confirmed later stay even if the snapshot
// predates them, and items deleted later stay deleted. Pending items whose
// stored twin is in the snapshot are dropped.
func (l *List[T]) Replace(snapshot []T, mark uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.replace(snapshot, mark)
}

// ReplaceIfCurrent is Replace for a fetch issued under tok. It installs
// nothing and returns false once a newer fetch has begun on tr. The check and
// the install happen under one lock, so a superseded result can never land
// after a newer one.
func (l *List[T]) ReplaceIfCurrent(snapshot []T, mark uint64, tr *Tracker, tok Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !tr.Current(tok) {
		return false
	}
	l.replace(snapshot, mark)
	return true
}

func (l *List[T]) replace(snapshot []T, mark uint64) {
	for _, item := range snapshot {
		l.dropTwin(item)
	}

	next := make(map[string]confirmedItem[T], len(snapshot))
	for _, item := range snapshot {
		id := item.ItemID()
		if seq, deleted := l.tombstones[id]; deleted && seq > mark {
			continue
		}
		next[id] = confirmedItem[T]{item: item, seq: mark}
	}
	for id, ci := range l.confirmed {
		if ci.seq <= mark {
			continue
		}
		if cur, ok := next[id]; ok && ci.item.ItemVersion().Before(cur.item.ItemVersion()) {
			continue
		}
		next[id] = ci
	}
	for id, seq := range l.tombstones {
		if seq <= mark {
			delete(l.tombstones, id)
		}
	}
	l.confirmed = next
}

// Visible returns confirmed items ordered by backend creation time, then
// pending items in submission order.
func (l *List[T]) Visible() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]T, 0, len(l.confirmed)+len(l.pending))
	for _, ci := range l.confirmed {
		out = append(out, ci.item)
	}
	slices.SortFunc(out, func(a, b T) int {
		if c := a.ItemCreated().Compare(b.ItemCreated()); c != 0 {
			return c
		}
		return strings.Compare(a.ItemID(), b.ItemID())
	})
	for _, p := range l.pending {
		out = append(out, p.Item)
	}
	return out
}

func (l *List[T]) Pending() []Pending[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.pending)
}

func (l *List[T]) Get(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ci, ok := l.confirmed[id]
	return ci.item, ok
}
