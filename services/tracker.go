package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"monochrome/storage"
	"monochrome/types"
)

const (
	// HistoryKey is the storage key holding the serialized history
	HistoryKey = "monochrome_download_history"

	// MaxHistory bounds both the in-memory and the persisted history
	MaxHistory = 50
)

// Listener is invoked with no arguments after every state change
type Listener func()

// PersistOp identifies a persistence attempt
type PersistOp string

const (
	PersistLoad PersistOp = "load"
	PersistSave PersistOp = "save"
)

// PersistResult records the outcome of the last history load or save.
// Persistence failures never reach tracker callers; they are logged and
// kept here instead.
type PersistResult struct {
	Op      PersistOp
	Entries int
	Err     error
	At      time.Time
}

// OK reports whether the attempt succeeded
func (r PersistResult) OK() bool {
	return r.Err == nil
}

// Tracker interface defines the methods for tracking download lifecycles
type Tracker interface {
	StartDownload(id, name, artistName string) types.DownloadRecord
	UpdateProgress(id string, progress float64, downloadedSize, fileSize int64)
	CompleteDownload(id string)
	FailDownload(id string, errMsg string)
	ActiveDownloads() []types.DownloadRecord
	History() []types.DownloadRecord
	ClearHistory() PersistResult
	AddListener(fn Listener) *Subscription
	RemoveListener(sub *Subscription)
	LastPersist() PersistResult
}

// Subscription is the handle returned by AddListener
type Subscription struct {
	tracker *tracker
	id      uint64
}

// Unsubscribe stops further notifications. Calling it twice is harmless.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.tracker == nil {
		return
	}
	s.tracker.RemoveListener(s)
}

type listenerEntry struct {
	id uint64
	fn Listener
}

// tracker owns active downloads and the bounded history
type tracker struct {
	mu sync.RWMutex

	active  map[string]*types.DownloadRecord
	order   []string
	history []types.DownloadRecord

	listeners []listenerEntry
	nextID    uint64

	store       storage.KV
	lastPersist PersistResult
	now         func() time.Time
}

// NewTracker creates a tracker and restores history from store.
// A nil store keeps history in memory only.
func NewTracker(store storage.KV) Tracker {
	if store == nil {
		store = storage.NewMemoryStore()
	}

	t := &tracker{
		active: make(map[string]*types.DownloadRecord),
		store:  store,
		now:    time.Now,
	}
	t.loadHistory()
	return t
}

// StartDownload registers a new active download. An active record with the
// same id is replaced.
func (t *tracker) StartDownload(id, name, artistName string) types.DownloadRecord {
	t.mu.Lock()

	record := &types.DownloadRecord{
		ID:         id,
		Name:       name,
		ArtistName: artistName,
		Progress:   0,
		Status:     types.DownloadStatusDownloading,
		StartTime:  t.now().UnixMilli(),
	}

	if _, exists := t.active[id]; exists {
		log.Printf("Download %s restarted, replacing active record", id)
		t.removeFromOrder(id)
	}
	t.active[id] = record
	t.order = append(t.order, id)
	snapshot := *record

	t.mu.Unlock()
	t.notify()
	return snapshot
}

// UpdateProgress records progress for an active download. progress is stored
// as given; zero sizes keep the previously known value. Unknown ids are
// ignored.
func (t *tracker) UpdateProgress(id string, progress float64, downloadedSize, fileSize int64) {
	t.mu.Lock()

	record, exists := t.active[id]
	if !exists {
		t.mu.Unlock()
		return
	}

	record.Progress = progress
	if downloadedSize > 0 {
		record.DownloadedSize = downloadedSize
	}
	if fileSize > 0 {
		record.FileSize = fileSize
	}

	t.mu.Unlock()
	t.notify()
}

// CompleteDownload moves an active download to the head of history
func (t *tracker) CompleteDownload(id string) {
	t.finish(id, func(record *types.DownloadRecord) {
		record.Status = types.DownloadStatusCompleted
		record.Progress = 100
	})
}

// FailDownload moves an active download to the head of history with an error
func (t *tracker) FailDownload(id string, errMsg string) {
	t.finish(id, func(record *types.DownloadRecord) {
		record.Status = types.DownloadStatusFailed
		record.Error = errMsg
	})
}

func (t *tracker) finish(id string, apply func(record *types.DownloadRecord)) {
	t.mu.Lock()

	record, exists := t.active[id]
	if !exists {
		t.mu.Unlock()
		return
	}

	apply(record)
	record.EndTime = t.now().UnixMilli()

	delete(t.active, id)
	t.removeFromOrder(id)

	finished := *record
	t.history = prepend(finished, t.history)
	t.saveHistoryLocked(func(stored []types.DownloadRecord) []types.DownloadRecord {
		return prepend(finished, stored)
	})

	t.mu.Unlock()
	t.notify()
}

// ActiveDownloads returns a snapshot of the active downloads in start order
func (t *tracker) ActiveDownloads() []types.DownloadRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records := make([]types.DownloadRecord, 0, len(t.order))
	for _, id := range t.order {
		records = append(records, *t.active[id])
	}
	return records
}

// History returns the retained history, most recent first
func (t *tracker) History() []types.DownloadRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	records := make([]types.DownloadRecord, len(t.history))
	copy(records, t.history)
	return records
}

// ClearHistory empties the history without touching active downloads and
// reports the outcome of persisting the empty history
func (t *tracker) ClearHistory() PersistResult {
	t.mu.Lock()
	t.history = nil
	result := t.saveHistoryLocked(func([]types.DownloadRecord) []types.DownloadRecord {
		return nil
	})
	t.mu.Unlock()

	t.notify()
	return result
}

// AddListener registers fn and returns its subscription handle
func (t *tracker) AddListener(fn Listener) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	t.listeners = append(t.listeners, listenerEntry{id: t.nextID, fn: fn})
	return &Subscription{tracker: t, id: t.nextID}
}

// RemoveListener unregisters a subscription; unknown handles are ignored
func (t *tracker) RemoveListener(sub *Subscription) {
	if sub == nil || sub.tracker != t {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for i, entry := range t.listeners {
		if entry.id == sub.id {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return
		}
	}
}

// LastPersist returns the outcome of the most recent load or save
func (t *tracker) LastPersist() PersistResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastPersist
}

// notify calls every listener registered at the time of the call.
// It must run without holding the lock so listeners can read state.
func (t *tracker) notify() {
	t.mu.RLock()
	listeners := make([]Listener, len(t.listeners))
	for i, entry := range t.listeners {
		listeners[i] = entry.fn
	}
	t.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (t *tracker) removeFromOrder(id string) {
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			return
		}
	}
}

// saveHistoryLocked rewrites the stored history as merge(stored). Another
// process sharing the store may have saved since this tracker loaded, so the
// stored list rather than the in-memory one is the base. On success the
// in-memory history adopts the saved list; when the stored list is
// unreadable the in-memory history is written instead.
func (t *tracker) saveHistoryLocked(merge func(stored []types.DownloadRecord) []types.DownloadRecord) PersistResult {
	result := PersistResult{Op: PersistSave, Entries: len(t.history), At: t.now()}

	var saved []types.DownloadRecord
	err := t.store.Update(HistoryKey, func(current []byte) ([]byte, error) {
		stored, err := decodeHistory(current)
		if err != nil {
			log.Printf("Stored download history unreadable, overwriting it: %v", err)
			saved = capHistory(t.history)
		} else {
			saved = capHistory(merge(stored))
		}
		if saved == nil {
			saved = []types.DownloadRecord{}
		}
		return json.Marshal(saved)
	})

	if err != nil {
		result.Err = fmt.Errorf("failed to save history: %w", err)
		log.Printf("Failed to save download history: %v", result.Err)
	} else {
		t.history = saved
		result.Entries = len(saved)
	}
	t.lastPersist = result
	return result
}

func (t *tracker) loadHistory() {
	result := PersistResult{Op: PersistLoad, At: t.now()}

	history, err := t.readHistory()
	if err != nil {
		log.Printf("Failed to load download history: %v", err)
		result.Err = err
		history = nil
	}

	t.history = history
	result.Entries = len(history)
	t.lastPersist = result
}

func (t *tracker) readHistory() ([]types.DownloadRecord, error) {
	data, err := t.store.Get(HistoryKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return decodeHistory(data)
}

// decodeHistory parses a stored history. A nil payload is an empty history.
func decodeHistory(data []byte) ([]types.DownloadRecord, error) {
	if data == nil {
		return nil, nil
	}

	var history []types.DownloadRecord
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	for _, record := range history {
		if !record.Status.IsTerminal() {
			return nil, fmt.Errorf("history record %s has non-terminal status %q", record.ID, record.Status)
		}
	}
	return capHistory(history), nil
}

// prepend returns a new slice with record at the head, capped at MaxHistory
func prepend(record types.DownloadRecord, history []types.DownloadRecord) []types.DownloadRecord {
	out := make([]types.DownloadRecord, 0, len(history)+1)
	out = append(out, record)
	out = append(out, history...)
	return capHistory(out)
}

func capHistory(history []types.DownloadRecord) []types.DownloadRecord {
	if len(history) > MaxHistory {
		return history[:MaxHistory]
	}
	return history
}
