package scenario

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/storage"
)

// StorageKind is the storage kind under which entries are persisted.
const StorageKind = "scenario"

// record is the persisted form of an Entry: the raw payloads, re-parsed on
// restore.
type record struct {
	Scenario jsonx.Object `json:"scenario"`
	Status   any          `json:"status"`
	Meta     *Meta        `json:"meta,omitempty"`
}

// Directory is the id/name index of last-seen scenarios.
// It is safe for concurrent use.
type Directory struct {
	mu     sync.RWMutex
	byID   map[string]Entry
	byName map[string]string // name key -> id

	store *storage.TypedStore[record]
}

// NewDirectory creates an empty in-memory directory.
func NewDirectory() *Directory {
	return &Directory{
		byID:   make(map[string]Entry),
		byName: make(map[string]string),
	}
}

// NewPersistentDirectory creates a directory mirrored to store.
// Call Restore to load what was persisted.
func NewPersistentDirectory(store *storage.Store) *Directory {
	d := NewDirectory()
	d.store = storage.NewTypedStore[record](store, StorageKind)
	return d
}

// Restore loads persisted entries into memory. It is a no-op without a store.
func (d *Directory) Restore() (int, error) {
	if d.store == nil {
		return 0, nil
	}

	records, _, err := d.store.GetAll()
	if err != nil {
		return 0, err
	}

	entries := make([]Entry, 0, len(records))
	for id, rec := range records {
		sc, ok := Parse(rec.Scenario)
		if !ok || sc.ID == "" {
			log.Warn().Str("id", id).Msg("Skipping unreadable persisted scenario")
			continue
		}
		entries = append(entries, Entry{Scenario: sc, Status: rec.Status, Meta: rec.Meta})
	}

	d.mu.Lock()
	d.replace(entries)
	d.mu.Unlock()

	return len(entries), nil
}

// Seed replaces the whole directory with entries.
func (d *Directory) Seed(entries []Entry) {
	d.mu.Lock()
	d.replace(entries)
	d.mu.Unlock()

	if d.store == nil {
		return
	}
	records := make(map[string]record, len(entries))
	for _, e := range entries {
		records[e.Scenario.ID] = toRecord(e)
	}
	if err := d.store.ReplaceAll(records); err != nil {
		log.Error().Err(err).Int("count", len(entries)).Msg("Failed to persist scenario list")
	}
}

// Put inserts or replaces one entry.
func (d *Directory) Put(e Entry) {
	if e.Scenario.ID == "" {
		return
	}

	d.mu.Lock()
	if prev, ok := d.byID[e.Scenario.ID]; ok && NameKey(prev.Scenario.Name) != NameKey(e.Scenario.Name) {
		d.unindexName(prev)
	}
	d.index(e)
	d.mu.Unlock()

	if d.store == nil {
		return
	}
	if err := d.store.Set(e.Scenario.ID, toRecord(e)); err != nil {
		log.Error().Err(err).Str("id", e.Scenario.ID).Msg("Failed to persist scenario")
	}
}

// Reset clears the directory.
func (d *Directory) Reset() {
	d.mu.Lock()
	d.replace(nil)
	d.mu.Unlock()

	if d.store == nil {
		return
	}
	if err := d.store.Clear(); err != nil {
		log.Error().Err(err).Msg("Failed to clear persisted scenarios")
	}
}

// ByID returns the entry with the given id.
func (d *Directory) ByID(id string) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.byID[id]
	return e, ok
}

// ByName returns the entry whose name matches case-insensitively.
func (d *Directory) ByName(name string) (Entry, bool) {
	key := NameKey(name)
	if key == "" {
		return Entry{}, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byName[key]
	if !ok {
		return Entry{}, false
	}
	e, ok := d.byID[id]
	return e, ok
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// All returns the entries sorted by name, then id.
func (d *Directory) All() []Entry {
	d.mu.RLock()
	out := make([]Entry, 0, len(d.byID))
	for _, e := range d.byID {
		out = append(out, e)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := NameKey(out[i].Scenario.Name), NameKey(out[j].Scenario.Name)
		if a != b {
			return a < b
		}
		return out[i].Scenario.ID < out[j].Scenario.ID
	})
	return out
}

// replace must be called with mu held.
func (d *Directory) replace(entries []Entry) {
	d.byID = make(map[string]Entry, len(entries))
	d.byName = make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Scenario.ID == "" {
			continue
		}
		d.index(e)
	}
}

// index must be called with mu held. The first scenario to claim a name keeps
// it.
func (d *Directory) index(e Entry) {
	d.byID[e.Scenario.ID] = e
	key := NameKey(e.Scenario.Name)
	if key == "" {
		return
	}
	if owner, taken := d.byName[key]; !taken || owner == e.Scenario.ID {
		d.byName[key] = e.Scenario.ID
	}
}

// unindexName must be called with mu held. A freed name passes to the
// remaining scenario with that name and the lowest id.
func (d *Directory) unindexName(e Entry) {
	key := NameKey(e.Scenario.Name)
	if d.byName[key] != e.Scenario.ID {
		return
	}
	delete(d.byName, key)

	heir := ""
	for id, other := range d.byID {
		if id == e.Scenario.ID || NameKey(other.Scenario.Name) != key {
			continue
		}
		if heir == "" || id < heir {
			heir = id
		}
	}
	if heir != "" {
		d.byName[key] = heir
	}
}

func toRecord(e Entry) record {
	return record{Scenario: e.Scenario.Raw, Status: e.Status, Meta: e.Meta}
}
