package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

// LastUpdatedLayout is the ISO-8601 layout written into Document.LastUpdated
const LastUpdatedLayout = "2006-01-02T15:04:05.000Z07:00"

// Validation errors
var (
	ErrEmptyAthleteID     = errors.New("athlete id is empty")
	ErrDuplicateAthleteID = errors.New("duplicate athlete id")
)

// Document is the whole shared roster, always read and written as one unit
type Document struct {
	Athletes    []Athlete `json:"athletes"`
	LastUpdated string    `json:"lastUpdated,omitempty"`

	// Extra holds every other top-level member exactly as it was read, so a
	// rewrite of the document carries it through unchanged
	Extra map[string]json.RawMessage `json:"-"`
}

// Athlete is one roster record. Attributes hold every field except id
// (stat scores, name, belt, ...) and are merged shallowly on update.
type Athlete struct {
	ID         string
	Attributes map[string]any
}

// CacheEntry is the persisted snapshot of a Document
type CacheEntry struct {
	Content   Document `json:"content"`
	Timestamp int64    `json:"timestamp"` // epoch millis of the local write
}

// NewCacheEntry stamps doc with the given write time
func NewCacheEntry(doc Document, now time.Time) CacheEntry {
	return CacheEntry{Content: doc, Timestamp: now.UnixMilli()}
}

// WrittenAt returns the local write time of the entry
func (e CacheEntry) WrittenAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{LastUpdated: d.LastUpdated}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = bytes.Clone(v)
		}
	}
	if d.Athletes != nil {
		out.Athletes = make([]Athlete, len(d.Athletes))
		for i, a := range d.Athletes {
			out.Athletes[i] = a.Clone()
		}
	}
	return out
}

// Find returns the index of the athlete with the given id, or -1
func (d *Document) Find(id string) int {
	for i := range d.Athletes {
		if d.Athletes[i].ID == id {
			return i
		}
	}
	return -1
}

// Validate enforces athlete id presence and uniqueness
func (d *Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Athletes))
	for i, a := range d.Athletes {
		if a.ID == "" {
			return fmt.Errorf("athlete at index %d: %w", i, ErrEmptyAthleteID)
		}
		if _, ok := seen[a.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateAthleteID, a.ID)
		}
		seen[a.ID] = struct{}{}
	}
	return nil
}

// Touch sets LastUpdated to now
func (d *Document) Touch(now time.Time) {
	d.LastUpdated = now.UTC().Format(LastUpdatedLayout)
}

// Clone returns a copy of the athlete with its own attribute map.
// Attribute values are scalars, so one level is enough.
func (a Athlete) Clone() Athlete {
	return Athlete{ID: a.ID, Attributes: maps.Clone(a.Attributes)}
}

// Get returns a single attribute
func (a Athlete) Get(key string) (any, bool) {
	v, ok := a.Attributes[key]
	return v, ok
}

// Merge overlays partial onto the athlete's attributes. New keys are added,
// existing keys overwritten. The id key is never taken from partial.
func (a *Athlete) Merge(partial map[string]any) {
	if a.Attributes == nil {
		a.Attributes = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		if k == "id" {
			continue
		}
		a.Attributes[k] = v
	}
}

// MarshalJSON writes athletes, lastUpdated and the extra members as one
// object. A nil roster is written as an empty array.
func (d Document) MarshalJSON() ([]byte, error) {
	athletes := d.Athletes
	if athletes == nil {
		athletes = []Athlete{}
	}

	obj := make(map[string]any, len(d.Extra)+2)
	for k, v := range d.Extra {
		obj[k] = v
	}
	obj["athletes"] = athletes
	if d.LastUpdated != "" {
		obj["lastUpdated"] = d.LastUpdated
	} else {
		delete(obj, "lastUpdated")
	}
	return json.Marshal(obj)
}

// UnmarshalJSON reads a document, keeping unknown members in Extra
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	var out Document
	if v, ok := raw["athletes"]; ok {
		if err := json.Unmarshal(v, &out.Athletes); err != nil {
			return fmt.Errorf("athletes: %w", err)
		}
		delete(raw, "athletes")
	}
	if v, ok := raw["lastUpdated"]; ok {
		if err := json.Unmarshal(v, &out.LastUpdated); err != nil {
			return fmt.Errorf("lastUpdated: %w", err)
		}
		delete(raw, "lastUpdated")
	}
	if len(raw) > 0 {
		out.Extra = raw
	}
	*d = out
	return nil
}

// MarshalJSON writes the athlete as a flat object with its id alongside attributes
func (a Athlete) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(a.Attributes)+1)
	for k, v := range a.Attributes {
		flat[k] = v
	}
	flat["id"] = a.ID
	return json.Marshal(flat)
}

// UnmarshalJSON reads a flat athlete object
func (a *Athlete) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	if flat == nil {
		return fmt.Errorf("athlete must be an object")
	}
	raw, ok := flat["id"]
	if !ok {
		return fmt.Errorf("athlete has no id")
	}
	id, ok := raw.(string)
	if !ok {
		return fmt.Errorf("athlete id must be a string, got %T", raw)
	}
	delete(flat, "id")
	a.ID = id
	a.Attributes = flat
	return nil
}
