// Package realtime delivers row-level change notifications to live views.
//
// Writers publish a Change after each committed insert, update or delete.
// Readers open a Subscription scoped by table, optional column equality and
// event type, and receive matching changes on a channel until they Close it.
//
//	sub := broker.Subscribe(realtime.Filter{Table: "orders", Column: "stall_id", Value: id})
//	defer sub.Close()
//	for ch := range sub.Events() { ... }
package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the kind of row change.
type Event string

const (
	Insert Event = "INSERT"
	Update Event = "UPDATE"
	Delete Event = "DELETE"
	Any    Event = "*"
)

// Row is a JSON-shaped copy of a record.
type Row map[string]any

// Change is one committed row change. Old is set for updates and deletes
// when the writer had the previous value.
type Change struct {
	Table string    `json:"table"`
	Event Event     `json:"event"`
	New   Row       `json:"new,omitempty"`
	Old   Row       `json:"old,omitempty"`
	At    time.Time `json:"at"`
}

// NewChange snapshots newRec and oldRec (either may be nil) through their
// JSON encoding, so filters see the same column names clients do.
func NewChange(table string, event Event, newRec, oldRec any) (Change, error) {
	c := Change{Table: table, Event: event, At: time.Now().UTC()}

	var err error
	if c.New, err = toRow(newRec); err != nil {
		return Change{}, fmt.Errorf("realtime: encode new %s row: %w", table, err)
	}
	if c.Old, err = toRow(oldRec); err != nil {
		return Change{}, fmt.Errorf("realtime: encode old %s row: %w", table, err)
	}
	return c, nil
}

func toRow(v any) (Row, error) {
	if v == nil {
		return nil, nil
	}
	if r, ok := v.(Row); ok {
		return r, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// Filter scopes a subscription. An empty Column matches every row of
// Table; an empty Event means Any.
type Filter struct {
	Table  string `json:"table"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Event  Event  `json:"event,omitempty"`
}

// Matches reports whether c falls inside f. For column filters the new row
// is checked first, then the old one, so a delete still reaches a view
// scoped to the deleted row.
func (f Filter) Matches(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	if f.Event != "" && f.Event != Any && f.Event != c.Event {
		return false
	}
	if f.Column == "" {
		return true
	}
	return columnEquals(c.New, f.Column, f.Value) || columnEquals(c.Old, f.Column, f.Value)
}

func (f Filter) String() string {
	s := f.Table
	if f.Column != "" {
		s += ":" + f.Column + "=eq." + f.Value
	}
	if f.Event != "" && f.Event != Any {
		s += "@" + string(f.Event)
	}
	return s
}

func columnEquals(r Row, column, value string) bool {
	if r == nil {
		return false
	}
	v, ok := r[column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == value
}
