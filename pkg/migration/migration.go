// Package migration runs versioned schema migrations and records them in
// batches so the last batch can be rolled back.
//
//	func init() {
//	    migration.Register("20260301000000_create_orders_table", &CreateOrdersTable{})
//	}
package migration

import (
	"fmt"
	"io"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/foodle-app/foodle/pkg/logger"
)

// Migration is one reversible schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "foodle_migrations" }

type entry struct {
	name string
	m    Migration
}

var registry []entry

// Register adds a migration. name must start with a sortable timestamp.
func Register(name string, m Migration) {
	registry = append(registry, entry{name: name, m: m})
}

// Runner applies registered migrations to a database.
type Runner struct {
	db  *gorm.DB
	out io.Writer
}

// New returns a Runner that prints progress to out (may be io.Discard).
func New(db *gorm.DB, out io.Writer) *Runner {
	return &Runner{db: db, out: out}
}

// State is one migration's status.
type State struct {
	Name  string
	Ran   bool
	Batch int
}

func sorted() []entry {
	out := append([]entry(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (r *Runner) ran() (map[string]record, error) {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

// Run applies every pending migration as one batch. Each migration runs in
// its own transaction together with its bookkeeping row.
func (r *Runner) Run() (int, error) {
	done, err := r.ran()
	if err != nil {
		return 0, err
	}

	batch := 1
	for _, rec := range done {
		if rec.Batch >= batch {
			batch = rec.Batch + 1
		}
	}

	n := 0
	for _, e := range sorted() {
		if _, ok := done[e.name]; ok {
			continue
		}
		fmt.Fprintf(r.out, "  ▶ Migrating: %s\n", e.name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: e.name, Batch: batch}).Error
		})
		if err != nil {
			return n, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		n++
	}

	if n == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
	}
	logger.Info("migration: done", "ran", n, "batch", batch)
	return n, nil
}

// Rollback reverts the most recent batch, newest first.
func (r *Runner) Rollback() (int, error) {
	done, err := r.ran()
	if err != nil {
		return 0, err
	}

	last := 0
	for _, rec := range done {
		if rec.Batch > last {
			last = rec.Batch
		}
	}
	if last == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return 0, nil
	}

	entries := sorted()
	n := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		rec, ok := done[e.name]
		if !ok || rec.Batch != last {
			continue
		}
		fmt.Fprintf(r.out, "  ◀ Rolling back: %s\n", e.name)
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := e.m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&record{}, rec.ID).Error
		})
		if err != nil {
			return n, fmt.Errorf("migration: %s down: %w", e.name, err)
		}
		n++
	}
	logger.Info("migration: rolled back", "batch", last, "count", n)
	return n, nil
}

// Status lists every registered migration.
func (r *Runner) Status() ([]State, error) {
	done, err := r.ran()
	if err != nil {
		return nil, err
	}
	var out []State
	for _, e := range sorted() {
		rec, ok := done[e.name]
		out = append(out, State{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}
