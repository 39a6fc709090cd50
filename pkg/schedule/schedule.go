// Package schedule runs housekeeping jobs on intervals or 5-field cron
// expressions.
//
//	s := schedule.New()
//	s.Every(1).Minutes().Name("limiter-sweep").Run(limiter.Prune)
//	s.Cron("30 3 * * *").Name("cart-prune").WithoutOverlapping().Run(prune)
//	go s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/foodle-app/foodle/pkg/logger"
)

// Task is one run of a job. ctx ends when the scheduler stops.
type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cron      string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

// Scheduler dispatches registered jobs once per tick.
type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	tick    time.Duration
	wg      sync.WaitGroup
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Builder configures one job before Run registers it.
type Builder struct {
	s *Scheduler
	e *entry
}

// Frequency picks the unit for Every.
type Frequency struct {
	s *Scheduler
	n int
}

func (s *Scheduler) Every(n int) Frequency { return Frequency{s: s, n: n} }

func (s *Scheduler) EveryMinute() *Builder { return s.Every(1).Minutes() }

func (s *Scheduler) Hourly() *Builder { return s.Every(1).Hours() }

func (s *Scheduler) Daily() *Builder { return s.Every(24).Hours() }

// Cron schedules on "minute hour day-of-month month day-of-week". Each field
// is *, a number, */step or a-b.
func (s *Scheduler) Cron(expr string) *Builder {
	return &Builder{s: s, e: &entry{cron: expr}}
}

func (f Frequency) every(unit time.Duration) *Builder {
	return &Builder{s: f.s, e: &entry{interval: time.Duration(f.n) * unit}}
}

func (f Frequency) Seconds() *Builder { return f.every(time.Second) }
func (f Frequency) Minutes() *Builder { return f.every(time.Minute) }
func (f Frequency) Hours() *Builder   { return f.every(time.Hour) }

// WithoutOverlapping skips a run while the previous one is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// Run registers the job. An invalid cron expression is reported here rather
// than silently never matching.
func (b *Builder) Run(task Task) error {
	if b.e.cron != "" {
		if err := validCron(b.e.cron); err != nil {
			return err
		}
	} else if b.e.interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive")
	}
	b.e.task = task

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("job-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// Start dispatches due jobs until ctx ends, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Info("schedule: started", "jobs", len(s.List()))
	t := time.NewTicker(s.tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-t.C:
			s.RunDue(ctx, now)
		}
	}
}

// RunDue starts every job due at now.
func (s *Scheduler) RunDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		if e.due(now) {
			s.dispatch(ctx, e, now)
		}
	}
}

// Wait blocks until dispatched jobs have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cron != "" {
		// at most once per matching minute
		if !e.lastRun.IsZero() && e.lastRun.Truncate(time.Minute).Equal(now.Truncate(time.Minute)) {
			return false
		}
		return matchCron(e.cron, now)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: previous run still going", "job", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("schedule: job panicked", "job", e.id, "panic", r)
			}
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: job failed", "job", e.id, "error", err)
			return
		}
		logger.Debug("schedule: job done", "job", e.id, "duration", time.Since(start))
	}()
}

// List describes the registered jobs.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		freq := e.cron
		if freq == "" {
			freq = "every " + e.interval.String()
		}
		out = append(out, fmt.Sprintf("%s [%s]", e.id, freq))
	}
	return out
}

var cronBounds = [5][2]int{{0, 59}, {0, 23}, {1, 31}, {1, 12}, {0, 6}}

func validCron(expr string) error {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return fmt.Errorf("schedule: cron %q needs 5 fields", expr)
	}
	for i, f := range fields {
		if _, err := parseField(f, cronBounds[i][0], cronBounds[i][1]); err != nil {
			return fmt.Errorf("schedule: cron %q: %w", expr, err)
		}
	}
	return nil
}

func matchCron(expr string, t time.Time) bool {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return false
	}
	vals := [5]int{t.Minute(), t.Hour(), t.Day(), int(t.Month()), int(t.Weekday())}
	for i, f := range fields {
		ok, err := parseField(f, cronBounds[i][0], cronBounds[i][1])
		if err != nil || !ok(vals[i]) {
			return false
		}
	}
	return true
}

func parseField(field string, lo, hi int) (func(int) bool, error) {
	if field == "*" {
		return func(int) bool { return true }, nil
	}
	if step, ok := strings.CutPrefix(field, "*/"); ok {
		n, err := strconv.Atoi(step)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad step %q", field)
		}
		return func(v int) bool { return (v-lo)%n == 0 }, nil
	}
	if a, b, ok := strings.Cut(field, "-"); ok {
		from, err1 := strconv.Atoi(a)
		to, err2 := strconv.Atoi(b)
		if err1 != nil || err2 != nil || from < lo || to > hi || from > to {
			return nil, fmt.Errorf("bad range %q", field)
		}
		return func(v int) bool { return v >= from && v <= to }, nil
	}
	n, err := strconv.Atoi(field)
	if err != nil || n < lo || n > hi {
		return nil, fmt.Errorf("bad value %q", field)
	}
	return func(v int) bool { return v == n }, nil
}
