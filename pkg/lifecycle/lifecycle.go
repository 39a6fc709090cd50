// Package lifecycle defines the order status workflow.
//
//	received → preparing → ready → completed
//	    └──────────┴──→ cancelled
//
// received is the only initial status. completed and cancelled are terminal.
package lifecycle

import (
	"errors"
	"fmt"
)

// Status is the preparation status of an order.
type Status string

const (
	Received  Status = "received"
	Preparing Status = "preparing"
	Ready     Status = "ready"
	Completed Status = "completed"
	Cancelled Status = "cancelled"
)

// Initial is the status every order is created in.
const Initial = Received

// Action is a vendor-side command that moves an order forward.
type Action string

const (
	Accept    Action = "accept"
	MarkReady Action = "mark_ready"
	Complete  Action = "complete"
	Cancel    Action = "cancel"
)

var (
	ErrInvalidTransition = errors.New("lifecycle: invalid status transition")
	ErrTerminal          = errors.New("lifecycle: order is in a terminal status")
	ErrUnknownStatus     = errors.New("lifecycle: unknown status")
	ErrUnknownAction     = errors.New("lifecycle: unknown action")
)

// forward is the happy-path order.
var forward = []Status{Received, Preparing, Ready, Completed}

var edges = map[Action]struct {
	from []Status
	to   Status
}{
	Accept:    {from: []Status{Received}, to: Preparing},
	MarkReady: {from: []Status{Preparing}, to: Ready},
	Complete:  {from: []Status{Ready}, to: Completed},
	Cancel:    {from: []Status{Received, Preparing}, to: Cancelled},
}

// ParseStatus converts a stored or user-supplied value to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// ParseAction converts a route segment or message field to an Action.
// "ready" is accepted as shorthand for mark_ready.
func ParseAction(s string) (Action, error) {
	if s == "ready" {
		return MarkReady, nil
	}
	a := Action(s)
	if _, ok := edges[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

func (s Status) Valid() bool {
	switch s {
	case Received, Preparing, Ready, Completed, Cancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool { return s == Completed || s == Cancelled }

// Active reports whether the order still needs vendor attention.
func (s Status) Active() bool { return s == Received || s == Preparing || s == Ready }

// Cancellable reports whether cancel is allowed from s.
func (s Status) Cancellable() bool { return s == Received || s == Preparing }

func (s Status) String() string { return string(s) }

// Next returns the status that action moves from to.
func Next(from Status, action Action) (Status, error) {
	if !from.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, from)
	}
	edge, ok := edges[action]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if from.Terminal() {
		return "", fmt.Errorf("%w: cannot %s a %s order", ErrTerminal, action, from)
	}
	for _, f := range edge.from {
		if f == from {
			return edge.to, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s order", ErrInvalidTransition, action, from)
}

// CanTransition reports whether from → to is a single legal step.
func CanTransition(from, to Status) bool {
	for _, edge := range edges {
		if edge.to != to {
			continue
		}
		for _, f := range edge.from {
			if f == from {
				return true
			}
		}
	}
	return false
}

// ValidHistory reports whether statuses, as observed over time, is a
// subsequence of the forward path or such a subsequence ending in a single
// cancellation from a non-terminal status. Repeated observations of the same
// status are allowed.
func ValidHistory(statuses []Status) bool {
	last := -1
	cancelled := false
	for i, s := range statuses {
		if i > 0 && s == statuses[i-1] {
			continue
		}
		if cancelled {
			return false
		}
		if s == Cancelled {
			if i > 0 && !statuses[i-1].Cancellable() {
				return false
			}
			cancelled = true
			continue
		}
		idx := indexOf(s)
		if idx <= last {
			return false
		}
		last = idx
	}
	return true
}

func indexOf(s Status) int {
	for i, f := range forward {
		if f == s {
			return i
		}
	}
	return -1
}
