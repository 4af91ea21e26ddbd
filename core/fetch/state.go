// ABOUTME: Strategy escalation state machine for a single fetch
// ABOUTME: States only move forward; there is no transition back to a cheaper strategy

package fetch

import (
	"fmt"

	"content-fetch-api/core/domain"
)

// State is a node of the escalation machine
type State int

const (
	StateTryAPI State = iota
	StateTryHTTP
	StateTryHeadless
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateTryAPI:      "TRY_API",
	StateTryHTTP:     "TRY_HTTP",
	StateTryHeadless: "TRY_HEADLESS",
	StateDone:        "DONE",
	StateFailed:      "FAILED",
}

// String returns the state name used in results and logs
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Strategy returns the acquisition strategy a TRY state runs
func (s State) Strategy() domain.Strategy {
	switch s {
	case StateTryAPI:
		return domain.StrategyAPI
	case StateTryHTTP:
		return domain.StrategyHTTP
	case StateTryHeadless:
		return domain.StrategyHeadless
	}
	return domain.StrategyNone
}

// Terminal reports whether no further strategy runs from s
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// machine tracks one fetch's position. Its only mutators are escalate,
// finish and fail, none of which can move to an earlier TRY state.
type machine struct {
	state    State
	headless bool

	// last is the most recent TRY state that ran
	last State

	// visited counts entries per TRY state; each is entered at most once
	visited map[State]int
}

func newMachine(apiEnabled, headlessReachable bool) *machine {
	start := StateTryHTTP
	if apiEnabled {
		start = StateTryAPI
	}
	m := &machine{
		state:    start,
		last:     start,
		headless: headlessReachable,
		visited:  map[State]int{start: 1},
	}
	return m
}

// next returns the state escalation would move to
func (m *machine) next() State {
	switch m.state {
	case StateTryAPI:
		return StateTryHTTP
	case StateTryHTTP:
		if m.headless {
			return StateTryHeadless
		}
	}
	return StateFailed
}

// canEscalate reports whether a more expensive strategy remains
func (m *machine) canEscalate() bool {
	return m.next() != StateFailed
}

// escalate moves to the next strategy, or FAILED when none remains
func (m *machine) escalate() State {
	to := m.next()
	if to <= m.state && !to.Terminal() {
		// Unreachable by construction of next
		to = StateFailed
	}
	m.state = to
	if !to.Terminal() {
		m.last = to
		m.visited[to]++
	}
	return to
}

func (m *machine) finish() {
	m.state = StateDone
}

func (m *machine) fail() {
	m.state = StateFailed
}
