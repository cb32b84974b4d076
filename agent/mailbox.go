package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kardolus/minebot/agent/cycle"
	"github.com/kardolus/minebot/agent/types"
)

// Directive is an externally requested change to the goal and plan. The zero
// value changes nothing.
type Directive struct {
	Goal   *string
	Stop   bool
	Result string
}

func GoalDirective(goal string) Directive {
	goal = strings.TrimSpace(goal)
	return Directive{Goal: &goal}
}

func StopDirective(reason string) Directive {
	return Directive{Stop: true, Result: reason}
}

// Apply folds the directive into state. A new goal clears the plan and leaves
// a result that keeps the next graph run from ending straight away.
func (d Directive) Apply(state types.State) types.State {
	switch {
	case d.Goal != nil:
		state.CurrentGoal = *d.Goal
		state.CurrentPlan = nil
		state.LastAction = ""
		state.LastActionResult = fmt.Sprintf("%s: %s", cycle.FreshGoalPrefix, *d.Goal)
	case d.Stop:
		state.CurrentGoal = types.IdleGoal
		state.CurrentPlan = nil
		state.LastAction = ""
		state.LastActionResult = "Stopped"
		if d.Result != "" {
			state.LastActionResult = d.Result
		}
	}
	return state
}

// Mailbox is a single-slot handle between chat and the agent loop. Posts
// merge into the slot; the loop takes it once per poll.
type Mailbox struct {
	mu      sync.Mutex
	pending *Directive
}

func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post merges d into the pending directive. The most recent goal or stop
// wins.
func (m *Mailbox) Post(d Directive) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		m.pending = &d
		return
	}

	switch {
	case d.Goal != nil:
		m.pending.Goal = d.Goal
		m.pending.Stop = false
	case d.Stop:
		m.pending.Goal = nil
		m.pending.Stop = true
	}
	if d.Result != "" {
		m.pending.Result = d.Result
	}
}

// Take empties the slot.
func (m *Mailbox) Take() (Directive, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return Directive{}, false
	}
	d := *m.pending
	m.pending = nil
	return d, true
}
