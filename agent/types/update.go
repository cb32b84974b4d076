package types

import "github.com/kardolus/minebot/agent/memory"

// Update is the partial state a stage returns. Nil fields leave the running
// state untouched; set fields replace it.
type Update struct {
	Memory           *memory.StructuredMemory
	Inventory        map[string]int
	Surroundings     *Surroundings
	CurrentGoal      *string
	CurrentPlan      *[]string
	LastAction       *string
	LastActionResult *string
}

func (s State) Merge(u Update) State {
	if u.Memory != nil {
		s.Memory = *u.Memory
	}
	if u.Inventory != nil {
		s.Inventory = u.Inventory
	}
	if u.Surroundings != nil {
		s.Surroundings = *u.Surroundings
	}
	if u.CurrentGoal != nil {
		s.CurrentGoal = *u.CurrentGoal
	}
	if u.CurrentPlan != nil {
		s.CurrentPlan = *u.CurrentPlan
	}
	if u.LastAction != nil {
		s.LastAction = *u.LastAction
	}
	if u.LastActionResult != nil {
		s.LastActionResult = *u.LastActionResult
	}
	return s
}

// Then combines two updates, with the fields set in next winning.
func (u Update) Then(next Update) Update {
	if next.Memory != nil {
		u.Memory = next.Memory
	}
	if next.Inventory != nil {
		u.Inventory = next.Inventory
	}
	if next.Surroundings != nil {
		u.Surroundings = next.Surroundings
	}
	if next.CurrentGoal != nil {
		u.CurrentGoal = next.CurrentGoal
	}
	if next.CurrentPlan != nil {
		u.CurrentPlan = next.CurrentPlan
	}
	if next.LastAction != nil {
		u.LastAction = next.LastAction
	}
	if next.LastActionResult != nil {
		u.LastActionResult = next.LastActionResult
	}
	return u
}

func Str(s string) *string { return &s }

// Plan wraps steps for an Update. Plan() with no steps clears the plan.
func Plan(steps ...string) *[]string {
	p := append([]string{}, steps...)
	return &p
}
