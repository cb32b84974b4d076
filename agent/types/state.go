package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/memory"
	"github.com/kardolus/minebot/world"
)

// IdleGoal is the sentinel goal meaning "no active goal".
const IdleGoal = "Waiting for instructions"

type Surroundings struct {
	Blocks    []string   `json:"blocks"`
	Entities  []string   `json:"entities"`
	Position  world.Vec3 `json:"position"`
	Health    float64    `json:"health"`
	Food      float64    `json:"food"`
	TimeOfDay int64      `json:"timeOfDay"`
	IsDay     bool       `json:"isDay"`
	Biome     string     `json:"biome"`
	Sleeping  bool       `json:"sleeping"`
}

// State flows through the cycle by value. Maps and slices must be treated
// as read-only by stages; changes travel back as an Update.
type State struct {
	Memory           memory.StructuredMemory
	Inventory        map[string]int
	Surroundings     Surroundings
	CurrentGoal      string
	CurrentPlan      []string
	LastAction       string
	LastActionResult string
}

func NewState() State {
	return State{
		Memory:      memory.New(),
		Inventory:   map[string]int{},
		CurrentGoal: IdleGoal,
	}
}

func (s State) Idle() bool {
	g := strings.TrimSpace(s.CurrentGoal)
	return g == "" || g == IdleGoal
}

// PlanHead returns the first plan step with numbering stripped.
func (s State) PlanHead() (string, bool) {
	if len(s.CurrentPlan) == 0 {
		return "", false
	}
	return command.Clean(s.CurrentPlan[0]), true
}

// Clone deep-copies everything a reader could mutate.
func (s State) Clone() State {
	out := s
	out.Memory = s.Memory.Clone()
	out.Inventory = make(map[string]int, len(s.Inventory))
	for k, v := range s.Inventory {
		out.Inventory[k] = v
	}
	if s.CurrentPlan != nil {
		out.CurrentPlan = append([]string{}, s.CurrentPlan...)
	}
	out.Surroundings.Blocks = append([]string(nil), s.Surroundings.Blocks...)
	out.Surroundings.Entities = append([]string(nil), s.Surroundings.Entities...)
	return out
}

func (s State) InventorySummary() string {
	if len(s.Inventory) == 0 {
		return "empty"
	}
	names := make([]string, 0, len(s.Inventory))
	for name := range s.Inventory {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s x%d", name, s.Inventory[name]))
	}
	return strings.Join(parts, ", ")
}

// Summary is the compact state description used in prompts and the status
// chat command.
func (s State) Summary() string {
	sur := s.Surroundings
	period := "night"
	if sur.IsDay {
		period = "day"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s in %s\n", sur.Position, orUnknown(sur.Biome))
	fmt.Fprintf(&b, "Health: %.0f/20, Food: %.0f/20, Time: %d (%s)", sur.Health, sur.Food, sur.TimeOfDay, period)
	if sur.Sleeping {
		b.WriteString(", sleeping")
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Inventory: %s\n", s.InventorySummary())
	fmt.Fprintf(&b, "Nearby blocks: %s\n", joinOrNone(sur.Blocks))
	fmt.Fprintf(&b, "Nearby entities: %s\n", joinOrNone(sur.Entities))
	fmt.Fprintf(&b, "Goal: %s\n", orUnknown(s.CurrentGoal))
	if len(s.CurrentPlan) > 0 {
		fmt.Fprintf(&b, "Plan: %s\n", strings.Join(s.CurrentPlan, " | "))
	}
	if s.LastAction != "" {
		fmt.Fprintf(&b, "Last action: %s\n", s.LastAction)
	}
	if s.LastActionResult != "" {
		fmt.Fprintf(&b, "Last result: %s\n", s.LastActionResult)
	}
	return strings.TrimRight(b.String(), "\n")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
