package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kardolus/minebot/world"
)

type ActionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Result    string    `json:"result"`
}

type ShortTerm struct {
	RecentActions []ActionRecord `json:"recentActions"`
}

type Location struct {
	Position  world.Vec3 `json:"position"`
	Timestamp time.Time  `json:"timestamp"`
}

type RecipeKnowledge struct {
	Crafted     int       `json:"crafted"`
	LastCrafted time.Time `json:"lastCrafted"`
}

type EntityEncounter struct {
	Attacks  int       `json:"attacks"`
	LastSeen time.Time `json:"lastSeen"`
}

type CompletedGoal struct {
	Goal      string    `json:"goal"`
	Timestamp time.Time `json:"timestamp"`
}

type FailurePattern struct {
	Count         int       `json:"count"`
	LastTimestamp time.Time `json:"lastTimestamp"`
}

type BlockObservation struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

type KnowledgeBase struct {
	Locations       map[string]Location        `json:"locations"`
	Recipes         map[string]RecipeKnowledge `json:"recipes"`
	Entities        map[string]EntityEncounter `json:"entities"`
	CompletedGoals  []CompletedGoal            `json:"completedGoals"`
	FailurePatterns map[string]FailurePattern  `json:"failurePatterns"`
}

type LongTerm struct {
	KnowledgeBase KnowledgeBase `json:"knowledgeBase"`
}

// StructuredMemory is the durable record. Spatial is keyed by rounded
// integer coordinates ("x,y,z").
type StructuredMemory struct {
	ShortTerm ShortTerm                   `json:"shortTerm"`
	LongTerm  LongTerm                    `json:"longTerm"`
	Spatial   map[string]BlockObservation `json:"spatialMemory"`
}

func New() StructuredMemory {
	var m StructuredMemory
	m.normalize()
	return m
}

func (m *StructuredMemory) normalize() {
	kb := &m.LongTerm.KnowledgeBase
	if kb.Locations == nil {
		kb.Locations = make(map[string]Location)
	}
	if kb.Recipes == nil {
		kb.Recipes = make(map[string]RecipeKnowledge)
	}
	if kb.Entities == nil {
		kb.Entities = make(map[string]EntityEncounter)
	}
	if kb.FailurePatterns == nil {
		kb.FailurePatterns = make(map[string]FailurePattern)
	}
	if m.Spatial == nil {
		m.Spatial = make(map[string]BlockObservation)
	}
}

// Clone returns a deep copy safe to hand to readers.
func (m StructuredMemory) Clone() StructuredMemory {
	out := StructuredMemory{
		ShortTerm: ShortTerm{RecentActions: append([]ActionRecord(nil), m.ShortTerm.RecentActions...)},
		LongTerm: LongTerm{KnowledgeBase: KnowledgeBase{
			Locations:       cloneMap(m.LongTerm.KnowledgeBase.Locations),
			Recipes:         cloneMap(m.LongTerm.KnowledgeBase.Recipes),
			Entities:        cloneMap(m.LongTerm.KnowledgeBase.Entities),
			CompletedGoals:  append([]CompletedGoal(nil), m.LongTerm.KnowledgeBase.CompletedGoals...),
			FailurePatterns: cloneMap(m.LongTerm.KnowledgeBase.FailurePatterns),
		}},
		Spatial: cloneMap(m.Spatial),
	}
	out.normalize()
	return out
}

// Summary renders the memory for prompts. Spatial memory is reduced to
// per-block counts.
func (m StructuredMemory) Summary() string {
	var b strings.Builder
	kb := m.LongTerm.KnowledgeBase

	b.WriteString("Recent actions:\n")
	if len(m.ShortTerm.RecentActions) == 0 {
		b.WriteString("- none\n")
	}
	for _, r := range m.ShortTerm.RecentActions {
		fmt.Fprintf(&b, "- %s -> %s\n", r.Action, truncate(r.Result, 160))
	}

	if len(kb.Locations) > 0 {
		b.WriteString("Known locations:\n")
		for _, name := range sortedKeys(kb.Locations) {
			fmt.Fprintf(&b, "- %s at %s\n", name, kb.Locations[name].Position)
		}
	}

	if len(kb.Recipes) > 0 {
		fmt.Fprintf(&b, "Crafted before: %s\n", strings.Join(sortedKeys(kb.Recipes), ", "))
	}

	if len(kb.CompletedGoals) > 0 {
		b.WriteString("Completed goals:\n")
		start := len(kb.CompletedGoals) - 5
		if start < 0 {
			start = 0
		}
		for _, g := range kb.CompletedGoals[start:] {
			fmt.Fprintf(&b, "- %s\n", g.Goal)
		}
	}

	if len(kb.FailurePatterns) > 0 {
		b.WriteString("Known failure patterns:\n")
		for _, key := range sortedKeys(kb.FailurePatterns) {
			fmt.Fprintf(&b, "- %s (%dx)\n", key, kb.FailurePatterns[key].Count)
		}
	}

	if len(m.Spatial) > 0 {
		counts := make(map[string]int)
		for _, obs := range m.Spatial {
			counts[obs.Name]++
		}
		parts := make([]string, 0, len(counts))
		for _, name := range sortedKeys(counts) {
			parts = append(parts, fmt.Sprintf("%s x%d", name, counts[name]))
		}
		fmt.Fprintf(&b, "Blocks remembered nearby: %s\n", strings.Join(parts, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}

func cloneMap[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](in map[string]V) []string {
	out := make([]string, 0, len(in))
	for k := range in {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
