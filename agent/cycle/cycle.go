// Package cycle implements the observe, think, validate, act and
// result-analysis stages and the graph that drives them. Each stage reads the
// full state and returns a partial update.
package cycle

import (
	"context"
	"fmt"

	"github.com/kardolus/minebot/agent/actions"
	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/memory"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
)

const (
	NodeObserve  = "observe"
	NodeThink    = "think"
	NodeValidate = "validate"
	NodeAct      = "act"
	NodeAnalyze  = "resultAnalysis"
)

// FreshGoalPrefix starts the result recorded when a new goal arrives.
const FreshGoalPrefix = "New goal received"

// Stage is one node of the graph.
type Stage func(ctx context.Context, state types.State) types.Update

// MemoryRecorder is the slice of the memory store the stages use.
type MemoryRecorder interface {
	Snapshot() memory.StructuredMemory
	RecordAction(action, result string)
	RecordBlocks(blocks []world.Block)
	CompleteGoal(goal string)
}

type SkillLookup interface {
	Get(name string) (skills.Skill, bool)
}

type ActionRunner interface {
	Has(name string) bool
	Execute(ctx context.Context, w world.World, data *actions.GameData, name string, args []string, state types.State) string
}

type CodeRunner interface {
	Generate(ctx context.Context, w world.World, state types.State, task string) string
	RunSkill(ctx context.Context, w world.World, skill skills.Skill, args []string) string
}

// Announcer delivers a message to players outside of the act stage.
type Announcer func(ctx context.Context, message string)

func helpUpdate(message string) types.Update {
	help := command.HelpRequest(message)
	return types.Update{
		CurrentPlan: types.Plan(help),
		LastAction:  types.Str(help),
	}
}

func internalError(stage string, rec any) types.Update {
	u := helpUpdate(fmt.Sprintf("Something went wrong while I was trying to %s. Can you help?", stage))
	u.LastActionResult = types.Str(fmt.Sprintf("Internal error in %s: %v", stage, rec))
	return u
}
