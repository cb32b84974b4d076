package cycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/kardolus/minebot/agent/actions"
	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

type Actor struct {
	world   world.World
	data    *actions.GameData
	actions ActionRunner
	skills  SkillLookup
	coder   CodeRunner
	memory  MemoryRecorder
	logger  *zap.SugaredLogger
}

type ActorOption func(*Actor)

func WithActorLogger(l *zap.SugaredLogger) ActorOption {
	return func(a *Actor) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithGameData(d *actions.GameData) ActorOption {
	return func(a *Actor) {
		if d != nil {
			a.data = d
		}
	}
}

func NewActor(w world.World, runner ActionRunner, skillLookup SkillLookup, coder CodeRunner, mem MemoryRecorder, opts ...ActorOption) *Actor {
	a := &Actor{
		world:   w,
		data:    actions.DefaultGameData(),
		actions: runner,
		skills:  skillLookup,
		coder:   coder,
		memory:  mem,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Act executes the validated action, records it and pops the plan head when
// the action succeeded and matches it.
func (a *Actor) Act(ctx context.Context, state types.State) types.Update {
	action := state.LastAction
	result := a.dispatch(ctx, state)

	a.memory.RecordAction(action, result)
	a.logger.Infof("act: %s -> %s", action, result)

	plan := state.CurrentPlan
	if !command.IsFailure(result) {
		if head, ok := state.PlanHead(); ok {
			if command.Same(action, head) {
				plan = plan[1:]
			} else {
				a.logger.Warnf("act: %q succeeded but the plan expected %q", action, head)
			}
		}
	}

	mem := a.memory.Snapshot()
	return types.Update{
		LastActionResult: types.Str(result),
		CurrentPlan:      types.Plan(plan...),
		Memory:           &mem,
	}
}

func (a *Actor) dispatch(ctx context.Context, state types.State) (result string) {
	cmd := command.Parse(state.LastAction)

	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Errorf("act: recovered: %v", rec)
			result = fmt.Sprintf("Error executing %s: %v", cmd.Name, rec)
		}
	}()

	switch {
	case cmd.Name == "":
		return "Invalid action: empty command"
	case a.actions != nil && a.actions.Has(cmd.Name):
		return a.actions.Execute(ctx, a.world, a.data, cmd.Name, cmd.Args, state)
	case cmd.Name == command.ExecuteSkill:
		return a.runSkill(ctx, cmd.Args)
	case cmd.Name == command.GenerateCode:
		task := strings.TrimSpace(strings.Join(cmd.Args, " "))
		if a.coder == nil {
			return "Cannot run generated code: no code sandbox configured"
		}
		return a.coder.Generate(ctx, a.world, state, task)
	}
	return fmt.Sprintf("Unknown action: %s", cmd.Name)
}

func (a *Actor) runSkill(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Invalid executeSkill: missing skill name"
	}
	if a.skills == nil {
		return fmt.Sprintf("Skill %s not found", args[0])
	}
	skill, ok := a.skills.Get(args[0])
	if !ok {
		return fmt.Sprintf("Skill %s not found", args[0])
	}
	if a.coder == nil {
		return "Cannot run skill: no code sandbox configured"
	}
	return a.coder.RunSkill(ctx, a.world, skill, args[1:])
}
