package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/agent/types"
)

const DefaultStepLimit = 300

type Stages struct {
	Observe  Stage
	Think    Stage
	Validate Stage
	Act      Stage
	Analyze  Stage
}

// Graph runs observe -> think -> validate -> act -> resultAnalysis -> observe
// until think decides to stop, the budget runs out or ctx is done.
type Graph struct {
	core.Base

	stages Stages
	budget core.Budget
}

func NewGraph(stages Stages, budget core.Budget, clock core.Clock, opts ...core.BaseOption) (*Graph, error) {
	if stages.Observe == nil || stages.Think == nil || stages.Validate == nil || stages.Act == nil || stages.Analyze == nil {
		return nil, errors.New("graph: every stage is required")
	}
	if budget == nil {
		budget = core.NewStepBudget(core.BudgetLimits{MaxSteps: DefaultStepLimit})
	}
	return &Graph{
		Base:   core.NewBase(clock, opts...),
		stages: stages,
		budget: budget,
	}, nil
}

// ShouldEnd is the only conditional edge: a help-request while idle ends the
// run unless a goal just arrived.
func ShouldEnd(state types.State) bool {
	return command.Parse(state.LastAction).Name == command.AskForHelp &&
		state.Idle() &&
		!strings.HasPrefix(state.LastActionResult, FreshGoalPrefix)
}

// Run executes one graph run starting at observe and returns the final
// state. On error the state reached so far is returned with it. A panic in
// any stage ends the run with an error.
func (g *Graph) Run(ctx context.Context, state types.State) (out types.State, err error) {
	start := g.StartTimer()
	defer g.FinishTimer("graph run", start)

	node := NodeObserve
	defer func() {
		if r := recover(); r != nil {
			g.Debug.Errorw("stage panicked", "node", node, "panic", fmt.Sprint(r))
			out, err = state, fmt.Errorf("panic in %s: %v", node, r)
		}
	}()

	g.budget.Start(g.Clock.Now())

	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		if err := g.budget.AllowStep(node, g.Clock.Now()); err != nil {
			g.Debug.Warnw("budget exceeded", "node", node, "error", err.Error())
			return state, err
		}

		switch node {
		case NodeObserve:
			state = state.Merge(g.stages.Observe(ctx, state))
			node = NodeThink
		case NodeThink:
			state = state.Merge(g.stages.Think(ctx, state))
			g.Debug.Infow("think", "goal", state.CurrentGoal, "action", state.LastAction, "plan", state.CurrentPlan)
			if ShouldEnd(state) {
				g.Out.Infof("Waiting: %s", state.LastAction)
				return state, nil
			}
			node = NodeValidate
		case NodeValidate:
			state = state.Merge(g.stages.Validate(ctx, state))
			node = NodeAct
		case NodeAct:
			state = state.Merge(g.stages.Act(ctx, state))
			g.Out.Infof("%s -> %s", state.LastAction, state.LastActionResult)
			node = NodeAnalyze
		case NodeAnalyze:
			state = state.Merge(g.stages.Analyze(ctx, state))
			node = NodeObserve
		}
	}
}
