package cycle

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/planner"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

const (
	DefaultFailureThreshold  = 2
	DefaultIdleHelpThreshold = 2

	exploreMin = 5
	exploreMax = 15
)

// GoalRecorder records goals the critic found complete.
type GoalRecorder interface {
	CompleteGoal(goal string)
}

// Thinker decides the next action. Its failure and idle counters live across
// cycles and graph runs; the graph is driven from a single goroutine.
type Thinker struct {
	planner  planner.Planner
	goals    GoalRecorder
	announce Announcer
	rng      *rand.Rand
	logger   *zap.SugaredLogger

	failureThreshold  int
	idleHelpThreshold int

	lastFailedAction string
	failureCount     int
	idleHelpCount    int
}

type ThinkerOption func(*Thinker)

func WithThinkerLogger(l *zap.SugaredLogger) ThinkerOption {
	return func(t *Thinker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithFailureThreshold(n int) ThinkerOption {
	return func(t *Thinker) {
		if n > 0 {
			t.failureThreshold = n
		}
	}
}

func WithRand(r *rand.Rand) ThinkerOption {
	return func(t *Thinker) {
		if r != nil {
			t.rng = r
		}
	}
}

// WithAnnouncer receives the help-requests that end a graph run, which the
// act stage never executes.
func WithAnnouncer(a Announcer) ThinkerOption {
	return func(t *Thinker) {
		t.announce = a
	}
}

func NewThinker(p planner.Planner, goals GoalRecorder, opts ...ThinkerOption) *Thinker {
	t := &Thinker{
		planner:           p,
		goals:             goals,
		rng:               rand.New(rand.NewSource(1)),
		logger:            zap.NewNop().Sugar(),
		failureThreshold:  DefaultFailureThreshold,
		idleHelpThreshold: DefaultIdleHelpThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Thinker) Think(ctx context.Context, state types.State) (u types.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			t.logger.Errorf("think: recovered: %v", rec)
			u = internalError("decide what to do next", rec)
		}
	}()

	if state.Idle() {
		return t.idle(ctx, state)
	}
	t.idleHelpCount = 0

	if GoalSatisfied(state.CurrentGoal, state.Inventory) {
		return t.complete(ctx, state.CurrentGoal)
	}

	replan, failing := t.trackFailure(state)
	if len(state.CurrentPlan) == 0 {
		replan = true
	}

	if !replan {
		head, _ := state.PlanHead()
		if command.Parse(head).Name == command.GoalComplete {
			return t.complete(ctx, state.CurrentGoal)
		}
		return types.Update{LastAction: types.Str(head)}
	}

	return t.replan(ctx, state, failing)
}

// trackFailure updates the repeated-failure counter and reports whether the
// threshold forces a replan, along with the failing action.
func (t *Thinker) trackFailure(state types.State) (bool, string) {
	if state.LastAction == "" || state.LastActionResult == "" || !command.IsFailure(state.LastActionResult) {
		t.lastFailedAction = ""
		t.failureCount = 0
		return false, ""
	}

	if !command.Same(state.LastAction, t.lastFailedAction) {
		t.lastFailedAction = state.LastAction
		t.failureCount = 1
	} else {
		t.failureCount++
	}

	if t.failureCount < t.failureThreshold {
		return false, ""
	}

	failing := t.lastFailedAction
	t.logger.Infof("think: %q failed %d times, replanning", failing, t.failureCount)
	t.failureCount = 0
	t.lastFailedAction = ""
	return true, failing
}

func (t *Thinker) replan(ctx context.Context, state types.State, failing string) types.Update {
	steps, err := t.planner.CreatePlan(ctx, state, state.CurrentGoal)
	if err != nil {
		t.logger.Warnf("think: planner: %v", err)
		return t.fallback(failing)
	}

	if len(steps) == 0 {
		next, err := t.planner.DecideNextAction(ctx, state)
		if err != nil {
			t.logger.Warnf("think: planner: %v", err)
		}
		if next == "" || (failing != "" && command.Same(next, failing)) {
			return t.fallback(failing)
		}
		return types.Update{CurrentPlan: types.Plan(), LastAction: types.Str(next)}
	}

	if command.Parse(steps[0]).Name == command.GoalComplete {
		return t.complete(ctx, state.CurrentGoal)
	}
	if failing != "" && command.Same(steps[0], failing) {
		return helpUpdate(fmt.Sprintf("I keep failing at %q (%s). Can you help?", command.Clean(failing), state.LastActionResult))
	}
	return types.Update{CurrentPlan: types.Plan(steps...), LastAction: types.Str(steps[0])}
}

// fallback is the safe default when planning produced nothing.
func (t *Thinker) fallback(failing string) types.Update {
	if failing != "" && command.Parse(failing).Name == command.LookAround {
		return helpUpdate("I could not come up with a plan. What should I do?")
	}
	return types.Update{CurrentPlan: types.Plan(), LastAction: types.Str(command.LookAround)}
}

func (t *Thinker) idle(ctx context.Context, state types.State) types.Update {
	if head, ok := state.PlanHead(); ok && command.Parse(head).Name != command.AskForHelp {
		return types.Update{LastAction: types.Str(head)}
	}

	if t.idleHelpCount >= t.idleHelpThreshold {
		t.idleHelpCount = 0
		move := t.explorationStep(state.Surroundings.Position)
		t.logger.Infof("think: no instructions after %d requests, exploring", t.idleHelpThreshold)
		return types.Update{
			CurrentPlan: types.Plan(move, command.LookAround),
			LastAction:  types.Str(move),
		}
	}

	t.idleHelpCount++
	msg := "I have no goal right now. What should I do?"
	t.say(ctx, msg)
	return helpUpdate(msg)
}

func (t *Thinker) complete(ctx context.Context, goal string) types.Update {
	t.logger.Infof("think: goal complete: %s", goal)
	if t.goals != nil {
		t.goals.CompleteGoal(goal)
	}
	t.lastFailedAction = ""
	t.failureCount = 0

	msg := fmt.Sprintf("Goal complete: %s. What should I do next?", goal)
	t.say(ctx, msg)

	u := helpUpdate(msg)
	u.CurrentGoal = types.Str(types.IdleGoal)
	u.CurrentPlan = types.Plan()
	// Overwrites any fresh-goal result so ShouldEnd stops the run here.
	u.LastActionResult = types.Str(fmt.Sprintf("Goal complete: %s", goal))
	return u
}

func (t *Thinker) say(ctx context.Context, msg string) {
	if t.announce != nil {
		t.announce(ctx, msg)
	}
}

func (t *Thinker) explorationStep(from world.Vec3) string {
	base := from.Floored()
	target := base.Add(world.Vec3{X: t.offset(), Z: t.offset()})
	return command.Format(command.MoveToPosition, coord(target.X), coord(target.Y), coord(target.Z))
}

func (t *Thinker) offset() float64 {
	d := exploreMin + t.rng.Intn(exploreMax-exploreMin+1)
	if t.rng.Intn(2) == 0 {
		d = -d
	}
	return float64(d)
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
