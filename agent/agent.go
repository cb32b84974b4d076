// Package agent runs the outer loop around the observe/think/act graph and
// exposes the chat command surface that steers it.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/agent/cycle"
	"github.com/kardolus/minebot/agent/types"
)

const (
	DefaultIdlePoll = time.Second
	DefaultBackoff  = 5 * time.Second
)

//go:generate mockgen -destination=graphmocks_test.go -package=agent_test github.com/kardolus/minebot/agent Graph
type Graph interface {
	Run(ctx context.Context, state types.State) (types.State, error)
}

// Agent owns the shared state between graph runs. Chat never writes the
// state directly; it posts to the mailbox, which the loop drains once per
// poll.
type Agent struct {
	core.Base

	graph   Graph
	observe cycle.Stage
	mailbox *Mailbox

	idlePoll   time.Duration
	backoff    time.Duration
	nudgeEvery int
	idlePolls  int

	mu    sync.RWMutex
	state types.State
}

type Option func(*Agent)

func WithIdlePoll(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.idlePoll = d
		}
	}
}

func WithBackoff(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// WithIdleNudge runs the graph once every n idle polls so the bot can ask
// for instructions and eventually wander off. Zero keeps the loop silent.
func WithIdleNudge(n int) Option {
	return func(a *Agent) {
		if n >= 0 {
			a.nudgeEvery = n
		}
	}
}

func WithInitialState(s types.State) Option {
	return func(a *Agent) {
		a.state = s.Clone()
	}
}

func WithBaseOptions(opts ...core.BaseOption) Option {
	return func(a *Agent) {
		for _, o := range opts {
			o(&a.Base)
		}
	}
}

func New(graph Graph, observe cycle.Stage, mailbox *Mailbox, clock core.Clock, opts ...Option) *Agent {
	a := &Agent{
		Base:     core.NewBase(clock),
		graph:    graph,
		observe:  observe,
		mailbox:  mailbox,
		idlePoll: DefaultIdlePoll,
		backoff:  DefaultBackoff,
		state:    types.NewState(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns a copy of the state as of the last completed graph run.
func (a *Agent) State() types.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

func (a *Agent) setState(s types.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
}

// Run observes once and then loops until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	defer a.Sync()

	state := a.State()
	a.setState(state.Merge(a.observe(ctx, state)))
	a.Out.Infof("Ready. Goal: %s", a.State().CurrentGoal)

	for {
		if err := a.Tick(ctx); err != nil {
			return err
		}
	}
}

// Tick is one outer iteration: apply any pending directive, then either wait
// while idle or run the graph once. Only context errors are returned; graph
// failures are recorded in the state and followed by a backoff.
func (a *Agent) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state := a.State()
	if d, ok := a.mailbox.Take(); ok {
		state = d.Apply(state)
		a.setState(state)
		a.idlePolls = 0
		if d.Goal != nil {
			a.LogGoal(state.CurrentGoal)
		}
	}

	if !a.runnable(state) {
		return a.Clock.Sleep(ctx, a.idlePoll)
	}

	final, err := a.runGraph(ctx, state)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			a.setState(final)
			return ctxErr
		}
		a.Out.Warnf("Graph run failed: %v", err)
		a.Debug.Errorw("graph run failed", "goal", final.CurrentGoal, "error", err.Error())
		final.LastActionResult = fmt.Sprintf("Error: %v", err)
		a.setState(final)
		return a.Clock.Sleep(ctx, a.backoff)
	}

	a.setState(final)
	return nil
}

func (a *Agent) runGraph(ctx context.Context, state types.State) (final types.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			final, err = state, fmt.Errorf("graph panicked: %v", r)
		}
	}()
	return a.graph.Run(ctx, state)
}

func (a *Agent) runnable(state types.State) bool {
	if !state.Idle() {
		return true
	}
	if head, ok := state.PlanHead(); ok && command.Parse(head).Name != command.AskForHelp {
		return true
	}

	a.idlePolls++
	if a.nudgeEvery > 0 && a.idlePolls >= a.nudgeEvery {
		a.idlePolls = 0
		return true
	}
	return false
}
