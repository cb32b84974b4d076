// Package actions holds the fixed set of vetted, parametrized game actions.
// Every action reports its outcome as free text; errors never escape.
package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

type Action interface {
	Name() string
	Description() string
	Signature() string
	Execute(ctx context.Context, w world.World, data *GameData, args []string, state types.State) string
}

// Registry maps command names to built-in actions.
type Registry struct {
	actions map[string]Action
	logger  *zap.SugaredLogger
}

type Option func(*Registry)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRegistry(actions []Action, opts ...Option) *Registry {
	r := &Registry{
		actions: make(map[string]Action, len(actions)),
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, a := range actions {
		r.actions[a.Name()] = a
	}
	return r
}

// NewDefaultRegistry registers every built-in action.
func NewDefaultRegistry(opts ...Option) *Registry {
	return NewRegistry(Builtins(), opts...)
}

func Builtins() []Action {
	return []Action{
		collectBlock(),
		moveToPosition(),
		craftItem(),
		attackEntity(),
		placeBlock(),
		sleepInBed(),
		wake(),
		dropItem(),
		askForHelp(),
		lookAround(),
	}
}

func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.actions[name]
	return a, ok
}

func (r *Registry) Has(name string) bool {
	_, ok := r.actions[name]
	return ok
}

// Names returns the registered command names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.actions))
	for name := range r.actions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe renders one "signature - description" line per action.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, name := range r.Names() {
		a := r.actions[name]
		fmt.Fprintf(&b, "- %s - %s\n", a.Signature(), a.Description())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Execute runs the named action. A panic inside the action is converted to
// an error result.
func (r *Registry) Execute(ctx context.Context, w world.World, data *GameData, name string, args []string, state types.State) (result string) {
	a, ok := r.actions[name]
	if !ok {
		return fmt.Sprintf("Unknown action: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorf("action %s panicked: %v", name, rec)
			result = fmt.Sprintf("Error executing %s: %v", name, rec)
		}
	}()

	return a.Execute(ctx, w, data, args, state)
}

// leaf adapts a function to the Action interface. run returns either a
// result or an error; errors become "Failed to ..." results.
type leaf struct {
	name      string
	signature string
	desc      string
	verb      string
	run       func(ctx context.Context, w world.World, data *GameData, args []string, state types.State) (string, error)
}

func (l leaf) Name() string        { return l.name }
func (l leaf) Description() string { return l.desc }
func (l leaf) Signature() string   { return l.signature }

func (l leaf) Execute(ctx context.Context, w world.World, data *GameData, args []string, state types.State) string {
	if data == nil {
		data = DefaultGameData()
	}
	out, err := l.run(ctx, w, data, args, state)
	if err != nil {
		return fmt.Sprintf("Failed to %s: %v", l.verb, err)
	}
	return out
}

func liveInventory(ctx context.Context, w world.World) (map[string]int, error) {
	stacks, err := w.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	return world.Totals(stacks), nil
}
