package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/llm"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=../cycle/plannermocks_test.go -package=cycle_test github.com/kardolus/minebot/agent/planner Planner
type Planner interface {
	// CreatePlan returns the ordered action commands for goal. An empty
	// slice means the model produced nothing usable.
	CreatePlan(ctx context.Context, state types.State, goal string) ([]string, error)
	// DecideNextAction returns one command, or "" when nothing usable came
	// back.
	DecideNextAction(ctx context.Context, state types.State) (string, error)
}

// ActionCatalog describes the built-in actions to the model.
type ActionCatalog interface {
	Describe() string
}

type SkillCatalog interface {
	List() []skills.Skill
}

type LLMPlanner struct {
	model   llm.LanguageModel
	actions ActionCatalog
	skills  SkillCatalog
	logger  *zap.SugaredLogger
	onRaw   func(kind, raw string)
}

type Option func(*LLMPlanner)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *LLMPlanner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRawSink receives every raw model answer, tagged "plan" or "next".
func WithRawSink(fn func(kind, raw string)) Option {
	return func(p *LLMPlanner) {
		p.onRaw = fn
	}
}

func New(model llm.LanguageModel, actions ActionCatalog, skillCatalog SkillCatalog, opts ...Option) *LLMPlanner {
	p := &LLMPlanner{
		model:   model,
		actions: actions,
		skills:  skillCatalog,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ Planner = (*LLMPlanner)(nil)

func (p *LLMPlanner) CreatePlan(ctx context.Context, state types.State, goal string) ([]string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, errors.New("missing goal")
	}

	raw, err := p.model.Complete(ctx, []llm.Message{
		{Role: llm.SystemRole, Content: p.systemPrompt()},
		{Role: llm.UserRole, Content: planRequest(state, goal)},
	})
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	p.sink("plan", raw)

	steps := ParsePlan(raw)
	p.logger.Debugf("planner: goal=%q steps=%d", goal, len(steps))
	return steps, nil
}

func (p *LLMPlanner) DecideNextAction(ctx context.Context, state types.State) (string, error) {
	raw, err := p.model.Complete(ctx, []llm.Message{
		{Role: llm.SystemRole, Content: p.systemPrompt()},
		{Role: llm.UserRole, Content: nextActionRequest(state)},
	})
	if err != nil {
		return "", fmt.Errorf("decide next action: %w", err)
	}
	p.sink("next", raw)

	steps := ParsePlan(raw)
	if len(steps) == 0 {
		return "", nil
	}
	return steps[0], nil
}

func (p *LLMPlanner) sink(kind, raw string) {
	if p.onRaw != nil {
		p.onRaw(kind, raw)
	}
}

var commentPrefixes = []string{"#", "//", "--", ";"}

// ParsePlan splits a model answer into action commands. Fences, numbering,
// blank lines and comment lines are dropped.
func ParsePlan(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "```") || isComment(trimmed) {
			continue
		}
		step := command.Clean(trimmed)
		if step == "" || isComment(step) {
			continue
		}
		out = append(out, step)
	}
	return out
}

func isComment(s string) bool {
	for _, p := range commentPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
