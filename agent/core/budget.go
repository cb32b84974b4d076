package core

import (
	"fmt"
	"time"
)

type Budget interface {
	Start(now time.Time)
	AllowStep(node string, now time.Time) error
	Snapshot(now time.Time) BudgetSnapshot
}

const (
	BudgetKindSteps    = "steps"
	BudgetKindWallTime = "wall_time"
)

type BudgetLimits struct {
	MaxSteps    int
	MaxWallTime time.Duration
}

type BudgetSnapshot struct {
	StartedAt time.Time
	Elapsed   time.Duration
	Limits    BudgetLimits
	StepsUsed int
	LastNode  string
}

// StepBudget bounds a single graph run. Every node invocation costs one step.
type StepBudget struct {
	limits BudgetLimits

	started   bool
	startedAt time.Time
	stepsUsed int
	lastNode  string
}

func NewStepBudget(limits BudgetLimits) *StepBudget {
	return &StepBudget{limits: limits}
}

func (b *StepBudget) Start(now time.Time) {
	b.started = true
	b.startedAt = now
	b.stepsUsed = 0
	b.lastNode = ""
}

func (b *StepBudget) Snapshot(now time.Time) BudgetSnapshot {
	b.ensureStarted(now)

	elapsed := now.Sub(b.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	return BudgetSnapshot{
		StartedAt: b.startedAt,
		Elapsed:   elapsed,
		Limits:    b.limits,
		StepsUsed: b.stepsUsed,
		LastNode:  b.lastNode,
	}
}

func (b *StepBudget) AllowStep(node string, now time.Time) error {
	b.ensureStarted(now)

	if b.limits.MaxWallTime > 0 {
		elapsed := now.Sub(b.startedAt)
		if elapsed > b.limits.MaxWallTime {
			return BudgetExceededError{
				Kind:    BudgetKindWallTime,
				LimitD:  b.limits.MaxWallTime,
				UsedD:   elapsed,
				Node:    node,
				Message: "wall time budget exceeded",
			}
		}
	}

	if b.limits.MaxSteps > 0 && b.stepsUsed+1 > b.limits.MaxSteps {
		return BudgetExceededError{
			Kind:    BudgetKindSteps,
			Limit:   b.limits.MaxSteps,
			Used:    b.stepsUsed,
			Node:    node,
			Message: "step limit reached",
		}
	}

	b.stepsUsed++
	b.lastNode = node
	return nil
}

func (b *StepBudget) ensureStarted(now time.Time) {
	if b.started {
		return
	}
	b.Start(now)
}

// BudgetExceededError is returned when a graph run hits its step or wall
// time limit.
type BudgetExceededError struct {
	Kind    string
	Limit   int
	Used    int
	LimitD  time.Duration
	UsedD   time.Duration
	Node    string
	Message string
}

func (e BudgetExceededError) Error() string {
	switch e.Kind {
	case BudgetKindWallTime:
		return fmt.Sprintf("%s before %s: limit=%s used=%s", e.Message, e.Node, e.LimitD, e.UsedD)
	default:
		return fmt.Sprintf("%s before %s: limit=%d used=%d", e.Message, e.Node, e.Limit, e.Used)
	}
}
