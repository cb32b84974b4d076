package cycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/types"
	"go.uber.org/zap"
)

const DefaultMaxFailureCount = 3

// Analyzer counts failures per "actionType:reason" and patches the plan
// locally once a pattern repeats often enough.
type Analyzer struct {
	patterns  map[string]int
	threshold int
	logger    *zap.SugaredLogger
}

func NewAnalyzer(threshold int, logger *zap.SugaredLogger) *Analyzer {
	if threshold <= 0 {
		threshold = DefaultMaxFailureCount
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyzer{patterns: map[string]int{}, threshold: threshold, logger: logger}
}

// Count returns the current count for a pattern key.
func (a *Analyzer) Count(key string) int {
	return a.patterns[key]
}

func (a *Analyzer) Analyze(_ context.Context, state types.State) (u types.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Errorf("analyze: recovered: %v", rec)
			u = internalError("understand what happened", rec)
		}
	}()

	if state.LastAction == "" || state.LastActionResult == "" {
		return types.Update{}
	}
	actionType := command.Parse(state.LastAction).Name

	if !command.IsFailure(state.LastActionResult) {
		prefix := actionType + ":"
		for key := range a.patterns {
			if strings.HasPrefix(key, prefix) {
				delete(a.patterns, key)
			}
		}
		return types.Update{}
	}

	reason := command.FailureReason(state.LastActionResult)
	key := actionType + ":" + reason
	a.patterns[key]++
	if a.patterns[key] < a.threshold {
		return types.Update{}
	}
	a.patterns[key] = 0

	a.logger.Infof("analyze: %s reached %d failures, adapting", key, a.threshold)
	return a.adapt(state, actionType, reason)
}

func (a *Analyzer) adapt(state types.State, actionType, reason string) types.Update {
	plan := state.CurrentPlan

	switch reason {
	case command.ReasonMarkdown:
		cleaned := command.Clean(state.LastAction)
		if cleaned == "" {
			break
		}
		rest := plan
		if head, ok := state.PlanHead(); ok && command.Same(head, state.LastAction) {
			rest = plan[1:]
		}
		return prepend(cleaned, rest)

	case command.ReasonInsufficient:
		resource, n, ok := command.ResourceNeed(state.LastActionResult)
		if !ok {
			break
		}
		return prepend(command.Format(command.CollectBlock, resource, strconv.Itoa(n)), plan)

	case command.ReasonNotFound, command.ReasonTooFar:
		return prepend(command.LookAround, plan)

	case command.ReasonUnknownAction:
		if len(plan) == 0 {
			break
		}
		rest := plan[1:]
		next := ""
		if len(rest) > 0 {
			next = command.Clean(rest[0])
		}
		return types.Update{CurrentPlan: types.Plan(rest...), LastAction: types.Str(next)}
	}

	return helpUpdate(fmt.Sprintf("I keep failing to %s (%s). Can you help?", actionType, reason))
}

func prepend(step string, plan []string) types.Update {
	next := append([]string{step}, plan...)
	return types.Update{CurrentPlan: types.Plan(next...), LastAction: types.Str(step)}
}
