package cycle

import (
	"context"
	"fmt"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/types"
	"go.uber.org/zap"
)

// Validator rejects commands no stage can dispatch. Skill and code
// generation requests pass; Act resolves them.
type Validator struct {
	actions ActionRunner
	logger  *zap.SugaredLogger
}

func NewValidator(actions ActionRunner, logger *zap.SugaredLogger) *Validator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Validator{actions: actions, logger: logger}
}

func (v *Validator) Known(name string) bool {
	switch name {
	case command.ExecuteSkill, command.GenerateCode:
		return true
	}
	return v.actions != nil && v.actions.Has(name)
}

func (v *Validator) Validate(_ context.Context, state types.State) (u types.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			v.logger.Errorf("validate: recovered: %v", rec)
			u = internalError("check my next action", rec)
		}
	}()

	cleaned := command.Clean(state.LastAction)
	tokens := command.Tokenize(cleaned)
	if len(tokens) == 0 {
		u = helpUpdate("I could not decide on an action. What should I do?")
		u.LastActionResult = types.Str("Invalid action: empty command")
		return u
	}

	if !v.Known(tokens[0]) {
		v.logger.Warnf("validate: rejecting %q", cleaned)
		help := command.HelpRequest(fmt.Sprintf("I don't know how to %q. Can you help?", cleaned))

		// The rejected step is replaced so the plan does not keep offering it.
		rest := state.CurrentPlan
		if head, ok := state.PlanHead(); ok && command.Same(head, cleaned) {
			rest = rest[1:]
		}
		return types.Update{
			CurrentPlan:      types.Plan(append([]string{help}, rest...)...),
			LastAction:       types.Str(help),
			LastActionResult: types.Str(fmt.Sprintf("Invalid action %q: unknown action %s", cleaned, tokens[0])),
		}
	}

	return types.Update{LastAction: types.Str(cleaned)}
}
