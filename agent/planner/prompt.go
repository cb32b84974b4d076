package planner

import (
	"fmt"
	"strings"

	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/types"
)

const preamble = `You are the planning module of an autonomous Minecraft bot.

GAME KNOWLEDGE:
- Crafting chain: log -> planks (1 log = 4 planks) -> sticks (2 planks = 4 sticks) -> tools.
- crafting_table needs 4 planks. Tools, furnace and chest need a crafting_table within reach.
- Tool tiers: wooden < stone < iron. Stone needs a pickaxe; iron ore needs a stone pickaxe or better.
- furnace needs 8 cobblestone. torch needs 1 coal and 1 stick.

PLANNING POLICY:
- Check the inventory before gathering; never collect what is already held.
- Follow the chain log -> planks -> sticks -> tool. Do not skip steps.
- Place or find a crafting_table before any table-only recipe.
- To go up or down, dig or pillar instead of chaining many short moves.
- If the same step keeps failing, use askForHelp instead of retrying it.
- When health or food is critically low, deal with survival first.

OUTPUT RULES:
- One command per line, in execution order.
- Format: <commandName> <arg> <arg> ... ; quote arguments that contain spaces.
- No prose, no explanations, no markdown.
- Use %s <skillName> <args...> to run a saved skill.
- Use %s "<task description>" only when no action or skill fits.
- Use %s when the goal is already achieved.`

func (p *LLMPlanner) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, preamble, command.ExecuteSkill, command.GenerateCode, command.GoalComplete)

	b.WriteString("\n\nAVAILABLE ACTIONS:\n")
	if p.actions != nil {
		b.WriteString(p.actions.Describe())
	}

	var skillLines []string
	if p.skills != nil {
		for _, s := range p.skills.List() {
			skillLines = append(skillLines, fmt.Sprintf("- %s - %s", s.Signature(), s.Description))
		}
	}
	b.WriteString("\n\nSAVED SKILLS:\n")
	if len(skillLines) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(skillLines, "\n"))
	}
	return b.String()
}

func planRequest(state types.State, goal string) string {
	return fmt.Sprintf(`CURRENT STATE:
%s

MEMORY:
%s

GOAL: %s

Return the full plan, one command per line.`, state.Summary(), state.Memory.Summary(), goal)
}

func nextActionRequest(state types.State) string {
	return fmt.Sprintf(`CURRENT STATE:
%s

MEMORY:
%s

Return exactly ONE command for the next step toward the goal. No explanation.`, state.Summary(), state.Memory.Summary())
}
