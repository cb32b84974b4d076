package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kardolus/minebot/agent/memory"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

// ExploreGoal is the goal set by the explore command.
const ExploreGoal = "explore the surroundings and report anything interesting"

const chatHelp = "Commands: goal <text>, status, memory, inventory, explore, skills, forget <skill>, stop, help"

type StateView interface {
	State() types.State
}

type MemoryView interface {
	Snapshot() memory.StructuredMemory
}

type SkillCatalog interface {
	List() []skills.Skill
	Remove(name string) bool
}

// Interrupter aborts whatever generated code is running.
type Interrupter interface {
	Interrupt()
}

type Chat struct {
	world     world.World
	mailbox   *Mailbox
	state     StateView
	memory    MemoryView
	skills    SkillCatalog
	interrupt Interrupter
	self      string
	logger    *zap.SugaredLogger
}

type ChatOption func(*Chat)

func WithChatLogger(l *zap.SugaredLogger) ChatOption {
	return func(c *Chat) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMemoryView(m MemoryView) ChatOption {
	return func(c *Chat) { c.memory = m }
}

func WithSkillCatalog(s SkillCatalog) ChatOption {
	return func(c *Chat) { c.skills = s }
}

func WithInterrupter(i Interrupter) ChatOption {
	return func(c *Chat) { c.interrupt = i }
}

// WithSelf names the bot so its own messages are ignored.
func WithSelf(username string) ChatOption {
	return func(c *Chat) { c.self = username }
}

func NewChat(w world.World, mailbox *Mailbox, state StateView, opts ...ChatOption) *Chat {
	c := &Chat{
		world:   w,
		mailbox: mailbox,
		state:   state,
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Listen answers chat commands until ctx is done or the event stream closes.
func (c *Chat) Listen(ctx context.Context, events <-chan world.ChatMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			reply, handled := c.Handle(ctx, msg)
			if !handled || reply == "" {
				continue
			}
			if err := c.world.Chat(ctx, reply); err != nil {
				c.logger.Warnf("chat: reply failed: %v", err)
			}
		}
	}
}

// Handle interprets one message. Messages that are not commands are not
// handled and get no reply.
func (c *Chat) Handle(ctx context.Context, msg world.ChatMessage) (string, bool) {
	if c.self != "" && strings.EqualFold(msg.Username, c.self) {
		return "", false
	}

	text := strings.TrimSpace(msg.Message)
	name, rest, _ := strings.Cut(text, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "goal":
		if rest == "" {
			return "Usage: goal <text>", true
		}
		c.logger.Infof("chat: %s set goal %q", msg.Username, rest)
		c.mailbox.Post(GoalDirective(rest))
		return fmt.Sprintf("New goal: %s", rest), true

	case "explore":
		c.mailbox.Post(GoalDirective(ExploreGoal))
		return "Exploring.", true

	case "stop":
		c.logger.Infof("chat: %s stopped the bot", msg.Username)
		if c.interrupt != nil {
			c.interrupt.Interrupt()
		}
		c.mailbox.Post(StopDirective(fmt.Sprintf("Stopped by %s", msg.Username)))
		return "Stopping.", true

	case "status":
		return c.status(), true

	case "inventory":
		return "Inventory: " + c.state.State().InventorySummary(), true

	case "memory":
		return c.memorySummary(), true

	case "skills":
		return c.skillList(), true

	case "forget":
		if rest == "" {
			return "Usage: forget <skill>", true
		}
		if c.skills != nil && c.skills.Remove(rest) {
			return fmt.Sprintf("Forgot skill %s", rest), true
		}
		return fmt.Sprintf("No skill named %s", rest), true

	case "help":
		return chatHelp, true
	}

	return "", false
}

func (c *Chat) status() string {
	s := c.state.State()

	parts := []string{fmt.Sprintf("Goal: %s", s.CurrentGoal)}
	if s.LastAction != "" {
		parts = append(parts, fmt.Sprintf("Last action: %s", s.LastAction))
	}
	if s.LastActionResult != "" {
		parts = append(parts, fmt.Sprintf("Result: %s", s.LastActionResult))
	}
	parts = append(parts, fmt.Sprintf("Plan: %d steps", len(s.CurrentPlan)))
	parts = append(parts, fmt.Sprintf("Health %.0f, food %.0f at %s", s.Surroundings.Health, s.Surroundings.Food, s.Surroundings.Position))
	return strings.Join(parts, ". ")
}

func (c *Chat) memorySummary() string {
	m := c.state.State().Memory
	if c.memory != nil {
		m = c.memory.Snapshot()
	}
	kb := m.LongTerm.KnowledgeBase

	places := make([]string, 0, len(kb.Locations))
	for name := range kb.Locations {
		places = append(places, name)
	}
	sort.Strings(places)

	out := fmt.Sprintf("Memory: %d recent actions, %d completed goals, %d failure patterns, %d blocks mapped",
		len(m.ShortTerm.RecentActions), len(kb.CompletedGoals), len(kb.FailurePatterns), len(m.Spatial))
	if len(places) > 0 {
		out += ". Known places: " + strings.Join(places, ", ")
	}
	return out
}

func (c *Chat) skillList() string {
	if c.skills == nil {
		return "I have not learned any skills yet."
	}
	list := c.skills.List()
	if len(list) == 0 {
		return "I have not learned any skills yet."
	}
	names := make([]string, 0, len(list))
	for _, s := range list {
		names = append(names, s.Name)
	}
	return "Skills: " + strings.Join(names, ", ")
}
