package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/kardolus/minebot/agent"
	"github.com/kardolus/minebot/agent/actions"
	"github.com/kardolus/minebot/agent/coder"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/agent/cycle"
	"github.com/kardolus/minebot/agent/memory"
	"github.com/kardolus/minebot/agent/planner"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/llm"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

type Deps struct {
	Clock core.Clock
	World world.World
	LLM   llm.LanguageModel
	Files store.Store
}

// Settings carries the tunables. Zero values select each component's
// default.
type Settings struct {
	Username         string
	MemorySize       int
	FailureThreshold int
	MaxFailureCount  int
	CoderMaxRetries  int
	StepLimit        int
	IdlePoll         time.Duration
	Backoff          time.Duration
	IdleNudgePolls   int
	ObserveRadius    int
	EntityRadius     int
	SpatialRadius    int
	LearnSkills      bool
}

// Bot is a fully wired agent.
type Bot struct {
	Agent   *agent.Agent
	Chat    *agent.Chat
	Mailbox *agent.Mailbox
	Memory  *memory.Store
	Skills  *skills.Repository
	Coder   *coder.Coder
	World   world.World
}

func validateDeps(deps Deps) error {
	if deps.Clock == nil {
		return fmt.Errorf("agent deps: Clock is required")
	}
	if deps.World == nil {
		return fmt.Errorf("agent deps: World is required")
	}
	if deps.LLM == nil {
		return fmt.Errorf("agent deps: LLM is required")
	}
	if deps.Files == nil {
		return fmt.Errorf("agent deps: Files is required")
	}
	return nil
}

func New(deps Deps, s Settings, logger *zap.SugaredLogger, baseOpts ...core.BaseOption) (*Bot, error) {
	if err := validateDeps(deps); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mem := memory.NewStore(deps.Files, deps.Clock,
		memory.WithLogger(logger),
		memory.WithShortTermSize(s.MemorySize),
	)
	if err := mem.Load(); err != nil {
		logger.Warnf("memory: starting fresh: %v", err)
	}

	repo := skills.NewRepository(deps.Files, skills.WithLogger(logger))
	if err := repo.Load(); err != nil {
		logger.Warnf("skills: starting empty: %v", err)
	}

	registry := actions.NewDefaultRegistry(actions.WithLogger(logger))

	coderOpts := []coder.Option{coder.WithLogger(logger), coder.WithMaxRetries(s.CoderMaxRetries)}
	if s.LearnSkills {
		coderOpts = append(coderOpts, coder.WithSkillLearning(repo))
	}
	sandbox := coder.New(deps.LLM, deps.Files, coderOpts...)

	plan := planner.New(deps.LLM, registry, repo,
		planner.WithLogger(logger),
		planner.WithRawSink(func(kind, raw string) {
			logger.Debugw("planner response", "kind", kind, "raw", raw)
		}),
	)

	w := deps.World
	announce := func(ctx context.Context, msg string) {
		if err := w.Chat(ctx, msg); err != nil {
			logger.Warnf("chat: %v", err)
		}
	}

	observer := cycle.NewObserver(w, mem,
		cycle.WithObserverLogger(logger),
		cycle.WithRadii(s.ObserveRadius, s.EntityRadius, s.SpatialRadius),
	)
	thinker := cycle.NewThinker(plan, mem,
		cycle.WithThinkerLogger(logger),
		cycle.WithFailureThreshold(s.FailureThreshold),
		cycle.WithAnnouncer(announce),
	)
	validator := cycle.NewValidator(registry, logger)
	actor := cycle.NewActor(w, registry, repo, sandbox, mem, cycle.WithActorLogger(logger))
	analyzer := cycle.NewAnalyzer(s.MaxFailureCount, logger)

	stepLimit := s.StepLimit
	if stepLimit <= 0 {
		stepLimit = cycle.DefaultStepLimit
	}
	graph, err := cycle.NewGraph(cycle.Stages{
		Observe:  observer.Observe,
		Think:    thinker.Think,
		Validate: validator.Validate,
		Act:      actor.Act,
		Analyze:  analyzer.Analyze,
	}, core.NewStepBudget(core.BudgetLimits{MaxSteps: stepLimit}), deps.Clock, baseOpts...)
	if err != nil {
		return nil, err
	}

	mailbox := agent.NewMailbox()
	loop := agent.New(graph, observer.Observe, mailbox, deps.Clock,
		agent.WithIdlePoll(s.IdlePoll),
		agent.WithBackoff(s.Backoff),
		agent.WithIdleNudge(s.IdleNudgePolls),
		agent.WithInitialState(initialState(mem)),
		agent.WithBaseOptions(baseOpts...),
	)

	chat := agent.NewChat(w, mailbox, loop,
		agent.WithChatLogger(logger),
		agent.WithMemoryView(mem),
		agent.WithSkillCatalog(repo),
		agent.WithInterrupter(sandbox),
		agent.WithSelf(s.Username),
	)

	return &Bot{
		Agent:   loop,
		Chat:    chat,
		Mailbox: mailbox,
		Memory:  mem,
		Skills:  repo,
		Coder:   sandbox,
		World:   w,
	}, nil
}

// Run answers chat in the background and drives the agent until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	go b.Chat.Listen(ctx, b.World.ChatEvents())
	return b.Agent.Run(ctx)
}

func initialState(mem *memory.Store) types.State {
	s := types.NewState()
	s.Memory = mem.Snapshot()
	return s
}
