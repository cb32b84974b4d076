// Package coder turns free-form tasks into generated procedures and runs
// them behind the sandbox proxy: generate, stage, lint, evaluate, execute,
// retry.
package coder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kardolus/minebot/agent/coder/sandbox"
	"github.com/kardolus/minebot/agent/command"
	"github.com/kardolus/minebot/agent/core"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/internal"
	"github.com/kardolus/minebot/llm"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	ProceduresDir     = "procedures"
	maxLogBytes       = 4096
)

var fenced = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n(.*?)```")

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeSucceeded
	outcomeInterrupted
	outcomeUnavailable
)

type attemptResult struct {
	outcome outcome
	output  string
	err     error
}

// SkillAdder stores learned procedures.
type SkillAdder interface {
	Add(s skills.Skill) error
}

type Coder struct {
	model      llm.LanguageModel
	files      store.Store
	logger     *zap.SugaredLogger
	maxRetries int
	learner    SkillAdder
	newInterp  InterpreterFactory
	rules      Rules

	interrupted atomic.Bool
}

type Option func(*Coder)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Coder) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Coder) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithSkillLearning saves every successful generated procedure as a skill.
func WithSkillLearning(a SkillAdder) Option {
	return func(c *Coder) {
		c.learner = a
	}
}

func WithInterpreterFactory(f InterpreterFactory) Option {
	return func(c *Coder) {
		if f != nil {
			c.newInterp = f
		}
	}
}

func New(model llm.LanguageModel, files store.Store, opts ...Option) *Coder {
	c := &Coder{
		model:      model,
		files:      files,
		logger:     zap.NewNop().Sugar(),
		maxRetries: DefaultMaxRetries,
		newInterp:  NewInterpreter,
		rules:      RulesFromExports(sandbox.Methods(), Exports()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interrupt asks the running procedure to stop at its next check.
func (c *Coder) Interrupt() {
	c.interrupted.Store(true)
}

func (c *Coder) Interrupted() bool {
	return c.interrupted.Load()
}

// Generate asks the model for a procedure that performs task and runs it.
// The returned text is the action result.
func (c *Coder) Generate(ctx context.Context, w world.World, state types.State, task string) string {
	task = strings.TrimSpace(task)
	if task == "" {
		return "Invalid code generation request: missing task description"
	}

	stop := c.begin(ctx)
	defer stop()

	if err := c.probe(); err != nil {
		c.logger.Errorf("coder: %v", err)
		return fmt.Sprintf("Cannot run generated code: %v", err)
	}

	messages := []llm.Message{
		{Role: llm.SystemRole, Content: systemPrompt()},
		{Role: llm.UserRole, Content: fmt.Sprintf("STATE:\n%s\n\nTASK: %s", state.Summary(), task)},
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if c.Interrupted() {
			return "Code execution interrupted"
		}

		raw, err := c.model.Complete(ctx, messages)
		if err != nil {
			lastErr = err
			c.logger.Warnf("coder: attempt %d: model error: %v", attempt, err)
			continue
		}
		messages = append(messages, llm.Message{Role: llm.AssistantRole, Content: raw})

		body, ok := ExtractCode(raw)
		if !ok {
			lastErr = errors.New("no fenced code block in the answer")
			messages = append(messages, llm.Message{Role: llm.SystemRole, Content: missingBlockPrompt})
			continue
		}

		res := c.attempt(ctx, w, task, body)
		switch res.outcome {
		case outcomeSucceeded:
			c.learn(task, body)
			return fmt.Sprintf("Generated code finished: %s", res.output)
		case outcomeInterrupted:
			return "Code execution interrupted"
		case outcomeUnavailable:
			return fmt.Sprintf("Cannot run generated code: %v", res.err)
		}

		lastErr = res.err
		c.logger.Infof("coder: attempt %d failed: %v", attempt, res.err)
		messages = append(messages, llm.Message{Role: llm.UserRole, Content: fmt.Sprintf(retryPrompt, res.err)})
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return fmt.Sprintf("Code generation failed after %d attempts: %v", c.maxRetries, lastErr)
}

// RunSkill executes a stored skill once, with args bound positionally to
// its parameters.
func (c *Coder) RunSkill(ctx context.Context, w world.World, skill skills.Skill, args []string) string {
	stop := c.begin(ctx)
	defer stop()

	if err := c.probe(); err != nil {
		c.logger.Errorf("coder: %v", err)
		return fmt.Sprintf("Cannot run skill %s: %v", skill.Name, err)
	}

	res := c.attempt(ctx, w, "skill "+skill.Name, BindArgs(skill, args)+skill.Code)
	switch res.outcome {
	case outcomeSucceeded:
		return fmt.Sprintf("Skill %s finished: %s", skill.Name, res.output)
	case outcomeInterrupted:
		return fmt.Sprintf("Skill %s interrupted", skill.Name)
	case outcomeUnavailable:
		return fmt.Sprintf("Cannot run skill %s: %v", skill.Name, res.err)
	}
	return fmt.Sprintf("Skill %s failed: %v", skill.Name, res.err)
}

// BindArgs declares each skill parameter as a string variable.
func BindArgs(skill skills.Skill, args []string) string {
	bound := skill.Bind(args)
	var b strings.Builder
	for _, p := range skill.Parameters {
		fmt.Fprintf(&b, "%s := %s\n_ = %s\n", p, strconv.Quote(bound[p]), p)
	}
	return b.String()
}

// ExtractCode returns the first fenced block in raw.
func ExtractCode(raw string) (string, bool) {
	m := fenced.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	body := strings.TrimSpace(m[1])
	return body, body != ""
}

func (c *Coder) begin(ctx context.Context) func() bool {
	c.interrupted.Store(false)
	return context.AfterFunc(ctx, c.Interrupt)
}

func (c *Coder) probe() error {
	if _, err := c.newInterp(io.Discard, io.Discard); err != nil {
		return &SandboxUnavailableError{Err: err}
	}
	return nil
}

func (c *Coder) attempt(ctx context.Context, w world.World, task, body string) attemptResult {
	src, err := Stage(body)
	if err != nil {
		return attemptResult{err: fmt.Errorf("staging failed: %w", err)}
	}
	c.persist(task, src)

	if diags := Lint(src, c.rules); len(diags) > 0 {
		return attemptResult{err: fmt.Errorf("lint failed: %s", formatDiagnostics(diags))}
	}

	logs := core.NewOutputBuffer(maxLogBytes)
	i, err := c.newInterp(logs, logs)
	if err != nil {
		return attemptResult{outcome: outcomeUnavailable, err: &SandboxUnavailableError{Err: err}}
	}
	proc, err := load(ctx, i, src)
	if err != nil {
		return attemptResult{err: err}
	}

	bot := sandbox.NewBot(ctx, w, c.Interrupted)
	logFn := func(s string) {
		s = strings.TrimRight(s, "\n")
		logs.AppendString(s)
		c.logger.Debugf("procedure: %s", s)
	}

	out, err := invoke(proc, bot, logFn, &sandbox.VecMath{})
	if c.Interrupted() || errors.Is(err, sandbox.ErrInterrupted) {
		return attemptResult{outcome: outcomeInterrupted}
	}
	if err != nil {
		return attemptResult{err: withLogs(fmt.Errorf("runtime error: %w", err), logs)}
	}
	if err := bot.Err(); err != nil {
		return attemptResult{err: withLogs(fmt.Errorf("world query failed: %w", err), logs)}
	}
	if command.IsFailure(out) {
		return attemptResult{err: withLogs(fmt.Errorf("procedure reported: %s", out), logs)}
	}
	return attemptResult{outcome: outcomeSucceeded, output: out}
}

func withLogs(err error, logs *core.OutputBuffer) error {
	if logs.Len() == 0 {
		return err
	}
	return fmt.Errorf("%w (output: %s)", err, strings.TrimSpace(logs.String()))
}

func (c *Coder) persist(task, src string) {
	if c.files == nil {
		return
	}
	key := fmt.Sprintf("%s/%s.go", ProceduresDir, internal.GenerateUniqueSlug(internal.Slugify(task)+"_"))
	if err := c.files.Set(key, []byte(src)); err != nil {
		c.logger.Warnf("coder: could not save staged source: %v", err)
	}
}

func (c *Coder) learn(task, body string) {
	if c.learner == nil {
		return
	}
	name := internal.Slugify(task)
	if name == "" {
		return
	}
	err := c.learner.Add(skills.Skill{
		Name:        "learned_" + name,
		Description: task,
		Code:        body,
	})
	if err != nil {
		c.logger.Warnf("coder: could not save skill: %v", err)
	}
}

const missingBlockPrompt = "Your answer did not contain a fenced code block. " +
	"Reply with the procedure body inside a single ```go block and nothing else."

const retryPrompt = "The procedure failed: %v\n" +
	"Fix it and reply with the complete corrected body in a single ```go block."

func systemPrompt() string {
	return `You write the body of a Go function that controls a Minecraft bot.
Your code is placed inside:

func Run(bot *sandbox.Bot, log func(string), vec *sandbox.VecMath) (string, error) {
    <your code>
    return "done", nil
}

You may use only:
` + sandbox.Describe + `

Rules:
- Write statements only: no package clause, no imports, no func Run.
- Use log(...) for progress output.
- End with: return "<short result>", nil
- Check bot.Interrupted() in long loops.
- Reply with exactly one ` + "```go" + ` fenced block.`
}
