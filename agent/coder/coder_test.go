package coder_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/kardolus/minebot/agent/coder"
	"github.com/kardolus/minebot/agent/skills"
	"github.com/kardolus/minebot/agent/types"
	"github.com/kardolus/minebot/llm"
	"github.com/kardolus/minebot/store"
	"github.com/kardolus/minebot/world"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
	"github.com/traefik/yaegi/interp"
)

func TestUnitCoder(t *testing.T) {
	spec.Run(t, "Testing the coder", testCoder, spec.Report(report.Terminal{}))
}

// interruptingWorld raises the interrupt flag whenever the bot chats.
type interruptingWorld struct {
	*world.Sim
	onChat func()
}

func (w interruptingWorld) Chat(ctx context.Context, text string) error {
	w.onChat()
	return w.Sim.Chat(ctx, text)
}

func fence(body string) string {
	return "```go\n" + body + "\n```"
}

func testCoder(t *testing.T, when spec.G, it spec.S) {
	var (
		mockCtrl *gomock.Controller
		mockLLM  *MockLanguageModel
		dir      string
		files    *store.FileStore
		sim      *world.Sim
		state    types.State
		ctx      context.Context
	)

	answers := func(replies ...string) *[][]llm.Message {
		var seen [][]llm.Message
		n := 0
		mockLLM.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, msgs []llm.Message) (string, error) {
				seen = append(seen, append([]llm.Message(nil), msgs...))
				r := replies[n]
				n++
				return r, nil
			}).Times(len(replies))
		return &seen
	}

	it.Before(func() {
		RegisterTestingT(t)
		mockCtrl = gomock.NewController(t)
		mockLLM = NewMockLanguageModel(mockCtrl)
		dir = t.TempDir()
		files = store.NewFileStore(dir)
		sim = world.NewSim()
		state = types.NewState()
		ctx = context.Background()
	})

	it.After(func() {
		mockCtrl.Finish()
	})

	when("Generate()", func() {
		it("runs a generated procedure against the proxy", func() {
			sim.Give("oak_log", 2)
			seen := answers(fence(`pos := bot.Position()
log(fmt.Sprintf("standing at %v", pos))
fmt.Println("counting")
return "found " + strconv.Itoa(bot.Count("oak_log")) + " logs", nil`))

			subject := coder.New(mockLLM, files)
			out := subject.Generate(ctx, sim, state, "count my logs")
			Expect(out).To(Equal("Generated code finished: found 2 logs"))

			Expect(*seen).To(HaveLen(1))
			first := (*seen)[0]
			Expect(first[0].Role).To(Equal(llm.SystemRole))
			Expect(first[0].Content).To(ContainSubstring("bot.FindBlock(name string, maxDistance float64)"))
			Expect(first[1].Content).To(ContainSubstring("TASK: count my logs"))

			entries, err := os.ReadDir(filepath.Join(dir, coder.ProceduresDir))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(HavePrefix("count_my_logs_"))
			Expect(entries[0].Name()).To(HaveSuffix(".go"))
		})

		it("feeds lint diagnostics back and retries", func() {
			seen := answers(
				fence(`bot.Dig()
return "dug", nil`),
				fence(`bot.Chat("cannot dig from here")
return "asked", nil`),
			)

			out := coder.New(mockLLM, files).Generate(ctx, sim, state, "dig down")
			Expect(out).To(Equal("Generated code finished: asked"))
			Expect(sim.Said()).To(Equal([]string{"cannot dig from here"}))

			second := (*seen)[1]
			last := second[len(second)-1]
			Expect(last.Role).To(Equal(llm.UserRole))
			Expect(last.Content).To(ContainSubstring("undefined reference: bot.Dig"))
		})

		it("asks again when the answer has no code block", func() {
			seen := answers("I would walk to the tree.", "Sure.", "No code today.")

			out := coder.New(mockLLM, files).Generate(ctx, sim, state, "chop a tree")
			Expect(out).To(Equal("Code generation failed after 3 attempts: no fenced code block in the answer"))

			second := (*seen)[1]
			Expect(second[len(second)-1].Role).To(Equal(llm.SystemRole))
			Expect(second[len(second)-1].Content).To(ContainSubstring("did not contain a fenced code block"))
		})

		it("retries when the procedure reports a failure", func() {
			answers(
				fence(`return "failed to find a tree", nil`),
				fence(`return "tree spotted", nil`),
			)

			out := coder.New(mockLLM, files).Generate(ctx, sim, state, "find a tree")
			Expect(out).To(Equal("Generated code finished: tree spotted"))
		})

		it("honours the retry limit", func() {
			answers(fence(`return "error", nil`), fence(`return "error", nil`))

			out := coder.New(mockLLM, files, coder.WithMaxRetries(2)).Generate(ctx, sim, state, "fail")
			Expect(out).To(HavePrefix("Code generation failed after 2 attempts: procedure reported: error"))
		})

		it("retries after a model error", func() {
			gomock.InOrder(
				mockLLM.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("timeout")),
				mockLLM.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(fence(`return "ok", nil`), nil),
			)

			out := coder.New(mockLLM, files).Generate(ctx, sim, state, "anything")
			Expect(out).To(Equal("Generated code finished: ok"))
		})

		it("stops at the next check when interrupted and never retries", func() {
			var subject *coder.Coder
			w := interruptingWorld{Sim: sim, onChat: func() { subject.Interrupt() }}
			answers(fence(`bot.Chat("working")
return "finished", nil`))

			subject = coder.New(mockLLM, files)
			out := subject.Generate(ctx, w, state, "long task")
			Expect(out).To(Equal("Code execution interrupted"))
		})

		it("interrupts a loop running inside a closure", func() {
			var subject *coder.Coder
			w := interruptingWorld{Sim: sim, onChat: func() { subject.Interrupt() }}
			answers(fence(`spin := func() {
	for i := 0; ; i++ {
		if i == 3 {
			bot.Chat("still spinning")
		}
	}
}
spin()
return "finished", nil`))

			subject = coder.New(mockLLM, files)
			done := make(chan string, 1)
			go func() { done <- subject.Generate(ctx, w, state, "spin forever") }()

			var out string
			Eventually(done, "2s").Should(Receive(&out))
			Expect(out).To(Equal("Code execution interrupted"))
		})

		it("interrupts a closure loop when the context ends", func() {
			answers(fence(`spin := func() {
	for {
	}
}
spin()
return "finished", nil`))

			cancellable, cancel := context.WithCancel(ctx)
			subject := coder.New(mockLLM, files)
			done := make(chan string, 1)
			go func() { done <- subject.Generate(cancellable, sim, state, "spin forever") }()
			time.AfterFunc(100*time.Millisecond, cancel)

			var out string
			Eventually(done, "2s").Should(Receive(&out))
			Expect(out).To(Equal("Code execution interrupted"))
		})

		it("fails closed when no sandbox can be built", func() {
			subject := coder.New(mockLLM, files, coder.WithInterpreterFactory(
				func(io.Writer, io.Writer) (*interp.Interpreter, error) {
					return nil, errors.New("no interpreter")
				}))

			out := subject.Generate(ctx, sim, state, "anything")
			Expect(out).To(Equal("Cannot run generated code: sandbox unavailable: no interpreter"))
		})

		it("saves successful procedures as skills when learning", func() {
			repo := skills.NewRepository(files)
			answers(fence(`bot.Chat("hello")
return "greeted", nil`))

			out := coder.New(mockLLM, files, coder.WithSkillLearning(repo)).Generate(ctx, sim, state, "Greet everyone")
			Expect(out).To(Equal("Generated code finished: greeted"))

			learned, ok := repo.Get("learned_greet_everyone")
			Expect(ok).To(BeTrue())
			Expect(learned.Description).To(Equal("Greet everyone"))
			Expect(learned.Code).To(ContainSubstring(`bot.Chat("hello")`))
		})

		it("rejects an empty task", func() {
			Expect(coder.New(mockLLM, files).Generate(ctx, sim, state, " ")).
				To(Equal("Invalid code generation request: missing task description"))
		})
	})

	when("RunSkill()", func() {
		it("binds arguments to parameters and runs the body once", func() {
			skill := skills.Skill{
				Name:       "greet",
				Parameters: []string{"who", "mood"},
				Code:       "bot.Chat(\"hello \" + who)\nreturn \"greeted \" + who + mood, nil",
			}

			out := coder.New(mockLLM, files).RunSkill(ctx, sim, skill, []string{"steve"})
			Expect(out).To(Equal("Skill greet finished: greeted steve"))
			Expect(sim.Said()).To(Equal([]string{"hello steve"}))
		})

		it("reports lint failures without asking the model", func() {
			skill := skills.Skill{Name: "bad", Code: "bot.Attack()"}

			out := coder.New(mockLLM, files).RunSkill(ctx, sim, skill, nil)
			Expect(out).To(ContainSubstring("Skill bad failed: lint failed"))
			Expect(out).To(ContainSubstring("undefined reference: bot.Attack"))
		})
	})

	when("BindArgs()", func() {
		it("quotes values", func() {
			skill := skills.Skill{Parameters: []string{"msg"}}
			Expect(coder.BindArgs(skill, []string{`say "hi"`})).To(Equal("msg := \"say \\\"hi\\\"\"\n_ = msg\n"))
		})
	})
}
