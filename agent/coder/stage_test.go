package coder_test

import (
	"strings"
	"testing"

	"github.com/kardolus/minebot/agent/coder"
	"github.com/kardolus/minebot/agent/coder/sandbox"
	. "github.com/onsi/gomega"
	"github.com/sclevine/spec"
	"github.com/sclevine/spec/report"
)

func TestUnitStageAndLint(t *testing.T) {
	spec.Run(t, "Testing staging and linting", testStageAndLint, spec.Report(report.Terminal{}))
}

func testStageAndLint(t *testing.T, when spec.G, it spec.S) {
	var rules coder.Rules

	it.Before(func() {
		RegisterTestingT(t)
		rules = coder.RulesFromExports(sandbox.Methods(), coder.Exports())
	})

	when("Stage()", func() {
		it("wraps the body in the procedure template", func() {
			src, err := coder.Stage(`return "ok", nil`)
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(ContainSubstring("package procedure"))
			Expect(src).To(ContainSubstring(`"minebot/sandbox"`))
			Expect(src).To(ContainSubstring("func Run(bot *sandbox.Bot, log func(string), vec *sandbox.VecMath) (string, error) {"))
		})

		it("routes printing through log", func() {
			src, err := coder.Stage("fmt.Println(\"hi\", 1)\nfmt.Printf(\"%d\\n\", 2)\nprint(\"x\")")
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(ContainSubstring(`log(fmt.Sprintln("hi", 1))`))
			Expect(src).To(ContainSubstring(`log(fmt.Sprintf("%d\n", 2))`))
			Expect(src).To(ContainSubstring(`log(fmt.Sprint("x"))`))
			Expect(src).NotTo(ContainSubstring("fmt.Println"))
		})

		it("checks for interruption after statements and at the top of loops", func() {
			src, err := coder.Stage("fmt.Println(\"hi\")\nfor i := 0; i < 3; i++ {\n\tprint(i)\n}")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(src, "if bot.Interrupted() {")).To(Equal(4))
			Expect(src).To(ContainSubstring("for i := 0; i < 3; i++ {\n\t\tif bot.Interrupted() {"))
			Expect(src).To(ContainSubstring(`return "interrupted", nil`))
		})

		it("uses checkpoints inside function literals", func() {
			src, err := coder.Stage("f := func() { fmt.Println(\"x\") }\nf()")
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(ContainSubstring(`log(fmt.Sprintln("x"))`))
			Expect(strings.Count(src, "bot.Checkpoint()")).To(Equal(1))
			Expect(strings.Count(src, "if bot.Interrupted() {")).To(Equal(2))
		})

		it("checks at the top of loops inside closures", func() {
			src, err := coder.Stage("spin := func() {\n\tfor {\n\t}\n}\nspin()")
			Expect(err).NotTo(HaveOccurred())
			Expect(src).To(MatchRegexp(`for \{\s+bot\.Checkpoint\(\)\s+\}`))
			Expect(src).NotTo(MatchRegexp(`func\(\) \{[^}]*return "interrupted"`))
		})

		it("does not add a check after return or break", func() {
			src, err := coder.Stage("for {\n\tbreak\n}\nreturn \"x\", nil")
			Expect(err).NotTo(HaveOccurred())
			// loop top + after the loop
			Expect(strings.Count(src, "if bot.Interrupted() {")).To(Equal(2))
		})

		it("rejects empty bodies and syntax errors", func() {
			_, err := coder.Stage("   ")
			Expect(err).To(MatchError("empty procedure body"))

			_, err = coder.Stage("x := (")
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(HavePrefix("syntax error"))
		})
	})

	when("Lint()", func() {
		stageAndLint := func(body string) []string {
			src, err := coder.Stage(body)
			Expect(err).NotTo(HaveOccurred())
			var out []string
			for _, d := range coder.Lint(src, rules) {
				out = append(out, d.Message)
			}
			return out
		}

		it("accepts code that only uses the proxy and allowed packages", func() {
			Expect(stageAndLint(`
pos := bot.Position()
if b, ok := bot.FindBlock("oak_log", 16); ok {
	log(fmt.Sprintf("log at %v, %.1f away", b.Position, vec.Distance(pos, b.Position)))
}
names := []string{}
for _, it := range bot.Inventory() {
	names = append(names, strings.ToUpper(it.Name))
}
sort.Strings(names)
return strconv.Itoa(len(names)) + " stacks", nil`)).To(BeEmpty())
		})

		it("flags identifiers that resolve to nothing", func() {
			Expect(stageAndLint(`os.Exit(1)`)).To(ContainElement("undefined reference: os"))
			Expect(stageAndLint(`x := mineflayer.Dig()
_ = x`)).To(ContainElement("undefined reference: mineflayer"))
		})

		it("flags proxy methods that are not exposed", func() {
			Expect(stageAndLint(`bot.Dig()`)).To(ContainElement("undefined reference: bot.Dig"))
			Expect(stageAndLint(`bot.Attack()`)).To(ContainElement("undefined reference: bot.Attack"))
			Expect(stageAndLint(`vec.Teleport()`)).To(ContainElement("undefined reference: vec.Teleport"))
		})

		it("flags package symbols outside the whitelist", func() {
			Expect(stageAndLint(`fmt.Fprintln(nil, "x")`)).To(ContainElement("undefined reference: fmt.Fprintln"))
		})

		it("follows aliases of the proxy", func() {
			Expect(stageAndLint("b := bot\nb.w.Chat(b.ctx, \"/op me\")")).To(ContainElements(
				"undefined reference: b.w",
				"undefined reference: b.ctx",
			))
			Expect(stageAndLint("var v = vec\nv.Teleport()")).To(ContainElement("undefined reference: v.Teleport"))
			Expect(stageAndLint("b := bot\nc := (b)\n_ = c.err")).To(ContainElement("undefined reference: c.err"))
		})

		it("checks closure parameters declared with sandbox types", func() {
			Expect(stageAndLint("peek := func(b *sandbox.Bot) { b.Chat(\"hi\"); _ = b.w }\npeek(bot)")).To(
				ContainElement("undefined reference: b.w"))
			Expect(stageAndLint("b := bot\n_ = b.Position()")).To(BeEmpty())
		})

		it("rejects goroutines", func() {
			Expect(stageAndLint("go func() {\n\tbot.Chat(\"x\")\n}()")).To(ContainElement("goroutines are not allowed"))
		})

		it("flags selectors on the log function", func() {
			Expect(stageAndLint(`log.Println("x")`)).To(ContainElement("log is a function; call log(...) directly"))
		})

		it("ignores locals that shadow package names", func() {
			Expect(stageAndLint("strings := []string{\"a\"}\n_ = strings")).To(BeEmpty())
		})

		it("rejects imports outside the bindings", func() {
			diags := coder.Lint("package procedure\n\nimport \"os\"\n\nvar _ = os.Args\n", rules)
			Expect(diags).NotTo(BeEmpty())
			Expect(diags[0].Message).To(Equal("import not allowed: os"))
		})

		it("reports syntax errors with lines", func() {
			diags := coder.Lint("package procedure\n\nfunc Run( {\n", rules)
			Expect(diags).NotTo(BeEmpty())
			Expect(diags[0].Message).To(HavePrefix("syntax error"))
			Expect(diags[0].Line).To(BeNumerically(">=", 3))
		})
	})

	when("ExtractCode()", func() {
		it("returns the first fenced block", func() {
			body, ok := coder.ExtractCode("Here you go:\n```go\nreturn \"a\", nil\n```\n```go\nother\n```")
			Expect(ok).To(BeTrue())
			Expect(body).To(Equal(`return "a", nil`))
		})

		it("reports missing or empty blocks", func() {
			_, ok := coder.ExtractCode("just prose")
			Expect(ok).To(BeFalse())
			_, ok = coder.ExtractCode("```go\n\n```")
			Expect(ok).To(BeFalse())
		})
	})
}
