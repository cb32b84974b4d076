// Package command implements the textual action grammar shared by the
// planner output, validation and dispatch:
//
//	<commandName> <arg> "quoted arg" ...
//
// Both sides of the pipeline must use the same cleaning and tokenizing rules.
package command

import (
	"regexp"
	"strings"
)

const (
	AskForHelp     = "askForHelp"
	ExecuteSkill   = "executeSkill"
	GenerateCode   = "generateCode"
	LookAround     = "lookAround"
	MoveToPosition = "moveToPosition"
	CollectBlock   = "collectBlock"
	CraftItem      = "craftItem"
	AttackEntity   = "attackEntity"
	GoalComplete   = "goalComplete"
)

var (
	fenceWithTag = regexp.MustCompile("```[A-Za-z0-9_+-]*[ \t]*\r?\n")
	numbering    = regexp.MustCompile(`(?i)^(?:\d+\s*[.):]|[-*•]|step\s*\d+\s*[.):-]?)\s*`)
	token        = regexp.MustCompile(`"([^"]*)"|(\S+)`)
)

type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return Format(c.Name, c.Args...)
}

// Clean strips code fences, inline backticks and list numbering and returns
// the first non-empty line.
func Clean(s string) string {
	s = fenceWithTag.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "```", "\n")

	for _, line := range strings.Split(s, "\n") {
		line = numbering.ReplaceAllString(strings.TrimSpace(line), "")
		line = strings.TrimSpace(strings.Trim(line, "`"))
		if line != "" {
			return line
		}
	}
	return ""
}

// Tokenize splits on whitespace while keeping double-quoted spans together.
// Quotes are removed from the returned tokens.
func Tokenize(s string) []string {
	var out []string
	for _, m := range token.FindAllStringSubmatch(s, -1) {
		if m[2] != "" {
			out = append(out, m[2])
			continue
		}
		out = append(out, m[1])
	}
	return out
}

func Parse(s string) Command {
	tokens := Tokenize(Clean(s))
	if len(tokens) == 0 {
		return Command{}
	}
	return Command{Name: tokens[0], Args: tokens[1:]}
}

// Format renders a command, quoting arguments that contain whitespace or are
// empty.
func Format(name string, args ...string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		if a == "" || strings.ContainsAny(a, " \t\n") {
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(a, `"`, `'`))
			b.WriteByte('"')
			continue
		}
		b.WriteString(a)
	}
	return b.String()
}

// Same reports whether two action strings denote the same command after
// cleaning.
func Same(a, b string) bool {
	ca, cb := Clean(a), Clean(b)
	return ca != "" && ca == cb
}

func HelpRequest(message string) string {
	return Format(AskForHelp, message)
}
