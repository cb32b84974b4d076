package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kardolus/minebot/agent"
	"github.com/kardolus/minebot/internal"
	"github.com/kardolus/minebot/world"
)

const (
	consoleUser   = "console"
	historyFile   = "history"
	consolePrompt = "minebot> "
)

// runConsole feeds terminal lines to the chat handler as if a player named
// "console" had typed them. It returns when ctx ends or the user exits.
func runConsole(ctx context.Context, chat *agent.Chat, out io.Writer) error {
	cfg := &readline.Config{
		Prompt:          consolePrompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	}
	if home, err := internal.GetConfigHome(); err == nil {
		cfg.HistoryFile = filepath.Join(home, historyFile)
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return err
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		reply, handled := chat.Handle(ctx, world.ChatMessage{Username: consoleUser, Message: line})
		if !handled {
			reply = "Unknown command. Type help for the list."
		}
		fmt.Fprintln(out, reply)
	}
}
