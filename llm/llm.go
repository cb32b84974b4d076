package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	SystemRole    = "system"
	UserRole      = "user"
	AssistantRole = "assistant"

	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

//go:generate mockgen -destination=../agent/planner/llmmocks_test.go -package=planner_test github.com/kardolus/minebot/llm LanguageModel
//go:generate mockgen -destination=../agent/coder/llmmocks_test.go -package=coder_test github.com/kardolus/minebot/llm LanguageModel
type LanguageModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Settings struct {
	Provider string
	APIKey   string
	Model    string
	URL      string
	Timeout  time.Duration
}

func New(s Settings) (LanguageModel, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, fmt.Errorf("llm: missing api key for provider %q", s.Provider)
	}

	switch strings.ToLower(s.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAI(s), nil
	case ProviderCohere:
		return NewCohere(s), nil
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q", s.Provider)
	}
}
