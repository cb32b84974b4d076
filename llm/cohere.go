package llm

import (
	"context"
	"errors"
	"strings"

	co "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

type Cohere struct {
	client *cohereclient.Client
}

var _ LanguageModel = (*Cohere)(nil)

func NewCohere(s Settings) *Cohere {
	return &Cohere{client: cohereclient.NewClient(cohereclient.WithToken(s.APIKey))}
}

// Complete sends the last message as the chat turn and everything before it
// as history.
func (c *Cohere) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("cohere: no messages")
	}

	req := &co.ChatRequest{
		Message:     messages[len(messages)-1].Content,
		ChatHistory: coHistory(messages[:len(messages)-1]),
	}
	res, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Text), nil
}

func coHistory(history []Message) []*co.ChatMessage {
	var chatHistory []*co.ChatMessage
	for _, msg := range history {
		role := co.ChatMessageRoleUser
		switch msg.Role {
		case AssistantRole:
			role = co.ChatMessageRoleChatbot
		case SystemRole:
			role = co.ChatMessageRoleSystem
		}
		chatHistory = append(chatHistory, &co.ChatMessage{
			Role:    role,
			Message: msg.Content,
		})
	}
	return chatHistory
}
