// Package anthropic converts between mdchat storage types and the Anthropic
// Messages API.
package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/youssefsiam38/mdchat/storage"
)

// ConvertToAnthropicMessages converts stored chat messages to Anthropic
// message parameters. The API requires the first message to come from the
// user, so leading assistant messages are dropped. Blank messages are skipped.
func ConvertToAnthropicMessages(messages []*storage.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		if msg == nil || strings.TrimSpace(msg.Content) == "" {
			continue
		}
		if len(params) == 0 && msg.Role != storage.RoleUser {
			continue
		}

		switch msg.Role {
		case storage.RoleUser:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case storage.RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return params
}

// ExtractText joins the text blocks of a response.
func ExtractText(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// CountTokens estimates the token count of a message.
// This is a rough approximation - use Anthropic's API for accurate counts
func CountTokens(msg *storage.Message) int {
	// Rough estimate: ~4 characters per token, plus role overhead
	return 4 + len(msg.Content)/4
}

// TrimHistory keeps the most recent messages whose estimated size fits in
// budget. The newest message is always kept. A budget <= 0 keeps everything.
func TrimHistory(messages []*storage.Message, budget int) []*storage.Message {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}

	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		total += CountTokens(messages[i])
		if total > budget && start < len(messages) {
			break
		}
		start = i
	}
	return messages[start:]
}

// BuildSystemPrompt creates system prompt blocks
func BuildSystemPrompt(systemPrompt string) []anthropic.TextBlockParam {
	if systemPrompt == "" {
		return nil
	}
	return []anthropic.TextBlockParam{
		{
			Type: "text",
			Text: systemPrompt,
		},
	}
}
