package service

import (
	"strings"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// BuildContextWindow turns recent history into the turns sent to the model.
// Empty entries and leading assistant turns are dropped, consecutive turns
// of the same role are merged and the window always ends with latest from
// the customer.
func BuildContextWindow(history []model.ChatMessage, latest string) []model.Turn {
	latest = strings.TrimSpace(latest)
	turns := make([]model.Turn, 0, len(history)+1)

	for _, msg := range history {
		text := strings.TrimSpace(msg.Text)
		if text == "" || !msg.Role.Valid() {
			continue
		}
		if len(turns) == 0 && msg.Role == model.RoleAssistant {
			continue
		}
		if n := len(turns); n > 0 && turns[n-1].Role == msg.Role {
			turns[n-1].Text += "\n" + text
			continue
		}
		turns = append(turns, model.Turn{Role: msg.Role, Text: text})
	}

	if latest == "" {
		return turns
	}

	n := len(turns)
	switch {
	case n == 0 || turns[n-1].Role != model.RoleUser:
		turns = append(turns, model.Turn{Role: model.RoleUser, Text: latest})
	case !strings.HasSuffix(turns[n-1].Text, latest):
		turns[n-1].Text += "\n" + latest
	}
	return turns
}

func toLLMMessages(turns []model.Turn) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: t.Text})
	}
	return msgs
}
