package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/config"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

func msg(role model.Role, text string) model.ChatMessage {
	return model.ChatMessage{Role: role, Text: text}
}

func TestBuildContextWindow(t *testing.T) {
	tests := []struct {
		name    string
		history []model.ChatMessage
		latest  string
		want    []model.Turn
	}{
		{
			name:   "empty history",
			latest: "hola",
			want:   []model.Turn{{Role: model.RoleUser, Text: "hola"}},
		},
		{
			name: "drops leading assistant turns",
			history: []model.ChatMessage{
				msg(model.RoleAssistant, "¡Bienvenida!"),
				msg(model.RoleAssistant, "¿En qué te ayudo?"),
				msg(model.RoleUser, "hola"),
			},
			latest: "hola",
			want:   []model.Turn{{Role: model.RoleUser, Text: "hola"}},
		},
		{
			name: "drops empty entries and merges same role",
			history: []model.ChatMessage{
				msg(model.RoleUser, "hola"),
				msg(model.RoleAssistant, ""),
				msg(model.RoleUser, "¿tienen arena?"),
				msg(model.RoleAssistant, "Sí"),
				msg(model.RoleUser, "precio"),
			},
			latest: "precio",
			want: []model.Turn{
				{Role: model.RoleUser, Text: "hola\n¿tienen arena?"},
				{Role: model.RoleAssistant, Text: "Sí"},
				{Role: model.RoleUser, Text: "precio"},
			},
		},
		{
			name: "appends latest when missing",
			history: []model.ChatMessage{
				msg(model.RoleUser, "hola"),
				msg(model.RoleAssistant, "¡Hola!"),
			},
			latest: "busco comida",
			want: []model.Turn{
				{Role: model.RoleUser, Text: "hola"},
				{Role: model.RoleAssistant, Text: "¡Hola!"},
				{Role: model.RoleUser, Text: "busco comida"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildContextWindow(tt.history, tt.latest))
		})
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$150.000", FormatAmount(150000))
	assert.Equal(t, "$1.250.500", FormatAmount(1250500))
	assert.Equal(t, "$999", FormatAmount(999))
	assert.Equal(t, "$0", FormatAmount(0))
}

func TestBuildSystemInstructionMemory(t *testing.T) {
	b := config.DefaultBusiness()

	empty := BuildSystemInstruction(b, &model.CustomerProfile{DisplayName: "Laura"}, 150000)
	assert.Contains(t, empty, "Aún no tenemos detalles registrados")

	known := BuildSystemInstruction(b, &model.CustomerProfile{
		DisplayName: "Laura",
		Memory:      model.StructuredMemory([]model.PetRecord{{Name: "Zeus", Breed: "husky"}}),
	}, 150000)
	assert.Contains(t, known, `"name":"Zeus"`)
	assert.Contains(t, known, "$150.000 COP")
}
