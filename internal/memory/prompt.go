package memory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

const extractionInstruction = `You maintain the long-term memory a pet-store sales assistant keeps about one customer and their pets.

You receive the CURRENT MEMORY as a JSON array of pet records, the recent CONVERSATION and the LATEST CUSTOMER MESSAGE.

Rules:
1. Never drop a fact from the current memory unless the customer explicitly asks to forget it or says the pet is gone.
2. Add new facts and keep the old ones. When the customer corrects a fact, replace only that field.
3. Keep one record per pet. Facts about the owner (city, budget, payment preferences) go in "notes" of a record named "owner".
4. If a record is named "previous data" its notes are an older free-text memory: move every fact it holds into the proper records and leave it out.
5. If nothing in the conversation adds to or corrects the current memory, answer exactly NO_CHANGES.

Otherwise answer ONLY with the complete updated JSON array, no prose and no Markdown. Each record has the fields:
"name", "species", "breed", "age", "health", "behavior", "preferences", "notes". Omit unknown fields.`

func buildExtractionPrompt(current []model.PetRecord, turns []model.Turn, latest string) (string, error) {
	if current == nil {
		current = []model.PetRecord{}
	}
	memJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode current memory: %w", err)
	}

	var b strings.Builder
	b.WriteString("CURRENT MEMORY:\n")
	b.Write(memJSON)
	b.WriteString("\n\nCONVERSATION:\n")
	for _, t := range turns {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker(t.Role), text)
	}
	b.WriteString("\nLATEST CUSTOMER MESSAGE:\n")
	b.WriteString(strings.TrimSpace(latest))
	b.WriteString("\n")

	return b.String(), nil
}

func speaker(role model.Role) string {
	if role == model.RoleAssistant {
		return "Assistant"
	}
	return "Customer"
}
