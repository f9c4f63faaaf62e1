package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// ErrMalformedOutput is returned when the extraction output is neither the
// no-change sentinel nor a decodable list of pet records.
var ErrMalformedOutput = errors.New("malformed extraction output")

// NoChangeSentinel is the exact answer the extraction model gives when the
// conversation adds nothing.
const NoChangeSentinel = "NO_CHANGES"

// legacySentinel is what older prompts asked for.
const legacySentinel = "SIN_CAMBIOS"

var (
	fenceOpenRegex  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	fenceCloseRegex = regexp.MustCompile("\\s*```$")
)

type proposal struct {
	noChange bool
	pets     []model.PetRecord
}

func parseExtraction(raw string) (proposal, error) {
	text := strings.TrimSpace(raw)
	text = fenceOpenRegex.ReplaceAllString(text, "")
	text = fenceCloseRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if isSentinel(text) {
		return proposal{noChange: true}, nil
	}
	if text == "" {
		return proposal{}, fmt.Errorf("%w: empty output", ErrMalformedOutput)
	}

	var pets []model.PetRecord
	switch text[0] {
	case '[':
		if err := json.Unmarshal([]byte(text), &pets); err != nil {
			return proposal{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	case '{':
		var wrapped struct {
			Status string             `json:"status"`
			Pets   *[]model.PetRecord `json:"pets"`
		}
		if err := json.Unmarshal([]byte(text), &wrapped); err != nil {
			return proposal{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		if isSentinel(wrapped.Status) {
			return proposal{noChange: true}, nil
		}
		if wrapped.Pets == nil {
			return proposal{}, fmt.Errorf("%w: object without pets", ErrMalformedOutput)
		}
		pets = *wrapped.Pets
	default:
		return proposal{}, fmt.Errorf("%w: unexpected leading %q", ErrMalformedOutput, text[0])
	}

	cleaned := make([]model.PetRecord, 0, len(pets))
	for _, p := range pets {
		p = trimRecord(p)
		if p.Key() == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	if len(pets) > 0 && len(cleaned) == 0 {
		return proposal{}, fmt.Errorf("%w: records without names", ErrMalformedOutput)
	}

	return proposal{pets: cleaned}, nil
}

func isSentinel(s string) bool {
	s = strings.Trim(strings.TrimSpace(s), `"'.`)
	return strings.EqualFold(s, NoChangeSentinel) ||
		strings.EqualFold(s, legacySentinel) ||
		strings.EqualFold(s, "no_changes") ||
		strings.EqualFold(s, "no changes")
}

func trimRecord(p model.PetRecord) model.PetRecord {
	p.Name = strings.TrimSpace(p.Name)
	p.Species = strings.TrimSpace(p.Species)
	p.Breed = strings.TrimSpace(p.Breed)
	p.Age = strings.TrimSpace(p.Age)
	p.Health = strings.TrimSpace(p.Health)
	p.Behavior = strings.TrimSpace(p.Behavior)
	p.Preferences = strings.TrimSpace(p.Preferences)
	p.Notes = strings.TrimSpace(p.Notes)
	return p
}
