package memory

import (
	"strings"
	"unicode"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

// mergeRecords reconciles a proposal against the current records.
//
// Records keep the order they had in current; new ones follow in proposal
// order. Empty proposed fields keep the previous value. Records absent from
// the proposal are restored unless removable reports true for them; a nil
// removable restores everything. The legacy record is dropped only once the
// proposal has absorbed most of its words.
func mergeRecords(current, proposed []model.PetRecord, removable func(model.PetRecord) bool) []model.PetRecord {
	proposed = collapseDuplicates(proposed)

	byKey := make(map[string]model.PetRecord, len(proposed))
	for _, p := range proposed {
		byKey[p.Key()] = p
	}

	out := make([]model.PetRecord, 0, len(current)+len(proposed))
	seen := make(map[string]bool, len(current))

	for _, cur := range current {
		key := cur.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		if next, ok := byKey[key]; ok {
			out = append(out, fillEmpty(next, cur))
			continue
		}
		if removable != nil && removable(cur) {
			continue
		}
		if cur.IsLegacy() && legacyAbsorbed(cur, proposed) {
			continue
		}
		out = append(out, cur)
	}

	for _, p := range proposed {
		if seen[p.Key()] {
			continue
		}
		seen[p.Key()] = true
		out = append(out, p)
	}

	return out
}

// legacyCoverage is the share of the legacy words that must reappear in the
// proposal before the free-text record can go.
const legacyCoverage = 0.6

// legacyAbsorbed reports whether the proposed records carry the content of
// the legacy narrative.
func legacyAbsorbed(legacy model.PetRecord, proposed []model.PetRecord) bool {
	if len(proposed) == 0 {
		return false
	}

	words := significantWords(legacy.Notes)
	if len(words) == 0 {
		return true
	}

	var b strings.Builder
	for _, p := range proposed {
		for _, f := range []string{p.Name, p.Species, p.Breed, p.Age, p.Health, p.Behavior, p.Preferences, p.Notes} {
			b.WriteString(strings.ToLower(f))
			b.WriteByte(' ')
		}
	}
	text := b.String()

	found := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			found++
		}
	}
	return float64(found) >= legacyCoverage*float64(len(words))
}

// significantWords lowercases s and returns its words of three runes or more.
func significantWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// collapseDuplicates merges records sharing a key into the first of them.
func collapseDuplicates(pets []model.PetRecord) []model.PetRecord {
	out := make([]model.PetRecord, 0, len(pets))
	index := make(map[string]int, len(pets))

	for _, p := range pets {
		key := p.Key()
		if i, ok := index[key]; ok {
			out[i] = combine(out[i], p)
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

// combine folds b into a. Scalar facts from b win; descriptive fields are
// concatenated when they differ.
func combine(a, b model.PetRecord) model.PetRecord {
	a.Species = prefer(b.Species, a.Species)
	a.Breed = prefer(b.Breed, a.Breed)
	a.Age = prefer(b.Age, a.Age)
	a.Health = join(a.Health, b.Health)
	a.Behavior = join(a.Behavior, b.Behavior)
	a.Preferences = join(a.Preferences, b.Preferences)
	a.Notes = join(a.Notes, b.Notes)
	return a
}

// fillEmpty copies into next every field it left blank from prev. The
// stored spelling of the name is kept.
func fillEmpty(next, prev model.PetRecord) model.PetRecord {
	next.Name = prev.Name
	next.Species = prefer(next.Species, prev.Species)
	next.Breed = prefer(next.Breed, prev.Breed)
	next.Age = prefer(next.Age, prev.Age)
	next.Health = prefer(next.Health, prev.Health)
	next.Behavior = prefer(next.Behavior, prev.Behavior)
	next.Preferences = prefer(next.Preferences, prev.Preferences)
	next.Notes = prefer(next.Notes, prev.Notes)
	return next
}

func prefer(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func join(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "", strings.EqualFold(a, b), strings.Contains(strings.ToLower(a), strings.ToLower(b)):
		return a
	default:
		return a + "; " + b
	}
}
