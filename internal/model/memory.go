package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// LegacyRecordName tags the record that carries a pre-structured narrative.
const LegacyRecordName = "previous data"

// PetRecord is one entry of the structured long-term memory.
type PetRecord struct {
	Name        string `json:"name" firestore:"name"`
	Species     string `json:"species,omitempty" firestore:"species"`
	Breed       string `json:"breed,omitempty" firestore:"breed"`
	Age         string `json:"age,omitempty" firestore:"age"`
	Health      string `json:"health,omitempty" firestore:"health"`
	Behavior    string `json:"behavior,omitempty" firestore:"behavior"`
	Preferences string `json:"preferences,omitempty" firestore:"preferences"`
	Notes       string `json:"notes,omitempty" firestore:"notes"`
}

// Key returns the identity key of the record within one owner's memory.
func (p PetRecord) Key() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// IsLegacy reports whether the record wraps a migrated narrative.
func (p PetRecord) IsLegacy() bool {
	return p.Key() == LegacyRecordName
}

// MemoryKind identifies the representation held by a Memory value.
type MemoryKind int

const (
	MemoryEmpty MemoryKind = iota
	MemoryNarrative
	MemoryStructured
)

func (k MemoryKind) String() string {
	switch k {
	case MemoryNarrative:
		return "narrative"
	case MemoryStructured:
		return "structured"
	default:
		return "empty"
	}
}

// Memory is the long-term memory of a customer. Older profiles store a free
// text narrative, newer ones a list of PetRecord.
type Memory struct {
	kind      MemoryKind
	narrative string
	pets      []PetRecord
}

// NarrativeMemory wraps a legacy free-text memory.
func NarrativeMemory(text string) Memory {
	if strings.TrimSpace(text) == "" {
		return Memory{}
	}
	return Memory{kind: MemoryNarrative, narrative: text}
}

// StructuredMemory wraps a list of pet records.
func StructuredMemory(pets []PetRecord) Memory {
	if len(pets) == 0 {
		return Memory{}
	}
	cp := make([]PetRecord, len(pets))
	copy(cp, pets)
	return Memory{kind: MemoryStructured, pets: cp}
}

// Kind returns the representation held by m.
func (m Memory) Kind() MemoryKind { return m.kind }

// IsEmpty reports whether m holds no information.
func (m Memory) IsEmpty() bool { return m.kind == MemoryEmpty }

// Normalize returns the structured form of m. A narrative becomes a single
// legacy record so no text is lost.
func (m Memory) Normalize() []PetRecord {
	switch m.kind {
	case MemoryNarrative:
		return []PetRecord{{Name: LegacyRecordName, Notes: strings.TrimSpace(m.narrative)}}
	case MemoryStructured:
		cp := make([]PetRecord, len(m.pets))
		copy(cp, m.pets)
		return cp
	default:
		return []PetRecord{}
	}
}

// MarshalJSON encodes the underlying shape: a string, an array or null.
func (m Memory) MarshalJSON() ([]byte, error) {
	switch m.kind {
	case MemoryNarrative:
		return json.Marshal(m.narrative)
	case MemoryStructured:
		return json.Marshal(m.pets)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts either a narrative string or an array of records.
func (m *Memory) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Memory{}
		return nil
	}

	switch data[0] {
	case '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("decode narrative memory: %w", err)
		}
		*m = NarrativeMemory(text)
	case '[':
		var pets []PetRecord
		if err := json.Unmarshal(data, &pets); err != nil {
			return fmt.Errorf("decode structured memory: %w", err)
		}
		*m = StructuredMemory(pets)
	default:
		return fmt.Errorf("unsupported memory encoding %q", data[0])
	}
	return nil
}
