package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

func TestDecodeMemory(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		kind    model.MemoryKind
		want    []model.PetRecord
		wantErr bool
	}{
		{
			name: "missing field",
			in:   nil,
			kind: model.MemoryEmpty,
			want: []model.PetRecord{},
		},
		{
			name: "legacy narrative",
			in:   "Tiene una gata, Luna, esterilizada",
			kind: model.MemoryNarrative,
			want: []model.PetRecord{{Name: model.LegacyRecordName, Notes: "Tiene una gata, Luna, esterilizada"}},
		},
		{
			name: "structured array",
			in: []any{
				map[string]any{"name": "Max", "species": "perro", "age": int64(3)},
				map[string]any{"name": "Luna", "species": "gato"},
			},
			kind: model.MemoryStructured,
			want: []model.PetRecord{
				{Name: "Max", Species: "perro", Age: "3"},
				{Name: "Luna", Species: "gato"},
			},
		},
		{
			name: "empty array",
			in:   []any{},
			kind: model.MemoryEmpty,
			want: []model.PetRecord{},
		},
		{
			name:    "array of scalars",
			in:      []any{"Max"},
			wantErr: true,
		},
		{
			name:    "map",
			in:      map[string]any{"name": "Max"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, err := decodeMemory(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, mem.Kind())
			assert.Equal(t, tt.want, mem.Normalize())
		})
	}
}
