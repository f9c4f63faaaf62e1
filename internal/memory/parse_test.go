package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
)

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		noChange bool
		pets     []model.PetRecord
		wantErr  bool
	}{
		{name: "sentinel", raw: "NO_CHANGES", noChange: true},
		{name: "quoted sentinel", raw: `"NO_CHANGES"`, noChange: true},
		{name: "fenced array", raw: "```json\n[{\"name\":\" Max \"}]\n```", pets: []model.PetRecord{{Name: "Max"}}},
		{name: "wrapped pets", raw: `{"pets":[{"name":"Luna"}]}`, pets: []model.PetRecord{{Name: "Luna"}}},
		{name: "empty array", raw: `[]`, pets: []model.PetRecord{}},
		{name: "nameless records dropped", raw: `[{"name":"Max"},{"species":"gato"}]`, pets: []model.PetRecord{{Name: "Max"}}},
		{name: "only nameless records", raw: `[{"species":"gato"}]`, wantErr: true},
		{name: "prose", raw: "Max es un perro", wantErr: true},
		{name: "empty", raw: "   ", wantErr: true},
		{name: "broken json", raw: `[{"name":`, wantErr: true},
		{name: "object without pets", raw: `{"status":"ok"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseExtraction(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.noChange, got.noChange)
			if !tt.noChange {
				assert.Equal(t, tt.pets, got.pets)
			}
		})
	}
}

func TestDetectDeletionIntent(t *testing.T) {
	positive := []string{
		"please forget about Max",
		"Remove Luna from my profile",
		"borra lo de mi perro",
		"Elimina a Zeus, ya no vive conmigo",
		"olvídate de Luna",
		"ya no tengo gato",
		"Max murió",
		"my dog passed away",
		"olvida todo lo de Max",
		"bórralo por favor",
		"Luna falleció ayer",
	}
	negative := []string{
		"¿tienen arena para gato?",
		"Max tiene 3 años",
		"quiero dos bultos de Agility",
		"se me olvidó decirte que Luna es alérgica al pollo",
		"ay, se me había olvidado contarte que Max ya tiene 4 años",
		"I forgot to mention Luna is allergic to chicken",
		"ayer borré la foto de Max",
		"",
	}

	for _, s := range positive {
		assert.True(t, DetectDeletionIntent(s), s)
	}
	for _, s := range negative {
		assert.False(t, DetectDeletionIntent(s), s)
	}
}

func TestMergeRecordsJoinsDuplicateNarratives(t *testing.T) {
	got := mergeRecords(nil, []model.PetRecord{
		{Name: "Max", Health: "alergia al pollo"},
		{Name: "MAX", Health: "displasia de cadera"},
	}, nil)

	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Health: "alergia al pollo; displasia de cadera"},
	}, got)
}

func TestMergeRecordsKeepsLegacyUntilAbsorbed(t *testing.T) {
	legacy := model.PetRecord{Name: model.LegacyRecordName, Notes: "cliente antiguo, compra arena cada mes"}

	assert.Equal(t, []model.PetRecord{legacy}, mergeRecords([]model.PetRecord{legacy}, nil, nil))
	assert.Equal(t,
		[]model.PetRecord{legacy, {Name: "Max"}},
		mergeRecords([]model.PetRecord{legacy}, []model.PetRecord{{Name: "Max"}}, nil),
	)

	absorbed := []model.PetRecord{{Name: "owner", Notes: "cliente antiguo que compra arena cada mes"}}
	assert.Equal(t, absorbed, mergeRecords([]model.PetRecord{legacy}, absorbed, nil))
}

func TestMergeRecordsDropsOnlyRemovable(t *testing.T) {
	current := []model.PetRecord{{Name: "Max"}, {Name: "Luna"}, {Name: "Zeus"}}
	removable := func(p model.PetRecord) bool { return p.Name == "Zeus" }

	got := mergeRecords(current, []model.PetRecord{{Name: "Luna", Species: "gata"}}, removable)

	assert.Equal(t, []model.PetRecord{{Name: "Max"}, {Name: "Luna", Species: "gata"}}, got)
}

func TestMentions(t *testing.T) {
	assert.True(t, mentions("Max murió la semana pasada", "max"))
	assert.True(t, mentions("borra a Luna, por favor", "Luna"))
	assert.False(t, mentions("Maximiliano es mi primo", "Max"))
	assert.False(t, mentions("olvida todo", ""))
}
