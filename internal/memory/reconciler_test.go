package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm/llmtest"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

func newTestReconciler(steps ...llmtest.Step) (*Reconciler, *llmtest.Client) {
	client := llmtest.New(steps...)
	return NewReconciler(client, logger.NewNop(), WithModel("extractor")), client
}

func turns(lines ...string) []model.Turn {
	out := make([]model.Turn, 0, len(lines))
	for i, l := range lines {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		out = append(out, model.Turn{Role: role, Text: l})
	}
	return out
}

func TestReconcileKeepsExistingFacts(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{
		{Name: "Max", Species: "perro", Breed: "husky", Behavior: "reactivo con motos"},
	})
	// the model forgets the breed and behavior while adding the age
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Max","species":"perro","age":"3 años"}]`))

	out, err := r.Reconcile(context.Background(), current, turns("Max tiene 3 años"), "Max tiene 3 años")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, ReasonUpdated, out.Reason)
	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Species: "perro", Breed: "husky", Age: "3 años", Behavior: "reactivo con motos"},
	}, out.Pets)
}

func TestReconcileRestoresOmittedPets(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{
		{Name: "Max", Species: "perro"},
		{Name: "Luna", Species: "gata"},
	})
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Luna","species":"gata","health":"alergia al pollo"}]`))

	out, err := r.Reconcile(context.Background(), current, nil, "Luna es alérgica al pollo")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Species: "perro"},
		{Name: "Luna", Species: "gata", Health: "alergia al pollo"},
	}, out.Pets)
}

func TestReconcileAppliesCorrection(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{{Name: "Max", Species: "perro", Age: "3 años"}})
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Max","species":"perro","age":"4 años"}]`))

	out, err := r.Reconcile(context.Background(), current, nil, "perdón, Max tiene 4 años, no 3")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, "4 años", out.Pets[0].Age)
}

func TestReconcileNoChange(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{{Name: "Max", Species: "perro"}})

	tests := []struct {
		name   string
		output string
	}{
		{"sentinel", "NO_CHANGES"},
		{"sentinel with punctuation", "  no_changes. "},
		{"legacy sentinel", "SIN_CAMBIOS"},
		{"status object", `{"status":"no_changes"}`},
		{"identical array", `[{"name":"Max","species":"perro"}]`},
		{"identical array with different casing of key", `[{"name":"max"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestReconciler(llmtest.Text(tt.output))

			out, err := r.Reconcile(context.Background(), current, nil, "gracias")
			require.NoError(t, err)
			assert.False(t, out.Changed)
		})
	}
}

func TestReconcileRejectsWipeout(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{{Name: "Max", Species: "perro"}})
	r, _ := newTestReconciler(llmtest.Text(`[]`))

	out, err := r.Reconcile(context.Background(), current, nil, "¿tienen arena para gato?")
	require.NoError(t, err)

	assert.False(t, out.Changed)
	assert.Equal(t, ReasonWipeoutRejected, out.Reason)
}

func TestReconcileAcceptsExplicitDeletion(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{
		{Name: "Max", Species: "perro"},
		{Name: "Luna", Species: "gata"},
	})

	t.Run("everything", func(t *testing.T) {
		r, _ := newTestReconciler(llmtest.Text(`[]`))

		out, err := r.Reconcile(context.Background(), current, nil, "Por favor olvida todo lo que sabes de mis mascotas")
		require.NoError(t, err)

		require.True(t, out.Changed)
		assert.Equal(t, ReasonDeleted, out.Reason)
		assert.Empty(t, out.Pets)
	})

	t.Run("one pet", func(t *testing.T) {
		r, _ := newTestReconciler(llmtest.Text(`[{"name":"Luna","species":"gata"}]`))

		out, err := r.Reconcile(context.Background(), current, nil, "Max murió la semana pasada")
		require.NoError(t, err)

		require.True(t, out.Changed)
		assert.Equal(t, []model.PetRecord{{Name: "Luna", Species: "gata"}}, out.Pets)
	})
}

func TestReconcileKeepsPetsTheMessageDoesNotName(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{
		{Name: "Max", Species: "perro", Breed: "husky"},
		{Name: "Luna", Species: "gata"},
	})
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Luna","species":"gata","health":"alérgica al pollo"}]`))

	out, err := r.Reconcile(context.Background(), current, nil, "se me olvidó decirte que Luna es alérgica al pollo")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, ReasonUpdated, out.Reason)
	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Species: "perro", Breed: "husky"},
		{Name: "Luna", Species: "gata", Health: "alérgica al pollo"},
	}, out.Pets)
}

func TestReconcileDeletionSparesUnnamedPets(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{
		{Name: "Max", Species: "perro"},
		{Name: "Luna", Species: "gata"},
		{Name: "Zeus", Species: "perro"},
	})
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Luna","species":"gata"}]`))

	out, err := r.Reconcile(context.Background(), current, nil, "borra a Zeus, ya no vive conmigo")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, ReasonDeleted, out.Reason)
	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Species: "perro"},
		{Name: "Luna", Species: "gata"},
	}, out.Pets)
}

func TestReconcileKeepsUnmigratedNarrative(t *testing.T) {
	current := model.NarrativeMemory("Loves walks; allergic to chicken")
	r, _ := newTestReconciler(llmtest.Text(`[{"name":"Zeus","species":"dog","breed":"husky"}]`))

	out, err := r.Reconcile(context.Background(), current, nil, "I have a husky called Zeus")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, []model.PetRecord{
		{Name: model.LegacyRecordName, Notes: "Loves walks; allergic to chicken"},
		{Name: "Zeus", Species: "dog", Breed: "husky"},
	}, out.Pets)
}

func TestReconcileMigratesNarrative(t *testing.T) {
	current := model.NarrativeMemory("Dueño en Bogotá. Perro Zeus, husky, reactivo con motos.")
	r, client := newTestReconciler(llmtest.Text("```json\n" + `[
		{"name":"owner","notes":"vive en Bogotá"},
		{"name":"Zeus","species":"perro","breed":"husky","behavior":"reactivo con motos"}
	]` + "\n```"))

	out, err := r.Reconcile(context.Background(), current, nil, "Zeus ya está más tranquilo")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, []model.PetRecord{
		{Name: "owner", Notes: "vive en Bogotá"},
		{Name: "Zeus", Species: "perro", Breed: "husky", Behavior: "reactivo con motos"},
	}, out.Pets)

	// the narrative reaches the model as a legacy record
	reqs := client.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, `"name": "previous data"`)
	assert.Contains(t, reqs[0].Messages[0].Content, "reactivo con motos")
}

func TestReconcileKeepsNarrativeOnNoChange(t *testing.T) {
	current := model.NarrativeMemory("Cliente frecuente")
	r, _ := newTestReconciler(llmtest.Text("NO_CHANGES"))

	out, err := r.Reconcile(context.Background(), current, nil, "hola")
	require.NoError(t, err)
	assert.False(t, out.Changed)
}

func TestReconcileSegmentsMultiplePets(t *testing.T) {
	r, _ := newTestReconciler(llmtest.Text(`[
		{"name":"Max","species":"perro"},
		{"name":"Luna","species":"gata","preferences":"comida húmeda"},
		{"name":"max","behavior":"juguetón"}
	]`))

	out, err := r.Reconcile(context.Background(), model.Memory{}, nil, "Tengo a Max, un perro juguetón, y a Luna, una gata que solo come húmeda")
	require.NoError(t, err)

	require.True(t, out.Changed)
	assert.Equal(t, []model.PetRecord{
		{Name: "Max", Species: "perro", Behavior: "juguetón"},
		{Name: "Luna", Species: "gata", Preferences: "comida húmeda"},
	}, out.Pets)
}

func TestReconcileMalformedOutput(t *testing.T) {
	current := model.StructuredMemory([]model.PetRecord{{Name: "Max"}})
	r, _ := newTestReconciler(llmtest.Text("Claro, Max es un perro muy lindo"))

	out, err := r.Reconcile(context.Background(), current, nil, "Max es lindo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedOutput)
	assert.False(t, out.Changed)
	assert.Equal(t, ReasonMalformed, out.Reason)
}

func TestReconcileExtractionFailure(t *testing.T) {
	r, _ := newTestReconciler(llmtest.Fail(errors.New("upstream 503")))

	out, err := r.Reconcile(context.Background(), model.Memory{}, nil, "hola")
	require.Error(t, err)
	assert.False(t, out.Changed)
	assert.Equal(t, ReasonFailed, out.Reason)
}

func TestReconcileRequestIsToolFreeAndDeterministic(t *testing.T) {
	r, client := newTestReconciler(llmtest.Text("NO_CHANGES"))

	_, err := r.Reconcile(context.Background(), model.Memory{}, turns("Hola", "¡Hola! ¿Cómo se llama tu mascota?"), "Se llama Rocky")
	require.NoError(t, err)

	req := client.Requests()[0]
	assert.Empty(t, req.Tools)
	assert.Zero(t, req.Temperature)
	assert.Equal(t, "extractor", req.Model)
	assert.True(t, strings.Contains(req.Messages[0].Content, "Customer: Hola"))
	assert.True(t, strings.Contains(req.Messages[0].Content, "Assistant: ¡Hola! ¿Cómo se llama tu mascota?"))
	assert.True(t, strings.HasSuffix(req.Messages[0].Content, "Se llama Rocky\n"))
}

func TestReconcileSkipsEmptyInput(t *testing.T) {
	r, client := newTestReconciler()

	out, err := r.Reconcile(context.Background(), model.Memory{}, nil, "  ")
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Empty(t, client.Requests())
}
