package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/llm/llmtest"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/memory"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store/storetest"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

func newUpdater(t *testing.T, st *storetest.Store, steps ...llmtest.Step) *MemoryUpdater {
	t.Helper()
	rec := memory.NewReconciler(llmtest.New(steps...), logger.NewNop())
	return NewMemoryUpdater(st, rec, logger.NewNop())
}

func job(latest string) model.ReconcileJob {
	return model.ReconcileJob{
		ID:            "job-1",
		CustomerID:    customerID,
		Turns:         []model.Turn{{Role: model.RoleUser, Text: latest}},
		LatestMessage: latest,
		RequestedAt:   time.Now(),
	}
}

func TestMemoryUpdaterWritesChanges(t *testing.T) {
	st := storetest.New()
	st.Put(&model.CustomerProfile{
		ID:                customerID,
		HandoverRequested: true,
		Memory:            model.StructuredMemory([]model.PetRecord{{Name: "Max", Species: "perro"}}),
	})
	u := newUpdater(t, st, llmtest.Text(`[{"name":"Max","species":"perro","age":"3 años"}]`))

	require.NoError(t, u.Run(context.Background(), job("Max tiene 3 años")))

	p, err := st.Get(context.Background(), customerID)
	require.NoError(t, err)
	assert.Equal(t, []model.PetRecord{{Name: "Max", Species: "perro", Age: "3 años"}}, p.Memory.Normalize())
	assert.NotNil(t, p.MemoryUpdatedAt)
	// other fields are untouched
	assert.True(t, p.HandoverRequested)
}

func TestMemoryUpdaterSkipsFailures(t *testing.T) {
	tests := []struct {
		name string
		step llmtest.Step
	}{
		{"malformed output", llmtest.Text("no entendí")},
		{"extraction error", llmtest.Fail(errors.New("503"))},
		{"no change", llmtest.Text("NO_CHANGES")},
		{"wipeout", llmtest.Text("[]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := storetest.New()
			st.Put(&model.CustomerProfile{ID: customerID, Memory: model.NarrativeMemory("Perro Zeus, husky")})
			u := newUpdater(t, st, tt.step)

			require.NoError(t, u.Run(context.Background(), job("¿tienen correas?")))

			p, err := st.Get(context.Background(), customerID)
			require.NoError(t, err)
			assert.Equal(t, model.MemoryNarrative, p.Memory.Kind())
			assert.Nil(t, p.MemoryUpdatedAt)
		})
	}
}

func TestMemoryUpdaterUnknownCustomer(t *testing.T) {
	u := newUpdater(t, storetest.New())
	assert.NoError(t, u.Run(context.Background(), job("hola")))
}

func TestMemoryUpdaterStoreError(t *testing.T) {
	st := storetest.New()
	st.SetErr(errors.New("unavailable"))
	u := newUpdater(t, st)

	assert.Error(t, u.Run(context.Background(), job("hola")))
}

func TestInlineScheduler(t *testing.T) {
	done := make(chan model.ReconcileJob, 1)
	s := NewInlineScheduler(func(ctx context.Context, j model.ReconcileJob) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		done <- j
		return nil
	}, time.Second, logger.NewNop())

	// the request context ending must not cancel the job
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Schedule(ctx, job("hola")))
	cancel()

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, "job-1", (<-done).ID)
}

func TestInlineSchedulerRecoversPanics(t *testing.T) {
	s := NewInlineScheduler(func(context.Context, model.ReconcileJob) error {
		panic("boom")
	}, time.Second, logger.NewNop())

	require.NoError(t, s.Schedule(context.Background(), job("hola")))
	assert.NoError(t, s.Wait(context.Background()))
}

func TestCustomerServiceClearHandoverAndMigrate(t *testing.T) {
	ctx := context.Background()
	st := storetest.New()
	st.Put(&model.CustomerProfile{
		ID:                customerID,
		HandoverRequested: true,
		HandoverReason:    "quiere pagar",
		Memory:            model.NarrativeMemory("Perro Zeus"),
	})
	svc := NewCustomerService(st, logger.NewNop())

	p, err := svc.ClearHandover(ctx, customerID, "operator-1")
	require.NoError(t, err)
	assert.False(t, p.HandoverRequested)
	assert.Empty(t, p.HandoverReason)

	migrated, err := svc.MigrateMemory(ctx, customerID)
	require.NoError(t, err)
	assert.True(t, migrated)

	p, _ = svc.Get(ctx, customerID)
	assert.Equal(t, model.MemoryStructured, p.Memory.Kind())
	assert.Equal(t, []model.PetRecord{{Name: model.LegacyRecordName, Notes: "Perro Zeus"}}, p.Memory.Normalize())

	migrated, err = svc.MigrateMemory(ctx, customerID)
	require.NoError(t, err)
	assert.False(t, migrated)
}
