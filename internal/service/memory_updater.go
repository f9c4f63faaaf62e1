package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/memory"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/internal/store"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

// MemoryReconciler decides how a memory changes after an exchange.
type MemoryReconciler interface {
	Reconcile(ctx context.Context, current model.Memory, turns []model.Turn, latest string) (memory.Outcome, error)
}

// MemoryUpdater applies reconciliation jobs to stored profiles.
type MemoryUpdater struct {
	profiles   store.ProfileStore
	reconciler MemoryReconciler
	logger     *logger.Logger
}

// NewMemoryUpdater creates a new memory updater.
func NewMemoryUpdater(profiles store.ProfileStore, reconciler MemoryReconciler, log *logger.Logger) *MemoryUpdater {
	return &MemoryUpdater{
		profiles:   profiles,
		reconciler: reconciler,
		logger:     log.Named("memory-updater"),
	}
}

// Run reconciles against the latest persisted memory and writes the memory
// field only when it changed. Extraction failures are logged and the cycle
// is dropped; only store errors are returned.
func (u *MemoryUpdater) Run(ctx context.Context, job model.ReconcileJob) error {
	log := u.logger.With(zap.String("job_id", job.ID), zap.String("customer_id", job.CustomerID))

	profile, err := u.profiles.Get(ctx, job.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("memory job for unknown customer")
			return nil
		}
		return fmt.Errorf("load profile: %w", err)
	}

	outcome, err := u.reconciler.Reconcile(ctx, profile.Memory, job.Turns, job.LatestMessage)
	if err != nil {
		log.Warn("memory reconciliation skipped", zap.String("reason", string(outcome.Reason)), zap.Error(err))
		return nil
	}
	if !outcome.Changed {
		log.Debug("memory unchanged", zap.String("reason", string(outcome.Reason)))
		return nil
	}

	if err := u.profiles.UpdateMemory(ctx, job.CustomerID, outcome.Pets); err != nil {
		return fmt.Errorf("update memory: %w", err)
	}

	log.Info("memory updated",
		zap.String("reason", string(outcome.Reason)),
		zap.Int("records", len(outcome.Pets)),
	)
	return nil
}
