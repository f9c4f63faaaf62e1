package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/cristiandgm/chatbot-shopify-ventas/internal/model"
	"github.com/cristiandgm/chatbot-shopify-ventas/pkg/logger"
)

const (
	// StreamName is the name of the memory job stream.
	StreamName = "ANA_MEMORY"

	// SubjectPrefix is the prefix for all memory job subjects.
	SubjectPrefix = "ana.memory"

	// ConsumerName is the durable consumer shared by reconciliation workers.
	ConsumerName = "memory-reconciler"
)

// JobHandler processes one reconciliation job.
type JobHandler func(ctx context.Context, job model.ReconcileJob) error

// JobQueue publishes reconciliation jobs to a JetStream work queue and
// consumes them.
type JobQueue struct {
	client *Client
	logger *logger.Logger
	// maxDeliver bounds redeliveries of a failing job.
	maxDeliver int
	ackWait    time.Duration
}

// NewJobQueue creates a job queue on top of an open client.
func NewJobQueue(client *Client, log *logger.Logger) *JobQueue {
	return &JobQueue{
		client:     client,
		logger:     log.Named("memory-queue"),
		maxDeliver: 3,
		ackWait:    time.Minute,
	}
}

// EnsureStream ensures the job stream exists with proper configuration.
func (q *JobQueue) EnsureStream(ctx context.Context) error {
	js := q.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Long-term memory reconciliation jobs",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// JobSubject returns the subject a customer's jobs are published on.
func JobSubject(customerID string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, subjectToken(customerID))
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}

// Schedule publishes job on the work queue.
func (q *JobQueue) Schedule(ctx context.Context, job model.ReconcileJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if _, err := q.client.JetStream().Publish(ctx, JobSubject(job.CustomerID), data, jetstream.WithMsgID(job.ID)); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume starts delivering jobs to handler until the returned context is
// stopped. Undecodable jobs are terminated; failing ones are retried up to
// the delivery limit.
func (q *JobQueue) Consume(ctx context.Context, handler JobHandler) (jetstream.ConsumeContext, error) {
	consumer, err := q.client.JetStream().CreateOrUpdateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: SubjectPrefix + ".>",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.ackWait,
		MaxDeliver:    q.maxDeliver,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handle(ctx, msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	return cc, nil
}

func (q *JobQueue) handle(ctx context.Context, msg jetstream.Msg, handler JobHandler) {
	var job model.ReconcileJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		q.logger.Error("dropping undecodable memory job",
			zap.String("subject", msg.Subject()),
			zap.Error(err),
		)
		_ = msg.Term()
		return
	}

	log := q.logger.With(zap.String("job_id", job.ID), zap.String("customer_id", job.CustomerID))

	if err := handler(ctx, job); err != nil {
		if errors.Is(err, context.Canceled) {
			_ = msg.Nak()
			return
		}
		log.Warn("memory job failed", zap.Error(err))
		_ = msg.NakWithDelay(5 * time.Second)
		return
	}

	if err := msg.Ack(); err != nil {
		log.Warn("failed to ack memory job", zap.Error(err))
	}
}
