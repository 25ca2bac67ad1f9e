package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/akademi-app/akademi/internal/billing"
	jobmetrics "github.com/akademi-app/akademi/internal/jobs"
)

const (
	// TaskBillingReconcile applies one provider event to subscription state.
	TaskBillingReconcile = "billing:reconcile"
	// TaskSubscriptionSweep marks overdue subscriptions nightly.
	TaskSubscriptionSweep = "billing:sweep"
)

// BillingReconcilePayload identifies the subscription an event targets.
type BillingReconcilePayload struct {
	CompanyID      int64  `json:"company_id"`
	RegistrationID int64  `json:"registration_id"`
	EventType      string `json:"event_type"`
}

// NewBillingReconcileTask constructs an Asynq task.
func NewBillingReconcileTask(payload BillingReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillingReconcile, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewSubscriptionSweepTask constructs the nightly sweep task.
func NewSubscriptionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSubscriptionSweep, nil, asynq.Queue(QueueDefault))
}

// BillingJobs bundles the worker-side billing handlers.
type BillingJobs struct {
	Service *billing.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewBillingJobs initialises the billing job handlers.
func NewBillingJobs(service *billing.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *BillingJobs {
	return &BillingJobs{Service: service, Logger: logger, Metrics: metrics, clock: time.Now}
}

// HandleReconcile processes TaskBillingReconcile tasks.
func (j *BillingJobs) HandleReconcile(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track("billing_reconcile")
	var payload BillingReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	err := j.Service.Reconcile(ctx, payload.CompanyID, payload.RegistrationID, payload.EventType)
	if err != nil {
		j.Logger.Error("billing reconcile",
			slog.Int64("company_id", payload.CompanyID),
			slog.Int64("registration_id", payload.RegistrationID),
			slog.String("event_type", payload.EventType),
			slog.Any("error", err))
	}
	return tracker.End(err)
}

// HandleSweep processes the nightly TaskSubscriptionSweep task.
func (j *BillingJobs) HandleSweep(ctx context.Context, t *asynq.Task) error {
	tracker := j.Metrics.Track("subscription_sweep")
	counts, err := j.Service.SweepOverdue(ctx, j.clock().UTC())
	if err != nil {
		j.Logger.Error("subscription sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	for companyID, count := range counts {
		j.Metrics.AddOverdueSubscriptions(companyID, count)
		j.Logger.Info("subscriptions past due",
			slog.Int64("company_id", companyID),
			slog.Int("count", count))
	}
	return tracker.End(nil)
}
