package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/gatewarden/gatewarden/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditPrune is the task type for trimming old audit entries.
	TaskTypeAuditPrune = "audit:prune"
)

// AuditPrunePayload carries the retention window for an audit prune run.
type AuditPrunePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewAuditPruneTask constructs an Asynq task for pruning audit logs.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data), nil
}

// AuditPruner deletes audit entries older than the configured retention.
type AuditPruner struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskTypeAuditPrune tasks.
func (p *AuditPruner) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := p.Metrics.Track("audit_prune")
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		_ = tracker.End(nil)
		return nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(payload.RetentionHours) * time.Hour)
	tag, err := p.Pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Error("audit prune failed", slog.Any("error", err))
		}
		return tracker.End(err)
	}
	if p.Logger != nil {
		p.Logger.Info("audit prune completed",
			slog.Int64("removed", tag.RowsAffected()),
			slog.Time("cutoff", cutoff),
		)
	}
	return tracker.End(nil)
}
