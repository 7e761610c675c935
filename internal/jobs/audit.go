package jobs

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/pkg/interfaces"
)

const (
	AuditActionSubmit  = "submit"
	AuditActionStart   = "start"
	AuditActionDone    = "done"
	AuditActionFail    = "fail"
	AuditActionCancel  = "cancel"
	AuditActionTaskRun = "task"
)

// AuditEvent captures a job state change.
type AuditEvent struct {
	JobID      string
	TenantID   string
	Action     string
	From       domain.JobState
	To         domain.JobState
	OccurredAt time.Time
	Metadata   map[string]any
}

// AuditRecorder persists audit events.
type AuditRecorder interface {
	Record(ctx context.Context, event AuditEvent) error
	List(ctx context.Context) ([]AuditEvent, error)
	Clear(ctx context.Context) error
}

// InMemoryAuditRecorder accumulates audit events in-memory.
type InMemoryAuditRecorder struct {
	mu     sync.Mutex
	events []AuditEvent
	err    error
}

// NewInMemoryAuditRecorder constructs an empty recorder.
func NewInMemoryAuditRecorder() *InMemoryAuditRecorder {
	return &InMemoryAuditRecorder{}
}

// Record stores the supplied event.
func (r *InMemoryAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	copied := event
	copied.Metadata = maps.Clone(event.Metadata)
	r.events = append(r.events, copied)
	return nil
}

// Events returns a snapshot of recorded audit entries.
func (r *InMemoryAuditRecorder) Events() []AuditEvent {
	events, _ := r.List(context.Background())
	return events
}

// Actions returns the recorded actions for one job in order.
func (r *InMemoryAuditRecorder) Actions(jobID string) []string {
	var out []string
	for _, event := range r.Events() {
		if event.JobID == jobID {
			out = append(out, event.Action)
		}
	}
	return out
}

// Fail configures the recorder to return the supplied error on subsequent Record calls.
func (r *InMemoryAuditRecorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// List returns the audit events recorded so far.
func (r *InMemoryAuditRecorder) List(context.Context) ([]AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

// Clear removes all recorded events.
func (r *InMemoryAuditRecorder) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

// LoggerAuditRecorder writes audit events to a logger and keeps nothing.
type LoggerAuditRecorder struct {
	logger interfaces.Logger
}

// NewLoggerAuditRecorder wraps logger; nil falls back to a no-op logger.
func NewLoggerAuditRecorder(logger interfaces.Logger) *LoggerAuditRecorder {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &LoggerAuditRecorder{logger: logger}
}

func (r *LoggerAuditRecorder) Record(_ context.Context, event AuditEvent) error {
	args := []any{
		"job_id", event.JobID,
		"tenant_id", event.TenantID,
		"action", event.Action,
		"from", event.From,
		"to", event.To,
		"occurred_at", event.OccurredAt,
	}
	for k, v := range event.Metadata {
		args = append(args, k, v)
	}
	r.logger.Info("job.audit", args...)
	return nil
}

func (r *LoggerAuditRecorder) List(context.Context) ([]AuditEvent, error) {
	return nil, nil
}

func (r *LoggerAuditRecorder) Clear(context.Context) error {
	return nil
}
