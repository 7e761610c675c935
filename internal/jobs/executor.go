package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/logging"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/goliatone/go-locsync/internal/scheduler"
	"github.com/goliatone/go-locsync/internal/validation"
	"github.com/goliatone/go-locsync/pkg/interfaces"
	"github.com/goliatone/go-slug"
	"github.com/google/uuid"
)

const (
	TextCodeJobCancelled   = "JOB_CANCELLED"
	TextCodeJobInterrupted = "JOB_INTERRUPTED"
	messageJobInterrupted  = "job interrupted"
	messageJobStale        = "job abandoned by a stopped worker"
	staleGrace             = time.Minute
)

var (
	ErrRepositoryRequired = errors.New("jobs: repository required")
	ErrRunnerRequired     = errors.New("jobs: runner required")
	ErrSchedulerRequired  = errors.New("jobs: scheduler required for queued submission")

	errCancelled   = errors.New(MessageJobCancelled)
	errHardTimeout = errors.New("job exceeded hard timeout")
)

// Runner executes one batch. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestrator.Request) (orchestrator.Stats, error)
}

// SubmitRequest describes a new job.
type SubmitRequest struct {
	Request orchestrator.Request
	Name    string
	Mode    domain.SubmitMode
}

// Handle is returned by Submit. Job holds the final state for inline
// submissions and the queued record otherwise.
type Handle struct {
	JobID  uuid.UUID       `json:"job_id"`
	TaskID string          `json:"task_id,omitempty"`
	Job    *TranslationJob `json:"-"`
}

// Config bounds job execution.
type Config struct {
	HardTimeout      time.Duration
	SoftTimeout      time.Duration
	QueueMaxAttempts int
}

// DefaultConfig mirrors the runtime defaults.
func DefaultConfig() Config {
	return Config{
		HardTimeout:      10 * time.Minute,
		SoftTimeout:      8 * time.Minute,
		QueueMaxAttempts: 3,
	}
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

func WithConfig(cfg Config) ExecutorOption {
	return func(e *Executor) {
		e.cfg = cfg
	}
}

// WithScheduler enables queued submission.
func WithScheduler(s interfaces.Scheduler) ExecutorOption {
	return func(e *Executor) {
		e.scheduler = s
	}
}

func WithAuditRecorder(recorder AuditRecorder) ExecutorOption {
	return func(e *Executor) {
		e.audit = recorder
	}
}

func WithLogger(logger interfaces.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if clock != nil {
			e.now = clock
		}
	}
}

func WithIDGenerator(generator func() uuid.UUID) ExecutorOption {
	return func(e *Executor) {
		if generator != nil {
			e.id = generator
		}
	}
}

// Executor owns the translation job state machine.
type Executor struct {
	repo      JobRepository
	runner    Runner
	scheduler interfaces.Scheduler
	audit     AuditRecorder
	logger    interfaces.Logger
	cfg       Config
	now       func() time.Time
	id        func() uuid.UUID

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelCauseFunc
}

// NewExecutor wires an executor over the job repository and batch runner.
func NewExecutor(repo JobRepository, runner Runner, opts ...ExecutorOption) (*Executor, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	e := &Executor{
		repo:    repo,
		runner:  runner,
		logger:  logging.NoOp(),
		cfg:     DefaultConfig(),
		now:     time.Now,
		id:      uuid.New,
		running: make(map[uuid.UUID]context.CancelCauseFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DefaultName builds a slug name from the batch selector and the submission time.
func DefaultName(req orchestrator.Request, at time.Time) string {
	selector := req.Scope
	if selector == "" {
		selector = fmt.Sprintf("%d items", len(req.ItemIDs))
	}
	raw := fmt.Sprintf("%s %s to %s %s", selector, req.SourceLang, strings.Join(req.TargetLangs, " "), at.UTC().Format("20060102 150405"))
	if name, err := slug.Normalize(raw); err == nil && name != "" {
		return name
	}
	return "translation-job-" + at.UTC().Format("20060102-150405")
}

// Submit creates a queued job. Inline submissions execute before returning;
// queued submissions enqueue a sync task and return immediately.
func (e *Executor) Submit(ctx context.Context, req SubmitRequest) (*Handle, error) {
	normalized, err := orchestrator.Normalize(req.Request)
	if err != nil {
		return nil, err
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.SubmitQueued
	}
	switch mode {
	case domain.SubmitInline:
	case domain.SubmitQueued:
		if e.scheduler == nil {
			return nil, ErrSchedulerRequired
		}
	default:
		return nil, domain.ValidationError("mode", "Unknown submit mode", string(mode))
	}

	now := e.now()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultName(normalized, now)
	}
	job, err := e.repo.Create(ctx, newJobFromRequest(e.id(), name, normalized, now))
	if err != nil {
		return nil, err
	}
	e.record(ctx, job, AuditActionSubmit, "", domain.JobStateQueued, map[string]any{"mode": string(mode)})
	logger := logging.WithJobContext(e.logger, job.TenantID, job.ID.String(), "")
	logger.Info("job.submit.accepted", "name", job.Name, "mode", mode, "target_langs", job.TargetLocales)

	if mode == domain.SubmitInline {
		final, err := e.execute(ctx, job.ID, true)
		if final == nil {
			final = job
		}
		return &Handle{JobID: job.ID, Job: final}, err
	}

	task, err := e.scheduler.Enqueue(ctx, interfaces.TaskSpec{
		Key:   scheduler.TranslationSyncTaskKey(job.ID),
		Type:  scheduler.TaskTypeTranslationsSync,
		RunAt: now,
		Payload: map[string]any{
			"job_id":    job.ID.String(),
			"tenant_id": job.TenantID,
		},
		MaxAttempts: e.cfg.QueueMaxAttempts,
	})
	if err != nil {
		logger.Error("job.submit.enqueue_failed", "error", err)
		if _, failErr := e.fail(ctx, job, domain.JobStateQueued, domain.Message(err)); failErr != nil {
			logger.Error("job.submit.fail_record_failed", "error", failErr)
		}
		return nil, err
	}
	if err := e.repo.AttachTask(ctx, job.ID, task.ID); err != nil {
		return nil, err
	}
	job.TaskID = task.ID
	return &Handle{JobID: job.ID, TaskID: task.ID, Job: job}, nil
}

// Execute runs a job to a terminal state. A done job or a terminally failed
// job is returned unchanged; a job running elsewhere yields a JobRunning
// conflict. Retryable failures come back as retryable errors so the queue
// re-delivers the task.
func (e *Executor) Execute(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	return e.execute(ctx, id, false)
}

// execute runs the job; inline runs stop the batch on the first translation
// timeout since the caller is waiting on the outcome.
func (e *Executor) execute(ctx context.Context, id uuid.UUID, inline bool) (*TranslationJob, error) {
	job, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	ctx = logging.ContextWithJob(ctx, job.TenantID, id.String())
	logger := logging.WithJobContext(e.logger, job.TenantID, id.String(), "")

	switch job.State {
	case domain.JobStateDone:
		logger.Debug("job.execute.skipped", "state", job.State)
		return job, nil
	case domain.JobStateFailed:
		if !job.Retryable {
			logger.Debug("job.execute.skipped", "state", job.State)
			return job, nil
		}
	case domain.JobStateRunning:
		if !e.stale(job) {
			return job, domain.JobRunning(id.String())
		}
		logger.Warn("job.execute.reclaimed", "started_at", job.StartedAt)
		job, err = e.transitionFailed(ctx, job, domain.JobStateRunning, messageJobStale, true)
		if err != nil {
			return nil, err
		}
	}

	from := job.State
	if !domain.CanTransition(from, domain.JobStateRunning, job.Retryable) {
		return job, domain.JobRunning(id.String())
	}
	job, err = e.repo.Transition(ctx, id, from, domain.JobStateRunning, e.now())
	if err != nil {
		var conflict *StateConflictError
		if errors.As(err, &conflict) {
			return nil, domain.JobRunning(id.String())
		}
		return nil, err
	}
	e.record(ctx, job, AuditActionStart, from, domain.JobStateRunning, map[string]any{"attempt": job.Attempts})
	logger.Info("job.execute.started", "attempt", job.Attempts)

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	e.track(id, cancel)
	defer e.untrack(id)

	if e.cfg.HardTimeout > 0 {
		var stop context.CancelFunc
		runCtx, stop = context.WithTimeoutCause(runCtx, e.cfg.HardTimeout, errHardTimeout)
		defer stop()
	}
	if soft := e.cfg.SoftTimeout; soft > 0 && (e.cfg.HardTimeout <= 0 || soft < e.cfg.HardTimeout) {
		timer := time.AfterFunc(soft, func() {
			logger.Warn("job.execute.soft_timeout", "elapsed", soft.String())
		})
		defer timer.Stop()
	}

	runReq := job.Request()
	runReq.Inline = inline
	stats, runErr := e.runner.Run(runCtx, runReq)
	return e.finish(ctx, job, stats, runErr, context.Cause(runCtx), logger)
}

func (e *Executor) finish(ctx context.Context, job *TranslationJob, stats orchestrator.Stats, runErr, cause error, logger interfaces.Logger) (*TranslationJob, error) {
	persistCtx := context.WithoutCancel(ctx)
	now := e.now()
	stored := cloneStats(stats)
	job.Stats = &stored
	job.Errors = append([]string(nil), stats.Errors...)
	job.UpdatedAt = now
	job.FinishedAt = &now

	var result error
	switch {
	case runErr == nil:
		job.State = domain.JobStateDone
		job.Retryable = false
	case errors.Is(cause, errCancelled):
		result = cancelledError()
		e.markFailed(job, MessageJobCancelled, false)
	case errors.Is(cause, errHardTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		result = domain.TranslationTimeout(runErr)
		e.markFailed(job, domain.MessageTranslationTimeout, false)
	case ctx.Err() != nil:
		interrupted := goerrors.NewRetryable(messageJobInterrupted, goerrors.CategoryOperation).WithTextCode(TextCodeJobInterrupted)
		interrupted.Source = runErr
		result = interrupted
		e.markFailed(job, messageJobInterrupted, true)
	case domain.HasTextCode(runErr, domain.TextCodeTranslationTimeout):
		result = runErr
		e.markFailed(job, domain.MessageTranslationTimeout, false)
	case domain.IsValidation(runErr) || goerrors.IsCategory(runErr, goerrors.CategoryAuthz):
		result = runErr
		e.markFailed(job, domain.Message(runErr), false)
	default:
		result = domain.AsRetryable(runErr)
		e.markFailed(job, domain.Message(runErr), true)
	}

	updated, err := e.repo.Finish(persistCtx, job)
	if err != nil {
		var conflict *StateConflictError
		if errors.As(err, &conflict) {
			// someone else settled or reclaimed the job while it ran
			logger.Warn("job.execute.outcome_dropped", "state", conflict.Actual, "attempt", job.Attempts)
			return e.settledElsewhere(persistCtx, job.ID)
		}
		logger.Error("job.execute.persist_failed", "error", err)
		return job, err
	}
	if updated.State == domain.JobStateDone {
		e.record(persistCtx, updated, AuditActionDone, domain.JobStateRunning, domain.JobStateDone, map[string]any{
			"processed": stats.Processed,
			"skipped":   stats.Skipped,
		})
		logger.Info("job.execute.completed",
			"processed", stats.Processed,
			"skipped", stats.Skipped,
			"errors", len(stats.Errors),
		)
		return updated, nil
	}
	e.record(persistCtx, updated, AuditActionFail, domain.JobStateRunning, domain.JobStateFailed, map[string]any{
		"retryable": updated.Retryable,
		"error":     domain.Message(result),
	})
	logger.Error("job.execute.failed", "retryable", updated.Retryable, "error", domain.Message(result))
	return updated, result
}

// settledElsewhere returns the stored job after a dropped outcome along with
// the error that matches its state.
func (e *Executor) settledElsewhere(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	current, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.State {
	case domain.JobStateRunning, domain.JobStateQueued:
		return current, domain.JobRunning(id.String())
	case domain.JobStateFailed:
		if len(current.Errors) > 0 && current.Errors[len(current.Errors)-1] == MessageJobCancelled {
			return current, cancelledError()
		}
		return current, goerrors.New(lastError(current), goerrors.CategoryOperation)
	}
	return current, nil
}

func lastError(job *TranslationJob) string {
	if len(job.Errors) == 0 {
		return domain.MessageTranslationFailed
	}
	return job.Errors[len(job.Errors)-1]
}

func (e *Executor) markFailed(job *TranslationJob, message string, retryable bool) {
	job.State = domain.JobStateFailed
	job.Retryable = retryable
	if message != "" {
		job.Errors = append(job.Errors, message)
	}
}

// Cancel stops a job. A job running in this process has its context
// cancelled and Execute records the failure; a job running elsewhere or
// still queued is failed directly and its queue task cancelled.
func (e *Executor) Cancel(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	job, err := e.get(ctx, id)
	if err != nil {
		return nil, err
	}
	logger := logging.WithJobContext(e.logger, job.TenantID, id.String(), "")

	switch job.State {
	case domain.JobStateRunning:
		if e.cancelLocal(id) {
			e.record(ctx, job, AuditActionCancel, domain.JobStateRunning, domain.JobStateRunning, nil)
			logger.Info("job.cancel.signalled")
			return job, nil
		}
		job, err = e.fail(ctx, job, domain.JobStateRunning, MessageJobCancelled)
	case domain.JobStateQueued:
		job, err = e.fail(ctx, job, domain.JobStateQueued, MessageJobCancelled)
		if err == nil {
			e.cancelTask(ctx, job, logger)
		}
	default:
		return job, nil
	}
	if err != nil {
		return nil, err
	}
	e.record(ctx, job, AuditActionCancel, "", domain.JobStateFailed, nil)
	logger.Info("job.cancel.completed")
	return job, nil
}

// Get returns a job by id.
func (e *Executor) Get(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	return e.get(ctx, id)
}

// List returns the jobs of a tenant, newest first.
func (e *Executor) List(ctx context.Context, tenantID string) ([]*TranslationJob, error) {
	return e.repo.List(ctx, strings.TrimSpace(tenantID))
}

// HandleTask executes the job referenced by a queued sync task. A conflict
// with a concurrent execution is reported as retryable.
func (e *Executor) HandleTask(ctx context.Context, task *interfaces.Task) error {
	id, err := parseJobID(task.Payload)
	if err != nil {
		return err
	}
	_, err = e.Execute(ctx, id)
	if err != nil && goerrors.IsCategory(err, goerrors.CategoryConflict) {
		return domain.AsRetryable(err)
	}
	return err
}

func (e *Executor) fail(ctx context.Context, job *TranslationJob, from domain.JobState, message string) (*TranslationJob, error) {
	return e.transitionFailed(ctx, job, from, message, false)
}

func (e *Executor) transitionFailed(ctx context.Context, job *TranslationJob, from domain.JobState, message string, retryable bool) (*TranslationJob, error) {
	moved, err := e.repo.Transition(ctx, job.ID, from, domain.JobStateFailed, e.now())
	if err != nil {
		return nil, err
	}
	e.markFailed(moved, message, retryable)
	return e.repo.Update(ctx, moved)
}

func (e *Executor) cancelTask(ctx context.Context, job *TranslationJob, logger interfaces.Logger) {
	if e.scheduler == nil {
		return
	}
	var err error
	if job.TaskID != "" {
		err = e.scheduler.Cancel(ctx, job.TaskID)
	} else {
		err = e.scheduler.CancelByKey(ctx, scheduler.TranslationSyncTaskKey(job.ID))
	}
	if err != nil && !errors.Is(err, interfaces.ErrTaskNotFound) {
		logger.Warn("job.cancel.task_failed", "task_id", job.TaskID, "error", err)
	}
}

func (e *Executor) stale(job *TranslationJob) bool {
	if e.cfg.HardTimeout <= 0 || job.StartedAt == nil {
		return false
	}
	if e.owned(job.ID) {
		return false
	}
	return e.now().Sub(*job.StartedAt) > e.cfg.HardTimeout+staleGrace
}

func (e *Executor) get(ctx context.Context, id uuid.UUID) (*TranslationJob, error) {
	job, err := e.repo.GetByID(ctx, id)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, domain.NotFound("translation job", id.String())
		}
		return nil, err
	}
	return job, nil
}

func (e *Executor) track(id uuid.UUID, cancel context.CancelCauseFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running[id] = cancel
}

func (e *Executor) untrack(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, id)
}

func (e *Executor) owned(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[id]
	return ok
}

func (e *Executor) cancelLocal(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	cancel, ok := e.running[id]
	if ok {
		cancel(errCancelled)
	}
	return ok
}

func (e *Executor) record(ctx context.Context, job *TranslationJob, action string, from, to domain.JobState, meta map[string]any) {
	if e.audit == nil || job == nil {
		return
	}
	if err := e.audit.Record(ctx, AuditEvent{
		JobID:      job.ID.String(),
		TenantID:   job.TenantID,
		Action:     action,
		From:       from,
		To:         to,
		OccurredAt: e.now(),
		Metadata:   meta,
	}); err != nil {
		e.logger.Warn("job.audit.failed", "job_id", job.ID.String(), "action", action, "error", err)
	}
}

func cancelledError() error {
	return goerrors.New(MessageJobCancelled, goerrors.CategoryOperation).WithTextCode(TextCodeJobCancelled)
}

func parseJobID(payload map[string]any) (uuid.UUID, error) {
	if err := validation.Check(validation.SchemaSyncTask, payload); err != nil {
		return uuid.Nil, err
	}
	raw, _ := payload["job_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.InvalidInput("jobs: invalid job_id payload")
	}
	return id, nil
}
