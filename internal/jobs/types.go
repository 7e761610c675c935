package jobs

import (
	"time"

	"github.com/goliatone/go-locsync/internal/domain"
	"github.com/goliatone/go-locsync/internal/orchestrator"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MessageJobCancelled is recorded on jobs stopped through Cancel.
const MessageJobCancelled = "job cancelled"

// Options are the batch switches persisted with a job.
type Options struct {
	OnlyMissing        bool `json:"only_missing"`
	IncludeSEO         bool `json:"include_seo"`
	SkipIfTargetExists bool `json:"skip_if_target_exists"`
}

// TranslationJob tracks one batch translation from submission to its
// terminal state.
type TranslationJob struct {
	bun.BaseModel `bun:"table:translation_jobs,alias:tj"`

	ID            uuid.UUID           `bun:",pk,type:uuid" json:"id"`
	Name          string              `bun:"name,notnull" json:"name"`
	State         domain.JobState     `bun:"state,notnull" json:"state"`
	TenantID      string              `bun:"tenant_id,notnull" json:"tenant_id"`
	SourceLocale  string              `bun:"source_locale,notnull" json:"source_locale"`
	TargetLocales []string            `bun:"target_locales,type:jsonb" json:"target_locales"`
	ScopeFilter   string              `bun:"scope_filter" json:"scope_filter,omitempty"`
	ItemIDs       []uuid.UUID         `bun:"item_ids,type:jsonb" json:"item_ids,omitempty"`
	Fields        []string            `bun:"fields,type:jsonb" json:"fields,omitempty"`
	Options       Options             `bun:"options,type:jsonb" json:"options"`
	Stats         *orchestrator.Stats `bun:"stats,type:jsonb,nullzero" json:"stats,omitempty"`
	Errors        []string            `bun:"errors,type:jsonb" json:"errors,omitempty"`
	TaskID        string              `bun:"task_id" json:"task_id,omitempty"`
	Attempts      int                 `bun:"attempts,notnull,default:0" json:"attempts"`
	Retryable     bool                `bun:"retryable,notnull,default:false" json:"retryable"`
	StartedAt     *time.Time          `bun:"started_at,nullzero" json:"started_at,omitempty"`
	FinishedAt    *time.Time          `bun:"finished_at,nullzero" json:"finished_at,omitempty"`
	CreatedAt     time.Time           `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time           `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Request rebuilds the orchestrator request the job was submitted with.
func (j *TranslationJob) Request() orchestrator.Request {
	return orchestrator.Request{
		TenantID:           j.TenantID,
		ItemIDs:            append([]uuid.UUID(nil), j.ItemIDs...),
		Scope:              j.ScopeFilter,
		Fields:             append([]string(nil), j.Fields...),
		SourceLang:         j.SourceLocale,
		TargetLangs:        append([]string(nil), j.TargetLocales...),
		OnlyMissing:        j.Options.OnlyMissing,
		IncludeSEO:         j.Options.IncludeSEO,
		SkipIfTargetExists: j.Options.SkipIfTargetExists,
		JobID:              j.ID.String(),
	}
}

func newJobFromRequest(id uuid.UUID, name string, req orchestrator.Request, now time.Time) *TranslationJob {
	return &TranslationJob{
		ID:            id,
		Name:          name,
		State:         domain.JobStateQueued,
		TenantID:      req.TenantID,
		SourceLocale:  req.SourceLang,
		TargetLocales: append([]string(nil), req.TargetLangs...),
		ScopeFilter:   req.Scope,
		ItemIDs:       append([]uuid.UUID(nil), req.ItemIDs...),
		Fields:        append([]string(nil), req.Fields...),
		Options: Options{
			OnlyMissing:        req.OnlyMissing,
			IncludeSEO:         req.IncludeSEO,
			SkipIfTargetExists: req.SkipIfTargetExists,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func cloneJob(job *TranslationJob) *TranslationJob {
	if job == nil {
		return nil
	}
	cloned := *job
	cloned.TargetLocales = append([]string(nil), job.TargetLocales...)
	cloned.ItemIDs = append([]uuid.UUID(nil), job.ItemIDs...)
	cloned.Fields = append([]string(nil), job.Fields...)
	cloned.Errors = append([]string(nil), job.Errors...)
	if job.Stats != nil {
		stats := cloneStats(*job.Stats)
		cloned.Stats = &stats
	}
	if job.StartedAt != nil {
		started := *job.StartedAt
		cloned.StartedAt = &started
	}
	if job.FinishedAt != nil {
		finished := *job.FinishedAt
		cloned.FinishedAt = &finished
	}
	return &cloned
}

func cloneStats(stats orchestrator.Stats) orchestrator.Stats {
	out := stats
	out.PerLang = make(map[string]int, len(stats.PerLang))
	for k, v := range stats.PerLang {
		out.PerLang[k] = v
	}
	out.OriginBreakdown = make(map[string]int, len(stats.OriginBreakdown))
	for k, v := range stats.OriginBreakdown {
		out.OriginBreakdown[k] = v
	}
	out.Errors = append([]string(nil), stats.Errors...)
	return out
}
