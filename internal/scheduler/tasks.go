package scheduler

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	TaskTypeTranslationsSync    = "locsync.translations.sync"
	TaskTypeEmbeddingsVectorize = "locsync.embeddings.vectorize"
)

const maxRetryDelay = 5 * time.Minute

// TranslationSyncTaskKey dedupes queue entries for a translation job.
func TranslationSyncTaskKey(jobID uuid.UUID) string {
	return "translation_job:" + jobID.String() + ":sync"
}

// VectorizeTaskKey dedupes vectorization sweeps for the same tenant and scopes.
func VectorizeTaskKey(tenantID string, scopes []string) string {
	return "vectorize:" + strings.TrimSpace(tenantID) + ":" + strings.Join(scopes, ",")
}

// RetryDelay doubles base for every attempt after the first, capped at five minutes.
func RetryDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}
