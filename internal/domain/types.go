package domain

import "strings"

// Origin records how a translation text was produced.
type Origin string

const (
	// OriginHuman marks text entered or reviewed by a person
	OriginHuman Origin = "human"
	// OriginLLM marks text produced by a generative provider
	OriginLLM Origin = "llm"
	// OriginTM marks text served from the translation memory cache
	OriginTM Origin = "tm"
)

// Valid reports whether the origin is one of the known values.
func (o Origin) Valid() bool {
	switch o {
	case OriginHuman, OriginLLM, OriginTM:
		return true
	default:
		return false
	}
}

// ParseOrigin coerces arbitrary input into an Origin, returning false for
// unknown values.
func ParseOrigin(input string) (Origin, bool) {
	origin := Origin(strings.ToLower(strings.TrimSpace(input)))
	return origin, origin.Valid()
}

// JobState represents the lifecycle of a translation job.
type JobState string

const (
	JobStateQueued  JobState = "queued"
	JobStateRunning JobState = "running"
	JobStateDone    JobState = "done"
	JobStateFailed  JobState = "failed"
)

// Terminal reports whether no further transition is expected from the state.
func (s JobState) Terminal() bool {
	return s == JobStateDone || s == JobStateFailed
}

// CanTransition reports whether a job may move from one state to another.
// A failed job may only re-enter running when its failure was retryable.
func CanTransition(from, to JobState, retryable bool) bool {
	switch from {
	case JobStateQueued:
		return to == JobStateRunning || to == JobStateFailed
	case JobStateRunning:
		return to == JobStateDone || to == JobStateFailed
	case JobStateFailed:
		return to == JobStateRunning && retryable
	default:
		return false
	}
}

// SubmitMode selects between inline and queued job execution.
type SubmitMode string

const (
	SubmitInline SubmitMode = "inline"
	SubmitQueued SubmitMode = "queued"
)
