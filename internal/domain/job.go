package domain

import "time"

// JobKind records which modality a bulk job processes.
type JobKind string

const (
	JobKindText  JobKind = "text"
	JobKindImage JobKind = "image"
)

// Valid reports whether k is a known job kind.
func (k JobKind) Valid() bool {
	return k == JobKindText || k == JobKindImage
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsFinal reports whether s is one of the states a job may be finalized to.
func (s JobStatus) IsFinal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is one bulk generation run. Counters only move forward and are bounded:
// ProcessedItems <= TotalItems and FailedItems <= ProcessedItems.
type Job struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Kind           JobKind   `json:"kind"`
	Status         JobStatus `json:"status"`
	TotalItems     int       `json:"total_items"`
	ProcessedItems int       `json:"processed_items"`
	FailedItems    int       `json:"failed_items"`
	ErrorMessage   *string   `json:"error_message"`
	VoiceID        *string   `json:"voice_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SucceededItems is the number of processed items that produced an artifact.
func (j Job) SucceededItems() int {
	return j.ProcessedItems - j.FailedItems
}

// IndexInRange reports whether index addresses an item of the job.
func (j Job) IndexInRange(index int) bool {
	return index >= 0 && index < j.TotalItems
}

// FinalStatus derives the terminal state of a run from its outcome.
// A cancelled run or a run without a single success is failed.
func FinalStatus(cancelled bool, total, failed int) JobStatus {
	if cancelled || total == 0 || failed >= total {
		return JobStatusFailed
	}
	return JobStatusCompleted
}
