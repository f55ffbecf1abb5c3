package domain

import "strings"

// JobStatus is the normalized state of a remote generation job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ParseJobStatus maps a remote status string onto JobStatus. Unknown values
// are treated as pending.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeeded", "complete", "completed":
		return JobSucceeded
	case "failed":
		return JobFailed
	default:
		return JobPending
	}
}

// GenerationJob is one remote generation as seen by a status query.
type GenerationJob struct {
	ID        string
	Status    JobStatus
	ResultURL string
}

// Ready reports whether the job finished with a usable image.
func (j GenerationJob) Ready() bool {
	return j.Status == JobSucceeded && strings.TrimSpace(j.ResultURL) != ""
}
