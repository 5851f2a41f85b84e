package job

import (
	"time"

	"github.com/jobward/jobward/id"
)

// Status represents the health of a job execution.
// It is orthogonal to terminality: a job is terminal once Stopped is set,
// whatever its status.
type Status string

const (
	// StatusOK means the job is running (or finished) without errors.
	StatusOK Status = "OK"
	// StatusError means at least one ERROR-level message was appended.
	StatusError Status = "ERROR"
	// StatusDead means the job stopped sending keep-alives and was
	// reaped.
	StatusDead Status = "DEAD"
	// StatusSkipped means the job decided there was nothing to do.
	StatusSkipped Status = "SKIPPED"
)

// Level is the severity of a job message.
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
)

// Message is one entry in a job's append-only log.
type Message struct {
	Level     Level     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// NewMessage creates a message with the given level, text, and timestamp.
func NewMessage(level Level, text string, ts time.Time) Message {
	return Message{Level: level, Timestamp: ts, Text: text}
}

// JobInfo is one record per job execution. It is created at start time,
// mutated in place while the job runs (messages appended, timestamps
// refreshed), and never deleted while running.
type JobInfo struct {
	ID          id.JobID   `json:"id"`
	JobType     string     `json:"job_type"`
	Started     time.Time  `json:"started"`
	LastUpdated time.Time  `json:"last_updated"`
	Stopped     *time.Time `json:"stopped,omitempty"`
	Status      Status     `json:"status"`
	Messages    []Message  `json:"messages,omitempty"`
	Hostname    string     `json:"hostname"`
}

// New creates a fresh JobInfo in StatusOK with Started and LastUpdated
// both set to now.
func New(jobID id.JobID, jobType string, now time.Time, hostname string) *JobInfo {
	return &JobInfo{
		ID:          jobID,
		JobType:     jobType,
		Started:     now,
		LastUpdated: now,
		Status:      StatusOK,
		Hostname:    hostname,
	}
}

// IsStopped reports whether the job is terminal.
func (j *JobInfo) IsStopped() bool {
	return j.Stopped != nil
}
