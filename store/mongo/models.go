package mongo

import (
	"fmt"
	"time"

	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
)

// ── Job model ─────────────────────────────────────────────────────

type jobModel struct {
	ID          string         `bson:"_id"`
	JobType     string         `bson:"job_type"`
	Started     time.Time      `bson:"started"`
	LastUpdated time.Time      `bson:"last_updated"`
	Stopped     *time.Time     `bson:"stopped,omitempty"`
	Status      string         `bson:"status"`
	Messages    []messageModel `bson:"messages,omitempty"`
	Hostname    string         `bson:"hostname"`
}

type messageModel struct {
	Level     string    `bson:"level"`
	Timestamp time.Time `bson:"ts"`
	Text      string    `bson:"text"`
}

func toJobModel(j *job.JobInfo) *jobModel {
	messages := make([]messageModel, 0, len(j.Messages))
	for _, m := range j.Messages {
		messages = append(messages, messageModel{
			Level:     string(m.Level),
			Timestamp: m.Timestamp,
			Text:      m.Text,
		})
	}

	return &jobModel{
		ID:          j.ID.String(),
		JobType:     j.JobType,
		Started:     j.Started,
		LastUpdated: j.LastUpdated,
		Stopped:     j.Stopped,
		Status:      string(j.Status),
		Messages:    messages,
		Hostname:    j.Hostname,
	}
}

func fromJobModel(m *jobModel) (*job.JobInfo, error) {
	parsedID, err := id.ParseJobID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("jobward/mongo: invalid job id %q: %w", m.ID, err)
	}

	messages := make([]job.Message, 0, len(m.Messages))
	for _, msg := range m.Messages {
		messages = append(messages, job.Message{
			Level:     job.Level(msg.Level),
			Timestamp: msg.Timestamp,
			Text:      msg.Text,
		})
	}
	if len(messages) == 0 {
		messages = nil
	}

	return &job.JobInfo{
		ID:          parsedID,
		JobType:     m.JobType,
		Started:     m.Started,
		LastUpdated: m.LastUpdated,
		Stopped:     m.Stopped,
		Status:      job.Status(m.Status),
		Messages:    messages,
		Hostname:    m.Hostname,
	}, nil
}

func toMessageModel(msg job.Message) messageModel {
	return messageModel{
		Level:     string(msg.Level),
		Timestamp: msg.Timestamp,
		Text:      msg.Text,
	}
}

// ── Meta model ────────────────────────────────────────────────────

// metaModel is the singleton jobmetadata document: the run-lock registry
// (running) and the disabled-types set (disabled).
type metaModel struct {
	ID       string            `bson:"_id"`
	Running  map[string]string `bson:"running,omitempty"`
	Disabled map[string]bool   `bson:"disabled,omitempty"`
}
