package job_test

import (
	"testing"
	"time"

	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
)

func TestNewJobInfo(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	jobID := id.NewJobID()

	j := job.New(jobID, "import", now, "worker-1")

	if j.ID != jobID {
		t.Errorf("ID = %v, want %v", j.ID, jobID)
	}
	if j.Status != job.StatusOK {
		t.Errorf("Status = %q, want %q", j.Status, job.StatusOK)
	}
	if !j.Started.Equal(now) || !j.LastUpdated.Equal(now) {
		t.Errorf("Started/LastUpdated = %v/%v, want both %v", j.Started, j.LastUpdated, now)
	}
	if j.IsStopped() {
		t.Error("fresh job reports stopped")
	}
	if j.Hostname != "worker-1" {
		t.Errorf("Hostname = %q, want %q", j.Hostname, "worker-1")
	}
}

func TestIsStopped(t *testing.T) {
	now := time.Now()
	j := job.New(id.NewJobID(), "import", now, "h")

	j.Stopped = &now
	if !j.IsStopped() {
		t.Error("job with Stopped set reports running")
	}
}
