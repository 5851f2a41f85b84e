package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/jobward/jobward/engine"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
)

func TestReapDeadJobsKillsStaleJobs(t *testing.T) {
	e, st, clock := newTestEngine(t, job.NewRegistry())
	ctx := context.Background()

	stale := job.New(id.NewJobID(), "import", clock.Now(), "test-host")
	if err := st.CreateOrUpdate(ctx, stale); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}
	if err := st.Acquire(ctx, "import", stale.ID, nil); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	clock.Advance(2 * time.Minute)

	fresh := job.New(id.NewJobID(), "export", clock.Now(), "test-host")
	if err := st.CreateOrUpdate(ctx, fresh); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}
	if err := st.Acquire(ctx, "export", fresh.ID, nil); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := e.ReapDeadJobs(ctx, time.Minute); err != nil {
		t.Fatalf("ReapDeadJobs: %v", err)
	}

	killed, _ := e.FindJob(ctx, stale.ID)
	if killed.Status != job.StatusDead {
		t.Errorf("stale job status = %q, want DEAD", killed.Status)
	}
	if !killed.IsStopped() {
		t.Error("stale job is not terminal after reaping")
	}
	if len(killed.Messages) != 1 || killed.Messages[0].Level != job.LevelWarning {
		t.Errorf("stale job messages = %v, want one WARNING entry", killed.Messages)
	}

	untouched, _ := e.FindJob(ctx, fresh.ID)
	if untouched.IsStopped() || untouched.Status != job.StatusOK {
		t.Errorf("fresh job = status %q stopped %v, want untouched",
			untouched.Status, untouched.IsStopped())
	}

	running, _ := e.RunningJobs(ctx)
	if len(running) != 1 || running[0].JobType != "export" {
		t.Errorf("RunningJobs after reap = %v, want only the export lock", running)
	}
}

func TestReapClearsLockWithMissingRecord(t *testing.T) {
	e, st, clock := newTestEngine(t, job.NewRegistry())
	ctx := context.Background()

	// A crash between lock acquisition and record persistence leaves a
	// lock entry pointing at nothing.
	if err := st.Acquire(ctx, "import", id.NewJobID(), nil); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	clock.Advance(time.Hour)
	if err := e.ReapDeadJobs(ctx, time.Minute); err != nil {
		t.Fatalf("ReapDeadJobs: %v", err)
	}

	running, _ := e.RunningJobs(ctx)
	if len(running) != 0 {
		t.Errorf("RunningJobs = %v, want the leaked lock cleared", running)
	}
}

func TestReapClearsLockWithStoppedRecord(t *testing.T) {
	e, st, clock := newTestEngine(t, job.NewRegistry())
	ctx := context.Background()

	stopped := job.New(id.NewJobID(), "import", clock.Now(), "test-host")
	stoppedAt := clock.Now()
	stopped.Stopped = &stoppedAt
	if err := st.CreateOrUpdate(ctx, stopped); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}
	if err := st.Acquire(ctx, "import", stopped.ID, nil); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	if err := e.ReapDeadJobs(ctx, time.Minute); err != nil {
		t.Fatalf("ReapDeadJobs: %v", err)
	}

	running, _ := e.RunningJobs(ctx)
	if len(running) != 0 {
		t.Errorf("RunningJobs = %v, want the stopped job's lock cleared", running)
	}
}

func TestReapNotifiesDeadHook(t *testing.T) {
	recorder := &recordingExtension{}
	e, st, clock := newTestEngine(t, job.NewRegistry(), engine.WithExtension(recorder))
	ctx := context.Background()

	stale := job.New(id.NewJobID(), "import", clock.Now(), "test-host")
	if err := st.CreateOrUpdate(ctx, stale); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}

	clock.Advance(time.Hour)
	if err := e.ReapDeadJobs(ctx, time.Minute); err != nil {
		t.Fatalf("ReapDeadJobs: %v", err)
	}

	if !recorder.has("dead:import") {
		t.Error("JobDead hook was not called for the reaped job")
	}
}

func TestReapIgnoresFreshJobs(t *testing.T) {
	e, st, clock := newTestEngine(t, job.NewRegistry())
	ctx := context.Background()

	fresh := job.New(id.NewJobID(), "import", clock.Now(), "test-host")
	if err := st.CreateOrUpdate(ctx, fresh); err != nil {
		t.Fatalf("CreateOrUpdate: %v", err)
	}

	// Threshold exactly at the record's age: LastUpdated is not strictly
	// before the cutoff, so nothing is reaped.
	if err := e.ReapDeadJobs(ctx, 0); err != nil {
		t.Fatalf("ReapDeadJobs: %v", err)
	}

	j, _ := e.FindJob(ctx, fresh.ID)
	if j.IsStopped() {
		t.Error("fresh job was reaped at the cutoff boundary")
	}
}
