package worker_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jobward/jobward/ext"
	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/middleware"
	"github.com/jobward/jobward/worker"
)

// recordingLifecycle captures the lifecycle calls a Runner makes.
type recordingLifecycle struct {
	mu       sync.Mutex
	calls    []string
	messages []job.Message
}

func (l *recordingLifecycle) record(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *recordingLifecycle) KeepAlive(context.Context, id.JobID) error {
	l.record("keepalive")
	return nil
}

func (l *recordingLifecycle) AppendMessage(_ context.Context, _ id.JobID, msg job.Message) error {
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	l.mu.Unlock()
	l.record("append")
	return nil
}

func (l *recordingLifecycle) MarkSkipped(context.Context, id.JobID) error {
	l.record("skipped")
	return nil
}

func (l *recordingLifecycle) MarkRestarted(context.Context, id.JobID) error {
	l.record("restarted")
	return nil
}

func (l *recordingLifecycle) StopJob(context.Context, id.JobID) error {
	l.record("stop")
	return nil
}

func (l *recordingLifecycle) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func passthrough() middleware.Middleware {
	return middleware.Chain()
}

func newTestRunner(runnable job.Runnable, lifecycle worker.Lifecycle) *worker.Runner {
	jobInfo := job.New(id.NewJobID(), runnable.Definition().JobType, time.Now().UTC(), "test-host")
	return worker.NewRunner(
		jobInfo,
		runnable,
		lifecycle,
		ext.NewRegistry(testLogger()),
		passthrough(),
		0, // no keep-alive loop
		func() time.Time { return time.Now().UTC() },
		testLogger(),
	)
}

func TestRunnerSuccessStopsJob(t *testing.T) {
	lifecycle := &recordingLifecycle{}
	runnable := job.NewFunc(job.Definition{JobType: "import"},
		func(context.Context) (bool, error) { return true, nil })

	newTestRunner(runnable, lifecycle).Run(context.Background())

	calls := lifecycle.snapshot()
	if len(calls) != 1 || calls[0] != "stop" {
		t.Errorf("calls = %v, want only [stop]", calls)
	}
}

func TestRunnerErrorAppendsMessageBeforeStop(t *testing.T) {
	lifecycle := &recordingLifecycle{}
	runnable := job.NewFunc(job.Definition{JobType: "import"},
		func(context.Context) (bool, error) { return true, errors.New("boom") })

	newTestRunner(runnable, lifecycle).Run(context.Background())

	calls := lifecycle.snapshot()
	if len(calls) != 2 || calls[0] != "append" || calls[1] != "stop" {
		t.Fatalf("calls = %v, want [append stop]", calls)
	}

	msg := lifecycle.messages[0]
	if msg.Level != job.LevelError {
		t.Errorf("message level = %q, want ERROR", msg.Level)
	}
	if !strings.Contains(msg.Text, "boom") {
		t.Errorf("message text = %q, want the execution error", msg.Text)
	}
}

func TestRunnerSkipMarksSkipped(t *testing.T) {
	lifecycle := &recordingLifecycle{}
	runnable := job.NewFunc(job.Definition{JobType: "import"},
		func(context.Context) (bool, error) { return false, nil })

	newTestRunner(runnable, lifecycle).Run(context.Background())

	calls := lifecycle.snapshot()
	if len(calls) != 2 || calls[0] != "skipped" || calls[1] != "stop" {
		t.Errorf("calls = %v, want [skipped stop]", calls)
	}
}

func TestRunnerRetriesUntilSuccess(t *testing.T) {
	lifecycle := &recordingLifecycle{}

	attempts := 0
	runnable := job.NewFunc(
		job.Definition{JobType: "import", Retries: 2},
		func(context.Context) (bool, error) {
			attempts++
			if attempts < 3 {
				return true, errors.New("transient")
			}
			return true, nil
		},
	)

	newTestRunner(runnable, lifecycle).Run(context.Background())

	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}

	calls := lifecycle.snapshot()
	// One restart per failed attempt, then a clean stop with no error
	// message appended.
	want := []string{"restarted", "restarted", "stop"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestRunnerRetriesExhausted(t *testing.T) {
	lifecycle := &recordingLifecycle{}

	attempts := 0
	runnable := job.NewFunc(
		job.Definition{JobType: "import", Retries: 1},
		func(context.Context) (bool, error) {
			attempts++
			return true, errors.New("persistent")
		},
	)

	newTestRunner(runnable, lifecycle).Run(context.Background())

	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (initial + 1 retry)", attempts)
	}

	calls := lifecycle.snapshot()
	want := []string{"restarted", "append", "stop"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", calls, want)
		}
	}
}

func TestRunnerKeepAlivePings(t *testing.T) {
	lifecycle := &recordingLifecycle{}

	runnable := job.NewFunc(job.Definition{JobType: "import"},
		func(context.Context) (bool, error) {
			time.Sleep(60 * time.Millisecond)
			return true, nil
		})

	jobInfo := job.New(id.NewJobID(), "import", time.Now().UTC(), "test-host")
	runner := worker.NewRunner(
		jobInfo,
		runnable,
		lifecycle,
		ext.NewRegistry(testLogger()),
		passthrough(),
		10*time.Millisecond,
		func() time.Time { return time.Now().UTC() },
		testLogger(),
	)
	runner.Run(context.Background())

	pings := 0
	for _, call := range lifecycle.snapshot() {
		if call == "keepalive" {
			pings++
		}
	}
	if pings == 0 {
		t.Error("no keep-alive pings recorded during a slow execution")
	}
}
