package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jobward/jobward/id"
	"github.com/jobward/jobward/job"
	"github.com/jobward/jobward/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testJob(jobType string) *job.JobInfo {
	return job.New(id.NewJobID(), jobType, time.Now().UTC(), "test-host")
}

func TestChainOrder(t *testing.T) {
	var order []string

	tag := func(name string) middleware.Middleware {
		return func(ctx context.Context, _ *job.JobInfo, next middleware.Handler) (bool, error) {
			order = append(order, name+" in")
			executed, err := next(ctx)
			order = append(order, name+" out")
			return executed, err
		}
	}

	chained := middleware.Chain(tag("outer"), tag("inner"))

	executed, err := chained(context.Background(), testJob("import"), func(context.Context) (bool, error) {
		order = append(order, "handler")
		return true, nil
	})
	if err != nil || !executed {
		t.Fatalf("chain result = (%v, %v), want (true, nil)", executed, err)
	}

	want := []string{"outer in", "inner in", "handler", "inner out", "outer out"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestChainEmptyIsPassthrough(t *testing.T) {
	chained := middleware.Chain()

	executed, err := chained(context.Background(), testJob("import"), func(context.Context) (bool, error) {
		return false, nil
	})
	if err != nil {
		t.Fatalf("empty chain error: %v", err)
	}
	if executed {
		t.Error("empty chain altered the handler result")
	}
}

func TestRecoverConvertsPanicToError(t *testing.T) {
	mw := middleware.Recover(testLogger())

	executed, err := mw(context.Background(), testJob("import"), func(context.Context) (bool, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatal("panic was not converted to an error")
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("error = %q, want the panic value included", err)
	}
	if !executed {
		t.Error("recovered execution reported as skipped")
	}
}

func TestRecoverPassesThroughResults(t *testing.T) {
	mw := middleware.Recover(testLogger())
	sentinel := errors.New("handler failed")

	executed, err := mw(context.Background(), testJob("import"), func(context.Context) (bool, error) {
		return false, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want the handler error untouched", err)
	}
	if executed {
		t.Error("executed flag was altered")
	}
}

func TestLoggingPassesThroughResults(t *testing.T) {
	mw := middleware.Logging(testLogger())
	sentinel := errors.New("handler failed")

	executed, err := mw(context.Background(), testJob("import"), func(context.Context) (bool, error) {
		return true, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want the handler error untouched", err)
	}
	if !executed {
		t.Error("executed flag was altered")
	}
}
