package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jobward/jobward/job"
)

// meterName is the instrumentation scope name for jobward metrics.
const meterName = "github.com/jobward/jobward"

// Metrics returns middleware that records per-job runtime metrics using
// the global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - jobward.job.runtime (Float64Gauge): wall-clock duration of the last
//     execution in seconds, with attribute: job_type
//   - jobward.job.executions (Int64Counter): total executions,
//     with attributes: job_type, status ("ok" or "error")
//
// The handler's result is passed through untouched.
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	runtime, rErr := meter.Float64Gauge(
		"jobward.job.runtime",
		metric.WithDescription("Wall-clock duration of the last job execution in seconds"),
		metric.WithUnit("s"),
	)
	_ = rErr // noop fallback guaranteed by OTel API contract

	executions, eErr := meter.Int64Counter(
		"jobward.job.executions",
		metric.WithDescription("Total number of job executions"),
		metric.WithUnit("{execution}"),
	)
	_ = eErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, j *job.JobInfo, next Handler) (bool, error) {
		start := time.Now()
		executed, err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		runtime.Record(ctx, elapsed, metric.WithAttributes(
			attribute.String("job_type", j.JobType),
		))
		executions.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job_type", j.JobType),
			attribute.String("status", status),
		))

		return executed, err
	}
}
