// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"farmer-assistant-workers/internal/common/metrics"
	"farmer-assistant-workers/internal/common/observability"
)

// HandlerFunc is the signature every worker's Handle method satisfies.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerOptions controls how a job worker polls the broker.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// StartWorker opens a job worker for taskType with the handler wrapped by Instrument.
func StartWorker(
	client zbc.Client,
	taskType string,
	opts WorkerOptions,
	handler HandlerFunc,
	obs *observability.Observability,
	logger *zap.Logger,
) worker.JobWorker {
	builder := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handler, obs, logger)))

	if opts.MaxJobsActive > 0 {
		builder = builder.MaxJobsActive(opts.MaxJobsActive)
	}
	if opts.Timeout > 0 {
		builder = builder.Timeout(opts.Timeout)
	}

	jw := builder.Open()

	logger.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", opts.MaxJobsActive),
		zap.Duration("timeout", opts.Timeout),
	)
	return jw
}

// Instrument wraps a handler with a span, the worker_* Prometheus collectors
// and panic recovery. A panicking handler fails the job with INTERNAL_ERROR.
func Instrument(taskType string, handler HandlerFunc, obs *observability.Observability, logger *zap.Logger) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		ctx, span := obs.StartSpan(context.Background(), taskType,
			attribute.Int64("job.key", job.Key),
			attribute.String("job.type", taskType),
		)
		defer span.End()

		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		rc := &recordingClient{JobClient: client}

		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panicked",
					zap.String("taskType", taskType),
					zap.Int64("jobKey", job.Key),
					zap.Any("panic", r),
				)
				rc.failed = true
				rc.errorCode = "INTERNAL_ERROR"
				_, _ = client.NewFailJobCommand().
					JobKey(job.Key).
					Retries(0).
					ErrorMessage(fmt.Sprintf("INTERNAL_ERROR: %v", r)).
					Send(context.Background())
			}

			status := "completed"
			if rc.failed {
				status = "failed"
				metrics.WorkerJobsFailed.WithLabelValues(taskType, rc.errorCode).Inc()
			} else {
				metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
			}

			elapsed := time.Since(start)
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
			obs.RecordJobProcessed(ctx, taskType, status)
			obs.RecordJobDuration(ctx, taskType, elapsed, status)
			span.SetAttributes(attribute.String("job.status", status))
		}()

		handler(rc, job)
	}
}

// recordingClient notes whether the handler failed the job so the outcome
// can be counted without changing the handler signature.
type recordingClient struct {
	worker.JobClient
	failed    bool
	errorCode string
}

func (c *recordingClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.failed = true
	c.errorCode = "JOB_FAILED"
	return c.JobClient.NewFailJobCommand()
}

func (c *recordingClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.failed = true
	c.errorCode = "BPMN_ERROR"
	return c.JobClient.NewThrowErrorCommand()
}
