// Package scheduler runs the ingestion pipeline on a periodic schedule via
// asynq: a cron-driven enqueuer produces leadsync.run tasks and a worker
// consumes them one at a time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadbridge/internal/ingest"
	"leadbridge/platform/config"
	"leadbridge/platform/logger"

	"github.com/hibiken/asynq"
)

// PipelineRunner executes a full ingestion run for a day.
// Satisfied by ingest.Pipeline.
type PipelineRunner interface {
	Run(ctx context.Context, day time.Time) ingest.RunReport
}

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	pipeline  PipelineRunner
	log       *logger.Logger
}

// NewWorker builds the asynq server plus the periodic enqueuer. Concurrency
// is pinned to 1: the ledger permits only one run at a time.
func NewWorker(cfg config.SchedulerConfig, pipeline PipelineRunner, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, nil)
	task, err := NewLeadSyncRunTask(LeadSyncRunPayload{})
	if err != nil {
		return nil, err
	}
	if _, err := periodic.Register(cfg.GetSyncCronSpec(), task, asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register sync schedule: %w", err)
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: periodic,
		mux:       mux,
		pipeline:  pipeline,
		log:       log,
	}

	mux.HandleFunc(TaskLeadSyncRun, w.handleLeadSyncRun)

	return w, nil
}

func (w *Worker) handleLeadSyncRun(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadSyncRunPayload(task)
	if err != nil {
		return err
	}

	day, err := payload.Day(time.Now())
	if err != nil {
		return fmt.Errorf("invalid run date %q: %w", payload.Date, err)
	}

	report := w.pipeline.Run(ctx, day)
	for _, s := range report.Sources {
		w.log.Info("scheduled sync source done",
			"source", string(s.Source),
			"fetched", s.Fetched,
			"created", s.Created,
			"skipped", s.Skipped,
			"failed", s.Failed,
			"fetch_failed", s.FetchFailed,
		)
	}

	// Failed leads stay off the ledger, so the next scheduled run picks
	// them up; there is nothing for asynq to retry.
	if !report.Clean() {
		w.log.Warn("scheduled sync finished with failures")
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.scheduler.Shutdown()
		w.server.Shutdown()
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.log.Error("periodic enqueuer stopped", "error", err)
		}
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
