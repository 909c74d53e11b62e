package scheduler

import (
	"context"
	"fmt"

	leadsync "builderportal_backend/internal/leads/sync"
	"builderportal_backend/platform/config"
	"builderportal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	sync      *leadsync.Service
	log       *logger.Logger
}

// NewWorker builds the asynq server that processes sheet sync tasks and the
// periodic scheduler that enqueues one on every interval tick.
func NewWorker(cfg config.SchedulerConfig, syncService *leadsync.Service, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	periodic := asynq.NewScheduler(opt, nil)
	interval := cfg.GetSheetSyncInterval()
	if interval > 0 {
		task, err := NewSheetSyncTask(SheetSyncPayload{Trigger: "interval"})
		if err != nil {
			return nil, err
		}
		spec := fmt.Sprintf("@every %s", interval)
		if _, err := periodic.Register(spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register periodic sheet sync: %w", err)
		}
	}

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		scheduler: periodic,
		mux:       mux,
		sync:      syncService,
		log:       log,
	}

	mux.HandleFunc(TaskSheetSync, w.handleSheetSync)

	return w, nil
}

func (w *Worker) handleSheetSync(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSheetSyncPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("starting sheet sync pass", "trigger", payload.Trigger)
	summary, err := w.sync.RunFullSync(ctx)
	if err != nil {
		return err
	}
	w.log.Info("sheet sync pass finished",
		"trigger", payload.Trigger,
		"synced", summary.Synced,
		"skipped", summary.Skipped,
		"errored", summary.Errored,
	)
	return nil
}

// Run blocks until ctx is cancelled, then shuts both components down.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Run(); err != nil {
				w.log.Error("periodic scheduler stopped", "error", err)
			}
		}()
	}

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
