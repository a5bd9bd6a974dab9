package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/pkg/logger"
)

// Worker processes async tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor CourseProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				courseQueue: 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) SetProcessor(processor CourseProcessor) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeCourseGenerate, w.handleCourseTask)

	logger.Infof("[Worker] Starting async worker...")
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	w.running = true
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handleCourseTask(ctx context.Context, t *asynq.Task) error {
	return runCourseTask(ctx, w.processor, t.Payload())
}

// runCourseTask decodes and runs a queued task. Tasks that cannot succeed on
// retry are marked with asynq.SkipRetry.
func runCourseTask(ctx context.Context, processor CourseProcessor, payload []byte) error {
	var task CourseTask
	if err := json.Unmarshal(payload, &task); err != nil {
		logger.Warnf("[Worker] Failed to unmarshal task: %v", err)
		return fmt.Errorf("decode course task: %v: %w", err, asynq.SkipRetry)
	}

	logger.Infof("[Worker] Processing course task: project_id=%d, reason=%s", task.ProjectID, task.Reason)

	if processor == nil {
		logger.Warnf("[Worker] Warning: no processor set")
		return nil
	}

	err := processor(ctx, &task)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFormat) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}
