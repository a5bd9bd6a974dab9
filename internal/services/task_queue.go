package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/onboardhub/backend/internal/config"
	"github.com/onboardhub/backend/pkg/logger"
)

const (
	TaskTypeCourseGenerate = "course:generate"
)

// Course generation reasons. Creation runs fall back to placeholder modules
// when the generator is unreachable; regenerations keep the existing course.
const (
	CourseReasonCreate     = "create"
	CourseReasonRegenerate = "regenerate"
)

// CourseTask asks for a project's course to be (re)generated.
type CourseTask struct {
	ProjectID   uint   `json:"project_id"`
	RequestedBy uint   `json:"requested_by"`
	Reason      string `json:"reason"`
}

// CourseProcessor runs one course generation task.
type CourseProcessor func(context.Context, *CourseTask) error

// TaskQueue defines the interface for course generation processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *CourseTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue picks the Redis backed queue when enabled and reachable, the
// in-process queue otherwise.
func NewTaskQueue(cfg *config.RedisConfig, processor CourseProcessor) TaskQueue {
	if cfg != nil && cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
			return queue
		}
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
	} else {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	}
	q := NewSyncQueue()
	q.SetProcessor(processor)
	return q
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

const courseQueue = "default"

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)
	inspector := asynq.NewInspector(opt)

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		inspector.Close()
		return nil, err
	}

	return &AsyncQueue{client: client, inspector: inspector}, nil
}

// courseTaskID keeps at most one pending generation per project in Redis.
func courseTaskID(projectID uint) string {
	return fmt.Sprintf("course-%d", projectID)
}

// Enqueue schedules a generation. While a task for the project is pending,
// scheduled, retrying or running, the request is absorbed by it. An archived
// or completed task still holds the ID, so it is removed and the task is
// enqueued again.
func (q *AsyncQueue) Enqueue(task *CourseTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	id := courseTaskID(task.ProjectID)
	t := asynq.NewTask(TaskTypeCourseGenerate, payload)
	opts := []asynq.Option{
		asynq.Queue(courseQueue),
		asynq.MaxRetry(3),
		asynq.Timeout(5 * time.Minute),
		asynq.TaskID(id),
	}

	info, err := q.client.Enqueue(t, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		released, rerr := q.releaseFinished(id)
		if rerr != nil {
			return rerr
		}
		if !released {
			logger.Infof("[AsyncQueue] Course generation for project %d already queued", task.ProjectID)
			return nil
		}
		info, err = q.client.Enqueue(t, opts...)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			logger.Infof("[AsyncQueue] Course generation for project %d already queued", task.ProjectID)
			return nil
		}
	}
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

// releaseFinished deletes the task holding id when it will never run again.
// It reports whether the ID is free.
func (q *AsyncQueue) releaseFinished(id string) (bool, error) {
	info, err := q.inspector.GetTaskInfo(courseQueue, id)
	if errors.Is(err, asynq.ErrTaskNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect task %s: %w", id, err)
	}

	switch info.State {
	case asynq.TaskStateArchived, asynq.TaskStateCompleted:
		err := q.inspector.DeleteTask(courseQueue, id)
		if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return false, fmt.Errorf("delete finished task %s: %w", id, err)
		}
		logger.Infof("[AsyncQueue] Released %s task %s", info.State, id)
		return true, nil
	}
	return false, nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	q.inspector.Close()
	return q.client.Close()
}

// SyncQueue runs tasks in background goroutines of the current process.
type SyncQueue struct {
	processor CourseProcessor
	wg        sync.WaitGroup
	mu        sync.Mutex
	running   map[uint]bool
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{running: make(map[uint]bool)}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor CourseProcessor) {
	q.processor = processor
}

// Enqueue starts the task in a goroutine. A second task for a project whose
// generation is still running is dropped.
func (q *SyncQueue) Enqueue(task *CourseTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] Warning: no processor set, task will be dropped")
		return nil
	}

	q.mu.Lock()
	if q.running[task.ProjectID] {
		q.mu.Unlock()
		logger.Infof("[SyncQueue] Course generation for project %d already running", task.ProjectID)
		return nil
	}
	q.running[task.ProjectID] = true
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer func() {
			q.mu.Lock()
			delete(q.running, task.ProjectID)
			q.mu.Unlock()
		}()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Warnf("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Wait blocks until every started task has finished.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

// Close waits for running tasks.
func (q *SyncQueue) Close() error {
	q.Wait()
	return nil
}
