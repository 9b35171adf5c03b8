package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hibiken/asynq"
)

// Enqueuer is the queue surface handlers depend on; tests substitute a fake
// that records accepted dedup keys.
type Enqueuer interface {
	EnqueueUnique(taskType string, payload interface{}, dedupKey string, opts ...asynq.Option) (string, error)
}

// Queue wraps the asynq client and server for the four pipeline stages.
// Construction is explicit: nothing is built at package load, so tests can
// wire in-memory fakes instead.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
}

// Stage queues with their scheduling weights. Ingest outranks the rest so a
// newly triggered video starts chunking before the backlog drains.
var stageQueues = map[string]int{
	QueueIngest:  3,
	QueueAnalyze: 2,
	QueueClip:    2,
	QueuePublish: 1,
}

func NewQueue(redisAddr string, concurrency int) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      stageQueues,
		},
	)
	mux := asynq.NewServeMux()
	inspector := asynq.NewInspector(redisOpt)
	return &Queue{client: client, server: server, mux: mux, inspector: inspector}
}

// isTaskConflict checks whether the error indicates a task ID conflict,
// using errors.Is for unwrapped sentinel values and a string fallback.
func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique enqueues a task whose asynq TaskID is derived from the
// logical dedup key, so redelivered upstream work collapses onto one queued
// item. The TaskID is namespaced by task type because asynq IDs are global,
// while dedup keys are only unique within a stage. A pending or active
// duplicate is silently absorbed; a lingering completed task with the same
// ID is cleared and the enqueue retried.
func (q *Queue) EnqueueUnique(taskType string, payload interface{}, dedupKey string, opts ...asynq.Option) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	uniqueID := taskType + "/" + dedupKey
	opts = append(opts, asynq.TaskID(uniqueID))
	task := asynq.NewTask(taskType, data, opts...)
	info, err := q.client.Enqueue(task)
	if err == nil {
		return info.ID, nil
	}

	if !isTaskConflict(err) {
		return "", fmt.Errorf("enqueue: %w", err)
	}

	cleared := false
	for queueName := range stageQueues {
		if delErr := q.inspector.DeleteTask(queueName, uniqueID); delErr == nil {
			log.Printf("Queue: cleared finished task %s from queue %s", uniqueID, queueName)
			cleared = true
			break
		}
	}

	if cleared {
		info, err = q.client.Enqueue(task)
		if err == nil {
			return info.ID, nil
		}
	}

	// Still conflicting means the task is pending or actively running; the
	// logical item already exists, which is exactly what dedup wants.
	if isTaskConflict(err) {
		log.Printf("Queue: task %s (%s) already queued, skipping", taskType, dedupKey)
		return uniqueID, nil
	}
	return "", fmt.Errorf("enqueue: %w", err)
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

func (q *Queue) Start(ctx context.Context) error {
	log.Println("Pipeline queue workers starting...")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
}

func (q *Queue) Client() *asynq.Client {
	return q.client
}
