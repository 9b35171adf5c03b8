package jobs_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/jobs"
)

// fakeQueue records accepted dedup keys and silently absorbs duplicates,
// mirroring the real queue's TaskID conflict behavior.
type fakeQueue struct {
	mu       sync.Mutex
	accepted map[string]json.RawMessage
	order    []queuedItem
}

type queuedItem struct {
	taskType string
	dedupKey string
	payload  json.RawMessage
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{accepted: make(map[string]json.RawMessage)}
}

func (q *fakeQueue) EnqueueUnique(taskType string, payload interface{}, dedupKey string, opts ...asynq.Option) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := taskType + "/" + dedupKey
	if _, dup := q.accepted[id]; dup {
		return id, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	q.accepted[id] = data
	q.order = append(q.order, queuedItem{taskType: taskType, dedupKey: dedupKey, payload: data})
	return id, nil
}

func (q *fakeQueue) items(taskType string) []queuedItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []queuedItem
	for _, item := range q.order {
		if item.taskType == taskType {
			out = append(out, item)
		}
	}
	return out
}

func TestDedupKeyFormats(t *testing.T) {
	if got := jobs.IngestDedupKey("vid"); got != "vid:0" {
		t.Fatalf("IngestDedupKey = %q", got)
	}
	if got := jobs.AnalyzeDedupKey("vid", 7); got != "vid:7" {
		t.Fatalf("AnalyzeDedupKey = %q", got)
	}
	if got := jobs.SceneDedupKey("vid", 1); got != "vid:1" {
		t.Fatalf("SceneDedupKey = %q", got)
	}
	if got := jobs.SceneDedupKey("vid", 12.5); got != "vid:12.5" {
		t.Fatalf("SceneDedupKey = %q", got)
	}
}

func TestDedupKeysAreDeterministic(t *testing.T) {
	if jobs.AnalyzeDedupKey("vid", 3) != jobs.AnalyzeDedupKey("vid", 3) {
		t.Fatal("analyze dedup key not deterministic")
	}
	if jobs.SceneDedupKey("vid", 4.25) != jobs.SceneDedupKey("vid", 4.25) {
		t.Fatal("scene dedup key not deterministic")
	}
}

func TestEnqueueDuplicateDedupKeyAbsorbed(t *testing.T) {
	q := newFakeQueue()

	first := jobs.AnalyzePayload{Stage: jobs.StageAnalyze, VideoID: "vid", SegmentIndex: 0, SegmentPath: "/tmp/a.mp4"}
	redelivered := jobs.AnalyzePayload{Stage: jobs.StageAnalyze, VideoID: "vid", SegmentIndex: 0, SegmentPath: "/tmp/a.mp4"}

	if _, err := q.EnqueueUnique(jobs.TaskAnalyze, first, jobs.AnalyzeDedupKey("vid", 0)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := q.EnqueueUnique(jobs.TaskAnalyze, redelivered, jobs.AnalyzeDedupKey("vid", 0)); err != nil {
		t.Fatalf("duplicate enqueue: %v", err)
	}

	if got := len(q.items(jobs.TaskAnalyze)); got != 1 {
		t.Fatalf("%d logical items accepted, want 1", got)
	}
}

func TestDistinctDedupKeysBothAccepted(t *testing.T) {
	q := newFakeQueue()
	q.EnqueueUnique(jobs.TaskAnalyze, jobs.AnalyzePayload{VideoID: "vid", SegmentIndex: 0}, jobs.AnalyzeDedupKey("vid", 0))
	q.EnqueueUnique(jobs.TaskAnalyze, jobs.AnalyzePayload{VideoID: "vid", SegmentIndex: 1}, jobs.AnalyzeDedupKey("vid", 1))
	if got := len(q.items(jobs.TaskAnalyze)); got != 2 {
		t.Fatalf("%d items accepted, want 2", got)
	}
}

func TestPayloadStageDiscriminants(t *testing.T) {
	data, err := json.Marshal(jobs.ClipPayload{Stage: jobs.StageClip, VideoID: "vid"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["stage"] != "clip" {
		t.Fatalf("stage discriminant = %v", decoded["stage"])
	}
}
