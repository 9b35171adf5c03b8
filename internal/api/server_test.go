package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/auth"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/progress"
)

type fakeEnqueuer struct {
	accepted map[string]bool
	enqueued []string
}

func newFakeEnqueuer() *fakeEnqueuer {
	return &fakeEnqueuer{accepted: make(map[string]bool)}
}

func (f *fakeEnqueuer) EnqueueUnique(taskType string, payload any, dedupKey string, opts ...asynq.Option) (string, error) {
	key := taskType + "/" + dedupKey
	if f.accepted[key] {
		return "dup", nil
	}
	f.accepted[key] = true
	f.enqueued = append(f.enqueued, dedupKey)
	return key, nil
}

func testServer(t *testing.T, hubSecret string) (*Server, *fakeEnqueuer) {
	t.Helper()
	cfg := &config.Config{HubSecret: hubSecret}
	queue := newFakeEnqueuer()
	s := NewServer(cfg, auth.New("test-secret", ""), queue, progress.NewHub(), nil, nil, nil)
	return s, queue
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := testServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestTriggerVideoEnqueuesIngest(t *testing.T) {
	s, queue := testServer(t, "")
	body := strings.NewReader(`{"video_id": "vid-1", "user_id": "u1"}`)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("trigger returned %d: %s", rec.Code, rec.Body.String())
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != "vid-1:0" {
		t.Fatalf("unexpected enqueues: %v", queue.enqueued)
	}
}

func TestTriggerVideoDuplicateCollapses(t *testing.T) {
	s, queue := testServer(t, "")
	for range 2 {
		body := strings.NewReader(`{"video_id": "vid-1"}`)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/videos", body))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("trigger returned %d", rec.Code)
		}
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected one enqueue, got %v", queue.enqueued)
	}
}

func TestWebhookChallengeEcho(t *testing.T) {
	s, _ := testServer(t, "")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/youtube?hub.challenge=abc123", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("challenge returned %d", rec.Code)
	}
	if rec.Body.String() != "abc123" {
		t.Fatalf("challenge body = %q", rec.Body.String())
	}
}

const pushNotification = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <yt:channelId>UC-test</yt:channelId>
    <title>New upload</title>
  </entry>
</feed>`

func signBody(secret, body string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookNotifyEnqueuesIngest(t *testing.T) {
	s, queue := testServer(t, "hub-secret")
	req := httptest.NewRequest(http.MethodPost, "/webhook/youtube", strings.NewReader(pushNotification))
	req.Header.Set("X-Hub-Signature", signBody("hub-secret", pushNotification))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("notify returned %d", rec.Code)
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0] != "dQw4w9WgXcQ:0" {
		t.Fatalf("unexpected enqueues: %v", queue.enqueued)
	}
}

func TestWebhookNotifyRejectsBadSignature(t *testing.T) {
	s, queue := testServer(t, "hub-secret")
	req := httptest.NewRequest(http.MethodPost, "/webhook/youtube", strings.NewReader(pushNotification))
	req.Header.Set("X-Hub-Signature", signBody("wrong-secret", pushNotification))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("notify with bad signature returned %d", rec.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Fatalf("bad signature should not enqueue, got %v", queue.enqueued)
	}
}

func TestWebhookNotifySkipsSignatureWhenNoSecret(t *testing.T) {
	s, queue := testServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/webhook/youtube", strings.NewReader(pushNotification))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("notify returned %d", rec.Code)
	}
	if len(queue.enqueued) != 1 {
		t.Fatalf("expected one enqueue, got %v", queue.enqueued)
	}
}
