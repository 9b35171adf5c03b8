package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/clipforge/clipforge/internal/auth"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/httputil"
	"github.com/clipforge/clipforge/internal/jobs"
	"github.com/clipforge/clipforge/internal/progress"
	"github.com/clipforge/clipforge/internal/repository"
)

// Server exposes the pipeline's outer surface: trigger endpoints, the
// progress websocket and operational run/cost queries.
type Server struct {
	config   *config.Config
	auth     *auth.Auth
	queue    jobs.Enqueuer
	broker   progress.Broker
	runs     *repository.PipelineRepository
	costs    *repository.CostRepository
	settings *repository.SettingsRepository
	router   *http.ServeMux
}

func NewServer(cfg *config.Config, authService *auth.Auth, queue jobs.Enqueuer,
	broker progress.Broker, runs *repository.PipelineRepository, costs *repository.CostRepository,
	settings *repository.SettingsRepository) *Server {
	s := &Server{
		config:   cfg,
		auth:     authService,
		queue:    queue,
		broker:   broker,
		runs:     runs,
		costs:    costs,
		settings: settings,
		router:   http.NewServeMux(),
	}

	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /api/token", s.handleToken)
	s.router.HandleFunc("POST /api/videos", s.handleTriggerVideo)
	s.router.HandleFunc("GET /api/videos/{id}", s.handleGetRun)
	s.router.HandleFunc("GET /api/costs/{user}", s.handleGetCosts)
	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/settings/{key}", s.handlePutSetting)
	s.router.HandleFunc("GET /ws/progress", s.handleProgressSocket)
	s.router.HandleFunc("GET /webhook/youtube", s.handleWebhookChallenge)
	s.router.HandleFunc("POST /webhook/youtube", s.handleWebhookNotify)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleToken exchanges the operator API key for a progress-stream token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
		UserID string `json:"user_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.auth.CheckAPIKey(req.APIKey); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if req.UserID == "" {
		req.UserID = "operator"
	}
	token, err := s.auth.IssueToken(req.UserID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "token issuance failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleTriggerVideo enqueues an ingest item for a video. The dedup key
// makes repeated triggers for the same video collapse onto one run.
func (s *Server) handleTriggerVideo(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.CheckAPIKey(r.Header.Get("X-API-Key")); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}

	var req struct {
		VideoID string `json:"video_id"`
		UserID  string `json:"user_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoID == "" {
		req.VideoID = uuid.NewString()
	}

	if err := s.enqueueIngest(req.VideoID, req.UserID); err != nil {
		log.Printf("API: failed to enqueue ingest for %s: %v", req.VideoID, err)
		httputil.WriteError(w, http.StatusInternalServerError, "enqueue failed")
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"video_id": req.VideoID})
}

func (s *Server) enqueueIngest(videoID, userID string) error {
	payload := jobs.IngestPayload{Stage: jobs.StageIngest, VideoID: videoID, UserID: userID}
	_, err := s.queue.EnqueueUnique(jobs.TaskIngest, payload, jobs.IngestDedupKey(videoID),
		asynq.Queue(jobs.QueueIngest), asynq.MaxRetry(3), asynq.Timeout(2*time.Hour))
	return err
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "run tracking disabled")
		return
	}
	run, err := s.runs.GetRun(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetCosts(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.CheckAPIKey(r.Header.Get("X-API-Key")); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if s.costs == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "cost tracking disabled")
		return
	}
	total, err := s.costs.TotalForUser(r.PathValue("user"))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "cost lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]float64{"total_usd": total})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.CheckAPIKey(r.Header.Get("X-API-Key")); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if s.settings == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings unavailable")
		return
	}
	all, err := s.settings.GetAll()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "settings lookup failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, all)
}

// handlePutSetting stores an operator override. New values are merged over
// the environment at the next boot.
func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.CheckAPIKey(r.Header.Get("X-API-Key")); err != nil {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid api key")
		return
	}
	if s.settings == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "settings unavailable")
		return
	}
	key := r.PathValue("key")
	if !s.settings.IsAllowed(key) {
		httputil.WriteError(w, http.StatusBadRequest, "unknown setting")
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.settings.Set(key, req.Value); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "settings update failed")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{key: req.Value})
}

func (s *Server) validateBearer(r *http.Request) (*auth.Claims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		const prefix = "Bearer "
		header := r.Header.Get("Authorization")
		if len(header) > len(prefix) {
			token = header[len(prefix):]
		}
	}
	if token == "" {
		return nil, errors.New("missing token")
	}
	return s.auth.ValidateToken(token)
}
