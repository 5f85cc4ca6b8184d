package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/thep200/github-top100/internal/crawler"
	"github.com/thep200/github-top100/internal/model"
	"github.com/thep200/github-top100/pkg/log"
)

// Reader answers the read queries of the API.
type Reader interface {
	TopN(ctx context.Context, sortField, order string) ([]model.RankEntry, error)
	GetActivity(ctx context.Context, owner, repo string, since, until time.Time) ([]model.DailyActivity, error)
}

// Syncer runs passes on demand.
type Syncer interface {
	RunOnce(ctx context.Context) (crawler.PassResult, error)
	Stats() crawler.Stats
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping() error
}

// Handler manages HTTP requests for the API
type Handler struct {
	Logger  log.Logger
	Reader  Reader
	Syncer  Syncer
	Pinger  Pinger
	Metrics http.Handler

	// BaseContext is the parent of passes started by POST /sync.
	BaseContext context.Context
}

func NewHandler(logger log.Logger, reader Reader, syncer Syncer, pinger Pinger, metrics http.Handler) *Handler {
	return &Handler{
		Logger:      logger,
		Reader:      reader,
		Syncer:      syncer,
		Pinger:      pinger,
		Metrics:     metrics,
		BaseContext: context.Background(),
	}
}

// RegisterRoutes sets up the HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /repos/top100", h.getTop)
	mux.HandleFunc("GET /repos/{owner}/{repo}/activity", h.getActivity)
	mux.HandleFunc("POST /sync", h.postSync)
	mux.HandleFunc("GET /stats", h.getStats)
	mux.HandleFunc("GET /healthz", h.getHealth)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.Logger.Error(r.Context(), "Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, errorResponse{Error: msg})
}
