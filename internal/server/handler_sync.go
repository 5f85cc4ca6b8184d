package server

import (
	"errors"
	"net/http"

	"github.com/thep200/github-top100/internal/crawler"
)

type syncResponse struct {
	Status string `json:"status"`
}

// postSync starts a pass in the background. The pass outlives the request.
func (h *Handler) postSync(w http.ResponseWriter, r *http.Request) {
	if h.Syncer.Stats().IsRunning {
		h.writeError(w, r, http.StatusConflict, crawler.ErrPassInProgress.Error())
		return
	}

	go func() {
		_, err := h.Syncer.RunOnce(h.BaseContext)
		if errors.Is(err, crawler.ErrPassInProgress) {
			h.Logger.Warn(h.BaseContext, "Requested pass skipped: another pass is running")
		}
	}()

	h.writeJSON(w, r, http.StatusAccepted, syncResponse{Status: "started"})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.Syncer.Stats())
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(); err != nil {
			h.Logger.Warn(r.Context(), "Health check failed: %v", err)
			h.writeError(w, r, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	h.writeJSON(w, r, http.StatusOK, syncResponse{Status: "ok"})
}
