// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/gitrank/internal/app"
	"github.com/okian/gitrank/internal/domain/types"
)

// CycleDependencies defines the interface for cycle control operations.
type CycleDependencies interface {
	RunNow(ctx context.Context) error
	Status() types.CycleStatus
}

// CycleHandler handles update-cycle control requests.
type CycleHandler struct {
	deps CycleDependencies
}

// NewCycleHandler creates a new cycle handler.
func NewCycleHandler(deps CycleDependencies) *CycleHandler {
	return &CycleHandler{deps: deps}
}

// HandleRunCycle handles POST /cycles requests for a manual update trigger.
func (h *CycleHandler) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	const op = "api.run_cycle"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.RunNow(r.Context()); err != nil {
		if errors.Is(err, app.ErrCycleRunning) {
			writeError(w, http.StatusConflict, "cycle_running", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "started"})
}

// HandleCycleStatus handles GET /cycles/status requests.
func (h *CycleHandler) HandleCycleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Status())
}
