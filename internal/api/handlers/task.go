package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peerwatch/peerwatch/internal/pkg/errors"
	"github.com/peerwatch/peerwatch/internal/pkg/logger"
	"github.com/peerwatch/peerwatch/internal/pkg/utils"
	"github.com/peerwatch/peerwatch/internal/worker"
)

// TaskHandler exposes the background scheduler for inspection and manual runs
type TaskHandler struct {
	scheduler *worker.Scheduler
	logger    *logger.Logger
}

func NewTaskHandler(s *worker.Scheduler, log *logger.Logger) *TaskHandler {
	return &TaskHandler{scheduler: s, logger: log}
}

// List returns the names of all registered tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"tasks": h.scheduler.TaskNames(),
	})
}

// Run triggers one task immediately, outside its normal schedule
func (h *TaskHandler) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	known := false
	for _, n := range h.scheduler.TaskNames() {
		if n == name {
			known = true
			break
		}
	}
	if !known {
		utils.WriteError(w, errors.NotFound("task"))
		return
	}

	if err := h.scheduler.RunTask(r.Context(), name); err != nil {
		utils.WriteError(w, errors.Internal("task run failed", err))
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "task completed", nil)
}
