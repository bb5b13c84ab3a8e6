package tasks

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Handlers serves the task endpoints
type Handlers struct {
	repo   interfaces.TaskRepository
	resp   *api.Responder
	logger *logger.Logger
}

// NewHandlers creates task handlers
func NewHandlers(repo interfaces.TaskRepository, resp *api.Responder, log *logger.Logger) *Handlers {
	return &Handlers{repo: repo, resp: resp, logger: log}
}

// RegisterRoutes mounts the task routes on the /api subrouter
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tasks", h.createTaskHandler).Methods("POST")
	router.HandleFunc("/tasks", h.listTasksHandler).Methods("GET")
	router.HandleFunc("/tasks/nurse/{nurseId}", h.listAssigneeTasksHandler).Methods("GET")
	router.HandleFunc("/tasks/{id}", h.updateTaskStatusHandler).Methods("PUT")
	router.HandleFunc("/tasks/{id}", h.deleteTaskHandler).Methods("DELETE")
}

func (h *Handlers) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input types.TaskInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	if strings.TrimSpace(input.Title) == "" {
		h.resp.Error(w, r, types.NewValidationError(types.ErrCodeInvalidInput, "title is required", nil), "")
		return
	}
	if input.Status == "" {
		input.Status = types.TaskStatusPending
	}
	h.warnUnknownStatus(r, input.Status)

	task, err := h.repo.Create(r.Context(), &input)
	if err != nil {
		h.resp.Error(w, r, err, "Error creating task")
		return
	}

	h.resp.JSON(w, http.StatusCreated, task)
}

func (h *Handlers) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.repo.List(r.Context())
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching tasks")
		return
	}

	h.resp.JSON(w, http.StatusOK, tasks)
}

func (h *Handlers) listAssigneeTasksHandler(w http.ResponseWriter, r *http.Request) {
	assignee := mux.Vars(r)["nurseId"]

	tasks, err := h.repo.ListByAssignee(r.Context(), assignee)
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching tasks")
		return
	}
	if len(tasks) == 0 {
		h.resp.Error(w, r, types.NewNotFoundError(types.ErrCodeTasksNotFound, "No tasks assigned to this nurse"), "")
		return
	}

	h.resp.JSON(w, http.StatusOK, tasks)
}

func (h *Handlers) updateTaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	var update types.TaskStatusUpdate
	if err := api.Decode(r, &update); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}
	h.warnUnknownStatus(r, update.Status)

	task, err := h.repo.UpdateStatus(r.Context(), id, update.Status)
	if err != nil {
		h.resp.Error(w, r, err, "Error updating task")
		return
	}

	h.resp.JSON(w, http.StatusOK, task)
}

func (h *Handlers) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	task, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err, "Error deleting task")
		return
	}

	h.resp.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Task deleted successfully",
		"task":    task,
	})
}

// Status is free text in storage; unknown values are stored but logged.
func (h *Handlers) warnUnknownStatus(r *http.Request, status string) {
	if !types.IsKnownTaskStatus(status) {
		h.logger.WithContext(r.Context()).WithField("status", status).Warn("Unrecognized task status")
	}
}
