package sessions

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Handlers serves the session endpoints
type Handlers struct {
	repo   interfaces.SessionRepository
	resp   *api.Responder
	logger *logger.Logger
}

// NewHandlers creates session handlers
func NewHandlers(repo interfaces.SessionRepository, resp *api.Responder, log *logger.Logger) *Handlers {
	return &Handlers{repo: repo, resp: resp, logger: log}
}

// RegisterRoutes mounts the session routes on the /api subrouter
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/checkSession", h.checkSessionHandler).Methods("GET")
	router.HandleFunc("/checkSession", h.createSessionHandler).Methods("POST")
	router.HandleFunc("/checkSession/{sessionID}", h.updateSessionHandler).Methods("PUT")
	router.HandleFunc("/checkSession/{sessionID}", h.deleteSessionHandler).Methods("DELETE")
	router.HandleFunc("/logout/{sessionID}", h.logoutHandler).Methods("POST")
}

func (h *Handlers) checkSessionHandler(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("sessionID"))
	if token == "" {
		h.resp.Error(w, r, types.NewValidationError(types.ErrCodeInvalidInput, "Query parameter sessionID is required", nil), "")
		return
	}

	valid, err := h.repo.IsValid(r.Context(), token)
	if err != nil {
		h.resp.Error(w, r, err, "Error checking session")
		return
	}

	h.resp.JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *Handlers) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var input types.SessionInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	token := strings.TrimSpace(input.SessionID)
	if token == "" {
		h.resp.Error(w, r, types.NewValidationError(types.ErrCodeInvalidInput, "session_id is required", nil), "")
		return
	}

	createdAt := time.Now()
	if input.CreatedAt != nil {
		createdAt = *input.CreatedAt
	}

	session := &types.Session{
		Token:     token,
		UserID:    input.UserID,
		Username:  input.Username,
		CreatedAt: createdAt,
	}
	if err := h.repo.Create(r.Context(), session); err != nil {
		h.resp.Error(w, r, err, "Error creating session")
		return
	}

	h.logger.Audit(r.Context(), input.UserID, "create", "session", true, map[string]interface{}{
		"username": input.Username,
	})
	h.resp.Message(w, http.StatusCreated, "Session created successfully")
}

func (h *Handlers) updateSessionHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["sessionID"]

	var input types.SessionInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	if err := h.repo.Update(r.Context(), token, &input); err != nil {
		h.resp.Error(w, r, err, "Error updating session")
		return
	}

	h.resp.Message(w, http.StatusOK, "Session updated successfully")
}

func (h *Handlers) logoutHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["sessionID"]

	userID, err := h.repo.Logout(r.Context(), token)
	if err != nil {
		h.resp.Error(w, r, err, "Error logging out")
		return
	}

	h.logger.Audit(r.Context(), userID, "logout", "session", true, nil)
	h.resp.Message(w, http.StatusOK, "Logged out successfully")
}

func (h *Handlers) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["sessionID"]

	if err := h.repo.Delete(r.Context(), token); err != nil {
		h.resp.Error(w, r, err, "Error deleting session")
		return
	}

	h.resp.Message(w, http.StatusOK, "Session deleted successfully")
}
