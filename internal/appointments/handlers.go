package appointments

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Handlers serves the appointment endpoints
type Handlers struct {
	repo   interfaces.AppointmentRepository
	resp   *api.Responder
	logger *logger.Logger
}

// NewHandlers creates appointment handlers
func NewHandlers(repo interfaces.AppointmentRepository, resp *api.Responder, log *logger.Logger) *Handlers {
	return &Handlers{repo: repo, resp: resp, logger: log}
}

// RegisterRoutes mounts the appointment routes on the /api subrouter
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/appointments", h.createAppointmentHandler).Methods("POST")
	router.HandleFunc("/appointments/{id}", h.getAppointmentHandler).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.updateAppointmentHandler).Methods("PUT")
	router.HandleFunc("/appointments/{id}", h.deleteAppointmentHandler).Methods("DELETE")

	router.HandleFunc("/pastAppointments/{patientId}", h.pastAppointmentsHandler).Methods("GET")
	router.HandleFunc("/upcomingAppointments/{patientId}", h.upcomingAppointmentsHandler).Methods("GET")
}

func (h *Handlers) createAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	var input types.AppointmentInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	appt, err := input.NewAppointment()
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	created, err := h.repo.Create(r.Context(), appt)
	if err != nil {
		h.resp.Error(w, r, err, "Error creating appointment")
		return
	}

	h.logger.WithContext(r.Context()).WithField("appointment_id", created.ID).Info("Appointment created")
	h.resp.JSON(w, http.StatusCreated, created)
}

func (h *Handlers) pastAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	patientID, err := api.PathID(r, "patientId")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	appts, err := h.repo.Past(r.Context(), patientID)
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching past appointments")
		return
	}

	h.resp.JSON(w, http.StatusOK, appts)
}

func (h *Handlers) upcomingAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	patientID, err := api.PathID(r, "patientId")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	appts, err := h.repo.Upcoming(r.Context(), patientID)
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching upcoming appointments")
		return
	}

	h.resp.JSON(w, http.StatusOK, appts)
}

func (h *Handlers) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	appt, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching appointment")
		return
	}

	h.resp.JSON(w, http.StatusOK, appt)
}

func (h *Handlers) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	var updates types.AppointmentUpdates
	if err := api.Decode(r, &updates); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	cols, err := updates.Columns()
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	appt, err := h.repo.Update(r.Context(), id, cols)
	if err != nil {
		h.resp.Error(w, r, err, "Error updating appointment")
		return
	}

	h.resp.JSON(w, http.StatusOK, appt)
}

func (h *Handlers) deleteAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.resp.Error(w, r, err, "Error deleting appointment")
		return
	}

	h.resp.Message(w, http.StatusOK, "Appointment deleted successfully")
}
