package patients

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Handlers serves the patient endpoints
type Handlers struct {
	repo   interfaces.PatientRepository
	resp   *api.Responder
	logger *logger.Logger
}

// NewHandlers creates patient handlers
func NewHandlers(repo interfaces.PatientRepository, resp *api.Responder, log *logger.Logger) *Handlers {
	return &Handlers{repo: repo, resp: resp, logger: log}
}

// RegisterRoutes mounts the patient routes on the /api subrouter.
// /patientsph/{id} is kept as an alias for clients of the older path.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/patients", h.createPatientHandler).Methods("POST")
	router.HandleFunc("/patients", h.searchPatientsHandler).Methods("GET")
	router.HandleFunc("/patientsdob", h.searchByDOBHandler).Methods("GET")
	router.HandleFunc("/patients/{id}", h.getPatientHandler).Methods("GET")
	router.HandleFunc("/patients/{id}", h.updatePatientHandler).Methods("PUT")
	router.HandleFunc("/patients/{id}", h.deletePatientHandler).Methods("DELETE")
	router.HandleFunc("/patientsph/{id}", h.updatePatientHandler).Methods("PUT")
	router.HandleFunc("/patientsph/{id}", h.deletePatientHandler).Methods("DELETE")
}

func (h *Handlers) createPatientHandler(w http.ResponseWriter, r *http.Request) {
	var input types.PatientInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	rec, err := input.Validate()
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	patient, err := h.repo.Create(r.Context(), rec)
	if err != nil {
		h.resp.Error(w, r, err, "Error creating patient")
		return
	}

	h.logger.Audit(r.Context(), "", "create", "patient", true, map[string]interface{}{
		"patient_id": patient.ID,
	})
	h.resp.JSON(w, http.StatusCreated, patient)
}

func (h *Handlers) searchPatientsHandler(w http.ResponseWriter, r *http.Request) {
	term, err := api.RequiredQuery(r, "search")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	patients, err := h.repo.Search(r.Context(), term)
	if err != nil {
		h.resp.Error(w, r, err, "Error searching patients")
		return
	}

	h.resp.JSON(w, http.StatusOK, patients)
}

func (h *Handlers) searchByDOBHandler(w http.ResponseWriter, r *http.Request) {
	prefix, err := api.RequiredQuery(r, "search")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}
	if !isDatePrefix(prefix) {
		h.resp.Error(w, r, types.NewValidationError(types.ErrCodeInvalidDate, "Date of birth search must be a YYYY-MM-DD prefix", map[string]interface{}{
			"search": prefix,
		}), "")
		return
	}

	patients, err := h.repo.SearchByDOB(r.Context(), prefix)
	if err != nil {
		h.resp.Error(w, r, err, "Error searching patients")
		return
	}

	h.resp.JSON(w, http.StatusOK, patients)
}

func (h *Handlers) getPatientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	patient, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err, "Error fetching patient")
		return
	}

	h.resp.JSON(w, http.StatusOK, patient)
}

func (h *Handlers) updatePatientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	var input types.PatientInput
	if err := api.Decode(r, &input); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	rec, err := input.ValidateUpdate()
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	patient, err := h.repo.Update(r.Context(), id, rec)
	if err != nil {
		h.resp.Error(w, r, err, "Error updating patient")
		return
	}

	h.logger.Audit(r.Context(), "", "update", "patient", true, map[string]interface{}{
		"patient_id": id,
	})
	h.resp.JSON(w, http.StatusOK, patient)
}

func (h *Handlers) deletePatientHandler(w http.ResponseWriter, r *http.Request) {
	id, err := api.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.resp.Error(w, r, err, "Error deleting patient")
		return
	}

	h.logger.Audit(r.Context(), "", "delete", "patient", true, map[string]interface{}{
		"patient_id": id,
	})
	h.resp.Message(w, http.StatusOK, "Patient "+strconv.FormatInt(id, 10)+" deleted successfully")
}

// isDatePrefix accepts leading fragments of YYYY-MM-DD such as "1990", "1990-0" or "1990-04-12"
func isDatePrefix(s string) bool {
	const pattern = "dddd-dd-dd"
	if len(s) > len(pattern) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch pattern[i] {
		case 'd':
			if s[i] < '0' || s[i] > '9' {
				return false
			}
		default:
			if s[i] != pattern[i] {
				return false
			}
		}
	}
	return true
}
