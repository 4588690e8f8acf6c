package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/services"
)

// RunsHandler manages background design runs.
type RunsHandler struct {
	circuits services.CircuitService
	validate interface{ Struct(any) error }
}

func NewRunsHandler(circuits services.CircuitService, v interface{ Struct(any) error }) *RunsHandler {
	return &RunsHandler{circuits: circuits, validate: v}
}

// Create enqueues a design run from a natural-language description.
func (h *RunsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.RunCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	run, err := h.circuits.StartRun(r.Context(), projectID, userID, &services.StartRunInput{Description: req.Description})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: run})
}

func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	runs, err := h.circuits.ListRuns(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: runs})
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	runID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	run, err := h.circuits.GetRun(r.Context(), runID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: run})
}
