package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/correction"
	"github.com/circuit-studio/engine/internal/services"
)

// ValidationHandler exposes the validation and correction engines for
// inline graphs, without touching stored revisions.
type ValidationHandler struct {
	circuits services.CircuitService
}

func NewValidationHandler(circuits services.CircuitService) *ValidationHandler {
	return &ValidationHandler{circuits: circuits}
}

// Validate runs all checks against the posted graph. With auto_correct
// the correction loop runs instead and the corrected graph is returned
// alongside the final report.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Graph.Nodes) == 0 {
		writeErrorStr(w, http.StatusBadRequest, "graph must contain at least one node")
		return
	}

	if !req.AutoCorrect {
		report := h.circuits.ValidateGraph(r.Context(), &req.Graph)
		writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: report})
		return
	}

	loop := h.circuits.CorrectGraph(r.Context(), &req.Graph)
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: loop})
}

// Correct runs the bounded validate-and-fix loop on the posted graph.
func (h *ValidationHandler) Correct(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Graph.Nodes) == 0 {
		writeErrorStr(w, http.StatusBadRequest, "graph must contain at least one node")
		return
	}
	maxIter := req.MaxIterations
	if maxIter < 1 {
		maxIter = correction.DefaultMaxIterations
	}
	loop := correction.RunLoop(&req.Graph, maxIter)
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: loop})
}
