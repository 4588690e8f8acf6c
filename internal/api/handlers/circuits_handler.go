package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/services"
)

// CircuitsHandler serves circuit revisions and the netlist export.
type CircuitsHandler struct {
	projects services.ProjectService
	circuits services.CircuitService
}

func NewCircuitsHandler(projects services.ProjectService, circuits services.CircuitService) *CircuitsHandler {
	return &CircuitsHandler{projects: projects, circuits: circuits}
}

// Save stores the posted graph as the project's next revision.
func (h *CircuitsHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req types.RevisionSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Graph.Nodes) == 0 {
		writeErrorStr(w, http.StatusBadRequest, "graph must contain at least one node")
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
	rev, err := h.projects.SaveRevision(r.Context(), projectID, userID, &req.Graph)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: rev})
}

// GetCurrent returns the project's current revision.
func (h *CircuitsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	rev, err := h.projects.GetCurrentRevision(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

// ListVersions returns all revisions of a project, newest first.
func (h *CircuitsHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	revs, err := h.projects.ListRevisions(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: revs})
}

// GetVersion returns one numbered revision.
func (h *CircuitsHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeErrorStr(w, http.StatusBadRequest, "invalid version")
		return
	}
	rev, err := h.projects.GetRevisionVersion(r.Context(), projectID, userID, version)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

// Restore marks an older revision as current again.
func (h *CircuitsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeErrorStr(w, http.StatusBadRequest, "invalid version")
		return
	}
	rev, err := h.projects.RestoreRevision(r.Context(), projectID, userID, version)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

// Revalidate reruns the checks against a stored revision and persists
// the fresh report. A "version" query parameter selects a specific
// revision; absent, the current one is used.
func (h *CircuitsHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	version := 0
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeErrorStr(w, http.StatusBadRequest, "invalid version")
			return
		}
		version = v
	}
	report, err := h.circuits.ValidateRevision(r.Context(), projectID, userID, version)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: report})
}

// Netlist renders the current revision as a KiCad netlist download.
func (h *CircuitsHandler) Netlist(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	netlist, err := h.circuits.ExportNetlist(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="circuit.net"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(netlist))
}
