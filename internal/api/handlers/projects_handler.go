package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/circuit-studio/engine/internal/api/middleware"
	"github.com/circuit-studio/engine/internal/api/types"
	"github.com/circuit-studio/engine/internal/services"
	appErr "github.com/circuit-studio/engine/pkg/errors"
)

type ProjectsHandler struct {
	projects services.ProjectService
	validate interface{ Struct(any) error }
}

func NewProjectsHandler(projects services.ProjectService, v interface{ Struct(any) error }) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, validate: v}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	filters := &services.ProjectFilters{
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
	}
	items, err := h.projects.ListProjects(r.Context(), userID, filters)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	resp := types.APIResponse{Success: true, Data: items[start:end], Meta: &types.Meta{Page: page, PageSize: size, Total: int64(len(items))}}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
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
	p, err := h.projects.CreateProject(r.Context(), userID, &services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Settings:    req.Settings,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.projects.GetProject(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
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
	p, err := h.projects.UpdateProject(r.Context(), projectID, userID, &services.UpdateProjectInput{
		Description: req.Description,
		Settings:    req.Settings,
		Archived:    req.Archived,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: p})
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	projectID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.projects.DeleteProject(r.Context(), projectID, userID); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true})
}

// Shared handler helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: "invalid", Message: msg}})
}

// statusFor maps service error codes onto HTTP statuses.
func statusFor(err error) int {
	switch appErr.CodeOf(err) {
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeInvalid:
		return http.StatusBadRequest
	case appErr.CodeUnauthorized:
		return http.StatusForbidden
	case appErr.CodeConflict, appErr.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		writeErrorStr(w, http.StatusUnauthorized, "invalid user context")
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
