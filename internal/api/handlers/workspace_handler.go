package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	middleware "github.com/markdave123-py/researchhub/internal/api/middlewares"
	"github.com/markdave123-py/researchhub/internal/services"
)

type WorkspaceHandler struct {
	workspaces *services.WorkspaceService
	log        *zap.Logger
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService, log *zap.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, log: log}
}

type createWorkspaceRequest struct {
	Name string `json:"name"`
}

func (h *WorkspaceHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.workspaces.ListAll(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *WorkspaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createWorkspaceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, h.log, err)
		return
	}
	ws, err := h.workspaces.Create(r.Context(), middleware.UserIDFromContext(r.Context()), req.Name)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws, err := h.workspaces.Get(r.Context(), middleware.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}
