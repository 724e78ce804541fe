package handlers

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	middleware "github.com/markdave123-py/researchhub/internal/api/middlewares"
	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
	"github.com/markdave123-py/researchhub/internal/services"
)

// MaxUploadBytes bounds the multipart form of an upload.
const MaxUploadBytes = 50 << 20

type PaperHandler struct {
	papers *services.PaperService
	search *services.SearchService
	log    *zap.Logger
}

func NewPaperHandler(papers *services.PaperService, search *services.SearchService, log *zap.Logger) *PaperHandler {
	return &PaperHandler{papers: papers, search: search, log: log}
}

type importRequest struct {
	Paper       models.CandidatePaper `json:"paper"`
	WorkspaceID string                `json:"workspaceId"`
}

func (h *PaperHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.papers.ListByWorkspace(ctx, middleware.UserIDFromContext(ctx), r.URL.Query().Get("workspaceId"))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PaperHandler) Search(w http.ResponseWriter, r *http.Request) {
	out, err := h.search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Import answers 201 for a new paper and 200 when the candidate was already present.
func (h *PaperHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, h.log, err)
		return
	}
	ctx := r.Context()
	p, created, err := h.papers.AddFromImport(ctx, middleware.UserIDFromContext(ctx), req.Paper, req.WorkspaceID)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, createdStatus(created), p)
}

func (h *PaperHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, h.log, core.Validation("UploadPaper", "file exceeds %d bytes", MaxUploadBytes))
			return
		}
		WriteError(w, h.log, core.Validation("UploadPaper", "invalid multipart form"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, h.log, core.Validation("UploadPaper", "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, h.log, core.Validation("UploadPaper", "could not read uploaded file"))
		return
	}

	ctx := r.Context()
	p, created, err := h.papers.AddFromUpload(ctx, middleware.UserIDFromContext(ctx), r.FormValue("workspaceId"), header.Filename, data)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, createdStatus(created), p)
}
