package handlers

import (
	"net/http"

	"go.uber.org/zap"

	middleware "github.com/markdave123-py/researchhub/internal/api/middlewares"
	"github.com/markdave123-py/researchhub/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
	log  *zap.Logger
}

func NewChatHandler(chat *services.ChatService, log *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log}
}

type sendRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Message     string `json:"message"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, h.log, err)
		return
	}
	ctx := r.Context()
	msg, err := h.chat.Send(ctx, middleware.UserIDFromContext(ctx), req.WorkspaceID, req.Message)
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.chat.GetHistory(ctx, middleware.UserIDFromContext(ctx), r.URL.Query().Get("workspaceId"))
	if err != nil {
		WriteError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.chat.Clear(ctx, middleware.UserIDFromContext(ctx), r.URL.Query().Get("workspaceId")); err != nil {
		WriteError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
