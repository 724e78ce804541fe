package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
)

type errorBody struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind core.Kind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindAmbiguousTarget, core.KindConflict:
		return http.StatusConflict
	case core.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case core.KindEmptyContext:
		return http.StatusUnprocessableEntity
	case core.KindUpstream:
		return http.StatusBadGateway
	case core.KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders err as {detail, code}. Internal errors are logged and
// their message is not leaked.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	kind := core.KindOf(err)
	status := StatusFor(kind)
	detail := core.MessageOf(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", string(kind)), zap.Error(err))
		if kind == core.KindInternal {
			detail = "internal server error"
		}
	}
	writeJSON(w, status, errorBody{Detail: detail, Code: string(kind)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.Validation("DecodeBody", "invalid request body")
	}
	return nil
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}
