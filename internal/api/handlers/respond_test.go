package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
)

func TestWriteErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{core.Validation("op", "bad"), http.StatusBadRequest, "validation"},
		{fmt.Errorf("wrapped: %w", core.NotFound("op", "gone")), http.StatusNotFound, "not_found"},
		{core.AmbiguousTarget("op", 2), http.StatusConflict, "ambiguous_target"},
		{core.UnsupportedFormat("op", "not pdf"), http.StatusUnsupportedMediaType, "unsupported_format"},
		{core.EmptyContext("op", "ws"), http.StatusUnprocessableEntity, "empty_context"},
		{core.Upstream("op", errors.New("down")), http.StatusBadGateway, "upstream"},
		{core.Authentication("op", "expired"), http.StatusUnauthorized, "authentication"},
		{core.Conflict("op", "taken"), http.StatusConflict, "conflict"},
		{errors.New("pq: connection reset"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		WriteError(rec, zap.NewNop(), tt.err)
		assert.Equal(t, tt.status, rec.Code, tt.code)

		var body errorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.code, body.Code)
		assert.NotEmpty(t, body.Detail)
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, zap.NewNop(), errors.New("password=hunter2"))
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
