package http_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sagarc03/boxgate"
	boxhttp "github.com/sagarc03/boxgate/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid box", boxgate.ErrInvalidBox, http.StatusBadRequest, boxhttp.CodeInvalidBox},
		{"missing name", boxgate.ErrMissingName, http.StatusBadRequest, boxhttp.CodeMissingName},
		{"no files", boxgate.ErrNoFiles, http.StatusBadRequest, boxhttp.CodeNoFiles},
		{"not found", boxgate.ErrNotFound, http.StatusNotFound, boxhttp.CodeNotFound},
		{"wrapped not found", fmt.Errorf("stat: %w", boxgate.ErrNotFound), http.StatusNotFound, boxhttp.CodeNotFound},
		{"payload too large", boxgate.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, boxhttp.CodePayloadTooLarge},
		{"max bytes", fmt.Errorf("upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge, boxhttp.CodePayloadTooLarge},
		{"unauthorized", boxgate.ErrUnauthorized, http.StatusUnauthorized, boxhttp.CodeUnauthorized},
		{"locked out", boxgate.ErrLockedOut, http.StatusTooManyRequests, boxhttp.CodeTooManyUnauthorized},
		{"rate limited", boxgate.ErrRateLimited, http.StatusTooManyRequests, boxhttp.CodeRateLimited},
		{"invalid input", boxgate.ErrInvalidInput, http.StatusBadRequest, boxhttp.CodeInvalidInput},
		{"joined", errors.Join(errors.New("context"), boxgate.ErrInvalidBox), http.StatusBadRequest, boxhttp.CodeInvalidBox},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, boxhttp.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/media/box-01/list", nil)

			boxhttp.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec))
		})
	}
}

func TestHandleError_InternalHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/media/box-01/list", nil)

	boxhttp.HandleError(rec, req, errors.New("dial tcp 10.0.0.5:5432: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	boxhttp.WriteError(rec, http.StatusBadRequest, boxhttp.CodeMissingKey)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"ok":false,"error":"missing_key"}`, rec.Body.String())
}

func TestWriteJSON_OmitsUnsetCounts(t *testing.T) {
	saved := 2
	rec := httptest.NewRecorder()

	require.NoError(t, boxhttp.WriteJSON(rec, http.StatusOK, boxhttp.OKResponse{OK: true, Saved: &saved}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"saved":2}`, rec.Body.String())
}

func TestWriteJSON_ZeroCountIsKept(t *testing.T) {
	deleted := 0
	exists := false
	rec := httptest.NewRecorder()

	require.NoError(t, boxhttp.WriteJSON(rec, http.StatusOK, boxhttp.OKResponse{OK: true, Deleted: &deleted, Exists: &exists}))

	body := strings.TrimSpace(rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"deleted":0,"exists":false}`, body)
}

func TestWriteJSON_EncodingError(t *testing.T) {
	rec := httptest.NewRecorder()

	err := boxhttp.WriteJSON(rec, http.StatusOK, make(chan int))

	assert.Error(t, err)
}
