package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	got := New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")

	assert.Equal(t, &APIError{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  "INVALID_REQUEST",
		Message:    "Invalid request format",
	}, got)
	assert.Equal(t, "Invalid request format", got.Error())
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"ErrInvalidRequest", ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{"ErrValidationFailed", ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"ErrMissingParameter", ErrMissingParameter, http.StatusBadRequest, "MISSING_PARAMETER"},
		{"ErrNotFound", ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"ErrPayloadTooLarge", ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{"ErrRateLimitExceeded", ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"ErrInternalServer", ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	got := ErrValidation("rules", "rules file is required")

	assert.Equal(t, http.StatusBadRequest, got.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", got.ErrorCode)

	detail, ok := got.Details.(ValidationError)
	require.True(t, ok)
	assert.Equal(t, "rules", detail.Field)
	assert.Equal(t, "rules file is required", detail.Message)
}

func TestFromAppError(t *testing.T) {
	tests := []struct {
		name       string
		appErr     *AppError
		wantStatus int
		wantCode   string
	}{
		{
			name:       "config error becomes invalid rules",
			appErr:     NewConfigError("invalid rule configuration", fmt.Errorf("unknown directive %%Q")),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_RULES",
		},
		{
			name:       "parsing error becomes unreadable data",
			appErr:     NewParsingError("failed to read CSV", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "UNREADABLE_DATA",
		},
		{
			name:       "not found",
			appErr:     NewNotFoundError("sheet 'Data'"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "storage falls back to internal",
			appErr:     NewStorageError("disk full", nil),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromAppError(tt.appErr)
			assert.Equal(t, tt.wantStatus, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.ErrorCode)
			assert.Equal(t, tt.appErr.Error(), got.Details)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, NotFoundError("column 'humidity'"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.ErrorCode)
	assert.Equal(t, "column 'humidity' not found", resp.Error.Message)
}

func TestProblemDetails_JSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusUnprocessableEntity, TypeInvalidRules, "Unprocessable Entity", "bad format", "/api/v1/validate").
		WithExtension("error_code", "INVALID_RULES")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, TypeInvalidRules, raw["type"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), raw["status"])
	assert.Equal(t, "INVALID_RULES", raw["error_code"])

	var decoded ProblemDetails
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "bad format", decoded.Detail)
	assert.Equal(t, "/api/v1/validate", decoded.Instance)
	assert.Equal(t, "INVALID_RULES", decoded.Extensions["error_code"])
}
