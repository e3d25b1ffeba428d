package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "datacheck/internal/errors"
)

type runParams struct {
	Outlier    string  `query:"outlier" validate:"omitempty,oneof=zscore iqr"`
	Threshold  float64 `query:"threshold" validate:"gte=0"`
	ReportName string  `query:"report_name" validate:"filename"`
	Sheet      string  `json:"sheet" validate:"max=31"`
}

func TestRequestValidator_ValidateStruct(t *testing.T) {
	v := NewRequestValidator(nil)

	tests := []struct {
		name       string
		params     runParams
		wantFields []string
	}{
		{
			name:   "valid",
			params: runParams{Outlier: "iqr", Threshold: 1.5, ReportName: "weather.txt"},
		},
		{
			name:       "bad enum and negative threshold",
			params:     runParams{Outlier: "mad", Threshold: -1},
			wantFields: []string{"outlier", "threshold"},
		},
		{
			name:       "path traversal",
			params:     runParams{ReportName: "../etc/passwd"},
			wantFields: []string{"report_name"},
		},
		{
			name:       "json tag used when query tag absent",
			params:     runParams{Sheet: "a sheet name that is far too long for excel"},
			wantFields: []string{"sheet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.params)
			if len(tt.wantFields) == 0 {
				assert.NoError(t, err)
				return
			}

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

			details, ok := apiErr.Details.([]apierrors.ValidationError)
			require.True(t, ok)
			fields := make([]string, 0, len(details))
			for _, d := range details {
				fields = append(fields, d.Field)
				assert.NotEmpty(t, d.Message)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("multipart/form-data")(http.HandlerFunc(okHandler))

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{"multipart accepted", http.MethodPost, "multipart/form-data; boundary=xyz", http.StatusOK, ""},
		{"get bypasses", http.MethodGet, "", http.StatusOK, ""},
		{"missing header", http.MethodPost, "", http.StatusBadRequest, "MISSING_CONTENT_TYPE"},
		{"json rejected", http.MethodPost, "application/json", http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/validate", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				return
			}
			var body apierrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantCode, body.Error.ErrorCode)
		})
	}
}
