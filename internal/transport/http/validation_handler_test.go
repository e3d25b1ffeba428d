package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"datacheck/internal/dataprocessing"
	apierrors "datacheck/internal/errors"
	"datacheck/internal/operations"
	"datacheck/internal/services"
	"datacheck/internal/shared/testutil"
	"datacheck/internal/validation"
)

// MockValidationService is a mock implementation of ValidationService
type MockValidationService struct {
	mock.Mock
}

func (m *MockValidationService) Validate(ctx context.Context, in services.ValidateInput) (*operations.OperationResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*operations.OperationResponse), args.Error(1)
}

func (m *MockValidationService) RuleKinds() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockValidationService) Steps() ([]operations.OperationType, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]operations.OperationType), args.Error(1)
}

func (m *MockValidationService) ActiveRuns() []services.RunSummary {
	return m.Called().Get(0).([]services.RunSummary)
}

func (m *MockValidationService) CancelRun(id string) error {
	return m.Called(id).Error(0)
}

type uploadPart struct {
	field    string
	filename string
	content  string
}

func multipartBody(t *testing.T, parts ...uploadPart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, p := range parts {
		if p.filename == "" {
			require.NoError(t, w.WriteField(p.field, p.content))
			continue
		}
		fw, err := w.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func newTestRouter(t *testing.T, svc ValidationService, maxUpload int64) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewValidationHandler(svc, apierrors.NewErrorHandler(logger, false), maxUpload, logger)
	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestValidationHandler_Validate(t *testing.T) {
	weather := uploadPart{field: FormFieldData, filename: "weather.csv", content: testutil.WeatherCSV}
	rulesFile := uploadPart{field: FormFieldRules, filename: "rules.yaml", content: testutil.WeatherRules}
	threshold := 1.5

	tests := []struct {
		name       string
		query      string
		parts      []uploadPart
		setup      func(m *MockValidationService)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:  "rules uploaded as a file",
			query: "?charts=true",
			parts: []uploadPart{weather, rulesFile},
			setup: func(m *MockValidationService) {
				m.On("Validate", mock.Anything, mock.MatchedBy(func(in services.ValidateInput) bool {
					return in.Filename == "weather.csv" &&
						string(in.Rules) == testutil.WeatherRules &&
						in.Charts && !in.Clean && in.Cleaning == nil
				})).Return(&operations.OperationResponse{
					ID:     "op-1",
					Status: operations.OperationStatusCompleted,
					Valid:  false,
					Errors: []string{"row 4: temperature out of range", "row 9: station is required"},
				}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "op-1", body["id"])
				assert.Equal(t, false, body["valid"])
				assert.Len(t, body["validation_errors"], 2)
			},
		},
		{
			name:  "rules sent as a plain field with cleaning overrides",
			query: "?clean=true&outlier=IQR&threshold=1.5&columns=temperature,+humidity",
			parts: []uploadPart{weather, {field: FormFieldRules, content: testutil.WeatherRules}},
			setup: func(m *MockValidationService) {
				m.On("Validate", mock.Anything, mock.MatchedBy(func(in services.ValidateInput) bool {
					return in.Clean && in.Cleaning != nil &&
						in.Cleaning.OutlierMethod == "iqr" &&
						in.Cleaning.Threshold == threshold &&
						assert.ObjectsAreEqual([]string{"temperature", "humidity"}, in.Cleaning.Columns)
				})).Return(&operations.OperationResponse{ID: "op-2", Valid: true, Errors: []string{}}, nil).Once()
			},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, true, body["valid"])
			},
		},
		{
			name:       "missing dataset",
			parts:      []uploadPart{rulesFile},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.TypeValidation, body["type"])
			},
		},
		{
			name:       "missing rules",
			parts:      []uploadPart{weather},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
			},
		},
		{
			name:       "unknown outlier method",
			query:      "?outlier=median",
			parts:      []uploadPart{weather, rulesFile},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Contains(t, toJSON(body["details"]), "outlier")
			},
		},
		{
			name:       "non-boolean charts flag",
			query:      "?charts=maybe",
			parts:      []uploadPart{weather, rulesFile},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "rule set that does not build",
			parts: []uploadPart{weather, rulesFile},
			setup: func(m *MockValidationService) {
				m.On("Validate", mock.Anything, mock.Anything).
					Return(nil, apierrors.NewConfigError("invalid rule set", validation.ErrInvalidRuleConfig)).Once()
			},
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.TypeInvalidRules, body["type"])
				assert.Equal(t, "INVALID_RULES", body["error_code"])
			},
		},
		{
			name:  "unreadable dataset",
			parts: []uploadPart{weather, rulesFile},
			setup: func(m *MockValidationService) {
				m.On("Validate", mock.Anything, mock.Anything).
					Return(nil, apierrors.NewParsingError("failed to load weather.csv", dataprocessing.ErrUnsupportedFormat)).Once()
			},
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.TypeUnreadableData, body["type"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockValidationService{}
			if tt.setup != nil {
				tt.setup(svc)
			}
			router := newTestRouter(t, svc, 1<<20)

			body, contentType := multipartBody(t, tt.parts...)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/validate"+tt.query, body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
			svc.AssertExpectations(t)
		})
	}
}

func toJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestValidationHandler_ValidateRejectsTransportFaults(t *testing.T) {
	t.Run("wrong content type", func(t *testing.T) {
		svc := &MockValidationService{}
		router := newTestRouter(t, svc, 1<<20)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", strings.NewReader(`{"file":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		svc.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})

	t.Run("body over the upload limit", func(t *testing.T) {
		svc := &MockValidationService{}
		router := newTestRouter(t, svc, 256)

		body, contentType := multipartBody(t,
			uploadPart{field: FormFieldData, filename: "big.csv", content: strings.Repeat("a,b\n", 512)},
			uploadPart{field: FormFieldRules, content: testutil.WeatherRules},
		)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/validate", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		assert.Equal(t, apierrors.TypePayloadTooLarge, decodeBody(t, rec)["type"])
		svc.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	})
}

func TestValidationHandler_Catalogue(t *testing.T) {
	svc := &MockValidationService{}
	svc.On("RuleKinds").Return([]string{"numeric", "required"})
	svc.On("Steps").Return([]operations.OperationType{
		{ID: operations.StepIDLoad, Name: "Load"},
		{ID: operations.StepIDValidate, Name: "Validate", Dependencies: []string{operations.StepIDLoad}},
	}, nil)
	svc.On("ActiveRuns").Return([]services.RunSummary{{ID: "op-7", Source: "weather.csv"}})
	router := newTestRouter(t, svc, 0)

	tests := []struct {
		path  string
		check func(t *testing.T, body map[string]interface{})
	}{
		{
			path: "/api/v1/rules/kinds",
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, []interface{}{"numeric", "required"}, body["kinds"])
			},
		},
		{
			path: "/api/v1/steps",
			check: func(t *testing.T, body map[string]interface{}) {
				steps := body["steps"].([]interface{})
				require.Len(t, steps, 2)
				assert.Equal(t, operations.StepIDValidate, steps[1].(map[string]interface{})["id"])
			},
		},
		{
			path: "/api/v1/runs",
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(1), body["count"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			tt.check(t, decodeBody(t, rec))
		})
	}
	svc.AssertExpectations(t)
}

func TestValidationHandler_CancelRun(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{name: "active run", id: "op-1", wantStatus: http.StatusAccepted},
		{name: "unknown run", id: "op-9", err: apierrors.NewNotFoundError("run 'op-9'"), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockValidationService{}
			svc.On("CancelRun", tt.id).Return(tt.err).Once()
			router := newTestRouter(t, svc, 0)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/runs/"+tt.id+"/cancel", nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
