package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apierrors "datacheck/internal/errors"
	"datacheck/internal/files"
)

// MockCatalogService is a mock implementation of CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) list(method string) ([]files.FileInfo, error) {
	args := m.MethodCalled(method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]files.FileInfo), args.Error(1)
}

func (m *MockCatalogService) Datasets() ([]files.FileInfo, error) { return m.list("Datasets") }
func (m *MockCatalogService) RuleSets() ([]files.FileInfo, error) { return m.list("RuleSets") }
func (m *MockCatalogService) Reports() ([]files.FileInfo, error)  { return m.list("Reports") }

func (m *MockCatalogService) LatestReport() (files.FileInfo, error) {
	args := m.Called()
	return args.Get(0).(files.FileInfo), args.Error(1)
}

func TestCatalogHandler(t *testing.T) {
	run := files.FileInfo{Name: "20240102-000000-bbbb", Path: "/srv/reports/20240102-000000-bbbb", IsDir: true, ModTime: time.Now()}

	tests := []struct {
		name        string
		path        string
		setup       func(m *MockCatalogService)
		wantStatus  int
		wantContent string
	}{
		{
			name: "datasets",
			path: "/datasets",
			setup: func(m *MockCatalogService) {
				m.On("Datasets").Return([]files.FileInfo{{Name: "weather.csv"}}, nil)
			},
			wantStatus:  http.StatusOK,
			wantContent: `"datasets":[{"path":"","name":"weather.csv"`,
		},
		{
			name: "rule sets",
			path: "/rules",
			setup: func(m *MockCatalogService) {
				m.On("RuleSets").Return([]files.FileInfo{}, nil)
			},
			wantStatus:  http.StatusOK,
			wantContent: `"count":0`,
		},
		{
			name: "reports storage failure",
			path: "/reports",
			setup: func(m *MockCatalogService) {
				m.On("Reports").Return(nil, apierrors.NewStorageError("failed to list reports", assert.AnError))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "latest report",
			path: "/reports/latest",
			setup: func(m *MockCatalogService) {
				m.On("LatestReport").Return(run, nil)
			},
			wantStatus:  http.StatusOK,
			wantContent: run.Name,
		},
		{
			name: "no reports yet",
			path: "/reports/latest",
			setup: func(m *MockCatalogService) {
				m.On("LatestReport").Return(files.FileInfo{}, apierrors.NewNotFoundError("report"))
			},
			wantStatus:  http.StatusNotFound,
			wantContent: "report not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockCatalogService{}
			tt.setup(svc)

			r := chi.NewRouter()
			r.Mount("/api/v1/catalog", NewCatalogHandler(svc, nil, nil).Routes())

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog"+tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.wantContent)
			svc.AssertExpectations(t)
		})
	}
}
