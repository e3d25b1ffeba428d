package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "datacheck/internal/errors"
	"datacheck/internal/files"
)

// CatalogHandler serves listings of the working directories
type CatalogHandler struct {
	service      CatalogService
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service CatalogService, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *CatalogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &CatalogHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "catalog")),
	}
}

// Routes mounts under /api/v1/catalog
func (h *CatalogHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/datasets", h.listing("datasets", h.service.Datasets))
	r.Get("/rules", h.listing("rule_sets", h.service.RuleSets))
	r.Get("/reports", h.Reports)
	r.Get("/reports/latest", h.LatestReport)
	r.Get("/reports/{run}", h.ReportFiles)
	return r
}

func (h *CatalogHandler) listing(key string, list func() ([]files.FileInfo, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := list()
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]interface{}{
			key:     found,
			"count": len(found),
		})
	}
}

// LatestReport handles GET /reports/latest
func (h *CatalogHandler) LatestReport(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.LatestReport()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, latest)
}

// Reports handles GET /reports. The optional since and until parameters take
// RFC 3339 timestamps or dates; a date until covers the whole day.
func (h *CatalogHandler) Reports(w http.ResponseWriter, r *http.Request) {
	since, err := parseTimeParam(r, "since", false)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	until, err := parseTimeParam(r, "until", true)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if !since.IsZero() && !until.IsZero() && since.After(until) {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("since", "since must not be after until"))
		return
	}

	h.listing("reports", func() ([]files.FileInfo, error) {
		return h.service.Reports(since, until)
	})(w, r)
}

// ReportFiles handles GET /reports/{run}
func (h *CatalogHandler) ReportFiles(w http.ResponseWriter, r *http.Request) {
	run := chi.URLParam(r, "run")
	found, err := h.service.ReportFiles(run)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"run":   run,
		"files": found,
		"count": len(found),
	})
}

func parseTimeParam(r *http.Request, name string, endOfDay bool) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, apierrors.ErrValidation(name, fmt.Sprintf("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date", name))
	}
	if endOfDay {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
