package http

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"datacheck/internal/dataprocessing"
	apierrors "datacheck/internal/errors"
	"datacheck/internal/middleware"
	"datacheck/internal/services"
)

const (
	// FormFieldData carries the dataset in a validation upload
	FormFieldData = "file"
	// FormFieldRules carries the YAML rule set, as a file or a plain field
	FormFieldRules = "rules"

	multipartMemory = 8 << 20
	maxRulesBytes   = 1 << 20
)

// ValidateParams are the query parameters of POST /validate
type ValidateParams struct {
	Charts    bool     `query:"charts"`
	Clean     bool     `query:"clean"`
	Sheet     string   `query:"sheet" validate:"max=31"`
	Outlier   string   `query:"outlier" validate:"omitempty,oneof=zscore iqr"`
	Threshold *float64 `query:"threshold" validate:"omitempty,gte=0"`
	Normalize string   `query:"normalize" validate:"omitempty,oneof=minmax zscore"`
	Impute    string   `query:"impute" validate:"omitempty,oneof=mean median mode constant"`
	Fill      string   `query:"fill" validate:"required_if=Impute constant"`
	Columns   []string `query:"columns" validate:"dive,required"`
}

// cleaning returns nil when no cleaning parameter was given so the
// configured defaults apply
func (p ValidateParams) cleaning() *dataprocessing.CleaningOptions {
	if p.Outlier == "" && p.Threshold == nil && p.Normalize == "" && p.Impute == "" && len(p.Columns) == 0 {
		return nil
	}
	opts := dataprocessing.DefaultCleaningOptions()
	opts.Columns = p.Columns
	if p.Outlier != "" {
		opts.OutlierMethod = dataprocessing.OutlierMethod(p.Outlier)
	}
	if p.Threshold != nil {
		opts.Threshold = *p.Threshold
	}
	opts.Normalize = dataprocessing.NormalizeMethod(p.Normalize)
	opts.Impute = dataprocessing.ImputeMethod(p.Impute)
	opts.FillValue = p.Fill
	return &opts
}

// ValidationHandler serves the validation API
type ValidationHandler struct {
	service      ValidationService
	validator    *middleware.RequestValidator
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
	logger       *slog.Logger
}

// NewValidationHandler creates the handler. maxUpload caps the multipart
// body; zero or less disables the cap.
func NewValidationHandler(service ValidationService, errorHandler *apierrors.ErrorHandler, maxUpload int64, logger *slog.Logger) *ValidationHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	return &ValidationHandler{
		service:      service,
		validator:    middleware.NewRequestValidator(logger),
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
		logger:       logger.With(slog.String("handler", "validation")),
	}
}

// Routes mounts under the API base path
func (h *ValidationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(
		middleware.ContentTypeValidator("multipart/form-data"),
		middleware.MaxBodySize(h.maxUpload),
	).Post("/validate", h.Validate)

	r.Get("/rules/kinds", h.RuleKinds)
	r.Get("/steps", h.Steps)
	r.Get("/runs", h.ActiveRuns)
	r.Post("/runs/{id}/cancel", h.CancelRun)
	return r
}

// Validate handles POST /validate. The body is multipart with the dataset in
// "file" and the YAML rule set in "rules". Data violations still answer 200
// with valid=false; unreadable data and broken rule sets answer 422.
func (h *ValidationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	params, err := parseValidateParams(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(params); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("failed to parse upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(FormFieldData)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation(FormFieldData, "a dataset file is required"))
		return
	}
	defer file.Close()

	rules, err := readRules(r)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp, err := h.service.Validate(r.Context(), services.ValidateInput{
		Filename: header.Filename,
		Data:     file,
		Rules:    rules,
		Sheet:    params.Sheet,
		Charts:   params.Charts,
		Clean:    params.Clean,
		Cleaning: params.cleaning(),
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "validation served",
		slog.String("operation_id", resp.ID),
		slog.String("source", header.Filename),
		slog.Bool("valid", resp.Valid),
		slog.Int("validation_errors", len(resp.Errors)))
	render.JSON(w, r, resp)
}

// RuleKinds handles GET /rules/kinds
func (h *ValidationHandler) RuleKinds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"kinds": h.service.RuleKinds(),
	})
}

// Steps handles GET /steps
func (h *ValidationHandler) Steps(w http.ResponseWriter, r *http.Request) {
	steps, err := h.service.Steps()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"steps": steps,
	})
}

// ActiveRuns handles GET /runs
func (h *ValidationHandler) ActiveRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.service.ActiveRuns()
	render.JSON(w, r, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// CancelRun handles POST /runs/{id}/cancel
func (h *ValidationHandler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.CancelRun(id); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]interface{}{
		"id":     id,
		"status": "cancelling",
	})
}

func parseValidateParams(r *http.Request) (ValidateParams, error) {
	q := r.URL.Query()
	var p ValidateParams

	for name, dst := range map[string]*bool{"charts": &p.Charts, "clean": &p.Clean} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return p, apierrors.ErrValidation(name, fmt.Sprintf("%s must be a boolean", name))
		}
		*dst = v
	}

	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, apierrors.ErrValidation("threshold", "threshold must be a number")
		}
		p.Threshold = &v
	}

	p.Sheet = q.Get("sheet")
	p.Outlier = strings.ToLower(q.Get("outlier"))
	p.Normalize = strings.ToLower(q.Get("normalize"))
	p.Impute = strings.ToLower(q.Get("impute"))
	p.Fill = q.Get("fill")
	if raw := q.Get("columns"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			p.Columns = append(p.Columns, strings.TrimSpace(c))
		}
	}
	return p, nil
}

// readRules takes the rule set from an uploaded file part, falling back to a
// plain form field
func readRules(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(FormFieldRules)
	switch {
	case err == nil:
		defer file.Close()
		return readLimited(file)
	case err != http.ErrMissingFile:
		return nil, apierrors.InvalidRequestWithError(err)
	}

	if text := r.FormValue(FormFieldRules); strings.TrimSpace(text) != "" {
		return []byte(text), nil
	}
	return nil, apierrors.ErrValidation(FormFieldRules, "a YAML rule set is required")
}

func readLimited(f multipart.File) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(f, maxRulesBytes+1))
	if err != nil {
		return nil, apierrors.InvalidRequestWithError(err)
	}
	if len(data) > maxRulesBytes {
		return nil, apierrors.ErrValidation(FormFieldRules, "rule set exceeds 1 MiB")
	}
	return data, nil
}
