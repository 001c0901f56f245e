package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "pqmeta/internal/errors"
	"pqmeta/pkg/contracts/domain"
)

// RequestValidator validates request DTOs using struct tags
type RequestValidator struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewRequestValidator creates a validator with the report_format tag
// registered and JSON names used in field errors
func NewRequestValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("report_format", isReportFormat)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator:    v,
		logger:       logger.With(slog.String("component", "request_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateStruct validates v and returns an *apierrors.APIError listing
// every failed field
func (m *RequestValidator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	fields := make([]apierrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apierrors.FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(fields)
}

// Validate validates v and writes the problem response on failure. It
// reports whether the handler may continue.
func (m *RequestValidator) Validate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := m.ValidateStruct(v); err != nil {
		m.logger.DebugContext(r.Context(), "request validation failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		m.errorHandler.HandleError(w, r, err)
		return false
	}
	return true
}

// ContentTypeValidator ensures bodies are sent with an allowed content type
func ContentTypeValidator(errorHandler *apierrors.ErrorHandler, contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" {
				errorHandler.HandleError(w, r, apierrors.New(
					http.StatusUnsupportedMediaType,
					"MISSING_CONTENT_TYPE",
					"Content-Type header is required",
				))
				return
			}

			for _, allowed := range contentTypes {
				if strings.HasPrefix(strings.ToLower(contentType), allowed) {
					next.ServeHTTP(w, r)
					return
				}
			}

			errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Unsupported content type",
				map[string]interface{}{
					"content_type": contentType,
					"allowed":      contentTypes,
				},
			))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "report_format":
		return fmt.Sprintf("%s must be one of: xlsx, csv, parquet", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isReportFormat(fl validator.FieldLevel) bool {
	_, ok := domain.ParseReportFormat(fl.Field().String())
	return ok
}
