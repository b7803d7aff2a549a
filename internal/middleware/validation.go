package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "remcli/internal/errors"
	"remcli/pkg/contracts/domain"
)

// Extraction requests are a handful of fields; anything bigger is abuse.
const defaultBodyLimit = 1 << 20

// ValidationMiddleware validates request bodies against struct tags and
// answers failures as RFC 7807 problems.
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	bodyLimit    int64
}

// NewValidationMiddleware builds the validator with the toolkit's custom
// tags registered and JSON field names in error output.
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	v := validator.New()

	v.RegisterValidation("testtype", isValidTestType)
	v.RegisterValidation("frequency", isValidFrequency)
	v.RegisterValidation("filename", isValidFilename)

	// Problem responses name fields by their JSON key, not the Go field
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &ValidationMiddleware{
		validator:    v,
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		bodyLimit:    defaultBodyLimit,
	}
}

// ValidateRequest bounds the body size and rejects malformed JSON before
// the handler decodes it. The body is re-buffered for the handler.
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.bodyLimit {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body is larger than the accepted maximum",
				map[string]interface{}{
					"limit_bytes":    m.bodyLimit,
					"received_bytes": r.ContentLength,
				},
			))
			return
		}

		if r.Body != nil && r.ContentLength > 0 {
			body, err := io.ReadAll(io.LimitReader(r.Body, m.bodyLimit))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "request body read failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			if len(body) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.New(
					http.StatusBadRequest,
					"INVALID_JSON",
					"Request body is not valid JSON",
				))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateStruct runs tag validation and converts the failures into the
// API's validation error shape.
func (m *ValidationMiddleware) ValidateStruct(payload interface{}) error {
	err := m.validator.Struct(payload)
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError for unvalidatable values
		return err
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: m.formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// ContentTypeValidator rejects bodied requests whose Content-Type is not
// in the allowed set. Bodyless requests pass through, so a bare POST
// still reaches handlers that treat an absent body as defaults.
func ContentTypeValidator(contentTypes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodDelete:
				next.ServeHTTP(w, r)
				return
			}
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			ct := r.Header.Get("Content-Type")
			if ct == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, apierrors.New(
					http.StatusBadRequest,
					"MISSING_CONTENT_TYPE",
					"Requests with a body must carry a Content-Type header",
				))
				return
			}

			for _, accepted := range contentTypes {
				if strings.HasPrefix(ct, accepted) {
					next.ServeHTTP(w, r)
					return
				}
			}

			render.Status(r, http.StatusUnsupportedMediaType)
			render.JSON(w, r, apierrors.NewWithDetails(
				http.StatusUnsupportedMediaType,
				"UNSUPPORTED_MEDIA_TYPE",
				"Content type not supported",
				map[string]interface{}{
					"content_type": ct,
					"accepted":     contentTypes,
				},
			))
		})
	}
}

func (m *ValidationMiddleware) formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be %s or more", field, param)
	case "max", "lte":
		return fmt.Sprintf("%s must be %s or less", field, param)
	case "gt":
		return fmt.Sprintf("%s must be above %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be below %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "uuid":
		return field + " must be a valid UUID"
	case "testtype":
		return field + " must be one of: on-ear, test-box, speechmap"
	case "frequency":
		return field + " must be a frequency between 1 and 20000 Hz"
	case "filename":
		return field + " must be a valid filename"
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, err.Tag())
	}
}

// isValidTestType accepts the measurement contexts the instrument exports.
func isValidTestType(fl validator.FieldLevel) bool {
	return domain.TestType(fl.Field().String()).Valid()
}

// isValidFrequency bounds frequencies to the audible band the analyzer
// covers.
func isValidFrequency(fl validator.FieldLevel) bool {
	f := fl.Field().Int()
	return f >= 1 && f <= 20000
}

// isValidFilename rejects empty names, traversal sequences and path
// separators.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len(name) > 255 {
		return false
	}
	return !strings.ContainsAny(name, "/\\") && !strings.Contains(name, "..")
}

// QueryParamValidator checks query parameters and answers failures as
// RFC 7807 problems.
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt parses an integer parameter within [min, max]. An absent
// parameter yields defaultValue. The bool result is false when a problem
// response has already been written.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, param+" must be a valid integer"))
		return 0, false
	}
	if n < min || n > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
			fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}
	return n, true
}

// ValidateEnum checks a parameter against an allowed set. An absent
// parameter yields defaultValue.
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}
	if slices.Contains(allowed, value) {
		return value, true
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param,
		fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
