package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apierrors "remcli/internal/errors"
	"remcli/internal/middleware"
	"remcli/internal/services"
	v1 "remcli/pkg/contracts/api/v1"
)

// ExtractionHandler handles extraction run HTTP requests
type ExtractionHandler struct {
	service      ExtractionServiceInterface
	validation   *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewExtractionHandler creates a new extraction handler
func NewExtractionHandler(service ExtractionServiceInterface, validation *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ExtractionHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ExtractionHandler{
		service:      service,
		validation:   validation,
		logger:       logger.With(slog.String("component", "extraction_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the extraction routes
func (h *ExtractionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Post("/run", h.Run)
	r.Get("/status", h.Status)

	return r
}

// Run handles POST /api/extraction/run. The run itself is asynchronous;
// a successful request returns 202 Accepted with the operation ID and
// progress is observable via GET /api/extraction/status or the WebSocket.
func (h *ExtractionHandler) Run(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetRequestID(ctx)
	tracer := otel.Tracer("extraction-handler")

	ctx, span := tracer.Start(ctx, "extraction_handler.run",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/extraction/run"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "extraction run request",
		slog.String("request_id", reqID),
	)

	// An absent body means "run with configured defaults", so EOF is fine.
	var req v1.ExtractionRunRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		span.RecordError(err)
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	if h.validation != nil {
		if err := h.validation.ValidateStruct(&req); err != nil {
			span.RecordError(err)
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	opID, err := h.service.Run(ctx, services.RunRequest{
		SourceDir:   req.SourceDir,
		TestType:    req.TestType,
		Frequencies: req.Frequencies,
		Workers:     req.Workers,
	})
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorContext(ctx, "extraction run rejected",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID),
		)

		switch {
		case errors.Is(err, services.ErrExtractionRunning):
			h.errorHandler.HandleError(w, r, apierrors.ErrExtractionRunning)
		case errors.Is(err, services.ErrSourceDirInvalid):
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("source_dir", err.Error()))
		default:
			h.errorHandler.HandleError(w, r, err)
		}
		return
	}

	span.SetAttributes(attribute.String("operation.id", opID))
	h.logger.InfoContext(ctx, "extraction run accepted",
		slog.String("operation_id", opID),
		slog.String("request_id", reqID),
	)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, v1.ExtractionRunResponse{
		Status:      "accepted",
		OperationID: opID,
	})
}

// Status handles GET /api/extraction/status
func (h *ExtractionHandler) Status(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}
