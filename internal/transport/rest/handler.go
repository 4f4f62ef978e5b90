// Package rest provides HTTP handlers for the storefront API.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	trierrors "github.com/trilabs/tri-backend/internal/errors"
	"github.com/trilabs/tri-backend/internal/invoice"
	"github.com/trilabs/tri-backend/internal/mailer"
	"github.com/trilabs/tri-backend/internal/metrics"
	"github.com/trilabs/tri-backend/internal/service"
	"github.com/trilabs/tri-backend/internal/store"
	"github.com/trilabs/tri-backend/pkg/web"
)

// Diagnostics is what the /test endpoint needs from the store.
type Diagnostics interface {
	store.DiagnosticsStore
	Ping(ctx context.Context) error
}

type Handler struct {
	service  service.OrderService
	mailer   mailer.Mailer
	diag     Diagnostics
	dbURLSet bool
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of the storefront API with the provided service.
func NewHandler(svc service.OrderService, m mailer.Mailer, diag Diagnostics, dbURLSet bool, logger *slog.Logger) *Handler {
	return &Handler{
		service:  svc,
		mailer:   m,
		diag:     diag,
		dbURLSet: dbURLSet,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the storefront API.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/", h.Root)
	r.Get("/test", h.TestDatabase)
	r.Route("/api", func(r chi.Router) {
		r.Get("/hello", h.Hello)
		r.Post("/orders", h.CreateOrder)
		r.Get("/orders", h.ListOrders)
		r.Post("/payments/verify", h.VerifyPayment)
		r.Get("/invoice/{order_id}", h.Invoice)
		r.Post("/send-email", h.SendEmail)
	})
	r.Get("/healthz", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())
}

// Root reports that the backend is up.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]string{"message": "TRI Backend Running"})
}

// Hello is the API-level liveness greeting.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.loggerWithReqID(r), http.StatusOK, map[string]string{"message": "Hello from TRI backend API!"})
}

// testResponse mirrors the diagnostic object the frontend already parses,
// including the status-string conventions. The "collections" key survives
// from the document-store era and now lists tables.
type testResponse struct {
	Backend          string   `json:"backend"`
	Database         string   `json:"database"`
	DatabaseURL      *string  `json:"database_url"`
	DatabaseName     *string  `json:"database_name"`
	ConnectionStatus string   `json:"connection_status"`
	Collections      []string `json:"collections"`
}

// TestDatabase reports store connectivity. It never fails; every problem
// degrades into a status string.
func (h *Handler) TestDatabase(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	resp := testResponse{
		Backend:          "✅ Running",
		Database:         "❌ Not Available",
		ConnectionStatus: "Not Connected",
		Collections:      []string{},
	}
	urlStatus := "❌ Not Set"
	if h.dbURLSet {
		urlStatus = "✅ Set"
	}

	if err := h.diag.Ping(r.Context()); err != nil {
		if !errors.Is(err, trierrors.ErrStorageUnavailable) {
			resp.Database = "❌ Error: " + truncate(err.Error(), 80)
			resp.DatabaseURL = &urlStatus
		}
		web.RespondJSON(w, mLogger, http.StatusOK, resp)
		return
	}

	resp.DatabaseURL = &urlStatus
	resp.ConnectionStatus = "Connected"
	d, err := h.diag.Diagnostics(r.Context())
	if err != nil {
		resp.Database = "⚠️ Connected but Error: " + truncate(err.Error(), 80)
	} else {
		resp.Database = "✅ Connected & Working"
		resp.DatabaseName = &d.DatabaseName
		resp.Collections = append(resp.Collections, d.Tables...)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, resp)
}

// CreateOrder handles the creation of a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var orderCreateDto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&orderCreateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to create order", "user_email", orderCreateDto.UserEmail)
	if !h.validateStruct(w, r, mLogger, orderCreateDto) {
		return
	}

	newOrder, err := h.service.Create(r.Context(), orderCreateDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", slog.String("order_id", newOrder.GatewayOrderID))
	web.RespondJSON(w, mLogger, http.StatusOK, newOrder)
}

// VerifyPayment confirms a payment and returns the allocated invoice number.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var verifyDto service.VerifyPaymentDto
	if err := json.NewDecoder(r.Body).Decode(&verifyDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.validateStruct(w, r, mLogger, verifyDto) {
		return
	}

	verified, err := h.service.VerifyPayment(r.Context(), verifyDto)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Payment verified",
		"order_id", verifyDto.GatewayOrderID,
		"invoice_number", verified.InvoiceNumber,
	)
	web.RespondJSON(w, mLogger, http.StatusOK, verified)
}

// ListOrders retrieves the orders of the given email, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	email := r.URL.Query().Get("email")
	if email == "" {
		web.RespondError(w, mLogger, http.StatusUnprocessableEntity, "email url parameter is required")
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to list orders", "email", email)
	orders, err := h.service.FindByEmail(r.Context(), email)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{"orders": orders})
}

// Invoice renders an order's invoice as an HTML document.
func (h *Handler) Invoice(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	orderID := chi.URLParam(r, "order_id")

	doc, err := h.service.InvoiceByGatewayID(r.Context(), orderID)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err)
		return
	}
	body, err := invoice.Render(doc)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error rendering invoice", "order_id", orderID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to render invoice")
		return
	}
	web.RespondHTML(w, http.StatusOK, body)
}

// emailDto is the request body of the email stub.
type emailDto struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`
}

// SendEmail queues an email. Nothing is delivered by this service.
func (h *Handler) SendEmail(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var email emailDto
	if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.validateStruct(w, r, mLogger, email) {
		return
	}

	msg := mailer.EmailMessage{To: email.To, Subject: email.Subject, HTML: email.HTML, Text: email.Text}
	if err := h.mailer.Enqueue(r.Context(), msg); err != nil {
		// Queueing is best effort; the stub contract is to accept.
		mLogger.ErrorContext(r.Context(), "Failed to enqueue email", "to", email.To, "error", err)
	}
	metrics.EmailsQueued.Inc()
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]string{"status": "queued", "to": email.To})
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// validateStruct runs the validator and writes a 422 with per-field errors
// on failure. Reports whether validation passed.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, v any) bool {
	err := h.validate.Struct(v)
	if err == nil {
		return true
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorResponse := make(map[string]string)
		for _, fieldErr := range validationErrors {
			// fieldErr.Tag() returns "required", "min", etc.
			errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
		}
		mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
		web.RespondJSON(w, mLogger, http.StatusUnprocessableEntity, map[string]any{"validation_errors": errorResponse})
		return false
	}
	mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
	web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
	return false
}

// respondServiceError maps service errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, err error) {
	switch {
	case errors.Is(err, trierrors.ErrOrderNotFound):
		mLogger.WarnContext(r.Context(), "Order not found")
		web.RespondError(w, mLogger, http.StatusNotFound, "Order not found")
	case errors.Is(err, trierrors.ErrStorageUnavailable):
		mLogger.ErrorContext(r.Context(), "Storage unavailable", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Database not configured")
	case errors.Is(err, trierrors.ErrPaymentRejected):
		mLogger.WarnContext(r.Context(), "Payment rejected", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Payment verification failed")
	default:
		mLogger.ErrorContext(r.Context(), "Internal error", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Internal server error")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
