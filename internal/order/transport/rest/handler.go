// Package rest provides HTTP handlers for order-related operations.
package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ordererrors "github.com/abelikov/storefront/internal/order/errors"
	"github.com/abelikov/storefront/internal/order/service"
	"github.com/abelikov/storefront/pkg/client/catalog"
	"github.com/abelikov/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const serviceName = "order-service"

const defaultPageSize = 100

type Handler struct {
	service  service.OrderService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new instance of OrderAPI with the provided service.
func NewHandler(service service.OrderService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the order service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Cancel)
		})

		r.Get("/customer/{customerId}", h.FindByCustomer)
	})

	r.Get("/health", h.HealthCheck)
}

// FindByID retrieves an order with its line items.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find order by ID", "ID", id)
	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ordererrors.ErrOrderNotFound) {
			mLogger.WarnContext(r.Context(), "Order not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %d not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving order", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve order with ID %d", id))
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order", "ID", found.ID, "Status", found.Status)
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindAll retrieves a list of all orders.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0, defaultPageSize)
	if !ok {
		return
	}
	offset, ok := web.ParseOptionalGte(r, w, mLogger, "offset", 0, 0)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to find all orders", "limit", limit, "offset", offset)
	list, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindByCustomer retrieves all orders belonging to a customer.
func (h *Handler) FindByCustomer(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	customerID := r.PathValue("customerId")
	if customerID == "" {
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid customer ID")
		return
	}
	limit, ok := web.ParseOptionalGt(r, w, mLogger, "limit", 0, defaultPageSize)
	if !ok {
		return
	}
	offset, ok := web.ParseOptionalGte(r, w, mLogger, "offset", 0, 0)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find customer orders", "customer_id", customerID)
	list, err := h.service.FindByCustomer(r.Context(), customerID, offset, limit)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving customer orders", "customer_id", customerID, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved customer orders", "customer_id", customerID, "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// Create handles the creation of a new order, including stock reservation.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var orderCreateDto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&orderCreateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to create order", "customer_id", orderCreateDto.CustomerID, "items", len(orderCreateDto.Items))
	if !h.validateStruct(w, r, mLogger, orderCreateDto) {
		return
	}

	newOrder, err := h.service.Create(r.Context(), orderCreateDto)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrInsufficientStock):
			mLogger.WarnContext(r.Context(), "Order rejected, insufficient stock", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Insufficient stock: %v", err))
		case errors.Is(err, catalog.ErrProductNotFound):
			mLogger.WarnContext(r.Context(), "Order rejected, unknown product", "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Unknown product: %v", err))
		case errors.Is(err, catalog.ErrUnavailable):
			mLogger.ErrorContext(r.Context(), "Order rejected, product service unavailable", "error", err)
			web.RespondError(w, mLogger, http.StatusServiceUnavailable, "Product service unavailable, try again later")
		default:
			mLogger.ErrorContext(r.Context(), "Error creating order", "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to create order")
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Order created successfully", "ID", newOrder.ID, "customer_id", newOrder.CustomerID, "total_amount", newOrder.TotalAmount)
	web.RespondJSON(w, mLogger, http.StatusCreated, newOrder)
}

// Update applies a partial update to an existing order.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to update order", "ID", id)
	var orderUpdateDto service.OrderUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&orderUpdateDto); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !h.validateStruct(w, r, mLogger, orderUpdateDto) {
		return
	}

	updated, err := h.service.Update(r.Context(), id, orderUpdateDto)
	if err != nil {
		switch {
		case errors.Is(err, ordererrors.ErrOrderNotFound):
			mLogger.WarnContext(r.Context(), "Order not found for update", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %d not found", id))
		case errors.Is(err, ordererrors.ErrInvalidTransition):
			mLogger.WarnContext(r.Context(), "Invalid status transition", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Invalid status transition: %v", err))
		default:
			mLogger.ErrorContext(r.Context(), "Error updating order", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to update order with ID %d", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Order updated successfully", "ID", updated.ID)
	web.RespondJSON(w, mLogger, http.StatusOK, updated)
}

// Cancel marks an order as cancelled. The order row is kept.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger)
	if !ok {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to cancel order", "ID", id)
	if _, err := h.service.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, ordererrors.ErrOrderNotFound):
			mLogger.WarnContext(r.Context(), "Order not found for cancellation", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %d not found", id))
		case errors.Is(err, ordererrors.ErrInvalidTransition):
			mLogger.WarnContext(r.Context(), "Order cannot be cancelled", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusBadRequest, fmt.Sprintf("Order cannot be cancelled: %v", err))
		default:
			mLogger.ErrorContext(r.Context(), "Error cancelling order", "ID", id, "error", err)
			web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to cancel order with ID %d", id))
		}
		return
	}
	mLogger.InfoContext(r.Context(), "Order cancelled successfully", "ID", id)
	web.RespondJSON(w, mLogger, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Order %d cancelled", id),
	})
}

// HealthCheck is the liveness probe. It bypasses the policy gate.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	web.RespondJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
	})
}

// validateStruct runs struct validation and writes the error response on failure.
func (h *Handler) validateStruct(w http.ResponseWriter, r *http.Request, mLogger *slog.Logger, payload any) bool {
	if err := h.validate.Struct(payload); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			errorResponse := make(map[string]string)
			for _, fieldErr := range validationErrors {
				errorResponse[fieldErr.Field()] = "failed on rule: " + fieldErr.Tag()
			}
			mLogger.WarnContext(r.Context(), "Validation errors occurred", "errors", errorResponse)
			web.RespondJSON(w, mLogger, http.StatusBadRequest, map[string]any{"validation_errors": errorResponse})
			return false
		}
		mLogger.ErrorContext(r.Context(), "Error validating request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
