package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"log/slog"

	"server/internal/modules/notification"
	"server/internal/modules/order"
	resp "server/pkg/lib/response"
)

type NotificationController struct {
	useCase  notification.UseCase
	log      *slog.Logger
	validate *validator.Validate
}

func NewNotificationController(log *slog.Logger, useCase notification.UseCase) *NotificationController {
	return &NotificationController{
		useCase:  useCase,
		log:      log,
		validate: validator.New(),
	}
}

// DispatchOrder
// @Summary Run the reminder cycle for an order
// @Tags notifications
// @Description Evaluates the current reminder window for the order and fans the reminder out to every registered endpoint. Safe to call repeatedly: a window never fires twice.
// @Produce json
// @Param orderID path int true "Order ID"
// @Success 200 {object} notification.DispatchResult "Dispatch summary"
// @Failure 400 {object} response.ErrorResponse "Invalid Order ID"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Order not found"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /orders/{orderID}/dispatch [post]
// @Security ApiKeyAuth
func (c *NotificationController) DispatchOrder(w http.ResponseWriter, r *http.Request) {
	op := "NotificationController.DispatchOrder"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	orderIDStr := chi.URLParam(r, "orderID")
	orderID64, err := strconv.ParseUint(orderIDStr, 10, 32)
	if err != nil {
		log.Warn("invalid orderID format", "orderIDStr", orderIDStr, "error", err)
		resp.SendError(w, r, http.StatusBadRequest, "Invalid Order ID format")
		return
	}

	result, err := c.useCase.ProcessOrder(r.Context(), uint(orderID64), userID)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			log.Warn("order not found")
			resp.SendError(w, r, http.StatusNotFound, err.Error())
		case errors.Is(err, notification.ErrNotificationState):
			log.Error("dispatch state unavailable", "error", err)
			resp.SendError(w, r, http.StatusInternalServerError, "Failed to persist dispatch state")
		default:
			log.Error("usecase ProcessOrder failed", "error", err)
			resp.SendError(w, r, http.StatusInternalServerError, "Failed to dispatch order reminder")
		}
		return
	}

	resp.SendSuccess(w, r, http.StatusOK, result)
}

// ListAudit
// @Summary List notification audit log
// @Tags notifications
// @Description Returns the delivery audit trail for the authenticated user, newest first.
// @Produce json
// @Param order_id query int false "Filter by order ID"
// @Param kind query string false "Filter by notification kind" Enums(window-1, window-2, window-3, due-today, manual)
// @Param from query string false "Entries created at or after (RFC3339)"
// @Param to query string false "Entries created before (RFC3339)"
// @Param limit query int false "Maximum entries to return (default 100)"
// @Success 200 {array} notification.AuditEntryResponse "Audit entries"
// @Failure 400 {object} response.ErrorResponse "Invalid filter parameter"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /audit [get]
// @Security ApiKeyAuth
func (c *NotificationController) ListAudit(w http.ResponseWriter, r *http.Request) {
	op := "NotificationController.ListAudit"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	filter, err := parseAuditFilter(r)
	if err != nil {
		log.Warn("invalid audit filter", "error", err)
		if errors.Is(err, notification.ErrNotificationValidation) {
			resp.SendError(w, r, http.StatusBadRequest, err.Error())
		} else {
			resp.SendError(w, r, http.StatusInternalServerError, "Failed to parse audit filter")
		}
		return
	}

	entries, err := c.useCase.ListAuditLog(r.Context(), userID, filter)
	if err != nil {
		log.Error("usecase ListAuditLog failed", "error", err)
		resp.SendError(w, r, http.StatusInternalServerError, "Failed to list audit entries")
		return
	}

	resp.SendSuccess(w, r, http.StatusOK, notification.ToAuditEntryResponseList(entries))
}

// SendTestNotification
// @Summary Send a test notification
// @Tags notifications
// @Description Sends an arbitrary message to every endpoint registered by the authenticated user. Order reminder state is not affected.
// @Accept json
// @Produce json
// @Param notification body notification.SendTestRequest true "Test notification content"
// @Success 200 {object} notification.DispatchResult "Dispatch summary"
// @Failure 400 {object} response.ErrorResponse "Invalid request payload or validation error"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /notifications/test [post]
// @Security ApiKeyAuth
func (c *NotificationController) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	op := "NotificationController.SendTestNotification"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	var req notification.SendTestRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("failed to decode request body", "error", err)
		resp.SendError(w, r, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := c.validate.Struct(req); err != nil {
		log.Warn("validation failed", "error", err)
		resp.SendValidationError(w, r, err)
		return
	}

	result, err := c.useCase.SendTestNotification(r.Context(), userID, req)
	if err != nil {
		log.Error("usecase SendTestNotification failed", "error", err)
		resp.SendError(w, r, http.StatusInternalServerError, "Failed to send test notification")
		return
	}

	log.Info("test notification dispatched", slog.Int("sent", result.Sent))
	resp.SendSuccess(w, r, http.StatusOK, result)
}

func parseAuditFilter(r *http.Request) (notification.AuditFilter, error) {
	var filter notification.AuditFilter
	q := r.URL.Query()

	if v := q.Get("order_id"); v != "" {
		id64, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid order_id filter", notification.ErrNotificationValidation)
		}
		id := uint(id64)
		filter.OrderID = &id
	}
	if v := q.Get("kind"); v != "" {
		switch v {
		case notification.KindWindow1, notification.KindWindow2, notification.KindWindow3,
			notification.KindDueToday, notification.KindManual:
			kind := v
			filter.Kind = &kind
		default:
			return filter, fmt.Errorf("%w: unknown kind filter", notification.ErrNotificationValidation)
		}
	}
	if v := q.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: from is not RFC3339", notification.ErrNotificationValidation)
		}
		filter.From = &ts
	}
	if v := q.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("%w: to is not RFC3339", notification.ErrNotificationValidation)
		}
		filter.To = &ts
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("%w: invalid limit filter", notification.ErrNotificationValidation)
		}
		filter.Limit = limit
	}
	return filter, nil
}
