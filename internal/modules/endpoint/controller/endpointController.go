package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"log/slog"

	"server/internal/modules/endpoint"
	resp "server/pkg/lib/response"
)

// EndpointController обрабатывает HTTP-запросы реестра адресов доставки.
type EndpointController struct {
	useCase  endpoint.UseCase
	log      *slog.Logger
	validate *validator.Validate
}

func NewEndpointController(log *slog.Logger, useCase endpoint.UseCase) *EndpointController {
	return &EndpointController{
		useCase:  useCase,
		log:      log,
		validate: validator.New(),
	}
}

// RegisterEndpoint
// @Summary Register a delivery endpoint
// @Tags endpoints
// @Description Registers a push subscription, device token or email address for reminder delivery. Re-registering the same address updates it in place.
// @Accept json
// @Produce json
// @Param endpoint body endpoint.RegisterEndpointRequest true "Endpoint registration data"
// @Success 201 {object} endpoint.EndpointResponse "Endpoint registered"
// @Failure 400 {object} response.ErrorResponse "Invalid request payload or validation error"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /endpoints [post]
// @Security ApiKeyAuth
func (c *EndpointController) RegisterEndpoint(w http.ResponseWriter, r *http.Request) {
	op := "EndpointController.RegisterEndpoint"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	var req endpoint.RegisterEndpointRequest
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

	endpointResponse, err := c.useCase.Register(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, endpoint.ErrEndpointValidation):
			log.Warn("endpoint registration rejected", "error", err)
			resp.SendError(w, r, http.StatusBadRequest, err.Error())
		default:
			log.Error("usecase Register failed", "error", err)
			resp.SendError(w, r, http.StatusInternalServerError, "Failed to register endpoint")
		}
		return
	}

	log.Info("endpoint registered", slog.Uint64("endpointID", uint64(endpointResponse.EndpointID)))
	resp.SendSuccess(w, r, http.StatusCreated, endpointResponse)
}

// UnregisterEndpoint
// @Summary Unregister a delivery endpoint
// @Tags endpoints
// @Description Removes a single delivery endpoint owned by the authenticated user.
// @Produce json
// @Param endpointID path int true "Endpoint ID"
// @Success 200 {object} response.SuccessResponse "Endpoint removed"
// @Failure 400 {object} response.ErrorResponse "Invalid Endpoint ID"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Endpoint not found"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /endpoints/{endpointID} [delete]
// @Security ApiKeyAuth
func (c *EndpointController) UnregisterEndpoint(w http.ResponseWriter, r *http.Request) {
	op := "EndpointController.UnregisterEndpoint"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	endpointIDStr := chi.URLParam(r, "endpointID")
	endpointID64, err := strconv.ParseUint(endpointIDStr, 10, 32)
	if err != nil {
		log.Warn("invalid endpointID format", "endpointIDStr", endpointIDStr, "error", err)
		resp.SendError(w, r, http.StatusBadRequest, "Invalid Endpoint ID format")
		return
	}
	endpointID := uint(endpointID64)

	if err := c.useCase.Unregister(r.Context(), userID, &endpointID); err != nil {
		switch {
		case errors.Is(err, endpoint.ErrEndpointNotFound):
			log.Warn("endpoint not found for unregister")
			resp.SendError(w, r, http.StatusNotFound, err.Error())
		default:
			log.Error("usecase Unregister failed", "error", err)
			resp.SendError(w, r, http.StatusInternalServerError, "Failed to unregister endpoint")
		}
		return
	}

	log.Info("endpoint unregistered", slog.Uint64("endpointID", uint64(endpointID)))
	resp.SendOK(w, r, http.StatusOK)
}

// UnregisterAllEndpoints
// @Summary Unregister all delivery endpoints
// @Tags endpoints
// @Description Removes every delivery endpoint registered by the authenticated user.
// @Produce json
// @Success 200 {object} response.SuccessResponse "Endpoints removed"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /endpoints [delete]
// @Security ApiKeyAuth
func (c *EndpointController) UnregisterAllEndpoints(w http.ResponseWriter, r *http.Request) {
	op := "EndpointController.UnregisterAllEndpoints"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	if err := c.useCase.Unregister(r.Context(), userID, nil); err != nil {
		log.Error("usecase Unregister (all) failed", "error", err)
		resp.SendError(w, r, http.StatusInternalServerError, "Failed to unregister endpoints")
		return
	}

	log.Info("all endpoints unregistered")
	resp.SendOK(w, r, http.StatusOK)
}

// ListEndpoints
// @Summary List delivery endpoints
// @Tags endpoints
// @Description Returns every delivery endpoint registered by the authenticated user. Subscription keys are omitted.
// @Produce json
// @Success 200 {array} endpoint.EndpointResponse "Endpoints"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /endpoints [get]
// @Security ApiKeyAuth
func (c *EndpointController) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	op := "EndpointController.ListEndpoints"
	log := c.log.With(slog.String("op", op))

	userID, ok := r.Context().Value("userId").(uint)
	if !ok {
		log.Error("userID not found in context")
		resp.SendError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}
	log = log.With(slog.Uint64("userID", uint64(userID)))

	endpoints, err := c.useCase.ListForUser(r.Context(), userID)
	if err != nil {
		log.Error("usecase ListForUser failed", "error", err)
		resp.SendError(w, r, http.StatusInternalServerError, "Failed to list endpoints")
		return
	}

	resp.SendSuccess(w, r, http.StatusOK, endpoint.ToEndpointResponseList(endpoints))
}
