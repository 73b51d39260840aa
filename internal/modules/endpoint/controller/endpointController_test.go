package controller

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"server/internal/modules/endpoint"
)

type mockUseCase struct {
	register    func(ctx context.Context, userID uint, req endpoint.RegisterEndpointRequest) (*endpoint.EndpointResponse, error)
	unregister  func(ctx context.Context, userID uint, endpointID *uint) error
	listForUser func(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error)
	invalidate  func(ctx context.Context, endpointID uint) error
}

func (m *mockUseCase) Register(ctx context.Context, userID uint, req endpoint.RegisterEndpointRequest) (*endpoint.EndpointResponse, error) {
	return m.register(ctx, userID, req)
}

func (m *mockUseCase) Unregister(ctx context.Context, userID uint, endpointID *uint) error {
	return m.unregister(ctx, userID, endpointID)
}

func (m *mockUseCase) ListForUser(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	return m.listForUser(ctx, userID)
}

func (m *mockUseCase) Invalidate(ctx context.Context, endpointID uint) error {
	return m.invalidate(ctx, endpointID)
}

func newTestController(uc endpoint.UseCase) *EndpointController {
	return NewEndpointController(slog.New(slog.NewTextHandler(io.Discard, nil)), uc)
}

func withUser(r *http.Request, userID uint) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), "userId", userID))
}

func TestRegisterEndpoint_Created(t *testing.T) {
	uc := &mockUseCase{
		register: func(_ context.Context, userID uint, req endpoint.RegisterEndpointRequest) (*endpoint.EndpointResponse, error) {
			if userID != 7 {
				t.Errorf("expected userID 7, got %d", userID)
			}
			return &endpoint.EndpointResponse{EndpointID: 1, Kind: req.Kind, Address: req.Address}, nil
		},
	}
	ctrl := newTestController(uc)

	body := `{"kind":"web-push","address":"https://push.example.com/sub","p256dh_key":"k","auth_key":"a"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/endpoints", strings.NewReader(body)), 7)
	rec := httptest.NewRecorder()

	ctrl.RegisterEndpoint(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status string                    `json:"status"`
		Data   endpoint.EndpointResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.Data.EndpointID != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRegisterEndpoint_InvalidKindRejected(t *testing.T) {
	ctrl := newTestController(&mockUseCase{})

	body := `{"kind":"smoke-signal","address":"hilltop"}`
	req := withUser(httptest.NewRequest(http.MethodPost, "/v1/endpoints", strings.NewReader(body)), 7)
	rec := httptest.NewRecorder()

	ctrl.RegisterEndpoint(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterEndpoint_Unauthorized(t *testing.T) {
	ctrl := newTestController(&mockUseCase{})

	req := httptest.NewRequest(http.MethodPost, "/v1/endpoints", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	ctrl.RegisterEndpoint(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUnregisterEndpoint_NotFound(t *testing.T) {
	uc := &mockUseCase{
		unregister: func(_ context.Context, _ uint, _ *uint) error {
			return endpoint.ErrEndpointNotFound
		},
	}
	ctrl := newTestController(uc)

	req := httptest.NewRequest(http.MethodDelete, "/v1/endpoints/42", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("endpointID", "42")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	req = withUser(req, 7)
	rec := httptest.NewRecorder()

	ctrl.UnregisterEndpoint(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListEndpoints_ReturnsEmptyArray(t *testing.T) {
	uc := &mockUseCase{
		listForUser: func(_ context.Context, _ uint) ([]endpoint.DeliveryEndpoint, error) {
			return []endpoint.DeliveryEndpoint{}, nil
		},
	}
	ctrl := newTestController(uc)

	req := withUser(httptest.NewRequest(http.MethodGet, "/v1/endpoints", nil), 7)
	rec := httptest.NewRecorder()

	ctrl.ListEndpoints(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Status string                       `json:"status"`
		Data   []*endpoint.EndpointResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data == nil {
		t.Error("expected empty array, got null")
	}
}
