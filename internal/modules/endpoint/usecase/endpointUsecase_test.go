package usecase

import (
	"context"
	"io"
	"testing"

	"log/slog"

	"server/internal/modules/endpoint"
	"server/pkg/lib/pushsender"
)

// fakeRepo - реестр в памяти с upsert-семантикой по (user, address).
type fakeRepo struct {
	nextID    uint
	endpoints []endpoint.DeliveryEndpoint
}

func (f *fakeRepo) UpsertEndpoint(_ context.Context, e *endpoint.DeliveryEndpoint) (*endpoint.DeliveryEndpoint, error) {
	for i := range f.endpoints {
		if f.endpoints[i].UserID == e.UserID && f.endpoints[i].Address == e.Address {
			f.endpoints[i].Kind = e.Kind
			f.endpoints[i].P256dhKey = e.P256dhKey
			f.endpoints[i].AuthKey = e.AuthKey
			f.endpoints[i].Platform = e.Platform
			cp := f.endpoints[i]
			return &cp, nil
		}
	}
	f.nextID++
	e.EndpointID = f.nextID
	f.endpoints = append(f.endpoints, *e)
	cp := *e
	return &cp, nil
}

func (f *fakeRepo) DeleteEndpoint(_ context.Context, userID uint, endpointID uint) error {
	for i := range f.endpoints {
		if f.endpoints[i].UserID == userID && f.endpoints[i].EndpointID == endpointID {
			f.endpoints = append(f.endpoints[:i], f.endpoints[i+1:]...)
			return nil
		}
	}
	return endpoint.ErrEndpointNotFound
}

func (f *fakeRepo) DeleteAllForUser(_ context.Context, userID uint) error {
	kept := f.endpoints[:0]
	for _, e := range f.endpoints {
		if e.UserID != userID {
			kept = append(kept, e)
		}
	}
	f.endpoints = kept
	return nil
}

func (f *fakeRepo) DeleteByID(_ context.Context, endpointID uint) error {
	for i := range f.endpoints {
		if f.endpoints[i].EndpointID == endpointID {
			f.endpoints = append(f.endpoints[:i], f.endpoints[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) GetEndpointsByUserID(_ context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	var out []endpoint.DeliveryEndpoint
	for _, e := range f.endpoints {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestUseCase() (*EndpointUseCase, *fakeRepo) {
	repo := &fakeRepo{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEndpointUseCase(log, repo), repo
}

func webPushRequest(address string) endpoint.RegisterEndpointRequest {
	return endpoint.RegisterEndpointRequest{
		Kind:      pushsender.KindWebPush,
		Address:   address,
		P256dhKey: "p256dh",
		AuthKey:   "auth",
	}
}

func TestRegister_RoundTripAndUpsert(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	first, err := uc.Register(ctx, 7, webPushRequest("https://push.example.com/sub-1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	listed, err := uc.ListForUser(ctx, 7)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Address != "https://push.example.com/sub-1" {
		t.Fatalf("expected registered address in list, got %+v", listed)
	}

	// Повторная регистрация того же адреса обновляет, а не дублирует.
	req := webPushRequest("https://push.example.com/sub-1")
	req.P256dhKey = "rotated"
	second, err := uc.Register(ctx, 7, req)
	if err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if second.EndpointID != first.EndpointID {
		t.Errorf("re-registering must keep endpoint id %d, got %d", first.EndpointID, second.EndpointID)
	}

	listed, _ = uc.ListForUser(ctx, 7)
	if len(listed) != 1 {
		t.Errorf("expected list length unchanged after re-register, got %d", len(listed))
	}
	if listed[0].P256dhKey != "rotated" {
		t.Errorf("expected updated key after re-register, got %q", listed[0].P256dhKey)
	}
}

func TestRegister_ValidationPerKind(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	cases := []struct {
		name string
		req  endpoint.RegisterEndpointRequest
	}{
		{"web-push without keys", endpoint.RegisterEndpointRequest{Kind: pushsender.KindWebPush, Address: "https://push.example.com/sub"}},
		{"web-push plain http", func() endpoint.RegisterEndpointRequest {
			r := webPushRequest("http://push.example.com/sub")
			return r
		}()},
		{"cloud-token empty address", endpoint.RegisterEndpointRequest{Kind: pushsender.KindCloudToken, Address: "   "}},
		{"email malformed address", endpoint.RegisterEndpointRequest{Kind: pushsender.KindEmail, Address: "not-an-email"}},
		{"unknown kind", endpoint.RegisterEndpointRequest{Kind: "carrier-pigeon", Address: "coop-5"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Register(ctx, 7, tc.req); err != endpoint.ErrEndpointValidation {
				t.Errorf("expected ErrEndpointValidation, got %v", err)
			}
		})
	}
}

func TestUnregister_SingleAndAll(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	first, _ := uc.Register(ctx, 7, webPushRequest("https://push.example.com/sub-1"))
	_, _ = uc.Register(ctx, 7, webPushRequest("https://push.example.com/sub-2"))
	_, _ = uc.Register(ctx, 8, webPushRequest("https://push.example.com/other-user"))

	if err := uc.Unregister(ctx, 7, &first.EndpointID); err != nil {
		t.Fatalf("unregister single: %v", err)
	}
	listed, _ := uc.ListForUser(ctx, 7)
	if len(listed) != 1 {
		t.Fatalf("expected 1 endpoint left, got %d", len(listed))
	}

	if err := uc.Unregister(ctx, 7, nil); err != nil {
		t.Fatalf("unregister all: %v", err)
	}
	listed, _ = uc.ListForUser(ctx, 7)
	if len(listed) != 0 {
		t.Errorf("expected empty list after unregister all, got %d", len(listed))
	}

	// Чужие эндпоинты не затронуты.
	other, _ := uc.ListForUser(ctx, 8)
	if len(other) != 1 {
		t.Errorf("expected other user's endpoint intact, got %d", len(other))
	}
}

func TestListForUser_EmptyIsNotError(t *testing.T) {
	uc, _ := newTestUseCase()

	listed, err := uc.ListForUser(context.Background(), 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listed == nil || len(listed) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", listed)
	}
}

func TestInvalidate_RemovesFromSubsequentList(t *testing.T) {
	uc, _ := newTestUseCase()
	ctx := context.Background()

	created, _ := uc.Register(ctx, 7, webPushRequest("https://push.example.com/dead"))
	if err := uc.Invalidate(ctx, created.EndpointID); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	listed, _ := uc.ListForUser(ctx, 7)
	for _, e := range listed {
		if e.EndpointID == created.EndpointID {
			t.Error("invalidated endpoint must not appear in a subsequent list")
		}
	}
}
