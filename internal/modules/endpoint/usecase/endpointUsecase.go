package usecase

import (
	"context"
	"log/slog"
	"net/mail"
	"strings"

	"server/internal/modules/endpoint"
	"server/pkg/lib/pushsender"
)

type EndpointUseCase struct {
	repo endpoint.Repo
	log  *slog.Logger
}

func NewEndpointUseCase(log *slog.Logger, repo endpoint.Repo) *EndpointUseCase {
	return &EndpointUseCase{
		repo: repo,
		log:  log,
	}
}

// Register валидирует канало-специфичные поля и делает upsert по
// (user, address): повторная регистрация того же адреса обновляет
// метаданные вместо создания дубликата.
func (uc *EndpointUseCase) Register(ctx context.Context, userID uint, req endpoint.RegisterEndpointRequest) (*endpoint.EndpointResponse, error) {
	op := "EndpointUseCase.Register"
	log := uc.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)), slog.String("kind", req.Kind))

	if err := validateChannelFields(req); err != nil {
		log.Warn("endpoint registration rejected", "error", err)
		return nil, err
	}

	e := &endpoint.DeliveryEndpoint{
		UserID:    userID,
		Kind:      req.Kind,
		Address:   strings.TrimSpace(req.Address),
		P256dhKey: req.P256dhKey,
		AuthKey:   req.AuthKey,
		Platform:  req.Platform,
	}

	saved, err := uc.repo.UpsertEndpoint(ctx, e)
	if err != nil {
		log.Error("failed to upsert endpoint", "error", err)
		return nil, err
	}

	log.Info("delivery endpoint registered", slog.Uint64("endpointID", uint64(saved.EndpointID)))
	return endpoint.ToEndpointResponse(saved), nil
}

func validateChannelFields(req endpoint.RegisterEndpointRequest) error {
	switch req.Kind {
	case pushsender.KindWebPush:
		// Без ключей подписи сообщение не зашифровать, подписка бесполезна.
		if req.P256dhKey == "" || req.AuthKey == "" {
			return endpoint.ErrEndpointValidation
		}
		if !strings.HasPrefix(req.Address, "https://") {
			return endpoint.ErrEndpointValidation
		}
	case pushsender.KindCloudToken:
		if strings.TrimSpace(req.Address) == "" {
			return endpoint.ErrEndpointValidation
		}
	case pushsender.KindEmail:
		if _, err := mail.ParseAddress(req.Address); err != nil {
			return endpoint.ErrEndpointValidation
		}
	default:
		return endpoint.ErrEndpointValidation
	}
	return nil
}

func (uc *EndpointUseCase) Unregister(ctx context.Context, userID uint, endpointID *uint) error {
	op := "EndpointUseCase.Unregister"
	log := uc.log.With(slog.String("op", op), slog.Uint64("userID", uint64(userID)))

	if endpointID == nil {
		log.Info("unregistering all delivery endpoints for user")
		return uc.repo.DeleteAllForUser(ctx, userID)
	}

	log.Info("unregistering delivery endpoint", slog.Uint64("endpointID", uint64(*endpointID)))
	return uc.repo.DeleteEndpoint(ctx, userID, *endpointID)
}

func (uc *EndpointUseCase) ListForUser(ctx context.Context, userID uint) ([]endpoint.DeliveryEndpoint, error) {
	endpoints, err := uc.repo.GetEndpointsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if endpoints == nil {
		endpoints = []endpoint.DeliveryEndpoint{}
	}
	return endpoints, nil
}

func (uc *EndpointUseCase) Invalidate(ctx context.Context, endpointID uint) error {
	op := "EndpointUseCase.Invalidate"
	log := uc.log.With(slog.String("op", op), slog.Uint64("endpointID", uint64(endpointID)))

	if err := uc.repo.DeleteByID(ctx, endpointID); err != nil {
		log.Error("failed to invalidate endpoint", "error", err)
		return err
	}
	log.Info("dead delivery endpoint pruned")
	return nil
}
