// internal/modules/endpoint/entity.go
package endpoint

import (
	"context"
	"net/http"
	"time"

	"server/pkg/lib/pushsender"
)

// DeliveryEndpoint - GORM модель для таблицы 'delivery_endpoints'.
// Один пользователь может иметь сколько угодно адресов доставки, но пара
// (user_id, address) уникальна: повторная регистрация того же адреса
// обновляет метаданные, а не плодит дубликаты.
type DeliveryEndpoint struct {
	EndpointID uint   `gorm:"primaryKey;column:endpoint_id;autoIncrement"`
	UserID     uint   `gorm:"column:user_id;not null;uniqueIndex:uniq_endpoint_user_address,priority:1"`
	Kind       string `gorm:"type:varchar(20);not null;column:kind"`
	Address    string `gorm:"type:text;not null;column:address;uniqueIndex:uniq_endpoint_user_address,priority:2"`
	P256dhKey  string `gorm:"type:text;column:p256dh_key"`
	AuthKey    string `gorm:"type:text;column:auth_key"`
	Platform   string `gorm:"type:varchar(20);column:platform"`

	CreatedAt time.Time `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:CURRENT_TIMESTAMP"`
}

func (DeliveryEndpoint) TableName() string {
	return "delivery_endpoints"
}

// Target конвертирует запись реестра в адрес для канала доставки.
func (e *DeliveryEndpoint) Target() pushsender.Target {
	return pushsender.Target{
		Kind:      e.Kind,
		Address:   e.Address,
		P256dhKey: e.P256dhKey,
		AuthKey:   e.AuthKey,
		Platform:  e.Platform,
	}
}

// EndpointResponse - DTO для ответа API. Ключи подписки наружу не отдаем.
type EndpointResponse struct {
	EndpointID uint      `json:"endpoint_id"`
	Kind       string    `json:"kind"`
	Address    string    `json:"address"`
	Platform   string    `json:"platform,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToEndpointResponse(e *DeliveryEndpoint) *EndpointResponse {
	if e == nil {
		return nil
	}
	return &EndpointResponse{
		EndpointID: e.EndpointID,
		Kind:       e.Kind,
		Address:    e.Address,
		Platform:   e.Platform,
		CreatedAt:  e.CreatedAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func ToEndpointResponseList(endpoints []DeliveryEndpoint) []*EndpointResponse {
	responses := make([]*EndpointResponse, 0, len(endpoints))
	for i := range endpoints {
		responses = append(responses, ToEndpointResponse(&endpoints[i]))
	}
	return responses
}

// RegisterEndpointRequest - DTO регистрации адреса доставки.
// Для web-push address - это endpoint URL подписки, p256dh_key и auth_key
// обязательны; для cloud-token address - сам токен; для email - адрес.
type RegisterEndpointRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=web-push cloud-token email"`
	Address   string `json:"address" validate:"required"`
	P256dhKey string `json:"p256dh_key,omitempty"`
	AuthKey   string `json:"auth_key,omitempty"`
	Platform  string `json:"platform,omitempty" validate:"omitempty,oneof=android ios"`
}

type Controller interface {
	RegisterEndpoint(w http.ResponseWriter, r *http.Request)
	UnregisterEndpoint(w http.ResponseWriter, r *http.Request)
	UnregisterAllEndpoints(w http.ResponseWriter, r *http.Request)
	ListEndpoints(w http.ResponseWriter, r *http.Request)
}

type UseCase interface {
	// Register - upsert по (user, address), см. инвариант выше.
	Register(ctx context.Context, userID uint, req RegisterEndpointRequest) (*EndpointResponse, error)
	// Unregister удаляет один эндпоинт пользователя; nil - все сразу.
	Unregister(ctx context.Context, userID uint, endpointID *uint) error
	// ListForUser у пользователя без эндпоинтов возвращает пустой срез,
	// не ошибку: "некому доставлять" - легальный исход диспетчеризации.
	ListForUser(ctx context.Context, userID uint) ([]DeliveryEndpoint, error)
	// Invalidate жестко удаляет эндпоинт, о котором провайдер сообщил,
	// что адрес мертв.
	Invalidate(ctx context.Context, endpointID uint) error
}

type Repo interface {
	UpsertEndpoint(ctx context.Context, e *DeliveryEndpoint) (*DeliveryEndpoint, error)
	DeleteEndpoint(ctx context.Context, userID uint, endpointID uint) error
	DeleteAllForUser(ctx context.Context, userID uint) error
	DeleteByID(ctx context.Context, endpointID uint) error
	GetEndpointsByUserID(ctx context.Context, userID uint) ([]DeliveryEndpoint, error)
}
