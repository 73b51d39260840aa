package pushsender

import (
	"context"
)

// Виды каналов доставки. Значение совпадает с дискриминатором kind
// у зарегистрированного эндпоинта получателя.
const (
	KindWebPush    = "web-push"
	KindCloudToken = "cloud-token"
	KindEmail      = "email"
)

// Target описывает один адрес доставки без привязки к модулю endpoint:
// каналу не нужно знать про БД, только про адрес и ключи.
type Target struct {
	Kind      string // web-push | cloud-token | email
	Address   string // endpoint URL подписки, FCM-токен или email-адрес
	P256dhKey string // только web-push
	AuthKey   string // только web-push
	Platform  string // только cloud-token (android/ios), опционально
}

// Message содержит данные одного напоминания.
type Message struct {
	Title string
	Body  string
	// Tag используется для схлопывания повторов на стороне клиента
	// (order ID + окно), провайдеры мапят его на collapse key / ws tag.
	Tag  string
	Data map[string]string // orderId, orderNumber, orderDate, orderTime, window
}

// Result - классификация исхода отправки. Каждый канал обязан свести
// любой ответ провайдера ровно к одному из трех значений: от этого
// зависит и пометка окна отправленным, и чистка мертвых эндпоинтов.
type Result int

const (
	// Delivered - провайдер принял сообщение.
	Delivered Result = iota
	// EndpointInvalid - адрес мертв окончательно (410/404 у web-push,
	// unregistered/invalid-argument у FCM). Эндпоинт подлежит удалению.
	EndpointInvalid
	// TransientFailure - временный сбой сети или провайдера. Повтор
	// на следующем цикле, окно отправленным не помечается.
	TransientFailure
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case EndpointInvalid:
		return "endpoint-invalid"
	case TransientFailure:
		return "transient-failure"
	}
	return "unknown"
}

// Outcome - результат одной попытки доставки на один адрес.
type Outcome struct {
	Kind    string
	Address string
	Result  Result
	Detail  string // текст ошибки провайдера, если была
}

// Sender определяет интерфейс канала доставки: одно сообщение на один адрес.
type Sender interface {
	Send(ctx context.Context, target Target, msg Message) Outcome
	// Ping проверяет доступность и конфигурацию канала.
	Ping(ctx context.Context) error
}
