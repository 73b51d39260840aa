package fcm

import (
	"context"
	"errors"
	"io"
	"testing"

	"log/slog"

	"firebase.google.com/go/v4/messaging"

	"server/pkg/lib/pushsender"
)

// Ветка EndpointInvalid опирается на messaging.IsUnregistered /
// messaging.IsInvalidArgument: их ошибки конструирует только сам SDK
// по ответу провайдера, снаружи такой error не собрать. Здесь
// покрываются остальные исходы и сборка сообщения из Target/Message.

func newTestFCMSender(send func(ctx context.Context, m *messaging.Message) (string, error)) *FCMSender {
	return &FCMSender{
		send: send,
		log:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSend_DeliveredOnAcceptedMessage(t *testing.T) {
	var got *messaging.Message
	sender := newTestFCMSender(func(_ context.Context, m *messaging.Message) (string, error) {
		got = m
		return "projects/p/messages/1", nil
	})

	out := sender.Send(context.Background(),
		pushsender.Target{Kind: pushsender.KindCloudToken, Address: "tok-1"},
		pushsender.Message{
			Title: "Заказ завтра",
			Body:  "Заказ №A-100 на завтра",
			Tag:   "order-42-window-2",
			Data:  map[string]string{"orderId": "42"},
		})

	if out.Result != pushsender.Delivered {
		t.Fatalf("got %v, want Delivered", out.Result)
	}
	if got == nil || got.Token != "tok-1" {
		t.Fatalf("message not addressed to target token: %+v", got)
	}
	if got.Notification == nil || got.Notification.Title != "Заказ завтра" {
		t.Errorf("notification content not carried over: %+v", got.Notification)
	}
	if got.Android == nil || got.Android.CollapseKey != "order-42-window-2" {
		t.Error("collapse key must be the dedup tag")
	}
	if got.APNS == nil || got.APNS.Headers["apns-collapse-id"] != "order-42-window-2" {
		t.Error("apns-collapse-id must be the dedup tag")
	}
	if got.Data["orderId"] != "42" {
		t.Errorf("data payload not carried over: %v", got.Data)
	}
}

func TestSend_ProviderErrorIsTransient(t *testing.T) {
	sender := newTestFCMSender(func(_ context.Context, _ *messaging.Message) (string, error) {
		return "", errors.New("context deadline exceeded")
	})

	out := sender.Send(context.Background(),
		pushsender.Target{Kind: pushsender.KindCloudToken, Address: "tok-1"},
		pushsender.Message{Title: "t", Body: "b"})

	if out.Result != pushsender.TransientFailure {
		t.Fatalf("got %v, want TransientFailure", out.Result)
	}
	if out.Detail == "" {
		t.Error("expected provider error in Detail")
	}
}

func TestPing_FailsWithoutClient(t *testing.T) {
	sender := newTestFCMSender(nil)
	if err := sender.Ping(context.Background()); err == nil {
		t.Error("expected health check failure without messaging client")
	}
}
