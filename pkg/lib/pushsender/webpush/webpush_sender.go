// pkg/lib/pushsender/webpush/webpush_sender.go
package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	wp "github.com/SherClockHolmes/webpush-go"

	"server/config"
	"server/pkg/lib/pushsender"
)

type WebPushSender struct {
	subscriber string
	publicKey  string
	privateKey string
	ttl        int
	log        *slog.Logger
}

// NewWebPushSender читает VAPID-ключи из окружения (VAPID_PUBLIC_KEY /
// VAPID_PRIVATE_KEY); подпись каждого запроса делает webpush-go.
func NewWebPushSender(cfg config.WebPushConfig, logger *slog.Logger) (*WebPushSender, error) {
	log := logger.With(slog.String("component", "WebPushSender"))

	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	privateKey := os.Getenv("VAPID_PRIVATE_KEY")
	if publicKey == "" || privateKey == "" {
		log.Error("VAPID_PUBLIC_KEY or VAPID_PRIVATE_KEY environment variables are not set")
		return nil, errors.New("web push configuration error: VAPID keys are missing")
	}
	if cfg.Subscriber == "" {
		return nil, errors.New("web push configuration error: subscriber contact is missing")
	}

	log.Info("WebPushSender initialized successfully", slog.String("subscriber", cfg.Subscriber))
	return &WebPushSender{
		subscriber: cfg.Subscriber,
		publicKey:  publicKey,
		privateKey: privateKey,
		ttl:        int(cfg.TTL.Seconds()),
		log:        log,
	}, nil
}

// pushPayload - то, что увидит service worker в событии push.
type pushPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Tag   string            `json:"tag"`
	Data  map[string]string `json:"data,omitempty"`
}

func (s *WebPushSender) Send(ctx context.Context, target pushsender.Target, msg pushsender.Message) pushsender.Outcome {
	op := "WebPushSender.Send"
	log := s.log.With(slog.String("op", op))

	out := pushsender.Outcome{Kind: pushsender.KindWebPush, Address: target.Address}

	payload, err := json.Marshal(pushPayload{
		Title: msg.Title,
		Body:  msg.Body,
		Tag:   msg.Tag,
		Data:  msg.Data,
	})
	if err != nil {
		out.Result = pushsender.TransientFailure
		out.Detail = err.Error()
		return out
	}

	sub := &wp.Subscription{
		Endpoint: target.Address,
		Keys: wp.Keys{
			P256dh: target.P256dhKey,
			Auth:   target.AuthKey,
		},
	}

	resp, err := wp.SendNotificationWithContext(ctx, payload, sub, &wp.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
		Urgency:         wp.UrgencyHigh,
	})
	if err != nil {
		out.Result = pushsender.TransientFailure
		out.Detail = err.Error()
		log.Warn("web push request failed, will retry next cycle", "error", err)
		return out
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		out.Result = pushsender.Delivered
		log.Debug("web push delivered", slog.String("tag", msg.Tag))
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		// Подписка отозвана браузером, сервис сообщает об этом навсегда.
		out.Result = pushsender.EndpointInvalid
		out.Detail = resp.Status
		log.Warn("push subscription is gone", slog.Int("status", resp.StatusCode))
	default:
		out.Result = pushsender.TransientFailure
		out.Detail = resp.Status
		log.Warn("unexpected push service response, will retry next cycle", slog.Int("status", resp.StatusCode))
	}
	return out
}

func (s *WebPushSender) Ping(ctx context.Context) error {
	if s.publicKey == "" || s.privateKey == "" {
		return errors.New("web push sender not initialized, VAPID keys missing")
	}
	return nil
}
