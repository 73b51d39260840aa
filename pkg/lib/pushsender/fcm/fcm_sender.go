// pkg/lib/pushsender/fcm/fcm_sender.go
package fcm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"server/config"
	"server/pkg/lib/pushsender"
)

const messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

type FCMSender struct {
	client *messaging.Client
	// send выделен в поле, чтобы тесты могли подменить транспорт,
	// не поднимая Firebase-клиент.
	send func(ctx context.Context, message *messaging.Message) (string, error)
	log  *slog.Logger
}

// NewFCMSender инициализирует Firebase Messaging клиент. Access-токен
// сервисного аккаунта кэшируется и обновляется заранее (TokenExpiryMargin
// до фактического истечения), чтобы не ходить за ним на каждое сообщение.
func NewFCMSender(ctx context.Context, cfg config.FCMConfig, logger *slog.Logger) (*FCMSender, error) {
	log := logger.With(slog.String("component", "FCMSender"))

	if cfg.ProjectID == "" && cfg.ServiceAccountKeyJSONPath == "" {
		log.Error("Either ProjectID (for ADC) or ServiceAccountKeyJSONPath must be provided for FCM")
		return nil, errors.New("FCM configuration error: ProjectID or ServiceAccountKeyJSONPath is missing")
	}

	var opts []option.ClientOption

	if cfg.ServiceAccountKeyJSONPath != "" {
		keyJSON, err := os.ReadFile(cfg.ServiceAccountKeyJSONPath)
		if err != nil {
			return nil, fmt.Errorf("reading FCM service account key: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, keyJSON, messagingScope)
		if err != nil {
			return nil, fmt.Errorf("parsing FCM service account key: %w", err)
		}
		ts := oauth2.ReuseTokenSourceWithExpiry(nil, creds.TokenSource, cfg.TokenExpiryMargin)
		opts = append(opts, option.WithTokenSource(ts))
		log.Info("Using service account key with cached token source for FCM authentication.",
			"path", cfg.ServiceAccountKeyJSONPath, "expiry_margin", cfg.TokenExpiryMargin.String())
	} else {
		log.Info("Service account key path not provided, attempting to use Application Default Credentials for FCM.")
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		log.Error("Error initializing Firebase App for FCM", "error", err, "projectID", cfg.ProjectID)
		return nil, fmt.Errorf("initializing Firebase App: %w", err)
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		log.Error("Error getting Firebase Messaging client", "error", err)
		return nil, fmt.Errorf("getting Firebase Messaging client: %w", err)
	}

	log.Info("FCMSender initialized successfully")
	return &FCMSender{
		client: messagingClient,
		send:   messagingClient.Send,
		log:    log,
	}, nil
}

func (s *FCMSender) Send(ctx context.Context, target pushsender.Target, msg pushsender.Message) pushsender.Outcome {
	op := "FCMSender.Send"
	log := s.log.With(slog.String("op", op))

	out := pushsender.Outcome{Kind: pushsender.KindCloudToken, Address: target.Address}

	fcmMessage := &messaging.Message{
		Token: target.Address,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority:    "high",
			CollapseKey: msg.Tag,
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-collapse-id": msg.Tag},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := s.send(ctx, fcmMessage); err != nil {
		out.Detail = err.Error()
		switch {
		case messaging.IsUnregistered(err), messaging.IsInvalidArgument(err):
			// Токен мертв или испорчен, повторять бессмысленно.
			out.Result = pushsender.EndpointInvalid
			log.Warn("FCM token rejected as invalid", "error", err)
		default:
			out.Result = pushsender.TransientFailure
			log.Warn("FCM send failed, will retry next cycle", "error", err)
		}
		return out
	}

	out.Result = pushsender.Delivered
	log.Debug("FCM message delivered", slog.String("tag", msg.Tag))
	return out
}

func (s *FCMSender) Ping(ctx context.Context) error {
	op := "FCMSender.Ping"
	log := s.log.With(slog.String("op", op))

	if s.client == nil {
		log.Error("FCM client is not initialized.")
		return errors.New("FCM client not initialized, check NewFCMSender logs for errors")
	}

	log.Info("FCM Ping check successful (client initialized).")
	return nil
}
