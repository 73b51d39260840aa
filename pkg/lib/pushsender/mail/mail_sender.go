// pkg/lib/pushsender/mail/mail_sender.go
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"os"

	"gopkg.in/gomail.v2"

	"server/config"
	"server/pkg/lib/pushsender"
)

// MailSender доставляет напоминания на эндпоинты вида email через SMTP.
type MailSender struct {
	dialer    *gomail.Dialer
	fromEmail string
	log       *slog.Logger
}

func New(cfg config.SMTPConfig, logger *slog.Logger) (*MailSender, error) {
	log := logger.With(slog.String("component", "MailSender"))

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, os.Getenv("SMTP_PASSWORD"))

	// Проверяем соединение сразу, чтобы падать на старте, а не на первом письме.
	conn, err := d.Dial()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server %s:%d for user %s: %w", cfg.Host, cfg.Port, cfg.Username, err)
	}
	defer conn.Close()

	log.Info("MailSender initialized successfully", slog.String("host", cfg.Host))
	return &MailSender{dialer: d, fromEmail: cfg.Username, log: log}, nil
}

func (s *MailSender) Send(ctx context.Context, target pushsender.Target, msg pushsender.Message) pushsender.Outcome {
	op := "MailSender.Send"
	log := s.log.With(slog.String("op", op))

	out := pushsender.Outcome{Kind: pushsender.KindEmail, Address: target.Address}

	if _, err := mail.ParseAddress(target.Address); err != nil {
		// Кривой адрес не починится сам, эндпоинт подлежит удалению.
		out.Result = pushsender.EndpointInvalid
		out.Detail = err.Error()
		log.Warn("email endpoint address is not a valid address", "error", err)
		return out
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.fromEmail)
	m.SetHeader("To", target.Address)
	m.SetHeader("Subject", msg.Title)

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
    <h2 style="color: #2c3e50;">%s</h2>
    <p>%s</p>
    <p style="color: #777; font-size: 13px;">Заказ №%s на %s %s</p>
</body>
</html>`, msg.Title, msg.Body, msg.Data["orderNumber"], msg.Data["orderDate"], msg.Data["orderTime"])
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		// Ошибки SMTP считаем временными: отличить отказ получателя от
		// сетевого сбоя по тексту ненадежно, а повтор письма безвреден.
		out.Result = pushsender.TransientFailure
		out.Detail = err.Error()
		log.Warn("failed to send reminder email, will retry next cycle", "error", err)
		return out
	}

	out.Result = pushsender.Delivered
	log.Debug("reminder email delivered", slog.String("tag", msg.Tag))
	return out
}

func (s *MailSender) Ping(ctx context.Context) error {
	conn, err := s.dialer.Dial()
	if err != nil {
		return fmt.Errorf("smtp ping failed: %w", err)
	}
	return conn.Close()
}
