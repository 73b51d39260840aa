// pkg/lib/pushsender/logonly/log_sender.go
package logonly

import (
	"context"
	"log/slog"

	"server/pkg/lib/pushsender"
)

// LogSender - dry-run канал: вместо обращения к провайдеру пишет
// сообщение в лог и рапортует успех. Включается конфигом reminder.dry_run
// и встает за тот же интерфейс, что и боевые каналы.
type LogSender struct {
	kind string
	log  *slog.Logger
}

func New(kind string, logger *slog.Logger) *LogSender {
	return &LogSender{
		kind: kind,
		log:  logger.With(slog.String("component", "LogSender"), slog.String("kind", kind)),
	}
}

func (s *LogSender) Send(ctx context.Context, target pushsender.Target, msg pushsender.Message) pushsender.Outcome {
	s.log.Info("dry-run send",
		slog.String("address", target.Address),
		slog.String("title", msg.Title),
		slog.String("body", msg.Body),
		slog.String("tag", msg.Tag),
	)
	return pushsender.Outcome{Kind: s.kind, Address: target.Address, Result: pushsender.Delivered}
}

func (s *LogSender) Ping(ctx context.Context) error {
	return nil
}
