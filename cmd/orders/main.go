package main

import (
	"context"
	"errors"
	"fmt"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/robfig/cron/v3"
	"server/config"
	"server/docs"

	"server/internal/init/cache"
	"server/internal/init/database"
	s3init "server/internal/init/s3"

	// Endpoint module
	endpointC "server/internal/modules/endpoint/controller"
	endpointRp "server/internal/modules/endpoint/repo"
	endpointCacheRepo "server/internal/modules/endpoint/repo/cache"
	endpointDbRepo "server/internal/modules/endpoint/repo/database"
	endpointUC "server/internal/modules/endpoint/usecase"

	// Order module
	orderRp "server/internal/modules/order/repo"
	orderDbRepo "server/internal/modules/order/repo/database"

	// Notification module
	notificationC "server/internal/modules/notification/controller"
	"server/internal/modules/notification/dispatcher"
	notificationRp "server/internal/modules/notification/repo"
	notificationDbRepo "server/internal/modules/notification/repo/database"
	notificationUC "server/internal/modules/notification/usecase"
	"server/internal/modules/notification/ws"

	"server/pkg/lib/ReminderService"
	"server/pkg/lib/pushsender"
	"server/pkg/lib/pushsender/fcm"
	"server/pkg/lib/pushsender/logonly"
	mailsender "server/pkg/lib/pushsender/mail"
	"server/pkg/lib/pushsender/webpush"
	appMiddleware "server/pkg/middleware/jwt"
	"server/pkg/middleware/logger"
)

type App struct {
	Storage *database.Storage
	Cache   *cache.Cache
	S3      *s3init.S3Storage
	Router  chi.Router
	Log     *slog.Logger
	Cfg     *config.Config
	Cron    *cron.Cron
	RS      *ReminderService.ReminderService
	Hub     *ws.Hub

	endpointCtrl     *endpointC.EndpointController
	notificationCtrl *notificationC.NotificationController
}

func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	storage, err := database.NewStorage(cfg.DbConfig)
	if err != nil {
		return nil, fmt.Errorf("db init failed: %w", err)
	}

	appCache, err := cache.NewCache(cfg.CacheConfig)
	if err != nil {
		return nil, fmt.Errorf("cache init failed: %w", err)
	}

	s3s, err := s3init.NewS3Storage(cfg.S3Config)
	if err != nil {
		return nil, fmt.Errorf("s3 init failed: %w", err)
	}

	channels, err := buildChannels(context.Background(), cfg, log)
	if err != nil {
		return nil, fmt.Errorf("delivery channels init failed: %w", err)
	}

	hub := ws.NewHub(log)
	go hub.Run()

	// --- Order module (только чтение и флаги напоминаний) ---
	orderDBImpl := orderDbRepo.NewOrderDatabase(storage.Db, log)
	orderRepoImpl := orderRp.NewRepo(orderDBImpl)

	// --- Endpoint module ---
	endpointDBImpl := endpointDbRepo.NewEndpointDatabase(storage.Db, log)
	endpointCacheImpl := endpointCacheRepo.NewEndpointCache(appCache, log, cfg.CacheConfig.DefaultEndpointCacheTtl)
	endpointRepoImpl := endpointRp.NewRepo(endpointDBImpl, endpointCacheImpl, log)
	endpointUseCaseImpl := endpointUC.NewEndpointUseCase(log, endpointRepoImpl)

	// --- Notification module ---
	auditDBImpl := notificationDbRepo.NewAuditDatabase(storage.Db, log)
	auditRepoImpl := notificationRp.NewRepo(auditDBImpl)

	dispatcherImpl := dispatcher.NewNotificationDispatcher(
		log,
		orderRepoImpl,
		endpointUseCaseImpl,
		auditRepoImpl,
		channels,
		hub,
		dispatcher.Config{
			FanOut:      cfg.ReminderConfig.FanOut,
			SendTimeout: cfg.ReminderConfig.SendTimeout,
		},
	)
	notificationUseCaseImpl := notificationUC.NewNotificationUseCase(log, dispatcherImpl, orderRepoImpl, auditRepoImpl)

	// --- Периодические задачи ---
	reminderService := ReminderService.NewReminderService(
		storage.Db, notificationUseCaseImpl, auditRepoImpl, s3s, cfg.ReminderConfig, log)

	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(cfg.ReminderConfig.SweepSchedule, reminderService.RunReminderSweep); err != nil {
		return nil, fmt.Errorf("cron init failed (sweep): %w", err)
	}
	if _, err := cronScheduler.AddFunc(cfg.ReminderConfig.ArchiveSchedule, reminderService.ArchiveAuditLog); err != nil {
		return nil, fmt.Errorf("cron init failed (archive): %w", err)
	}
	if _, err := cronScheduler.AddFunc(cfg.ReminderConfig.PurgeSchedule, reminderService.PurgeStaleEndpoints); err != nil {
		return nil, fmt.Errorf("cron init failed (purge): %w", err)
	}
	cronScheduler.Start()

	return &App{
		Storage:          storage,
		Cache:            appCache,
		S3:               s3s,
		Router:           chi.NewRouter(),
		Log:              log,
		Cfg:              cfg,
		Cron:             cronScheduler,
		RS:               reminderService,
		Hub:              hub,
		endpointCtrl:     endpointC.NewEndpointController(log, endpointUseCaseImpl),
		notificationCtrl: notificationC.NewNotificationController(log, notificationUseCaseImpl),
	}, nil
}

// buildChannels собирает карту каналов доставки по виду эндпоинта.
// В dry-run все каналы подменяются лог-заглушками: логика
// диспетчеризации при этом не форкается, меняется только реализация.
func buildChannels(ctx context.Context, cfg *config.Config, log *slog.Logger) (map[string]pushsender.Sender, error) {
	channels := make(map[string]pushsender.Sender)

	if cfg.ReminderConfig.DryRun {
		log.Warn("dry-run mode enabled, all delivery channels are log-only")
		for _, kind := range []string{pushsender.KindWebPush, pushsender.KindCloudToken, pushsender.KindEmail} {
			channels[kind] = logonly.New(kind, log)
		}
		return channels, nil
	}

	webPushSender, err := webpush.NewWebPushSender(cfg.WebPushConfig, log)
	if err != nil {
		return nil, fmt.Errorf("web push sender init failed: %w", err)
	}
	channels[pushsender.KindWebPush] = webPushSender

	if cfg.FCMConfig.ProjectID != "" {
		fcmSender, err := fcm.NewFCMSender(ctx, cfg.FCMConfig, log)
		if err != nil {
			return nil, fmt.Errorf("fcm sender init failed: %w", err)
		}
		channels[pushsender.KindCloudToken] = fcmSender
	} else {
		log.Warn("fcm project_id is not configured, cloud-token channel is log-only")
		channels[pushsender.KindCloudToken] = logonly.New(pushsender.KindCloudToken, log)
	}

	if cfg.SMTPConfig.Host != "" {
		mailSender, err := mailsender.New(cfg.SMTPConfig, log)
		if err != nil {
			return nil, fmt.Errorf("mail sender init failed: %w", err)
		}
		channels[pushsender.KindEmail] = mailSender
	} else {
		log.Warn("smtp host is not configured, email channel is log-only")
		channels[pushsender.KindEmail] = logonly.New(pushsender.KindEmail, log)
	}

	// Проверка здоровья каналов на старте: сбой не фатален, доставка
	// по живым каналам важнее, а мертвый канал даст TransientFailure.
	for kind, ch := range channels {
		if err := ch.Ping(ctx); err != nil {
			log.Warn("delivery channel failed health check", slog.String("kind", kind), "error", err)
		}
	}

	return channels, nil
}

func (app *App) Start() error {
	srv := &http.Server{
		Addr:         app.Cfg.HttpServerConfig.Address,
		Handler:      app.Router,
		ReadTimeout:  app.Cfg.HttpServerConfig.Timeout,
		WriteTimeout: app.Cfg.HttpServerConfig.Timeout,
		IdleTimeout:  app.Cfg.HttpServerConfig.IdleTimeout,
	}

	protocol := "http"
	if app.Cfg.HttpServerConfig.TLS.Enabled {
		protocol = "https"
	}
	swaggerHost := app.Cfg.HttpServerConfig.Address
	if strings.HasPrefix(swaggerHost, "0.0.0.0:") {
		swaggerHost = "localhost" + swaggerHost[len("0.0.0.0"):]
	} else if strings.HasPrefix(swaggerHost, ":") {
		swaggerHost = "localhost" + swaggerHost
	}

	docs.SwaggerInfo.Host = swaggerHost
	docs.SwaggerInfo.Schemes = []string{protocol}

	serverShutdown := make(chan error, 1)
	go func() {
		var err error
		serverType := "HTTP"
		addr := app.Cfg.HttpServerConfig.Address
		app.Log.Info("Attempting to start server", slog.String("address", addr), slog.Bool("tls_enabled", app.Cfg.HttpServerConfig.TLS.Enabled))

		if app.Cfg.HttpServerConfig.TLS.Enabled {
			serverType = "HTTPS"
			certFile := app.Cfg.HttpServerConfig.TLS.CertFile
			keyFile := app.Cfg.HttpServerConfig.TLS.KeyFile
			if _, errStat := os.Stat(certFile); os.IsNotExist(errStat) {
				errMsg := fmt.Sprintf("TLS cert_file not found: %s", certFile)
				app.Log.Error(errMsg)
				serverShutdown <- errors.New(errMsg)
				return
			}
			if _, errStat := os.Stat(keyFile); os.IsNotExist(errStat) {
				errMsg := fmt.Sprintf("TLS key_file not found: %s", keyFile)
				app.Log.Error(errMsg)
				serverShutdown <- errors.New(errMsg)
				return
			}
			err = srv.ListenAndServeTLS(certFile, keyFile)
		} else {
			app.Log.Info(fmt.Sprintf("%s server starting", serverType), slog.String("address", addr))
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Log.Error(fmt.Sprintf("%s server run failed", serverType), slog.String("error", err.Error()))
			serverShutdown <- err
		} else if errors.Is(err, http.ErrServerClosed) {
			app.Log.Info(fmt.Sprintf("%s server closed", serverType))
			serverShutdown <- nil
		}
	}()

	app.Log.Info(fmt.Sprintf("Swagger docs available at %s://%s%s/swagger/index.html",
		protocol, docs.SwaggerInfo.Host, docs.SwaggerInfo.BasePath))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			app.Log.Error("Server failed to start or encountered a fatal error", slog.String("error", err.Error()))
			if app.Cron != nil {
				app.Cron.Stop()
			}
			return fmt.Errorf("server runtime error: %w", err)
		}
		app.Log.Info("Server shutdown initiated by server itself.")
	case sig := <-quit:
		app.Log.Info("Received OS signal, initiating graceful shutdown...", slog.String("signal", sig.String()))
	}

	if app.Cron != nil {
		app.Log.Info("Stopping cron scheduler...")
		cronCtx := app.Cron.Stop()
		select {
		case <-cronCtx.Done():
			app.Log.Info("Cron scheduler stopped.")
		case <-time.After(3 * time.Second):
			app.Log.Warn("Cron scheduler stop timed out.")
		}
	}

	app.Log.Info("Shutting down HTTP/HTTPS server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		app.Log.Error("Server graceful shutdown failed", slog.String("error", err.Error()))
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	app.Log.Info("Server stopped gracefully")
	return nil
}

func (app *App) SetupRoutes() {
	app.Router.Use(
		middleware.Recoverer,
		middleware.RequestID,
		logger.New(app.Log),
		cors.Handler(cors.Options{
			AllowedOrigins:   app.Cfg.HttpServerConfig.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Cookie"},
			ExposedHeaders:   []string{"Link", "Set-Cookie"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	app.Router.Get("/swagger/*", httpSwagger.Handler())

	apiVersion := "/v1"
	AuthUserMiddleware := appMiddleware.NewUserAuth(app.Log)

	// --- Endpoint Module ---
	app.Router.Route(apiVersion+"/endpoints", func(r chi.Router) {
		r.Use(AuthUserMiddleware)
		r.Post("/", app.endpointCtrl.RegisterEndpoint)
		r.Get("/", app.endpointCtrl.ListEndpoints)
		r.Delete("/", app.endpointCtrl.UnregisterAllEndpoints)
		r.Delete("/{endpointID}", app.endpointCtrl.UnregisterEndpoint)
	})

	// --- Notification Module ---
	app.Router.With(AuthUserMiddleware).Post(apiVersion+"/orders/{orderID}/dispatch", app.notificationCtrl.DispatchOrder)
	app.Router.With(AuthUserMiddleware).Get(apiVersion+"/audit", app.notificationCtrl.ListAudit)

	app.Router.Group(func(r chi.Router) {
		r.Use(AuthUserMiddleware)
		r.Use(httprate.Limit(5, 1*time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Post(apiVersion+"/notifications/test", app.notificationCtrl.SendTestNotification)
	})

	// Операционный канал: события диспетчеризации в реальном времени.
	app.Router.With(AuthUserMiddleware).Get(apiVersion+"/notifications/stream", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := r.Context().Value("userId").(uint)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		app.Hub.ServeWS(w, r, userID)
	})
}

// @title Order Reminder API
// @version 1.0.0
// @description Reminder notification service for time-bound orders

// @host localhost:8080
// @BasePath /v1
// @Schemes http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	cfg := config.MustLoad()
	log := SetupLogger(cfg.Env)
	slog.SetDefault(log)

	app, err := NewApp(cfg, log)
	if err != nil {
		log.Error("app init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	app.SetupRoutes()

	if err := app.Start(); err != nil {
		log.Error("application terminated with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func SetupLogger(env string) *slog.Logger {
	var log *slog.Logger
	level := slog.LevelInfo
	switch strings.ToLower(env) {
	case "local", "dev", "development":
		level = slog.LevelDebug
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true}))
	case "prod", "production":
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true}))
	default:
		level = slog.LevelDebug
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level, AddSource: true}))
		slog.Warn("Unknown environment in SetupLogger, defaulting to 'local' text debug logger", slog.String("env", env))
	}
	return log
}
