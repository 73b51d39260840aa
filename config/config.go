package config

import (
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"os"
	"time"
)

type Config struct {
	Env              string           `yaml:"env" env-default:"development"`
	DbConfig         DbConfig         `yaml:"db" env-required:"true"`
	HttpServerConfig HttpServerConfig `yaml:"http_server" env-required:"true"`
	CacheConfig      CacheConfig      `yaml:"cache" env-required:"true"`
	SMTPConfig       SMTPConfig       `yaml:"smtp"`
	S3Config         S3Config         `yaml:"s3"`
	FCMConfig        FCMConfig        `yaml:"fcm"`
	WebPushConfig    WebPushConfig    `yaml:"web_push"`
	ReminderConfig   ReminderConfig   `yaml:"reminder"`
}

type CacheConfig struct {
	Address                 string        `yaml:"address" env-required:"true"`
	Db                      int           `yaml:"db"`
	DefaultEndpointCacheTtl time.Duration `yaml:"default_endpoint_cache_ttl" env-default:"5m"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type HttpServerConfig struct {
	Address        string        `yaml:"address" env-required:"true"`
	Timeout        time.Duration `yaml:"timeout" env-required:"true"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-required:"true"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	TLS            TLSConfig     `yaml:"tls"`
}

type FCMConfig struct {
	ProjectID                 string `yaml:"project_id"`                    // Project ID из Firebase Console
	ServiceAccountKeyJSONPath string `yaml:"service_account_key_json_path"` // Путь к JSON-ключу сервисного аккаунта
	// Запас до истечения access-токена, после которого он обновляется заранее.
	// Токен FCM живет час, 6m соответствует обновлению за ~10% до истечения.
	TokenExpiryMargin time.Duration `yaml:"token_expiry_margin" env-default:"6m"`
}

type WebPushConfig struct {
	// Контакт владельца VAPID-ключей (mailto: или URL), уходит в заголовок подписи.
	Subscriber string        `yaml:"subscriber"`
	TTL        time.Duration `yaml:"ttl" env-default:"24h"`
	// Сами ключи берутся из окружения: VAPID_PUBLIC_KEY / VAPID_PRIVATE_KEY.
}

type DbConfig struct {
	Username string `yaml:"username"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	DbName   string `yaml:"dbname"`
	SSLMode  string `yaml:"ssl_mode"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
}

type S3Config struct {
	Endpoint           string `yaml:"endpoint"`
	Region             string `yaml:"region"`
	BucketAuditArchive string `yaml:"bucket_audit_archive"`
}

type ReminderConfig struct {
	// Расписание обхода заказов; должно быть чаще 55 минут, иначе окно можно пропустить.
	SweepSchedule    string        `yaml:"sweep_schedule" env-default:"*/30 * * * *"`
	ArchiveSchedule  string        `yaml:"archive_schedule" env-default:"0 3 * * *"`
	PurgeSchedule    string        `yaml:"purge_schedule" env-default:"30 3 * * *"`
	FanOut           int           `yaml:"fan_out" env-default:"8"`
	SendTimeout      time.Duration `yaml:"send_timeout" env-default:"10s"`
	DryRun           bool          `yaml:"dry_run" env-default:"false"`
	StaleEndpointAge time.Duration `yaml:"stale_endpoint_age" env-default:"4320h"`
	AuditRetention   time.Duration `yaml:"audit_retention" env-default:"2160h"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/dev.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config file: %s. Error: %v", configPath, err)
	}

	return &cfg
}
