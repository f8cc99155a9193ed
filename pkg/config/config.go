package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Paystack      PaystackConfig
	Orders        OrdersConfig
	Notifications NotificationsConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"JUBILEE_APP_ENV" required:"true"`
	Port         string `envconfig:"JUBILEE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"JUBILEE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"JUBILEE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"JUBILEE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"JUBILEE_DB_DSN"`
	Driver string `envconfig:"JUBILEE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"JUBILEE_DB_HOST"`
	LegacyPort     int    `envconfig:"JUBILEE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"JUBILEE_DB_USER"`
	LegacyPassword string `envconfig:"JUBILEE_DB_PASSWORD"`
	LegacyName     string `envconfig:"JUBILEE_DB_NAME"`
	LegacySSLMode  string `envconfig:"JUBILEE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"JUBILEE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"JUBILEE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"JUBILEE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"JUBILEE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"JUBILEE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"JUBILEE_REDIS_ADDR"`
	Password     string        `envconfig:"JUBILEE_REDIS_PASSWORD"`
	DB           int           `envconfig:"JUBILEE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"JUBILEE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"JUBILEE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"JUBILEE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"JUBILEE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"JUBILEE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"JUBILEE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"JUBILEE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"JUBILEE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"JUBILEE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"JUBILEE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"JUBILEE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"JUBILEE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"JUBILEE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"JUBILEE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"JUBILEE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"JUBILEE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"JUBILEE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"JUBILEE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"JUBILEE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"JUBILEE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate       bool `envconfig:"JUBILEE_AUTO_MIGRATE" default:"false"`
	AllowBankTransfer bool `envconfig:"JUBILEE_FEATURE_ALLOW_BANK_TRANSFER" default:"true"`
	AllowVirtualAcct  bool `envconfig:"JUBILEE_FEATURE_ALLOW_VIRTUAL_ACCOUNT" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"JUBILEE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"JUBILEE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"JUBILEE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"JUBILEE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"JUBILEE_GCS_BUCKET_NAME"`
	UploadURLExpiry   time.Duration `envconfig:"JUBILEE_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"JUBILEE_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"JUBILEE_MAX_UPLOAD_MB" default:"50"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"JUBILEE_PUBSUB_ORDERS_TOPIC" default:"jb-order-events"`
	OrdersSubscription       string `envconfig:"JUBILEE_PUBSUB_ORDERS_SUBSCRIPTION"`
	NotificationSubscription string `envconfig:"JUBILEE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
	AnalyticsSubscription    string `envconfig:"JUBILEE_PUBSUB_ANALYTICS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"JUBILEE_BIGQUERY_DATASET" default:"jubilee"`
	OrderEventsTable string `envconfig:"JUBILEE_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type PaystackConfig struct {
	SecretKey   string `envconfig:"JUBILEE_PAYSTACK_SECRET_KEY"`
	BaseURL     string `envconfig:"JUBILEE_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL string `envconfig:"JUBILEE_PAYSTACK_CALLBACK_URL"`

	RetryAttempts int           `envconfig:"JUBILEE_PAYSTACK_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"JUBILEE_PAYSTACK_RETRY_BACKOFF" default:"60s"`
}

type OrdersConfig struct {
	CodePrefix        string        `envconfig:"JUBILEE_ORDER_CODE_PREFIX" default:"JBL"`
	PendingPaymentTTL time.Duration `envconfig:"JUBILEE_ORDER_PENDING_PAYMENT_TTL" default:"72h"`
}

type NotificationsConfig struct {
	ReadRetention time.Duration `envconfig:"JUBILEE_NOTIFICATIONS_READ_RETENTION" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"JUBILEE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"JUBILEE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"JUBILEE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
