package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-driven configuration tree.
type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Images       ImagesConfig
	PubSub       PubSubConfig
	QuickBooks   QuickBooksConfig
	FeatureFlags FeatureFlagsConfig
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EQUIPQR_FEATURE_AUTO_MIGRATE" default:"false"`
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
	Env          string `envconfig:"EQUIPQR_APP_ENV" required:"true"`
	Port         string `envconfig:"EQUIPQR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EQUIPQR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EQUIPQR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"EQUIPQR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"EQUIPQR_DB_DSN"`
	Driver string `envconfig:"EQUIPQR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"EQUIPQR_DB_HOST"`
	Port     int    `envconfig:"EQUIPQR_DB_PORT" default:"5432"`
	User     string `envconfig:"EQUIPQR_DB_USER"`
	Password string `envconfig:"EQUIPQR_DB_PASSWORD"`
	Name     string `envconfig:"EQUIPQR_DB_NAME"`
	SSLMode  string `envconfig:"EQUIPQR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EQUIPQR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EQUIPQR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EQUIPQR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EQUIPQR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EQUIPQR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EQUIPQR_REDIS_ADDR"`
	Password     string        `envconfig:"EQUIPQR_REDIS_PASSWORD"`
	DB           int           `envconfig:"EQUIPQR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EQUIPQR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EQUIPQR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EQUIPQR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EQUIPQR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EQUIPQR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"EQUIPQR_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"EQUIPQR_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"EQUIPQR_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"EQUIPQR_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type GCPConfig struct {
	ProjectID              string `envconfig:"EQUIPQR_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"EQUIPQR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"EQUIPQR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"EQUIPQR_GCS_BUCKET_NAME" required:"true"`
	UploadURLExpiry   time.Duration `envconfig:"EQUIPQR_GCS_UPLOAD_URL_EXPIRY" default:"15m"`
	DownloadURLExpiry time.Duration `envconfig:"EQUIPQR_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type ImagesConfig struct {
	MaxPerItem     int   `envconfig:"EQUIPQR_IMAGES_MAX_PER_ITEM" default:"5"`
	MaxFileBytes   int64 `envconfig:"EQUIPQR_IMAGES_MAX_FILE_BYTES" default:"10485760"`
	StorageQuotaMB int64 `envconfig:"EQUIPQR_IMAGES_STORAGE_QUOTA_MB" default:"512"`
}

// StorageQuotaBytes converts the configured quota to bytes.
func (i ImagesConfig) StorageQuotaBytes() int64 {
	return i.StorageQuotaMB * 1024 * 1024
}

type PubSubConfig struct {
	CleanupTopic        string `envconfig:"EQUIPQR_PUBSUB_CLEANUP_TOPIC" required:"true"`
	CleanupSubscription string `envconfig:"EQUIPQR_PUBSUB_CLEANUP_SUBSCRIPTION" required:"true"`
}

type QuickBooksConfig struct {
	ClientID        string   `envconfig:"EQUIPQR_QB_CLIENT_ID"`
	ClientSecret    string   `envconfig:"EQUIPQR_QB_CLIENT_SECRET"`
	Environment     string   `envconfig:"EQUIPQR_QB_ENVIRONMENT" default:"sandbox"`
	ProductionBase  string   `envconfig:"EQUIPQR_QB_PRODUCTION_BASE_URL" default:"https://app.equipqr.app"`
	RedirectBase    string   `envconfig:"EQUIPQR_QB_REDIRECT_BASE_URL"`
	PreviewSuffixes []string `envconfig:"EQUIPQR_QB_PREVIEW_SUFFIXES" default:".vercel.app,.lovableproject.com"`
}

// IsSandbox reports whether the integration targets Intuit's sandbox API.
func (q QuickBooksConfig) IsSandbox() bool {
	return !strings.EqualFold(strings.TrimSpace(q.Environment), "production")
}

// RedirectBaseURL returns the base used to build the OAuth redirect_uri.
// Falls back to the production base; trailing slashes and whitespace are
// stripped so the exchange reproduces the authorization-time URI exactly.
func (q QuickBooksConfig) RedirectBaseURL() string {
	base := strings.TrimSpace(q.RedirectBase)
	if base == "" {
		base = strings.TrimSpace(q.ProductionBase)
	}
	return strings.TrimRight(base, "/")
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
