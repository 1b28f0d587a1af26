package config

// EnvPrefix is the envconfig prefix shared by every section.
const EnvPrefix = "EQUIPQR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv                 = "EQUIPQR_APP_ENV"
	EnvPort                   = "EQUIPQR_APP_PORT"
	EnvDBDSN                  = "EQUIPQR_DB_DSN"
	EnvDBHost                 = "EQUIPQR_DB_HOST"
	EnvDBUser                 = "EQUIPQR_DB_USER"
	EnvDBName                 = "EQUIPQR_DB_NAME"
	EnvRedisURL               = "EQUIPQR_REDIS_URL"
	EnvJWTSecret              = "EQUIPQR_JWT_SECRET"
	EnvJWTIssuer              = "EQUIPQR_JWT_ISSUER"
	EnvJWTExpMins             = "EQUIPQR_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID           = "EQUIPQR_GCP_PROJECT_ID"
	EnvGCSBucket              = "EQUIPQR_GCS_BUCKET_NAME"
	EnvPubSubCleanupTopic     = "EQUIPQR_PUBSUB_CLEANUP_TOPIC"
	EnvPubSubCleanupSub       = "EQUIPQR_PUBSUB_CLEANUP_SUBSCRIPTION"
	EnvQuickBooksEnvironment  = "EQUIPQR_QB_ENVIRONMENT"
	EnvQuickBooksRedirectBase = "EQUIPQR_QB_REDIRECT_BASE_URL"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
