package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "LIBRARY_APP_ENV"
	EnvPort     = "LIBRARY_APP_PORT"
	EnvLogLevel = "LIBRARY_LOG_LEVEL"

	EnvDBDSN      = "LIBRARY_DB_DSN"
	EnvDBHost     = "LIBRARY_DB_HOST"
	EnvDBUser     = "LIBRARY_DB_USER"
	EnvDBPassword = "LIBRARY_DB_PASSWORD"
	EnvDBName     = "LIBRARY_DB_NAME"

	EnvRedisURL = "LIBRARY_REDIS_URL"

	EnvJWTSecret              = "LIBRARY_JWT_SECRET"
	EnvJWTIssuer              = "LIBRARY_JWT_ISSUER"
	EnvJWTExpMins             = "LIBRARY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "LIBRARY_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite   = "LIBRARY_USE_SQLITE"
	EnvAutoMigrate = "LIBRARY_AUTO_MIGRATE"

	EnvStorageDriver   = "LIBRARY_STORAGE_DRIVER"
	EnvStorageLocalDir = "LIBRARY_STORAGE_LOCAL_DIR"
	EnvMaxUploadMB     = "LIBRARY_MAX_UPLOAD_MB"
	EnvStorageQuotaMB  = "LIBRARY_STORAGE_QUOTA_MB"

	EnvS3Bucket = "LIBRARY_S3_BUCKET"
	EnvS3Region = "LIBRARY_S3_REGION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
