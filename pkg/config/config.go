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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	Storage       StorageConfig
	S3            S3Config
	Cache         CacheConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(cfg.S3); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LIBRARY_APP_ENV" required:"true"`
	Port         string `envconfig:"LIBRARY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIBRARY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIBRARY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

type DBConfig struct {
	DSN    string `envconfig:"LIBRARY_DB_DSN"`
	Driver string `envconfig:"LIBRARY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIBRARY_DB_HOST"`
	LegacyPort     int    `envconfig:"LIBRARY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIBRARY_DB_USER"`
	LegacyPassword string `envconfig:"LIBRARY_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIBRARY_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIBRARY_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"LIBRARY_SQLITE_PATH" default:"library.db"`

	MaxOpenConns    int           `envconfig:"LIBRARY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIBRARY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIBRARY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIBRARY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIBRARY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIBRARY_REDIS_ADDR"`
	Password     string        `envconfig:"LIBRARY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIBRARY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIBRARY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIBRARY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIBRARY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIBRARY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIBRARY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"LIBRARY_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"LIBRARY_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"LIBRARY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"LIBRARY_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LIBRARY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LIBRARY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LIBRARY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LIBRARY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LIBRARY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LIBRARY_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LIBRARY_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LIBRARY_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LIBRARY_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LIBRARY_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LIBRARY_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the in-process token bucket applied to public routes.
type RateLimitConfig struct {
	Enabled bool    `envconfig:"LIBRARY_RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64 `envconfig:"LIBRARY_RATE_LIMIT_RPS" default:"10"`
	Burst   int     `envconfig:"LIBRARY_RATE_LIMIT_BURST" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LIBRARY_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LIBRARY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LIBRARY_AUTO_MIGRATE" default:"false"`
}

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type StorageConfig struct {
	Driver      string `envconfig:"LIBRARY_STORAGE_DRIVER" default:"local"`
	LocalDir    string `envconfig:"LIBRARY_STORAGE_LOCAL_DIR" default:"uploads"`
	MaxUploadMB int    `envconfig:"LIBRARY_MAX_UPLOAD_MB" default:"500"`
	QuotaMB     int    `envconfig:"LIBRARY_STORAGE_QUOTA_MB" default:"5000"`
}

// MaxUploadBytes converts the configured upload ceiling to bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) * 1024 * 1024
}

func (s StorageConfig) validate(s3cfg S3Config) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverLocal:
		if s.LocalDir == "" {
			return fmt.Errorf("%s is required for the local storage driver", EnvStorageLocalDir)
		}
	case StorageDriverS3:
		if s3cfg.Bucket == "" || s3cfg.Region == "" {
			return fmt.Errorf("%s and %s are required for the s3 storage driver", EnvS3Bucket, EnvS3Region)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", s.Driver)
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("%s must be positive", EnvMaxUploadMB)
	}
	return nil
}

type S3Config struct {
	Bucket          string `envconfig:"LIBRARY_S3_BUCKET"`
	Region          string `envconfig:"LIBRARY_S3_REGION"`
	AccessKeyID     string `envconfig:"LIBRARY_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"LIBRARY_S3_SECRET_ACCESS_KEY"`
	Endpoint        string `envconfig:"LIBRARY_S3_ENDPOINT"`
	UsePathStyle    bool   `envconfig:"LIBRARY_S3_USE_PATH_STYLE" default:"false"`
}

type CacheConfig struct {
	ContentListTTL time.Duration `envconfig:"LIBRARY_CACHE_CONTENT_LIST_TTL" default:"1m"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
