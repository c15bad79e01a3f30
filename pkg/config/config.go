package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"google.golang.org/api/option"
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
	Admin         AdminConfig
	Orders        OrdersConfig
	Square        SquareConfig
	Advisor       AdvisorConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Orders.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ASARUM_APP_ENV" required:"true"`
	Port         string `envconfig:"ASARUM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ASARUM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ASARUM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ASARUM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN        string `envconfig:"ASARUM_DB_DSN"`
	Driver     string `envconfig:"ASARUM_DB_DRIVER" default:"postgres"`
	SQLitePath string `envconfig:"ASARUM_SQLITE_PATH" default:"asarum.db"`

	LegacyHost     string `envconfig:"ASARUM_DB_HOST"`
	LegacyPort     int    `envconfig:"ASARUM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ASARUM_DB_USER"`
	LegacyPassword string `envconfig:"ASARUM_DB_PASSWORD"`
	LegacyName     string `envconfig:"ASARUM_DB_NAME"`
	LegacySSLMode  string `envconfig:"ASARUM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ASARUM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ASARUM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ASARUM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ASARUM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ASARUM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ASARUM_REDIS_ADDR"`
	Password     string        `envconfig:"ASARUM_REDIS_PASSWORD"`
	DB           int           `envconfig:"ASARUM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ASARUM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ASARUM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ASARUM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ASARUM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ASARUM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ASARUM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ASARUM_JWT_ISSUER" default:"asarum"`
	ExpirationMinutes int    `envconfig:"ASARUM_JWT_EXPIRATION_MINUTES" default:"720"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ASARUM_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ASARUM_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ASARUM_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ASARUM_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ASARUM_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ASARUM_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit int           `envconfig:"ASARUM_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ASARUM_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ASARUM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ASARUM_AUTO_MIGRATE" default:"false"`
	DemoOrders  bool `envconfig:"ASARUM_DEMO_ORDERS" default:"false"`
	SeedCatalog bool `envconfig:"ASARUM_SEED_CATALOG" default:"false"`
}

// AdminConfig holds the single back-office credential.
type AdminConfig struct {
	Username string `envconfig:"ASARUM_ADMIN_USERNAME" default:"admin"`
	Password string `envconfig:"ASARUM_ADMIN_PASSWORD" default:"123456"`
}

type OrdersConfig struct {
	IDPrefix      string        `envconfig:"ASARUM_ORDER_ID_PREFIX" default:"AS-"`
	MaxIDAttempts int           `envconfig:"ASARUM_ORDER_ID_MAX_ATTEMPTS" default:"5"`
	Currency      string        `envconfig:"ASARUM_ORDER_CURRENCY" default:"MXN"`
	CartTTL       time.Duration `envconfig:"ASARUM_CART_TTL" default:"72h"`
}

func (o OrdersConfig) validate() error {
	if strings.TrimSpace(o.IDPrefix) == "" {
		return fmt.Errorf("%s must not be empty", EnvOrderIDPrefix)
	}
	if o.MaxIDAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvOrderIDMaxAttempts)
	}
	return nil
}

type SquareConfig struct {
	AccessToken   string `envconfig:"ASARUM_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"ASARUM_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"ASARUM_SQUARE_LOCATION_ID"`
	WebhookSecret string `envconfig:"ASARUM_SQUARE_WEBHOOK_SECRET"`
	WebhookURL    string `envconfig:"ASARUM_SQUARE_WEBHOOK_URL"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// Enabled reports whether card charges go through Square.
func (s SquareConfig) Enabled() bool {
	return strings.TrimSpace(s.AccessToken) != ""
}

type AdvisorConfig struct {
	APIKey          string        `envconfig:"ASARUM_ADVISOR_API_KEY"`
	Model           string        `envconfig:"ASARUM_ADVISOR_MODEL" default:"gemini-3-flash-preview"`
	Temperature     float32       `envconfig:"ASARUM_ADVISOR_TEMPERATURE" default:"0.7"`
	RateLimitWindow time.Duration `envconfig:"ASARUM_ADVISOR_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitIP     int           `envconfig:"ASARUM_ADVISOR_RATE_LIMIT_IP" default:"30"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ASARUM_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ASARUM_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ASARUM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ASARUM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"ASARUM_PUBSUB_ORDERS_TOPIC" default:"as-order-events"`
	AnalyticsSubscription string `envconfig:"ASARUM_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"as-order-events-analytics"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"ASARUM_BIGQUERY_DATASET" default:"asarum"`
	OrderEventsTable string `envconfig:"ASARUM_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ASARUM_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ASARUM_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ASARUM_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ASARUM_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		if strings.TrimSpace(db.SQLitePath) == "" {
			return fmt.Errorf("%s is required when %s is set", EnvSQLitePath, EnvUseSQLite)
		}
		db.Driver = DriverSQLite
		return nil
	}
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

// ClientOptions picks the credentials Google clients are built with. Inline
// JSON wins over a credentials file; neither means application defaults.
func (g GCPConfig) ClientOptions() []option.ClientOption {
	switch {
	case strings.TrimSpace(g.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(g.CredentialsJSON))}
	case strings.TrimSpace(g.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(g.ApplicationCredentials)}
	default:
		return nil
	}
}
