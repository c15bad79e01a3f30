package config

const (
	EnvPrefix = "ASARUM"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "ASARUM_APP_ENV"
	EnvPort     = "ASARUM_APP_PORT"
	EnvLogLevel = "ASARUM_LOG_LEVEL"

	EnvDBDSN      = "ASARUM_DB_DSN"
	EnvDBHost     = "ASARUM_DB_HOST"
	EnvDBUser     = "ASARUM_DB_USER"
	EnvDBName     = "ASARUM_DB_NAME"
	EnvSQLitePath = "ASARUM_SQLITE_PATH"
	EnvUseSQLite  = "ASARUM_USE_SQLITE"

	EnvRedisURL  = "ASARUM_REDIS_URL"
	EnvJWTSecret = "ASARUM_JWT_SECRET"
	EnvJWTIssuer = "ASARUM_JWT_ISSUER"

	EnvDemoOrders    = "ASARUM_DEMO_ORDERS"
	EnvAdminUsername = "ASARUM_ADMIN_USERNAME"
	EnvAdminPassword = "ASARUM_ADMIN_PASSWORD"

	EnvOrderIDPrefix      = "ASARUM_ORDER_ID_PREFIX"
	EnvOrderIDMaxAttempts = "ASARUM_ORDER_ID_MAX_ATTEMPTS"

	EnvSquareAccessToken = "ASARUM_SQUARE_ACCESS_TOKEN"
	EnvAdvisorAPIKey     = "ASARUM_ADVISOR_API_KEY"
	EnvGCPProjectID      = "ASARUM_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "ASARUM_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
