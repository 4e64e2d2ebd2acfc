package config

// EnvPrefix scopes envconfig processing; every variable already embeds the
// AGENTDECK_ prefix in its tag, so the prefix itself stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "AGENTDECK_APP_ENV"
	EnvPort     = "AGENTDECK_APP_PORT"
	EnvLogLevel = "AGENTDECK_LOG_LEVEL"

	EnvDBDSN  = "AGENTDECK_DB_DSN"
	EnvDBHost = "AGENTDECK_DB_HOST"
	EnvDBUser = "AGENTDECK_DB_USER"
	EnvDBName = "AGENTDECK_DB_NAME"

	EnvRedisURL = "AGENTDECK_REDIS_URL"

	EnvJWTSecret  = "AGENTDECK_JWT_SECRET"
	EnvJWTIssuer  = "AGENTDECK_JWT_ISSUER"
	EnvJWTExpMins = "AGENTDECK_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey = "AGENTDECK_STRIPE_API_KEY"
	EnvStripeSecret = "AGENTDECK_STRIPE_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
