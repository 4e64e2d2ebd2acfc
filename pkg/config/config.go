package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Billing      BillingConfig
	Stripe       StripeConfig
	Compute      ComputeConfig
	RateLimit    RateLimitConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"AGENTDECK_APP_ENV" required:"true"`
	Port         string `envconfig:"AGENTDECK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AGENTDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AGENTDECK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AGENTDECK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AGENTDECK_DB_DSN"`
	Driver string `envconfig:"AGENTDECK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AGENTDECK_DB_HOST"`
	LegacyPort     int    `envconfig:"AGENTDECK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AGENTDECK_DB_USER"`
	LegacyPassword string `envconfig:"AGENTDECK_DB_PASSWORD"`
	LegacyName     string `envconfig:"AGENTDECK_DB_NAME"`
	LegacySSLMode  string `envconfig:"AGENTDECK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AGENTDECK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AGENTDECK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AGENTDECK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AGENTDECK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AGENTDECK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AGENTDECK_REDIS_ADDR"`
	Password     string        `envconfig:"AGENTDECK_REDIS_PASSWORD"`
	DB           int           `envconfig:"AGENTDECK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AGENTDECK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AGENTDECK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AGENTDECK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AGENTDECK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AGENTDECK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"AGENTDECK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"AGENTDECK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"AGENTDECK_JWT_EXPIRATION_MINUTES" required:"true"`
}

// BillingConfig carries the billing policy knobs. Checkout denominations and
// purchase classification keywords are explicit configuration passed into the
// services that need them.
type BillingConfig struct {
	CheckoutAmountsUSD []int64  `envconfig:"AGENTDECK_BILLING_CHECKOUT_AMOUNTS_USD" default:"10,25,50,100"`
	PurchaseKeywords   []string `envconfig:"AGENTDECK_BILLING_PURCHASE_KEYWORDS" default:"purchase,stripe,checkout"`
	LedgerMaxEntries   int      `envconfig:"AGENTDECK_BILLING_LEDGER_MAX_ENTRIES" default:"120"`
	UsageWindowDays    int      `envconfig:"AGENTDECK_BILLING_USAGE_WINDOW_DAYS" default:"30"`
}

// AllowsCheckoutAmount reports whether the given whole-dollar amount is a
// permitted checkout denomination.
func (b BillingConfig) AllowsCheckoutAmount(amountUSD int64) bool {
	for _, allowed := range b.CheckoutAmountsUSD {
		if allowed == amountUSD {
			return true
		}
	}
	return false
}

type StripeConfig struct {
	APIKey     string `envconfig:"AGENTDECK_STRIPE_API_KEY"`
	Secret     string `envconfig:"AGENTDECK_STRIPE_SECRET"`
	Env        string `envconfig:"AGENTDECK_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"AGENTDECK_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"AGENTDECK_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// ComputeConfig points at the orchestrator that owns tenant compute resources.
type ComputeConfig struct {
	BaseURL string        `envconfig:"AGENTDECK_COMPUTE_BASE_URL"`
	Token   string        `envconfig:"AGENTDECK_COMPUTE_TOKEN"`
	Timeout time.Duration `envconfig:"AGENTDECK_COMPUTE_TIMEOUT" default:"10s"`
}

// RateLimitConfig throttles the unauthenticated surfaces. Zero windows or
// limits disable the corresponding policy.
type RateLimitConfig struct {
	WebhookWindow   time.Duration `envconfig:"AGENTDECK_RATE_LIMIT_WEBHOOK_WINDOW" default:"1m"`
	WebhookIPLimit  int           `envconfig:"AGENTDECK_RATE_LIMIT_WEBHOOK_IP_LIMIT" default:"120"`
	CheckoutWindow  time.Duration `envconfig:"AGENTDECK_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit int           `envconfig:"AGENTDECK_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"30"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AGENTDECK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AGENTDECK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AGENTDECK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	UsageTopic        string `envconfig:"AGENTDECK_PUBSUB_USAGE_TOPIC" default:"adk-usage-events"`
	UsageSubscription string `envconfig:"AGENTDECK_PUBSUB_USAGE_SUBSCRIPTION" default:"adk-usage-events-sub"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AGENTDECK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AGENTDECK_AUTO_MIGRATE" default:"false"`
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
