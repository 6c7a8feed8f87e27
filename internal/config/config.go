package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
	AuthJWKSURL    string `mapstructure:"AUTH_JWKS_URL"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	SMSGatewayURL   string `mapstructure:"SMS_GATEWAY_URL"`
	SMSGatewayToken string `mapstructure:"SMS_GATEWAY_TOKEN"`
	SMSFrom         string `mapstructure:"SMS_FROM"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SMTP_PORT", 587)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("AUTH_JWKS_URL")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("SMTP_HOST")
	v.BindEnv("SMTP_PORT")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("SMTP_USERNAME")
	v.BindEnv("SMTP_PASSWORD")
	v.BindEnv("SMS_GATEWAY_URL")
	v.BindEnv("SMS_GATEWAY_TOKEN")
	v.BindEnv("SMS_FROM")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DevAuthEnabled reports whether the server should accept unauthenticated
// requests with a fixed admin identity. Only allowed in development,
// and only when no real auth is configured.
func (c *Config) DevAuthEnabled() bool {
	return c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == ""
}

// Validate checks that the configuration is safe to run. Outside of
// development either AUTH_ISSUER plus a JWKS endpoint or an HMAC signing
// key must be configured so that real JWT authentication is enforced,
// and at least one notification transport must be reachable.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.AuthIssuer == "" && c.AuthSigningKey == "" {
			return fmt.Errorf(
				"AUTH_ISSUER or AUTH_SIGNING_KEY must be set when ENV=%q. "+
					"Refusing to start without authentication configuration", c.Env)
		}
		if c.AuthIssuer != "" && c.AuthJWKSURL == "" && c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_JWKS_URL is required when AUTH_ISSUER is set without AUTH_SIGNING_KEY")
		}
	}

	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	if c.SMSGatewayURL != "" && c.SMSFrom == "" {
		return fmt.Errorf("SMS_FROM is required when SMS_GATEWAY_URL is set")
	}
	if c.IsProduction() && c.SMTPHost == "" && c.SMSGatewayURL == "" {
		return fmt.Errorf("at least one of SMTP_HOST or SMS_GATEWAY_URL is required in production")
	}

	return nil
}
