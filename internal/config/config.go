/**
 * @description
 * This package handles the configuration management for the campaign-service.
 * It uses the Viper library to read configuration from environment variables
 * (with an optional .env file), providing a centralized way to manage
 * application settings.
 *
 * The amount reconciliation tables are deliberately configuration, not code:
 * the upstream has changed which amount fields exist and whether they are in
 * cents or dollars across API revisions, so the priority order and per-field
 * scale can be overridden per deployment without a release.
 *
 * @dependencies
 * - github.com/spf13/viper: Environment-driven configuration.
 * - internal/domain: Amount rule types and defaults.
 */

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/givehub/campaign-service/internal/domain"
)

// Config holds all the configuration variables for the campaign-service.
// These values are loaded from environment variables.
type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	ClassyAPIBaseURL   string `mapstructure:"CLASSY_API_BASE_URL"`
	ClassyTokenURL     string `mapstructure:"CLASSY_TOKEN_URL"`
	ClassyClientID     string `mapstructure:"CLASSY_CLIENT_ID"`
	ClassyClientSecret string `mapstructure:"CLASSY_CLIENT_SECRET"`
	ClassyOrgID        string `mapstructure:"CLASSY_ORG_ID"`

	ClassyPerPage            int `mapstructure:"CLASSY_PER_PAGE"`
	ClassyMaxPages           int `mapstructure:"CLASSY_MAX_PAGES"`
	TokenExpiryBufferSeconds int `mapstructure:"CLASSY_TOKEN_EXPIRY_BUFFER_SECONDS"`
	UpstreamTimeoutSeconds   int `mapstructure:"CLASSY_TIMEOUT_SECONDS"`

	ActivityFeedLimit   int `mapstructure:"ACTIVITY_FEED_LIMIT"`
	TopFundraisersLimit int `mapstructure:"TOP_FUNDRAISERS_LIMIT"`

	CORSAllowedOrigins    string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	TransactionAmountFields string `mapstructure:"TRANSACTION_AMOUNT_FIELDS"`
	PageRaisedFields        string `mapstructure:"PAGE_RAISED_FIELDS"`
	GoalAmountFields        string `mapstructure:"GOAL_AMOUNT_FIELDS"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It uses Viper to automatically bind environment variables to the
// Config struct.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("SERVER_PORT", "3001")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("CLASSY_API_BASE_URL", "https://api.classy.org")
	viper.SetDefault("CLASSY_TOKEN_URL", "https://api.classy.org/oauth2/auth")
	viper.SetDefault("CLASSY_PER_PAGE", 100)
	viper.SetDefault("CLASSY_MAX_PAGES", 20)
	viper.SetDefault("CLASSY_TOKEN_EXPIRY_BUFFER_SECONDS", 5)
	viper.SetDefault("CLASSY_TIMEOUT_SECONDS", 30)
	viper.SetDefault("ACTIVITY_FEED_LIMIT", 50)
	viper.SetDefault("TOP_FUNDRAISERS_LIMIT", 9)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	viper.SetDefault("TRANSACTION_AMOUNT_FIELDS", "")
	viper.SetDefault("PAGE_RAISED_FIELDS", "")
	viper.SetDefault("GOAL_AMOUNT_FIELDS", "")

	// Bind environment variables explicitly so they appear in Unmarshal
	// even when no .env file exists.
	for _, key := range []string{
		"APP_ENV", "SERVER_PORT", "LOG_LEVEL",
		"CLASSY_API_BASE_URL", "CLASSY_TOKEN_URL",
		"CLASSY_CLIENT_ID", "CLASSY_CLIENT_SECRET", "CLASSY_ORG_ID",
		"CLASSY_PER_PAGE", "CLASSY_MAX_PAGES",
		"CLASSY_TOKEN_EXPIRY_BUFFER_SECONDS", "CLASSY_TIMEOUT_SECONDS",
		"ACTIVITY_FEED_LIMIT", "TOP_FUNDRAISERS_LIMIT",
		"CORS_ALLOWED_ORIGINS", "REQUEST_TIMEOUT_SECONDS",
		"TRANSACTION_AMOUNT_FIELDS", "PAGE_RAISED_FIELDS", "GOAL_AMOUNT_FIELDS",
	} {
		_ = viper.BindEnv(key)
	}

	if err = viper.ReadInConfig(); err != nil {
		// A missing .env file is fine; only real read failures matter.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = viper.Unmarshal(&config)
	return
}

// HasClassyCredentials reports whether the upstream credential pair is set.
// Boot proceeds without it; requests then fail with a configuration error.
func (c Config) HasClassyCredentials() bool {
	return strings.TrimSpace(c.ClassyClientID) != "" && strings.TrimSpace(c.ClassyClientSecret) != ""
}

// TokenExpiryBuffer returns the safety margin subtracted from a token's
// reported lifetime.
func (c Config) TokenExpiryBuffer() time.Duration {
	return time.Duration(c.TokenExpiryBufferSeconds) * time.Second
}

// UpstreamTimeout returns the per-request timeout for upstream calls.
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.UpstreamTimeoutSeconds) * time.Second
}

// RequestTimeout returns the overall inbound request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AllowedOrigins splits the configured CORS origin list.
func (c Config) AllowedOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// TransactionRules returns the transaction amount reconciliation table,
// either the configured override or the default.
func (c Config) TransactionRules() (domain.AmountRules, error) {
	return amountRules(c.TransactionAmountFields, domain.DefaultTransactionRules())
}

// RaisedRules returns the fundraising-page raised-amount table.
func (c Config) RaisedRules() (domain.AmountRules, error) {
	return amountRules(c.PageRaisedFields, domain.DefaultRaisedRules())
}

// GoalRules returns the goal-amount table.
func (c Config) GoalRules() (domain.AmountRules, error) {
	return amountRules(c.GoalAmountFields, domain.DefaultGoalRules())
}

// amountRules parses a "field:scale,field:scale" specification, where scale
// is "major" or "minor". An empty specification yields the fallback.
func amountRules(spec string, fallback domain.AmountRules) (domain.AmountRules, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return fallback, nil
	}

	rules := domain.AmountRules{Scales: domain.ScaleTable{}}
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		field, scale := entry, "major"
		if idx := strings.IndexByte(entry, ':'); idx >= 0 {
			field = strings.TrimSpace(entry[:idx])
			scale = strings.TrimSpace(strings.ToLower(entry[idx+1:]))
		}
		if field == "" {
			return domain.AmountRules{}, fmt.Errorf("amount field spec %q has an empty field name", entry)
		}
		switch scale {
		case "major":
			rules.Scales[field] = domain.Major
		case "minor":
			rules.Scales[field] = domain.Minor
		default:
			return domain.AmountRules{}, fmt.Errorf("amount field %q has unknown scale %q (want major or minor)", field, scale)
		}
		rules.Priority = append(rules.Priority, field)
	}
	if len(rules.Priority) == 0 {
		return fallback, nil
	}
	return rules, nil
}
