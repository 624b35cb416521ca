package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/flagx"
	"github.com/dmitrijs2005/ascgate/internal/source"
	"github.com/dmitrijs2005/ascgate/internal/timex"
	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime settings for the ascgate CLI.
type Config struct {
	// API key identity.
	KeyID          string `yaml:"key_id" json:"key_id" env:"ASC_KEY_ID"`
	IssuerID       string `yaml:"issuer_id" json:"issuer_id" env:"ASC_ISSUER_ID"`
	PrivateKeyPath string `yaml:"private_key_path" json:"private_key_path" env:"ASC_PRIVATE_KEY_PATH"`

	APIRoot     string         `yaml:"api_root" json:"api_root" env:"ASC_API_ROOT"`
	HTTPTimeout timex.Duration `yaml:"http_timeout" json:"http_timeout" env:"ASC_HTTP_TIMEOUT"`

	// TokenMargin is how long before expiry a cached token is replaced.
	// NoTokenCache signs a fresh token for every call.
	TokenMargin  timex.Duration `yaml:"token_margin" json:"token_margin" env:"ASC_TOKEN_MARGIN"`
	NoTokenCache bool           `yaml:"no_token_cache" json:"no_token_cache" env:"ASC_NO_TOKEN_CACHE"`

	UploadConcurrency int            `yaml:"upload_concurrency" json:"upload_concurrency" env:"ASC_UPLOAD_CONCURRENCY"`
	PartRetries       int            `yaml:"part_retries" json:"part_retries" env:"ASC_PART_RETRIES"`
	PartRetryBase     timex.Duration `yaml:"part_retry_base" json:"part_retry_base" env:"ASC_PART_RETRY_BASE"`
	UploadTimeout     timex.Duration `yaml:"upload_timeout" json:"upload_timeout" env:"ASC_UPLOAD_TIMEOUT"`

	// JournalPath is the SQLite session journal; empty disables it.
	JournalPath string `yaml:"journal_path" json:"journal_path" env:"ASC_JOURNAL_PATH"`

	LogLevel    string `yaml:"log_level" json:"log_level" env:"ASC_LOG_LEVEL"`
	LogFile     string `yaml:"log_file" json:"log_file" env:"ASC_LOG_FILE"`
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" env:"ASC_METRICS_FILE"`

	// S3 settings for s3:// upload sources.
	S3Region    string `yaml:"s3_region" json:"s3_region" env:"ASC_S3_REGION"`
	S3Endpoint  string `yaml:"s3_endpoint" json:"s3_endpoint" env:"ASC_S3_ENDPOINT"`
	S3AccessKey string `yaml:"s3_access_key" json:"s3_access_key" env:"ASC_S3_ACCESS_KEY"`
	S3SecretKey string `yaml:"s3_secret_key" json:"s3_secret_key" env:"ASC_S3_SECRET_KEY"`

	// ConfigPath is the file the settings were read from, if any.
	ConfigPath string `yaml:"-" json:"-"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIRoot = common.DefaultAPIRoot
	c.HTTPTimeout = timex.Duration(30 * time.Second)
	c.TokenMargin = timex.Duration(auth.DefaultRefreshMargin)
	c.UploadConcurrency = 4
	c.PartRetries = 0
	c.PartRetryBase = timex.Duration(500 * time.Millisecond)
	c.UploadTimeout = timex.Duration(5 * time.Minute)
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// Load applies defaults, then the config file named in args (if any), then
// the environment. Flags are layered on top by BindFlags once the command
// line is parsed.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	cfg.ConfigPath = flagx.ConfigPath(args)
	if cfg.ConfigPath != "" {
		// ReadConfig overlays the environment after the file.
		if err := cleanenv.ReadConfig(cfg.ConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("%w: read config %s: %w", common.ErrConfiguration, cfg.ConfigPath, err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("%w: read environment: %w", common.ErrConfiguration, err)
	}
	return cfg, nil
}

// Anything shorter is a unit mistake rather than a deadline.
const minTimeout = time.Millisecond

// Validate checks the values that have no safe interpretation.
func (c *Config) Validate() error {
	switch {
	case c.UploadConcurrency < 1:
		return fmt.Errorf("%w: upload concurrency must be at least 1, got %d", common.ErrConfiguration, c.UploadConcurrency)
	case c.PartRetries < 0:
		return fmt.Errorf("%w: part retries must not be negative, got %d", common.ErrConfiguration, c.PartRetries)
	case c.HTTPTimeout.D() < minTimeout:
		return fmt.Errorf("%w: http timeout must be at least %s, got %s", common.ErrConfiguration, minTimeout, c.HTTPTimeout)
	case c.UploadTimeout.D() < minTimeout:
		return fmt.Errorf("%w: upload timeout must be at least %s, got %s", common.ErrConfiguration, minTimeout, c.UploadTimeout)
	case c.TokenMargin.D() < 0 || c.TokenMargin.D() >= auth.TokenLifetime:
		return fmt.Errorf("%w: token margin must be within [0, %s)", common.ErrConfiguration, auth.TokenLifetime)
	}
	return nil
}

// Credentials returns the API key identity. It is not checked here; the
// token issuer rejects incomplete credentials.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{KeyID: c.KeyID, IssuerID: c.IssuerID, KeyRef: c.PrivateKeyPath}
}

// S3 returns the options for source.NewS3Client.
func (c *Config) S3() source.S3Options {
	return source.S3Options{
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	}
}
