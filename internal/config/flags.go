package config

import "github.com/spf13/pflag"

// BindFlags registers a flag for every setting on fs. Defaults are the
// values already loaded, so a flag only overrides what it is given.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	// parsed early by flagx.ConfigPath; registered so the parser accepts it
	fs.StringP("config", "c", c.ConfigPath, "path to a JSON or YAML config file")

	fs.StringVar(&c.KeyID, "key-id", c.KeyID, "API key id (kid)")
	fs.StringVar(&c.IssuerID, "issuer-id", c.IssuerID, "API key issuer id")
	fs.StringVar(&c.PrivateKeyPath, "private-key", c.PrivateKeyPath, "path to the .p8 private key")

	fs.StringVar(&c.APIRoot, "api-root", c.APIRoot, "API root URL")
	fs.Var(&c.HTTPTimeout, "http-timeout", "timeout of one API round trip")
	fs.Var(&c.TokenMargin, "token-margin", "replace cached tokens this long before they expire")
	fs.BoolVar(&c.NoTokenCache, "no-token-cache", c.NoTokenCache, "sign a new token for every call")

	fs.IntVar(&c.UploadConcurrency, "upload-concurrency", c.UploadConcurrency, "parts sent in parallel")
	fs.IntVar(&c.PartRetries, "part-retries", c.PartRetries, "retries per failed part (upload URLs must be reusable)")
	fs.Var(&c.PartRetryBase, "part-retry-base", "first backoff delay between part retries")
	fs.Var(&c.UploadTimeout, "upload-timeout", "timeout of one part transfer")

	fs.StringVar(&c.JournalPath, "journal", c.JournalPath, "SQLite journal of upload sessions")

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "also write JSON logs to this file")
	fs.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "write prometheus metrics to this file on exit")

	fs.StringVar(&c.S3Region, "s3-region", c.S3Region, "region for s3:// sources")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", c.S3Endpoint, "endpoint for s3:// sources (path-style)")
	fs.StringVar(&c.S3AccessKey, "s3-access-key", c.S3AccessKey, "access key for s3:// sources")
	fs.StringVar(&c.S3SecretKey, "s3-secret-key", c.S3SecretKey, "secret key for s3:// sources")
}
