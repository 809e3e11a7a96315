package config

import (
	"embed"
	stdErrors "errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	apperrors "APKBackup/internal/errors"
)

// StorageMode selects where verified artifacts end up.
type StorageMode string

const (
	StorageLocal StorageMode = "local"
	StorageS3    StorageMode = "s3"
)

// Config is the complete runtime configuration, built once at startup.
type Config struct {
	WorkDir  string         `yaml:"workdir"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Download DownloadConfig `yaml:"download"`
	Upload   UploadConfig   `yaml:"upload"`
	AWS      AWSConfig      `yaml:"aws"`
	Report   ReportConfig   `yaml:"report"`

	// Run carries command-line choices; it is never read from YAML.
	Run RunOptions `yaml:"-"`
}

// CatalogConfig describes the release catalog API.
type CatalogConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Org               string        `yaml:"org"`
	APIToken          string        `yaml:"api_token"`
	AppFilter         []string      `yaml:"app_filter"`
	MaxAttempts       int           `yaml:"max_attempts"`
	MinBackoff        time.Duration `yaml:"min_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Timeout           time.Duration `yaml:"timeout"`
}

// DownloadConfig bounds artifact downloads.
type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// UploadConfig bounds object uploads.
type UploadConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// AWSConfig holds the bucket and the credentials used to reach it.
type AWSConfig struct {
	Bucket          string `yaml:"bucket"`
	Profile         string `yaml:"profile"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
}

// ReportConfig configures the audit trail.
type ReportConfig struct {
	HistoryDB string `yaml:"history_db"`
}

// RunOptions mirrors the command-line switches.
type RunOptions struct {
	Storage  StorageMode
	Preserve bool
	Yes      bool
}

// HasStaticCredentials reports whether an explicit key pair and region are configured.
func (a AWSConfig) HasStaticCredentials() bool {
	return a.AccessKeyID != "" && a.SecretAccessKey != "" && a.Region != ""
}

// UsesS3 reports whether the run targets object storage.
func (c *Config) UsesS3() bool {
	return c.Run.Storage == StorageS3
}

//go:embed defaults.yaml
var embeddedDefaults embed.FS

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	data, err := embeddedDefaults.ReadFile("defaults.yaml")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded defaults")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.Run.Storage = StorageLocal
	return cfg, nil
}

// Load reads the defaults, overlays the file at path and then the environment.
// A missing file is tolerated when optional is true.
func Load(path string, optional bool) (*Config, error) {
	base, err := Default()
	if err != nil {
		return nil, err
	}

	var fileCfg *Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		fileCfg, err = Parse(data)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid config file %s", path)
		}
	case optional && stdErrors.Is(err, fs.ErrNotExist):
	default:
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}

	merged := Merge(base, fileCfg)
	merged.ApplyEnv(os.LookupEnv)
	return merged, nil
}

// Parse decodes configuration data from bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if len(data) == 0 {
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse configuration")
	}
	return &cfg, nil
}

// Merge overlays later configurations onto earlier ones. Zero values never override.
func Merge(cfgs ...*Config) *Config {
	var result Config
	for _, cfg := range cfgs {
		if cfg == nil {
			continue
		}
		overlayString(&result.WorkDir, cfg.WorkDir)

		overlayString(&result.Catalog.BaseURL, cfg.Catalog.BaseURL)
		overlayString(&result.Catalog.Org, cfg.Catalog.Org)
		overlayString(&result.Catalog.APIToken, cfg.Catalog.APIToken)
		if len(cfg.Catalog.AppFilter) > 0 {
			result.Catalog.AppFilter = append([]string(nil), cfg.Catalog.AppFilter...)
		}
		overlayInt(&result.Catalog.MaxAttempts, cfg.Catalog.MaxAttempts)
		overlayDuration(&result.Catalog.MinBackoff, cfg.Catalog.MinBackoff)
		overlayDuration(&result.Catalog.MaxBackoff, cfg.Catalog.MaxBackoff)
		overlayDuration(&result.Catalog.Timeout, cfg.Catalog.Timeout)
		if cfg.Catalog.RequestsPerSecond > 0 {
			result.Catalog.RequestsPerSecond = cfg.Catalog.RequestsPerSecond
		}

		overlayInt(&result.Download.MaxAttempts, cfg.Download.MaxAttempts)
		overlayDuration(&result.Download.RetryDelay, cfg.Download.RetryDelay)
		overlayDuration(&result.Download.Timeout, cfg.Download.Timeout)

		overlayInt(&result.Upload.MaxAttempts, cfg.Upload.MaxAttempts)
		overlayDuration(&result.Upload.RetryDelay, cfg.Upload.RetryDelay)

		overlayString(&result.AWS.Bucket, cfg.AWS.Bucket)
		overlayString(&result.AWS.Profile, cfg.AWS.Profile)
		overlayString(&result.AWS.AccessKeyID, cfg.AWS.AccessKeyID)
		overlayString(&result.AWS.SecretAccessKey, cfg.AWS.SecretAccessKey)
		overlayString(&result.AWS.SessionToken, cfg.AWS.SessionToken)
		overlayString(&result.AWS.Region, cfg.AWS.Region)
		overlayString(&result.AWS.Endpoint, cfg.AWS.Endpoint)

		overlayString(&result.Report.HistoryDB, cfg.Report.HistoryDB)

		if cfg.Run.Storage != "" {
			result.Run.Storage = cfg.Run.Storage
		}
		result.Run.Preserve = result.Run.Preserve || cfg.Run.Preserve
		result.Run.Yes = result.Run.Yes || cfg.Run.Yes
	}

	if result.Download.MaxAttempts <= 0 {
		result.Download.MaxAttempts = 3
	}
	if result.Upload.MaxAttempts <= 0 {
		result.Upload.MaxAttempts = 3
	}
	if result.Catalog.MaxAttempts <= 0 {
		result.Catalog.MaxAttempts = 5
	}
	if result.Catalog.Timeout == 0 {
		result.Catalog.Timeout = time.Minute
	}
	if result.Download.Timeout == 0 {
		result.Download.Timeout = 5 * time.Minute
	}
	result.Catalog.BaseURL = strings.TrimRight(result.Catalog.BaseURL, "/")

	return &result
}

// ApplyEnv overlays secrets from the environment using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.Catalog.APIToken, "APKBACKUP_API_TOKEN")
	set(&c.AWS.Profile, "AWS_PROFILE")
	set(&c.AWS.AccessKeyID, "AWS_ACCESS_KEY_ID")
	set(&c.AWS.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	set(&c.AWS.SessionToken, "AWS_SESSION_TOKEN")
	set(&c.AWS.Region, "AWS_REGION")
}

// Validate checks that everything the selected storage mode needs is present.
func (c *Config) Validate() error {
	if c == nil {
		return configError("configuration is required", nil)
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		return configError("workdir is required", nil)
	}
	if c.Catalog.BaseURL == "" {
		return configError("catalog.base_url is required", nil)
	}
	if c.Catalog.Org == "" {
		return configError("catalog.org is required", nil)
	}
	if c.Catalog.APIToken == "" {
		return configError("catalog API token is required (catalog.api_token or APKBACKUP_API_TOKEN)", nil)
	}

	switch c.Run.Storage {
	case StorageLocal:
	case StorageS3:
		if strings.TrimSpace(c.AWS.Bucket) == "" {
			return apperrors.New(apperrors.ErrCategoryConfig, apperrors.CodeStorageBucket, "aws.bucket is required for s3 storage", nil).
				WithModule("config").
				WithOperation("Validate")
		}
		if c.AWS.Profile == "" && !c.AWS.HasStaticCredentials() {
			return apperrors.New(apperrors.ErrCategoryConfig, apperrors.CodeStorageCredentials, "no AWS profile or access key, secret and region configured", nil).
				WithModule("config").
				WithOperation("Validate")
		}
	default:
		return configError("unsupported storage mode", nil).
			WithField("storage", string(c.Run.Storage))
	}

	return nil
}

func configError(message string, err error) *apperrors.AppError {
	return apperrors.ConfigError(apperrors.CodeConfigGeneric, message, err).
		WithModule("config").
		WithOperation("Validate")
}

func overlayString(dst *string, v string) {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		*dst = trimmed
	}
}

func overlayInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func overlayDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
