package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "./etc/config.yaml"

const (
	envPrefix = "PROJTRACK_"
	redacted  = "********"
)

type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		BasePath        string        `yaml:"basePath"`
		CORSOrigin      string        `yaml:"corsOrigin"`
		Mode            string        `yaml:"mode"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		TrustedProxies  []string      `yaml:"trustedProxies"` // peers allowed to set X-Forwarded-For
	} `yaml:"server"`
	Database struct {
		Driver   string `yaml:"driver"` // postgres | sqlite
		DSN      string `yaml:"dsn"`    // takes precedence over the postgres block
		Postgres struct {
			Host     string `yaml:"host"`
			Port     string `yaml:"port"`
			DBName   string `yaml:"dbname"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			SSLMode  string `yaml:"sslmode"`
			TimeZone string `yaml:"TimeZone"`
		} `yaml:"postgres"`
		MaxIdleConns int `yaml:"maxIdleConns"`
		MaxOpenConns int `yaml:"maxOpenConns"`
	} `yaml:"database"`
	Storage struct {
		Driver          string `yaml:"driver"` // minio | local
		Endpoint        string `yaml:"endpoint"`
		AccessKeyID     string `yaml:"accessKeyID"`
		SecretAccessKey string `yaml:"secretAccessKey"`
		UseSSL          bool   `yaml:"useSSL"`
		Bucket          string `yaml:"bucket"`
		LocalDir        string `yaml:"localDir"`
	} `yaml:"storage"`
	Auth struct {
		Password       string `yaml:"password"`
		PasswordHash   string `yaml:"passwordHash"`
		JWTSecret      string `yaml:"jwtSecret"`
		TokenTTLHours  int    `yaml:"tokenTTLHours"`
		LoginPerMinute int    `yaml:"loginPerMinute"`
	} `yaml:"auth"`
	Upload struct {
		MaxFileSizeMB int64 `yaml:"maxFileSizeMB"`
	} `yaml:"upload"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns a configuration usable for local development once auth
// secrets are filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Server.BasePath = "/api"
	cfg.Server.CORSOrigin = "*"
	cfg.Server.Mode = "release"
	cfg.Server.ShutdownTimeout = 10 * time.Second
	cfg.Database.Driver = "postgres"
	cfg.Database.Postgres.Port = "5432"
	cfg.Database.Postgres.SSLMode = "disable"
	cfg.Database.Postgres.TimeZone = "UTC"
	cfg.Database.MaxIdleConns = 5
	cfg.Database.MaxOpenConns = 10
	cfg.Storage.Driver = "local"
	cfg.Storage.Bucket = "project-files"
	cfg.Storage.LocalDir = "./data/files"
	cfg.Auth.TokenTTLHours = 24 * 7
	cfg.Auth.LoginPerMinute = 10
	cfg.Upload.MaxFileSizeMB = 25
	cfg.Log.Level = "info"
	return cfg
}

// envKeys binds config keys to their PROJTRACK_* variables. Values are
// parsed by the decoder, so numbers, booleans, durations and comma lists all
// follow the field type.
var envKeys = map[string]string{
	"server.port":                "PORT",
	"server.basePath":            "BASE_PATH",
	"server.corsOrigin":          "CORS_ORIGIN",
	"server.mode":                "GIN_MODE",
	"server.shutdownTimeout":     "SHUTDOWN_TIMEOUT",
	"server.trustedProxies":      "TRUSTED_PROXIES",
	"database.driver":            "DB_DRIVER",
	"database.dsn":               "DB_DSN",
	"database.postgres.host":     "DB_HOST",
	"database.postgres.port":     "DB_PORT",
	"database.postgres.dbname":   "DB_NAME",
	"database.postgres.user":     "DB_USER",
	"database.postgres.password": "DB_PASSWORD",
	"database.postgres.sslmode":  "DB_SSLMODE",
	"storage.driver":             "STORAGE_DRIVER",
	"storage.endpoint":           "STORAGE_ENDPOINT",
	"storage.accessKeyID":        "STORAGE_ACCESS_KEY_ID",
	"storage.secretAccessKey":    "STORAGE_SECRET_ACCESS_KEY",
	"storage.useSSL":             "STORAGE_USE_SSL",
	"storage.bucket":             "STORAGE_BUCKET",
	"storage.localDir":           "STORAGE_LOCAL_DIR",
	"auth.password":              "AUTH_PASSWORD",
	"auth.passwordHash":          "AUTH_PASSWORD_HASH",
	"auth.jwtSecret":             "AUTH_JWT_SECRET",
	"auth.tokenTTLHours":         "AUTH_TOKEN_TTL_HOURS",
	"auth.loginPerMinute":        "AUTH_LOGIN_PER_MINUTE",
	"upload.maxFileSizeMB":       "UPLOAD_MAX_FILE_SIZE_MB",
	"log.level":                  "LOG_LEVEL",
}

// Load reads the YAML file at path over the defaults and then applies
// PROJTRACK_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, envPrefix+env); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg, useYAMLTags); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func useYAMLTags(dc *mapstructure.DecoderConfig) {
	dc.TagName = "yaml"
}

// Marshal renders cfg as YAML in the same layout Load reads.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Redacted returns a copy of c with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.TrustedProxies = slices.Clone(c.Server.TrustedProxies)
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Database.DSN)
	mask(&out.Database.Postgres.Password)
	mask(&out.Storage.SecretAccessKey)
	mask(&out.Auth.Password)
	mask(&out.Auth.PasswordHash)
	mask(&out.Auth.JWTSecret)
	return &out
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	if c.Auth.Password == "" && c.Auth.PasswordHash == "" {
		errs = append(errs, errors.New("auth.password or auth.passwordHash is required"))
	}
	if c.Auth.TokenTTLHours <= 0 {
		errs = append(errs, errors.New("auth.tokenTTLHours must be positive"))
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("upload.maxFileSizeMB must be positive"))
	}
	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("server.trustedProxies: %q is not an IP or CIDR", p))
			}
		}
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Storage.Driver {
	case "minio":
		if c.Storage.Endpoint == "" || c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.endpoint and storage.bucket are required for minio"))
		}
	case "local":
		if c.Storage.LocalDir == "" {
			errs = append(errs, errors.New("storage.localDir is required for local storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	return errors.Join(errs...)
}

// MaxFileSize is the upload cap in bytes.
func (c *Config) MaxFileSize() int64 {
	return c.Upload.MaxFileSizeMB << 20
}

// TokenTTL is the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
