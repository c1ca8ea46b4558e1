// Package config loads process settings from the environment, an optional
// .env file, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys, shared by env vars and viper.
const (
	KeyDatabaseURL       = "DATABASE_URL"
	KeyHTTPAddr          = "HTTP_ADDR"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyDBMaxConns        = "DB_MAX_CONNS"
	KeyDBConnectAttempts = "DB_CONNECT_ATTEMPTS"
	KeyPinataJWT         = "PINATA_JWT"
	KeyPinataGateway     = "PINATA_GATEWAY"
	KeyPinataAPIURL      = "PINATA_API_URL"
	KeyUploadMaxBytes    = "UPLOAD_MAX_BYTES"
	KeyUploadCacheSize   = "UPLOAD_CACHE_SIZE"
	KeyUploadRatePerMin  = "UPLOAD_RATE_PER_MINUTE"
	KeySyncTokenSecret   = "SYNC_TOKEN_SECRET"
	KeyShutdownTimeout   = "SHUTDOWN_TIMEOUT"
)

type Config struct {
	DatabaseURL       string
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	DBMaxConns        int32
	DBConnectAttempts int
	PinataJWT         string
	PinataGateway     string
	PinataAPIURL      string
	UploadMaxBytes    int64
	UploadCacheSize   int
	UploadRatePerMin  int
	SyncTokenSecret   string
	ShutdownTimeout   time.Duration
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are ignored; existing variables are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// NewViper returns a viper instance with defaults registered and every key
// bound to its environment variable.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyDBMaxConns, 10)
	v.SetDefault(KeyDBConnectAttempts, 5)
	v.SetDefault(KeyPinataGateway, "gateway.pinata.cloud")
	v.SetDefault(KeyPinataAPIURL, "https://api.pinata.cloud")
	v.SetDefault(KeyUploadMaxBytes, 5<<20)
	v.SetDefault(KeyUploadCacheSize, 256)
	v.SetDefault(KeyUploadRatePerMin, 30)
	v.SetDefault(KeyShutdownTimeout, "10s")

	for _, key := range []string{
		KeyDatabaseURL, KeyHTTPAddr, KeyLogLevel, KeyLogFormat, KeyDBMaxConns,
		KeyDBConnectAttempts, KeyPinataJWT, KeyPinataGateway, KeyPinataAPIURL,
		KeyUploadMaxBytes, KeyUploadCacheSize, KeyUploadRatePerMin, KeySyncTokenSecret,
		KeyShutdownTimeout,
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// Load materialises v into a Config and validates it. requireDB is set by
// commands that open the database.
func Load(v *viper.Viper, requireDB bool) (Config, error) {
	cfg := Config{
		DatabaseURL:       strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		HTTPAddr:          v.GetString(KeyHTTPAddr),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         strings.ToLower(v.GetString(KeyLogFormat)),
		DBMaxConns:        v.GetInt32(KeyDBMaxConns),
		DBConnectAttempts: v.GetInt(KeyDBConnectAttempts),
		PinataJWT:         strings.TrimSpace(v.GetString(KeyPinataJWT)),
		PinataGateway:     v.GetString(KeyPinataGateway),
		PinataAPIURL:      v.GetString(KeyPinataAPIURL),
		UploadMaxBytes:    v.GetInt64(KeyUploadMaxBytes),
		UploadCacheSize:   v.GetInt(KeyUploadCacheSize),
		UploadRatePerMin:  v.GetInt(KeyUploadRatePerMin),
		SyncTokenSecret:   v.GetString(KeySyncTokenSecret),
		ShutdownTimeout:   v.GetDuration(KeyShutdownTimeout),
	}
	if err := cfg.Validate(requireDB); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate(requireDB bool) error {
	var errs []error
	if requireDB && c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyDatabaseURL))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("%s must be console or json, got %q", KeyLogFormat, c.LogFormat))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyDBMaxConns))
	}
	if c.DBConnectAttempts <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyDBConnectAttempts))
	}
	if c.UploadMaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyUploadMaxBytes))
	}
	if c.UploadCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyUploadCacheSize))
	}
	if c.UploadRatePerMin < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", KeyUploadRatePerMin))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyShutdownTimeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
