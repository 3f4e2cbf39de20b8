package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrijs2005/gophbook/internal/cryptox"
	"github.com/dmitrijs2005/gophbook/internal/flagx"
	"github.com/dmitrijs2005/gophbook/internal/timex"
)

// FileConfig is the on-disk form of Config. Durations go through
// timex.Duration so both "1m" and integer nanoseconds are accepted.
// Keys absent from the file keep the value they had before loading.
type FileConfig struct {
	EndpointAddrHTTP        string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DataDir                 string         `json:"data_dir" yaml:"data_dir"`
	SecretKey               string         `json:"secret_key" yaml:"secret_key"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration" yaml:"session_validity_duration"`
	LockTimeout             timex.Duration `json:"lock_timeout" yaml:"lock_timeout"`
	LogLevel                string         `json:"log_level" yaml:"log_level"`
	AuthRateLimit           float64        `json:"auth_rate_limit" yaml:"auth_rate_limit"`
	AuthRateBurst           int            `json:"auth_rate_burst" yaml:"auth_rate_burst"`
	ShutdownTimeout         timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	Argon2                  cryptox.Params `json:"argon2" yaml:"argon2"`
	S3RootUser              string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// LoadFile overlays the settings in the file at path onto c. Files ending in
// .yaml or .yml are read as YAML, anything else as JSON.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := FileConfig{
		EndpointAddrHTTP:        c.EndpointAddrHTTP,
		DataDir:                 c.DataDir,
		SecretKey:               c.SecretKey,
		SessionValidityDuration: timex.Duration{Duration: c.SessionValidityDuration},
		LockTimeout:             timex.Duration{Duration: c.LockTimeout},
		LogLevel:                c.LogLevel,
		AuthRateLimit:           c.AuthRateLimit,
		AuthRateBurst:           c.AuthRateBurst,
		ShutdownTimeout:         timex.Duration{Duration: c.ShutdownTimeout},
		Argon2:                  c.Argon2,
		S3RootUser:              c.S3RootUser,
		S3RootPassword:          c.S3RootPassword,
		S3Bucket:                c.S3Bucket,
		S3Region:                c.S3Region,
		S3BaseEndpoint:          c.S3BaseEndpoint,
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	c.EndpointAddrHTTP = fc.EndpointAddrHTTP
	c.DataDir = fc.DataDir
	c.SecretKey = fc.SecretKey
	c.SessionValidityDuration = fc.SessionValidityDuration.Duration
	c.LockTimeout = fc.LockTimeout.Duration
	c.LogLevel = fc.LogLevel
	c.AuthRateLimit = fc.AuthRateLimit
	c.AuthRateBurst = fc.AuthRateBurst
	c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	c.Argon2 = fc.Argon2
	c.S3RootUser = fc.S3RootUser
	c.S3RootPassword = fc.S3RootPassword
	c.S3Bucket = fc.S3Bucket
	c.S3Region = fc.S3Region
	c.S3BaseEndpoint = fc.S3BaseEndpoint
	return nil
}

// parseConfigFile loads the file named by the -c or -config flag, if any.
// An unreadable or invalid file panics, as a bad flag does.
func parseConfigFile(config *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])

	// nothing to load
	if path == "" {
		return
	}

	if err := config.LoadFile(path); err != nil {
		panic(err)
	}
}
