// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, and command-line flags.
package config

import (
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophbook/internal/cryptox"
)

const (
	UsersFileName   = "users.json"
	RecordsFileName = "data.json"
)

// Config holds runtime settings for the gophbook server and admin tool.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DataDir: directory holding the users and records files.
//   - SecretKey: HMAC secret for signing session tokens (HS256). Do not use test defaults in prod.
//   - SessionValidityDuration: session token lifetime.
//   - LockTimeout: how long a mutation waits for a collection file lock.
//   - LogLevel: debug, info, warn or error.
//   - AuthRateLimit / AuthRateBurst: per-client token bucket for register and login.
//   - ShutdownTimeout: grace period for in-flight requests on shutdown.
//   - Argon2: password hashing cost.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backup target.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddrHTTP        string
	DataDir                 string
	SecretKey               string
	SessionValidityDuration time.Duration
	LockTimeout             time.Duration
	LogLevel                string
	AuthRateLimit           float64
	AuthRateBurst           int
	ShutdownTimeout         time.Duration
	Argon2                  cryptox.Params
	S3RootUser              string
	S3RootPassword          string
	S3Bucket                string
	S3Region                string
	S3BaseEndpoint          string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DataDir = "data"
	c.SecretKey = "secretKey"
	c.SessionValidityDuration = 60 * time.Minute
	c.LockTimeout = 5 * time.Second
	c.LogLevel = "info"
	c.AuthRateLimit = 1
	c.AuthRateBurst = 3
	c.ShutdownTimeout = 10 * time.Second
	c.Argon2 = cryptox.DefaultParams()
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "gophbook"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

func (c *Config) UsersFile() string {
	return filepath.Join(c.DataDir, UsersFileName)
}

func (c *Config) RecordsFile() string {
	return filepath.Join(c.DataDir, RecordsFileName)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseConfigFile(cfg)
	parseFlags(cfg)
	return cfg
}
