package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	all := defaults()
	all.EndpointAddrHTTP = "127.0.0.1:9090"
	all.DataDir = "/srv/data"
	all.SecretKey = "secret"
	all.SessionValidityDuration = 15 * time.Minute
	all.LockTimeout = 2 * time.Second
	all.LogLevel = "debug"
	all.AuthRateLimit = 0.5
	all.S3RootUser = "user"
	all.S3RootPassword = "password"
	all.S3Bucket = "bucket"
	all.S3Region = "us-west-1"
	all.S3BaseEndpoint = "http://endpoint"

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"cmd",
			"-a", "127.0.0.1:9090", "-d", "/srv/data", "-s", "secret", "-t", "15", "-l", "2",
			"-v", "debug", "-q", "0.5",
			"-u", "user", "-p", "password", "-b", "bucket", "-g", "us-west-1", "-e", "http://endpoint",
		}, expected: all},
		{name: "foreign flags ignored", args: []string{"cmd", "-c", "cfg.json", "-x", "1"}, expected: defaults()},
		{name: "bad number panics", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := defaults()

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}

func TestParseFlags_UnsetDurationsKept(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-a", ":1"}

	config := &Config{SessionValidityDuration: 90 * time.Second, LockTimeout: 1500 * time.Millisecond}
	parseFlags(config)

	assert.Equal(t, 90*time.Second, config.SessionValidityDuration)
	assert.Equal(t, 1500*time.Millisecond, config.LockTimeout)
}
