package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-d", "/var/lib/gophbook", "-a", ":8080"},
			allowedFlags: []string{"-d"},
			want:         []string{"-d", "/var/lib/gophbook"},
		},
		{
			name:         "equals form",
			args:         []string{"-config=alt.yaml", "-a", ":8080"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.yaml"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "dash token is not consumed as value",
			args:         []string{"-c", "-config=alt.json"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "-config=alt.json"},
		},
		{
			name:         "value that looks like a flag in equals form",
			args:         []string{"-config=--weird.json"},
			allowedFlags: []string{"-config"},
			want:         []string{"-config=--weird.json"},
		},
		{
			name:         "order and repetition preserved",
			args:         []string{"-s", "one", "-l", "3", "-s", "two"},
			allowedFlags: []string{"-s", "-l"},
			want:         []string{"-s", "one", "-l", "3", "-s", "two"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/gophbook.json", ConfigFileFlag([]string{"-c", "/etc/gophbook.json"}))
	assert.Equal(t, "/etc/gophbook.yaml", ConfigFileFlag([]string{"-a", ":9000", "-config", "/etc/gophbook.yaml"}))
	assert.Equal(t, "b.json", ConfigFileFlag([]string{"-c", "a.json", "-config=b.json"}))
	assert.Empty(t, ConfigFileFlag([]string{"-x", "1", "-d", "data"}))
	assert.Empty(t, ConfigFileFlag(nil))
}
