package flagx

import (
	"reflect"
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
			args:         []string{"upload", "-c", "conf.yaml", "--kind", "screenshot"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.yaml"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "--key-id", "ABC123"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"get", "/apps", "--limit=5", "filter[name]=x"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept",
			args:         []string{"token", "-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash-starting token is not a value",
			args:         []string{"-c", "--verbose"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c"},
		},
		{
			name:         "arguments after terminator are not flags",
			args:         []string{"post", "--", "-c", "conf.yaml"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "repeated flag keeps order",
			args:         []string{"-c", "one.yaml", "--config", "two.yaml"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "one.yaml", "--config", "two.yaml"},
		},
		{
			name:         "empty args",
			args:         nil,
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"short with value", []string{"get", "/apps", "-c", "/path/short.yaml"}, "/path/short.yaml"},
		{"long with equals", []string{"--config=/path/long.json", "token"}, "/path/long.json"},
		{"long with value", []string{"--config", "/path/long.yaml"}, "/path/long.yaml"},
		{"unknown flags ignored", []string{"-x", "1", "--key-id", "ABC"}, ""},
		{"last wins", []string{"-c", "/path/1.yaml", "--config", "/path/2.yaml"}, "/path/2.yaml"},
		{"after terminator ignored", []string{"post", "--", "-c", "body.json"}, ""},
		{"missing value", []string{"-c"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConfigPath(tt.args))
		})
	}
}
