package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	require.NoError(t, Initialize())

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{KeyAPIURL, "http://localhost:8080", func(k string) interface{} { return GetString(k) }},
		{KeyAPITimeout, 30 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{KeySessionCookieName, "SESSION", func(k string) interface{} { return GetString(k) }},
		{KeyCSRFCookie, "XSRF-TOKEN", func(k string) interface{} { return GetString(k) }},
		{KeyCSRFHeader, "X-XSRF-TOKEN", func(k string) interface{} { return GetString(k) }},
		{KeyPushReconnect, 5 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{KeyCacheStaleTime, 30 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{KeyJSON, false, func(k string) interface{} { return GetBool(k) }},
		{KeyLoginProvider, "google", func(k string) interface{} { return GetString(k) }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.getter(tt.key))
		})
	}
	assert.Equal(t, "", ConfigFileUsed())
}

func TestAccessorsWithoutInitialize(t *testing.T) {
	ResetForTesting()
	assert.Equal(t, "SESSION", GetString(KeySessionCookieName))
}

func TestEnvironmentBinding(t *testing.T) {
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"OIT_API_URL", KeyAPIURL, "https://issues.example.com", "https://issues.example.com", func(k string) interface{} { return GetString(k) }},
		{"OIT_JSON", KeyJSON, "true", true, func(k string) interface{} { return GetBool(k) }},
		{"OIT_PUSH_RECONNECT_DELAY", KeyPushReconnect, "250ms", 250 * time.Millisecond, func(k string) interface{} { return GetDuration(k) }},
		{"OIT_SESSION_COOKIE_NAME", KeySessionCookieName, "JSESSIONID", "JSESSIONID", func(k string) interface{} { return GetString(k) }},
	}
	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			require.NoError(t, Initialize())
			assert.Equal(t, tt.expected, tt.getter(tt.key))
		})
	}
}

func TestProjectConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".oit"), 0o750))
	content := `
api:
  url: https://project.example.com
cache:
  stale-time: 1m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".oit", "config.yaml"), []byte(content), 0o600))

	oldWD, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(oldWD) }()

	require.NoError(t, Initialize())
	assert.Equal(t, "https://project.example.com", GetString(KeyAPIURL))
	assert.Equal(t, time.Minute, GetDuration(KeyCacheStaleTime))
	assert.True(t, strings.HasSuffix(ConfigFileUsed(), filepath.Join(".oit", "config.yaml")))

	t.Setenv("OIT_API_URL", "https://env.example.com")
	require.NoError(t, Initialize())
	assert.Equal(t, "https://env.example.com", GetString(KeyAPIURL), "env beats file")
}

func TestExplicitConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("login:\n  provider: github\n"), 0o600))
	t.Setenv("OIT_CONFIG", path)

	require.NoError(t, Initialize())
	assert.Equal(t, "github", GetString(KeyLoginProvider))
	assert.Equal(t, path, ConfigFileUsed())
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))
	t.Setenv("OIT_CONFIG", path)
	assert.Error(t, Initialize())
}

func TestBindFlag(t *testing.T) {
	require.NoError(t, Initialize())
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("api-url", "", "")
	require.NoError(t, BindFlag(KeyAPIURL, fs.Lookup("api-url")))

	assert.Equal(t, "http://localhost:8080", GetString(KeyAPIURL), "unset flag keeps the default")
	require.NoError(t, fs.Parse([]string{"--api-url", "https://flag.example.com"}))
	assert.Equal(t, "https://flag.example.com", GetString(KeyAPIURL))

	assert.Error(t, BindFlag(KeyAPIURL, fs.Lookup("missing")))
}

func TestSetFileValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, SetFileValue(path, KeyAPIURL, "https://a.example.com"))
	require.NoError(t, SetFileValue(path, KeyAPITimeout, "10s"))
	require.NoError(t, SetFileValue(path, KeyJSON, "true"))
	require.NoError(t, SetFileValue(path, KeyAPIURL, "https://b.example.com"))

	t.Setenv("OIT_CONFIG", path)
	require.NoError(t, Initialize())
	assert.Equal(t, "https://b.example.com", GetString(KeyAPIURL))
	assert.Equal(t, 10*time.Second, GetDuration(KeyAPITimeout))
	assert.True(t, GetBool(KeyJSON))
}

func TestSetFileValuePreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# team defaults\nlogin:\n  provider: github\n"), 0o600))

	require.NoError(t, SetFileValue(path, KeyPushURL, "wss://push.example.com/ws"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# team defaults")
	assert.Contains(t, string(data), "provider: github")
	assert.Contains(t, string(data), "url: wss://push.example.com/ws")
}

func TestSetFileValueRejectsScalarParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: plain\n"), 0o600))
	assert.Error(t, SetFileValue(path, KeyAPIURL, "x"))
}

func TestKnownKeys(t *testing.T) {
	assert.True(t, IsKnownKey(KeyCacheStaleTime))
	assert.False(t, IsKnownKey("db"))
	assert.Len(t, Keys(), 13)
}

func TestDump(t *testing.T) {
	require.NoError(t, Initialize())
	out, err := Dump()
	require.NoError(t, err)
	assert.Contains(t, string(out), "stale-time: 30s")
	assert.Contains(t, string(out), "cookie-name: SESSION")
}

func TestWatchWithoutFile(t *testing.T) {
	require.NoError(t, Initialize())
	assert.False(t, Watch(func(string) {}))
}
