// Package config holds oit's layered configuration: defaults, then the
// config file, then OIT_* environment variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. OIT_API_URL.
const EnvPrefix = "OIT"

// Configuration keys.
const (
	KeyAPIURL            = "api.url"
	KeyAPITimeout        = "api.timeout"
	KeySessionCookieName = "session.cookie-name"
	KeySessionCookie     = "session.cookie"
	KeyCSRFCookie        = "csrf.cookie"
	KeyCSRFHeader        = "csrf.header"
	KeyPushURL           = "push.url"
	KeyPushReconnect     = "push.reconnect-delay"
	KeyCacheStaleTime    = "cache.stale-time"
	KeyJSON              = "json"
	KeyVerbose           = "verbose"
	KeyQuiet             = "quiet"
	KeyLoginProvider     = "login.provider"
)

var (
	v  *viper.Viper
	mu sync.RWMutex
)

// Initialize builds a fresh viper instance and reads the first config file
// found. A missing file is not an error.
func Initialize() error {
	nv := viper.New()
	nv.SetConfigType("yaml")

	setDefaults(nv)

	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	nv.AutomaticEnv()

	if path := os.Getenv("OIT_CONFIG"); path != "" {
		nv.SetConfigFile(path)
	} else {
		for _, dir := range searchDirs() {
			nv.AddConfigPath(dir)
		}
		nv.SetConfigName("config")
	}

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	mu.Lock()
	v = nv
	mu.Unlock()
	return nil
}

func setDefaults(nv *viper.Viper) {
	nv.SetDefault(KeyAPIURL, "http://localhost:8080")
	nv.SetDefault(KeyAPITimeout, 30*time.Second)
	nv.SetDefault(KeySessionCookieName, "SESSION")
	nv.SetDefault(KeySessionCookie, "")
	nv.SetDefault(KeyCSRFCookie, "XSRF-TOKEN")
	nv.SetDefault(KeyCSRFHeader, "X-XSRF-TOKEN")
	nv.SetDefault(KeyPushURL, "")
	nv.SetDefault(KeyPushReconnect, 5*time.Second)
	nv.SetDefault(KeyCacheStaleTime, 30*time.Second)
	nv.SetDefault(KeyJSON, false)
	nv.SetDefault(KeyVerbose, false)
	nv.SetDefault(KeyQuiet, false)
	nv.SetDefault(KeyLoginProvider, "google")
}

// searchDirs lists config directories in precedence order: project-local
// .oit first, then the user's config directory.
func searchDirs() []string {
	dirs := []string{".oit"}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "oit"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "oit"))
	}
	return dirs
}

// UserConfigPath is where `oit config set` writes when no config file was
// loaded.
func UserConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "oit", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "oit", "config.yaml"), nil
}

func get() *viper.Viper {
	mu.RLock()
	cur := v
	mu.RUnlock()
	if cur != nil {
		return cur
	}
	// Callers that skipped Initialize still get defaults.
	mu.Lock()
	defer mu.Unlock()
	if v == nil {
		v = viper.New()
		setDefaults(v)
	}
	return v
}

// ResetForTesting drops the current instance so the next accessor starts
// from defaults.
func ResetForTesting() {
	mu.Lock()
	v = nil
	mu.Unlock()
}

func GetString(key string) string          { return get().GetString(key) }
func GetBool(key string) bool              { return get().GetBool(key) }
func GetInt(key string) int                { return get().GetInt(key) }
func GetDuration(key string) time.Duration { return get().GetDuration(key) }

// Set overrides a value for the rest of the process.
func Set(key string, value any) { get().Set(key, value) }

// IsSet reports whether key has a value from any layer other than defaults.
func IsSet(key string) bool { return get().IsSet(key) }

// AllSettings returns the merged settings as a nested map.
func AllSettings() map[string]any { return get().AllSettings() }

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string { return get().ConfigFileUsed() }

// BindFlag makes a command line flag the highest precedence source for key.
func BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for %s", key)
	}
	return get().BindPFlag(key, flag)
}

// Watch re-reads the config file when it changes on disk and calls fn
// after each reload. It does nothing when no file was loaded.
func Watch(fn func(path string)) bool {
	cur := get()
	if cur.ConfigFileUsed() == "" {
		return false
	}
	cur.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if fn != nil {
			fn(e.Name)
		}
	})
	cur.WatchConfig()
	return true
}
