// Package config loads client settings from a file, the environment, or
// both, and keeps them fresh while the file changes on disk.
package config

import (
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	ollama "github.com/bisonbet/ollama-go"
)

// EnvPrefix is the prefix bound to environment overrides, so the Host field
// maps to OLLAMA_HOST and so on.
const EnvPrefix = "OLLAMA"

// Settings is the file/environment shape of the client configuration.
type Settings struct {
	Host      string            `mapstructure:"host"`
	UserAgent string            `mapstructure:"user_agent"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	KeepAlive time.Duration     `mapstructure:"keep_alive"`
	Headers   map[string]string `mapstructure:"headers"`
	Options   map[string]any    `mapstructure:"options"`

	Retry struct {
		MaxAttempts    int           `mapstructure:"max_attempts"`
		InitialBackoff time.Duration `mapstructure:"initial_backoff"`
		MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"retry"`
}

// ClientConfig converts the settings into a client construction config.
// A zero KeepAlive is treated as unset so the server default applies.
func (s Settings) ClientConfig() ollama.Config {
	cfg := ollama.Config{
		Host:      s.Host,
		UserAgent: s.UserAgent,
		Options:   ollama.Options(s.Options),
		Retry: ollama.RetryPolicy{
			MaxAttempts:    s.Retry.MaxAttempts,
			InitialBackoff: s.Retry.InitialBackoff,
			MaxBackoff:     s.Retry.MaxBackoff,
		},
	}
	if len(s.Headers) > 0 {
		h := make(http.Header, len(s.Headers))
		for k, v := range s.Headers {
			h.Set(k, v)
		}
		cfg.Headers = h
	}
	if s.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: s.Timeout}
	}
	if s.KeepAlive != 0 {
		cfg.KeepAlive = ollama.KeepAlive(s.KeepAlive)
	}
	return cfg
}

// Store holds the current settings and notifies on file changes.
type Store struct {
	v        *viper.Viper
	mu       sync.RWMutex
	value    Settings
	watchers []func(old, new Settings)
}

// Option adjusts how a Store is loaded.
type Option func(*Store)

// WithDefaults seeds values used when the file and environment are silent.
func WithDefaults(defaults map[string]any) Option {
	return func(s *Store) {
		for k, v := range defaults {
			s.v.SetDefault(k, v)
		}
	}
}

// WithEnv binds OLLAMA_* environment variables over the file values.
func WithEnv() Option {
	return func(s *Store) {
		s.v.SetEnvPrefix(EnvPrefix)
		s.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		s.v.AutomaticEnv()
	}
}

// Load reads the settings file and starts watching it for changes. The
// format is inferred from the file extension (yaml, json, toml).
func Load(path string, opts ...Option) (*Store, error) {
	v := viper.New()
	v.SetConfigFile(path)

	s := &Store{v: v}
	for _, opt := range opts {
		opt(s)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var val Settings
	if err := v.Unmarshal(&val); err != nil {
		return nil, err
	}
	s.value = val

	s.watch()
	return s, nil
}

// FromEnv builds settings from OLLAMA_* environment variables alone, with
// no file backing and no change watching.
func FromEnv() Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv resolves keys lazily; touch each one explicitly.
	return Settings{
		Host:      v.GetString("host"),
		UserAgent: v.GetString("user_agent"),
		Timeout:   v.GetDuration("timeout"),
		KeepAlive: v.GetDuration("keep_alive"),
	}
}

// Get returns the current settings snapshot.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// OnChange registers a callback invoked after the file changes and the new
// settings differ from the old ones.
func (s *Store) OnChange(callback func(old, new Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, callback)
}

func (s *Store) watch() {
	var (
		debounceTimer *time.Timer
		debounceMu    sync.Mutex
	)

	// Editors often fire several fsnotify events per save; debounce them
	// into one reload.
	s.v.OnConfigChange(func(_ fsnotify.Event) {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
			s.handleChange()
		})
		debounceMu.Unlock()
	})

	s.v.WatchConfig()
}

func (s *Store) handleChange() {
	old := s.Get()

	next, watchers, ok := s.reload()
	if !ok {
		return
	}
	if settingsEqual(old, next) {
		return
	}

	for _, cb := range watchers {
		func() {
			defer func() { _ = recover() }()
			cb(old, next)
		}()
	}
}

// reload re-reads the file under the lock. A file that fails to parse keeps
// the previous settings in place.
func (s *Store) reload() (Settings, []func(old, new Settings), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.v.ReadInConfig(); err != nil {
		return Settings{}, nil, false
	}

	var val Settings
	if err := s.v.Unmarshal(&val); err != nil {
		return Settings{}, nil, false
	}
	s.value = val

	watchers := make([]func(old, new Settings), len(s.watchers))
	copy(watchers, s.watchers)

	return val, watchers, true
}

// settingsEqual uses DeepEqual because option values may hold slices.
func settingsEqual(a, b Settings) bool {
	return reflect.DeepEqual(a, b)
}
