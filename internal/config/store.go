package config

import (
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeHandler is called with the new config after a live reload.
type ChangeHandler func(cfg *Config)

// Store holds the active configuration behind an atomic pointer. Readers
// call Current and get a config value that is never mutated; a reload
// swaps the pointer wholesale and notifies registered handlers.
type Store struct {
	current atomic.Pointer[Config]
	v       *viper.Viper

	mu       sync.Mutex
	handlers []ChangeHandler
}

// NewStore creates a store around an already-loaded config.
func NewStore(cfg *Config, v *viper.Viper) *Store {
	s := &Store{v: v}
	s.current.Store(cfg)
	return s
}

// LoadStore loads configuration from path and wraps it in a Store.
func LoadStore(path string) (*Store, error) {
	cfg, v, err := NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	return NewStore(cfg, v), nil
}

// Current returns the active config. The returned value must be treated
// as read-only.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// OnChange registers a handler invoked after every successful reload.
func (s *Store) OnChange(h ChangeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// Replace swaps in a new config and notifies handlers. Used by reloads
// and by administrative surfaces that edit settings at runtime.
func (s *Store) Replace(cfg *Config) {
	s.current.Store(cfg)

	s.mu.Lock()
	handlers := append([]ChangeHandler(nil), s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		h(cfg)
	}
}

// Watch starts watching the config file for changes. A reload that fails
// validation is discarded and the previous config stays active.
func (s *Store) Watch(onError func(error)) {
	if s.v == nil {
		return
	}
	s.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := unmarshal(s.v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		s.Replace(cfg)
	})
	s.v.WatchConfig()
}
