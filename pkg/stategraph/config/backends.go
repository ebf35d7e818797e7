package config

import (
	"fmt"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
	"github.com/ridgewell/stategraph/pkg/stategraph/registry"
)

// StoreFactory builds a checkpoint store from its backend section of the
// configuration.
type StoreFactory func(cfg Config) (checkpoint.Store, error)

// backends maps backend names to store factories. The built-in backends
// are registered at init; embedding applications add their own with
// RegisterBackend.
var backends = registry.New[string, StoreFactory]()

func init() {
	backends.Register("memory", func(Config) (checkpoint.Store, error) {
		return checkpoint.NewMemoryStore(), nil
	})
	backends.Register("sqlite", func(cfg Config) (checkpoint.Store, error) {
		path := cfg.String("path", "")
		if path == "" {
			return nil, fmt.Errorf("sqlite backend: path is required")
		}
		return checkpoint.NewSQLiteStore(path)
	})
	backends.Register("redis", func(cfg Config) (checkpoint.Store, error) {
		addr := cfg.String("addr", "")
		if addr == "" {
			return nil, fmt.Errorf("redis backend: addr is required")
		}
		var opts []checkpoint.RedisOption
		if ttl := cfg.Duration("ttl", 0); ttl > 0 {
			opts = append(opts, checkpoint.WithTTL(ttl))
		}
		if prefix := cfg.String("prefix", ""); prefix != "" {
			opts = append(opts, checkpoint.WithPrefix(prefix))
		}
		return checkpoint.NewRedisStore(
			addr,
			cfg.String("password", ""),
			cfg.Int("db", 0),
			opts...,
		), nil
	})
}

// RegisterBackend makes a named backend available to OpenStore.
// Registering an existing name replaces the factory.
func RegisterBackend(name string, factory StoreFactory) {
	backends.Register(name, factory)
}

// Backends returns the names of all registered backends.
func Backends() []string {
	return backends.Keys()
}

// OpenStore builds a checkpoint store from a configuration shaped like:
//
//	checkpointer:
//	  backend: sqlite
//	  sqlite:
//	    path: ./checkpoints.db
//
// The backend name selects a registered factory, which receives the
// matching sub-section. An absent checkpointer section yields the memory
// backend.
func OpenStore(cfg Config) (checkpoint.Store, error) {
	section := cfg.Section("checkpointer")
	name := section.String("backend", "memory")

	factory, ok := backends.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown checkpointer backend: %s (registered: %v)", name, backends.Keys())
	}
	return factory(section.Section(name))
}
