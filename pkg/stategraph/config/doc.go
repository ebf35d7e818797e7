// Package config provides file-driven configuration for embedding
// applications: a permissive map wrapper with typed accessors, YAML/JSON
// loaders, and a backend registry that turns a configuration section into
// a checkpoint store.
//
// # Loading
//
//	cfg, err := config.FromFile("stategraph.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store, err := config.OpenStore(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	compiled, err := graph.Compile(stategraph.WithCheckpointer(store))
//
// # Accessors
//
// Accessors never fail; they return the caller's default when a key is
// missing or has the wrong type:
//
//	timeout := cfg.Duration("timeout", 30*time.Second)
//	nodes := cfg.StringSlice("interrupt_before", nil)
//
// # Custom Backends
//
// Applications register additional checkpoint backends by name:
//
//	config.RegisterBackend("postgres", func(cfg config.Config) (checkpoint.Store, error) {
//	    return newPostgresStore(cfg.String("dsn", ""))
//	})
package config
