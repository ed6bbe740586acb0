package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/concierge/kernel"
	"github.com/tailored-agentic-units/concierge/observability"
	"github.com/tailored-agentic-units/concierge/shop"
	"github.com/tailored-agentic-units/concierge/store"
)

// runtime is everything a subcommand needs to run turns.
type runtime struct {
	cfg    *kernel.Config
	logger *slog.Logger
	store  *store.Store
	kernel *kernel.Kernel
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// loadConfig resolves configuration: defaults, then the config file, then
// CONCIERGE_* variables, then flags.
func loadConfig(flags *globalFlags) (*kernel.Config, error) {
	cfg := kernel.DefaultConfig()
	loaded := &cfg
	if flags.configFile != "" {
		var err error
		if loaded, err = kernel.LoadConfig(flags.configFile); err != nil {
			return nil, err
		}
	}

	if err := loaded.ApplyEnv(); err != nil {
		return nil, err
	}

	if flags.storePath != "" {
		loaded.Store.Path = flags.storePath
	}
	if flags.maxSteps > 0 {
		loaded.MaxSteps = flags.maxSteps
	}
	return loaded, nil
}

func newLogger(flags *globalFlags) *slog.Logger {
	return observability.NewLogger(observability.ParseLevel(flags.logLevel), flags.logFormat)
}

// openStore opens the commerce database, seeding it when configured.
func openStore(ctx context.Context, cfg *kernel.Config, logger *slog.Logger) (*store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	if cfg.Store.Seed {
		seeded, err := st.Seed(ctx)
		if err != nil {
			st.Close()
			return nil, err
		}
		if seeded {
			logger.Info("seeded catalog", "path", cfg.Store.Path)
		}
	}
	return st, nil
}

// bootstrap builds the kernel over the shop crew. extra observers receive
// events alongside the configured one.
func bootstrap(ctx context.Context, flags *globalFlags, extra ...observability.Observer) (*runtime, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	logger := newLogger(flags)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry, err := shop.Tools(st)
	if err != nil {
		st.Close()
		return nil, err
	}

	opts := []kernel.Option{
		kernel.WithRegistry(registry),
		kernel.WithCrew(shop.Crew()),
		kernel.WithLogger(logger),
	}
	if len(extra) > 0 {
		base, err := kernel.ResolveObserver(cfg.Graph.Observer, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		opts = append(opts, kernel.WithObserver(observability.Join(append([]observability.Observer{base}, extra...)...)))
	}

	k, err := kernel.New(cfg, opts...)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create kernel: %w", err)
	}

	return &runtime{cfg: cfg, logger: logger, store: st, kernel: k}, nil
}

// resolveActor returns id, or the id of the user registered under email.
func resolveActor(ctx context.Context, st *store.Store, id int64, email string) (int64, error) {
	if email != "" {
		u, err := st.GetUserByEmail(ctx, email)
		if err != nil {
			return 0, fmt.Errorf("failed to resolve %s: %w", email, err)
		}
		return u.ID, nil
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", kernel.ErrInvalidActor, id)
	}
	return id, nil
}
