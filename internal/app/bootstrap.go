package app

import (
	"log/slog"

	"hlview/internal/hl"
	"hlview/internal/infra"
	"hlview/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Client  *hl.Client
	Storage *storage.Storage
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, wires the logger and constructs the shared
// collaborators. Only a config failure is fatal; the fills cache is an
// optimization and degrades to direct upstream fetches.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Client = hl.NewClient(cfg.Hyperliquid.RestURL)

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		slog.Warn("fills cache unavailable, running without it", slog.Any("error", err))
	} else {
		b.Storage = store
		slog.Info("fills cache initialized")
	}

	slog.Info("bootstrap complete",
		slog.String("app", cfg.App.Name),
		slog.String("addr", cfg.Addr()),
		slog.String("default_coin", cfg.Hyperliquid.DefaultCoin))
	return nil
}
