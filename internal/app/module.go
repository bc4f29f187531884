// Package app composes the daemon out of its components with fx. Providers
// build the dependency graph; registerLifecycle starts the network prober and
// the sync engine and tears everything down in reverse order.
package app

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lucasvidela/chatsync/internal/bus"
	"github.com/lucasvidela/chatsync/internal/chat"
	"github.com/lucasvidela/chatsync/internal/config"
	"github.com/lucasvidela/chatsync/internal/lock"
	"github.com/lucasvidela/chatsync/internal/logging"
	"github.com/lucasvidela/chatsync/internal/media"
	"github.com/lucasvidela/chatsync/internal/netmon"
	"github.com/lucasvidela/chatsync/internal/profile"
	"github.com/lucasvidela/chatsync/internal/reconcile"
	"github.com/lucasvidela/chatsync/internal/remote"
	"github.com/lucasvidela/chatsync/internal/store"
	intsync "github.com/lucasvidela/chatsync/internal/sync"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatsync",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideRemote,
			provideMonitor,
			provideUploader,
			provideReadReceipts,
			provideReactions,
			provideEngine,
			provideChatService,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig() (*config.Config, error) {
	return config.LoadOrDefault(profile.ConfigPath())
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRemote(cfg *config.Config, logger *zap.Logger) (*remote.Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return remote.ConnectMongo(ctx, cfg.Remote.MongoURI, cfg.Remote.Database, logger)
}

func provideMonitor(cfg *config.Config, b *bus.Bus, logger *zap.Logger) *netmon.Prober {
	// Start provisionally online: unknown reachability must not block the
	// first drain while the first probe is in flight.
	m := netmon.NewManual(netmon.State{Connected: true, Reachability: netmon.ReachUnknown}, b)
	interval := time.Duration(cfg.Network.ProbeIntervalSeconds) * time.Second
	return netmon.NewProber(m, cfg.Network.ProbeAddress, interval, logger)
}

func provideUploader(cfg *config.Config, logger *zap.Logger) (media.Uploader, error) {
	if cfg.Media.CloudName == "" {
		logger.Info("no media backend configured, attachments will stay queued")
		return media.Disabled{}, nil
	}
	return media.NewCloudinary(cfg.Media.CloudName, cfg.Media.APIKey, cfg.Media.APISecret, cfg.Media.Folder)
}

func provideReadReceipts(db *store.DB, b *bus.Bus, logger *zap.Logger) *reconcile.ReadReceipts {
	return reconcile.NewReadReceipts(db, b, logger)
}

func provideReactions(db *store.DB, b *bus.Bus, logger *zap.Logger) *reconcile.Reactions {
	return reconcile.NewReactions(db, b, logger)
}

func provideEngine(cfg *config.Config, db *store.DB, r *remote.Mongo, monitor *netmon.Prober, uploader media.Uploader, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	opts := intsync.Options{
		DrainInterval: time.Duration(cfg.Sync.DrainIntervalSeconds) * time.Second,
		RetryLimit:    cfg.Sync.RetryLimit,
		CallTimeout:   time.Duration(cfg.Sync.RemoteTimeoutSeconds) * time.Second,
	}
	return intsync.NewEngine(db, r, monitor, uploader, b, logger, opts)
}

func provideChatService(p Params, cfg *config.Config, db *store.DB, r *remote.Mongo, monitor *netmon.Prober, receipts *reconcile.ReadReceipts, reactions *reconcile.Reactions, engine *intsync.Engine, b *bus.Bus, logger *zap.Logger) *chat.Service {
	selfID := cfg.UserID
	if selfID == "" {
		selfID = p.ProfileName
	}
	return chat.NewService(db, r, monitor, receipts, reactions, engine, b, logger, selfID)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *store.DB, r *remote.Mongo, monitor *netmon.Prober, engine *intsync.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			monitor.Start(context.Background())
			engine.Start(context.Background())
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			engine.Stop()
			monitor.Stop()
			if err := r.Disconnect(ctx); err != nil {
				logger.Warn("error disconnecting remote store", zap.Error(err))
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
