package daemon

import (
	"context"
	"os"

	"github.com/sphinx-chat/sphinxd/internal/api"
	"github.com/sphinx-chat/sphinxd/internal/bus"
	"github.com/sphinx-chat/sphinxd/internal/config"
	"github.com/sphinx-chat/sphinxd/internal/feed"
	"github.com/sphinx-chat/sphinxd/internal/ingest"
	"github.com/sphinx-chat/sphinxd/internal/lock"
	"github.com/sphinx-chat/sphinxd/internal/logging"
	"github.com/sphinx-chat/sphinxd/internal/outbox"
	"github.com/sphinx-chat/sphinxd/internal/player"
	"github.com/sphinx-chat/sphinxd/internal/remote"
	"github.com/sphinx-chat/sphinxd/internal/session"
	"github.com/sphinx-chat/sphinxd/internal/status"
	"github.com/sphinx-chat/sphinxd/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved account configuration passed to the fx module.
type Params struct {
	AccountName string
	SocketPath  string // optional override for testing; empty = use default
}

// Identity is the account owner's local contact identity. Zero before the
// first contact sync lands.
type Identity struct {
	OwnerID     int64
	OwnerPubkey string
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideConfig,
			provideStore,
			provideIdentity,
			provideRelayClient,
			provideFeedDirectory,
			provideAssetProber,
			providePaymentsHelper,
			provideController,
			provideWatcher,
			provideIngestEngine,
			provideSender,
			provideServices,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.AccountName), p.AccountName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.AccountName); err != nil {
		return nil, err
	}
	logger.Info("acquiring account lock", zap.String("account", p.AccountName))
	l, err := lock.Acquire(session.Dir(p.AccountName))
	if err != nil {
		return nil, err
	}
	logger.Info("account lock acquired")
	return l, nil
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("config load failed, using defaults", zap.Error(err))
		}
		return &config.Config{}
	}
	return cfg
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.DBPath(p.AccountName)
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

func provideIdentity(db *store.DB, logger *zap.Logger) Identity {
	owner, err := db.Owner()
	if err != nil {
		logger.Warn("owner lookup failed", zap.Error(err))
		return Identity{}
	}
	if owner == nil {
		logger.Info("no owner contact yet, auth required")
		return Identity{}
	}
	return Identity{OwnerID: owner.ID, OwnerPubkey: owner.Pubkey}
}

func provideRelayClient(cfg *config.Config, logger *zap.Logger) *remote.Client {
	return remote.New(cfg.RelayURL, cfg.RelayToken, logger)
}

func provideFeedDirectory(logger *zap.Logger) *remote.FeedDirectory {
	return remote.NewFeedDirectory("", logger)
}

func provideAssetProber(feeds *remote.FeedDirectory, logger *zap.Logger) *remote.AssetProber {
	return remote.NewAssetProber(feeds.DurationHint, logger)
}

func providePaymentsHelper(client *remote.Client, feeds *remote.FeedDirectory, id Identity, logger *zap.Logger) *player.PaymentsHelper {
	return player.NewPaymentsHelper(client, feeds, id.OwnerPubkey, logger)
}

func provideController(
	prober *remote.AssetProber,
	feeds *remote.FeedDirectory,
	db *store.DB,
	client *remote.Client,
	b *bus.Bus,
	payments *player.PaymentsHelper,
	logger *zap.Logger,
) *player.Controller {
	meta := &playbackStore{db: db, logger: logger}
	sync := &playbackSync{client: client, bus: b}
	return player.NewController(prober, feeds, meta, sync, payments, logger)
}

func provideWatcher(db *store.DB, b *bus.Bus, cfg *config.Config, id Identity, logger *zap.Logger) *feed.Watcher {
	return feed.NewWatcher(db, b, id.OwnerID, cfg.GroupingWindow(), logger)
}

func provideIngestEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, logger)
}

func provideSender(db *store.DB, client *remote.Client, id Identity, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, client, id.OwnerID, b, logger)
}

func provideServices(
	p Params,
	db *store.DB,
	b *bus.Bus,
	machine *status.Machine,
	watcher *feed.Watcher,
	sender *outbox.Sender,
	controller *player.Controller,
	payments *player.PaymentsHelper,
	client *remote.Client,
	id Identity,
) Services {
	return Services{
		Session: api.NewSessionService(p.AccountName, machine),
		Chat:    api.NewChatService(db, watcher, client, b, id.OwnerID, p.AccountName),
		Message: api.NewMessageService(db, sender),
		Player:  api.NewPlayerService(controller, payments),
	}
}

func registerLifecycle(
	lc fx.Lifecycle,
	srv *Server,
	lk *lock.Lock,
	cfg *config.Config,
	engine *ingest.Engine,
	watcher *feed.Watcher,
	sender *outbox.Sender,
	controller *player.Controller,
	machine *status.Machine,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Ingest and feed refresh subscribe to the bus before anything
			// can publish.
			engine.Start(context.Background())
			watcher.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			sender.Start(context.Background())

			if cfg.RelayURL == "" || cfg.RelayToken == "" {
				logger.Info("no relay credentials found, auth required")
				_ = machine.Transition(status.AuthRequired)
				return nil
			}
			_ = machine.Transition(status.Connecting)
			_ = machine.Transition(status.Syncing)
			_ = machine.Transition(status.Ready)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			sender.Stop()
			watcher.Stop()
			engine.Stop()
			controller.Close()
			srv.Stop(ctx)
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
