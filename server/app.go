package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Playa/cache"
	"Playa/config"
	"Playa/core/audio"
	"Playa/core/broadcast"
	"Playa/core/feed"
	"Playa/core/library"
	"Playa/core/loop"
	"Playa/core/player"
	"Playa/core/playlist"
	"Playa/core/registry"
	"Playa/core/scrobble"
	"Playa/db"
	"Playa/logger"
	"Playa/model"
	"Playa/repository"
	"Playa/storage"

	"github.com/gorilla/mux"
)

const watchDebounce = 2 * time.Second

// App owns every subsystem of a running player.
type App struct {
	cfg *config.Config

	exec     loop.Executor
	library  *library.Library
	registry *registry.Registry
	hub      *broadcast.Hub
	player   *player.Controller
	plays    repository.PlayLogRepository

	ctx      context.Context
	cancel   context.CancelFunc
	stopLoop func()
	closers  []func()
}

// NewApp builds and starts the subsystems described by cfg. Optional
// backends that cannot be reached are logged and left out.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	ev := loop.New()
	go ev.Run()
	a.exec = ev
	a.stopLoop = ev.Stop

	mirror := a.connectMirror(ctx)

	a.library = library.New(cfg.LibraryRoots, audio.Extractor{}, storage.NewFileStore[library.Index](cfg.LibraryIndex, mirror))
	a.library.Open(ctx)

	store, err := a.registryStore(ctx, mirror)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = registry.New(store)
	a.registry.Open(ctx)

	a.plays = a.connectPlayLog()

	engine := playlist.New(
		playlist.WithUndoLimit(cfg.UndoLimit),
		playlist.WithRegistry(a.registry),
		playlist.WithTrackFactory(a.library.Track),
	)
	sched := feed.NewScheduler(a.exec, feed.Config{
		TickInterval:  cfg.TickInterval,
		HistoryChunks: cfg.HistoryChunks,
	})
	a.hub = broadcast.NewHub()
	a.player = player.New(a.exec, engine, sched, a.hub,
		player.WithScrobbler(scrobble.New(cfg.Lastfm)),
		player.WithPlayLog(a.plays),
	)

	if err := a.player.Restore(); err != nil && !errors.Is(err, registry.ErrNotFound) {
		logger.Warn("failed to restore last playlist", logger.ErrorField(err))
	}

	if cfg.LibraryWatch {
		err := library.Watch(a.ctx, cfg.LibraryRoots, watchDebounce, func() {
			if _, err := a.rescan(a.ctx, nil); err != nil {
				logger.Warn("library rescan failed", logger.ErrorField(err))
			}
		})
		if err != nil {
			logger.Warn("library watch disabled", logger.ErrorField(err))
		}
	}

	return a, nil
}

func (a *App) connectMirror(ctx context.Context) storage.Mirror {
	if !a.cfg.HasMinio() {
		return nil
	}
	client, err := storage.NewMinioClient(ctx, a.cfg)
	if err != nil {
		logger.Warn("state mirror disabled", logger.ErrorField(err))
		return nil
	}
	logger.Info("mirroring state to minio", logger.String("bucket", a.cfg.MinioBucket))
	return client
}

func (a *App) registryStore(ctx context.Context, mirror storage.Mirror) (registry.Store, error) {
	switch a.cfg.RegistryBackend {
	case config.RegistryBackendRedis:
		client, err := cache.ConnectRedis(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("playlist registry: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		logger.Info("playlists stored in redis", logger.String("key", cache.RegistryKey))
		return cache.NewRegistryStore(client), nil
	default:
		logger.Info("playlists stored on disk", logger.String("path", a.cfg.PlaylistsPath))
		return storage.NewFileStore[map[string][]string](a.cfg.PlaylistsPath, mirror), nil
	}
}

func (a *App) connectPlayLog() repository.PlayLogRepository {
	if !a.cfg.HasDatabase() {
		return repository.NopPlayLogRepository{}
	}
	gdb, err := db.ConnectGormDB(a.cfg)
	if err != nil {
		logger.Warn("play log disabled", logger.ErrorField(err))
		return repository.NopPlayLogRepository{}
	}
	if err := db.AutoMigrateModels(gdb, &model.PlayLog{}); err != nil {
		logger.Warn("play log disabled", logger.ErrorField(err))
		_ = db.CloseGormDB(gdb)
		return repository.NopPlayLogRepository{}
	}
	a.closers = append(a.closers, func() { _ = db.CloseGormDB(gdb) })
	return repository.NewGormPlayLogRepository(gdb)
}

// rescan rebuilds the library index and tells info listeners about it.
func (a *App) rescan(ctx context.Context, report func(library.Progress)) (library.Index, error) {
	index, err := a.library.Scan(ctx, report)
	if err != nil {
		return index, err
	}
	a.player.LibraryUpdated(len(index))
	return index, nil
}

// Handler returns the HTTP routes.
func (a *App) Handler() *mux.Router {
	return newRouter(a)
}

// Close stops background work and flushes persisted state.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.stopLoop != nil {
		a.stopLoop()
		a.stopLoop = nil
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.registry != nil {
		a.registry.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
