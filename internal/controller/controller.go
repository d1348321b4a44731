package controller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/Compy/mpf-mc/internal/assets"
	"github.com/Compy/mpf-mc/internal/boot"
	"github.com/Compy/mpf-mc/internal/config"
	"github.com/Compy/mpf-mc/internal/deps"
	"github.com/Compy/mpf-mc/internal/discovery"
	"github.com/Compy/mpf-mc/internal/events"
	"github.com/Compy/mpf-mc/internal/ipc"
	"github.com/Compy/mpf-mc/internal/kinds/font"
	"github.com/Compy/mpf-mc/internal/kinds/image"
	"github.com/Compy/mpf-mc/internal/kinds/sound"
	"github.com/Compy/mpf-mc/internal/kinds/video"
	"github.com/Compy/mpf-mc/internal/logging"
	"github.com/Compy/mpf-mc/internal/media/probecache"
	"github.com/Compy/mpf-mc/internal/notifications"
	"github.com/Compy/mpf-mc/internal/watch"
)

// Controller wires the asset registry, discovery, file watching, and
// the boot gate into a single lifecycle. It enforces single-instance
// execution with a file lock and implements the ipc.Core surface.
type Controller struct {
	cfg       *config.Config
	logger    *slog.Logger
	notifier  notifications.Service
	sessionID string

	lock    *flock.Flock
	bus     *events.Bus
	gate    *boot.Gate
	mgr     *assets.Manager
	cache   *probecache.Store
	watcher *watch.Watcher

	started time.Time
	running atomic.Bool

	stopOnce sync.Once
	stopped  chan struct{}
	cancel   context.CancelFunc
}

// New builds a controller and registers the built-in asset classes.
func New(cfg *config.Config, logger *slog.Logger, notifier notifications.Service) (*Controller, error) {
	if cfg == nil {
		return nil, errors.New("controller requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	bus := events.NewBus(logger)
	gate := boot.NewGate()

	mgr := assets.NewManager(assets.Options{
		Logger:       logger,
		Bus:          bus,
		Gate:         gate,
		PollInterval: time.Duration(cfg.Assets.PollIntervalMillis) * time.Millisecond,
	})

	c := &Controller{
		cfg:       cfg,
		logger:    logger.With(logging.String(logging.FieldComponent, "controller")),
		notifier:  notifier,
		sessionID: uuid.NewString(),
		lock:      flock.New(cfg.LockPath()),
		bus:       bus,
		gate:      gate,
		mgr:       mgr,
		stopped:   make(chan struct{}),
	}

	if cfg.MediaProbe.CacheEnabled {
		cache, err := probecache.Open(cfg.MediaProbe.CachePath)
		if err != nil {
			mgr.Shutdown()
			return nil, fmt.Errorf("open probe cache: %w", err)
		}
		c.cache = cache
	}

	if err := c.registerClasses(); err != nil {
		c.closeResources()
		return nil, err
	}
	return c, nil
}

func (c *Controller) registerClasses() error {
	probeTimeout := time.Duration(c.cfg.MediaProbe.TimeoutSeconds) * time.Second
	classes := []*assets.Class{
		image.Class(c.cfg.Assets.ImagesDir),
		sound.Class(c.cfg.Assets.SoundsDir),
		video.Class(c.cfg.Assets.VideosDir, video.Options{
			Binary:  c.cfg.FFprobeBinary(),
			Cache:   c.cache,
			Timeout: probeTimeout,
		}),
		font.Class(c.cfg.Assets.FontsDir),
	}
	for _, class := range classes {
		if err := c.mgr.RegisterClass(class); err != nil {
			return err
		}
	}
	return nil
}

// SessionID identifies this controller process.
func (c *Controller) SessionID() string { return c.sessionID }

// Bus exposes the event bus for display and audio subsystems.
func (c *Controller) Bus() *events.Bus { return c.bus }

// Manager exposes the asset registry.
func (c *Controller) Manager() *assets.Manager { return c.mgr }

// Ready reports whether the boot gate has been released.
func (c *Controller) Ready() bool { return c.gate.Ready() }

// Start acquires the instance lock, discovers machine assets, and
// kicks off the preload. The returned error is fatal; the controller
// is unusable afterwards.
func (c *Controller) Start(ctx context.Context) error {
	if c.running.Load() {
		return errors.New("controller already running")
	}
	c.started = time.Now()

	if err := os.MkdirAll(filepath.Dir(c.cfg.LockPath()), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := c.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another media controller instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if err := discovery.New(c.cfg, c.mgr, c.logger).Run(); err != nil {
		c.Stop()
		return fmt.Errorf("discover assets: %w", err)
	}

	if c.cfg.Assets.Watch {
		watcher, err := watch.New(c.mgr, c.logger)
		if err != nil {
			c.Stop()
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := watcher.Start(c.assetDirs()...); err != nil {
			watcher.Close()
			c.Stop()
			return fmt.Errorf("start watcher: %w", err)
		}
		c.watcher = watcher
	}

	c.running.Store(true)
	go c.announceReady(runCtx)

	c.mgr.Preload()
	c.logger.Info("controller started",
		logging.String("machine_dir", c.cfg.Paths.MachineDir),
		logging.String("session_id", c.sessionID))
	return nil
}

// Run starts the controller and blocks until the context is canceled
// or a fatal loader error occurs.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer c.Stop()

	select {
	case <-ctx.Done():
		c.logger.Info("controller shutting down")
		return nil
	case <-c.stopped:
		return nil
	case err := <-c.mgr.Crashed():
		c.logger.Error("fatal asset load failure", logging.Error(err))
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if nerr := c.notifier.NotifyLoadFailure(notifyCtx, err); nerr != nil {
			c.logger.Warn("load failure notification failed", logging.Error(nerr))
		}
		return err
	}
}

// Stop releases every resource held by the controller. Safe to call
// more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.closeResources()
		if err := c.lock.Unlock(); err != nil {
			c.logger.Warn("failed to release instance lock", logging.Error(err))
		}
		c.running.Store(false)
		close(c.stopped)
		c.logger.Info("controller stopped")
	})
}

func (c *Controller) closeResources() {
	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			c.logger.Warn("failed to close watcher", logging.Error(err))
		}
	}
	c.mgr.Shutdown()
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.logger.Warn("failed to close probe cache", logging.Error(err))
		}
	}
}

func (c *Controller) assetDirs() []string {
	machine := c.cfg.Paths.MachineDir
	return []string{
		filepath.Join(machine, c.cfg.Assets.ImagesDir),
		filepath.Join(machine, c.cfg.Assets.SoundsDir),
		filepath.Join(machine, c.cfg.Assets.VideosDir),
		filepath.Join(machine, c.cfg.Assets.FontsDir),
		c.cfg.ModesDir(),
	}
}

func (c *Controller) announceReady(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-c.stopped:
		return
	case <-c.gate.Released():
	}

	elapsed := time.Since(c.started)
	snap := c.mgr.Progress()
	assetCount := 0
	for _, summary := range c.mgr.Summaries() {
		assetCount += summary.Assets
	}

	c.logger.Info("machine ready",
		logging.Int("assets", assetCount),
		logging.Int("loaded", snap.Loaded),
		logging.Duration("elapsed", elapsed))

	notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.notifier.NotifyStartupComplete(notifyCtx, c.cfg.Paths.MachineDir, assetCount, elapsed); err != nil {
		c.logger.Warn("startup notification failed", logging.Error(err))
	}
	if err := c.notifier.NotifyAssetsLoaded(notifyCtx, snap.Loaded, snap.Total, elapsed); err != nil {
		c.logger.Warn("assets loaded notification failed", logging.Error(err))
	}
}

// Status implements ipc.Core.
func (c *Controller) Status(_ context.Context) ipc.StatusResponse {
	snap := c.mgr.Progress()
	summaries := c.mgr.Summaries()
	classes := make([]ipc.ClassInfo, 0, len(summaries))
	for _, summary := range summaries {
		classes = append(classes, ipc.ClassInfo{
			Attribute: summary.Attribute,
			Assets:    summary.Assets,
			Groups:    summary.Groups,
			Loaded:    summary.Loaded,
		})
	}

	statuses := deps.CheckBinaries(deps.Defaults(c.cfg.FFprobeBinary()))
	depInfos := make([]ipc.DependencyStatus, 0, len(statuses))
	for _, status := range statuses {
		depInfos = append(depInfos, ipc.DependencyStatus{
			Name:        status.Name,
			Command:     status.Command,
			Description: status.Description,
			Optional:    status.Optional,
			Available:   status.Available,
			Detail:      status.Detail,
		})
	}

	return ipc.StatusResponse{
		Running:      c.running.Load(),
		SessionID:    c.sessionID,
		MachineDir:   c.cfg.Paths.MachineDir,
		SocketPath:   c.cfg.Paths.SocketPath,
		Ready:        c.gate.Ready(),
		PendingHolds: c.gate.Pending(),
		Progress:     toProgressInfo(snap),
		Classes:      classes,
		Dependencies: depInfos,
		PID:          os.Getpid(),
	}
}

// ReportRemoteProgress implements ipc.Core. The game process reports
// its own (total, remaining) counts; they replace the previous remote
// figures and feed the merged readiness percentage.
func (c *Controller) ReportRemoteProgress(total, remaining int) (ipc.ProgressInfo, error) {
	if remaining < 0 || total < remaining {
		return ipc.ProgressInfo{}, fmt.Errorf("inconsistent remote progress: total=%d remaining=%d", total, remaining)
	}
	c.mgr.ReportRemoteProgress(total, remaining)
	return toProgressInfo(c.mgr.Progress()), nil
}

// LoadKey implements ipc.Core.
func (c *Controller) LoadKey(key string) (int, error) {
	if key == "" {
		return 0, errors.New("load key must not be empty")
	}
	return len(c.mgr.LoadByKey(key)), nil
}

// ListAssets implements ipc.Core.
func (c *Controller) ListAssets(attribute string) []ipc.AssetInfo {
	infos := c.mgr.ListAssets(attribute)
	out := make([]ipc.AssetInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, ipc.AssetInfo{
			Name:     info.Name,
			Kind:     info.Kind,
			File:     info.File,
			State:    info.State,
			LoadKey:  info.LoadKey,
			Priority: info.Priority,
		})
	}
	return out
}

// RequestShutdown implements ipc.Core.
func (c *Controller) RequestShutdown() {
	go c.Stop()
}

func toProgressInfo(snap assets.ProgressSnapshot) ipc.ProgressInfo {
	return ipc.ProgressInfo{
		Total:        snap.Total,
		Loaded:       snap.Loaded,
		Remaining:    snap.Remaining,
		Percent:      snap.Percent,
		RemoteTotal:  snap.RemoteTotal,
		RemoteLoaded: snap.RemoteLoaded,
	}
}
