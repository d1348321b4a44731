// Package watch reloads assets whose backing files change on disk.
//
// It is meant for development setups where artists drop updated media
// into a running machine folder. Only assets that are currently loaded
// are reloaded; everything else picks up the new file on its next
// load.
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/Compy/mpf-mc/internal/assets"
	"github.com/Compy/mpf-mc/internal/logging"
)

// Watcher observes asset directories and reloads changed assets.
type Watcher struct {
	mgr    *assets.Manager
	logger *slog.Logger

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// New builds a watcher for the given manager.
func New(mgr *assets.Manager, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		mgr:    mgr,
		logger: logger.With(logging.String(logging.FieldComponent, "watch")),
		fsw:    fsw,
		done:   make(chan struct{}),
	}, nil
}

// Start watches each directory recursively and begins processing
// events. Missing directories are skipped.
func (w *Watcher) Start(dirs ...string) error {
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := w.addRecursive(dir); err != nil {
			return err
		}
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

// Close stops event processing and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					logging.String("path", event.Name),
					logging.Error(err))
			}
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	w.reload(event.Name)
}

// reload refreshes the asset backed by path, if one is registered and
// currently loaded.
func (w *Watcher) reload(path string) {
	asset, ok := w.mgr.AssetByFile(path)
	if !ok {
		return
	}
	if !asset.Loaded() {
		return
	}
	if err := asset.Unload(); err != nil {
		w.logger.Warn("reload unload failed",
			logging.String(logging.FieldAsset, asset.Name()),
			logging.Error(err))
		return
	}
	asset.Load(nil)
	w.logger.Info("asset reloaded from disk",
		logging.String(logging.FieldAsset, asset.Name()),
		logging.String("path", path))
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}
