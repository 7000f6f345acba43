package config

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/logger"
)

// DefaultDebounce coalesces editor save bursts into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives the new configuration after a successful reload.
type ReloadCallback func(*Config) error

// Watcher reloads configuration when any of the loaded files change.
type Watcher struct {
	opts     Options
	files    []string
	watcher  *fsnotify.Watcher
	log      *zap.SugaredLogger
	debounce time.Duration

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
	ownWrite  bool
}

var (
	globalWatcher   *Watcher
	globalWatcherMu sync.Mutex
)

// NewWatcher watches the files of a previous Load with the same opts.
func NewWatcher(opts Options, files []string, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	for _, f := range files {
		if err := fw.Add(f); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "failed to watch config file %s", f)
		}
	}
	return &Watcher{
		opts:     opts,
		files:    files,
		watcher:  fw,
		log:      logger.OrNop(log),
		debounce: DefaultDebounce,
	}, nil
}

// OnReload registers a callback.
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// MarkOwnWrite suppresses the reload triggered by our next write.
func (w *Watcher) MarkOwnWrite() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ownWrite = true
}

func (w *Watcher) takeOwnWrite() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	own := w.ownWrite
	w.ownWrite = false
	return own
}

// Run watches until ctx is done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if isBackupFile(event.Name) {
				continue
			}
			if w.takeOwnWrite() {
				w.log.Debugw("Config watcher ignoring own write", logger.FieldPath, event.Name)
				continue
			}
			w.log.Infow("Config change detected",
				logger.FieldPath, event.Name,
				logger.FieldOperation, event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if err := w.reload(); err != nil {
			// keep running on the previous config
			w.log.Errorw("Config reload failed", logger.FieldError, err)
		}
	})
}

func (w *Watcher) reload() error {
	res, err := Load(w.opts)
	if err != nil {
		return err
	}
	w.log.Infow("Config reloaded", logger.FieldCount, len(res.Files))

	w.mu.Lock()
	callbacks := append([]ReloadCallback(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(res.Config); err != nil {
			w.log.Warnw("Config reload callback error", logger.FieldError, err)
		}
	}
	return nil
}

// SetGlobalWatcher registers the watcher Set should notify of its own writes.
func SetGlobalWatcher(w *Watcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = w
}

// GlobalWatcher returns the registered watcher, if any.
func GlobalWatcher() *Watcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
