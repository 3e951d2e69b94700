package configwatcher

import (
	"context"
	"path/filepath"
	"time"

	"watchlearn/internal/config"
	"watchlearn/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Reloader receives every successfully parsed configuration.
type Reloader func(cfg *config.Config)

// Watcher reloads a config file after it changes. Bursts of events within
// Debounce collapse into one reload.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Load     func(dir string) (*config.Config, error)
}

func New(configPath string) *Watcher {
	return &Watcher{
		Path:     configPath,
		Debounce: time.Second,
		Load:     config.LoadConfig,
	}
}

// Run blocks until ctx is done. The directory is watched rather than the
// file so editors that replace the file on save are still seen.
func (w *Watcher) Run(ctx context.Context, reload Reloader) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(w.Path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return err
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.Debounce)
			}
		case <-timer.C:
			newCfg, err := w.Load(filepath.Dir(absPath))
			if err != nil {
				logger.Log.Error("Failed to reload config", zap.Error(err))
				continue
			}
			logger.Log.Info("Config reloaded", zap.String("path", absPath))
			reload(newCfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Log.Error("Config watcher error", zap.Error(err))
		}
	}
}
