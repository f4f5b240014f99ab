package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Watch reloads path whenever it changes and hands the new Config to
// onChange. It returns when ctx is cancelled.
//
// The parent directory is watched, not the file. Editors and deploy tools
// that save by writing a temporary file and renaming it over path replace
// the inode, which would silently end a watch on the file itself.
//
// A reload that fails (invalid YAML, bad rate) is logged and the previous
// config stays active; onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return eris.Wrapf(err, "config: resolve %s", path)
	}
	if _, err := os.Stat(target); err != nil {
		return eris.Wrapf(err, "config: watch %s", path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "config: create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return eris.Wrapf(err, "config: watch %s", filepath.Dir(target))
	}

	log := zap.L().With(zap.String("path", target))
	log.Info("config: watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !isReloadEvent(event) {
				continue
			}
			// Renamed or removed away; the replacement arrives as a Create.
			if _, err := os.Stat(target); err != nil {
				log.Debug("config: file gone, waiting for replacement", zap.String("op", event.Op.String()))
				continue
			}

			cfg, err := Load(target)
			if err != nil {
				log.Error("config: reload failed, keeping previous config", zap.Error(err))
				continue
			}
			log.Info("config: reloaded", zap.String("op", event.Op.String()))
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("config: watcher error", zap.Error(err))
		}
	}
}

func isReloadEvent(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// RateSetter receives a new per-task rate. compensation.Service satisfies it.
type RateSetter interface {
	SetPerTaskRate(rate decimal.Decimal)
}

// ApplyRate returns an onChange callback for Watch that pushes the reloaded
// per-task rate into target.
func ApplyRate(target RateSetter) func(*Config) {
	return func(cfg *Config) {
		rate, err := cfg.Compensation.Rate()
		if err != nil {
			zap.L().Error("config: ignoring per-task rate", zap.Error(err))
			return
		}
		target.SetPerTaskRate(rate)
		zap.L().Info("config: per-task rate applied", zap.String("rate", rate.String()))
	}
}
