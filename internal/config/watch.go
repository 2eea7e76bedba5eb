package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
)

// WatchLogLevel watches the config file and applies logging level changes
// at runtime. Only the level is hot-reloaded; everything else needs a
// restart. Returns immediately when configPath is empty.
//
// The watcher runs until ctx is cancelled.
func WatchLogLevel(ctx context.Context, configPath string, logger *logging.Logger) error {
	if configPath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// Watch the directory, not the file: editors and config management
	// tools replace the file, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != configPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				reloadLevel(ctx, configPath, logger)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn(ctx, "config watcher error", zap.Error(err))
			}
		}
	}()

	return nil
}

func reloadLevel(ctx context.Context, configPath string, logger *logging.Logger) {
	cfg, err := LoadWithFile(configPath)
	if err != nil {
		logger.Warn(ctx, "config reload failed, keeping current log level", zap.Error(err))
		return
	}
	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		logger.Warn(ctx, "invalid log level in reloaded config", zap.Error(err))
		return
	}
	if level != logger.Level() {
		logger.SetLevel(level)
		logger.Info(ctx, "log level changed", zap.String("level", cfg.Logging.Level))
	}
}
