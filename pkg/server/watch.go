package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/bastiangx/wordnext/pkg/config"
	"github.com/fsnotify/fsnotify"
)

// WatchConfig reloads the config file whenever it changes on disk, until
// ctx is done. It watches the parent directory so editors that replace the
// file by rename are picked up too. Only request limits and the default
// model follow a reload; model and dictionary locations are read at startup.
func (s *Server) WatchConfig(ctx context.Context) error {
	if s.configPath == "" {
		s.logger.Debug("No config file, not watching")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	dir := filepath.Dir(s.configPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	s.logger.Debugf("Watching config at %s", s.configPath)
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	target := filepath.Clean(s.configPath)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.ReloadConfig()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warnf("Config watcher error: %v", err)
		}
	}
}

// ReloadConfig re-reads the config file and swaps it in. A file that
// cannot be read keeps the current config.
func (s *Server) ReloadConfig() {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.logger.Warnf("Keeping current config, reload of %s failed: %v", s.configPath, err)
		return
	}
	s.setConfig(cfg)
	s.logger.Infof("Reloaded config from %s", s.configPath)
}
