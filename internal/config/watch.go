package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadedMsg carries a freshly loaded configuration.
type ReloadedMsg struct {
	Config *Config
}

// ReloadFailedMsg reports a config change that could not be applied.
type ReloadFailedMsg struct {
	Err error
}

const reloadDelay = 250 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	out     chan tea.Msg
	log     zerolog.Logger
}

// Watch starts watching path until ctx is done. The parent directory is
// watched so editors that replace the file are still picked up.
func Watch(ctx context.Context, path string, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:    abs,
		watcher: fw,
		out:     make(chan tea.Msg, 1),
		log:     log.With().Str("component", "config").Logger(),
	}
	go w.processEvents(ctx)

	w.log.Info().Str("path", abs).Msg("watching config")
	return w, nil
}

// Next blocks for the next reload result. It returns nil once the watcher
// has stopped, which ends the command chain.
func (w *Watcher) Next() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-w.out
		if !ok {
			return nil
		}
		return msg
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.out)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.log.Debug().Str("op", ev.Op.String()).Msg("config changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			cfg, err := Load(w.path)
			var msg tea.Msg
			if err != nil {
				w.log.Error().Err(err).Msg("config reload failed")
				msg = ReloadFailedMsg{Err: err}
			} else {
				w.log.Info().Msg("config reloaded")
				msg = ReloadedMsg{Config: cfg}
			}
			select {
			case w.out <- msg:
			case <-ctx.Done():
				_ = w.watcher.Close()
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}
