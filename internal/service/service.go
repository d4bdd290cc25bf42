// Package service wraps the sync engine, config store, backup manager, and
// watcher behind the small set of operations an external shell (tray icon,
// CLI console, or anything else) actually needs, rendering every outcome
// as a string so callers never need to know an internal error shape.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/hazyhaar/ggsync/internal/backup"
	"github.com/hazyhaar/ggsync/internal/config"
	"github.com/hazyhaar/ggsync/internal/engine"
	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/watcher"
)

// Service is the only component that starts the watcher goroutine and the
// poller ticker, and the only one that wires watcher events through the
// engine's feedback-suppression check before pushing.
type Service struct {
	store  *config.Store
	engine *engine.Engine
	log    *zap.Logger

	statusCh      chan string
	traySyncNowCh chan struct{}
}

// New builds a Service around store. Call Run to start its background
// goroutines; until Run is called nothing reads the tray-sync-now channel
// and nothing is published to StatusEvents.
func New(store *config.Store, log *zap.Logger) *Service {
	log = logging.Or(log)
	return &Service{
		store:         store,
		engine:        engine.New(store, log),
		log:           log,
		statusCh:      make(chan string, 16),
		traySyncNowCh: make(chan struct{}, 1),
	}
}

// StatusEvents carries a rendered result for every watcher-triggered push
// and every sync requested through TraySyncNow. Poller-triggered pulls are
// logged, not published here, and SyncNow, PushNow, and PullNow return
// their result to the caller without publishing it.
func (s *Service) StatusEvents() <-chan string { return s.statusCh }

// TraySyncNow lets a caller (e.g. a tray menu handler) request an
// immediate sync: Run's loop receives the request, calls SyncNow, and
// publishes the result on StatusEvents.
func (s *Service) TraySyncNow() chan<- struct{} { return s.traySyncNowCh }

// Run starts the watcher goroutine, the poller ticker, and the
// tray-sync-now listener. It blocks until ctx is canceled, or returns
// early with the watcher's error if the watcher fails to start or stops.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.store.Current()

	debounce := cfg.DebounceWindow()
	w, err := watcher.New(cfg.LocalDBDir, debounce, s.log)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	stop := make(chan struct{})
	watchErrCh := make(chan error, 1)
	go func() {
		watchErrCh <- w.Watch(stop, s.onWatcherChange)
	}()

	go s.engine.StartPolling(ctx)

	for {
		select {
		case <-ctx.Done():
			close(stop)
			return nil
		case err := <-watchErrCh:
			if err != nil {
				s.log.Error("watcher stopped", zap.Error(err))
			}
			return err
		case <-s.traySyncNowCh:
			s.publish(s.SyncNow(ctx))
		}
	}
}

// onWatcherChange is the watcher callback: it must consult the
// suppression flag before pushing, since the write this very callback is
// reacting to may be the one a just-completed pull just performed.
func (s *Service) onWatcherChange(watcher.ConfigChanged) {
	if s.engine.ShouldSuppressPush() {
		s.log.Debug("watcher event suppressed: originated from our own pull")
		return
	}

	result, err := s.engine.PushToRemote(context.Background())
	if err != nil {
		s.publish(fmt.Sprintf("push failed: %v", err))
		return
	}
	s.publish(result.String())
}

func (s *Service) publish(rendered string) {
	select {
	case s.statusCh <- rendered:
	default:
		s.log.Warn("status channel full, dropping event", zap.String("event", rendered))
	}
}

// SyncNow reconciles local and remote state immediately.
func (s *Service) SyncNow(ctx context.Context) string {
	result, err := s.engine.Sync(ctx)
	if err != nil {
		return fmt.Sprintf("sync failed: %v", err)
	}
	return result.String()
}

// PushNow pushes the local triple to the remote immediately.
func (s *Service) PushNow(ctx context.Context) string {
	result, err := s.engine.PushToRemote(ctx)
	if err != nil {
		return fmt.Sprintf("push failed: %v", err)
	}
	return result.String()
}

// PullNow pulls the remote triple to local immediately.
func (s *Service) PullNow(ctx context.Context) string {
	result, err := s.engine.PullFromRemote(ctx)
	if err != nil {
		return fmt.Sprintf("pull failed: %v", err)
	}
	return result.String()
}

// ListBackups renders every retained backup, newest first, with a
// human-readable age and the human-readable size of its largest file.
func (s *Service) ListBackups() string {
	cfg := s.store.Current()
	mgr := backup.New(cfg.BackupDir, cfg.MaxBackups, s.log)

	entries, err := mgr.List()
	if err != nil {
		return fmt.Sprintf("list backups failed: %v", err)
	}
	if len(entries) == 0 {
		return "no backups found"
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s (%s, %s)\n", e.Name, humanize.Time(e.Created), humanize.Bytes(uint64(e.LargestFileSize)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RestoreBackup restores the named backup over the local directory.
func (s *Service) RestoreBackup(name string) string {
	cfg := s.store.Current()
	mgr := backup.New(cfg.BackupDir, cfg.MaxBackups, s.log)

	backupPath, err := findBackupPath(mgr, name)
	if err != nil {
		return err.Error()
	}

	if err := mgr.Restore(backupPath, cfg.LocalDBDir); err != nil {
		return fmt.Sprintf("restore failed: %v", err)
	}
	return fmt.Sprintf("restored %s", name)
}

func findBackupPath(mgr *backup.Manager, name string) (string, error) {
	entries, err := mgr.List()
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Path, nil
		}
	}
	return "", fmt.Errorf("no backup named %q", name)
}

// GetConfig renders the live AppConfig for display.
func (s *Service) GetConfig() string {
	cfg := s.store.Current()
	return fmt.Sprintf(
		"local_db_dir=%s backup_dir=%s max_backups=%d debounce_seconds=%d device_name=%s provider=%s",
		cfg.LocalDBDir, cfg.BackupDir, cfg.MaxBackups, cfg.DebounceSeconds, cfg.DeviceName, cfg.Provider.Type,
	)
}

// SaveConfig validates and persists cfg, taking effect for every
// subsequent push, pull, sync, poll, and backup operation without a
// process restart. A watcher already started by Run keeps the directory
// and debounce window it was started with.
func (s *Service) SaveConfig(cfg config.AppConfig) string {
	if err := s.store.Save(cfg); err != nil {
		return fmt.Sprintf("save config failed: %v", err)
	}
	return "config saved"
}
