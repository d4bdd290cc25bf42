// Package engine implements the sync core: push/pull/sync orchestration,
// safety gating, and the feedback-suppression flag that keeps a pull's own
// local write from bouncing back as a spurious watcher-triggered push.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hazyhaar/ggsync/internal/backup"
	"github.com/hazyhaar/ggsync/internal/config"
	"github.com/hazyhaar/ggsync/internal/guard"
	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/model"
	"github.com/hazyhaar/ggsync/internal/provider"
)

const (
	prePullLabel = "pre-pull"
	prePushLabel = "pre-push"
)

// Engine orchestrates push, pull, and sync against a config-provided
// local directory and remote provider, gated by a safety guard and backed
// by a backup manager for pre-overwrite snapshots.
type Engine struct {
	store *config.Store
	guard *guard.Guard
	log   *zap.Logger

	suppressNextPush atomic.Bool
}

// New creates an Engine reading its AppConfig from store.
func New(store *config.Store, log *zap.Logger) *Engine {
	return &Engine{
		store: store,
		guard: guard.New(log),
		log:   logging.Or(log),
	}
}

func (e *Engine) backupManager(cfg config.AppConfig) *backup.Manager {
	return backup.New(cfg.BackupDir, cfg.MaxBackups, e.log)
}

func (e *Engine) provider(cfg config.AppConfig) (provider.Provider, error) {
	return provider.FromVariant(cfg.Provider)
}

// PushToRemote reads the local triple and delegates it to the provider,
// unless the safety guard vetoes the read.
func (e *Engine) PushToRemote(ctx context.Context) (SyncResult, error) {
	cfg := e.store.Current()
	opID := uuid.New().String()
	log := e.log.With(zap.String("op", "push"), zap.String("op_id", opID), zap.String("device", cfg.DeviceName))

	switch e.guard.SafeToRead(cfg.LocalDBDir) {
	case guard.ReadNoConfig:
		log.Info("push skipped: no local config")
		return SyncResult{Kind: ResultSkipped, Reason: SkipNoLocalConfig}, nil
	case guard.ReadFileLocked:
		log.Info("push skipped: local file locked")
		return SyncResult{Kind: ResultSkipped, Reason: SkipFileLocked}, nil
	}

	snapshot, err := readLocalSnapshot(cfg.LocalDBDir, cfg.DeviceName)
	if err != nil {
		log.Error("push failed reading local triple", zap.Error(err))
		return SyncResult{}, fmt.Errorf("read local triple: %w", err)
	}

	p, err := e.provider(cfg)
	if err != nil {
		return SyncResult{}, err
	}

	if err := p.Push(ctx, snapshot); err != nil {
		log.Error("push failed", zap.Error(err))
		return SyncResult{}, fmt.Errorf("push to remote: %w", err)
	}

	log.Info("pushed")
	return SyncResult{Kind: ResultPushed}, nil
}

// PullFromRemote retrieves the remote triple, validates it, snapshots the
// local state before overwriting it, then writes the new triple locally,
// arming the suppression flag first so the watcher event this write
// inevitably produces doesn't bounce back as a push.
func (e *Engine) PullFromRemote(ctx context.Context) (SyncResult, error) {
	cfg := e.store.Current()
	opID := uuid.New().String()
	log := e.log.With(zap.String("op", "pull"), zap.String("op_id", opID), zap.String("device", cfg.DeviceName))

	ggWasRunning := e.guard.SafeToWrite(cfg.LocalDBDir) == guard.WriteGGRunning

	switch e.guard.SafeToRead(cfg.LocalDBDir) {
	case guard.ReadFileLocked:
		log.Info("pull skipped: local file locked")
		return SyncResult{Kind: ResultSkipped, Reason: SkipFileLocked}, nil
	}
	// ReadNoConfig and ReadSafe are both acceptable for a pull.

	p, err := e.provider(cfg)
	if err != nil {
		return SyncResult{}, err
	}

	snapshot, err := p.Pull(ctx)
	if err != nil {
		if isNotFound(err) {
			log.Info("pull skipped: no remote config")
			return SyncResult{Kind: ResultSkipped, Reason: SkipNoRemoteConfig}, nil
		}
		log.Error("pull failed", zap.Error(err))
		return SyncResult{}, fmt.Errorf("pull from remote: %w", err)
	}

	if !model.ValidateSQLiteHeader(snapshot.Db) {
		log.Warn("pull skipped: remote file failed sqlite header validation")
		return SyncResult{Kind: ResultSkipped, Reason: SkipInvalidRemoteFile}, nil
	}

	if _, err := os.Stat(filepath.Join(cfg.LocalDBDir, model.DBFileName)); err == nil {
		if _, err := e.backupManager(cfg).Create(cfg.LocalDBDir, prePullLabel); err != nil {
			log.Error("pre-pull backup failed", zap.Error(err))
			return SyncResult{}, fmt.Errorf("pre-pull backup: %w", err)
		}
	}

	// Arm suppression before writing: the write below will generate a
	// watcher event, and the watcher callback's test-and-clear must
	// observe this set to avoid bouncing the just-pulled content back
	// out as a push.
	e.suppressNextPush.Store(true)

	if err := writeLocalSnapshot(cfg.LocalDBDir, snapshot); err != nil {
		log.Error("pull failed writing local triple", zap.Error(err))
		return SyncResult{}, fmt.Errorf("write local triple: %w", err)
	}

	log.Info("pulled", zap.String("from_device", snapshot.Meta.DeviceName), zap.Bool("gg_was_running", ggWasRunning))
	return SyncResult{Kind: ResultPulled, FromDevice: snapshot.Meta.DeviceName, GGWasRunning: ggWasRunning}, nil
}

// Sync reconciles local and remote state: compares modification times and
// pushes, pulls, or reports AlreadyInSync / NoLocalConfig as appropriate.
// The local-existence check and the remote-metadata probe depend on
// nothing from each other, so they run concurrently via a small fan-out.
func (e *Engine) Sync(ctx context.Context) (SyncResult, error) {
	cfg := e.store.Current()

	p, err := e.provider(cfg)
	if err != nil {
		return SyncResult{}, err
	}

	var (
		localExists  bool
		localModTime time.Time
		localErr     error

		remoteMeta model.SyncMeta
		remoteErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		localExists, localModTime, localErr = e.localDBInfo(cfg.LocalDBDir)
	}()
	go func() {
		defer wg.Done()
		remoteMeta, remoteErr = p.RemoteMeta(ctx)
	}()
	wg.Wait()

	if localErr != nil {
		return SyncResult{}, fmt.Errorf("stat local db: %w", localErr)
	}

	remoteExists := remoteErr == nil
	if remoteErr != nil && !isNotFound(remoteErr) {
		return SyncResult{}, fmt.Errorf("probe remote meta: %w", remoteErr)
	}

	switch {
	case localExists && remoteExists:
		switch {
		case localModTime.UTC().After(remoteMeta.LastModified.UTC()):
			if _, err := e.backupManager(cfg).Create(cfg.LocalDBDir, prePushLabel); err != nil {
				return SyncResult{}, fmt.Errorf("pre-push backup: %w", err)
			}
			return e.PushToRemote(ctx)
		case localModTime.UTC().Before(remoteMeta.LastModified.UTC()):
			return e.PullFromRemote(ctx)
		default:
			return SyncResult{Kind: ResultSkipped, Reason: SkipAlreadyInSync}, nil
		}
	case localExists && !remoteExists:
		return e.PushToRemote(ctx)
	case !localExists && remoteExists:
		return e.PullFromRemote(ctx)
	default:
		return SyncResult{Kind: ResultSkipped, Reason: SkipNoLocalConfig}, nil
	}
}

// ShouldSuppressPush is an atomic test-and-clear of the suppression flag.
// The watcher callback must call this first; a true result means the
// callback must return without pushing. Exactly one call observes true
// per armed pull.
func (e *Engine) ShouldSuppressPush() bool {
	return e.suppressNextPush.Swap(false)
}

func (e *Engine) localDBInfo(dir string) (exists bool, modTime time.Time, err error) {
	info, statErr := os.Stat(filepath.Join(dir, model.DBFileName))
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, statErr
	}
	return true, info.ModTime(), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, provider.ErrNotFound)
}

const pollInterval = 30 * time.Second

// StartPolling ticks every 30 seconds for the lifetime of ctx, comparing
// the remote's metadata against the last watermark it has observed and
// triggering a pull when the remote has moved. It runs until ctx is
// canceled and never returns an error itself — provider failures are
// logged and the next tick is the retry.
func (e *Engine) StartPolling(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var watermark time.Time
	haveWatermark := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.pollOnce(ctx, &watermark, &haveWatermark)
		}
	}
}

func (e *Engine) pollOnce(ctx context.Context, watermark *time.Time, haveWatermark *bool) {
	cfg := e.store.Current()
	log := e.log.With(zap.String("op", "poll"))

	p, err := e.provider(cfg)
	if err != nil {
		log.Warn("poll: provider construction failed", zap.Error(err))
		return
	}

	meta, err := p.RemoteMeta(ctx)
	if err != nil {
		if isNotFound(err) {
			log.Debug("poll: no remote config yet")
			return
		}
		log.Warn("poll: remote meta probe failed", zap.Error(err))
		return
	}

	if *haveWatermark && !meta.LastModified.UTC().After(watermark.UTC()) {
		return
	}

	result, err := e.PullFromRemote(ctx)
	if err != nil {
		log.Warn("poll: triggered pull failed", zap.Error(err))
		return
	}

	*watermark = meta.LastModified
	*haveWatermark = true
	log.Info("poll triggered pull", zap.String("result", result.String()))
}
