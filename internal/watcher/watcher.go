// Package watcher collapses bursts of filesystem activity on the Engine
// directory into a single debounced change notification. It knows nothing
// about the sync engine or feedback suppression — it is a pure producer.
package watcher

import (
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hazyhaar/ggsync/internal/logging"
	"github.com/hazyhaar/ggsync/internal/model"
)

// tickInterval is how often the debounce timer is evaluated. The spec
// requires a cadence no looser than 500ms; a tighter tick just costs a
// few extra wakeups and makes the debounce boundary more precise.
const tickInterval = 100 * time.Millisecond

// ConfigChanged is delivered to the OnChange callback once per debounced
// burst of qualifying filesystem events.
type ConfigChanged struct {
	Directory string
	Timestamp time.Time
}

// Watcher subscribes to non-recursive filesystem events on a single
// directory and invokes a callback at most once per activity burst.
type Watcher struct {
	dir      string
	debounce time.Duration
	log      *zap.Logger

	fsw *fsnotify.Watcher

	// lastEventNano holds the UnixNano of the most recent qualifying event,
	// or 0 when no event is pending. Accessed without a mutex since it's a
	// single int64 written by the fsnotify goroutine and read by the same
	// goroutine's own ticker branch.
	lastEventNano atomic.Int64
}

// New creates a Watcher over dir with the given debounce window.
func New(dir string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{dir: dir, debounce: debounce, log: logging.Or(log), fsw: fsw}, nil
}

// Watch subscribes to dir and blocks the calling goroutine, invoking
// onChange at most once per debounced burst, until stop is closed.
func (w *Watcher) Watch(stop <-chan struct{}, onChange func(ConfigChanged)) error {
	if err := w.fsw.Add(w.dir); err != nil {
		return err
	}
	defer w.fsw.Close()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if isQualifyingEvent(event) {
				w.log.Debug("qualifying fs event", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				w.lastEventNano.Store(time.Now().UnixNano())
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case now := <-ticker.C:
			last := w.lastEventNano.Load()
			if last == 0 {
				continue
			}
			if now.Sub(time.Unix(0, last)) >= w.debounce {
				w.lastEventNano.Store(0)
				onChange(ConfigChanged{Directory: w.dir, Timestamp: now})
			}
		}
	}
}

// isQualifyingEvent reports whether e should reset the debounce timer: a
// Modify or Create operation on a path whose basename begins with
// "database.db". Deletes and unrelated files are discarded.
func isQualifyingEvent(e fsnotify.Event) bool {
	if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	return strings.HasPrefix(filepath.Base(e.Name), model.DBFileName)
}
