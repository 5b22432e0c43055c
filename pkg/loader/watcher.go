package loader

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/openfroyo/resrules/pkg/rules"
)

// DefaultDebounce is how long the watcher waits for the directory to settle
// before scanning again.
const DefaultDebounce = 500 * time.Millisecond

// Catalog publishes the active registry. A re-scan builds a fresh registry
// and swaps it in, so readers never observe a half-built one.
type Catalog struct {
	current atomic.Pointer[rules.Registry]
}

// NewCatalog creates a catalog holding an empty registry.
func NewCatalog() *Catalog {
	c := &Catalog{}
	c.current.Store(rules.NewRegistry())
	return c
}

// Registry returns the active registry. Callers must treat it as read-only.
func (c *Catalog) Registry() *rules.Registry {
	return c.current.Load()
}

// Swap installs reg and returns the registry it replaced.
func (c *Catalog) Swap(reg *rules.Registry) *rules.Registry {
	return c.current.Swap(reg)
}

// Reload scans dir into a fresh registry and installs it. The active registry
// is left in place when the scan fails.
func (c *Catalog) Reload(ctx context.Context, scanner *Scanner, dir string) (*ScanReport, error) {
	reg := rules.NewRegistry()
	report, err := scanner.Scan(ctx, dir, reg)
	if err != nil {
		return nil, err
	}
	c.Swap(reg)
	return report, nil
}

// Watcher re-scans an agent directory whenever its contents change.
type Watcher struct {
	scanner  *Scanner
	catalog  *Catalog
	dir      string
	debounce time.Duration
	logger   zerolog.Logger

	// OnReload, if set, is called after every successful scan.
	OnReload func(*ScanReport)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher that keeps catalog in sync with dir.
func NewWatcher(scanner *Scanner, catalog *Catalog, dir string) *Watcher {
	return &Watcher{
		scanner:  scanner,
		catalog:  catalog,
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   scanner.tel.Logger.NewComponentLogger("watcher").Zerolog(),
	}
}

// SetDebounce changes the settle delay.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run performs an initial scan and then re-scans after each burst of changes
// until ctx is cancelled. It fails only if the initial scan fails or the
// directory cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.reload(ctx); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()
	defer w.Stop()

	w.logger.Info().Str("dir", w.dir).Msg("Watching agent directory")

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) == 0 {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Agent directory changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := w.reload(ctx); err != nil {
				w.logger.Error().Err(err).Msg("Failed to rescan agent directory")
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// Stop closes the underlying file watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) reload(ctx context.Context) error {
	report, err := w.catalog.Reload(ctx, w.scanner, w.dir)
	if err != nil {
		return err
	}
	if w.OnReload != nil {
		w.OnReload(report)
	}
	return nil
}
