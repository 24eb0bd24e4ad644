// Package watch re-runs an environment whenever matching project files
// change. It uses fsnotify for OS-level file events and a debounce timer
// so that a burst of writes (editor save, `go fmt` over a tree) triggers
// one run instead of dozens.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mmr-tortoise/cadence/internal/config"
	"github.com/mmr-tortoise/cadence/internal/model"
)

// Watcher watches configured paths and invokes a callback after changes
// settle.
type Watcher struct {
	// Root is the project directory relative paths resolve against.
	Root string

	// Paths lists directories to watch, recursively.
	Paths []string

	// Extensions filters events to files with these suffixes.
	Extensions []string

	// Debounce is the quiet period after the last event before the
	// callback fires.
	Debounce time.Duration

	// Logf, when non-nil, receives verbose diagnostics.
	Logf func(format string, args ...interface{})
}

// New builds a Watcher from the project configuration. Defaults are
// already applied by the config loader.
func New(root string, cfg config.Watch) *Watcher {
	return &Watcher{
		Root:       root,
		Paths:      cfg.Paths,
		Extensions: cfg.Extensions,
		Debounce:   time.Duration(cfg.DebounceMS) * time.Millisecond,
	}
}

// logf forwards to the configured verbose logger, if any.
func (w *Watcher) logf(format string, args ...interface{}) {
	if w.Logf != nil {
		w.Logf(format, args...)
	}
}

// Run watches until ctx is canceled, invoking onChange after each settled
// burst of matching file events. Directories created while watching are
// added to the watch set, so newly created packages are picked up.
//
// Run blocks; callers run it on the main goroutine and cancel ctx to stop.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to create file watcher", err)
	}
	defer fsw.Close()

	for _, p := range w.Paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(w.Root, p)
		}
		if err := w.addRecursive(fsw, p); err != nil {
			return err
		}
	}

	// The timer starts stopped; each matching event rewinds it, and only
	// when events go quiet for the debounce period does the callback fire.
	debounce := time.NewTimer(w.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			// New directories join the watch set immediately so files
			// created inside them produce events too.
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := w.addRecursive(fsw, event.Name); addErr != nil {
						w.logf("failed to watch new directory %s: %v", event.Name, addErr)
					}
					continue
				}
			}

			if !MatchesExtension(event.Name, w.Extensions) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logf("change detected: %s (%s)", event.Name, event.Op)
			debounce.Reset(w.Debounce)

		case watchErr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logf("watch error: %v", watchErr)

		case <-debounce.C:
			onChange(ctx)
		}
	}
}

// addRecursive registers root and every non-hidden subdirectory with the
// fsnotify watcher. fsnotify itself is not recursive.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		if SkipDir(d.Name()) && path != root {
			return filepath.SkipDir
		}
		w.logf("watching %s", path)
		return fsw.Add(path)
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitGeneralError,
			"failed to watch directory "+root,
			err,
		)
	}
	return nil
}

// MatchesExtension reports whether the file name ends with one of the
// configured suffixes. An empty suffix list matches everything.
func MatchesExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// SkipDir reports whether a directory should be excluded from watching.
// Hidden directories (.git most importantly) generate constant event noise
// that is never relevant to a rebuild.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
