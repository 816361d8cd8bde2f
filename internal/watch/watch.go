// Package watch dispatches encrypted files as they appear in watched
// directories.
package watch

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/handiism/ncmdump/internal/format"
	ioutils "github.com/handiism/ncmdump/internal/io"
)

// Watcher batches new and modified container files and hands each batch to
// a dispatch function once the directories have been quiet for the
// debounce delay. A file is dispatched only after its size is unchanged
// across two consecutive ticks. Batches are dispatched one at a time.
type Watcher struct {
	recursive bool
	watcher   *fsnotify.Watcher
	logger    *log.Logger
	dispatch  func(paths []string)

	pendingMu sync.Mutex
	pending   map[string]int64 // last observed size, unseen before the first tick
	timer     *time.Timer
	delay     time.Duration

	runMu sync.Mutex

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New starts watching dirs. With recursive set, subdirectories up to
// ioutils.MaxDepth levels deep are watched too, including ones created later.
func New(dirs []string, recursive bool, debounce time.Duration, dispatch func(paths []string), logger *log.Logger) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, errors.New("watch: no directories")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		recursive: recursive,
		watcher:   watcher,
		logger:    logger,
		dispatch:  dispatch,
		pending:   make(map[string]int64),
		delay:     debounce,
		done:      make(chan struct{}),
	}

	for _, dir := range dirs {
		w.addWatch(dir)
	}
	if len(watcher.WatchList()) == 0 {
		watcher.Close()
		return nil, errors.New("watch: none of the directories could be watched")
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Close stops the watcher. It waits for a batch that is being dispatched.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)

		w.pendingMu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.pendingMu.Unlock()

		w.closeErr = w.watcher.Close()
		w.wg.Wait()

		w.runMu.Lock()
		w.runMu.Unlock()
	})
	return w.closeErr
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if ioutils.IsTempName(event.Name) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.recursive {
				w.addWatch(event.Name)
			}
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[event.Name] = unseen
	w.pendingMu.Unlock()
	w.schedule()
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	select {
	case <-w.done:
		return
	default:
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.delay, func() {
		w.pendingMu.Lock()
		if w.timer == timer {
			w.timer = nil
		}
		w.pendingMu.Unlock()

		w.flush()
	})
	w.timer = timer
}

// unseen marks a pending file whose size has not been sampled yet.
const unseen = -1

// flush dispatches the pending files whose size did not change since the
// previous tick and that are recognized containers. Files still growing
// stay pending for another tick.
func (w *Watcher) flush() {
	var names []string
	growing := false

	w.pendingMu.Lock()
	for name, last := range w.pending {
		info, err := os.Stat(name)
		if err != nil {
			delete(w.pending, name)
			continue
		}
		if size := info.Size(); size != last {
			w.pending[name] = size
			growing = true
			continue
		}
		delete(w.pending, name)
		names = append(names, name)
	}
	w.pendingMu.Unlock()

	if growing {
		w.schedule()
	}

	sort.Strings(names)
	paths := names[:0]
	for _, name := range names {
		if isContainer(name) {
			paths = append(paths, name)
		}
	}
	if len(paths) == 0 {
		return
	}

	w.runMu.Lock()
	defer w.runMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	w.logger.Printf("dispatching %d new files", len(paths))
	w.dispatch(paths)
}

func (w *Watcher) addWatch(root string) {
	maxDepth := 0
	if w.recursive {
		maxDepth = ioutils.MaxDepth
	}

	filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			w.logger.Printf("walk error for %s: %v", p, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}

		if err := w.watcher.Add(p); err != nil {
			w.logger.Printf("watcher add failure for %s: %v", p, err)
		}
		if rel, err := filepath.Rel(root, p); err == nil && depth(rel) >= maxDepth {
			return filepath.SkipDir
		}
		return nil
	})
}

func depth(rel string) int {
	if rel == "." {
		return 0
	}
	n := 1
	for _, r := range filepath.ToSlash(rel) {
		if r == '/' {
			n++
		}
	}
	return n
}

// isContainer reports whether path is a regular file with a known magic.
func isContainer(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	head := make([]byte, format.HeaderSize)
	n, _ := io.ReadFull(f, head)
	return format.Sniff(head[:n]) != format.KindUnknown
}
