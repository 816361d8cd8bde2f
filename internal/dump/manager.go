package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/handiism/ncmdump/internal/audio"
	"github.com/handiism/ncmdump/internal/config"
	"github.com/handiism/ncmdump/internal/format"
	ioutils "github.com/handiism/ncmdump/internal/io"
	"github.com/handiism/ncmdump/internal/model"
	"golang.org/x/sync/errgroup"
)

// Manager coordinates dump runs.
type Manager struct {
	settings     *config.Settings
	tagger       *audio.Tagger
	playlist     *audio.PlaylistCreator
	imageService *ioutils.ImageService

	paths []string

	phase      atomic.Int32
	totalBytes atomic.Int64
	doneBytes  atomic.Int64
	totalFiles atomic.Int32
	doneFiles  atomic.Int32

	mu       sync.Mutex
	failures []Failure
	written  []audio.Entry

	onProgress func(ProgressEvent)
}

// NewManager creates a new dump Manager.
//
// onProgress is called from the producer and from every worker, so it must
// be safe for concurrent use.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:     settings,
		tagger:       audio.NewTagger(settings.ToTagConfig()),
		playlist:     audio.NewPlaylistCreator(settings.ToPlaylistFormat(), settings.M3UExtended),
		imageService: ioutils.NewImageService(),
		onProgress:   onProgress,
	}
}

// Initialize validates the settings and expands targets into the files of
// the next run. Targets that match nothing are reported as warnings; an
// expansion that yields no file at all is model.ErrNoTarget.
func (m *Manager) Initialize(targets []string) error {
	if err := m.settings.Validate(targets); err != nil {
		return err
	}

	paths, err := ioutils.ExpandTargets(targets, m.settings.Recursive)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Some targets were not found: %v", err), Level: LevelWarning, Err: err})
	}
	if len(paths) == 0 {
		return model.ErrNoTarget
	}

	m.paths = paths
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found %d candidate files", len(paths)), Level: LevelInfo})
	return nil
}

// Start dumps the files found by Initialize.
func (m *Manager) Start(ctx context.Context) (*Report, error) {
	return m.Run(ctx, m.paths)
}

// Run dumps paths, which must already be expanded and de-duplicated.
//
// Item failures are collected in the report and never stop the run. The
// returned error is non-nil only for configuration errors, detected before
// any file is opened, and for queue failures, which include cancellation
// of ctx. The report is returned in both cases once the pool has drained.
func (m *Manager) Run(ctx context.Context, paths []string) (*Report, error) {
	if err := m.settings.Validate(paths); err != nil {
		return nil, err
	}
	m.reset()

	// Sized to hold every path, so the producer never waits on workers.
	queue := make(chan *model.WorkItem, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	m.setPhase(PhaseEnumerating)

	g.Go(func() error {
		defer close(queue)
		return m.produce(ctx, paths, queue)
	})
	for i := 0; i < m.settings.Workers; i++ {
		g.Go(func() error {
			return m.consume(ctx, queue)
		})
	}

	err := g.Wait()
	m.setPhase(PhaseDone)

	report := m.report()
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Run aborted: %v", err), Level: LevelError, Err: err})
		return report, err
	}

	m.writePlaylist()

	summary := fmt.Sprintf("Done: %d written, %d failed", len(report.Written), len(report.Failures))
	if len(report.Failures) > 0 {
		m.progress(ProgressEvent{Message: summary, Level: LevelWarning})
	} else {
		m.progress(ProgressEvent{Message: summary, Level: LevelSuccess})
	}
	return report, nil
}

// GetProgress returns current byte and file progress.
func (m *Manager) GetProgress() (done, total int64, filesDone, filesTotal int32) {
	return m.doneBytes.Load(), m.totalBytes.Load(), m.doneFiles.Load(), m.totalFiles.Load()
}

// Phase returns the current phase of the run.
func (m *Manager) Phase() Phase {
	return Phase(m.phase.Load())
}

// Paths returns the files found by Initialize.
func (m *Manager) Paths() []string {
	return m.paths
}

func (m *Manager) reset() {
	m.totalBytes.Store(0)
	m.doneBytes.Store(0)
	m.totalFiles.Store(0)
	m.doneFiles.Store(0)

	m.mu.Lock()
	m.failures = nil
	m.written = nil
	m.mu.Unlock()
}

func (m *Manager) setPhase(p Phase) {
	m.phase.Store(int32(p))
}

// produce sniffs every path and publishes recognized files to queue.
func (m *Manager) produce(ctx context.Context, paths []string, queue chan<- *model.WorkItem) error {
	for i, path := range paths {
		item, err := m.enumerate(path)
		if err != nil {
			if item == nil {
				item = &model.WorkItem{Path: path, Name: filepath.Base(path)}
			}
			if err := m.fail(item, err); err != nil {
				return err
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: producer stopped after %d of %d files: %v", model.ErrQueue, i, len(paths), err)
		}
		m.totalBytes.Add(item.Size)
		m.totalFiles.Add(1)

		select {
		case queue <- item:
		default:
			return fmt.Errorf("%w: queue full at %s", model.ErrQueue, item.Name)
		}
		if m.Phase() == PhaseEnumerating {
			m.setPhase(PhaseStreaming)
		}
	}

	m.setPhase(PhaseDraining)
	return nil
}

// enumerate builds the WorkItem for path. A file that matches no container
// magic is returned together with a format error.
func (m *Manager) enumerate(path string) (*model.WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrPath, path)
	}

	head := make([]byte, format.HeaderSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	kind := format.Sniff(head[:n])
	item, err := model.NewWorkItem(path, info.Size(), kind)
	if err != nil {
		return nil, err
	}
	if kind == format.KindUnknown {
		return item, model.FormatError("unrecognized container")
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Queued %s (%s, %d bytes)", item.Name, kind, item.Size), Level: LevelVerbose, Item: item})
	return item, nil
}

// consume dumps items until the queue is closed.
func (m *Manager) consume(ctx context.Context, queue <-chan *model.WorkItem) error {
	for item := range queue {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: worker stopped before %s: %v", model.ErrQueue, item.Name, err)
		}

		if err := m.dumpItem(ctx, item); err != nil {
			if err := m.fail(item, err); err != nil {
				return err
			}
			continue
		}
		m.doneFiles.Add(1)
	}
	return nil
}

// fail records an item failure and applies the policy table. It returns
// err when the failure must end the run.
func (m *Manager) fail(item *model.WorkItem, err error) error {
	kind := model.KindOf(err)

	m.mu.Lock()
	m.failures = append(m.failures, Failure{Item: item, Kind: kind, Err: err})
	m.mu.Unlock()

	level := LevelError
	if kind == model.KindExists {
		level = LevelWarning
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping %s: %v", item.Name, err), Level: level, Item: item, Err: err})

	if PolicyFor(kind) == ActionAbort {
		return err
	}
	return nil
}

func (m *Manager) report() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &Report{
		Written:  make([]string, 0, len(m.written)),
		Failures: append([]Failure(nil), m.failures...),
	}
	for _, e := range m.written {
		report.Written = append(report.Written, e.Path)
	}
	sort.Strings(report.Written)
	return report
}

func (m *Manager) writePlaylist() {
	if m.settings.PlaylistPath == "" {
		return
	}

	m.mu.Lock()
	entries := append([]audio.Entry(nil), m.written...)
	m.mu.Unlock()
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	path := m.settings.PlaylistPath
	content := m.playlist.CreatePlaylist(entries, filepath.Dir(path))
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning, Err: err})
		return
	}
	if err := ioutils.WriteFile(path, []byte(content), true); err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning, Err: err})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s (%d entries)", path, len(entries)), Level: LevelSuccess})
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
