package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/handiism/ncmdump/internal/config"
	"github.com/handiism/ncmdump/internal/dump"
	"github.com/handiism/ncmdump/internal/model"
	"github.com/handiism/ncmdump/internal/watch"
)

func main() {
	// Command line flags
	var (
		outputFlag     = flag.String("output", "", "Output directory (default: next to each input)")
		configFlag     = flag.String("config", "", "Path to config file")
		overwriteFlag  = flag.Bool("overwrite", false, "Overwrite existing output files")
		recursiveFlag  = flag.Bool("recursive", false, "Walk directories recursively")
		verboseFlag    = flag.Bool("verbose", false, "Show verbose output")
		workerFlag     = flag.Int("worker", 0, "Number of workers, 1 to 8 (overrides config)")
		playlistFlag   = flag.String("playlist", "", "Write a playlist of the recovered files (.m3u or .pls)")
		nameFormatFlag = flag.String("name-format", "", "Output name template using {stem}, {title}, {artist}, {album}")
		watchFlag      = flag.Bool("watch", false, "Keep running and convert new files in the target directories")
	)

	flag.Usage = func() {
		fmt.Println("ncmdump - Recover audio from encrypted music containers")
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  ncmdump [options] <file|dir|pattern>...")
		fmt.Println()
		fmt.Println("For interactive mode, use: ncmdump-tui")
		fmt.Println()
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load config
	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Apply flags
	if *outputFlag != "" {
		settings.OutputDir = *outputFlag
	}
	if *overwriteFlag {
		settings.Overwrite = true
	}
	if *recursiveFlag {
		settings.Recursive = true
	}
	if *verboseFlag {
		settings.Verbose = true
	}
	if workerSet(flag.CommandLine) {
		settings.Workers = *workerFlag
	}
	if *playlistFlag != "" {
		settings.PlaylistPath = *playlistFlag
	}
	if *nameFormatFlag != "" {
		settings.FileNameFormat = *nameFormatFlag
	}

	targets := flag.Args()
	if err := settings.Validate(targets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, model.ErrNoTarget) {
			fmt.Fprintln(os.Stderr)
			flag.Usage()
		}
		os.Exit(2)
	}

	// Handle interrupts
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	manager := dump.NewManager(settings, printer(settings.Verbose))

	if err := manager.Initialize(targets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if _, err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nInterrupted.")
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error during run: %v\n", err)
		os.Exit(1)
	}

	done, _, filesDone, filesTotal := manager.GetProgress()
	fmt.Printf("\nConverted %d/%d files (%.2f MB)\n", filesDone, filesTotal, float64(done)/1024/1024)

	if *watchFlag {
		if err := watchTargets(ctx, settings, manager); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// printer renders progress events as prefixed lines.
func printer(verbose bool) func(dump.ProgressEvent) {
	logger := log.New(os.Stdout, "", 0)
	return func(event dump.ProgressEvent) {
		if event.Level == dump.LevelVerbose && !verbose {
			return
		}

		var prefix string
		switch event.Level {
		case dump.LevelError:
			prefix = "✗ "
		case dump.LevelWarning:
			prefix = "! "
		case dump.LevelSuccess:
			prefix = "✓ "
		case dump.LevelInfo:
			prefix = "› "
		default:
			prefix = "  "
		}
		logger.Println(prefix + event.Message)
	}
}

// watchTargets watches the directories among the initial inputs until ctx
// is cancelled.
func watchTargets(ctx context.Context, settings *config.Settings, manager *dump.Manager) error {
	dirs := watchDirs(manager.Paths(), flag.Args())

	w, err := watch.New(dirs, settings.Recursive, settings.WatchDebounce(), func(paths []string) {
		if _, err := manager.Run(ctx, paths); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Error during run: %v\n", err)
		}
	}, nil)
	if err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("Watching %d directories, press Ctrl+C to stop\n", len(dirs))
	<-ctx.Done()
	return nil
}

// watchDirs returns the target directories, or the parents of the files
// found when no target is a directory.
func watchDirs(paths, targets []string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(dir string) {
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	for _, target := range targets {
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(target); err == nil {
				add(abs)
			}
		}
	}
	if len(dirs) == 0 {
		for _, path := range paths {
			add(filepath.Dir(path))
		}
	}
	return dirs
}

// workerSet reports whether -worker was passed explicitly. An explicit 0
// must reach Validate.
func workerSet(fs *flag.FlagSet) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "worker" {
			set = true
		}
	})
	return set
}
