// Package dump runs the decode engine over many files at once.
//
// # Manager
//
// The Manager coordinates a run:
//
//  1. Expand targets into candidate files (Initialize)
//  2. Sniff each file and publish it to the work queue (producer)
//  3. Decrypt, tag and write each item (worker pool)
//  4. Generate a playlist of the recovered files (optional)
//
// # Basic Usage
//
//	manager := dump.NewManager(settings, func(event dump.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	if err := manager.Initialize(targets); err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.Start(ctx)
//	if err != nil {
//	    log.Fatal(err) // configuration or queue failure
//	}
//	fmt.Println(len(report.Failures), "files skipped")
//
// # Concurrency
//
// One producer and settings.Workers consumers (1 to 8) share a single queue.
// Each item is handled by exactly one worker; decoder state never leaves
// that worker. Byte and file counters are the only shared state and are
// updated atomically.
//
// # Failures
//
// Errors are classified with model.KindOf and routed through a fixed policy
// table: configuration and queue failures end the run, everything else is
// reported for the item and the worker moves on.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	    Item    *model.WorkItem
//	    Err     error
//	}
package dump
