// Package extractor walks a parsed archive and writes its entries to
// the filesystem: it resolves names via an optional filename table,
// applies filter/skip/overwrite policy, and fans the actual I/O out
// over a worker pool when asked to run in parallel.
package extractor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rpcpool/go-pak/archive"
	"github.com/rpcpool/go-pak/filenametable"
	"github.com/rpcpool/go-pak/pakhandle"
)

// EventKind identifies which phase of an extraction run an Event
// describes.
type EventKind int

const (
	EventStart EventKind = iota
	EventFileStart
	EventFileDone
	EventFinish
	EventAborted
)

// Event is emitted to an optional callback as extraction proceeds. For
// a single entry, FileStart always precedes its FileDone; FileDone
// events for different entries may interleave arbitrarily in parallel
// mode.
type Event struct {
	Kind EventKind

	// Total is set on EventStart.
	Total int

	// Path and Hash are set on EventFileStart/EventFileDone.
	Path string
	Hash uint64
	// Err is set on EventFileDone when the entry failed.
	Err error

	// Extracted, Skipped, Failed are set on EventFinish.
	Extracted int
	Skipped   int
	Failed    int
}

// Options controls one extraction run.
type Options struct {
	OutputDir string

	// Names resolves a hash to a known relative path. May be nil, in
	// which case every entry falls back to its unknown-name path.
	Names *filenametable.Table

	// Filters, when non-empty, restrict extraction to entries whose
	// resolved relative path matches at least one of these patterns.
	Filters []*regexp.Regexp

	Overwrite       bool
	SkipUnknown     bool
	ContinueOnError bool
	Parallel        bool
	// Workers overrides the default worker count in parallel mode; <=0
	// uses a sensible default.
	Workers int

	// OnEvent, if set, is called for every emitted event. It must not
	// block for long, since it runs on the extraction worker itself.
	OnEvent func(Event)

	// Cancel, if set, is polled between entries; once it reports true
	// no further entries are started and the run ends with Aborted.
	Cancel func() bool
}

const defaultWorkers = 8

// unknownDir is the directory unresolved entries are placed under,
// named <hash as 16 lowercase hex digits>.<sniffed extension, if any>.
const unknownDir = "_Unknown"

// planItem is one (entry, resolved relative path) pair surviving the
// filter and skip-unknown policy.
type planItem struct {
	entry archive.Entry
	path  string
}

// FailedEntry is one (hash, path, message) tuple in a Report.
type FailedEntry struct {
	Hash    uint64
	Path    string
	Message string
}

// Report summarizes a finished (or aborted) extraction run.
type Report struct {
	Extracted int
	Skipped   int
	Failed    []FailedEntry
	Aborted   bool
}

// Run extracts every entry in h's archive into opts.OutputDir
// according to opts's policies, emitting events as it goes.
func Run(h *pakhandle.Handle, opts Options) (*Report, error) {
	plan := buildPlan(h.Archive().Entries, opts)

	emit := func(ev Event) {
		if opts.OnEvent != nil {
			opts.OnEvent(ev)
		}
	}

	report := &Report{}
	skippedByPlan := len(h.Archive().Entries) - len(plan)
	report.Skipped += skippedByPlan

	emit(Event{Kind: EventStart, Total: len(plan)})

	var aborted atomic.Bool
	var stopDispatch atomic.Bool
	var mu sync.Mutex
	fail := func(item planItem, err error) error {
		mu.Lock()
		report.Failed = append(report.Failed, FailedEntry{Hash: item.entry.Hash(), Path: item.path, Message: err.Error()})
		mu.Unlock()
		return err
	}

	extractOne := func(item planItem) error {
		if opts.Cancel != nil && opts.Cancel() {
			aborted.Store(true)
			return nil
		}
		if !opts.ContinueOnError && stopDispatch.Load() {
			return nil
		}

		emit(Event{Kind: EventFileStart, Path: item.path, Hash: item.entry.Hash()})
		err := extractEntry(h, item, opts.OutputDir, opts.Overwrite)
		emit(Event{Kind: EventFileDone, Path: item.path, Hash: item.entry.Hash(), Err: err})

		if err != nil {
			if opts.ContinueOnError {
				fail(item, err)
				return nil
			}
			stopDispatch.Store(true)
			return fail(item, err)
		}

		mu.Lock()
		report.Extracted++
		mu.Unlock()
		return nil
	}

	var runErr error
	if opts.Parallel {
		runErr = runParallel(plan, opts.Workers, &aborted, extractOne)
	} else {
		runErr = runSequential(plan, &aborted, extractOne)
	}

	if aborted.Load() {
		report.Aborted = true
		emit(Event{Kind: EventAborted})
		return report, nil
	}

	emit(Event{Kind: EventFinish, Extracted: report.Extracted, Skipped: report.Skipped, Failed: len(report.Failed)})

	if !opts.ContinueOnError && runErr != nil {
		return report, runErr
	}
	return report, nil
}

func runSequential(plan []planItem, aborted *atomic.Bool, extractOne func(planItem) error) error {
	for _, item := range plan {
		if aborted.Load() {
			return nil
		}
		if err := extractOne(item); err != nil {
			return err
		}
	}
	return nil
}

func runParallel(plan []planItem, workers int, aborted *atomic.Bool, extractOne func(planItem) error) error {
	if workers <= 0 {
		workers = defaultWorkers
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, item := range plan {
		item := item
		g.Go(func() error {
			if aborted.Load() {
				return nil
			}
			return extractOne(item)
		})
	}
	return g.Wait()
}

// buildPlan resolves every entry's output path and applies
// skip-unknown and filter policy, preserving archive order.
func buildPlan(entries []archive.Entry, opts Options) []planItem {
	plan := make([]planItem, 0, len(entries))
	for _, e := range entries {
		path, known := resolvePath(e, opts.Names)
		if !known && opts.SkipUnknown {
			continue
		}
		if len(opts.Filters) > 0 && !matchesAny(path, opts.Filters) {
			continue
		}
		plan = append(plan, planItem{entry: e, path: path})
	}
	return plan
}

func matchesAny(path string, filters []*regexp.Regexp) bool {
	for _, re := range filters {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func resolvePath(e archive.Entry, names *filenametable.Table) (string, bool) {
	if names != nil {
		if name, ok := names.Lookup(e.Hash()); ok {
			return name, true
		}
	}
	return fmt.Sprintf("%s/%016x", unknownDir, e.Hash()), false
}

func extractEntry(h *pakhandle.Handle, item planItem, outputDir string, overwrite bool) error {
	absPath := filepath.Join(outputDir, filepath.FromSlash(item.path))

	// Names containing ".." segments are accepted literally, but must
	// not climb out of the output root.
	root := filepath.Clean(outputDir)
	if absPath != root && !strings.HasPrefix(absPath, root+string(filepath.Separator)) {
		return fmt.Errorf("path %s escapes the output directory", item.path)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("create parent directories for %s: %w", item.path, err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(absPath, flags, 0o644)
	if err != nil {
		if !overwrite && errors.Is(err, os.ErrExist) {
			return fmt.Errorf("output exists and overwrite is disabled: %s", item.path)
		}
		return fmt.Errorf("open output %s: %w", item.path, err)
	}
	defer f.Close()

	r, err := h.OpenEntry(item.entry)
	if err != nil {
		return fmt.Errorf("open entry %s: %w", item.path, err)
	}
	defer r.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write %s: %w", item.path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("flush %s: %w", item.path, err)
	}

	if filepath.Ext(absPath) == "" {
		if ext, ok := r.DetermineExtension(); ok {
			renamed := absPath + "." + ext
			if err := os.Rename(absPath, renamed); err != nil {
				return fmt.Errorf("rename %s to add guessed extension: %w", item.path, err)
			}
		}
	}

	return nil
}
