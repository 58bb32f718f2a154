package importer

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// ReadOptions configures ReadFiles.
type ReadOptions struct {
	Workers int    // Parallel readers (default 1)
	Format  string // Force a format by name; empty detects it per file
}

// ReadFile reads and parses one source. Any failure yields Absent with the cause.
func ReadFile(ctx context.Context, path, formatName string) Outcome {
	if err := ctx.Err(); err != nil {
		return Absent{Source: path, Err: err}
	}

	var format Format
	var err error
	if formatName != "" {
		format, err = FormatByName(formatName)
	} else {
		format, err = DetectFormat(path)
	}
	if err != nil {
		return Absent{Source: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Absent{Source: path, Err: fmt.Errorf("reading %s: %w", path, err)}
	}

	result, err := format.Parse(data, path)
	if err != nil {
		return Absent{Source: path, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return Success{Result: result, Format: format}
}

// ReadFiles reads sources on a fixed pool of goroutines and returns one
// outcome per path, in the order of paths. Sources not started before ctx
// is done come back Absent with ctx.Err().
func ReadFiles(ctx context.Context, paths []string, opts ReadOptions) []Outcome {
	outcomes := make([]Outcome, len(paths))
	if len(paths) == 0 {
		return outcomes
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = ReadFile(ctx, paths[i], opts.Format)
			}
		}()
	}

feed:
	for i := range paths {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i, o := range outcomes {
		if o == nil {
			outcomes[i] = Absent{Source: paths[i], Err: ctx.Err()}
		}
	}
	return outcomes
}

// SourceErrors returns the errors carried by Absent outcomes.
func SourceErrors(outcomes []Outcome) []error {
	var errs []error
	for _, o := range outcomes {
		if a, ok := Normalize(o).(Absent); ok && a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}
