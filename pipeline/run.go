// Package pipeline formats batches of script files concurrently.
package pipeline

import (
	"context"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/kobaltcore/renpyfmt/rpyformat"
	"github.com/kobaltcore/renpyfmt/rpyparser"
)

// Options configures a formatting run.
type Options struct {
	// Write rewrites changed files in place instead of only reporting.
	Write bool
	// MaxParallel bounds the number of files formatted at once.
	// Values below 1 are treated as 1.
	MaxParallel int
	// Statements registers custom statement keywords with the parser.
	Statements []rpyparser.CustomStatement
}

// FileResult is the outcome of formatting a single file.
type FileResult struct {
	Path    string
	Output  string
	Changed bool
	Skipped bool
	Err     error
}

// Result summarizes a formatting run.
type Result struct {
	RunID   string
	Files   []FileResult
	Changed int
	Failed  int
}

// Run formats the given files with bounded parallelism. Each file is
// isolated: a parse failure is recorded in its FileResult and does not
// stop the other files. A canceled context marks the remaining files as
// skipped.
func Run(ctx context.Context, files []string, opts Options) *Result {
	maxParallel := opts.MaxParallel
	if maxParallel < 1 {
		maxParallel = 1
	}

	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxParallel)

	for i, path := range files {
		wg.Add(1)
		go func(idx int, path string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				results[idx] = FileResult{Path: path, Skipped: true, Err: ctx.Err()}
				return
			}

			results[idx] = formatFile(path, opts)
		}(i, path)
	}

	wg.Wait()

	rv := &Result{
		RunID: "fmt_" + uuid.New().String(),
		Files: results,
	}

	for _, r := range results {
		if r.Err != nil {
			rv.Failed++
		} else if r.Changed {
			rv.Changed++
		}
	}

	return rv
}

func formatFile(path string, opts Options) FileResult {
	src, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}

	nodes, err := rpyparser.ParseWithOptions(path, src, rpyparser.Options{
		Statements: opts.Statements,
	})
	if err != nil {
		return FileResult{Path: path, Err: err}
	}

	output := rpyformat.Render(nodes)
	changed := output != string(src)

	if changed && opts.Write {
		info, err := os.Stat(path)
		if err != nil {
			return FileResult{Path: path, Output: output, Changed: changed, Err: err}
		}
		if err := os.WriteFile(path, []byte(output), info.Mode().Perm()); err != nil {
			return FileResult{Path: path, Output: output, Changed: changed, Err: err}
		}
	}

	return FileResult{Path: path, Output: output, Changed: changed}
}
