package generator

import (
	"context"
	"fmt"
	"io"
	"sync"

	"autodocs/internal/extractor"
	"autodocs/internal/tree"

	"github.com/sourcegraph/conc/pool"
)

type BuildOptions struct {
	// Concurrency bounds how many files are synthesized at once.
	Concurrency int
	// Progress receives one line per file as it is dispatched.
	Progress io.Writer
}

// BuildTree synthesizes every leaf of root and returns a documentation tree
// of the same shape. The first failing file cancels the rest.
func BuildTree(ctx context.Context, root *tree.Node[extractor.Record], synth FileSynthesizer, opts BuildOptions) (*tree.Node[DocRecord], error) {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	table := make(map[string]DocRecord)

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(opts.Concurrency)

	for _, leaf := range tree.Leaves(root) {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(progress, "📄 Processing file: %s\n", leaf.Path)

		file := FileRef{Path: leaf.Path, Name: leaf.Name}
		rec := leaf.Value
		p.Go(func(ctx context.Context) error {
			doc, err := synth.Synthesize(ctx, file, rec)
			if err != nil {
				cancel()
				return err
			}
			mu.Lock()
			table[file.Path] = doc
			mu.Unlock()
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return tree.Aggregate(root, table)
}
