package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"autodocs/internal/config"
	"autodocs/internal/crawler"
	"autodocs/internal/extractor"
	"autodocs/internal/generator"
	"autodocs/internal/knowledge"
	"autodocs/internal/storage"
	"autodocs/internal/tree"

	"golang.org/x/sync/errgroup"
)

// Stage names, also used as error prefixes.
const (
	StageScan       = "scan"
	StageExtract    = "extract"
	StageAggregate  = "aggregate"
	StageSynthesize = "synthesize"
	StageRender     = "render"
)

// ErrMissingAPIKey is returned when no generation credentials are configured.
var ErrMissingAPIKey = errors.New("AI API key not configured (set AUTODOCS_API_KEY, OPENAI_API_KEY or GEMINI_API_KEY)")

type Options struct {
	// Input is the file or directory to document.
	Input string
	// OutputDir overrides Config.Output.Directory when set.
	OutputDir string
	Config    config.Config
	// Generator replaces the provider built from Config.AI when set.
	Generator knowledge.Generator
	// Out receives progress lines; nil discards them.
	Out io.Writer
	// ReportPath, when set, receives the JSON run report even if the run fails.
	ReportPath string
}

// Pipeline runs walk, extract, aggregate, synthesize and render in order.
// Every stage finishes before the next starts, so a failure before the
// render stage leaves the output directory untouched.
type Pipeline struct {
	opts   Options
	out    io.Writer
	report *Report
}

func New(opts Options) *Pipeline {
	if opts.Input == "" {
		opts.Input = "."
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.Config.Output.Directory
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{opts: opts, out: out}
}

// Report returns the report of the last Run or Scan.
func (p *Pipeline) Report() *Report {
	return p.report
}

// Run generates documentation for the configured input.
func (p *Pipeline) Run(ctx context.Context) (retErr error) {
	p.report = NewReport("generate", p.opts.Input, p.opts.OutputDir)
	p.report.Provider = p.opts.Config.AI.Provider
	p.report.Model = p.opts.Config.AI.Model
	defer p.saveReport(&retErr)

	gen, closeGen, err := p.resolveGenerator(ctx)
	if err != nil {
		return err
	}
	defer closeGen()

	structure, err := p.scan(ctx)
	if err != nil {
		return err
	}

	docs, err := p.synthesizeStage(ctx, structure, gen)
	if err != nil {
		return fmt.Errorf("%s: %w", StageSynthesize, err)
	}

	if err := p.renderStage(ctx, docs); err != nil {
		return fmt.Errorf("%s: %w", StageRender, err)
	}

	fmt.Fprintf(p.out, "✅ Documentation generated in '%s'.\n", p.opts.OutputDir)
	return nil
}

// Scan walks and extracts the input without contacting a generation
// service, returning the structure tree.
func (p *Pipeline) Scan(ctx context.Context) (_ *tree.Node[extractor.Record], retErr error) {
	p.report = NewReport("scan", p.opts.Input, "")
	defer p.saveReport(&retErr)
	return p.scan(ctx)
}

func (p *Pipeline) scan(ctx context.Context) (*tree.Node[extractor.Record], error) {
	sources, err := p.walkStage()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageScan, err)
	}

	records, err := p.extractStage(ctx, sources)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageExtract, err)
	}

	stage := p.report.BeginStage(StageAggregate)
	structure, err := tree.Aggregate(sources, records)
	p.report.EndStage(stage, map[string]float64{"nodes": float64(tree.Count(sources))}, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", StageAggregate, err)
	}
	return structure, nil
}

func (p *Pipeline) walkStage() (*tree.Node[crawler.File], error) {
	fmt.Fprintf(p.out, "🔍 Scanning %s...\n", p.opts.Input)
	stage := p.report.BeginStage(StageScan)

	sources, err := crawler.Walk(p.opts.Input, crawler.Options{
		FilePatterns: p.opts.Config.Parser.FilePatterns,
		Exclude:      p.opts.Config.Parser.Exclude,
	})
	if err != nil {
		p.report.EndStage(stage, nil, err)
		return nil, err
	}

	files := len(tree.Leaves(sources))
	p.report.EndStage(stage, map[string]float64{
		"files":       float64(files),
		"directories": float64(tree.Count(sources) - files),
	}, nil)
	if files == 0 {
		p.report.AddSignal("no_source_files", StageScan, "warning", "No files matched the configured patterns.", 0)
	}
	fmt.Fprintf(p.out, "📝 Found %d source files.\n", files)
	return sources, nil
}

// extractStage parses every leaf in parallel and returns the records keyed
// by leaf path.
func (p *Pipeline) extractStage(ctx context.Context, sources *tree.Node[crawler.File]) (map[string]extractor.Record, error) {
	fmt.Fprintln(p.out, "🧩 Extracting structure...")
	stage := p.report.BeginStage(StageExtract)

	var mu sync.Mutex
	records := make(map[string]extractor.Record)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, leaf := range tree.Leaves(sources) {
		g.Go(func() error {
			rec, err := extractor.Extract(gctx, leaf.Path, leaf.Value.Text)
			if err != nil {
				return err
			}
			mu.Lock()
			records[leaf.Path] = rec
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	counters := map[string]float64{}
	for _, rec := range records {
		counters["functions"] += float64(len(rec.Functions))
		counters["classes"] += float64(len(rec.Classes))
		counters["imports"] += float64(len(rec.Imports))
		counters["comments"] += float64(len(rec.Comments))
		for _, c := range rec.Classes {
			counters["methods"] += float64(len(c.Methods))
		}
	}
	p.report.EndStage(stage, counters, err)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) synthesizeStage(ctx context.Context, structure *tree.Node[extractor.Record], gen knowledge.Generator) (*tree.Node[generator.DocRecord], error) {
	fmt.Fprintln(p.out, "✍️  Generating documentation...")
	stage := p.report.BeginStage(StageSynthesize)

	ai := p.opts.Config.AI
	synth := generator.NewSynthesizer(gen, knowledge.TokenLimits{
		Overview: ai.MaxTokens.Overview,
		Function: ai.MaxTokens.Function,
		Class:    ai.MaxTokens.Class,
		Method:   ai.MaxTokens.Method,
	}, ai.Concurrency)

	docs, err := generator.BuildTree(ctx, structure, synth, generator.BuildOptions{
		Concurrency: ai.Concurrency,
		Progress:    p.out,
	})
	if err != nil {
		p.report.EndStage(stage, nil, err)
		return nil, err
	}

	items := 0
	for _, leaf := range tree.Leaves(docs) {
		items += leaf.Value.ItemCount()
	}
	p.report.EndStage(stage, map[string]float64{
		"files": float64(len(tree.Leaves(docs))),
		"items": float64(items),
	}, nil)
	return docs, nil
}

func (p *Pipeline) renderStage(ctx context.Context, docs *tree.Node[generator.DocRecord]) error {
	fmt.Fprintf(p.out, "💾 Writing documentation to %s...\n", p.opts.OutputDir)
	stage := p.report.BeginStage(StageRender)

	r := &generator.Renderer{Progress: p.out}
	err := r.Render(ctx, docs, p.opts.OutputDir)

	p.report.EndStage(stage, map[string]float64{
		"documents": float64(len(tree.Leaves(docs)) + 1),
	}, err)
	return err
}

// resolveGenerator returns the configured Generator wrapped with retry, rate
// limiting and, when enabled, the persistent cache.
func (p *Pipeline) resolveGenerator(ctx context.Context) (knowledge.Generator, func(), error) {
	if p.opts.Generator != nil {
		return p.opts.Generator, func() {}, nil
	}
	return BuildGenerator(ctx, p.opts.Config)
}

// BuildGenerator assembles the provider chain for cfg. The returned func
// releases the cache, if any.
func BuildGenerator(ctx context.Context, cfg config.Config) (knowledge.Generator, func(), error) {
	ai := cfg.AI
	if ai.APIKey == "" {
		return nil, nil, ErrMissingAPIKey
	}

	base, err := knowledge.NewGenerator(ctx, knowledge.GeneratorOptions{
		Provider:    ai.Provider,
		APIKey:      ai.APIKey,
		Model:       ai.Model,
		BaseURL:     ai.BaseURL,
		Temperature: ai.Temperature,
	})
	if err != nil {
		return nil, nil, err
	}

	gen := knowledge.WithLimits(base, ai.RequestsPerMinute, ai.Concurrency)
	gen = knowledge.WithRetry(gen, ai.MaxRetries)

	if !cfg.Cache.Enabled {
		return gen, func() {}, nil
	}
	cache, err := storage.NewSQLiteCache(cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening generation cache: %w", err)
	}
	return knowledge.WithCache(gen, cache, CacheModel(cfg)), func() { cache.Close() }, nil
}

func (p *Pipeline) saveReport(retErr *error) {
	if *retErr != nil {
		p.report.AddSignal("run_failed", p.report.Mode, "critical", (*retErr).Error(), 1)
	}
	if p.opts.ReportPath == "" {
		return
	}
	if err := p.report.Save(p.opts.ReportPath); err != nil {
		fmt.Fprintf(p.out, "⚠️  Failed to write run report: %v\n", err)
	}
}
