package generator

import (
	"context"
	"fmt"

	"autodocs/internal/extractor"
	"autodocs/internal/knowledge"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("autodocs/generator")

// Item kinds reported in SynthesisError.Kind.
const (
	KindOverview = "overview"
	KindFunction = "function"
	KindClass    = "class"
	KindMethod   = "method"
)

// SynthesisError reports the first generation request of a file that failed.
type SynthesisError struct {
	File     string
	Kind     string
	Name     string
	Location extractor.Span
	Err      error
}

func (e *SynthesisError) Error() string {
	if e.Kind == KindOverview {
		return fmt.Sprintf("%s: generating overview: %v", e.File, e.Err)
	}
	return fmt.Sprintf("%s:%d: generating %s %s: %v", e.File, e.Location.Start.Line, e.Kind, e.Name, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// FileSynthesizer documents one structure record.
type FileSynthesizer interface {
	Synthesize(ctx context.Context, file FileRef, rec extractor.Record) (DocRecord, error)
}

// Synthesizer asks a Generator for an overview of each file and a write-up
// of every function, class and method in it.
type Synthesizer struct {
	gen         knowledge.Generator
	prompts     *knowledge.PromptBuilder
	concurrency int
}

// NewSynthesizer creates a synthesizer issuing at most concurrency requests
// at a time per file.
func NewSynthesizer(gen knowledge.Generator, limits knowledge.TokenLimits, concurrency int) *Synthesizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Synthesizer{
		gen:         gen,
		prompts:     &knowledge.PromptBuilder{Limits: limits},
		concurrency: concurrency,
	}
}

type synthesisJob struct {
	kind   string
	name   string
	loc    extractor.Span
	prompt knowledge.Prompt
	out    *string
}

// Synthesize documents rec. Requests run concurrently, but each result is
// written to the slot of the item it documents, so the returned record keeps
// the order of rec. The first failure cancels the remaining requests.
func (s *Synthesizer) Synthesize(ctx context.Context, file FileRef, rec extractor.Record) (DocRecord, error) {
	doc := newDocRecord(file, rec)
	jobs := s.plan(&doc, rec)

	p := pool.New().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(s.concurrency)

	for _, job := range jobs {
		p.Go(func(ctx context.Context) error {
			return s.run(ctx, file, job)
		})
	}
	if err := p.Wait(); err != nil {
		return DocRecord{}, err
	}
	return doc, nil
}

func (s *Synthesizer) plan(doc *DocRecord, rec extractor.Record) []synthesisJob {
	jobs := make([]synthesisJob, 0, doc.ItemCount())
	jobs = append(jobs, synthesisJob{
		kind:   KindOverview,
		name:   doc.File.Name,
		prompt: s.prompts.BuildOverviewPrompt(doc.File.Name, rec),
		out:    &doc.Overview,
	})
	for i, fn := range rec.Functions {
		jobs = append(jobs, synthesisJob{
			kind:   KindFunction,
			name:   fn.Name,
			loc:    fn.Location,
			prompt: s.prompts.BuildFunctionPrompt(fn),
			out:    &doc.Functions[i].Documentation,
		})
	}
	for i, cls := range rec.Classes {
		jobs = append(jobs, synthesisJob{
			kind:   KindClass,
			name:   cls.Name,
			loc:    cls.Location,
			prompt: s.prompts.BuildClassPrompt(cls),
			out:    &doc.Classes[i].Documentation,
		})
		for j, m := range cls.Methods {
			jobs = append(jobs, synthesisJob{
				kind:   KindMethod,
				name:   cls.Name + "." + m.Name,
				loc:    m.Location,
				prompt: s.prompts.BuildMethodPrompt(m),
				out:    &doc.Classes[i].Methods[j].Documentation,
			})
		}
	}
	return jobs
}

func (s *Synthesizer) run(ctx context.Context, file FileRef, job synthesisJob) error {
	ctx, span := tracer.Start(ctx, "generator.Synthesize",
		trace.WithAttributes(
			attribute.String("symbol.id", extractor.SymbolID(file.Path, job.kind, job.name, job.loc)),
			attribute.String("symbol.kind", job.kind),
			attribute.Int("prompt.max_tokens", job.prompt.MaxTokens),
		))
	defer span.End()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &SynthesisError{File: file.Path, Kind: job.kind, Name: job.name, Location: job.loc, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	text, err := s.gen.Generate(ctx, job.prompt)
	if err != nil {
		return fail(err)
	}
	*job.out = text
	return nil
}
