package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"autodocs/internal/config"
	"autodocs/internal/crawler"
	"autodocs/internal/extractor"
	"autodocs/internal/generator"
	"autodocs/internal/knowledge"
	"autodocs/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetJS = "function greet(name) {\n  return `Hello, ${name}!`;\n}\n"

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

type countingGenerator struct {
	calls int32
	fail  error
}

func (g *countingGenerator) Generate(ctx context.Context, p knowledge.Prompt) (string, error) {
	atomic.AddInt32(&g.calls, 1)
	if g.fail != nil {
		return "", g.fail
	}
	for _, line := range strings.Split(p.User, "\n") {
		if name, ok := strings.CutPrefix(line, "Name: "); ok {
			return "Documents " + name + ".", nil
		}
	}
	return "An overview.", nil
}

func newTestPipeline(t *testing.T, input, out string, gen knowledge.Generator) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	var progress bytes.Buffer
	return New(Options{
		Input:     input,
		OutputDir: out,
		Config:    config.Default(),
		Generator: gen,
		Out:       &progress,
	}), &progress
}

func TestRun_Greet(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"greet.js": greetJS})
	out := filepath.Join(t.TempDir(), "docs")
	gen := &countingGenerator{}

	p, progress := newTestPipeline(t, src, out, gen)
	require.NoError(t, p.Run(context.Background()))

	// one overview plus one function
	assert.EqualValues(t, 2, gen.calls)

	greet, err := os.ReadFile(filepath.Join(out, "greet.md"))
	require.NoError(t, err)
	assert.Equal(t, "# greet.js\n\n## Overview\n\nAn overview.\n\n## Functions\n\n### greet\n\nDocuments greet.\n", string(greet))

	readme, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# API Documentation")
	assert.Contains(t, string(readme), "  - 📄 [greet](./greet.md)\n")

	assert.Contains(t, progress.String(), "📄 Processing file: greet.js")
	assert.Contains(t, progress.String(), "✅ Documentation generated")
}

func TestRun_SingleFileInput(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"greet.js": greetJS})
	out := filepath.Join(t.TempDir(), "docs")

	p, _ := newTestPipeline(t, filepath.Join(src, "greet.js"), out, &countingGenerator{})
	require.NoError(t, p.Run(context.Background()))

	assert.FileExists(t, filepath.Join(out, "greet.md"))
	readme, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "\n- 📄 [greet](./greet.md)\n")
}

func TestRun_MirrorsDirectories(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"index.js":                "export default 1;\n",
		"lib/user.ts":             "export class User {\n  save(): void {}\n}\n",
		"lib/util/format.js":      "export const fmt = (s) => s.trim();\n",
		"lib/user.test.js":        "test('x', () => {});\n",
		"node_modules/dep/dep.js": "module.exports = 1;\n",
		"notes.md":                "# not code\n",
	})
	out := filepath.Join(t.TempDir(), "docs")

	p, _ := newTestPipeline(t, src, out, &countingGenerator{})
	require.NoError(t, p.Run(context.Background()))

	for _, rel := range []string{"index.md", "lib/user.md", "lib/util/format.md", "README.md"} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(out, "lib", "user.test.md"))
	assert.NoDirExists(t, filepath.Join(out, "node_modules"))
	assert.NoFileExists(t, filepath.Join(out, "notes.md"))

	user, err := os.ReadFile(filepath.Join(out, "lib", "user.md"))
	require.NoError(t, err)
	assert.Contains(t, string(user), "### User\n\nDocuments User.\n\n#### Methods\n\n##### save\n\nDocuments save.\n")

	scan, ok := p.Report().Stage(StageScan)
	require.True(t, ok)
	assert.EqualValues(t, 3, scan.Counters["files"])
}

func TestRun_ParseErrorLeavesNoOutput(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"ok.js":     greetJS,
		"broken.js": "function broken( {\n",
	})
	out := filepath.Join(t.TempDir(), "docs")
	gen := &countingGenerator{}

	p, _ := newTestPipeline(t, src, out, gen)
	err := p.Run(context.Background())
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(err.Error(), "extract: "), err.Error())
	var parseErr *extractor.ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "broken.js", parseErr.Path)

	assert.NoDirExists(t, out)
	assert.Zero(t, gen.calls)
}

func TestRun_SynthesisErrorLeavesNoOutput(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"greet.js": greetJS})
	out := filepath.Join(t.TempDir(), "docs")
	boom := errors.New("service unavailable")

	p, _ := newTestPipeline(t, src, out, &countingGenerator{fail: boom})
	err := p.Run(context.Background())
	require.Error(t, err)

	assert.True(t, strings.HasPrefix(err.Error(), "synthesize: "), err.Error())
	var synthErr *generator.SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Equal(t, "greet.js", synthErr.File)
	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, out)

	st, ok := p.Report().Stage(StageSynthesize)
	require.True(t, ok)
	assert.Equal(t, "error", st.Status)
}

func TestRun_MissingInput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "docs")
	p, _ := newTestPipeline(t, filepath.Join(t.TempDir(), "missing"), out, &countingGenerator{})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "scan: "), err.Error())
	var ioErr *crawler.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.NoDirExists(t, out)
}

func TestRun_EmptyInput(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "docs")
	gen := &countingGenerator{}

	p, _ := newTestPipeline(t, src, out, gen)
	require.NoError(t, p.Run(context.Background()))
	assert.Zero(t, gen.calls)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "README.md", entries[0].Name())

	readme, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(readme), "## Table of Contents\n\n- 📁 "+filepath.Base(src)+"/\n"))

	require.NotEmpty(t, p.Report().Signals)
	assert.Equal(t, "no_source_files", p.Report().Signals[0].Code)
}

func TestRun_WritesReport(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"greet.js": greetJS})
	reportPath := filepath.Join(t.TempDir(), "report.json")

	p := New(Options{
		Input:      src,
		OutputDir:  filepath.Join(t.TempDir(), "docs"),
		Config:     config.Default(),
		Generator:  &countingGenerator{},
		ReportPath: reportPath,
	})
	require.NoError(t, p.Run(context.Background()))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "generate", report.Mode)
	names := make([]string, 0, len(report.Stages))
	for _, st := range report.Stages {
		names = append(names, st.Name)
		assert.Equal(t, "ok", st.Status)
	}
	assert.Equal(t, []string{StageScan, StageExtract, StageAggregate, StageSynthesize, StageRender}, names)
	assert.Equal(t, 1, report.Summary.Files)
	assert.Equal(t, 2, report.Summary.Items)
	assert.Zero(t, report.Summary.FailedStages)
}

func TestRun_ReportRecordsFailure(t *testing.T) {
	reportPath := filepath.Join(t.TempDir(), "report.json")
	p := New(Options{
		Input:      filepath.Join(t.TempDir(), "missing"),
		Config:     config.Default(),
		Generator:  &countingGenerator{},
		ReportPath: reportPath,
	})
	require.Error(t, p.Run(context.Background()))

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Summary.FailedStages)
	require.NotEmpty(t, report.Signals)
	assert.Equal(t, "run_failed", report.Signals[0].Code)
	assert.Equal(t, 1, report.Summary.SignalsBySeverity["critical"])
}

func TestScan(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a.js":     greetJS,
		"lib/b.ts": "import { x as y } from './x';\nexport function b(n: number): number { return n; }\n",
	})

	p := New(Options{Input: src, Config: config.Default()})
	structure, err := p.Scan(context.Background())
	require.NoError(t, err)

	leaves := tree.Leaves(structure)
	require.Len(t, leaves, 2)
	assert.Equal(t, "a.js", leaves[0].Path)
	assert.Equal(t, "greet", leaves[0].Value.Functions[0].Name)
	assert.Equal(t, "lib/b.ts", leaves[1].Path)
	require.Len(t, leaves[1].Value.Imports, 1)
	assert.Equal(t, "./x", leaves[1].Value.Imports[0].Source)
	assert.Equal(t, "number", leaves[1].Value.Functions[0].Params[0].Type)

	extract, ok := p.Report().Stage(StageExtract)
	require.True(t, ok)
	assert.EqualValues(t, 2, extract.Counters["functions"])
}

func TestBuildGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.AI.APIKey = ""
	_, _, err := BuildGenerator(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.AI.APIKey = "sk-test"
	cfg.Cache.Enabled = true
	cfg.Cache.Path = filepath.Join(t.TempDir(), "cache", "gen.db")
	gen, closeGen, err := BuildGenerator(context.Background(), cfg)
	require.NoError(t, err)
	defer closeGen()
	assert.NotNil(t, gen)
	assert.FileExists(t, cfg.Cache.Path)
}
