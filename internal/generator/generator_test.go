package generator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autodocs/internal/extractor"
	"autodocs/internal/knowledge"
	"autodocs/internal/tree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = knowledge.TokenLimits{Overview: 500, Function: 350, Class: 500, Method: 350}

// promptSubject pulls the documented item's name out of a prompt.
func promptSubject(p knowledge.Prompt) string {
	for _, line := range strings.Split(p.User, "\n") {
		if v, ok := strings.CutPrefix(line, "Name: "); ok {
			return v
		}
		if v, ok := strings.CutPrefix(line, "File: "); ok {
			return v
		}
	}
	return ""
}

func echoGenerator() knowledge.Generator {
	return knowledge.GeneratorFunc(func(ctx context.Context, p knowledge.Prompt) (string, error) {
		return "doc for " + promptSubject(p), nil
	})
}

func at(line int) extractor.Span {
	return extractor.Span{Start: extractor.Position{Line: line}, End: extractor.Position{Line: line}}
}

func sampleRecord() extractor.Record {
	return extractor.Record{
		Language: "javascript",
		Functions: []extractor.FunctionInfo{
			{Name: "first", Kind: extractor.FunctionDeclaration, Params: []extractor.Param{}, Location: at(1), Parent: -1},
			{Name: "second", Kind: extractor.FunctionArrow, Params: []extractor.Param{}, Location: at(5), Parent: -1},
			{Name: "third", Kind: extractor.FunctionExpression, Params: []extractor.Param{}, Location: at(9), Parent: -1},
		},
		Classes: []extractor.ClassInfo{{
			Name:     "Dog",
			Location: at(12),
			Methods: []extractor.MethodInfo{
				{Name: "constructor", Kind: extractor.MethodConstructor, Params: []extractor.Param{}, Location: at(13)},
				{Name: "bark", Kind: extractor.MethodPlain, Params: []extractor.Param{}, Location: at(14)},
			},
		}},
		Imports:  []extractor.ImportInfo{},
		Comments: []extractor.CommentInfo{},
	}
}

func TestSynthesize_PreservesOrder(t *testing.T) {
	// Earlier items answer later, so completion order is the reverse of input order.
	delays := map[string]time.Duration{"first": 30 * time.Millisecond, "second": 20 * time.Millisecond, "third": 10 * time.Millisecond}
	gen := knowledge.GeneratorFunc(func(ctx context.Context, p knowledge.Prompt) (string, error) {
		name := promptSubject(p)
		time.Sleep(delays[name])
		return "doc for " + name, nil
	})

	s := NewSynthesizer(gen, testLimits, 8)
	doc, err := s.Synthesize(context.Background(), FileRef{Path: "src/app.js", Name: "app.js"}, sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "doc for app.js", doc.Overview)
	require.Len(t, doc.Functions, 3)
	for i, name := range []string{"first", "second", "third"} {
		assert.Equal(t, name, doc.Functions[i].Name)
		assert.Equal(t, "doc for "+name, doc.Functions[i].Documentation)
	}
	require.Len(t, doc.Classes, 1)
	assert.Equal(t, "doc for Dog", doc.Classes[0].Documentation)
	require.Len(t, doc.Classes[0].Methods, 2)
	assert.Equal(t, "doc for constructor", doc.Classes[0].Methods[0].Documentation)
	assert.Equal(t, "doc for bark", doc.Classes[0].Methods[1].Documentation)
	assert.Equal(t, 7, doc.ItemCount())
}

func TestSynthesize_UsesPerKindLimits(t *testing.T) {
	seen := make(chan int, 16)
	gen := knowledge.GeneratorFunc(func(ctx context.Context, p knowledge.Prompt) (string, error) {
		seen <- p.MaxTokens
		return "ok", nil
	})
	limits := knowledge.TokenLimits{Overview: 11, Function: 22, Class: 33, Method: 44}

	_, err := NewSynthesizer(gen, limits, 1).Synthesize(context.Background(), FileRef{Path: "a.js", Name: "a.js"}, sampleRecord())
	require.NoError(t, err)
	close(seen)

	counts := map[int]int{}
	for n := range seen {
		counts[n]++
	}
	assert.Equal(t, map[int]int{11: 1, 22: 3, 33: 1, 44: 2}, counts)
}

func TestSynthesize_FailFast(t *testing.T) {
	boom := errors.New("quota exhausted")
	var calls int32
	gen := knowledge.GeneratorFunc(func(ctx context.Context, p knowledge.Prompt) (string, error) {
		atomic.AddInt32(&calls, 1)
		if promptSubject(p) == "second" {
			return "", boom
		}
		return "ok", nil
	})

	_, err := NewSynthesizer(gen, testLimits, 1).Synthesize(context.Background(), FileRef{Path: "a.js", Name: "a.js"}, sampleRecord())
	require.Error(t, err)

	var synthErr *SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Equal(t, "a.js", synthErr.File)
	assert.Equal(t, KindFunction, synthErr.Kind)
	assert.Equal(t, "second", synthErr.Name)
	assert.Equal(t, 5, synthErr.Location.Start.Line)
	assert.ErrorIs(t, err, boom)
	// overview, first and second ran; the rest were cancelled before calling out
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSynthesize_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	gen := knowledge.GeneratorFunc(func(ctx context.Context, p knowledge.Prompt) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return "ok", nil
	})

	_, err := NewSynthesizer(gen, testLimits, 2).Synthesize(context.Background(), FileRef{Path: "a.js", Name: "a.js"}, sampleRecord())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestSynthesize_EmptyRecordStillGetsOverview(t *testing.T) {
	rec := extractor.Record{
		Functions: []extractor.FunctionInfo{},
		Classes:   []extractor.ClassInfo{},
		Imports:   []extractor.ImportInfo{},
		Comments:  []extractor.CommentInfo{},
	}
	doc, err := NewSynthesizer(echoGenerator(), testLimits, 4).Synthesize(context.Background(), FileRef{Path: "empty.js", Name: "empty.js"}, rec)
	require.NoError(t, err)
	assert.Equal(t, "doc for empty.js", doc.Overview)
	assert.Empty(t, doc.Functions)
	assert.NotNil(t, doc.Functions)
	assert.NotNil(t, doc.Imports)
}

type synthFunc func(ctx context.Context, file FileRef, rec extractor.Record) (DocRecord, error)

func (f synthFunc) Synthesize(ctx context.Context, file FileRef, rec extractor.Record) (DocRecord, error) {
	return f(ctx, file, rec)
}

func structureTree() *tree.Node[extractor.Record] {
	rec := sampleRecord()
	return tree.NewDir("proj", ".",
		tree.NewFile("index.js", "index.js", rec),
		tree.NewDir("lib", "lib",
			tree.NewFile("user.js", "lib/user.js", rec),
			tree.NewDir("util", "lib/util",
				tree.NewFile("fmt.ts", "lib/util/fmt.ts", rec),
			),
		),
		tree.NewFile("main.ts", "main.ts", rec),
	)
}

func TestBuildTree_PreservesShape(t *testing.T) {
	root := structureTree()
	var progress bytes.Buffer

	docs, err := BuildTree(context.Background(), root, NewSynthesizer(echoGenerator(), testLimits, 4), BuildOptions{
		Concurrency: 3,
		Progress:    &progress,
	})
	require.NoError(t, err)

	assert.True(t, tree.SameShape(root, docs))
	assert.Equal(t, tree.Count(root), tree.Count(docs))

	leaves := tree.Leaves(docs)
	require.Len(t, leaves, 4)
	assert.Equal(t, "doc for user.js", leaves[1].Value.Overview)
	assert.Equal(t, "lib/user.js", leaves[1].Value.File.Path)

	assert.Equal(t, strings.Join([]string{
		"📄 Processing file: index.js",
		"📄 Processing file: lib/user.js",
		"📄 Processing file: lib/util/fmt.ts",
		"📄 Processing file: main.ts",
	}, "\n")+"\n", progress.String())
}

func TestBuildTree_FirstFailureAborts(t *testing.T) {
	boom := errors.New("boom")
	synth := synthFunc(func(ctx context.Context, file FileRef, rec extractor.Record) (DocRecord, error) {
		if file.Path == "lib/user.js" {
			return DocRecord{}, &SynthesisError{File: file.Path, Kind: KindOverview, Name: file.Name, Err: boom}
		}
		return DocRecord{File: file}, nil
	})

	docs, err := BuildTree(context.Background(), structureTree(), synth, BuildOptions{Concurrency: 1})
	assert.Nil(t, docs)

	var synthErr *SynthesisError
	require.True(t, errors.As(err, &synthErr))
	assert.Equal(t, "lib/user.js", synthErr.File)
}

func TestBuildTree_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildTree(ctx, structureTree(), NewSynthesizer(echoGenerator(), testLimits, 1), BuildOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func docTree(t *testing.T) *tree.Node[DocRecord] {
	t.Helper()
	docs, err := BuildTree(context.Background(), structureTree(), NewSynthesizer(echoGenerator(), testLimits, 2), BuildOptions{})
	require.NoError(t, err)
	return docs
}

func TestRender_MirrorsDirectories(t *testing.T) {
	out := filepath.Join(t.TempDir(), "docs")
	var progress bytes.Buffer

	r := &Renderer{Progress: &progress}
	require.NoError(t, r.Render(context.Background(), docTree(t), out))

	for _, rel := range []string{"index.md", "lib/user.md", "lib/util/fmt.md", "main.md", "README.md"} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	assert.True(t, strings.HasSuffix(progress.String(), "📑 Generating documentation index...\n"))

	user, err := os.ReadFile(filepath.Join(out, "lib", "user.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(user), "# user.js\n\n## Overview\n\ndoc for user.js\n\n## Functions\n\n### first\n\ndoc for first\n"))
	assert.Contains(t, string(user), "## Classes\n\n### Dog\n\ndoc for Dog\n\n#### Methods\n\n##### constructor\n\ndoc for constructor\n\n##### bark\n\ndoc for bark\n")
}

func TestRender_Idempotent(t *testing.T) {
	out := t.TempDir()
	docs := docTree(t)

	require.NoError(t, Render(context.Background(), docs, out))
	first, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)

	require.NoError(t, Render(context.Background(), docs, out))
	second, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRenderIndex(t *testing.T) {
	index := RenderIndex(docTree(t))

	expected := strings.Join([]string{
		"# API Documentation",
		"",
		"## Introduction",
		"",
		introduction,
		"",
		"## Table of Contents",
		"",
		"- 📁 proj/",
		"  - 📄 [index](./index.md)",
		"  - 📁 lib/",
		"    - 📄 [user](./lib/user.md)",
		"    - 📁 util/",
		"      - 📄 [fmt](./lib/util/fmt.md)",
		"  - 📄 [main](./main.md)",
		"",
	}, "\n")
	assert.Equal(t, expected, index)
}

func TestRender_SingleFileRoot(t *testing.T) {
	out := t.TempDir()
	root := tree.NewFile("greet.js", "greet.js", DocRecord{
		File:      FileRef{Path: "greet.js", Name: "greet.js"},
		Overview:  "Greets people.",
		Functions: []FunctionDoc{{FunctionInfo: extractor.FunctionInfo{Name: "greet"}, Documentation: "Returns a greeting."}},
		Classes:   []ClassDoc{},
	})

	require.NoError(t, Render(context.Background(), root, out))

	greet, err := os.ReadFile(filepath.Join(out, "greet.md"))
	require.NoError(t, err)
	assert.Equal(t, "# greet.js\n\n## Overview\n\nGreets people.\n\n## Functions\n\n### greet\n\nReturns a greeting.\n", string(greet))

	readme, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "- 📄 [greet](./greet.md)\n")
}

func TestRender_CollidingNamesLaterWins(t *testing.T) {
	out := t.TempDir()
	root := tree.NewDir("src", ".",
		tree.NewFile("a.js", "a.js", DocRecord{File: FileRef{Path: "a.js", Name: "a.js"}, Overview: "from js"}),
		tree.NewFile("a.ts", "a.ts", DocRecord{File: FileRef{Path: "a.ts", Name: "a.ts"}, Overview: "from ts"}),
	)

	require.NoError(t, Render(context.Background(), root, out))
	a, err := os.ReadFile(filepath.Join(out, "a.md"))
	require.NoError(t, err)
	assert.Contains(t, string(a), "# a.ts")
	assert.Contains(t, string(a), "from ts")

	readme, err := os.ReadFile(filepath.Join(out, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(readme), "(./a.md)"))
	assert.Contains(t, string(readme), "- 📁 src/\n  - 📄 [a](./a.md)\n")
}

func TestRender_WriteFailureSkipsIndex(t *testing.T) {
	out := t.TempDir()
	// a regular file where the lib/ directory has to go
	require.NoError(t, os.WriteFile(filepath.Join(out, "lib"), []byte("x"), 0644))

	err := Render(context.Background(), docTree(t), out)
	require.Error(t, err)

	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Contains(t, renderErr.Path, "lib")
	assert.NoFileExists(t, filepath.Join(out, "README.md"))
}

func TestRenderFile_OmitsEmptySections(t *testing.T) {
	doc := RenderFile(DocRecord{File: FileRef{Name: "empty.js"}, Overview: "Nothing here."})
	assert.Equal(t, "# empty.js\n\n## Overview\n\nNothing here.\n", doc)
	assert.NotContains(t, doc, "## Functions")
	assert.NotContains(t, doc, "## Classes")
}

func TestRenderFile_NestsGeneratedHeadings(t *testing.T) {
	doc := RenderFile(DocRecord{
		File:     FileRef{Name: "app.js"},
		Overview: "# App\n\nStarts the server.\n\n## Usage\n\nRun it.",
		Functions: []FunctionDoc{{
			FunctionInfo:  extractor.FunctionInfo{Name: "start"},
			Documentation: "## start()\nBoots everything.",
		}},
	})
	assert.Contains(t, doc, "## Overview\n\n### App\n\nStarts the server.\n\n#### Usage\n\nRun it.\n")
	assert.Contains(t, doc, "### start\n\n#### start()\nBoots everything.\n")
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "greet.md", OutputPath("greet.js"))
	assert.Equal(t, "lib/user.md", OutputPath("lib/user.js"))
	assert.Equal(t, "lib/types.d.md", OutputPath("lib/types.d.ts"))
	assert.Equal(t, "Makefile.md", OutputPath("Makefile"))
}

func TestNestHeadings(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		parent int
		want   string
	}{
		{"demotes atx", "# Title\n\nBody\n\n## Sub", 2, "### Title\n\nBody\n\n#### Sub"},
		{"already nested", "### Deep\ntext", 2, "### Deep\ntext"},
		{"setext", "Title\n=====\n\ntext", 2, "### Title\n\ntext"},
		{"caps at h6", "# A\n\n###### B", 5, "###### A\n\n###### B"},
		{"ignores code fences", "```\n# comment\n```", 2, "```\n# comment\n```"},
		{"ignores block quotes", "> # quoted", 2, "> # quoted"},
		{"no headings", "plain text", 3, "plain text"},
		{"keeps closing hashes", "# Title #", 1, "## Title #"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nestHeadings(tt.in, tt.parent))
		})
	}
}
