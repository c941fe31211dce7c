package generator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"autodocs/internal/tree"

	"golang.org/x/sync/errgroup"
)

const (
	indexFileName = "README.md"
	introduction  = "This documentation is automatically generated using AI-powered analysis of the source code."

	// section levels that generated prose is nested under
	overviewLevel = 2
	itemLevel     = 3
	methodLevel   = 5
)

// RenderError reports an output file that could not be written.
type RenderError struct {
	Path string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer writes a documentation tree as markdown files.
type Renderer struct {
	// Concurrency bounds parallel file writes; zero means eight.
	Concurrency int
	// Progress receives status lines; nil discards them.
	Progress io.Writer
}

// Render writes root under outDir with default settings.
func Render(ctx context.Context, root *tree.Node[DocRecord], outDir string) error {
	return (&Renderer{}).Render(ctx, root, outDir)
}

// Render writes one document per leaf of root, mirroring the source
// directories below outDir, then the README.md index. The index is only
// written once every file document has been written.
func (r *Renderer) Render(ctx context.Context, root *tree.Node[DocRecord], outDir string) error {
	progress := r.Progress
	if progress == nil {
		progress = io.Discard
	}
	limit := r.Concurrency
	if limit < 1 {
		limit = 8
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return &RenderError{Path: outDir, Err: err}
	}

	// Two sources may map to one document (a.js and a.ts). The later leaf
	// in traversal order wins, whatever order the writes finish in.
	docs := make(map[string]DocRecord)
	var order []string
	for _, leaf := range tree.Leaves(root) {
		rel := OutputPath(leaf.Path)
		if _, seen := docs[rel]; !seen {
			order = append(order, rel)
		}
		docs[rel] = leaf.Value
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, rel := range order {
		doc := docs[rel]
		fmt.Fprintf(progress, "📄 Saving documentation for file: %s\n", rel)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return writeDocument(filepath.Join(outDir, filepath.FromSlash(rel)), RenderFile(doc))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(progress, "📑 Generating documentation index...")
	return writeDocument(filepath.Join(outDir, indexFileName), RenderIndex(root))
}

// OutputPath maps a source path relative to the walk root onto its document
// path relative to the output root: "lib/user.js" becomes "lib/user.md".
func OutputPath(sourcePath string) string {
	dir, file := path.Split(sourcePath)
	return dir + strings.TrimSuffix(file, path.Ext(file)) + ".md"
}

func writeDocument(dst, content string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return &RenderError{Path: dst, Err: err}
	}
	if err := os.WriteFile(dst, []byte(content), 0644); err != nil {
		return &RenderError{Path: dst, Err: err}
	}
	return nil
}

// RenderFile renders the markdown document for one file. Sections without
// entries are omitted; the overview is always present.
func RenderFile(doc DocRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", doc.File.Name)
	sb.WriteString("## Overview\n\n")
	writeProse(&sb, doc.Overview, overviewLevel)

	if len(doc.Functions) > 0 {
		sb.WriteString("## Functions\n\n")
		for _, fn := range doc.Functions {
			fmt.Fprintf(&sb, "### %s\n\n", fn.Name)
			writeProse(&sb, fn.Documentation, itemLevel)
		}
	}

	if len(doc.Classes) > 0 {
		sb.WriteString("## Classes\n\n")
		for _, cls := range doc.Classes {
			fmt.Fprintf(&sb, "### %s\n\n", cls.Name)
			writeProse(&sb, cls.Documentation, itemLevel)

			if len(cls.Methods) == 0 {
				continue
			}
			sb.WriteString("#### Methods\n\n")
			for _, m := range cls.Methods {
				fmt.Fprintf(&sb, "##### %s\n\n", m.Name)
				writeProse(&sb, m.Documentation, methodLevel)
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeProse(sb *strings.Builder, prose string, parent int) {
	prose = strings.TrimSpace(nestHeadings(prose, parent))
	if prose == "" {
		return
	}
	sb.WriteString(prose)
	sb.WriteString("\n\n")
}

// RenderIndex renders README.md: an introduction and a table of contents
// with one entry per node, indented two spaces per level, in traversal order.
// When two sources share an output document only the later one is listed.
func RenderIndex(root *tree.Node[DocRecord]) string {
	written := make(map[string]*tree.Node[DocRecord])
	for _, leaf := range tree.Leaves(root) {
		written[OutputPath(leaf.Path)] = leaf
	}

	var sb strings.Builder
	sb.WriteString("# API Documentation\n\n")
	sb.WriteString("## Introduction\n\n")
	sb.WriteString(introduction + "\n\n")
	sb.WriteString("## Table of Contents\n\n")

	_ = tree.Walk(root, func(n *tree.Node[DocRecord], depth int) error {
		indent := strings.Repeat("  ", depth)
		if n.IsDir() {
			fmt.Fprintf(&sb, "%s- 📁 %s/\n", indent, n.Name)
			return nil
		}
		rel := OutputPath(n.Path)
		if written[rel] != n {
			return nil
		}
		title := strings.TrimSuffix(n.Name, path.Ext(n.Name))
		fmt.Fprintf(&sb, "%s- 📄 [%s](./%s)\n", indent, title, rel)
		return nil
	})

	return sb.String()
}
