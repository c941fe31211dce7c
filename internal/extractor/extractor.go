package extractor

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("autodocs/extractor")

// Extract parses src as the language implied by filename and returns its
// structure record. It holds no state between calls and is safe to use from
// multiple goroutines. Source with any syntax error yields a *ParseError.
func Extract(ctx context.Context, filename string, src []byte) (Record, error) {
	ctx, span := tracer.Start(ctx, "extractor.Extract",
		trace.WithAttributes(
			attribute.String("file.path", filename),
			attribute.Int("file.size", len(src)),
		))
	defer span.End()

	rec, err := extract(ctx, filename, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Record{}, err
	}

	span.SetAttributes(
		attribute.String("language", rec.Language),
		attribute.Int("functions", len(rec.Functions)),
		attribute.Int("classes", len(rec.Classes)),
		attribute.Int("imports", len(rec.Imports)),
	)
	return rec, nil
}

func extract(ctx context.Context, filename string, src []byte) (Record, error) {
	lang, ok := DetectLanguage(filename)
	if !ok {
		return Record{}, &ParseError{Path: filename, Msg: "unsupported language"}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return Record{}, &ParseError{Path: filename, Msg: "parse failed", Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Record{}, syntaxError(filename, root, src)
	}

	acc := visit(root, src, 0)
	return acc.record(lang.Name), nil
}

// syntaxError locates the first ERROR or MISSING node in pre-order.
func syntaxError(filename string, root *sitter.Node, src []byte) *ParseError {
	var found *sitter.Node
	var find func(n *sitter.Node)
	find = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			find(n.Child(i))
		}
	}
	find(root)

	if found == nil {
		return &ParseError{Path: filename, Msg: "syntax error"}
	}

	pos := found.StartPoint()
	msg := "unexpected token"
	switch {
	case found.IsMissing():
		msg = fmt.Sprintf("missing %q", found.Type())
	case found.ChildCount() > 0:
		text := found.Child(0).Content(src)
		if len(text) > 20 {
			text = text[:20] + "..."
		}
		msg = fmt.Sprintf("unexpected %q", text)
	}
	return &ParseError{
		Path:   filename,
		Line:   int(pos.Row) + 1,
		Column: int(pos.Column),
		Msg:    msg,
	}
}
