package extractor

import sitter "github.com/smacker/go-tree-sitter"

// nodeKind is the closed set of node categories the traversal acts on.
type nodeKind interface{ isNodeKind() }

type (
	functionSite struct {
		kind FunctionKind
		// anonymous sites take no name from the node, e.g. object literal methods
		anonymous bool
	}
	classSite    struct{}
	importSite   struct{}
	commentSite  struct{}
	otherNode    struct{}
)

func (functionSite) isNodeKind() {}
func (classSite) isNodeKind()    {}
func (importSite) isNodeKind()   {}
func (commentSite) isNodeKind()  {}
func (otherNode) isNodeKind()    {}

func classify(n *sitter.Node) nodeKind {
	if !n.IsNamed() {
		return otherNode{}
	}
	switch n.Type() {
	case "function_declaration", "generator_function_declaration":
		return functionSite{kind: FunctionDeclaration}
	case "function_expression", "function", "generator_function":
		if isDefaultExport(n) {
			return functionSite{kind: FunctionDeclaration}
		}
		return functionSite{kind: FunctionExpression}
	case "arrow_function":
		return functionSite{kind: FunctionArrow}
	case "method_definition":
		if !inClassDeclaration(n) {
			return functionSite{kind: FunctionExpression, anonymous: true}
		}
		return otherNode{}
	case "class_declaration", "abstract_class_declaration":
		return classSite{}
	case "class":
		if isDefaultExport(n) {
			return classSite{}
		}
		return otherNode{}
	case "import_statement":
		return importSite{}
	case "comment":
		return commentSite{}
	default:
		return otherNode{}
	}
}

// isDefaultExport reports whether n is the value of `export default`, which
// makes an unnamed function or class a declaration.
func isDefaultExport(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.Type() == "export_statement" && hasToken(p, "default")
}

// inClassDeclaration reports whether the method n belongs to a class that is
// recorded as a class site. Methods of object literals and class expressions
// are plain function values.
func inClassDeclaration(n *sitter.Node) bool {
	body := n.Parent()
	if body == nil || body.Type() != "class_body" {
		return false
	}
	class := body.Parent()
	if class == nil {
		return false
	}
	_, ok := classify(class).(classSite)
	return ok
}

// accum holds the findings of one subtree. Parent indexes in functions are
// relative to this accumulator's own slice; -1 means the enclosing function
// lies outside the subtree.
type accum struct {
	functions []FunctionInfo
	classes   []ClassInfo
	imports   []ImportInfo
	comments  []CommentInfo
}

// merge concatenates parts in order. Inputs are not modified.
func merge(parts ...accum) accum {
	var out accum
	for _, p := range parts {
		offset := len(out.functions)
		for _, fn := range p.functions {
			if fn.Parent >= 0 {
				fn.Parent += offset
			}
			out.functions = append(out.functions, fn)
		}
		out.classes = append(out.classes, p.classes...)
		out.imports = append(out.imports, p.imports...)
		out.comments = append(out.comments, p.comments...)
	}
	return out
}

// adopt places fn in front of the functions found in its own subtree and
// re-points their top-level entries at it.
func adopt(fn FunctionInfo, inner accum) accum {
	out := inner
	out.functions = make([]FunctionInfo, 0, len(inner.functions)+1)
	out.functions = append(out.functions, fn)
	for _, child := range inner.functions {
		if child.Parent < 0 {
			child.Parent = 0
		} else {
			child.Parent++
		}
		out.functions = append(out.functions, child)
	}
	return out
}

func (a accum) record(lang string) Record {
	rec := emptyRecord(lang)
	rec.Functions = append(rec.Functions, a.functions...)
	rec.Classes = append(rec.Classes, a.classes...)
	rec.Imports = append(rec.Imports, a.imports...)
	rec.Comments = append(rec.Comments, a.comments...)
	return rec
}

// visit walks n in pre-order. depth is the number of function sites
// enclosing n.
func visit(n *sitter.Node, src []byte, depth int) accum {
	kind := classify(n)

	childDepth := depth
	if _, ok := kind.(functionSite); ok {
		childDepth = depth + 1
	}
	children := make([]accum, 0, n.ChildCount()+1)
	for i := 0; i < int(n.ChildCount()); i++ {
		children = append(children, visit(n.Child(i), src, childDepth))
	}

	switch k := kind.(type) {
	case functionSite:
		fn := functionInfo(n, src, k.kind)
		if k.anonymous {
			fn.Name = AnonymousName
		}
		fn.Depth = depth
		fn.Parent = -1
		return adopt(fn, merge(children...))
	case classSite:
		self := accum{classes: []ClassInfo{classInfo(n, src)}}
		return merge(append([]accum{self}, children...)...)
	case importSite:
		self := accum{imports: []ImportInfo{importInfo(n, src)}}
		return merge(append([]accum{self}, children...)...)
	case commentSite:
		self := accum{comments: []CommentInfo{commentInfo(n, src)}}
		return merge(append([]accum{self}, children...)...)
	default:
		return merge(children...)
	}
}
