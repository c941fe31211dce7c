package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const defaultParamType = "any"

func spanOf(n *sitter.Node) Span {
	start, end := n.StartPoint(), n.EndPoint()
	return Span{
		Start: Position{Line: int(start.Row) + 1, Column: int(start.Column)},
		End:   Position{Line: int(end.Row) + 1, Column: int(end.Column)},
	}
}

// hasToken reports whether n has an anonymous child token with the given
// text, e.g. "async", "*" or "static".
func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func functionInfo(n *sitter.Node, src []byte, kind FunctionKind) FunctionInfo {
	name := AnonymousName
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(src)
	}

	var params []Param
	if p := n.ChildByFieldName("parameters"); p != nil {
		params = extractParams(p, src)
	} else if p := n.ChildByFieldName("parameter"); p != nil {
		// single unparenthesised arrow parameter
		params = []Param{{Name: p.Content(src), Type: defaultParamType}}
	}
	if params == nil {
		params = []Param{}
	}

	return FunctionInfo{
		Name:        name,
		Kind:        kind,
		Params:      params,
		Location:    spanOf(n),
		IsAsync:     hasToken(n, "async"),
		IsGenerator: strings.HasPrefix(n.Type(), "generator_") || hasToken(n, "*"),
	}
}

func classInfo(n *sitter.Node, src []byte) ClassInfo {
	info := ClassInfo{
		Name:     AnonymousName,
		Methods:  []MethodInfo{},
		Location: spanOf(n),
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		info.Name = nameNode.Content(src)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "class_heritage" {
			info.SuperClass = superClass(c, src)
		}
	}

	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := body.NamedChild(i)
			if member.Type() == "method_definition" {
				info.Methods = append(info.Methods, methodInfo(member, src))
			}
		}
	}
	return info
}

// superClass reads the extends target. JavaScript puts the expression
// directly under class_heritage; TypeScript wraps it in extends_clause.
func superClass(heritage *sitter.Node, src []byte) string {
	for i := 0; i < int(heritage.NamedChildCount()); i++ {
		c := heritage.NamedChild(i)
		switch c.Type() {
		case "extends_clause":
			if v := c.ChildByFieldName("value"); v != nil {
				return v.Content(src)
			}
			if c.NamedChildCount() > 0 {
				return c.NamedChild(0).Content(src)
			}
		case "implements_clause", "comment":
			continue
		default:
			return c.Content(src)
		}
	}
	return ""
}

func methodInfo(n *sitter.Node, src []byte) MethodInfo {
	m := MethodInfo{
		Kind:     MethodPlain,
		IsStatic: hasToken(n, "static"),
		Params:   []Param{},
		Location: spanOf(n),
	}
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		m.Name = nameNode.Content(src)
	}
	switch {
	case hasToken(n, "get"):
		m.Kind = MethodGetter
	case hasToken(n, "set"):
		m.Kind = MethodSetter
	case m.Name == "constructor" && !m.IsStatic:
		m.Kind = MethodConstructor
	}
	if p := n.ChildByFieldName("parameters"); p != nil {
		m.Params = extractParams(p, src)
	}
	return m
}

func extractParams(list *sitter.Node, src []byte) []Param {
	params := []Param{}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		p := list.NamedChild(i)
		switch p.Type() {
		case "comment", "decorator":
			continue
		case "required_parameter", "optional_parameter":
			params = append(params, typedParam(p, src))
		default:
			params = append(params, Param{Name: paramName(p, src), Type: defaultParamType})
		}
	}
	return params
}

// typedParam handles TypeScript parameters, which carry an optional
// type_annotation whose first named child is the declared type.
func typedParam(p *sitter.Node, src []byte) Param {
	param := Param{Type: defaultParamType}
	if pattern := p.ChildByFieldName("pattern"); pattern != nil {
		param.Name = paramName(pattern, src)
	} else {
		param.Name = p.Content(src)
	}
	if ann := p.ChildByFieldName("type"); ann != nil {
		if t := annotationText(ann, src); t != "" {
			param.Type = t
		}
	}
	return param
}

func annotationText(ann *sitter.Node, src []byte) string {
	if ann.Type() != "type_annotation" {
		return strings.TrimSpace(ann.Content(src))
	}
	for i := 0; i < int(ann.ChildCount()); i++ {
		c := ann.Child(i)
		if c.Type() != ":" {
			return strings.TrimSpace(c.Content(src))
		}
	}
	return ""
}

func paramName(p *sitter.Node, src []byte) string {
	switch p.Type() {
	case "assignment_pattern", "assignment_expression":
		if left := p.ChildByFieldName("left"); left != nil {
			return paramName(left, src)
		}
	case "rest_pattern":
		if p.NamedChildCount() > 0 {
			return "..." + paramName(p.NamedChild(0), src)
		}
	}
	return p.Content(src)
}

func importInfo(n *sitter.Node, src []byte) ImportInfo {
	info := ImportInfo{
		Specifiers: []ImportSpecifier{},
		Location:   spanOf(n),
	}
	if s := n.ChildByFieldName("source"); s != nil {
		info.Source = unquote(s.Content(src))
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "import_clause":
			info.Specifiers = append(info.Specifiers, clauseSpecifiers(c, src)...)
		case "import_require_clause":
			// import x = require("y")
			for j := 0; j < int(c.NamedChildCount()); j++ {
				cc := c.NamedChild(j)
				switch cc.Type() {
				case "identifier":
					info.Specifiers = append(info.Specifiers, ImportSpecifier{Kind: ImportDefault, Local: cc.Content(src)})
				case "string":
					if info.Source == "" {
						info.Source = unquote(cc.Content(src))
					}
				}
			}
		}
	}
	return info
}

func clauseSpecifiers(clause *sitter.Node, src []byte) []ImportSpecifier {
	var out []ImportSpecifier
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			out = append(out, ImportSpecifier{Kind: ImportDefault, Local: c.Content(src)})
		case "namespace_import":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if id := c.NamedChild(j); id.Type() == "identifier" {
					out = append(out, ImportSpecifier{Kind: ImportNamespace, Local: id.Content(src)})
				}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				imported := unquote(nameNode.Content(src))
				local := imported
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias.Content(src)
				}
				out = append(out, ImportSpecifier{Kind: ImportNamed, Local: local, Imported: imported})
			}
		}
	}
	return out
}

func commentInfo(n *sitter.Node, src []byte) CommentInfo {
	raw := n.Content(src)
	kind := CommentLine
	if strings.HasPrefix(raw, "/*") {
		kind = CommentBlock
	}
	return CommentInfo{
		Kind:     kind,
		Text:     cleanComment(raw),
		Location: spanOf(n),
	}
}

// cleanComment strips comment delimiters and surrounding whitespace. Block
// comments also lose the leading "*" that JSDoc puts on each line.
func cleanComment(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/*") {
		return strings.TrimSpace(strings.TrimPrefix(raw, "//"))
	}

	body := strings.TrimSuffix(strings.TrimPrefix(raw, "/*"), "*/")
	lines := strings.Split(body, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "*")
		cleaned = append(cleaned, strings.TrimSpace(l))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
