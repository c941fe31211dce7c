package extractor

import "fmt"

// Record is the structural summary of one source file. All slices are
// non-nil after extraction and the record is not modified afterwards.
type Record struct {
	Language  string         `json:"language"`
	Functions []FunctionInfo `json:"functions"`
	Classes   []ClassInfo    `json:"classes"`
	Imports   []ImportInfo   `json:"imports"`
	Comments  []CommentInfo  `json:"comments"`
}

// Position is a 1-based line and 0-based column.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

type FunctionKind string

const (
	FunctionDeclaration FunctionKind = "declaration"
	FunctionArrow       FunctionKind = "arrow"
	FunctionExpression  FunctionKind = "expression"
)

// AnonymousName is used for functions without a binding name.
const AnonymousName = "anonymous"

type Param struct {
	Name string `json:"name"`
	Type string `json:"type"` // declared annotation text, or "any"
}

type FunctionInfo struct {
	Name        string       `json:"name"`
	Kind        FunctionKind `json:"kind"`
	Params      []Param      `json:"params"`
	Location    Span         `json:"location"`
	IsAsync     bool         `json:"isAsync"`
	IsGenerator bool         `json:"isGenerator"`
	// Depth counts enclosing functions; 0 for top level.
	Depth int `json:"depth"`
	// Parent indexes the enclosing function in the same Record, or -1.
	Parent int `json:"parent"`
}

type MethodKind string

const (
	MethodConstructor MethodKind = "constructor"
	MethodPlain       MethodKind = "method"
	MethodGetter      MethodKind = "getter"
	MethodSetter      MethodKind = "setter"
)

type MethodInfo struct {
	Name     string     `json:"name"`
	Kind     MethodKind `json:"kind"`
	IsStatic bool       `json:"isStatic"`
	Params   []Param    `json:"params"`
	Location Span       `json:"location"`
}

type ClassInfo struct {
	Name       string       `json:"name"`
	SuperClass string       `json:"superClass,omitempty"`
	Methods    []MethodInfo `json:"methods"`
	Location   Span         `json:"location"`
}

type SpecifierKind string

const (
	ImportDefault   SpecifierKind = "default"
	ImportNamed     SpecifierKind = "named"
	ImportNamespace SpecifierKind = "namespace"
)

type ImportSpecifier struct {
	Kind     SpecifierKind `json:"kind"`
	Local    string        `json:"local"`
	Imported string        `json:"imported,omitempty"`
}

type ImportInfo struct {
	Source     string            `json:"source"`
	Specifiers []ImportSpecifier `json:"specifiers"`
	Location   Span              `json:"location"`
}

type CommentKind string

const (
	CommentLine  CommentKind = "line"
	CommentBlock CommentKind = "block"
)

type CommentInfo struct {
	Kind     CommentKind `json:"kind"`
	Text     string      `json:"text"`
	Location Span        `json:"location"`
}

// ParseError reports a file that could not be turned into a syntax tree.
// Line is 1-based and Column 0-based; both are zero when no position applies.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func emptyRecord(lang string) Record {
	return Record{
		Language:  lang,
		Functions: []FunctionInfo{},
		Classes:   []ClassInfo{},
		Imports:   []ImportInfo{},
		Comments:  []CommentInfo{},
	}
}
