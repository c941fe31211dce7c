package generator

import (
	"autodocs/internal/extractor"
)

// FileRef identifies the source file a record was extracted from.
type FileRef struct {
	Path string `json:"path"` // slash-separated, relative to the walk root
	Name string `json:"name"`
}

type FunctionDoc struct {
	extractor.FunctionInfo
	Documentation string `json:"documentation"`
}

type MethodDoc struct {
	extractor.MethodInfo
	Documentation string `json:"documentation"`
}

type ClassDoc struct {
	Name          string         `json:"name"`
	SuperClass    string         `json:"superClass,omitempty"`
	Location      extractor.Span `json:"location"`
	Methods       []MethodDoc    `json:"methods"`
	Documentation string         `json:"documentation"`
}

// DocRecord is a structure record with generated prose attached to the file
// and to every function, class and method. Order matches the source record.
type DocRecord struct {
	File      FileRef                 `json:"file"`
	Language  string                  `json:"language"`
	Overview  string                  `json:"overview"`
	Functions []FunctionDoc           `json:"functions"`
	Classes   []ClassDoc              `json:"classes"`
	Imports   []extractor.ImportInfo  `json:"imports"`
	Comments  []extractor.CommentInfo `json:"comments"`
}

// newDocRecord lays out an undocumented DocRecord with one slot per item in
// rec, ready to be filled concurrently.
func newDocRecord(file FileRef, rec extractor.Record) DocRecord {
	doc := DocRecord{
		File:      file,
		Language:  rec.Language,
		Functions: make([]FunctionDoc, len(rec.Functions)),
		Classes:   make([]ClassDoc, len(rec.Classes)),
		Imports:   rec.Imports,
		Comments:  rec.Comments,
	}
	for i, fn := range rec.Functions {
		doc.Functions[i] = FunctionDoc{FunctionInfo: fn}
	}
	for i, cls := range rec.Classes {
		methods := make([]MethodDoc, len(cls.Methods))
		for j, m := range cls.Methods {
			methods[j] = MethodDoc{MethodInfo: m}
		}
		doc.Classes[i] = ClassDoc{
			Name:       cls.Name,
			SuperClass: cls.SuperClass,
			Location:   cls.Location,
			Methods:    methods,
		}
	}
	if doc.Imports == nil {
		doc.Imports = []extractor.ImportInfo{}
	}
	if doc.Comments == nil {
		doc.Comments = []extractor.CommentInfo{}
	}
	return doc
}

// ItemCount returns how many generation requests doc needed: one overview
// plus one per function, class and method.
func (d DocRecord) ItemCount() int {
	n := 1 + len(d.Functions) + len(d.Classes)
	for _, c := range d.Classes {
		n += len(c.Methods)
	}
	return n
}
