package extractor

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language pairs a grammar with the name recorded in Record.Language.
type Language struct {
	Name    string
	grammar func() *sitter.Language
}

var (
	JavaScript = Language{Name: "javascript", grammar: javascript.GetLanguage}
	TypeScript = Language{Name: "typescript", grammar: typescript.GetLanguage}
	TSX        = Language{Name: "tsx", grammar: tsx.GetLanguage}
)

var languagesByExt = map[string]Language{
	".js":  JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".jsx": JavaScript,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TSX,
}

// DetectLanguage picks a grammar from the file extension.
func DetectLanguage(filename string) (Language, bool) {
	lang, ok := languagesByExt[strings.ToLower(filepath.Ext(filename))]
	return lang, ok
}
