package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SymbolID builds a deterministic identifier for a documented item such as
// "lib/user.js#class:User.save@12". The short hash keeps IDs distinct when
// two items share a name and line.
func SymbolID(path, kind, name string, loc Span) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "_"
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		kind = "symbol"
	}
	name = canonicalize(name)
	if name == "" {
		name = AnonymousName
	}

	fingerprint := strings.Join([]string{path, kind, name, loc.String()}, "|")
	sum := sha256.Sum256([]byte(fingerprint))
	return fmt.Sprintf("%s#%s:%s@%d-%s", path, kind, name, loc.Start.Line, hex.EncodeToString(sum[:4]))
}

func canonicalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(s, " ")
}
