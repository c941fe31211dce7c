package generator

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	atxHeadingRe    = regexp.MustCompile(`^ {0,3}(#{1,6})([ \t].*)?$`)
	setextUnderline = regexp.MustCompile(`^ {0,3}(=+|-+)[ \t]*$`)
)

const maxHeadingLevel = 6

type headingSpan struct {
	first, last int // source lines holding the heading text
	level       int
}

// nestHeadings rewrites top-level headings in generated text so that the
// shallowest one sits one level below parent. Relative levels are kept and
// nothing goes deeper than h6. Setext headings become ATX headings.
func nestHeadings(generated string, parent int) string {
	src := strings.ReplaceAll(generated, "\r\n", "\n")
	headings := topLevelHeadings([]byte(src))
	if len(headings) == 0 {
		return src
	}

	shallowest := maxHeadingLevel
	for _, h := range headings {
		shallowest = min(shallowest, h.level)
	}
	shift := parent + 1 - shallowest
	if shift <= 0 {
		return src
	}

	lines := strings.Split(src, "\n")
	drop := make(map[int]bool)
	for _, h := range headings {
		level := min(h.level+shift, maxHeadingLevel)
		hashes := strings.Repeat("#", level)

		if m := atxHeadingRe.FindStringSubmatch(lines[h.first]); m != nil {
			lines[h.first] = hashes + m[2]
			continue
		}

		parts := make([]string, 0, h.last-h.first+1)
		for i := h.first; i <= h.last; i++ {
			parts = append(parts, strings.TrimSpace(lines[i]))
			if i > h.first {
				drop[i] = true
			}
		}
		lines[h.first] = hashes + " " + strings.Join(parts, " ")
		if u := h.last + 1; u < len(lines) && setextUnderline.MatchString(lines[u]) {
			drop[u] = true
		}
	}

	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// topLevelHeadings lists headings that are direct children of the document.
// Headings inside block quotes or lists are left alone.
func topLevelHeadings(src []byte) []headingSpan {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out []headingSpan
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		segs := h.Lines()
		out = append(out, headingSpan{
			first: lineOf(src, segs.At(0).Start),
			last:  lineOf(src, segs.At(segs.Len()-1).Start),
			level: h.Level,
		})
	}
	return out
}

func lineOf(src []byte, offset int) int {
	return bytes.Count(src[:offset], []byte("\n"))
}
