package knowledge

import "strings"

// cleanMarkdownOutput unwraps replies that arrive inside a single markdown
// (or bare) code fence. Fences tagged with another language are kept, since
// those are code samples rather than wrapping.
func cleanMarkdownOutput(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```markdown", "```md\n", "```\n"} {
		if len(text) >= len(fence)+3 && strings.HasPrefix(text, fence) && strings.HasSuffix(text, "```") {
			text = strings.TrimSuffix(strings.TrimPrefix(text, fence), "```")
			break
		}
	}
	return strings.TrimSpace(text)
}
