package crawler

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"autodocs/internal/tree"

	"github.com/bmatcuk/doublestar/v4"
)

// File is the payload of a source leaf.
type File struct {
	AbsPath string `json:"-"`
	RelPath string `json:"path"`
	Name    string `json:"name"`
	Text    []byte `json:"-"`
}

// Options selects which files a walk includes. Globs are matched against
// slash-separated paths relative to the walk root.
type Options struct {
	FilePatterns []string
	Exclude      []string
}

// IOError reports a path that could not be read.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Crawler builds source trees from the filesystem. It never writes.
type Crawler struct {
	opts    Options
	ignored []string
}

// NewCrawler creates a crawler. Patterns are validated up front so a bad
// glob fails before any file is read.
func NewCrawler(opts Options) (*Crawler, error) {
	for _, p := range append(append([]string{}, opts.FilePatterns...), opts.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return &Crawler{
		opts:    opts,
		ignored: []string{".git"},
	}, nil
}

// Walk is shorthand for NewCrawler(opts) followed by Walk(root).
func Walk(root string, opts Options) (*tree.Node[File], error) {
	c, err := NewCrawler(opts)
	if err != nil {
		return nil, err
	}
	return c.Walk(root)
}

// Walk builds the source tree rooted at root. A file root becomes a single
// leaf and bypasses the patterns. A directory root yields a directory node
// whose descendants mirror the real layout, keeping only included files and
// dropping directories left empty. The root itself is always returned.
func (c *Crawler) Walk(root string) (*tree.Node[File], error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &IOError{Path: root, Err: err}
	}

	if !info.IsDir() {
		name := filepath.Base(root)
		f, err := readFile(root, name)
		if err != nil {
			return nil, err
		}
		return tree.NewFile(name, name, f), nil
	}

	children, err := c.walkDir(root, "")
	if err != nil {
		return nil, err
	}
	return tree.NewDir(rootName(root), ".", children...), nil
}

// rootName names the walk root after the directory itself, so "." becomes
// the working directory's name.
func rootName(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return filepath.Base(abs)
	}
	return filepath.Base(filepath.Clean(root))
}

func (c *Crawler) walkDir(abs, rel string) ([]*tree.Node[File], error) {
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, &IOError{Path: abs, Err: err}
	}

	var out []*tree.Node[File]
	for _, entry := range entries {
		name := entry.Name()
		childAbs := filepath.Join(abs, name)
		childRel := path.Join(rel, name)

		if entry.IsDir() {
			if c.skipDir(name, childRel) {
				continue
			}
			children, err := c.walkDir(childAbs, childRel)
			if err != nil {
				return nil, err
			}
			if len(children) == 0 {
				continue
			}
			out = append(out, tree.NewDir(name, childRel, children...))
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if !c.Includes(childRel) {
			continue
		}
		f, err := readFile(childAbs, childRel)
		if err != nil {
			return nil, err
		}
		out = append(out, tree.NewFile(name, childRel, f))
	}
	return out, nil
}

// Includes reports whether a root-relative, slash-separated file path is
// selected by the crawler's patterns.
func (c *Crawler) Includes(rel string) bool {
	return matchAny(c.opts.FilePatterns, rel) && !matchAny(c.opts.Exclude, rel)
}

func (c *Crawler) skipDir(name, rel string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	// "dir/**" style patterns should prune the directory itself.
	return matchAny(c.opts.Exclude, rel) || matchAny(c.opts.Exclude, rel+"/")
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func readFile(abs, rel string) (File, error) {
	text, err := os.ReadFile(abs)
	if err != nil {
		return File{}, &IOError{Path: abs, Err: err}
	}
	return File{
		AbsPath: abs,
		RelPath: rel,
		Name:    filepath.Base(abs),
		Text:    text,
	}, nil
}
