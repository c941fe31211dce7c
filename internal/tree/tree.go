// Package tree holds the directory-shaped tree shared by every pipeline stage.
// A source tree, a structure tree and a documentation tree are the same
// Node type instantiated with different leaf payloads, so shape-preserving
// transformations are expressed once here.
package tree

import (
	"encoding/json"
	"fmt"
)

// Kind distinguishes leaves from directories.
type Kind int

const (
	File Kind = iota
	Directory
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one level of a directory-shaped tree. Value is only meaningful for
// File nodes. Each node exclusively owns its Children.
type Node[T any] struct {
	Kind     Kind       `json:"kind"`
	Name     string     `json:"name"`
	Path     string     `json:"path"` // slash-separated, relative to the walk root
	Value    T          `json:"value,omitempty"`
	Children []*Node[T] `json:"children,omitempty"`
}

// MarshalJSON writes Value for files only; directories carry no payload.
func (n Node[T]) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind     Kind       `json:"kind"`
		Name     string     `json:"name"`
		Path     string     `json:"path"`
		Value    *T         `json:"value,omitempty"`
		Children []*Node[T] `json:"children,omitempty"`
	}
	w := wire{Kind: n.Kind, Name: n.Name, Path: n.Path, Children: n.Children}
	if n.Kind == File {
		w.Value = &n.Value
	}
	return json.Marshal(w)
}

// NewFile creates a leaf node.
func NewFile[T any](name, path string, value T) *Node[T] {
	return &Node[T]{Kind: File, Name: name, Path: path, Value: value}
}

// NewDir creates a directory node with the given children in order.
func NewDir[T any](name, path string, children ...*Node[T]) *Node[T] {
	if children == nil {
		children = []*Node[T]{}
	}
	return &Node[T]{Kind: Directory, Name: name, Path: path, Children: children}
}

// IsDir reports whether n is a directory node.
func (n *Node[T]) IsDir() bool {
	return n != nil && n.Kind == Directory
}

// Walk visits root and all its descendants in pre-order. depth is 0 for root.
// A non-nil error from fn stops the walk and is returned.
func Walk[T any](root *Node[T], fn func(n *Node[T], depth int) error) error {
	var visit func(n *Node[T], depth int) error
	visit = func(n *Node[T], depth int) error {
		if n == nil {
			return nil
		}
		if err := fn(n, depth); err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := visit(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root, 0)
}

// Leaves returns the File nodes of root in pre-order.
func Leaves[T any](root *Node[T]) []*Node[T] {
	var out []*Node[T]
	_ = Walk(root, func(n *Node[T], _ int) error {
		if n.Kind == File {
			out = append(out, n)
		}
		return nil
	})
	return out
}

// Count returns the total number of nodes in root.
func Count[T any](root *Node[T]) int {
	total := 0
	_ = Walk(root, func(*Node[T], int) error {
		total++
		return nil
	})
	return total
}

// Map rebuilds root with every leaf value replaced by fn's result. Directory
// nodes are copied with their name, path and child order untouched.
func Map[A, B any](root *Node[A], fn func(n *Node[A]) (B, error)) (*Node[B], error) {
	if root == nil {
		return nil, nil
	}
	if root.Kind == File {
		v, err := fn(root)
		if err != nil {
			return nil, err
		}
		return NewFile(root.Name, root.Path, v), nil
	}
	children := make([]*Node[B], 0, len(root.Children))
	for _, c := range root.Children {
		mc, err := Map(c, fn)
		if err != nil {
			return nil, err
		}
		children = append(children, mc)
	}
	return NewDir(root.Name, root.Path, children...), nil
}

// SameShape reports whether a and b have identical kinds, paths and child
// ordering at every level.
func SameShape[A, B any](a *Node[A], b *Node[B]) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind != b.Kind || a.Path != b.Path || a.Name != b.Name || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !SameShape(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
