package tree

import "fmt"

// AggregationError reports a leaf that has no entry in the aggregation table.
// It signals a pipeline sequencing bug rather than bad user input.
type AggregationError struct {
	Path string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation invariant violated: no record for %q", e.Path)
}

// Aggregate rebuilds root with each leaf replaced by table[leaf.Path].
func Aggregate[A, B any](root *Node[A], table map[string]B) (*Node[B], error) {
	return Map(root, func(n *Node[A]) (B, error) {
		v, ok := table[n.Path]
		if !ok {
			var zero B
			return zero, &AggregationError{Path: n.Path}
		}
		return v, nil
	})
}
