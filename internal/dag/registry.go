package dag

import (
	"github.com/papapumpkin/depcheck/internal/depspec"
)

// FromRegistry builds the item graph of a parsed specification. A cycle
// among the declared dependencies, including an item depending on itself,
// yields an error wrapping ErrCycle or ErrSelfEdge.
func FromRegistry(reg *depspec.Registry) (*DAG, error) {
	d := New()
	items := reg.Items()
	for i, it := range items {
		if err := d.AddNode(Node{ID: it.Name, Kind: it.Kind.String(), Order: i, Files: len(it.Files)}); err != nil {
			return nil, err
		}
	}
	for _, it := range items {
		for _, dep := range it.Deps {
			if err := d.AddEdge(it.Name, dep); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}
