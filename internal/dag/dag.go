// Package dag provides a directed acyclic graph of the items declared in a
// dependency specification. It supports topological ordering, layering by
// dependency depth, cycle detection on insertion, and transitive dependency
// queries.
package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph contains a dependency cycle.
var ErrCycle = errors.New("cycle detected")

// ErrNodeNotFound is returned when an operation references a non-existent node.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when adding a node that already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrSelfEdge is returned when an edge would create a self-loop.
var ErrSelfEdge = errors.New("self-referencing edge")

// Node represents an item in the DAG.
type Node struct {
	ID    string
	Kind  string // "library", "group" or "system_symbols"
	Order int    // declaration order; lower sorts first among peers
	Files int    // number of object files the item owns
}

// DAG represents a directed acyclic graph of items.
// Edges point from a node to its dependencies: if A depends on B,
// there is an edge from A to B.
type DAG struct {
	nodes map[string]*Node
	// adjacency maps nodeID → set of dependency IDs (forward edges).
	adjacency map[string]map[string]bool
	// reverse maps nodeID → set of dependent IDs (backward edges).
	reverse map[string]map[string]bool
	// deps lists each node's dependencies in the order they were added.
	deps map[string][]string
}

// Layer is a set of nodes at the same dependency depth. Layer 0 holds the
// nodes without dependencies; every other node sits one layer above its
// deepest dependency.
type Layer struct {
	Number  int
	NodeIDs []string
}

// New creates an empty DAG.
func New() *DAG {
	return &DAG{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string]map[string]bool),
		reverse:   make(map[string]map[string]bool),
		deps:      make(map[string][]string),
	}
}

// AddNode adds a node. Returns ErrDuplicateNode if a node with that ID
// already exists.
func (d *DAG) AddNode(n Node) error {
	if _, exists := d.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}
	d.nodes[n.ID] = &n
	d.adjacency[n.ID] = make(map[string]bool)
	d.reverse[n.ID] = make(map[string]bool)
	return nil
}

// AddEdge adds a dependency edge: from depends on to. Both nodes must
// already exist. Returns an error if either node is missing, the edge
// would create a self-loop, or the edge would introduce a cycle.
func (d *DAG) AddEdge(from, to string) error {
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfEdge, from)
	}
	if _, ok := d.nodes[from]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, from)
	}
	if _, ok := d.nodes[to]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, to)
	}
	if d.adjacency[from][to] {
		return nil
	}
	// An existing path to → ... → from would close a loop.
	if d.hasPath(to, from) {
		return fmt.Errorf("%w: edge %s → %s would create a cycle", ErrCycle, from, to)
	}
	d.adjacency[from][to] = true
	d.reverse[to][from] = true
	d.deps[from] = append(d.deps[from], to)
	return nil
}

// Node returns the node with the given ID, or nil if not found.
func (d *DAG) Node(id string) *Node {
	return d.nodes[id]
}

// Len returns the number of nodes in the DAG.
func (d *DAG) Len() int {
	return len(d.nodes)
}

// Deps returns the direct dependencies of id in the order their edges were
// added, which for FromRegistry is the order of the item's deps list.
func (d *DAG) Deps(id string) []string {
	out := make([]string, len(d.deps[id]))
	copy(out, d.deps[id])
	return out
}

// topologicalSort returns node IDs in a valid topological order
// (dependencies come before dependents). Among nodes that become ready
// together, earlier-declared nodes appear first. Returns ErrCycle if the
// graph contains a cycle.
func (d *DAG) topologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(d.nodes))
	for id := range d.nodes {
		inDegree[id] = len(d.adjacency[id])
	}

	queue := d.orderSorted(d.zeroDegreeNodes(inDegree))

	sorted := make([]string, 0, len(d.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sorted = append(sorted, id)

		var freed []string
		for dependent := range d.reverse[id] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		if len(freed) > 0 {
			queue = append(queue, d.orderSorted(freed)...)
		}
	}

	if len(sorted) != len(d.nodes) {
		return nil, fmt.Errorf("%w: not all nodes could be ordered (%d of %d)",
			ErrCycle, len(sorted), len(d.nodes))
	}
	return sorted, nil
}

// Layers groups nodes by dependency depth. Nodes within a layer are in
// declaration order. An empty DAG yields nil.
func (d *DAG) Layers() ([]Layer, error) {
	order, err := d.topologicalSort()
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, id := range order {
		dd := 0
		for dep := range d.adjacency[id] {
			if depth[dep]+1 > dd {
				dd = depth[dep] + 1
			}
		}
		depth[id] = dd
		maxDepth = max(maxDepth, dd)
	}

	layers := make([]Layer, maxDepth+1)
	for i := range layers {
		layers[i].Number = i
	}
	for _, id := range order {
		layers[depth[id]].NodeIDs = append(layers[depth[id]].NodeIDs, id)
	}
	for i := range layers {
		layers[i].NodeIDs = d.orderSorted(layers[i].NodeIDs)
	}
	return layers, nil
}

// Ancestors returns all transitive dependencies of the given node
// (i.e., everything it transitively depends on). The result is sorted
// alphabetically. Returns nil if the node does not exist.
func (d *DAG) Ancestors(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(d.adjacency, id, visited)
	return sortedKeys(visited)
}

// Descendants returns all transitive dependents of the given node
// (i.e., everything that transitively depends on it). The result is
// sorted alphabetically. Returns nil if the node does not exist.
func (d *DAG) Descendants(id string) []string {
	if _, ok := d.nodes[id]; !ok {
		return nil
	}
	visited := make(map[string]bool)
	d.collect(d.reverse, id, visited)
	return sortedKeys(visited)
}

// hasPath reports whether there is a directed path from src to dst
// through the dependency graph (forward edges).
func (d *DAG) hasPath(src, dst string) bool {
	if src == dst {
		return false
	}
	visited := make(map[string]bool)
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for dep := range d.adjacency[cur] {
			if dep == dst {
				return true
			}
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

// collect walks edges from id depth-first, marking every reachable node.
func (d *DAG) collect(edges map[string]map[string]bool, id string, visited map[string]bool) {
	for next := range edges[id] {
		if !visited[next] {
			visited[next] = true
			d.collect(edges, next, visited)
		}
	}
}

// zeroDegreeNodes returns IDs from the in-degree map that have zero value.
func (d *DAG) zeroDegreeNodes(inDegree map[string]int) []string {
	var result []string
	for id, deg := range inDegree {
		if deg == 0 {
			result = append(result, id)
		}
	}
	return result
}

// orderSorted returns a copy of ids sorted by declaration order, with
// alphabetical ID as tiebreaker.
func (d *DAG) orderSorted(ids []string) []string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		oi := d.nodes[sorted[i]].Order
		oj := d.nodes[sorted[j]].Order
		if oi != oj {
			return oi < oj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func sortedKeys(set map[string]bool) []string {
	result := make([]string, 0, len(set))
	for v := range set {
		result = append(result, v)
	}
	sort.Strings(result)
	return result
}
