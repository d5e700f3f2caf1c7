package graph

import (
	"sort"
	"strings"
	"sync"

	"github.com/magerisk/pkg/models"
)

// DependencyGraph tracks directed depends-on edges between assets, keyed
// by asset id. Edges are weak references: removing an asset detaches its
// edges but never cascades to the assets on the other side.
type DependencyGraph struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{}
}

// NewDependencyGraph creates an empty dependency graph
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		edges: make(map[string]map[string]struct{}),
	}
}

// FromAssets builds a graph from the Dependencies field of each asset.
// Edges pointing at ids outside the batch are kept; they resolve once the
// missing asset arrives or surface later as dangling references.
func FromAssets(assets []models.Asset) *DependencyGraph {
	g := NewDependencyGraph()
	for _, asset := range assets {
		for _, dep := range asset.Dependencies {
			g.addEdge(asset.ID, dep)
		}
	}
	return g
}

// AddDependency records that `from` depends on `to`. The edge is rejected
// with a conflict when it would close a cycle, including the self-loop
// case, so the graph stays acyclic at write time.
func (g *DependencyGraph) AddDependency(from, to string) error {
	if from == to {
		return &models.ConflictError{Reason: "asset " + from + " cannot depend on itself"}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.addEdgeLocked(from, to)
	if cycle := g.findCycleLocked(from); cycle != nil {
		delete(g.edges[from], to)
		return &models.ConflictError{
			Reason: "dependency cycle: " + strings.Join(cycle, " -> "),
		}
	}
	return nil
}

// RemoveDependency deletes a single edge. Removing an edge that does not
// exist is a no-op.
func (g *DependencyGraph) RemoveDependency(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges[from], to)
}

// RemoveAsset detaches an asset from the graph. Both its outgoing edges
// and edges pointing at it disappear; dependents themselves are untouched.
func (g *DependencyGraph) RemoveAsset(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.edges, id)
	for _, targets := range g.edges {
		delete(targets, id)
	}
}

// Dependencies returns the ids the given asset directly depends on,
// sorted for reproducible output.
func (g *DependencyGraph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.edges[id]))
	for dep := range g.edges[id] {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

// Dependents returns the ids of assets that directly depend on the given
// asset, sorted.
func (g *DependencyGraph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0)
	for from, targets := range g.edges {
		if _, ok := targets[id]; ok {
			out = append(out, from)
		}
	}
	sort.Strings(out)
	return out
}

// TransitiveDependencies walks outgoing edges from the given asset and
// returns every reachable id, sorted. The start asset itself is excluded.
func (g *DependencyGraph) TransitiveDependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]bool)
	stack := []string{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for dep := range g.edges[current] {
			if !visited[dep] {
				visited[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	delete(visited, id)

	out := make([]string, 0, len(visited))
	for dep := range visited {
		out = append(out, dep)
	}
	sort.Strings(out)
	return out
}

func (g *DependencyGraph) addEdge(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addEdgeLocked(from, to)
}

func (g *DependencyGraph) addEdgeLocked(from, to string) {
	if g.edges[from] == nil {
		g.edges[from] = make(map[string]struct{})
	}
	g.edges[from][to] = struct{}{}
}

// findCycleLocked runs a DFS from the given node keeping the recursion
// stack; revisiting a node on the stack means the edges close a cycle.
// Returns the cycle path start..start, or nil.
func (g *DependencyGraph) findCycleLocked(start string) []string {
	onStack := make(map[string]bool)
	visited := make(map[string]bool)
	path := []string{start}

	var walk func(node string) []string
	walk = func(node string) []string {
		visited[node] = true
		onStack[node] = true

		// Deterministic neighbor order keeps the reported cycle stable.
		neighbors := make([]string, 0, len(g.edges[node]))
		for dep := range g.edges[node] {
			neighbors = append(neighbors, dep)
		}
		sort.Strings(neighbors)

		for _, dep := range neighbors {
			if onStack[dep] {
				cycle := make([]string, len(path))
				copy(cycle, path)
				return append(cycle, dep)
			}
			if visited[dep] {
				continue
			}
			path = append(path, dep)
			if cycle := walk(dep); cycle != nil {
				return cycle
			}
			path = path[:len(path)-1]
		}

		onStack[node] = false
		return nil
	}

	return walk(start)
}
