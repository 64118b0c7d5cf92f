package analysis

import "github.com/jengzang/taskrank-backend-go/internal/models"

// Graph is the dependency graph of one task batch. Nodes are addressed by
// their position in the batch. Edges point from a task to its
// prerequisites: if A depends on B, there is an edge from A to B.
type Graph struct {
	ids   []string
	index map[string]int

	// deps holds forward edges in declared order.
	deps [][]int
	// dependents holds reverse edges in batch order.
	dependents [][]int
	// dangling holds dependency IDs that match no task in the batch.
	dangling [][]string
}

// BuildGraph builds the graph in O(N + E). Unknown dependency IDs never
// become edges; they are recorded per node instead.
func BuildGraph(tasks []models.Task) *Graph {
	n := len(tasks)
	g := &Graph{
		ids:        make([]string, n),
		index:      make(map[string]int, n),
		deps:       make([][]int, n),
		dependents: make([][]int, n),
		dangling:   make([][]string, n),
	}
	for i, t := range tasks {
		g.ids[i] = t.ID
		if _, dup := g.index[t.ID]; !dup {
			g.index[t.ID] = i
		}
	}

	for i, t := range tasks {
		seen := make(map[int]bool, len(t.Dependencies))
		for _, depID := range t.Dependencies {
			j, ok := g.index[depID]
			if !ok {
				g.dangling[i] = append(g.dangling[i], depID)
				continue
			}
			if seen[j] {
				continue
			}
			seen[j] = true
			g.deps[i] = append(g.deps[i], j)
			g.dependents[j] = append(g.dependents[j], i)
		}
	}
	return g
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.ids)
}

// ID returns the task ID of node i
func (g *Graph) ID(i int) string {
	return g.ids[i]
}

// Index returns the node of a task ID
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Dependencies returns the prerequisites of node i
func (g *Graph) Dependencies(i int) []int {
	return g.deps[i]
}

// Dependents returns the nodes that depend on node i
func (g *Graph) Dependents(i int) []int {
	return g.dependents[i]
}

// Dangling returns the unresolved dependency IDs of node i
func (g *Graph) Dangling(i int) []string {
	return g.dangling[i]
}

// Blocks counts the other tasks that directly depend on node i. A
// self-dependency does not count.
func (g *Graph) Blocks(i int) int {
	n := 0
	for _, d := range g.dependents[i] {
		if d != i {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of resolved edges
func (g *Graph) EdgeCount() int {
	e := 0
	for _, d := range g.deps {
		e += len(d)
	}
	return e
}
