package analysis

import (
	"strconv"
	"strings"

	"github.com/jengzang/taskrank-backend-go/internal/models"
)

// DFS node colours
const (
	white uint8 = iota // not visited
	gray               // on the current DFS path
	black              // finished
)

// CycleReport is the outcome of cycle detection over one graph
type CycleReport struct {
	Cycles []models.Cycle
	// InCycle is indexed by node and is true when the node lies on some
	// dependency loop. Unless Truncated is set, every flagged node appears
	// in at least one reported cycle.
	InCycle []bool
	// Truncated is set when the cycle list was cut short to keep the
	// report proportional to the graph.
	Truncated bool
}

// HasCycles reports whether any cycle was found
func (r CycleReport) HasCycles() bool {
	return len(r.Cycles) > 0
}

// DetectCycles finds the dependency loops of g.
//
// A node is flagged when its strongly connected component has more than
// one member or it depends on itself.
//
// Reported cycles come from an iterative depth-first search with roots in
// batch order and neighbours in declared order. Every back edge u → v
// closes the path from v to u, which is reported as one cycle; a
// self-dependency is a one-element cycle. Back edges alone can miss a node
// that lies on a loop reachable only through cross edges, so a second pass
// adds the shortest loop through every flagged node not yet covered.
//
// The total number of IDs across reported cycles is capped at the node
// count plus the edge count, and the coverage searches share a work budget
// of the same order. Hitting either cap stops reporting and sets Truncated.
func DetectCycles(g *Graph) CycleReport {
	n := g.Len()
	report := CycleReport{
		Cycles:  make([]models.Cycle, 0),
		InCycle: make([]bool, n),
	}

	comp, size := stronglyConnected(g)
	for v := 0; v < n; v++ {
		report.InCycle[v] = size[comp[v]] > 1 || dependsOnItself(g, v)
	}

	budget := n + g.EdgeCount()
	covered := make([]bool, n)
	seen := make(map[string]bool)
	add := func(nodes []int) {
		key := cycleKey(nodes)
		if seen[key] {
			return
		}
		seen[key] = true
		budget -= len(nodes)
		cycle := make(models.Cycle, len(nodes))
		for i, v := range nodes {
			cycle[i] = g.ID(v)
			covered[v] = true
		}
		report.Cycles = append(report.Cycles, cycle)
	}

	cycles, truncated := backEdgeCycles(g, budget)
	for _, c := range cycles {
		add(c)
	}
	if truncated {
		report.Truncated = true
		return report
	}

	work := 4 * (n + g.EdgeCount())
	for v := 0; v < n; v++ {
		if !report.InCycle[v] || covered[v] {
			continue
		}
		c := shortestLoop(g, v, comp, &work)
		if c == nil || len(c) > budget {
			report.Truncated = true
			break
		}
		add(c)
	}

	return report
}

func dependsOnItself(g *Graph, v int) bool {
	for _, w := range g.Dependencies(v) {
		if w == v {
			return true
		}
	}
	return false
}

type dfsFrame struct {
	node int
	next int // index into the node's dependency list
}

// backEdgeCycles collects back-edge cycles until their total length would
// exceed budget, in which case it stops and reports truncation.
func backEdgeCycles(g *Graph, budget int) ([][]int, bool) {
	n := g.Len()
	color := make([]uint8, n)
	pos := make([]int, n) // depth of a gray node in the path
	path := make([]dfsFrame, 0, n)
	var cycles [][]int

	for root := 0; root < n; root++ {
		if color[root] != white {
			continue
		}
		color[root] = gray
		pos[root] = 0
		path = append(path, dfsFrame{node: root})

		for len(path) > 0 {
			top := &path[len(path)-1]
			deps := g.Dependencies(top.node)
			if top.next == len(deps) {
				color[top.node] = black
				path = path[:len(path)-1]
				continue
			}
			w := deps[top.next]
			top.next++

			switch color[w] {
			case white:
				color[w] = gray
				pos[w] = len(path)
				path = append(path, dfsFrame{node: w})
			case gray:
				length := len(path) - pos[w]
				if length > budget {
					return cycles, true
				}
				budget -= length
				cycle := make([]int, 0, length)
				for _, f := range path[pos[w]:] {
					cycle = append(cycle, f.node)
				}
				cycles = append(cycles, cycle)
			}
		}
	}
	return cycles, false
}

// stronglyConnected runs an iterative Tarjan pass and returns the
// component of every node plus the size of every component.
func stronglyConnected(g *Graph) (comp []int, size []int) {
	n := g.Len()
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp = make([]int, n)
	for i := range index {
		index[i] = -1
	}

	var stack []int
	counter := 0

	for s := 0; s < n; s++ {
		if index[s] != -1 {
			continue
		}
		calls := []dfsFrame{{node: s}}
		index[s], low[s] = counter, counter
		counter++
		stack = append(stack, s)
		onStack[s] = true

		for len(calls) > 0 {
			f := &calls[len(calls)-1]
			deps := g.Dependencies(f.node)
			if f.next < len(deps) {
				w := deps[f.next]
				f.next++
				if index[w] == -1 {
					index[w], low[w] = counter, counter
					counter++
					stack = append(stack, w)
					onStack[w] = true
					calls = append(calls, dfsFrame{node: w})
				} else if onStack[w] && index[w] < low[f.node] {
					low[f.node] = index[w]
				}
				continue
			}

			v := f.node
			if low[v] == index[v] {
				id := len(size)
				count := 0
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = id
					count++
					if w == v {
						break
					}
				}
				size = append(size, count)
			}
			calls = calls[:len(calls)-1]
			if len(calls) > 0 {
				p := calls[len(calls)-1].node
				if low[v] < low[p] {
					low[p] = low[v]
				}
			}
		}
	}
	return comp, size
}

// shortestLoop returns the shortest cycle through start, searching only
// inside start's component. Every scanned edge is charged to work; it
// returns nil when there is no loop or work runs out.
func shortestLoop(g *Graph, start int, comp []int, work *int) []int {
	parent := make(map[int]int)
	queue := []int{start}
	parent[start] = -1

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, w := range g.Dependencies(u) {
			if *work <= 0 {
				return nil
			}
			*work--
			if comp[w] != comp[start] {
				continue
			}
			if w == start {
				var rev []int
				for x := u; x != -1; x = parent[x] {
					rev = append(rev, x)
				}
				loop := make([]int, len(rev))
				for i, x := range rev {
					loop[len(rev)-1-i] = x
				}
				return loop
			}
			if _, ok := parent[w]; !ok {
				parent[w] = u
				queue = append(queue, w)
			}
		}
	}
	return nil
}

// cycleKey identifies a cycle independent of its starting node.
func cycleKey(nodes []int) string {
	start := 0
	for i, v := range nodes {
		if v < nodes[start] {
			start = i
		}
	}
	parts := make([]string, len(nodes))
	for i := range nodes {
		parts[i] = strconv.Itoa(nodes[(start+i)%len(nodes)])
	}
	return strings.Join(parts, ",")
}
