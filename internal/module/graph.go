package module

// Graph maintains forward and reverse adjacency over module IDs, detects
// cycles, and produces a topological order.
type Graph struct {
	nodes   map[ID]bool
	forward map[ID][]ID // importer -> imported, insertion order
	reverse map[ID][]ID // imported -> importer, insertion order

	// edgeSeen deduplicates AddEdge calls so repeated imports of the same
	// dependency don't appear twice in the adjacency lists.
	edgeSeen map[[2]ID]bool
}

// NewGraph creates an empty module graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[ID]bool),
		forward:  make(map[ID][]ID),
		reverse:  make(map[ID][]ID),
		edgeSeen: make(map[[2]ID]bool),
	}
}

// AddNode registers a module ID in the graph, if not already present.
func (g *Graph) AddNode(id ID) {
	if !g.nodes[id] {
		g.nodes[id] = true
		g.forward[id] = nil
		g.reverse[id] = nil
	}
}

// AddEdge records that `from` imports `to`. Idempotent: duplicate edges
// coalesce into one. Both endpoints are implicitly added as nodes.
func (g *Graph) AddEdge(from, to ID) {
	g.AddNode(from)
	g.AddNode(to)

	key := [2]ID{from, to}
	if g.edgeSeen[key] {
		return
	}
	g.edgeSeen[key] = true

	g.forward[from] = append(g.forward[from], to)
	g.reverse[to] = append(g.reverse[to], from)
}

// Nodes returns all node IDs currently in the graph, in no particular
// order.
func (g *Graph) Nodes() []ID {
	ids := make([]ID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Successors returns the ordered list of modules `id` imports.
func (g *Graph) Successors(id ID) []ID {
	return g.forward[id]
}

// Predecessors returns the ordered list of modules that import `id`.
func (g *Graph) Predecessors(id ID) []ID {
	return g.reverse[id]
}

// Cycle performs a deterministic depth-first walk — successors visited in
// insertion order — and returns the first cycle found as an ordered
// sequence starting and ending at the same node. Returns nil if the graph
// is acyclic.
func (g *Graph) Cycle() []ID {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[ID]int, len(g.nodes))
	var path []ID

	var cycle []ID
	var visit func(ID) bool
	visit = func(n ID) bool {
		state[n] = onStack
		path = append(path, n)

		for _, succ := range g.forward[n] {
			switch state[succ] {
			case onStack:
				// Found the back-edge; slice the path from succ onward.
				for i, p := range path {
					if p == succ {
						cycle = append(append([]ID(nil), path[i:]...), succ)
						return true
					}
				}
			case unvisited:
				if visit(succ) {
					return true
				}
			}
		}

		state[n] = done
		path = path[:len(path)-1]
		return false
	}

	// Visit nodes in a stable order (ascending ID) so, for a given edge
	// set, the reported cycle is stable across runs.
	for _, n := range g.sortedNodes() {
		if state[n] == unvisited {
			if visit(n) {
				return cycle
			}
		}
	}
	return nil
}

// TopologicalOrder returns nodes in build order — every module appears
// after all of its dependencies — using Kahn's algorithm over the reverse
// adjacency: a node's indegree is its dependency count, so leaves seed the
// queue in stable order and popping a node unblocks its dependents. If a
// cycle exists, returns a *CyclicError locating one concrete cycle.
// Complexity O(V+E).
func (g *Graph) TopologicalOrder() ([]ID, error) {
	indegree := make(map[ID]int, len(g.nodes))
	for n := range g.nodes {
		indegree[n] = len(g.forward[n])
	}

	var queue []ID
	for _, n := range g.sortedNodes() {
		if indegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	result := make([]ID, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		result = append(result, n)

		for _, dependent := range g.reverse[n] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		cycle := g.Cycle()
		return nil, &CyclicError{Cycle: cycle}
	}
	return result, nil
}

// VerifyTranspose checks the invariant that reverse is the exact transpose
// of forward. Used by property tests; not required on the hot path.
func (g *Graph) VerifyTranspose() bool {
	for from, succs := range g.forward {
		for _, to := range succs {
			found := false
			for _, p := range g.reverse[to] {
				if p == from {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	for to, preds := range g.reverse {
		for _, from := range preds {
			found := false
			for _, s := range g.forward[from] {
				if s == to {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func (g *Graph) sortedNodes() []ID {
	ids := g.Nodes()
	// Simple insertion sort: node counts per compilation unit are small and
	// this keeps the dependency-free package free of a sort.Slice closure.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

// CyclicError reports a circular dependency found while computing a
// topological order.
type CyclicError struct {
	Cycle []ID
}

func (e *CyclicError) Error() string {
	return "circular module dependency detected"
}
