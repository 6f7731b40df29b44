package crucible

// DependencyGraph records which keys each registered key depends on, in
// declaration order. It backs Validate's cycle check and the container's
// graph query.
type DependencyGraph struct {
	nodes map[ServiceKey]*graphNode
	order []ServiceKey // preserve registration order
}

type graphNode struct {
	key          ServiceKey
	dependencies []ServiceKey
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{nodes: make(map[ServiceKey]*graphNode)}
}

// AddNode adds a key with its ordered dependencies, replacing any previous
// entry for the same key.
func (g *DependencyGraph) AddNode(key ServiceKey, dependencies []ServiceKey) {
	if _, exists := g.nodes[key]; !exists {
		g.order = append(g.order, key)
	}
	g.nodes[key] = &graphNode{key: key, dependencies: dependencies}
}

// Dependencies returns the ordered dependency keys for key.
func (g *DependencyGraph) Dependencies(key ServiceKey) []ServiceKey {
	if node, ok := g.nodes[key]; ok {
		return node.dependencies
	}

	return nil
}

// HasNode reports whether key is in the graph.
func (g *DependencyGraph) HasNode(key ServiceKey) bool {
	_, ok := g.nodes[key]

	return ok
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns keys in dependency order: every key appears after
// its dependencies. Keys without dependencies keep registration order. A
// cycle fails with a circular dependency error carrying the full chain.
func (g *DependencyGraph) TopologicalSort() ([]ServiceKey, error) {
	visited := make(map[ServiceKey]bool)
	visiting := make(map[ServiceKey]bool)
	result := make([]ServiceKey, 0, len(g.nodes))

	for _, key := range g.order {
		if err := g.visit(key, visited, visiting, nil, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// visit performs a DFS walk. path holds the keys on the current descent so
// a cycle can be reported as a complete chain.
func (g *DependencyGraph) visit(key ServiceKey, visited, visiting map[ServiceKey]bool, path []ServiceKey, result *[]ServiceKey) error {
	if visited[key] {
		return nil
	}

	if visiting[key] {
		// Trim the path to the segment that closes the cycle.
		chain := append(cycleStart(path, key), key)

		return NewCircularDependencyError(chain)
	}

	node := g.nodes[key]
	if node == nil {
		// Key not registered in the graph; resolvability is checked
		// separately.
		return nil
	}

	visiting[key] = true
	path = append(path, key)

	for _, dep := range node.dependencies {
		if err := g.visit(dep, visited, visiting, path, result); err != nil {
			return err
		}
	}

	visiting[key] = false
	visited[key] = true
	*result = append(*result, key)

	return nil
}

func cycleStart(path []ServiceKey, key ServiceKey) []ServiceKey {
	for i, k := range path {
		if k == key {
			return path[i:]
		}
	}

	return path
}
