package scenario

// Line returns n cells with ids 1..n spaced one unit apart along the x axis,
// starting at the origin.
func Line(n int) []NodeSpec {
	nodes := make([]NodeSpec, n)
	for i := range nodes {
		nodes[i] = NodeSpec{ID: i + 1, X: float64(i)}
	}
	return nodes
}

// Chain returns unit-weight edges linking ids in order.
func Chain(ids ...int) []EdgeSpec {
	var edges []EdgeSpec
	for i := 1; i < len(ids); i++ {
		edges = append(edges, EdgeSpec{From: ids[i-1], To: ids[i], Weight: 1})
	}
	return edges
}

// GridID returns the id GridNodes gives the cell at row i, column j.
func GridID(n, i, j int) int { return i*n + j + 1 }

// GridNodes returns an n x n lattice of cells. The cell at row i, column j
// sits at (j, i).
func GridNodes(n int) []NodeSpec {
	nodes := make([]NodeSpec, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			nodes = append(nodes, NodeSpec{ID: GridID(n, i, j), X: float64(j), Y: float64(i)})
		}
	}
	return nodes
}

// GridEdges returns unit-weight 4-neighborhood edges for GridNodes(n).
func GridEdges(n int) []EdgeSpec {
	var edges []EdgeSpec
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j+1 < n {
				edges = append(edges, EdgeSpec{From: GridID(n, i, j), To: GridID(n, i, j+1), Weight: 1})
			}
			if i+1 < n {
				edges = append(edges, EdgeSpec{From: GridID(n, i, j), To: GridID(n, i+1, j), Weight: 1})
			}
		}
	}
	return edges
}

// Manhattan returns the lattice distance between two GridNodes(n) ids.
func Manhattan(n, a, b int) int {
	ai, aj := (a-1)/n, (a-1)%n
	bi, bj := (b-1)/n, (b-1)%n
	return abs(ai-bi) + abs(aj-bj)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
