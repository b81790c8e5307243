package graph

// NodeState is a read-only row of per-node statistics.
type NodeState struct {
	ID           int     `json:"id"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	WeightSum    float64 `json:"weight_sum"`
	Connectivity float64 `json:"connectivity"`

	YObs float64 `json:"y_obs"`
	NObs float64 `json:"n_obs"`
	PObs float64 `json:"p_obs"`

	NSim float64 `json:"n_sim"`
	YSim float64 `json:"y_sim"`
	PSim float64 `json:"p_sim"`

	TotalIntroductions int64   `json:"total_introductions"`
	MeanIntroductions  float64 `json:"mean_introductions"`
	VarIntroductions   float64 `json:"var_introductions"`

	MeanFirstAge float64 `json:"mean_first_age"`
	VarFirstAge  float64 `json:"var_first_age"`
	MeanLastAge  float64 `json:"mean_last_age"`
	VarLastAge   float64 `json:"var_last_age"`

	Likelihood    float64 `json:"likelihood"`
	MaxLikelihood float64 `json:"max_likelihood"`
	Score         float64 `json:"score"`
}

// Snapshot is a copy of the graph's per-node statistics and scores.
type Snapshot struct {
	EmptyScore float64     `json:"empty_score"`
	Score      float64     `json:"score"`
	Nodes      []NodeState `json:"nodes"`
}

// Snapshot copies the committed statistics of every node in load order.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		EmptyScore: g.empty.Score,
		Score:      g.final.Score,
		Nodes:      make([]NodeState, len(g.nodes)),
	}
	for i, n := range g.nodes {
		s.Nodes[i] = NodeState{
			ID:                 n.ID,
			X:                  n.X,
			Y:                  n.Y,
			WeightSum:          n.weightSum,
			Connectivity:       n.connectivity,
			YObs:               n.YObs,
			NObs:               n.NObs,
			PObs:               n.PObs,
			NSim:               n.nSim,
			YSim:               n.ySim,
			PSim:               n.pSim,
			TotalIntroductions: n.TotalIntroductions(),
			MeanIntroductions:  n.meanIntro,
			VarIntroductions:   n.varIntro,
			MeanFirstAge:       n.meanFirstAge,
			VarFirstAge:        n.varFirstAge,
			MeanLastAge:        n.meanLastAge,
			VarLastAge:         n.varLastAge,
			Likelihood:         n.likelihood,
			MaxLikelihood:      n.maxLikelihood,
			Score:              n.score,
		}
	}
	return s
}
