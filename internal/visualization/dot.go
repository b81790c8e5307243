// Package visualization renders the spatial graph and run curves in various
// output formats.
package visualization

import (
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/spread/internal/graph"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat accepts "dot" or "json".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown graph format %q (valid: dot, json)", s)
	}
}

// sinkName is the DOT/JSON node standing in for every sink edge.
const sinkName = "sink"

// RenderDOT produces an undirected Graphviz representation of g. Nodes are
// positioned at their map coordinates and filled by simulated prevalence.
func RenderDOT(g *graph.Graph) string {
	var b strings.Builder
	b.WriteString("graph spread {\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=8];\n\n")

	hasSink := false
	for n := range g.Nodes() {
		b.WriteString(fmt.Sprintf("  %q [pos=\"%g,%g!\", fillcolor=%q, tooltip=\"p_sim=%.3f p_obs=%.3f\"];\n",
			nodeName(n.ID), n.X, n.Y, prevalenceColor(n.PSim()), n.PSim(), n.PObs))
	}
	b.WriteString("\n")

	for _, e := range collectEdges(g) {
		if e.sink {
			hasSink = true
		}
		b.WriteString(fmt.Sprintf("  %q -- %q [label=\"%.2f\", penwidth=%.2f];\n",
			e.source, e.target, e.weight, penWidth(e.weight, g.Stats().WeightSum.Max)))
	}
	if hasSink {
		b.WriteString(fmt.Sprintf("\n  %q [shape=doublecircle, fillcolor=\"lightgray\"];\n", sinkName))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready graph with nodes and edges arrays.
func RenderJSON(g *graph.Graph) map[string]interface{} {
	jsonNodes := make([]map[string]interface{}, 0, g.Len())
	for n := range g.Nodes() {
		jsonNodes = append(jsonNodes, map[string]interface{}{
			"id":           n.ID,
			"x":            n.X,
			"y":            n.Y,
			"p_sim":        n.PSim(),
			"p_obs":        n.PObs,
			"connectivity": n.Connectivity(),
			"sampled":      n.Sampled(),
		})
	}

	edges := collectEdges(g)
	jsonEdges := make([]map[string]interface{}, 0, len(edges))
	for _, e := range edges {
		jsonEdges = append(jsonEdges, map[string]interface{}{
			"source": e.source,
			"target": e.target,
			"weight": e.weight,
			"sink":   e.sink,
		})
	}

	return map[string]interface{}{
		"nodes":      jsonNodes,
		"edges":      jsonEdges,
		"node_count": len(jsonNodes),
		"edge_count": len(jsonEdges),
	}
}

type renderedEdge struct {
	source, target string
	weight         float64
	sink           bool
}

// collectEdges lists every network record once. Real edges are stored on
// both endpoints, so only the copy held by the lower index is kept.
func collectEdges(g *graph.Graph) []renderedEdge {
	var out []renderedEdge
	for n := range g.Nodes() {
		selfLoops := 0
		for _, e := range n.Edges() {
			switch {
			case e.IsSink():
				out = append(out, renderedEdge{source: nodeName(n.ID), target: sinkName, weight: e.Weight, sink: true})
			case e.To == n.Index():
				selfLoops++
				if selfLoops%2 == 1 {
					out = append(out, renderedEdge{source: nodeName(n.ID), target: nodeName(n.ID), weight: e.Weight})
				}
			case e.To > n.Index():
				out = append(out, renderedEdge{source: nodeName(n.ID), target: nodeName(g.NodeAt(e.To).ID), weight: e.Weight})
			}
		}
	}
	return out
}

func nodeName(id int) string {
	return fmt.Sprintf("n%d", id)
}

// prevalenceColor maps p in [0,1] from white to red.
func prevalenceColor(p float64) string {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	gb := uint8(math.Round(255 * (1 - p)))
	return fmt.Sprintf("#ff%02x%02x", gb, gb)
}

func penWidth(weight, maxWeight float64) float64 {
	if maxWeight <= 0 {
		return 1
	}
	return 1 + 3*math.Min(weight/maxWeight, 1)
}
