package conflict

import (
	"sort"

	"github.com/google/uuid"

	"lerian-normative-engine/internal/errors"
	"lerian-normative-engine/pkg/types"
)

var severityWeights = map[types.ConflictSeverity]float64{
	types.SeverityCritical:      10.0,
	types.SeverityHigh:          7.5,
	types.SeverityMedium:        5.0,
	types.SeverityLow:           2.5,
	types.SeverityInformational: 1.0,
}

// SeverityWeight returns the edge weight assigned to a severity.
func SeverityWeight(s types.ConflictSeverity) float64 {
	return severityWeights[s]
}

// Node is a framework's position in the conflict graph.
type Node struct {
	FrameworkID   uuid.UUID   `json:"framework_id"`
	ConflictCount int         `json:"conflict_count"`
	Centrality    float64     `json:"centrality"`
	ConnectedIDs  []uuid.UUID `json:"connected_ids"`
}

// Edge links two frameworks through the heaviest conflict recorded between them.
type Edge struct {
	Source   uuid.UUID                `json:"source"`
	Target   uuid.UUID                `json:"target"`
	Conflict *types.NormativeConflict `json:"conflict"`
	Weight   float64                  `json:"weight"`
}

// Cluster is a connected group of conflicting frameworks.
type Cluster struct {
	Frameworks         []uuid.UUID                `json:"frameworks"`
	Conflicts          []*types.NormativeConflict `json:"conflicts"`
	ResolutionPriority float64                    `json:"resolution_priority"`
}

type node struct {
	id         uuid.UUID
	count      int
	centrality float64
	connected  map[uuid.UUID]struct{}
}

// edgeKey identifies an unordered endpoint pair.
type edgeKey struct{ lo, hi uuid.UUID }

func keyFor(a, b uuid.UUID) edgeKey {
	if b.String() < a.String() {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// Graph aggregates conflicts into a framework graph. Not safe for
// concurrent use.
type Graph struct {
	nodes map[uuid.UUID]*node
	edges map[edgeKey]*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[uuid.UUID]*node),
		edges: make(map[edgeKey]*Edge),
	}
}

// AddConflict records c as the edge between its two frameworks, creating
// nodes as needed. A pair keeps its heaviest conflict: a later conflict
// replaces the edge only when it weighs at least as much, or when it is the
// same conflict. Repeated pairs do not count again.
func (g *Graph) AddConflict(c *types.NormativeConflict) error {
	if err := c.Validate(); err != nil {
		return errors.NewValidationError("conflict", err.Error(), c.ID.String())
	}

	a := g.ensureNode(c.NormativeA)
	b := g.ensureNode(c.NormativeB)

	key := keyFor(c.NormativeA, c.NormativeB)
	weight := SeverityWeight(c.Severity)
	current, existed := g.edges[key]
	if !existed || current.Conflict.ID == c.ID || weight >= current.Weight {
		g.edges[key] = &Edge{
			Source:   c.NormativeA,
			Target:   c.NormativeB,
			Conflict: c.Clone(),
			Weight:   weight,
		}
	}

	a.connected[b.id] = struct{}{}
	b.connected[a.id] = struct{}{}
	if !existed {
		a.count++
		b.count++
	}
	return nil
}

func (g *Graph) ensureNode(id uuid.UUID) *node {
	n, ok := g.nodes[id]
	if !ok {
		n = &node{id: id, connected: make(map[uuid.UUID]struct{})}
		g.nodes[id] = n
	}
	return n
}

// AnalyzeCentrality recomputes every node's centrality as the share of the
// graph it is directly in conflict with.
func (g *Graph) AnalyzeCentrality() {
	total := float64(len(g.nodes))
	if total < 1 {
		total = 1
	}
	for _, n := range g.nodes {
		n.centrality = float64(len(n.connected)) / total
	}
}

// Node returns a snapshot of the node for a framework.
func (g *Graph) Node(id uuid.UUID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.snapshot(), true
}

// Centrality returns the last computed centrality of a framework; frameworks
// absent from the graph have none.
func (g *Graph) Centrality(id uuid.UUID) float64 {
	if n, ok := g.nodes[id]; ok {
		return n.centrality
	}
	return 0
}

// NodeCount returns the number of frameworks in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct conflicting pairs.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// IdentifyClusters returns the connected components with more than one
// framework, highest resolution priority first.
func (g *Graph) IdentifyClusters() []Cluster {
	adjacency := make(map[uuid.UUID][]uuid.UUID, len(g.nodes))
	for key := range g.edges {
		adjacency[key.lo] = append(adjacency[key.lo], key.hi)
		adjacency[key.hi] = append(adjacency[key.hi], key.lo)
	}

	visited := make(map[uuid.UUID]bool, len(g.nodes))
	clusters := []Cluster{}

	for _, start := range g.sortedNodeIDs() {
		if visited[start] {
			continue
		}

		members := map[uuid.UUID]struct{}{}
		stack := []uuid.UUID{start}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[current] {
				continue
			}
			visited[current] = true
			members[current] = struct{}{}
			for _, next := range adjacency[current] {
				if !visited[next] {
					stack = append(stack, next)
				}
			}
		}

		if len(members) > 1 {
			clusters = append(clusters, g.buildCluster(members))
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].ResolutionPriority != clusters[j].ResolutionPriority {
			return clusters[i].ResolutionPriority > clusters[j].ResolutionPriority
		}
		return clusters[i].Frameworks[0].String() < clusters[j].Frameworks[0].String()
	})
	return clusters
}

func (g *Graph) buildCluster(members map[uuid.UUID]struct{}) Cluster {
	cluster := Cluster{Frameworks: sortIDs(members)}

	var edges []*Edge
	for key, e := range g.edges {
		if _, ok := members[key.lo]; ok {
			edges = append(edges, e)
		}
	}
	sortEdges(edges)

	total := 0.0
	for _, e := range edges {
		cluster.Conflicts = append(cluster.Conflicts, e.Conflict.Clone())
		total += e.Weight
	}
	if len(edges) > 0 {
		cluster.ResolutionPriority = total / float64(len(edges))
	}
	return cluster
}

// MostCriticalConflicts returns up to n edges, heaviest first.
func (g *Graph) MostCriticalConflicts(n int) []Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sortEdges(edges)

	if n < 0 {
		n = 0
	}
	if n > len(edges) {
		n = len(edges)
	}
	out := make([]Edge, n)
	for i := 0; i < n; i++ {
		out[i] = *edges[i]
		out[i].Conflict = edges[i].Conflict.Clone()
	}
	return out
}

// HighCentralityFrameworks recomputes centrality and returns up to n nodes,
// most central first.
func (g *Graph) HighCentralityFrameworks(n int) []Node {
	g.AnalyzeCentrality()

	nodes := make([]*node, 0, len(g.nodes))
	for _, nd := range g.nodes {
		nodes = append(nodes, nd)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].centrality != nodes[j].centrality {
			return nodes[i].centrality > nodes[j].centrality
		}
		return nodes[i].id.String() < nodes[j].id.String()
	})

	if n < 0 {
		n = 0
	}
	if n > len(nodes) {
		n = len(nodes)
	}
	out := make([]Node, n)
	for i := 0; i < n; i++ {
		out[i] = nodes[i].snapshot()
	}
	return out
}

func (n *node) snapshot() Node {
	return Node{
		FrameworkID:   n.id,
		ConflictCount: n.count,
		Centrality:    n.centrality,
		ConnectedIDs:  sortIDs(n.connected),
	}
}

func (g *Graph) sortedNodeIDs() []uuid.UUID {
	set := make(map[uuid.UUID]struct{}, len(g.nodes))
	for id := range g.nodes {
		set[id] = struct{}{}
	}
	return sortIDs(set)
}

// sortEdges orders by weight descending, then by endpoint pair.
func sortEdges(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Weight != edges[j].Weight {
			return edges[i].Weight > edges[j].Weight
		}
		ki, kj := keyFor(edges[i].Source, edges[i].Target), keyFor(edges[j].Source, edges[j].Target)
		if ki.lo != kj.lo {
			return ki.lo.String() < kj.lo.String()
		}
		return ki.hi.String() < kj.hi.String()
	})
}

func sortIDs(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
