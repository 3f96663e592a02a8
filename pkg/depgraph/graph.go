package depgraph

import (
	"errors"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists. Node IDs are unique within one snapshot.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddLink] when the Source
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddLink] when the Target
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidLinkEndpoint is returned by [Graph.Validate] when a link
	// references a node that doesn't exist. This indicates graph corruption.
	ErrInvalidLinkEndpoint = errors.New("invalid link endpoint")
)

// Graph is one immutable-by-convention dependency snapshot.
//
// Nodes live in an arena slice in insertion order with an id-indexed lookup
// table; links are only added once both endpoints exist, so referential
// integrity holds by construction. Graphs are recomputed wholesale from a
// manifest snapshot on every analysis request and are never mutated after
// the feature pass; they are not safe for concurrent mutation.
type Graph struct {
	nodes []*Node
	index map[string]int
	links []Link
	diags []Diagnostic
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// AddNode adds a node to the arena. Returns ErrInvalidNodeID for an empty id
// or ErrDuplicateNodeID if the id is already present.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if n.ID == "" {
		return nil, ErrInvalidNodeID
	}
	if _, exists := g.index[n.ID]; exists {
		return nil, ErrDuplicateNodeID
	}
	node := &n
	g.index[node.ID] = len(g.nodes)
	g.nodes = append(g.nodes, node)
	return node, nil
}

// Node returns the node with the given id, or nil and false if not found.
// The returned pointer refers to the arena node, so flag updates are visible
// to later passes.
func (g *Graph) Node(id string) (*Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return nil, false
	}
	return g.nodes[i], true
}

// AddLink adds a directed link between two existing nodes.
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint is
// missing; the link is not recorded in that case.
func (g *Graph) AddLink(l Link) error {
	if _, ok := g.index[l.Source]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.index[l.Target]; !ok {
		return ErrUnknownTargetNode
	}
	g.links = append(g.links, l)
	return nil
}

// HasLink reports whether a link with the given endpoints and type exists.
func (g *Graph) HasLink(source, target string, typ LinkType) bool {
	for _, l := range g.links {
		if l.Source == source && l.Target == target && l.Type == typ {
			return true
		}
	}
	return false
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Links returns all links in insertion order.
func (g *Graph) Links() []Link { return g.links }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.links) }

// Crates returns the crate nodes in insertion order.
func (g *Graph) Crates() []*Node { return g.nodesOfKind(KindCrate) }

// Features returns the feature nodes in insertion order.
func (g *Graph) Features() []*Node { return g.nodesOfKind(KindFeature) }

func (g *Graph) nodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Outgoing returns the links whose source is the given node id.
func (g *Graph) Outgoing(id string) []Link {
	var out []Link
	for _, l := range g.links {
		if l.Source == id {
			out = append(out, l)
		}
	}
	return out
}

// Diagnostics returns the warnings collected while building the graph:
// skipped malformed entries and dropped unresolvable feature requirements.
func (g *Graph) Diagnostics() []Diagnostic { return g.diags }

func (g *Graph) addDiagnostic(d Diagnostic) { g.diags = append(g.diags, d) }

// Validate checks referential integrity: every link's source and target must
// resolve to a node id present in the snapshot. Returns
// ErrInvalidLinkEndpoint on the first violation.
func (g *Graph) Validate() error {
	for _, l := range g.links {
		if _, ok := g.index[l.Source]; !ok {
			return ErrInvalidLinkEndpoint
		}
		if _, ok := g.index[l.Target]; !ok {
			return ErrInvalidLinkEndpoint
		}
	}
	return nil
}

// Snapshot is the serializable form of a graph, grouping node ids by variant
// for consumers that render crates and features separately.
type Snapshot struct {
	Nodes       []*Node      `json:"nodes"`
	Links       []Link       `json:"links"`
	Crates      []string     `json:"crates"`
	Features    []string     `json:"features"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Snapshot returns the serializable form of the graph.
func (g *Graph) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:       g.nodes,
		Links:       g.links,
		Diagnostics: g.diags,
	}
	if s.Nodes == nil {
		s.Nodes = []*Node{}
	}
	if s.Links == nil {
		s.Links = []Link{}
	}
	for _, n := range g.nodes {
		switch n.Kind {
		case KindFeature:
			s.Features = append(s.Features, n.ID)
		default:
			s.Crates = append(s.Crates, n.ID)
		}
	}
	return s
}
