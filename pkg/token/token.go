package token

import (
	"encoding/json"
	"time"

	errs "github.com/matzehuels/skilltree/pkg/errors"
	"github.com/matzehuels/skilltree/pkg/graph"
	"github.com/matzehuels/skilltree/pkg/observability"
)

// Result describes a successful import.
type Result struct {
	Nodes       int
	Connections int
	// Skipped counts connections dropped because an endpoint id was not
	// among the imported nodes.
	Skipped int
	// DarkMode is the theme carried by the token, nil when absent.
	DarkMode *bool
	Central  graph.NodeID
	Duration time.Duration
}

// Snapshot builds the payload for the current contents of s. Nodes are in
// store order and connections in creation order.
func Snapshot(s *graph.Store, darkMode bool) Payload {
	nodes := s.Nodes()
	conns := s.Connections()
	p := Payload{
		Nodes:       make([]NodeRecord, len(nodes)),
		Connections: make([]ConnectionRecord, len(conns)),
		DarkMode:    &darkMode,
	}
	for i, n := range nodes {
		p.Nodes[i] = NodeRecord{
			ID:      n.ID.String(),
			X:       n.Position.X,
			Y:       n.Position.Y,
			Label:   n.Label,
			Central: n.Central,
		}
	}
	for i, c := range conns {
		p.Connections[i] = ConnectionRecord{A: c.A.String(), B: c.B.String()}
	}
	return p
}

// Export serializes the store and theme flag to a token string.
func Export(s *graph.Store, darkMode bool) (string, error) {
	p := Snapshot(s, darkMode)
	data, err := json.Marshal(p)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInternal, err, "encode token")
	}
	observability.Token().OnExport(len(p.Nodes), len(p.Connections), len(data))
	return string(data), nil
}

// Decode parses a token without touching any store. Malformed input yields
// an INVALID_INPUT error.
func Decode(token string) (Payload, error) {
	if err := errs.ValidateToken(token); err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := p.UnmarshalJSON([]byte(token)); err != nil {
		return Payload{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid token")
	}
	return p, nil
}

// Import replaces the contents of s with the graph encoded in token.
//
// The graph is rebuilt in a scratch store with id allocation restarting at
// zero, serialized ids are remapped to the fresh ones, and connections whose
// endpoints are unknown are skipped. The first node flagged central becomes
// the central node; with none flagged the first node does. Only a fully
// built graph is swapped into s, so on error s is unchanged.
func Import(s *graph.Store, token string) (res Result, err error) {
	start := time.Now()
	defer func() {
		observability.Token().OnImport(res.Nodes, res.Connections, res.Skipped, err)
	}()

	p, err := Decode(token)
	if err != nil {
		return Result{}, err
	}
	scratch, res, err := Build(p, graph.WithFallbackLabel(s.FallbackLabel()), graph.WithDefaultSize(s.DefaultNodeSize()))
	if err != nil {
		return Result{}, err
	}
	s.Replace(scratch)
	res.Duration = time.Since(start)
	return res, nil
}

// Build constructs a new store from a decoded payload.
func Build(p Payload, opts ...graph.Option) (*graph.Store, Result, error) {
	if len(p.Nodes) == 0 {
		return nil, Result{}, errs.New(errs.ErrCodeInvalidInput, "token contains no nodes")
	}

	g := graph.New(opts...)
	remap := make(map[string]graph.NodeID, len(p.Nodes))
	var (
		central    graph.NodeID
		hasCentral bool
	)
	for _, n := range p.Nodes {
		id := g.CreateNode(graph.Point{X: n.X, Y: n.Y}, n.Label, graph.Size{}, false)
		if _, dup := remap[n.ID]; !dup {
			remap[n.ID] = id
		}
		if n.Central && !hasCentral {
			central, hasCentral = id, true
		}
	}
	if !hasCentral {
		central = g.NodeIDs()[0]
	}
	if err := g.SetCentral(central); err != nil {
		return nil, Result{}, err
	}

	res := Result{Nodes: g.NodeCount(), DarkMode: p.DarkMode, Central: central}
	for _, c := range p.Connections {
		a, okA := remap[c.A]
		b, okB := remap[c.B]
		if !okA || !okB {
			res.Skipped++
			continue
		}
		if _, err := g.CreateConnection(a, b); err != nil {
			return nil, Result{}, err
		}
	}
	res.Connections = g.ConnectionCount()
	return g, res, nil
}
