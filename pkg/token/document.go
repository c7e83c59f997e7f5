package token

// Document is a named-field view of a payload for human inspection. It is
// not accepted by Import.
type Document struct {
	Nodes       []DocumentNode       `json:"nodes" yaml:"nodes"`
	Connections []DocumentConnection `json:"connections" yaml:"connections"`
	DarkMode    *bool                `json:"dark_mode,omitempty" yaml:"dark_mode,omitempty"`
}

type DocumentNode struct {
	ID      string  `json:"id" yaml:"id"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Label   string  `json:"label" yaml:"label"`
	Central bool    `json:"central,omitempty" yaml:"central,omitempty"`
}

type DocumentConnection struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Document returns the named-field view of p.
func (p Payload) Document() Document {
	d := Document{
		Nodes:       make([]DocumentNode, len(p.Nodes)),
		Connections: make([]DocumentConnection, len(p.Connections)),
		DarkMode:    p.DarkMode,
	}
	for i, n := range p.Nodes {
		d.Nodes[i] = DocumentNode(n)
	}
	for i, c := range p.Connections {
		d.Connections[i] = DocumentConnection{From: c.A, To: c.B}
	}
	return d
}
