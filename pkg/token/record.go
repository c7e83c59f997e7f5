package token

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// NodeRecord is one entry of the node array: [id, x, y, label, isCentral].
// The trailing central flag may be absent on input.
type NodeRecord struct {
	ID      string
	X, Y    float64
	Label   string
	Central bool
}

// ConnectionRecord is one entry of the connection array: [id1, id2].
type ConnectionRecord struct {
	A, B string
}

// Payload is the decoded token: [nodes, connections, darkMode]. DarkMode is
// nil when the token omits the third element.
type Payload struct {
	Nodes       []NodeRecord
	Connections []ConnectionRecord
	DarkMode    *bool
}

// MarshalJSON writes the record positionally. Coordinates are truncated to
// integers.
func (r NodeRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.ID, int64(r.X), int64(r.Y), r.Label, r.Central})
}

// UnmarshalJSON accepts ids as strings or numbers and null coordinates.
func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("node record: want an array, got %s", abbrev(data))
	}
	if len(fields) < 4 {
		return fmt.Errorf("node record: want at least 4 elements, got %d", len(fields))
	}
	id, err := decodeID(fields[0])
	if err != nil {
		return fmt.Errorf("node record: %w", err)
	}
	x, err := decodeCoord(fields[1])
	if err != nil {
		return fmt.Errorf("node %s: x: %w", id, err)
	}
	y, err := decodeCoord(fields[2])
	if err != nil {
		return fmt.Errorf("node %s: y: %w", id, err)
	}
	var label *string
	if err := json.Unmarshal(fields[3], &label); err != nil {
		return fmt.Errorf("node %s: label: %w", id, err)
	}
	var central bool
	if len(fields) > 4 && !isNull(fields[4]) {
		if err := json.Unmarshal(fields[4], &central); err != nil {
			return fmt.Errorf("node %s: central flag: %w", id, err)
		}
	}

	*r = NodeRecord{ID: id, X: x, Y: y, Central: central}
	if label != nil {
		r.Label = *label
	}
	return nil
}

// MarshalJSON writes the record positionally.
func (c ConnectionRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.A, c.B})
}

// UnmarshalJSON accepts ids as strings or numbers.
func (c *ConnectionRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return fmt.Errorf("connection record: want an array, got %s", abbrev(data))
	}
	if len(fields) < 2 {
		return fmt.Errorf("connection record: want 2 elements, got %d", len(fields))
	}
	a, err := decodeID(fields[0])
	if err != nil {
		return fmt.Errorf("connection record: %w", err)
	}
	b, err := decodeID(fields[1])
	if err != nil {
		return fmt.Errorf("connection record: %w", err)
	}
	*c = ConnectionRecord{A: a, B: b}
	return nil
}

// MarshalJSON writes the three-element array. A nil DarkMode is written as
// true, the default theme.
func (p Payload) MarshalJSON() ([]byte, error) {
	nodes, conns := p.Nodes, p.Connections
	if nodes == nil {
		nodes = []NodeRecord{}
	}
	if conns == nil {
		conns = []ConnectionRecord{}
	}
	dark := true
	if p.DarkMode != nil {
		dark = *p.DarkMode
	}
	return json.Marshal([]any{nodes, conns, dark})
}

// UnmarshalJSON requires an array of at least two elements.
func (p *Payload) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil || parts == nil {
		return fmt.Errorf("token is not an array")
	}
	if len(parts) < 2 {
		return fmt.Errorf("token has %d elements, want at least 2", len(parts))
	}

	var nodes, conns []json.RawMessage
	if err := json.Unmarshal(parts[0], &nodes); err != nil {
		return fmt.Errorf("nodes: %w", err)
	}
	if err := json.Unmarshal(parts[1], &conns); err != nil {
		return fmt.Errorf("connections: %w", err)
	}

	// Records are decoded one by one so null entries reach UnmarshalJSON
	// and fail instead of decoding to zero values.
	out := Payload{
		Nodes:       make([]NodeRecord, len(nodes)),
		Connections: make([]ConnectionRecord, len(conns)),
	}
	for i, raw := range nodes {
		if err := out.Nodes[i].UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	for i, raw := range conns {
		if err := out.Connections[i].UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("connections[%d]: %w", i, err)
		}
	}
	if len(parts) > 2 && !isNull(parts[2]) {
		var dark bool
		if err := json.Unmarshal(parts[2], &dark); err != nil {
			return fmt.Errorf("dark mode flag: %w", err)
		}
		out.DarkMode = &dark
	}
	*p = out
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", fmt.Errorf("id must not be null")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("id must be a string or number, got %s", raw)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

func decodeCoord(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("want a number, got %s", raw)
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// abbrev shortens raw JSON for error messages.
func abbrev(raw []byte) string {
	const limit = 32
	s := string(bytes.TrimSpace(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
