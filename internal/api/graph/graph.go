package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Node kinds the healer knows how to repair. The set is open: unknown kinds
// pass through untouched.
const (
	KindManualTrigger   = "trigger.manual"
	KindWebhookTrigger  = "trigger.webhook"
	KindScheduleTrigger = "trigger.schedule"
	KindHTTPRequest     = "action.httpRequest"
	KindSetValues       = "action.setValues"
	KindRespond         = "action.respond"
)

// Link is one outgoing edge: the target node's name plus the input port it
// lands on.
type Link struct {
	Node  string `json:"node"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// NodeOutputs groups a node's outgoing edges by output port, matching the
// execution engine's export format.
type NodeOutputs struct {
	Main [][]Link `json:"main"`
}

// Connections maps a source node's name to its outgoing edges.
type Connections map[string]NodeOutputs

// Node is one step of a workflow. Parameters is a loosely-typed bag whose
// well-known keys depend on Kind; Position is cosmetic and never validated.
type Node struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Position   []float64      `json:"position,omitempty"`
}

// Workflow is the in-memory form of one workflow definition.
type Workflow struct {
	Name        string      `json:"name"`
	Nodes       []Node      `json:"nodes"`
	Connections Connections `json:"connections"`
}

// MalformedError reports input that cannot be mapped onto a Workflow.
// NodeIndex is -1 when the defect is not tied to a specific node.
type MalformedError struct {
	Reason    string
	NodeIndex int
	Field     string
}

func (e *MalformedError) Error() string {
	if e.NodeIndex >= 0 {
		return fmt.Sprintf("malformed workflow: %s (node %d, field %q)", e.Reason, e.NodeIndex, e.Field)
	}
	return fmt.Sprintf("malformed workflow: %s", e.Reason)
}

type rawWorkflow struct {
	Name        string          `json:"name"`
	Nodes       json.RawMessage `json:"nodes"`
	Connections Connections     `json:"connections"`
}

// Parse maps raw JSON onto a Workflow. It performs no validation beyond the
// structural minimum: nodes must be an array and every node needs at least
// an id or a name. Everything else is the healer's job to supply.
func Parse(raw []byte) (*Workflow, error) {
	var rw rawWorkflow
	if err := json.Unmarshal(raw, &rw); err != nil {
		return nil, &MalformedError{Reason: "not a workflow object: " + err.Error(), NodeIndex: -1}
	}

	w := &Workflow{Name: rw.Name, Connections: rw.Connections}
	if w.Connections == nil {
		w.Connections = Connections{}
	}

	if len(rw.Nodes) > 0 && !bytes.Equal(bytes.TrimSpace(rw.Nodes), []byte("null")) {
		if err := json.Unmarshal(rw.Nodes, &w.Nodes); err != nil {
			return nil, &MalformedError{Reason: "nodes is not an array", NodeIndex: -1, Field: "nodes"}
		}
	}

	for i, n := range w.Nodes {
		if n.ID == "" && n.Name == "" {
			return nil, &MalformedError{Reason: "node has neither id nor name", NodeIndex: i, Field: "id"}
		}
	}

	return w, nil
}

// Marshal is the inverse of Parse. Map keys are emitted sorted, so output is
// deterministic and unmutated graphs round-trip stably.
func (w *Workflow) Marshal() ([]byte, error) {
	return json.Marshal(w)
}

// Node returns the node addressed by name, or nil.
func (w *Workflow) Node(name string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Name == name {
			return &w.Nodes[i]
		}
	}
	return nil
}

// HasKind reports whether any node carries the given kind.
func (w *Workflow) HasKind(kind string) bool {
	for i := range w.Nodes {
		if w.Nodes[i].Kind == kind {
			return true
		}
	}
	return false
}

// HasOutgoing reports whether the named node has at least one outgoing edge.
func (w *Workflow) HasOutgoing(name string) bool {
	outs, ok := w.Connections[name]
	if !ok {
		return false
	}
	for _, port := range outs.Main {
		if len(port) > 0 {
			return true
		}
	}
	return false
}

// Terminal returns the last node in definition order with no outgoing edges.
// Falls back to the last node when every node has a successor.
func (w *Workflow) Terminal() *Node {
	if len(w.Nodes) == 0 {
		return nil
	}
	for i := len(w.Nodes) - 1; i >= 0; i-- {
		if !w.HasOutgoing(w.Nodes[i].Name) {
			return &w.Nodes[i]
		}
	}
	return &w.Nodes[len(w.Nodes)-1]
}

// Connect appends an edge from src's first output port to dst's first input.
func (w *Workflow) Connect(src, dst string) {
	outs := w.Connections[src]
	if len(outs.Main) == 0 {
		outs.Main = [][]Link{{}}
	}
	outs.Main[0] = append(outs.Main[0], Link{Node: dst, Type: "main", Index: 0})
	w.Connections[src] = outs
}

// Param reads a parameter; ok is false when the key is absent or the bag is nil.
func (n *Node) Param(key string) (any, bool) {
	if n.Parameters == nil {
		return nil, false
	}
	v, ok := n.Parameters[key]
	return v, ok
}

// SetParam writes a parameter, allocating the bag on first use.
func (n *Node) SetParam(key string, value any) {
	if n.Parameters == nil {
		n.Parameters = map[string]any{}
	}
	n.Parameters[key] = value
}
