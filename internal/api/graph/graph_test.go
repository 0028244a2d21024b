package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	raw := []byte(`{
		"name": "Email Workflow",
		"nodes": [
			{"id": "1", "name": "Webhook", "kind": "trigger.webhook", "position": [100, 200]},
			{"id": "2", "name": "Send Email", "kind": "action.httpRequest", "parameters": {"method": "POST"}}
		],
		"connections": {
			"Webhook": {"main": [[{"node": "Send Email", "type": "main", "index": 0}]]}
		}
	}`)

	w, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "Email Workflow", w.Name)
	require.Len(t, w.Nodes, 2)
	assert.Equal(t, KindWebhookTrigger, w.Nodes[0].Kind)
	assert.Equal(t, []float64{100, 200}, w.Nodes[0].Position)
	assert.Equal(t, "POST", w.Nodes[1].Parameters["method"])

	outs := w.Connections["Webhook"]
	require.Len(t, outs.Main, 1)
	require.Len(t, outs.Main[0], 1)
	assert.Equal(t, "Send Email", outs.Main[0][0].Node)
}

func TestParse_NodesNotArray(t *testing.T) {
	_, err := Parse([]byte(`{"name": "Bad", "nodes": {"oops": true}}`))
	require.Error(t, err)

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "nodes", malformed.Field)
	assert.Equal(t, -1, malformed.NodeIndex)
}

func TestParse_NodeWithoutIdentity(t *testing.T) {
	_, err := Parse([]byte(`{"name": "Bad", "nodes": [{"id": "1", "name": "A"}, {"kind": "action.setValues"}]}`))
	require.Error(t, err)

	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, malformed.NodeIndex)
}

func TestParse_NotJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestParse_MissingNodesAndConnections(t *testing.T) {
	w, err := Parse([]byte(`{"name": "Empty"}`))
	require.NoError(t, err)
	assert.Empty(t, w.Nodes)
	assert.NotNil(t, w.Connections)
}

func TestMarshal_RoundTripStable(t *testing.T) {
	raw := []byte(`{
		"name": "Stable",
		"nodes": [{"id": "1", "name": "Start", "kind": "trigger.manual", "parameters": {"a": 1}, "position": [0, 0]}],
		"connections": {}
	}`)

	w, err := Parse(raw)
	require.NoError(t, err)

	once, err := w.Marshal()
	require.NoError(t, err)

	again, err := Parse(once)
	require.NoError(t, err)
	twice, err := again.Marshal()
	require.NoError(t, err)

	assert.Equal(t, string(once), string(twice))
}

func TestTerminal(t *testing.T) {
	w := &Workflow{
		Nodes: []Node{
			{ID: "1", Name: "A", Kind: KindWebhookTrigger},
			{ID: "2", Name: "B", Kind: KindHTTPRequest},
		},
		Connections: Connections{},
	}
	w.Connect("A", "B")

	terminal := w.Terminal()
	require.NotNil(t, terminal)
	assert.Equal(t, "B", terminal.Name)

	// Everything has a successor: fall back to the last node.
	w.Connect("B", "A")
	assert.Equal(t, "B", w.Terminal().Name)
}

func TestTerminal_Empty(t *testing.T) {
	w := &Workflow{Connections: Connections{}}
	assert.Nil(t, w.Terminal())
}

func TestHasOutgoing(t *testing.T) {
	w := &Workflow{
		Nodes:       []Node{{ID: "1", Name: "A"}},
		Connections: Connections{"A": {Main: [][]Link{{}}}},
	}
	assert.False(t, w.HasOutgoing("A"))

	w.Connect("A", "B")
	assert.True(t, w.HasOutgoing("A"))
	assert.False(t, w.HasOutgoing("missing"))
}

func TestNodeParams(t *testing.T) {
	n := &Node{}
	_, ok := n.Param("url")
	assert.False(t, ok)

	n.SetParam("url", "https://example.com")
	v, ok := n.Param("url")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com", v)
}
