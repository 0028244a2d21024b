package healer

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clixen/internal/api/graph"
)

func newTestEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

// emailWorkflowJSON is a graph that trips most rules at once: webhook without
// a path, email-intent HTTP node without a URL, and no response node.
const emailWorkflowJSON = `{
	"name": "Email Workflow",
	"nodes": [
		{"id": "1", "name": "Incoming Hook", "kind": "trigger.webhook"},
		{"id": "2", "name": "Send Email", "kind": "action.httpRequest"}
	],
	"connections": {
		"Incoming Hook": {"main": [[{"node": "Send Email", "type": "main", "index": 0}]]}
	}
}`

func TestHeal_EmailWorkflowScenario(t *testing.T) {
	engine := newTestEngine()
	ctx := testContext()

	result, err := engine.Heal([]byte(emailWorkflowJSON), ctx)
	require.NoError(t, err)

	// naming + webhook path + http default + email rewrite + response node
	require.Len(t, result.Fixes, 5)
	assert.Equal(t, "[USR-abc12345] Email Workflow", result.Graph.Name)
	assert.GreaterOrEqual(t, result.Confidence, 0.80)
	assert.LessOrEqual(t, result.Confidence, 0.95)

	rules := make([]string, 0, len(result.Fixes))
	for _, fix := range result.Fixes {
		rules = append(rules, fix.Rule)
	}
	assert.Equal(t, []string{
		"naming-isolation",
		"webhook-path",
		"http-endpoint-default",
		"email-provider",
		"webhook-response",
	}, rules)

	// The rewritten email node matches the provider's wire shape.
	email := result.Graph.Node("Send Email")
	require.NotNil(t, email)
	assert.Equal(t, ctx.Email.Endpoint, email.Parameters["url"])
	body := email.Parameters["body"].(map[string]any)
	for _, key := range []string{"from", "to", "subject", "html"} {
		assert.Contains(t, body, key)
	}
}

func TestHeal_ScheduleDefaultScenario(t *testing.T) {
	raw := []byte(`{
		"name": "Hourly Sync",
		"nodes": [{"id": "1", "name": "Timer", "kind": "trigger.schedule"}],
		"connections": {}
	}`)

	result, err := newTestEngine().Heal(raw, &Context{})
	require.NoError(t, err)

	require.Len(t, result.Fixes, 1)
	assert.Equal(t, "schedule-default", result.Fixes[0].Rule)
	assert.InDelta(t, 0.83, result.Confidence, 1e-9)

	timer := result.Graph.Node("Timer")
	require.NotNil(t, timer)
	assert.Contains(t, timer.Parameters, "rule")
}

func TestHeal_AlreadyValidGraph(t *testing.T) {
	raw := []byte(`{
		"name": "Valid",
		"nodes": [
			{"id": "1", "name": "Hook", "kind": "trigger.webhook", "parameters": {"path": "ready"}},
			{"id": "2", "name": "Reply", "kind": "action.respond", "parameters": {"respondWith": "json"}}
		],
		"connections": {
			"Hook": {"main": [[{"node": "Reply", "type": "main", "index": 0}]]}
		}
	}`)

	result, err := newTestEngine().Heal(raw, &Context{})
	require.NoError(t, err)
	assert.Empty(t, result.Fixes)
	assert.Equal(t, 0.80, result.Confidence)
	assert.Equal(t, "Valid", result.Graph.Name)
}

func TestHeal_MalformedInput(t *testing.T) {
	result, err := newTestEngine().Heal([]byte(`{"name": "X", "nodes": 42}`), testContext())
	require.Error(t, err)
	assert.Nil(t, result)

	var malformed *graph.MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestHeal_Idempotent(t *testing.T) {
	engine := newTestEngine()
	ctx := testContext()

	first, err := engine.Heal([]byte(emailWorkflowJSON), ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first.Fixes)

	healed, err := first.Graph.Marshal()
	require.NoError(t, err)

	second, err := engine.Heal(healed, ctx)
	require.NoError(t, err)
	assert.Empty(t, second.Fixes)
	assert.Equal(t, 0.80, second.Confidence)
}

func TestHeal_Deterministic(t *testing.T) {
	engine := newTestEngine()
	ctx := testContext()

	a, err := engine.Heal([]byte(emailWorkflowJSON), ctx)
	require.NoError(t, err)
	b, err := engine.Heal([]byte(emailWorkflowJSON), ctx)
	require.NoError(t, err)

	aGraph, err := a.Graph.Marshal()
	require.NoError(t, err)
	bGraph, err := b.Graph.Marshal()
	require.NoError(t, err)

	assert.Equal(t, string(aGraph), string(bGraph))
	assert.Equal(t, a.Fixes, b.Fixes)
	assert.Equal(t, a.Confidence, b.Confidence)
}

func TestHeal_NamingAppliedOnce(t *testing.T) {
	engine := newTestEngine()
	ctx := testContext()

	result, err := engine.Heal([]byte(emailWorkflowJSON), ctx)
	require.NoError(t, err)

	name := result.Graph.Name
	for i := 0; i < 3; i++ {
		healed, err := result.Graph.Marshal()
		require.NoError(t, err)
		result, err = engine.Heal(healed, ctx)
		require.NoError(t, err)
		assert.Equal(t, name, result.Graph.Name)
	}
}

func TestHeal_NoDanglingConnections(t *testing.T) {
	raw := []byte(`{
		"name": "Dangling",
		"nodes": [{"id": "1", "name": "Hook", "kind": "trigger.webhook"}],
		"connections": {
			"Hook": {"main": [[{"node": "Vanished", "type": "main", "index": 0}]]},
			"Nobody": {"main": [[{"node": "Hook", "type": "main", "index": 0}]]}
		}
	}`)

	result, err := newTestEngine().Heal(raw, testContext())
	require.NoError(t, err)

	known := map[string]bool{}
	for _, n := range result.Graph.Nodes {
		known[n.Name] = true
	}
	for src, outs := range result.Graph.Connections {
		assert.True(t, known[src], "source %q should exist", src)
		for _, port := range outs.Main {
			for _, link := range port {
				assert.True(t, known[link.Node], "target %q should exist", link.Node)
			}
		}
	}
}

func TestHeal_UnknownKindsSkipped(t *testing.T) {
	raw := []byte(`{
		"name": "Exotic",
		"nodes": [
			{"id": "1", "name": "Custom", "kind": "action.futureThing", "parameters": {"weird": true}},
			{"id": "2", "name": "Timer", "kind": "trigger.schedule"}
		],
		"connections": {}
	}`)

	result, err := newTestEngine().Heal(raw, &Context{})
	require.NoError(t, err)

	// Unknown node untouched, known node still healed.
	custom := result.Graph.Node("Custom")
	assert.Equal(t, map[string]any{"weird": true}, custom.Parameters)
	require.Len(t, result.Fixes, 1)
	assert.Equal(t, "schedule-default", result.Fixes[0].Rule)
}

func TestHeal_ConfidenceCapped(t *testing.T) {
	// Enough webhook nodes to overshoot the cap.
	nodes := []map[string]any{}
	for i := 0; i < 10; i++ {
		nodes = append(nodes, map[string]any{
			"id":   string(rune('a' + i)),
			"name": string(rune('A' + i)),
			"kind": "trigger.webhook",
		})
	}
	raw, err := json.Marshal(map[string]any{"name": "Many", "nodes": nodes, "connections": map[string]any{}})
	require.NoError(t, err)

	result, err := newTestEngine().Heal(raw, testContext())
	require.NoError(t, err)
	assert.Greater(t, len(result.Fixes), 5)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestHeal_ResultSerializedShape(t *testing.T) {
	result, err := newTestEngine().Heal([]byte(emailWorkflowJSON), testContext())
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "graph")
	assert.Contains(t, decoded, "fixes")
	assert.Contains(t, decoded, "confidence")

	var fixes []map[string]string
	require.NoError(t, json.Unmarshal(decoded["fixes"], &fixes))
	require.NotEmpty(t, fixes)
	for _, fix := range fixes {
		assert.Contains(t, fix, "rule")
		assert.Contains(t, fix, "target")
		assert.Contains(t, fix, "description")
	}
}
