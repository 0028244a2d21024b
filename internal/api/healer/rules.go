package healer

import (
	"fmt"
	"sort"
	"strings"

	"clixen/internal/api/graph"
)

// Fix records one change a rule made. Target is the node name, or "graph"
// for whole-graph changes.
type Fix struct {
	Rule        string `json:"rule"`
	Target      string `json:"target"`
	Description string `json:"description"`
}

// Rule examines one structural concern and repairs it in place. Rules must be
// idempotent: re-applying a rule to its own output yields zero fixes.
type Rule interface {
	Name() string
	Apply(w *graph.Workflow, ctx *Context) []Fix
}

const (
	userPrefix           = "[USR-"
	defaultRequestURL    = "https://httpbin.org/get"
	defaultEmailEndpoint = "https://api.resend.com/emails"
	defaultEmailFrom     = "noreply@clixen.app"
)

// namingRule prefixes the workflow name with the caller's isolation tag so
// two tenants' workflows never collide by name on the shared engine.
type namingRule struct{}

func (namingRule) Name() string { return "naming-isolation" }

func (r namingRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	tag := ctx.Tag()
	if tag == "" || strings.HasPrefix(w.Name, userPrefix) {
		return nil
	}
	w.Name = fmt.Sprintf("%s%s] %s", userPrefix, tag, w.Name)
	return []Fix{{
		Rule:        r.Name(),
		Target:      "graph",
		Description: fmt.Sprintf("prefixed workflow name with user tag %s", tag),
	}}
}

// webhookPathRule supplies a path for webhook triggers that lack one. Paths
// derive from the context seed, not the wall clock, and carry the isolation
// tag so callers' webhooks never collide.
type webhookPathRule struct{}

func (webhookPathRule) Name() string { return "webhook-path" }

func (r webhookPathRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	var fixes []Fix
	next := ctx.Seed
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.Kind != graph.KindWebhookTrigger {
			continue
		}
		if _, ok := n.Param("path"); ok {
			continue
		}
		path := fmt.Sprintf("hook-%d", next)
		if tag := ctx.Tag(); tag != "" {
			path = fmt.Sprintf("%s-%s", tag, path)
		}
		next++
		n.SetParam("path", path)
		fixes = append(fixes, Fix{
			Rule:        r.Name(),
			Target:      n.Name,
			Description: fmt.Sprintf("generated webhook path %q", path),
		})
	}
	return fixes
}

// scheduleRule gives schedule triggers without a rule a safe hourly default.
type scheduleRule struct{}

func (scheduleRule) Name() string { return "schedule-default" }

func (r scheduleRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	var fixes []Fix
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.Kind != graph.KindScheduleTrigger {
			continue
		}
		if _, ok := n.Param("rule"); ok {
			continue
		}
		n.SetParam("rule", map[string]any{
			"interval": []any{
				map[string]any{"field": "hours", "hoursInterval": 1},
			},
		})
		fixes = append(fixes, Fix{
			Rule:        r.Name(),
			Target:      n.Name,
			Description: "applied default hourly schedule",
		})
	}
	return fixes
}

// httpEndpointRule fills missing HTTP request URLs with a harmless
// placeholder so the graph stays executable.
type httpEndpointRule struct{}

func (httpEndpointRule) Name() string { return "http-endpoint-default" }

func (r httpEndpointRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	var fixes []Fix
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.Kind != graph.KindHTTPRequest {
			continue
		}
		if _, ok := n.Param("url"); ok {
			continue
		}
		n.SetParam("url", defaultRequestURL)
		fixes = append(fixes, Fix{
			Rule:        r.Name(),
			Target:      n.Name,
			Description: "set placeholder request URL",
		})
	}
	return fixes
}

// emailRewriteRule points generic HTTP nodes with an email-sending intent at
// the configured transactional email provider, with bearer auth from the
// context and the provider's structured request body.
type emailRewriteRule struct{}

func (emailRewriteRule) Name() string { return "email-provider" }

func (r emailRewriteRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	endpoint := ctx.Email.Endpoint
	if endpoint == "" {
		endpoint = defaultEmailEndpoint
	}
	from := ctx.Email.From
	if from == "" {
		from = defaultEmailFrom
	}

	var fixes []Fix
	for i := range w.Nodes {
		n := &w.Nodes[i]
		if n.Kind != graph.KindHTTPRequest {
			continue
		}
		if !strings.Contains(strings.ToLower(n.Name), "email") {
			continue
		}
		if url, _ := n.Param("url"); url == endpoint {
			continue
		}

		body := map[string]any{"from": from, "to": "", "subject": "", "html": ""}
		if prev, ok := n.Param("body"); ok {
			if prevMap, ok := prev.(map[string]any); ok {
				for _, key := range []string{"to", "subject", "html"} {
					if v, ok := prevMap[key]; ok {
						body[key] = v
					}
				}
			}
		}

		n.SetParam("url", endpoint)
		n.SetParam("method", "POST")
		n.SetParam("authentication", "bearer")
		n.SetParam("bearerToken", ctx.Email.APIKey)
		n.SetParam("body", body)
		fixes = append(fixes, Fix{
			Rule:        r.Name(),
			Target:      n.Name,
			Description: "configured email provider",
		})
	}
	return fixes
}

// responseRule appends a response node after the terminal node when a webhook
// trigger exists but nothing answers the caller.
type responseRule struct{}

func (responseRule) Name() string { return "webhook-response" }

func (r responseRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	if !w.HasKind(graph.KindWebhookTrigger) || w.HasKind(graph.KindRespond) {
		return nil
	}
	terminal := w.Terminal()
	if terminal == nil {
		return nil
	}

	// Node names are addressing keys; step past any node already using the
	// default.
	name, id := "Webhook Response", "webhook-response"
	for i := 2; w.Node(name) != nil; i++ {
		name = fmt.Sprintf("Webhook Response %d", i)
		id = fmt.Sprintf("webhook-response-%d", i)
	}

	respond := graph.Node{
		ID:   id,
		Name: name,
		Kind: graph.KindRespond,
		Parameters: map[string]any{
			"respondWith":  "json",
			"responseBody": map[string]any{"status": "success"},
		},
	}
	terminalName := terminal.Name
	w.Nodes = append(w.Nodes, respond)
	w.Connect(terminalName, respond.Name)

	return []Fix{{
		Rule:        r.Name(),
		Target:      respond.Name,
		Description: "added webhook response handler",
	}}
}

// pruneRule removes connections that reference nodes which do not exist. It
// runs last so it sees the final node set.
type pruneRule struct{}

func (pruneRule) Name() string { return "connection-prune" }

func (r pruneRule) Apply(w *graph.Workflow, ctx *Context) []Fix {
	known := make(map[string]bool, len(w.Nodes))
	for i := range w.Nodes {
		known[w.Nodes[i].Name] = true
	}

	// Sorted keys keep fix order deterministic.
	sources := make([]string, 0, len(w.Connections))
	for src := range w.Connections {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var fixes []Fix
	for _, src := range sources {
		if !known[src] {
			delete(w.Connections, src)
			fixes = append(fixes, Fix{
				Rule:        r.Name(),
				Target:      src,
				Description: "removed connections from unknown node",
			})
			continue
		}
		outs := w.Connections[src]
		changed := false
		for p, port := range outs.Main {
			kept := port[:0]
			for _, link := range port {
				if known[link.Node] {
					kept = append(kept, link)
					continue
				}
				changed = true
				fixes = append(fixes, Fix{
					Rule:        r.Name(),
					Target:      src,
					Description: fmt.Sprintf("removed dangling connection to %q", link.Node),
				})
			}
			outs.Main[p] = kept
		}
		if changed {
			w.Connections[src] = outs
		}
	}
	return fixes
}

// Registry returns the rules in their mandatory order: later rules depend on
// the structural guarantees of earlier ones.
func Registry() []Rule {
	return []Rule{
		namingRule{},
		webhookPathRule{},
		scheduleRule{},
		httpEndpointRule{},
		emailRewriteRule{},
		responseRule{},
		pruneRule{},
	}
}
