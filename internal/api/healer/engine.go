package healer

import (
	"github.com/rs/zerolog"

	"clixen/internal/api/graph"
)

const (
	confidenceFloor = 0.80
	confidenceCap   = 0.95
	confidenceStep  = 0.03
)

// Result is the outcome of one healing run. Fixes are in rule application
// order; Confidence stays within [0.80, 0.95] for any graph that healed.
type Result struct {
	Graph      *graph.Workflow `json:"graph"`
	Fixes      []Fix           `json:"fixes"`
	Confidence float64         `json:"confidence"`
}

// Engine applies the rule registry to one graph per call. It holds no mutable
// state, so a single Engine is safe to share across concurrent callers.
type Engine struct {
	rules  []Rule
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{rules: Registry(), logger: logger}
}

// Heal parses raw workflow JSON and repairs it under the given context. The
// same input and context always produce the same result; a parse failure
// surfaces as *graph.MalformedError with no partial result.
func (slf *Engine) Heal(raw []byte, ctx *Context) (*Result, error) {
	w, err := graph.Parse(raw)
	if err != nil {
		return nil, err
	}
	return slf.HealGraph(w, ctx), nil
}

// HealGraph runs every rule in registry order against an already-parsed
// graph, mutating it in place.
func (slf *Engine) HealGraph(w *graph.Workflow, ctx *Context) *Result {
	if ctx == nil {
		ctx = &Context{}
	}

	fixes := []Fix{}
	for _, rule := range slf.rules {
		applied := rule.Apply(w, ctx)
		for _, fix := range applied {
			slf.logger.Debug().
				Str("rule", fix.Rule).
				Str("target", fix.Target).
				Msg(fix.Description)
		}
		fixes = append(fixes, applied...)
	}

	return &Result{
		Graph:      w,
		Fixes:      fixes,
		Confidence: confidence(len(fixes)),
	}
}

// confidence encodes "more automatic repair means less certainty the original
// intent survived", floored at 0.80 and capped at 0.95.
func confidence(fixCount int) float64 {
	c := confidenceFloor + confidenceStep*float64(fixCount)
	if c > confidenceCap {
		return confidenceCap
	}
	return c
}
