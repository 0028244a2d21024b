package request

import "encoding/json"

// HealWorkflow carries a raw graph to repair without saving it.
type HealWorkflow struct {
	Graph json.RawMessage `json:"graph" validate:"required"`
}

// CreateWorkflow carries a raw graph to heal and persist as a draft.
type CreateWorkflow struct {
	Graph json.RawMessage `json:"graph" validate:"required"`
}
