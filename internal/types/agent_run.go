package types

import "encoding/json"

// AgentRun is one entry of the agent's run history.
type AgentRun struct {
	ThreadID           string `json:"thread_id"`
	Query              string `json:"query_reported,omitempty"`
	Status             string `json:"status,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
	RecommendationText string `json:"recommendation_text,omitempty"`
	CreatedAt          string `json:"created_at,omitempty"`
}

// RunDocuments maps a collection label to the documents the agent touched.
type RunDocuments map[string]json.RawMessage
