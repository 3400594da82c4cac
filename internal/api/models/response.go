package models

import "entsoe-agent/internal/agent"

type HealthResponse struct {
	Status      string `json:"status"`
	APITokenSet bool   `json:"api_token_set"`
}

// ToolListResponse is returned by GET /api/v1/tools.
type ToolListResponse struct {
	Instructions string       `json:"instructions"`
	Tools        []agent.Tool `json:"tools"`
}

type ToolResultResponse struct {
	Tool   string `json:"tool"`
	Result any    `json:"result"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
