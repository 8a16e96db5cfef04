package dto

import "encoding/json"

// CredentialRequest carries a provider secret and its per-provider config.
type CredentialRequest struct {
	Secret string          `json:"secret"`
	Config json.RawMessage `json:"config"`
}

// UpdateCredentialRequest leaves nil or absent fields unchanged.
type UpdateCredentialRequest struct {
	Secret *string         `json:"secret,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

type ConnectionTestResponse struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
}

type ExistsResponse struct {
	Provider string `json:"provider"`
	Exists   bool   `json:"exists"`
}
