/*
Package core contains the request and response types of the Milo agent API.

Key type categories:
- Chat API types (ChatRequest, ChatResponse)
- Service health (HealthResponse)
*/
package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Version is reported by the health endpoint. Overridden at build time with
// -ldflags "-X milo/core.Version=...".
var Version = "1.0.0"

// UserID identifies the caller whose wallet the agent acts for. Clients
// send it as a JSON number or string; numbers keep their literal text.
type UserID string

func (u *UserID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*u = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("userId must be a string or number")
	}
	*u = UserID(n.String())
	return nil
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Prompt string `json:"prompt"` // The user's message to the agent
	UserID UserID `json:"userId"` // Owner of the wallet the agent operates
}

// Missing returns the names of required parameters that are absent, null
// or empty, prompt first.
func (r ChatRequest) Missing() []string {
	var missing []string
	if r.Prompt == "" {
		missing = append(missing, "prompt")
	}
	if r.UserID == "" {
		missing = append(missing, "userId")
	}
	return missing
}

// ChatResponse is returned by POST /chat. Message is set on success and
// Error on failure.
type ChatResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"Status"`
	About   string `json:"About"`
	Version string `json:"Version"`
}
