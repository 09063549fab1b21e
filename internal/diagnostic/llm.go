package diagnostic

import "context"

// ChatTurn is one prior history turn handed to the expert client.
type ChatTurn struct {
	Role string `json:"role"` // RoleUser or RoleExpert
	Text string `json:"text"`
}

// ExpertRequest carries one invocation of the expert-response service: the
// fixed system instruction, the ordered prior turns, the new prompt, and an
// optional inline diagnostic photo.
type ExpertRequest struct {
	System      string
	History     []ChatTurn
	Prompt      string
	ImageBase64 string // JPEG payload, base64-encoded
}

// ExpertReply is the raw service response before fallback handling.
type ExpertReply struct {
	Text    string
	Sources []Source
}

// ExpertClient produces an expert-style reply for a single request. It
// performs no retries; resilience lives in the Invoker.
type ExpertClient interface {
	Generate(ctx context.Context, req ExpertRequest) (ExpertReply, error)
}
