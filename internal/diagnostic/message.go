package diagnostic

import "time"

const (
	RoleUser   = "user"
	RoleExpert = "expert"
)

// Source is a supporting citation attached to an expert reply.
type Source struct {
	Title string `json:"title,omitempty"`
	URI   string `json:"uri,omitempty"`
}

// Message is one conversational turn in a (user, expert) stream. Append
// order within the stream is authoritative; CreatedAt is advisory for
// display only.
type Message struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Text       string   `json:"text"`
	Image      string   `json:"image,omitempty"` // base64-encoded JPEG
	Sources    []Source `json:"sources,omitempty"`
	ExpertName string   `json:"expert_name"`
	CreatedAt  time.Time `json:"created_at"`
}
