package model

// Email is the full message as returned by the mail provider.
type Email struct {
	ID          string   `json:"id"`
	ThreadID    string   `json:"thread_id"`
	SenderName  string   `json:"sender_name"`
	SenderEmail string   `json:"sender_email"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Snippet     string   `json:"snippet"`
	Date        string   `json:"date"`
	Labels      []string `json:"labels,omitempty"`
}

// EmailRef is one entry of the session's email cache. Index is 1-based and
// stable for the lifetime of a cache generation.
type EmailRef struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
	Subject     string `json:"subject"`
	Summary     string `json:"summary"`
	Snippet     string `json:"snippet,omitempty"`
	Body        string `json:"body,omitempty"`
	Date        string `json:"date"`
}
