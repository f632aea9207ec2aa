package model

// ResponseType tags the envelope payload. The UI branches on it, so the set
// is closed: each type has exactly one payload shape.
type ResponseType string

const (
	TypeText         ResponseType = "text"
	TypeEmails       ResponseType = "emails"
	TypeCategories   ResponseType = "categories"
	TypeDigest       ResponseType = "digest"
	TypeDraft        ResponseType = "draft"
	TypeConfirmation ResponseType = "confirmation"
	TypeError        ResponseType = "error"
)

// PendingKind names the staged destructive action, if any.
type PendingKind string

const (
	PendingSend   PendingKind = "send"
	PendingDelete PendingKind = "delete"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// ResponseEnvelope is the sole output of one chat turn. PendingAction
// mirrors the session's pending action after the turn, or is empty.
type ResponseEnvelope struct {
	Message       string       `json:"message"`
	Type          ResponseType `json:"type"`
	Data          any          `json:"data,omitempty"`
	PendingAction PendingKind  `json:"pending_action,omitempty"`
}

// CategoryGroup groups cached emails under a model-suggested category.
type CategoryGroup struct {
	Category string     `json:"category"`
	Count    int        `json:"count"`
	Emails   []EmailRef `json:"emails"`
}

// KeyEmail marks a cache entry the digest considers important.
type KeyEmail struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// DigestPayload is the aggregate summary over the cached window.
type DigestPayload struct {
	Summary          string     `json:"summary"`
	KeyEmails        []KeyEmail `json:"key_emails"`
	SuggestedActions []string   `json:"suggested_actions"`
}

// DraftReply is a reply awaiting send confirmation.
type DraftReply struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ChatStatus is the body of GET /chat/status.
type ChatStatus struct {
	PendingAction    PendingKind `json:"pending_action,omitempty"`
	HasPending       bool        `json:"has_pending"`
	CachedEmailCount int         `json:"cached_email_count"`
}
