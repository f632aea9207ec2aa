// Package mailer is the mail provider capability boundary: list recent
// messages, fetch by id, move to trash, send a reply. Provider failures and
// "not found" are surfaced as distinct errors.
package mailer

import (
	"context"
	"errors"

	"mailpilot/internal/model"
)

var (
	// ErrNotFound reports that the referenced message does not exist.
	ErrNotFound = errors.New("email not found")
	// ErrProvider reports any other mail provider failure, including
	// timeouts and rate limits.
	ErrProvider = errors.New("mail provider error")
)

// Provider is the per-user mail capability. Implementations are bound to one
// account's credentials.
type Provider interface {
	ListRecent(ctx context.Context, n int) ([]model.Email, error)
	GetByID(ctx context.Context, id string) (model.Email, error)
	Trash(ctx context.Context, id string) error
	SendReply(ctx context.Context, to, subject, body, replyToID string) (string, error)
}

// Factory binds a Provider to one user's access token per request.
type Factory interface {
	ForToken(ctx context.Context, accessToken string) (Provider, error)
}
