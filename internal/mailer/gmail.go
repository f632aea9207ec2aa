package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mailpilot/config"
	"mailpilot/internal/model"
	"mailpilot/pkg/metrics"
)

// GmailFactory builds Gmail-backed providers from per-user OAuth access
// tokens supplied by the auth layer.
type GmailFactory struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewGmailFactory(cfg config.GmailConfig, logger *zap.Logger) *GmailFactory {
	return &GmailFactory{timeout: cfg.Timeout, logger: logger}
}

func (f *GmailFactory) ForToken(ctx context.Context, accessToken string) (Provider, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("new gmail service: %w", err)
	}
	return &gmailProvider{svc: svc, timeout: f.timeout, logger: f.logger}, nil
}

type gmailProvider struct {
	svc     *gmail.Service
	timeout time.Duration
	logger  *zap.Logger
}

const gmailUser = "me"

func (p *gmailProvider) ListRecent(ctx context.Context, n int) ([]model.Email, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.svc.Users.Messages.List(gmailUser).
		LabelIds("INBOX").
		MaxResults(int64(n)).
		Context(ctx).
		Do()
	if err != nil {
		metrics.RecordMailProviderLatency("list", "error", time.Since(start))
		return nil, wrapGmailErr("list messages", err)
	}

	emails := make([]model.Email, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		e, err := p.fetch(ctx, m.Id)
		if err != nil {
			// A single unreadable message does not fail the listing.
			p.logger.Warn("fetch message failed", zap.String("id", m.Id), zap.Error(err))
			continue
		}
		emails = append(emails, e)
	}
	metrics.RecordMailProviderLatency("list", "ok", time.Since(start))
	return emails, nil
}

func (p *gmailProvider) GetByID(ctx context.Context, id string) (model.Email, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	e, err := p.fetch(ctx, id)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordMailProviderLatency("get", status, time.Since(start))
	return e, err
}

func (p *gmailProvider) fetch(ctx context.Context, id string) (model.Email, error) {
	m, err := p.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return model.Email{}, wrapGmailErr("get message", err)
	}

	e := model.Email{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "From":
				e.SenderName, e.SenderEmail = parseFrom(h.Value)
			case "Subject":
				e.Subject = h.Value
			case "Date":
				e.Date = h.Value
			}
		}
		e.Body = extractTextBody(m.Payload)
	}
	if e.Subject == "" {
		e.Subject = "(No Subject)"
	}
	return e, nil
}

func (p *gmailProvider) Trash(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	_, err := p.svc.Users.Messages.Trash(gmailUser, id).Context(ctx).Do()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordMailProviderLatency("trash", status, time.Since(start))
	if err != nil {
		return wrapGmailErr("trash message", err)
	}
	return nil
}

func (p *gmailProvider) SendReply(ctx context.Context, to, subject, body, replyToID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", to)
	fmt.Fprintf(&raw, "Subject: %s\r\n", subject)
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(body)

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw.String())),
	}

	// Replying within the original thread when we know it.
	if replyToID != "" {
		if orig, err := p.svc.Users.Messages.Get(gmailUser, replyToID).Format("minimal").Context(ctx).Do(); err == nil {
			msg.ThreadId = orig.ThreadId
		}
	}

	start := time.Now()
	sent, err := p.svc.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordMailProviderLatency("send", status, time.Since(start))
	if err != nil {
		return "", wrapGmailErr("send message", err)
	}
	return sent.Id, nil
}

// parseFrom splits a From header into display name and address.
func parseFrom(value string) (name, email string) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return value, value
	}
	if addr.Name == "" {
		return addr.Address, addr.Address
	}
	return addr.Name, addr.Address
}

// extractTextBody walks the payload for the first text/plain part.
func extractTextBody(part *gmail.MessagePart) string {
	if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}
	for _, sub := range part.Parts {
		if body := extractTextBody(sub); body != "" {
			return body
		}
	}
	return ""
}

func wrapGmailErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 404 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrProvider, err)
}
