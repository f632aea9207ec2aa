package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mailpilot/internal/model"
)

// Prompt builders for the engine's model tasks. Each task constrains the
// model output; JSON-shaped replies are parsed defensively and a shape
// mismatch is reported as ErrBadResponse, never propagated raw.

const intentSystem = `You are an AI assistant for an email application. Parse the user's message and extract their intent.

Available intents:
- LIST: user wants to see/check/fetch emails
- SUMMARIZE: user wants a summary of one specific email
- REPLY: user wants to reply to an email
- DELETE: user wants to delete an email
- CATEGORIZE: user wants to organize/group emails
- DIGEST: user wants a summary of today's emails
- CONFIRM: user is confirming a pending action
- CANCEL: user is canceling a pending action
- HELP: user wants to know what they can do
- GREETING: user is greeting
- UNKNOWN: cannot determine intent

Extract parameters: email_ref, reply_content, count, query.

Respond ONLY in JSON:
{"intent": "NAME", "confidence": 0.0-1.0, "params": {"email_ref": "", "reply_content": "", "count": 0, "query": ""}}`

// IntentResult is the model's classification of one message.
type IntentResult struct {
	Intent     string       `json:"intent"`
	Confidence float64      `json:"confidence"`
	Params     IntentParams `json:"params"`
}

type IntentParams struct {
	EmailRef     string `json:"email_ref"`
	ReplyContent string `json:"reply_content"`
	Count        int    `json:"count"`
	Query        string `json:"query"`
}

// ClassifyIntent asks the model for a constrained intent label plus slots.
func ClassifyIntent(ctx context.Context, c Completer, message string, hasPending bool) (IntentResult, error) {
	system := intentSystem
	if hasPending {
		system += "\nNote: a pending action exists. 'yes/ok' = CONFIRM, 'no/cancel' = CANCEL."
	}

	text, err := c.Complete(ctx, system, message, Options{MaxTokens: 200, Temperature: 0.1})
	if err != nil {
		return IntentResult{}, err
	}

	var result IntentResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return IntentResult{}, fmt.Errorf("%w: intent json: %v", ErrBadResponse, err)
	}
	if result.Intent == "" {
		return IntentResult{}, fmt.Errorf("%w: missing intent label", ErrBadResponse)
	}
	return result, nil
}

// SummarizeEmail produces a 1-2 sentence summary of one email.
func SummarizeEmail(ctx context.Context, c Completer, e model.Email) (string, error) {
	body := e.Body
	if body == "" {
		body = e.Snippet
	}
	if len(body) > 2000 {
		body = body[:2000]
	}

	prompt := fmt.Sprintf(`Summarize this email in 1-2 sentences:

From: %s <%s>
Subject: %s
Date: %s

%s

Summary:`, e.SenderName, e.SenderEmail, e.Subject, e.Date, body)

	return c.Complete(ctx, "You are an email summarizer. Be concise.", prompt,
		Options{MaxTokens: 100, Temperature: 0.3})
}

// GenerateReply drafts a reply body for the target email. The instruction
// is the user's tone/content hint; when empty a polite default is used.
func GenerateReply(ctx context.Context, c Completer, ref model.EmailRef, instruction string) (string, error) {
	body := ref.Body
	if body == "" {
		body = ref.Snippet
	}
	if len(body) > 1500 {
		body = body[:1500]
	}
	if instruction == "" {
		instruction = "Write a polite, appropriate response"
	}

	prompt := fmt.Sprintf(`Generate a professional email reply.

Original Email:
From: %s <%s>
Subject: %s
Content: %s

User's instruction: %s

Reply (body only, no subject):`, ref.SenderName, ref.SenderEmail, ref.Subject, body, instruction)

	system := `You are an email writer. Generate professional but friendly replies.
- Be concise
- Match the tone of the original
- Sign off naturally`

	return c.Complete(ctx, system, prompt, Options{MaxTokens: 300, Temperature: 0.7})
}

const categorizeSystem = `Categorize emails into groups like Work, Personal, Promotions, Updates, Finance, Urgent.
Respond ONLY in JSON: {"categories": [{"name": "...", "email_indices": [1,2], "summary": "..."}]}`

// CategoryResult is one model-suggested group over cache indices.
type CategoryResult struct {
	Name         string `json:"name"`
	EmailIndices []int  `json:"email_indices"`
	Summary      string `json:"summary"`
}

// CategorizeEmails groups the cached window into categories.
func CategorizeEmails(ctx context.Context, c Completer, refs []model.EmailRef) ([]CategoryResult, error) {
	prompt := "Categorize these emails:\n" + renderRefs(refs)

	text, err := c.Complete(ctx, categorizeSystem, prompt, Options{MaxTokens: 400, Temperature: 0.2})
	if err != nil {
		return nil, err
	}

	var result struct {
		Categories []CategoryResult `json:"categories"`
	}
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return nil, fmt.Errorf("%w: categories json: %v", ErrBadResponse, err)
	}
	return result.Categories, nil
}

const digestSystem = `Create a brief daily email digest.
Respond ONLY in JSON:
{"summary": "...", "key_emails": [{"index": 1, "reason": "..."}], "suggested_actions": ["..."]}`

// DigestResult is the model's aggregate view of the cached window.
type DigestResult struct {
	Summary   string `json:"summary"`
	KeyEmails []struct {
		Index  int    `json:"index"`
		Reason string `json:"reason"`
	} `json:"key_emails"`
	SuggestedActions []string `json:"suggested_actions"`
}

// GenerateDigest produces an overall summary plus key emails and actions.
func GenerateDigest(ctx context.Context, c Completer, refs []model.EmailRef) (DigestResult, error) {
	prompt := "Create a digest for these emails:\n" + renderRefs(refs)

	text, err := c.Complete(ctx, digestSystem, prompt, Options{MaxTokens: 400, Temperature: 0.3})
	if err != nil {
		return DigestResult{}, err
	}

	var result DigestResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return DigestResult{}, fmt.Errorf("%w: digest json: %v", ErrBadResponse, err)
	}
	return result, nil
}

func renderRefs(refs []model.EmailRef) string {
	var sb strings.Builder
	for _, ref := range refs {
		preview := ref.Summary
		if preview == "" {
			preview = ref.Snippet
		}
		if len(preview) > 100 {
			preview = preview[:100]
		}
		fmt.Fprintf(&sb, "\n%d. From: %s\n   Subject: %s\n   Preview: %s\n",
			ref.Index, ref.SenderName, ref.Subject, preview)
	}
	return sb.String()
}

// extractJSON strips markdown code fences that models wrap around JSON.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Fall back to the outermost object when extra prose surrounds it.
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			text = text[start : end+1]
		}
	}
	return text
}
