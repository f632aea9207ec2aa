package engine

import (
	"fmt"

	"mailpilot/internal/model"
	"mailpilot/internal/session"
)

// Response composition: pure functions from an intent outcome and the
// post-turn session to the typed envelope. finalize is the single place the
// pending_action field is set, so it always mirrors the gate.

func finalize(env model.ResponseEnvelope, sess *session.Session) model.ResponseEnvelope {
	env.PendingAction = sess.PendingKind()
	return env
}

func textResponse(msg string) model.ResponseEnvelope {
	return model.ResponseEnvelope{Message: msg, Type: model.TypeText}
}

func errorResponse(msg string) model.ResponseEnvelope {
	return model.ResponseEnvelope{Message: msg, Type: model.TypeError}
}

func notFoundResponse(ref string) model.ResponseEnvelope {
	return textResponse(fmt.Sprintf(
		"I couldn't find an email matching '%s'. Try 'show my emails' first, then reference by number (e.g., '#1').", ref))
}

func nothingPendingResponse() model.ResponseEnvelope {
	return textResponse("No pending action to confirm. What would you like to do?")
}

func unknownResponse() model.ResponseEnvelope {
	return textResponse("I'm not sure what you'd like to do. Try:\n" +
		"• 'Show my emails'\n" +
		"• 'Reply to #1'\n" +
		"• 'Delete email from John'\n" +
		"• 'Organize my inbox'")
}

func greetingResponse() model.ResponseEnvelope {
	return textResponse("Hello! I'm your email assistant. I can help you read, reply to, " +
		"and manage your emails. Type 'show my emails' to get started, or 'help' to see all commands.")
}

func helpResponse() model.ResponseEnvelope {
	return textResponse(`Here's what I can do:

Read emails:
• "Show my emails"
• "Check my inbox"

Reply:
• "Reply to #1"
• "Reply to #2: Thanks for the update!"

Delete:
• "Delete #3"
• "Delete the email from LinkedIn"

Organize:
• "Categorize my inbox"
• "Group emails by type"

Daily digest:
• "Today's summary"
• "What's important today?"

Tips:
• Reference emails by number (#1, #2) after viewing them
• You can mention sender names or subjects
• I'll always ask for confirmation before sending or deleting`)
}
