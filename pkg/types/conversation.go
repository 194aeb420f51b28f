package types

// ConversationHandle is an opaque reference to a conversation's clickable
// preview element on the inbox page. Handles are only valid for as long as
// the underlying element stays attached to the page; a detached handle must
// be treated as stale rather than re-resolved.
type ConversationHandle interface {
	// Attached reports whether the underlying element is still part of the page.
	Attached() bool
}

// Conversation is one customer's thread as discovered on the inbox page.
// Identity is best-effort: conversations are rediscovered on every scan and
// the ID may be re-derived differently across scans.
type Conversation struct {
	// Handle is the clickable preview element used to re-open the thread.
	Handle ConversationHandle

	// ID identifies the conversation. Derived, in priority order, from a
	// stable page attribute, a hash of the sender name, or a synthetic
	// per-scan value.
	ID string

	// SenderDisplayName is the customer's name as shown in the preview.
	SenderDisplayName string

	// LastUnreadText is the latest unread message preview text.
	LastUnreadText string
}

// PendingQuestion is a customer message selected for forwarding to the
// assistant. Created by discovery, consumed once by the broker, then
// discarded.
type PendingQuestion struct {
	// Handle is the preview element of the originating conversation.
	Handle ConversationHandle

	// ID identifies the question (derived from the conversation ID).
	ID string

	// ConversationID is the originating conversation's ID.
	ConversationID string

	// Sender is the customer's display name.
	Sender string

	// Text is the verbatim unread message text.
	Text string

	// DedupeKey is the composite key used to suppress reprocessing:
	// "conversationID|text" when the ID is stable, else "sender|text".
	DedupeKey string
}

// Answer is the structured result of one assistant request. The "no answer
// available" outcome is carried as a flag rather than a reserved reply
// string so that core logic never has to compare reply text against a
// sentinel value.
type Answer struct {
	// Text is the extracted reply. Empty when NotFound is set.
	Text string

	// NotFound reports that the assistant indicated it has no answer.
	NotFound bool
}
