package bridge

import (
	"context"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

// InboxPort is the capability surface the core needs from the inbox page.
// Implementations own the page's DOM selectors; the core depends only on
// this interface so that a UI redesign is absorbed by swapping the
// implementation.
type InboxPort interface {
	// ScanUnread enumerates visible conversations and returns those that
	// are eligible for processing: sender detectable, marked unread and
	// not marked read, latest preview not operator-authored, not already
	// carrying an in-flight or processed marker, and not present in the
	// dedupe cache. Accepting a conversation marks it in-flight on the
	// page and records its key in the cache. An error on one conversation
	// must not abort the scan of the others.
	ScanUnread(ctx context.Context, dedupe *DedupeCache) ([]types.PendingQuestion, error)

	// OpenConversation clicks the conversation's preview element to make
	// its thread active. Returns ErrStaleTarget if the handle is detached.
	OpenConversation(ctx context.Context, h types.ConversationHandle) error

	// ActiveSenderName reports the display name shown for the currently
	// open thread. ok is false when the name anchor is absent, in which
	// case the check should be skipped rather than treated as a mismatch.
	ActiveSenderName(ctx context.Context) (name string, ok bool)

	// LastMessageFromCustomer reports whether the most recent message in
	// the open thread is customer-authored. ok is false when authorship
	// could not be determined.
	LastMessageFromCustomer(ctx context.Context) (fromCustomer bool, ok bool)

	// InjectReply writes text into the open thread's reply input and
	// dispatches the notifications the page needs to pick up the change.
	InjectReply(ctx context.Context, text string) error

	// ClickSend submits the drafted reply by clicking the enabled send
	// control. Returns ErrDeliveryFailed when no enabled control is
	// found; there is no keypress fallback on the inbox side.
	ClickSend(ctx context.Context) error

	// HasEnabledSend reports whether the open thread currently shows an
	// enabled send control. Staging a draft requires one so the operator
	// can actually send it.
	HasEnabledSend(ctx context.Context) bool

	// ClearPending removes the in-flight marker set by ScanUnread, making
	// the conversation eligible for rediscovery.
	ClearPending(h types.ConversationHandle)

	// MarkProcessed marks the conversation visibly as handled.
	MarkProcessed(h types.ConversationHandle)
}

// AssistantPort submits a prompt to the assistant and returns the generated
// reply text. Implementations must write the prompt verbatim, wait out the
// generation, and extract the newest assistant-authored reply; failures are
// reported as ErrInputNotFound, ErrSubmissionFailed, or ErrNoReplyExtracted.
type AssistantPort interface {
	Submit(ctx context.Context, prompt string) (string, error)

	// Ready blocks until the assistant page is loaded and interactive, or
	// the bounded wait expires. Returns ErrNoAssistantPage when no page
	// hosting the assistant UI exists.
	Ready(ctx context.Context) error
}
