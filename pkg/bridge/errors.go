package bridge

import "errors"

// Sentinel errors for the orchestration pipeline. Callers classify
// failures with errors.Is; the concrete messages wrapped around these
// carry the page-level detail.
var (
	// ErrBusy indicates the broker is already serving a request. Callers
	// should wait and retry on a later cycle, never queue.
	ErrBusy = errors.New("assistant request already in progress")

	// ErrNoAssistantPage indicates no open page hosts the assistant UI.
	// The broker never opens one itself.
	ErrNoAssistantPage = errors.New("no assistant page found")

	// ErrNoInboxPage indicates no open page hosts the inbox UI.
	ErrNoInboxPage = errors.New("no inbox page found")

	// ErrTimeout indicates the assistant did not answer within the budget.
	ErrTimeout = errors.New("assistant request timed out")

	// ErrInputNotFound indicates the assistant page's prompt input never
	// appeared within the bounded wait.
	ErrInputNotFound = errors.New("assistant input field not found")

	// ErrSubmissionFailed indicates the prompt could not be submitted:
	// the input still holds the original text and no control indicates a
	// pending state.
	ErrSubmissionFailed = errors.New("assistant submission failed")

	// ErrNoReplyExtracted indicates no non-empty reply text was found
	// after the wait budget.
	ErrNoReplyExtracted = errors.New("no assistant reply extracted")

	// ErrStaleTarget indicates the conversation's preview element is no
	// longer attached to the page. Permanent: identity cannot be
	// re-established, so the job is never retried.
	ErrStaleTarget = errors.New("conversation preview element is stale")

	// ErrSenderMismatch indicates the opened thread belongs to a different
	// sender than the job recorded. Permanent, to prevent cross-delivery.
	ErrSenderMismatch = errors.New("active conversation sender does not match job")

	// ErrNotCustomerTurn indicates the latest message in the opened thread
	// is operator-authored, meaning someone already replied. Permanent.
	ErrNotCustomerTurn = errors.New("latest message is not customer-authored")

	// ErrDeliveryFailed indicates a transient delivery failure, retried up
	// to the retry bound.
	ErrDeliveryFailed = errors.New("delivery attempt failed")
)

// permanentDeliveryError reports whether err aborts a delivery job without
// any further retries.
func permanentDeliveryError(err error) bool {
	return errors.Is(err, ErrStaleTarget) ||
		errors.Is(err, ErrSenderMismatch) ||
		errors.Is(err, ErrNotCustomerTurn)
}
