package types

// DeliveryState identifies where a delivery job is in its lifecycle.
type DeliveryState string

const (
	DeliveryStateCreated   DeliveryState = "created"   // DeliveryStateCreated indicates the job exists but no attempt has started.
	DeliveryStateClicking  DeliveryState = "clicking"  // DeliveryStateClicking indicates the conversation preview is being re-opened.
	DeliveryStateVerifying DeliveryState = "verifying" // DeliveryStateVerifying indicates the opened thread is being checked against the job.
	DeliveryStateInjecting DeliveryState = "injecting" // DeliveryStateInjecting indicates the answer is being written into the reply input.
	DeliveryStateSubmitted DeliveryState = "submitted" // DeliveryStateSubmitted indicates the answer was sent.
	DeliveryStateStaged    DeliveryState = "staged"    // DeliveryStateStaged indicates the answer was drafted but left unsent (partial mode).
	DeliveryStateAborted   DeliveryState = "aborted"   // DeliveryStateAborted indicates a permanent, non-retryable abort.
	DeliveryStateFailed    DeliveryState = "failed"    // DeliveryStateFailed indicates the job was abandoned after exhausting retries.
)

// Terminal reports whether the state ends the job.
func (s DeliveryState) Terminal() bool {
	switch s {
	case DeliveryStateSubmitted, DeliveryStateStaged, DeliveryStateAborted, DeliveryStateFailed:
		return true
	}
	return false
}

// MaxDeliveryRetries bounds how many times a single delivery job may be
// attempted before it is abandoned.
const MaxDeliveryRetries = 2

// DeliveryJob represents "inject this answer into that conversation".
// At most one job exists at a time; its presence pauses discovery.
type DeliveryJob struct {
	// PreviewHandle is the conversation preview element recorded at
	// discovery time, used to re-open the thread.
	PreviewHandle ConversationHandle

	// ConversationID is the target conversation.
	ConversationID string

	// Sender is the customer name recorded when the question was scanned.
	// Delivery verifies the opened thread against it before injecting.
	Sender string

	// OriginalQuestionText is the customer message that was answered.
	OriginalQuestionText string

	// Answer is the assistant reply to deliver.
	Answer string

	// DedupeKey is the question's cache key, released again when the job
	// aborts because the thread was already answered.
	DedupeKey string

	// State is the job's current lifecycle state.
	State DeliveryState

	// Retries counts failed delivery attempts so far.
	Retries int
}

// NewDeliveryJob creates a job in the Created state for a question and its
// assistant answer.
func NewDeliveryJob(q PendingQuestion, answer string) *DeliveryJob {
	return &DeliveryJob{
		PreviewHandle:        q.Handle,
		ConversationID:       q.ConversationID,
		Sender:               q.Sender,
		OriginalQuestionText: q.Text,
		Answer:               answer,
		DedupeKey:            q.DedupeKey,
		State:                DeliveryStateCreated,
	}
}
