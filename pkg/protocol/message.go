// Package protocol defines the cross-context messages exchanged between the
// inbox-side orchestration and the assistant-side adapter. The two sides
// share no memory; everything crossing the boundary is one of these typed
// messages. Every request carries an explicit RequestID so that out-of-band
// responses can be correlated without relying on "only one request at a
// time" as an implicit correlation rule.
package protocol

// Action identifies the purpose of a message.
type Action string

const (
	// ActionGetAnswer asks the broker to obtain an assistant reply for a
	// customer question. Answered with a Response carrying Answer or Error.
	ActionGetAnswer Action = "getAnswerFromChatGPT"

	// ActionAskQuestion hands a question to the assistant-page adapter. It
	// is acknowledged immediately with StatusProcessing; the reply arrives
	// later as a separate ActionAssistantResponse message.
	ActionAskQuestion Action = "askQuestion"

	// ActionAssistantResponse delivers the assistant's reply (or failure)
	// for an earlier ActionAskQuestion, matched by RequestID.
	ActionAssistantResponse Action = "chatGPTResponse"

	// ActionSettingsUpdated notifies that configuration changed and the
	// discovery scheduler should restart. Carries no payload.
	ActionSettingsUpdated Action = "settingsUpdated"

	// ActionResume restores scanning after a staged reply was reviewed.
	// It is the protocol form of the on-page resume control.
	ActionResume Action = "resumeProcessing"
)

// StatusProcessing is the immediate acknowledgement for ActionAskQuestion.
const StatusProcessing = "processing"

// Request is a message sent into the dispatcher.
type Request struct {
	Action         Action `json:"action"`
	RequestID      string `json:"requestId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	Question       string `json:"question,omitempty"`

	// Answer and Error are set on ActionAssistantResponse messages.
	Answer string `json:"answer,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Response is the reply to a Request. Exactly one of Answer, Error, or
// Status is meaningful depending on the request's action.
type Response struct {
	Answer   string `json:"answer,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
	Error    string `json:"error,omitempty"`
	Status   string `json:"status,omitempty"`
}
