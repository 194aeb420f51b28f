package bridge

import (
	"context"
	"sync"
	"testing"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, _ := logging.NewLogger("test")
	t.Cleanup(func() { log.Close() })
	return log
}

// fakeHandle is a conversation handle whose attachment state tests control.
type fakeHandle struct {
	mu       sync.Mutex
	attached bool
}

func (h *fakeHandle) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.attached
}

func (h *fakeHandle) detach() {
	h.mu.Lock()
	h.attached = false
	h.mu.Unlock()
}

// fakeInbox implements InboxPort in memory. ScanUnread applies the same
// dedupe contract as the real page driver: known keys are skipped and
// accepted keys are recorded.
type fakeInbox struct {
	mu        sync.Mutex
	questions []types.PendingQuestion
	scanErr   error
	scans     int

	openErr          error
	opened           int
	sender           string
	senderOK         bool
	lastFromCustomer bool
	turnOK           bool

	injectErr   error
	injected    []string
	sendErr     error
	sendEnabled bool
	sent        int
	cleared     int
	processed   int
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{sendEnabled: true}
}

func (f *fakeInbox) ScanUnread(ctx context.Context, dedupe *DedupeCache) ([]types.PendingQuestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []types.PendingQuestion
	for _, q := range f.questions {
		if dedupe.Dispatched(q.DedupeKey) || dedupe.NotFound(q.DedupeKey) {
			continue
		}
		dedupe.MarkDispatched(q.DedupeKey)
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeInbox) OpenConversation(ctx context.Context, h types.ConversationHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened++
	return f.openErr
}

func (f *fakeInbox) ActiveSenderName(ctx context.Context) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sender, f.senderOK
}

func (f *fakeInbox) LastMessageFromCustomer(ctx context.Context) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFromCustomer, f.turnOK
}

func (f *fakeInbox) InjectReply(ctx context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.injectErr != nil {
		return f.injectErr
	}
	f.injected = append(f.injected, text)
	return nil
}

func (f *fakeInbox) ClickSend(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent++
	return nil
}

func (f *fakeInbox) HasEnabledSend(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendEnabled
}

func (f *fakeInbox) ClearPending(h types.ConversationHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeInbox) MarkProcessed(h types.ConversationHandle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
}

func (f *fakeInbox) scanCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans
}

func (f *fakeInbox) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func (f *fakeInbox) injectedReplies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.injected...)
}

// fakeAssistant implements AssistantPort with scripted replies. Replies
// and errors are consumed in submission order.
type fakeAssistant struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	readyErr error
	prompts  []string

	// block, when non-nil, makes Submit wait until the channel closes.
	block chan struct{}
}

func (f *fakeAssistant) Ready(ctx context.Context) error {
	return f.readyErr
}

func (f *fakeAssistant) Submit(ctx context.Context, prompt string) (string, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	i := len(f.prompts) - 1

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", ErrNoReplyExtracted
}

func (f *fakeAssistant) submittedPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// fakeSettings is a Settings implementation tests can flip.
type fakeSettings struct {
	mu      sync.Mutex
	enabled bool
	partial bool
}

func (s *fakeSettings) AutomationEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *fakeSettings) PartialAutomation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial
}

func (s *fakeSettings) set(enabled, partial bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.partial = partial
	s.mu.Unlock()
}

func question(id, sender, text string) types.PendingQuestion {
	return types.PendingQuestion{
		Handle:         &fakeHandle{attached: true},
		ID:             id,
		ConversationID: id,
		Sender:         sender,
		Text:           text,
		DedupeKey:      DedupeKey(id, sender, text, true),
	}
}
