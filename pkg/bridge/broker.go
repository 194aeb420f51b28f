package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

// notFoundSentinel is the literal reply the assistant is instructed to give
// when it has no answer. The translation from literal to structured happens
// here and only here: everything downstream consults Answer.NotFound. A
// genuine reply that happens to equal this literal is indistinguishable
// from the sentinel at this boundary; that collision is accepted and
// confined to this single comparison.
const notFoundSentinel = "NOTFOUND"

// DefaultRequestTimeout bounds one assistant round trip.
const DefaultRequestTimeout = 60 * time.Second

// inFlightRequest is the single outstanding assistant query. The response
// channel is buffered so a late resolver never blocks.
type inFlightRequest struct {
	requestID string
	question  string
	createdAt time.Time
	response  chan result
	closeOnce sync.Once
}

type result struct {
	answer string
	err    error
}

// Broker relays one question at a time to the assistant page. It enforces
// global mutual exclusion on assistant requests: a second Ask issued while
// one is outstanding fails immediately with ErrBusy and never touches the
// stored request.
type Broker struct {
	assistant AssistantPort
	timeout   time.Duration
	log       *logging.Logger

	mu       sync.Mutex
	inFlight *inFlightRequest
}

// NewBroker creates a broker over the given assistant port. A zero timeout
// selects DefaultRequestTimeout.
func NewBroker(assistant AssistantPort, timeout time.Duration, log *logging.Logger) *Broker {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Broker{
		assistant: assistant,
		timeout:   timeout,
		log:       log,
	}
}

// Busy reports whether a request is currently outstanding.
func (b *Broker) Busy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight != nil
}

// Ask submits a question to the assistant and blocks until the reply
// arrives, the broker timeout expires, or ctx is canceled. The in-flight
// slot is always cleared on return, whatever the outcome.
func (b *Broker) Ask(ctx context.Context, question string) (types.Answer, error) {
	req, err := b.acquire(question)
	if err != nil {
		return types.Answer{}, err
	}
	defer b.release(req)

	// Locate and ready the assistant page before handing off. Never open
	// one: absence is surfaced as ErrNoAssistantPage for this cycle.
	if err := b.assistant.Ready(ctx); err != nil {
		b.log.Warnf("broker: assistant page not ready: %v", err)
		return types.Answer{}, err
	}

	go b.submit(ctx, req)

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return types.Answer{}, ctx.Err()
	case <-timer.C:
		b.log.Warnf("broker: request %s timed out after %s", req.requestID, b.timeout)
		return types.Answer{}, ErrTimeout
	case res, ok := <-req.response:
		if !ok {
			return types.Answer{}, ErrTimeout
		}
		if res.err != nil {
			return types.Answer{}, res.err
		}
		return translateReply(res.answer), nil
	}
}

// Resolve completes the in-flight request identified by requestID with an
// answer. Resolutions carrying an unknown or stale requestID are dropped.
func (b *Broker) Resolve(requestID, answer string) {
	b.deliver(requestID, result{answer: answer})
}

// Fail completes the in-flight request identified by requestID with an
// error.
func (b *Broker) Fail(requestID string, err error) {
	if err == nil {
		err = errors.New("assistant reported an unspecified error")
	}
	b.deliver(requestID, result{err: err})
}

// CurrentRequestID returns the outstanding request's correlation ID, or ""
// when the broker is idle.
func (b *Broker) CurrentRequestID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFlight == nil {
		return ""
	}
	return b.inFlight.requestID
}

func (b *Broker) acquire(question string) (*inFlightRequest, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight != nil {
		return nil, ErrBusy
	}

	req := &inFlightRequest{
		requestID: uuid.New().String(),
		question:  question,
		createdAt: time.Now(),
		response:  make(chan result, 1),
	}
	b.inFlight = req
	return req, nil
}

// release clears the in-flight slot and closes the response channel exactly
// once, so a resolver arriving after timeout finds no receiver instead of
// leaking into the next request.
func (b *Broker) release(req *inFlightRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFlight == req {
		b.inFlight = nil
	}
	// Closing under the lock so deliver never races the close.
	req.closeOnce.Do(func() {
		close(req.response)
	})
}

// submit drives the assistant adapter and reports the outcome through the
// broker's own resolution path, keeping the correlation rule uniform for
// in-process and out-of-band completions alike.
func (b *Broker) submit(ctx context.Context, req *inFlightRequest) {
	answer, err := b.assistant.Submit(ctx, req.question)
	if err != nil {
		b.Fail(req.requestID, fmt.Errorf("assistant submit: %w", err))
		return
	}
	b.Resolve(req.requestID, answer)
}

func (b *Broker) deliver(requestID string, res result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	req := b.inFlight
	if req == nil || req.requestID != requestID {
		b.log.Debugf("broker: dropping resolution for unknown request %s", requestID)
		return
	}

	// Non-blocking: the channel is buffered and may already hold a result.
	select {
	case req.response <- res:
	default:
	}
}

func translateReply(reply string) types.Answer {
	if strings.TrimSpace(reply) == notFoundSentinel {
		return types.Answer{NotFound: true}
	}
	return types.Answer{Text: reply}
}
