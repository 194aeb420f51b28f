package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

// DefaultRetryBackoff separates consecutive attempts on the same job.
const DefaultRetryBackoff = 5 * time.Second

// Pipeline delivers one answer into its conversation: re-open the thread,
// verify it is still the intended target, inject the reply, and submit or
// stage it. Transient failures re-enter at the clicking step up to the
// retry bound; verification failures abort permanently because retrying
// could deliver to the wrong person.
type Pipeline struct {
	inbox   InboxPort
	dedupe  *DedupeCache
	backoff time.Duration
	log     *logging.Logger
}

// NewPipeline creates a pipeline over the inbox port. A zero backoff
// selects DefaultRetryBackoff.
func NewPipeline(inbox InboxPort, dedupe *DedupeCache, backoff time.Duration, log *logging.Logger) *Pipeline {
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	return &Pipeline{
		inbox:   inbox,
		dedupe:  dedupe,
		backoff: backoff,
		log:     log,
	}
}

// Deliver runs the job to a terminal state. partial selects staging over
// sending. The job's State field records the outcome; the returned error is
// non-nil for Aborted and Failed outcomes.
func (p *Pipeline) Deliver(ctx context.Context, job *types.DeliveryJob, partial bool) error {
	for {
		err := p.attempt(ctx, job, partial)
		if err == nil {
			p.inbox.MarkProcessed(job.PreviewHandle)
			p.log.Infof("delivery: %s for conversation %s", job.State, job.ConversationID)
			return nil
		}

		if permanentDeliveryError(err) || errors.Is(err, context.Canceled) {
			job.State = types.DeliveryStateAborted
			p.log.Warnf("delivery: aborting conversation %s: %v", job.ConversationID, err)
			if errors.Is(err, ErrNotCustomerTurn) && job.DedupeKey != "" {
				// The thread was answered by someone else; let a later
				// customer message be rediscovered.
				p.dedupe.Forget(job.DedupeKey)
			}
			return err
		}

		job.Retries++
		if job.Retries >= types.MaxDeliveryRetries {
			job.State = types.DeliveryStateFailed
			p.log.Errorf("delivery: giving up on conversation %s after %d attempts: %v",
				job.ConversationID, job.Retries, err)
			return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}

		p.log.Warnf("delivery: attempt %d failed for conversation %s, retrying in %s: %v",
			job.Retries, job.ConversationID, p.backoff, err)
		select {
		case <-ctx.Done():
			job.State = types.DeliveryStateAborted
			return ctx.Err()
		case <-time.After(p.backoff):
		}
	}
}

// attempt runs a single pass through the state machine. A nil return means
// the job reached Submitted or Staged.
func (p *Pipeline) attempt(ctx context.Context, job *types.DeliveryJob, partial bool) error {
	job.State = types.DeliveryStateClicking
	if job.PreviewHandle == nil || !job.PreviewHandle.Attached() {
		return ErrStaleTarget
	}
	if err := p.inbox.OpenConversation(ctx, job.PreviewHandle); err != nil {
		return err
	}

	job.State = types.DeliveryStateVerifying
	if err := p.verify(ctx, job); err != nil {
		return err
	}

	job.State = types.DeliveryStateInjecting
	if err := p.inbox.InjectReply(ctx, job.Answer); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	if partial {
		if !p.inbox.HasEnabledSend(ctx) {
			return fmt.Errorf("%w: no enabled send control for the draft", ErrDeliveryFailed)
		}
		job.State = types.DeliveryStateStaged
		return nil
	}

	if err := p.inbox.ClickSend(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	job.State = types.DeliveryStateSubmitted
	return nil
}

// verify runs the two best-effort target checks. Each is skipped when its
// anchor element is absent, but a clear negative aborts: a sender mismatch
// means the click landed on a different thread, and an operator-authored
// latest message means someone already replied.
func (p *Pipeline) verify(ctx context.Context, job *types.DeliveryJob) error {
	if name, ok := p.inbox.ActiveSenderName(ctx); ok {
		if name != job.Sender {
			p.log.Errorf("delivery: clicked preview for %q but active thread is %q", job.Sender, name)
			return ErrSenderMismatch
		}
	} else {
		p.log.Warnf("delivery: active sender name not found, skipping identity check for %q", job.Sender)
	}

	if fromCustomer, ok := p.inbox.LastMessageFromCustomer(ctx); ok && !fromCustomer {
		return ErrNotCustomerTurn
	}
	return nil
}
