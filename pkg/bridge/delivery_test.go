package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

func testPipeline(t *testing.T, inbox InboxPort, dedupe *DedupeCache) *Pipeline {
	t.Helper()
	return NewPipeline(inbox, dedupe, time.Millisecond, testLogger(t))
}

func deliveryJob() *types.DeliveryJob {
	return types.NewDeliveryJob(question("c1", "Jane Doe", "What are your hours?"), "We are open 9-5.")
}

func TestPipelineDeliver(t *testing.T) {
	t.Run("full mode submits the reply", func(t *testing.T) {
		inbox := newFakeInbox()
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.NoError(t, err)

		assert.Equal(t, types.DeliveryStateSubmitted, job.State)
		assert.Equal(t, []string{"We are open 9-5."}, inbox.injectedReplies())
		assert.Equal(t, 1, inbox.sentCount())
		assert.Equal(t, 1, inbox.processed)
	})

	t.Run("partial mode stages without sending", func(t *testing.T) {
		inbox := newFakeInbox()
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, true)
		require.NoError(t, err)

		assert.Equal(t, types.DeliveryStateStaged, job.State)
		assert.Equal(t, []string{"We are open 9-5."}, inbox.injectedReplies())
		assert.Zero(t, inbox.sentCount())
	})

	t.Run("partial mode without a send control is a retryable failure", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.sendEnabled = false
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDeliveryFailed)

		// Never staged: a draft the operator cannot send is not a success.
		assert.Equal(t, types.DeliveryStateFailed, job.State)
		assert.Equal(t, types.MaxDeliveryRetries, job.Retries)
		assert.Zero(t, inbox.sentCount())
		assert.Zero(t, inbox.processed)
	})

	t.Run("full mode send failure retries", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.sendErr = ErrDeliveryFailed
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDeliveryFailed)
		assert.Equal(t, types.DeliveryStateFailed, job.State)
		assert.Equal(t, types.MaxDeliveryRetries, inbox.opened)
	})

	t.Run("transient failure retries exactly up to the bound", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.injectErr = errors.New("input briefly missing")
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDeliveryFailed)

		assert.Equal(t, types.DeliveryStateFailed, job.State)
		assert.Equal(t, types.MaxDeliveryRetries, job.Retries)
		// One open per attempt.
		assert.Equal(t, types.MaxDeliveryRetries, inbox.opened)
		assert.Zero(t, inbox.processed)
	})

	t.Run("stale handle aborts without retrying", func(t *testing.T) {
		inbox := newFakeInbox()
		job := deliveryJob()
		job.PreviewHandle.(*fakeHandle).detach()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		assert.ErrorIs(t, err, ErrStaleTarget)
		assert.Equal(t, types.DeliveryStateAborted, job.State)
		assert.Zero(t, inbox.opened)
	})

	t.Run("sender mismatch aborts permanently", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.sender = "Someone Else"
		inbox.senderOK = true
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		assert.ErrorIs(t, err, ErrSenderMismatch)
		assert.Equal(t, types.DeliveryStateAborted, job.State)
		assert.Equal(t, 1, inbox.opened)
		assert.Empty(t, inbox.injectedReplies())
	})

	t.Run("matching sender passes verification", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.sender = "Jane Doe"
		inbox.senderOK = true
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.NoError(t, err)
		assert.Equal(t, types.DeliveryStateSubmitted, job.State)
	})

	t.Run("missing sender anchor skips the identity check", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.senderOK = false
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.NoError(t, err)
		assert.Equal(t, types.DeliveryStateSubmitted, job.State)
	})

	t.Run("operator already replied aborts and releases the dedupe key", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.turnOK = true
		inbox.lastFromCustomer = false
		dedupe := NewDedupeCache()
		job := deliveryJob()
		dedupe.MarkDispatched(job.DedupeKey)

		err := testPipeline(t, inbox, dedupe).Deliver(context.Background(), job, false)
		assert.ErrorIs(t, err, ErrNotCustomerTurn)
		assert.Equal(t, types.DeliveryStateAborted, job.State)

		// The conversation can be rediscovered on a later scan.
		assert.False(t, dedupe.Dispatched(job.DedupeKey))
	})

	t.Run("customer turn passes the turn check", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.turnOK = true
		inbox.lastFromCustomer = true
		job := deliveryJob()

		err := testPipeline(t, inbox, NewDedupeCache()).Deliver(context.Background(), job, false)
		require.NoError(t, err)
		assert.Equal(t, types.DeliveryStateSubmitted, job.State)
	})

	t.Run("canceled context aborts between attempts", func(t *testing.T) {
		inbox := newFakeInbox()
		inbox.injectErr = errors.New("transient")
		job := deliveryJob()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pipeline := NewPipeline(inbox, NewDedupeCache(), time.Minute, testLogger(t))
		err := pipeline.Deliver(ctx, job, false)
		require.Error(t, err)
		assert.Equal(t, types.DeliveryStateAborted, job.State)
	})
}

func TestDeliveryStateTerminal(t *testing.T) {
	terminal := []types.DeliveryState{
		types.DeliveryStateSubmitted,
		types.DeliveryStateStaged,
		types.DeliveryStateAborted,
		types.DeliveryStateFailed,
	}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %s", s)
	}

	active := []types.DeliveryState{
		types.DeliveryStateCreated,
		types.DeliveryStateClicking,
		types.DeliveryStateVerifying,
		types.DeliveryStateInjecting,
	}
	for _, s := range active {
		assert.False(t, s.Terminal(), "state %s", s)
	}
}
