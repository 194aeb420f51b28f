package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/protocol"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

func testDispatcher(t *testing.T, assistant AssistantPort) *Dispatcher {
	t.Helper()
	log := testLogger(t)
	inbox := newFakeInbox()
	dedupe := NewDedupeCache()
	broker := NewBroker(assistant, time.Second, log)
	pipeline := NewPipeline(inbox, dedupe, time.Millisecond, log)
	scheduler := NewScheduler(inbox, broker, pipeline, dedupe, &fakeSettings{enabled: true}, fastTimings, log)
	return NewDispatcher(broker, scheduler, assistant, log)
}

func TestDispatcherGetAnswer(t *testing.T) {
	t.Run("returns the answer synchronously", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{replies: []string{"forty-two"}})

		resp := d.Handle(context.Background(), protocol.Request{
			Action:   protocol.ActionGetAnswer,
			Question: "meaning of life?",
		})

		assert.Empty(t, resp.Error)
		assert.Equal(t, "forty-two", resp.Answer)
		assert.False(t, resp.NotFound)
	})

	t.Run("carries the no-answer outcome as a flag", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{replies: []string{"NOTFOUND"}})

		resp := d.Handle(context.Background(), protocol.Request{
			Action:   protocol.ActionGetAnswer,
			Question: "q",
		})

		assert.True(t, resp.NotFound)
		assert.Empty(t, resp.Answer)
		assert.Empty(t, resp.Error)
	})

	t.Run("reports broker errors in the response", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{readyErr: ErrNoAssistantPage})

		resp := d.Handle(context.Background(), protocol.Request{
			Action:   protocol.ActionGetAnswer,
			Question: "q",
		})

		assert.NotEmpty(t, resp.Error)
		assert.Empty(t, resp.Answer)
	})
}

func TestDispatcherAskQuestion(t *testing.T) {
	t.Run("acknowledges with processing status", func(t *testing.T) {
		assistant := &fakeAssistant{replies: []string{"later"}}
		d := testDispatcher(t, assistant)

		resp := d.Handle(context.Background(), protocol.Request{
			Action:    protocol.ActionAskQuestion,
			RequestID: "req-1",
			Question:  "slow question",
		})

		assert.Equal(t, protocol.StatusProcessing, resp.Status)
		assert.Empty(t, resp.Error)

		// The out-of-band submission eventually runs.
		require.Eventually(t, func() bool {
			return len(assistant.submittedPrompts()) == 1
		}, time.Second, time.Millisecond)
	})

	t.Run("requires a request ID", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{})

		resp := d.Handle(context.Background(), protocol.Request{
			Action:   protocol.ActionAskQuestion,
			Question: "q",
		})

		assert.NotEmpty(t, resp.Error)
	})
}

func TestDispatcherAssistantResponse(t *testing.T) {
	t.Run("resolves the matching in-flight request", func(t *testing.T) {
		assistant := &fakeAssistant{block: make(chan struct{})}
		log := testLogger(t)
		broker := NewBroker(assistant, time.Second, log)
		inbox := newFakeInbox()
		dedupe := NewDedupeCache()
		pipeline := NewPipeline(inbox, dedupe, time.Millisecond, log)
		scheduler := NewScheduler(inbox, broker, pipeline, dedupe, &fakeSettings{enabled: true}, fastTimings, log)
		d := NewDispatcher(broker, scheduler, assistant, log)

		answers := make(chan string, 1)
		go func() {
			answer, _ := broker.Ask(context.Background(), "q")
			answers <- answer.Text
		}()

		require.Eventually(t, func() bool {
			return broker.CurrentRequestID() != ""
		}, time.Second, time.Millisecond)

		resp := d.Handle(context.Background(), protocol.Request{
			Action:    protocol.ActionAssistantResponse,
			RequestID: broker.CurrentRequestID(),
			Answer:    "relayed answer",
		})
		assert.Empty(t, resp.Error)
		assert.Equal(t, "relayed answer", <-answers)
		close(assistant.block)
	})

	t.Run("unknown request ID is dropped quietly", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{})

		resp := d.Handle(context.Background(), protocol.Request{
			Action:    protocol.ActionAssistantResponse,
			RequestID: "ghost",
			Answer:    "nobody asked",
		})
		assert.Empty(t, resp.Error)
	})
}

func TestDispatcherSettingsAndUnknown(t *testing.T) {
	t.Run("settings update is acknowledged", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{})

		resp := d.Handle(context.Background(), protocol.Request{
			Action: protocol.ActionSettingsUpdated,
		})
		assert.Empty(t, resp.Error)
		assert.NotEmpty(t, resp.Status)
	})

	t.Run("resume action restores paused scanning", func(t *testing.T) {
		log := testLogger(t)
		inbox := newFakeInbox()
		inbox.questions = []types.PendingQuestion{question("c1", "Jane Doe", "In stock?")}
		assistant := &fakeAssistant{replies: []string{"Yes."}}
		settings := &fakeSettings{enabled: true, partial: true}
		dedupe := NewDedupeCache()
		broker := NewBroker(assistant, time.Second, log)
		pipeline := NewPipeline(inbox, dedupe, time.Millisecond, log)
		scheduler := NewScheduler(inbox, broker, pipeline, dedupe, settings, fastTimings, log)
		d := NewDispatcher(broker, scheduler, assistant, log)

		scheduler.RunCycle(context.Background())
		require.True(t, scheduler.Paused())
		scansBefore := inbox.scanCount()

		resp := d.Handle(context.Background(), protocol.Request{Action: protocol.ActionResume})
		assert.Empty(t, resp.Error)
		assert.False(t, scheduler.Paused())

		scheduler.RunCycle(context.Background())
		assert.Greater(t, inbox.scanCount(), scansBefore)
	})

	t.Run("unknown action reports an error", func(t *testing.T) {
		d := testDispatcher(t, &fakeAssistant{})

		resp := d.Handle(context.Background(), protocol.Request{Action: "selfDestruct"})
		assert.NotEmpty(t, resp.Error)
	})
}
