package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/protocol"
)

// Dispatcher routes cross-context protocol messages between the inbox-side
// orchestration and the assistant-side adapter. It is the only error
// surface the protocol exposes: failures travel back in the response's
// Error field, never as Go errors crossing the boundary.
type Dispatcher struct {
	broker    *Broker
	scheduler *Scheduler
	assistant AssistantPort
	log       *logging.Logger
}

// NewDispatcher wires the dispatcher over the broker and scheduler.
func NewDispatcher(broker *Broker, scheduler *Scheduler, assistant AssistantPort, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		broker:    broker,
		scheduler: scheduler,
		assistant: assistant,
		log:       log,
	}
}

// Handle processes one protocol request and returns its response.
func (d *Dispatcher) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Action {
	case protocol.ActionGetAnswer:
		return d.handleGetAnswer(ctx, req)
	case protocol.ActionAskQuestion:
		return d.handleAskQuestion(ctx, req)
	case protocol.ActionAssistantResponse:
		return d.handleAssistantResponse(req)
	case protocol.ActionSettingsUpdated:
		d.scheduler.NotifySettingsUpdated()
		return protocol.Response{Status: "settings acknowledged"}
	case protocol.ActionResume:
		d.scheduler.Resume()
		return protocol.Response{Status: "scanning resumed"}
	default:
		d.log.Warnf("dispatcher: unhandled action %q", req.Action)
		return protocol.Response{Error: fmt.Sprintf("unhandled action %q", req.Action)}
	}
}

// handleGetAnswer is the synchronous request/response path: it blocks until
// the broker resolves, times out, or refuses.
func (d *Dispatcher) handleGetAnswer(ctx context.Context, req protocol.Request) protocol.Response {
	answer, err := d.broker.Ask(ctx, req.Question)
	if err != nil {
		return protocol.Response{Error: err.Error()}
	}
	if answer.NotFound {
		return protocol.Response{NotFound: true}
	}
	return protocol.Response{Answer: answer.Text}
}

// handleAskQuestion is the out-of-band path: an immediate processing
// acknowledgement, with the actual reply arriving later as an
// ActionAssistantResponse carrying the same RequestID.
func (d *Dispatcher) handleAskQuestion(ctx context.Context, req protocol.Request) protocol.Response {
	if req.RequestID == "" {
		return protocol.Response{Error: "askQuestion requires a requestId"}
	}

	go func() {
		answer, err := d.assistant.Submit(ctx, req.Question)
		if err != nil {
			d.Handle(ctx, protocol.Request{
				Action:    protocol.ActionAssistantResponse,
				RequestID: req.RequestID,
				Error:     err.Error(),
			})
			return
		}
		d.Handle(ctx, protocol.Request{
			Action:    protocol.ActionAssistantResponse,
			RequestID: req.RequestID,
			Answer:    answer,
		})
	}()

	return protocol.Response{Status: protocol.StatusProcessing}
}

func (d *Dispatcher) handleAssistantResponse(req protocol.Request) protocol.Response {
	if req.Error != "" {
		d.broker.Fail(req.RequestID, errors.New(req.Error))
	} else {
		d.broker.Resolve(req.RequestID, req.Answer)
	}
	return protocol.Response{Status: "response noted"}
}
