package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

// Default scheduler timings, matching one inbox polling beat, the
// single-flight spacing between assistant requests, and the short pause
// before discovery resumes after a delivery.
const (
	DefaultPollInterval  = 5 * time.Second
	DefaultQuestionDelay = 15 * time.Second
	DefaultResumeDelay   = 500 * time.Millisecond
)

// Settings exposes the configuration the scheduler reads at the start of
// every cycle.
type Settings interface {
	// AutomationEnabled gates all scanning.
	AutomationEnabled() bool

	// PartialAutomation selects staging replies instead of sending them.
	PartialAutomation() bool
}

// Timings groups the scheduler's delays so tests can shrink them.
type Timings struct {
	PollInterval  time.Duration
	QuestionDelay time.Duration
	ResumeDelay   time.Duration
}

func (t Timings) withDefaults() Timings {
	if t.PollInterval <= 0 {
		t.PollInterval = DefaultPollInterval
	}
	if t.QuestionDelay <= 0 {
		t.QuestionDelay = DefaultQuestionDelay
	}
	if t.ResumeDelay <= 0 {
		t.ResumeDelay = DefaultResumeDelay
	}
	return t
}

// Scheduler periodically scans the inbox for unread work and drives each
// question through the broker and, when an answer arrives, the delivery
// pipeline. Questions within a cycle are processed strictly serially; at
// most one delivery job exists at a time and its presence pauses scanning.
type Scheduler struct {
	inbox    InboxPort
	broker   *Broker
	pipeline *Pipeline
	dedupe   *DedupeCache
	settings Settings
	timings  Timings
	log      *logging.Logger

	mu              sync.Mutex
	currentJob      *types.DeliveryJob
	delivering      bool
	checkingAllowed bool

	restart chan struct{}
	kick    chan struct{}
}

// NewScheduler wires the scheduler. Zero timings select the defaults.
func NewScheduler(inbox InboxPort, broker *Broker, pipeline *Pipeline, dedupe *DedupeCache, settings Settings, timings Timings, log *logging.Logger) *Scheduler {
	return &Scheduler{
		inbox:           inbox,
		broker:          broker,
		pipeline:        pipeline,
		dedupe:          dedupe,
		settings:        settings,
		timings:         timings.withDefaults(),
		log:             log,
		checkingAllowed: true,
		restart:         make(chan struct{}, 1),
		kick:            make(chan struct{}, 1),
	}
}

// Run drives cycles on the polling interval until ctx is canceled. A
// settings update restarts the ticker; a kick (manual resume or page
// mutation signal) triggers an immediate cycle.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunCycle(ctx)

	ticker := time.NewTicker(s.timings.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.restart:
			ticker.Reset(s.timings.PollInterval)
			s.RunCycle(ctx)
		case <-s.kick:
			s.RunCycle(ctx)
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// NotifySettingsUpdated reacts to a configuration change: leaving partial
// mode restores scanning, and the polling loop restarts.
func (s *Scheduler) NotifySettingsUpdated() {
	if !s.settings.PartialAutomation() {
		s.mu.Lock()
		s.checkingAllowed = true
		s.mu.Unlock()
	}
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

// Resume is the explicit user action that restores scanning after a reply
// was staged in partial mode. It also drops the dedupe memory so every
// conversation is reconsidered, and triggers an immediate cycle.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.checkingAllowed = true
	s.currentJob = nil
	s.mu.Unlock()

	s.dedupe.Clear()
	s.log.Infof("scheduler: manual resume, rescanning")
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Kick requests an immediate cycle, used by page-mutation signals.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// CurrentJob returns the delivery job in progress, if any.
func (s *Scheduler) CurrentJob() *types.DeliveryJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentJob
}

// Paused reports whether scanning is stopped waiting on a staged reply.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.PartialAutomation() && !s.checkingAllowed
}

// RunCycle performs one discovery pass. All gates must hold: no pending
// job, no delivery in progress, automation enabled, and in partial mode
// the checkingAllowed flag.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if !s.gatesPass() {
		return
	}

	questions, err := s.inbox.ScanUnread(ctx, s.dedupe)
	if err != nil {
		s.log.Warnf("scheduler: scan failed: %v", err)
		return
	}

	if len(questions) == 0 {
		// Quiet inbox: this is the eviction point for the dedupe memory,
		// so a message can be reconsidered once all unread work drained.
		if s.dedupe.Len() > 0 {
			s.log.Infof("scheduler: no unread work, clearing %d cached keys", s.dedupe.Len())
			s.dedupe.Clear()
		}
		return
	}

	s.processQuestions(ctx, questions)
}

func (s *Scheduler) gatesPass() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentJob != nil {
		s.log.Debugf("scheduler: paused, delivery pending for conversation %s", s.currentJob.ConversationID)
		return false
	}
	if s.delivering {
		return false
	}
	if !s.settings.AutomationEnabled() {
		return false
	}
	if s.settings.PartialAutomation() {
		if !s.checkingAllowed {
			s.log.Debugf("scheduler: paused until manual resume (partial mode)")
			return false
		}
	} else {
		// The pause flag only has meaning while partial mode is on.
		s.checkingAllowed = true
	}
	return true
}

// processQuestions walks the scanned questions serially, spacing assistant
// requests by the inter-question delay to respect the broker's
// single-flight constraint. The first deliverable answer creates the
// cycle's one delivery job and ends question processing.
func (s *Scheduler) processQuestions(ctx context.Context, questions []types.PendingQuestion) {
	for i, q := range questions {
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.timings.QuestionDelay):
			}
		}

		if s.dedupe.NotFound(q.DedupeKey) {
			s.log.Debugf("scheduler: skipping %s, previously unanswerable", q.ConversationID)
			s.inbox.ClearPending(q.Handle)
			continue
		}

		answer, err := s.broker.Ask(ctx, Prompt(q))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warnf("scheduler: question for %s failed: %v", q.ConversationID, err)
			s.inbox.ClearPending(q.Handle)
			continue
		}

		if answer.NotFound {
			s.log.Infof("scheduler: assistant has no answer for %s", q.ConversationID)
			s.dedupe.MarkNotFound(q.DedupeKey)
			s.inbox.ClearPending(q.Handle)
			continue
		}
		if answer.Text == "" {
			s.inbox.ClearPending(q.Handle)
			continue
		}

		s.inbox.ClearPending(q.Handle)
		s.deliver(ctx, types.NewDeliveryJob(q, answer.Text))
		return
	}
}

// deliver runs the pipeline for the cycle's single job and applies the
// outcome to the scheduler's gates.
func (s *Scheduler) deliver(ctx context.Context, job *types.DeliveryJob) {
	partial := s.settings.PartialAutomation()

	s.mu.Lock()
	s.currentJob = job
	s.delivering = true
	s.mu.Unlock()

	err := s.pipeline.Deliver(ctx, job, partial)

	s.mu.Lock()
	s.delivering = false
	s.currentJob = nil
	staged := job.State == types.DeliveryStateStaged
	if staged {
		// The pause is held by this flag alone, so Resume or leaving
		// partial mode lifts it.
		s.checkingAllowed = false
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("scheduler: delivery for %s ended in %s: %v", job.ConversationID, job.State, err)
	}
	if staged || ctx.Err() != nil {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(s.timings.ResumeDelay):
		s.Kick()
	}
}

// Prompt formats the assistant prompt for a question, prefixing the
// conversation identity so replies stay attributable.
func Prompt(q types.PendingQuestion) string {
	return fmt.Sprintf("Customer-id-%s\nQuestion: %s", q.ConversationID, q.Text)
}
