// Package assistant produces answers for forwarded customer questions,
// either by driving a logged-in assistant browser tab or by calling the
// assistant's API directly.
package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/bridge"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/browser"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/profile"
)

const (
	// DefaultReplyTimeout bounds how long one prompt may generate.
	DefaultReplyTimeout = 60 * time.Second

	// replyPollInterval is how often the page is checked for a finished
	// reply while generation runs.
	replyPollInterval = 750 * time.Millisecond

	// duplicateWindow suppresses resubmitting an identical prompt. The
	// page sometimes fires the submit handler twice on slow loads.
	duplicateWindow = 5 * time.Second

	// readyWait bounds how long Ready waits for the prompt input.
	readyWait = 10 * time.Second
)

// PageDriver implements bridge.AssistantPort against a live assistant
// tab. Not safe for concurrent use; the broker's single-flight slot is
// what serializes access.
type PageDriver struct {
	session *browser.Session
	profile *profile.SiteProfile
	log     *logging.Logger
	timeout time.Duration

	lastPrompt   string
	lastSubmitAt time.Time
}

// NewPageDriver wraps an assistant tab session.
func NewPageDriver(session *browser.Session, p *profile.SiteProfile, log *logging.Logger) *PageDriver {
	return &PageDriver{
		session: session,
		profile: p,
		log:     log,
		timeout: DefaultReplyTimeout,
	}
}

// Ready blocks until the prompt input is visible or the bounded wait
// expires.
func (d *PageDriver) Ready(ctx context.Context) error {
	if !d.session.Attached() {
		return bridge.ErrNoAssistantPage
	}

	if err := d.session.WaitVisible(d.profile.Assistant.RichInput, readyWait); err == nil {
		return nil
	}
	if err := d.session.WaitVisible(d.profile.Assistant.FallbackInput, readyWait); err == nil {
		return nil
	}
	return bridge.ErrNoAssistantPage
}

// Submit writes the prompt, submits it, waits out generation and
// returns the newest reply's text.
func (d *PageDriver) Submit(ctx context.Context, prompt string) (string, error) {
	if prompt == d.lastPrompt && time.Since(d.lastSubmitAt) < duplicateWindow {
		return "", fmt.Errorf("%w: identical prompt submitted %s ago", bridge.ErrSubmissionFailed, time.Since(d.lastSubmitAt).Round(time.Millisecond))
	}

	input, err := d.findInput()
	if err != nil {
		return "", err
	}

	baseline, err := d.replyCount()
	if err != nil {
		return "", err
	}

	if err := d.writePrompt(input, prompt); err != nil {
		return "", err
	}

	if err := d.submitPrompt(input); err != nil {
		return "", err
	}
	d.lastPrompt = prompt
	d.lastSubmitAt = time.Now()

	reply, err := d.awaitReply(ctx, baseline)
	if err != nil {
		return "", err
	}

	d.log.Infof("Extracted assistant reply (%d chars)", len(reply))
	return reply, nil
}

// findInput prefers the rich contenteditable editor, falling back to
// the plain textarea older page versions use.
func (d *PageDriver) findInput() (playwright.ElementHandle, error) {
	for _, selector := range []string{d.profile.Assistant.RichInput, d.profile.Assistant.FallbackInput} {
		element, err := d.session.Query(selector)
		if err != nil || element == nil {
			continue
		}
		if visible, verr := element.IsVisible(); verr == nil && visible {
			return element, nil
		}
	}
	return nil, bridge.ErrInputNotFound
}

// writePromptScript fills either editor kind and fires the framework's
// change notifications. The rich editor wants one <p> per line or the
// page collapses the prompt into a single run.
const writePromptScript = `(el, text) => {
	el.focus();
	if (el.isContentEditable) {
		el.innerHTML = "";
		for (const line of text.split("\n")) {
			const p = document.createElement("p");
			p.textContent = line;
			el.appendChild(p);
		}
	} else {
		el.value = text;
	}
	el.dispatchEvent(new InputEvent("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
}`

func (d *PageDriver) writePrompt(input playwright.ElementHandle, prompt string) error {
	if _, err := input.Evaluate(writePromptScript, prompt); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrInputNotFound, err)
	}
	return nil
}

// submitPrompt runs the submission order against the live page: send
// button, Enter keypress, then the button once more if the text is
// still sitting in the editor.
func (d *PageDriver) submitPrompt(input playwright.ElementHandle) error {
	return submitSequence(
		d.clickSendButton,
		func() error { return input.Press("Enter") },
		func() bool { return d.submissionTook(input) },
	)
}

// submitSequence tries each submission path in order, verifying after
// every one that the prompt actually left the editor.
func submitSequence(clickSend func() bool, pressEnter func() error, accepted func() bool) error {
	if clickSend() && accepted() {
		return nil
	}
	if err := pressEnter(); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrSubmissionFailed, err)
	}
	if accepted() {
		return nil
	}
	if clickSend() && accepted() {
		return nil
	}
	return bridge.ErrSubmissionFailed
}

// clickSendButton clicks the send control when present and enabled.
func (d *PageDriver) clickSendButton() bool {
	button, err := d.session.Query(d.profile.Assistant.SendButton)
	if err != nil || button == nil {
		return false
	}
	enabled, err := button.IsEnabled()
	if err != nil || !enabled {
		return false
	}
	return button.Click() == nil
}

// submissionTook reports whether the editor emptied out or generation
// started, which is how the page signals the prompt was accepted.
func (d *PageDriver) submissionTook(input playwright.ElementHandle) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if text, err := input.TextContent(); err == nil && len(text) == 0 {
			return true
		}
		if generating, err := d.session.Visible(d.profile.Assistant.StopGenerating); err == nil && generating {
			return true
		}
		time.Sleep(250 * time.Millisecond)
	}
	return false
}

// awaitReply polls until a new reply block exists, generation has
// stopped and the block's content has held still for one interval.
func (d *PageDriver) awaitReply(ctx context.Context, baseline int) (string, error) {
	deadline := time.Now().Add(d.timeout)
	var lastSnapshot string

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(replyPollInterval):
		}
		if time.Now().After(deadline) {
			// Last chance: a reply may have finished without the count or
			// stop indicator ever agreeing.
			if count, cerr := d.replyCount(); cerr == nil && count > baseline {
				if snapshot, serr := d.newestReplyHTML(); serr == nil && snapshot != "" {
					if text, ferr := FlattenReply(snapshot); ferr == nil && text != "" {
						return text, nil
					}
				}
			}
			return "", bridge.ErrNoReplyExtracted
		}

		count, err := d.replyCount()
		if err != nil || count <= baseline {
			continue
		}

		if generating, gerr := d.session.Visible(d.profile.Assistant.StopGenerating); gerr == nil && generating {
			lastSnapshot = ""
			continue
		}

		snapshot, err := d.newestReplyHTML()
		if err != nil || snapshot == "" {
			continue
		}
		if snapshot != lastSnapshot {
			// Still settling; require two identical reads.
			lastSnapshot = snapshot
			continue
		}

		text, err := FlattenReply(snapshot)
		if err != nil || text == "" {
			return "", bridge.ErrNoReplyExtracted
		}
		return text, nil
	}
}

func (d *PageDriver) replyCount() (int, error) {
	blocks, err := d.session.QueryAll(d.profile.Assistant.ReplyBlocks)
	if err != nil {
		return 0, err
	}
	return len(blocks), nil
}

func (d *PageDriver) newestReplyHTML() (string, error) {
	blocks, err := d.session.QueryAll(d.profile.Assistant.ReplyBlocks)
	if err != nil || len(blocks) == 0 {
		return "", err
	}
	return blocks[len(blocks)-1].InnerHTML()
}
