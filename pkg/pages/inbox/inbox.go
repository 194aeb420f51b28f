// Package inbox drives the business-messaging inbox tab: discovering
// unread customer messages and delivering replies into open threads.
package inbox

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/bridge"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/browser"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/pages/profile"
	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/types"
)

// Attributes stamped onto conversation rows so a row is never picked up
// twice within a scan cycle. They live in the page DOM and vanish with
// any re-render, which is why the dedupe cache exists as well.
const (
	attrPending   = "data-bridge-pending"
	attrProcessed = "data-bridge-processed"

	// threadIDAttr is the page's own stable thread identifier when present.
	threadIDAttr = "data-thread-id"
)

// Page implements bridge.InboxPort over a live inbox tab.
type Page struct {
	session *browser.Session
	profile *profile.SiteProfile
	log     *logging.Logger
}

// NewPage wraps an inbox tab session.
func NewPage(session *browser.Session, p *profile.SiteProfile, log *logging.Logger) *Page {
	return &Page{
		session: session,
		profile: p,
		log:     log,
	}
}

// ScanUnread enumerates conversation rows and returns the ones eligible
// for processing. A failure on one row is logged and the scan moves on.
func (p *Page) ScanUnread(ctx context.Context, dedupe *bridge.DedupeCache) ([]types.PendingQuestion, error) {
	if !p.session.Attached() {
		return nil, bridge.ErrNoInboxPage
	}

	rows, err := p.session.QueryAll(p.profile.Inbox.ConversationRow)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	var questions []types.PendingQuestion
	for i, row := range rows {
		if ctx.Err() != nil {
			return questions, ctx.Err()
		}

		q, accepted, err := p.examineRow(row, i, dedupe)
		if err != nil {
			p.log.Warnf("Skipping conversation row %d: %v", i, err)
			continue
		}
		if accepted {
			questions = append(questions, q)
		}
	}

	return questions, nil
}

// examineRow applies the eligibility rules to one conversation row and,
// when the row is accepted, marks it in-flight on the page and in the
// dedupe cache.
func (p *Page) examineRow(row playwright.ElementHandle, ordinal int, dedupe *bridge.DedupeCache) (types.PendingQuestion, bool, error) {
	var none types.PendingQuestion

	if hasAttr(row, attrPending) || hasAttr(row, attrProcessed) {
		return none, false, nil
	}

	unread, err := childExists(row, p.profile.Inbox.UnreadMarker)
	if err != nil {
		return none, false, err
	}
	read, err := childExists(row, p.profile.Inbox.ReadMarker)
	if err != nil {
		return none, false, err
	}
	if !rowEligible(unread, read) {
		return none, false, nil
	}

	sender := childText(row, p.profile.Inbox.SenderName)
	if sender == "" {
		// No sender means no way to verify the thread later. Leave the
		// row unread for the operator.
		return none, false, nil
	}

	preview := childText(row, p.profile.Inbox.PreviewText)
	if preview == "" {
		return none, false, nil
	}
	if bridge.OperatorAuthored(preview) {
		return none, false, nil
	}

	pageAttr, _ := row.GetAttribute(threadIDAttr)
	id, stable := DeriveConversationID(pageAttr, sender, ordinal)
	key := bridge.DedupeKey(id, sender, preview, stable)

	if dedupe.Dispatched(key) || dedupe.NotFound(key) {
		return none, false, nil
	}

	if err := setAttr(row, attrPending); err != nil {
		return none, false, fmt.Errorf("mark pending: %w", err)
	}
	dedupe.MarkDispatched(key)

	p.log.Infof("Discovered unread message from %q (conversation %s)", sender, id)
	return types.PendingQuestion{
		Handle:         newRowHandle(row),
		ID:             id,
		ConversationID: id,
		Sender:         sender,
		Text:           preview,
		DedupeKey:      key,
	}, true, nil
}

// OpenConversation clicks the row to make its thread active.
func (p *Page) OpenConversation(ctx context.Context, h types.ConversationHandle) error {
	row, ok := h.(*rowHandle)
	if !ok || !row.Attached() {
		return bridge.ErrStaleTarget
	}
	if err := p.session.ClickHandle(row.element); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrStaleTarget, err)
	}
	return nil
}

// ActiveSenderName reads the open thread's header name.
func (p *Page) ActiveSenderName(ctx context.Context) (string, bool) {
	text, found, err := p.session.TextContent(p.profile.Inbox.ActiveSender)
	if err != nil || !found {
		return "", false
	}
	name := strings.TrimSpace(text)
	if name == "" {
		return "", false
	}
	return name, true
}

// LastMessageFromCustomer inspects the newest message bubble's authorship.
func (p *Page) LastMessageFromCustomer(ctx context.Context) (bool, bool) {
	bubbles, err := p.session.QueryAll(p.profile.Inbox.MessageBubble)
	if err != nil || len(bubbles) == 0 {
		return false, false
	}

	last := bubbles[len(bubbles)-1]
	matched, err := last.Evaluate("(el, sel) => el.matches(sel) || el.querySelector(sel) !== null", p.profile.Inbox.OperatorBubble)
	if err != nil {
		return false, false
	}
	operator, ok := matched.(bool)
	if !ok {
		return false, false
	}
	return !operator, true
}

// injectScript writes text into a reply input and fires the events the
// page framework listens for. Handles both contenteditable editors and
// plain textareas.
const injectScript = `(el, text) => {
	el.focus();
	if (el.isContentEditable) {
		el.textContent = text;
	} else {
		el.value = text;
	}
	el.dispatchEvent(new InputEvent('input', { bubbles: true }));
	el.dispatchEvent(new Event('change', { bubbles: true }));
}`

// InjectReply writes text into the first available reply input.
func (p *Page) InjectReply(ctx context.Context, text string) error {
	input, err := p.findReplyInput()
	if err != nil {
		return err
	}

	if _, err := input.Evaluate(injectScript, text); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrInputNotFound, err)
	}
	return nil
}

// ClickSend submits the drafted reply. Only an enabled send control
// counts; a missing or disabled one is a retryable failure, pressing
// Enter in the composer is not a safe substitute here.
func (p *Page) ClickSend(ctx context.Context) error {
	button, err := p.session.Query(p.profile.Inbox.SendButton)
	if err != nil || button == nil {
		return bridge.ErrDeliveryFailed
	}
	if enabled, err := button.IsEnabled(); err != nil || !enabled {
		return bridge.ErrDeliveryFailed
	}
	if err := button.Click(); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrDeliveryFailed, err)
	}
	return nil
}

// HasEnabledSend reports whether the open thread shows an enabled send
// control.
func (p *Page) HasEnabledSend(ctx context.Context) bool {
	button, err := p.session.Query(p.profile.Inbox.SendButton)
	if err != nil || button == nil {
		return false
	}
	enabled, err := button.IsEnabled()
	return err == nil && enabled
}

// ClearPending removes the in-flight marker so the row can be
// rediscovered. Stale handles are ignored.
func (p *Page) ClearPending(h types.ConversationHandle) {
	row, ok := h.(*rowHandle)
	if !ok || !row.Attached() {
		return
	}
	if _, err := row.element.Evaluate(fmt.Sprintf("el => el.removeAttribute(%q)", attrPending)); err != nil {
		p.log.Debugf("Clear pending marker failed: %v", err)
	}
}

// MarkProcessed stamps the row as handled and tints it so the operator
// can see which threads the bridge answered.
func (p *Page) MarkProcessed(h types.ConversationHandle) {
	row, ok := h.(*rowHandle)
	if !ok || !row.Attached() {
		return
	}
	script := fmt.Sprintf(`el => {
		el.removeAttribute(%q);
		el.setAttribute(%q, "1");
		el.style.opacity = "0.6";
	}`, attrPending, attrProcessed)
	if _, err := row.element.Evaluate(script); err != nil {
		p.log.Debugf("Mark processed failed: %v", err)
	}
}

// resumeControlScript drops a floating "Next" button onto the inbox so
// the operator has something to press after reviewing a staged draft.
// A click only sets a window flag; the scheduler side polls for it.
const resumeControlScript = `() => {
	if (document.getElementById("bridge-resume-control")) {
		return;
	}
	const btn = document.createElement("button");
	btn.id = "bridge-resume-control";
	btn.textContent = "Next";
	btn.style.cssText = "position:fixed;bottom:20px;right:20px;z-index:99999;" +
		"padding:10px 18px;background:#1877f2;color:#fff;border:none;" +
		"border-radius:6px;cursor:pointer;font-weight:bold;";
	btn.addEventListener("click", () => {
		window.__bridgeResumeRequested = true;
	});
	document.body.appendChild(btn);
}`

// InstallResumeControl places the resume button on the page. Installing
// twice is a no-op.
func (p *Page) InstallResumeControl() error {
	if !p.session.Attached() {
		return bridge.ErrNoInboxPage
	}
	_, err := p.session.Evaluate(resumeControlScript)
	return err
}

// ConsumeResumeRequest reports whether the resume control was clicked
// since the last check, clearing the flag.
func (p *Page) ConsumeResumeRequest() bool {
	result, err := p.session.Evaluate(`() => {
		const clicked = window.__bridgeResumeRequested === true;
		window.__bridgeResumeRequested = false;
		return clicked;
	}`)
	if err != nil {
		return false
	}
	clicked, ok := result.(bool)
	return ok && clicked
}

// findReplyInput tries the profile's reply input selectors in order and
// returns the first visible match.
func (p *Page) findReplyInput() (playwright.ElementHandle, error) {
	for _, selector := range p.profile.Inbox.ReplyInputs {
		element, err := p.session.Query(selector)
		if err != nil || element == nil {
			continue
		}
		if visible, verr := element.IsVisible(); verr == nil && visible {
			return element, nil
		}
	}
	return nil, bridge.ErrInputNotFound
}

// hasAttr reports whether an element carries the attribute. Errors are
// treated as absence.
func hasAttr(el playwright.ElementHandle, name string) bool {
	value, err := el.GetAttribute(name)
	return err == nil && value != ""
}

func setAttr(el playwright.ElementHandle, name string) error {
	// The value records when the marker was set, which helps when reading
	// a stuck page by hand.
	_, err := el.Evaluate(fmt.Sprintf("el => el.setAttribute(%q, String(Date.now()))", name))
	return err
}

// childExists reports whether a descendant matching the selector exists.
func childExists(el playwright.ElementHandle, selector string) (bool, error) {
	child, err := el.QuerySelector(selector)
	if err != nil {
		return false, fmt.Errorf("query %q: %w", selector, err)
	}
	return child != nil, nil
}

// childText returns the trimmed text of the first descendant matching
// the selector, or "".
func childText(el playwright.ElementHandle, selector string) string {
	child, err := el.QuerySelector(selector)
	if err != nil || child == nil {
		return ""
	}
	text, err := child.TextContent()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
