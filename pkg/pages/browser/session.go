package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
)

// Session wraps one browser tab with the operations the page drivers
// need. Sessions are not safe for concurrent use; the scheduler
// serializes all page work.
type Session struct {
	page       playwright.Page
	log        *logging.Logger
	lastUsedAt time.Time
}

func newSession(page playwright.Page, log *logging.Logger) *Session {
	return &Session{
		page:       page,
		log:        log,
		lastUsedAt: time.Now(),
	}
}

func (s *Session) touch() {
	s.lastUsedAt = time.Now()
}

// URL returns the tab's current URL.
func (s *Session) URL() string {
	return s.page.URL()
}

// Attached reports whether the tab is still open.
func (s *Session) Attached() bool {
	return !s.page.IsClosed()
}

// LastUsedAt returns the time of the last operation on this session.
func (s *Session) LastUsedAt() time.Time {
	return s.lastUsedAt
}

// Click clicks the first element matching the selector.
func (s *Session) Click(selector string) error {
	s.touch()
	if err := s.page.Click(selector); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// ClickHandle clicks a previously captured element handle.
func (s *Session) ClickHandle(handle playwright.ElementHandle) error {
	s.touch()
	if err := handle.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Fill replaces the value of an input element.
func (s *Session) Fill(selector, value string) error {
	s.touch()
	if err := s.page.Fill(selector, value); err != nil {
		return fmt.Errorf("fill %q failed: %w", selector, err)
	}
	return nil
}

// Press presses a keyboard key on the element matching the selector.
func (s *Session) Press(selector, key string) error {
	s.touch()
	if err := s.page.Press(selector, key); err != nil {
		return fmt.Errorf("press %q on %q failed: %w", key, selector, err)
	}
	return nil
}

// Query returns the first element matching the selector, or nil.
func (s *Session) Query(selector string) (playwright.ElementHandle, error) {
	s.touch()
	element, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("query %q failed: %w", selector, err)
	}
	return element, nil
}

// QueryAll returns every element matching the selector.
func (s *Session) QueryAll(selector string) ([]playwright.ElementHandle, error) {
	s.touch()
	elements, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("query all %q failed: %w", selector, err)
	}
	return elements, nil
}

// TextContent returns the trimmed text of the first matching element.
// The second return is false when no element matched.
func (s *Session) TextContent(selector string) (string, bool, error) {
	element, err := s.Query(selector)
	if err != nil {
		return "", false, err
	}
	if element == nil {
		return "", false, nil
	}
	text, err := element.TextContent()
	if err != nil {
		return "", false, fmt.Errorf("text of %q failed: %w", selector, err)
	}
	return text, true, nil
}

// Evaluate runs a JavaScript expression in the page and returns its result.
func (s *Session) Evaluate(expression string, args ...interface{}) (interface{}, error) {
	s.touch()
	var result interface{}
	var err error
	if len(args) > 0 {
		result, err = s.page.Evaluate(expression, args[0])
	} else {
		result, err = s.page.Evaluate(expression)
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return result, nil
}

// InnerHTML returns the inner HTML of the first matching element.
func (s *Session) InnerHTML(selector string) (string, error) {
	s.touch()
	html, err := s.page.InnerHTML(selector)
	if err != nil {
		return "", fmt.Errorf("inner html of %q failed: %w", selector, err)
	}
	return html, nil
}

// WaitVisible waits up to timeout for the selector to become visible.
func (s *Session) WaitVisible(selector string, timeout time.Duration) error {
	s.touch()
	state := playwright.WaitForSelectorStateVisible
	ms := float64(timeout.Milliseconds())
	_, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   state,
		Timeout: &ms,
	})
	if err != nil {
		return fmt.Errorf("wait for %q failed: %w", selector, err)
	}
	return nil
}

// Visible reports whether an element matching the selector is currently
// visible. Missing elements are not an error.
func (s *Session) Visible(selector string) (bool, error) {
	element, err := s.Query(selector)
	if err != nil {
		return false, err
	}
	if element == nil {
		return false, nil
	}
	visible, err := element.IsVisible()
	if err != nil {
		return false, fmt.Errorf("visibility of %q failed: %w", selector, err)
	}
	return visible, nil
}

// Navigate loads a URL in the tab.
func (s *Session) Navigate(url string) error {
	s.touch()
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigate to %s failed: %w", url, err)
	}
	return nil
}
