package inbox

import (
	"github.com/playwright-community/playwright-go"
)

// rowHandle wraps a conversation row's element handle. A handle is only
// good for as long as the row stays in the DOM; the inbox re-renders its
// list frequently, so staleness is an expected outcome, not a bug.
type rowHandle struct {
	element playwright.ElementHandle
}

func newRowHandle(element playwright.ElementHandle) *rowHandle {
	return &rowHandle{element: element}
}

// Attached reports whether the row element is still part of the page.
func (h *rowHandle) Attached() bool {
	if h == nil || h.element == nil {
		return false
	}
	connected, err := h.element.Evaluate("el => el.isConnected")
	if err != nil {
		return false
	}
	attached, ok := connected.(bool)
	return ok && attached
}
