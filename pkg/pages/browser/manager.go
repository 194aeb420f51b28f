// Package browser owns the Playwright runtime and hands out page
// sessions for the inbox and assistant tabs. The bridge prefers
// attaching to the operator's already logged-in browser over CDP;
// launching a fresh browser is the fallback for development.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/sifact/gpt-messenger-bridge-plugin/pkg/logging"
)

// Options configures the browser runtime.
type Options struct {
	// CDPAddress is the DevTools endpoint of a running browser, e.g.
	// "http://127.0.0.1:9222". When set, the manager attaches instead
	// of launching.
	CDPAddress string

	// Headless applies only when launching a browser.
	Headless bool

	// Timeout is the default per-operation timeout in milliseconds.
	Timeout float64
}

// DefaultTimeout is the per-operation timeout in milliseconds.
const DefaultTimeout = 30000.0

// Manager owns the Playwright instance and the attached or launched
// browser. All page sessions share one browser so they see the same
// login cookies.
type Manager struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	opts        Options
	log         *logging.Logger
	initialized bool
}

// NewManager creates a manager. Initialize must be called before use.
func NewManager(opts Options) *Manager {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	// NewLogger falls back to stderr on error, which is fine here.
	log, _ := logging.NewLogger("browser")
	return &Manager{
		opts: opts,
		log:  log,
	}
}

// Initialize starts Playwright and attaches to or launches the browser.
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	m.pw = pw

	if m.opts.CDPAddress != "" {
		browser, err := pw.Chromium.ConnectOverCDP(m.opts.CDPAddress)
		if err != nil {
			pw.Stop()
			return fmt.Errorf("failed to attach to browser at %s: %w", m.opts.CDPAddress, err)
		}
		m.browser = browser

		contexts := browser.Contexts()
		if len(contexts) == 0 {
			browser.Close()
			pw.Stop()
			return fmt.Errorf("attached browser at %s has no contexts", m.opts.CDPAddress)
		}
		m.context = contexts[0]
		m.log.Infof("Attached to browser at %s (%d open pages)", m.opts.CDPAddress, len(m.context.Pages()))
	} else {
		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: &m.opts.Headless,
		})
		if err != nil {
			pw.Stop()
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		m.browser = browser

		context, err := browser.NewContext()
		if err != nil {
			browser.Close()
			pw.Stop()
			return fmt.Errorf("failed to create context: %w", err)
		}
		m.context = context
		m.log.Infof("Launched browser (headless=%v)", m.opts.Headless)
	}

	m.initialized = true
	return nil
}

// FindPage returns a session over the first open tab whose URL the
// match function accepts.
func (m *Manager) FindPage(match func(url string) bool) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}

	for _, page := range m.context.Pages() {
		if match(page.URL()) {
			page.SetDefaultTimeout(m.opts.Timeout)
			return newSession(page, m.log), nil
		}
	}
	return nil, fmt.Errorf("no open tab matched")
}

// OpenPage opens a new tab at the given URL and returns its session.
func (m *Manager) OpenPage(url string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("browser manager not initialized")
	}

	page, err := m.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page.SetDefaultTimeout(m.opts.Timeout)

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	m.log.Infof("Opened page %s", url)
	return newSession(page, m.log), nil
}

// Shutdown closes the browser (when launched) and stops Playwright.
// An attached browser is left running; only the connection is dropped.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.log.Warnf("Error closing browser: %v", err)
		}
	}

	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
	}

	m.initialized = false
	m.log.Close()
	return nil
}
