// Package profile defines selector profiles for the web surfaces the
// bridge drives. The inbox and assistant sites ship UI changes without
// notice, so every DOM selector lives in a profile that can be replaced
// from a YAML file instead of a rebuild.
package profile

import (
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// InboxSelectors identifies the inbox UI elements the bridge reads and writes.
type InboxSelectors struct {
	// ConversationRow matches one conversation in the thread list.
	ConversationRow string `yaml:"conversation_row"`
	// UnreadMarker must be present inside a row for it to count as unread.
	UnreadMarker string `yaml:"unread_marker"`
	// ReadMarker must be absent inside a row for it to count as unread.
	ReadMarker string `yaml:"read_marker"`
	// SenderName locates the display name inside a row.
	SenderName string `yaml:"sender_name"`
	// PreviewText locates the last-message preview inside a row.
	PreviewText string `yaml:"preview_text"`
	// ActiveSender locates the open conversation's header name.
	ActiveSender string `yaml:"active_sender"`
	// MessageBubble matches every message bubble in the open thread, in
	// document order.
	MessageBubble string `yaml:"message_bubble"`
	// OperatorBubble matches a bubble authored by the operator. Tested
	// against the last MessageBubble match to decide whose turn it is.
	OperatorBubble string `yaml:"operator_bubble"`
	// ReplyInputs are tried in order when injecting a reply.
	ReplyInputs []string `yaml:"reply_inputs"`
	// SendButton submits the composed reply.
	SendButton string `yaml:"send_button"`
}

// AssistantSelectors identifies the assistant UI elements.
type AssistantSelectors struct {
	// RichInput is the contenteditable prompt editor, preferred when present.
	RichInput string `yaml:"rich_input"`
	// FallbackInput is the plain textarea used by older page versions.
	FallbackInput string `yaml:"fallback_input"`
	// SendButton submits the prompt.
	SendButton string `yaml:"send_button"`
	// StopGenerating is visible while a reply is still streaming.
	StopGenerating string `yaml:"stop_generating"`
	// ReplyBlocks matches completed assistant reply containers.
	ReplyBlocks string `yaml:"reply_blocks"`
	// ReplyParagraphs matches the text paragraphs inside a reply block.
	ReplyParagraphs string `yaml:"reply_paragraphs"`
}

// SiteProfile bundles URL patterns and selectors for one deployment of
// the two sites.
type SiteProfile struct {
	// Name labels the profile in logs.
	Name string `yaml:"name"`
	// InboxURL and AssistantURL are glob patterns matched against tab URLs.
	InboxURL     string `yaml:"inbox_url"`
	AssistantURL string `yaml:"assistant_url"`

	Inbox     InboxSelectors     `yaml:"inbox"`
	Assistant AssistantSelectors `yaml:"assistant"`

	inboxGlob     glob.Glob
	assistantGlob glob.Glob
}

// Default returns the profile matching the current production layout of
// both sites.
func Default() *SiteProfile {
	p := &SiteProfile{
		Name:         "default",
		InboxURL:     "https://business.facebook.com/latest/inbox/*",
		AssistantURL: "https://chatgpt.com/*",
		Inbox: InboxSelectors{
			ConversationRow: `div[role="row"]`,
			UnreadMarker:    `div[aria-label="Mark as read"]`,
			ReadMarker:      `div[aria-label="Mark as unread"]`,
			SenderName:      `span[dir="auto"] > span`,
			PreviewText:     `span[dir="auto"] span:last-child`,
			ActiveSender:    `div[role="main"] h2 span`,
			MessageBubble:   `div[role="main"] div[data-scope="messages_table"] div[role="row"]`,
			OperatorBubble:  `div[data-is-own="true"]`,
			ReplyInputs: []string{
				`div[aria-label="Reply in Messenger…"]`,
				`div[contenteditable="true"][role="textbox"]`,
				`textarea[placeholder*="Reply"]`,
			},
			SendButton: `div[aria-label="Press enter to send"]`,
		},
		Assistant: AssistantSelectors{
			RichInput:       `div#prompt-textarea[contenteditable="true"]`,
			FallbackInput:   `textarea[data-id="root"]`,
			SendButton:      `button[data-testid="send-button"]`,
			StopGenerating:  `button[aria-label="Stop generating"]`,
			ReplyBlocks:     `div[data-message-author-role="assistant"]`,
			ReplyParagraphs: `div.markdown p`,
		},
	}
	if err := p.compile(); err != nil {
		// Default patterns are static and known to compile.
		panic(err)
	}
	return p
}

// Load reads a profile from a YAML file. Fields left empty in the file
// keep the default profile's values, so an override only needs the
// selectors that actually changed.
func Load(path string) (*SiteProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes YAML profile data on top of the defaults.
func Parse(raw []byte) (*SiteProfile, error) {
	p := Default()
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *SiteProfile) compile() error {
	inboxGlob, err := glob.Compile(p.InboxURL)
	if err != nil {
		return fmt.Errorf("compile inbox_url pattern %q: %w", p.InboxURL, err)
	}
	assistantGlob, err := glob.Compile(p.AssistantURL)
	if err != nil {
		return fmt.Errorf("compile assistant_url pattern %q: %w", p.AssistantURL, err)
	}
	p.inboxGlob = inboxGlob
	p.assistantGlob = assistantGlob
	return nil
}

// MatchesInbox reports whether a tab URL belongs to the inbox site.
func (p *SiteProfile) MatchesInbox(url string) bool {
	return p.inboxGlob.Match(url)
}

// MatchesAssistant reports whether a tab URL belongs to the assistant site.
func (p *SiteProfile) MatchesAssistant(url string) bool {
	return p.assistantGlob.Match(url)
}

// SetInboxURL replaces the inbox URL pattern and recompiles it.
func (p *SiteProfile) SetInboxURL(pattern string) error {
	old := p.InboxURL
	p.InboxURL = pattern
	if err := p.compile(); err != nil {
		p.InboxURL = old
		return err
	}
	return nil
}

// SetAssistantURL replaces the assistant URL pattern and recompiles it.
func (p *SiteProfile) SetAssistantURL(pattern string) error {
	old := p.AssistantURL
	p.AssistantURL = pattern
	if err := p.compile(); err != nil {
		p.AssistantURL = old
		return err
	}
	return nil
}
