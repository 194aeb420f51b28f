package assistant

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ExtractParagraphs pulls the paragraph texts out of a reply block's
// HTML. Paragraphs keep their order; empty ones are dropped. Code
// blocks and list items count as paragraphs so a formatted reply stays
// readable once the paragraphs are rejoined with blank lines.
func ExtractParagraphs(rawHTML string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse reply HTML: %w", err)
	}

	var paragraphs []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isParagraphElement(strings.ToLower(n.Data)) {
			text := strings.TrimSpace(nodeText(n))
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return paragraphs, nil
}

// FlattenReply turns a reply block's HTML into plain text. Paragraphs
// are joined with blank lines; when the block has no paragraph
// structure at all, the raw text content is the fallback.
func FlattenReply(rawHTML string) (string, error) {
	paragraphs, err := ExtractParagraphs(rawHTML)
	if err != nil {
		return "", err
	}
	if len(paragraphs) > 0 {
		return strings.Join(paragraphs, "\n\n"), nil
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse reply HTML: %w", err)
	}
	return strings.TrimSpace(nodeText(doc)), nil
}

// isParagraphElement returns true for block elements treated as one
// paragraph of reply text.
func isParagraphElement(tagName string) bool {
	paragraphs := map[string]bool{
		"p":   true,
		"li":  true,
		"pre": true,
		"h1":  true,
		"h2":  true,
		"h3":  true,
		"h4":  true,
	}
	return paragraphs[tagName]
}

// nodeText collects the concatenated text content under a node,
// skipping script and style subtrees.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "button":
			return ""
		}
	}

	var builder strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		builder.WriteString(nodeText(c))
	}
	return builder.String()
}
