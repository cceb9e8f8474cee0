package html

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents, extracting readable text and the
// page title.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// skippedElements contain no user-facing text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Svg:      true,
	atom.Iframe:   true,
}

// blockElements introduce a paragraph break in the extracted text.
var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Br:         true,
	atom.Hr:         true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Blockquote: true,
	atom.Pre:        true,
	atom.Table:      true,
	atom.Section:    true,
	atom.Article:    true,
}

var multiNewlines = regexp.MustCompile(`\n{3,}`)
var trailingSpace = regexp.MustCompile(`[ \t]+\n`)

// Normalise parses the HTML and extracts readable text, one paragraph
// per block element, scripts and styles dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	doc, err := html.Parse(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	var title string

	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.ElementNode:
			if node.DataAtom == atom.Title && title == "" {
				title = strings.TrimSpace(textContent(node))
				return
			}
			if skippedElements[node.DataAtom] {
				return
			}
		case html.TextNode:
			text := strings.TrimSpace(node.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteByte(' ')
			}
		}

		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}

		if node.Type == html.ElementNode && blockElements[node.DataAtom] {
			buf.WriteString("\n\n")
		}
	}
	walk(doc)

	content := trailingSpace.ReplaceAllString(buf.String(), "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	return &driven.NormaliseResult{
		Content: content,
		Title:   title,
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "html",
		},
	}, nil
}

// textContent concatenates the text nodes under a node.
func textContent(node *html.Node) string {
	var buf strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			buf.WriteString(child.Data)
		} else {
			buf.WriteString(textContent(child))
		}
	}
	return buf.String()
}
