package generation

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jonathan/search-wizard/internal/llm"
)

var (
	leadingTag = regexp.MustCompile(`^<(!--|![dD][oO][cC][tT][yY][pP][eE]|[a-zA-Z][a-zA-Z0-9]*[\s>/])`)
	doctype    = regexp.MustCompile(`(?i)^<!doctype[^>]*>\s*`)
	docStart   = regexp.MustCompile(`(?i)<!doctype|<html[\s>]`)
	fence      = regexp.MustCompile("(?s)```([A-Za-z0-9_-]*)[^\\n]*\\n(.*?)```")
	htmlOpen   = regexp.MustCompile(`(?i)<html[\s>]`)
	htmlTag    = regexp.MustCompile(`(?i)<html[^>]*>`)
	htmlClose  = regexp.MustCompile(`(?i)</html\s*>`)
	headOpen   = regexp.MustCompile(`(?i)<head[\s>]`)
	headClose  = regexp.MustCompile(`(?i)</head\s*>`)
	bodyOpen   = regexp.MustCompile(`(?i)<body[\s>]`)
)

// Raw HTML inside Markdown replies must survive conversion
var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithUnsafe()))

const head = `<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
</head>
`

// EnsureHTMLDocument turns a model reply into a complete standalone HTML
// document. An HTML code block or document embedded in surrounding prose is
// cut out, Markdown is converted, fragments are wrapped and a missing head
// or body is added. title is used only when a head has to be created.
func EnsureHTMLDocument(reply, title string) (string, error) {
	text, err := documentSource(reply)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty document")
	}

	text = doctype.ReplaceAllString(text, "")
	heading := fmt.Sprintf(head, html.EscapeString(title))

	switch {
	case htmlOpen.MatchString(text):
		text = completeDocument(text, heading)
	case bodyOpen.MatchString(text):
		text = "<html lang=\"en\">\n" + heading + text + "\n</html>"
	default:
		text = "<html lang=\"en\">\n" + heading + "<body>\n" + text + "\n</body>\n</html>"
	}

	return "<!DOCTYPE html>\n" + text + "\n", nil
}

// documentSource isolates the HTML the model produced. A fenced HTML block
// wins, then a document starting at <!DOCTYPE or <html. Replies without
// markup at the start are treated as Markdown.
func documentSource(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if block, ok := fencedHTML(text); ok {
		text = block
	} else {
		text = llm.CleanJSONBlock(text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if loc := docStart.FindStringIndex(text); loc != nil {
		text = text[loc[0]:]
		if ends := htmlClose.FindAllStringIndex(text, -1); len(ends) > 0 {
			text = text[:ends[len(ends)-1][1]]
		}
		return text, nil
	}
	if leadingTag.MatchString(text) {
		return text, nil
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// fencedHTML returns the first code block labelled html, or failing that
// the first unlabelled block whose content is markup.
func fencedHTML(text string) (string, bool) {
	blocks := fence.FindAllStringSubmatch(text, -1)
	for _, b := range blocks {
		switch strings.ToLower(b[1]) {
		case "html", "htm", "xhtml":
			return strings.TrimSpace(b[2]), true
		}
	}
	for _, b := range blocks {
		body := strings.TrimSpace(b[2])
		if b[1] == "" && (docStart.MatchString(body) || leadingTag.MatchString(body)) {
			return body, true
		}
	}
	return "", false
}

// completeDocument adds the head, body and closing tag an <html> document
// is missing.
func completeDocument(text, heading string) string {
	if !headOpen.MatchString(text) {
		open := htmlTag.FindStringIndex(text)
		text = text[:open[1]] + "\n" + heading + strings.TrimLeft(text[open[1]:], "\n")
	}

	if !bodyOpen.MatchString(text) {
		start := htmlTag.FindStringIndex(text)[1]
		if loc := headClose.FindStringIndex(text); loc != nil {
			start = loc[1]
		}
		end := len(text)
		if ends := htmlClose.FindAllStringIndex(text, -1); len(ends) > 0 && ends[len(ends)-1][0] >= start {
			end = ends[len(ends)-1][0]
		}
		text = text[:start] + "\n<body>\n" + strings.TrimSpace(text[start:end]) + "\n</body>\n" + text[end:]
	}

	if !htmlClose.MatchString(text) {
		text += "\n</html>"
	}
	return text
}
