package client

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	answerMarkdown = goldmark.New()
	answerPolicy   = bluemonday.NewPolicy().AllowElements("strong", "em", "br")

	// literalMarkup keeps tags and entities in the answer as visible text;
	// goldmark never sees raw HTML.
	literalMarkup = strings.NewReplacer("&", "&amp;", "<", "&lt;")
)

// RenderAnswer turns an assistant answer into HTML safe to embed in a page.
// Markdown emphasis becomes strong/em and line breaks become br; any markup
// in the answer is shown literally, never executed.
func RenderAnswer(text string) string {
	src := literalMarkup.Replace(strings.ReplaceAll(text, "\r\n", "\n"))

	var buf bytes.Buffer
	if err := answerMarkdown.Convert([]byte(src), &buf); err != nil {
		return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
	}
	out := strings.TrimSpace(answerPolicy.Sanitize(buf.String()))
	return strings.ReplaceAll(out, "\n", "<br>")
}
