package utils

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// MarkupTags are the only elements RenderMarkup lets through. No attributes are allowed.
var MarkupTags = []string{"p", "br", "ul", "li", "ol", "strong", "i", "em", "h1", "h2"}

var (
	// strict removes every tag and attribute, dropping the content of script and style
	strict = bluemonday.StrictPolicy()

	markupPolicy = func() *bluemonday.Policy {
		p := bluemonday.NewPolicy()
		p.AllowElements(MarkupTags...)
		return p
	}()

	// goldmark leaves raw HTML out of its output unless html.WithUnsafe is set
	markdown = goldmark.New()
)

// StripHTML removes all HTML from input and trims surrounding whitespace.
func StripHTML(input string) string {
	return strings.TrimSpace(strict.Sanitize(strings.TrimSpace(input)))
}

// RenderMarkup converts markdown to HTML restricted to MarkupTags.
func RenderMarkup(raw string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(raw), &buf); err != nil {
		// fall back to the escaped source text
		return template.HTML(markupPolicy.Sanitize(template.HTMLEscapeString(raw)))
	}
	return template.HTML(markupPolicy.SanitizeBytes(buf.Bytes()))
}
