// Package richtext renders CMS structured text as HTML or plain text.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Block types emitted by the CMS.
const (
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Paragraph    = "paragraph"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// Span types.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// Text is a rich text field: an ordered list of blocks.
type Text []Block

// Block is a single structured text node.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`

	// Image blocks
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`

	// Embed blocks
	Oembed *Oembed `json:"oembed,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Oembed is the payload of an embed block.
type Oembed struct {
	EmbedURL string `json:"embed_url"`
	HTML     string `json:"html"`
}

// Span marks a range of runes in Block.Text. Start is inclusive, End exclusive.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries link targets and label names.
type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Label  string `json:"label,omitempty"`
}

// AsText flattens rich text to plain text, joining blocks with a single space.
func AsText(t Text) string {
	parts := make([]string, 0, len(t))
	for _, b := range t {
		if b.Type == Image || b.Type == Embed {
			continue
		}
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, " ")
}

// Component returns a templ.Component that renders t as HTML.
func Component(t Text) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, t)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AsHTML renders t to an HTML string.
func AsHTML(t Text) string {
	var buf bytes.Buffer
	Render(&buf, t)
	return buf.String()
}

// Render writes the HTML representation of t to buf.
// Consecutive list items are grouped into a single list.
func Render(buf *bytes.Buffer, t Text) {
	inList := false
	inOrderedList := false

	flushList := func() {
		if inList {
			buf.WriteString("</ul>")
			inList = false
		}
	}
	flushOrderedList := func() {
		if inOrderedList {
			buf.WriteString("</ol>")
			inOrderedList = false
		}
	}

	for _, b := range t {
		switch b.Type {
		case ListItem:
			flushOrderedList()
			if !inList {
				buf.WriteString("<ul>")
				inList = true
			}
			writeElement(buf, "li", b)
			continue
		case OListItem:
			flushList()
			if !inOrderedList {
				buf.WriteString("<ol>")
				inOrderedList = true
			}
			writeElement(buf, "li", b)
			continue
		}

		flushList()
		flushOrderedList()

		switch b.Type {
		case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
			writeElement(buf, "h"+b.Type[len(b.Type)-1:], b)
		case Preformatted:
			buf.WriteString("<pre>")
			buf.WriteString(html.EscapeString(b.Text))
			buf.WriteString("</pre>")
		case Image:
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			buf.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`)
			if b.Dimensions != nil {
				buf.WriteString(` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`)
			}
			buf.WriteString(` loading="lazy" decoding="async"/>`)
		case Embed:
			if b.Oembed == nil {
				continue
			}
			href := SafeURL(b.Oembed.EmbedURL)
			if href == "" {
				continue
			}
			buf.WriteString(`<div class="embed"><a href="` + href + `" target="_blank" rel="noopener noreferrer">` + href + `</a></div>`)
		default:
			writeElement(buf, "p", b)
		}
	}
	flushList()
	flushOrderedList()
}

func writeElement(buf *bytes.Buffer, tag string, b Block) {
	buf.WriteString("<" + tag + ">")
	buf.WriteString(FormatSpans(b.Text, b.Spans))
	buf.WriteString("</" + tag + ">")
}

// FormatSpans escapes text and wraps the ranges covered by spans in their
// inline tags. Overlapping spans are closed and reopened so the output nests.
func FormatSpans(text string, spans []Span) string {
	runes := []rune(text)
	if len(spans) == 0 {
		return strings.ReplaceAll(html.EscapeString(text), "\n", "<br/>")
	}

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > len(runes) || s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		// Longer spans open first so they close last.
		return valid[i].End > valid[j].End
	})

	var out strings.Builder
	var open []Span
	next := 0
	for i := 0; i <= len(runes); i++ {
		// Close spans ending here, reopening any inner span that outlives them.
		var reopen []Span
		for k := len(open) - 1; k >= 0; k-- {
			if open[k].End != i {
				continue
			}
			for j := len(open) - 1; j > k; j-- {
				out.WriteString(closeTag(open[j]))
				if open[j].End != i {
					reopen = append([]Span{open[j]}, reopen...)
				}
			}
			out.WriteString(closeTag(open[k]))
			open = open[:k]
			for _, r := range reopen {
				out.WriteString(openTag(r))
				open = append(open, r)
			}
			reopen = nil
		}
		for next < len(valid) && valid[next].Start == i {
			out.WriteString(openTag(valid[next]))
			open = append(open, valid[next])
			next++
		}
		if i < len(runes) {
			if runes[i] == '\n' {
				out.WriteString("<br/>")
			} else {
				out.WriteString(html.EscapeString(string(runes[i])))
			}
		}
	}
	for k := len(open) - 1; k >= 0; k-- {
		out.WriteString(closeTag(open[k]))
	}
	return out.String()
}

func openTag(s Span) string {
	switch s.Type {
	case Strong:
		return "<strong>"
	case Em:
		return "<em>"
	case Hyperlink:
		href := ""
		if s.Data != nil {
			href = SafeURL(s.Data.URL)
		}
		if href == "" {
			return "<span>"
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`
	case Label:
		if s.Data != nil && s.Data.Label != "" {
			return `<span class="` + html.EscapeString(s.Data.Label) + `">`
		}
		return "<span>"
	default:
		return "<span>"
	}
}

func closeTag(s Span) string {
	switch s.Type {
	case Strong:
		return "</strong>"
	case Em:
		return "</em>"
	case Hyperlink:
		if s.Data != nil && SafeURL(s.Data.URL) != "" {
			return "</a>"
		}
		return "</span>"
	default:
		return "</span>"
	}
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
