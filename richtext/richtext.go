// Package richtext converts Prismic structured text into plain text and HTML.
package richtext

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/microcosm-cc/bluemonday"
)

// Block types.
const (
	Paragraph     = "paragraph"
	Preformatted  = "preformatted"
	ListItem      = "list-item"
	OListItem     = "o-list-item"
	Image         = "image"
	Embed         = "embed"
	headingPrefix = "heading"
)

// Span types.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// RichText is an ordered list of blocks.
type RichText []Block

// Block is one structured text element.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Oembed     *Oembed     `json:"oembed,omitempty"`
}

// Dimensions of an image block.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Oembed payload of an embed block.
type Oembed struct {
	Type     string `json:"type"`
	EmbedURL string `json:"embed_url"`
	HTML     string `json:"html"`
	Title    string `json:"title,omitempty"`
}

// Span marks a formatted range of a block's text. Start and End count UTF-16
// code units, as the CMS does.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries the target of a hyperlink or the name of a label.
type SpanData struct {
	LinkType string `json:"link_type,omitempty"` // Web, Document or Media
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
	ID       string `json:"id,omitempty"`
	UID      string `json:"uid,omitempty"`
	Type     string `json:"type,omitempty"`
	Label    string `json:"label,omitempty"`
}

// LinkResolver maps a document link to a site URL.
type LinkResolver func(link SpanData) string

// AsText joins the text of every block with sep.
func AsText(blocks RichText, sep string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, sep)
}

var (
	policy    = newPolicy()
	httpsOnly = regexp.MustCompile(`^https://`)
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("figure", "figcaption")
	p.AllowAttrs("class").OnElements("figure", "div", "span", "p", "pre")
	p.AllowAttrs("data-oembed", "data-oembed-type").OnElements("div")
	p.AllowAttrs("loading").OnElements("img")
	p.AllowElements("iframe")
	p.AllowAttrs("width", "height", "title", "allow", "allowfullscreen", "frameborder").OnElements("iframe")
	p.AllowAttrs("src").Matching(httpsOnly).OnElements("iframe")
	p.AllowAttrs("target").Matching(bluemonday.SpaceSeparatedTokens).OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("https", "http", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(false)
	return p
}

// AsHTML renders blocks as sanitized HTML. resolve may be nil, in which case
// document links point nowhere.
func AsHTML(blocks RichText, resolve LinkResolver) string {
	var b strings.Builder
	for i := 0; i < len(blocks); {
		blk := blocks[i]
		switch blk.Type {
		case ListItem, OListItem:
			tag := "ul"
			if blk.Type == OListItem {
				tag = "ol"
			}
			b.WriteString("<" + tag + ">")
			for i < len(blocks) && blocks[i].Type == blk.Type {
				b.WriteString("<li>")
				writeSpans(&b, blocks[i], resolve)
				b.WriteString("</li>")
				i++
			}
			b.WriteString("</" + tag + ">")
			continue
		default:
			writeBlock(&b, blk, resolve)
		}
		i++
	}
	return policy.Sanitize(b.String())
}

func writeBlock(b *strings.Builder, blk Block, resolve LinkResolver) {
	switch {
	case blk.Type == Paragraph:
		b.WriteString("<p>")
		writeSpans(b, blk, resolve)
		b.WriteString("</p>")
	case blk.Type == Preformatted:
		b.WriteString("<pre>")
		writeSpans(b, blk, resolve)
		b.WriteString("</pre>")
	case strings.HasPrefix(blk.Type, headingPrefix):
		level, err := strconv.Atoi(strings.TrimPrefix(blk.Type, headingPrefix))
		if err != nil || level < 1 || level > 6 {
			level = 2
		}
		tag := "h" + strconv.Itoa(level)
		b.WriteString("<" + tag + ">")
		writeSpans(b, blk, resolve)
		b.WriteString("</" + tag + ">")
	case blk.Type == Image:
		if blk.URL == "" {
			return
		}
		b.WriteString(`<p class="block-img"><img src="`)
		b.WriteString(html.EscapeString(blk.URL))
		b.WriteString(`" alt="`)
		b.WriteString(html.EscapeString(blk.Alt))
		b.WriteString(`"`)
		if d := blk.Dimensions; d != nil && d.Width > 0 && d.Height > 0 {
			b.WriteString(` width="` + strconv.Itoa(d.Width) + `" height="` + strconv.Itoa(d.Height) + `"`)
		}
		b.WriteString(` loading="lazy" /></p>`)
	case blk.Type == Embed:
		if blk.Oembed == nil {
			return
		}
		b.WriteString(`<div data-oembed="`)
		b.WriteString(html.EscapeString(blk.Oembed.EmbedURL))
		b.WriteString(`" data-oembed-type="`)
		b.WriteString(html.EscapeString(blk.Oembed.Type))
		b.WriteString(`">`)
		b.WriteString(blk.Oembed.HTML)
		b.WriteString(`</div>`)
	default:
		if blk.Text == "" {
			return
		}
		b.WriteString("<p>")
		writeSpans(b, blk, resolve)
		b.WriteString("</p>")
	}
}

type spanNode struct {
	span     *Span
	start    int
	end      int
	children []*spanNode
}

// writeSpans renders the block text with its spans nested by range. A span
// that overlaps the end of an enclosing span is clipped to it.
func writeSpans(b *strings.Builder, blk Block, resolve LinkResolver) {
	units := utf16.Encode([]rune(blk.Text))
	n := len(units)

	spans := make([]Span, 0, len(blk.Spans))
	for _, s := range blk.Spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End {
			continue
		}
		spans = append(spans, s)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})

	root := &spanNode{start: 0, end: n}
	stack := []*spanNode{root}
	for i := range spans {
		s := &spans[i]
		for len(stack) > 1 && stack[len(stack)-1].end <= s.Start {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		node := &spanNode{span: s, start: s.Start, end: min(s.End, parent.end)}
		parent.children = append(parent.children, node)
		stack = append(stack, node)
	}
	writeNode(b, root, units, resolve)
}

func writeNode(b *strings.Builder, node *spanNode, units []uint16, resolve LinkResolver) {
	open, closeTag := spanTags(node.span, resolve)
	b.WriteString(open)
	pos := node.start
	for _, child := range node.children {
		writeText(b, units[pos:child.start])
		writeNode(b, child, units, resolve)
		pos = child.end
	}
	writeText(b, units[pos:node.end])
	b.WriteString(closeTag)
}

func writeText(b *strings.Builder, units []uint16) {
	if len(units) == 0 {
		return
	}
	text := html.EscapeString(string(utf16.Decode(units)))
	b.WriteString(strings.ReplaceAll(text, "\n", "<br />"))
}

func spanTags(s *Span, resolve LinkResolver) (string, string) {
	if s == nil {
		return "", ""
	}
	switch s.Type {
	case Strong:
		return "<strong>", "</strong>"
	case Em:
		return "<em>", "</em>"
	case Label:
		if s.Data == nil || s.Data.Label == "" {
			return "<span>", "</span>"
		}
		return `<span class="` + html.EscapeString(s.Data.Label) + `">`, "</span>"
	case Hyperlink:
		href := linkURL(s.Data, resolve)
		if href == "" {
			return "", ""
		}
		attrs := `href="` + html.EscapeString(href) + `"`
		if s.Data.Target != "" {
			attrs += ` target="` + html.EscapeString(s.Data.Target) + `"`
		}
		return "<a " + attrs + ">", "</a>"
	}
	return "", ""
}

func linkURL(d *SpanData, resolve LinkResolver) string {
	if d == nil {
		return ""
	}
	if d.LinkType == "Document" {
		if resolve == nil {
			return ""
		}
		return resolve(*d)
	}
	return d.URL
}
