package feed

import (
	"encoding/xml"
	"html"
	"strings"

	"github.com/parthsinha/medium-sync/apperr"
)

// Medium wraps most item text in CDATA sections. Text keeps the raw
// inner XML of an element so the normalizer can tell a CDATA-wrapped
// value from a plain one and unwrap both through the same helper.
type Text struct {
	Inner string `xml:",innerxml"`
}

const (
	cdataPrefix = "<![CDATA["
	cdataSuffix = "]]>"
)

// IsCDATA reports whether the value arrived wrapped in a CDATA section.
func (t Text) IsCDATA() bool {
	s := strings.TrimSpace(t.Inner)
	return strings.HasPrefix(s, cdataPrefix) && strings.HasSuffix(s, cdataSuffix)
}

// Value returns the unwrapped text content.
func (t Text) Value() string {
	return unwrapText(t.Inner)
}

// IsZero reports whether the element was absent or empty.
func (t Text) IsZero() bool {
	return strings.TrimSpace(t.Inner) == ""
}

// unwrapText is the single unwrap rule shared by every text-bearing
// field: strip a CDATA wrapper when present, otherwise resolve entity
// references in the plain text.
func unwrapText(inner string) string {
	s := strings.TrimSpace(inner)
	if strings.HasPrefix(s, cdataPrefix) && strings.HasSuffix(s, cdataSuffix) {
		return s[len(cdataPrefix) : len(s)-len(cdataSuffix)]
	}
	return html.UnescapeString(s)
}

// RawGUID is the guid element: an isPermaLink attribute plus text
// content that may or may not be CDATA-wrapped.
type RawGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Inner       string `xml:",innerxml"`
}

// Value returns the guid string, preferring the unwrapped text form
// over the raw field value.
func (g RawGUID) Value() string {
	return unwrapText(g.Inner)
}

// RawItem is one feed entry before normalization. Namespaced fields
// (dc:creator, atom:updated, content:encoded) are matched by local
// name.
type RawItem struct {
	Title      Text    `xml:"title"`
	Link       string  `xml:"link"`
	GUID       RawGUID `xml:"guid"`
	Categories []Text  `xml:"category"`
	Creator    Text    `xml:"creator"`
	PubDate    string  `xml:"pubDate"`
	Updated    string  `xml:"updated"`
	Content    Text    `xml:"encoded"`
}

type document struct {
	XMLName xml.Name `xml:"rss"`
	Channel *channel `xml:"channel"`
}

type channel struct {
	Title Text      `xml:"title"`
	Items []RawItem `xml:"item"`
}

// Parse decodes raw feed bytes into the channel's items. A document
// that is not well-formed XML, is not an RSS feed, or lacks a channel
// is a parse error. An item with a single category still decodes into
// a one-element slice.
func Parse(raw []byte) ([]RawItem, error) {
	var doc document
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindParse, "malformed feed document", err)
	}
	if doc.Channel == nil {
		return nil, apperr.New(apperr.KindParse, "feed document has no channel")
	}
	return doc.Channel.Items, nil
}
