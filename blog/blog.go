// Package blog maps raw CMS documents into the post view models rendered by
// the front end.
package blog

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/eringen/pubfront/cms"
	"github.com/eringen/pubfront/richtext"
)

// DocumentType is the CMS custom type holding blog posts.
const DocumentType = "posts"

// PostSummary is a post as shown in the listing.
type PostSummary struct {
	UID             string     `json:"uid"`
	PublicationDate *time.Time `json:"first_publication_date"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	Author          string     `json:"author"`
}

// Link returns the post page path.
func (p PostSummary) Link() string {
	return "/posts/" + p.UID + "/"
}

// Section is a titled chunk of post content.
type Section struct {
	Heading string        `json:"heading"`
	Body    richtext.Text `json:"body"`
}

// PostDetail is a fully loaded post.
type PostDetail struct {
	UID             string
	Title           string
	Subtitle        string
	Author          string
	PublicationDate *time.Time
	BannerURL       string
	// Content is nil when the document has no usable content field.
	Content []Section
}

// Summary returns the listing view of the post.
func (p PostDetail) Summary() PostSummary {
	return PostSummary{
		UID:             p.UID,
		PublicationDate: p.PublicationDate,
		Title:           p.Title,
		Subtitle:        p.Subtitle,
		Author:          p.Author,
	}
}

type postData struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Author   string `json:"author"`
	Banner   struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content json.RawMessage `json:"content"`
}

// decodeData tolerates malformed data: fields that fail to decode stay empty.
func decodeData(raw json.RawMessage) postData {
	var d postData
	if len(raw) == 0 {
		return d
	}
	if err := json.Unmarshal(raw, &d); err == nil {
		return d
	}
	// Fall back to field-by-field decoding so one bad field does not blank
	// the whole post.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return postData{}
	}
	_ = json.Unmarshal(fields["title"], &d.Title)
	_ = json.Unmarshal(fields["subtitle"], &d.Subtitle)
	_ = json.Unmarshal(fields["author"], &d.Author)
	_ = json.Unmarshal(fields["banner"], &d.Banner)
	d.Content = fields["content"]
	return d
}

// SummaryFromDocument maps a raw posts document to a PostSummary.
func SummaryFromDocument(doc cms.Document) PostSummary {
	d := decodeData(doc.Data)
	return PostSummary{
		UID:             doc.UID,
		PublicationDate: doc.FirstPublicationDate,
		Title:           d.Title,
		Subtitle:        d.Subtitle,
		Author:          d.Author,
	}
}

// SummariesFromDocuments maps every document in order.
func SummariesFromDocuments(docs []cms.Document) []PostSummary {
	out := make([]PostSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, SummaryFromDocument(doc))
	}
	return out
}

// DetailFromDocument maps a raw posts document to a PostDetail.
func DetailFromDocument(doc cms.Document) PostDetail {
	d := decodeData(doc.Data)
	return PostDetail{
		UID:             doc.UID,
		Title:           d.Title,
		Subtitle:        d.Subtitle,
		Author:          d.Author,
		PublicationDate: doc.FirstPublicationDate,
		BannerURL:       d.Banner.URL,
		Content:         decodeContent(d.Content),
	}
}

// decodeContent returns nil unless raw is a JSON array of sections.
func decodeContent(raw json.RawMessage) []Section {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	sections := make([]Section, 0, len(items))
	for _, item := range items {
		var s struct {
			Heading json.RawMessage `json:"heading"`
			Body    json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(item, &s); err != nil {
			continue
		}
		sections = append(sections, Section{
			Heading: decodeHeading(s.Heading),
			Body:    decodeBody(s.Body),
		})
	}
	return sections
}

// decodeHeading accepts a plain string or a rich text title field.
func decodeHeading(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var t richtext.Text
	if err := json.Unmarshal(raw, &t); err == nil {
		return richtext.AsText(t)
	}
	return ""
}

func decodeBody(raw json.RawMessage) richtext.Text {
	var t richtext.Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	return t
}
