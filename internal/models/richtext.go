package models

import "strings"

// Annotations are the style flags of a rich text span
type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

// Link is the target of a text span's inline link
type Link struct {
	URL string `json:"url"`
}

// TextContent is the payload of a span of type "text"
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

// DateValue is a Notion date, used by date mentions and date properties
type DateValue struct {
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
}

// ObjectRef references a user, page or database by id
type ObjectRef struct {
	Object string `json:"object,omitempty"`
	ID     string `json:"id"`
}

// Mention kinds
const (
	MentionUser     = "user"
	MentionPage     = "page"
	MentionDatabase = "database"
	MentionDate     = "date"
)

// Mention describes what a span of type "mention" refers to
type Mention struct {
	Type     string     `json:"type"`
	User     *ObjectRef `json:"user,omitempty"`
	Page     *ObjectRef `json:"page,omitempty"`
	Database *ObjectRef `json:"database,omitempty"`
	Date     *DateValue `json:"date,omitempty"`
}

// TargetID returns the id of the mentioned user, page or database
func (m Mention) TargetID() string {
	switch m.Type {
	case MentionUser:
		if m.User != nil {
			return m.User.ID
		}
	case MentionPage:
		if m.Page != nil {
			return m.Page.ID
		}
	case MentionDatabase:
		if m.Database != nil {
			return m.Database.ID
		}
	}
	return ""
}

// Equation is the payload of an inline equation span
type Equation struct {
	Expression string `json:"expression"`
}

// RichText is one styled span of text
type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        string       `json:"href,omitempty"`
	Annotations Annotations  `json:"annotations"`
	Text        *TextContent `json:"text,omitempty"`
	Mention     *Mention     `json:"mention,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
}

// IsMention reports whether the span is a mention
func (r RichText) IsMention() bool {
	return r.Type == "mention" && r.Mention != nil
}

// PlainText concatenates the plain text of all spans
func PlainText(spans []RichText) string {
	var sb strings.Builder
	for _, span := range spans {
		sb.WriteString(span.PlainText)
	}
	return sb.String()
}

// Text builds a plain text span
func Text(content string) RichText {
	return RichText{
		Type:      "text",
		PlainText: content,
		Text:      &TextContent{Content: content},
	}
}
