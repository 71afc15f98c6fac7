package markdown

import (
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
)

// RichText renders a span sequence as inline Markdown
func (r *Renderer) RichText(spans []models.RichText) string {
	if len(spans) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, span := range spans {
		sb.WriteString(r.span(span))
	}
	return sb.String()
}

func (r *Renderer) span(span models.RichText) string {
	text := span.PlainText
	linked := false

	if span.IsMention() {
		switch span.Mention.Type {
		case models.MentionUser:
			if user, ok := r.Users[span.Mention.TargetID()]; ok && user.Name != "" {
				text = "@" + user.Name
			}
		case models.MentionPage:
			if link, ok := r.Index.Link(r.SourcePath, span.Mention.TargetID()); ok {
				text = "[" + text + "](" + link + ")"
				linked = true
			}
		case models.MentionDate:
			// dates keep their plain text
		}
	}

	text = annotate(text, span.Annotations)

	if span.Href != "" && !linked {
		target, external := r.resolveHref(span.Href)
		if external {
			text += ExternalMarker
		}
		text = "[" + text + "](" + target + ")"
	}
	return text
}

// annotate wraps text in a fixed order: code innermost, strikethrough outermost
func annotate(text string, a models.Annotations) string {
	if a.Code {
		text = "`" + text + "`"
	}
	if a.Bold {
		text = "**" + text + "**"
	}
	if a.Italic {
		text = "*" + text + "*"
	}
	if a.Strikethrough {
		text = "~~" + text + "~~"
	}
	return text
}
