package markdown

import (
	"regexp"

	"github.com/google/uuid"
)

// ExternalMarker is appended to the text of links that point at Notion pages
// outside the export.
const ExternalMarker = " ↗"

// notionPagePatterns are tried in order; the first match wins
var notionPagePatterns = []*regexp.Regexp{
	// notion.so/<workspace>/<id>
	regexp.MustCompile(`notion\.so/[^/]+/([a-f0-9]{32})`),
	// notion.so/<id>
	regexp.MustCompile(`notion\.so/([a-f0-9]{32})`),
	// notion.so/<Title-Slug>-<id>
	regexp.MustCompile(`notion\.so/[^/]+-([a-f0-9]{32})`),
}

// NotionPageID extracts the dashed page id from a Notion page URL
func NotionPageID(href string) (string, bool) {
	for _, pattern := range notionPagePatterns {
		m := pattern.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		id, err := uuid.Parse(m[1])
		if err != nil {
			continue
		}
		return id.String(), true
	}
	return "", false
}

// resolveHref maps an href to a local link when it names an exported page.
// external is true for Notion page links that are not part of the export.
func (r *Renderer) resolveHref(href string) (target string, external bool) {
	if len(r.Index) == 0 {
		return href, false
	}
	id, ok := NotionPageID(href)
	if !ok {
		return href, false
	}
	if link, found := r.Index.Link(r.SourcePath, id); found {
		return link, false
	}
	return href, true
}
