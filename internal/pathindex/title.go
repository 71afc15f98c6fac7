package pathindex

import (
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
)

// Untitled is the title of pages where every strategy comes up empty
const Untitled = "Untitled"

// titleStrategy extracts a candidate title; ok is false when it found nothing
type titleStrategy func(p models.Page) (title string, ok bool)

// titleStrategies are tried in order; the first non-blank title wins
var titleStrategies = []titleStrategy{
	topLevelTitle,
	titleProperty,
	namedRichTextProperty("name", "entity"),
	firstRichTextProperty,
}

// Title returns the display title of a page or database
func Title(p models.Page) string {
	for _, strategy := range titleStrategies {
		if title, ok := strategy(p); ok {
			return title
		}
	}
	return Untitled
}

func nonBlank(text string) (string, bool) {
	return text, strings.TrimSpace(text) != ""
}

func topLevelTitle(p models.Page) (string, bool) {
	return nonBlank(models.PlainText(p.Title))
}

func titleProperty(p models.Page) (string, bool) {
	for _, np := range p.Properties {
		if np.Property.Type != models.PropertyTitle {
			continue
		}
		if title, ok := nonBlank(models.PlainText(np.Property.Title)); ok {
			return title, true
		}
	}
	return "", false
}

func namedRichTextProperty(names ...string) titleStrategy {
	return func(p models.Page) (string, bool) {
		for _, name := range names {
			for _, np := range p.Properties {
				if !strings.EqualFold(np.Name, name) || np.Property.Type != models.PropertyRichText {
					continue
				}
				if title, ok := nonBlank(models.PlainText(np.Property.RichText)); ok {
					return title, true
				}
			}
		}
		return "", false
	}
}

func firstRichTextProperty(p models.Page) (string, bool) {
	for _, np := range p.Properties {
		if np.Property.Type != models.PropertyRichText {
			continue
		}
		if title, ok := nonBlank(models.PlainText(np.Property.RichText)); ok {
			return title, true
		}
	}
	return "", false
}
