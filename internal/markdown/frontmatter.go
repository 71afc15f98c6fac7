package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
)

const frontmatterDelimiter = "---"

var (
	keyNonWord   = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	keySeparator = strings.NewReplacer(" ", "_", "-", "_")
	yamlEscaper  = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
)

// reservedKeys are written by Frontmatter before any property
var reservedKeys = []string{"notion_id", "notion_url", "title", "created", "last_edited", "author"}

// Frontmatter renders the YAML metadata header of a page
func Frontmatter(page models.Page, users map[string]models.User, assets AssetResolver) string {
	lines := []string{frontmatterDelimiter, "notion_id: " + page.ID}
	if page.URL != "" {
		lines = append(lines, "notion_url: "+page.URL)
	}
	lines = append(lines,
		"title: "+quoteYAML(pathindex.Title(page)),
		"created: "+FormatTimestamp(page.CreatedTime),
		"last_edited: "+FormatTimestamp(page.LastEditedTime),
	)
	if page.CreatedBy != nil {
		if user, ok := users[page.CreatedBy.ID]; ok && user.Name != "" {
			lines = append(lines, "author: "+quoteYAML(user.Name))
		}
	}

	used := make(map[string]bool, len(reservedKeys)+len(page.Properties))
	for _, key := range reservedKeys {
		used[key] = true
	}
	for _, np := range page.Properties {
		// database properties are column schemas, not values
		if page.IsDatabase() || np.Property.Type == models.PropertyTitle {
			continue
		}
		value := PropertyValue(np.Property, assets)
		if value == "" {
			continue
		}
		key := PropertyKey(np.Name)
		if key == "" {
			continue
		}
		key = uniqueKey(key, used)
		lines = append(lines, key+": "+yamlValue(value))
	}

	lines = append(lines, frontmatterDelimiter)
	return strings.Join(lines, "\n")
}

// PropertyKey lowercases name, maps spaces and hyphens to underscores and
// drops every other non-word character.
func PropertyKey(name string) string {
	key := keySeparator.Replace(strings.ToLower(name))
	return keyNonWord.ReplaceAllString(key, "")
}

func uniqueKey(key string, used map[string]bool) string {
	candidate := key
	for n := 2; used[candidate]; n++ {
		candidate = key + "_" + strconv.Itoa(n)
	}
	used[candidate] = true
	return candidate
}

// PropertyValue renders a property value as a single string, or "" when the
// property is empty or of an unrendered type.
func PropertyValue(p models.Property, assets AssetResolver) string {
	switch p.Type {
	case models.PropertyRichText:
		return models.PlainText(p.RichText)
	case models.PropertyNumber:
		return p.Number.String()
	case models.PropertySelect:
		if p.Select != nil {
			return p.Select.Name
		}
	case models.PropertyStatus:
		if p.Status != nil {
			return p.Status.Name
		}
	case models.PropertyMultiSelect:
		names := make([]string, 0, len(p.MultiSelect))
		for _, opt := range p.MultiSelect {
			names = append(names, opt.Name)
		}
		return strings.Join(names, ", ")
	case models.PropertyDate:
		if p.Date != nil {
			return p.Date.Start
		}
	case models.PropertyCheckbox:
		return strconv.FormatBool(p.Checkbox)
	case models.PropertyURL:
		return p.URL
	case models.PropertyEmail:
		return p.Email
	case models.PropertyPhoneNumber:
		return p.PhoneNumber
	case models.PropertyFiles:
		return fileLinks(p.Files, assets)
	}
	return ""
}

func fileLinks(files []models.FileObject, assets AssetResolver) string {
	if assets == nil {
		assets = CachedAssets(nil)
	}
	links := make([]string, 0, len(files))
	for _, f := range files {
		target := assets.Resolve(f.Ref())
		if target == "" {
			continue
		}
		name := f.Name
		if name == "" {
			name = "File"
		}
		links = append(links, "["+name+"]("+target+")")
	}
	return strings.Join(links, ", ")
}

// yamlValue quotes values that would not survive as a plain YAML scalar
func yamlValue(v string) string {
	if needsQuoting(v) {
		return quoteYAML(v)
	}
	return v
}

func needsQuoting(v string) bool {
	if strings.ContainsAny(v, "\n:\"") {
		return true
	}
	if v == "" || strings.TrimSpace(v) != v || strings.Contains(v, " #") {
		return true
	}
	if strings.HasPrefix(v, "- ") || v == "-" {
		return true
	}
	return strings.ContainsRune("[]{}&*!|>'%@`#,?", rune(v[0]))
}

func quoteYAML(v string) string {
	return `"` + yamlEscaper.Replace(v) + `"`
}
