package markdown

import (
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
)

const pageCommentsHeading = "## Page Comments"

// RenderPage renders a full Markdown document for page, written at outputPath
func RenderPage(page models.Page, env Env, outputPath string) string {
	r := NewRenderer(env, outputPath)

	parts := []string{
		Frontmatter(page, env.Users, env.Assets),
		"",
		"# " + pathindex.Title(page),
		"",
	}
	if len(page.Blocks) > 0 {
		parts = append(parts, r.Blocks(page.Blocks))
	}

	if comments := env.Comments.Pages[page.ID]; len(comments) > 0 {
		parts = append(parts, "", "---", "", pageCommentsHeading, "")
		for _, c := range comments {
			parts = append(parts, r.Comment(c))
		}
	}

	return strings.TrimRight(strings.Join(parts, "\n"), "\n") + "\n"
}
