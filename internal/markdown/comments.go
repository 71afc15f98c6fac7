package markdown

import (
	"fmt"
	"sort"

	"github.com/my-entourage/notion-export/internal/models"
)

const unknownAuthor = "Unknown"

// CommentIndex splits exported comments into block-level and page-level
// lookups. Block ids are unique across the workspace, so one table serves
// every page.
type CommentIndex struct {
	Blocks map[string][]models.Comment
	Pages  map[string][]models.Comment
}

// IndexComments builds the lookups from comments grouped by source page
func IndexComments(bySourcePage map[string][]models.Comment) CommentIndex {
	idx := CommentIndex{
		Blocks: map[string][]models.Comment{},
		Pages:  map[string][]models.Comment{},
	}

	pageIDs := make([]string, 0, len(bySourcePage))
	for id := range bySourcePage {
		pageIDs = append(pageIDs, id)
	}
	sort.Strings(pageIDs)

	for _, pageID := range pageIDs {
		for _, c := range bySourcePage[pageID] {
			if blockID, ok := c.BlockID(); ok {
				idx.Blocks[blockID] = append(idx.Blocks[blockID], c)
				continue
			}
			idx.Pages[pageID] = append(idx.Pages[pageID], c)
		}
	}
	return idx
}

// Comment renders one comment as a single quoted line
func (r *Renderer) Comment(c models.Comment) string {
	author := unknownAuthor
	if user, ok := r.Users[c.CreatedBy.ID]; ok && user.Name != "" {
		author = user.Name
	}
	return fmt.Sprintf("> **%s** (%s): %s", author, FormatTimestamp(c.CreatedTime), r.RichText(c.RichText))
}

func (r *Renderer) blockComments(blockID, indent string) []string {
	comments := r.Comments.Blocks[blockID]
	if len(comments) == 0 {
		return nil
	}
	lines := make([]string, 0, len(comments))
	for _, c := range comments {
		lines = append(lines, indent+r.Comment(c))
	}
	return lines
}
