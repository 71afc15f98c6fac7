package markdown

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
)

const (
	indentUnit    = "  "
	columnDivider = "---"
)

var fileLinkDefaults = map[models.BlockType]string{
	models.BlockFile:  "Download",
	models.BlockVideo: "Video",
	models.BlockPDF:   "PDF",
}

// Blocks renders a page's top-level blocks separated by blank lines
func (r *Renderer) Blocks(blocks []models.Block) string {
	return strings.Join(r.siblings(blocks, 0), "\n\n")
}

// siblings renders one list of sibling blocks with its own numbering scope.
// Empty outputs are dropped.
func (r *Renderer) siblings(blocks []models.Block, depth int) []string {
	counter := NewListCounter()
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Type != models.BlockNumberedListItem {
			counter.Reset(depth)
		}
		if text := r.Block(b, depth, counter); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// Block renders b and its descendants at the given nesting depth
func (r *Renderer) Block(b models.Block, depth int, counter *ListCounter) string {
	if counter == nil {
		counter = NewListCounter()
	}
	indent := strings.Repeat(indentUnit, depth)
	comments := r.blockComments(b.ID, indent)

	switch b.Type {
	case models.BlockToggle:
		return r.toggle(b, depth, indent, comments)
	case models.BlockTable:
		return joinNonEmpty("\n\n", r.table(b, depth, indent), strings.Join(comments, "\n"))
	case models.BlockColumnList:
		if columns := r.columns(b, depth, indent); columns != "" {
			return joinNonEmpty("\n", columns, strings.Join(comments, "\n"))
		}
	}

	own := joinNonEmpty("\n", r.line(b, depth, indent, counter), strings.Join(comments, "\n"))
	if len(b.Children) == 0 || b.Type == models.BlockColumnList {
		return own
	}

	children := strings.Join(r.siblings(b.Children, depth+1), "\n\n")
	if own == "" {
		return children
	}
	if children == "" {
		return own
	}
	return own + "\n" + children
}

// line renders the block's own content without children or comments
func (r *Renderer) line(b models.Block, depth int, indent string, counter *ListCounter) string {
	switch data := b.Data.(type) {
	case *models.TextData:
		text := r.RichText(data.RichText)
		switch b.Type {
		case models.BlockParagraph:
			if text == "" {
				return ""
			}
			return indent + text
		case models.BlockHeading1, models.BlockHeading2, models.BlockHeading3:
			return indent + strings.Repeat("#", b.HeadingLevel()) + " " + text
		case models.BlockBulletedListItem:
			return indent + "- " + text
		case models.BlockNumberedListItem:
			return indent + strconv.Itoa(counter.Next(depth)) + ". " + text
		case models.BlockQuote:
			return quote(indent, text)
		}
	case *models.ToDoData:
		mark := " "
		if data.Checked {
			mark = "x"
		}
		return indent + "- [" + mark + "] " + r.RichText(data.RichText)
	case *models.CodeData:
		return indent + "```" + data.Language + "\n" + r.RichText(data.RichText) + "\n" + indent + "```"
	case *models.CalloutData:
		text := r.RichText(data.RichText)
		if data.Icon != nil && data.Icon.Emoji != "" {
			text = data.Icon.Emoji + " " + text
		}
		return quote(indent, text)
	case *models.DividerData:
		return indent + "---"
	case *models.FileData:
		return r.file(b.Type, data, indent)
	case *models.BookmarkData:
		caption := r.RichText(data.Caption)
		if caption == "" {
			caption = data.URL
		}
		return indent + "[" + caption + "](" + data.URL + ")"
	case *models.EquationData:
		return indent + "$$\n" + data.Expression + "\n" + indent + "$$"
	case *models.TableRowData:
		return indent + r.tableRow(data)
	case *models.ChildPageData:
		title := data.Title
		if title == "" {
			title = "Untitled"
		}
		target, ok := r.Index.Link(r.SourcePath, b.ID)
		if !ok {
			target = "notion://" + b.ID
		}
		return indent + "[" + title + "](" + target + ")"
	case *models.ChildDatabaseData:
		title := data.Title
		if title == "" {
			title = "Untitled Database"
		}
		return indent + "**Database:** " + title
	case *models.TableData, *models.LayoutData:
		return ""
	}
	return indent + fmt.Sprintf("<!-- Unsupported block type: %s -->", b.Type)
}

func (r *Renderer) file(t models.BlockType, data *models.FileData, indent string) string {
	target := r.assetLink(data.Ref())
	caption := r.RichText(data.Caption)
	if t == models.BlockImage {
		return indent + "![" + caption + "](" + target + ")"
	}
	if caption == "" {
		caption = fileLinkDefaults[t]
	}
	return indent + "[" + caption + "](" + target + ")"
}

func (r *Renderer) toggle(b models.Block, depth int, indent string, comments []string) string {
	summary := ""
	if data, ok := b.Data.(*models.TextData); ok {
		summary = r.RichText(data.RichText)
	}

	lines := []string{indent + "<details>", indent + "<summary>" + summary + "</summary>"}
	lines = append(lines, comments...)
	lines = append(lines, r.siblings(b.Children, depth+1)...)
	lines = append(lines, indent+"</details>")
	return strings.Join(lines, "\n")
}

// table renders rows at the table's own depth: the first row is the header,
// followed by a separator sized from its cell count.
func (r *Renderer) table(b models.Block, depth int, indent string) string {
	var rows []string
	columns := 0
	for _, child := range b.Children {
		data, ok := child.Data.(*models.TableRowData)
		if !ok {
			continue
		}
		if len(rows) == 0 {
			columns = len(data.Cells)
		}
		rows = append(rows, indent+r.tableRow(data))
	}
	if len(rows) == 0 {
		return ""
	}
	if columns == 0 {
		if data, ok := b.Data.(*models.TableData); ok {
			columns = data.TableWidth
		}
	}

	separator := indent + "|" + strings.Repeat(" --- |", columns)
	out := append([]string{rows[0], separator}, rows[1:]...)
	return strings.Join(out, "\n")
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

func (r *Renderer) tableRow(data *models.TableRowData) string {
	cells := make([]string, len(data.Cells))
	for i, cell := range data.Cells {
		cells[i] = cellEscaper.Replace(r.RichText(cell))
	}
	return "| " + strings.Join(cells, " | ") + " |"
}

// columns renders each column's children at the list's depth, separated by
// horizontal rules.
func (r *Renderer) columns(b models.Block, depth int, indent string) string {
	var parts []string
	for _, column := range b.Children {
		if column.Type != models.BlockColumn {
			continue
		}
		if text := strings.Join(r.siblings(column.Children, depth), "\n\n"); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n"+indent+columnDivider+"\n\n")
}

func quote(indent, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = indent + "> " + line
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
