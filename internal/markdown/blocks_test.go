package markdown

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
)

func textBlock(id string, t models.BlockType, text string, children ...models.Block) models.Block {
	return models.NewBlock(id, t, &models.TextData{RichText: []models.RichText{models.Text(text)}}, children...)
}

func para(id, text string) models.Block {
	return textBlock(id, models.BlockParagraph, text)
}

func numbered(id, text string, children ...models.Block) models.Block {
	return textBlock(id, models.BlockNumberedListItem, text, children...)
}

func row(id string, cells ...string) models.Block {
	data := &models.TableRowData{}
	for _, c := range cells {
		data.Cells = append(data.Cells, []models.RichText{models.Text(c)})
	}
	return models.NewBlock(id, models.BlockTableRow, data)
}

func table(id string, rows ...models.Block) models.Block {
	return models.NewBlock(id, models.BlockTable, &models.TableData{TableWidth: 3, HasColumnHeader: true}, rows...)
}

func TestBlocks(t *testing.T) {
	tests := []struct {
		name   string
		blocks []models.Block
		want   string
	}{
		{
			name:   "empty paragraph suppressed",
			blocks: []models.Block{para("a", "first"), para("b", ""), para("c", "second")},
			want:   "first\n\nsecond",
		},
		{
			name: "headings",
			blocks: []models.Block{
				textBlock("h1", models.BlockHeading1, "One"),
				textBlock("h2", models.BlockHeading2, "Two"),
				textBlock("h3", models.BlockHeading3, "Three"),
			},
			want: "# One\n\n## Two\n\n### Three",
		},
		{
			name: "numbering restarts after another block",
			blocks: []models.Block{
				numbered("n1", "one"),
				numbered("n2", "two"),
				para("p", "break"),
				numbered("n3", "again"),
			},
			want: "1. one\n\n2. two\n\nbreak\n\n1. again",
		},
		{
			name: "nested numbering",
			blocks: []models.Block{
				numbered("n1", "one", numbered("s1", "sub a"), numbered("s2", "sub b")),
				numbered("n2", "two"),
			},
			want: "1. one\n  1. sub a\n\n  2. sub b\n\n2. two",
		},
		{
			name: "bulleted with children",
			blocks: []models.Block{
				textBlock("b1", models.BlockBulletedListItem, "parent", textBlock("b2", models.BlockBulletedListItem, "child")),
			},
			want: "- parent\n  - child",
		},
		{
			name: "to do",
			blocks: []models.Block{
				models.NewBlock("t1", models.BlockToDo, &models.ToDoData{RichText: []models.RichText{models.Text("done")}, Checked: true}),
				models.NewBlock("t2", models.BlockToDo, &models.ToDoData{RichText: []models.RichText{models.Text("open")}}),
			},
			want: "- [x] done\n\n- [ ] open",
		},
		{
			name:   "code",
			blocks: []models.Block{models.NewBlock("c", models.BlockCode, &models.CodeData{Language: "go", RichText: []models.RichText{models.Text("fmt.Println()")}})},
			want:   "```go\nfmt.Println()\n```",
		},
		{
			name:   "multi line quote",
			blocks: []models.Block{textBlock("q", models.BlockQuote, "a\nb")},
			want:   "> a\n> b",
		},
		{
			name: "callout",
			blocks: []models.Block{
				models.NewBlock("c1", models.BlockCallout, &models.CalloutData{RichText: []models.RichText{models.Text("Tip")}, Icon: &models.Icon{Type: "emoji", Emoji: "💡"}}),
				models.NewBlock("c2", models.BlockCallout, &models.CalloutData{RichText: []models.RichText{models.Text("Plain")}}),
			},
			want: "> 💡 Tip\n\n> Plain",
		},
		{
			name:   "divider",
			blocks: []models.Block{models.NewBlock("d", models.BlockDivider, &models.DividerData{})},
			want:   "---",
		},
		{
			name:   "equation",
			blocks: []models.Block{models.NewBlock("e", models.BlockEquation, &models.EquationData{Expression: "E = mc^2"})},
			want:   "$$\nE = mc^2\n$$",
		},
		{
			name: "bookmark",
			blocks: []models.Block{
				models.NewBlock("bm1", models.BlockBookmark, &models.BookmarkData{URL: "https://go.dev"}),
				models.NewBlock("bm2", models.BlockBookmark, &models.BookmarkData{URL: "https://go.dev", Caption: []models.RichText{models.Text("Go")}}),
			},
			want: "[https://go.dev](https://go.dev)\n\n[Go](https://go.dev)",
		},
		{
			name: "toggle",
			blocks: []models.Block{
				textBlock("t", models.BlockToggle, "More", para("p1", "hidden"), para("p2", "also hidden")),
			},
			want: "<details>\n<summary>More</summary>\n  hidden\n  also hidden\n</details>",
		},
		{
			name:   "empty toggle",
			blocks: []models.Block{textBlock("t", models.BlockToggle, "Nothing")},
			want:   "<details>\n<summary>Nothing</summary>\n</details>",
		},
		{
			name: "table",
			blocks: []models.Block{
				table("tbl", row("r1", "a", "b", "c"), row("r2", "1", "2", "3")),
			},
			want: "| a | b | c |\n| --- | --- | --- |\n| 1 | 2 | 3 |",
		},
		{
			name: "table with three rows of two columns",
			blocks: []models.Block{
				table("tbl", row("r1", "h1", "h2"), row("r2", "a", "b"), row("r3", "c", "d")),
			},
			want: "| h1 | h2 |\n| --- | --- |\n| a | b |\n| c | d |",
		},
		{
			name: "table cells escape pipes",
			blocks: []models.Block{
				table("tbl", row("r1", "a|b", "line\nbreak", "c")),
			},
			want: "| a\\|b | line<br>break | c |\n| --- | --- | --- |",
		},
		{
			name: "columns",
			blocks: []models.Block{
				models.NewBlock("cl", models.BlockColumnList, &models.LayoutData{},
					models.NewBlock("col1", models.BlockColumn, &models.LayoutData{}, para("l", "left")),
					models.NewBlock("col2", models.BlockColumn, &models.LayoutData{}),
					models.NewBlock("col3", models.BlockColumn, &models.LayoutData{}, para("r", "right")),
				),
			},
			want: "left\n\n---\n\nright",
		},
		{
			name:   "child database",
			blocks: []models.Block{models.NewBlock("db", models.BlockChildDatabase, &models.ChildDatabaseData{Title: "Tasks"})},
			want:   "**Database:** Tasks",
		},
		{
			name:   "unsupported",
			blocks: []models.Block{models.NewBlock("s", models.BlockType("synced_block"), &models.UnsupportedData{})},
			want:   "<!-- Unsupported block type: synced_block -->",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(Env{}, "page.md")
			assert.Equal(t, tt.want, r.Blocks(tt.blocks))
		})
	}
}

func TestTableIsGFMTable(t *testing.T) {
	r := NewRenderer(Env{}, "page.md")
	md := r.Blocks([]models.Block{
		table("tbl", row("r1", "name", "owner", "state"), row("r2", "alpha", "ada", "open"), row("r3", "beta", "grace", "done")),
	})

	var html bytes.Buffer
	gm := goldmark.New(goldmark.WithExtensions(extension.Table))
	require.NoError(t, gm.Convert([]byte(md), &html))

	out := html.String()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<th>owner</th>")
	assert.Contains(t, out, "<td>grace</td>")
	assert.Equal(t, 3, bytes.Count(html.Bytes(), []byte("<th>")))
}

func TestChildPageLinks(t *testing.T) {
	env := Env{Index: pathindex.Index{"c1": "home/sub/c1.md"}}
	r := NewRenderer(env, "home/h.md")

	got := r.Blocks([]models.Block{
		models.NewBlock("c1", models.BlockChildPage, &models.ChildPageData{Title: "Sub"}),
		models.NewBlock("c2", models.BlockChildPage, &models.ChildPageData{Title: "Private"}),
	})
	assert.Equal(t, "[Sub](sub/c1.md)\n\n[Private](notion://c2)", got)
}

func TestFileBlocks(t *testing.T) {
	env := Env{Assets: CachedAssets{"https://files.example/b.png": "assets/b.png"}}
	r := NewRenderer(env, "notes/page.md")

	got := r.Blocks([]models.Block{
		models.NewBlock("i1", models.BlockImage, &models.FileData{
			Type:    "file",
			Caption: []models.RichText{models.Text("chart")},
			File:    &models.FileRef{URL: "https://files.example/a.png", LocalPath: "assets/a.png"},
		}),
		models.NewBlock("i2", models.BlockImage, &models.FileData{
			Type: "file",
			File: &models.FileRef{URL: "https://files.example/b.png"},
		}),
		models.NewBlock("f1", models.BlockFile, &models.FileData{
			Type:     "external",
			Name:     "report.pdf",
			External: &models.FileRef{URL: "https://cdn.example/report.pdf"},
		}),
		models.NewBlock("v1", models.BlockVideo, &models.FileData{Type: "external", External: &models.FileRef{URL: "https://video.example/v"}}),
		models.NewBlock("p1", models.BlockPDF, &models.FileData{Type: "external", External: &models.FileRef{URL: "https://cdn.example/x.pdf"}}),
	})

	want := "![chart](../_assets/a.png)\n\n" +
		"![](../_assets/b.png)\n\n" +
		"[Download](https://cdn.example/report.pdf)\n\n" +
		"[Video](https://video.example/v)\n\n" +
		"[PDF](https://cdn.example/x.pdf)"
	assert.Equal(t, want, got)
}

func TestBlockComments(t *testing.T) {
	comment := models.Comment{
		ID:          "cm1",
		Parent:      models.Parent{Type: models.ParentBlock, BlockID: "p1"},
		CreatedTime: "2024-01-05T10:00:00.000Z",
		CreatedBy:   models.ObjectRef{ID: "u1"},
		RichText:    []models.RichText{models.Text("Looks good")},
	}
	anonymous := comment
	anonymous.CreatedBy = models.ObjectRef{ID: "ghost"}

	env := Env{
		Users:    map[string]models.User{"u1": {Name: "Ada"}},
		Comments: IndexComments(map[string][]models.Comment{"page": {comment, anonymous}}),
	}
	r := NewRenderer(env, "page.md")

	got := r.Blocks([]models.Block{para("p1", "text")})
	want := "text\n" +
		"> **Ada** (2024-01-05 10:00:00 UTC): Looks good\n" +
		"> **Unknown** (2024-01-05 10:00:00 UTC): Looks good"
	assert.Equal(t, want, got)
}

func TestTableKeepsComments(t *testing.T) {
	comment := models.Comment{
		ID:          "cm2",
		Parent:      models.Parent{Type: models.ParentBlock, BlockID: "tbl"},
		CreatedTime: "2024-01-05T10:00:00.000Z",
		CreatedBy:   models.ObjectRef{ID: "u1"},
		RichText:    []models.RichText{models.Text("Check totals")},
	}
	env := Env{
		Users:    map[string]models.User{"u1": {Name: "Ada"}},
		Comments: IndexComments(map[string][]models.Comment{"page": {comment}}),
	}
	r := NewRenderer(env, "page.md")

	got := r.Blocks([]models.Block{table("tbl", row("r1", "a", "b"))})
	want := "| a | b |\n| --- | --- |\n\n" +
		"> **Ada** (2024-01-05 10:00:00 UTC): Check totals"
	assert.Equal(t, want, got)
}

func TestIndexComments(t *testing.T) {
	onPage := models.Comment{ID: "c1", Parent: models.Parent{Type: models.ParentPage, PageID: "p1"}}
	onBlock := models.Comment{ID: "c2", Parent: models.Parent{Type: models.ParentBlock, BlockID: "b1"}}

	idx := IndexComments(map[string][]models.Comment{"p1": {onPage, onBlock}})

	assert.Equal(t, []models.Comment{onPage}, idx.Pages["p1"])
	assert.Equal(t, []models.Comment{onBlock}, idx.Blocks["b1"])
}
