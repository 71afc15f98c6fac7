package exporter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/notion"
	"github.com/my-entourage/notion-export/internal/notion/mock_notion"
	"github.com/my-entourage/notion-export/internal/snapshot"
)

type fakeSource struct {
	users       map[string]models.User
	usersErr    error
	search      map[string][]models.Page
	pages       map[string]models.Page
	databases   map[string]models.Page
	entries     map[string][]models.Page
	blocks      map[string][]models.Block
	blockErrs   map[string]error
	comments    map[string][]models.Comment
	commentErrs map[string]error
	commentReqs []string
}

func notFound() error {
	return &notionapi.Error{Status: http.StatusNotFound, Code: "object_not_found"}
}

func (f *fakeSource) Users(context.Context) (map[string]models.User, error) {
	return f.users, f.usersErr
}

func (f *fakeSource) Search(_ context.Context, kind string) ([]models.Page, error) {
	return f.search[kind], nil
}

func (f *fakeSource) Page(_ context.Context, id string) (models.Page, error) {
	p, ok := f.pages[id]
	if !ok {
		return models.Page{}, notFound()
	}
	return p, nil
}

func (f *fakeSource) Database(_ context.Context, id string) (models.Page, error) {
	db, ok := f.databases[id]
	if !ok {
		return models.Page{}, fmt.Errorf("failed to get database %s: %w", id, notFound())
	}
	return db, nil
}

func (f *fakeSource) QueryDatabase(_ context.Context, id string) ([]models.Page, error) {
	return f.entries[id], nil
}

func (f *fakeSource) BlockTree(_ context.Context, id string) ([]models.Block, error) {
	if err := f.blockErrs[id]; err != nil {
		return nil, err
	}
	return f.blocks[id], nil
}

func (f *fakeSource) Comments(_ context.Context, id string) ([]models.Comment, error) {
	f.commentReqs = append(f.commentReqs, id)
	if err := f.commentErrs[id]; err != nil {
		return nil, err
	}
	return f.comments[id], nil
}

type fakeDownloader struct {
	fail map[string]bool
	got  map[string]string
}

func (d *fakeDownloader) Download(_ context.Context, rawURL, dst string) (int64, error) {
	if d.fail[rawURL] {
		return 0, errors.New("connection reset")
	}
	if d.got == nil {
		d.got = map[string]string{}
	}
	d.got[rawURL] = filepath.Base(dst)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}
	body := []byte("data:" + rawURL)
	return int64(len(body)), os.WriteFile(dst, body, 0644)
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC) }

func page(id string, parent models.Parent, title string) models.Page {
	return models.Page{
		Object: models.ObjectPage,
		ID:     id,
		Parent: parent,
		Properties: models.Properties{
			{Name: "Name", Property: models.Property{Type: models.PropertyTitle, Title: []models.RichText{models.Text(title)}}},
		},
	}
}

func database(id string, title string) models.Page {
	return models.Page{
		Object: models.ObjectDatabase,
		ID:     id,
		Parent: models.Parent{Type: models.ParentWorkspace, Workspace: true},
		Title:  []models.RichText{models.Text(title)},
	}
}

var workspace = models.Parent{Type: models.ParentWorkspace, Workspace: true}

func entryOf(db string) models.Parent {
	return models.Parent{Type: models.ParentDatabase, DatabaseID: db}
}

func imageBlock(id, url string) models.Block {
	return models.NewBlock(id, models.BlockImage, &models.FileData{
		Type:     "external",
		External: &models.FileRef{URL: url},
	})
}

func newWorkspace() *fakeSource {
	report := page("e1", entryOf("tasks"), "Write report")
	report.Properties = append(report.Properties, models.NamedProperty{
		Name: "Attachments",
		Property: models.Property{Type: models.PropertyFiles, Files: []models.FileObject{
			{Name: "Q3 Report.PDF", Type: "file", File: &models.FileRef{URL: "https://files.example/secure/q3.pdf?sig=abc"}},
			{Name: "Q3 Report.pdf", Type: "file", File: &models.FileRef{URL: "https://files.example/secure/q3-final.pdf"}},
		}},
	})

	return &fakeSource{
		users: map[string]models.User{"u1": {Name: "Ada", Type: "person"}},
		search: map[string][]models.Page{
			notion.KindPage: {
				page("home", workspace, "Home"),
				page("orphan", entryOf("remote"), "Row of remote"),
				page("hidden-row", entryOf("hidden"), "Row of hidden"),
			},
			notion.KindDatabase: {database("tasks", "Tasks")},
		},
		pages: map[string]models.Page{
			"home":       page("home", workspace, "Home"),
			"orphan":     page("orphan", entryOf("remote"), "Row of remote"),
			"hidden-row": page("hidden-row", entryOf("hidden"), "Row of hidden"),
		},
		databases: map[string]models.Page{
			"tasks":  database("tasks", "Tasks"),
			"remote": database("remote", "Remote tracker"),
		},
		entries: map[string][]models.Page{
			"tasks": {report, page("e2", entryOf("tasks"), "Review")},
		},
		blocks: map[string][]models.Block{
			"home": {
				models.NewBlock("p1", models.BlockParagraph, &models.TextData{RichText: []models.RichText{models.Text("hello")}},
					imageBlock("1234abcd-5678-90ef-1234-567890abcdef", "https://cdn.example/img/Photo.PNG?width=200"),
				),
				imageBlock("99990000-5678-90ef-1234-567890abcdef", "https://cdn.example/img/Photo.PNG?width=200"),
			},
		},
		comments: map[string][]models.Comment{
			"home": {{ID: "c1", Parent: models.Parent{Type: models.ParentPage, PageID: "home"}, RichText: []models.RichText{models.Text("nice")}}},
		},
	}
}

func TestRunExportsWorkspace(t *testing.T) {
	src := newWorkspace()
	dl := &fakeDownloader{}
	dir := t.TempDir()

	exp := New(src, Options{OutputDir: dir, Downloader: dl, Now: fixedNow})
	s, err := exp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, snapshot.FileName), exp.Path())
	assert.Equal(t, models.StatusComplete, s.ExportStatus)
	assert.Equal(t, "4/4", s.Progress)
	assert.Equal(t, "2024-03-09T08:00:00Z", s.ExportedAt)
	assert.Equal(t, notion.APIVersion, s.APIVersion)

	assert.ElementsMatch(t, []string{"home", "orphan", "hidden-row", "tasks", "e1", "e2"}, s.PageIDs())
	assert.Equal(t, 5, s.PageCount)
	assert.Equal(t, 1, s.DatabaseCount)
	require.Contains(t, s.Databases, "remote")
	assert.NotContains(t, s.Databases, "hidden")
	assert.NotContains(t, s.Databases, "tasks")
	assert.Equal(t, 1, s.ReferencedDatabaseCount)

	assert.Equal(t, map[string]string{
		"https://cdn.example/img/Photo.PNG?width=200": "assets/1234abcd5678.png",
		"https://files.example/secure/q3.pdf?sig=abc": "assets/q3-report.pdf",
		"https://files.example/secure/q3-final.pdf":   "assets/q3-report-1.pdf",
	}, s.Assets)
	assert.Len(t, dl.got, 3, "each URL is downloaded once")

	require.Contains(t, s.Comments, "home")
	assert.Equal(t, 1, s.CommentCount)
	assert.Equal(t, 1, s.UserCount)

	loaded, err := snapshot.Load(exp.Path())
	require.NoError(t, err)
	assert.Equal(t, models.StatusComplete, loaded.ExportStatus)

	home := loaded.Pages["home"]
	require.Len(t, home.Blocks, 2)
	nested := home.Blocks[0].Children[0].Data.(*models.FileData)
	assert.Equal(t, "assets/1234abcd5678.png", nested.Ref().LocalPath)
	second := home.Blocks[1].Data.(*models.FileData)
	assert.Equal(t, "assets/1234abcd5678.png", second.Ref().LocalPath, "known URLs reuse the first download")

	files, ok := loaded.Pages["e1"].Properties.Get("Attachments")
	require.True(t, ok)
	require.Len(t, files.Files, 2)
	assert.Equal(t, "assets/q3-report.pdf", files.Files[0].Ref().LocalPath)
	assert.Equal(t, "assets/q3-report-1.pdf", files.Files[1].Ref().LocalPath)

	_, err = os.Stat(filepath.Join(dir, snapshot.AssetsDir, "1234abcd5678.png"))
	assert.NoError(t, err)
}

func TestRunToleratesMissingCapabilities(t *testing.T) {
	src := newWorkspace()
	src.usersErr = fmt.Errorf("failed to list users: %w", &notionapi.Error{Status: http.StatusForbidden})
	src.commentErrs = map[string]error{}
	for _, id := range []string{"e1", "e2", "hidden-row", "home", "orphan", "tasks"} {
		src.commentErrs[id] = &notionapi.Error{Status: http.StatusForbidden}
	}

	s, err := New(src, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, s.Users)
	assert.Empty(t, s.Comments)
	assert.Equal(t, []string{"e1"}, src.commentReqs, "a 403 on the first object disables comments")
}

func TestRunSkipsForbiddenCommentsOfLaterPages(t *testing.T) {
	src := newWorkspace()
	src.commentErrs = map[string]error{"e2": &notionapi.Error{Status: http.StatusForbidden}}

	s, err := New(src, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, s.Comments, "home")
	assert.Len(t, src.commentReqs, 6)
}

func TestRunUsersErrorIsFatal(t *testing.T) {
	src := newWorkspace()
	src.usersErr = errors.New("unauthorized")

	_, err := New(src, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}}).Run(context.Background())
	assert.Error(t, err)
}

func TestRunExcludesAndDeduplicates(t *testing.T) {
	src := newWorkspace()
	archive := page("old", workspace, "Archive 2020")
	src.search[notion.KindPage] = []models.Page{page("home", workspace, "Home"), archive, page("home", workspace, "Home")}
	src.search[notion.KindDatabase] = nil
	src.pages["old"] = archive

	s, err := New(src, Options{
		OutputDir:  t.TempDir(),
		Excludes:   []*regexp.Regexp{regexp.MustCompile(`(?i)archive`)},
		Downloader: &fakeDownloader{},
		Now:        fixedNow,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"home"}, s.PageIDs())
	assert.Equal(t, "1/1", s.Progress)
}

func TestRunContinuesAfterItemFailure(t *testing.T) {
	src := newWorkspace()
	src.blockErrs = map[string]error{
		"orphan": errors.New("internal server error"),
		"e2":     errors.New("internal server error"),
	}

	s, err := New(src, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, s.Pages, "orphan")
	assert.NotContains(t, s.Pages, "e2")
	assert.Contains(t, s.Pages, "e1")
	assert.Contains(t, s.Pages, "home")
	assert.Equal(t, models.StatusComplete, s.ExportStatus)
}

func TestRunCancelled(t *testing.T) {
	src := newWorkspace()
	src.blockErrs = map[string]error{"home": context.Canceled}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(src, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFailedDownloadKeepsURL(t *testing.T) {
	const url = "https://cdn.example/img/Photo.PNG?width=200"
	src := newWorkspace()
	dl := &fakeDownloader{fail: map[string]bool{url: true}}

	s, err := New(src, Options{OutputDir: t.TempDir(), Downloader: dl, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, url, s.Assets[url])
	data := s.Pages["home"].Blocks[1].Data.(*models.FileData)
	assert.Equal(t, url, data.Ref().LocalPath)
}

func TestBlockAssetName(t *testing.T) {
	const id = "1234abcd-5678-90ef-1234-567890abcdef"
	tests := []struct {
		url  string
		want string
	}{
		{"https://s3.example/a/b/Photo.JPG?sig=1", "1234abcd5678.jpg"},
		{"https://s3.example/a/b/photo.jpeg", "1234abcd5678.jpeg"},
		{"https://s3.example/archive.tar.gz", "1234abcd5678.gz"},
		{"https://s3.example/file", "1234abcd5678.bin"},
		{"https://s3.example/file.verylong", "1234abcd5678.bin"},
		{"https://s3.example/a.b/c", "1234abcd5678.bin"},
		{"https://s3.example/my%20image.png", "1234abcd5678.png"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, BlockAssetName(tt.url, id))
		})
	}
}

func TestPropertyAssetName(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"slugged with extension", "Q3 Report.PDF", "q3-report.pdf"},
		{"no extension", "notes", "notes"},
		{"punctuation dropped", "Budget (draft) v2.xlsx", "budget-draft-v2.xlsx"},
		{"no name", "", "Attachments.png"},
		{"nothing left of the name", "!!!.png", "Attachments.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PropertyAssetName(tt.file, "https://files.example/x.png", "Attachments"))
		})
	}
}

func TestHTTPDownloader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "png-bytes")
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewHTTPDownloader(5 * time.Second)

	n, err := d.Download(context.Background(), srv.URL+"/img.png", filepath.Join(dir, "assets", "img.png"))
	require.NoError(t, err)
	assert.Equal(t, int64(len("png-bytes")), n)
	body, err := os.ReadFile(filepath.Join(dir, "assets", "img.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(body))

	_, err = d.Download(context.Background(), srv.URL+"/missing.png", filepath.Join(dir, "assets", "missing.png"))
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "assets", "missing.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunWithNotionClient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockClient := mock_notion.NewMockNotionClient(ctrl)
	mockSearch := mock_notion.NewMockSearchService(ctrl)
	mockPage := mock_notion.NewMockPageService(ctrl)
	mockBlock := mock_notion.NewMockBlockService(ctrl)
	mockUser := mock_notion.NewMockUserService(ctrl)
	mockComment := mock_notion.NewMockCommentService(ctrl)

	mockClient.EXPECT().Search().Return(mockSearch).AnyTimes()
	mockClient.EXPECT().Page().Return(mockPage).AnyTimes()
	mockClient.EXPECT().Block().Return(mockBlock).AnyTimes()
	mockClient.EXPECT().User().Return(mockUser).AnyTimes()
	mockClient.EXPECT().Comment().Return(mockComment).AnyTimes()

	home := &notionapi.Page{
		Object: "page",
		ID:     "home",
		Parent: notionapi.Parent{Type: "workspace", Workspace: true},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Type:  "title",
				Title: []notionapi.RichText{{PlainText: "Home", Text: &notionapi.Text{Content: "Home"}}},
			},
		},
	}

	mockUser.EXPECT().List(gomock.Any(), gomock.Any()).Return(&notionapi.UsersListResponse{
		Results: []notionapi.User{{ID: "u1", Type: "person", Name: "Ada"}},
	}, nil)
	mockSearch.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *notionapi.SearchRequest) (*notionapi.SearchResponse, error) {
			if req.Filter.Value == notion.KindPage {
				return &notionapi.SearchResponse{Results: []notionapi.Object{home}}, nil
			}
			return &notionapi.SearchResponse{}, nil
		}).Times(2)
	mockPage.EXPECT().Get(gomock.Any(), notionapi.PageID("home")).Return(home, nil)
	mockBlock.EXPECT().GetChildren(gomock.Any(), notionapi.BlockID("home"), gomock.Any()).Return(&notionapi.GetChildrenResponse{
		Results: []notionapi.Block{
			&notionapi.DividerBlock{
				BasicBlock: notionapi.BasicBlock{Object: "block", ID: "d1", Type: notionapi.BlockTypeDivider},
			},
		},
	}, nil)
	mockComment.EXPECT().Get(gomock.Any(), notionapi.BlockID("home"), gomock.Any()).Return(nil, &notionapi.Error{Status: http.StatusForbidden})

	client := notion.NewWithClient(mockClient, notion.WithInterval(0))
	s, err := New(client, Options{OutputDir: t.TempDir(), Downloader: &fakeDownloader{}, Now: fixedNow}).Run(context.Background())
	require.NoError(t, err)

	require.Contains(t, s.Pages, "home")
	assert.Equal(t, models.BlockDivider, s.Pages["home"].Blocks[0].Type)
	assert.Equal(t, "Ada", s.Users["u1"].Name)
	assert.Empty(t, s.Comments)
	assert.Equal(t, 1, s.PageCount)
}
