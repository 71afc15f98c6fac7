package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jomei/notionapi"
	"golang.org/x/time/rate"

	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/models"
)

const (
	// APIVersion is the Notion-Version sent by the notionapi client
	APIVersion = "2022-06-28"

	// RequestInterval is the minimum delay between two API requests
	RequestInterval = 350 * time.Millisecond

	pageSize    = 100
	maxAttempts = 3
)

// Search filter values
const (
	KindPage     = "page"
	KindDatabase = "database"
)

// Client reads a workspace through the Notion API. Requests are throttled to
// one per RequestInterval and rate limited calls are retried.
type Client struct {
	client   NotionClient
	limiter  *rate.Limiter
	attempts int
	backoff  func(attempt int) time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithInterval sets the minimum delay between requests; zero disables throttling
func WithInterval(interval time.Duration) Option {
	return func(c *Client) {
		limit := rate.Inf
		if interval > 0 {
			limit = rate.Every(interval)
		}
		c.limiter = rate.NewLimiter(limit, 1)
	}
}

// WithBackoff sets the wait before the retry following a rate limited attempt
func WithBackoff(backoff func(attempt int) time.Duration) Option {
	return func(c *Client) {
		c.backoff = backoff
	}
}

// New creates a client authenticated with an integration token
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("notion API key is not set")
	}
	notionClient := notionapi.NewClient(notionapi.Token(apiKey))
	return NewWithClient(newNotionClientAdapter(notionClient), opts...), nil
}

// NewWithClient creates a client over an existing service set
func NewWithClient(nc NotionClient, opts ...Option) *Client {
	c := &Client{
		client:   nc,
		limiter:  rate.NewLimiter(rate.Every(RequestInterval), 1),
		attempts: maxAttempts,
		backoff:  defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Users lists every workspace member and bot, keyed by id
func (c *Client) Users(ctx context.Context) (map[string]models.User, error) {
	users := map[string]models.User{}
	var cursor notionapi.Cursor
	for {
		var resp *notionapi.UsersListResponse
		err := c.do(ctx, "list users", func(ctx context.Context) (err error) {
			resp, err = c.client.User().List(ctx, &notionapi.Pagination{StartCursor: cursor, PageSize: pageSize})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}

		for _, u := range resp.Results {
			var raw apiUser
			if err := convert(u, &raw); err != nil {
				return nil, fmt.Errorf("failed to decode user: %w", err)
			}
			users[raw.ID] = raw.model()
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return users, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// Search returns every page or database shared with the integration
func (c *Client) Search(ctx context.Context, kind string) ([]models.Page, error) {
	var out []models.Page
	var cursor notionapi.Cursor
	for {
		var resp *notionapi.SearchResponse
		err := c.do(ctx, "search", func(ctx context.Context) (err error) {
			resp, err = c.client.Search().Do(ctx, &notionapi.SearchRequest{
				Filter: notionapi.SearchFilter{
					Property: "object",
					Value:    kind,
				},
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search %ss: %w", kind, err)
		}

		for _, obj := range resp.Results {
			var p models.Page
			if err := convert(obj, &p); err != nil {
				return nil, fmt.Errorf("failed to decode search result: %w", err)
			}
			out = append(out, p)
		}

		logger.Debug("Search page fetched", map[string]interface{}{
			"kind":  kind,
			"total": len(out),
		})

		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// Page retrieves a page without its content
func (c *Client) Page(ctx context.Context, id string) (models.Page, error) {
	var page *notionapi.Page
	err := c.do(ctx, "get page", func(ctx context.Context) (err error) {
		page, err = c.client.Page().Get(ctx, notionapi.PageID(id))
		return err
	})
	if err != nil {
		return models.Page{}, fmt.Errorf("failed to get page %s: %w", id, err)
	}

	var out models.Page
	if err := convert(page, &out); err != nil {
		return models.Page{}, fmt.Errorf("failed to decode page %s: %w", id, err)
	}
	return out, nil
}

// Database retrieves a database. Its property schema is recorded as the
// database's single data source.
func (c *Client) Database(ctx context.Context, id string) (models.Page, error) {
	var db *notionapi.Database
	err := c.do(ctx, "get database", func(ctx context.Context) (err error) {
		db, err = c.client.Database().Get(ctx, notionapi.DatabaseID(id))
		return err
	})
	if err != nil {
		return models.Page{}, fmt.Errorf("failed to get database %s: %w", id, err)
	}

	data, err := json.Marshal(db)
	if err != nil {
		return models.Page{}, fmt.Errorf("failed to encode database %s: %w", id, err)
	}
	var out models.Page
	if err := json.Unmarshal(data, &out); err != nil {
		return models.Page{}, fmt.Errorf("failed to decode database %s: %w", id, err)
	}
	source, err := dataSource(data)
	if err != nil {
		return models.Page{}, fmt.Errorf("failed to read schema of database %s: %w", id, err)
	}
	out.Object = models.ObjectDatabase
	out.DataSources = []json.RawMessage{source}
	return out, nil
}

// QueryDatabase returns every entry of a database
func (c *Client) QueryDatabase(ctx context.Context, id string) ([]models.Page, error) {
	var out []models.Page
	var cursor notionapi.Cursor
	for {
		var resp *notionapi.DatabaseQueryResponse
		err := c.do(ctx, "query database", func(ctx context.Context) (err error) {
			resp, err = c.client.Database().Query(ctx, notionapi.DatabaseID(id), &notionapi.DatabaseQueryRequest{
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query database %s: %w", id, err)
		}

		for _, entry := range resp.Results {
			var p models.Page
			if err := convert(entry, &p); err != nil {
				return nil, fmt.Errorf("failed to decode entry of database %s: %w", id, err)
			}
			out = append(out, p)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// BlockTree returns the children of a block, recursively. Sub-pages and
// child databases are exported as objects of their own, so their content is
// not descended into.
func (c *Client) BlockTree(ctx context.Context, id string) ([]models.Block, error) {
	var out []models.Block
	var cursor notionapi.Cursor
	for {
		var resp *notionapi.GetChildrenResponse
		err := c.do(ctx, "get block children", func(ctx context.Context) (err error) {
			resp, err = c.client.Block().GetChildren(ctx, notionapi.BlockID(id), &notionapi.Pagination{
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get children of %s: %w", id, err)
		}

		for _, child := range resp.Results {
			var b models.Block
			if err := convert(child, &b); err != nil {
				return nil, fmt.Errorf("failed to decode block: %w", err)
			}
			if b.HasChildren && b.Type != models.BlockChildPage && b.Type != models.BlockChildDatabase {
				children, err := c.BlockTree(ctx, b.ID)
				if err != nil {
					return nil, err
				}
				b.Children = children
			}
			out = append(out, b)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}

// Comments returns the unresolved comments on a page or block
func (c *Client) Comments(ctx context.Context, id string) ([]models.Comment, error) {
	var out []models.Comment
	var cursor notionapi.Cursor
	for {
		var resp *notionapi.CommentQueryResponse
		err := c.do(ctx, "get comments", func(ctx context.Context) (err error) {
			resp, err = c.client.Comment().Get(ctx, notionapi.BlockID(id), &notionapi.Pagination{
				StartCursor: cursor,
				PageSize:    pageSize,
			})
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get comments of %s: %w", id, err)
		}

		for _, cm := range resp.Results {
			var comment models.Comment
			if err := convert(cm, &comment); err != nil {
				return nil, fmt.Errorf("failed to decode comment: %w", err)
			}
			out = append(out, comment)
		}

		if !resp.HasMore || resp.NextCursor == "" {
			return out, nil
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
}
