package notion

import (
	"context"

	"github.com/jomei/notionapi"
)

// Read-only subsets of the notionapi services used by the exporter

//go:generate mockgen -source=notionapi_interfaces.go -destination=mock_notion/mock_notionapi.go -package=mock_notion
type (
	PageService interface {
		Get(context.Context, notionapi.PageID) (*notionapi.Page, error)
	}

	SearchService interface {
		Do(context.Context, *notionapi.SearchRequest) (*notionapi.SearchResponse, error)
	}

	BlockService interface {
		GetChildren(context.Context, notionapi.BlockID, *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
	}

	DatabaseService interface {
		Get(context.Context, notionapi.DatabaseID) (*notionapi.Database, error)
		Query(context.Context, notionapi.DatabaseID, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	}

	UserService interface {
		List(context.Context, *notionapi.Pagination) (*notionapi.UsersListResponse, error)
	}

	CommentService interface {
		Get(context.Context, notionapi.BlockID, *notionapi.Pagination) (*notionapi.CommentQueryResponse, error)
	}
)
