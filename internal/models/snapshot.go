package models

import (
	"encoding/json"
	"sort"
)

// Object kinds
const (
	ObjectPage     = "page"
	ObjectDatabase = "database"
)

// ParentType is the kind of a page's parent reference
type ParentType string

const (
	ParentWorkspace  ParentType = "workspace"
	ParentPage       ParentType = "page_id"
	ParentDatabase   ParentType = "database_id"
	ParentDataSource ParentType = "data_source_id"
	ParentBlock      ParentType = "block_id"
)

// Parent locates the container of a page, database or comment
type Parent struct {
	Type         ParentType `json:"type"`
	PageID       string     `json:"page_id,omitempty"`
	DatabaseID   string     `json:"database_id,omitempty"`
	DataSourceID string     `json:"data_source_id,omitempty"`
	BlockID      string     `json:"block_id,omitempty"`
	Workspace    bool       `json:"workspace,omitempty"`
}

// IsDatabaseEntry reports whether the parent is a database row container
func (p Parent) IsDatabaseEntry() bool {
	return p.Type == ParentDatabase || p.Type == ParentDataSource
}

// Page is a page or database object as exported from the workspace
type Page struct {
	Object         string            `json:"object"`
	ID             string            `json:"id"`
	Parent         Parent            `json:"parent"`
	Title          []RichText        `json:"title,omitempty"`
	Properties     Properties        `json:"properties,omitempty"`
	CreatedTime    string            `json:"created_time,omitempty"`
	LastEditedTime string            `json:"last_edited_time,omitempty"`
	CreatedBy      *ObjectRef        `json:"created_by,omitempty"`
	URL            string            `json:"url,omitempty"`
	Icon           *Icon             `json:"icon,omitempty"`
	Archived       bool              `json:"archived,omitempty"`
	Blocks         []Block           `json:"blocks,omitempty"`
	DataSources    []json.RawMessage `json:"data_sources_full,omitempty"`
}

// IsDatabase reports whether the object is a database
func (p Page) IsDatabase() bool {
	return p.Object == ObjectDatabase
}

// User is a workspace member or bot
type User struct {
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Comment is a discussion comment on a page or on one of its blocks
type Comment struct {
	ID           string     `json:"id"`
	Parent       Parent     `json:"parent"`
	DiscussionID string     `json:"discussion_id,omitempty"`
	CreatedTime  string     `json:"created_time"`
	CreatedBy    ObjectRef  `json:"created_by"`
	RichText     []RichText `json:"rich_text"`
}

// BlockID returns the id of the block the comment is attached to, if any
func (c Comment) BlockID() (string, bool) {
	if c.Parent.Type == ParentBlock && c.Parent.BlockID != "" {
		return c.Parent.BlockID, true
	}
	return "", false
}

// Export status values
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
)

// Snapshot is the single JSON document produced by an export run
type Snapshot struct {
	ExportedAt              string `json:"exported_at"`
	APIVersion              string `json:"api_version"`
	ExportStatus            string `json:"export_status"`
	Progress                string `json:"progress"`
	PageCount               int    `json:"page_count"`
	DatabaseCount           int    `json:"database_count"`
	DataSourceCount         int    `json:"data_source_count"`
	ReferencedDatabaseCount int    `json:"referenced_database_count"`
	UserCount               int    `json:"user_count"`
	CommentCount            int    `json:"comment_count"`
	AssetCount              int    `json:"asset_count"`

	Users     map[string]User      `json:"_users"`
	Comments  map[string][]Comment `json:"_comments"`
	Assets    map[string]string    `json:"_assets"`
	Databases map[string]Page      `json:"_databases"`
	Pages     map[string]Page      `json:"pages"`
}

// PageIDs returns the ids of all pages in sorted order
func (s *Snapshot) PageIDs() []string {
	ids := make([]string, 0, len(s.Pages))
	for id := range s.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UpdateCounts recomputes the summary counters from the collections
func (s *Snapshot) UpdateCounts() {
	s.PageCount, s.DatabaseCount, s.DataSourceCount = 0, 0, 0
	for _, p := range s.Pages {
		if p.IsDatabase() {
			s.DatabaseCount++
			s.DataSourceCount += len(p.DataSources)
		} else {
			s.PageCount++
		}
	}
	s.ReferencedDatabaseCount = len(s.Databases)
	s.UserCount = len(s.Users)
	s.CommentCount = 0
	for _, list := range s.Comments {
		s.CommentCount += len(list)
	}
	s.AssetCount = len(s.Assets)
}
