package models

import (
	"encoding/json"
	"fmt"
)

// BlockType is the type tag of a content block
type BlockType string

const (
	BlockParagraph        BlockType = "paragraph"
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockToggle           BlockType = "toggle"
	BlockCode             BlockType = "code"
	BlockQuote            BlockType = "quote"
	BlockCallout          BlockType = "callout"
	BlockDivider          BlockType = "divider"
	BlockImage            BlockType = "image"
	BlockFile             BlockType = "file"
	BlockVideo            BlockType = "video"
	BlockPDF              BlockType = "pdf"
	BlockBookmark         BlockType = "bookmark"
	BlockEquation         BlockType = "equation"
	BlockTable            BlockType = "table"
	BlockTableRow         BlockType = "table_row"
	BlockChildPage        BlockType = "child_page"
	BlockChildDatabase    BlockType = "child_database"
	BlockColumnList       BlockType = "column_list"
	BlockColumn           BlockType = "column"
	BlockUnsupported      BlockType = "unsupported"
)

// KnownBlockTypes lists every block type with a dedicated payload
var KnownBlockTypes = []BlockType{
	BlockParagraph, BlockHeading1, BlockHeading2, BlockHeading3,
	BlockBulletedListItem, BlockNumberedListItem, BlockToDo, BlockToggle,
	BlockCode, BlockQuote, BlockCallout, BlockDivider,
	BlockImage, BlockFile, BlockVideo, BlockPDF, BlockBookmark, BlockEquation,
	BlockTable, BlockTableRow, BlockChildPage, BlockChildDatabase,
	BlockColumnList, BlockColumn,
}

// BlockData is the type-specific payload of a block. The set of
// implementations is closed: only this package can add variants.
type BlockData interface {
	blockData()
}

// TextData backs paragraphs, headings, list items, quotes and toggles
type TextData struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color,omitempty"`
}

// ToDoData is a checklist item
type ToDoData struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Color    string     `json:"color,omitempty"`
}

// CodeData is a fenced code block
type CodeData struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption,omitempty"`
	Language string     `json:"language"`
}

// Icon is a page or callout icon
type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

// CalloutData is a callout with an optional emoji icon
type CalloutData struct {
	RichText []RichText `json:"rich_text"`
	Icon     *Icon      `json:"icon,omitempty"`
	Color    string     `json:"color,omitempty"`
}

// DividerData is a horizontal rule
type DividerData struct{}

// FileData backs image, file, video and pdf blocks
type FileData struct {
	Caption  []RichText `json:"caption"`
	Type     string     `json:"type"`
	Name     string     `json:"name,omitempty"`
	File     *FileRef   `json:"file,omitempty"`
	External *FileRef   `json:"external,omitempty"`
}

// Ref returns the file reference named by Type, falling back to whichever is set
func (d FileData) Ref() *FileRef {
	return pickRef(d.Type, d.File, d.External)
}

// BookmarkData is a web bookmark
type BookmarkData struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption"`
}

// EquationData is a display equation
type EquationData struct {
	Expression string `json:"expression"`
}

// TableData is a table container; rows are its children
type TableData struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

// TableRowData holds one rich text sequence per cell
type TableRowData struct {
	Cells [][]RichText `json:"cells"`
}

// ChildPageData references a sub-page by the block's own id
type ChildPageData struct {
	Title string `json:"title"`
}

// ChildDatabaseData references an inline or child database
type ChildDatabaseData struct {
	Title string `json:"title"`
}

// LayoutData backs column_list and column blocks, which only carry children
type LayoutData struct{}

// UnsupportedData keeps the raw payload of block types without a variant
type UnsupportedData struct {
	Raw json.RawMessage
}

func (*TextData) blockData()          {}
func (*ToDoData) blockData()          {}
func (*CodeData) blockData()          {}
func (*CalloutData) blockData()       {}
func (*DividerData) blockData()       {}
func (*FileData) blockData()          {}
func (*BookmarkData) blockData()      {}
func (*EquationData) blockData()      {}
func (*TableData) blockData()         {}
func (*TableRowData) blockData()      {}
func (*ChildPageData) blockData()     {}
func (*ChildDatabaseData) blockData() {}
func (*LayoutData) blockData()        {}
func (*UnsupportedData) blockData()   {}

// newBlockData returns an empty payload for t, or nil when t has no variant
func newBlockData(t BlockType) BlockData {
	switch t {
	case BlockParagraph, BlockHeading1, BlockHeading2, BlockHeading3,
		BlockBulletedListItem, BlockNumberedListItem, BlockQuote, BlockToggle:
		return &TextData{}
	case BlockToDo:
		return &ToDoData{}
	case BlockCode:
		return &CodeData{}
	case BlockCallout:
		return &CalloutData{}
	case BlockDivider:
		return &DividerData{}
	case BlockImage, BlockFile, BlockVideo, BlockPDF:
		return &FileData{}
	case BlockBookmark:
		return &BookmarkData{}
	case BlockEquation:
		return &EquationData{}
	case BlockTable:
		return &TableData{}
	case BlockTableRow:
		return &TableRowData{}
	case BlockChildPage:
		return &ChildPageData{}
	case BlockChildDatabase:
		return &ChildDatabaseData{}
	case BlockColumnList, BlockColumn:
		return &LayoutData{}
	default:
		return nil
	}
}

// Block is a node of a page's content tree
type Block struct {
	ID          string
	Type        BlockType
	HasChildren bool
	Data        BlockData
	Children    []Block

	// Meta holds the remaining envelope fields (object, timestamps, ...)
	Meta map[string]json.RawMessage
}

// NewBlock builds a block with the given payload and children
func NewBlock(id string, t BlockType, data BlockData, children ...Block) Block {
	return Block{
		ID:          id,
		Type:        t,
		HasChildren: len(children) > 0,
		Data:        data,
		Children:    children,
	}
}

// HeadingLevel returns 1-3 for heading blocks and 0 otherwise
func (b Block) HeadingLevel() int {
	switch b.Type {
	case BlockHeading1:
		return 1
	case BlockHeading2:
		return 2
	case BlockHeading3:
		return 3
	default:
		return 0
	}
}

var envelopeKeys = []string{"id", "type", "has_children", "children"}

func (b *Block) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Block
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &out.ID); err != nil {
			return fmt.Errorf("block id: %w", err)
		}
	}
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &out.Type); err != nil {
			return fmt.Errorf("block %s type: %w", out.ID, err)
		}
	}
	if out.Type == "" {
		out.Type = BlockUnsupported
	}
	if raw, ok := fields["has_children"]; ok {
		_ = json.Unmarshal(raw, &out.HasChildren)
	}
	if raw, ok := fields["children"]; ok {
		if err := json.Unmarshal(raw, &out.Children); err != nil {
			return fmt.Errorf("block %s children: %w", out.ID, err)
		}
	}

	payload := fields[string(out.Type)]
	out.Data = decodeBlockData(out.Type, payload)

	delete(fields, string(out.Type))
	for _, key := range envelopeKeys {
		delete(fields, key)
	}
	if len(fields) > 0 {
		out.Meta = fields
	}

	*b = out
	return nil
}

// decodeBlockData never fails: a payload that does not match its variant is
// kept raw so rendering can degrade instead of aborting the snapshot load.
func decodeBlockData(t BlockType, payload json.RawMessage) BlockData {
	data := newBlockData(t)
	if data == nil {
		return &UnsupportedData{Raw: payload}
	}
	if len(payload) == 0 || string(payload) == "null" {
		return data
	}
	if err := json.Unmarshal(payload, data); err != nil {
		return &UnsupportedData{Raw: payload}
	}
	return data
}

func (b Block) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(b.Meta)+5)
	for key, raw := range b.Meta {
		out[key] = raw
	}
	out["id"] = b.ID
	out["type"] = b.Type
	out["has_children"] = b.HasChildren || len(b.Children) > 0
	if len(b.Children) > 0 {
		out["children"] = b.Children
	}

	switch d := b.Data.(type) {
	case nil:
	case *UnsupportedData:
		if len(d.Raw) > 0 {
			out[string(b.Type)] = d.Raw
		}
	default:
		out[string(b.Type)] = d
	}
	return json.Marshal(out)
}
