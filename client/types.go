package client

import "strings"

// QueryRequest is the body of a database query.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
}

type Filter struct {
	And      []Filter      `json:"and,omitempty"`
	Property string        `json:"property,omitempty"`
	Status   *StatusFilter `json:"status,omitempty"`
}

type StatusFilter struct {
	Equals string `json:"equals"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type pageList struct {
	Results    []Page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

type blockList struct {
	Results    []Block `json:"results"`
	NextCursor string  `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}

// Page is a Notion page, i.e. one database row.
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	URL            string              `json:"url"`
	Cover          *File               `json:"cover"`
	Properties     map[string]Property `json:"properties"`
}

// Status returns the name of the Status property, accepting both the
// status and the legacy select property types.
func (p Page) Status() string {
	prop, ok := p.Properties[StatusProperty]
	if !ok {
		return ""
	}
	switch {
	case prop.Status != nil:
		return prop.Status.Name
	case prop.Select != nil:
		return prop.Select.Name
	}

	return ""
}

// DateStart returns the start of the Date property or "".
func (p Page) DateStart() string {
	if prop, ok := p.Properties[DateProperty]; ok && prop.Date != nil {
		return prop.Date.Start
	}

	return ""
}

// Property is a typed page property. Only the field matching Type is set.
type Property struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Status      *SelectOption  `json:"status,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	People      []User         `json:"people,omitempty"`
	Number      *float64       `json:"number,omitempty"`
}

type DateValue struct {
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	TimeZone string `json:"time_zone,omitempty"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type User struct {
	Object string `json:"object"`
	ID     string `json:"id"`
	Name   string `json:"name"`
}

// File is the union Notion uses for covers and media blocks: Type is
// "external" or "file" and the matching pointer is set.
type File struct {
	Type     string     `json:"type"`
	External *FileURL   `json:"external,omitempty"`
	File     *FileURL   `json:"file,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
	Name     string     `json:"name,omitempty"`
}

type FileURL struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// Link returns the URL of whichever variant is set.
func (f *File) Link() string {
	if f == nil {
		return ""
	}
	switch f.Type {
	case "external":
		if f.External != nil {
			return f.External.URL
		}
	case "file":
		if f.File != nil {
			return f.File.URL
		}
	}

	return ""
}

type RichText struct {
	Type        string       `json:"type"`
	PlainText   string       `json:"plain_text"`
	Href        string       `json:"href,omitempty"`
	Annotations Annotations  `json:"annotations"`
	Text        *TextContent `json:"text,omitempty"`
	Equation    *Equation    `json:"equation,omitempty"`
}

type Annotations struct {
	Bold          bool   `json:"bold"`
	Italic        bool   `json:"italic"`
	Strikethrough bool   `json:"strikethrough"`
	Underline     bool   `json:"underline"`
	Code          bool   `json:"code"`
	Color         string `json:"color,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link,omitempty"`
}

type Link struct {
	URL string `json:"url"`
}

type Equation struct {
	Expression string `json:"expression"`
}

// PlainText concatenates the plain text of every segment.
func PlainText(segments []RichText) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.PlainText)
	}

	return b.String()
}

// Block is one node of a page's content tree. Only the field matching
// Type is set.
type Block struct {
	Object      string `json:"object"`
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`

	Paragraph        *TextBlock `json:"paragraph,omitempty"`
	Heading1         *TextBlock `json:"heading_1,omitempty"`
	Heading2         *TextBlock `json:"heading_2,omitempty"`
	Heading3         *TextBlock `json:"heading_3,omitempty"`
	BulletedListItem *TextBlock `json:"bulleted_list_item,omitempty"`
	NumberedListItem *TextBlock `json:"numbered_list_item,omitempty"`
	ToDo             *TextBlock `json:"to_do,omitempty"`
	Toggle           *TextBlock `json:"toggle,omitempty"`
	Quote            *TextBlock `json:"quote,omitempty"`
	Callout          *TextBlock `json:"callout,omitempty"`
	Code             *TextBlock `json:"code,omitempty"`

	Image *File `json:"image,omitempty"`
	Video *File `json:"video,omitempty"`
	File  *File `json:"file,omitempty"`
	PDF   *File `json:"pdf,omitempty"`

	Bookmark    *LinkBlock `json:"bookmark,omitempty"`
	Embed       *LinkBlock `json:"embed,omitempty"`
	LinkPreview *LinkBlock `json:"link_preview,omitempty"`

	Equation  *Equation      `json:"equation,omitempty"`
	ChildPage *ChildPage     `json:"child_page,omitempty"`
	Table     *TableBlock    `json:"table,omitempty"`
	TableRow  *TableRowBlock `json:"table_row,omitempty"`
}

// TextBlock carries rich text plus the per-type extras of text-like blocks.
type TextBlock struct {
	RichText     []RichText `json:"rich_text"`
	Color        string     `json:"color,omitempty"`
	Checked      bool       `json:"checked,omitempty"`
	IsToggleable bool       `json:"is_toggleable,omitempty"`
	Icon         *Icon      `json:"icon,omitempty"`
	Language     string     `json:"language,omitempty"`
	Caption      []RichText `json:"caption,omitempty"`
}

type Icon struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji,omitempty"`
}

type LinkBlock struct {
	URL     string     `json:"url"`
	Caption []RichText `json:"caption,omitempty"`
}

type ChildPage struct {
	Title string `json:"title"`
}

type TableBlock struct {
	TableWidth      int  `json:"table_width"`
	HasColumnHeader bool `json:"has_column_header"`
	HasRowHeader    bool `json:"has_row_header"`
}

type TableRowBlock struct {
	Cells [][]RichText `json:"cells"`
}
