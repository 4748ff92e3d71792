package convert

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/SergeyParamoshkin/blog/client"
	"github.com/SergeyParamoshkin/blog/internal/model"
)

const (
	TitleProperty       = "Title"
	DescriptionProperty = "Description"
	AuthorProperty      = "Author"
	TagsProperty        = "Tags"
	CategoryProperty    = "Category"
)

// Properties are the typed values read from a page.
type Properties struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`

	Author   string   `json:"-"`
	Tags     []string `json:"-"`
	Category string   `json:"-"`
}

func (p Properties) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required),
		validation.Field(&p.Date, validation.Required),
		validation.Field(&p.Description, validation.Required),
	)
}

// ExtractProperties reads the post properties from page. The title falls
// back to the database's title-typed property when none is named Title.
func ExtractProperties(page *client.Page) (Properties, error) {
	props := Properties{
		Title:       client.PlainText(titleProperty(page).Title),
		Description: client.PlainText(page.Properties[DescriptionProperty].RichText),
		Date:        page.DateStart(),
		Author:      author(page.Properties[AuthorProperty]),
		Category:    selectName(page.Properties[CategoryProperty]),
	}
	for _, opt := range page.Properties[TagsProperty].MultiSelect {
		if name := strings.TrimSpace(opt.Name); name != "" {
			props.Tags = append(props.Tags, name)
		}
	}

	if err := props.Validate(); err != nil {
		return Properties{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	return props, nil
}

func titleProperty(page *client.Page) client.Property {
	if prop, ok := page.Properties[TitleProperty]; ok {
		return prop
	}
	for _, prop := range page.Properties {
		if prop.Type == "title" {
			return prop
		}
	}

	return client.Property{}
}

func author(prop client.Property) string {
	if len(prop.People) > 0 {
		names := make([]string, 0, len(prop.People))
		for _, u := range prop.People {
			if u.Name != "" {
				names = append(names, u.Name)
			}
		}

		return strings.Join(names, ", ")
	}

	return client.PlainText(prop.RichText)
}

func selectName(prop client.Property) string {
	if prop.Select != nil {
		return prop.Select.Name
	}

	return ""
}

// CoverOf resolves the page cover union.
func CoverOf(page *client.Page) model.Cover {
	if page.Cover == nil {
		return model.Cover{Kind: model.CoverNone}
	}

	url := page.Cover.Link()
	if url == "" {
		return model.Cover{Kind: model.CoverNone}
	}

	switch page.Cover.Type {
	case "external":
		return model.Cover{Kind: model.CoverExternal, URL: url}
	case "file":
		return model.Cover{Kind: model.CoverFile, URL: url}
	}

	return model.Cover{Kind: model.CoverNone}
}
