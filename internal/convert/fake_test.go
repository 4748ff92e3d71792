package convert

import (
	"context"
	"fmt"

	"github.com/SergeyParamoshkin/blog/client"
)

type fakeSource struct {
	pages    map[string]*client.Page
	children map[string][]client.Block
	fail     map[string]error
}

func (f *fakeSource) RetrievePage(_ context.Context, id string) (*client.Page, error) {
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	p, ok := f.pages[id]
	if !ok {
		return nil, &client.APIError{Endpoint: "pages.retrieve", Status: 404, Code: "object_not_found"}
	}

	return p, nil
}

func (f *fakeSource) BlockChildren(_ context.Context, id string) ([]client.Block, error) {
	if err := f.fail["blocks:"+id]; err != nil {
		return nil, err
	}

	return f.children[id], nil
}

func rt(s string) []client.RichText {
	return []client.RichText{{Type: "text", PlainText: s}}
}

func publishedPage(id, title, date, description string) *client.Page {
	props := map[string]client.Property{
		"Status": {Type: "status", Status: &client.SelectOption{Name: "Published"}},
	}
	if title != "" {
		props["Title"] = client.Property{Type: "title", Title: rt(title)}
	}
	if date != "" {
		props["Date"] = client.Property{Type: "date", Date: &client.DateValue{Start: date}}
	}
	if description != "" {
		props["Description"] = client.Property{Type: "rich_text", RichText: rt(description)}
	}

	return &client.Page{Object: "page", ID: id, Properties: props}
}

func paragraph(id, s string) client.Block {
	return client.Block{ID: id, Type: "paragraph", Paragraph: &client.TextBlock{RichText: rt(s)}}
}

var errBoom = fmt.Errorf("connection reset")
