package theme

import (
	"bytes"
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page the controller enhances in place.
type Document struct {
	doc *goquery.Document
}

func ParseDocument(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ByID looks up an element by id. ok is false when the page has none.
func (d *Document) ByID(id string) (*goquery.Selection, bool) {
	return d.First("#" + id)
}

// First returns the first element matching selector, if any.
func (d *Document) First(selector string) (*goquery.Selection, bool) {
	sel := d.doc.Find(selector).First()
	return sel, sel.Length() > 0
}

// All returns every element matching selector; the selection may be empty.
func (d *Document) All(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Root is the <html> element.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Find("html").First()
}

func (d *Document) Head() *goquery.Selection {
	return d.doc.Find("head").First()
}

func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

func (d *Document) Render(w io.Writer) error {
	for _, n := range d.doc.Nodes {
		if err := html.Render(w, n); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
	}
	return nil
}

func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
