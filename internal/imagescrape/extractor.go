package imagescrape

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document holds what the engine needs from a parsed page.
type Document struct {
	// ImageRefs are the raw src values of <img> elements, in document order.
	ImageRefs []string
	// BaseHref is the href of the first <base> element, if any.
	BaseHref string
}

// ParseDocument parses HTML leniently (HTML5 parsing rules, so broken markup
// still yields a tree) and collects image references. Scripting is treated as
// disabled so <noscript> content is parsed as markup.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	imgs := doc.Find("img[src]")
	refs := make([]string, 0, imgs.Length())
	imgs.Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		refs = append(refs, src)
	})

	baseHref, _ := doc.Find("base[href]").First().Attr("href")

	return &Document{ImageRefs: refs, BaseHref: baseHref}, nil
}

// Extract returns the raw src values of every <img> element in markup that
// has one. Elements without src are skipped.
func Extract(markup string) []string {
	doc, err := ParseDocument(strings.NewReader(markup))
	if err != nil {
		return []string{}
	}
	return doc.ImageRefs
}
