// Package markup parses HTML fragments into a queryable tree and writes
// them back out as well-formed XHTML.
package markup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fragment is a parsed HTML fragment rooted at a synthetic body element.
type Fragment struct {
	root *html.Node
	doc  *goquery.Document
}

// Parse parses an HTML fragment the way a browser would parse the inner
// HTML of a body element.
func Parse(fragment string) (*Fragment, error) {
	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return nil, fmt.Errorf("parsing fragment: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Fragment{root: root, doc: goquery.NewDocumentFromNode(root)}, nil
}

// Root returns the synthetic body node holding the fragment.
func (f *Fragment) Root() *html.Node { return f.root }

// Selection returns the fragment root as a goquery selection.
func (f *Fragment) Selection() *goquery.Selection { return f.doc.Selection }

// Find returns the descendants matching a CSS selector.
func (f *Fragment) Find(selector string) *goquery.Selection {
	return f.doc.Find(selector)
}

// XHTML serializes the fragment's children as well-formed XHTML.
func (f *Fragment) XHTML() string {
	return SerializeChildren(f.root)
}

// Text creates a text node. Its content is never parsed as markup.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Element creates an element with attrs and children.
func Element(tag string, attrs []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}
