package sandbox

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxRecordedChanges = 1000

// DOM is the parsed document of one sandbox instance. It is owned by the
// instance goroutine; the host reaches it only through loop tasks.
type DOM struct {
	doc     *goquery.Document
	changes []DOMChange
	dropped int
}

// ParseDOM commits a document into a live tree
func ParseDOM(document string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &DOM{doc: doc}, nil
}

// Root returns the document node
func (d *DOM) Root() *html.Node {
	return d.doc.Nodes[0]
}

// Selection returns a goquery view over the whole document
func (d *DOM) Selection() *goquery.Selection {
	return d.doc.Selection
}

// DocumentElement returns the <html> element
func (d *DOM) DocumentElement() *html.Node {
	for c := d.Root().FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

// Head returns the <head> element
func (d *DOM) Head() *html.Node {
	return d.child(atom.Head)
}

// Body returns the <body> element
func (d *DOM) Body() *html.Node {
	return d.child(atom.Body)
}

func (d *DOM) child(a atom.Atom) *html.Node {
	root := d.DocumentElement()
	if root == nil {
		return nil
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// Query runs a CSS selector below the given node. Invalid selectors return
// an error instead of matching nothing.
func (d *DOM) Query(from *html.Node, selector string) ([]*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}
	if from == nil {
		from = d.Root()
	}
	return goquery.NewDocumentFromNode(from).FindMatcher(sel).Nodes, nil
}

// Scripts returns the <script> elements in document order
func (d *DOM) Scripts() []*html.Node {
	return d.doc.Find("script").Nodes
}

// ElementByID returns the first element with the id, or nil
func (d *DOM) ElementByID(id string) *html.Node {
	var found *html.Node
	walk(d.Root(), func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// HTML renders the current tree
func (d *DOM) HTML() (string, error) {
	return d.doc.Html()
}

// RecordChange adds a DOM change to the journal
func (d *DOM) RecordChange(change DOMChange) {
	if len(d.changes) >= maxRecordedChanges {
		d.dropped++
		return
	}
	d.changes = append(d.changes, change)
}

// Changes returns accumulated DOM changes
func (d *DOM) Changes() []DOMChange {
	return append([]DOMChange{}, d.changes...)
}

// walk visits n and its descendants depth first until fn returns false
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func attr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, value string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func setTextContent(n *html.Node, text string) {
	if n.Type == html.TextNode {
		n.Data = text
		return
	}
	removeChildren(n)
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

func outerHTML(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

func setInnerHTML(n *html.Node, markup string) error {
	nodes, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return err
	}
	removeChildren(n)
	for _, c := range nodes {
		n.AppendChild(c)
	}
	return nil
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// contains reports whether n is ancestor or self of other
func contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

func classList(n *html.Node) []string {
	v, _ := attr(n, "class")
	return strings.Fields(v)
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range classList(n) {
		if c == class {
			return true
		}
	}
	return false
}

// describe returns a short selector-like label, e.g. div#app.card
func describe(n *html.Node) string {
	switch n.Type {
	case html.DocumentNode:
		return "#document"
	case html.TextNode:
		return "#text"
	case html.ElementNode:
	default:
		return "#node"
	}
	label := n.Data
	if id, ok := attr(n, "id"); ok && id != "" {
		label += "#" + id
	}
	for _, c := range classList(n) {
		label += "." + c
	}
	return label
}

func nodeName(n *html.Node) string {
	switch n.Type {
	case html.DocumentNode:
		return "#document"
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	default:
		return strings.ToUpper(n.Data)
	}
}
