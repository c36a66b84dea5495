package sandbox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	ErrInvalidQuery = errors.New("invalid inspection query")
	ErrNoMatch      = errors.New("no element matches the selector")
)

// QueryKind selects the inspection language
type QueryKind string

const (
	QueryCSS   QueryKind = "css"
	QueryXPath QueryKind = "xpath"
)

// Query inspects the live DOM of the current instance. When Handle is set
// the query only runs against that instance.
type Query struct {
	Kind   QueryKind `json:"kind"`
	Expr   string    `json:"expr"`
	Limit  int       `json:"limit,omitempty"`
	Handle *Handle   `json:"handle,omitempty"`
}

// Match is one inspected node
type Match struct {
	Tag        string            `json:"tag"`
	Text       string            `json:"text"`
	HTML       string            `json:"html"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Inspection is the result of a query against a live document
type Inspection struct {
	Handle  Handle      `json:"handle"`
	Matches []Match     `json:"matches"`
	Changes []DOMChange `json:"changes,omitempty"`
}

// Interaction is a host-initiated user action delivered into the document.
// When Handle is set the action is refused if that instance is gone.
type Interaction struct {
	Selector string  `json:"selector"`
	Event    string  `json:"event"`
	Value    *string `json:"value,omitempty"`
	Handle   *Handle `json:"handle,omitempty"`
}

const defaultMatchLimit = 100

// Validate checks the query before it is sent to the instance
func (q Query) Validate() error {
	if strings.TrimSpace(q.Expr) == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidQuery)
	}
	switch q.Kind {
	case QueryCSS, QueryXPath, "":
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidQuery, q.Kind)
	}
}

func inspectDOM(dom *DOM, q Query) ([]Match, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultMatchLimit
	}

	var nodes []*html.Node
	switch q.Kind {
	case QueryXPath:
		found, err := htmlquery.QueryAll(dom.Root(), q.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		nodes = found
	default:
		found, err := dom.Query(nil, q.Expr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		nodes = found
	}

	if len(nodes) > limit {
		nodes = nodes[:limit]
	}

	matches := make([]Match, 0, len(nodes))
	for _, n := range nodes {
		matches = append(matches, describeMatch(n))
	}
	return matches, nil
}

func describeMatch(n *html.Node) Match {
	m := Match{
		Tag:  strings.ToLower(nodeName(n)),
		Text: strings.TrimSpace(htmlquery.InnerText(n)),
		HTML: htmlquery.OutputHTML(n, true),
	}
	if n.Type == html.ElementNode {
		m.Attributes = make(map[string]string, len(n.Attr))
		for _, a := range n.Attr {
			m.Attributes[a.Key] = a.Val
		}
	}
	return m
}
