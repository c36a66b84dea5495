package sandbox

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const fixture = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
<div id="app" class="box main"><p>one</p><p class="note">two</p></div>
<script>var a = 1;</script>
</body></html>`

func TestParseDOM(t *testing.T) {
	dom, err := ParseDOM(fixture)
	require.NoError(t, err)

	require.NotNil(t, dom.DocumentElement())
	require.NotNil(t, dom.Head())
	require.NotNil(t, dom.Body())
	assert.Len(t, dom.Scripts(), 1)

	app := dom.ElementByID("app")
	require.NotNil(t, app)
	assert.Equal(t, "div#app.box.main", describe(app))
	assert.Equal(t, []string{"box", "main"}, classList(app))
	assert.True(t, hasClass(app, "main"))
	assert.Equal(t, "onetwo", textContent(app))
	assert.Nil(t, dom.ElementByID("missing"))
}

func TestDOMQuery(t *testing.T) {
	dom, err := ParseDOM(fixture)
	require.NoError(t, err)

	nodes, err := dom.Query(nil, "#app p")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	nodes, err = dom.Query(dom.ElementByID("app"), ".note")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "two", textContent(nodes[0]))

	_, err = dom.Query(nil, "p[")
	assert.Error(t, err)
}

func TestNodeHelpers(t *testing.T) {
	dom, err := ParseDOM(fixture)
	require.NoError(t, err)
	app := dom.ElementByID("app")

	setAttr(app, "data-x", "1")
	v, ok := attr(app, "data-x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	removeAttr(app, "data-x")
	_, ok = attr(app, "data-x")
	assert.False(t, ok)

	require.NoError(t, setInnerHTML(app, "<span>a</span><em>b</em>"))
	assert.Equal(t, "<span>a</span><em>b</em>", innerHTML(app))
	assert.Len(t, elementChildren(app), 2)
	assert.True(t, contains(dom.Body(), app.FirstChild))

	setTextContent(app, "<plain>")
	assert.Equal(t, "&lt;plain&gt;", innerHTML(app))
	assert.Equal(t, html.TextNode, app.FirstChild.Type)
}

func TestChangeJournalIsBounded(t *testing.T) {
	dom, err := ParseDOM("<p></p>")
	require.NoError(t, err)

	for i := 0; i < maxRecordedChanges+5; i++ {
		dom.RecordChange(DOMChange{Type: "set_text", Value: fmt.Sprint(i)})
	}
	changes := dom.Changes()
	assert.Len(t, changes, maxRecordedChanges)
	assert.Equal(t, "0", changes[0].Value)

	changes[0].Value = "mutated"
	assert.Equal(t, "0", dom.Changes()[0].Value, "Changes returns a copy")
}

func TestInspectDOM(t *testing.T) {
	dom, err := ParseDOM(fixture)
	require.NoError(t, err)

	matches, err := inspectDOM(dom, Query{Kind: QueryCSS, Expr: "p"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "p", matches[0].Tag)
	assert.Equal(t, "one", matches[0].Text)
	assert.Equal(t, "<p>one</p>", matches[0].HTML)

	matches, err = inspectDOM(dom, Query{Kind: QueryXPath, Expr: "//p[@class='note']"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, map[string]string{"class": "note"}, matches[0].Attributes)

	matches, err = inspectDOM(dom, Query{Expr: "p", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = inspectDOM(dom, Query{Kind: QueryXPath, Expr: "//p[@"})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestQueryValidate(t *testing.T) {
	assert.NoError(t, Query{Expr: "p"}.Validate())
	assert.NoError(t, Query{Kind: QueryXPath, Expr: "//p"}.Validate())
	assert.ErrorIs(t, Query{Expr: "  "}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, Query{Kind: "regex", Expr: "p"}.Validate(), ErrInvalidQuery)
}

func TestStyleNameConversion(t *testing.T) {
	assert.Equal(t, "background-color", kebab("backgroundColor"))
	assert.Equal(t, "color", kebab("color"))
	assert.Equal(t, "--main-gap", kebab("--main-gap"))
	assert.Equal(t, "borderTopWidth", camel("border-top-width"))
	assert.Equal(t, "--main-gap", camel("--main-gap"))
}
