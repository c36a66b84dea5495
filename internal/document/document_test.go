package document

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

func TestAssembleGolden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata"))
	doc := Assemble(types.SourceBundle{
		Markup: "<div id=x></div>",
		Style:  "body { color: red; }",
		Script: "console.log('hi')",
	})
	g.Assert(t, "assemble_basic", []byte(doc))
}

func TestAssembleIsPure(t *testing.T) {
	b := types.SourceBundle{Markup: "<p>a</p>", Style: "p{}", Script: "let x = 1"}
	assert.Equal(t, Assemble(b), Assemble(b))
	assert.NotEqual(t, Assemble(b), Assemble(b.With(types.FragmentScript, "let x = 2")))
}

func TestAssembleOrdering(t *testing.T) {
	doc := Assemble(types.SourceBundle{
		Markup: "<main>MARKUP</main>",
		Style:  "/* STYLE */",
		Script: "/* SCRIPT */",
	})

	reset := strings.Index(doc, ResetRule)
	style := strings.Index(doc, "/* STYLE */")
	markup := strings.Index(doc, "<main>MARKUP</main>")
	shimAt := strings.Index(doc, Shim())
	guard := strings.Index(doc, "try {")
	script := strings.Index(doc, "/* SCRIPT */")

	for _, i := range []int{reset, style, markup, shimAt, guard, script} {
		require.GreaterOrEqual(t, i, 0)
	}
	assert.Less(t, reset, style)
	assert.Less(t, style, markup)
	assert.Less(t, markup, shimAt)
	assert.Less(t, shimAt, guard)
	assert.Less(t, guard, script)
	assert.True(t, strings.HasSuffix(doc, "</html>\n"))
	assert.Contains(t, doc, "console.error('"+ErrorPrefix+"', error.message)")
}

func TestAssembleEmbedsVerbatim(t *testing.T) {
	script := "console.log('</b> & \"quoted\"')"
	doc := Assemble(types.SourceBundle{Script: script})
	assert.Contains(t, doc, script)
	assert.Equal(t, 1, strings.Count(doc, "<body>"))
}

func TestEmptyBundle(t *testing.T) {
	doc := Assemble(types.SourceBundle{})
	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>"))
	assert.Contains(t, doc, ResetRule)
	assert.Contains(t, doc, Shim())
}
