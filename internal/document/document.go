package document

import (
	_ "embed"
	"strings"

	"github.com/GriffinCanCode/livebox/internal/shared/types"
)

//go:embed shim.js
var shim string

const (
	// ResetRule is prepended to every user style block
	ResetRule = "* {\n  box-sizing: border-box;\n}"

	// ErrorPrefix marks synchronous faults caught by the script guard
	ErrorPrefix = "JavaScript Error:"
)

const (
	head = "<!DOCTYPE html>\n" +
		"<html>\n" +
		"<head>\n" +
		"<meta charset=\"UTF-8\">\n" +
		"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n" +
		"<style>\n"
	bodyOpen    = "\n</style>\n</head>\n<body>\n"
	shimOpen    = "\n<script>\n"
	guardOpen   = "</script>\n<script>\ntry {\n"
	guardClose  = "\n} catch (error) {\n  console.error('" + ErrorPrefix + "', error.message);\n}\n</script>\n"
	documentEnd = "</body>\n</html>\n"
)

// Shim returns the console interception script injected into every document
func Shim() string {
	return shim
}

// Assemble builds the complete document for a bundle. It is pure: equal
// bundles always produce equal documents.
func Assemble(bundle types.SourceBundle) string {
	var sb strings.Builder
	sb.Grow(len(head) + len(ResetRule) + len(shim) + bundle.Size() + 256)

	sb.WriteString(head)
	sb.WriteString(ResetRule)
	sb.WriteString("\n\n")
	sb.WriteString(bundle.Style)
	sb.WriteString(bodyOpen)
	sb.WriteString(bundle.Markup)
	sb.WriteString(shimOpen)
	sb.WriteString(shim)
	sb.WriteString(guardOpen)
	sb.WriteString(bundle.Script)
	sb.WriteString(guardClose)
	sb.WriteString(documentEnd)

	return sb.String()
}
