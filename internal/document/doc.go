// Package document builds the executable document a sandbox runs.
//
// Assemble composes the three user fragments with the console interception
// shim in a fixed order:
//
//  1. a style block holding the box-sizing reset followed by the user style
//  2. the user markup inside the body
//  3. the shim script, so overrides are active before user code runs
//  4. the user script inside a guard that reports synchronous throws as
//     console errors prefixed with "JavaScript Error:"
//
// Fragments are embedded verbatim. Isolation is the sandbox's job, not the
// assembler's.
package document
