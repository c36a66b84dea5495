// Package types provides the data structures shared by the engine, the
// workspace and the API.
//
// Core Types:
//   - SourceBundle: the markup, style and script fragments of one document
//   - Fragment: which of the three editors a value belongs to
//   - ConsoleEvent: one console call relayed out of the sandbox
//   - Preferences: editor UI settings (dark mode, layout)
//
// All types are plain values, safe to copy and compare.
package types
