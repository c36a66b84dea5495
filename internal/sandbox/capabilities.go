package sandbox

import (
	"fmt"
	"sort"
	"strings"
)

// Capability is one token of the sandbox allow-list
type Capability string

const (
	AllowScripts      Capability = "allow-scripts"
	AllowModals       Capability = "allow-modals"
	AllowForms        Capability = "allow-forms"
	AllowPopups       Capability = "allow-popups"
	AllowPresentation Capability = "allow-presentation"
	AllowSameOrigin   Capability = "allow-same-origin"
)

var knownCapabilities = map[Capability]struct{}{
	AllowScripts:      {},
	AllowModals:       {},
	AllowForms:        {},
	AllowPopups:       {},
	AllowPresentation: {},
	AllowSameOrigin:   {},
}

// Capabilities is an explicit allow-list. The zero value allows nothing.
type Capabilities struct {
	set map[Capability]struct{}
}

// NewCapabilities builds a set from known tokens
func NewCapabilities(caps ...Capability) (Capabilities, error) {
	c := Capabilities{set: make(map[Capability]struct{}, len(caps))}
	for _, capability := range caps {
		if _, ok := knownCapabilities[capability]; !ok {
			return Capabilities{}, fmt.Errorf("unknown sandbox capability %q", capability)
		}
		c.set[capability] = struct{}{}
	}
	return c, nil
}

// ParseCapabilities parses a space separated sandbox attribute value
func ParseCapabilities(attr string) (Capabilities, error) {
	fields := strings.Fields(attr)
	caps := make([]Capability, 0, len(fields))
	for _, f := range fields {
		caps = append(caps, Capability(strings.ToLower(f)))
	}
	return NewCapabilities(caps...)
}

// DefaultCapabilities is the playground's allow-list. Same-origin is granted
// knowingly so the host can inspect rendered content.
func DefaultCapabilities() Capabilities {
	c, _ := NewCapabilities(AllowScripts, AllowModals, AllowForms, AllowPopups, AllowPresentation, AllowSameOrigin)
	return c
}

// Has reports whether a capability is granted
func (c Capabilities) Has(capability Capability) bool {
	_, ok := c.set[capability]
	return ok
}

// List returns the granted tokens in a stable order
func (c Capabilities) List() []string {
	out := make([]string, 0, len(c.set))
	for capability := range c.set {
		out = append(out, string(capability))
	}
	sort.Strings(out)
	return out
}

// String renders the set as a sandbox attribute value
func (c Capabilities) String() string {
	return strings.Join(c.List(), " ")
}

// Origin is the origin reported for messages from an instance
func (c Capabilities) Origin(hostOrigin string) string {
	if c.Has(AllowSameOrigin) {
		return hostOrigin
	}
	return "null"
}
