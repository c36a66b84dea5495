package types

// SourceBundle is an immutable snapshot of the three user fragments.
// It is comparable, so value-level change detection is a plain ==.
type SourceBundle struct {
	Markup string `json:"markup"`
	Style  string `json:"style"`
	Script string `json:"script"`
}

// IsZero reports whether all fragments are empty
func (b SourceBundle) IsZero() bool {
	return b == SourceBundle{}
}

// Size returns the combined fragment length in bytes
func (b SourceBundle) Size() int {
	return len(b.Markup) + len(b.Style) + len(b.Script)
}

// Fragment identifies one of the three editors
type Fragment string

const (
	FragmentMarkup Fragment = "markup"
	FragmentStyle  Fragment = "style"
	FragmentScript Fragment = "script"
)

// ParseFragment accepts the canonical names and the editor-language aliases
func ParseFragment(s string) (Fragment, bool) {
	switch s {
	case "markup", "html":
		return FragmentMarkup, true
	case "style", "css":
		return FragmentStyle, true
	case "script", "javascript", "js":
		return FragmentScript, true
	}
	return "", false
}

// With returns a copy of the bundle with one fragment replaced
func (b SourceBundle) With(f Fragment, text string) SourceBundle {
	switch f {
	case FragmentMarkup:
		b.Markup = text
	case FragmentStyle:
		b.Style = text
	case FragmentScript:
		b.Script = text
	}
	return b
}

// Layout is the editor arrangement preference
type Layout string

const (
	LayoutHorizontal Layout = "horizontal"
	LayoutVertical   Layout = "vertical"
)

// Valid reports whether the layout is known
func (l Layout) Valid() bool {
	return l == LayoutHorizontal || l == LayoutVertical
}

// Preferences holds UI preferences persisted alongside the workspace
type Preferences struct {
	DarkMode bool   `json:"dark_mode"`
	Layout   Layout `json:"layout"`
}
