package termsurface

// Patch represents a passthrough escape pair wrapping a run of cells, the
// typical use being a terminal hyperlink (OSC 8 set-up, OSC 8 with an empty
// URI as clean-up).
type Patch struct {
	Setup    string
	Cleanup  string
	Optimize bool
}

// Attr is an owned, clonable record combining foreground, background and
// decoration colors, a style bitset, and an optional patch.
type Attr struct {
	Fg, Bg, Deco Color
	Style        Style
	Patch        *Patch
}

// NewAttr returns a zero-value Attr: default colors, no style, no patch.
func NewAttr() Attr {
	return Attr{}
}

// Clone returns an independent copy of a, including a fresh *Patch when one
// is set.
func (a Attr) Clone() Attr {
	out := a
	if a.Patch != nil {
		p := *a.Patch
		out.Patch = &p
	}
	return out
}

// WithPatch returns a copy of a carrying the given patch strings.
func (a Attr) WithPatch(setup, cleanup string, optimize bool) Attr {
	out := a
	out.Patch = &Patch{Setup: setup, Cleanup: cleanup, Optimize: optimize}
	return out
}

// WithoutPatch returns a copy of a with its patch cleared.
func (a Attr) WithoutPatch() Attr {
	out := a
	out.Patch = nil
	return out
}

// samePatch reports whether two patch pointers describe equal content,
// treating nil as distinct from a present-but-empty patch.
func samePatch(a, b *Patch) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
