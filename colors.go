package termsurface

// ColorKind tags which variant a Color holds.
type ColorKind uint8

const (
	// ColorDefault is the reserved "use the terminal's default" sentinel.
	ColorDefault ColorKind = iota
	// ColorNamed is a 4-bit ANSI index (0-15).
	ColorNamed
	// ColorIndexed is an 8-bit palette index (0-255).
	ColorIndexed
	// ColorRGB is a 24-bit true-color value.
	ColorRGB
)

// Color is a tagged value: default, named (0-15), indexed (0-255), or rgb
// (three 8-bit channels). It is stored as five bytes (tag, index, r, g, b),
// not packed into 32 bits. Equality is bitwise; the four namespaces never
// overlap.
type Color struct {
	kind    ColorKind
	index   uint8
	r, g, b uint8
}

// Default is the reserved "use the terminal's default color" value.
var Default = Color{kind: ColorDefault}

// Named constructs a 4-bit named color. Values outside [0,15] are masked.
func Named(idx uint8) Color {
	return Color{kind: ColorNamed, index: idx & 0x0F}
}

// Indexed constructs an 8-bit palette color.
func Indexed(idx uint8) Color {
	return Color{kind: ColorIndexed, index: idx}
}

// RGB constructs a 24-bit true-color value.
func RGB(r, g, b uint8) Color {
	return Color{kind: ColorRGB, r: r, g: g, b: b}
}

// Kind reports which variant c holds.
func (c Color) Kind() ColorKind { return c.kind }

// IsDefault reports whether c is the default sentinel.
func (c Color) IsDefault() bool { return c.kind == ColorDefault }

// NamedIndex returns the 4-bit index; valid only when Kind() == ColorNamed.
func (c Color) NamedIndex() uint8 { return c.index }

// PaletteIndex returns the 8-bit palette index; valid only when
// Kind() == ColorIndexed.
func (c Color) PaletteIndex() uint8 { return c.index }

// RGBValues returns the three 8-bit channels; valid only when
// Kind() == ColorRGB.
func (c Color) RGBValues() (r, g, b uint8) { return c.r, c.g, c.b }

// Equal reports bitwise equality between two colors.
func (c Color) Equal(o Color) bool {
	return c == o
}
