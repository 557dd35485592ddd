package termsurface

import "github.com/unilibs/uniwidth"

// WidthOf classifies a code point's terminal column width: 0 for non-spacing
// combining marks and zero-width joiners, 2 for East-Asian wide/fullwidth
// ranges, 1 otherwise.
func WidthOf(r rune) int {
	w := uniwidth.RuneWidth(r)
	if w < 0 {
		return 1
	}
	return w
}

// isCombiningMark reports whether r is a zero-width code point that attaches
// to the preceding cluster rather than starting a new one.
func isCombiningMark(r rune) bool {
	return WidthOf(r) == 0
}

// isRegionalIndicator reports whether r is one of the 26 regional indicator
// symbols (U+1F1E6-U+1F1FF) used to compose flag emoji in pairs.
func isRegionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

// ClusterBoundary reports whether next begins a new grapheme cluster given
// the preceding code point prev. It returns false (no new cluster) when next
// is a combining mark, or when next is a regional indicator continuing a
// flag pair started by prev.
func ClusterBoundary(prev, next rune) bool {
	if isCombiningMark(next) {
		return false
	}
	if isRegionalIndicator(prev) && isRegionalIndicator(next) {
		return false
	}
	return true
}

// StringWidth returns the total display width of s (sum of rune widths).
func StringWidth(s string) int {
	return uniwidth.StringWidth(s)
}
