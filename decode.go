package termsurface

import (
	goiterator "github.com/danielgatis/go-iterator"
	goutf8 "github.com/danielgatis/go-utf8"
)

// decodeRunes decodes s into its sequence of code points using the same
// UTF-8 decoding pipeline go-ansicode's input path is built on: go-utf8
// yields a go-iterator.Iterator[rune] over the byte string, which is
// drained here into a slice for cluster segmentation. Invalid byte
// sequences surface as the Unicode replacement character, which is not
// itself a control character and passes through write() unchanged.
func decodeRunes(s string) []rune {
	var it goiterator.Iterator[rune] = goutf8.NewDecoder([]byte(s))
	out := make([]rune, 0, len(s))
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}
