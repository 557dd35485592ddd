package termsurface

import "strings"

// TilePolicy selects the edge-case rule for blitting through a double-wide
// glyph boundary in CopyRect (§4.3 copy_rect).
type TilePolicy int

const (
	// TileNone writes spaces carrying the bisected glyph's colors over both
	// of its columns in the destination: the edge column inside the rect
	// and the one just outside it (only the first when the outer column
	// lies beyond the destination surface).
	TileNone TilePolicy = iota
	// TilePut copies the full glyph, extending the rect outward by one
	// column on that side if necessary.
	TilePut
	// TilePreserve leaves the destination's existing glyph in that half.
	TilePreserve
)

// Surface is a width x height grid of cells (§3 Surface). A surface created
// with a negative or overflowing dimension collapses to 0x0. Each surface
// owns an intern table for clusters longer than the inline budget and one
// for patch strings (capped at 255 distinct live patches).
type Surface struct {
	width, height int
	cells         []Cell
	clusters      *internTable
	patches       *internTable
}

const maxPatchesPerSurface = 255

func sanitizeDims(w, h int) (int, int) {
	if w < 0 || h < 0 {
		return 0, 0
	}
	if w != 0 && h > (1<<62)/w {
		return 0, 0
	}
	return w, h
}

// NewSurface creates a width x height surface. Cells start in the blank
// state: erased sentinel cluster, default colors, no style, width 1, no
// patch, no soft-wrap marker (scenario 1).
func NewSurface(width, height int) *Surface {
	width, height = sanitizeDims(width, height)
	s := &Surface{width: width, height: height}
	if width > 0 && height > 0 {
		s.cells = make([]Cell, width*height)
		for i := range s.cells {
			s.cells[i] = blankCell
		}
	}
	s.clusters = newInternTable(0)
	s.patches = newInternTable(maxPatchesPerSurface)
	s.clusters.markAll = s.markLiveClusters
	s.patches.markAll = s.markLivePatches
	return s
}

// Width returns the surface width in columns.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in rows.
func (s *Surface) Height() int { return s.height }

func (s *Surface) idx(x, y int) int { return y*s.width + x }

// at returns a pointer to the cell at (x, y), or nil when out of bounds.
func (s *Surface) at(x, y int) *Cell {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return nil
	}
	return &s.cells[s.idx(x, y)]
}

func (s *Surface) ensureCluster(text string) handle { return s.clusters.ensure(text) }
func (s *Surface) ensurePatch(key string) handle     { return s.patches.ensure(key) }

func (s *Surface) markLiveClusters(ensure func(string) handle) {
	for i := range s.cells {
		c := &s.cells[i]
		if c.clusterLen == clusterInternMarker && c.clusterHandle != nullHandle {
			if key := s.clusters.keyAt(c.clusterHandle); key != "" {
				ensure(key)
			}
		}
	}
}

func (s *Surface) markLivePatches(ensure func(string) handle) {
	for i := range s.cells {
		c := &s.cells[i]
		if c.patchHandle != nullHandle {
			if key := s.patches.keyAt(c.patchHandle); key != "" {
				ensure(key)
			}
		}
	}
}

// GC runs a mark-and-sweep pass over both the cluster and patch intern
// tables, reclaiming any entry no longer referenced by a live cell.
func (s *Surface) GC() {
	s.clusters.gc()
	s.patches.gc()
}

// InternedClusterCount reports the number of distinct interned (non-inline)
// clusters currently live.
func (s *Surface) InternedClusterCount() int { return s.clusters.count() }

// InternedPatchCount reports the number of distinct patches currently live.
func (s *Surface) InternedPatchCount() int { return s.patches.count() }

// breakPair orphans the partner of the double-wide pair occupying col, if
// any, turning it into a space cell carrying the pair's former colors
// (§4.3 "vanish"). Called before any single-cell overwrite at col.
func (s *Surface) breakPair(col, y int) {
	c := s.at(col, y)
	if c == nil {
		return
	}
	if c.Continuation {
		if m := s.at(col-1, y); m != nil {
			*m = Cell{Fg: m.Fg, Bg: m.Bg, Deco: m.Deco, Width: 1}
			m.setCluster(" ", s.ensureCluster)
		}
	} else if c.Width == 2 {
		if p := s.at(col+1, y); p != nil {
			*p = Cell{Fg: c.Fg, Bg: c.Bg, Deco: c.Deco, Width: 1}
			p.setCluster(" ", s.ensureCluster)
		}
	}
}

// setSingle overwrites the single cell at (col, y) with text (width 1),
// orphaning any pair partner first.
func (s *Surface) setSingle(col, y int, text string, attr Attr) {
	s.breakPair(col, y)
	c := s.at(col, y)
	if c == nil {
		return
	}
	c.setCluster(text, s.ensureCluster)
	c.Fg, c.Bg, c.Deco, c.Style = attr.Fg, attr.Bg, attr.Deco, ResolveUnderline(attr.Style)
	c.setPatch(attr.Patch, s.ensurePatch)
	c.Width = 1
	c.Continuation = false
	c.SoftWrap = false
}

// setWidePair overwrites the double-wide pair at (col, col+1, y) with the
// given cluster text, orphaning any existing pair partners on either side
// first.
func (s *Surface) setWidePair(col, y int, text string, attr Attr) {
	s.breakPair(col, y)
	s.breakPair(col+1, y)
	master := s.at(col, y)
	cont := s.at(col+1, y)
	if master == nil || cont == nil {
		return
	}
	style := ResolveUnderline(attr.Style)
	master.setCluster(text, s.ensureCluster)
	master.Fg, master.Bg, master.Deco, master.Style = attr.Fg, attr.Bg, attr.Deco, style
	master.setPatch(attr.Patch, s.ensurePatch)
	master.Width = 2
	master.Continuation = false
	master.SoftWrap = false

	cont.reset()
	cont.Fg, cont.Bg, cont.Deco, cont.Style = attr.Fg, attr.Bg, attr.Deco, style
	cont.setPatch(attr.Patch, s.ensurePatch)
	cont.Width = 2
	cont.Continuation = true
}

type token struct {
	r      rune
	erased bool
}

// substituteControl maps a control code point to its visible replacement,
// per §4.3 write(): soft-hyphen becomes '-', DEL becomes the erased
// sentinel, and the remaining C0/C1 control ranges become a space.
func substituteControl(r rune) token {
	switch {
	case r == 0x7F:
		return token{erased: true}
	case r == 0x00AD:
		return token{r: '-'}
	case r <= 0x1F || (r >= 0x80 && r <= 0x9F):
		return token{r: ' '}
	default:
		return token{r: r}
	}
}

type clusterUnit struct {
	text   string
	width  int
	erased bool
}

// segmentClusters decodes text into grapheme clusters, substituting control
// characters and prefixing a cluster that leads with a combining mark with
// U+00A0 (§4.1, §4.3, invariant in §8).
func segmentClusters(text string) []clusterUnit {
	runes := decodeRunes(text)
	toks := make([]token, len(runes))
	for i, r := range runes {
		toks[i] = substituteControl(r)
	}

	var units []clusterUnit
	i := 0
	for i < len(toks) {
		if toks[i].erased {
			units = append(units, clusterUnit{erased: true, width: 1})
			i++
			continue
		}

		var b strings.Builder
		lead := toks[i].r
		width := WidthOf(lead)
		if width == 0 {
			b.WriteRune(0x00A0)
			width = 1
		}
		b.WriteRune(lead)

		j := i + 1
		for j < len(toks) && !toks[j].erased && !ClusterBoundary(toks[j-1].r, toks[j].r) {
			b.WriteRune(toks[j].r)
			j++
		}
		units = append(units, clusterUnit{text: b.String(), width: width})
		i = j
	}
	return units
}

// Write places text starting at (x, y), clipped to the surface's columns
// [0, width). Out of bounds rows, negative x, and overflowing columns are
// clipped silently.
func (s *Surface) Write(x, y int, text string, attr Attr) {
	s.WriteClipped(x, y, text, attr, 0, s.width)
}

// WriteClipped is Write with an explicit horizontal clip window.
func (s *Surface) WriteClipped(x, y int, text string, attr Attr, clipX0, clipX1 int) {
	if y < 0 || y >= s.height {
		return
	}
	if clipX0 < 0 {
		clipX0 = 0
	}
	if clipX1 > s.width {
		clipX1 = s.width
	}
	if clipX0 >= clipX1 {
		return
	}

	col := x
	for _, u := range segmentClusters(text) {
		if col >= clipX1 {
			break
		}
		if u.erased {
			if col >= clipX0 && col < clipX1 {
				s.setSingle(col, y, erasedCluster, attr)
			}
			col++
			continue
		}
		if u.width == 1 {
			if col >= clipX0 && col < clipX1 {
				s.setSingle(col, y, u.text, attr)
			}
			col++
			continue
		}

		left, right := col, col+1
		leftVisible := left >= clipX0 && left < clipX1
		rightVisible := right >= clipX0 && right < clipX1
		switch {
		case leftVisible && rightVisible:
			s.setWidePair(left, y, u.text, attr)
		case leftVisible:
			s.setSingle(left, y, " ", attr)
		case rightVisible:
			s.setSingle(right, y, " ", attr)
		}
		col += 2
	}
}

func clampRect(w, h int, x0, y0, x1, y1 int) (int, int, int, int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	return x0, y0, x1, y1
}

// ClearRectWith fills [x0,x1)x[y0,y1) with ch (a single-width cluster,
// empty string for the erased sentinel) and attr, resetting soft-wrap
// markers.
func (s *Surface) ClearRectWith(x0, y0, x1, y1 int, ch string, attr Attr) {
	x0, y0, x1, y1 = clampRect(s.width, s.height, x0, y0, x1, y1)
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			s.setSingle(x, y, ch, attr)
		}
	}
}

// ClearRect clears [x0,x1)x[y0,y1) to the erased sentinel with default
// attributes.
func (s *Surface) ClearRect(x0, y0, x1, y1 int) {
	s.ClearRectWith(x0, y0, x1, y1, erasedCluster, Attr{})
}

// Clear clears the whole surface to the erased sentinel with default
// attributes.
func (s *Surface) Clear() { s.ClearRect(0, 0, s.width, s.height) }

// ClearWithChar clears the whole surface to ch with default attributes.
func (s *Surface) ClearWithChar(ch string) {
	s.ClearRectWith(0, 0, s.width, s.height, ch, Attr{})
}

// ClearWithAttr clears the whole surface to the erased sentinel with attr.
func (s *Surface) ClearWithAttr(attr Attr) {
	s.ClearRectWith(0, 0, s.width, s.height, erasedCluster, attr)
}

func attrFromCell(s *Surface, c *Cell) Attr {
	return Attr{
		Fg: c.Fg, Bg: c.Bg, Deco: c.Deco, Style: c.Style,
		Patch: c.patch(s.patches.keyAt),
	}
}

// copyCellFrom overwrites the cell at (tx, ty) with a full copy of source's
// cell at (sx, sy), re-interning its cluster and patch into this surface's
// own tables.
func (dst *Surface) copyCellFrom(tx, ty int, source *Surface, sx, sy int) {
	dst.breakPair(tx, ty)
	sc := source.at(sx, sy)
	dc := dst.at(tx, ty)
	if sc == nil || dc == nil {
		return
	}
	text := sc.cluster(source.clusters.keyAt)
	patch := sc.patch(source.patches.keyAt)

	dc.setCluster(text, dst.ensureCluster)
	dc.Fg, dc.Bg, dc.Deco, dc.Style = sc.Fg, sc.Bg, sc.Deco, sc.Style
	dc.setPatch(patch, dst.ensurePatch)
	dc.SoftWrap = sc.SoftWrap
	dc.Width = sc.Width
	dc.Continuation = sc.Continuation
}

func applyEdgeTile(dst *Surface, tx, ty int, source *Surface, sx, sy int, policy TilePolicy, leftEdge bool) {
	switch policy {
	case TilePreserve:
		return
	case TilePut:
		if leftEdge {
			dst.copyCellFrom(tx-1, ty, source, sx-1, sy)
			dst.copyCellFrom(tx, ty, source, sx, sy)
		} else {
			dst.copyCellFrom(tx, ty, source, sx, sy)
			dst.copyCellFrom(tx+1, ty, source, sx+1, sy)
		}
	default: // TileNone
		attr := attrFromCell(source, source.at(sx, sy))
		if leftEdge {
			dst.setSingle(tx-1, ty, " ", attr)
			dst.setSingle(tx, ty, " ", attr)
		} else {
			dst.setSingle(tx, ty, " ", attr)
			dst.setSingle(tx+1, ty, " ", attr)
		}
	}
}

// CopyRect blits the rectangle [sx0,sx1)x[sy0,sy1) of src onto dst at
// (dx,dy). tileLeft and tileRight each select the edge policy applied when
// a double-wide glyph is bisected by the rect's left/right boundary.
// Copying into the same surface behaves as if through a transient
// duplicate.
func CopyRect(src *Surface, sx0, sy0, sx1, sy1 int, dst *Surface, dx, dy int, tileLeft, tileRight TilePolicy) {
	sx0, sy0, sx1, sy1 = clampRect(src.width, src.height, sx0, sy0, sx1, sy1)
	w, h := sx1-sx0, sy1-sy0
	if w <= 0 || h <= 0 {
		return
	}

	source := src
	if src == dst {
		source = src.Duplicate()
	}

	for r := 0; r < h; r++ {
		sy := sy0 + r
		ty := dy + r
		if ty < 0 || ty >= dst.height || sy < 0 || sy >= source.height {
			continue
		}
		for c := 0; c < w; c++ {
			sx := sx0 + c
			tx := dx + c
			if tx < 0 || tx >= dst.width {
				continue
			}
			sc := source.at(sx, sy)
			if sc == nil {
				continue
			}

			switch {
			case c == 0 && sc.Continuation:
				applyEdgeTile(dst, tx, ty, source, sx, sy, tileLeft, true)
			case c == w-1 && sc.Width == 2 && !sc.Continuation:
				applyEdgeTile(dst, tx, ty, source, sx, sy, tileRight, false)
			default:
				dst.copyCellFrom(tx, ty, source, sx, sy)
			}
		}
	}
}

// Tint walks every cell, replacing its (fg, bg, deco) with fn's result.
// Style, cluster, and width are untouched.
func (s *Surface) Tint(fn func(fg, bg, deco Color) (Color, Color, Color)) {
	for i := range s.cells {
		c := &s.cells[i]
		c.Fg, c.Bg, c.Deco = fn(c.Fg, c.Bg, c.Deco)
	}
}

// SetFg sets the foreground color of the cell at (x, y), leaving other
// fields alone.
func (s *Surface) SetFg(x, y int, color Color) {
	if c := s.at(x, y); c != nil {
		c.Fg = color
	}
}

// SetBg sets the background color of the cell at (x, y).
func (s *Surface) SetBg(x, y int, color Color) {
	if c := s.at(x, y); c != nil {
		c.Bg = color
	}
}

// SetDeco sets the decoration (underline) color of the cell at (x, y).
func (s *Surface) SetDeco(x, y int, color Color) {
	if c := s.at(x, y); c != nil {
		c.Deco = color
	}
}

// SetSoftWrapMarker sets or clears the soft-wrap marker of the cell at
// (x, y).
func (s *Surface) SetSoftWrapMarker(x, y int, v bool) {
	if c := s.at(x, y); c != nil {
		c.SoftWrap = v
	}
}

// PeekText returns the cluster at (x, y) and the column span of its pair.
// At a continuation column it returns the master column's cluster and the
// pair's span.
func (s *Surface) PeekText(x, y int) (text string, left, right int) {
	c := s.at(x, y)
	if c == nil {
		return "", x, x
	}
	if c.Continuation {
		if m := s.at(x-1, y); m != nil {
			return m.cluster(s.clusters.keyAt), x - 1, x
		}
		return "", x, x
	}
	right = x
	if c.Width == 2 {
		right = x + 1
	}
	return c.cluster(s.clusters.keyAt), x, right
}

// PeekFg returns the foreground color at (x, y).
func (s *Surface) PeekFg(x, y int) Color {
	if c := s.at(x, y); c != nil {
		return c.Fg
	}
	return Default
}

// PeekBg returns the background color at (x, y).
func (s *Surface) PeekBg(x, y int) Color {
	if c := s.at(x, y); c != nil {
		return c.Bg
	}
	return Default
}

// PeekDeco returns the decoration color at (x, y).
func (s *Surface) PeekDeco(x, y int) Color {
	if c := s.at(x, y); c != nil {
		return c.Deco
	}
	return Default
}

// PeekStyle returns the style bitset at (x, y).
func (s *Surface) PeekStyle(x, y int) Style {
	if c := s.at(x, y); c != nil {
		return c.Style
	}
	return 0
}

// PeekPatch returns the patch at (x, y), or nil if none.
func (s *Surface) PeekPatch(x, y int) *Patch {
	if c := s.at(x, y); c != nil {
		return c.patch(s.patches.keyAt)
	}
	return nil
}

// PeekSoftWrapMarker returns the soft-wrap marker at (x, y).
func (s *Surface) PeekSoftWrapMarker(x, y int) bool {
	if c := s.at(x, y); c != nil {
		return c.SoftWrap
	}
	return false
}

// SameContents reports deep equality: false if widths/heights differ,
// otherwise comparing every cell field including patches and the soft-wrap
// marker. No Unicode normalization is performed.
func (a *Surface) SameContents(b *Surface) bool {
	if a.width != b.width || a.height != b.height {
		return false
	}
	for i := range a.cells {
		ca, cb := &a.cells[i], &b.cells[i]
		if ca.Width != cb.Width || ca.Continuation != cb.Continuation {
			return false
		}
		if ca.Fg != cb.Fg || ca.Bg != cb.Bg || ca.Deco != cb.Deco || ca.Style != cb.Style {
			return false
		}
		if ca.SoftWrap != cb.SoftWrap {
			return false
		}
		if ca.cluster(a.clusters.keyAt) != cb.cluster(b.clusters.keyAt) {
			return false
		}
		pa, pb := ca.patch(a.patches.keyAt), cb.patch(b.patches.keyAt)
		if !samePatch(pa, pb) {
			return false
		}
	}
	return true
}

// Duplicate returns an independent surface equal to s under SameContents.
func (s *Surface) Duplicate() *Surface {
	d := NewSurface(s.width, s.height)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			d.copyCellFrom(x, y, s, x, y)
		}
	}
	return d
}

// Resize truncates or extends the surface, preserving top-left-aligned
// content. Impossibly large or negative dimensions collapse to 0x0.
func (s *Surface) Resize(w, h int) {
	w, h = sanitizeDims(w, h)

	old := &Surface{width: s.width, height: s.height, cells: s.cells, clusters: s.clusters, patches: s.patches}

	s.width, s.height = w, h
	if w > 0 && h > 0 {
		s.cells = make([]Cell, w*h)
		for i := range s.cells {
			s.cells[i] = blankCell
		}
	} else {
		s.cells = nil
	}
	s.clusters = newInternTable(0)
	s.patches = newInternTable(maxPatchesPerSurface)
	s.clusters.markAll = s.markLiveClusters
	s.patches.markAll = s.markLivePatches

	minW, minH := min(w, old.width), min(h, old.height)
	for y := 0; y < minH; y++ {
		for x := 0; x < minW; x++ {
			s.copyCellFrom(x, y, old, x, y)
		}
	}
}
