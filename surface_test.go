package termsurface

import "testing"

func TestNewSurfaceBlankState(t *testing.T) {
	s := NewSurface(80, 24)
	if s.Width() != 80 || s.Height() != 24 {
		t.Fatalf("dims = %dx%d, want 80x24", s.Width(), s.Height())
	}
	for y := 0; y < 24; y++ {
		for x := 0; x < 80; x++ {
			text, left, right := s.PeekText(x, y)
			if text != erasedCluster || left != x || right != x {
				t.Fatalf("PeekText(%d,%d) = (%q,%d,%d), want erased/%d/%d", x, y, text, left, right, x, x)
			}
			if !s.PeekFg(x, y).IsDefault() || !s.PeekBg(x, y).IsDefault() || !s.PeekDeco(x, y).IsDefault() {
				t.Fatalf("cell (%d,%d) colors not default", x, y)
			}
			if s.PeekStyle(x, y) != 0 {
				t.Fatalf("cell (%d,%d) style != 0", x, y)
			}
			if s.PeekPatch(x, y) != nil {
				t.Fatalf("cell (%d,%d) has a patch", x, y)
			}
			if s.PeekSoftWrapMarker(x, y) {
				t.Fatalf("cell (%d,%d) soft-wrap set", x, y)
			}
		}
	}
}

func TestSurfaceNegativeDimsCollapseToZero(t *testing.T) {
	s := NewSurface(-1, 5)
	if s.Width() != 0 || s.Height() != 0 {
		t.Errorf("dims = %dx%d, want 0x0", s.Width(), s.Height())
	}
}

func TestWriteDoubleWideCluster(t *testing.T) {
	s := NewSurface(80, 24)
	s.Write(3, 3, "あえ", Attr{})

	text, left, right := s.PeekText(3, 3)
	if text != "あ" || left != 3 || right != 4 {
		t.Errorf("PeekText(3,3) = (%q,%d,%d), want (\"あ\",3,4)", text, left, right)
	}
	text, left, right = s.PeekText(4, 3)
	if text != "あ" || left != 3 || right != 4 {
		t.Errorf("PeekText(4,3) = (%q,%d,%d), want (\"あ\",3,4)", text, left, right)
	}
	text, left, right = s.PeekText(5, 3)
	if text != "え" || left != 5 || right != 6 {
		t.Errorf("PeekText(5,3) = (%q,%d,%d), want (\"え\",5,6)", text, left, right)
	}
}

func TestWriteClipsAtRightEdge(t *testing.T) {
	s := NewSurface(80, 24)
	s.Write(75, 3, "Sample", Attr{})

	want := []string{"S", "a", "m", "p", "l"}
	for i, w := range want {
		text, _, _ := s.PeekText(75+i, 3)
		if text != w {
			t.Errorf("PeekText(%d,3) = %q, want %q", 75+i, text, w)
		}
	}
	// column 80 doesn't exist (width 80 -> valid columns 0..79); "e" is clipped away.
	if s.Width() != 80 {
		t.Fatalf("unexpected width %d", s.Width())
	}
}

func TestWriteRoundTripPreservesAttrs(t *testing.T) {
	s := NewSurface(10, 1)
	attr := Attr{Fg: RGB(1, 2, 3), Bg: Named(4), Deco: Indexed(5), Style: StyleBold | StyleUnderline}
	s.Write(2, 0, "Q", attr)

	text, _, _ := s.PeekText(2, 0)
	if text != "Q" {
		t.Errorf("PeekText = %q, want Q", text)
	}
	if s.PeekFg(2, 0) != attr.Fg || s.PeekBg(2, 0) != attr.Bg || s.PeekDeco(2, 0) != attr.Deco {
		t.Errorf("colors not preserved by write/peek")
	}
	if s.PeekStyle(2, 0) != attr.Style {
		t.Errorf("style not preserved by write/peek")
	}
}

func TestWriteResolvesConflictingUnderlineBits(t *testing.T) {
	s := NewSurface(10, 1)
	s.Write(0, 0, "U", Attr{Style: StyleBold | StyleUnderline | StyleCurlyUnderline})

	got := s.PeekStyle(0, 0)
	if !got.Has(StyleBold) || !got.Has(StyleUnderline) {
		t.Fatalf("PeekStyle(0,0) = %b, want bold+single-underline preserved", got)
	}
	if got.Has(StyleCurlyUnderline) {
		t.Errorf("PeekStyle(0,0) = %b, curly underline should lose to single underline", got)
	}

	s.Write(0, 0, "Ａ", Attr{Style: StyleDoubleUnderline | StyleCurlyUnderline}) // double-wide pair path
	master := s.PeekStyle(0, 0)
	cont := s.PeekStyle(1, 0)
	if !master.Has(StyleDoubleUnderline) || master.Has(StyleCurlyUnderline) {
		t.Errorf("master PeekStyle(0,0) = %b, want double underline only", master)
	}
	if !cont.Has(StyleDoubleUnderline) || cont.Has(StyleCurlyUnderline) {
		t.Errorf("continuation PeekStyle(1,0) = %b, want double underline only", cont)
	}
}

func TestWriteDoesNotDisturbNeighboringCells(t *testing.T) {
	s := NewSurface(10, 1)
	s.Write(0, 0, "before", Attr{Fg: RGB(9, 9, 9)})
	s.Write(4, 0, "X", Attr{Fg: RGB(1, 1, 1)})

	text, _, _ := s.PeekText(3, 0)
	if text != "o" {
		t.Errorf("neighboring cell mutated: PeekText(3,0) = %q, want %q", text, "o")
	}
	if s.PeekFg(3, 0) != (RGB(9, 9, 9)) {
		t.Errorf("neighboring cell's color mutated by unrelated write")
	}
}

func TestDoubleWideVanishRule(t *testing.T) {
	s := NewSurface(10, 1)
	s.Write(0, 0, "Ａ", Attr{Fg: RGB(1, 1, 1)}) // fullwidth A, occupies cols 0-1

	s.setSingle(1, 0, "X", Attr{Fg: RGB(2, 2, 2)})

	text, _, _ := s.PeekText(0, 0)
	if text != " " {
		t.Errorf("PeekText(0,0) = %q, want space (vanished partner)", text)
	}
	if s.PeekFg(0, 0) != (RGB(1, 1, 1)) {
		t.Errorf("vanished partner lost the pair's original color")
	}
	text, _, _ = s.PeekText(1, 0)
	if text != "X" {
		t.Errorf("PeekText(1,0) = %q, want X", text)
	}
	if s.PeekFg(1, 0) != (RGB(2, 2, 2)) {
		t.Errorf("overwritten cell did not take the new color")
	}
}

func TestCombiningMarkLeadGetsNBSPPrefix(t *testing.T) {
	s := NewSurface(10, 1)
	s.Write(0, 0, "̀x", Attr{}) // combining grave accent leads

	text, _, _ := s.PeekText(0, 0)
	if len([]rune(text)) == 0 || []rune(text)[0] != 0x00A0 {
		t.Errorf("PeekText(0,0) = %q, want leading U+00A0", text)
	}
}

func TestCopyRectTransitivity(t *testing.T) {
	// copy_rect(S, r, S', dst, ...); copy_rect(S', image-of-r, T, dst, ...)
	// must equal copy_rect(S, r, T, dst, ...): relaying a copied region
	// back out through an intermediate surface reproduces a direct copy.
	src := NewSurface(20, 5)
	src.Write(2, 2, "hello", Attr{Fg: RGB(1, 2, 3)})

	const sx0, sy0, sx1, sy1 = 1, 1, 8, 4
	const dx, dy = 3, 0
	rw, rh := sx1-sx0, sy1-sy0

	mid := NewSurface(20, 5)
	CopyRect(src, sx0, sy0, sx1, sy1, mid, dx, dy, TileNone, TileNone)

	direct := NewSurface(20, 5)
	CopyRect(src, sx0, sy0, sx1, sy1, direct, dx, dy, TileNone, TileNone)

	relayed := NewSurface(20, 5)
	CopyRect(mid, dx, dy, dx+rw, dy+rh, relayed, dx, dy, TileNone, TileNone)

	if !relayed.SameContents(direct) {
		t.Errorf("copy_rect transitivity violated")
	}
}

func TestCopyRectTilePolicies(t *testing.T) {
	// "ＡＢ" spans source columns 20-21 (A) and 22-23 (B). A rect of
	// [21,23) starts on A's continuation column and ends on B's master
	// column, bisecting A on the left edge and B on the right edge; the
	// checks below look at the left edge.
	src := NewSurface(40, 20)
	src.Write(20, 15, "ＡＢ", Attr{Fg: RGB(9, 9, 9)})

	tilePut := NewSurface(40, 20)
	CopyRect(src, 21, 15, 23, 16, tilePut, 5, 15, TilePut, TilePut)
	// TilePut extends the left edge outward by one column to carry the
	// whole bisected glyph across.
	text, left, right := tilePut.PeekText(5, 15)
	if text != "Ａ" || left != 4 || right != 5 {
		t.Errorf("TilePut left edge = (%q,%d,%d), want (\"Ａ\",4,5)", text, left, right)
	}

	noTile := NewSurface(40, 20)
	CopyRect(src, 21, 15, 23, 16, noTile, 5, 15, TileNone, TileNone)
	text, _, _ = noTile.PeekText(5, 15)
	if text != " " {
		t.Errorf("NO_TILE left edge = %q, want a single space", text)
	}
	if noTile.PeekFg(5, 15) != (RGB(9, 9, 9)) {
		t.Errorf("NO_TILE space did not carry the glyph's original color")
	}
}

func TestDuplicateEqualThenMutationBreaksEquality(t *testing.T) {
	s := NewSurface(10, 4)
	s.Write(1, 1, "hi", Attr{Fg: RGB(5, 5, 5)})

	d := s.Duplicate()
	if !s.SameContents(d) {
		t.Fatalf("Duplicate() not SameContents as original")
	}

	d.Write(1, 1, "yo", Attr{})
	if s.SameContents(d) {
		t.Errorf("mutating the duplicate did not break SameContents")
	}
}

func TestResizePreservesTopLeft(t *testing.T) {
	s := NewSurface(10, 10)
	s.Write(0, 0, "hi", Attr{Fg: RGB(7, 7, 7)})

	s.Resize(20, 20)
	if s.Width() != 20 || s.Height() != 20 {
		t.Fatalf("dims after grow = %dx%d, want 20x20", s.Width(), s.Height())
	}
	text, _, _ := s.PeekText(0, 0)
	if text != "h" {
		t.Errorf("top-left content lost on resize: PeekText(0,0) = %q", text)
	}

	s.Resize(1, 1)
	if s.Width() != 1 || s.Height() != 1 {
		t.Fatalf("dims after shrink = %dx%d, want 1x1", s.Width(), s.Height())
	}
	text, _, _ = s.PeekText(0, 0)
	if text != "h" {
		t.Errorf("top-left content lost on shrink: PeekText(0,0) = %q", text)
	}
}

func TestResizeGCStillWorksAfterReplace(t *testing.T) {
	s := NewSurface(5, 5)
	long := "è̀̀̀̀" // one cluster, 11 bytes: over the eight byte inline budget
	s.Write(0, 0, long, Attr{})
	s.Resize(5, 5)
	// markAll must still reference the live surface's own cells, not a
	// stale snapshot, or this GC call would panic or silently misbehave.
	s.GC()
	if s.InternedClusterCount() == 0 {
		t.Errorf("GC reclaimed the still-referenced cluster after resize")
	}
}

func TestSurfaceGCReclaimsOverwrittenCluster(t *testing.T) {
	s := NewSurface(3, 1)
	long := "è̀̀̀̀" // one cluster, 11 bytes: over the eight byte inline budget
	s.Write(0, 0, long, Attr{})
	if s.InternedClusterCount() != 1 {
		t.Fatalf("InternedClusterCount() = %d, want 1", s.InternedClusterCount())
	}
	s.Write(0, 0, "x", Attr{})
	s.GC()
	if s.InternedClusterCount() != 0 {
		t.Errorf("InternedClusterCount() = %d after overwrite+gc, want 0", s.InternedClusterCount())
	}
}
