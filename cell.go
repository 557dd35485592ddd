package termsurface

// erasedCluster is the reserved marker for a cell that has been cleared but
// whose other cell-level attributes are preserved (§3 "Erased sentinel").
const erasedCluster = ""

// clusterInlineCap is the inline budget (in bytes) below which a grapheme
// cluster is stored directly in the Cell instead of being interned (§3
// Surface: "intern table for clusters longer than a small inline budget
// (<= 8 bytes)").
const clusterInlineCap = 8

// clusterInternMarker is the sentinel clusterLen value meaning "this cell's
// cluster lives in the owning Surface's intern table; consult
// clusterHandle", distinguishing it from any real inline length (0-8).
const clusterInternMarker = 0xFF

// Cell is the unit occupying one column on one row. A double-width glyph
// occupies two physically adjacent cells: a left (master) cell holding the
// cluster and a right cell marked Continuation. A continuation cell only
// ever exists immediately to the right of its master.
type Cell struct {
	clusterInline [clusterInlineCap]byte
	clusterLen    uint8
	clusterHandle handle

	Fg, Bg, Deco Color
	Style        Style

	patchHandle handle

	SoftWrap     bool
	Width        uint8 // 1 or 2
	Continuation bool
}

// blankCell is the zero-state every cleared cell resets to: the erased
// sentinel cluster, default colors, no style, width 1.
var blankCell = Cell{Width: 1}

// setCluster stores text as this cell's cluster, inlining it when it fits
// the inline budget and otherwise interning it via ensure. A cluster that
// cannot be interned falls back to the erased sentinel.
func (c *Cell) setCluster(text string, ensure func(string) handle) {
	if text == erasedCluster {
		c.clusterLen = 0
		c.clusterHandle = nullHandle
		return
	}
	if len(text) <= clusterInlineCap {
		c.clusterLen = uint8(len(text))
		copy(c.clusterInline[:], text)
		c.clusterHandle = nullHandle
		return
	}
	h := ensure(text)
	if h == nullHandle {
		c.clusterLen = 0
		c.clusterHandle = nullHandle
		return
	}
	c.clusterLen = clusterInternMarker
	c.clusterHandle = h
}

// cluster resolves this cell's cluster text, consulting lookup for
// interned entries.
func (c *Cell) cluster(lookup func(handle) string) string {
	switch c.clusterLen {
	case 0:
		return erasedCluster
	case clusterInternMarker:
		return lookup(c.clusterHandle)
	default:
		return string(c.clusterInline[:c.clusterLen])
	}
}

// setPatch stores p as this cell's patch, interning its (setup, cleanup,
// optimize) triple via ensure. A nil p clears the patch. Capacity
// exhaustion degrades to "no patch" (§4.2).
func (c *Cell) setPatch(p *Patch, ensure func(string) handle) {
	if p == nil {
		c.patchHandle = nullHandle
		return
	}
	c.patchHandle = ensure(patchKey(*p))
}

func patchKey(p Patch) string {
	opt := byte('0')
	if p.Optimize {
		opt = '1'
	}
	return string(opt) + p.Setup + "\x00" + p.Cleanup
}

func unpackPatchKey(key string) Patch {
	if key == "" {
		return Patch{}
	}
	optimize := key[0] == '1'
	rest := key[1:]
	for i := range rest {
		if rest[i] == 0 {
			return Patch{Setup: rest[:i], Cleanup: rest[i+1:], Optimize: optimize}
		}
	}
	return Patch{Setup: rest, Optimize: optimize}
}

// patch resolves this cell's patch, consulting lookup for the interned
// key. Returns nil when no patch is set.
func (c *Cell) patch(lookup func(handle) string) *Patch {
	if c.patchHandle == nullHandle {
		return nil
	}
	p := unpackPatchKey(lookup(c.patchHandle))
	return &p
}

// reset clears a cell back to blankCell.
func (c *Cell) reset() {
	*c = blankCell
}
