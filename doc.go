// Package termsurface provides the core building blocks for writing
// terminal user interfaces: a terminal-response fingerprinting engine, an
// in-memory cell-grid surface model, and (in the rescue subpackage) a
// crash-safe terminal-state rescue co-process.
//
// # Fingerprinting
//
// [Engine] drives an unknown terminal through a fixed sequence of probe
// escape sequences and classifies the replies into a [TerminalIdentity]
// and [Capability] set, without relying on $TERM:
//
//	e := termsurface.NewEngine()
//	for {
//		probe, ok := e.NextProbe()
//		if !ok {
//			break
//		}
//		ptyWriter.WriteString(probe)
//	}
//	// feed bytes read back from the pty as they arrive
//	e.AddInputData(buf)
//	if e.Done() {
//		if err := e.Err(); err != nil {
//			// auto-detection stalled; fall back to a conservative profile
//		}
//		id := e.Identity()
//		caps := e.Capabilities()
//	}
//
// Some terminals leak stray bytes from a probe onto the screen; check
// [Engine.NeedsGlitchPatching] and write [Engine.GlitchPatchBytes] at the
// affected columns to erase them.
//
// # Surface
//
// [Surface] is a 2D grid of [Cell] values: Unicode grapheme clusters (with
// double-width and zero-width handling), foreground/background/underline
// colors, a [Style] bitset, and an optional hyperlink-style [Patch]
// decoration. Short clusters are stored inline in the cell; longer ones are
// interned so repeated runs (the common case for solid fills and repeated
// styling) share storage:
//
//	s := termsurface.NewSurface(80, 24)
//	s.Write(0, 0, "hello", termsurface.Attr{
//		Fg:    termsurface.RGB(0, 255, 0),
//		Style: termsurface.StyleBold,
//	})
//	text, left, right := s.PeekText(0, 0) // "h", 0, 0
//
// [CopyRect] relays rectangular regions between surfaces (e.g. scrollback
// playback, split-pane composition), with a tiling policy for glyphs that
// straddle the copied rectangle's edges. [Surface.GC] reclaims interned
// clusters no longer referenced by any cell; call it periodically rather
// than after every write.
//
// # Rescue
//
// The rescue subpackage runs a small co-process that holds a shared-memory
// snapshot of the terminal's termios state and the deferred restore string,
// and replays it if the parent process dies without cleaning up:
//
//	sess, err := rescue.Start(rescue.WithFallbackRestore("\x1b[?25h\x1b[0m"))
//	if err != nil {
//		// rescue unavailable; continue without crash protection
//	}
//	defer sess.Stop()
//	oldState, err := sess.MakeRaw(int(os.Stdin.Fd()))
//
// See the rescue package for the shared-memory layout, and the
// cmd/ttyrescue command for the preconditions its child binary enforces.
package termsurface
