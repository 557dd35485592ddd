package termsurface

import "testing"

func TestTerminalIdentityString(t *testing.T) {
	id := TerminalIdentity{Class: ClassXterm, SubVersion: 336, SafeCPR: true, SeqCSIGT: true, SeqCSIEQ: true}
	got := id.String()
	want := "Type: xterm(336) safe-CPR seq:>="
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTerminalIdentityStringNoSafeCPR(t *testing.T) {
	// The safe-CPR token is always bracketed by a space on each side, so an
	// absent token (no SafeCPR) leaves a double space before "seq:".
	id := TerminalIdentity{Class: ClassKitty, SubVersion: 130300, SeqCSIGT: true}
	got := id.String()
	want := "Type: kitty(130300)  seq:>"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPackVersionSchemes(t *testing.T) {
	if got := packCalendarVersion(23, 8, 1); got != 230801 {
		t.Errorf("packCalendarVersion(23,8,1) = %d, want 230801", got)
	}
	if got := packSemVer(3, 9, 3); got != 3009003 {
		t.Errorf("packSemVer(3,9,3) = %d, want 3009003", got)
	}
}

func TestClassifyDA2(t *testing.T) {
	tests := []struct {
		pp, pv int
		want   TerminalClass
	}{
		{0, 0, ClassKonsole},
		{1, 0, ClassVTE},
		{24, 0, ClassMlterm},
		{41, 300, ClassXterm},
		{41, 100, ClassUnknown}, // below minPv, no match
		{65, 5500, ClassVTE},
		{65, 100, ClassUnknown},
		{84, 0, ClassTmux},
		{999, 0, ClassUnknown},
	}
	for _, tt := range tests {
		got := ClassifyDA2(tt.pp, tt.pv)
		if got != tt.want {
			t.Errorf("ClassifyDA2(%d,%d) = %v, want %v", tt.pp, tt.pv, got, tt.want)
		}
	}
}

func TestRefineByDCSName(t *testing.T) {
	if got := RefineByDCSName(ClassUnknown, "kitty(0.13.3)"); got != ClassKitty {
		t.Errorf("RefineByDCSName(unknown, kitty...) = %v, want ClassKitty", got)
	}
	if got := RefineByDCSName(ClassXterm, "unrecognized-name"); got != ClassXterm {
		t.Errorf("RefineByDCSName should leave unrecognized names unchanged, got %v", got)
	}
}

func TestClassCapabilitiesCoversEveryClass(t *testing.T) {
	for class, name := range classNames {
		if _, ok := classCapabilities[class]; !ok {
			t.Errorf("classCapabilities has no row for %v (%q)", class, name)
		}
	}
}

func TestUnknownFullFeaturedExcludesOSC50And88Color(t *testing.T) {
	caps := classCapabilities[ClassUnknownFullFeatured]
	if caps.Has(CapCursorShapeOSC50) {
		t.Errorf("ClassUnknownFullFeatured should not carry CapCursorShapeOSC50")
	}
	if caps.Has(Cap88Color) {
		t.Errorf("ClassUnknownFullFeatured should not carry Cap88Color")
	}
	if caps&^(CapCursorShapeOSC50|Cap88Color) != allCapabilities&^(CapCursorShapeOSC50|Cap88Color) {
		t.Errorf("ClassUnknownFullFeatured should otherwise carry every capability")
	}
}

func TestDeriveCapabilitiesXterm336(t *testing.T) {
	id := TerminalIdentity{Class: ClassXterm, SubVersion: 336, SafeCPR: true, SeqCSIGT: true, SeqCSIEQ: true}
	caps := DeriveCapabilities(id, true)

	want := CapCSIPostfixMod | CapMayTryCursorShape | CapTitleRestore |
		CapMayTryCursorShapeBar | CapExtendedCharset | CapTruecolorMaybeSupported |
		CapTruecolorSupported | CapClearedColoring | Cap7BitST | CapMayTryTaggedPaste |
		CapClearedColoringDefColor

	if caps != want {
		t.Errorf("DeriveCapabilities(xterm336) = %b, want %b", caps, want)
	}
}
