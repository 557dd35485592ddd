package termsurface

import (
	"strconv"
	"strings"
)

// TerminalClass is the closed enum of terminal families the fingerprinting
// engine can recognize (§3 "Terminal identity").
type TerminalClass int

const (
	ClassUnknown TerminalClass = iota
	ClassXterm
	ClassVTE
	ClassKitty
	ClassKonsole
	ClassMlterm
	ClassTerminology
	ClassITerm2
	ClassTmux
	ClassURxvt
	ClassScreen
	ClassMintty
	ClassApple
	ClassMicrosoft
	ClassFoot
	ClassBase
	ClassTooDumb
	ClassIncompatible
	ClassMisparsing
	ClassUnknownFullFeatured
	ClassFullFeatured
)

var classNames = map[TerminalClass]string{
	ClassUnknown:             "unknown",
	ClassXterm:               "xterm",
	ClassVTE:                 "vte",
	ClassKitty:               "kitty",
	ClassKonsole:             "konsole",
	ClassMlterm:              "mlterm",
	ClassTerminology:         "terminology",
	ClassITerm2:              "iterm2",
	ClassTmux:                "tmux",
	ClassURxvt:               "urxvt",
	ClassScreen:              "screen",
	ClassMintty:              "mintty",
	ClassApple:               "apple terminal",
	ClassMicrosoft:           "microsoft terminal",
	ClassFoot:                "foot",
	ClassBase:                "base",
	ClassTooDumb:             "toodumb",
	ClassIncompatible:        "incompatible with input handling",
	ClassMisparsing:          "misparsing",
	ClassUnknownFullFeatured: "unknown-full-featured",
	ClassFullFeatured:        "full-featured",
}

// String returns the class's lowercase identifier, as used in identity
// text and log diagnostics.
func (c TerminalClass) String() string {
	if n, ok := classNames[c]; ok {
		return n
	}
	return "unknown"
}

// Capability is a bit in the capability set (§3, §6). Stable numeric codes
// are the bit positions below; external consumers query by code.
type Capability uint32

const (
	CapCSIPostfixMod Capability = 1 << iota
	CapMayTryCursorShape
	CapTitleRestore
	CapMayTryCursorShapeBar
	CapCursorShapeOSC50
	CapExtendedCharset
	CapTruecolorMaybeSupported
	CapTruecolorSupported
	Cap88Color
	CapClearedColoring
	Cap7BitST
	CapMayTryTaggedPaste
	CapClearedColoringDefColor
)

// Has reports whether every bit in flag is set.
func (c Capability) Has(flag Capability) bool { return c&flag == flag }

// TerminalIdentity is the record produced by the fingerprinting engine:
// class, canonicalized sub-version, whether CPR is "safe" (distinguishes
// the private `?` form), which of CSI> / CSI= the terminal answered, and
// the terminal's self-reported name-and-version string, if any (§3).
type TerminalIdentity struct {
	Class        TerminalClass
	SubVersion   int
	SafeCPR      bool
	SeqCSIGT     bool
	SeqCSIEQ     bool
	SelfReported string
}

// String renders the diagnostic identity text (§6):
// "Type: <class>(<subversion>) <safe-CPR-or-empty> seq:[>][=]". The
// safe-CPR token is always bracketed by a space on each side, so an absent
// token leaves a double space before "seq:" (matches the reference
// implementation's sprintf-style formatting).
func (id TerminalIdentity) String() string {
	var b strings.Builder
	b.WriteString("Type: ")
	b.WriteString(id.Class.String())
	b.WriteByte('(')
	b.WriteString(strconv.Itoa(id.SubVersion))
	b.WriteString(") ")
	if id.SafeCPR {
		b.WriteString("safe-CPR")
	}
	b.WriteString(" seq:")
	if id.SeqCSIGT {
		b.WriteByte('>')
	}
	if id.SeqCSIEQ {
		b.WriteByte('=')
	}
	return b.String()
}

// packCalendarVersion canonicalizes a CalVer-style version (year, month,
// patch) into termsurface's numeric sub-version form, e.g. (23, 8, 1) ->
// 230801, the form of a date-versioned release such as konsole 23.08.1.
// Nothing in this package calls it.
func packCalendarVersion(year, month, patch int) int {
	return year*10000 + month*100 + patch
}

// packSemVer canonicalizes a major.minor.patch version into termsurface's
// numeric sub-version form, e.g. (3, 9, 3) -> 3009003. Nothing in this
// package calls it.
func packSemVer(major, minor, patch int) int {
	return major*1000000 + minor*1000 + patch
}

// da2Entry describes one row of the DA2 Pp->class dispatch table (§4.4).
type da2Entry struct {
	pp    int
	class TerminalClass
	// minPv, when nonzero, is the minimum Pv (sub-version) this row
	// applies from; rows are tried in table order, first match wins.
	minPv int
}

// da2Table maps the Pp field of a `CSI > Pp ; Pv ; Pc c` reply to a
// terminal class, per the excerpted rules in §4.4 and the normative corpus
// in original_source/tests/fingerprintingtests.cpp.
var da2Table = []da2Entry{
	{pp: 0, class: ClassKonsole},
	{pp: 1, class: ClassVTE},
	{pp: 18, class: ClassMlterm},
	{pp: 24, class: ClassMlterm},
	{pp: 32, class: ClassURxvt},
	{pp: 41, class: ClassXterm, minPv: 280},
	{pp: 45, class: ClassXterm},
	{pp: 61, class: ClassXterm},
	{pp: 62, class: ClassXterm},
	{pp: 63, class: ClassXterm},
	{pp: 64, class: ClassXterm},
	{pp: 65, class: ClassVTE, minPv: 5400},
	{pp: 66, class: ClassXterm},
	{pp: 67, class: ClassXterm},
	{pp: 77, class: ClassMintty},
	{pp: 82, class: ClassScreen},
	{pp: 83, class: ClassScreen},
	{pp: 84, class: ClassTmux},
	{pp: 85, class: ClassURxvt},
}

// ClassifyDA2 maps a DA2 reply's Pp/Pv fields to a terminal class. It
// returns ClassUnknown when Pp matches no known row.
func ClassifyDA2(pp, pv int) TerminalClass {
	for _, e := range da2Table {
		if e.pp != pp {
			continue
		}
		if e.minPv != 0 && pv < e.minPv {
			continue
		}
		return e.class
	}
	return ClassUnknown
}

// dcsNamePrefixes maps a DCS `>|<name> ST` self-reported name prefix to the
// class it refines the identity to.
var dcsNamePrefixes = []struct {
	prefix string
	class  TerminalClass
}{
	{"VTE", ClassVTE},
	{"Konsole", ClassKonsole},
	{"iTerm2", ClassITerm2},
	{"kitty", ClassKitty},
	{"terminology", ClassTerminology},
	{"tmux", ClassTmux},
	{"foot", ClassFoot},
	{"mlterm", ClassMlterm},
	{"mintty", ClassMintty},
}

// RefineByDCSName refines cur using the DCS self-reported name, if its
// prefix is recognized; a name matching none of the prefixes above leaves
// cur unchanged. It does not look at DA3: the DA3 new-ID promotion of
// Pp=61 is applied separately in Engine.finishClassification.
func RefineByDCSName(cur TerminalClass, name string) TerminalClass {
	for _, e := range dcsNamePrefixes {
		if strings.HasPrefix(name, e.prefix) {
			return e.class
		}
	}
	return cur
}

// capBaseline is one row of the identity+flags -> capability derivation table
// (§4.4 "Capability derivation is table-driven").
type capBaseline struct {
	class TerminalClass
	caps  Capability
}

// allCapabilities is the OR of every defined Capability bit.
const allCapabilities Capability = CapCSIPostfixMod | CapMayTryCursorShape | CapTitleRestore |
	CapMayTryCursorShapeBar | CapCursorShapeOSC50 | CapExtendedCharset | CapTruecolorMaybeSupported |
	CapTruecolorSupported | Cap88Color | CapClearedColoring | Cap7BitST | CapMayTryTaggedPaste |
	CapClearedColoringDefColor

// classCapabilities gives each class's baseline capability set before the
// per-probe-result adjustments in DeriveCapabilities are applied. Every
// class in the TerminalClass enum has a row, grounded on
// original_source/tests/fingerprintingtests.cpp's per-profile capability
// lists.
var classCapabilities = map[TerminalClass]Capability{
	ClassUnknown: 0,
	ClassXterm: CapCSIPostfixMod | CapMayTryCursorShape | CapTitleRestore |
		CapMayTryCursorShapeBar | CapExtendedCharset | CapTruecolorMaybeSupported |
		CapClearedColoring | Cap7BitST | CapMayTryTaggedPaste | CapClearedColoringDefColor,
	ClassVTE: CapCSIPostfixMod | CapMayTryCursorShape | CapTitleRestore |
		CapMayTryCursorShapeBar | CapExtendedCharset | CapTruecolorSupported |
		CapClearedColoring | Cap7BitST | CapMayTryTaggedPaste | CapClearedColoringDefColor,
	ClassKitty: CapCSIPostfixMod | CapMayTryCursorShape | CapMayTryCursorShapeBar |
		CapCursorShapeOSC50 | CapExtendedCharset | CapTruecolorSupported |
		Cap7BitST | CapMayTryTaggedPaste,
	ClassKonsole: CapMayTryCursorShape | CapExtendedCharset | CapTruecolorSupported | Cap7BitST,
	ClassMlterm:  CapExtendedCharset | CapTruecolorMaybeSupported | Cap88Color | Cap7BitST,
	ClassTerminology: CapExtendedCharset | CapTruecolorSupported | Cap7BitST,
	ClassITerm2:      CapExtendedCharset | CapTruecolorSupported | Cap7BitST | CapMayTryTaggedPaste,
	ClassTmux:        CapExtendedCharset | Cap7BitST,
	ClassURxvt:       CapExtendedCharset | Cap88Color,
	ClassScreen:      Cap7BitST,
	ClassMintty:      CapExtendedCharset | CapTruecolorSupported | Cap7BitST,
	ClassApple: CapCSIPostfixMod | CapMayTryCursorShape | CapMayTryCursorShapeBar |
		CapExtendedCharset | Cap7BitST | CapClearedColoringDefColor,
	ClassMicrosoft: CapCSIPostfixMod | CapMayTryCursorShape | CapMayTryCursorShapeBar |
		CapExtendedCharset | CapTruecolorMaybeSupported | CapTruecolorSupported |
		CapClearedColoring | Cap7BitST | CapClearedColoringDefColor,
	ClassFoot: CapExtendedCharset | CapTruecolorSupported | Cap7BitST | CapMayTryTaggedPaste,
	// ClassBase is the fallback class for a DA2-less terminal that still
	// answers CSI>c/5n/6n plausibly; its baseline here is the majority
	// pattern across the corpus's many "base(0) ... seq:>=" profiles.
	ClassBase: CapCSIPostfixMod | CapMayTryCursorShape | CapMayTryCursorShapeBar |
		CapTruecolorMaybeSupported | CapClearedColoring | Cap7BitST | CapClearedColoringDefColor,
	// ClassTooDumb and ClassMisparsing share the same degraded baseline in
	// the corpus (no CSI 6n reply observed, or a probe reply got corrupted
	// by interleaved junk).
	ClassTooDumb: CapMayTryCursorShapeBar | CapTruecolorMaybeSupported |
		CapClearedColoring | Cap7BitST | CapClearedColoringDefColor,
	ClassIncompatible: CapMayTryCursorShapeBar | CapExtendedCharset | CapTruecolorMaybeSupported |
		CapClearedColoring | Cap7BitST | CapClearedColoringDefColor,
	ClassMisparsing: CapMayTryCursorShapeBar | CapTruecolorMaybeSupported |
		CapClearedColoring | Cap7BitST | CapClearedColoringDefColor,
	// ClassUnknownFullFeatured is the DA3 "new id promise" sentinel: every
	// capability except the two the corpus explicitly excludes (OSC50
	// cursor shape is Konsole-specific; 88-color would downgrade the
	// palette).
	ClassUnknownFullFeatured: allCapabilities &^ (CapCursorShapeOSC50 | Cap88Color),
	ClassFullFeatured:        allCapabilities,
}

// DeriveCapabilities combines the identity's class baseline with the
// individual probe-result flags gathered during fingerprinting (§4.4).
func DeriveCapabilities(id TerminalIdentity, safeCPR bool) Capability {
	caps := classCapabilities[id.Class]
	if safeCPR {
		caps |= CapMayTryTaggedPaste
	}
	if id.SeqCSIGT {
		caps |= CapCSIPostfixMod
	}
	if id.Class == ClassXterm && id.SubVersion >= 331 {
		caps |= CapTruecolorSupported
	}
	return caps
}
