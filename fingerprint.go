package termsurface

import (
	"errors"
	"strconv"
	"strings"

	govte "github.com/danielgatis/go-vte"
)

// ErrAutoDetectFailed is returned by Engine.Err once the engine gives up
// reaching the classify state within its input budget (§4.4, §7
// "fingerprinting timeout / ran off").
var ErrAutoDetectFailed = errors.New("termsurface: terminal auto-detect failed")

// The fixed eleven-probe sequence (§4.4), in emission order.
var probeSequence = []string{
	"\x1b[>c",
	"\x1b[>1c",
	"\x1b[>0;1c",
	"\x1b[=c",
	"\x1b[5n",
	"\x1b[6n",
	"\x1b[?6n",
	"\x1b[>q",
	"\x1b[1x",
	"\x1b]4;255;?\x07",
	"\x1bP+q544e\x1b\\",
}

// engineState names the fingerprinting state machine's position (§4.4).
type engineState int

const (
	stateStart engineState = iota
	stateAwaitingReply
	stateClassify
	stateDone
)

// replyEvent is one top-level token the go-vte performer dispatched while
// parsing terminal output during fingerprinting.
type replyEvent struct {
	kind  byte // 'c' CSI, 'o' OSC, 'd' DCS, 'p' print, 'x' execute, 'e' esc
	priv  byte // leading private-marker byte of a CSI or DCS sequence, 0 if none
	final rune
	ints  []byte
	csi   []string // raw semicolon-split CSI parameter fields
	data  []byte   // OSC payload bytes / DCS payload bytes
	b     byte     // raw byte, for print/execute
}

// fingerprintPerformer adapts go-vte's byte-level dispatch into the
// replyEvent stream Engine.processEvents consumes. It never interprets
// semantics itself (that belongs to go-ansicode, the opposite direction) —
// it only records what the wire said (§4.4 "lower-level reply tokenizing").
type fingerprintPerformer struct {
	events  []replyEvent
	dcsKind byte
	dcsPriv byte
	dcsBuf  []byte
}

func (p *fingerprintPerformer) Print(r rune) {
	p.events = append(p.events, replyEvent{kind: 'p', b: byte(r)})
}

func (p *fingerprintPerformer) Execute(b byte) {
	p.events = append(p.events, replyEvent{kind: 'x', b: b})
}

func (p *fingerprintPerformer) CsiDispatch(params []int64, intermediates []byte, ignore bool, c rune) {
	fields := make([]string, len(params))
	for i, v := range params {
		fields[i] = strconv.FormatInt(v, 10)
	}
	var priv byte
	if len(intermediates) > 0 {
		priv = intermediates[0]
	}
	p.events = append(p.events, replyEvent{kind: 'c', priv: priv, final: c, csi: fields, ints: intermediates})
}

func (p *fingerprintPerformer) EscDispatch(intermediates []byte, ignore bool, b byte) {
	p.events = append(p.events, replyEvent{kind: 'e', final: rune(b), ints: intermediates})
}

func (p *fingerprintPerformer) OscDispatch(params [][]byte, bellTerminated bool) {
	var joined []byte
	for i, field := range params {
		if i > 0 {
			joined = append(joined, ';')
		}
		joined = append(joined, field...)
	}
	p.events = append(p.events, replyEvent{kind: 'o', data: joined})
}

func (p *fingerprintPerformer) Hook(params []int64, intermediates []byte, ignore bool, c rune) {
	p.dcsKind = byte(c)
	p.dcsPriv = 0
	if len(intermediates) > 0 {
		p.dcsPriv = intermediates[0]
	}
	p.dcsBuf = p.dcsBuf[:0]
}

func (p *fingerprintPerformer) Put(b byte) {
	p.dcsBuf = append(p.dcsBuf, b)
}

func (p *fingerprintPerformer) Unhook() {
	p.events = append(p.events, replyEvent{kind: 'd', priv: p.dcsPriv, final: rune(p.dcsKind), data: append([]byte(nil), p.dcsBuf...)})
	p.dcsBuf = nil
}

// EngineOption configures an Engine via functional options (ambient-stack
// convention, matching the teacher's constructor style).
type EngineOption func(*Engine)

// WithLogSink routes unrecognized-reply diagnostics to sink instead of
// discarding them (§4.4 "never aborts", §7 "diagnostics sink").
func WithLogSink(sink LogSink) EngineOption {
	return func(e *Engine) { e.log = sink }
}

// WithMaxBytesWithoutProgress bounds how many input bytes the engine will
// consume while stuck in the same probe before declaring auto-detect
// failure (§7 "fingerprinting timeout / ran off"). Default 4096.
func WithMaxBytesWithoutProgress(n int) EngineOption {
	return func(e *Engine) { e.maxStallBytes = n }
}

// Engine drives the fixed eleven-probe fingerprinting sequence against an
// unknown terminal, classifying replies into a TerminalIdentity and
// Capability set (§4.4).
type Engine struct {
	log           LogSink
	maxStallBytes int

	state      engineState
	probeIndex int
	stallBytes int
	failed     bool

	perf   fingerprintPerformer
	parser *govte.Parser

	// accumulated identity signals
	da2Pp, da2Pv, da2Pc int
	haveDA2             bool
	da3Hex              string
	haveDA3             bool
	dcsName             string
	safeCPR             bool
	sawCSIGT            bool
	sawCSIEQ            bool
	sawDSRReply         bool // CSI 5n -> CSI 0n
	sawCPRReply         bool // CSI 6n -> CSI row;col R
	sawColorReply       bool // OSC 4;255;? answered with something other than the TODO sentinel
	oscColorPending     bool // OSC 4;255;? answered with the NetBSD/OpenBSD TODO sentinel (§9)

	glitchColumns []int
	glitchCursor  int

	identity TerminalIdentity
}

// NewEngine creates a fingerprinting Engine ready to emit its first probe.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:           NoopLog{},
		maxStallBytes: 4096,
		state:         stateStart,
	}
	e.parser = govte.NewParser()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextProbe returns the next probe string to write to the terminal and
// advances the state machine into stateAwaitingReply. ok is false once all
// eleven probes have been emitted.
func (e *Engine) NextProbe() (probe string, ok bool) {
	if e.probeIndex >= len(probeSequence) {
		return "", false
	}
	probe = probeSequence[e.probeIndex]
	e.probeIndex++
	e.state = stateAwaitingReply
	e.stallBytes = 0
	return probe, true
}

// Done reports whether classification has completed (successfully or via
// auto-detect failure).
func (e *Engine) Done() bool { return e.state == stateDone }

// Err returns ErrAutoDetectFailed if the engine gave up, else nil.
func (e *Engine) Err() error {
	if e.failed {
		return ErrAutoDetectFailed
	}
	return nil
}

// AddInputData feeds terminal output (reply bytes interleaved with
// unrelated user input) into the engine. It never blocks (§4.4
// concurrency).
func (e *Engine) AddInputData(buf []byte) {
	if e.state == stateDone {
		return
	}
	e.perf.events = e.perf.events[:0]
	for _, b := range buf {
		e.parser.Advance(&e.perf, b)
	}
	e.processEvents()

	e.stallBytes += len(buf)
	if e.state != stateDone && e.stallBytes > e.maxStallBytes {
		e.failed = true
		e.state = stateDone
		e.log.Logf("termsurface: fingerprinting auto-detect failed after %d bytes at probe %d", e.stallBytes, e.probeIndex)
	}
}

func (e *Engine) processEvents() {
	for _, ev := range e.perf.events {
		switch ev.kind {
		case 'c':
			e.classifyCSI(ev)
		case 'o':
			e.classifyOSC(ev)
		case 'd':
			e.classifyDCS(ev)
		case 'p', 'x':
			// A stray printable or control byte outside any recognized
			// reply is junk leaking from the preceding probe (§4.4).
			e.recordGlitch()
		case 'e':
			e.log.Logf("termsurface: unrecognized ESC reply %q during probe %d", ev.final, e.probeIndex)
		}
	}
	if e.probeIndex >= len(probeSequence) && e.state != stateDone {
		e.state = stateClassify
		e.finishClassification()
	}
}

func (e *Engine) recordGlitch() {
	e.glitchColumns = append(e.glitchColumns, e.glitchCursor)
	e.glitchCursor++
}

// classifyCSI dispatches a CSI reply against the probe(s) it could answer
// (§4.4 "Replies must be matched to the last probe whose expected reply
// shape they fit").
func (e *Engine) classifyCSI(ev replyEvent) {
	switch {
	case ev.final == 'c' && ev.priv == '>':
		e.classifyDA2(ev)
	case ev.final == 'c' && ev.priv == '=':
		e.sawCSIEQ = true
	case ev.final == 'n' && len(ev.csi) >= 1 && ev.csi[0] == "0":
		e.sawDSRReply = true
	case ev.final == 'R' && ev.priv == '?':
		e.safeCPR = true
		e.sawCPRReply = true
	case ev.final == 'R':
		e.sawCPRReply = true
	default:
		e.log.Logf("termsurface: unrecognized CSI reply priv=%q final=%q params=%v", ev.priv, ev.final, ev.csi)
	}
}

func (e *Engine) classifyDA2(ev replyEvent) {
	e.sawCSIGT = true
	e.haveDA2 = true
	get := func(i int) int {
		if i >= len(ev.csi) {
			return 0
		}
		n, _ := strconv.Atoi(ev.csi[i])
		return n
	}
	e.da2Pp, e.da2Pv, e.da2Pc = get(0), get(1), get(2)
}

func (e *Engine) classifyOSC(ev replyEvent) {
	s := string(ev.data)
	if strings.HasPrefix(s, "4;255;") {
		if strings.Contains(s, "\x01TODO\x02") {
			// §9: NetBSD/OpenBSD leaves the terminal ST-pending; the
			// engine must not guess a color here.
			e.oscColorPending = true
			return
		}
		e.sawColorReply = true
	}
}

func (e *Engine) classifyDCS(ev replyEvent) {
	switch ev.final {
	case 'r': // DECRPM / cursor-shape style reply to CSI >q
	case '|':
		switch ev.priv {
		case '>': // DCS >| name ; version ST (self-reported name, reply to CSI>q)
			e.dcsName = string(ev.data)
		case '!': // DCS !| hex ST (DA3 unit-ID reply, reply to CSI=c)
			e.da3Hex = string(ev.data)
			e.haveDA3 = true
		default:
			e.log.Logf("termsurface: unrecognized DCS '|' reply priv=%q data=%q", ev.priv, ev.data)
		}
	case 'q': // DCS + q <tag> = <hex> ST, reply to DCS +q 544e ST
		e.dcsName = decodeDCSNameReply(ev.data)
	default:
		e.log.Logf("termsurface: unrecognized DCS reply final=%q data=%q", ev.final, ev.data)
	}
}

// da3NewIDSentinel is the well-known "newly allocated unit ID" DA3 reply
// terminals send to promise they'll be treated as fully-featured
// (original_source/tests/fingerprintingtests.cpp "DA3 new id promise").
const da3NewIDSentinel = "FEFEFEFE"

// decodeDCSNameReply extracts the self-reported name payload from a
// `DCS 1 + r 544e = <hex> ST` style Xterm termcap-query reply.
func decodeDCSNameReply(data []byte) string {
	s := string(data)
	eq := strings.IndexByte(s, '=')
	if eq < 0 {
		return ""
	}
	hexPart := s[eq+1:]
	var b strings.Builder
	for i := 0; i+1 < len(hexPart); i += 2 {
		hi := hexDigit(hexPart[i])
		lo := hexDigit(hexPart[i+1])
		if hi < 0 || lo < 0 {
			break
		}
		b.WriteByte(byte(hi<<4 | lo))
	}
	return b.String()
}

func hexDigit(b byte) int {
	switch {
	case b >= '0' && b <= '9':
		return int(b - '0')
	case b >= 'a' && b <= 'f':
		return int(b-'a') + 10
	case b >= 'A' && b <= 'F':
		return int(b-'A') + 10
	default:
		return -1
	}
}

func (e *Engine) finishClassification() {
	identity := TerminalIdentity{
		SafeCPR:      e.safeCPR,
		SeqCSIGT:     e.sawCSIGT,
		SeqCSIEQ:     e.sawCSIEQ,
		SelfReported: e.dcsName,
	}
	if e.haveDA2 {
		identity.Class = ClassifyDA2(e.da2Pp, e.da2Pv)
		identity.SubVersion = e.da2Pv
	}
	if e.dcsName != "" {
		identity.Class = RefineByDCSName(identity.Class, e.dcsName)
	}
	// DA2 alone can't distinguish xterm from a terminal promising to behave
	// like a fully-featured one under a freshly allocated DA3 unit ID; the
	// DA3 reply disambiguates Pp=61 (§4.4 "61 -> xterm-compatible ... or
	// depending on other signals").
	if e.haveDA2 && e.da2Pp == 61 && e.haveDA3 && strings.EqualFold(e.da3Hex, da3NewIDSentinel) {
		identity.Class = ClassUnknownFullFeatured
	}
	if !e.sawDSRReply {
		e.log.Logf("termsurface: no CSI 5n reply; marking incompatible with input handling")
		identity.Class = ClassIncompatible
		identity.SubVersion = 0
	}
	if !e.sawCPRReply {
		e.log.Logf("termsurface: no CSI 6n reply; marking toodumb")
		identity.Class = ClassTooDumb
		identity.SubVersion = 0
	}
	e.identity = identity
	e.state = stateDone
}

// Identity returns the derived terminal identity. Valid once Done().
func (e *Engine) Identity() TerminalIdentity { return e.identity }

// Capabilities returns the derived capability set. Valid once Done().
func (e *Engine) Capabilities() Capability {
	return DeriveCapabilities(e.identity, e.safeCPR)
}

// NeedsGlitchPatching reports whether any probe produced junk that must be
// overwritten with spaces (§4.4).
func (e *Engine) NeedsGlitchPatching() bool { return len(e.glitchColumns) > 0 }

// GlitchColumns returns the columns junk was observed at, in arrival order.
func (e *Engine) GlitchColumns() []int { return e.glitchColumns }

// GlitchPatchBytes returns the backspace/space sequence that clears every
// glitched column (§4.4 "the engine also emits backspace/space sequences
// to clear glitched columns").
func (e *Engine) GlitchPatchBytes() []byte {
	n := len(e.glitchColumns)
	if n == 0 {
		return nil
	}
	out := make([]byte, 0, n*3)
	for range e.glitchColumns {
		out = append(out, ' ')
	}
	for range e.glitchColumns {
		out = append(out, '\b')
	}
	return out
}

// HasColorReplyPending reports the NetBSD/OpenBSD OSC-255 TODO path (§9):
// the terminal answered with the sentinel and is left ST-pending. Callers
// must not guess a color in this state.
func (e *Engine) HasColorReplyPending() bool { return e.oscColorPending }
