package termsurface

import "io"

// WriteSink names the writer a host sends probe bytes to, typically the file
// descriptor connected to the terminal. The fingerprinting engine does not
// hold or write to one: Engine.NextProbe returns each probe and the caller
// writes it.
type WriteSink = io.Writer

// LogSink receives diagnostics (§7 "Diagnostics sink"). The fingerprinting
// engine never writes diagnostics to the terminal's output sink; it writes
// to this collaborator instead.
type LogSink interface {
	Logf(format string, args ...any)
}

// NoopLog discards all diagnostics.
type NoopLog struct{}

// Logf implements LogSink by doing nothing.
func (NoopLog) Logf(format string, args ...any) {}
