package rescue

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// LogSink mirrors the fingerprinting engine's diagnostic sink contract, so
// callers can wire both to the same backend.
type LogSink interface {
	Logf(format string, args ...any)
}

// NoopLog discards every message.
type NoopLog struct{}

// Logf implements LogSink.
func (NoopLog) Logf(string, ...any) {}

// ErrRescueUnavailable is returned by Start when the shared region or the
// child process could not be set up; the caller is expected to continue
// operating without crash-recovery (§7 "rescue region unavailable").
var ErrRescueUnavailable = fmt.Errorf("rescue: unavailable")

// Option configures a Session via functional options.
type Option func(*config)

type config struct {
	binaryPath      string
	fallbackRestore string
	log             LogSink
}

// WithBinaryPath overrides the rescue child executable path. Defaults to
// "ttyrescue" resolved via exec.LookPath.
func WithBinaryPath(path string) Option {
	return func(c *config) { c.binaryPath = path }
}

// WithFallbackRestore sets TTYRESCUE_RESTORE, the string the child falls
// back to if the shared region cannot be mapped.
func WithFallbackRestore(s string) Option {
	return func(c *config) { c.fallbackRestore = s }
}

// WithLogSink routes Session diagnostics to sink.
func WithLogSink(sink LogSink) Option {
	return func(c *config) { c.log = sink }
}

// Session is a running rescue child process plus its shared region.
type Session struct {
	region   *Region
	cmd      *exec.Cmd
	cancelFd *os.File
	log      LogSink
}

// Start maps a fresh rescue region, launches the rescue child, and hands
// it the region via fd-passing (§6 "TTYRESCUE_SHMFD"). The child inherits
// a non-blocking pipe on fd 0 that Stop later writes a cancellation
// sentinel to (§4.5 "Cancellation").
func Start(opts ...Option) (*Session, error) {
	cfg := config{binaryPath: "ttyrescue", log: NoopLog{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	size := RegionSize()
	shmFd, err := unix.MemfdCreate("termsurface-rescue", 0)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %v", ErrRescueUnavailable, err)
	}
	shmFile := os.NewFile(uintptr(shmFd), "termsurface-rescue-shm")
	if err := shmFile.Truncate(int64(size)); err != nil {
		shmFile.Close()
		return nil, fmt.Errorf("%w: truncate shm: %v", ErrRescueUnavailable, err)
	}
	mem, err := unix.Mmap(int(shmFile.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		shmFile.Close()
		return nil, fmt.Errorf("%w: mmap: %v", ErrRescueUnavailable, err)
	}
	region := NewRegion(mem)

	pipeR, pipeW, err := os.Pipe()
	if err != nil {
		unix.Munmap(mem)
		shmFile.Close()
		return nil, fmt.Errorf("%w: pipe: %v", ErrRescueUnavailable, err)
	}
	if err := unix.SetNonblock(int(pipeR.Fd()), true); err != nil {
		cfg.log.Logf("rescue: set pipe nonblocking failed: %v", err)
	}

	binPath, err := exec.LookPath(cfg.binaryPath)
	if err != nil {
		binPath = cfg.binaryPath // let exec fail with a clearer error below
	}

	cmd := exec.Command(binPath)
	cmd.Stdin = pipeR
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{shmFile}
	cmd.Env = append(os.Environ(),
		"TTYRESCUE_SHMFD=1",
		"TTYRESCUE_RESTORE="+cfg.fallbackRestore,
	)

	if err := cmd.Start(); err != nil {
		pipeR.Close()
		pipeW.Close()
		unix.Munmap(mem)
		shmFile.Close()
		return nil, fmt.Errorf("%w: start child: %v", ErrRescueUnavailable, err)
	}
	pipeR.Close() // the child owns this end now

	return &Session{region: region, cmd: cmd, cancelFd: pipeW, log: cfg.log}, nil
}

// PublishRestore writes restore as the current crash-recovery string.
func (s *Session) PublishRestore(restore string) {
	s.region.WriteRestoreString(restore)
}

// PublishTermios snapshots the current terminal mode for fd into the
// shared region, so the child can restore it on crash.
func (s *Session) PublishTermios(fd int) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}
	s.region.WriteTermios(t)
	return nil
}

// MakeRaw puts fd into raw mode via golang.org/x/term, publishes the
// pre-raw termios snapshot to the rescue region so the child can restore
// it on crash, and returns the prior state for the caller's own
// (non-crash) restore path.
func (s *Session) MakeRaw(fd int) (*term.State, error) {
	if err := s.PublishTermios(fd); err != nil {
		return nil, err
	}
	return term.MakeRaw(fd)
}

// Stop sends the cancellation sentinel and waits for the child to exit
// cleanly (§4.5 "a single sentinel byte on the pipe").
func (s *Session) Stop() error {
	if s.cancelFd != nil {
		_, werr := s.cancelFd.Write([]byte{0x00})
		if werr != nil {
			s.log.Logf("rescue: write cancellation sentinel failed: %v", werr)
		}
		s.cancelFd.Close()
		s.cancelFd = nil
	}
	return s.cmd.Wait()
}
