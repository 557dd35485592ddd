// Command ttyrescue is the rescue co-process: it watches its parent via a
// pipe on fd 0 and, if that pipe closes without first seeing the
// cancellation sentinel, restores the controlling terminal's mode and
// prints the parent's crash-recovery string to fd 2 (§4.5, §6, §7).
//
// On the crash path it writes through raw syscalls rather than os.File. It
// still allocates there: the restore string is copied out of the region
// and into a new buffer for its NUL terminator.
package main

import (
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"

	"github.com/hollowterm/termsurface/rescue"
)

const (
	fdPipe   = 0
	fdStdout = 1
	fdStderr = 2
	fdShm    = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	if !checkPreconditions() {
		return 1
	}

	var region *rescue.Region
	if os.Getenv("TTYRESCUE_SHMFD") != "" {
		mem, err := unix.Mmap(fdShm, 0, rescue.RegionSize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			os.Stderr.WriteString("ttyrescue: mmap failed\n")
			return 1
		}
		region = rescue.NewRegion(mem)
	} else if id := os.Getenv("TTYRESCUE_SYSVSHMID"); id != "" {
		shmid, err := strconv.Atoi(id)
		if err != nil {
			return 1
		}
		addr, err := unix.SysvShmAttach(shmid, 0, 0)
		if err != nil {
			os.Stderr.WriteString("ttyrescue: shmat failed\n")
			return 1
		}
		region = rescue.NewRegion(addr)
	}

	if err := unix.SetNonblock(fdPipe, true); err != nil {
		os.Stderr.WriteString("ttyrescue: set pipe nonblocking failed\n")
	}

	buf := make([]byte, 256)
	fds := []unix.PollFd{{Fd: fdPipe, Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			break
		}
		if n == 0 {
			continue
		}
		revents := fds[0].Revents
		if revents&unix.POLLIN != 0 {
			nread, err := unix.Read(fdPipe, buf)
			if nread > 0 {
				for _, b := range buf[:nread] {
					if b == 0x00 {
						return 0
					}
				}
				continue
			}
			if nread == 0 || err != nil {
				break // EOF or read error: parent is gone
			}
		}
		if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			break
		}
	}

	return crashRestore(region)
}

// checkPreconditions enforces §6: fd 0 must be a non-tty pipe, fd 1 must
// be closed.
func checkPreconditions() bool {
	if isatty.IsTerminal(fdPipe) || isatty.IsCygwinTerminal(fdPipe) {
		return false
	}
	var st unix.Stat_t
	if err := unix.Fstat(fdPipe, &st); err != nil || st.Mode&unix.S_IFMT != unix.S_IFIFO {
		return false
	}
	if _, err := unix.IoctlGetTermios(fdStdout, unix.TCGETS); err != unix.EBADF {
		return false
	}
	return true
}

// crashRestore implements the §8 testable property: write the active
// restore string (null-terminated) to fd 2, then restore termios iff
// TERMIOS_SET and tcgetpgrp(2) == getpgrp().
func crashRestore(region *rescue.Region) int {
	restore := fallbackRestore()
	if region != nil {
		if s := region.ReadRestoreString(); s != "" {
			restore = s
		}
	}
	writeCString(fdStderr, restore)

	if region == nil {
		return 0
	}
	t, ok := region.ReadTermios()
	if !ok {
		return 0
	}
	pgrp, err := unix.IoctlGetInt(fdStderr, unix.TIOCGPGRP)
	if err != nil {
		return 0
	}
	mypgrp := unix.Getpgrp()
	if pgrp != mypgrp {
		return 0
	}
	if err := unix.IoctlSetTermios(fdStderr, unix.TCSETS, &t); err != nil {
		os.Stderr.WriteString("ttyrescue: termios restore failed\n")
	}
	return 0
}

func fallbackRestore() string {
	return os.Getenv("TTYRESCUE_RESTORE")
}

// writeCString writes s followed by a NUL byte in one raw write syscall,
// bypassing os.File. It copies s into a new buffer to append the NUL.
func writeCString(fd int, s string) {
	b := append([]byte(s), 0)
	unix.Write(fd, b)
}
