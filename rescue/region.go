// Package rescue manages the shared-memory rescue region and the crash-
// recovery co-process that restores terminal state if the host process
// dies without cleaning up (§4.5).
package rescue

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Region is the layout of the shared-memory header plus the restore-string
// payload area. Header fields are accessed with atomic loads/fetch-ors so
// the parent and child can coordinate without a lock (§4.5 "Shared
// resources").
//
// Layout (all offsets in bytes):
//
//	0   active  uint32  atomic; byte length of the valid restore string
//	4   flags   uint32  atomic; bit 0 = TermiosSet
//	8   termios unix.Termios (raw, platform-native layout)
//	8+N restore [restoreCapacity]byte
type Region struct {
	mem []byte
}

// FlagTermiosSet marks that the termios snapshot fields have been written
// by the parent and are safe for the child to read (§4.5 "happens-before
// via the atomic").
const FlagTermiosSet uint32 = 1 << 0

const restoreCapacity = 4096

var termiosSize = int(unsafe.Sizeof(unix.Termios{}))

const (
	offActive = 0
	offFlags  = 4
	offTermios = 8
)

func offRestore() int { return offTermios + termiosSize }

// RegionSize is the total number of bytes the rescue region occupies.
func RegionSize() int { return offRestore() + restoreCapacity }

// NewRegion wraps an already-mapped shared memory segment of at least
// RegionSize() bytes.
func NewRegion(mem []byte) *Region {
	if len(mem) < RegionSize() {
		panic("rescue: region buffer too small")
	}
	return &Region{mem: mem}
}

func (r *Region) u32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&r.mem[off]))
}

// SetActive atomically stores the length of the currently-valid restore
// string.
func (r *Region) SetActive(n uint32) {
	atomic.StoreUint32(r.u32(offActive), n)
}

// Active atomically loads the currently-valid restore string length.
func (r *Region) Active() uint32 {
	return atomic.LoadUint32(r.u32(offActive))
}

// SetFlag atomically ORs flag into the flags word.
func (r *Region) SetFlag(flag uint32) {
	for {
		old := atomic.LoadUint32(r.u32(offFlags))
		if atomic.CompareAndSwapUint32(r.u32(offFlags), old, old|flag) {
			return
		}
	}
}

// Flags atomically loads the flags word.
func (r *Region) Flags() uint32 {
	return atomic.LoadUint32(r.u32(offFlags))
}

// WriteTermios copies t into the shared termios snapshot and then sets
// FlagTermiosSet, publishing it to the child.
func (r *Region) WriteTermios(t *unix.Termios) {
	dst := (*unix.Termios)(unsafe.Pointer(&r.mem[offTermios]))
	*dst = *t
	r.SetFlag(FlagTermiosSet)
}

// ReadTermios returns the shared termios snapshot and true, if
// FlagTermiosSet has been observed; otherwise ok is false.
func (r *Region) ReadTermios() (t unix.Termios, ok bool) {
	if r.Flags()&FlagTermiosSet == 0 {
		return unix.Termios{}, false
	}
	src := (*unix.Termios)(unsafe.Pointer(&r.mem[offTermios]))
	return *src, true
}

// WriteRestoreString stores s (truncated to restoreCapacity) in the
// region's payload area and publishes its length via SetActive.
func (r *Region) WriteRestoreString(s string) {
	area := r.mem[offRestore() : offRestore()+restoreCapacity]
	n := copy(area, s)
	r.SetActive(uint32(n))
}

// ReadRestoreString returns the currently-published restore string.
func (r *Region) ReadRestoreString() string {
	n := r.Active()
	if int(n) > restoreCapacity {
		n = restoreCapacity
	}
	area := r.mem[offRestore() : offRestore()+restoreCapacity]
	return string(area[:n])
}
