package atomicfile

import (
	"sync"

	"golang.org/x/sys/unix"
)

// fallocFlags mirrors backend/local's preAllocate: try fallocate with
// FALLOC_FL_KEEP_SIZE first, then fall back to also punching holes
// (needed on ZFS, see rclone issue #3066) before giving up and
// treating preallocation as unsupported.
//
// Which flag combination an ENOTSUP rules out is a property of the
// destination filesystem, not of the process: this library can write
// to several filesystems in one process lifetime (unlike a single
// rclone local-backend remote), so the "stop probing" memo is keyed
// per device rather than shared process-wide — otherwise one ENOTSUP
// from, say, a tmpfs destination would permanently disable a flag
// combination that works fine on every other filesystem.
var (
	fallocFlags = [...]uint32{
		unix.FALLOC_FL_KEEP_SIZE,
		unix.FALLOC_FL_KEEP_SIZE | unix.FALLOC_FL_PUNCH_HOLE,
	}
	fallocFlagsMu    sync.Mutex
	fallocFlagsByDev = map[uint64]int{}
)

// preallocate reserves size bytes for fd so the subsequent write-loop
// is less likely to fragment or hit ENOSPC mid-write. Best-effort:
// any failure (including an unsupported filesystem) is swallowed, as
// preallocation is a performance hint and not part of the atomic
// write's correctness contract.
func preallocate(fd int, size int64) {
	if size <= 0 {
		return
	}

	dev, hasDev := fallocDevice(fd)
	start := 0
	if hasDev {
		fallocFlagsMu.Lock()
		start = fallocFlagsByDev[dev]
		fallocFlagsMu.Unlock()
	}

	for index := start; index < len(fallocFlags); index++ {
		err := unix.Fallocate(fd, fallocFlags[index], 0, size)
		if err == unix.ENOTSUP {
			if hasDev {
				fallocFlagsMu.Lock()
				if fallocFlagsByDev[dev] < index+1 {
					fallocFlagsByDev[dev] = index + 1
				}
				fallocFlagsMu.Unlock()
			}
			continue
		}
		return
	}
}

func fallocDevice(fd int) (uint64, bool) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, false
	}
	return uint64(st.Dev), true
}
