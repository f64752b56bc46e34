package vstat

import (
	"syscall"

	"github.com/ncw/gofs/gfserrors"
	"golang.org/x/sys/unix"
)

// DiskUsage reports the space available on the filesystem holding
// path: total, used, and free byte counts.
//
// Grounded on backend/local's About (Fs.About), which reads the same
// three numbers out of statfs(2) for rclone's quota reporting; this
// exposes the underlying query as a standalone Stat operation instead
// of a backend method.
type DiskUsage struct {
	Total int64
	Used  int64
	Free  int64
}

// GetDiskUsage statfs(2)s path and returns its DiskUsage.
func GetDiskUsage(path string) (DiskUsage, error) {
	var s unix.Statfs_t
	if err := unix.Statfs(path, &s); err != nil {
		base := gfserrors.New(scope, KindStatFailed).WithPath(path).WithCause(err)
		if errno, ok := err.(syscall.Errno); ok {
			base = base.WithErrno(errno)
		}
		return DiskUsage{}, base
	}
	bs := int64(s.Bsize)
	total := bs * int64(s.Blocks)
	free := bs * int64(s.Bavail)
	used := bs * (int64(s.Blocks) - int64(s.Bfree))
	return DiskUsage{Total: total, Used: used, Free: free}, nil
}
