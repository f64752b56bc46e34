// Package vstat implements existence and metadata queries over the
// local filesystem: exists/is_file/is_directory/is_symlink (which
// never error, matching spec §4.D) and Get, which follows symlinks
// and surfaces structured errors (GetLstat is its non-following twin).
//
// Grounded on backend/local/local.go's lstat/setMetadata/isRegular:
// the Lstat-vs-Stat choice Fs.lstat makes there is exposed here as two
// exported functions, Get and GetLstat, both returning Info.
package vstat

import (
	"os"
	"syscall"

	"github.com/ncw/gofs/gfserrors"
)

const scope = "vstat"

// Kind tags a filesystem entry's type.
type Kind int

const (
	Regular Kind = iota
	Directory
	SymbolicLink
	Other
)

// Info is the metadata the spec's StatInfo value carries.
type Info struct {
	Size        int64
	Kind        Kind
	Permissions os.FileMode
}

const (
	KindPathNotFound     = "PathNotFound"
	KindPermissionDenied = "PermissionDenied"
	KindStatFailed       = "StatFailed"
)

// Exists reports whether path resolves to anything at all (following
// symlinks). Absence or permission denial both yield false, never an
// error, per spec §4.D.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsFile reports whether path is a regular file.
func IsFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// IsDirectory reports whether path is a directory.
func IsDirectory(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// IsSymlink reports whether path itself (not followed) is a symlink.
func IsSymlink(path string) bool {
	fi, err := os.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}

// Get follows symlinks and returns full StatInfo, failing with
// structured PathNotFound/PermissionDenied/StatFailed errors.
func Get(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, mapStatError(path, err)
	}
	return infoFromFileInfo(fi), nil
}

// GetLstat is Get but does not follow a terminal symlink.
func GetLstat(path string) (Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return Info{}, mapStatError(path, err)
	}
	return infoFromFileInfo(fi), nil
}

func infoFromFileInfo(fi os.FileInfo) Info {
	return Info{
		Size:        fi.Size(),
		Kind:        kindFromMode(fi.Mode()),
		Permissions: fi.Mode().Perm(),
	}
}

func kindFromMode(mode os.FileMode) Kind {
	switch {
	case mode&os.ModeSymlink != 0:
		return SymbolicLink
	case mode.IsDir():
		return Directory
	case mode.IsRegular():
		return Regular
	default:
		return Other
	}
}

func mapStatError(path string, err error) error {
	base := gfserrors.New(scope, kindForStatErr(err)).WithPath(path).WithCause(err)
	var errno syscall.Errno
	if e, ok := err.(*os.PathError); ok {
		if en, ok := e.Err.(syscall.Errno); ok {
			errno = en
		}
	}
	if errno != 0 {
		return base.WithErrno(errno)
	}
	return base
}

func kindForStatErr(err error) string {
	switch {
	case os.IsNotExist(err):
		return KindPathNotFound
	case os.IsPermission(err):
		return KindPermissionDenied
	default:
		return KindStatFailed
	}
}
