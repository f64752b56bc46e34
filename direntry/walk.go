package direntry

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/ncw/gofs/vstat"
)

var walkLog = logrus.WithField("pkg", "direntry")

// WalkOptions controls the depth-first traversal performed by Walk.
type WalkOptions struct {
	// MaxDepth bounds recursion; 0 means the starting directory only,
	// a negative value means unbounded. Matches spec §4.I.
	MaxDepth int
	// FollowSymlinks descends into directory symlinks instead of
	// reporting them as leaf entries.
	FollowSymlinks bool
	// SkipHidden excludes entries (and their subtrees) whose name
	// begins with ".".
	SkipHidden bool
}

// DefaultWalkOptions returns MaxDepth -1 (unbounded), FollowSymlinks
// false, SkipHidden false.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{MaxDepth: -1, FollowSymlinks: false, SkipHidden: false}
}

// WalkEntry pairs an Entry with the depth it was found at relative to
// the Walk root (the root's direct children are depth 0).
type WalkEntry struct {
	Entry
	Depth int
}

// Walk performs a depth-first traversal of root, invoking visit for
// every entry encountered. Entries that are directories are visited
// before their children are descended into.
//
// Per-entry failures (an unreadable subdirectory, a broken symlink) do
// not abort the walk: they are logged and accumulated into the
// returned error as a *multierror.Error, mirroring backend/local's
// List, which logs and skips unreadable entries rather than failing
// an entire directory listing.
func Walk(root string, opts WalkOptions, visit func(WalkEntry) error) error {
	var errs *multierror.Error
	walk(root, 0, opts, visit, &errs)
	return errs.ErrorOrNil()
}

func walk(dir string, depth int, opts WalkOptions, visit func(WalkEntry) error, errs **multierror.Error) {
	cursor, closer, err := MakeIterator(dir)
	if err != nil {
		*errs = multierror.Append(*errs, err)
		walkLog.WithField("dir", dir).WithError(err).Warn("failed to open directory")
		return
	}
	defer closer.Close()

	for {
		entry, ok := cursor.Next()
		if !ok {
			break
		}

		if opts.SkipHidden && strings.HasPrefix(entry.Name.String(), ".") {
			continue
		}

		kind := entry.Kind
		entryPath := entry.Path()

		if kind == vstat.SymbolicLink && opts.FollowSymlinks {
			if info, statErr := vstat.Get(entryPath.String()); statErr == nil {
				kind = info.Kind
			} else {
				*errs = multierror.Append(*errs, statErr)
				walkLog.WithField("path", entryPath.String()).WithError(statErr).Warn("failed to resolve symlink target")
			}
		}

		we := WalkEntry{Entry: Entry{Parent: entry.Parent, Name: entry.Name, Kind: kind}, Depth: depth}
		if err := visit(we); err != nil {
			*errs = multierror.Append(*errs, err)
		}

		if kind != vstat.Directory {
			continue
		}
		if opts.MaxDepth >= 0 && depth >= opts.MaxDepth {
			continue
		}
		walk(entryPath.String(), depth+1, opts, visit, errs)
	}

	if err := cursor.LastError(); err != nil {
		*errs = multierror.Append(*errs, err)
		walkLog.WithField("dir", dir).WithError(err).Warn("directory read truncated by error")
	}
}
