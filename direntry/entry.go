// Package direntry implements the reusable sync directory iterator of
// spec §4.F (Entry, DirCursor split from its closer) and the
// depth-first Walk of spec §4.I built on top of it.
//
// Grounded on backend/local/local.go's List, specifically its
// non-Windows branch (Readdirnames, then a per-name Lstat, logging
// and skipping unreadable entries rather than aborting the whole
// listing) generalized from "build rclone DirEntries" into the spec's
// cursor/closer primitive.
package direntry

import (
	"github.com/ncw/gofs/vpath"
	"github.com/ncw/gofs/vstat"
)

// Entry is a single directory listing result: the parent path, a
// validated filename Component, and a kind tag.
type Entry struct {
	Parent vpath.Path
	Name   vpath.Component
	Kind   vstat.Kind
}

// Path returns the full path to this entry.
func (e Entry) Path() vpath.Path {
	return e.Parent.AppendingComponent(e.Name)
}
