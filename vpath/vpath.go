// Package vpath implements the validated, immutable path value the
// spec calls Path/Component: a byte string that is never empty, never
// contains a NUL or control character, and keeps its original
// separator structure rather than normalising it.
//
// Generalized from the ad hoc path-string handling rclone's local
// backend does inline (cleanRootPath, localPath, cleanRemote in
// backend/local/local.go) into a standalone validated value type.
package vpath

import (
	"strings"

	"github.com/ncw/gofs/gfserrors"
)

const scope = "vpath"

const separator = '/'

// Kind tokens for gfserrors.Error.Kind.
const (
	KindEmpty                  = "Empty"
	KindContainsControlChars   = "ContainsControlCharacters"
	KindComponentEmpty         = "ComponentEmpty"
	KindComponentHasSeparator  = "ComponentContainsPathSeparator"
	KindComponentControlChars  = "ComponentContainsControlCharacters"
)

// Path is an immutable, validated filesystem path.
type Path struct {
	s string
}

// Component is a single, validated path segment: non-empty, no
// separator, no control characters.
type Component struct {
	s string
}

// New validates and constructs a Path from a string.
func New(s string) (Path, error) {
	if len(s) == 0 {
		return Path{}, gfserrors.New(scope, KindEmpty)
	}
	if err := scanControlChars(s, scope, KindContainsControlChars); err != nil {
		return Path{}, err
	}
	return Path{s: s}, nil
}

// MustNew is New but panics on invalid input; useful in tests and
// constant-path call sites.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

// NewComponent validates and constructs a single path Component.
func NewComponent(s string) (Component, error) {
	if len(s) == 0 {
		return Component{}, gfserrors.New(scope, KindComponentEmpty)
	}
	if strings.ContainsRune(s, separator) {
		return Component{}, gfserrors.New(scope, KindComponentHasSeparator)
	}
	if err := scanControlChars(s, scope, KindComponentControlChars); err != nil {
		return Component{}, err
	}
	return Component{s: s}, nil
}

func scanControlChars(s, scope, kind string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 {
			return gfserrors.New(scope, kind)
		}
	}
	return nil
}

// String returns the canonical string representation.
func (p Path) String() string { return p.s }

// String returns the component's text.
func (c Component) String() string { return c.s }

// IsAbsolute reports whether the path begins with the separator.
func (p Path) IsAbsolute() bool {
	return len(p.s) > 0 && p.s[0] == separator
}

// Equal reports byte-identical equality on the canonical string form.
func (p Path) Equal(other Path) bool { return p.s == other.s }

// Components returns the ordered, non-empty named segments of the
// path, excluding the root.
func (p Path) Components() []Component {
	parts := strings.Split(p.s, string(separator))
	out := make([]Component, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		out = append(out, Component{s: part})
	}
	return out
}

// LastComponent returns the final named segment, or the zero
// Component and false if the path has none (i.e. it is just "/").
func (p Path) LastComponent() (Component, bool) {
	comps := p.Components()
	if len(comps) == 0 {
		return Component{}, false
	}
	return comps[len(comps)-1], true
}

// Parent returns the path truncated to one fewer component. It
// returns false if p is a root path with no parent (a bare "/" or a
// single relative component).
func (p Path) Parent() (Path, bool) {
	comps := p.Components()
	if len(comps) == 0 {
		return Path{}, false
	}
	if len(comps) == 1 {
		if p.IsAbsolute() {
			return Path{s: "/"}, true
		}
		return Path{}, false
	}
	parent := joinComponents(p.IsAbsolute(), comps[:len(comps)-1])
	return Path{s: parent}, true
}

func joinComponents(absolute bool, comps []Component) string {
	names := make([]string, len(comps))
	for i, c := range comps {
		names[i] = c.s
	}
	joined := strings.Join(names, string(separator))
	if absolute {
		return string(separator) + joined
	}
	return joined
}

// Extension returns the substring of the last component after the
// rightmost '.' that is not at position 0, or false if there is none.
func (c Component) Extension() (string, bool) {
	idx := strings.LastIndexByte(c.s, '.')
	if idx <= 0 {
		return "", false
	}
	return c.s[idx+1:], true
}

// Extension returns the path's last component's extension.
func (p Path) Extension() (string, bool) {
	last, ok := p.LastComponent()
	if !ok {
		return "", false
	}
	return last.Extension()
}

// Stem returns the last component minus its extension (and the dot),
// or the whole last component if it has none.
func (c Component) Stem() string {
	ext, ok := c.Extension()
	if !ok {
		return c.s
	}
	return c.s[:len(c.s)-len(ext)-1]
}

// Stem returns the path's last component's stem.
func (p Path) Stem() (string, bool) {
	last, ok := p.LastComponent()
	if !ok {
		return "", false
	}
	return last.Stem(), true
}

// Appending returns a new Path with the component or relative path
// appended.
func (p Path) Appending(rel Path) Path {
	base := strings.TrimSuffix(p.s, string(separator))
	suffix := strings.TrimPrefix(rel.s, string(separator))
	if suffix == "" {
		return p
	}
	if base == "" || base == string(separator) {
		if p.IsAbsolute() {
			return Path{s: string(separator) + suffix}
		}
		return Path{s: suffix}
	}
	return Path{s: base + string(separator) + suffix}
}

// AppendingComponent appends a single validated Component.
func (p Path) AppendingComponent(c Component) Path {
	rel := Path{s: c.s}
	return p.Appending(rel)
}

// HasPrefix reports whether other's component sequence is a
// (possibly equal) prefix of p's, and both share the same
// absolute/relative-ness.
func (p Path) HasPrefix(other Path) bool {
	if p.IsAbsolute() != other.IsAbsolute() {
		return false
	}
	pc, oc := p.Components(), other.Components()
	if len(oc) > len(pc) {
		return false
	}
	for i, c := range oc {
		if c.s != pc[i].s {
			return false
		}
	}
	return true
}

// RelativeTo returns the path composed of the remaining components
// after base, or false if base is not a strict prefix of p (or is
// equal to it).
func (p Path) RelativeTo(base Path) (Path, bool) {
	if !p.HasPrefix(base) {
		return Path{}, false
	}
	pc, bc := p.Components(), base.Components()
	if len(pc) == len(bc) {
		return Path{}, false
	}
	rel := joinComponents(false, pc[len(bc):])
	return Path{s: rel}, true
}

// WithExtension returns a copy of p whose last component's extension
// is replaced (or added) to ext.
func (p Path) WithExtension(ext string) (Path, bool) {
	parent, hasParent := p.Parent()
	last, ok := p.LastComponent()
	if !ok {
		return Path{}, false
	}
	newName := last.Stem() + "." + ext
	nc, err := NewComponent(newName)
	if err != nil {
		return Path{}, false
	}
	if !hasParent {
		if p.IsAbsolute() {
			return Path{s: string(separator) + nc.s}, true
		}
		return Path{s: nc.s}, true
	}
	return parent.AppendingComponent(nc), true
}

// RemovingExtension strips the last component's extension, if any.
func (p Path) RemovingExtension() Path {
	stem, ok := p.Stem()
	if !ok {
		return p
	}
	parent, hasParent := p.Parent()
	nc, err := NewComponent(stem)
	if err != nil {
		return p
	}
	if !hasParent {
		if p.IsAbsolute() {
			return Path{s: string(separator) + stem}
		}
		return Path{s: stem}
	}
	return parent.AppendingComponent(nc)
}

// WithLastComponent replaces the final component with name.
func (p Path) WithLastComponent(name string) (Path, bool) {
	nc, err := NewComponent(name)
	if err != nil {
		return Path{}, false
	}
	parent, hasParent := p.Parent()
	if !hasParent {
		if p.IsAbsolute() {
			return Path{s: string(separator) + nc.s}, true
		}
		return Path{s: nc.s}, true
	}
	return parent.AppendingComponent(nc), true
}

// RemovingLastComponent is an alias for Parent that returns p
// unchanged (rather than a bool) when there is no parent, matching the
// `removing(.last_component)` conceptual API in spec §6.
func (p Path) RemovingLastComponent() Path {
	parent, ok := p.Parent()
	if !ok {
		return p
	}
	return parent
}
