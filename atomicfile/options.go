package atomicfile

// Strategy controls whether Write may replace an existing destination.
type Strategy int

const (
	// ReplaceExisting atomically replaces whatever is at the
	// destination, if anything (default).
	ReplaceExisting Strategy = iota
	// NoClobber fails with DestinationExists if the destination
	// already exists, racing writers included.
	NoClobber
)

// Durability controls how far the write is flushed before Write
// returns, per spec §4.E step 5/8.
type Durability int

const (
	// DurabilityNone skips fsync entirely.
	DurabilityNone Durability = iota
	// DataOnly calls fdatasync on the temp file and fsyncs the
	// parent directory.
	DataOnly
	// Full calls fsync on the temp file and fsyncs the parent
	// directory (default).
	Full
)

// Options configures a single atomic write. The zero value is not
// valid; use DefaultOptions or New.
type Options struct {
	Strategy                   Strategy
	Durability                 Durability
	PreservePermissions        bool
	PreserveOwnership          bool
	StrictOwnership            bool
	PreserveTimestamps         bool
	PreserveExtendedAttributes bool
	PreserveACLs               bool
}

// DefaultOptions matches spec §3's documented defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:            ReplaceExisting,
		Durability:          Full,
		PreservePermissions: true,
	}
}

// Option mutates Options; New applies a sequence of them over
// DefaultOptions, the functional-option shape used throughout this
// library's configuration surfaces (spec §3's AtomicWriteOptions).
type Option func(*Options)

// New builds Options from DefaultOptions plus the given overrides.
func New(opts ...Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithStrategy(s Strategy) Option { return func(o *Options) { o.Strategy = s } }
func WithDurability(d Durability) Option { return func(o *Options) { o.Durability = d } }
func WithPreservePermissions(b bool) Option { return func(o *Options) { o.PreservePermissions = b } }
func WithPreserveOwnership(b bool) Option { return func(o *Options) { o.PreserveOwnership = b } }
func WithStrictOwnership(b bool) Option { return func(o *Options) { o.StrictOwnership = b } }
func WithPreserveTimestamps(b bool) Option { return func(o *Options) { o.PreserveTimestamps = b } }
func WithPreserveExtendedAttributes(b bool) Option {
	return func(o *Options) { o.PreserveExtendedAttributes = b }
}
func WithPreserveACLs(b bool) Option { return func(o *Options) { o.PreserveACLs = b } }
