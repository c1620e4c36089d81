package bencode

import "fmt"

// DuplicatePolicy decides what the decoder does with a repeated dictionary key.
type DuplicatePolicy uint8

const (
	// DuplicateOverwrite keeps the last value seen for a key.
	DuplicateOverwrite DuplicatePolicy = iota
	// DuplicateReject fails the parse with ErrDuplicateKey.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateOverwrite:
		return "overwrite"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseDuplicatePolicy maps a config string onto a DuplicatePolicy.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "overwrite":
		return DuplicateOverwrite, nil
	case "reject":
		return DuplicateReject, nil
	default:
		return DuplicateOverwrite, fmt.Errorf("unknown duplicate key policy %q", s)
	}
}

// Options controls how lenient the decoder is. The zero value is not valid;
// start from DefaultOptions.
type Options struct {
	// IntBits is the signed width integers must fit in: 8, 16, 32 or 64.
	IntBits            int
	DuplicateKeys      DuplicatePolicy
	RejectLeadingZeros bool
	RejectNegativeZero bool
	RejectUnsortedKeys bool
	// MaxDepth bounds list/dictionary nesting. 0 means unlimited.
	MaxDepth int
	// MaxStringLength bounds a single byte string. 0 means unlimited.
	MaxStringLength int64
}

// DefaultOptions accepts everything the grammar allows and stores 64-bit integers.
func DefaultOptions() Options {
	return Options{
		IntBits:       64,
		DuplicateKeys: DuplicateOverwrite,
	}
}

// Option is a functional option for Options.
type Option func(*Options)

func WithIntBits(bits int) Option {
	return func(o *Options) {
		o.IntBits = bits
	}
}

func WithDuplicateKeys(p DuplicatePolicy) Option {
	return func(o *Options) {
		o.DuplicateKeys = p
	}
}

func WithRejectLeadingZeros(reject bool) Option {
	return func(o *Options) {
		o.RejectLeadingZeros = reject
	}
}

func WithRejectNegativeZero(reject bool) Option {
	return func(o *Options) {
		o.RejectNegativeZero = reject
	}
}

func WithRejectUnsortedKeys(reject bool) Option {
	return func(o *Options) {
		o.RejectUnsortedKeys = reject
	}
}

func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

func WithMaxStringLength(n int64) Option {
	return func(o *Options) {
		o.MaxStringLength = n
	}
}

// WithStrict accepts canonical input only: no duplicate or unsorted keys,
// no leading zeros and no negative zero.
func WithStrict() Option {
	return func(o *Options) {
		o.DuplicateKeys = DuplicateReject
		o.RejectLeadingZeros = true
		o.RejectNegativeZero = true
		o.RejectUnsortedKeys = true
	}
}

func resolveOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	switch o.IntBits {
	case 8, 16, 32, 64:
	default:
		o.IntBits = 64
	}
	return o
}
