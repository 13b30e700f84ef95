package matlab

import (
	"compress/zlib"
	"log/slog"

	"github.com/AnthonyAndroulakis/matlab/internal/logger"
)

// Option configures decoding and encoding.
type Option func(*options)

type options struct {
	filter     Filter
	compress   bool
	level      int
	header     *Header
	maxInflate int64
	log        logger.Logger
}

func defaultOptions() *options {
	return &options{
		filter: acceptAll,
		level:  zlib.DefaultCompression,
		log:    logger.Discard(),
	}
}

func buildOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFilter restricts decoding to the top-level arrays f matches.
func WithFilter(f Filter) Option {
	return func(o *options) {
		if f != nil {
			o.filter = f
		}
	}
}

// WithCompression wraps every top-level array in a miCOMPRESSED element when encoding.
func WithCompression(enabled bool) Option {
	return func(o *options) {
		o.compress = enabled
	}
}

// WithCompressionLevel sets the zlib level (-2 to 9, see compress/zlib) and enables compression.
func WithCompressionLevel(level int) Option {
	return func(o *options) {
		if level >= zlib.HuffmanOnly && level <= zlib.BestCompression {
			o.level = level
			o.compress = true
		}
	}
}

// WithMaxInflatedSize caps the size of each decompressed miCOMPRESSED
// segment. Larger segments fail with ErrMalformedCompressedBlock. The default
// of zero leaves segments unbounded.
func WithMaxInflatedSize(n int64) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxInflate = n
		}
	}
}

// WithHeader sets the header written by the encoder. By default a header
// stamped with the current time is written.
func WithHeader(h *Header) Option {
	return func(o *options) {
		o.header = h
	}
}

// WithLogger sets the logger receiving debug records about decoded and encoded elements.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = logger.New(l.Handler())
		}
	}
}
