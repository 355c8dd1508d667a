package source

import "github.com/lanr/missionsync/internal/domain/session"

// Option applies a configuration option to a record or session loader.
type Option func(*options)

type options struct {
	delimiter  rune
	strict     bool
	maxEntries int
	docPattern string
}

func defaults() options {
	return options{
		delimiter:  ',',
		maxEntries: session.DefaultMaxEntries,
		docPattern: DefaultDocumentPattern,
	}
}

// WithDelimiter sets the field delimiter of the delimited log.
func WithDelimiter(d rune) Option {
	return func(o *options) {
		if d != 0 {
			o.delimiter = d
		}
	}
}

// WithStrict rejects rows whose field count differs from the first row.
// By default ragged rows are accepted as they are.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithMaxEntries sets the per-subject session window.
func WithMaxEntries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEntries = n
		}
	}
}

// WithDocumentPattern sets the printf pattern naming subject documents by
// 1-based index.
func WithDocumentPattern(pattern string) Option {
	return func(o *options) {
		if pattern != "" {
			o.docPattern = pattern
		}
	}
}
