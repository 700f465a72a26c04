package classify

import "strings"

// Category is the closed set of failure categories a provider error
// name can map onto.
type Category int

const (
	// CategoryFatal marks errors that must not be retried.
	CategoryFatal Category = iota

	// CategoryTransient marks errors worth retrying with backoff.
	CategoryTransient

	// CategoryRateLimit marks provider throttling signals.
	CategoryRateLimit
)

// String returns the category name for logging.
func (c Category) String() string {
	switch c {
	case CategoryFatal:
		return "fatal"
	case CategoryTransient:
		return "transient"
	case CategoryRateLimit:
		return "rate_limit"
	default:
		return "unknown"
	}
}

// Table maps provider error names onto categories. Lookup is an exact,
// case-insensitive match; there is no substring dispatch on error text.
type Table struct {
	names map[string]Category
}

// NewTable builds a lookup table from the configured transient and
// rate-limit error name lists. A name listed in both sets resolves to
// CategoryRateLimit.
func NewTable(transient, rateLimit []string) *Table {
	names := make(map[string]Category, len(transient)+len(rateLimit))
	for _, n := range transient {
		if key := normalizeName(n); key != "" {
			names[key] = CategoryTransient
		}
	}
	for _, n := range rateLimit {
		if key := normalizeName(n); key != "" {
			names[key] = CategoryRateLimit
		}
	}
	return &Table{names: names}
}

// Lookup returns the category configured for the given error name.
func (t *Table) Lookup(name string) (Category, bool) {
	if t == nil || len(t.names) == 0 {
		return CategoryFatal, false
	}
	cat, ok := t.names[normalizeName(name)]
	return cat, ok
}

// Len returns the number of configured names.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
