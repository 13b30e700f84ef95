package matlab

// Filter decides which top-level arrays are materialized while decoding.
// Rejected arrays are skipped by length; nested arrays are never filtered.
type Filter interface {
	Matches(name string) bool
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(name string) bool

// Matches calls f(name).
func (f FilterFunc) Matches(name string) bool {
	return f(name)
}

// NameFilter accepts the listed names. An empty NameFilter accepts every name.
type NameFilter map[string]struct{}

// NewNameFilter builds a NameFilter from names.
func NewNameFilter(names ...string) NameFilter {
	f := make(NameFilter, len(names))
	for _, n := range names {
		f.Add(n)
	}
	return f
}

// Add accepts name.
func (f NameFilter) Add(name string) {
	f[name] = struct{}{}
}

// Matches reports whether name was added, or true when no name was.
func (f NameFilter) Matches(name string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[name]
	return ok
}

var acceptAll = FilterFunc(func(string) bool { return true })
